package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrEmptyResponse     = errors.New("empty response body")
	ErrInvalidURL        = errors.New("invalid URL")
	ErrMissingCredential = errors.New("missing credential")
	ErrUnknownSource     = errors.New("unknown source")
	ErrNoSnapshot        = errors.New("no snapshot found")
	ErrNoProductInfo     = errors.New("no product info")
	ErrNotImage          = errors.New("not an image")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError wraps errors that occur during extraction.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur while persisting state.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// CredentialError reports a source that cannot run without a secret.
type CredentialError struct {
	Source SourceType
	Env    string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s: %s is not set", e.Source, e.Env)
}

func (e *CredentialError) Unwrap() error { return ErrMissingCredential }
