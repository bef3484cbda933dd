package types

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Response is a fetched page or API payload.
type Response struct {
	StatusCode  int
	Headers     http.Header
	Body        []byte
	ContentType string

	// FinalURL is the URL after redirects. Short links (youtu.be, amzn.to)
	// are resolved by reading it.
	FinalURL      string
	FetchDuration time.Duration

	doc *goquery.Document
}

// NewResponse wraps a completed net/http response.
func NewResponse(req *Request, httpResp *http.Response, body []byte, duration time.Duration) *Response {
	finalURL := req.URLString()
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		finalURL = httpResp.Request.URL.String()
	}
	return &Response{
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		ContentType:   httpResp.Header.Get("Content-Type"),
		FinalURL:      finalURL,
		FetchDuration: duration,
	}
}

// NewBrowserResponse wraps a rendered DOM. The browser does not expose
// headers, so the content type is assumed.
func NewBrowserResponse(req *Request, statusCode int, body []byte, finalURL string, duration time.Duration) *Response {
	if finalURL == "" {
		finalURL = req.URLString()
	}
	return &Response{
		StatusCode:    statusCode,
		Headers:       make(http.Header),
		Body:          body,
		ContentType:   "text/html",
		FinalURL:      finalURL,
		FetchDuration: duration,
	}
}

// Document parses the body as HTML once and caches the result.
func (r *Response) Document() (*goquery.Document, error) {
	if r.doc != nil {
		return r.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, &ParseError{URL: r.FinalURL, Err: err}
	}
	r.doc = doc
	return doc, nil
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if len(r.Body) == 0 {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &ParseError{URL: r.FinalURL, Err: err}
	}
	return nil
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
