// Package catalog reads and writes the site's item catalog (items.json),
// converts discovered products into catalog items and answers the ranking
// queries the site renders.
package catalog

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/IshaanNene/deskrank/internal/score"
)

// Item is one catalog entry. Fields the pipeline does not know are kept in
// Extra and written back unchanged.
type Item struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Brand       string             `json:"brand,omitempty"`
	Description string             `json:"description,omitempty"`
	Category    string             `json:"category"`
	SubCategory string             `json:"subCategory,omitempty"`
	Score       int                `json:"score"`
	Rank        int                `json:"rank,omitempty"`
	Amazon      *Amazon            `json:"amazon,omitempty"`
	SocialScore *score.SocialScore `json:"socialScore,omitempty"`
	ImageURL    string             `json:"imageUrl"`
	Rating      float64            `json:"rating,omitempty"`
	ReviewCount int                `json:"reviewCount,omitempty"`
	IsNew       bool               `json:"isNew"`
	Featured    bool               `json:"featured"`
	CreatedAt   string             `json:"createdAt"`
	UpdatedAt   string             `json:"updatedAt,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Amazon is the marketplace part of an item.
type Amazon struct {
	ASIN         string `json:"asin"`
	Price        int    `json:"price,omitempty"`
	AffiliateURL string `json:"affiliateUrl"`

	Extra map[string]json.RawMessage `json:"-"`
}

// ASIN returns the item's product code, or "".
func (it Item) ASIN() string {
	if it.Amazon == nil {
		return ""
	}
	return it.Amazon.ASIN
}

// Created parses CreatedAt. Unparseable values sort as the zero time.
func (it Item) Created() time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, it.CreatedAt); err == nil {
			return t
		}
	}
	return time.Time{}
}

// AmazonSocial returns the stored Amazon platform score, or def when the
// item has none.
func (it Item) AmazonSocial(def int) int {
	if it.SocialScore == nil || it.SocialScore.Amazon == 0 {
		return def
	}
	return it.SocialScore.Amazon
}

type plainItem Item
type plainAmazon Amazon

var (
	itemKeys   = jsonKeys(reflect.TypeOf(Item{}))
	amazonKeys = jsonKeys(reflect.TypeOf(Amazon{}))
)

func (it Item) MarshalJSON() ([]byte, error) {
	known, err := marshalNoEscape(plainItem(it))
	if err != nil {
		return nil, err
	}
	return appendExtra(known, it.Extra)
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var p plainItem
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := unknownKeys(data, itemKeys)
	if err != nil {
		return err
	}
	p.Extra = extra
	*it = Item(p)
	return nil
}

func (a Amazon) MarshalJSON() ([]byte, error) {
	known, err := marshalNoEscape(plainAmazon(a))
	if err != nil {
		return nil, err
	}
	return appendExtra(known, a.Extra)
}

func (a *Amazon) UnmarshalJSON(data []byte) error {
	var p plainAmazon
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := unknownKeys(data, amazonKeys)
	if err != nil {
		return err
	}
	p.Extra = extra
	*a = Amazon(p)
	return nil
}

// jsonKeys lists the JSON names of t's tagged fields.
func jsonKeys(t reflect.Type) map[string]struct{} {
	keys := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys[name] = struct{}{}
		}
	}
	return keys
}

func unknownKeys(data []byte, known map[string]struct{}) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// appendExtra splices extra keys, sorted, after the known fields of obj.
func appendExtra(obj []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return obj, nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b bytes.Buffer
	b.Write(obj[:len(obj)-1])
	for i, k := range keys {
		if i > 0 || len(obj) > 2 {
			b.WriteByte(',')
		}
		name, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		b.Write(extra[k])
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// marshalNoEscape encodes v without escaping <, > and &, which appear in
// product names.
func marshalNoEscape(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(b.Bytes(), "\n"), nil
}
