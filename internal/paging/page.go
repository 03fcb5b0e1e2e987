package paging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPage reports a payload whose item list is not a JSON array.
var ErrMalformedPage = errors.New("malformed page payload")

// Request identifies the page to fetch.
type Request struct {
	Page  int
	Limit int
}

// Info is the optional pagination metadata returned with a page.
// Page is 0-indexed; TotalPages is a count.
type Info struct {
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
	HasNext    *bool `json:"hasNext,omitempty"`
}

// Page is one decoded page of items.
type Page[T any] struct {
	Content []T   `json:"content"`
	Info    *Info `json:"pageInfo,omitempty"`
}

// Fetcher retrieves a single page.
type Fetcher[T any] func(ctx context.Context, req Request) (*Page[T], error)

// DecodeError describes why a payload failed validation. It unwraps to [ErrMalformedPage].
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrMalformedPage, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrMalformedPage, e.Reason)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedPage, e.Err}
	}
	return []error{ErrMalformedPage}
}

type envelope struct {
	Data *struct {
		Content  json.RawMessage `json:"content"`
		PageInfo *Info           `json:"pageInfo"`
	} `json:"data"`
}

// Decode validates and decodes a `{"data": {"content": [...], "pageInfo": {...}}}` body.
//
// A missing data object, a missing or non-array content field, or items that do not decode
// into T all produce a [*DecodeError].
func Decode[T any](body []byte) (*Page[T], error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &DecodeError{Reason: "invalid JSON", Err: err}
	}

	if env.Data == nil {
		return nil, &DecodeError{Reason: "missing data object"}
	}

	raw := bytes.TrimSpace(env.Data.Content)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, &DecodeError{Reason: "content is not an array"}
	}

	items := []T{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &DecodeError{Reason: "content items do not match", Err: err}
	}

	return &Page[T]{Content: items, Info: env.Data.PageInfo}, nil
}

// HasMore reports whether another page should follow p when it was requested with limit.
//
// An explicit hasNext flag wins. Otherwise page/totalPages decide. Without any metadata a
// full page is assumed non-final, which costs one extra empty fetch when the total is an
// exact multiple of limit.
func HasMore[T any](p *Page[T], limit int) bool {
	if p == nil {
		return false
	}
	if p.Info != nil {
		if p.Info.HasNext != nil {
			return *p.Info.HasNext
		}
		return p.Info.Page < p.Info.TotalPages-1
	}
	return limit > 0 && len(p.Content) == limit
}
