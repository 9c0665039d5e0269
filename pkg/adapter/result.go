package adapter

import (
	"encoding/json"
	"fmt"
)

// ResultKind tags which variant a Result holds.
type ResultKind int

const (
	KindObject ResultKind = iota + 1
	KindList
	KindBytes
	KindAcknowledged
)

func (k ResultKind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindList:
		return "list"
	case KindBytes:
		return "bytes"
	case KindAcknowledged:
		return "acknowledged"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// PageState describes where a list result sits in its collection.
// Every backend has its own implementation; nil means a full snapshot.
type PageState interface {
	HasMore() bool
}

// Result is the backend-agnostic outcome of a successful call.
type Result struct {
	Kind ResultKind

	// Data holds the JSON object (KindObject) or JSON array (KindList).
	Data json.RawMessage
	// Page is set only on KindList results of paginated backends.
	Page PageState

	// Bytes and ContentType are set only on KindBytes results.
	Bytes       []byte
	ContentType string
}

func ObjectResult(data json.RawMessage) Result {
	return Result{Kind: KindObject, Data: data}
}

func ListResult(data json.RawMessage, page PageState) Result {
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("[]")
	}
	return Result{Kind: KindList, Data: data, Page: page}
}

func BytesResult(b []byte, contentType string) Result {
	return Result{Kind: KindBytes, Bytes: b, ContentType: contentType}
}

func Acknowledged() Result {
	return Result{Kind: KindAcknowledged}
}

// Items splits a list result into its elements.
func (r Result) Items() ([]json.RawMessage, error) {
	if r.Kind != KindList {
		return nil, fmt.Errorf("result is %s, not list", r.Kind)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(r.Data, &items); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return items, nil
}

// Decode unmarshals an object or list result into v.
func (r Result) Decode(v any) error {
	if r.Kind != KindObject && r.Kind != KindList {
		return fmt.Errorf("result is %s, not structured", r.Kind)
	}
	return json.Unmarshal(r.Data, v)
}
