package bulk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/kailas-cloud/elodex/internal/domain/entity"
)

// Kind classifies a failed item by its HTTP-like status.
type Kind string

// Failure kinds.
const (
	KindBadRequest Kind = "bad_request"
	KindForbidden  Kind = "forbidden"
	KindNotFound   Kind = "not_found"
	KindTimeout    Kind = "timeout"
	KindConflict   Kind = "conflict"
	KindOther      Kind = "other"
)

// Classify maps a status code to a failure kind.
func Classify(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusRequestTimeout:
		return KindTimeout
	case http.StatusConflict:
		return KindConflict
	default:
		return KindOther
	}
}

const (
	notFoundReason = "document not found"
	missingReason  = "no result for input"
)

// ItemError is the classified failure of one item.
type ItemError struct {
	ID     string
	Action Action
	Kind   Kind
	Status int
	Reason string
	Raw    json.RawMessage
}

func (e *ItemError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("%s %s: %s", e.Kind, e.ID, e.Reason)
	}
	return fmt.Sprintf("%s %s (%s): %s", e.Action, e.ID, e.Kind, e.Reason)
}

// FailedItem pairs a failure with the input that caused it. Entity is nil
// for response items without a matching input.
type FailedItem struct {
	Position int
	ID       string
	Entity   entity.Entity
	Err      *ItemError
}

// failures is the shared body of OperationError and MultiGetError.
type failures struct {
	items []FailedItem
	byID  map[string]int
}

func (f *failures) add(item FailedItem) {
	if f.byID == nil {
		f.byID = make(map[string]int)
	}
	f.byID[item.ID] = len(f.items)
	f.items = append(f.items, item)
}

// Len returns the number of failed items.
func (f *failures) Len() int { return len(f.items) }

// FailedItems returns the failures in input order.
func (f *failures) FailedItems() []FailedItem {
	out := make([]FailedItem, len(f.items))
	copy(out, f.items)
	return out
}

// FailedEntities returns the failed inputs in input order.
func (f *failures) FailedEntities() []entity.Entity {
	out := make([]entity.Entity, 0, len(f.items))
	for _, it := range f.items {
		if it.Entity != nil {
			out = append(out, it.Entity)
		}
	}
	return out
}

// FailedItem looks up a failure by document id.
func (f *failures) FailedItem(id string) (FailedItem, bool) {
	i, ok := f.byID[id]
	if !ok {
		return FailedItem{}, false
	}
	return f.items[i], true
}

// Errors returns the classified errors keyed by document id.
func (f *failures) Errors() map[string]*ItemError {
	out := make(map[string]*ItemError, len(f.items))
	for _, it := range f.items {
		out[it.ID] = it.Err
	}
	return out
}

// ErrorFor returns the classified error of id, or nil.
func (f *failures) ErrorFor(id string) *ItemError {
	if it, ok := f.FailedItem(id); ok {
		return it.Err
	}
	return nil
}

// NotFoundOnly reports whether every failure is a missing document.
func (f *failures) NotFoundOnly() bool {
	for _, it := range f.items {
		if it.Err.Kind != KindNotFound {
			return false
		}
	}
	return len(f.items) > 0
}

func (f *failures) message() string {
	msgs := make([]string, len(f.items))
	for i, it := range f.items {
		msgs[i] = it.Err.Error()
	}
	return strings.Join(msgs, "\n")
}

// OperationError reports the items of a bulk request that failed.
type OperationError struct {
	failures
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("bulk operation failed for %d item(s):\n%s", e.Len(), e.message())
}

// Correlate matches bulk response entries to inputs by position and returns
// nil when every item succeeded.
func Correlate(inputs []entity.Entity, entries []Entry) *OperationError {
	var out OperationError
	for pos, entry := range entries {
		action, outcome, ok := entry.Single()
		if !ok || !outcome.Failed() {
			continue
		}

		item := FailedItem{Position: pos, ID: outcome.ID}
		if pos < len(inputs) {
			item.Entity = inputs[pos]
			if item.ID == "" {
				item.ID = inputs[pos].IndexKey()
			}
		}
		item.Err = classifyOutcome(item.ID, action, outcome, item.Entity == nil)
		out.add(item)
	}
	addMissing(&out.failures, inputs, len(entries))
	if out.Len() == 0 {
		return nil
	}
	return &out
}

// addMissing records every input past the end of a short response.
func addMissing(f *failures, inputs []entity.Entity, got int) {
	for pos := got; pos < len(inputs); pos++ {
		id := inputs[pos].IndexKey()
		f.add(FailedItem{
			Position: pos,
			ID:       id,
			Entity:   inputs[pos],
			Err:      &ItemError{ID: id, Kind: KindOther, Reason: missingReason},
		})
	}
}

func classifyOutcome(id string, action Action, o Outcome, orphan bool) *ItemError {
	status := o.Status
	reason := Reason(o.Error)
	if reason == "" {
		reason = notFoundReason
		if status == 0 || status == http.StatusOK {
			status = http.StatusNotFound
		}
	}
	kind := Classify(status)
	if orphan {
		kind = KindOther
		reason = "no matching input: " + reason
	}
	return &ItemError{ID: id, Action: action, Kind: kind, Status: status, Reason: reason, Raw: o.Error}
}

// Lookup is the per-document outcome of a multi-get.
type Lookup struct {
	ID    string
	Found bool
	Error json.RawMessage
}

// MultiGetError reports the documents a multi-get could not return.
type MultiGetError struct {
	failures
}

func (e *MultiGetError) Error() string {
	msgs := make([]string, len(e.items))
	for i, it := range e.items {
		msgs[i] = fmt.Sprintf("Multi GET failed for ID %s: %s", it.ID, it.Err.Reason)
	}
	return strings.Join(msgs, "\n")
}

// CorrelateMultiGet matches multi-get results to inputs by position and
// returns nil when every document was found.
func CorrelateMultiGet(inputs []entity.Entity, docs []Lookup) *MultiGetError {
	var out MultiGetError
	for pos, doc := range docs {
		hasErr := len(doc.Error) > 0 && string(doc.Error) != "null"
		if doc.Found && !hasErr {
			continue
		}

		item := FailedItem{Position: pos, ID: doc.ID}
		if pos < len(inputs) {
			item.Entity = inputs[pos]
			if item.ID == "" {
				item.ID = inputs[pos].IndexKey()
			}
		}
		ie := &ItemError{ID: item.ID, Kind: KindNotFound, Status: http.StatusNotFound, Reason: notFoundReason}
		if hasErr {
			ie.Kind = KindOther
			ie.Status = 0
			ie.Reason = Reason(doc.Error)
			ie.Raw = doc.Error
		}
		item.Err = ie
		out.add(item)
	}
	addMissing(&out.failures, inputs, len(docs))
	if out.Len() == 0 {
		return nil
	}
	return &out
}
