// Package bulk correlates per-item backend outcomes with the entities that
// produced them.
package bulk

import (
	"encoding/json"
	"fmt"
)

// Action is a bulk operation kind.
type Action string

// Bulk actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionIndex creates or overwrites a document.
	ActionIndex Action = "index"
)

// Outcome is the backend's report for one bulk item.
type Outcome struct {
	Index   string          `json:"_index,omitempty"`
	Type    string          `json:"_type,omitempty"`
	ID      string          `json:"_id"`
	Version int64           `json:"_version,omitempty"`
	Result  string          `json:"result,omitempty"`
	Status  int             `json:"status"`
	Found   *bool           `json:"found,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// Failed reports whether the item carries an error payload or a negative
// existence flag.
func (o Outcome) Failed() bool {
	if len(o.Error) > 0 && string(o.Error) != "null" {
		return true
	}
	if o.Found != nil && !*o.Found {
		return true
	}
	return o.Result == "not_found"
}

// Entry is one item of a bulk response: a single action mapped to its outcome.
type Entry map[Action]Outcome

// Single returns the only action and outcome of the entry.
func (e Entry) Single() (Action, Outcome, bool) {
	for a, o := range e {
		return a, o, true
	}
	return "", Outcome{}, false
}

// NewEntry wraps one outcome.
func NewEntry(a Action, o Outcome) Entry {
	return Entry{a: o}
}

// Reason extracts a readable reason from a raw error payload. Payloads are
// either {"type": ..., "reason": ...} objects or plain JSON strings.
func Reason(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var obj struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && (obj.Type != "" || obj.Reason != "") {
		if obj.Type == "" {
			return obj.Reason
		}
		return fmt.Sprintf("%s: %s", obj.Type, obj.Reason)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ErrorPayload builds a raw error payload in the common {type, reason} shape.
func ErrorPayload(typ, reason string) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{"type": typ, "reason": reason})
	return raw
}
