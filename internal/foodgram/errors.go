package foodgram

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/sakif/foodgram-web/internal/apperror"
)

// NonFieldKey is the key the backend uses for errors not tied to one input.
const NonFieldKey = "non_field_errors"

// APIError is a non-2xx backend response.
//
// Fields maps a field name to its messages, exactly as the backend reported them.
// A plain list body is stored under NonFieldKey and a {"detail": "..."} body under
// "detail". Nested structures (ingredient rows) are flattened into their field.
type APIError struct {
	Status int
	Fields map[string][]string
}

// Error joins every message into one string, fields in sorted order.
func (e *APIError) Error() string {
	if msg := e.Joined(); msg != "" {
		return msg
	}
	return http.StatusText(e.Status)
}

// Unwrap lets callers use errors.Is with the apperror sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return apperror.ErrValidation
	case http.StatusUnauthorized:
		return apperror.ErrUnauthorized
	case http.StatusForbidden:
		return apperror.ErrForbidden
	case http.StatusNotFound:
		return apperror.ErrNotFound
	}
	return nil
}

// Field returns the messages reported for one field.
func (e *APIError) Field(name string) []string {
	return e.Fields[name]
}

// NonField returns the form-level messages (non_field_errors and detail).
func (e *APIError) NonField() []string {
	out := append([]string(nil), e.Fields[NonFieldKey]...)
	return append(out, e.Fields["detail"]...)
}

// Joined concatenates all messages with ", ".
func (e *APIError) Joined() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msgs []string
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k]...)
	}
	return strings.Join(msgs, ", ")
}

// Message picks the text to show for a failed form submission: non-field errors
// first, then the first known field that has messages (prefixed with its label),
// then everything joined.
//
//	msg := apiErr.Message(foodgram.Label{"cooking_time", "Cooking time"})
func (e *APIError) Message(known ...Label) string {
	if nf := e.NonField(); len(nf) > 0 {
		return strings.Join(nf, ", ")
	}
	for _, l := range known {
		if msgs := e.Fields[l.Field]; len(msgs) > 0 {
			return l.Text + ": " + strings.Join(msgs, ", ")
		}
	}
	return e.Error()
}

// Label pairs a backend field name with the caption shown to the user.
type Label struct {
	Field string
	Text  string
}

// parseAPIError reads the error body. It never fails: an unparsable body is kept
// as a single "detail" message.
func parseAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Fields: map[string][]string{}}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || len(strings.TrimSpace(string(raw))) == 0 {
		return apiErr
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Fields["detail"] = []string{strings.TrimSpace(string(raw))}
		return apiErr
	}

	switch v := body.(type) {
	case map[string]any:
		for field, val := range v {
			if msgs := flatten(val); len(msgs) > 0 {
				apiErr.Fields[field] = msgs
			}
		}
	default:
		if msgs := flatten(v); len(msgs) > 0 {
			apiErr.Fields[NonFieldKey] = msgs
		}
	}
	return apiErr
}

// flatten collects every string found in a decoded JSON value.
// Map keys are visited in sorted order so the result is stable.
func flatten(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, flatten(item)...)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, flatten(t[k])...)
		}
		return out
	}
	return nil
}
