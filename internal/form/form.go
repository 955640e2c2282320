// Package form validates submitted HTML forms against an explicit, typed schema.
//
// WHY A SCHEMA?
// Each form (sign up, sign in, recipe editor, password change) declares its fields
// and the rules for each one up front. Validation is evaluated centrally from the
// submitted values, so the same rules hold no matter which page renders the form.
//
// A field reports at most one error: the first rule it fails. An empty field that
// is not Required skips its other rules. Cross-field rules (EqualTo) see every
// submitted value.
//
//	signup := form.New(
//	    form.Field{Name: "email", Rules: []form.Rule{form.Required(), form.Email()}},
//	    form.Field{Name: "password", Rules: []form.Rule{form.Required()}},
//	)
//	res := signup.Validate(r.PostForm)
//	if !res.IsValid { ... }
package form

import (
	"net/url"
	"strings"
)

// Rule checks one field. It returns an error message, or "" when the value passes.
// all holds every submitted value, for cross-field comparisons.
type Rule func(value string, all url.Values) string

// Field declares one tracked input.
type Field struct {
	Name  string
	Rules []Rule
}

// Form is a set of tracked fields.
type Form struct {
	fields []Field
}

// New creates a Form tracking the given fields, in display order.
func New(fields ...Field) *Form {
	return &Form{fields: fields}
}

// Fields returns the tracked field names.
func (f *Form) Fields() []string {
	names := make([]string, len(f.fields))
	for i, fd := range f.fields {
		names[i] = fd.Name
	}
	return names
}

// Result is the validation state of one submission.
type Result struct {
	Values  map[string]string
	Errors  map[string]string
	IsValid bool
}

// Value returns the submitted (trimmed) value of a field.
func (r Result) Value(name string) string {
	return r.Values[name]
}

// Error returns the error message of a field, or "".
func (r Result) Error(name string) string {
	return r.Errors[name]
}

// Empty returns the Result of a blank, not yet submitted form.
func Empty() Result {
	return Result{Values: map[string]string{}, Errors: map[string]string{}}
}

// Validate evaluates every tracked field. Values are trimmed of surrounding
// whitespace, except fields whose name contains "password".
func (f *Form) Validate(submitted url.Values) Result {
	res := Result{
		Values: make(map[string]string, len(f.fields)),
		Errors: map[string]string{},
	}

	for _, fd := range f.fields {
		value := submitted.Get(fd.Name)
		if !strings.Contains(fd.Name, "password") {
			value = strings.TrimSpace(value)
		}
		res.Values[fd.Name] = value

		for _, rule := range fd.Rules {
			if msg := rule(value, submitted); msg != "" {
				res.Errors[fd.Name] = msg
				break
			}
		}
	}

	res.IsValid = len(res.Errors) == 0
	return res
}
