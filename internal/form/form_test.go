package form

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signupForm() *Form {
	return New(
		Field{Name: "email", Rules: []Rule{Required(), Email(), MaxLength(254)}},
		Field{Name: "username", Rules: []Rule{Required(), Pattern(UsernamePattern, "Invalid username"), MaxLength(150)}},
		Field{Name: "first_name", Rules: []Rule{Required()}},
		Field{Name: "password", Rules: []Rule{Required()}},
	)
}

func validSignup() url.Values {
	return url.Values{
		"email":      {"cook@example.com"},
		"username":   {"cook_1"},
		"first_name": {"Ann"},
		"password":   {"s3cret pass"},
	}
}

func TestValidate_AllFieldsValid(t *testing.T) {
	res := signupForm().Validate(validSignup())

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "cook@example.com", res.Value("email"))
}

func TestValidate_InvalidCases(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		value     string
		wantError string
	}{
		{"missing email", "email", "", "This field is required"},
		{"malformed email", "email", "not-an-email", "Enter a valid email address"},
		{"whitespace only is empty", "first_name", "   ", "This field is required"},
		{"username with spaces", "username", "bad name", "Invalid username"},
		{"username too long", "username", strings.Repeat("a", 151), "Use at most 150 characters"},
		{"missing password", "password", "", "This field is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := validSignup()
			values.Set(tt.field, tt.value)

			res := signupForm().Validate(values)
			assert.False(t, res.IsValid)
			assert.Equal(t, tt.wantError, res.Error(tt.field))
			assert.Len(t, res.Errors, 1, "only the broken field reports an error")
		})
	}
}

func TestValidate_BecomesValidOnceFixed(t *testing.T) {
	f := signupForm()
	values := validSignup()
	values.Set("email", "")
	values.Set("username", "no spaces allowed")

	assert.False(t, f.Validate(values).IsValid)

	values.Set("email", "cook@example.com")
	assert.False(t, f.Validate(values).IsValid, "username still broken")

	values.Set("username", "fixed")
	assert.True(t, f.Validate(values).IsValid)
}

func TestValidate_PasswordsAreNotTrimmed(t *testing.T) {
	values := validSignup()
	values.Set("password", "  padded  ")

	res := signupForm().Validate(values)
	assert.Equal(t, "  padded  ", res.Value("password"))
}

func TestEqualTo(t *testing.T) {
	f := New(
		Field{Name: "new_password", Rules: []Rule{Required()}},
		Field{Name: "repeat_password", Rules: []Rule{Required(), EqualTo("new_password", "Passwords do not match")}},
	)

	res := f.Validate(url.Values{"new_password": {"abc12345"}, "repeat_password": {"abc1234"}})
	assert.False(t, res.IsValid)
	assert.Equal(t, "Passwords do not match", res.Error("repeat_password"))

	res = f.Validate(url.Values{"new_password": {"abc12345"}, "repeat_password": {"abc12345"}})
	assert.True(t, res.IsValid)
}

func TestIntRangeAndDigits(t *testing.T) {
	f := New(
		Field{Name: "cooking_time", Rules: []Rule{Required(), IntRange(1, 300)}},
		Field{Name: "amount", Rules: []Rule{Digits()}},
	)

	cases := map[string]bool{
		"0":   false,
		"1":   true,
		"300": true,
		"301": false,
		"-5":  false,
		"1.5": false,
		"abc": false,
	}
	for value, ok := range cases {
		res := f.Validate(url.Values{"cooking_time": {value}})
		assert.Equal(t, ok, res.IsValid, "cooking_time=%q", value)
	}

	assert.True(t, f.Validate(url.Values{"cooking_time": {"5"}, "amount": {""}}).IsValid, "optional digits")
	assert.False(t, f.Validate(url.Values{"cooking_time": {"5"}, "amount": {"2g"}}).IsValid)
}

func TestEmpty(t *testing.T) {
	res := Empty()
	assert.False(t, res.IsValid)
	assert.Equal(t, "", res.Error("email"))
}
