package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/foodgram-web/internal/apperror"
	"github.com/sakif/foodgram-web/internal/auth"
	"github.com/sakif/foodgram-web/internal/foodgram"
	"github.com/sakif/foodgram-web/internal/form"
)

// Field limits of the backend user model.
const (
	maxEmailLength = 254
	maxNameLength  = 150
)

var (
	signInForm = form.New(
		form.Field{Name: "email", Rules: []form.Rule{form.Required(), form.Email()}},
		form.Field{Name: "password", Rules: []form.Rule{form.Required()}},
	)

	signUpForm = form.New(
		form.Field{Name: "first_name", Rules: []form.Rule{form.Required(), form.MaxLength(maxNameLength)}},
		form.Field{Name: "last_name", Rules: []form.Rule{form.Required(), form.MaxLength(maxNameLength)}},
		form.Field{Name: "username", Rules: []form.Rule{
			form.Required(),
			form.MaxLength(maxNameLength),
			form.Pattern(form.UsernamePattern, "Use only letters, digits and @ . + - _"),
		}},
		form.Field{Name: "email", Rules: []form.Rule{form.Required(), form.Email(), form.MaxLength(maxEmailLength)}},
		form.Field{Name: "password", Rules: []form.Rule{form.Required()}},
	)

	changePasswordForm = form.New(
		form.Field{Name: "current_password", Rules: []form.Rule{form.Required()}},
		form.Field{Name: "new_password", Rules: []form.Rule{form.Required()}},
		form.Field{Name: "repeat_password", Rules: []form.Rule{
			form.Required(),
			form.EqualTo("new_password", "Passwords do not match"),
		}},
	)

	resetPasswordForm = form.New(
		form.Field{Name: "email", Rules: []form.Rule{form.Required(), form.Email()}},
	)
)

// formPage is the data of the account form pages.
type formPage struct {
	Form   form.Result
	Banner string
	Next   string
}

// applyAPIErrors copies backend field errors onto res and returns the banner
// text for errors no field claims.
func applyAPIErrors(res *form.Result, err error) string {
	var apiErr *foodgram.APIError
	if !errors.As(err, &apiErr) {
		return userMessage(err)
	}

	claimed := false
	for name := range res.Values {
		if msgs := apiErr.Field(name); len(msgs) > 0 {
			res.Errors[name] = strings.Join(msgs, " ")
			claimed = true
		}
	}
	res.IsValid = false

	if nf := apiErr.NonField(); len(nf) > 0 {
		return strings.Join(nf, " ")
	}
	if claimed {
		return ""
	}
	return apiErr.Message()
}

// clearPasswords drops password values so they are not echoed back into the page.
func clearPasswords(res *form.Result) {
	for name := range res.Values {
		if strings.Contains(name, "password") {
			res.Values[name] = ""
		}
	}
}

// HandleSignInPage serves GET /signin.
func (h *Handler) HandleSignInPage(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, http.StatusOK, "signin", h.view(w, r, "Sign in", "signin", formPage{
		Form: form.Empty(),
		Next: safeReturn(r.URL.Query().Get("next"), ""),
	}))
}

// HandleSignIn serves POST /signin.
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	page := formPage{
		Form: signInForm.Validate(r.PostForm),
		Next: safeReturn(r.PostForm.Get("next"), ""),
	}

	var creds foodgram.Credentials
	if page.Form.IsValid {
		if err := h.decoder.Decode(&creds, r.PostForm); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		creds.Email = page.Form.Value("email")

		st := auth.FromContext(r.Context())
		err := h.Accounts.SignIn(r.Context(), st, creds)
		if err == nil {
			h.save(r.Context(), w, st)
			http.Redirect(w, r, safeReturn(page.Next, "/recipes"), http.StatusSeeOther)
			return
		}
		page.Banner = applyAPIErrors(&page.Form, err)
	}

	clearPasswords(&page.Form)
	h.Renderer.Render(w, http.StatusUnprocessableEntity, "signin", h.view(w, r, "Sign in", "signin", page))
}

// HandleSignUpPage serves GET /signup.
func (h *Handler) HandleSignUpPage(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, http.StatusOK, "signup", h.view(w, r, "Sign up", "signup", formPage{Form: form.Empty()}))
}

// HandleSignUp serves POST /signup.
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	page := formPage{Form: signUpForm.Validate(r.PostForm)}

	if page.Form.IsValid {
		var req foodgram.SignUpRequest
		if err := h.decoder.Decode(&req, r.PostForm); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		req.Email = page.Form.Value("email")
		req.Username = page.Form.Value("username")
		req.FirstName = page.Form.Value("first_name")
		req.LastName = page.Form.Value("last_name")

		_, err := h.Accounts.SignUp(r.Context(), req)
		if err == nil {
			setFlash(w, "info", "Your account is ready. Sign in to continue.")
			http.Redirect(w, r, "/signin", http.StatusSeeOther)
			return
		}
		page.Banner = applyAPIErrors(&page.Form, err)
	}

	clearPasswords(&page.Form)
	h.Renderer.Render(w, http.StatusUnprocessableEntity, "signup", h.view(w, r, "Sign up", "signup", page))
}

// HandleSignOut serves POST /signout.
func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	st := auth.FromContext(r.Context())
	h.Accounts.SignOut(r.Context(), st)
	if err := h.Sessions.Destroy(r.Context(), w, st); err != nil {
		h.Logger.Warn("destroying session on sign-out", slog.String("error", err.Error()))
	}
	http.Redirect(w, r, "/signin", http.StatusSeeOther)
}

// HandleChangePasswordPage serves GET /change-password.
func (h *Handler) HandleChangePasswordPage(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, http.StatusOK, "change_password",
		h.view(w, r, "Change password", "account", formPage{Form: form.Empty()}))
}

// HandleChangePassword serves POST /change-password. On success the backend
// revokes the token, so the visitor is signed out and asked to sign in again.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	page := formPage{Form: changePasswordForm.Validate(r.PostForm)}

	if page.Form.IsValid {
		var req foodgram.PasswordChange
		if err := h.decoder.Decode(&req, r.PostForm); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		st := auth.FromContext(r.Context())
		err := h.Accounts.ChangePassword(r.Context(), st, req)
		if err == nil {
			if derr := h.Sessions.Destroy(r.Context(), w, st); derr != nil {
				h.Logger.Warn("destroying session after password change", slog.String("error", derr.Error()))
			}
			setFlash(w, "info", "Password changed. Sign in with the new password.")
			http.Redirect(w, r, "/signin", http.StatusSeeOther)
			return
		}
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.fail(w, r, err)
			return
		}
		page.Banner = applyAPIErrors(&page.Form, err)
	}

	clearPasswords(&page.Form)
	h.Renderer.Render(w, http.StatusUnprocessableEntity, "change_password",
		h.view(w, r, "Change password", "account", page))
}

// HandleResetPasswordPage serves GET /reset-password.
func (h *Handler) HandleResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, http.StatusOK, "reset_password",
		h.view(w, r, "Reset password", "signin", formPage{Form: form.Empty()}))
}

// HandleResetPassword serves POST /reset-password.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	page := formPage{Form: resetPasswordForm.Validate(r.PostForm)}

	if page.Form.IsValid {
		err := h.Accounts.ResetPassword(r.Context(), page.Form.Value("email"))
		if err == nil {
			setFlash(w, "info", "If this address is registered, we have sent reset instructions to it.")
			http.Redirect(w, r, "/signin", http.StatusSeeOther)
			return
		}
		page.Banner = applyAPIErrors(&page.Form, err)
	}

	h.Renderer.Render(w, http.StatusUnprocessableEntity, "reset_password",
		h.view(w, r, "Reset password", "signin", page))
}

// HandleChangeAvatarPage serves GET /change-avatar.
func (h *Handler) HandleChangeAvatarPage(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, http.StatusOK, "change_avatar",
		h.view(w, r, "Change avatar", "account", formPage{Form: form.Empty()}))
}

// HandleChangeAvatar serves POST /change-avatar, a multipart upload of "avatar".
func (h *Handler) HandleChangeAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	page := formPage{Form: form.Empty()}

	file, _, err := r.FormFile("avatar")
	if err != nil {
		page.Form.Errors["avatar"] = "Choose an image"
		h.Renderer.Render(w, http.StatusUnprocessableEntity, "change_avatar",
			h.view(w, r, "Change avatar", "account", page))
		return
	}
	defer file.Close()

	st := auth.FromContext(r.Context())
	if err := h.Accounts.ChangeAvatar(r.Context(), st, file); err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.fail(w, r, err)
			return
		}
		page.Form.Errors["avatar"] = userMessage(err)
		h.Renderer.Render(w, http.StatusUnprocessableEntity, "change_avatar",
			h.view(w, r, "Change avatar", "account", page))
		return
	}

	h.save(r.Context(), w, st)
	setFlash(w, "info", "Avatar updated")
	http.Redirect(w, r, "/recipes", http.StatusSeeOther)
}

// HandleDeleteAvatar serves POST /change-avatar/delete.
func (h *Handler) HandleDeleteAvatar(w http.ResponseWriter, r *http.Request) {
	st := auth.FromContext(r.Context())
	if err := h.Accounts.DeleteAvatar(r.Context(), st); err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.fail(w, r, err)
			return
		}
		setFlash(w, "error", userMessage(err))
	} else {
		h.save(r.Context(), w, st)
		setFlash(w, "info", "Avatar removed")
	}
	http.Redirect(w, r, "/change-avatar", http.StatusSeeOther)
}
