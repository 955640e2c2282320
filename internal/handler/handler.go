// Package handler contains the HTTP handlers of the web frontend.
//
// Every page is rendered on the server from html/template. Mutations (toggles,
// forms) are plain HTML form posts answered with a 303 redirect back to the page
// they came from; their outcome is carried to the next page as a flash notification.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"

	"github.com/sakif/foodgram-web/internal/apperror"
	"github.com/sakif/foodgram-web/internal/auth"
	"github.com/sakif/foodgram-web/internal/foodgram"
	"github.com/sakif/foodgram-web/internal/recipes"
	"github.com/sakif/foodgram-web/internal/service"
	"github.com/sakif/foodgram-web/internal/session"
)

// Deps are the collaborators of the handlers.
type Deps struct {
	Backend  *foodgram.Client
	Sessions *auth.Manager
	Accounts *service.AccountService
	Editor   *service.RecipeEditor
	Inflight *recipes.Inflight
	Renderer *Renderer
	Logger   *slog.Logger
}

// Handler serves every page and form of the site.
type Handler struct {
	Deps
	decoder *schema.Decoder
}

// New creates a Handler.
func New(d Deps) *Handler {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return &Handler{Deps: d, decoder: dec}
}

// client returns the backend client acting as the visitor.
func (h *Handler) client(st *session.State) *foodgram.Client {
	return h.Backend.As(st.Token)
}

// controllerOptions configures recipe controllers for the visitor. Cart toggles
// step the stored order counter.
func (h *Handler) controllerOptions(ctx context.Context, st *session.State) recipes.Options {
	opts := recipes.Options{
		UserID:   st.UserID(),
		Inflight: h.Inflight,
		OnCart: func(added bool) {
			h.adjustOrders(ctx, st, added)
		},
		Logger: h.Logger,
	}
	if st.SignedIn() {
		opts.Session = st.ID
	}
	return opts
}

// adjustOrders steps the session's cart counter. When the store fails, only
// the in-memory counter moves; the next recount repairs the stored one.
func (h *Handler) adjustOrders(ctx context.Context, st *session.State, added bool) {
	if err := h.Sessions.AdjustOrders(ctx, st, added); err != nil {
		h.Logger.Error("adjusting cart counter",
			slog.String("session_id", st.ID),
			slog.String("error", err.Error()),
		)
		st.UpdateOrders(added)
	}
}

// view builds the common page data and consumes the pending flash.
func (h *Handler) view(w http.ResponseWriter, r *http.Request, title, section string, data any) View {
	return View{
		Title:   title,
		Section: section,
		Session: auth.FromContext(r.Context()),
		Flash:   popFlash(w, r),
		Return:  r.URL.RequestURI(),
		Data:    data,
	}
}

// save persists the session. A failure is logged; the page still works, only
// the change is lost on the next request.
func (h *Handler) save(ctx context.Context, w http.ResponseWriter, st *session.State) {
	if err := h.Sessions.Persist(ctx, w, st); err != nil {
		h.Logger.Error("saving session",
			slog.String("session_id", st.ID),
			slog.String("error", err.Error()),
		)
	}
}

// fail renders the page for an error that stops a page from being shown.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, apperror.ErrUnauthorized):
		// The backend rejected our token: the session is stale.
		st := auth.FromContext(r.Context())
		if st.SignedIn() {
			if derr := h.Sessions.Destroy(r.Context(), w, st); derr != nil {
				h.Logger.Warn("destroying stale session", slog.String("error", derr.Error()))
			}
			setFlash(w, "error", "Your session has expired, please sign in again")
		} else {
			setFlash(w, "info", "Sign in to continue")
		}
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return
	case errors.Is(err, apperror.ErrNotFound):
		h.NotFound(w, r)
		return
	case errors.Is(err, apperror.ErrForbidden):
		h.Renderer.Render(w, http.StatusForbidden, "error",
			h.view(w, r, "Access denied", "", errorPage{Heading: "Access denied", Message: userMessage(err)}))
		return
	}

	h.Logger.Error("request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	h.Renderer.Render(w, http.StatusBadGateway, "error",
		h.view(w, r, "Something went wrong", "", errorPage{
			Heading: "Something went wrong",
			Message: "The recipe service is not responding. Try again in a minute.",
		}))
}

type errorPage struct {
	Heading string
	Message string
}

// NotFound renders the not-found page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, http.StatusNotFound, "error",
		h.view(w, r, "Page not found", "", errorPage{
			Heading: "Page not found",
			Message: "The page you are looking for does not exist or was removed.",
		}))
}

// userMessage turns an error into text fit for a flash or a form banner.
func userMessage(err error) string {
	var apiErr *foodgram.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	if errors.Is(err, apperror.ErrBusy) {
		return "This item is already being updated, please wait a moment"
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong, try again later"
}

// idParam reads a positive integer URL parameter.
func idParam(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// safeReturn accepts only local paths as redirect targets.
func safeReturn(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return u.RequestURI()
}
