package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/foodgram-web/internal/apperror"
	"github.com/sakif/foodgram-web/internal/auth"
	"github.com/sakif/foodgram-web/internal/foodgram"
	"github.com/sakif/foodgram-web/internal/model"
	"github.com/sakif/foodgram-web/internal/pagination"
	"github.com/sakif/foodgram-web/internal/recipes"
)

// subscriptionRecipes is how many recipes each followed author shows.
const subscriptionRecipes = 3

type subscriptionsPage struct {
	Items      []model.Subscription
	Pagination pagination.Model
	Preview    int
}

// HandleSubscriptions serves GET /subscriptions.
func (h *Handler) HandleSubscriptions(w http.ResponseWriter, r *http.Request) {
	st := auth.FromContext(r.Context())
	api := h.client(st)
	lq := parseListQuery(r.URL.Query())

	q := foodgram.SubscriptionQuery{
		Page:         lq.Page,
		Limit:        pagination.DefaultLimit,
		RecipesLimit: subscriptionRecipes,
	}
	res, err := api.Subscriptions(r.Context(), q)
	if err == nil && len(res.Results) == 0 && res.Count > 0 && q.Page > 1 {
		q.Page = pagination.TotalPages(res.Count, q.Limit)
		res, err = api.Subscriptions(r.Context(), q)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page := subscriptionsPage{
		Items:   res.Results,
		Preview: subscriptionRecipes,
		Pagination: pagination.Present(res.Count, q.Limit, q.Page).WithLinks(func(n int) string {
			return listHref("/subscriptions", n, nil, true)
		}),
	}
	v := h.view(w, r, "My subscriptions", "subscriptions", page)
	v.Return = listHref("/subscriptions", q.Page, nil, true)
	h.Renderer.Render(w, http.StatusOK, "subscriptions", v)
}

// HandleSubscribe serves POST /users/{id}/subscribe. The form field "subscribe"
// is "true" to follow and "false" to unfollow.
//
// Posted from a recipe page, the recipe's author badge is updated through the
// detail controller; from a list page, through a list controller loaded with
// the page the form came from.
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	authorID, ok := idParam(r, "id")
	if !ok {
		h.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	want, err := strconv.ParseBool(r.PostForm.Get("subscribe"))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	st := auth.FromContext(r.Context())
	back := safeReturn(r.PostForm.Get("return"), "/user/"+strconv.Itoa(authorID))
	opts := h.controllerOptions(r.Context(), st)

	u, _ := url.Parse(back)
	if recipeID, ok := detailID(u.Path); ok {
		s := recipes.NewSingle(r.Context(), h.client(st), opts)
		defer s.Close()
		if err = s.Load(recipeID); err == nil {
			err = s.ToggleSubscribe(authorID, want)
		}
	} else {
		l := recipes.NewList(r.Context(), h.client(st), opts)
		defer l.Close()
		if sc, ok := scopeFor(u.Path); ok {
			lq := parseListQuery(u.Query())
			err = l.Load(lq.Page, lq.tagsParam(), sc.Extra)
		}
		// Pages without recipe cards (subscriptions) only need the backend call.
		if err == nil {
			err = l.ToggleSubscribe(authorID, want)
		}
	}

	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.fail(w, r, err)
			return
		}
		setFlash(w, "error", userMessage(err))
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}
