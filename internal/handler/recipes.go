package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/foodgram-web/internal/apperror"
	"github.com/sakif/foodgram-web/internal/auth"
	"github.com/sakif/foodgram-web/internal/model"
	"github.com/sakif/foodgram-web/internal/pagination"
	"github.com/sakif/foodgram-web/internal/recipes"
	"github.com/sakif/foodgram-web/internal/session"
)

// tagLink is one tag button of the filter bar.
type tagLink struct {
	recipes.TagOption
	Href string
}

// listPage is the data of recipes.html.
type listPage struct {
	Heading    string
	Author     *model.User
	Recipes    []model.Recipe
	Tags       []tagLink
	Pagination pagination.Model
	Cart       bool
	Empty      string
}

// HandleRecipes serves GET /recipes, the main feed.
func (h *Handler) HandleRecipes(w http.ResponseWriter, r *http.Request) {
	sc, _ := scopeFor("/recipes")
	h.renderList(w, r, sc, listPage{Heading: "Recipes", Empty: "No recipes match the selected tags."}, "recipes")
}

// HandleFavorites serves GET /favorites.
func (h *Handler) HandleFavorites(w http.ResponseWriter, r *http.Request) {
	sc, _ := scopeFor("/favorites")
	h.renderList(w, r, sc, listPage{Heading: "Favorites", Empty: "You have no favorite recipes yet."}, "favorites")
}

// HandleCart serves GET /cart, the shopping list.
func (h *Handler) HandleCart(w http.ResponseWriter, r *http.Request) {
	sc, _ := scopeFor("/cart")
	h.renderList(w, r, sc, listPage{Heading: "Shopping list", Cart: true, Empty: "Your shopping list is empty."}, "cart")
}

// HandleUser serves GET /user/{id}: one author's recipes.
func (h *Handler) HandleUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.NotFound(w, r)
		return
	}
	sc, _ := scopeFor("/user/" + strconv.Itoa(id))
	h.renderList(w, r, sc, listPage{Empty: "This author has not published any recipes yet."}, "")
}

// renderList loads the list page sc and renders it.
//
// Tags and, on an author page, the author profile are fetched concurrently.
// The recipes are loaded once the tag selection is known.
func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, sc scope, page listPage, section string) {
	st := auth.FromContext(r.Context())
	api := h.client(st)
	lq := parseListQuery(r.URL.Query())

	var tags []model.Tag
	g, gctx := errgroup.WithContext(r.Context())
	if sc.Tags {
		g.Go(func() error {
			var err error
			tags, err = api.Tags(gctx)
			return err
		})
	}
	if sc.Extra.Author != 0 {
		g.Go(func() error {
			author, err := api.User(gctx, sc.Extra.Author)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					return apperror.NotFound("user", strconv.Itoa(sc.Extra.Author))
				}
				return err
			}
			page.Author = author
			page.Heading = author.FullName()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.fail(w, r, err)
		return
	}

	l := recipes.NewList(r.Context(), api, h.controllerOptions(r.Context(), st))
	defer l.Close()

	var filter *recipes.TagFilter
	if sc.Tags {
		filter = recipes.NewTagFilter(tags)
		if lq.HasTags {
			filter.Restrict(lq.Tags)
		}
		l.SetTagFilter(filter)
	}

	if err := h.loadList(l, sc, lq, filter); err != nil {
		h.fail(w, r, err)
		return
	}

	selected, all := []string(nil), true
	if filter != nil {
		selected, all = filter.QueryParam(), filter.AllSelected()
		for _, opt := range filter.Options() {
			v := url.Values{"toggle": {strconv.Itoa(opt.ID)}}
			if !all {
				v.Set("tags", strings.Join(selected, ","))
			}
			page.Tags = append(page.Tags, tagLink{TagOption: opt, Href: sc.Path + "?" + v.Encode()})
		}
	}

	page.Recipes = l.Recipes()
	page.Pagination = l.Pagination().WithLinks(func(n int) string {
		return listHref(sc.Path, n, selected, all)
	})

	v := h.view(w, r, titleOr(page.Heading, "Recipes"), section, page)
	v.Return = listHref(sc.Path, l.Page(), selected, all)
	h.Renderer.Render(w, http.StatusOK, "recipes", v)
}

// loadList performs the load a list URL asks for: a tag toggle (back to page 1)
// or a plain page load. A page past the end, left behind when the last recipe
// of the final page went away, falls back to the last page.
func (h *Handler) loadList(l *recipes.List, sc scope, lq listQuery, filter *recipes.TagFilter) error {
	tags := lq.tagsParam()
	if filter != nil {
		tags = filter.QueryParam()
	}

	if lq.Toggle != 0 && filter != nil {
		err := l.ToggleTagFilter(lq.Toggle)
		if !errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		// Unknown tag: show the page as if no toggle was asked for.
	}

	if err := l.Load(lq.Page, tags, sc.Extra); err != nil {
		return err
	}
	if lq.Page == 1 || len(l.Recipes()) > 0 || l.Count() == 0 {
		return nil
	}

	var err error
	pager := pagination.NewPager(l.Count(), pagination.DefaultLimit, lq.Page, func(p int) {
		err = l.Load(p, tags, sc.Extra)
	})
	if pager.Visible {
		pager.Select(pager.Total)
	} else {
		err = l.Load(1, tags, sc.Extra)
	}
	return err
}

func titleOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// detailPage is the data of recipe.html.
type detailPage struct {
	Recipe  model.Recipe
	IsOwner bool
}

// HandleRecipe serves GET /recipes/{id}.
func (h *Handler) HandleRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.NotFound(w, r)
		return
	}
	st := auth.FromContext(r.Context())

	s := recipes.NewSingle(r.Context(), h.client(st), h.controllerOptions(r.Context(), st))
	defer s.Close()
	if err := s.Load(id); err != nil {
		h.fail(w, r, err)
		return
	}

	rec, _ := s.Recipe()
	h.Renderer.Render(w, http.StatusOK, "recipe", h.view(w, r, rec.Name, "recipes", detailPage{
		Recipe:  rec,
		IsOwner: st.SignedIn() && rec.Author.ID == st.UserID(),
	}))
}

// HandleToggleFavorite serves POST /recipes/{id}/favorite.
func (h *Handler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, func(l *recipes.List, id int) error { return l.ToggleFavorite(id) },
		func(s *recipes.Single) error { return s.ToggleFavorite() })
}

// HandleToggleCart serves POST /recipes/{id}/cart.
func (h *Handler) HandleToggleCart(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, func(l *recipes.List, id int) error { return l.ToggleCart(id) },
		func(s *recipes.Single) error { return s.ToggleCart() })
}

// toggle runs a recipe toggle through the controller of the page the form was
// posted from (the hidden "return" field), then redirects back to it. The cart
// counter is stored by the controllers' OnCart hook, not here.
func (h *Handler) toggle(w http.ResponseWriter, r *http.Request,
	onList func(*recipes.List, int) error, onSingle func(*recipes.Single) error) {
	id, ok := idParam(r, "id")
	if !ok {
		h.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	st := auth.FromContext(r.Context())
	back := safeReturn(r.PostForm.Get("return"), "/recipes/"+strconv.Itoa(id))

	err := h.applyToggle(r.Context(), st, id, back, onList, onSingle)
	if errors.Is(err, apperror.ErrUnauthorized) {
		h.fail(w, r, err)
		return
	}
	if err != nil {
		setFlash(w, "error", userMessage(err))
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (h *Handler) applyToggle(ctx context.Context, st *session.State, id int, back string,
	onList func(*recipes.List, int) error, onSingle func(*recipes.Single) error) error {
	if !st.SignedIn() {
		return apperror.Unauthorized("sign in to continue")
	}

	u, _ := url.Parse(back)
	if sc, ok := scopeFor(u.Path); ok {
		l := recipes.NewList(ctx, h.client(st), h.controllerOptions(ctx, st))
		defer l.Close()

		lq := parseListQuery(u.Query())
		if err := l.Load(lq.Page, lq.tagsParam(), sc.Extra); err != nil {
			return err
		}
		err := onList(l, id)
		if !errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		// The recipe left the page since it was rendered; toggle it directly.
	}

	s := recipes.NewSingle(ctx, h.client(st), h.controllerOptions(ctx, st))
	defer s.Close()
	if err := s.Load(id); err != nil {
		return err
	}
	return onSingle(s)
}

// HandleShortLink serves POST /recipes/{id}/link. The link is shown as a flash.
func (h *Handler) HandleShortLink(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.NotFound(w, r)
		return
	}
	st := auth.FromContext(r.Context())

	link, err := h.client(st).ShortLink(r.Context(), id)
	if err != nil {
		setFlash(w, "error", userMessage(err))
	} else {
		setFlash(w, "info", "Short link: "+link)
	}
	http.Redirect(w, r, "/recipes/"+strconv.Itoa(id), http.StatusSeeOther)
}

// HandleDownloadCart serves GET /cart/download by relaying the backend file.
func (h *Handler) HandleDownloadCart(w http.ResponseWriter, r *http.Request) {
	st := auth.FromContext(r.Context())

	dl, err := h.client(st).ShoppingList(r.Context())
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.fail(w, r, err)
			return
		}
		setFlash(w, "error", userMessage(err))
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}
	defer dl.Body.Close()

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Filename))
	if _, err := io.Copy(w, dl.Body); err != nil {
		h.Logger.Warn("relaying shopping list", slog.String("error", err.Error()))
	}
}
