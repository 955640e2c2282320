package recipes

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sakif/foodgram-web/internal/apperror"
	"github.com/sakif/foodgram-web/internal/foodgram"
	"github.com/sakif/foodgram-web/internal/model"
	"github.com/sakif/foodgram-web/internal/pagination"
)

// Filter narrows a list beyond tags: one author's recipes, the viewer's
// favorites, or the viewer's shopping cart.
type Filter struct {
	Author           int
	IsFavorited      bool
	IsInShoppingCart bool
}

// List controls a paginated, tag-filtered list of recipes.
//
// Load always replaces the whole list: changing the page or the filter re-fetches
// and discards what was shown before.
type List struct {
	view

	limit   int
	page    int
	tags    []string
	extra   Filter
	filter  *TagFilter
	recipes []model.Recipe
	count   int
}

// NewList creates a list controller. Call Close when the view is done.
func NewList(ctx context.Context, api API, opts Options) *List {
	return &List{
		view:  newView(ctx, api, opts),
		limit: pagination.DefaultLimit,
		page:  1,
	}
}

// SetTagFilter attaches the tag selection used by ToggleTagFilter.
func (l *List) SetTagFilter(f *TagFilter) {
	l.mu.Lock()
	l.filter = f
	l.mu.Unlock()
}

// TagFilter returns the attached tag selection, or nil.
func (l *List) TagFilter() *TagFilter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

// Load fetches page of the recipes matching tags and extra.
//
// tags == nil means "no tag filter". A non-nil empty slice means the viewer
// deselected every tag: the list becomes empty without calling the backend.
func (l *List) Load(page int, tags []string, extra Filter) error {
	if page < 1 {
		return apperror.ValidationFailed("page", "page must be 1 or greater")
	}

	gen, err := l.begin()
	if err != nil {
		return err
	}

	var (
		results []model.Recipe
		count   int
	)
	if tags == nil || len(tags) > 0 {
		res, err := l.api.Recipes(l.ctx, foodgram.RecipeQuery{
			Page:             page,
			Limit:            l.limit,
			Tags:             tags,
			Author:           extra.Author,
			IsFavorited:      extra.IsFavorited,
			IsInShoppingCart: extra.IsInShoppingCart,
		})
		if err != nil {
			return fmt.Errorf("recipes: loading page %d: %w", page, err)
		}
		results, count = res.Results, res.Count
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.current(gen) {
		return nil
	}
	l.page = page
	l.tags = tags
	l.extra = extra
	l.recipes = results
	l.count = count
	return nil
}

// Recipes returns a copy of the loaded recipes, in backend order.
func (l *List) Recipes() []model.Recipe {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Recipe(nil), l.recipes...)
}

// Page returns the page currently shown.
func (l *List) Page() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

// Count returns the total number of matches reported by the last load.
func (l *List) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Pagination presents the page buttons for the current load.
func (l *List) Pagination() pagination.Model {
	l.mu.Lock()
	defer l.mu.Unlock()
	return pagination.Present(l.count, l.limit, l.page)
}

// ToggleFavorite flips is_favorited of recipe id on the backend and, on success,
// patches only that recipe.
func (l *List) ToggleFavorite(id int) error {
	if err := l.signedIn(); err != nil {
		return err
	}
	want, gen, err := l.flag(id, func(r model.Recipe) bool { return !r.IsFavorited })
	if err != nil {
		return err
	}
	if err := l.favorite(id, want); err != nil {
		return err
	}
	l.patch(gen, id, func(r *model.Recipe) { r.IsFavorited = want })
	return nil
}

// ToggleCart adds recipe id to the cart or removes it, patches is_in_shopping_cart
// and reports the change through Options.OnCart.
func (l *List) ToggleCart(id int) error {
	if err := l.signedIn(); err != nil {
		return err
	}
	want, gen, err := l.flag(id, func(r model.Recipe) bool { return !r.IsInShoppingCart })
	if err != nil {
		return err
	}
	if err := l.cart(id, want); err != nil {
		return err
	}
	l.patch(gen, id, func(r *model.Recipe) { r.IsInShoppingCart = want })
	return nil
}

// ToggleSubscribe follows or unfollows an author and patches the embedded author
// of every listed recipe by them.
func (l *List) ToggleSubscribe(authorID int, subscribe bool) error {
	l.mu.Lock()
	gen := l.gen
	l.mu.Unlock()

	if err := l.subscription(authorID, subscribe); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.current(gen) {
		return nil
	}
	for i := range l.recipes {
		if l.recipes[i].Author.ID == authorID {
			l.recipes[i].Author.IsSubscribed = subscribe
		}
	}
	return nil
}

// ToggleTagFilter flips one tag of the attached filter, resets to page 1 and
// reloads with the new selection and the current extra filter.
func (l *List) ToggleTagFilter(tagID int) error {
	l.mu.Lock()
	f := l.filter
	extra := l.extra
	l.mu.Unlock()

	if f == nil || !f.Toggle(tagID) {
		return apperror.NotFound("tag", strconv.Itoa(tagID))
	}
	return l.Load(1, f.QueryParam(), extra)
}

// flag reads the desired new value for recipe id from the loaded list.
func (l *List) flag(id int, next func(model.Recipe) bool) (bool, uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.recipes {
		if r.ID == id {
			return next(r), l.gen, nil
		}
	}
	return false, 0, apperror.NotFound("recipe", strconv.Itoa(id))
}

func (l *List) patch(gen uint64, id int, apply func(*model.Recipe)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.current(gen) {
		return
	}
	for i := range l.recipes {
		if l.recipes[i].ID == id {
			apply(&l.recipes[i])
			return
		}
	}
}
