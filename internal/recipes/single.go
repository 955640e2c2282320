package recipes

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sakif/foodgram-web/internal/apperror"
	"github.com/sakif/foodgram-web/internal/model"
)

// ErrNotLoaded is returned by Single toggles before a recipe has been loaded.
var ErrNotLoaded = errors.New("recipes: no recipe loaded")

// Single controls the detail view of one recipe.
type Single struct {
	view
	recipe *model.Recipe
}

// NewSingle creates a detail controller. Call Close when the view is done.
func NewSingle(ctx context.Context, api API, opts Options) *Single {
	return &Single{view: newView(ctx, api, opts)}
}

// Load fetches recipe id. A missing recipe yields an apperror.ErrNotFound error
// so the page can show the not-found view instead of a broken one.
func (s *Single) Load(id int) error {
	gen, err := s.begin()
	if err != nil {
		return err
	}

	r, err := s.api.Recipe(s.ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound("recipe", strconv.Itoa(id))
		}
		return fmt.Errorf("recipes: loading recipe %d: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current(gen) {
		s.recipe = r
	}
	return nil
}

// Set installs an already fetched recipe, for views that load it elsewhere.
func (s *Single) Set(r model.Recipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.recipe = &r
}

// Recipe returns a copy of the loaded recipe.
func (s *Single) Recipe() (model.Recipe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recipe == nil {
		return model.Recipe{}, false
	}
	return *s.recipe, true
}

// ToggleFavorite flips is_favorited of the loaded recipe once the backend confirms.
func (s *Single) ToggleFavorite() error {
	if err := s.signedIn(); err != nil {
		return err
	}
	r, gen, err := s.snapshot()
	if err != nil {
		return err
	}
	want := !r.IsFavorited
	if err := s.favorite(r.ID, want); err != nil {
		return err
	}
	s.patch(gen, func(r *model.Recipe) { r.IsFavorited = want })
	return nil
}

// ToggleCart flips is_in_shopping_cart of the loaded recipe and reports the
// change through Options.OnCart.
func (s *Single) ToggleCart() error {
	if err := s.signedIn(); err != nil {
		return err
	}
	r, gen, err := s.snapshot()
	if err != nil {
		return err
	}
	want := !r.IsInShoppingCart
	if err := s.cart(r.ID, want); err != nil {
		return err
	}
	s.patch(gen, func(r *model.Recipe) { r.IsInShoppingCart = want })
	return nil
}

// ToggleSubscribe follows (subscribe == true) or unfollows the author and patches
// the embedded author's is_subscribed.
func (s *Single) ToggleSubscribe(authorID int, subscribe bool) error {
	if err := s.signedIn(); err != nil {
		return err
	}
	_, gen, err := s.snapshot()
	if err != nil {
		return err
	}
	if err := s.subscription(authorID, subscribe); err != nil {
		return err
	}
	s.patch(gen, func(r *model.Recipe) {
		if r.Author.ID == authorID {
			r.Author.IsSubscribed = subscribe
		}
	})
	return nil
}

func (s *Single) snapshot() (model.Recipe, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recipe == nil {
		return model.Recipe{}, 0, ErrNotLoaded
	}
	return *s.recipe, s.gen, nil
}

func (s *Single) patch(gen uint64, apply func(*model.Recipe)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current(gen) && s.recipe != nil {
		apply(s.recipe)
	}
}
