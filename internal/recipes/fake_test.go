package recipes

import (
	"context"
	"sync"

	"github.com/sakif/foodgram-web/internal/apperror"
	"github.com/sakif/foodgram-web/internal/foodgram"
	"github.com/sakif/foodgram-web/internal/model"
)

// fakeAPI is an in-memory backend. Calls are recorded by name so tests can assert
// which endpoints were (or were not) hit.
type fakeAPI struct {
	mu      sync.Mutex
	recipes []model.Recipe
	calls   []string
	queries []foodgram.RecipeQuery

	// failWith makes every mutation fail with this error.
	failWith error
	// block, when set, is waited on inside every mutation before it completes.
	block chan struct{}
	// entered receives one value when a mutation starts (if non-nil).
	entered chan struct{}
}

func newFakeAPI(recipes ...model.Recipe) *fakeAPI {
	return &fakeAPI{recipes: recipes}
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) Recipes(_ context.Context, q foodgram.RecipeQuery) (*model.Page[model.Recipe], error) {
	f.record("recipes")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return &model.Page[model.Recipe]{
		Count:   len(f.recipes),
		Results: append([]model.Recipe(nil), f.recipes...),
	}, nil
}

func (f *fakeAPI) Recipe(_ context.Context, id int) (*model.Recipe, error) {
	f.record("recipe")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recipes {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, &foodgram.APIError{Status: 404, Fields: map[string][]string{"detail": {"Not found."}}}
}

func (f *fakeAPI) mutation(ctx context.Context, name string) error {
	f.record(name)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.failWith
}

func (f *fakeAPI) Favorite(ctx context.Context, _ int) error       { return f.mutation(ctx, "favorite") }
func (f *fakeAPI) Unfavorite(ctx context.Context, _ int) error     { return f.mutation(ctx, "unfavorite") }
func (f *fakeAPI) AddToCart(ctx context.Context, _ int) error      { return f.mutation(ctx, "add_to_cart") }
func (f *fakeAPI) RemoveFromCart(ctx context.Context, _ int) error { return f.mutation(ctx, "remove_from_cart") }
func (f *fakeAPI) Subscribe(ctx context.Context, _ int) error      { return f.mutation(ctx, "subscribe") }
func (f *fakeAPI) Unsubscribe(ctx context.Context, _ int) error    { return f.mutation(ctx, "unsubscribe") }

var errBackend = apperror.ValidationFailed("", "backend said no")

func sampleRecipes() []model.Recipe {
	return []model.Recipe{
		{ID: 1, Name: "Borscht", CookingTime: 90, Author: model.User{ID: 10}},
		{ID: 2, Name: "Pancakes", CookingTime: 20, Author: model.User{ID: 11}, IsFavorited: true},
		{ID: 3, Name: "Salad", CookingTime: 10, Author: model.User{ID: 10}, IsInShoppingCart: true},
	}
}
