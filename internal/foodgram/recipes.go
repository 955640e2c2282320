package foodgram

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sakif/foodgram-web/internal/model"
)

// RecipeQuery is the filter of GET /recipes/.
type RecipeQuery struct {
	Page             int
	Limit            int
	Tags             []string // tag slugs; sent comma-joined
	Author           int
	IsFavorited      bool
	IsInShoppingCart bool
}

// Values encodes the query the way the backend's filter set reads it.
func (q RecipeQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(q.Tags) > 0 {
		v.Set("tags", strings.Join(q.Tags, ","))
	}
	if q.Author > 0 {
		v.Set("author", strconv.Itoa(q.Author))
	}
	if q.IsFavorited {
		v.Set("is_favorited", "1")
	}
	if q.IsInShoppingCart {
		v.Set("is_in_shopping_cart", "1")
	}
	return v
}

// IngredientAmount is one ingredient line of a create/update payload.
type IngredientAmount struct {
	ID     int `json:"id"`
	Amount int `json:"amount"`
}

// RecipeInput is the body of POST /recipes/ and PATCH /recipes/{id}/.
// Image is a base64 data URL; it may be empty on update to keep the current image.
type RecipeInput struct {
	Name        string             `json:"name"`
	Text        string             `json:"text"`
	CookingTime int                `json:"cooking_time"`
	Tags        []int              `json:"tags"`
	Ingredients []IngredientAmount `json:"ingredients"`
	Image       string             `json:"image,omitempty"`
}

// Recipes lists one page of recipes matching q.
func (c *Client) Recipes(ctx context.Context, q RecipeQuery) (*model.Page[model.Recipe], error) {
	var out model.Page[model.Recipe]
	if err := c.do(ctx, http.MethodGet, "/recipes/", q.Values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recipe fetches one recipe.
func (c *Client) Recipe(ctx context.Context, id int) (*model.Recipe, error) {
	var out model.Recipe
	if err := c.do(ctx, http.MethodGet, recipePath(id, ""), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRecipe publishes a new recipe authored by the viewer.
func (c *Client) CreateRecipe(ctx context.Context, in RecipeInput) (*model.Recipe, error) {
	var out model.Recipe
	if err := c.do(ctx, http.MethodPost, "/recipes/", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRecipe replaces the editable fields of a recipe the viewer authored.
func (c *Client) UpdateRecipe(ctx context.Context, id int, in RecipeInput) (*model.Recipe, error) {
	var out model.Recipe
	if err := c.do(ctx, http.MethodPatch, recipePath(id, ""), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRecipe removes a recipe the viewer authored.
func (c *Client) DeleteRecipe(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, recipePath(id, ""), nil, nil, nil)
}

// Favorite adds a recipe to the viewer's favorites.
func (c *Client) Favorite(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, recipePath(id, "favorite"), nil, nil, nil)
}

// Unfavorite removes a recipe from the viewer's favorites.
func (c *Client) Unfavorite(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, recipePath(id, "favorite"), nil, nil, nil)
}

// AddToCart puts a recipe in the viewer's shopping cart.
func (c *Client) AddToCart(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, recipePath(id, "shopping_cart"), nil, nil, nil)
}

// RemoveFromCart takes a recipe out of the viewer's shopping cart.
func (c *Client) RemoveFromCart(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, recipePath(id, "shopping_cart"), nil, nil, nil)
}

// ShortLink returns the backend-generated short URL for sharing a recipe.
func (c *Client) ShortLink(ctx context.Context, id int) (string, error) {
	var out struct {
		ShortLink string `json:"short-link"`
	}
	if err := c.do(ctx, http.MethodGet, recipePath(id, "get-link"), nil, nil, &out); err != nil {
		return "", err
	}
	return out.ShortLink, nil
}

// Download is a file streamed from the backend. The caller must close Body.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
}

// ShoppingList downloads the aggregated ingredient list of the viewer's cart.
func (c *Client) ShoppingList(ctx context.Context) (*Download, error) {
	resp, err := c.send(ctx, http.MethodGet, "/recipes/download_shopping_cart/", nil, nil)
	if err != nil {
		return nil, err
	}

	d := &Download{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    "shopping_list.txt",
	}
	if d.ContentType == "" {
		d.ContentType = "text/plain; charset=utf-8"
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if name := params["filename"]; name != "" {
			d.Filename = name
		}
	}
	return d, nil
}

func recipePath(id int, action string) string {
	if action == "" {
		return fmt.Sprintf("/recipes/%d/", id)
	}
	return fmt.Sprintf("/recipes/%d/%s/", id, action)
}
