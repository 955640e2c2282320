package foodgram

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sakif/foodgram-web/internal/model"
)

// Tags lists every recipe tag.
func (c *Client) Tags(ctx context.Context) ([]model.Tag, error) {
	var out []model.Tag
	if err := c.do(ctx, http.MethodGet, "/tags/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ingredients searches the ingredient catalogue by name substring.
// An empty name lists the whole catalogue.
func (c *Client) Ingredients(ctx context.Context, name string) ([]model.Ingredient, error) {
	var q url.Values
	if name != "" {
		q = url.Values{"name": {name}}
	}

	var out []model.Ingredient
	if err := c.do(ctx, http.MethodGet, "/ingredients/", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
