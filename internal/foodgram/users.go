package foodgram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/foodgram-web/internal/model"
)

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodGet, "/users/me/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// User returns a user profile by id.
func (c *Client) User(ctx context.Context, id int) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Subscribe follows the author with the given id.
func (c *Client) Subscribe(ctx context.Context, authorID int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/subscribe/", authorID), nil, nil, nil)
}

// Unsubscribe stops following the author with the given id.
func (c *Client) Unsubscribe(ctx context.Context, authorID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/subscribe/", authorID), nil, nil, nil)
}

// SubscriptionQuery selects a page of the viewer's subscriptions.
type SubscriptionQuery struct {
	Page         int
	Limit        int
	RecipesLimit int // how many recipes to embed per author; 0 leaves the backend default
}

func (q SubscriptionQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.RecipesLimit > 0 {
		v.Set("recipes_limit", strconv.Itoa(q.RecipesLimit))
	}
	return v
}

// Subscriptions lists the authors the viewer follows.
func (c *Client) Subscriptions(ctx context.Context, q SubscriptionQuery) (*model.Page[model.Subscription], error) {
	var out model.Page[model.Subscription]
	if err := c.do(ctx, http.MethodGet, "/users/subscriptions/", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type avatarPayload struct {
	Avatar string `json:"avatar"`
}

// SetAvatar uploads a new avatar. dataURL must be a base64 data URL (see EncodeDataURL).
// It returns the URL the backend stored the image under.
func (c *Client) SetAvatar(ctx context.Context, dataURL string) (string, error) {
	var out avatarPayload
	if err := c.do(ctx, http.MethodPut, "/users/me/avatar/", nil, avatarPayload{Avatar: dataURL}, &out); err != nil {
		return "", err
	}
	return out.Avatar, nil
}

// DeleteAvatar removes the viewer's avatar.
func (c *Client) DeleteAvatar(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/users/me/avatar/", nil, nil, nil)
}
