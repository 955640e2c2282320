package foodgram

import (
	"context"
	"net/http"

	"github.com/sakif/foodgram-web/internal/model"
)

// Credentials is the sign-in form payload.
type Credentials struct {
	Email    string `json:"email" schema:"email"`
	Password string `json:"password" schema:"password"`
}

// SignUpRequest is the registration payload.
type SignUpRequest struct {
	Email     string `json:"email" schema:"email"`
	Username  string `json:"username" schema:"username"`
	FirstName string `json:"first_name" schema:"first_name"`
	LastName  string `json:"last_name" schema:"last_name"`
	Password  string `json:"password" schema:"password"`
}

// PasswordChange is the payload of POST /users/set_password/.
type PasswordChange struct {
	CurrentPassword string `json:"current_password" schema:"current_password"`
	NewPassword     string `json:"new_password" schema:"new_password"`
}

type tokenResponse struct {
	AuthToken string `json:"auth_token"`
}

// SignIn exchanges credentials for an auth token.
// An empty token in a 2xx response is reported as an unauthorized APIError.
func (c *Client) SignIn(ctx context.Context, creds Credentials) (string, error) {
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/token/login/", nil, creds, &out); err != nil {
		return "", err
	}
	if out.AuthToken == "" {
		return "", &APIError{
			Status: http.StatusUnauthorized,
			Fields: map[string][]string{NonFieldKey: {"the server did not issue a token"}},
		}
	}
	return out.AuthToken, nil
}

// SignOut invalidates the client's token on the backend.
func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/token/logout/", nil, nil, nil)
}

// SignUp registers a new account. The new user must sign in afterwards.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodPost, "/users/", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword sets a new password for the authenticated user.
func (c *Client) ChangePassword(ctx context.Context, req PasswordChange) error {
	return c.do(ctx, http.MethodPost, "/users/set_password/", nil, req, nil)
}

// ResetPassword asks the backend to send a reset email.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/users/reset_password/", nil, body, nil)
}
