// Package service holds the business logic between the HTTP handlers and the
// Foodgram backend client.
//
//	Handler (HTTP) → Service (rules, orchestration) → foodgram.Client (backend)
//
// Services never touch http.Request or cookies. They mutate the caller's
// session.State; persisting it is the handler's job.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sakif/foodgram-web/internal/apperror"
	"github.com/sakif/foodgram-web/internal/foodgram"
	"github.com/sakif/foodgram-web/internal/model"
	"github.com/sakif/foodgram-web/internal/session"
)

// AccountAPI is the part of the backend client the account flows use.
type AccountAPI interface {
	SignIn(ctx context.Context, creds foodgram.Credentials) (string, error)
	SignOut(ctx context.Context) error
	SignUp(ctx context.Context, req foodgram.SignUpRequest) (*model.User, error)
	ChangePassword(ctx context.Context, req foodgram.PasswordChange) error
	ResetPassword(ctx context.Context, email string) error
	Me(ctx context.Context) (*model.User, error)
	Recipes(ctx context.Context, q foodgram.RecipeQuery) (*model.Page[model.Recipe], error)
	SetAvatar(ctx context.Context, dataURL string) (string, error)
	DeleteAvatar(ctx context.Context) error
}

var _ AccountAPI = (*foodgram.Client)(nil)

// Backend returns a client acting with the given auth token ("" for anonymous).
type Backend[T any] func(token string) T

// AccountService runs the sign-in, sign-up and profile flows.
type AccountService struct {
	backend Backend[AccountAPI]
	logger  *slog.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(backend Backend[AccountAPI], logger *slog.Logger) *AccountService {
	return &AccountService{backend: backend, logger: logger}
}

// SignIn exchanges credentials for a token, loads the user and counts the cart.
//
// The state is only touched once the user profile has been fetched: if that fails
// the visitor stays signed out.
func (s *AccountService) SignIn(ctx context.Context, st *session.State, creds foodgram.Credentials) error {
	token, err := s.backend("").SignIn(ctx, creds)
	if err != nil {
		return fmt.Errorf("service: signing in: %w", err)
	}

	user, err := s.backend(token).Me(ctx)
	if err != nil {
		return fmt.Errorf("service: loading signed-in user: %w", err)
	}

	st.Token = token
	st.SetUser(user)

	if err := s.RefreshOrders(ctx, st); err != nil {
		// The counter is cosmetic; a failed count must not block sign-in.
		s.logger.Warn("counting cart after sign-in",
			slog.Int("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		st.SetOrders(0)
	}

	s.logger.Info("user signed in", slog.Int("user_id", user.ID))
	return nil
}

// SignUp registers an account. The visitor still has to sign in afterwards.
func (s *AccountService) SignUp(ctx context.Context, req foodgram.SignUpRequest) (*model.User, error) {
	user, err := s.backend("").SignUp(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("service: signing up: %w", err)
	}
	s.logger.Info("user signed up", slog.Int("user_id", user.ID))
	return user, nil
}

// SignOut invalidates the token on the backend and clears the state.
// The state is cleared even when the backend call fails.
func (s *AccountService) SignOut(ctx context.Context, st *session.State) {
	if st.SignedIn() {
		err := s.backend(st.Token).SignOut(ctx)
		if err != nil && !errors.Is(err, apperror.ErrUnauthorized) {
			s.logger.Warn("backend sign-out failed",
				slog.Int("user_id", st.UserID()),
				slog.String("error", err.Error()),
			)
		}
	}
	st.SignOut()
}

// ChangePassword sets a new password. The backend invalidates the token, so the
// state is signed out on success.
func (s *AccountService) ChangePassword(ctx context.Context, st *session.State, req foodgram.PasswordChange) error {
	if err := s.requireSignIn(st); err != nil {
		return err
	}
	if err := s.backend(st.Token).ChangePassword(ctx, req); err != nil {
		return fmt.Errorf("service: changing password: %w", err)
	}
	s.logger.Info("password changed", slog.Int("user_id", st.UserID()))
	st.SignOut()
	return nil
}

// ResetPassword asks the backend to mail a reset link.
func (s *AccountService) ResetPassword(ctx context.Context, email string) error {
	if err := s.backend("").ResetPassword(ctx, email); err != nil {
		return fmt.Errorf("service: resetting password: %w", err)
	}
	return nil
}

// ChangeAvatar uploads image as the new avatar and updates the cached user.
func (s *AccountService) ChangeAvatar(ctx context.Context, st *session.State, image io.Reader) error {
	if err := s.requireSignIn(st); err != nil {
		return err
	}
	dataURL, err := foodgram.EncodeDataURL(image)
	if err != nil {
		s.logger.Debug("rejected avatar upload", slog.String("error", err.Error()))
		return apperror.ValidationFailed("avatar", ImageHint)
	}
	avatar, err := s.backend(st.Token).SetAvatar(ctx, dataURL)
	if err != nil {
		return fmt.Errorf("service: changing avatar: %w", err)
	}
	if st.User != nil {
		u := *st.User
		u.Avatar = avatar
		st.SetUser(&u)
	}
	return nil
}

// DeleteAvatar removes the avatar.
func (s *AccountService) DeleteAvatar(ctx context.Context, st *session.State) error {
	if err := s.requireSignIn(st); err != nil {
		return err
	}
	if err := s.backend(st.Token).DeleteAvatar(ctx); err != nil {
		return fmt.Errorf("service: deleting avatar: %w", err)
	}
	if st.User != nil {
		u := *st.User
		u.Avatar = ""
		st.SetUser(&u)
	}
	return nil
}

// RefreshUser reloads the cached profile. A rejected token signs the state out.
func (s *AccountService) RefreshUser(ctx context.Context, st *session.State) error {
	if err := s.requireSignIn(st); err != nil {
		return err
	}
	user, err := s.backend(st.Token).Me(ctx)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			st.SignOut()
		}
		return fmt.Errorf("service: refreshing user: %w", err)
	}
	st.SetUser(user)
	return nil
}

// RefreshOrders recounts the shopping cart from the backend.
func (s *AccountService) RefreshOrders(ctx context.Context, st *session.State) error {
	if !st.SignedIn() {
		st.SetOrders(0)
		return nil
	}
	page, err := s.backend(st.Token).Recipes(ctx, foodgram.RecipeQuery{
		Page:             1,
		Limit:            1,
		IsInShoppingCart: true,
	})
	if err != nil {
		return fmt.Errorf("service: counting cart: %w", err)
	}
	st.SetOrders(page.Count)
	return nil
}

func (s *AccountService) requireSignIn(st *session.State) error {
	if !st.SignedIn() {
		return apperror.Unauthorized("sign in to continue")
	}
	return nil
}
