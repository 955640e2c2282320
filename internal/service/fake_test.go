package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/sakif/foodgram-web/internal/foodgram"
	"github.com/sakif/foodgram-web/internal/model"
)

// fakeBackend is an in-memory Foodgram backend shared by every token.
// Each call is recorded as "<token>:<method>".
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	token       string
	user        model.User
	cartCount   int
	ingredients []model.Ingredient

	signInErr  error
	meErr      error
	recipesErr error
	signOutErr error
	createErr  error

	created []foodgram.RecipeInput
	updated map[int]foodgram.RecipeInput
	avatar  string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		token:   "tok-1",
		user:    model.User{ID: 5, Username: "chef", Email: "chef@example.com"},
		updated: map[int]foodgram.RecipeInput{},
		ingredients: []model.Ingredient{
			{ID: 1, Name: "Salt", MeasurementUnit: "g"},
			{ID: 2, Name: "Salted butter", MeasurementUnit: "g"},
			{ID: 3, Name: "Flour", MeasurementUnit: "g"},
		},
	}
}

func (f *fakeBackend) as(token string) *fakeClient { return &fakeClient{f: f, token: token} }

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeClient struct {
	f     *fakeBackend
	token string
}

func (c *fakeClient) record(method string) {
	c.f.mu.Lock()
	c.f.calls = append(c.f.calls, c.token+":"+method)
	c.f.mu.Unlock()
}

func (c *fakeClient) SignIn(_ context.Context, creds foodgram.Credentials) (string, error) {
	c.record("SignIn")
	if c.f.signInErr != nil {
		return "", c.f.signInErr
	}
	return c.f.token, nil
}

func (c *fakeClient) SignOut(context.Context) error {
	c.record("SignOut")
	return c.f.signOutErr
}

func (c *fakeClient) SignUp(_ context.Context, req foodgram.SignUpRequest) (*model.User, error) {
	c.record("SignUp")
	return &model.User{ID: 42, Username: req.Username, Email: req.Email}, nil
}

func (c *fakeClient) ChangePassword(context.Context, foodgram.PasswordChange) error {
	c.record("ChangePassword")
	return nil
}

func (c *fakeClient) ResetPassword(context.Context, string) error {
	c.record("ResetPassword")
	return nil
}

func (c *fakeClient) Me(context.Context) (*model.User, error) {
	c.record("Me")
	if c.f.meErr != nil {
		return nil, c.f.meErr
	}
	u := c.f.user
	return &u, nil
}

func (c *fakeClient) Recipes(_ context.Context, q foodgram.RecipeQuery) (*model.Page[model.Recipe], error) {
	c.record("Recipes")
	if c.f.recipesErr != nil {
		return nil, c.f.recipesErr
	}
	return &model.Page[model.Recipe]{Count: c.f.cartCount}, nil
}

func (c *fakeClient) SetAvatar(_ context.Context, dataURL string) (string, error) {
	c.record("SetAvatar")
	c.f.avatar = dataURL
	return "http://media/avatar.png", nil
}

func (c *fakeClient) DeleteAvatar(context.Context) error {
	c.record("DeleteAvatar")
	return nil
}

func (c *fakeClient) Ingredients(_ context.Context, name string) ([]model.Ingredient, error) {
	c.record("Ingredients")
	var out []model.Ingredient
	for _, in := range c.f.ingredients {
		if strings.HasPrefix(strings.ToLower(in.Name), strings.ToLower(name)) {
			out = append(out, in)
		}
	}
	return out, nil
}

func (c *fakeClient) CreateRecipe(_ context.Context, in foodgram.RecipeInput) (*model.Recipe, error) {
	c.record("CreateRecipe")
	if c.f.createErr != nil {
		return nil, c.f.createErr
	}
	c.f.created = append(c.f.created, in)
	return &model.Recipe{ID: 100, Name: in.Name}, nil
}

func (c *fakeClient) UpdateRecipe(_ context.Context, id int, in foodgram.RecipeInput) (*model.Recipe, error) {
	c.record("UpdateRecipe")
	c.f.updated[id] = in
	return &model.Recipe{ID: id, Name: in.Name}, nil
}

func (c *fakeClient) DeleteRecipe(context.Context, int) error {
	c.record("DeleteRecipe")
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAccounts(f *fakeBackend) *AccountService {
	return NewAccountService(func(token string) AccountAPI { return f.as(token) }, discardLogger())
}

func newTestEditor(f *fakeBackend) *RecipeEditor {
	return NewRecipeEditor(func(token string) EditorAPI { return f.as(token) }, discardLogger())
}

func unauthorized() error {
	return &foodgram.APIError{Status: http.StatusUnauthorized, Fields: map[string][]string{"detail": {"Invalid token."}}}
}

// pngBytes is the smallest prefix http.DetectContentType recognises as PNG.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
