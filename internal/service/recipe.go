package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/sakif/foodgram-web/internal/apperror"
	"github.com/sakif/foodgram-web/internal/foodgram"
	"github.com/sakif/foodgram-web/internal/form"
	"github.com/sakif/foodgram-web/internal/model"
)

// Recipe limits enforced by the backend.
const (
	MaxRecipeNameLength = 256
	MinCookingTime      = 1
	MaxCookingTime      = 300
	MinIngredientAmount = 1
)

// ImageHint is shown when an upload is not a usable image.
var ImageHint = fmt.Sprintf("Choose an image file up to %d MB", foodgram.MaxImageSize>>20)

// EditorAPI is the part of the backend client the recipe editor uses.
type EditorAPI interface {
	Ingredients(ctx context.Context, name string) ([]model.Ingredient, error)
	CreateRecipe(ctx context.Context, in foodgram.RecipeInput) (*model.Recipe, error)
	UpdateRecipe(ctx context.Context, id int, in foodgram.RecipeInput) (*model.Recipe, error)
	DeleteRecipe(ctx context.Context, id int) error
}

var _ EditorAPI = (*foodgram.Client)(nil)

// IngredientRow is one ingredient line as typed into the editor.
type IngredientRow struct {
	Name   string
	Amount string
}

// Draft is a submitted recipe editor form.
type Draft struct {
	Name        string
	Text        string
	CookingTime string
	Tags        []int
	Ingredients []IngredientRow
	// Image is the uploaded file, nil when none was chosen.
	Image io.Reader
}

// DraftError reports every problem found in a Draft, keyed by field name.
// Ingredient rows use "ingredients.<index>".
type DraftError struct {
	Fields map[string]string
}

func (e *DraftError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid recipe: " + strings.Join(parts, "; ")
}

func (e *DraftError) Unwrap() error { return apperror.ErrValidation }

// RowKey is the DraftError key of ingredient row i.
func RowKey(i int) string {
	return "ingredients." + strconv.Itoa(i)
}

// Labels maps backend error fields to the text shown above the editor.
var Labels = []foodgram.Label{
	{Field: "ingredients", Text: "Ingredients"},
	{Field: "cooking_time", Text: "Cooking time"},
	{Field: "tags", Text: "Tags"},
	{Field: "image", Text: "Image"},
	{Field: "name", Text: "Name"},
}

var draftForm = form.New(
	form.Field{Name: "name", Rules: []form.Rule{form.Required(), form.MaxLength(MaxRecipeNameLength)}},
	form.Field{Name: "text", Rules: []form.Rule{form.Required()}},
	form.Field{Name: "cooking_time", Rules: []form.Rule{form.Required(), form.IntRange(MinCookingTime, MaxCookingTime)}},
)

// RecipeEditor validates recipe drafts and submits them.
type RecipeEditor struct {
	backend Backend[EditorAPI]
	logger  *slog.Logger
}

// NewRecipeEditor creates a RecipeEditor.
func NewRecipeEditor(backend Backend[EditorAPI], logger *slog.Logger) *RecipeEditor {
	return &RecipeEditor{backend: backend, logger: logger}
}

// Create validates d and publishes it as a new recipe. An image is required.
func (e *RecipeEditor) Create(ctx context.Context, token string, d Draft) (*model.Recipe, error) {
	api := e.backend(token)
	in, err := e.prepare(ctx, api, d, true)
	if err != nil {
		return nil, err
	}
	r, err := api.CreateRecipe(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("service: creating recipe: %w", err)
	}
	e.logger.Info("recipe created", slog.Int("recipe_id", r.ID))
	return r, nil
}

// Update validates d and replaces recipe id. Without a new image the current
// one is kept.
func (e *RecipeEditor) Update(ctx context.Context, token string, id int, d Draft) (*model.Recipe, error) {
	api := e.backend(token)
	in, err := e.prepare(ctx, api, d, false)
	if err != nil {
		return nil, err
	}
	r, err := api.UpdateRecipe(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("service: updating recipe %d: %w", id, err)
	}
	e.logger.Info("recipe updated", slog.Int("recipe_id", id))
	return r, nil
}

// Delete removes recipe id.
func (e *RecipeEditor) Delete(ctx context.Context, token string, id int) error {
	if err := e.backend(token).DeleteRecipe(ctx, id); err != nil {
		return fmt.Errorf("service: deleting recipe %d: %w", id, err)
	}
	e.logger.Info("recipe deleted", slog.Int("recipe_id", id))
	return nil
}

// SearchIngredients returns ingredients whose name starts with prefix.
func (e *RecipeEditor) SearchIngredients(ctx context.Context, prefix string) ([]model.Ingredient, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []model.Ingredient{}, nil
	}
	out, err := e.backend("").Ingredients(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("service: searching ingredients: %w", err)
	}
	return out, nil
}

// prepare validates d and builds the backend payload. Every problem is reported
// at once in a *DraftError.
func (e *RecipeEditor) prepare(ctx context.Context, api EditorAPI, d Draft, requireImage bool) (foodgram.RecipeInput, error) {
	res := draftForm.Validate(url.Values{
		"name":         {d.Name},
		"text":         {d.Text},
		"cooking_time": {d.CookingTime},
	})
	errs := res.Errors

	if len(d.Tags) == 0 {
		errs["tags"] = "Select at least one tag"
	}

	ingredients, rowErrs, err := e.resolveIngredients(ctx, api, d.Ingredients)
	if err != nil {
		return foodgram.RecipeInput{}, err
	}
	for k, v := range rowErrs {
		errs[k] = v
	}
	if len(d.Ingredients) == 0 {
		errs["ingredients"] = "Add at least one ingredient"
	}

	var image string
	if d.Image != nil {
		image, err = foodgram.EncodeDataURL(d.Image)
		if err != nil {
			errs["image"] = ImageHint
		}
	} else if requireImage {
		errs["image"] = "Choose an image"
	}

	if len(errs) > 0 {
		return foodgram.RecipeInput{}, &DraftError{Fields: errs}
	}

	cookingTime, _ := strconv.Atoi(res.Value("cooking_time"))
	return foodgram.RecipeInput{
		Name:        res.Value("name"),
		Text:        res.Value("text"),
		CookingTime: cookingTime,
		Tags:        d.Tags,
		Ingredients: ingredients,
		Image:       image,
	}, nil
}

// resolveIngredients maps typed ingredient names to backend ids. A name must
// match one ingredient exactly, ignoring case; the same ingredient may not be
// listed twice.
func (e *RecipeEditor) resolveIngredients(ctx context.Context, api EditorAPI, rows []IngredientRow) ([]foodgram.IngredientAmount, map[string]string, error) {
	out := make([]foodgram.IngredientAmount, 0, len(rows))
	errs := map[string]string{}
	seen := map[int]bool{}

	for i, row := range rows {
		name := strings.TrimSpace(row.Name)
		amountStr := strings.TrimSpace(row.Amount)

		amount, err := strconv.Atoi(amountStr)
		if amountStr == "" || err != nil || strings.ContainsAny(amountStr, "+-") {
			errs[RowKey(i)] = "Amount must be a whole number"
			continue
		}
		if amount < MinIngredientAmount {
			errs[RowKey(i)] = fmt.Sprintf("Amount must be at least %d", MinIngredientAmount)
			continue
		}
		if name == "" {
			errs[RowKey(i)] = "Ingredient not selected"
			continue
		}

		candidates, err := api.Ingredients(ctx, name)
		if err != nil {
			return nil, nil, fmt.Errorf("service: looking up ingredient %q: %w", name, err)
		}
		match, ok := exactIngredient(candidates, name)
		if !ok {
			errs[RowKey(i)] = "Ingredient not selected"
			continue
		}
		if seen[match.ID] {
			errs[RowKey(i)] = fmt.Sprintf("%s is already selected", match.Name)
			continue
		}
		seen[match.ID] = true
		out = append(out, foodgram.IngredientAmount{ID: match.ID, Amount: amount})
	}
	return out, errs, nil
}

func exactIngredient(candidates []model.Ingredient, name string) (model.Ingredient, bool) {
	for _, c := range candidates {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return model.Ingredient{}, false
}

// IsDraftError reports whether err is a local validation failure of a draft.
func IsDraftError(err error) (*DraftError, bool) {
	var de *DraftError
	ok := errors.As(err, &de)
	return de, ok
}
