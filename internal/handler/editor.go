package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/schema"

	"github.com/sakif/foodgram-web/internal/apperror"
	"github.com/sakif/foodgram-web/internal/auth"
	"github.com/sakif/foodgram-web/internal/foodgram"
	"github.com/sakif/foodgram-web/internal/model"
	"github.com/sakif/foodgram-web/internal/recipes"
	"github.com/sakif/foodgram-web/internal/service"
	"github.com/sakif/foodgram-web/internal/session"
)

// maxUploadBytes caps a multipart request: the image plus the text fields.
const maxUploadBytes = foodgram.MaxImageSize + 1<<20

// blankRows is how many empty ingredient rows the editor offers for new lines.
const blankRows = 3

// draftInput is the editor form as decoded by gorilla/schema. Ingredient rows
// arrive as two parallel lists.
type draftInput struct {
	Name             string   `schema:"name"`
	Text             string   `schema:"text"`
	CookingTime      string   `schema:"cooking_time"`
	Tags             []int    `schema:"tags"`
	IngredientName   []string `schema:"ingredient_name"`
	IngredientAmount []string `schema:"ingredient_amount"`
	CurrentImage     string   `schema:"current_image"`
}

// rows pairs names with amounts, dropping rows left completely empty.
func (in draftInput) rows() []service.IngredientRow {
	n := max(len(in.IngredientName), len(in.IngredientAmount))
	rows := make([]service.IngredientRow, 0, n)
	for i := 0; i < n; i++ {
		var row service.IngredientRow
		if i < len(in.IngredientName) {
			row.Name = in.IngredientName[i]
		}
		if i < len(in.IngredientAmount) {
			row.Amount = in.IngredientAmount[i]
		}
		if row.Name == "" && row.Amount == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

type editorTag struct {
	model.Tag
	Checked bool
}

type editorRow struct {
	Name   string
	Amount string
	Error  string
}

// editorPage is the data of editor.html.
type editorPage struct {
	Heading     string
	Action      string
	Submit      string
	RecipeID    int
	Name        string
	Text        string
	CookingTime string
	Image       string
	Tags        []editorTag
	Rows        []editorRow
	Errors      map[string]string
	Banner      string
}

func newEditorPage(tags []model.Tag, checked []int, rows []service.IngredientRow, errs map[string]string) editorPage {
	page := editorPage{Errors: errs}
	if page.Errors == nil {
		page.Errors = map[string]string{}
	}

	on := make(map[int]bool, len(checked))
	for _, id := range checked {
		on[id] = true
	}
	for _, t := range tags {
		page.Tags = append(page.Tags, editorTag{Tag: t, Checked: on[t.ID]})
	}

	for i, row := range rows {
		page.Rows = append(page.Rows, editorRow{Name: row.Name, Amount: row.Amount, Error: page.Errors[service.RowKey(i)]})
	}
	for i := 0; i < blankRows; i++ {
		page.Rows = append(page.Rows, editorRow{})
	}
	return page
}

// HandleCreatePage serves GET /recipes/create.
func (h *Handler) HandleCreatePage(w http.ResponseWriter, r *http.Request) {
	tags, err := h.Backend.Tags(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page := newEditorPage(tags, nil, nil, nil)
	page.Heading, page.Action, page.Submit = "New recipe", "/recipes/create", "Publish recipe"
	h.Renderer.Render(w, http.StatusOK, "editor", h.view(w, r, "New recipe", "create", page))
}

// HandleCreate serves POST /recipes/create.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	st := auth.FromContext(r.Context())
	h.submitDraft(w, r, st, 0)
}

// HandleEditPage serves GET /recipes/{id}/edit. Only the author may edit.
func (h *Handler) HandleEditPage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.NotFound(w, r)
		return
	}
	st := auth.FromContext(r.Context())

	rec, err := h.ownedRecipe(r.Context(), st, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	tags, err := h.Backend.Tags(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	checked := make([]int, len(rec.Tags))
	for i, t := range rec.Tags {
		checked[i] = t.ID
	}
	rows := make([]service.IngredientRow, len(rec.Ingredients))
	for i, in := range rec.Ingredients {
		rows[i] = service.IngredientRow{Name: in.Name, Amount: strconv.Itoa(in.Amount)}
	}

	page := newEditorPage(tags, checked, rows, nil)
	page.Heading, page.Action, page.Submit = "Edit recipe", "/recipes/"+strconv.Itoa(id)+"/edit", "Save changes"
	page.RecipeID = id
	page.Name, page.Text, page.CookingTime = rec.Name, rec.Text, strconv.Itoa(rec.CookingTime)
	page.Image = rec.Image
	h.Renderer.Render(w, http.StatusOK, "editor", h.view(w, r, "Edit recipe", "create", page))
}

// HandleEdit serves POST /recipes/{id}/edit.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.NotFound(w, r)
		return
	}
	st := auth.FromContext(r.Context())
	if _, err := h.ownedRecipe(r.Context(), st, id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.submitDraft(w, r, st, id)
}

// ownedRecipe loads recipe id and checks the visitor wrote it.
func (h *Handler) ownedRecipe(ctx context.Context, st *session.State, id int) (model.Recipe, error) {
	s := recipes.NewSingle(ctx, h.client(st), h.controllerOptions(ctx, st))
	defer s.Close()
	if err := s.Load(id); err != nil {
		return model.Recipe{}, err
	}
	rec, _ := s.Recipe()
	if rec.Author.ID != st.UserID() {
		return model.Recipe{}, apperror.Forbidden("Only the author can edit this recipe")
	}
	return rec, nil
}

// submitDraft creates (id == 0) or updates recipe id from the posted editor.
func (h *Handler) submitDraft(w http.ResponseWriter, r *http.Request, st *session.State, id int) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	formErrs := map[string]string{}

	var in draftInput
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if !errors.As(err, &tooBig) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		formErrs["image"] = service.ImageHint
	}
	if err := h.decoder.Decode(&in, r.PostForm); err != nil {
		var multi schema.MultiError
		if !errors.As(err, &multi) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		formErrs["tags"] = "Select tags from the list"
		in.Tags = nil
	}

	d := service.Draft{
		Name:        in.Name,
		Text:        in.Text,
		CookingTime: in.CookingTime,
		Tags:        in.Tags,
		Ingredients: in.rows(),
	}
	var file multipart.File
	if len(formErrs) == 0 {
		if f, _, err := r.FormFile("image"); err == nil {
			file = f
			defer file.Close()
			d.Image = file
		}
	}

	var (
		rec *model.Recipe
		err error
	)
	switch {
	case len(formErrs) > 0:
		err = &service.DraftError{Fields: formErrs}
	case id == 0:
		rec, err = h.Editor.Create(r.Context(), st.Token, d)
	default:
		rec, err = h.Editor.Update(r.Context(), st.Token, id, d)
	}

	if err == nil {
		msg := "Recipe published"
		if id != 0 {
			msg = "Recipe updated"
		}
		setFlash(w, "info", msg)
		http.Redirect(w, r, "/recipes/"+strconv.Itoa(rec.ID), http.StatusSeeOther)
		return
	}
	if errors.Is(err, apperror.ErrUnauthorized) || errors.Is(err, apperror.ErrForbidden) || errors.Is(err, context.Canceled) {
		h.fail(w, r, err)
		return
	}

	var banner string
	de, isDraft := service.IsDraftError(err)
	if isDraft {
		formErrs = de.Fields
	} else {
		var apiErr *foodgram.APIError
		if errors.As(err, &apiErr) {
			banner = apiErr.Message(service.Labels...)
		} else {
			h.Logger.Error("saving recipe", slog.Int("recipe_id", id), slog.String("error", err.Error()))
			banner = userMessage(err)
		}
	}

	tags, terr := h.Backend.Tags(r.Context())
	if terr != nil {
		h.fail(w, r, terr)
		return
	}
	page := newEditorPage(tags, d.Tags, d.Ingredients, formErrs)
	page.Banner = banner
	page.Name, page.Text, page.CookingTime = d.Name, d.Text, d.CookingTime
	page.Image = safeImage(in.CurrentImage)
	if id == 0 {
		page.Heading, page.Action, page.Submit = "New recipe", "/recipes/create", "Publish recipe"
	} else {
		page.Heading, page.Action, page.Submit = "Edit recipe", "/recipes/"+strconv.Itoa(id)+"/edit", "Save changes"
		page.RecipeID = id
	}
	h.Renderer.Render(w, http.StatusUnprocessableEntity, "editor", h.view(w, r, page.Heading, "create", page))
}

// safeImage keeps the posted current-image URL only when it is an http(s) URL
// or a local path such as /media/recipes/images/x.png.
func safeImage(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return safeReturn(raw, "")
}

// HandleDelete serves POST /recipes/{id}/delete. The cart counter is recounted
// afterwards since the recipe may have been in the cart.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		h.NotFound(w, r)
		return
	}
	st := auth.FromContext(r.Context())

	if err := h.Editor.Delete(r.Context(), st.Token, id); err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.fail(w, r, err)
			return
		}
		setFlash(w, "error", userMessage(err))
		http.Redirect(w, r, "/recipes/"+strconv.Itoa(id), http.StatusSeeOther)
		return
	}

	if err := h.Accounts.RefreshOrders(r.Context(), st); err != nil {
		h.Logger.Warn("recounting cart after delete", slog.String("error", err.Error()))
	} else if err := h.Sessions.StoreOrders(r.Context(), st); err != nil {
		h.Logger.Error("storing cart counter", slog.String("session_id", st.ID), slog.String("error", err.Error()))
	}
	setFlash(w, "info", "Recipe deleted")
	http.Redirect(w, r, "/recipes", http.StatusSeeOther)
}

// HandleIngredients serves GET /api/ingredients?name=, used by the editor's
// ingredient autocomplete.
func (h *Handler) HandleIngredients(w http.ResponseWriter, r *http.Request) {
	items, err := h.Editor.SearchIngredients(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
