package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/foodgram-web/internal/foodgram"
)

// pngImage is enough of a PNG file for content sniffing.
var pngImage = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

// =========================================================================
// RECIPE EDITOR
// =========================================================================

func TestCreateRecipe(t *testing.T) {
	backend, web := setupTest(t)
	web.signIn()

	status, body, final := web.postMultipart("/recipes/create", url.Values{
		"name":              {"Pancakes"},
		"text":              {"Whisk and fry."},
		"cooking_time":      {"20"},
		"tags":              {"2"},
		"ingredient_name":   {"Flour", ""},
		"ingredient_amount": {"200", ""},
	}, map[string][]byte{"image": pngImage})

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/recipes/14", final)
	assert.Contains(t, body, "Recipe published")
	assert.Contains(t, body, "<h1>Pancakes</h1>")
	assert.Contains(t, body, `href="/recipes/14/edit"`)

	backend.mu.Lock()
	in := backend.lastInput
	backend.mu.Unlock()
	require.NotNil(t, in)
	assert.Equal(t, []int{2}, in.Tags)
	assert.Equal(t, []foodgram.IngredientAmount{{ID: 1, Amount: 200}}, in.Ingredients)
	assert.Equal(t, 20, in.CookingTime)
	assert.True(t, strings.HasPrefix(in.Image, "data:image/png;base64,"), in.Image)
}

func TestCreateRecipe_NonNumericTag(t *testing.T) {
	backend, web := setupTest(t)
	web.signIn()

	status, body, _ := web.postMultipart("/recipes/create", url.Values{
		"name":              {"Pancakes"},
		"text":              {"Whisk and fry."},
		"cooking_time":      {"20"},
		"tags":              {"breakfast"},
		"ingredient_name":   {"Flour"},
		"ingredient_amount": {"200"},
	}, map[string][]byte{"image": pngImage})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Select tags from the list")
	assert.False(t, backend.called("POST /api/recipes/"))
}

func TestCreateRecipe_UnknownIngredient(t *testing.T) {
	backend, web := setupTest(t)
	web.signIn()

	status, body, _ := web.postMultipart("/recipes/create", url.Values{
		"name":              {"Pancakes"},
		"text":              {"Whisk and fry."},
		"cooking_time":      {"20"},
		"tags":              {"1"},
		"ingredient_name":   {"Unobtainium"},
		"ingredient_amount": {"5"},
	}, map[string][]byte{"image": pngImage})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Ingredient not selected")
	assert.Contains(t, body, `value="Unobtainium"`)
	assert.False(t, backend.called("POST /api/recipes/"))
}

func TestEditRecipe(t *testing.T) {
	backend, web := setupTest(t)
	id := strconv.Itoa(backend.addOwnRecipe("Bread"))
	web.signIn()

	status, body, _ := web.get("/recipes/" + id + "/edit")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `value="Bread"`)

	status, body, final := web.postMultipart("/recipes/"+id+"/edit", url.Values{
		"name":              {"Rye bread"},
		"text":              {"Knead and bake."},
		"cooking_time":      {"90"},
		"tags":              {"1"},
		"ingredient_name":   {"flour, rye"},
		"ingredient_amount": {"500"},
		"current_image":     {"/media/" + id + ".png"},
	}, nil)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/recipes/"+id, final)
	assert.Contains(t, body, "Recipe updated")
	assert.Contains(t, body, "<h1>Rye bread</h1>")
	assert.True(t, backend.called("PATCH /api/recipes/"+id+"/"))

	backend.mu.Lock()
	in := backend.lastInput
	backend.mu.Unlock()
	require.NotNil(t, in)
	assert.Equal(t, []foodgram.IngredientAmount{{ID: 2, Amount: 500}}, in.Ingredients)
	assert.Empty(t, in.Image, "the current image is kept without a new upload")
}

func TestEditRecipe_ErrorKeepsCurrentImage(t *testing.T) {
	backend, web := setupTest(t)
	id := strconv.Itoa(backend.addOwnRecipe("Bread"))
	web.signIn()

	status, body, _ := web.postMultipart("/recipes/"+id+"/edit", url.Values{
		"name":              {"Bread"},
		"text":              {"Knead and bake."},
		"cooking_time":      {"0"},
		"tags":              {"1"},
		"ingredient_name":   {"Flour"},
		"ingredient_amount": {"500"},
		"current_image":     {"/media/" + id + ".png"},
	}, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, `src="/media/`+id+`.png"`)
	assert.Contains(t, body, `name="current_image" value="/media/`+id+`.png"`)
	assert.False(t, backend.called("PATCH /api/recipes/"+id+"/"))
}

func TestEditRecipe_NonAuthorForbidden(t *testing.T) {
	backend, web := setupTest(t)
	web.signIn()

	status, body, _ := web.get("/recipes/3/edit")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, body, "Only the author can edit this recipe")

	status, _, _ = web.postMultipart("/recipes/3/edit", url.Values{
		"name":              {"Mine now"},
		"text":              {"x"},
		"cooking_time":      {"10"},
		"tags":              {"1"},
		"ingredient_name":   {"Salt"},
		"ingredient_amount": {"1"},
	}, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, backend.called("PATCH /api/recipes/3/"))
}

func TestDeleteRecipe_RecountsCart(t *testing.T) {
	backend, web := setupTest(t)
	own := backend.addOwnRecipe("Soup")
	backend.mu.Lock()
	backend.cart[own] = true
	backend.mu.Unlock()
	web.signIn()

	_, body, _ := web.get("/recipes")
	require.Contains(t, body, `data-testid="orders">3</span>`)

	id := strconv.Itoa(own)
	status, body, final := web.post("/recipes/"+id+"/delete", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/recipes", final)
	assert.Contains(t, body, "Recipe deleted")
	assert.Contains(t, body, `data-testid="orders">2</span>`)
	assert.True(t, backend.called("DELETE /api/recipes/"+id+"/"))

	status, _, _ = web.get("/recipes/" + id)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDeleteRecipe_NonAuthor(t *testing.T) {
	backend, web := setupTest(t)
	web.signIn()

	status, _, final := web.post("/recipes/3/delete", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/recipes/3", final)
	_, ok := backend.recipe(3, true)
	assert.True(t, ok)
}

// =========================================================================
// ACCOUNT
// =========================================================================

func signUpForm(username string) url.Values {
	return url.Values{
		"first_name": {"Julia"},
		"last_name":  {"Child"},
		"username":   {username},
		"email":      {"julia@example.com"},
		"password":   {"bon-appetit-1"},
	}
}

func TestSignUp(t *testing.T) {
	backend, web := setupTest(t)

	status, body, final := web.post("/signup", signUpForm("julia"))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/signin", final)
	assert.Contains(t, body, "Your account is ready. Sign in to continue.")
	assert.True(t, backend.called("POST /api/users/"))
}

func TestSignUp_BackendFieldErrors(t *testing.T) {
	_, web := setupTest(t)

	status, body, _ := web.post("/signup", signUpForm("chef"))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "A user with that username already exists.")
	assert.NotContains(t, body, "bon-appetit-1")
}

func TestSignUp_InvalidUsernameSkipsBackend(t *testing.T) {
	backend, web := setupTest(t)

	status, _, _ := web.post("/signup", signUpForm("no spaces please"))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.False(t, backend.called("POST /api/users/"))
}

func TestChangePassword_SignsOut(t *testing.T) {
	backend, web := setupTest(t)
	web.signIn()

	status, body, final := web.post("/change-password", url.Values{
		"current_password": {testPassword},
		"new_password":     {"another-pass"},
		"repeat_password":  {"another-pass"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/signin", final)
	assert.Contains(t, body, "Password changed. Sign in with the new password.")
	assert.True(t, backend.called("POST /api/users/set_password/"))

	_, _, final = web.get("/cart")
	assert.Equal(t, "/signin?next=%2Fcart", final)
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	_, web := setupTest(t)
	web.signIn()

	status, body, _ := web.post("/change-password", url.Values{
		"current_password": {"guess"},
		"new_password":     {"another-pass"},
		"repeat_password":  {"another-pass"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Invalid password.")

	_, _, final := web.get("/cart")
	assert.Equal(t, "/cart", final, "still signed in")
}

func TestChangePassword_Mismatch(t *testing.T) {
	backend, web := setupTest(t)
	web.signIn()

	status, body, _ := web.post("/change-password", url.Values{
		"current_password": {testPassword},
		"new_password":     {"another-pass"},
		"repeat_password":  {"another-pas"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Passwords do not match")
	assert.False(t, backend.called("POST /api/users/set_password/"))
}

func TestChangeAvatar(t *testing.T) {
	backend, web := setupTest(t)
	web.signIn()

	status, body, final := web.postMultipart("/change-avatar", nil, map[string][]byte{"avatar": pngImage})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/recipes", final)
	assert.Contains(t, body, "Avatar updated")

	backend.mu.Lock()
	avatar := backend.avatar
	backend.mu.Unlock()
	assert.Equal(t, "/media/users/1.png", avatar)
}

func TestChangeAvatar_NotAnImage(t *testing.T) {
	backend, web := setupTest(t)
	web.signIn()

	status, body, _ := web.postMultipart("/change-avatar", nil, map[string][]byte{"avatar": []byte("plain text, not a picture")})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Choose an image file up to 5 MB")
	assert.False(t, backend.called("PUT /api/users/me/avatar/"))
}

// =========================================================================
// SUBSCRIPTIONS / SHORT LINK
// =========================================================================

func TestSubscribe_FromRecipePage(t *testing.T) {
	backend, web := setupTest(t)
	web.signIn()

	_, body, _ := web.get("/recipes/4")
	require.Contains(t, body, "Subscribe to author")

	status, body, final := web.post("/users/7/subscribe", url.Values{
		"subscribe": {"true"},
		"return":    {"/recipes/4"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/recipes/4", final)
	assert.Contains(t, body, "Unsubscribe from author")
	assert.True(t, backend.called("POST /api/users/7/subscribe/"))

	_, body, _ = web.get("/subscriptions")
	assert.Contains(t, body, "Julia Child")
	assert.Contains(t, body, "Recipe 3<")
	assert.NotContains(t, body, "Recipe 4<")
	assert.Contains(t, body, "10 more recipes")
	assert.Equal(t, "3", backend.lastSubscriptionsLimit())

	status, body, final = web.post("/users/7/subscribe", url.Values{
		"subscribe": {"false"},
		"return":    {"/subscriptions"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/subscriptions", final)
	assert.Contains(t, body, "You are not subscribed to anyone yet.")
	assert.True(t, backend.called("DELETE /api/users/7/subscribe/"))
}

func TestSubscribe_FromAuthorPageLoadsThatPage(t *testing.T) {
	backend, web := setupTest(t)
	web.signIn()

	status, body, final := web.post("/users/7/subscribe", url.Values{
		"subscribe": {"true"},
		"return":    {"/user/7?page=2"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/user/7?page=2", final)
	assert.Contains(t, body, `name="subscribe" value="false"`)

	prev := backend.requestBefore("POST /api/users/7/subscribe/")
	assert.True(t, strings.HasPrefix(prev, "GET /api/recipes/?"), prev)
	assert.Contains(t, prev, "author=7")
	assert.Contains(t, prev, "page=2")
}

func TestSubscribe_Twice(t *testing.T) {
	_, web := setupTest(t)
	web.signIn()

	form := url.Values{"subscribe": {"true"}, "return": {"/user/7"}}
	web.post("/users/7/subscribe", form)
	_, body, final := web.post("/users/7/subscribe", form)
	assert.Equal(t, "/user/7", final)
	assert.Contains(t, body, "Already done.")
}

func TestSubscribe_InvalidValue(t *testing.T) {
	_, web := setupTest(t)
	web.signIn()

	status, _, _ := web.post("/users/7/subscribe", url.Values{"subscribe": {"maybe"}})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestShortLink(t *testing.T) {
	_, web := setupTest(t)

	status, body, final := web.post("/recipes/3/link", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/recipes/3", final)
	assert.Contains(t, body, "Short link: https://foodgram.example/s/3")
}
