// Package model defines the Foodgram data structures the web frontend works with.
//
// Every value here is created from a backend response and lives only as long as the
// request (the "view") that fetched it. Nothing is normalized: a Recipe embeds its
// author and tags exactly as the backend returned them.
package model

// Recipe is a single recipe as returned by GET /recipes/{id} and the list endpoint.
//
// IsFavorited and IsInShoppingCart are relative to the viewer who fetched the recipe.
// They are only ever changed after the backend confirms a toggle, never optimistically.
type Recipe struct {
	ID               int               `json:"id"`
	Name             string            `json:"name"`
	Image            string            `json:"image"`
	Text             string            `json:"text"`
	CookingTime      int               `json:"cooking_time"`
	Author           User              `json:"author"`
	Tags             []Tag             `json:"tags"`
	Ingredients      []IngredientUsage `json:"ingredients"`
	IsFavorited      bool              `json:"is_favorited"`
	IsInShoppingCart bool              `json:"is_in_shopping_cart"`
}

// ShortRecipe is the compact recipe shape embedded in subscription entries and
// returned by the favorite/cart endpoints.
type ShortRecipe struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// IngredientUsage is one ingredient line of a recipe. Amount is a positive integer.
type IngredientUsage struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// Ingredient is an entry of the ingredient catalogue (GET /ingredients).
type Ingredient struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

// Tag is a recipe tag. The backend filters the recipe list by Slug.
type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
