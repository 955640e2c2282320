package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/foodgram-web/internal/service"
)

func TestSafeImage(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://cdn.example/recipes/1.png", "https://cdn.example/recipes/1.png"},
		{"http://localhost/media/recipes/1.png", "http://localhost/media/recipes/1.png"},
		{"/media/recipes/images/1.png", "/media/recipes/images/1.png"},
		{"", ""},
		{"media/1.png", ""},
		{"//evil.example/1.png", ""},
		{`/\evil.example/1.png`, ""},
		{"javascript:alert(1)", ""},
		{"data:image/png;base64,AAAA", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeImage(tt.raw), tt.raw)
	}
}

func TestDraftInputRows(t *testing.T) {
	in := draftInput{
		IngredientName:   []string{"Flour", "", "Salt", ""},
		IngredientAmount: []string{"200", "", "", "5"},
	}

	assert.Equal(t, []service.IngredientRow{
		{Name: "Flour", Amount: "200"},
		{Name: "Salt", Amount: ""},
		{Name: "", Amount: "5"},
	}, in.rows())
}
