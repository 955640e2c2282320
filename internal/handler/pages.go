package handler

import "net/http"

// HandleHome redirects / to the recipe feed.
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/recipes", http.StatusFound)
}

// HandleAbout serves GET /about.
func (h *Handler) HandleAbout(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, http.StatusOK, "about", h.view(w, r, "About", "about", nil))
}

// HandleTechnologies serves GET /technologies.
func (h *Handler) HandleTechnologies(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, http.StatusOK, "technologies", h.view(w, r, "Technologies", "technologies", nil))
}
