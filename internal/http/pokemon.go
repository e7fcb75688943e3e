package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kjstillabower/weather-insights-service/internal/validation"
)

// ListPokemon handles GET /api/pokemon?page=N.
func (h *Handler) ListPokemon(w http.ResponseWriter, r *http.Request) {
	page := validation.Page(r.URL.Query().Get("page"))
	result, err := h.pokemon.ListPokemon(r.Context(), page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetPokemon handles GET /api/pokemon/{id}.
func (h *Handler) GetPokemon(w http.ResponseWriter, r *http.Request) {
	p, err := h.pokemon.GetPokemon(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SearchPokemon handles GET /api/pokemon/search?q=.
func (h *Handler) SearchPokemon(w http.ResponseWriter, r *http.Request) {
	p, err := h.pokemon.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
