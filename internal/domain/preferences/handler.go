package preferences

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/preferences/theme", func(pr chi.Router) {
		pr.Get("/", getThemeHandler(svc))
		pr.Put("/", setThemeHandler(svc))
		pr.Post("/toggle", toggleThemeHandler(svc))
	})
}

type themeResponse struct {
	Mode Mode `json:"mode"`
}

type setThemeRequest struct {
	Mode string `json:"mode"`
}

// getThemeHandler godoc
// @Summary Tema actual
// @Tags preferences
// @Produce json
// @Success 200 {object} themeResponse
// @Router /preferences/theme [get]
func getThemeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := svc.Mode(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, themeResponse{Mode: m})
	}
}

// setThemeHandler godoc
// @Summary Fijar tema
// @Tags preferences
// @Accept json
// @Produce json
// @Param payload body setThemeRequest true "light o dark"
// @Success 200 {object} themeResponse
// @Failure 400 {string} string "invalid theme mode"
// @Router /preferences/theme [put]
func setThemeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setThemeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.SetMode(r.Context(), Mode(req.Mode))
		if err != nil {
			if errors.Is(err, ErrInvalidMode) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, themeResponse{Mode: m})
	}
}

// toggleThemeHandler godoc
// @Summary Alternar tema
// @Tags preferences
// @Produce json
// @Success 200 {object} themeResponse
// @Router /preferences/theme/toggle [post]
func toggleThemeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := svc.Toggle(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, themeResponse{Mode: m})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
