package medications

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"medipal/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/medications", func(mr chi.Router) {
		mr.Use(middleware.RequireSession)

		mr.Get("/", listHandler(svc))
		mr.Post("/", createHandler(svc))
		mr.Post("/refresh", refreshHandler(svc))

		mr.Get("/{id}", getHandler(svc))
		mr.Patch("/{id}", updateHandler(svc))
		mr.Delete("/{id}", deleteHandler(svc))
		mr.Delete("/{id}/doses/{time}", deleteDoseHandler(svc))
		mr.Get("/{id}/logs", logsHandler(svc))
	})
}

type createMedicationRequest struct {
	Name            string     `json:"name"`
	Emoji           string     `json:"emoji"`
	Color           string     `json:"color"`
	DosageAmount    float64    `json:"dosageAmount"`
	DosageUnit      DosageUnit `json:"dosageUnit"`
	TimesPerDay     int        `json:"timesPerDay"`
	ReminderTimes   []string   `json:"reminderTimes"`
	Duration        int        `json:"duration"`
	StartDate       string     `json:"startDate"` // RFC3339 opcional
	EnableReminders *bool      `json:"enableReminders"`
	SnoozeInterval  int        `json:"snoozeInterval"`
}

type updateMedicationRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	Name            *string     `json:"name"`
	Emoji           *string     `json:"emoji"`
	Color           *string     `json:"color"`
	DosageAmount    *float64    `json:"dosageAmount"`
	DosageUnit      *DosageUnit `json:"dosageUnit"`
	TimesPerDay     *int        `json:"timesPerDay"`
	ReminderTimes   *[]string   `json:"reminderTimes"`
	Duration        *int        `json:"duration"`
	EnableReminders *bool       `json:"enableReminders"`
	SnoozeInterval  *int        `json:"snoozeInterval"`
	ResetRemaining  bool        `json:"resetRemaining"`
}

// listHandler godoc
// @Summary Listar medicamentos
// @Tags medications
// @Produce json
// @Param Authorization header string true "Bearer token de sesión"
// @Success 200 {array} Medication
// @Failure 401 {string} string "unauthorized"
// @Router /medications [get]
func listHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// createHandler godoc
// @Summary Crear medicamento
// @Description Valida los datos, calcula contadores y reprograma los recordatorios.
// @Tags medications
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token de sesión"
// @Param payload body createMedicationRequest true "Medicamento; reminderTimes en HH:MM"
// @Success 201 {object} Medication
// @Failure 400 {string} string "invalid input"
// @Failure 401 {string} string "unauthorized"
// @Router /medications [post]
func createHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var start *time.Time
		if strings.TrimSpace(req.StartDate) != "" {
			t, err := time.Parse(time.RFC3339, req.StartDate)
			if err != nil {
				http.Error(w, "startDate must be RFC3339", http.StatusBadRequest)
				return
			}
			start = &t
		}

		enable := true
		if req.EnableReminders != nil {
			enable = *req.EnableReminders
		}

		m, err := svc.Add(r.Context(), CreateInput{
			Name:            req.Name,
			Emoji:           req.Emoji,
			Color:           req.Color,
			DosageAmount:    req.DosageAmount,
			DosageUnit:      req.DosageUnit,
			TimesPerDay:     req.TimesPerDay,
			ReminderTimes:   req.ReminderTimes,
			Duration:        req.Duration,
			StartDate:       start,
			EnableReminders: enable,
			SnoozeInterval:  req.SnoozeInterval,
		})
		if err != nil && m.ID == "" {
			writeError(w, err)
			return
		}
		// Persistido pero con fallo al reprogramar: se devuelve el registro igual.
		writeJSON(w, http.StatusCreated, m)
	}
}

// getHandler godoc
// @Summary Obtener medicamento
// @Tags medications
// @Produce json
// @Param Authorization header string true "Bearer token de sesión"
// @Param id path string true "ID del medicamento"
// @Success 200 {object} Medication
// @Failure 404 {string} string "medication not found"
// @Router /medications/{id} [get]
func getHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

// updateHandler godoc
// @Summary Actualizar medicamento
// @Description Reemplaza los campos enviados. resetRemaining=true vuelve el stock al total.
// @Tags medications
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token de sesión"
// @Param id path string true "ID del medicamento"
// @Param payload body updateMedicationRequest true "Campos a modificar"
// @Success 200 {object} Medication
// @Failure 400 {string} string "invalid input"
// @Failure 404 {string} string "medication not found"
// @Router /medications/{id} [patch]
func updateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, found, err := svc.Update(r.Context(), chi.URLParam(r, "id"), Patch{
			Name:            req.Name,
			Emoji:           req.Emoji,
			Color:           req.Color,
			DosageAmount:    req.DosageAmount,
			DosageUnit:      req.DosageUnit,
			TimesPerDay:     req.TimesPerDay,
			ReminderTimes:   req.ReminderTimes,
			Duration:        req.Duration,
			EnableReminders: req.EnableReminders,
			SnoozeInterval:  req.SnoozeInterval,
			ResetRemaining:  req.ResetRemaining,
		})
		if err != nil && !found {
			writeError(w, err)
			return
		}
		if !found {
			http.Error(w, ErrNotFound.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

// deleteHandler godoc
// @Summary Eliminar medicamento
// @Tags medications
// @Param Authorization header string true "Bearer token de sesión"
// @Param id path string true "ID del medicamento"
// @Success 204
// @Router /medications/{id} [delete]
func deleteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// deleteDoseHandler godoc
// @Summary Quitar una hora de recordatorio
// @Tags medications
// @Param Authorization header string true "Bearer token de sesión"
// @Param id path string true "ID del medicamento"
// @Param time path string true "Hora HH:MM a quitar"
// @Success 204
// @Router /medications/{id}/doses/{time} [delete]
func deleteDoseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.DeleteDose(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "time"))
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// refreshHandler godoc
// @Summary Normalizar y reprogramar
// @Description Aplica defaults a registros viejos, recalcula contadores y reprograma todo.
// @Tags medications
// @Produce json
// @Param Authorization header string true "Bearer token de sesión"
// @Success 200 {array} Medication
// @Router /medications/refresh [post]
func refreshHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.Refresh(r.Context())
		if err != nil && items == nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// logsHandler godoc
// @Summary Historial de tomas
// @Tags medications
// @Produce json
// @Param Authorization header string true "Bearer token de sesión"
// @Param id path string true "ID del medicamento"
// @Success 200 {array} DoseLog
// @Router /medications/{id}/logs [get]
func logsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := svc.Logs(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, logs)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
