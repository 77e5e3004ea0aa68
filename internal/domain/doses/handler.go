package doses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"medipal/internal/middleware"
	"medipal/internal/ports/notifier"

	"github.com/go-chi/chi/v5"
)

// Inbox expone las notificaciones entregadas por el scheduler.
type Inbox interface {
	Delivered() []notifier.Delivered
	LookupDelivered(instanceID string) (notifier.Delivered, error)
}

func RegisterRoutes(r chi.Router, h *Responder, inbox Inbox) {
	r.Route("/notifications", func(nr chi.Router) {
		nr.Use(middleware.RequireSession)

		nr.Get("/delivered", listDeliveredHandler(inbox))
		nr.Post("/{instanceID}/response", respondHandler(h, inbox))
	})
}

type respondRequest struct {
	ActionID string `json:"actionId"` // DONE | REMIND_LATER | DEFAULT
}

type respondResponse struct {
	InstanceID string  `json:"instanceId"`
	Outcome    Outcome `json:"outcome"`
}

// listDeliveredHandler godoc
// @Summary Notificaciones entregadas
// @Description Notificaciones visibles (no descartadas), más recientes al final.
// @Tags notifications
// @Produce json
// @Param Authorization header string true "Bearer token de sesión"
// @Success 200 {array} notifier.Delivered
// @Router /notifications/delivered [get]
func listDeliveredHandler(inbox Inbox) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := inbox.Delivered()
		if items == nil {
			items = []notifier.Delivered{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// respondHandler godoc
// @Summary Responder a una notificación
// @Description DONE descuenta la dosis; REMIND_LATER o DEFAULT posponen una única vez.
// @Description Una misma instancia se procesa como mucho una vez.
// @Tags notifications
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token de sesión"
// @Param instanceID path string true "ID de la instancia entregada"
// @Param payload body respondRequest true "Acción elegida"
// @Success 200 {object} respondResponse
// @Failure 404 {string} string "notification not found"
// @Router /notifications/{instanceID}/response [post]
func respondHandler(h *Responder, inbox Inbox) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instanceID := strings.TrimSpace(chi.URLParam(r, "instanceID"))

		var req respondRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		out, err := RespondTo(r.Context(), h, inbox, instanceID, req.ActionID)
		if errors.Is(err, ErrUnknownInstance) {
			http.Error(w, "notification not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, respondResponse{InstanceID: instanceID, Outcome: out})
	}
}

// ErrUnknownInstance: la instancia no está entre las entregadas visibles.
var ErrUnknownInstance = errors.New("notification not found")

// RespondTo resuelve la instancia entregada y aplica la acción. Una acción
// vacía cuenta como tap sobre la notificación.
func RespondTo(ctx context.Context, h *Responder, inbox Inbox, instanceID, actionID string) (Outcome, error) {
	d, err := inbox.LookupDelivered(strings.TrimSpace(instanceID))
	if err != nil {
		return OutcomeIgnored, ErrUnknownInstance
	}

	action := strings.ToUpper(strings.TrimSpace(actionID))
	if action == "" {
		action = notifier.ActionDefault
	}

	return h.Respond(ctx, notifier.Response{
		InstanceID: d.InstanceID,
		RequestID:  d.RequestID,
		ActionID:   action,
		Payload:    d.Content.Payload,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
