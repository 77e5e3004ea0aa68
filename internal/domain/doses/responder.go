package doses

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"medipal/internal/domain/medications"
	"medipal/internal/platform/logger"
	"medipal/internal/platform/metrics"
	"medipal/internal/ports/kv"
	"medipal/internal/ports/notifier"

	"github.com/google/uuid"
)

// MinSnoozeSeconds es el piso del follow-up de "Remind later".
const MinSnoozeSeconds = 60

// Outcome describe qué hizo el responder con una respuesta.
type Outcome string

const (
	OutcomeTaken     Outcome = "taken"
	OutcomeSnoozed   Outcome = "snoozed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// Responder procesa las interacciones del usuario con notificaciones entregadas.
// Lee y escribe la lista persistida directamente (no depende del estado del Service).
type Responder struct {
	repo     medications.Repository
	notifier notifier.Scheduler
	log      logger.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	handled map[string]struct{}

	now   func() time.Time
	newID func() string
}

func NewResponder(repo medications.Repository, n notifier.Scheduler, log logger.Logger, m *metrics.Metrics) *Responder {
	if log == nil {
		log = logger.Nop()
	}
	return &Responder{
		repo:     repo,
		notifier: n,
		log:      log.With(map[string]any{"component": "doses"}),
		metrics:  m,
		handled:  map[string]struct{}{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// HandleResponse implementa notifier.ResponseHandler.
func (h *Responder) HandleResponse(ctx context.Context, r notifier.Response) error {
	_, err := h.Respond(ctx, r)
	return err
}

// Respond procesa la respuesta como mucho una vez por instancia de notificación.
func (h *Responder) Respond(ctx context.Context, r notifier.Response) (Outcome, error) {
	if r.InstanceID == "" {
		return OutcomeIgnored, errors.New("notification instance id required")
	}
	if !h.markHandled(r.InstanceID) {
		h.count(r.ActionID, OutcomeDuplicate)
		return OutcomeDuplicate, nil
	}

	var (
		out Outcome
		err error
	)
	switch r.ActionID {
	case notifier.ActionDone:
		out, err = h.done(ctx, r)
	case notifier.ActionRemindLater, notifier.ActionDefault, "":
		out, err = h.snooze(ctx, r)
	default:
		h.log.Warn("unknown notification action", map[string]any{"action": r.ActionID, "instance_id": r.InstanceID})
		out = OutcomeIgnored
	}

	if err != nil {
		h.count(r.ActionID, "error")
		return out, err
	}
	h.count(r.ActionID, out)
	return out, nil
}

func (h *Responder) done(ctx context.Context, r notifier.Response) (Outcome, error) {
	if err := h.notifier.DismissAllDelivered(ctx); err != nil {
		return OutcomeIgnored, fmt.Errorf("dismiss delivered: %w", err)
	}
	// Un follow-up de snooze es de una sola vez; el request diario sigue vivo
	// para los próximos días.
	if r.Payload.SnoozedOnce && r.RequestID != "" {
		if err := h.notifier.Cancel(ctx, r.RequestID); err != nil {
			h.log.Warn("cancel follow-up failed", map[string]any{"request_id": r.RequestID, "err": err})
		}
	}

	p := r.Payload
	if p.MedicationID != "" {
		_, err := h.repo.Mutate(ctx, func(list []medications.Medication) ([]medications.Medication, error) {
			for i, m := range list {
				if m.ID != p.MedicationID {
					continue
				}
				if !m.DosageUnit.IsCountable() {
					return nil, kv.ErrNoChange
				}
				amount := p.DosageAmount
				if amount <= 0 {
					amount = m.DosageAmount
				}
				list[i] = medications.TakeDose(m, amount)
				return list, nil
			}
			return nil, kv.ErrNoChange
		})
		if err != nil {
			return OutcomeIgnored, fmt.Errorf("decrement remaining: %w", err)
		}
	}

	h.appendLog(ctx, medications.DoseLog{
		MedicationID: p.MedicationID,
		ScheduledFor: p.ReminderTime,
		Status:       medications.DoseTaken,
	})
	return OutcomeTaken, nil
}

func (h *Responder) snooze(ctx context.Context, r notifier.Response) (Outcome, error) {
	if r.Payload.SnoozedOnce {
		return OutcomeIgnored, nil
	}

	seconds := SnoozeSeconds(r.Payload.SnoozeMinutes)
	payload := r.Payload
	payload.SnoozedOnce = true

	if _, err := h.notifier.Schedule(ctx, notifier.After(seconds), medications.ContentFor(payload)); err != nil {
		return OutcomeIgnored, fmt.Errorf("schedule follow-up: %w", err)
	}

	until := h.now().Add(time.Duration(seconds) * time.Second)
	h.appendLog(ctx, medications.DoseLog{
		MedicationID: payload.MedicationID,
		ScheduledFor: payload.ReminderTime,
		Status:       medications.DoseSnoozed,
		SnoozedUntil: &until,
	})
	return OutcomeSnoozed, nil
}

// SnoozeSeconds = max(60, minutes*60).
func SnoozeSeconds(minutes int) int {
	s := minutes * 60
	if s < MinSnoozeSeconds {
		return MinSnoozeSeconds
	}
	return s
}

func (h *Responder) markHandled(instanceID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.handled[instanceID]; ok {
		return false
	}
	h.handled[instanceID] = struct{}{}
	return true
}

// appendLog no falla la respuesta: el historial es secundario.
func (h *Responder) appendLog(ctx context.Context, l medications.DoseLog) {
	if l.MedicationID == "" {
		return
	}
	l.ID = h.newID()
	l.TakenAt = h.now().UTC()
	if err := h.repo.AppendLog(ctx, l); err != nil {
		h.log.Warn("append dose log failed", map[string]any{"medication_id": l.MedicationID, "err": err})
	}
}

func (h *Responder) count(action string, outcome Outcome) {
	if h.metrics == nil {
		return
	}
	if action == "" {
		action = notifier.ActionDefault
	}
	h.metrics.DoseResponses.WithLabelValues(action, string(outcome)).Inc()
}
