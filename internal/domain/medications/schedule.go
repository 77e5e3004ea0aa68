package medications

import (
	"context"
	"fmt"
	"sync"

	"medipal/internal/platform/logger"
	"medipal/internal/platform/metrics"
	"medipal/internal/ports/notifier"
)

const (
	reminderTitle = "Time to take your medicine"
	reminderBody  = "Tap Done after taking it."
)

// ReminderActions son los botones del category de recordatorios.
var ReminderActions = []notifier.Action{
	{ID: notifier.ActionDone, Title: "Done"},
	{ID: notifier.ActionRemindLater, Title: "Remind me later"},
}

// Reminders reconstruye el schedule completo de notificaciones a partir de la lista.
// Estrategia: cancelar todo + descartar entregadas, y volver a registrar cada hora
// como trigger diario. Las pasadas se serializan.
type Reminders struct {
	mu       sync.Mutex
	repo     Repository
	notifier notifier.Scheduler
	log      logger.Logger
	metrics  *metrics.Metrics
}

func NewReminders(repo Repository, n notifier.Scheduler, log logger.Logger, m *metrics.Metrics) *Reminders {
	if log == nil {
		log = logger.Nop()
	}
	return &Reminders{
		repo:     repo,
		notifier: n,
		log:      log.With(map[string]any{"component": "reminders"}),
		metrics:  m,
	}
}

// Setup registra el category con las acciones Done / Remind later.
func (r *Reminders) Setup(ctx context.Context) error {
	return r.notifier.RegisterCategory(ctx, notifier.CategoryMedicationReminder, ReminderActions)
}

// ReminderContent arma el contenido de la notificación para una hora de un medicamento.
func ReminderContent(m Medication, reminderTime string) notifier.Content {
	snooze := m.SnoozeInterval
	if snooze <= 0 {
		snooze = DefaultSnoozeMinutes
	}
	return ContentFor(notifier.Payload{
		MedicationID:  m.ID,
		ReminderTime:  reminderTime,
		SnoozeMinutes: snooze,
		DosageAmount:  m.DosageAmount,
		DosageUnit:    string(m.DosageUnit),
		SnoozedOnce:   false,
	})
}

// ContentFor envuelve un payload con el título y category de recordatorio.
func ContentFor(p notifier.Payload) notifier.Content {
	return notifier.Content{
		Title:    reminderTitle,
		Body:     reminderBody,
		Category: notifier.CategoryMedicationReminder,
		Payload:  p,
	}
}

// Recompute aplica el schedule para la lista dada y persiste el mapa de registros.
// Horas inválidas o registros fallidos se loguean y se saltean.
func (r *Reminders) Recompute(ctx context.Context, list []Medication) (NotificationMap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.Recomputations.Inc()
	}

	if err := r.notifier.DismissAllDelivered(ctx); err != nil {
		return nil, fmt.Errorf("dismiss delivered: %w", err)
	}
	if err := r.notifier.CancelAll(ctx); err != nil {
		return nil, fmt.Errorf("cancel scheduled: %w", err)
	}

	notifMap := NotificationMap{}
	for _, m := range list {
		if !m.EnableReminders {
			continue
		}

		ids := make([]string, 0, len(m.ReminderTimes))
		for _, t := range m.ReminderTimes {
			hour, minute, err := ParseClock(t)
			if err != nil {
				r.skip("skipping malformed reminder time", m.ID, t, err)
				continue
			}

			id, err := r.notifier.Schedule(ctx, notifier.Daily(hour, minute), ReminderContent(m, t))
			if err != nil {
				r.skip("failed to schedule notification", m.ID, t, err)
				continue
			}
			if r.metrics != nil {
				r.metrics.RemindersScheduled.Inc()
			}
			ids = append(ids, id)
		}
		if len(ids) > 0 {
			notifMap[m.ID] = ids
		}
	}

	if err := r.repo.SaveNotificationMap(ctx, notifMap); err != nil {
		return nil, fmt.Errorf("save notification map: %w", err)
	}

	r.log.Debug("schedule recomputed", map[string]any{"medications": len(list), "registered": len(notifMap)})
	return notifMap, nil
}

func (r *Reminders) skip(msg, medicationID, reminderTime string, err error) {
	if r.metrics != nil {
		r.metrics.RemindersSkipped.Inc()
	}
	r.log.Warn(msg, map[string]any{
		"medication_id": medicationID,
		"reminder_time": reminderTime,
		"err":           err,
	})
}
