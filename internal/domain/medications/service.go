package medications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medipal/internal/platform/logger"
	"medipal/internal/ports/kv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service struct {
	repo      Repository
	reminders *Reminders
	validate  *validator.Validate
	log       logger.Logger

	now   func() time.Time
	newID func() string
}

func NewService(repo Repository, reminders *Reminders, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:      repo,
		reminders: reminders,
		validate:  newValidator(),
		log:       log.With(map[string]any{"component": "medications"}),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

type CreateInput struct {
	ID              string // opcional; si viene vacío se genera
	Name            string
	Emoji           string
	Color           string
	DosageAmount    float64
	DosageUnit      DosageUnit
	TimesPerDay     int
	ReminderTimes   []string
	Duration        int
	StartDate       *time.Time
	EnableReminders bool
	SnoozeInterval  int
}

// Patch: punteros nil = no tocar. ReminderTimes reemplaza la lista completa.
type Patch struct {
	Name            *string
	Emoji           *string
	Color           *string
	DosageAmount    *float64
	DosageUnit      *DosageUnit
	TimesPerDay     *int
	ReminderTimes   *[]string
	Duration        *int
	EnableReminders *bool
	SnoozeInterval  *int

	// ResetRemaining vuelve remainingAmount a totalAmount.
	ResetRemaining bool
}

func (s *Service) List(ctx context.Context) ([]Medication, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Medication, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return Medication{}, err
	}
	for _, m := range list {
		if m.ID == id {
			return m, nil
		}
	}
	return Medication{}, ErrNotFound
}

func (s *Service) Add(ctx context.Context, in CreateInput) (Medication, error) {
	snooze := in.SnoozeInterval
	if snooze == 0 {
		snooze = DefaultSnoozeMinutes
	}
	start := in.StartDate
	if start == nil {
		t := s.now().UTC()
		start = &t
	}

	m := Medication{
		ID:              strings.TrimSpace(in.ID),
		Name:            strings.TrimSpace(in.Name),
		Emoji:           in.Emoji,
		Color:           in.Color,
		DosageAmount:    in.DosageAmount,
		DosageUnit:      in.DosageUnit,
		TimesPerDay:     in.TimesPerDay,
		ReminderTimes:   append([]string{}, in.ReminderTimes...),
		Duration:        in.Duration,
		StartDate:       start,
		EnableReminders: in.EnableReminders,
		SnoozeInterval:  snooze,
	}

	if err := validateFields(s.validate, m); err != nil {
		return Medication{}, err
	}
	times, err := validateSchedule(m)
	if err != nil {
		return Medication{}, err
	}
	m.ReminderTimes = times

	if m.ID == "" {
		m.ID = s.newID()
	}
	m.Dosage = dosageLabel(m.DosageAmount, m.DosageUnit)
	m.Frequency = len(m.ReminderTimes)
	m.RemainingAmount = nil
	m = ApplyCounts(m)

	list, err := s.repo.Mutate(ctx, func(list []Medication) ([]Medication, error) {
		for _, existing := range list {
			if existing.ID == m.ID {
				return nil, fmt.Errorf("%w: id %s already exists", ErrInvalidInput, m.ID)
			}
		}
		return append(list, m), nil
	})
	if err != nil {
		return Medication{}, err
	}

	s.log.Info("medication added", map[string]any{"medication_id": m.ID, "times": m.ReminderTimes})
	return m, s.recompute(ctx, list)
}

// Update reemplaza los campos presentes en el patch. Un id desconocido es un
// no-op (found=false): no se persiste ni se reprograma nada.
func (s *Service) Update(ctx context.Context, id string, p Patch) (Medication, bool, error) {
	id = strings.TrimSpace(id)

	var (
		updated Medication
		found   bool
	)
	list, err := s.repo.Mutate(ctx, func(list []Medication) ([]Medication, error) {
		// El backend puede reintentar fn (Redis WATCH): nada del intento anterior sobrevive.
		updated, found = Medication{}, false

		next := make([]Medication, 0, len(list))
		for _, m := range list {
			if m.ID != id {
				next = append(next, m)
				continue
			}
			merged, err := s.merge(m, p)
			if err != nil {
				return nil, err
			}
			found = true
			updated = merged
			next = append(next, merged)
		}
		if !found {
			return nil, kv.ErrNoChange
		}
		return next, nil
	})
	if err != nil {
		return Medication{}, false, err
	}
	if !found {
		s.log.Warn("update on unknown medication ignored", map[string]any{"medication_id": id})
		return Medication{}, false, nil
	}

	return updated, true, s.recompute(ctx, list)
}

func (s *Service) merge(m Medication, p Patch) (Medication, error) {
	if p.Name != nil {
		m.Name = strings.TrimSpace(*p.Name)
	}
	if p.Emoji != nil {
		m.Emoji = *p.Emoji
	}
	if p.Color != nil {
		m.Color = *p.Color
	}
	if p.DosageAmount != nil {
		m.DosageAmount = *p.DosageAmount
	}
	if p.DosageUnit != nil {
		m.DosageUnit = *p.DosageUnit
	}
	if p.TimesPerDay != nil {
		m.TimesPerDay = *p.TimesPerDay
	}
	if p.ReminderTimes != nil {
		m.ReminderTimes = append([]string{}, (*p.ReminderTimes)...)
	}
	if p.Duration != nil {
		m.Duration = *p.Duration
	}
	if p.EnableReminders != nil {
		m.EnableReminders = *p.EnableReminders
	}
	if p.SnoozeInterval != nil {
		m.SnoozeInterval = *p.SnoozeInterval
	}

	if err := validateFields(s.validate, m); err != nil {
		return Medication{}, err
	}
	// Las reglas de horarios solo se exigen si el patch los toca: registros
	// viejos pueden no cumplirlas y igual deben poder renombrarse.
	if p.ReminderTimes != nil || p.TimesPerDay != nil || p.EnableReminders != nil {
		times, err := validateSchedule(m)
		if err != nil {
			return Medication{}, err
		}
		m.ReminderTimes = times
	}

	if p.DosageAmount != nil || p.DosageUnit != nil {
		m.Dosage = dosageLabel(m.DosageAmount, m.DosageUnit)
	}
	m.Frequency = len(m.ReminderTimes)
	if p.ResetRemaining {
		m.RemainingAmount = nil
	}
	return ApplyCounts(m), nil
}

// Delete quita el medicamento; el recompute cancela sus notificaciones.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	list, err := s.repo.Mutate(ctx, func(list []Medication) ([]Medication, error) {
		next := make([]Medication, 0, len(list))
		for _, m := range list {
			if m.ID != id {
				next = append(next, m)
			}
		}
		return next, nil
	})
	if err != nil {
		return err
	}

	s.log.Info("medication deleted", map[string]any{"medication_id": id})
	return s.recompute(ctx, list)
}

// DeleteDose quita una hora de recordatorio. Si era la última, el registro
// queda (con recordatorios activos y cero horas).
func (s *Service) DeleteDose(ctx context.Context, id, reminderTime string) error {
	id = strings.TrimSpace(id)
	target := strings.TrimSpace(reminderTime)

	list, err := s.repo.Mutate(ctx, func(list []Medication) ([]Medication, error) {
		next := make([]Medication, 0, len(list))
		for _, m := range list {
			if m.ID == id {
				m = removeDose(m, target)
			}
			next = append(next, m)
		}
		return next, nil
	})
	if err != nil {
		return err
	}

	return s.recompute(ctx, list)
}

// removeDose quita solo la primera hora que coincide (registros viejos pueden
// tener horas repetidas o sin normalizar).
func removeDose(m Medication, reminderTime string) Medication {
	times := make([]string, 0, len(m.ReminderTimes))
	removed := false
	for _, t := range m.ReminderTimes {
		if !removed && SameTime(t, reminderTime) {
			removed = true
			continue
		}
		times = append(times, t)
	}
	m.ReminderTimes = times
	m.Frequency = len(times)
	if len(times) > 0 {
		m.TimesPerDay = len(times)
	}
	return ApplyCounts(m)
}

// Refresh recarga la lista persistida, normaliza registros viejos, persiste el
// resultado y reprograma todo.
func (s *Service) Refresh(ctx context.Context) ([]Medication, error) {
	list, err := s.repo.Mutate(ctx, func(list []Medication) ([]Medication, error) {
		if len(list) == 0 {
			return nil, kv.ErrNoChange
		}
		next := make([]Medication, 0, len(list))
		for _, m := range list {
			m.Frequency = len(m.ReminderTimes)
			next = append(next, ApplyCounts(m))
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.recompute(ctx, list); err != nil {
		return list, err
	}
	return list, nil
}

func (s *Service) Logs(ctx context.Context, medicationID string) ([]DoseLog, error) {
	return s.repo.ListLogs(ctx, strings.TrimSpace(medicationID))
}

func (s *Service) recompute(ctx context.Context, list []Medication) error {
	if s.reminders == nil {
		return nil
	}
	if _, err := s.reminders.Recompute(ctx, list); err != nil {
		s.log.Error("schedule recompute failed", map[string]any{"err": err})
		return fmt.Errorf("recompute schedule: %w", err)
	}
	return nil
}

// IsValidation indica si err es un error de validación de entrada.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrMalformedTime)
}
