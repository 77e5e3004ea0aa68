package medications

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fields valida las reglas de carga manual compartidas por alta y edición.
type fields struct {
	Name         string     `validate:"required"`
	DosageAmount float64    `validate:"gt=0"`
	DosageUnit   DosageUnit `validate:"required,oneof=pill tablet capsule ml unit drop"`
	TimesPerDay  int        `validate:"gte=1"`
	Duration     int        `validate:"gte=1"`
	Snooze       int        `validate:"gte=0"`
}

var messages = map[string]string{
	"Name":         "medicine name is required",
	"DosageAmount": "dosage amount must be greater than 0",
	"DosageUnit":   "dosage unit must be one of pill, tablet, capsule, ml, unit, drop",
	"TimesPerDay":  "times per day must be at least 1",
	"Duration":     "duration must be at least 1 day",
	"Snooze":       "snooze interval cannot be negative",
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func validateFields(v *validator.Validate, m Medication) error {
	err := v.Struct(fields{
		Name:         strings.TrimSpace(m.Name),
		DosageAmount: m.DosageAmount,
		DosageUnit:   m.DosageUnit,
		TimesPerDay:  m.TimesPerDay,
		Duration:     m.Duration,
		Snooze:       m.SnoozeInterval,
	})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := messages[verrs[0].Field()]; ok {
			return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
		}
		return fmt.Errorf("%w: %s", ErrInvalidInput, verrs[0].Error())
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// validateSchedule exige len(times) == timesPerDay, horas sin repetir y, con
// recordatorios activos, que cada hora sea HH:MM válida. Devuelve las horas
// normalizadas; sin recordatorios las que no parsean quedan como vinieron.
func validateSchedule(m Medication) ([]string, error) {
	if len(m.ReminderTimes) != m.TimesPerDay {
		return nil, fmt.Errorf("%w: add the same number of reminder times as times per day", ErrInvalidInput)
	}

	var times []string
	if m.EnableReminders {
		n, err := normalizeTimes(m.ReminderTimes)
		if err != nil {
			return nil, err
		}
		times = n
	} else {
		times = make([]string, 0, len(m.ReminderTimes))
		for _, t := range m.ReminderTimes {
			t = strings.TrimSpace(t)
			if n, err := NormalizeTime(t); err == nil {
				t = n
			}
			times = append(times, t)
		}
	}

	seen := make(map[string]struct{}, len(times))
	for _, t := range times {
		if _, dup := seen[t]; dup {
			return nil, fmt.Errorf("%w: reminder time %s is repeated", ErrInvalidInput, t)
		}
		seen[t] = struct{}{}
	}
	return times, nil
}
