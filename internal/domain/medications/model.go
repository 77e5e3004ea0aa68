package medications

import (
	"encoding/json"
	"time"
)

// DosageUnit define las unidades de dosis soportadas.
// @Enum pill, tablet, capsule, ml, unit, drop
type DosageUnit string

const (
	UnitPill    DosageUnit = "pill"
	UnitTablet  DosageUnit = "tablet"
	UnitCapsule DosageUnit = "capsule"
	UnitML      DosageUnit = "ml"
	UnitUnit    DosageUnit = "unit"
	UnitDrop    DosageUnit = "drop"
)

// IsCountable: unidades contables (pill/tablet/capsule) llevan total/remaining.
func (u DosageUnit) IsCountable() bool {
	switch u {
	case UnitPill, UnitTablet, UnitCapsule:
		return true
	default:
		return false
	}
}

const (
	DefaultSnoozeMinutes = 10
	DefaultDosageAmount  = 1
	DefaultDosageUnit    = UnitPill
	DefaultDosageLabel   = "Dose"
)

// Medication es un tratamiento que el usuario sigue, con su configuración de recordatorios.
type Medication struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
	Color string `json:"color"`

	Dosage       string     `json:"dosage"` // etiqueta: "1 pill"
	DosageAmount float64    `json:"dosageAmount"`
	DosageUnit   DosageUnit `json:"dosageUnit"`

	TimesPerDay   int      `json:"timesPerDay"`
	Frequency     int      `json:"frequency"` // siempre len(ReminderTimes)
	ReminderTimes []string `json:"reminderTimes"`

	Duration  int        `json:"duration"` // días
	StartDate *time.Time `json:"startDate,omitempty"`

	EnableReminders bool `json:"enableReminders"`
	SnoozeInterval  int  `json:"snoozeInterval"` // minutos

	// Solo para unidades contables.
	TotalAmount     *float64 `json:"totalAmount,omitempty"`
	RemainingAmount *float64 `json:"remainingAmount,omitempty"`
}

// UnmarshalJSON completa defaults para registros guardados antes de que
// existieran ciertos campos (ausente != valor cero).
func (m *Medication) UnmarshalJSON(b []byte) error {
	type alias Medication
	aux := struct {
		*alias
		Dosage          *string     `json:"dosage"`
		DosageAmount    *float64    `json:"dosageAmount"`
		DosageUnit      *DosageUnit `json:"dosageUnit"`
		TimesPerDay     *int        `json:"timesPerDay"`
		SnoozeInterval  *int        `json:"snoozeInterval"`
		EnableReminders *bool       `json:"enableReminders"`
	}{alias: (*alias)(m)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	if m.ReminderTimes == nil {
		m.ReminderTimes = []string{}
	}

	m.Dosage = DefaultDosageLabel
	if aux.Dosage != nil {
		m.Dosage = *aux.Dosage
	}
	m.DosageAmount = DefaultDosageAmount
	if aux.DosageAmount != nil {
		m.DosageAmount = *aux.DosageAmount
	}
	m.DosageUnit = DefaultDosageUnit
	if aux.DosageUnit != nil && *aux.DosageUnit != "" {
		m.DosageUnit = *aux.DosageUnit
	}
	m.TimesPerDay = len(m.ReminderTimes)
	if aux.TimesPerDay != nil {
		m.TimesPerDay = *aux.TimesPerDay
	}
	if m.TimesPerDay == 0 {
		m.TimesPerDay = 1
	}
	m.SnoozeInterval = DefaultSnoozeMinutes
	if aux.SnoozeInterval != nil {
		m.SnoozeInterval = *aux.SnoozeInterval
	}
	m.EnableReminders = true
	if aux.EnableReminders != nil {
		m.EnableReminders = *aux.EnableReminders
	}
	return nil
}

// NotificationMap: medicationID -> ids de notificación activos.
type NotificationMap map[string][]string

type DoseStatus string

const (
	DoseTaken   DoseStatus = "taken"
	DoseSkipped DoseStatus = "skipped"
	DoseSnoozed DoseStatus = "snoozed"
)

// DoseLog registra una interacción con un recordatorio.
type DoseLog struct {
	ID           string     `json:"id"`
	MedicationID string     `json:"medicationId"`
	TakenAt      time.Time  `json:"takenAt"`
	ScheduledFor string     `json:"scheduledFor"` // HH:MM
	Status       DoseStatus `json:"status"`
	SnoozedUntil *time.Time `json:"snoozedUntil,omitempty"`
}
