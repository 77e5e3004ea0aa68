package medications

import (
	"context"
	"errors"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrMalformedTime = errors.New("malformed reminder time")
	ErrNotFound      = errors.New("medication not found")
)

// MutateFunc recibe la lista persistida más reciente y devuelve la nueva.
// Devolver kv.ErrNoChange aborta sin escribir.
type MutateFunc func(list []Medication) ([]Medication, error)

// Repository persiste la lista completa de medicamentos y sus datos asociados.
// Mutate es un read-modify-write atómico sobre la lista.
type Repository interface {
	List(ctx context.Context) ([]Medication, error)
	Mutate(ctx context.Context, fn MutateFunc) ([]Medication, error)

	NotificationMap(ctx context.Context) (NotificationMap, error)
	SaveNotificationMap(ctx context.Context, m NotificationMap) error

	AppendLog(ctx context.Context, l DoseLog) error
	ListLogs(ctx context.Context, medicationID string) ([]DoseLog, error)
}
