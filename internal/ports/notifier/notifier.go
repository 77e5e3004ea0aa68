package notifier

import (
	"context"
	"time"
)

// Acciones del category de recordatorios.
const (
	CategoryMedicationReminder = "MEDICATION_REMINDER"

	ActionDone        = "DONE"
	ActionRemindLater = "REMIND_LATER"
	// ActionDefault es el tap sobre la notificación (sin botón).
	ActionDefault = "DEFAULT"
)

// Trigger: diario (Hour/Minute, Repeats=true) o único (Seconds, Repeats=false).
type Trigger struct {
	Hour    int  `json:"hour,omitempty"`
	Minute  int  `json:"minute,omitempty"`
	Seconds int  `json:"seconds,omitempty"`
	Repeats bool `json:"repeats"`
}

func Daily(hour, minute int) Trigger {
	return Trigger{Hour: hour, Minute: minute, Repeats: true}
}

func After(seconds int) Trigger {
	return Trigger{Seconds: seconds, Repeats: false}
}

// Payload viaja con cada notificación de recordatorio.
type Payload struct {
	MedicationID  string  `json:"medicationId"`
	ReminderTime  string  `json:"reminderTime"`
	SnoozeMinutes int     `json:"snoozeMinutes"`
	DosageAmount  float64 `json:"dosageAmount"`
	DosageUnit    string  `json:"dosageUnit"`
	SnoozedOnce   bool    `json:"snoozedOnce"`
}

type Content struct {
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	Category string  `json:"category"`
	Payload  Payload `json:"payload"`
}

type Action struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Delivered es una ocurrencia concreta (instancia) de una notificación programada.
// Un trigger diario genera una instancia distinta por día.
type Delivered struct {
	InstanceID  string    `json:"instanceId"`
	RequestID   string    `json:"requestId"`
	Content     Content   `json:"content"`
	Repeats     bool      `json:"repeats"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

// Response es la interacción del usuario con una notificación entregada.
type Response struct {
	InstanceID string  `json:"instanceId"`
	RequestID  string  `json:"requestId"`
	ActionID   string  `json:"actionId"`
	Payload    Payload `json:"payload"`
}

// Scheduler es el servicio de notificaciones de la plataforma.
type Scheduler interface {
	Schedule(ctx context.Context, trigger Trigger, content Content) (string, error)
	Cancel(ctx context.Context, id string) error
	CancelAll(ctx context.Context) error
	DismissAllDelivered(ctx context.Context) error
	RegisterCategory(ctx context.Context, id string, actions []Action) error
}

// ResponseHandler recibe las respuestas del usuario (callback entrante).
type ResponseHandler interface {
	HandleResponse(ctx context.Context, r Response) error
}

type EventType string

const (
	EventDelivered EventType = "delivered"
	EventDismissed EventType = "dismissed"
)

// Event se publica hacia los clientes (websocket, push gateway).
type Event struct {
	Type         EventType  `json:"type"`
	Notification *Delivered `json:"notification,omitempty"`
	InstanceIDs  []string   `json:"instanceIds,omitempty"`
}

// Publisher entrega eventos de notificación a un canal externo.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
