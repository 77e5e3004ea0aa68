package local

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"medipal/internal/platform/logger"
	"medipal/internal/platform/metrics"
	"medipal/internal/ports/notifier"

	"github.com/google/uuid"
)

const (
	defaultTick         = time.Second
	defaultMaxDelivered = 100
)

var (
	ErrInvalidTrigger = errors.New("invalid trigger")
	ErrNotDelivered   = errors.New("notification not delivered")
)

type request struct {
	id      string
	trigger notifier.Trigger
	content notifier.Content
	next    time.Time
}

// Scheduler es un servicio de notificaciones en proceso: dispara triggers
// diarios en la hora local y triggers únicos tras N segundos. Cada disparo
// genera una instancia entregada que se publica a los Publishers.
type Scheduler struct {
	mu         sync.Mutex
	pending    map[string]*request
	delivered  []notifier.Delivered
	categories map[string][]notifier.Action

	publishers   []notifier.Publisher
	tick         time.Duration
	maxDelivered int
	now          func() time.Time

	log     logger.Logger
	metrics *metrics.Metrics
}

type Options struct {
	Tick       time.Duration
	Publishers []notifier.Publisher
	Logger     logger.Logger
	Metrics    *metrics.Metrics // opcional
}

func New(opts Options) *Scheduler {
	tick := opts.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		pending:      make(map[string]*request),
		categories:   make(map[string][]notifier.Action),
		publishers:   opts.Publishers,
		tick:         tick,
		maxDelivered: defaultMaxDelivered,
		now:          time.Now,
		log:          log.With(map[string]any{"component": "local_notifier"}),
		metrics:      opts.Metrics,
	}
}

// AddPublisher registra un canal de entrega adicional. Llamar antes de Run.
func (s *Scheduler) AddPublisher(p notifier.Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishers = append(s.publishers, p)
}

func (s *Scheduler) Schedule(ctx context.Context, trigger notifier.Trigger, content notifier.Content) (string, error) {
	if err := validateTrigger(trigger); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	req := &request{
		id:      uuid.NewString(),
		trigger: trigger,
		content: content,
	}
	if trigger.Repeats {
		req.next = nextDaily(now, trigger.Hour, trigger.Minute)
	} else {
		req.next = now.Add(time.Duration(trigger.Seconds) * time.Second)
	}
	s.pending[req.id] = req
	return req.id, nil
}

func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Cancelar un id desconocido no es error (ya disparó o fue reemplazado).
	delete(s.pending, strings.TrimSpace(id))
	return nil
}

func (s *Scheduler) CancelAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = make(map[string]*request)
	return nil
}

func (s *Scheduler) DismissAllDelivered(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.delivered))
	for _, d := range s.delivered {
		ids = append(ids, d.InstanceID)
	}
	s.delivered = nil
	s.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	s.publish(ctx, notifier.Event{Type: notifier.EventDismissed, InstanceIDs: ids})
	return nil
}

func (s *Scheduler) RegisterCategory(ctx context.Context, id string, actions []notifier.Action) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("category id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.categories[id] = append([]notifier.Action(nil), actions...)
	return nil
}

// Category devuelve las acciones registradas para un category.
func (s *Scheduler) Category(id string) ([]notifier.Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.categories[id]
	return append([]notifier.Action(nil), a...), ok
}

// Delivered lista las notificaciones visibles (más recientes al final).
func (s *Scheduler) Delivered() []notifier.Delivered {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]notifier.Delivered(nil), s.delivered...)
}

// LookupDelivered busca una instancia visible por id.
func (s *Scheduler) LookupDelivered(instanceID string) (notifier.Delivered, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.delivered {
		if d.InstanceID == instanceID {
			return d, nil
		}
	}
	return notifier.Delivered{}, ErrNotDelivered
}

// PendingCount: cantidad de requests programados (activos).
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Run dispara los triggers vencidos en cada tick hasta que ctx se cancela.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.DispatchDue(ctx, s.now())
		}
	}
}

// DispatchDue entrega todo lo vencido a `now`. Un trigger diario atrasado
// varios días dispara una sola vez y se reprograma para la próxima hora futura.
func (s *Scheduler) DispatchDue(ctx context.Context, now time.Time) []notifier.Delivered {
	s.mu.Lock()
	due := make([]*request, 0)
	for _, r := range s.pending {
		if !r.next.After(now) {
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].next.Equal(due[j].next) {
			return due[i].id < due[j].id
		}
		return due[i].next.Before(due[j].next)
	})

	out := make([]notifier.Delivered, 0, len(due))
	for _, r := range due {
		d := notifier.Delivered{
			InstanceID:  fmt.Sprintf("%s:%d", r.id, r.next.Unix()),
			RequestID:   r.id,
			Content:     r.content,
			Repeats:     r.trigger.Repeats,
			DeliveredAt: now,
		}
		out = append(out, d)
		s.delivered = append(s.delivered, d)

		if r.trigger.Repeats {
			r.next = nextDaily(now, r.trigger.Hour, r.trigger.Minute)
		} else {
			delete(s.pending, r.id)
		}
	}
	if extra := len(s.delivered) - s.maxDelivered; extra > 0 {
		s.delivered = append([]notifier.Delivered(nil), s.delivered[extra:]...)
	}
	s.mu.Unlock()

	for i := range out {
		d := out[i]
		if s.metrics != nil {
			s.metrics.Deliveries.Inc()
		}
		s.log.Info("notification delivered", map[string]any{
			"instance_id":   d.InstanceID,
			"medication_id": d.Content.Payload.MedicationID,
			"reminder_time": d.Content.Payload.ReminderTime,
		})
		s.publish(ctx, notifier.Event{Type: notifier.EventDelivered, Notification: &d})
	}
	return out
}

func (s *Scheduler) publish(ctx context.Context, e notifier.Event) {
	s.mu.Lock()
	pubs := append([]notifier.Publisher(nil), s.publishers...)
	s.mu.Unlock()

	for _, p := range pubs {
		if err := p.Publish(ctx, e); err != nil {
			s.log.Warn("publish failed", map[string]any{"type": e.Type, "err": err})
		}
	}
}

func validateTrigger(t notifier.Trigger) error {
	if t.Repeats {
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			return fmt.Errorf("%w: %02d:%02d", ErrInvalidTrigger, t.Hour, t.Minute)
		}
		return nil
	}
	if t.Seconds <= 0 {
		return fmt.Errorf("%w: seconds must be positive", ErrInvalidTrigger)
	}
	return nil
}

// nextDaily: próxima ocurrencia estrictamente posterior a now de HH:MM (hora local de now).
func nextDaily(now time.Time, hour, minute int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

var _ notifier.Scheduler = (*Scheduler)(nil)
