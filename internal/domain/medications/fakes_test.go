package medications

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"medipal/internal/ports/kv"
	"medipal/internal/ports/notifier"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	mu       sync.Mutex
	list     []Medication
	notifMap NotificationMap
	logs     []DoseLog
	writes   int
}

func newTestRepo(seed ...Medication) *testRepo {
	return &testRepo{list: append([]Medication{}, seed...)}
}

func (r *testRepo) List(ctx context.Context) ([]Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Medication{}, r.list...), nil
}

func (r *testRepo) snapshot() []Medication {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Medication{}, r.list...)
}

func (r *testRepo) Mutate(ctx context.Context, fn MutateFunc) ([]Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := fn(append([]Medication{}, r.list...))
	if errors.Is(err, kv.ErrNoChange) {
		return append([]Medication{}, r.list...), nil
	}
	if err != nil {
		return nil, err
	}
	r.list = next
	r.writes++
	return append([]Medication{}, next...), nil
}

func (r *testRepo) NotificationMap(ctx context.Context) (NotificationMap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notifMap, nil
}

func (r *testRepo) SaveNotificationMap(ctx context.Context, m NotificationMap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifMap = m
	return nil
}

func (r *testRepo) AppendLog(ctx context.Context, l DoseLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, l)
	return nil
}

func (r *testRepo) ListLogs(ctx context.Context, medicationID string) ([]DoseLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []DoseLog{}
	for _, l := range r.logs {
		if l.MedicationID == medicationID {
			out = append(out, l)
		}
	}
	return out, nil
}

// -------------------------
// Test scheduler
// -------------------------

type scheduled struct {
	Trigger notifier.Trigger
	Content notifier.Content
}

type testScheduler struct {
	mu         sync.Mutex
	seq        int
	active     map[string]scheduled
	dismissals int
	failOn     string // reminderTime que falla al registrar
}

func newTestScheduler() *testScheduler {
	return &testScheduler{active: map[string]scheduled{}}
}

func (s *testScheduler) Schedule(ctx context.Context, t notifier.Trigger, c notifier.Content) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != "" && c.Payload.ReminderTime == s.failOn {
		return "", errors.New("scheduler unavailable")
	}
	s.seq++
	id := fmt.Sprintf("n%d", s.seq)
	s.active[id] = scheduled{Trigger: t, Content: c}
	return id, nil
}

func (s *testScheduler) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
	return nil
}

func (s *testScheduler) CancelAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = map[string]scheduled{}
	return nil
}

func (s *testScheduler) DismissAllDelivered(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dismissals++
	return nil
}

func (s *testScheduler) RegisterCategory(ctx context.Context, id string, actions []notifier.Action) error {
	return nil
}

// pairs devuelve el set (medicationId, time) activo.
func (s *testScheduler) pairs() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]bool{}
	for _, sc := range s.active {
		out[sc.Content.Payload.MedicationID+"@"+sc.Content.Payload.ReminderTime] = true
	}
	return out
}

func newTestService(seed ...Medication) (*Service, *testRepo, *testScheduler) {
	repo := newTestRepo(seed...)
	sched := newTestScheduler()
	svc := NewService(repo, NewReminders(repo, sched, nil, nil), nil)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("med-%d", n)
	}
	return svc, repo, sched
}
