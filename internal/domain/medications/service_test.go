package medications

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func pillInput() CreateInput {
	return CreateInput{
		Name:            "Ibuprofen",
		Emoji:           "💊",
		Color:           "#ff0000",
		DosageAmount:    1,
		DosageUnit:      UnitPill,
		TimesPerDay:     2,
		ReminderTimes:   []string{"08:00", "20:00"},
		Duration:        7,
		EnableReminders: true,
	}
}

func TestAdd_CountableTotals(t *testing.T) {
	ctx := context.Background()
	svc, repo, sched := newTestService()

	m, err := svc.Add(ctx, pillInput())
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if m.TotalAmount == nil || *m.TotalAmount != 14 {
		t.Fatalf("expected totalAmount=14, got %v", m.TotalAmount)
	}
	if m.RemainingAmount == nil || *m.RemainingAmount != 14 {
		t.Fatalf("expected remainingAmount=14, got %v", m.RemainingAmount)
	}
	if m.Frequency != 2 {
		t.Fatalf("expected frequency=2, got %d", m.Frequency)
	}
	if m.Dosage != "1 pill" {
		t.Fatalf("expected dosage label '1 pill', got %q", m.Dosage)
	}
	if m.SnoozeInterval != DefaultSnoozeMinutes {
		t.Fatalf("expected default snooze, got %d", m.SnoozeInterval)
	}
	if m.StartDate == nil {
		t.Fatalf("expected startDate set")
	}

	if len(repo.list) != 1 {
		t.Fatalf("expected 1 persisted medication, got %d", len(repo.list))
	}
	if got := len(repo.notifMap[m.ID]); got != 2 {
		t.Fatalf("expected 2 registered notifications, got %d", got)
	}
	want := map[string]bool{m.ID + "@08:00": true, m.ID + "@20:00": true}
	if !reflect.DeepEqual(sched.pairs(), want) {
		t.Fatalf("unexpected schedule: %v", sched.pairs())
	}
}

func TestAdd_NonCountableHasNoCounters(t *testing.T) {
	svc, repo, _ := newTestService()

	in := pillInput()
	in.DosageUnit = UnitML
	in.DosageAmount = 5
	m, err := svc.Add(context.Background(), in)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if m.TotalAmount != nil || m.RemainingAmount != nil {
		t.Fatalf("expected no counters for ml, got %v/%v", m.TotalAmount, m.RemainingAmount)
	}

	b, _ := json.Marshal(repo.list[0])
	var raw map[string]any
	_ = json.Unmarshal(b, &raw)
	if _, ok := raw["totalAmount"]; ok {
		t.Fatalf("totalAmount should be omitted: %s", b)
	}
}

func TestAdd_NormalizesAndRejectsTimes(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	in := pillInput()
	in.ReminderTimes = []string{"8:5", "20:00"}
	m, err := svc.Add(ctx, in)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !reflect.DeepEqual(m.ReminderTimes, []string{"08:05", "20:00"}) {
		t.Fatalf("unexpected times: %v", m.ReminderTimes)
	}

	in.ReminderTimes = []string{"24:00", "20:00"}
	_, err = svc.Add(ctx, in)
	if !errors.Is(err, ErrMalformedTime) {
		t.Fatalf("expected ErrMalformedTime, got %v", err)
	}
}

func TestAdd_Validation(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*CreateInput)
	}{
		{"empty name", func(in *CreateInput) { in.Name = "  " }},
		{"zero amount", func(in *CreateInput) { in.DosageAmount = 0 }},
		{"zero duration", func(in *CreateInput) { in.Duration = 0 }},
		{"zero times per day", func(in *CreateInput) { in.TimesPerDay = 0; in.ReminderTimes = nil }},
		{"times mismatch", func(in *CreateInput) { in.TimesPerDay = 3 }},
		{"unknown unit", func(in *CreateInput) { in.DosageUnit = "spoon" }},
		{"repeated times", func(in *CreateInput) { in.ReminderTimes = []string{"08:00", "8:00"} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, _ := newTestService()
			in := pillInput()
			tc.mod(&in)

			_, err := svc.Add(context.Background(), in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !IsValidation(err) {
				t.Fatalf("expected IsValidation true")
			}
			if repo.writes != 0 {
				t.Fatalf("nothing should be persisted")
			}
		})
	}
}

func TestUpdate_ReplacesFieldsAndKeepsFrequency(t *testing.T) {
	ctx := context.Background()
	svc, _, sched := newTestService()

	m, err := svc.Add(ctx, pillInput())
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	times := []string{"07:00", "13:00", "21:30"}
	tpd := 3
	name := "Ibuprofen 400"
	up, found, err := svc.Update(ctx, m.ID, Patch{Name: &name, TimesPerDay: &tpd, ReminderTimes: &times})
	if err != nil || !found {
		t.Fatalf("Update: found=%v err=%v", found, err)
	}

	if up.Name != name || up.Frequency != 3 || len(up.ReminderTimes) != 3 {
		t.Fatalf("unexpected update result: %+v", up)
	}
	if *up.TotalAmount != 21 {
		t.Fatalf("expected total 21, got %v", *up.TotalAmount)
	}
	// remaining conserva el valor previo (14), acotado al nuevo total.
	if *up.RemainingAmount != 14 {
		t.Fatalf("expected remaining 14, got %v", *up.RemainingAmount)
	}
	if len(sched.pairs()) != 3 {
		t.Fatalf("expected 3 active reminders, got %v", sched.pairs())
	}
}

func TestUpdate_ResetRemaining(t *testing.T) {
	ctx := context.Background()
	rem := 3.0
	seed := Medication{ID: "a", Name: "A", DosageAmount: 1, DosageUnit: UnitPill, TimesPerDay: 1,
		ReminderTimes: []string{"09:00"}, Frequency: 1, Duration: 10, RemainingAmount: &rem, EnableReminders: true}
	svc, _, _ := newTestService(ApplyCounts(seed))

	up, found, err := svc.Update(ctx, "a", Patch{ResetRemaining: true})
	if err != nil || !found {
		t.Fatalf("Update: found=%v err=%v", found, err)
	}
	if *up.RemainingAmount != 10 {
		t.Fatalf("expected remaining reset to 10, got %v", *up.RemainingAmount)
	}
}

func TestUpdate_UnknownIDIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, repo, sched := newTestService()

	if _, err := svc.Add(ctx, pillInput()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	writes := repo.writes
	before := sched.pairs()

	name := "ghost"
	_, found, err := svc.Update(ctx, "missing", Patch{Name: &name})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if found {
		t.Fatalf("expected found=false")
	}
	if repo.writes != writes {
		t.Fatalf("unknown id should not persist")
	}
	if !reflect.DeepEqual(before, sched.pairs()) {
		t.Fatalf("unknown id should not reschedule")
	}
}

func TestUpdate_RejectsMalformedTimes(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	m, _ := svc.Add(ctx, pillInput())
	times := []string{"08:00", "25:10"}
	_, _, err := svc.Update(ctx, m.ID, Patch{ReminderTimes: &times})
	if !errors.Is(err, ErrMalformedTime) {
		t.Fatalf("expected ErrMalformedTime, got %v", err)
	}
}

func TestDelete_CancelsReminders(t *testing.T) {
	ctx := context.Background()
	svc, repo, sched := newTestService()

	a, _ := svc.Add(ctx, pillInput())
	in := pillInput()
	in.Name = "Vitamin D"
	in.TimesPerDay = 1
	in.ReminderTimes = []string{"10:00"}
	b, _ := svc.Add(ctx, in)

	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if len(repo.list) != 1 || repo.list[0].ID != b.ID {
		t.Fatalf("unexpected list after delete: %+v", repo.list)
	}
	want := map[string]bool{b.ID + "@10:00": true}
	if !reflect.DeepEqual(sched.pairs(), want) {
		t.Fatalf("unexpected schedule: %v", sched.pairs())
	}
	if _, ok := repo.notifMap[a.ID]; ok {
		t.Fatalf("deleted medication still in notification map")
	}
}

func TestDeleteDose_FrequencyAndCounters(t *testing.T) {
	ctx := context.Background()
	svc, repo, sched := newTestService()

	m, _ := svc.Add(ctx, pillInput())

	if err := svc.DeleteDose(ctx, m.ID, "20:00"); err != nil {
		t.Fatalf("DeleteDose: %v", err)
	}
	got := repo.list[0]
	if got.Frequency != 1 || len(got.ReminderTimes) != 1 || got.TimesPerDay != 1 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if *got.TotalAmount != 7 || *got.RemainingAmount != 7 {
		t.Fatalf("expected counters 7/7, got %v/%v", *got.TotalAmount, *got.RemainingAmount)
	}

	// La última hora: el registro queda, con recordatorios activos y sin notificaciones.
	if err := svc.DeleteDose(ctx, m.ID, "8:00"); err != nil {
		t.Fatalf("DeleteDose: %v", err)
	}
	got = repo.list[0]
	if got.Frequency != 0 || len(got.ReminderTimes) != 0 || !got.EnableReminders {
		t.Fatalf("unexpected record after last dose: %+v", got)
	}
	if len(sched.pairs()) != 0 {
		t.Fatalf("expected empty schedule, got %v", sched.pairs())
	}
}

func TestDeleteDose_RemindersDisabled(t *testing.T) {
	ctx := context.Background()
	svc, repo, sched := newTestService()

	in := pillInput()
	in.EnableReminders = false
	in.ReminderTimes = []string{"8:5", "20:00"}
	m, err := svc.Add(ctx, in)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !reflect.DeepEqual(m.ReminderTimes, []string{"08:05", "20:00"}) {
		t.Fatalf("expected normalized times, got %v", m.ReminderTimes)
	}

	if err := svc.DeleteDose(ctx, m.ID, "8:5"); err != nil {
		t.Fatalf("DeleteDose: %v", err)
	}
	got := repo.list[0]
	if !reflect.DeepEqual(got.ReminderTimes, []string{"20:00"}) || got.Frequency != 1 || got.TimesPerDay != 1 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if len(sched.pairs()) != 0 {
		t.Fatalf("reminders disabled should not schedule, got %v", sched.pairs())
	}
}

func TestDeleteDose_LegacyUnnormalizedTimes(t *testing.T) {
	ctx := context.Background()
	legacy := Medication{
		ID:            "old",
		Name:          "Aspirin",
		DosageAmount:  1,
		DosageUnit:    UnitPill,
		TimesPerDay:   2,
		Frequency:     2,
		ReminderTimes: []string{"9:0", "21:00"},
		Duration:      5,
	}
	svc, repo, _ := newTestService(legacy)

	if err := svc.DeleteDose(ctx, "old", "09:00"); err != nil {
		t.Fatalf("DeleteDose: %v", err)
	}
	got := repo.list[0]
	if !reflect.DeepEqual(got.ReminderTimes, []string{"21:00"}) || got.Frequency != 1 || got.TimesPerDay != 1 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if *got.TotalAmount != 5 {
		t.Fatalf("expected total 5, got %v", *got.TotalAmount)
	}
}

func TestDeleteDose_RepeatedTimeRemovesOne(t *testing.T) {
	ctx := context.Background()
	legacy := Medication{
		ID:            "old",
		Name:          "Aspirin",
		DosageAmount:  1,
		DosageUnit:    UnitPill,
		TimesPerDay:   2,
		Frequency:     2,
		ReminderTimes: []string{"08:00", "08:00"},
		Duration:      5,
	}
	svc, repo, _ := newTestService(legacy)

	if err := svc.DeleteDose(ctx, "old", "08:00"); err != nil {
		t.Fatalf("DeleteDose: %v", err)
	}
	got := repo.list[0]
	if !reflect.DeepEqual(got.ReminderTimes, []string{"08:00"}) || got.Frequency != 1 || got.TimesPerDay != 1 {
		t.Fatalf("expected exactly one entry removed, got %+v", got)
	}
}

// retryingRepo corre fn una vez contra el estado viejo y luego simula una
// escritura concurrente que borra todo antes del intento que vale.
type retryingRepo struct {
	*testRepo
}

func (r retryingRepo) Mutate(ctx context.Context, fn MutateFunc) ([]Medication, error) {
	if _, err := fn(r.testRepo.snapshot()); err != nil {
		return nil, err
	}
	r.testRepo.mu.Lock()
	r.testRepo.list = nil
	r.testRepo.mu.Unlock()
	return r.testRepo.Mutate(ctx, fn)
}

func TestUpdate_RetriedMutationForgetsPreviousAttempt(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(Medication{
		ID:            "m1",
		Name:          "Aspirin",
		DosageAmount:  1,
		DosageUnit:    UnitPill,
		TimesPerDay:   1,
		Frequency:     1,
		ReminderTimes: []string{"08:00"},
		Duration:      5,
	})
	svc := NewService(retryingRepo{repo}, nil, nil)

	name := "renamed"
	got, found, err := svc.Update(ctx, "m1", Patch{Name: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if found || got.ID != "" {
		t.Fatalf("expected not found after retry, got found=%v %+v", found, got)
	}
	if len(repo.list) != 0 {
		t.Fatalf("retry must not resurrect the record: %+v", repo.list)
	}
}

func TestRefresh_NormalizesLegacyRecords(t *testing.T) {
	ctx := context.Background()

	var legacy []Medication
	raw := `[{"id":"old","name":"Aspirin","reminderTimes":["09:00","21:00"],"duration":5}]`
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	svc, repo, sched := newTestService(legacy...)
	list, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	m := list[0]
	if m.DosageAmount != 1 || m.DosageUnit != UnitPill || m.Dosage != DefaultDosageLabel {
		t.Fatalf("dosage defaults not applied: %+v", m)
	}
	if m.SnoozeInterval != 10 || !m.EnableReminders || m.TimesPerDay != 2 || m.Frequency != 2 {
		t.Fatalf("defaults not applied: %+v", m)
	}
	if *m.TotalAmount != 10 || *m.RemainingAmount != 10 {
		t.Fatalf("expected counters 10/10, got %v/%v", *m.TotalAmount, *m.RemainingAmount)
	}
	if repo.writes != 1 {
		t.Fatalf("expected normalized list persisted")
	}
	if len(sched.pairs()) != 2 {
		t.Fatalf("expected 2 reminders, got %v", sched.pairs())
	}
}

func TestRemainingNeverIncreases(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()
	m, _ := svc.Add(ctx, pillInput())

	prev := *m.RemainingAmount
	for i := 0; i < 20; i++ {
		cur := TakeDose(repo.list[0], 1)
		repo.list[0] = cur
		if *cur.RemainingAmount > prev || *cur.RemainingAmount < 0 {
			t.Fatalf("remaining went from %v to %v", prev, *cur.RemainingAmount)
		}
		prev = *cur.RemainingAmount
	}
	if prev != 0 {
		t.Fatalf("expected floor at 0, got %v", prev)
	}

	// editar un campo no relacionado no repone el stock
	name := "renamed"
	up, _, err := svc.Update(ctx, m.ID, Patch{Name: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if *up.RemainingAmount != 0 {
		t.Fatalf("expected remaining to stay 0, got %v", *up.RemainingAmount)
	}
}

func TestGetAndLogs(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()
	m, _ := svc.Add(ctx, pillInput())

	got, err := svc.Get(ctx, m.ID)
	if err != nil || got.ID != m.ID {
		t.Fatalf("Get: %+v %v", got, err)
	}
	if _, err := svc.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_ = repo.AppendLog(ctx, DoseLog{ID: "l1", MedicationID: m.ID, TakenAt: time.Now(), Status: DoseTaken})
	logs, err := svc.Logs(ctx, m.ID)
	if err != nil || len(logs) != 1 {
		t.Fatalf("Logs: %v %v", logs, err)
	}
}
