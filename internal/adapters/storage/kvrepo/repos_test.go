package kvrepo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"medipal/internal/adapters/storage/memory"
	"medipal/internal/domain/accounts"
	"medipal/internal/domain/medications"
	"medipal/internal/domain/preferences"
	"medipal/internal/ports/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedicationsRepo_MutateAndList(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKV()
	repo := NewMedicationsRepo(store)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	out, err := repo.Mutate(ctx, func(list []medications.Medication) ([]medications.Medication, error) {
		return append(list, medications.Medication{ID: "a", Name: "A", ReminderTimes: []string{"08:00"}}), nil
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	// ErrNoChange devuelve lo persistido sin escribir
	out, err = repo.Mutate(ctx, func(list []medications.Medication) ([]medications.Medication, error) {
		list[0].Name = "mutated"
		return nil, kv.ErrNoChange
	})
	require.NoError(t, err)
	assert.Equal(t, "A", out[0].Name)

	stored, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", stored[0].Name)

	boom := errors.New("boom")
	_, err = repo.Mutate(ctx, func(list []medications.Medication) ([]medications.Medication, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestMedicationsRepo_ConcurrentMutationsDoNotLoseWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewMedicationsRepo(memory.NewKV())

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Mutate(ctx, func(list []medications.Medication) ([]medications.Medication, error) {
				return append(list, medications.Medication{ID: string(rune('a' + i)), Name: "x"}), nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 25)
}

func TestMedicationsRepo_NotificationMapAndLogs(t *testing.T) {
	ctx := context.Background()
	repo := NewMedicationsRepo(memory.NewKV())

	m, err := repo.NotificationMap(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)

	require.NoError(t, repo.SaveNotificationMap(ctx, medications.NotificationMap{"a": {"n1", "n2"}}))
	m, err = repo.NotificationMap(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2"}, m["a"])

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AppendLog(ctx, medications.DoseLog{ID: "l1", MedicationID: "a", TakenAt: now, Status: medications.DoseTaken}))
	require.NoError(t, repo.AppendLog(ctx, medications.DoseLog{ID: "l2", MedicationID: "b", TakenAt: now, Status: medications.DoseSnoozed}))
	assert.Error(t, repo.AppendLog(ctx, medications.DoseLog{}))

	logs, err := repo.ListLogs(ctx, "a")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "l1", logs[0].ID)
}

func TestMedicationsRepo_LegacyRecordsDecodeWithDefaults(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKV()
	require.NoError(t, store.Set(ctx, "medications", []byte(`[{"id":"old","name":"Aspirin","reminderTimes":["09:00"],"duration":3}]`)))

	list, err := NewMedicationsRepo(store).List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, medications.UnitPill, list[0].DosageUnit)
	assert.Equal(t, 1.0, list[0].DosageAmount)
	assert.Equal(t, 10, list[0].SnoozeInterval)
	assert.True(t, list[0].EnableReminders)
}

func TestUsersRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo(kv.Prefixed(memory.NewKV(), "medipal_"))

	_, ok, err := repo.CurrentUser(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.MutateUsers(ctx, func(users []accounts.User) ([]accounts.User, error) {
		return append(users, accounts.User{ID: "u1", Email: "a@x.com", Username: "ana", PasswordHash: "h"}), nil
	})
	require.NoError(t, err)

	users, err := repo.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "h", users[0].PasswordHash)

	require.NoError(t, repo.SetCurrentUser(ctx, users[0].Public()))
	cur, ok, err := repo.CurrentUser(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ana", cur.Username)

	require.NoError(t, repo.ClearCurrentUser(ctx))
	_, ok, _ = repo.CurrentUser(ctx)
	assert.False(t, ok)
}

func TestPreferencesRepo(t *testing.T) {
	ctx := context.Background()
	svc := preferences.NewService(NewPreferencesRepo(memory.NewKV()), nil)

	m, err := svc.Mode(ctx)
	require.NoError(t, err)
	assert.Equal(t, preferences.ModeLight, m)

	m, err = svc.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, preferences.ModeDark, m)

	m, err = svc.Mode(ctx)
	require.NoError(t, err)
	assert.Equal(t, preferences.ModeDark, m)
}
