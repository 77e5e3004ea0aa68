package kvrepo

import (
	"context"
	"errors"

	"medipal/internal/domain/medications"
	"medipal/internal/ports/kv"
)

const (
	keyMedications     = "medications"
	keyNotificationMap = "notificationMap"
	keyMedicationLogs  = "medicationLogs"

	// maxLogs acota medicationLogs; se descartan los más viejos.
	maxLogs = 1000
)

type MedicationsRepo struct {
	store kv.Store
}

func NewMedicationsRepo(store kv.Store) *MedicationsRepo {
	return &MedicationsRepo{store: store}
}

func (r *MedicationsRepo) List(ctx context.Context) ([]medications.Medication, error) {
	var list []medications.Medication
	if _, err := kv.GetJSON(ctx, r.store, keyMedications, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []medications.Medication{}
	}
	return list, nil
}

// Mutate corre fn dentro de un Update transaccional del store. Si fn devuelve
// kv.ErrNoChange se devuelve la lista persistida sin escribir.
func (r *MedicationsRepo) Mutate(ctx context.Context, fn medications.MutateFunc) ([]medications.Medication, error) {
	var result []medications.Medication

	err := kv.UpdateJSON(ctx, r.store, keyMedications, func(list []medications.Medication, _ bool) ([]medications.Medication, error) {
		if list == nil {
			list = []medications.Medication{}
		}
		result = list

		next, err := fn(cloneList(list))
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []medications.Medication{}
		}
		result = next
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = []medications.Medication{}
	}
	return result, nil
}

func (r *MedicationsRepo) NotificationMap(ctx context.Context) (medications.NotificationMap, error) {
	m := medications.NotificationMap{}
	if _, err := kv.GetJSON(ctx, r.store, keyNotificationMap, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MedicationsRepo) SaveNotificationMap(ctx context.Context, m medications.NotificationMap) error {
	if m == nil {
		m = medications.NotificationMap{}
	}
	return kv.SetJSON(ctx, r.store, keyNotificationMap, m)
}

func (r *MedicationsRepo) AppendLog(ctx context.Context, l medications.DoseLog) error {
	if l.ID == "" || l.MedicationID == "" {
		return errors.New("dose log: id and medication id required")
	}
	return kv.UpdateJSON(ctx, r.store, keyMedicationLogs, func(logs []medications.DoseLog, _ bool) ([]medications.DoseLog, error) {
		logs = append(logs, l)
		if len(logs) > maxLogs {
			logs = logs[len(logs)-maxLogs:]
		}
		return logs, nil
	})
}

func (r *MedicationsRepo) ListLogs(ctx context.Context, medicationID string) ([]medications.DoseLog, error) {
	var logs []medications.DoseLog
	if _, err := kv.GetJSON(ctx, r.store, keyMedicationLogs, &logs); err != nil {
		return nil, err
	}

	out := make([]medications.DoseLog, 0)
	for _, l := range logs {
		if medicationID == "" || l.MedicationID == medicationID {
			out = append(out, l)
		}
	}
	return out, nil
}

func cloneList(in []medications.Medication) []medications.Medication {
	out := make([]medications.Medication, len(in))
	for i, m := range in {
		m.ReminderTimes = append([]string{}, m.ReminderTimes...)
		out[i] = m
	}
	return out
}
