package medications

import (
	"math"
	"strconv"
)

// ApplyCounts recalcula los contadores derivados.
// Para unidades contables: total = timesPerDay × dosageAmount × duration; remaining
// conserva su valor (acotado a [0, total]) o arranca en total si no existía.
// Para el resto ambos quedan ausentes.
func ApplyCounts(m Medication) Medication {
	if !m.DosageUnit.IsCountable() || m.TimesPerDay <= 0 || m.DosageAmount <= 0 || m.Duration <= 0 {
		m.TotalAmount = nil
		m.RemainingAmount = nil
		return m
	}

	total := float64(m.TimesPerDay) * m.DosageAmount * float64(m.Duration)
	remaining := total
	if m.RemainingAmount != nil {
		remaining = math.Min(*m.RemainingAmount, total)
	}
	remaining = math.Max(0, remaining)

	m.TotalAmount = &total
	m.RemainingAmount = &remaining
	return m
}

// TakeDose descuenta amount del remaining (piso 0). No-op para unidades no contables.
func TakeDose(m Medication, amount float64) Medication {
	if !m.DosageUnit.IsCountable() {
		return m
	}

	var current float64
	switch {
	case m.RemainingAmount != nil:
		current = *m.RemainingAmount
	case m.TotalAmount != nil:
		current = *m.TotalAmount
	}
	remaining := math.Max(0, current-amount)
	m.RemainingAmount = &remaining
	return ApplyCounts(m)
}

func dosageLabel(amount float64, unit DosageUnit) string {
	return strconv.FormatFloat(amount, 'f', -1, 64) + " " + string(unit)
}
