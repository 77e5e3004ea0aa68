package medications

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})$`)

// ParseClock parsea "H:M" / "HH:MM" (24h) y valida rangos.
func ParseClock(s string) (hour, minute int, err error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q out of range", ErrMalformedTime, s)
	}
	return hour, minute, nil
}

// NormalizeTime devuelve la hora en formato HH:MM con ceros ("8:5" -> "08:05").
func NormalizeTime(s string) (string, error) {
	h, m, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// SameTime compara dos horas por su forma HH:MM; si alguna no parsea, compara
// el texto tal cual.
func SameTime(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	na, errA := NormalizeTime(a)
	nb, errB := NormalizeTime(b)
	if errA == nil && errB == nil {
		return na == nb
	}
	return a == b
}

func normalizeTimes(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, t := range in {
		n, err := NormalizeTime(t)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
