package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medipal/internal/platform/logger"
)

// Mode es el tema visual.
// @Enum light, dark
type Mode string

const (
	ModeLight Mode = "light"
	ModeDark  Mode = "dark"

	DefaultMode = ModeLight
)

var ErrInvalidMode = errors.New("invalid theme mode")

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLight:
		return ModeLight, nil
	case ModeDark:
		return ModeDark, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

type Repository interface {
	ThemeMode(ctx context.Context) (Mode, bool, error)
	SaveThemeMode(ctx context.Context, m Mode) error
	UpdateThemeMode(ctx context.Context, fn func(current Mode, exists bool) (Mode, error)) (Mode, error)
}

type Service struct {
	repo Repository
	log  logger.Logger
}

func NewService(repo Repository, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log.With(map[string]any{"component": "preferences"})}
}

// Mode devuelve el tema guardado; un valor ausente o corrupto cae en light.
func (s *Service) Mode(ctx context.Context) (Mode, error) {
	m, ok, err := s.repo.ThemeMode(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return DefaultMode, nil
	}
	parsed, err := ParseMode(string(m))
	if err != nil {
		s.log.Warn("stored theme mode ignored", map[string]any{"value": string(m)})
		return DefaultMode, nil
	}
	return parsed, nil
}

func (s *Service) SetMode(ctx context.Context, m Mode) (Mode, error) {
	parsed, err := ParseMode(string(m))
	if err != nil {
		return "", err
	}
	if err := s.repo.SaveThemeMode(ctx, parsed); err != nil {
		return "", err
	}
	return parsed, nil
}

func (s *Service) Toggle(ctx context.Context) (Mode, error) {
	return s.repo.UpdateThemeMode(ctx, func(cur Mode, _ bool) (Mode, error) {
		if cur == ModeDark {
			return ModeLight, nil
		}
		return ModeDark, nil
	})
}
