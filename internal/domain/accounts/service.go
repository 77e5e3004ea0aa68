package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medipal/internal/platform/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service struct {
	repo     Repository
	hasher   *PasswordHasher
	validate *validator.Validate
	log      logger.Logger

	newID func() string
}

func NewService(repo Repository, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		hasher:   NewPasswordHasher(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log.With(map[string]any{"component": "accounts"}),
		newID:    uuid.NewString,
	}
}

type signupFields struct {
	Username string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

func (s *Service) Signup(ctx context.Context, username, email, password string) (Session, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := s.validate.Struct(signupFields{Username: username, Email: email, Password: password}); err != nil {
		return Session{}, invalid(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Session{}, err
	}

	var created User
	_, err = s.repo.MutateUsers(ctx, func(users []User) ([]User, error) {
		for _, u := range users {
			if sameFold(u.Email, email) {
				return nil, fmt.Errorf("%w: Email already in use.", ErrDuplicateCredential)
			}
		}
		for _, u := range users {
			if sameFold(u.Username, username) {
				return nil, fmt.Errorf("%w: Username already taken.", ErrDuplicateCredential)
			}
		}
		created = User{
			ID:           s.newID(),
			Email:        email,
			Username:     username,
			PasswordHash: hash,
			Avatar:       DefaultAvatar,
		}
		return append(users, created), nil
	})
	if err != nil {
		return Session{}, err
	}

	s.log.Info("user signed up", map[string]any{"user_id": created.ID})
	return s.persistSession(ctx, created)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	users, err := s.repo.Users(ctx)
	if err != nil {
		return Session{}, err
	}

	for _, u := range users {
		if !sameFold(u.Email, email) {
			continue
		}
		ok, err := s.hasher.Verify(u.PasswordHash, password)
		if err != nil {
			s.log.Warn("stored password hash unreadable", map[string]any{"user_id": u.ID, "err": err})
			break
		}
		if ok {
			return s.persistSession(ctx, u)
		}
		break
	}
	return Session{}, fmt.Errorf("%w: Invalid email or password.", ErrInvalidCredential)
}

func (s *Service) Logout(ctx context.Context) error {
	return s.repo.ClearCurrentUser(ctx)
}

// ForgotPassword solo verifica que exista la cuenta; el envío del mail es simulado.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	users, err := s.repo.Users(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if sameFold(u.Email, email) {
			s.log.Info("password reset requested (simulated)", map[string]any{"user_id": u.ID})
			return nil
		}
	}
	return fmt.Errorf("%w: No account found with that email.", ErrAccountNotFound)
}

// CurrentSession restaura la sesión persistida en "currentUser".
func (s *Service) CurrentSession(ctx context.Context) (Session, bool, error) {
	u, ok, err := s.repo.CurrentUser(ctx)
	if err != nil || !ok {
		return Session{}, false, err
	}
	return Session{User: u}, true, nil
}

// Resolve valida que el usuario de la sesión siga existiendo y devuelve su vista actual.
func (s *Service) Resolve(ctx context.Context, sess Session) (Session, error) {
	if !sess.Valid() {
		return Session{}, notLoggedIn()
	}
	users, err := s.repo.Users(ctx)
	if err != nil {
		return Session{}, err
	}
	for _, u := range users {
		if u.ID == sess.User.ID {
			return Session{User: u.Public()}, nil
		}
	}
	return Session{}, expired()
}

func (s *Service) UpdateProfile(ctx context.Context, sess Session, up ProfileUpdate) (Session, error) {
	if !sess.Valid() {
		return Session{}, notLoggedIn()
	}
	if up.Email != nil {
		e := strings.TrimSpace(*up.Email)
		if err := s.validate.Var(e, "required,email"); err != nil {
			return Session{}, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
		}
		up.Email = &e
	}
	if up.Username != nil {
		u := strings.TrimSpace(*up.Username)
		if u == "" {
			return Session{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
		}
		up.Username = &u
	}

	var updated User
	_, err := s.repo.MutateUsers(ctx, func(users []User) ([]User, error) {
		idx := indexOf(users, sess.User.ID)
		if idx < 0 {
			return nil, expired()
		}
		me := users[idx]

		if up.Email != nil && !sameFold(*up.Email, me.Email) {
			for _, u := range users {
				if u.ID != me.ID && sameFold(u.Email, *up.Email) {
					return nil, fmt.Errorf("%w: Email already in use.", ErrDuplicateCredential)
				}
			}
		}
		if up.Username != nil && !sameFold(*up.Username, me.Username) {
			for _, u := range users {
				if u.ID != me.ID && sameFold(u.Username, *up.Username) {
					return nil, fmt.Errorf("%w: Username already taken.", ErrDuplicateCredential)
				}
			}
		}

		if up.Email != nil {
			me.Email = *up.Email
		}
		if up.Username != nil {
			me.Username = *up.Username
		}
		if up.Avatar != nil && strings.TrimSpace(*up.Avatar) != "" {
			me.Avatar = strings.TrimSpace(*up.Avatar)
		}

		users[idx] = me
		updated = me
		return users, nil
	})
	if err != nil {
		return Session{}, err
	}

	return s.persistSession(ctx, updated)
}

func (s *Service) ChangePassword(ctx context.Context, sess Session, current, next string) (Session, error) {
	if !sess.Valid() {
		return Session{}, notLoggedIn()
	}
	if next == "" {
		return Session{}, fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return Session{}, err
	}

	var updated User
	_, err = s.repo.MutateUsers(ctx, func(users []User) ([]User, error) {
		idx := indexOf(users, sess.User.ID)
		if idx < 0 {
			return nil, expired()
		}
		ok, err := s.hasher.Verify(users[idx].PasswordHash, current)
		if err != nil || !ok {
			return nil, fmt.Errorf("%w: Current password is incorrect.", ErrInvalidCredential)
		}
		users[idx].PasswordHash = hash
		updated = users[idx]
		return users, nil
	})
	if err != nil {
		return Session{}, err
	}

	s.log.Info("password changed", map[string]any{"user_id": updated.ID})
	return s.persistSession(ctx, updated)
}

func (s *Service) persistSession(ctx context.Context, u User) (Session, error) {
	pub := u.Public()
	if err := s.repo.SetCurrentUser(ctx, pub); err != nil {
		return Session{}, err
	}
	return Session{User: pub}, nil
}

func indexOf(users []User, id string) int {
	for i, u := range users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func notLoggedIn() error {
	return fmt.Errorf("%w: Not logged in", ErrNotAuthenticated)
}

func expired() error {
	return fmt.Errorf("%w: Session expired. Please log in again.", ErrSessionExpired)
}

func invalid(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		switch f.Field() {
		case "Email":
			return fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
		case "Username":
			return fmt.Errorf("%w: username is required", ErrInvalidInput)
		case "Password":
			return fmt.Errorf("%w: password is required", ErrInvalidInput)
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
