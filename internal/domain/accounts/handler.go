package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"medipal/internal/middleware"
	"medipal/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta /auth (con limiter opcional) y /me.
func RegisterRoutes(r chi.Router, svc *Service, tokens auth.TokenIssuer, limiter func(http.Handler) http.Handler) {
	r.Route("/auth", func(ar chi.Router) {
		if limiter != nil {
			ar.Use(limiter)
		}
		ar.Post("/signup", signupHandler(svc, tokens))
		ar.Post("/login", loginHandler(svc, tokens))
		ar.Post("/logout", logoutHandler(svc))
		ar.Post("/forgot", forgotHandler(svc))
	})

	r.Route("/me", func(mr chi.Router) {
		mr.Use(middleware.RequireSession)
		mr.Get("/", meHandler(svc))
		mr.Patch("/", updateProfileHandler(svc))
		mr.Post("/password", changePasswordHandler(svc))
	})
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotRequest struct {
	Email string `json:"email"`
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Avatar   *string `json:"avatar"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type sessionResponse struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

// signupHandler godoc
// @Summary Registrar usuario
// @Description Email y username son únicos sin distinguir mayúsculas. Deja la sesión iniciada.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body signupRequest true "Datos de registro"
// @Success 201 {object} sessionResponse
// @Failure 400 {string} string "invalid input"
// @Failure 409 {string} string "Email already in use."
// @Failure 429 {string} string "too many requests"
// @Router /auth/signup [post]
func signupHandler(svc *Service, tokens auth.TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		sess, err := svc.Signup(r.Context(), req.Username, req.Email, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSession(r.Context(), w, http.StatusCreated, tokens, sess)
	}
}

// loginHandler godoc
// @Summary Iniciar sesión
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginRequest true "Credenciales"
// @Success 200 {object} sessionResponse
// @Failure 401 {string} string "Invalid email or password."
// @Failure 429 {string} string "too many requests"
// @Router /auth/login [post]
func loginHandler(svc *Service, tokens auth.TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		sess, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSession(r.Context(), w, http.StatusOK, tokens, sess)
	}
}

// logoutHandler godoc
// @Summary Cerrar sesión
// @Tags auth
// @Success 204
// @Router /auth/logout [post]
func logoutHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context()); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// forgotHandler godoc
// @Summary Recuperar contraseña (simulado)
// @Tags auth
// @Accept json
// @Param payload body forgotRequest true "Email de la cuenta"
// @Success 202
// @Failure 404 {string} string "No account found with that email."
// @Router /auth/forgot [post]
func forgotHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req forgotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := svc.ForgotPassword(r.Context(), req.Email); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// meHandler godoc
// @Summary Usuario actual
// @Tags auth
// @Produce json
// @Param Authorization header string true "Bearer token de sesión"
// @Success 200 {object} PublicUser
// @Failure 401 {string} string "Session expired. Please log in again."
// @Router /me [get]
func meHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Resolve(r.Context(), sessionFrom(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.User)
	}
}

// updateProfileHandler godoc
// @Summary Editar perfil
// @Tags auth
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token de sesión"
// @Param payload body updateProfileRequest true "Campos a modificar"
// @Success 200 {object} PublicUser
// @Failure 409 {string} string "Username already taken."
// @Router /me [patch]
func updateProfileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		sess, err := svc.UpdateProfile(r.Context(), sessionFrom(r.Context()), ProfileUpdate{
			Email:    req.Email,
			Username: req.Username,
			Avatar:   req.Avatar,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.User)
	}
}

// changePasswordHandler godoc
// @Summary Cambiar contraseña
// @Tags auth
// @Accept json
// @Param Authorization header string true "Bearer token de sesión"
// @Param payload body changePasswordRequest true "Contraseña actual y nueva"
// @Success 204
// @Failure 401 {string} string "Current password is incorrect."
// @Router /me/password [post]
func changePasswordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if _, err := svc.ChangePassword(r.Context(), sessionFrom(r.Context()), req.CurrentPassword, req.NewPassword); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// sessionFrom arma la sesión explícita a partir de los claims del token.
func sessionFrom(ctx context.Context) Session {
	c, ok := middleware.GetClaims(ctx)
	if !ok {
		return Session{}
	}
	return Session{User: PublicUser{ID: c.UserID, Email: c.Email, Username: c.Username}}
}

func writeSession(ctx context.Context, w http.ResponseWriter, status int, tokens auth.TokenIssuer, sess Session) {
	token, err := tokens.Issue(ctx, auth.Claims{UserID: sess.User.ID, Email: sess.User.Email, Username: sess.User.Username})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, sessionResponse{Token: token, User: sess.User})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInvalidCredential),
		errors.Is(err, ErrNotAuthenticated),
		errors.Is(err, ErrSessionExpired):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, ErrAccountNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrDuplicateCredential):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
