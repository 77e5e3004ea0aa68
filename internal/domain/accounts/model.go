package accounts

import "strings"

const DefaultAvatar = "avatar1"

// User es el registro persistido en "users". PasswordHash nunca sale por la API.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	Avatar       string `json:"avatar"`
}

// PublicUser es la vista sin credenciales ("currentUser").
type PublicUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Username: u.Username, Avatar: u.Avatar}
}

// Session identifica al usuario logueado; se pasa explícito a cada operación.
type Session struct {
	User PublicUser `json:"user"`
}

func (s Session) Valid() bool {
	return strings.TrimSpace(s.User.ID) != ""
}

// ProfileUpdate: nil = no tocar.
type ProfileUpdate struct {
	Email    *string
	Username *string
	Avatar   *string
}

func sameFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
