package auth

// Claims es la sesión extraída de un token válido.
type Claims struct {
	UserID   string
	Email    string
	Username string
}
