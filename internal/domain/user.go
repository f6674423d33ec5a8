package domain

// User is the identity record the auth core operates on.
// Email is unique and stored lowercased. TokenGeneration is the per-user
// refresh generation: bumping it invalidates every outstanding refresh token.
type User struct {
	ID              string
	Email           string
	PasswordHash    string
	Role            string
	EmailVerified   bool
	AvatarURL       string
	TokenGeneration int64
}
