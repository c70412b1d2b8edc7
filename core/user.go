package core

type (
	// User is the identity resolved from an OAuth provider. It only exists
	// as JWT claims; the platform's user records live in a separate service.
	User struct {
		Subject   string `json:"subject"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatarUrl"`
		Name      string `json:"name"`
	}
)
