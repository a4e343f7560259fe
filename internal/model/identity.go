package model

// Identity is the signed-in user as reported by the external identity
// provider. The service never issues or stores credentials; it only verifies
// the provider's tokens.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// DisplayName returns the name snapshotted onto listings at creation time,
// falling back to email when the provider supplied no display name.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	if i.Email != "" {
		return i.Email
	}
	return "Anonymous"
}

// Error codes carried in the error response envelope
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
)
