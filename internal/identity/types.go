package identity

import "strings"

// Session is the verified identity of the current user. It exists only as
// the result of a successful Verify call and is reconstructed on every
// guarded navigation; nothing in the gateway persists it.
type Session struct {
	Username      string `json:"username"`
	Firstname     string `json:"firstname"`
	Lastname      string `json:"lastname"`
	Administrator bool   `json:"admin"`
}

// FullName returns the display name used by the admin console.
func (s *Session) FullName() string {
	return s.Firstname + " " + s.Lastname
}

// Identity is the projection of a Session consumed by the admin console.
type Identity struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// Credentials are consumed exactly once by Login and never retained.
type Credentials struct {
	Username string
	Password string
}

// Validate checks both fields locally. It fails with a validation Failure
// when either field is absent, empty, or whitespace-only; no network call
// may be attempted in that case.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return &Failure{Kind: KindValidation, Detail: "username is empty or whitespace only"}
	}
	if strings.TrimSpace(c.Password) == "" {
		return &Failure{Kind: KindValidation, Detail: "password is empty or whitespace only"}
	}
	return nil
}
