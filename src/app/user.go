package app

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxFullNameLength = 80
	maxBioLength      = 300
)

// User is the identity resolved from an OIDC ID token.
type User struct {
	// Subject claim of the ID token; doubles as the profile id.
	ID string `json:"id"`

	Email string `json:"email"`

	// User's display name.
	Name string `json:"name"`

	Picture string `json:"picture"`
}

// Profile is the public face of a user.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	FullName  string    `json:"full_name"`
	Bio       string    `json:"bio"`
	AvatarURL string    `json:"avatar_url"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	FullName  *string `json:"full_name"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
}

func (u ProfileUpdate) Validate() error {
	if u.FullName != nil && utf8.RuneCountInString(strings.TrimSpace(*u.FullName)) > maxFullNameLength {
		return &ValidationError{Field: "full_name", Message: "Full name must be at most 80 characters."}
	}
	if u.Bio != nil && utf8.RuneCountInString(strings.TrimSpace(*u.Bio)) > maxBioLength {
		return &ValidationError{Field: "bio", Message: "Bio must be at most 300 characters."}
	}
	return nil
}

// Apply copies the set fields onto p.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.FullName != nil {
		p.FullName = strings.TrimSpace(*u.FullName)
	}
	if u.Bio != nil {
		p.Bio = strings.TrimSpace(*u.Bio)
	}
	if u.AvatarURL != nil {
		p.AvatarURL = strings.TrimSpace(*u.AvatarURL)
	}
}

// ProfileFromUser seeds a profile on first login.
func ProfileFromUser(u User) Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.Name,
		AvatarURL: u.Picture,
	}
}
