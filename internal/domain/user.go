// Package domain contains entities and the validation rules that guard them.
// No transport or lifecycle logic here.
package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	MaxUsernameLen = 20
	MaxMessageLen  = 500
)

type UserID string

// User is a registered connection: display name plus last known position.
type User struct {
	ID       UserID    `json:"id"`
	Username string    `json:"username"`
	Location *Location `json:"location,omitempty"`
	LastSeen time.Time `json:"lastSeen"`
}

// NewUser validates the raw display name and location and returns a user
// whose name is already HTML-escaped.
func NewUser(id UserID, username string, loc Location, now time.Time) (*User, error) {
	u := &User{ID: id}
	if err := u.SetUsername(username, MaxUsernameLen); err != nil {
		return nil, err
	}
	if err := u.Move(loc, now); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) SetUsername(username string, maxLen int) error {
	if err := ValidateText(username, maxLen); err != nil {
		return fmt.Errorf("username: %w", err)
	}
	u.Username = Escape(strings.TrimSpace(username))
	return nil
}

func (u *User) Move(loc Location, now time.Time) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	u.Location = &loc
	u.LastSeen = now
	return nil
}

// HasLocation reports whether the user can take part in proximity routing.
func (u *User) HasLocation() bool { return u != nil && u.Location != nil }
