// Package domain holds the records shared by every layer of the app.
package domain

import (
	"strings"
	"time"
)

// Identity is the authenticated user as reported by the auth backend.
type Identity struct {
	ID    string
	Email string // empty when the account has no email
}

// Task is a single to-do item owned by one user.
type Task struct {
	ID        string
	Text      string
	Completed bool
	OwnerID   string
	CreatedAt time.Time
}

// Profile is the per-user display record, keyed by Identity.ID.
type Profile struct {
	Username  string
	AvatarURL string
}

// DefaultUsername is used when the email has no usable local part.
const DefaultUsername = "User"

// DefaultProfile returns the profile created on first load for id.
func DefaultProfile(id Identity) Profile {
	return Profile{Username: LocalPart(id.Email)}
}

// LocalPart returns the part of email before '@', or DefaultUsername.
func LocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return DefaultUsername
	}
	return local
}
