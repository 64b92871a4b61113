// Package profile loads and edits the signed-in user's profile document.
package profile

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"todoapp/internal/domain"
	"todoapp/internal/platform"
)

// Document layout of the profile collection.
const (
	Collection = "users"

	FieldUsername = "username"
	FieldAvatar   = "profileImageUrl"

	// AvatarPrefix is the blob path prefix; the user id is appended.
	AvatarPrefix = "profile-images/"
)

// Synchronizer holds one user's profile. Unlike the task list, successful
// edits are applied locally without waiting for a re-read.
type Synchronizer struct {
	docs  platform.Documents
	blobs platform.Blobs
	user  domain.Identity

	mu      sync.Mutex
	profile domain.Profile
	loaded  bool
}

// New creates a synchronizer for user.
func New(docs platform.Documents, blobs platform.Blobs, user domain.Identity) *Synchronizer {
	return &Synchronizer{docs: docs, blobs: blobs, user: user}
}

// Profile returns the last loaded or edited profile.
func (s *Synchronizer) Profile() domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Loaded reports whether LoadOrCreate has succeeded.
func (s *Synchronizer) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// LoadOrCreate fetches the profile, writing the default one first if the
// user has none.
func (s *Synchronizer) LoadOrCreate(ctx context.Context) (domain.Profile, error) {
	doc, err := s.docs.Get(ctx, Collection, s.user.ID)
	switch {
	case err == nil:
		p := domain.Profile{
			Username:  doc.String(FieldUsername),
			AvatarURL: doc.String(FieldAvatar),
		}
		s.set(p)
		return p, nil
	case errors.Is(err, platform.ErrNotFound):
		p := domain.DefaultProfile(s.user)
		fields := platform.Fields{
			FieldUsername: p.Username,
			FieldAvatar:   p.AvatarURL,
		}
		if err := s.docs.Set(ctx, Collection, s.user.ID, fields); err != nil {
			return domain.Profile{}, &domain.RemoteOperationError{Op: "create profile", Err: err}
		}
		s.set(p)
		return p, nil
	default:
		return domain.Profile{}, &domain.RemoteOperationError{Op: "load profile", Err: err}
	}
}

// SetUsername stores the trimmed name. Empty names fail locally and a
// remote failure keeps the previous name.
func (s *Synchronizer) SetUsername(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &domain.ValidationError{Field: FieldUsername, Message: "username cannot be empty"}
	}
	if err := s.docs.Update(ctx, Collection, s.user.ID, platform.Fields{FieldUsername: name}); err != nil {
		return &domain.RemoteOperationError{Op: "update username", Err: err}
	}

	s.mu.Lock()
	s.profile.Username = name
	s.mu.Unlock()
	return nil
}

// UploadAvatar stores data as the user's avatar and records its URL on the
// profile. Any failing step keeps the previous avatar URL.
func (s *Synchronizer) UploadAvatar(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return &domain.ValidationError{Field: "avatar", Message: "image is empty"}
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return &domain.ValidationError{Field: "avatar", Message: "not an image (" + mt.String() + ")"}
	}

	addr, err := s.blobs.Put(ctx, AvatarPrefix+s.user.ID, data, mt.String())
	if err != nil {
		return &domain.RemoteOperationError{Op: "upload image", Err: err}
	}
	url, err := s.blobs.Resolve(ctx, addr)
	if err != nil {
		return &domain.RemoteOperationError{Op: "upload image", Err: err}
	}
	if err := s.docs.Update(ctx, Collection, s.user.ID, platform.Fields{FieldAvatar: url}); err != nil {
		return &domain.RemoteOperationError{Op: "update profile image", Err: err}
	}

	s.mu.Lock()
	s.profile.AvatarURL = url
	s.mu.Unlock()
	return nil
}

func (s *Synchronizer) set(p domain.Profile) {
	s.mu.Lock()
	s.profile = p
	s.loaded = true
	s.mu.Unlock()
}
