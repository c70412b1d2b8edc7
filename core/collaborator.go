package core

import (
	"context"
	"time"
)

// Role is a user's access level on a draft.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	RoleNone   Role = ""
)

// CanWrite reports whether the role may mutate the draft's document state.
func (r Role) CanWrite() bool {
	return r == RoleOwner || r == RoleEditor
}

// CanRead reports whether the role may see the draft at all.
func (r Role) CanRead() bool {
	return r != RoleNone
}

// Assignable reports whether the role may be stored on a collaborator
// record. Ownership is derived from draft authorship, never assigned.
func (r Role) Assignable() bool {
	return r == RoleEditor || r == RoleViewer
}

type (
	// Collaborator grants a user access to someone else's draft.
	Collaborator struct {
		ID        string    `json:"id"`
		DraftID   string    `json:"draftId"`
		UserID    string    `json:"userId"`
		Role      Role      `json:"role"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// CollaboratorStore defines the persistence layer for collaborator records.
	CollaboratorStore interface {
		// Add stores a new collaborator record and returns its generated ID.
		Add(ctx context.Context, collaborator *Collaborator) (string, error)

		// ListByDraft returns all collaborator records for a draft.
		ListByDraft(ctx context.Context, draftID string) ([]*Collaborator, error)

		// Find returns the collaborator record for a (draft, user) pair,
		// or an error if none exists.
		Find(ctx context.Context, draftID, userID string) (*Collaborator, error)

		// UpdateRole changes the role on an existing collaborator record.
		UpdateRole(ctx context.Context, draftID, userID string, role Role) error

		// Remove deletes the collaborator record for a (draft, user) pair.
		Remove(ctx context.Context, draftID, userID string) error

		// RemoveByDraft deletes all collaborator records for a draft.
		RemoveByDraft(ctx context.Context, draftID string) error
	}

	// RoleResolver answers "what may this user do with this draft".
	// Implementations return RoleNone (with a nil error) when the user has
	// no access or the draft does not exist.
	RoleResolver interface {
		ResolveRole(ctx context.Context, draftID, userID string) (Role, error)
	}
)
