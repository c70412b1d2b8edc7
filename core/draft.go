package core

import (
	"context"
	"time"
)

type (
	// Draft represents an unpublished post that can be edited collaboratively.
	// YjsContent holds the base64-encoded snapshot of the replicated document
	// state; it is omitted from list views to keep responses light.
	Draft struct {
		ID         string    `json:"id"`
		AuthorID   string    `json:"-"` // Not exposed in JSON responses, used internally.
		Title      string    `json:"title"`
		Content    string    `json:"content,omitempty"`
		YjsContent string    `json:"yjsContent,omitempty"`
		CreatedAt  time.Time `json:"createdAt"`
		UpdatedAt  time.Time `json:"updatedAt"`
	}

	// DraftStore defines the persistence layer for drafts.
	DraftStore interface {
		// Create stores a new draft and returns its generated ID.
		Create(ctx context.Context, draft *Draft) (string, error)

		// FindID returns a single draft by its ID, including the snapshot.
		FindID(ctx context.Context, id string) (*Draft, error)

		// FindByAuthor returns metadata for all drafts owned by an author.
		// The returned Draft objects do not contain the YjsContent field.
		FindByAuthor(ctx context.Context, authorID string) ([]*Draft, error)

		// Update persists changes to title and content.
		Update(ctx context.Context, draft *Draft) error

		// Delete removes a draft and its snapshot.
		Delete(ctx context.Context, id string) error

		// LoadSnapshot returns the base64-encoded replicated-document
		// snapshot for a draft, or an empty string if none was saved yet.
		LoadSnapshot(ctx context.Context, id string) (string, error)

		// SaveSnapshot replaces the stored snapshot for a draft.
		SaveSnapshot(ctx context.Context, id string, content string) error
	}
)
