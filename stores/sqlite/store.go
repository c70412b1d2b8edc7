package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/NTDKhoa04/bloggin-be/core"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	draftTableStmt := `
	CREATE TABLE IF NOT EXISTS drafts (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL,
		title TEXT,
		content TEXT,
		yjs_content TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`
	if _, err = db.Exec(draftTableStmt); err != nil {
		log.Fatalf("failed to create drafts table: %v", err)
	}

	collaboratorTableStmt := `
	CREATE TABLE IF NOT EXISTS collaborators (
		id TEXT NOT NULL,
		draft_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		PRIMARY KEY (draft_id, user_id)
	);`
	if _, err = db.Exec(collaboratorTableStmt); err != nil {
		log.Fatalf("failed to create collaborators table: %v", err)
	}

	return &sqliteStore{db}
}

// DraftStore implementation

func (s *sqliteStore) Create(ctx context.Context, draft *core.Draft) (string, error) {
	id := ulid.Make().String()
	now := time.Now()
	log := logrus.WithFields(logrus.Fields{
		"draft_id":  id,
		"author_id": draft.AuthorID,
	})

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO drafts (id, author_id, title, content, yjs_content, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, draft.AuthorID, draft.Title, draft.Content, draft.YjsContent, now, now)
	if err != nil {
		log.WithError(err).Error("Failed to create draft")
		return "", err
	}
	log.Info("Draft created successfully")
	return id, nil
}

func (s *sqliteStore) FindID(ctx context.Context, id string) (*core.Draft, error) {
	log := logrus.WithField("draft_id", id)
	var draft core.Draft
	draft.ID = id
	err := s.db.QueryRowContext(ctx,
		"SELECT author_id, title, content, yjs_content, created_at, updated_at FROM drafts WHERE id = ?", id).
		Scan(&draft.AuthorID, &draft.Title, &draft.Content, &draft.YjsContent, &draft.CreatedAt, &draft.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Warn("Draft with specified ID not found")
			return nil, fmt.Errorf("draft with id %s not found", id)
		}
		log.WithError(err).Error("Failed to retrieve draft")
		return nil, err
	}
	return &draft, nil
}

func (s *sqliteStore) FindByAuthor(ctx context.Context, authorID string) ([]*core.Draft, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, created_at, updated_at FROM drafts WHERE author_id = ? ORDER BY updated_at DESC", authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drafts := make([]*core.Draft, 0)
	for rows.Next() {
		var draft core.Draft
		draft.AuthorID = authorID
		if err := rows.Scan(&draft.ID, &draft.Title, &draft.CreatedAt, &draft.UpdatedAt); err != nil {
			return nil, err
		}
		drafts = append(drafts, &draft)
	}
	return drafts, rows.Err()
}

func (s *sqliteStore) Update(ctx context.Context, draft *core.Draft) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE drafts SET title = ?, content = ?, updated_at = ? WHERE id = ?",
		draft.Title, draft.Content, time.Now(), draft.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("draft with id %s not found", draft.ID)
	}
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM drafts WHERE id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM collaborators WHERE draft_id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) LoadSnapshot(ctx context.Context, id string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, "SELECT yjs_content FROM drafts WHERE id = ?", id).Scan(&content)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("draft with id %s not found", id)
		}
		return "", err
	}
	return content, nil
}

func (s *sqliteStore) SaveSnapshot(ctx context.Context, id string, content string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE drafts SET yjs_content = ?, updated_at = ? WHERE id = ?", content, time.Now(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("draft with id %s not found", id)
	}
	return nil
}

// CollaboratorStore implementation

func (s *sqliteStore) Add(ctx context.Context, collaborator *core.Collaborator) (string, error) {
	id := ulid.Make().String()
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO collaborators (id, draft_id, user_id, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, collaborator.DraftID, collaborator.UserID, collaborator.Role, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to add collaborator: %w", err)
	}
	return id, nil
}

func (s *sqliteStore) ListByDraft(ctx context.Context, draftID string) ([]*core.Collaborator, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, role, created_at, updated_at FROM collaborators WHERE draft_id = ?", draftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	collaborators := make([]*core.Collaborator, 0)
	for rows.Next() {
		var c core.Collaborator
		c.DraftID = draftID
		if err := rows.Scan(&c.ID, &c.UserID, &c.Role, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		collaborators = append(collaborators, &c)
	}
	return collaborators, rows.Err()
}

func (s *sqliteStore) Find(ctx context.Context, draftID, userID string) (*core.Collaborator, error) {
	var c core.Collaborator
	c.DraftID = draftID
	c.UserID = userID
	err := s.db.QueryRowContext(ctx,
		"SELECT id, role, created_at, updated_at FROM collaborators WHERE draft_id = ? AND user_id = ?",
		draftID, userID).Scan(&c.ID, &c.Role, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %s is not a collaborator on draft %s", userID, draftID)
		}
		return nil, err
	}
	return &c, nil
}

func (s *sqliteStore) UpdateRole(ctx context.Context, draftID, userID string, role core.Role) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE collaborators SET role = ?, updated_at = ? WHERE draft_id = ? AND user_id = ?",
		role, time.Now(), draftID, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %s is not a collaborator on draft %s", userID, draftID)
	}
	return nil
}

func (s *sqliteStore) Remove(ctx context.Context, draftID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM collaborators WHERE draft_id = ? AND user_id = ?", draftID, userID)
	return err
}

func (s *sqliteStore) RemoveByDraft(ctx context.Context, draftID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM collaborators WHERE draft_id = ?", draftID)
	return err
}
