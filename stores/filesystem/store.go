package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NTDKhoa04/bloggin-be/core"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type fsStore struct {
	basePath string
}

// draftRecord is the on-disk form of a draft. core.Draft hides AuthorID
// from JSON responses, so the file format carries its own tags.
type draftRecord struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	YjsContent string    `json:"yjsContent"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (r *draftRecord) toDraft() *core.Draft {
	return &core.Draft{
		ID:         r.ID,
		AuthorID:   r.AuthorID,
		Title:      r.Title,
		Content:    r.Content,
		YjsContent: r.YjsContent,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// NewStore creates a new filesystem-based store.
func NewStore(basePath string) *fsStore {
	for _, dir := range []string{"drafts", "collaborators"} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			log.Fatalf("failed to create %s directory: %v", dir, err)
		}
	}
	return &fsStore{basePath: basePath}
}

func (s *fsStore) draftPath(id string) string {
	return filepath.Join(s.basePath, "drafts", id+".json")
}

func (s *fsStore) collaboratorsPath(draftID string) string {
	return filepath.Join(s.basePath, "collaborators", draftID+".json")
}

func (s *fsStore) readDraft(id string) (*draftRecord, error) {
	data, err := os.ReadFile(s.draftPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("draft with id %s not found", id)
		}
		return nil, err
	}
	var record draftRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft %s: %w", id, err)
	}
	return &record, nil
}

func (s *fsStore) writeDraft(record *draftRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return os.WriteFile(s.draftPath(record.ID), data, 0644)
}

// DraftStore implementation

func (s *fsStore) Create(ctx context.Context, draft *core.Draft) (string, error) {
	id := ulid.Make().String()
	now := time.Now()
	record := &draftRecord{
		ID:         id,
		AuthorID:   draft.AuthorID,
		Title:      draft.Title,
		Content:    draft.Content,
		YjsContent: draft.YjsContent,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	log := logrus.WithFields(logrus.Fields{
		"draft_id":  id,
		"file_path": s.draftPath(id),
	})
	if err := s.writeDraft(record); err != nil {
		log.WithError(err).Error("Failed to create draft")
		return "", err
	}
	log.Info("Draft created successfully")
	return id, nil
}

func (s *fsStore) FindID(ctx context.Context, id string) (*core.Draft, error) {
	record, err := s.readDraft(id)
	if err != nil {
		logrus.WithField("draft_id", id).WithError(err).Warn("Failed to retrieve draft")
		return nil, err
	}
	return record.toDraft(), nil
}

func (s *fsStore) FindByAuthor(ctx context.Context, authorID string) ([]*core.Draft, error) {
	draftsDir := filepath.Join(s.basePath, "drafts")
	files, err := os.ReadDir(draftsDir)
	if err != nil {
		return nil, err
	}

	drafts := make([]*core.Draft, 0)
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		record, err := s.readDraft(strings.TrimSuffix(file.Name(), ".json"))
		if err != nil {
			logrus.WithError(err).Warnf("Failed to read draft file %s, skipping", file.Name())
			continue
		}
		if record.AuthorID != authorID {
			continue
		}
		draft := record.toDraft()
		draft.YjsContent = ""
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

func (s *fsStore) Update(ctx context.Context, draft *core.Draft) error {
	record, err := s.readDraft(draft.ID)
	if err != nil {
		return err
	}
	record.Title = draft.Title
	record.Content = draft.Content
	record.UpdatedAt = time.Now()
	return s.writeDraft(record)
}

func (s *fsStore) Delete(ctx context.Context, id string) error {
	if err := os.Remove(s.draftPath(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("draft with id %s not found", id)
		}
		return err
	}
	if err := os.Remove(s.collaboratorsPath(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *fsStore) LoadSnapshot(ctx context.Context, id string) (string, error) {
	record, err := s.readDraft(id)
	if err != nil {
		return "", err
	}
	return record.YjsContent, nil
}

func (s *fsStore) SaveSnapshot(ctx context.Context, id string, content string) error {
	record, err := s.readDraft(id)
	if err != nil {
		return err
	}
	record.YjsContent = content
	record.UpdatedAt = time.Now()
	return s.writeDraft(record)
}

// CollaboratorStore implementation. All collaborators of a draft live in
// one file, rewritten on every change; collaborator lists are small.

func (s *fsStore) readCollaborators(draftID string) ([]*core.Collaborator, error) {
	data, err := os.ReadFile(s.collaboratorsPath(draftID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*core.Collaborator{}, nil
		}
		return nil, err
	}
	var collaborators []*core.Collaborator
	if err := json.Unmarshal(data, &collaborators); err != nil {
		return nil, fmt.Errorf("failed to unmarshal collaborators for draft %s: %w", draftID, err)
	}
	return collaborators, nil
}

func (s *fsStore) writeCollaborators(draftID string, collaborators []*core.Collaborator) error {
	data, err := json.Marshal(collaborators)
	if err != nil {
		return err
	}
	return os.WriteFile(s.collaboratorsPath(draftID), data, 0644)
}

func (s *fsStore) Add(ctx context.Context, collaborator *core.Collaborator) (string, error) {
	collaborators, err := s.readCollaborators(collaborator.DraftID)
	if err != nil {
		return "", err
	}
	for _, c := range collaborators {
		if c.UserID == collaborator.UserID {
			return "", fmt.Errorf("user %s is already a collaborator on draft %s", collaborator.UserID, collaborator.DraftID)
		}
	}

	now := time.Now()
	stored := *collaborator
	stored.ID = ulid.Make().String()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	collaborators = append(collaborators, &stored)

	if err := s.writeCollaborators(collaborator.DraftID, collaborators); err != nil {
		return "", err
	}
	return stored.ID, nil
}

func (s *fsStore) ListByDraft(ctx context.Context, draftID string) ([]*core.Collaborator, error) {
	return s.readCollaborators(draftID)
}

func (s *fsStore) Find(ctx context.Context, draftID, userID string) (*core.Collaborator, error) {
	collaborators, err := s.readCollaborators(draftID)
	if err != nil {
		return nil, err
	}
	for _, c := range collaborators {
		if c.UserID == userID {
			return c, nil
		}
	}
	return nil, fmt.Errorf("user %s is not a collaborator on draft %s", userID, draftID)
}

func (s *fsStore) UpdateRole(ctx context.Context, draftID, userID string, role core.Role) error {
	collaborators, err := s.readCollaborators(draftID)
	if err != nil {
		return err
	}
	for _, c := range collaborators {
		if c.UserID == userID {
			c.Role = role
			c.UpdatedAt = time.Now()
			return s.writeCollaborators(draftID, collaborators)
		}
	}
	return fmt.Errorf("user %s is not a collaborator on draft %s", userID, draftID)
}

func (s *fsStore) Remove(ctx context.Context, draftID, userID string) error {
	collaborators, err := s.readCollaborators(draftID)
	if err != nil {
		return err
	}
	kept := collaborators[:0]
	found := false
	for _, c := range collaborators {
		if c.UserID == userID {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return fmt.Errorf("user %s is not a collaborator on draft %s", userID, draftID)
	}
	return s.writeCollaborators(draftID, kept)
}

func (s *fsStore) RemoveByDraft(ctx context.Context, draftID string) error {
	if err := os.Remove(s.collaboratorsPath(draftID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
