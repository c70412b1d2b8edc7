package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NTDKhoa04/bloggin-be/core"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// memStore implements DraftStore and CollaboratorStore for in-memory storage.
// It is the default backend and the one the tests run against.
type memStore struct {
	mu     sync.RWMutex
	drafts map[string]*core.Draft
	// collaborators is keyed by draftID, then by userID.
	collaborators map[string]map[string]*core.Collaborator
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{
		drafts:        make(map[string]*core.Draft),
		collaborators: make(map[string]map[string]*core.Collaborator),
	}
}

// DraftStore implementation

func (s *memStore) Create(ctx context.Context, draft *core.Draft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if draft.AuthorID == "" {
		return "", fmt.Errorf("author id cannot be empty")
	}

	id := ulid.Make().String()
	now := time.Now()
	stored := *draft
	stored.ID = id
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.drafts[id] = &stored

	logrus.WithFields(logrus.Fields{
		"draft_id":  id,
		"author_id": draft.AuthorID,
	}).Info("Draft created successfully")
	return id, nil
}

func (s *memStore) FindID(ctx context.Context, id string) (*core.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := logrus.WithField("draft_id", id)
	if draft, ok := s.drafts[id]; ok {
		copied := *draft
		log.Debug("Draft retrieved successfully")
		return &copied, nil
	}
	log.Warn("Draft with specified ID not found")
	return nil, fmt.Errorf("draft with id %s not found", id)
}

func (s *memStore) FindByAuthor(ctx context.Context, authorID string) ([]*core.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	drafts := make([]*core.Draft, 0)
	for _, draft := range s.drafts {
		if draft.AuthorID != authorID {
			continue
		}
		// List views do not carry the snapshot blob.
		listDraft := *draft
		listDraft.YjsContent = ""
		drafts = append(drafts, &listDraft)
	}
	logrus.WithField("author_id", authorID).Infof("Listed %d drafts", len(drafts))
	return drafts, nil
}

func (s *memStore) Update(ctx context.Context, draft *core.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.drafts[draft.ID]
	if !ok {
		return fmt.Errorf("draft with id %s not found", draft.ID)
	}
	existing.Title = draft.Title
	existing.Content = draft.Content
	existing.UpdatedAt = time.Now()

	logrus.WithField("draft_id", draft.ID).Info("Draft updated successfully")
	return nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[id]; !ok {
		return fmt.Errorf("draft with id %s not found", id)
	}
	delete(s.drafts, id)
	delete(s.collaborators, id)

	logrus.WithField("draft_id", id).Info("Draft deleted successfully")
	return nil
}

func (s *memStore) LoadSnapshot(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, ok := s.drafts[id]
	if !ok {
		return "", fmt.Errorf("draft with id %s not found", id)
	}
	return draft.YjsContent, nil
}

func (s *memStore) SaveSnapshot(ctx context.Context, id string, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[id]
	if !ok {
		return fmt.Errorf("draft with id %s not found", id)
	}
	draft.YjsContent = content
	draft.UpdatedAt = time.Now()

	logrus.WithFields(logrus.Fields{
		"draft_id":       id,
		"content_length": len(content),
	}).Debug("Snapshot saved successfully")
	return nil
}

// CollaboratorStore implementation

func (s *memStore) Add(ctx context.Context, collaborator *core.Collaborator) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if collaborator.DraftID == "" || collaborator.UserID == "" {
		return "", fmt.Errorf("draft id and user id cannot be empty")
	}

	draftCollabs, ok := s.collaborators[collaborator.DraftID]
	if !ok {
		draftCollabs = make(map[string]*core.Collaborator)
		s.collaborators[collaborator.DraftID] = draftCollabs
	}
	if _, exists := draftCollabs[collaborator.UserID]; exists {
		return "", fmt.Errorf("user %s is already a collaborator on draft %s", collaborator.UserID, collaborator.DraftID)
	}

	id := ulid.Make().String()
	now := time.Now()
	stored := *collaborator
	stored.ID = id
	stored.CreatedAt = now
	stored.UpdatedAt = now
	draftCollabs[collaborator.UserID] = &stored

	logrus.WithFields(logrus.Fields{
		"draft_id": collaborator.DraftID,
		"user_id":  collaborator.UserID,
		"role":     collaborator.Role,
	}).Info("Collaborator added successfully")
	return id, nil
}

func (s *memStore) ListByDraft(ctx context.Context, draftID string) ([]*core.Collaborator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	collabs := make([]*core.Collaborator, 0, len(s.collaborators[draftID]))
	for _, c := range s.collaborators[draftID] {
		copied := *c
		collabs = append(collabs, &copied)
	}
	return collabs, nil
}

func (s *memStore) Find(ctx context.Context, draftID, userID string) (*core.Collaborator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.collaborators[draftID][userID]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, fmt.Errorf("user %s is not a collaborator on draft %s", userID, draftID)
}

func (s *memStore) UpdateRole(ctx context.Context, draftID, userID string, role core.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collaborators[draftID][userID]
	if !ok {
		return fmt.Errorf("user %s is not a collaborator on draft %s", userID, draftID)
	}
	c.Role = role
	c.UpdatedAt = time.Now()
	return nil
}

func (s *memStore) Remove(ctx context.Context, draftID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collaborators[draftID][userID]; !ok {
		return fmt.Errorf("user %s is not a collaborator on draft %s", userID, draftID)
	}
	delete(s.collaborators[draftID], userID)
	return nil
}

func (s *memStore) RemoveByDraft(ctx context.Context, draftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collaborators, draftID)
	return nil
}
