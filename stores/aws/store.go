package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/NTDKhoa04/bloggin-be/core"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
)

type s3Store struct {
	s3Client *s3.Client
	bucket   string
}

// draftRecord is the stored object form; core.Draft hides AuthorID from
// JSON responses, so the object format carries its own tags.
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

// NewStore creates a new S3-based store.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	return &s3Store{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucketName,
	}
}

func draftKey(id string) string {
	return "drafts/" + id + ".json"
}

func collaboratorsKey(draftID string) string {
	return "collaborators/" + draftID + ".json"
}

func (s *s3Store) getObject(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (s *s3Store) putObject(ctx context.Context, key string, data []byte) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	return errors.As(err, &nsk)
}

func (s *s3Store) readDraft(ctx context.Context, id string) (*draftRecord, error) {
	data, err := s.getObject(ctx, draftKey(id))
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("draft with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get draft %s: %v", id, err)
	}
	var record draftRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft %s: %v", id, err)
	}
	return &record, nil
}

func (s *s3Store) writeDraft(ctx context.Context, record *draftRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %v", err)
	}
	if err := s.putObject(ctx, draftKey(record.ID), data); err != nil {
		return fmt.Errorf("failed to save draft %s: %v", record.ID, err)
	}
	return nil
}

// DraftStore implementation

func (s *s3Store) Create(ctx context.Context, draft *core.Draft) (string, error) {
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
	if err := s.writeDraft(ctx, record); err != nil {
		return "", err
	}
	return id, nil
}

func (s *s3Store) FindID(ctx context.Context, id string) (*core.Draft, error) {
	record, err := s.readDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	return record.toDraft(), nil
}

func (s *s3Store) FindByAuthor(ctx context.Context, authorID string) ([]*core.Draft, error) {
	output, err := s.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String("drafts/"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %v", err)
	}

	drafts := make([]*core.Draft, 0, len(output.Contents))
	for _, object := range output.Contents {
		data, err := s.getObject(ctx, *object.Key)
		if err != nil {
			log.Printf("warn: failed to get object %s: %v", *object.Key, err)
			continue
		}
		var record draftRecord
		if err := json.Unmarshal(data, &record); err != nil {
			log.Printf("warn: failed to unmarshal draft %s: %v", *object.Key, err)
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

func (s *s3Store) Update(ctx context.Context, draft *core.Draft) error {
	record, err := s.readDraft(ctx, draft.ID)
	if err != nil {
		return err
	}
	record.Title = draft.Title
	record.Content = draft.Content
	record.UpdatedAt = time.Now()
	return s.writeDraft(ctx, record)
}

func (s *s3Store) Delete(ctx context.Context, id string) error {
	for _, key := range []string{draftKey(id), collaboratorsKey(id)} {
		_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to delete %s: %v", key, err)
		}
	}
	return nil
}

func (s *s3Store) LoadSnapshot(ctx context.Context, id string) (string, error) {
	record, err := s.readDraft(ctx, id)
	if err != nil {
		return "", err
	}
	return record.YjsContent, nil
}

func (s *s3Store) SaveSnapshot(ctx context.Context, id string, content string) error {
	record, err := s.readDraft(ctx, id)
	if err != nil {
		return err
	}
	record.YjsContent = content
	record.UpdatedAt = time.Now()
	return s.writeDraft(ctx, record)
}

// CollaboratorStore implementation; one object holds all collaborators of
// a draft.

func (s *s3Store) readCollaborators(ctx context.Context, draftID string) ([]*core.Collaborator, error) {
	data, err := s.getObject(ctx, collaboratorsKey(draftID))
	if err != nil {
		if isNotFound(err) {
			return []*core.Collaborator{}, nil
		}
		return nil, fmt.Errorf("failed to get collaborators for draft %s: %v", draftID, err)
	}
	var collaborators []*core.Collaborator
	if err := json.Unmarshal(data, &collaborators); err != nil {
		return nil, fmt.Errorf("failed to unmarshal collaborators for draft %s: %v", draftID, err)
	}
	return collaborators, nil
}

func (s *s3Store) writeCollaborators(ctx context.Context, draftID string, collaborators []*core.Collaborator) error {
	data, err := json.Marshal(collaborators)
	if err != nil {
		return fmt.Errorf("failed to marshal collaborators: %v", err)
	}
	if err := s.putObject(ctx, collaboratorsKey(draftID), data); err != nil {
		return fmt.Errorf("failed to save collaborators for draft %s: %v", draftID, err)
	}
	return nil
}

func (s *s3Store) Add(ctx context.Context, collaborator *core.Collaborator) (string, error) {
	collaborators, err := s.readCollaborators(ctx, collaborator.DraftID)
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

	if err := s.writeCollaborators(ctx, collaborator.DraftID, collaborators); err != nil {
		return "", err
	}
	return stored.ID, nil
}

func (s *s3Store) ListByDraft(ctx context.Context, draftID string) ([]*core.Collaborator, error) {
	return s.readCollaborators(ctx, draftID)
}

func (s *s3Store) Find(ctx context.Context, draftID, userID string) (*core.Collaborator, error) {
	collaborators, err := s.readCollaborators(ctx, draftID)
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

func (s *s3Store) UpdateRole(ctx context.Context, draftID, userID string, role core.Role) error {
	collaborators, err := s.readCollaborators(ctx, draftID)
	if err != nil {
		return err
	}
	for _, c := range collaborators {
		if c.UserID == userID {
			c.Role = role
			c.UpdatedAt = time.Now()
			return s.writeCollaborators(ctx, draftID, collaborators)
		}
	}
	return fmt.Errorf("user %s is not a collaborator on draft %s", userID, draftID)
}

func (s *s3Store) Remove(ctx context.Context, draftID, userID string) error {
	collaborators, err := s.readCollaborators(ctx, draftID)
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
	return s.writeCollaborators(ctx, draftID, kept)
}

func (s *s3Store) RemoveByDraft(ctx context.Context, draftID string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(collaboratorsKey(draftID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete collaborators for draft %s: %v", draftID, err)
	}
	return nil
}
