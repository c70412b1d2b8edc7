package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/NTDKhoa04/bloggin-be/core"
)

func TestCreate_Success(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	id, err := store.Create(ctx, &core.Draft{AuthorID: "alice", Title: "First draft"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if id == "" {
		t.Error("Create() returned empty ID")
	}

	// Verify the ID is a valid ULID format (26 characters)
	if len(id) != 26 {
		t.Errorf("Create() returned invalid ID length: got %d, want 26", len(id))
	}
}

func TestCreate_MissingAuthor(t *testing.T) {
	store := NewStore()
	if _, err := store.Create(context.Background(), &core.Draft{Title: "orphan"}); err == nil {
		t.Error("Create() should fail without an author")
	}
}

func TestFindID_Success(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	id, err := store.Create(ctx, &core.Draft{AuthorID: "alice", Title: "First draft", Content: "hello"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	draft, err := store.FindID(ctx, id)
	if err != nil {
		t.Fatalf("FindID() failed: %v", err)
	}
	if draft.Title != "First draft" || draft.Content != "hello" {
		t.Errorf("FindID() = %+v, want title and content preserved", draft)
	}
	if draft.CreatedAt.IsZero() || draft.UpdatedAt.IsZero() {
		t.Error("FindID() timestamps not set")
	}
}

func TestFindID_NotFound(t *testing.T) {
	store := NewStore()
	_, err := store.FindID(context.Background(), "nonexistent-id")
	if err == nil {
		t.Error("FindID() should return error for nonexistent ID")
	}
}

func TestFindByAuthor_OmitsSnapshot(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	id, _ := store.Create(ctx, &core.Draft{AuthorID: "alice", Title: "Mine"})
	store.Create(ctx, &core.Draft{AuthorID: "bob", Title: "Not mine"})
	if err := store.SaveSnapshot(ctx, id, "c29tZSBzdGF0ZQ=="); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}

	drafts, err := store.FindByAuthor(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByAuthor() failed: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("FindByAuthor() returned %d drafts, want 1", len(drafts))
	}
	if drafts[0].YjsContent != "" {
		t.Error("list view should not carry the snapshot blob")
	}
}

func TestUpdate_Success(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	id, _ := store.Create(ctx, &core.Draft{AuthorID: "alice", Title: "old"})
	if err := store.Update(ctx, &core.Draft{ID: id, Title: "new", Content: "body"}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	draft, _ := store.FindID(ctx, id)
	if draft.Title != "new" || draft.Content != "body" {
		t.Errorf("Update() not applied: %+v", draft)
	}
	if draft.AuthorID != "alice" {
		t.Error("Update() must not change the author")
	}
}

func TestDelete_RemovesCollaborators(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	id, _ := store.Create(ctx, &core.Draft{AuthorID: "alice", Title: "doomed"})
	if _, err := store.Add(ctx, &core.Collaborator{DraftID: id, UserID: "bob", Role: core.RoleEditor}); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.FindID(ctx, id); err == nil {
		t.Error("draft still present after Delete()")
	}
	collabs, _ := store.ListByDraft(ctx, id)
	if len(collabs) != 0 {
		t.Errorf("collaborators survived draft deletion: %v", collabs)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	id, _ := store.Create(ctx, &core.Draft{AuthorID: "alice", Title: "draft"})

	content, err := store.LoadSnapshot(ctx, id)
	if err != nil {
		t.Fatalf("LoadSnapshot() failed: %v", err)
	}
	if content != "" {
		t.Errorf("fresh draft snapshot = %q, want empty", content)
	}

	if err := store.SaveSnapshot(ctx, id, "c3RhdGU="); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}
	content, err = store.LoadSnapshot(ctx, id)
	if err != nil {
		t.Fatalf("LoadSnapshot() failed: %v", err)
	}
	if content != "c3RhdGU=" {
		t.Errorf("LoadSnapshot() = %q, want saved content", content)
	}
}

func TestSaveSnapshot_UnknownDraft(t *testing.T) {
	store := NewStore()
	if err := store.SaveSnapshot(context.Background(), "missing", "x"); err == nil {
		t.Error("SaveSnapshot() should fail for an unknown draft")
	}
}

func TestCollaborators_AddFindRemove(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	id, _ := store.Create(ctx, &core.Draft{AuthorID: "alice", Title: "shared"})

	if _, err := store.Add(ctx, &core.Collaborator{DraftID: id, UserID: "bob", Role: core.RoleEditor}); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if _, err := store.Add(ctx, &core.Collaborator{DraftID: id, UserID: "bob", Role: core.RoleViewer}); err == nil {
		t.Error("Add() should reject a duplicate collaborator")
	}

	collab, err := store.Find(ctx, id, "bob")
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if collab.Role != core.RoleEditor {
		t.Errorf("Find() role = %q, want editor", collab.Role)
	}

	if err := store.UpdateRole(ctx, id, "bob", core.RoleViewer); err != nil {
		t.Fatalf("UpdateRole() failed: %v", err)
	}
	collab, _ = store.Find(ctx, id, "bob")
	if collab.Role != core.RoleViewer {
		t.Errorf("UpdateRole() not applied: role = %q", collab.Role)
	}

	if err := store.Remove(ctx, id, "bob"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if _, err := store.Find(ctx, id, "bob"); err == nil {
		t.Error("collaborator still present after Remove()")
	}
}

func TestConcurrentCreate(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	numGoroutines := 10
	var wg sync.WaitGroup
	idsMutex := sync.Mutex{}
	ids := make(map[string]bool)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := store.Create(ctx, &core.Draft{AuthorID: "alice", Title: "concurrent"})
			if err != nil {
				t.Errorf("Create() failed: %v", err)
				return
			}
			idsMutex.Lock()
			ids[id] = true
			idsMutex.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != numGoroutines {
		t.Errorf("got %d unique IDs, want %d", len(ids), numGoroutines)
	}
	drafts, _ := store.FindByAuthor(ctx, "alice")
	if len(drafts) != numGoroutines {
		t.Errorf("FindByAuthor() returned %d drafts, want %d", len(drafts), numGoroutines)
	}
}
