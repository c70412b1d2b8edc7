package filesystem

import (
	"context"
	"testing"

	"github.com/NTDKhoa04/bloggin-be/core"
)

func TestDraftLifecycle(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	id, err := store.Create(ctx, &core.Draft{AuthorID: "alice", Title: "on disk", Content: "body"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	draft, err := store.FindID(ctx, id)
	if err != nil {
		t.Fatalf("FindID() failed: %v", err)
	}
	if draft.AuthorID != "alice" {
		t.Errorf("AuthorID = %q, want alice (author must survive the file round trip)", draft.AuthorID)
	}
	if draft.Title != "on disk" {
		t.Errorf("Title = %q, want %q", draft.Title, "on disk")
	}

	if err := store.Update(ctx, &core.Draft{ID: id, Title: "renamed"}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	draft, _ = store.FindID(ctx, id)
	if draft.Title != "renamed" {
		t.Errorf("Update() not applied: title = %q", draft.Title)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.FindID(ctx, id); err == nil {
		t.Error("draft still present after Delete()")
	}
}

func TestSnapshotPersistsAcrossStores(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := NewStore(dir)
	id, _ := store.Create(ctx, &core.Draft{AuthorID: "alice", Title: "draft"})
	if err := store.SaveSnapshot(ctx, id, "c3RhdGU="); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}

	// A new store over the same directory sees the saved snapshot.
	reopened := NewStore(dir)
	content, err := reopened.LoadSnapshot(ctx, id)
	if err != nil {
		t.Fatalf("LoadSnapshot() failed: %v", err)
	}
	if content != "c3RhdGU=" {
		t.Errorf("LoadSnapshot() = %q, want saved content", content)
	}
}

func TestFindByAuthor(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	id, _ := store.Create(ctx, &core.Draft{AuthorID: "alice", Title: "mine"})
	store.Create(ctx, &core.Draft{AuthorID: "bob", Title: "theirs"})
	store.SaveSnapshot(ctx, id, "c3RhdGU=")

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

func TestCollaborators(t *testing.T) {
	store := NewStore(t.TempDir())
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
	if err := store.Remove(ctx, id, "bob"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	collabs, _ := store.ListByDraft(ctx, id)
	if len(collabs) != 0 {
		t.Errorf("ListByDraft() after Remove() = %v, want empty", collabs)
	}
}
