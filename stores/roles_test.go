package stores

import (
	"context"
	"testing"

	"github.com/NTDKhoa04/bloggin-be/core"
	"github.com/NTDKhoa04/bloggin-be/stores/memory"
)

func TestResolveRole(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	draftID, err := store.Create(ctx, &core.Draft{AuthorID: "alice", Title: "shared draft"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err := store.Add(ctx, &core.Collaborator{DraftID: draftID, UserID: "bob", Role: core.RoleEditor}); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if _, err := store.Add(ctx, &core.Collaborator{DraftID: draftID, UserID: "carol", Role: core.RoleViewer}); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	service := NewRoleService(store)

	tests := []struct {
		name    string
		draftID string
		userID  string
		want    core.Role
	}{
		{"author is owner", draftID, "alice", core.RoleOwner},
		{"collaborator editor", draftID, "bob", core.RoleEditor},
		{"collaborator viewer", draftID, "carol", core.RoleViewer},
		{"stranger has no role", draftID, "mallory", core.RoleNone},
		{"unknown draft has no role", "missing", "alice", core.RoleNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.ResolveRole(ctx, tt.draftID, tt.userID)
			if err != nil {
				t.Fatalf("ResolveRole() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveRole() = %q, want %q", got, tt.want)
			}
		})
	}
}
