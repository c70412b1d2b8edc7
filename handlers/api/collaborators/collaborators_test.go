package collaborators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/NTDKhoa04/bloggin-be/core"
	"github.com/NTDKhoa04/bloggin-be/handlers/auth"
	"github.com/NTDKhoa04/bloggin-be/middleware"
	"github.com/NTDKhoa04/bloggin-be/stores"
	"github.com/NTDKhoa04/bloggin-be/stores/memory"
	"github.com/go-chi/chi/v5"
)

func asUser(subject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := &auth.AppClaims{Login: subject}
			claims.Subject = subject
			ctx := context.WithValue(r.Context(), middleware.ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func testRouter(store stores.Store, subject string) chi.Router {
	roles := stores.NewRoleService(store)
	r := chi.NewRouter()
	r.Use(asUser(subject))
	r.Get("/drafts/{id}/collaborators", HandleListCollaborators(store, roles))
	r.Post("/drafts/{id}/collaborators", HandleAddCollaborator(store, roles))
	r.Put("/drafts/{id}/collaborators/{userId}", HandleUpdateCollaborator(store, roles))
	r.Delete("/drafts/{id}/collaborators/{userId}", HandleRemoveCollaborator(store, roles))
	return r
}

func setupDraft(t *testing.T, store stores.Store) string {
	t.Helper()
	id, err := store.Create(context.Background(), &core.Draft{AuthorID: "alice", Title: "shared"})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	return id
}

func TestAddCollaborator(t *testing.T) {
	store := memory.NewStore()
	id := setupDraft(t, store)

	router := testRouter(store, "alice")
	req := httptest.NewRequest(http.MethodPost, "/drafts/"+id+"/collaborators", strings.NewReader(`{"userId":"bob","role":"editor"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	c, err := store.Find(context.Background(), id, "bob")
	if err != nil {
		t.Fatalf("expected collaborator record: %v", err)
	}
	if c.Role != core.RoleEditor {
		t.Errorf("expected editor role, got %q", c.Role)
	}
}

func TestAddCollaborator_OwnerRoleRejected(t *testing.T) {
	store := memory.NewStore()
	id := setupDraft(t, store)

	router := testRouter(store, "alice")
	req := httptest.NewRequest(http.MethodPost, "/drafts/"+id+"/collaborators", strings.NewReader(`{"userId":"bob","role":"owner"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for owner role, got %d", rec.Code)
	}
}

func TestAddCollaborator_DuplicateRejected(t *testing.T) {
	store := memory.NewStore()
	id := setupDraft(t, store)
	if _, err := store.Add(context.Background(), &core.Collaborator{DraftID: id, UserID: "bob", Role: core.RoleViewer}); err != nil {
		t.Fatalf("add collaborator: %v", err)
	}

	router := testRouter(store, "alice")
	req := httptest.NewRequest(http.MethodPost, "/drafts/"+id+"/collaborators", strings.NewReader(`{"userId":"bob","role":"editor"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rec.Code)
	}
}

func TestAddCollaborator_NonOwnerForbidden(t *testing.T) {
	store := memory.NewStore()
	id := setupDraft(t, store)
	if _, err := store.Add(context.Background(), &core.Collaborator{DraftID: id, UserID: "bob", Role: core.RoleEditor}); err != nil {
		t.Fatalf("add collaborator: %v", err)
	}

	router := testRouter(store, "bob")
	req := httptest.NewRequest(http.MethodPost, "/drafts/"+id+"/collaborators", strings.NewReader(`{"userId":"carol","role":"viewer"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for editor managing collaborators, got %d", rec.Code)
	}
}

func TestUpdateCollaboratorRole(t *testing.T) {
	store := memory.NewStore()
	id := setupDraft(t, store)
	if _, err := store.Add(context.Background(), &core.Collaborator{DraftID: id, UserID: "bob", Role: core.RoleViewer}); err != nil {
		t.Fatalf("add collaborator: %v", err)
	}

	router := testRouter(store, "alice")
	req := httptest.NewRequest(http.MethodPut, "/drafts/"+id+"/collaborators/bob", strings.NewReader(`{"role":"editor"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	c, err := store.Find(context.Background(), id, "bob")
	if err != nil {
		t.Fatalf("find collaborator: %v", err)
	}
	if c.Role != core.RoleEditor {
		t.Errorf("expected promotion to editor, got %q", c.Role)
	}
}

func TestRemoveCollaborator_SelfRemoval(t *testing.T) {
	store := memory.NewStore()
	id := setupDraft(t, store)
	if _, err := store.Add(context.Background(), &core.Collaborator{DraftID: id, UserID: "bob", Role: core.RoleViewer}); err != nil {
		t.Fatalf("add collaborator: %v", err)
	}

	router := testRouter(store, "bob")
	req := httptest.NewRequest(http.MethodDelete, "/drafts/"+id+"/collaborators/bob", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for self-removal, got %d", rec.Code)
	}
	if _, err := store.Find(context.Background(), id, "bob"); err == nil {
		t.Error("expected collaborator record to be gone")
	}
}
