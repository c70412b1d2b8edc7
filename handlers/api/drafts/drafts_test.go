package drafts

import (
	"context"
	"encoding/json"
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
	r.Post("/drafts", HandleCreateDraft(store))
	r.Get("/drafts", HandleListDrafts(store))
	r.Get("/drafts/{id}", HandleGetDraft(store, roles))
	r.Put("/drafts/{id}", HandleUpdateDraft(store, roles))
	r.Delete("/drafts/{id}", HandleDeleteDraft(store, roles))
	r.Get("/drafts/{id}/content", HandleGetContent(store, roles))
	r.Put("/drafts/{id}/content", HandleSaveContent(store, roles))
	return r
}

func createDraft(t *testing.T, store stores.Store, authorID, title string) string {
	t.Helper()
	id, err := store.Create(context.Background(), &core.Draft{AuthorID: authorID, Title: title})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	return id
}

func TestCreateDraft(t *testing.T) {
	store := memory.NewStore()
	router := testRouter(store, "alice")

	req := httptest.NewRequest(http.MethodPost, "/drafts", strings.NewReader(`{"title":"My first post"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var draft core.Draft
	if err := json.Unmarshal(rec.Body.Bytes(), &draft); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if draft.ID == "" {
		t.Error("expected a generated draft id")
	}
	if draft.Title != "My first post" {
		t.Errorf("expected title to round-trip, got %q", draft.Title)
	}
}

func TestCreateDraft_MissingTitle(t *testing.T) {
	store := memory.NewStore()
	router := testRouter(store, "alice")

	req := httptest.NewRequest(http.MethodPost, "/drafts", strings.NewReader(`{"content":"no title"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetDraft_StrangerGets404(t *testing.T) {
	store := memory.NewStore()
	id := createDraft(t, store, "alice", "private")

	router := testRouter(store, "mallory")
	req := httptest.NewRequest(http.MethodGet, "/drafts/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-collaborator, got %d", rec.Code)
	}
}

func TestGetDraft_ViewerCanRead(t *testing.T) {
	store := memory.NewStore()
	id := createDraft(t, store, "alice", "shared")
	if _, err := store.Add(context.Background(), &core.Collaborator{DraftID: id, UserID: "bob", Role: core.RoleViewer}); err != nil {
		t.Fatalf("add collaborator: %v", err)
	}

	router := testRouter(store, "bob")
	req := httptest.NewRequest(http.MethodGet, "/drafts/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for viewer, got %d", rec.Code)
	}
}

func TestUpdateDraft_EditorForbidden(t *testing.T) {
	store := memory.NewStore()
	id := createDraft(t, store, "alice", "original")
	if _, err := store.Add(context.Background(), &core.Collaborator{DraftID: id, UserID: "bob", Role: core.RoleEditor}); err != nil {
		t.Fatalf("add collaborator: %v", err)
	}

	router := testRouter(store, "bob")
	req := httptest.NewRequest(http.MethodPut, "/drafts/"+id, strings.NewReader(`{"title":"hijacked"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for editor updating metadata, got %d", rec.Code)
	}
}

func TestDeleteDraft_RemovesCollaborators(t *testing.T) {
	store := memory.NewStore()
	id := createDraft(t, store, "alice", "doomed")
	if _, err := store.Add(context.Background(), &core.Collaborator{DraftID: id, UserID: "bob", Role: core.RoleEditor}); err != nil {
		t.Fatalf("add collaborator: %v", err)
	}

	router := testRouter(store, "alice")
	req := httptest.NewRequest(http.MethodDelete, "/drafts/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if _, err := store.FindID(context.Background(), id); err == nil {
		t.Error("expected draft to be gone")
	}
	if _, err := store.Find(context.Background(), id, "bob"); err == nil {
		t.Error("expected collaborator record to be gone")
	}
}

func TestSaveContent_ViewerForbidden(t *testing.T) {
	store := memory.NewStore()
	id := createDraft(t, store, "alice", "read only")
	if _, err := store.Add(context.Background(), &core.Collaborator{DraftID: id, UserID: "carol", Role: core.RoleViewer}); err != nil {
		t.Fatalf("add collaborator: %v", err)
	}

	router := testRouter(store, "carol")
	req := httptest.NewRequest(http.MethodPut, "/drafts/"+id+"/content", strings.NewReader(`{"yjsContent":"aGVsbG8="}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer, got %d", rec.Code)
	}
}

func TestContentRoundTrip(t *testing.T) {
	store := memory.NewStore()
	id := createDraft(t, store, "alice", "with content")

	router := testRouter(store, "alice")
	req := httptest.NewRequest(http.MethodPut, "/drafts/"+id+"/content", strings.NewReader(`{"yjsContent":"aGVsbG8="}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("save content: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/drafts/"+id+"/content", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get content: expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["yjsContent"] != "aGVsbG8=" {
		t.Errorf("expected snapshot to round-trip, got %q", resp["yjsContent"])
	}
}
