package drafts

import (
	"encoding/json"
	"net/http"

	"github.com/NTDKhoa04/bloggin-be/core"
	"github.com/NTDKhoa04/bloggin-be/handlers/auth"
	"github.com/NTDKhoa04/bloggin-be/middleware"
	"github.com/NTDKhoa04/bloggin-be/stores"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type draftRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func claimsFrom(w http.ResponseWriter, r *http.Request) (*auth.AppClaims, bool) {
	claims, ok := r.Context().Value(middleware.ClaimsContextKey).(*auth.AppClaims)
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "User claims not found"})
		return nil, false
	}
	return claims, true
}

func draftIDFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Draft id is required"})
		return "", false
	}
	return id, true
}

func HandleCreateDraft(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}

		var req draftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if req.Title == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Title is required"})
			return
		}

		draft := &core.Draft{
			AuthorID: claims.Subject,
			Title:    req.Title,
			Content:  req.Content,
		}
		id, err := store.Create(r.Context(), draft)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": claims.Subject,
			}).Error("Failed to create draft")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to create draft"})
			return
		}
		draft.ID = id

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, draft)
	}
}

func HandleListDrafts(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}

		drafts, err := store.FindByAuthor(r.Context(), claims.Subject)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": claims.Subject,
			}).Error("Failed to list drafts")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to list drafts"})
			return
		}

		// If drafts is nil (e.g., user has no drafts), return an empty slice instead of null.
		if drafts == nil {
			drafts = []*core.Draft{}
		}

		render.JSON(w, r, drafts)
	}
}

func HandleGetDraft(store stores.Store, roles core.RoleResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}
		id, ok := draftIDFrom(w, r)
		if !ok {
			return
		}

		role, err := roles.ResolveRole(r.Context(), id, claims.Subject)
		if err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to resolve access"})
			return
		}
		if !role.CanRead() {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Draft not found"})
			return
		}

		draft, err := store.FindID(r.Context(), id)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"userID":  claims.Subject,
				"draftID": id,
			}).Warn("Failed to get draft")
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Draft not found"})
			return
		}

		render.JSON(w, r, draft)
	}
}

func HandleUpdateDraft(store stores.Store, roles core.RoleResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}
		id, ok := draftIDFrom(w, r)
		if !ok {
			return
		}

		role, err := roles.ResolveRole(r.Context(), id, claims.Subject)
		if err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to resolve access"})
			return
		}
		if role != core.RoleOwner {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "Only the owner can update draft metadata"})
			return
		}

		var req draftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}

		draft, err := store.FindID(r.Context(), id)
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Draft not found"})
			return
		}
		if req.Title != "" {
			draft.Title = req.Title
		}
		draft.Content = req.Content

		if err := store.Update(r.Context(), draft); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"userID":  claims.Subject,
				"draftID": id,
			}).Error("Failed to update draft")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to update draft"})
			return
		}

		render.JSON(w, r, draft)
	}
}

func HandleDeleteDraft(store stores.Store, roles core.RoleResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}
		id, ok := draftIDFrom(w, r)
		if !ok {
			return
		}

		role, err := roles.ResolveRole(r.Context(), id, claims.Subject)
		if err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to resolve access"})
			return
		}
		if role != core.RoleOwner {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "Only the owner can delete a draft"})
			return
		}

		if err := store.Delete(r.Context(), id); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"userID":  claims.Subject,
				"draftID": id,
			}).Error("Failed to delete draft")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to delete draft"})
			return
		}
		if err := store.RemoveByDraft(r.Context(), id); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"draftID": id,
			}).Warn("Failed to remove collaborators for deleted draft")
		}

		render.Status(r, http.StatusOK)
	}
}

func HandleGetContent(store stores.Store, roles core.RoleResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}
		id, ok := draftIDFrom(w, r)
		if !ok {
			return
		}

		role, err := roles.ResolveRole(r.Context(), id, claims.Subject)
		if err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to resolve access"})
			return
		}
		if !role.CanRead() {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Draft not found"})
			return
		}

		snapshot, err := store.LoadSnapshot(r.Context(), id)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"draftID": id,
			}).Error("Failed to load draft content")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to load draft content"})
			return
		}

		render.JSON(w, r, map[string]string{
			"draftId":    id,
			"yjsContent": snapshot,
		})
	}
}

func HandleSaveContent(store stores.Store, roles core.RoleResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}
		id, ok := draftIDFrom(w, r)
		if !ok {
			return
		}

		role, err := roles.ResolveRole(r.Context(), id, claims.Subject)
		if err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to resolve access"})
			return
		}
		if !role.CanWrite() {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "You do not have permission to edit this draft"})
			return
		}

		var req struct {
			YjsContent string `json:"yjsContent"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}

		if err := store.SaveSnapshot(r.Context(), id, req.YjsContent); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"userID":  claims.Subject,
				"draftID": id,
			}).Error("Failed to save draft content")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to save draft content"})
			return
		}

		render.Status(r, http.StatusOK)
	}
}
