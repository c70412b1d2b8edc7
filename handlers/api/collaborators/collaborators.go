package collaborators

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

type collaboratorRequest struct {
	UserID string    `json:"userId"`
	Role   core.Role `json:"role"`
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

func requireRole(w http.ResponseWriter, r *http.Request, roles core.RoleResolver, draftID, userID string) (core.Role, bool) {
	role, err := roles.ResolveRole(r.Context(), draftID, userID)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "Failed to resolve access"})
		return core.RoleNone, false
	}
	return role, true
}

func HandleListCollaborators(store stores.Store, roles core.RoleResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}
		draftID, ok := draftIDFrom(w, r)
		if !ok {
			return
		}

		role, ok := requireRole(w, r, roles, draftID, claims.Subject)
		if !ok {
			return
		}
		if !role.CanRead() {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Draft not found"})
			return
		}

		collaborators, err := store.ListByDraft(r.Context(), draftID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"draftID": draftID,
			}).Error("Failed to list collaborators")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to list collaborators"})
			return
		}

		if collaborators == nil {
			collaborators = []*core.Collaborator{}
		}

		render.JSON(w, r, collaborators)
	}
}

func HandleAddCollaborator(store stores.Store, roles core.RoleResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}
		draftID, ok := draftIDFrom(w, r)
		if !ok {
			return
		}

		role, ok := requireRole(w, r, roles, draftID, claims.Subject)
		if !ok {
			return
		}
		if role != core.RoleOwner {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "Only the owner can manage collaborators"})
			return
		}

		var req collaboratorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if req.UserID == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "userId is required"})
			return
		}
		if !req.Role.Assignable() {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Role must be editor or viewer"})
			return
		}
		if req.UserID == claims.Subject {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "The author is already the owner"})
			return
		}

		if _, err := store.Find(r.Context(), draftID, req.UserID); err == nil {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, map[string]string{"error": "User is already a collaborator"})
			return
		}

		collaborator := &core.Collaborator{
			DraftID: draftID,
			UserID:  req.UserID,
			Role:    req.Role,
		}
		id, err := store.Add(r.Context(), collaborator)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"draftID": draftID,
				"userID":  req.UserID,
			}).Error("Failed to add collaborator")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to add collaborator"})
			return
		}
		collaborator.ID = id

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, collaborator)
	}
}

func HandleUpdateCollaborator(store stores.Store, roles core.RoleResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}
		draftID, ok := draftIDFrom(w, r)
		if !ok {
			return
		}
		userID := chi.URLParam(r, "userId")
		if userID == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "userId is required"})
			return
		}

		role, ok := requireRole(w, r, roles, draftID, claims.Subject)
		if !ok {
			return
		}
		if role != core.RoleOwner {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "Only the owner can manage collaborators"})
			return
		}

		var req struct {
			Role core.Role `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if !req.Role.Assignable() {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Role must be editor or viewer"})
			return
		}

		if err := store.UpdateRole(r.Context(), draftID, userID, req.Role); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"draftID": draftID,
				"userID":  userID,
			}).Warn("Failed to update collaborator role")
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Collaborator not found"})
			return
		}

		render.Status(r, http.StatusOK)
	}
}

func HandleRemoveCollaborator(store stores.Store, roles core.RoleResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(w, r)
		if !ok {
			return
		}
		draftID, ok := draftIDFrom(w, r)
		if !ok {
			return
		}
		userID := chi.URLParam(r, "userId")
		if userID == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "userId is required"})
			return
		}

		role, ok := requireRole(w, r, roles, draftID, claims.Subject)
		if !ok {
			return
		}
		// Collaborators may remove themselves; everyone else needs ownership.
		if role != core.RoleOwner && claims.Subject != userID {
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, map[string]string{"error": "Only the owner can manage collaborators"})
			return
		}

		if err := store.Remove(r.Context(), draftID, userID); err != nil {
			logrus.WithFields(logrus.Fields{
				"error":   err,
				"draftID": draftID,
				"userID":  userID,
			}).Warn("Failed to remove collaborator")
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Collaborator not found"})
			return
		}

		render.Status(r, http.StatusOK)
	}
}
