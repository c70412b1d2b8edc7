package stores

import (
	"context"

	"github.com/NTDKhoa04/bloggin-be/core"
	"github.com/sirupsen/logrus"
)

// RoleService resolves a user's role on a draft from the stored records:
// the draft's author is its owner, anyone else gets whatever role their
// collaborator record grants, and absence of both yields RoleNone.
type RoleService struct {
	Drafts        core.DraftStore
	Collaborators core.CollaboratorStore
}

func NewRoleService(store Store) *RoleService {
	return &RoleService{Drafts: store, Collaborators: store}
}

func (s *RoleService) ResolveRole(ctx context.Context, draftID, userID string) (core.Role, error) {
	draft, err := s.Drafts.FindID(ctx, draftID)
	if err != nil {
		// An unknown draft grants no access; connecting to it is not a
		// store failure.
		logrus.WithFields(logrus.Fields{
			"draft_id": draftID,
			"user_id":  userID,
		}).WithError(err).Debug("Role lookup on unknown draft")
		return core.RoleNone, nil
	}
	if draft.AuthorID == userID {
		return core.RoleOwner, nil
	}

	collaborator, err := s.Collaborators.Find(ctx, draftID, userID)
	if err != nil {
		return core.RoleNone, nil
	}
	return collaborator.Role, nil
}
