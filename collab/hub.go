// Package collab implements the real-time collaborative editing core: the
// session registry, per-draft replicated documents, presence rosters, and
// debounced persistence. The transport (handlers/websocket) stays thin and
// delegates every state decision to the Hub here, so the whole core is
// testable without a socket.
package collab

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/NTDKhoa04/bloggin-be/core"
	"github.com/sirupsen/logrus"
)

// DefaultSaveDelay is the quiet interval after the last accepted update
// before the document state is persisted.
const DefaultSaveDelay = 2 * time.Second

var (
	// ErrUnauthorized rejects a connection before any session is created.
	ErrUnauthorized = errors.New("collab: not authorized for this draft")

	// ErrNoSession is returned for messages from unknown connections.
	ErrNoSession = errors.New("collab: no session for connection")

	// ErrPermissionDenied rejects a write from a viewer. The connection
	// stays open.
	ErrPermissionDenied = errors.New("collab: role does not permit editing")
)

// Config wires the Hub to its external collaborators.
type Config struct {
	Roles     core.RoleResolver
	Snapshots SnapshotStore
	SaveDelay time.Duration // zero means DefaultSaveDelay
}

// Hub owns all per-draft collaboration state for this process.
type Hub struct {
	roles     core.RoleResolver
	snapshots SnapshotStore
	sessions  *sessionRegistry
	presence  *presenceTracker
	arena     *docArena
	saver     *saveScheduler
}

func NewHub(cfg Config) *Hub {
	if cfg.SaveDelay <= 0 {
		cfg.SaveDelay = DefaultSaveDelay
	}
	h := &Hub{
		roles:     cfg.Roles,
		snapshots: cfg.Snapshots,
		sessions:  newSessionRegistry(),
		presence:  newPresenceTracker(),
		arena:     newDocArena(cfg.Snapshots),
	}
	h.saver = newSaveScheduler(cfg.SaveDelay, h.saveSnapshot)
	return h
}

// Connect authorizes a new connection, registers its session, hydrates the
// draft's document if needed and adds the connection to the roster. The
// returned roster already includes the new participant and is meant to be
// sent to the joining client.
func (h *Hub) Connect(ctx context.Context, connID, userID, draftID string) (*Session, []PresenceEntry, error) {
	log := logrus.WithFields(logrus.Fields{
		"conn_id":  connID,
		"user_id":  userID,
		"draft_id": draftID,
	})

	if userID == "" || draftID == "" {
		log.Warn("Connection rejected: missing user or draft id")
		return nil, nil, ErrUnauthorized
	}

	role, err := h.roles.ResolveRole(ctx, draftID, userID)
	if err != nil {
		log.WithError(err).Error("Failed to resolve role")
		return nil, nil, fmt.Errorf("resolve role: %w", err)
	}
	if role == core.RoleNone {
		log.Warn("Connection rejected: user has no access to draft")
		return nil, nil, ErrUnauthorized
	}

	h.arena.getOrCreate(ctx, draftID)

	sess := &Session{ConnID: connID, UserID: userID, DraftID: draftID, Role: role}
	h.sessions.add(sess)
	h.presence.join(draftID, PresenceEntry{ConnID: connID, UserID: userID, Role: role})

	log.WithField("role", role).Info("Client connected to draft")
	return sess, h.presence.roster(draftID), nil
}

// Disconnect tears down a connection's session and roster entry.
// transportRoomSize is the transport's view of how many sockets remain in
// the draft's room after this one left; pass a negative value when that
// view is unavailable, which falls back to always attempting a save (a
// redundant save is harmless, a skipped one is not). The removed session is
// returned so the caller can notify the remaining room.
func (h *Hub) Disconnect(connID string, transportRoomSize int) (*Session, bool) {
	sess, ok := h.sessions.remove(connID)
	if !ok {
		return nil, false
	}
	remaining := h.presence.leave(sess.DraftID, connID)

	log := logrus.WithFields(logrus.Fields{
		"conn_id":  connID,
		"draft_id": sess.DraftID,
	})
	if transportRoomSize < 0 {
		log.Debug("Room membership unavailable, saving defensively")
		h.saver.flush(sess.DraftID)
	} else if transportRoomSize == 0 {
		h.saver.flush(sess.DraftID)
	}

	if remaining == 0 && h.sessions.countForDraft(sess.DraftID) == 0 {
		h.saver.flush(sess.DraftID)
		if h.saver.isDirty(sess.DraftID) {
			// Save failed; keep the instance so the snapshot is not lost.
			log.Warn("Last client left with unsaved changes, keeping document in memory")
		} else {
			h.arena.evict(sess.DraftID)
			log.Info("Last client left, evicted document from memory")
		}
	}
	return sess, true
}

// ApplyUpdate merges raw update bytes from a connection into its draft's
// document and schedules persistence. The caller relays the same bytes to
// the rest of the room only when this returns nil.
func (h *Hub) ApplyUpdate(connID string, update []byte) (*Session, error) {
	sess, ok := h.sessions.get(connID)
	if !ok {
		return nil, ErrNoSession
	}
	if !sess.Role.CanWrite() {
		logrus.WithFields(logrus.Fields{
			"user_id":  sess.UserID,
			"draft_id": sess.DraftID,
		}).Warn("Viewer attempted to send an update")
		return sess, ErrPermissionDenied
	}

	d, ok := h.arena.get(sess.DraftID)
	if !ok {
		// Session invariant guarantees residency; treat as internal failure.
		return sess, fmt.Errorf("document for draft %s not in memory", sess.DraftID)
	}
	if err := d.apply(update); err != nil {
		return sess, fmt.Errorf("apply update: %w", err)
	}
	h.saver.markDirty(sess.DraftID)
	return sess, nil
}

// EncodeState returns the full current document state for the connection's
// draft, answering a request-sync.
func (h *Hub) EncodeState(connID string) ([]byte, *Session, error) {
	sess, ok := h.sessions.get(connID)
	if !ok {
		return nil, nil, ErrNoSession
	}
	d, ok := h.arena.get(sess.DraftID)
	if !ok {
		return nil, sess, fmt.Errorf("document for draft %s not in memory", sess.DraftID)
	}
	return d.encode(), sess, nil
}

// Session returns the live session for a connection.
func (h *Hub) Session(connID string) (*Session, bool) {
	return h.sessions.get(connID)
}

// Roster returns the current participants of a draft's room.
func (h *Hub) Roster(draftID string) []PresenceEntry {
	return h.presence.roster(draftID)
}

// HasDocument reports whether a draft's document is resident in memory.
func (h *Hub) HasDocument(draftID string) bool {
	_, ok := h.arena.get(draftID)
	return ok
}

// Flush force-saves all drafts with unsaved changes, used on shutdown.
// Clean documents no session references anymore are evicted afterwards.
func (h *Hub) Flush() {
	h.saver.flushAll()
	for _, draftID := range h.arena.ids() {
		if h.sessions.countForDraft(draftID) == 0 && !h.saver.isDirty(draftID) {
			h.arena.evict(draftID)
		}
	}
}

// saveSnapshot encodes the draft's full state and hands it to the draft
// service. Failures are logged and reported so the scheduler keeps the
// dirty flag set for retry; they are never surfaced to clients.
func (h *Hub) saveSnapshot(draftID string) error {
	d, ok := h.arena.get(draftID)
	if !ok {
		return nil
	}
	state := d.encode()
	encoded := base64.StdEncoding.EncodeToString(state)

	log := logrus.WithFields(logrus.Fields{
		"draft_id":       draftID,
		"snapshot_bytes": len(state),
	})
	if err := h.snapshots.SaveSnapshot(context.Background(), draftID, encoded); err != nil {
		log.WithError(err).Error("Failed to save document snapshot")
		return err
	}
	log.Info("Saved document snapshot")
	return nil
}
