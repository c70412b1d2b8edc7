package collab

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/NTDKhoa04/bloggin-be/crdt"
	"github.com/sirupsen/logrus"
)

// SnapshotStore is the slice of the draft service the collaboration core
// consumes: loading and saving a draft's base64-encoded document snapshot.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context, draftID string) (string, error)
	SaveSnapshot(ctx context.Context, draftID string, content string) error
}

// document is one in-memory replicated-document instance together with the
// mutex that serializes all mutation for its draft id. Different drafts
// never share a mutex, so they never block one another.
type document struct {
	mu       sync.Mutex
	doc      *crdt.Doc
	hydrated bool
}

// docArena owns the one-instance-per-draft-id invariant. Documents are
// created lazily on first join and evicted explicitly after the last
// session drains and the state is saved.
type docArena struct {
	mu        sync.Mutex
	docs      map[string]*document
	snapshots SnapshotStore
}

func newDocArena(snapshots SnapshotStore) *docArena {
	return &docArena{docs: make(map[string]*document), snapshots: snapshots}
}

// getOrCreate returns the draft's document, hydrating a fresh instance from
// the persisted snapshot on first access. Hydration failures are logged and
// leave the document empty; a connection is never refused over them.
func (a *docArena) getOrCreate(ctx context.Context, draftID string) *document {
	a.mu.Lock()
	d, ok := a.docs[draftID]
	if !ok {
		d = &document{doc: crdt.New()}
		a.docs[draftID] = d
	}
	a.mu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hydrated {
		return d
	}
	d.hydrated = true

	log := logrus.WithField("draft_id", draftID)
	snapshot, err := a.snapshots.LoadSnapshot(ctx, draftID)
	if err != nil {
		log.WithError(err).Warn("Failed to load snapshot, starting with empty document")
		return d
	}
	if snapshot == "" {
		log.Debug("No stored snapshot, starting with empty document")
		return d
	}

	raw, err := base64.StdEncoding.DecodeString(snapshot)
	if err != nil {
		log.WithError(err).Warn("Stored snapshot is not valid base64, starting with empty document")
		return d
	}
	if err := d.doc.Apply(raw); err != nil {
		log.WithError(err).Warn("Stored snapshot is not applicable, starting with empty document")
		return d
	}
	log.WithField("snapshot_bytes", len(raw)).Info("Hydrated document from stored snapshot")
	return d
}

// get returns the document only if it is already resident.
func (a *docArena) get(draftID string) (*document, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.docs[draftID]
	return d, ok
}

// ids returns the draft ids of all resident documents.
func (a *docArena) ids() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(a.docs))
	for id := range a.docs {
		ids = append(ids, id)
	}
	return ids
}

// evict drops the in-memory instance. Persisted data is untouched; the next
// join re-hydrates.
func (a *docArena) evict(draftID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.docs, draftID)
}

// apply merges raw update bytes under the document's mutex.
func (d *document) apply(update []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Apply(update)
}

// encode returns the full current state under the document's mutex.
func (d *document) encode() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Encode()
}
