package localstore

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"mttsite/internal/docstore"
)

const localIDPrefix = "offline-"

// NewLocalID mints an id of the form offline-<unix millis>-<8 hex chars>.
func NewLocalID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return localIDPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}

// IsLocalID reports whether id was minted by NewLocalID.
func IsLocalID(id string) bool {
	rest, ok := strings.CutPrefix(id, localIDPrefix)
	if !ok {
		return false
	}
	millis, suffix, ok := strings.Cut(rest, "-")
	if !ok || len(suffix) != 8 {
		return false
	}
	if _, err := strconv.ParseInt(millis, 10, 64); err != nil {
		return false
	}
	for _, c := range suffix {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}

// Queue is the per-collection list of records written while the remote store
// was down, plus the ids whose deletion could not reach it.
type Queue struct {
	kv         KV
	key        string
	pendingKey string
	syncedKey  string
	// every mutation is read/modify/write of a whole key
	mu sync.Mutex
}

func NewQueue(kv KV, collection string) *Queue {
	return &Queue{
		kv:         kv,
		key:        "offline_" + collection,
		pendingKey: "pending_deletions_" + collection,
		syncedKey:  "synced_ids_" + collection,
	}
}

func (q *Queue) Key() string { return q.key }

// All returns the queued records. A missing or unparseable key reads as empty.
func (q *Queue) All() []docstore.Document {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load()
}

func (q *Queue) Append(doc docstore.Document) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	docs := q.load()
	docs = append(docs, doc.Clone())
	return q.save(docs)
}

// FindByID returns nil when no queued record has the id.
func (q *Queue) FindByID(id string) docstore.Document {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, d := range q.load() {
		if d.ID() == id {
			return d
		}
	}
	return nil
}

// MergeByID overlays partial onto the queued record and reports whether it existed.
func (q *Queue) MergeByID(id string, partial docstore.Document) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	docs := q.load()
	for _, d := range docs {
		if d.ID() != id {
			continue
		}
		for k, v := range partial {
			if k != "id" {
				d[k] = v
			}
		}
		return true, q.save(docs)
	}
	return false, nil
}

func (q *Queue) RemoveByID(id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	docs := q.load()
	kept := docs[:0]
	for _, d := range docs {
		if d.ID() != id {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(docs) {
		return false, nil
	}
	return true, q.save(kept)
}

func (q *Queue) AddPendingDeletion(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := q.loadPending()
	for _, p := range ids {
		if p == id {
			return nil
		}
	}
	return q.savePending(append(ids, id))
}

func (q *Queue) PendingDeletions() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadPending()
}

func (q *Queue) RemovePendingDeletion(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := q.loadPending()
	kept := ids[:0]
	for _, p := range ids {
		if p != id {
			kept = append(kept, p)
		}
	}
	return q.savePending(kept)
}

// RecordSynced remembers the remote id a flushed local record received, so
// records elsewhere that still point at localID can be relinked.
func (q *Queue) RecordSynced(localID, remoteID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := q.loadSynced()
	ids[localID] = remoteID
	return q.saveSynced(ids)
}

// SyncedIDs maps local ids of flushed records to their remote ids.
func (q *Queue) SyncedIDs() map[string]string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadSynced()
}

func (q *Queue) ForgetSynced(localID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := q.loadSynced()
	if _, ok := ids[localID]; !ok {
		return nil
	}
	delete(ids, localID)
	return q.saveSynced(ids)
}

func (q *Queue) load() []docstore.Document {
	docs := make([]docstore.Document, 0)
	raw, ok, err := q.kv.Get(q.key)
	if err != nil || !ok || raw == "" {
		return docs
	}
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		return make([]docstore.Document, 0)
	}
	out := docs[:0]
	for _, d := range docs {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

func (q *Queue) save(docs []docstore.Document) error {
	raw, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode %s: %w", q.key, err)
	}
	return q.kv.Set(q.key, string(raw))
}

func (q *Queue) loadPending() []string {
	ids := make([]string, 0)
	raw, ok, err := q.kv.Get(q.pendingKey)
	if err != nil || !ok || raw == "" {
		return ids
	}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return make([]string, 0)
	}
	return ids
}

func (q *Queue) savePending(ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode %s: %w", q.pendingKey, err)
	}
	return q.kv.Set(q.pendingKey, string(raw))
}

func (q *Queue) loadSynced() map[string]string {
	ids := make(map[string]string)
	raw, ok, err := q.kv.Get(q.syncedKey)
	if err != nil || !ok || raw == "" {
		return ids
	}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil || ids == nil {
		return make(map[string]string)
	}
	return ids
}

func (q *Queue) saveSynced(ids map[string]string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode %s: %w", q.syncedKey, err)
	}
	return q.kv.Set(q.syncedKey, string(raw))
}
