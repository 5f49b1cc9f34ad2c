package resilient

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"mttsite/internal/docstore"
	"mttsite/internal/localstore"
)

// Flush pushes queued creates and pending deletions to the remote store,
// removing each entry once the remote store accepted it. Synced records get a
// fresh remote id, which is remembered so that referencing collections can
// relink to it. Queued records whose referenced parent is still local are
// left for a later pass. Flush stops at the first failure and reports how
// many entries were synced before it.
func (c *Collection) Flush(ctx context.Context) (int, error) {
	if c.queue == nil {
		return 0, nil
	}
	ctx, span := c.start(ctx, "flush")
	defer span.End()

	for _, ref := range c.refs {
		if err := c.relinkRemote(ctx, ref); err != nil {
			return 0, c.fail(span, err)
		}
	}

	synced := 0
	for _, doc := range c.queue.All() {
		body := doc.Clone()
		delete(body, "id")
		if !c.resolveRefs(body) {
			c.log.Warn().Str("collection", c.name).Str("id", doc.ID()).Msg("queued record references an unsynced parent, keeping it queued")
			continue
		}
		remoteID, err := c.remote.Create(ctx, c.name, body)
		if err != nil {
			return synced, c.fail(span, err)
		}
		if c.referenced {
			if err := c.queue.RecordSynced(doc.ID(), remoteID); err != nil {
				return synced, c.fail(span, err)
			}
		}
		if _, err := c.queue.RemoveByID(doc.ID()); err != nil {
			return synced, c.fail(span, err)
		}
		synced++
	}

	for _, id := range c.queue.PendingDeletions() {
		err := c.remote.Delete(ctx, c.name, id)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return synced, c.fail(span, err)
		}
		if err := c.queue.RemovePendingDeletion(id); err != nil {
			return synced, c.fail(span, err)
		}
		synced++
	}

	if err := c.pruneSynced(); err != nil {
		return synced, c.fail(span, err)
	}
	return synced, nil
}

// relinkRemote points remote records that still carry a flushed parent's
// local id at the parent's remote id.
func (c *Collection) relinkRemote(ctx context.Context, ref reference) error {
	if ref.parent.queue == nil {
		return nil
	}
	for localID, remoteID := range ref.parent.queue.SyncedIDs() {
		docs, err := c.remote.Query(ctx, c.name, docstore.Query{Equals: map[string]any{ref.field: localID}})
		if err != nil {
			return err
		}
		for _, d := range docs {
			if err := c.remote.Update(ctx, c.name, d.ID(), docstore.Document{ref.field: remoteID}); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveRefs rewrites local parent ids in body and reports false when a
// referenced parent has not reached the remote store yet.
func (c *Collection) resolveRefs(body docstore.Document) bool {
	for _, ref := range c.refs {
		id, _ := body[ref.field].(string)
		if !localstore.IsLocalID(id) || ref.parent.queue == nil {
			continue
		}
		remoteID, ok := ref.parent.queue.SyncedIDs()[id]
		if !ok {
			return false
		}
		body[ref.field] = remoteID
	}
	return true
}

// pruneSynced drops parent id mappings that no queued record of c still needs.
func (c *Collection) pruneSynced() error {
	queued := c.queue.All()
	for _, ref := range c.refs {
		if ref.parent.queue == nil {
			continue
		}
		for localID := range ref.parent.queue.SyncedIDs() {
			if referencedBy(queued, ref.field, localID) {
				continue
			}
			if err := ref.parent.queue.ForgetSynced(localID); err != nil {
				return err
			}
		}
	}
	return nil
}

func referencedBy(docs []docstore.Document, field, id string) bool {
	for _, d := range docs {
		if v, _ := d[field].(string); v == id {
			return true
		}
	}
	return false
}

// Syncer periodically flushes the local queues. It backs off exponentially
// while the remote store stays unavailable.
type Syncer struct {
	collections []*Collection
	interval    time.Duration
	log         *zerolog.Logger
	done        chan struct{}
	cancel      context.CancelFunc
}

func NewSyncer(interval time.Duration, log *zerolog.Logger, collections ...*Collection) *Syncer {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Syncer{
		collections: collections,
		interval:    interval,
		log:         log,
		done:        make(chan struct{}),
	}
}

// Once runs a single pass over every collection.
func (s *Syncer) Once(ctx context.Context) (int, error) {
	total := 0
	for _, c := range s.collections {
		n, err := c.Flush(ctx)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *Syncer) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.interval
	bo.MaxInterval = 30 * s.interval

	s.log.Info().Dur("interval", s.interval).Int("collections", len(s.collections)).Msg("local queue syncer started")

	go func() {
		defer close(s.done)

		timer := time.NewTimer(s.interval)
		defer timer.Stop()

		for {
			select {
			case <-cctx.Done():
				s.log.Info().Msg("local queue syncer stopped")
				return
			case <-timer.C:
			}

			wait := s.interval
			n, err := s.Once(cctx)
			switch {
			case err == nil:
				bo.Reset()
				if n > 0 {
					s.log.Info().Int("synced", n).Msg("local queue flushed to remote store")
				}
			case errors.Is(err, docstore.ErrUnavailable):
				wait = bo.NextBackOff()
				s.log.Warn().Err(err).Int("synced", n).Dur("retry_in", wait).Msg("remote store still unavailable")
			default:
				s.log.Error().Err(err).Int("synced", n).Msg("local queue sync failed")
			}
			timer.Reset(wait)
		}
	}()
}

func (s *Syncer) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}
