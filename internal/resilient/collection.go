// Package resilient wraps one document-store collection with the local-queue
// fallback: writes that cannot reach the remote store are queued locally, and
// reads that cannot reach it are answered from the queue.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"mttsite/internal/docstore"
	"mttsite/internal/localstore"
)

const instrumentation = "mttsite/internal/resilient"

// WriteResult tells the caller where a write landed.
type WriteResult struct {
	ID string
	// Queued is true when the write only reached the local queue.
	Queued bool
}

type ListQuery struct {
	docstore.Query
	// Search is a case-insensitive substring matched against the
	// collection's search fields after the store has answered.
	Search string
}

type Collection struct {
	name         string
	remote       docstore.Store
	queue        *localstore.Queue
	searchFields []string
	refs         []reference
	log          *zerolog.Logger
	now          func() time.Time

	// referenced is set when another collection holds ids of this one.
	referenced bool

	tracer    trace.Tracer
	fallbacks metric.Int64Counter
}

type Option func(*Collection)

// WithClock overrides the clock used to mint local ids.
func WithClock(now func() time.Time) Option {
	return func(c *Collection) { c.now = now }
}

// reference marks a field that holds ids of records in parent.
type reference struct {
	field  string
	parent *Collection
}

// References declares that field holds ids of parent records. Flush then
// rewrites local parent ids to the remote ids they received once the parent
// was flushed. Each parent should be referenced by one collection only,
// since the id map is pruned once that collection no longer needs it.
func References(field string, parent *Collection) Option {
	return func(c *Collection) {
		c.refs = append(c.refs, reference{field: field, parent: parent})
		parent.referenced = true
	}
}

// NewCollection builds the wrapper. A nil kv disables the fallback entirely:
// remote failures then reach the caller unchanged.
func NewCollection(name string, remote docstore.Store, kv localstore.KV, searchFields []string, log *zerolog.Logger, opts ...Option) *Collection {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	c := &Collection{
		name:         name,
		remote:       remote,
		searchFields: searchFields,
		log:          log,
		now:          time.Now,
		tracer:       otel.Tracer(instrumentation),
	}
	if kv != nil {
		c.queue = localstore.NewQueue(kv, name)
	}
	for _, opt := range opts {
		opt(c)
	}

	counter, err := otel.Meter(instrumentation).Int64Counter(
		"resilient.fallbacks",
		metric.WithDescription("Operations answered by the local queue because the remote store was unavailable"),
	)
	if err != nil {
		c.log.Warn().Err(err).Msg("fallback counter disabled")
	} else {
		c.fallbacks = counter
	}
	return c
}

// Queue is nil when no local store is configured.
func (c *Collection) Queue() *localstore.Queue { return c.queue }

func (c *Collection) Create(ctx context.Context, doc docstore.Document) (WriteResult, error) {
	ctx, span := c.start(ctx, "create")
	defer span.End()

	id, err := c.remote.Create(ctx, c.name, doc)
	if err == nil {
		return WriteResult{ID: id}, nil
	}
	if !c.canFallback(err) {
		return WriteResult{}, c.fail(span, err)
	}

	local := doc.Clone()
	local["id"] = localstore.NewLocalID(c.now())
	if qerr := c.queue.Append(local); qerr != nil {
		return WriteResult{}, c.fail(span, fmt.Errorf("queue %s locally: %w", c.name, qerr))
	}
	c.fellBack(ctx, span, "create", err)
	return WriteResult{ID: local.ID(), Queued: true}, nil
}

// Update applies partial. Records that only exist in the local queue are
// updated there directly; a record that is neither reachable remotely nor
// queued yields an error wrapping docstore.ErrUnavailable.
func (c *Collection) Update(ctx context.Context, id string, partial docstore.Document) (WriteResult, error) {
	ctx, span := c.start(ctx, "update")
	defer span.End()
	span.SetAttributes(attribute.String("id", id))

	if c.queue != nil && localstore.IsLocalID(id) {
		ok, err := c.queue.MergeByID(id, partial)
		if err != nil {
			return WriteResult{}, c.fail(span, err)
		}
		if ok {
			return WriteResult{ID: id, Queued: true}, nil
		}
	}

	err := c.remote.Update(ctx, c.name, id, partial)
	if err == nil {
		return WriteResult{ID: id}, nil
	}
	if !c.canFallback(err) {
		return WriteResult{}, c.fail(span, err)
	}

	ok, qerr := c.queue.MergeByID(id, partial)
	if qerr != nil {
		return WriteResult{}, c.fail(span, qerr)
	}
	if !ok {
		return WriteResult{}, c.fail(span, fmt.Errorf("update %s/%s: record not queued locally: %w", c.name, id, err))
	}
	c.fellBack(ctx, span, "update", err)
	return WriteResult{ID: id, Queued: true}, nil
}

// Delete removes the record. During an outage a queued record is dropped
// from the queue; any other id is remembered as a pending deletion.
func (c *Collection) Delete(ctx context.Context, id string) (WriteResult, error) {
	ctx, span := c.start(ctx, "delete")
	defer span.End()
	span.SetAttributes(attribute.String("id", id))

	if c.queue != nil && localstore.IsLocalID(id) {
		ok, err := c.queue.RemoveByID(id)
		if err != nil {
			return WriteResult{}, c.fail(span, err)
		}
		if ok {
			return WriteResult{ID: id, Queued: true}, nil
		}
	}

	err := c.remote.Delete(ctx, c.name, id)
	if err == nil {
		return WriteResult{ID: id}, nil
	}
	if !c.canFallback(err) {
		return WriteResult{}, c.fail(span, err)
	}

	removed, qerr := c.queue.RemoveByID(id)
	if qerr != nil {
		return WriteResult{}, c.fail(span, qerr)
	}
	if !removed {
		if qerr := c.queue.AddPendingDeletion(id); qerr != nil {
			return WriteResult{}, c.fail(span, qerr)
		}
	}
	c.fellBack(ctx, span, "delete", err)
	return WriteResult{ID: id, Queued: true}, nil
}

// Get returns nil, nil when the record exists neither remotely nor locally.
func (c *Collection) Get(ctx context.Context, id string) (docstore.Document, error) {
	ctx, span := c.start(ctx, "get")
	defer span.End()
	span.SetAttributes(attribute.String("id", id))

	if c.queue != nil && localstore.IsLocalID(id) {
		if doc := c.queue.FindByID(id); doc != nil {
			return doc, nil
		}
	}

	doc, err := c.remote.Get(ctx, c.name, id)
	if err == nil {
		return doc, nil
	}
	if !c.canFallback(err) {
		return nil, c.fail(span, err)
	}
	c.fellBack(ctx, span, "get", err)
	return c.queue.FindByID(id), nil
}

// List never returns a nil slice. Queued records are only consulted when the
// remote store fails; a successful remote answer is returned as is.
func (c *Collection) List(ctx context.Context, q ListQuery) ([]docstore.Document, error) {
	ctx, span := c.start(ctx, "list")
	defer span.End()

	docs, err := c.remote.Query(ctx, c.name, q.Query)
	if err == nil {
		return Search(docs, q.Search, c.searchFields), nil
	}
	if !c.canFallback(err) {
		return nil, c.fail(span, err)
	}
	c.fellBack(ctx, span, "list", err)
	local := docstore.Apply(c.queue.All(), q.Query)
	return Search(local, q.Search, c.searchFields), nil
}

func (c *Collection) canFallback(err error) bool {
	return c.queue != nil && errors.Is(err, docstore.ErrUnavailable)
}

func (c *Collection) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "resilient."+op, trace.WithAttributes(
		attribute.String("collection", c.name),
	))
}

func (c *Collection) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (c *Collection) fellBack(ctx context.Context, span trace.Span, op string, cause error) {
	span.SetAttributes(attribute.Bool("fallback", true))
	if c.fallbacks != nil {
		c.fallbacks.Add(ctx, 1, metric.WithAttributes(
			attribute.String("collection", c.name),
			attribute.String("op", op),
		))
	}
	c.log.Warn().Err(cause).Str("collection", c.name).Str("op", op).Msg("remote store unavailable, using local queue")
}
