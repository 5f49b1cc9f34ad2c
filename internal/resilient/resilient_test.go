package resilient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"mttsite/internal/docstore"
	"mttsite/internal/localstore"
)

var eventFields = []string{"title", "description", "location"}

func newCollection(t *testing.T) (*Collection, *docstore.MemoryStore, *localstore.MemoryKV) {
	t.Helper()
	remote := docstore.NewMemoryStore()
	kv := localstore.NewMemoryKV()
	return NewCollection("events", remote, kv, eventFields, nil), remote, kv
}

// failingStore fails every call with a non-availability error.
type failingStore struct{ docstore.MemoryStore }

var errDenied = errors.New("statement rejected")

func (f *failingStore) Create(context.Context, string, docstore.Document) (string, error) {
	return "", errDenied
}

func (f *failingStore) Query(context.Context, string, docstore.Query) ([]docstore.Document, error) {
	return nil, errDenied
}

func TestCreateRemoteSuccess(t *testing.T) {
	ctx := context.Background()
	c, remote, _ := newCollection(t)

	res, err := c.Create(ctx, docstore.Document{"title": "Workshop"})
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.False(t, localstore.IsLocalID(res.ID))

	got, err := remote.Get(ctx, "events", res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Workshop", got["title"])
	assert.Empty(t, c.Queue().All())
}

func TestCreateFallsBackWhenUnavailable(t *testing.T) {
	ctx := context.Background()
	c, remote, _ := newCollection(t)
	remote.SetAvailable(false)

	res, err := c.Create(ctx, docstore.Document{"title": "Workshop"})
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.True(t, localstore.IsLocalID(res.ID))

	queued := c.Queue().FindByID(res.ID)
	require.NotNil(t, queued)
	assert.Equal(t, "Workshop", queued["title"])
}

func TestWithClockStampsLocalID(t *testing.T) {
	remote := docstore.NewMemoryStore()
	remote.SetAvailable(false)
	fixed := time.UnixMilli(4070908800000)
	c := NewCollection("events", remote, localstore.NewMemoryKV(), nil, nil, WithClock(func() time.Time { return fixed }))

	res, err := c.Create(context.Background(), docstore.Document{})
	require.NoError(t, err)
	assert.Contains(t, res.ID, "offline-4070908800000-")
}

func TestNoLocalStorePropagates(t *testing.T) {
	ctx := context.Background()
	remote := docstore.NewMemoryStore()
	remote.SetAvailable(false)
	c := NewCollection("events", remote, nil, eventFields, nil)

	_, err := c.Create(ctx, docstore.Document{"title": "x"})
	assert.ErrorIs(t, err, docstore.ErrUnavailable)
	_, err = c.List(ctx, ListQuery{})
	assert.ErrorIs(t, err, docstore.ErrUnavailable)
	_, err = c.Get(ctx, "id")
	assert.ErrorIs(t, err, docstore.ErrUnavailable)
	assert.Nil(t, c.Queue())
}

func TestNonAvailabilityErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	c := NewCollection("events", &failingStore{}, localstore.NewMemoryKV(), eventFields, nil)

	_, err := c.Create(ctx, docstore.Document{"title": "x"})
	assert.ErrorIs(t, err, errDenied)
	_, err = c.List(ctx, ListQuery{})
	assert.ErrorIs(t, err, errDenied)
	assert.Empty(t, c.Queue().All())
}

func TestUpdateDuringOutage(t *testing.T) {
	ctx := context.Background()
	c, remote, _ := newCollection(t)

	stored, err := c.Create(ctx, docstore.Document{"title": "remote"})
	require.NoError(t, err)

	remote.SetAvailable(false)
	queued, err := c.Create(ctx, docstore.Document{"title": "local"})
	require.NoError(t, err)

	res, err := c.Update(ctx, queued.ID, docstore.Document{"title": "local v2"})
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Equal(t, "local v2", c.Queue().FindByID(queued.ID)["title"])

	_, err = c.Update(ctx, stored.ID, docstore.Document{"title": "lost"})
	assert.ErrorIs(t, err, docstore.ErrUnavailable)
}

func TestLocalRecordsStayReachableAfterRecovery(t *testing.T) {
	ctx := context.Background()
	c, remote, _ := newCollection(t)

	remote.SetAvailable(false)
	queued, err := c.Create(ctx, docstore.Document{"title": "local", "status": "pending"})
	require.NoError(t, err)
	remote.SetAvailable(true)

	_, err = c.Update(ctx, queued.ID, docstore.Document{"status": "approved"})
	require.NoError(t, err)
	got, err := c.Get(ctx, queued.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "approved", got["status"])

	// a successful remote list does not merge local entries
	docs, err := c.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	res, err := c.Delete(ctx, queued.ID)
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Nil(t, c.Queue().FindByID(queued.ID))
}

func TestDeleteDuringOutage(t *testing.T) {
	ctx := context.Background()
	c, remote, _ := newCollection(t)

	stored, err := c.Create(ctx, docstore.Document{"title": "remote"})
	require.NoError(t, err)
	remote.SetAvailable(false)

	res, err := c.Delete(ctx, stored.ID)
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Equal(t, []string{stored.ID}, c.Queue().PendingDeletions())
}

func TestGetMissing(t *testing.T) {
	ctx := context.Background()
	c, remote, _ := newCollection(t)

	got, err := c.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	remote.SetAvailable(false)
	got, err = c.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListFallbackAppliesFilters(t *testing.T) {
	ctx := context.Background()
	c, remote, _ := newCollection(t)
	remote.SetAvailable(false)

	for _, d := range []docstore.Document{
		{"title": "Go Workshop", "type": "workshop", "date": "2099-01-01"},
		{"title": "Rust Talk", "type": "lecture", "date": "2099-03-01", "description": "systems WORKSHOP recap"},
		{"title": "Python Workshop", "type": "workshop", "date": "2099-02-01"},
	} {
		_, err := c.Create(ctx, d)
		require.NoError(t, err)
	}

	docs, err := c.List(ctx, ListQuery{
		Query: docstore.Query{Equals: map[string]any{"type": "workshop"}, OrderBy: "date", Desc: true},
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Python Workshop", docs[0]["title"])

	docs, err = c.List(ctx, ListQuery{Search: "workshop"})
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	docs, err = c.List(ctx, ListQuery{Search: "nothing matches"})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestListEmptyEverywhere(t *testing.T) {
	c, remote, kv := newCollection(t)
	remote.SetAvailable(false)
	require.NoError(t, kv.Set("offline_events", "garbage"))

	docs, err := c.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestSearch(t *testing.T) {
	docs := []docstore.Document{
		{"name": "Asha Rao", "email": "asha@college.edu"},
		{"name": "Ben", "email": "BEN@Example.com", "college": 7},
	}
	fields := []string{"name", "email", "college"}

	assert.Len(t, Search(docs, "", fields), 2)
	assert.Len(t, Search(docs, "example", fields), 1)
	assert.Len(t, Search(docs, "RAO", fields), 1)
	assert.Empty(t, Search(docs, "7", fields))
	assert.NotNil(t, Search(nil, "", fields))
}

func TestFlushDrainsQueue(t *testing.T) {
	ctx := context.Background()
	c, remote, _ := newCollection(t)

	stored, err := c.Create(ctx, docstore.Document{"title": "remote"})
	require.NoError(t, err)

	remote.SetAvailable(false)
	_, err = c.Create(ctx, docstore.Document{"title": "queued"})
	require.NoError(t, err)
	_, err = c.Delete(ctx, stored.ID)
	require.NoError(t, err)
	_, err = c.Delete(ctx, "never-existed")
	require.NoError(t, err)

	n, err := c.Flush(ctx)
	assert.ErrorIs(t, err, docstore.ErrUnavailable)
	assert.Zero(t, n)

	remote.SetAvailable(true)
	s := NewSyncer(time.Hour, nil, c)
	n, err = s.Once(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, c.Queue().All())
	assert.Empty(t, c.Queue().PendingDeletions())

	docs, err := c.List(ctx, ListQuery{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "queued", docs[0]["title"])
	assert.False(t, localstore.IsLocalID(docs[0].ID()))
}

func newLinkedCollections() (*Collection, *Collection, *docstore.MemoryStore) {
	remote := docstore.NewMemoryStore()
	kv := localstore.NewMemoryKV()
	events := NewCollection("events", remote, kv, eventFields, nil)
	regs := NewCollection("registrations", remote, kv, []string{"name"}, nil, References("eventId", events))
	return events, regs, remote
}

func TestFlushRelinksRegistrationsToSyncedEvent(t *testing.T) {
	ctx := context.Background()
	events, regs, remote := newLinkedCollections()

	remote.SetAvailable(false)
	ev, err := events.Create(ctx, docstore.Document{"title": "Workshop"})
	require.NoError(t, err)
	require.True(t, ev.Queued)
	queuedReg, err := regs.Create(ctx, docstore.Document{"name": "Asha", "eventId": ev.ID})
	require.NoError(t, err)
	require.True(t, queuedReg.Queued)

	remote.SetAvailable(true)
	remoteReg, err := regs.Create(ctx, docstore.Document{"name": "Ravi", "eventId": ev.ID})
	require.NoError(t, err)
	require.False(t, remoteReg.Queued)

	n, err := NewSyncer(time.Hour, nil, events, regs).Once(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	synced, err := events.List(ctx, ListQuery{})
	require.NoError(t, err)
	require.Len(t, synced, 1)
	eventID := synced[0].ID()
	assert.False(t, localstore.IsLocalID(eventID))

	all, err := regs.List(ctx, ListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, r := range all {
		assert.Equal(t, eventID, r["eventId"], r["name"])
	}
	assert.Empty(t, regs.Queue().All())
	assert.Empty(t, events.Queue().SyncedIDs())
}

func TestFlushKeepsChildUntilParentSynced(t *testing.T) {
	ctx := context.Background()
	events, regs, remote := newLinkedCollections()

	remote.SetAvailable(false)
	ev, err := events.Create(ctx, docstore.Document{"title": "Workshop"})
	require.NoError(t, err)
	_, err = regs.Create(ctx, docstore.Document{"name": "Asha", "eventId": ev.ID})
	require.NoError(t, err)
	remote.SetAvailable(true)

	s := NewSyncer(time.Hour, nil, regs, events)
	n, err := s.Once(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, regs.Queue().All(), 1)
	assert.Len(t, events.Queue().SyncedIDs(), 1)

	n, err = s.Once(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, regs.Queue().All())
	assert.Empty(t, events.Queue().SyncedIDs())

	all, err := regs.List(ctx, ListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, localstore.IsLocalID(all[0]["eventId"].(string)))
}

func TestUnreferencedCollectionKeepsNoIDMap(t *testing.T) {
	ctx := context.Background()
	c, remote, _ := newCollection(t)
	remote.SetAvailable(false)
	_, err := c.Create(ctx, docstore.Document{"title": "queued"})
	require.NoError(t, err)
	remote.SetAvailable(true)

	_, err = c.Flush(ctx)
	require.NoError(t, err)
	assert.Empty(t, c.Queue().SyncedIDs())
}

func TestSyncerStartStop(t *testing.T) {
	ctx := context.Background()
	c, remote, _ := newCollection(t)
	remote.SetAvailable(false)
	_, err := c.Create(ctx, docstore.Document{"title": "queued"})
	require.NoError(t, err)
	remote.SetAvailable(true)

	s := NewSyncer(10*time.Millisecond, nil, c)
	s.Start(ctx)
	require.Eventually(t, func() bool { return len(c.Queue().All()) == 0 }, 2*time.Second, 10*time.Millisecond)
	s.Stop()
}

// Writing while the remote store is down and reading back with the same
// filters always returns the written record.
func TestOfflineWriteReadRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		remote := docstore.NewMemoryStore()
		remote.SetAvailable(false)
		c := NewCollection("events", remote, localstore.NewMemoryKV(), eventFields, nil)

		eventType := rapid.SampledFrom([]string{"workshop", "lecture", "hackathon"}).Draw(t, "type")
		title := rapid.StringMatching(`[A-Za-z][A-Za-z ]{0,15}`).Draw(t, "title")
		others := rapid.IntRange(0, 5).Draw(t, "others")
		for i := 0; i < others; i++ {
			if _, err := c.Create(ctx, docstore.Document{"title": "other", "type": "other"}); err != nil {
				t.Fatal(err)
			}
		}

		res, err := c.Create(ctx, docstore.Document{"title": title, "type": eventType})
		if err != nil || !res.Queued {
			t.Fatalf("create: %v queued=%v", err, res.Queued)
		}

		docs, err := c.List(ctx, ListQuery{
			Query:  docstore.Query{Equals: map[string]any{"type": eventType}},
			Search: title[:1],
		})
		if err != nil {
			t.Fatal(err)
		}
		for _, d := range docs {
			if d.ID() == res.ID && d["title"] == title {
				return
			}
		}
		t.Fatalf("record %s not returned by %v", res.ID, docs)
	})
}
