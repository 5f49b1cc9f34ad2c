package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.Create(ctx, "events", Document{"title": "Workshop", "date": "2099-01-01"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.Get(ctx, "events", id)
	require.NoError(t, err)
	assert.Equal(t, "Workshop", got["title"])
	assert.Equal(t, id, got.ID())

	require.NoError(t, s.Update(ctx, "events", id, Document{"title": "Seminar"}))
	got, err = s.Get(ctx, "events", id)
	require.NoError(t, err)
	assert.Equal(t, "Seminar", got["title"])
	assert.Equal(t, "2099-01-01", got["date"])

	require.NoError(t, s.Delete(ctx, "events", id))
	got, err = s.Get(ctx, "events", id)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, s.Delete(ctx, "events", id), ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, "events", id, Document{"x": 1}), ErrNotFound)
}

func TestMemoryStoreQuery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, d := range []Document{
		{"type": "workshop", "date": "2024-01-01"},
		{"type": "lecture", "date": "2024-03-01"},
		{"type": "workshop", "date": "2024-02-01"},
	} {
		_, err := s.Create(ctx, "events", d)
		require.NoError(t, err)
	}

	docs, err := s.Query(ctx, "events", Query{
		Equals:  map[string]any{"type": "workshop"},
		OrderBy: "date",
		Desc:    true,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "2024-02-01", docs[0]["date"])
	assert.Equal(t, "2024-01-01", docs[1]["date"])

	_, err = s.Query(ctx, "events", Query{OrderBy: "date; DROP"})
	assert.ErrorIs(t, err, ErrBadField)
}

func TestMemoryStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.SetAvailable(false)

	_, err := s.Create(ctx, "events", Document{})
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = s.Query(ctx, "events", Query{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestValuesEqualNumbers(t *testing.T) {
	assert.True(t, ValuesEqual(float64(500), 500))
	assert.True(t, ValuesEqual(true, true))
	assert.False(t, ValuesEqual("500", 501))
	assert.True(t, ValuesEqual("ieee", "ieee"))
}

func TestFromRecordDecode(t *testing.T) {
	type rec struct {
		Title string  `json:"title"`
		Fee   float64 `json:"fee"`
	}
	doc, err := FromRecord(rec{Title: "a", Fee: 10})
	require.NoError(t, err)
	assert.Equal(t, float64(10), doc["fee"])

	var out rec
	require.NoError(t, doc.Decode(&out))
	assert.Equal(t, rec{Title: "a", Fee: 10}, out)

	_, err = FromRecord([]int{1})
	assert.Error(t, err)
}

func TestBreakerOpensOnUnavailability(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	b := NewBreaker(mem, BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Hour}, nil)

	mem.SetAvailable(false)
	for i := 0; i < 2; i++ {
		_, err := b.Get(ctx, "events", "x")
		require.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	mem.SetAvailable(true)
	_, err := b.Create(ctx, "events", Document{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(NewMemoryStore(), BreakerConfig{ConsecutiveFailures: 1, OpenTimeout: time.Hour}, nil)

	for i := 0; i < 3; i++ {
		err := b.Delete(ctx, "events", "missing")
		require.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
