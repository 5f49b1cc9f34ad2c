package surreal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"mttsite/internal/docstore"
)

func TestBuildQuery(t *testing.T) {
	sql, vars := buildQuery("blogs", docstore.Query{
		Equals:  map[string]any{"slug": "hello", "isPublished": true},
		OrderBy: "createdAt",
		Desc:    true,
	})
	assert.Equal(t, "SELECT * FROM type::table($tb) WHERE isPublished = $f0 AND slug = $f1 ORDER BY createdAt DESC", sql)
	assert.Equal(t, map[string]any{"tb": "blogs", "f0": true, "f1": "hello"}, vars)

	sql, vars = buildQuery("events", docstore.Query{})
	assert.Equal(t, "SELECT * FROM type::table($tb)", sql)
	assert.Len(t, vars, 1)
}

func TestToDocument(t *testing.T) {
	rid := models.NewRecordID("events", "abc")
	assert.Equal(t, "abc", recordKey(rid))
	assert.Equal(t, "abc", recordKey(&rid))
	assert.Empty(t, recordKey("events:abc"))

	doc, err := toDocument("abc", map[string]any{"id": rid, "title": "Workshop"})
	require.NoError(t, err)
	assert.Equal(t, docstore.Document{"id": "abc", "title": "Workshop"}, doc)
}
