package resilient

import (
	"strings"

	"mttsite/internal/docstore"
)

// Search keeps docs whose string value in any of fields contains term,
// ignoring case. An empty term keeps everything. The result is never nil.
func Search(docs []docstore.Document, term string, fields []string) []docstore.Document {
	out := make([]docstore.Document, 0, len(docs))
	if term == "" {
		return append(out, docs...)
	}
	needle := strings.ToLower(term)
	for _, d := range docs {
		for _, f := range fields {
			s, ok := d[f].(string)
			if ok && strings.Contains(strings.ToLower(s), needle) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
