package docstore

import (
	"fmt"
	"sort"
	"strings"
)

// Matches reports whether doc satisfies every equality filter.
func Matches(doc Document, equals map[string]any) bool {
	for k, want := range equals {
		got, ok := doc[k]
		if !ok || !ValuesEqual(got, want) {
			return false
		}
	}
	return true
}

// ValuesEqual compares JSON-like scalars, treating every numeric type alike.
func ValuesEqual(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		return fa == fb
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// Compare orders two JSON-like scalars: numbers numerically, everything else
// by its string form. Missing values sort first.
func Compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// Sort orders docs in place by field, stable for equal keys.
func Sort(docs []Document, field string, desc bool) {
	if field == "" {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		c := Compare(docs[i][field], docs[j][field])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// Apply filters and orders docs in process the way a remote store would.
func Apply(docs []Document, q Query) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if Matches(d, q.Equals) {
			out = append(out, d)
		}
	}
	Sort(out, q.OrderBy, q.Desc)
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
