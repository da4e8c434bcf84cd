package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/rowhash"
	"github.com/shopspring/decimal"
)

// candidate is a projected fact together with the raw row it came from.
type candidate[T any] struct {
	key      string
	rawID    int64
	uploadID int64
	hash     string
	fact     T
}

// resolve keeps one fact per business key. Candidates arrive in raw id order,
// so each key settles on the upload of its last candidate. Rows of that upload
// that disagree on the key's content are a duplicate business key; rows of
// older uploads are superseded whatever they contain.
func resolve[T any](cands []candidate[T]) ([]T, error) {
	last := make(map[string]int, len(cands))
	order := make([]string, 0, len(cands))
	for i, c := range cands {
		if _, ok := last[c.key]; !ok {
			order = append(order, c.key)
		}
		last[c.key] = i
	}
	for _, c := range cands {
		w := cands[last[c.key]]
		if c.uploadID == w.uploadID && c.hash != w.hash {
			return nil, fmt.Errorf("%w: key %s (raw rows %d and %d of upload %d)",
				domain.ErrDuplicateBusinessKey, c.key, c.rawID, w.rawID, w.uploadID)
		}
	}
	out := make([]T, len(order))
	for i, k := range order {
		out[i] = cands[last[k]].fact
	}
	return out, nil
}

func keyOf(parts ...string) string {
	return strings.Join(parts, "|")
}

// hashOf fingerprints a fact's content positionally.
func hashOf(values ...any) string {
	pairs := make([]rowhash.Pair, len(values))
	for i, v := range values {
		pairs[i] = rowhash.Pair{Name: strconv.Itoa(i), Value: text(v)}
	}
	return rowhash.Hash(pairs)
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case *int64:
		if x == nil {
			return ""
		}
		return strconv.FormatInt(*x, 10)
	case *int:
		if x == nil {
			return ""
		}
		return strconv.Itoa(*x)
	case bool:
		return strconv.FormatBool(x)
	case decimal.Decimal:
		return x.String()
	case decimal.NullDecimal:
		if !x.Valid {
			return ""
		}
		return x.Decimal.String()
	case time.Time:
		return rowhash.FormatDateTime(x)
	case *time.Time:
		if x == nil {
			return ""
		}
		return rowhash.FormatDateTime(*x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
