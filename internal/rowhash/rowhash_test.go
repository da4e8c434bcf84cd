package rowhash

import (
	"crypto/md5"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHashFormat(t *testing.T) {
	h := Hash([]Pair{{"Material", "M1"}, {"Qty", "10"}})
	assert.Len(t, h, 32)
	assert.Regexp(t, "^[0-9a-f]{32}$", h)

	sum := md5.Sum([]byte("Material\x1fM1\x1eQty\x1f10\x1e"))
	assert.Equal(t, hex.EncodeToString(sum[:]), h)
}

func TestEmptyValueEqualsAbsent(t *testing.T) {
	withEmpty := Hash([]Pair{{"A", "1"}, {"B", "  "}, {"C", "3"}})
	without := Hash([]Pair{{"A", "1"}, {"C", "3"}})
	assert.Equal(t, without, withEmpty)
}

func TestValuesTrimmed(t *testing.T) {
	assert.Equal(t, Hash([]Pair{{"A", "x"}}), Hash([]Pair{{"A", "  x\t"}}))
}

func TestNumericTextPreserved(t *testing.T) {
	assert.NotEqual(t, Hash([]Pair{{"Qty", "10"}}), Hash([]Pair{{"Qty", "10.0"}}))
	assert.NotEqual(t, Hash([]Pair{{"Code", "0044"}}), Hash([]Pair{{"Code", "44"}}))
}

func TestColumnNamesCaseSensitive(t *testing.T) {
	assert.NotEqual(t, Hash([]Pair{{"Batch", "B1"}}), Hash([]Pair{{"batch", "B1"}}))
}

func TestOrderDeclaredThenSortedExtras(t *testing.T) {
	values := map[string]string{
		"zeta":  "z",
		"B":     "b",
		"A":     "a",
		"Alpha": "x",
	}
	pairs := Order([]string{"B", "A", "Missing"}, values)
	names := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"B", "A", "Alpha", "zeta"}, names)
}

func TestHashRowIndependentOfMapOrder(t *testing.T) {
	declared := []string{"Billing Document", "Material"}
	a := map[string]string{"Billing Document": "9001", "Material": "M1", "Extra": "e"}
	b := map[string]string{"Extra": "e", "Material": "M1", "Billing Document": "9001"}
	assert.Equal(t, HashRow(declared, a), HashRow(declared, b))
}

func TestFormatDateTime(t *testing.T) {
	midnight := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-05-10", FormatDate(midnight))
	assert.Equal(t, "2025-05-10", FormatDateTime(midnight))

	afternoon := time.Date(2025, 5, 10, 14, 30, 5, 0, time.UTC)
	assert.Equal(t, "2025-05-10T14:30:05", FormatDateTime(afternoon))
}
