// Package rowhash computes the content hash that identifies a spreadsheet row
// independent of its position in the file.
package rowhash

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

const (
	unitSep   = 0x1F
	recordSep = 0x1E
)

// Pair is one (column name, textual value) entry of a canonical row.
type Pair struct {
	Name  string
	Value string
}

// Canonicalize trims values and drops empty ones, keeping the given order.
// An empty value and an absent column hash identically.
func Canonicalize(pairs []Pair) []Pair {
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		v := strings.TrimSpace(p.Value)
		if v == "" {
			continue
		}
		out = append(out, Pair{Name: p.Name, Value: v})
	}
	return out
}

// Hash returns the lowercase hex MD5 of the canonical pairs.
func Hash(pairs []Pair) string {
	h := md5.New()
	buf := make([]byte, 0, 64)
	for _, p := range Canonicalize(pairs) {
		buf = buf[:0]
		buf = append(buf, p.Name...)
		buf = append(buf, unitSep)
		buf = append(buf, p.Value...)
		buf = append(buf, recordSep)
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Order arranges values into pairs: declared columns first in declared order,
// then every other key sorted byte-wise.
func Order(declared []string, values map[string]string) []Pair {
	pairs := make([]Pair, 0, len(values))
	seen := make(map[string]struct{}, len(declared))
	for _, name := range declared {
		seen[name] = struct{}{}
		if v, ok := values[name]; ok {
			pairs = append(pairs, Pair{Name: name, Value: v})
		}
	}
	extra := make([]string, 0)
	for name := range values {
		if _, ok := seen[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		pairs = append(pairs, Pair{Name: name, Value: values[name]})
	}
	return pairs
}

// HashRow is Hash(Order(declared, values)).
func HashRow(declared []string, values map[string]string) string {
	return Hash(Order(declared, values))
}

// FormatDate renders a date-typed value.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatDateTime renders a datetime-typed value; midnight collapses to the date.
func FormatDateTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return FormatDate(t)
	}
	return t.Format("2006-01-02T15:04:05")
}
