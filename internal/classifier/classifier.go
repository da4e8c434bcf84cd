// Package classifier recognises a report family from its header row.
package classifier

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/andresuchdata/erpflow/internal/workbook"
)

// Result describes the winning family, or the best candidate when no family
// reached the threshold.
type Result struct {
	Family    domain.Family `json:"family"`
	Ratio     float64       `json:"ratio"`
	Matched   []string      `json:"matched"`
	Missing   []string      `json:"missing"`
	HeaderRow int           `json:"header_row"`
}

type Classifier struct {
	defs      []schema.Definition
	threshold float64
}

func New(defs []schema.Definition, threshold float64) *Classifier {
	return &Classifier{defs: defs, threshold: threshold}
}

// Default uses every declared family and the schema threshold.
func Default() *Classifier {
	return New(schema.Families(), schema.ClassifierThreshold)
}

// Classify matches a header row against every family signature.
func (c *Classifier) Classify(headers []string) (Result, error) {
	set := headerSet(headers)
	if len(set) == 0 {
		return Result{}, domain.ErrEmptyHeader
	}
	best := Result{Family: domain.FamilyUnknown, Ratio: -1}
	bestSig := 0
	for _, d := range c.defs {
		r := score(d, set)
		if better(r, len(d.Signature), best, bestSig) {
			best, bestSig = r, len(d.Signature)
		}
	}
	return c.decide(best)
}

// ClassifySheet locates the header row (first non-blank row, shifted by each
// family's header skip) and classifies it.
func (c *Classifier) ClassifySheet(s *workbook.Sheet) (Result, error) {
	first := s.FirstNonBlank()
	if first < 0 {
		return Result{}, domain.ErrEmptyHeader
	}
	best := Result{Family: domain.FamilyUnknown, Ratio: -1}
	bestSig := 0
	for _, d := range c.defs {
		row := first + d.HeaderSkip
		if row >= len(s.Rows) {
			continue
		}
		set := headerSet(s.Rows[row])
		if len(set) == 0 {
			continue
		}
		r := score(d, set)
		r.HeaderRow = row
		if better(r, len(d.Signature), best, bestSig) {
			best, bestSig = r, len(d.Signature)
		}
	}
	return c.decide(best)
}

func (c *Classifier) decide(best Result) (Result, error) {
	// small epsilon so 3/5 is not lost to float rounding against 0.6
	if best.Family == domain.FamilyUnknown || best.Ratio+1e-9 < c.threshold {
		if best.Ratio < 0 {
			best.Ratio = 0
		}
		unknown := best
		unknown.Family = domain.FamilyUnknown
		return unknown, fmt.Errorf("%w: best candidate %s matched %.2f", domain.ErrUnknownFormat, best.Family, best.Ratio)
	}
	return best, nil
}

// better applies the ordering: higher ratio, then longer signature. Equal
// candidates keep the earlier declared family.
func better(r Result, sigLen int, best Result, bestSig int) bool {
	if r.Ratio != best.Ratio {
		return r.Ratio > best.Ratio
	}
	return sigLen > bestSig
}

func score(d schema.Definition, headers map[string]struct{}) Result {
	r := Result{Family: d.Family}
	for _, term := range d.Signature {
		if _, ok := headers[term]; ok {
			r.Matched = append(r.Matched, term)
		} else {
			r.Missing = append(r.Missing, term)
		}
	}
	if len(d.Signature) > 0 {
		r.Ratio = float64(len(r.Matched)) / float64(len(d.Signature))
	}
	return r
}

func headerSet(headers []string) map[string]struct{} {
	set := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		h = strings.TrimSpace(h)
		if h != "" {
			set[h] = struct{}{}
		}
	}
	return set
}
