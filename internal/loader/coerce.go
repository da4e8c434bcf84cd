package loader

import (
	"errors"
	"time"

	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/andresuchdata/erpflow/internal/workbook"
)

var (
	errNotInt     = errors.New("not an integer")
	errNotDecimal = errors.New("not a number")
	errNotDate    = errors.New("not a date")
)

func coerce(col schema.Column, text string) (any, error) {
	switch col.Type {
	case schema.Int:
		n, ok := workbook.ParseInt(text)
		if !ok {
			return nil, errNotInt
		}
		return n, nil
	case schema.Decimal:
		d, ok := workbook.ParseDecimal(text)
		if !ok {
			return nil, errNotDecimal
		}
		return d, nil
	case schema.Date:
		t, ok := workbook.ParseDate(text)
		if !ok {
			return nil, errNotDate
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	case schema.DateTime:
		t, ok := workbook.ParseDate(text)
		if !ok {
			return nil, errNotDate
		}
		return t, nil
	}
	return text, nil
}
