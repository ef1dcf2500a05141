package query

import (
	"fmt"
	"strconv"
	"time"
)

// Value is a submitted filter value. It is either Text or DateRange; a nil
// Value means nothing was submitted.
type Value interface {
	isValue()
}

// Text is a scalar filter value.
type Text string

func (Text) isValue() {}

// Date is a calendar day as submitted by a date widget. Fields are kept as
// strings because they arrive untyped from forms and query strings.
type Date struct {
	Year  string
	Month string
	Day   string
}

// DateRange is an inclusive range between two dates.
type DateRange struct {
	Start Date
	End   Date
}

func (DateRange) isValue() {}

func (d Date) members() []string {
	return []string{d.Year, d.Month, d.Day}
}

// Literal formats the date as a YYYY-M-D literal, without zero padding.
// The year must have four digits and the triple must name a real calendar
// day; anything else is ErrMalformedDate.
func (d Date) Literal() (string, error) {
	parts := [3]int{}
	names := [3]string{"year", "month", "day"}
	for i, raw := range d.members() {
		if raw == "" {
			return "", fmt.Errorf("%w: missing %s", ErrMalformedDate, names[i])
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("%w: invalid %s %q", ErrMalformedDate, names[i], raw)
		}
		parts[i] = n
	}
	year, month, day := parts[0], parts[1], parts[2]
	if year < 1000 || year > 9999 {
		return "", fmt.Errorf("%w: year %d out of range", ErrMalformedDate, year)
	}
	// time.Date normalises overflowing members, so a changed triple is not a real day.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", fmt.Errorf("%w: %d-%d-%d is not a calendar day", ErrMalformedDate, year, month, day)
	}
	return fmt.Sprintf("%d-%d-%d", year, month, day), nil
}

// Valid reports whether v carries something worth filtering on.
//
// nil and empty text are invalid. Composite values are invalid as a whole
// when any member is empty, so a half-filled date range never turns into a
// partial filter.
func Valid(v Value) bool {
	switch val := v.(type) {
	case nil:
		return false
	case Text:
		return val != ""
	case DateRange:
		for _, m := range append(val.Start.members(), val.End.members()...) {
			if m == "" {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Param is a named filter value.
type Param struct {
	Name  string
	Value Value
}

// Params is an ordered list of named values. Order is preserved so the same
// input always yields the same composite query.
type Params []Param

// Get returns the value registered under name.
func (p Params) Get(name string) (Value, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// Has reports whether name has been set.
func (p Params) Has(name string) bool {
	_, ok := p.Get(name)
	return ok
}

// Set replaces the value for name in place, or appends it.
func (p *Params) Set(name string, v Value) {
	for i := range *p {
		if (*p)[i].Name == name {
			(*p)[i].Value = v
			return
		}
	}
	*p = append(*p, Param{Name: name, Value: v})
}

// Names returns parameter names in order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for _, param := range p {
		names = append(names, param.Name)
	}
	return names
}
