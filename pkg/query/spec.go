package query

import (
	"fmt"
	"strings"
)

// DefaultMinTermLength is the shortest text value a text filter accepts.
const DefaultMinTermLength = 2

// Kind is the closed set of filter value kinds.
type Kind int

const (
	KindText Kind = iota
	KindDateRange
	KindMatchAll
)

var kindNames = map[Kind]string{
	KindText:      "text",
	KindDateRange: "date-range",
	KindMatchAll:  "match-all",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind parses the textual form used in configuration files.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return KindText, nil
	case "date-range", "daterange", "datetime", "date":
		return KindDateRange, nil
	case "match-all", "all":
		return KindMatchAll, nil
	}
	return 0, fmt.Errorf("unknown filter kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// FilterSpec describes one named filter. Specs are owned by the caller and
// never modified by this package.
type FilterSpec struct {
	Name string
	Kind Kind
	// MinLength applies to text filters; zero means DefaultMinTermLength.
	MinLength int
}

// EffectiveMinLength is MinLength, or DefaultMinTermLength when unset.
func (s FilterSpec) EffectiveMinLength() int {
	if s.MinLength <= 0 {
		return DefaultMinTermLength
	}
	return s.MinLength
}
