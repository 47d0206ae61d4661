package delegation

import (
	"fmt"
	"strings"
)

// DefaultHardLimit is the depth at which a delegation is refused
const DefaultHardLimit = 8

// WarningLevel grades a chain by how close it is to the depth limit
type WarningLevel int

const (
	WarningNone WarningLevel = iota
	WarningApproaching
	WarningAtLimit
	WarningBlocked
)

var warningNames = [...]string{
	WarningNone:        "none",
	WarningApproaching: "approaching",
	WarningAtLimit:     "at_limit",
	WarningBlocked:     "blocked",
}

func (l WarningLevel) String() string {
	if l < WarningNone || l > WarningBlocked {
		return fmt.Sprintf("WarningLevel(%d)", int(l))
	}
	return warningNames[l]
}

// MarshalText implements encoding.TextMarshaler
func (l WarningLevel) MarshalText() ([]byte, error) {
	if l < WarningNone || l > WarningBlocked {
		return nil, fmt.Errorf("unknown warning level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *WarningLevel) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, n := range warningNames {
		if n == name {
			*l = WarningLevel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown warning level %q", text)
}

// Classify grades a chain against DefaultHardLimit
func Classify(depth int, hasCycle bool) WarningLevel {
	return ClassifyWithLimit(depth, hasCycle, DefaultHardLimit)
}

// ClassifyWithLimit grades a chain against hardLimit; a non-positive limit means DefaultHardLimit.
// A cycle always blocks.
func ClassifyWithLimit(depth int, hasCycle bool, hardLimit int) WarningLevel {
	if hardLimit <= 0 {
		hardLimit = DefaultHardLimit
	}

	switch {
	case hasCycle:
		return WarningBlocked
	case depth >= hardLimit:
		return WarningBlocked
	case depth >= hardLimit-1:
		return WarningAtLimit
	case depth >= hardLimit-3:
		return WarningApproaching
	default:
		return WarningNone
	}
}
