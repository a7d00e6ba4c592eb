package bloodgroup

import (
	"errors"
	"fmt"
)

// Group is one of the eight canonical ABO/Rh blood group codes.
type Group string

const (
	APositive  Group = "A+"
	ANegative  Group = "A-"
	BPositive  Group = "B+"
	BNegative  Group = "B-"
	ABPositive Group = "AB+"
	ABNegative Group = "AB-"
	OPositive  Group = "O+"
	ONegative  Group = "O-"
)

var ErrInvalid = errors.New("invalid blood group")

// All lists every valid group in a stable order.
func All() []Group {
	return []Group{
		APositive, ANegative,
		BPositive, BNegative,
		ABPositive, ABNegative,
		OPositive, ONegative,
	}
}

// Parse validates a raw code against the closed eight-value set.
func Parse(s string) (Group, error) {
	g := Group(s)
	if !g.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return g, nil
}

func (g Group) Valid() bool {
	switch g {
	case APositive, ANegative, BPositive, BNegative,
		ABPositive, ABNegative, OPositive, ONegative:
		return true
	default:
		return false
	}
}

func (g Group) String() string { return string(g) }
