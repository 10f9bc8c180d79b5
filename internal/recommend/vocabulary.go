// Package recommend extracts structured trade recommendations from group chat
// conversations. A cheap boolean gate decides whether a conversation window is
// worth looking at; when it is, a structured extraction call proposes candidate
// recommendations which are validated before being returned to the caller.
package recommend

import "strings"

// Type is the action a recommender advises.
type Type string

// Recommendation types.
const (
	TypeBuy      Type = "buy"
	TypeDontBuy  Type = "dont_buy"
	TypeSell     Type = "sell"
	TypeDontSell Type = "dont_sell"
)

// Types lists every valid Type in a stable order.
func Types() []Type {
	return []Type{TypeBuy, TypeDontBuy, TypeSell, TypeDontSell}
}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	switch t {
	case TypeBuy, TypeDontBuy, TypeSell, TypeDontSell:
		return true
	}
	return false
}

// Label is the human-readable verb for t.
func (t Type) Label() string {
	switch t {
	case TypeDontBuy:
		return "not buy"
	case TypeDontSell:
		return "not sell"
	case TypeBuy, TypeSell:
		return string(t)
	}
	return "mention"
}

// ParseType normalizes s and returns the matching Type.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Conviction is the ordinal strength of a recommendation: none < low < medium < high.
type Conviction string

// Conviction levels.
const (
	ConvictionNone   Conviction = "none"
	ConvictionLow    Conviction = "low"
	ConvictionMedium Conviction = "medium"
	ConvictionHigh   Conviction = "high"
)

// Convictions lists every valid Conviction from weakest to strongest.
func Convictions() []Conviction {
	return []Conviction{ConvictionNone, ConvictionLow, ConvictionMedium, ConvictionHigh}
}

// Rank returns the ordinal position of c, or -1 if c is not valid.
func (c Conviction) Rank() int {
	switch c {
	case ConvictionNone:
		return 0
	case ConvictionLow:
		return 1
	case ConvictionMedium:
		return 2
	case ConvictionHigh:
		return 3
	}
	return -1
}

// Valid reports whether c is one of the known conviction levels.
func (c Conviction) Valid() bool {
	return c.Rank() >= 0
}

// ParseConviction normalizes s and returns the matching Conviction.
func ParseConviction(s string) (Conviction, bool) {
	c := Conviction(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}

// TypeValues returns the Type vocabulary as plain strings, for schemas.
func TypeValues() []string {
	out := make([]string, 0, 4)
	for _, t := range Types() {
		out = append(out, string(t))
	}
	return out
}

// ConvictionValues returns the Conviction vocabulary as plain strings, for schemas.
func ConvictionValues() []string {
	out := make([]string, 0, 4)
	for _, c := range Convictions() {
		out = append(out, string(c))
	}
	return out
}
