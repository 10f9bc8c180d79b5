package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgard/callwatch/internal/database"
)

func TestFormatHistory(t *testing.T) {
	a := &database.Recommendation{Content: "A"}
	b := &database.Recommendation{Content: "B"}
	c := &database.Recommendation{Content: "C"}

	tests := []struct {
		name string
		in   []*database.Recommendation
		want string
	}{
		{"nil", nil, ""},
		{"empty", []*database.Recommendation{}, ""},
		{"single", []*database.Recommendation{a}, "A"},
		{"newest first becomes oldest first", []*database.Recommendation{a, b, c}, "C\nB\nA"},
		{"nil entries skipped", []*database.Recommendation{a, nil, c}, "C\nA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatHistory(tt.in))
		})
	}
}

func TestFormatHistory_IdempotentAndPure(t *testing.T) {
	in := []*database.Recommendation{{Content: "A"}, {Content: "B"}, {Content: "C"}}

	first := FormatHistory(in)
	second := FormatHistory(in)

	assert.Equal(t, first, second)
	assert.Equal(t, "A", in[0].Content)
	assert.Equal(t, "C", in[2].Content)
}
