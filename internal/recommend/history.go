package recommend

import (
	"strings"

	"github.com/edgard/callwatch/internal/database"
)

// FormatHistory renders prior recommendations as a chronological narrative.
// The input is in store order (newest first, see MemoryStore); the output
// lists the oldest entry first, one entry per line. The input is not modified.
func FormatHistory(recs []*database.Recommendation) string {
	if len(recs) == 0 {
		return ""
	}

	lines := make([]string, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i] == nil {
			continue
		}
		lines = append(lines, recs[i].Content)
	}
	return strings.Join(lines, "\n")
}
