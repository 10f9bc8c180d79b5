package recommend

import "github.com/edgard/callwatch/internal/database"

// messageOverheadTokens approximates the timestamp and sender prefix of a rendered line.
const messageOverheadTokens = 15

// EstimateTokens is a model-agnostic ballpark token count for text.
func EstimateTokens(text string) int {
	return len(text)/3 + 5
}

// fitTokenBudget keeps the newest messages of a chronological window whose
// estimated size fits in budget. The message at pinned, or the newest one when
// pinned is out of range, is always kept. A budget of zero or less disables
// trimming.
func fitTokenBudget(window []*database.Message, budget, pinned int) []*database.Message {
	if budget <= 0 || len(window) <= 1 {
		return window
	}
	if pinned < 0 || pinned >= len(window) {
		pinned = len(window) - 1
	}

	keep := make([]bool, len(window))
	keep[pinned] = true
	used := messageCost(window[pinned])
	for i := len(window) - 1; i >= 0; i-- {
		if i == pinned {
			continue
		}
		cost := messageCost(window[i])
		if used+cost > budget {
			break
		}
		used += cost
		keep[i] = true
	}

	out := make([]*database.Message, 0, len(window))
	for i, m := range window {
		if keep[i] {
			out = append(out, m)
		}
	}
	return out
}

func messageCost(m *database.Message) int {
	return EstimateTokens(m.Content) + messageOverheadTokens
}
