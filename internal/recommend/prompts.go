package recommend

import (
	"fmt"
	"strings"
	"text/template"
)

const shouldProcessTemplateText = `# Task: Decide whether the recent messages should be checked for token recommendations.

Look for messages that:
- mention specific token tickers (like $SOL) or contract addresses
- contain words about buying, selling, holding or trading tokens
- express opinions, hype, warnings or conviction about a token

Recent messages:
{{.RecentMessages}}

Should these messages be processed for recommendations? Answer with a single JSON boolean: true or false.`

const extractionTemplateText = `TASK: Extract recommendations to buy or sell memecoins from the conversation as a JSON array of objects.

Memecoins usually have a ticker and a contract address. Recommenders can advise to buy, not buy, sell or not sell a token, with a conviction of none, low, medium or high.

# START OF EXAMPLES
These are examples of the expected output of this task:
{{.Examples}}
# END OF EXAMPLES

# INSTRUCTIONS

Extract any new recommendations from the conversation that are not already present in the list of known recommendations below:
{{if .KnownRecommendations}}{{.KnownRecommendations}}{{else}}(none){{end}}

- Use the recommender's name exactly as it appears in the conversation
- Do not repeat known recommendations. If you think a recommendation is already known but are not sure, set "alreadyKnown" to true
- Set "conviction" to "none", "low", "medium" or "high"
- Set "type" to "buy", "dont_buy", "sell" or "dont_sell"
- Include the contract address and/or ticker when available, otherwise null
- {{.AgentName}} is the bot itself and never makes recommendations

Recent messages:
{{.RecentMessages}}

Respond ONLY with a JSON array in this format (an empty array if there are no recommendations):
[
  {
    "recommender": string,
    "ticker": string | null,
    "contractAddress": string | null,
    "type": "buy" | "dont_buy" | "sell" | "dont_sell",
    "conviction": "none" | "low" | "medium" | "high",
    "alreadyKnown": boolean
  }
]`

var (
	shouldProcessTemplate = template.Must(template.New("should_process").Parse(shouldProcessTemplateText))
	extractionTemplate    = template.Must(template.New("extraction").Parse(extractionTemplateText))
)

// Example is a worked few-shot example bundled into the extraction prompt.
type Example struct {
	Context  string
	Messages string
	Outcome  string
}

// DefaultExamples are the few-shot examples shipped with the extractor.
var DefaultExamples = []Example{
	{
		Context: "Known recommendations: none",
		Messages: `user1: Hey everyone, what's the latest on $ROULETTE?
user2: Not much, just holding
user1: $ROULETTE at 48vV5y4DRH1Adr1bpvSgFWYCjLLPtHYBqUSwNc2cmCK2 is going to absuiutely send it soon`,
		Outcome: `[
  {
    "recommender": "user1",
    "ticker": "ROULETTE",
    "contractAddress": "48vV5y4DRH1Adr1bpvSgFWYCjLLPtHYBqUSwNc2cmCK2",
    "type": "buy",
    "conviction": "high",
    "alreadyKnown": false
  }
]`,
	},
	{
		Context: "Known recommendations: none",
		Messages: `user1: Should I grab some $SAMOYED? The contract is 0x1234567890abcdef1234567890abcdef12345678
user2: I think $SAMOYED is a solid pick, worth a small bag
user3: Stay away from $SAMOYED, the dev wallet holds half the supply`,
		Outcome: `[
  {
    "recommender": "user2",
    "ticker": "SAMOYED",
    "contractAddress": "0x1234567890abcdef1234567890abcdef12345678",
    "type": "buy",
    "conviction": "medium",
    "alreadyKnown": false
  },
  {
    "recommender": "user3",
    "ticker": "SAMOYED",
    "contractAddress": "0x1234567890abcdef1234567890abcdef12345678",
    "type": "dont_buy",
    "conviction": "high",
    "alreadyKnown": false
  }
]`,
	},
	{
		Context: "Known recommendations:\nuser1 recommended to buy $PEPE with high conviction",
		Messages: `user1: Told you all $PEPE is the play
user2: Anyone selling their $BONK? I'm thinking of dumping mine, feels toppy`,
		Outcome: `[
  {
    "recommender": "user1",
    "ticker": "PEPE",
    "contractAddress": null,
    "type": "buy",
    "conviction": "high",
    "alreadyKnown": true
  },
  {
    "recommender": "user2",
    "ticker": "BONK",
    "contractAddress": null,
    "type": "sell",
    "conviction": "low",
    "alreadyKnown": false
  }
]`,
	},
	{
		Context: "Known recommendations: none",
		Messages: `user1: gm everyone
user2: gm, anyone watching the game tonight?`,
		Outcome: `[]`,
	},
}

// formatExamples renders examples as numbered blocks for the extraction prompt.
func formatExamples(examples []Example) string {
	var sb strings.Builder
	for i, ex := range examples {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Example %d:\n%s\n\nMessages:\n%s\n\nOutcome:\n%s", i+1, ex.Context, ex.Messages, ex.Outcome)
	}
	return sb.String()
}

func renderShouldProcess(state *State) (string, error) {
	var sb strings.Builder
	if err := shouldProcessTemplate.Execute(&sb, state); err != nil {
		return "", fmt.Errorf("failed to render should-process prompt: %w", err)
	}
	return sb.String(), nil
}

type extractionPromptData struct {
	AgentName            string
	Examples             string
	KnownRecommendations string
	RecentMessages       string
}

func renderExtraction(state *State, history, examples string) (string, error) {
	agentName := state.AgentName
	if agentName == "" {
		agentName = "The assistant"
	}
	data := extractionPromptData{
		AgentName:            agentName,
		Examples:             examples,
		KnownRecommendations: history,
		RecentMessages:       state.RecentMessages,
	}

	var sb strings.Builder
	if err := extractionTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render extraction prompt: %w", err)
	}
	return sb.String(), nil
}
