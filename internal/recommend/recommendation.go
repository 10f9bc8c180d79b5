package recommend

import (
	"fmt"
	"strings"

	"github.com/edgard/callwatch/internal/database"
)

// Recommendation is a validated trade recommendation. Candidates flagged as
// already known never become one, so it carries no such flag.
type Recommendation struct {
	Recommender     string     `json:"recommender"`
	Ticker          string     `json:"ticker,omitempty"`
	ContractAddress string     `json:"contractAddress,omitempty"`
	Type            Type       `json:"type,omitempty"`
	Conviction      Conviction `json:"conviction"`
}

// Token names the recommended token by ticker, contract address, or both.
func (r Recommendation) Token() string {
	switch {
	case r.Ticker != "" && r.ContractAddress != "":
		return fmt.Sprintf("$%s (%s)", strings.TrimPrefix(r.Ticker, "$"), r.ContractAddress)
	case r.Ticker != "":
		return "$" + strings.TrimPrefix(r.Ticker, "$")
	default:
		return r.ContractAddress
	}
}

// Describe renders r as the narrative line stored and later fed back as known history.
func (r Recommendation) Describe() string {
	return fmt.Sprintf("%s recommended to %s %s with %s conviction",
		r.Recommender, r.Type.Label(), r.Token(), r.Conviction)
}

// Record converts r into a database row for the given chat and source message.
func (r Recommendation) Record(chatID int64, messageID uint) *database.Recommendation {
	return &database.Recommendation{
		ChatID:          chatID,
		MessageID:       messageID,
		Recommender:     r.Recommender,
		Ticker:          r.Ticker,
		ContractAddress: r.ContractAddress,
		Type:            string(r.Type),
		Conviction:      string(r.Conviction),
		Content:         r.Describe(),
	}
}
