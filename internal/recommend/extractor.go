package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edgard/callwatch/internal/logger"
)

// Candidate field names, matching the JSON the extraction prompt asks for.
const (
	FieldRecommender     = "recommender"
	FieldTicker          = "ticker"
	FieldContractAddress = "contractAddress"
	FieldType            = "type"
	FieldConviction      = "conviction"
	FieldAlreadyKnown    = "alreadyKnown"
)

// errMalformedExtraction is returned by ParseCandidates for payloads that are
// not a JSON array (or null).
var errMalformedExtraction = errors.New("extraction payload is not a JSON array")

// Candidate is an unvalidated recommendation as returned by the backend.
// Nothing about its shape is guaranteed; use the accessors.
type Candidate map[string]any

// Text returns the field as a trimmed string. ok is false when the field is
// missing, not a string, or blank.
func (c Candidate) Text(field string) (string, bool) {
	v, present := c[field]
	if !present {
		return "", false
	}
	s, isString := v.(string)
	if !isString {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Has reports whether the field is present and not null.
func (c Candidate) Has(field string) bool {
	v, present := c[field]
	return present && v != nil
}

// AlreadyKnown interprets the alreadyKnown field loosely: absent, null, false,
// zero, empty and "false" strings all count as not known.
func (c Candidate) AlreadyKnown() bool {
	return truthy(c[FieldAlreadyKnown])
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		return s != "" && s != "false" && s != "0" && s != "no"
	default:
		return true
	}
}

// ParseCandidates decodes a backend payload into candidates. Empty text and
// JSON null yield no candidates; array elements that are not objects are skipped.
// A Markdown code fence around the JSON is tolerated.
func ParseCandidates(raw string) ([]Candidate, error) {
	payload := stripCodeFence(raw)
	if payload == "" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedExtraction, err)
	}

	switch v := decoded.(type) {
	case nil:
		return nil, nil
	case []any:
		candidates := make([]Candidate, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			candidates = append(candidates, Candidate(obj))
		}
		return candidates, nil
	default:
		return nil, fmt.Errorf("%w: got %T", errMalformedExtraction, decoded)
	}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop a language tag such as ```json
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Extractor turns a conversation window into candidate recommendations.
type Extractor struct {
	backend  Backend
	examples string
	logger   *slog.Logger
}

// NewExtractor returns an Extractor using the given few-shot examples.
// A nil examples slice uses DefaultExamples.
func NewExtractor(backend Backend, examples []Example, log *slog.Logger) *Extractor {
	if examples == nil {
		examples = DefaultExamples
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Extractor{
		backend:  backend,
		examples: formatExamples(examples),
		logger:   log.With("component", "extractor"),
	}
}

// Extract renders the extraction prompt and parses the backend's answer.
// Backend failures are returned wrapped in ErrBackend. An unusable answer is
// not an error: it yields an empty list.
func (e *Extractor) Extract(ctx context.Context, state *State, history string) ([]Candidate, error) {
	prompt, err := renderExtraction(state, history, e.examples)
	if err != nil {
		return nil, err
	}

	raw, err := e.backend.ExtractStructured(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: extract: %w", ErrBackend, err)
	}

	candidates, err := ParseCandidates(raw)
	if err != nil {
		e.logger.WarnContext(ctx, "Discarding malformed extraction output",
			"room_id", state.RoomID, "error", err, "response_preview", logger.Truncate(raw, 200))
		return []Candidate{}, nil
	}
	if candidates == nil {
		candidates = []Candidate{}
	}

	e.logger.DebugContext(ctx, "Extracted candidates", "room_id", state.RoomID, "count", len(candidates))
	return candidates, nil
}
