package recommend

// Rejection reasons reported by FilterWithReasons.
const (
	ReasonAlreadyKnown       = "already_known"
	ReasonMissingIdentifier  = "missing_identifier"
	ReasonMissingRecommender = "missing_recommender"
	ReasonMissingConviction  = "missing_conviction"
	ReasonInvalidConviction  = "invalid_conviction"
)

// Rejection records why the candidate at Index was dropped.
type Rejection struct {
	Index  int
	Reason string
}

// Filter keeps the candidates that are new and well formed, in their original
// order. Rejected candidates are dropped silently. Candidates referring to the
// same token are not merged.
func Filter(candidates []Candidate) []Recommendation {
	recs, _ := FilterWithReasons(candidates)
	return recs
}

// FilterWithReasons is Filter plus the reason each dropped candidate was rejected.
func FilterWithReasons(candidates []Candidate) ([]Recommendation, []Rejection) {
	recs := make([]Recommendation, 0, len(candidates))
	var rejected []Rejection

	for i, c := range candidates {
		rec, reason := validate(c)
		if reason != "" {
			rejected = append(rejected, Rejection{Index: i, Reason: reason})
			continue
		}
		recs = append(recs, rec)
	}
	return recs, rejected
}

func validate(c Candidate) (Recommendation, string) {
	if c.AlreadyKnown() {
		return Recommendation{}, ReasonAlreadyKnown
	}

	ticker, hasTicker := c.Text(FieldTicker)
	address, hasAddress := c.Text(FieldContractAddress)
	if !hasTicker && !hasAddress {
		return Recommendation{}, ReasonMissingIdentifier
	}

	recommender, ok := c.Text(FieldRecommender)
	if !ok {
		return Recommendation{}, ReasonMissingRecommender
	}

	if !c.Has(FieldConviction) {
		return Recommendation{}, ReasonMissingConviction
	}
	rawConviction, _ := c.Text(FieldConviction)
	conviction, ok := ParseConviction(rawConviction)
	if !ok {
		return Recommendation{}, ReasonInvalidConviction
	}

	// type is not a filter criterion; unknown values are kept as unspecified.
	rawType, _ := c.Text(FieldType)
	recType, ok := ParseType(rawType)
	if !ok {
		recType = ""
	}

	return Recommendation{
		Recommender:     recommender,
		Ticker:          ticker,
		ContractAddress: address,
		Type:            recType,
		Conviction:      conviction,
	}, ""
}
