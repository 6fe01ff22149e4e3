package matching

import (
	"fmt"
	"strings"
)

type Recommendation string

const (
	RecommendApprove Recommendation = "approve"
	RecommendReview  Recommendation = "review"
)

// Explanation is a readable account of why a match was made.
type Explanation struct {
	Confidence     int
	Summary        string
	Warnings       []string
	Recommendation Recommendation
}

// Explain describes m from its recorded reasons and differences.
func (e *Engine) Explain(m Match) Explanation {
	var b strings.Builder

	fmt.Fprintf(&b, "%s match with confidence %d%%.", m.Type, m.Confidence)

	if len(m.Reasons) > 0 {
		fmt.Fprintf(&b, " Matched on %s.", strings.Join(m.Reasons, ", "))
	}

	if !m.AmountDifference.IsZero() {
		fmt.Fprintf(&b, " Amounts differ by %s (%s%%).",
			m.AmountDifference.StringFixed(2), m.RelativeDifference.Mul(hundred).StringFixed(2))
	}

	if m.TimeDifference > 0 {
		fmt.Fprintf(&b, " Recorded %.1f hours apart.", m.TimeDifference.Hours())
	}

	ex := Explanation{
		Confidence:     m.Confidence,
		Summary:        b.String(),
		Warnings:       []string{},
		Recommendation: RecommendApprove,
	}

	if m.Confidence < e.policy.MinConfidenceForAutoMatch {
		ex.Warnings = append(ex.Warnings,
			fmt.Sprintf("confidence below auto-match threshold of %d", e.policy.MinConfidenceForAutoMatch))
	}

	for _, r := range m.Reasons {
		switch r {
		case "currency_mismatch":
			ex.Warnings = append(ex.Warnings, "adjustment currency differs from transaction")
		case "amount_exceeds_transaction":
			ex.Warnings = append(ex.Warnings, "adjustment exceeds transaction amount")
		}
	}

	if m.Type == MatchCrossCurrency {
		ex.Warnings = append(ex.Warnings, "matched across currencies")
	}

	if m.RequiresReview || len(ex.Warnings) > 0 {
		ex.Recommendation = RecommendReview
	}

	return ex
}
