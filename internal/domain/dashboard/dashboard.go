// Package dashboard turns an assessment into a render-ready view.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskcheck/riskcheck/internal/platform/scoring"
)

// RiskColor returns the display colour for a risk level.
func RiskColor(level scoring.RiskLevel) string {
	switch level {
	case scoring.RiskCritical:
		return "#dc3545"
	case scoring.RiskHigh:
		return "#ff6b6b"
	case scoring.RiskModerate:
		return "#ffc107"
	case scoring.RiskLow:
		return "#28a745"
	default:
		return "#6c757d"
	}
}

// RiskEmoji returns the display icon for a risk level.
func RiskEmoji(level scoring.RiskLevel) string {
	switch level {
	case scoring.RiskCritical:
		return "🚨"
	case scoring.RiskHigh:
		return "⚠️"
	case scoring.RiskModerate:
		return "⚡"
	case scoring.RiskLow:
		return "✅"
	default:
		return "❓"
	}
}

// ScoreLevel buckets a single disease score into a risk level.
func ScoreLevel(score float64) scoring.RiskLevel {
	switch {
	case score > 0.7:
		return scoring.RiskCritical
	case score > 0.5:
		return scoring.RiskHigh
	case score > 0.3:
		return scoring.RiskModerate
	default:
		return scoring.RiskLow
	}
}

// Percent formats a 0..1 score as a percentage with one decimal.
func Percent(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}

// BarWidth is the progress bar width for score, clamped to 0..100.
func BarWidth(score float64) float64 {
	w := score * 100
	if w < 0 {
		return 0
	}
	if w > 100 {
		return 100
	}
	return w
}

// ScoreRow is one line of the disease risk table.
type ScoreRow struct {
	Disease string
	Score   float64
	Percent string
	Width   float64
	Level   scoring.RiskLevel
	Color   string
}

// View is everything the results page shows about an assessment.
type View struct {
	Level scoring.RiskLevel
	Color string
	Emoji string

	PrimaryConcern string
	PrimaryPercent string

	Scores []ScoreRow

	HighRiskDiseases []string

	Recommendations    []string
	RecommendationList bool

	Timestamp string
}

// HasRecommendations reports whether the recommendations block is shown.
func (v *View) HasRecommendations() bool { return len(v.Recommendations) > 0 }

// RecommendationText joins a paragraph recommendation.
func (v *View) RecommendationText() string { return strings.Join(v.Recommendations, " ") }

// Build derives the view for a. A nil assessment yields a nil view.
func Build(a *scoring.Assessment, loc *time.Location) *View {
	if a == nil {
		return nil
	}

	v := &View{
		Level:              a.OverallRiskLevel,
		Color:              RiskColor(a.OverallRiskLevel),
		Emoji:              RiskEmoji(a.OverallRiskLevel),
		PrimaryConcern:     a.PrimaryConcern,
		PrimaryPercent:     "n/a",
		HighRiskDiseases:   a.HighRiskDiseases,
		Recommendations:    a.Recommendation.Items(),
		RecommendationList: a.Recommendation.IsList(),
		Timestamp:          FormatTimestamp(a.Timestamp, loc),
	}

	if score, ok := a.RiskScores.Get(a.PrimaryConcern); ok {
		v.PrimaryPercent = Percent(score)
	}

	v.Scores = make([]ScoreRow, 0, len(a.RiskScores))
	for _, ds := range a.RiskScores {
		level := ScoreLevel(ds.Score)
		v.Scores = append(v.Scores, ScoreRow{
			Disease: ds.Disease,
			Score:   ds.Score,
			Percent: Percent(ds.Score),
			Width:   BarWidth(ds.Score),
			Level:   level,
			Color:   RiskColor(level),
		})
	}

	return v
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// DisplayLayout is how assessment timestamps are shown.
const DisplayLayout = "Jan 2, 2006, 3:04:05 PM"

// FormatTimestamp renders an ISO-8601 timestamp in loc. Timestamps without a
// zone are wall-clock times and are shown as written. Unparsable input is
// returned unchanged.
func FormatTimestamp(raw string, loc *time.Location) string {
	if raw == "" {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.In(loc).Format(DisplayLayout)
		}
	}
	return raw
}
