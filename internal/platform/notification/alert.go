package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskcheck/riskcheck/internal/platform/scoring"
)

// RiskAlertData builds the template data for an assessment alert.
func RiskAlertData(a *scoring.Assessment) map[string]string {
	var scores strings.Builder
	for i, ds := range a.RiskScores {
		if i > 0 {
			scores.WriteByte('\n')
		}
		fmt.Fprintf(&scores, "  - %s: %.1f%%", ds.Disease, ds.Score*100)
	}

	var recs strings.Builder
	if a.Recommendation.IsList() {
		for i, item := range a.Recommendation.Items() {
			if i > 0 {
				recs.WriteByte('\n')
			}
			recs.WriteString("  - " + item)
		}
	} else if !a.Recommendation.Empty() {
		recs.WriteString("  - " + a.Recommendation.Text())
	}

	return map[string]string{
		"risk_level":      string(a.OverallRiskLevel),
		"primary_concern": a.PrimaryConcern,
		"risk_scores":     scores.String(),
		"recommendations": recs.String(),
	}
}

// SendRiskAlert emails the assessment summary to recipient.
func (m *Manager) SendRiskAlert(ctx context.Context, recipient string, a *scoring.Assessment) (*Notification, error) {
	return m.SendFromTemplate(ctx, TemplateRiskAlert, RiskAlertData(a), recipient)
}
