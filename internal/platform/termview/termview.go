// Package termview renders assessment results for the terminal.
package termview

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/riskcheck/riskcheck/internal/domain/dashboard"
	"github.com/riskcheck/riskcheck/internal/domain/hospital"
	"github.com/riskcheck/riskcheck/internal/domain/precaution"
	"github.com/riskcheck/riskcheck/internal/platform/scoring"
)

const barCols = 30

var (
	Muted       = lipgloss.Color("#6c757d")
	Accent      = lipgloss.Color("#667eea")
	Destructive = lipgloss.Color("#dc3545")
)

// View holds styles bound to one output's colour profile.
type View struct {
	r       *lipgloss.Renderer
	title   lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
	card    lipgloss.Style
	alert   lipgloss.Style
}

// New creates a View that detects colour support from w.
func New(w io.Writer) *View {
	r := lipgloss.NewRenderer(w)
	return &View{
		r:       r,
		title:   r.NewStyle().Bold(true).Foreground(Accent),
		heading: r.NewStyle().Bold(true).Underline(true),
		muted:   r.NewStyle().Foreground(Muted),
		card:    r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Muted).Padding(0, 1),
		alert:   r.NewStyle().Foreground(Destructive).Bold(true),
	}
}

func (v *View) level(level scoring.RiskLevel) lipgloss.Style {
	return v.r.NewStyle().Bold(true).Foreground(lipgloss.Color(dashboard.RiskColor(level)))
}

// Bar draws a cols-wide bar filled to width percent.
func Bar(width float64, cols int) string {
	filled := int(math.Round(width / 100 * float64(cols)))
	if filled < 0 {
		filled = 0
	}
	if filled > cols {
		filled = cols
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", cols-filled)
}

// Dashboard renders the assessment summary.
func (v *View) Dashboard(d *dashboard.View) string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(v.title.Render("Your Health Assessment Results") + "\n\n")

	b.WriteString(v.card.BorderForeground(lipgloss.Color(d.Color)).Render(
		d.Emoji+" "+v.level(d.Level).Render(string(d.Level))+"\n"+v.muted.Render("Overall Risk Level"),
	) + "\n\n")

	b.WriteString(v.heading.Render("Primary Health Concern") + "\n")
	fmt.Fprintf(&b, "%s (Risk Score: %s)\n\n", d.PrimaryConcern, d.PrimaryPercent)

	if len(d.Scores) > 0 {
		b.WriteString(v.heading.Render("Disease Risk Assessment") + "\n")
		nameWidth := 0
		for _, s := range d.Scores {
			nameWidth = max(nameWidth, lipgloss.Width(s.Disease))
		}
		for _, s := range d.Scores {
			pad := strings.Repeat(" ", nameWidth-lipgloss.Width(s.Disease))
			bar := v.level(s.Level).Render(Bar(s.Width, barCols))
			fmt.Fprintf(&b, "  %s%s  %s %6s\n", s.Disease, pad, bar, s.Percent)
		}
		b.WriteString("\n")
	}

	if len(d.HighRiskDiseases) > 0 {
		b.WriteString(v.alert.Render("⚠️ Conditions Requiring Attention") + "\n")
		for _, dis := range d.HighRiskDiseases {
			b.WriteString("  • " + dis + "\n")
		}
		b.WriteString("\n")
	}

	if d.HasRecommendations() {
		b.WriteString(v.heading.Render("Recommended Actions") + "\n")
		if d.RecommendationList {
			for _, r := range d.Recommendations {
				b.WriteString("  • " + r + "\n")
			}
		} else {
			b.WriteString("  " + d.RecommendationText() + "\n")
		}
		b.WriteString("\n")
	}

	if d.Timestamp != "" {
		b.WriteString(v.muted.Render("Assessment Date: "+d.Timestamp) + "\n")
	}
	return b.String()
}

// Hospitals renders the hospital list and, when present, the emergency list.
func (v *View) Hospitals(h *hospital.View) string {
	if h == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(v.title.Render("Nearby Hospitals & Medical Centers") + "\n")
	if h.Filter != "" {
		b.WriteString(v.muted.Render("Filtered by specialty: "+h.Filter) + "\n")
	}
	b.WriteString("\n")

	if h.ShowEmergency {
		b.WriteString(v.alert.Render("🚨 Nearest Emergency Departments") + "\n")
		if h.EmergencyError != "" {
			b.WriteString(v.alert.Render(h.EmergencyError) + "\n")
		}
		for _, c := range h.Emergency {
			b.WriteString(v.hospitalCard(c) + "\n")
		}
		b.WriteString("\n")
	}

	switch {
	case h.Error != "":
		b.WriteString(v.alert.Render(h.Error) + "\n")
	case h.Empty():
		b.WriteString(hospital.EmptyMessage + "\n")
	default:
		for _, c := range h.Hospitals {
			b.WriteString(v.hospitalCard(c) + "\n")
		}
	}
	return b.String()
}

func (v *View) hospitalCard(c hospital.Card) string {
	lines := []string{
		v.r.NewStyle().Bold(true).Render(c.Name) + "  " + v.muted.Render(c.Distance),
		"Address: " + c.Address,
		"Phone: " + c.Phone,
		"Specialties: " + c.Specialties,
		"Rating: " + c.Rating,
	}
	if c.HasICU {
		lines = append(lines, v.alert.Render("🏥 Has ICU"))
	}
	return v.card.Render(strings.Join(lines, "\n"))
}

// Precautions renders the precautions section.
func (v *View) Precautions(p *precaution.View) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(v.title.Render(p.Title) + "\n\n")

	if p.HasDiseases() {
		b.WriteString(v.heading.Render("Conditions Identified") + "\n")
		for _, d := range p.Diseases {
			b.WriteString("  • " + d + "\n")
		}
		b.WriteString("\n")
	}
	if p.HasRecommendations() {
		b.WriteString(v.heading.Render("Immediate Actions") + "\n")
		for _, r := range p.Recommendations {
			b.WriteString("  • " + r + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(v.heading.Render(p.GeneralHeading) + "\n")
	for _, t := range p.GeneralTips {
		fmt.Fprintf(&b, "  %s %s: %s\n", t.Icon, t.Title, t.Text)
	}

	for _, g := range p.Lifestyle {
		b.WriteString("\n" + v.heading.Render(g.Title) + "\n")
		for _, t := range g.Tips {
			b.WriteString("  • " + t + "\n")
		}
	}

	b.WriteString("\n" + v.muted.Render("Important: "+p.Notice) + "\n")
	return b.String()
}
