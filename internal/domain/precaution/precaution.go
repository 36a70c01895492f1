// Package precaution renders the precautions and health tips section.
package precaution

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/riskcheck/riskcheck/internal/platform/scoring"
)

//go:embed tips.yaml
var defaultCatalogue []byte

// Tip is one general health tip card.
type Tip struct {
	Icon  string `yaml:"icon"`
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

// Catalogue is the static content of the precautions section.
type Catalogue struct {
	Title          string `yaml:"title"`
	GeneralHeading string `yaml:"general_heading"`
	GeneralTips    []Tip  `yaml:"general_tips"`
	Notice         string `yaml:"notice"`
}

// DefaultCatalogue decodes the bundled catalogue.
func DefaultCatalogue() (*Catalogue, error) {
	return ParseCatalogue(defaultCatalogue)
}

// ParseCatalogue decodes a YAML catalogue, rejecting unknown fields.
func ParseCatalogue(data []byte) (*Catalogue, error) {
	var c Catalogue
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode tips catalogue: %w", err)
	}
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalogue) setDefaults() {
	if c.Title == "" {
		c.Title = "Health Precautions & Recommendations"
	}
	if c.GeneralHeading == "" {
		c.GeneralHeading = "General Health Tips"
	}
	c.Notice = strings.TrimSpace(c.Notice)
}

func (c *Catalogue) validate() error {
	for i, t := range c.GeneralTips {
		if t.Title == "" || t.Text == "" {
			return fmt.Errorf("tips catalogue: general_tips[%d] needs a title and text", i)
		}
	}
	if c.Notice == "" {
		return errors.New("tips catalogue: notice is required")
	}
	return nil
}

// LifestyleGroup is one category of service-provided lifestyle tips.
type LifestyleGroup struct {
	Title string
	Tips  []string
}

// View is the precautions section of the results page.
type View struct {
	Title           string
	Diseases        []string
	Recommendations []string
	GeneralHeading  string
	GeneralTips     []Tip
	Lifestyle       []LifestyleGroup
	Notice          string
}

// HasDiseases reports whether "Conditions Identified" is shown.
func (v *View) HasDiseases() bool { return len(v.Diseases) > 0 }

// HasRecommendations reports whether "Immediate Actions" is shown.
func (v *View) HasRecommendations() bool { return len(v.Recommendations) > 0 }

// Build assembles the section. A text recommendation is shown as a single
// action; lifestyle tips may be nil when the service was unavailable.
func (c *Catalogue) Build(diseases []string, rec scoring.Recommendation, lifestyle scoring.LifestyleTips) *View {
	v := &View{
		Title:           c.Title,
		Diseases:        diseases,
		Recommendations: rec.Items(),
		GeneralHeading:  c.GeneralHeading,
		GeneralTips:     c.GeneralTips,
		Notice:          c.Notice,
	}
	for _, g := range lifestyle {
		if len(g.Tips) == 0 {
			continue
		}
		v.Lifestyle = append(v.Lifestyle, LifestyleGroup{Title: categoryTitle(g.Category), Tips: g.Tips})
	}
	return v
}

// categoryTitle turns "stress_management" into "Stress management".
func categoryTitle(key string) string {
	s := strings.TrimSpace(strings.ReplaceAll(key, "_", " "))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
