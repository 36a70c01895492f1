// Package hospital finds and presents hospitals near an assessed user.
package hospital

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/riskcheck/riskcheck/internal/platform/scoring"
)

// Messages shown in place of the list.
const (
	ErrorMessage          = "Failed to find hospitals"
	EmptyMessage          = "No hospitals found in your area"
	EmergencyErrorMessage = "Failed to find emergency hospitals"
)

// DefaultRadiusKM is the search radius when none is configured.
const DefaultRadiusKM = 15

// Finder searches the scoring service for hospitals.
type Finder interface {
	FindNearby(ctx context.Context, loc scoring.Location, opts scoring.NearbyOptions) (*scoring.NearbyResult, error)
	FindEmergency(ctx context.Context, loc scoring.Location) ([]scoring.Hospital, error)
}

// Query describes one hospital search.
type Query struct {
	Location  scoring.Location
	RiskLevel scoring.RiskLevel
	Specialty string
}

// Card is one hospital as displayed.
type Card struct {
	ID          string
	Name        string
	Distance    string
	Address     string
	Phone       string
	TelHref     string
	Specialties string
	Rating      string
	HasICU      bool
}

// View is the hospital section of the results page.
type View struct {
	Hospitals []Card
	Filter    string
	Error     string

	// ShowEmergency is set for CRITICAL assessments.
	ShowEmergency  bool
	Emergency      []Card
	EmergencyError string
}

// Empty reports whether the empty-list message should be shown.
func (v *View) Empty() bool { return v.Error == "" && len(v.Hospitals) == 0 }

// Locator runs hospital searches.
type Locator struct {
	finder   Finder
	radiusKM float64
}

// NewLocator returns a Locator searching within radiusKM.
func NewLocator(f Finder, radiusKM float64) *Locator {
	if radiusKM <= 0 {
		radiusKM = DefaultRadiusKM
	}
	return &Locator{finder: f, radiusKM: radiusKM}
}

// Options builds the nearby search request for q.
func (l *Locator) Options(q Query) scoring.NearbyOptions {
	return scoring.NearbyOptions{
		RadiusKM:  l.radiusKM,
		Specialty: strings.TrimSpace(q.Specialty),
		Urgency:   scoring.UrgencyFor(q.RiskLevel),
	}
}

// Find searches for nearby hospitals and, for CRITICAL assessments, for
// emergency departments too. Failures are reported on the view so the page
// still renders; the first error is also returned for logging.
func (l *Locator) Find(ctx context.Context, q Query) (*View, error) {
	v := &View{
		Filter:        strings.TrimSpace(q.Specialty),
		ShowEmergency: q.RiskLevel == scoring.RiskCritical,
	}

	var (
		nearby    *scoring.NearbyResult
		emergency []scoring.Hospital
		nearbyErr error
		emergErr  error
	)

	var g errgroup.Group
	g.Go(func() error {
		nearby, nearbyErr = l.finder.FindNearby(ctx, q.Location, l.Options(q))
		return nil
	})
	if v.ShowEmergency {
		g.Go(func() error {
			emergency, emergErr = l.finder.FindEmergency(ctx, q.Location)
			return nil
		})
	}
	_ = g.Wait()

	if nearbyErr != nil {
		v.Error = ErrorMessage
	} else {
		v.Hospitals = Cards(Filter(nearby.Hospitals, v.Filter))
	}

	if v.ShowEmergency {
		if emergErr != nil {
			v.EmergencyError = EmergencyErrorMessage
		} else {
			v.Emergency = Cards(emergency)
		}
	}

	if nearbyErr != nil {
		return v, nearbyErr
	}
	return v, emergErr
}

// Filter keeps hospitals with a specialty containing specialty,
// case-insensitively. An empty filter keeps everything. Order is preserved.
func Filter(hospitals []scoring.Hospital, specialty string) []scoring.Hospital {
	needle := strings.ToLower(strings.TrimSpace(specialty))
	if needle == "" {
		return hospitals
	}
	out := make([]scoring.Hospital, 0, len(hospitals))
	for _, h := range hospitals {
		for _, s := range h.Specialties {
			if strings.Contains(strings.ToLower(s), needle) {
				out = append(out, h)
				break
			}
		}
	}
	return out
}

// Cards converts hospitals to display cards.
func Cards(hospitals []scoring.Hospital) []Card {
	out := make([]Card, 0, len(hospitals))
	for _, h := range hospitals {
		out = append(out, NewCard(h))
	}
	return out
}

// NewCard formats one hospital.
func NewCard(h scoring.Hospital) Card {
	return Card{
		ID:          string(h.ID),
		Name:        h.Name,
		Distance:    formatNumber(h.Distance) + " km away",
		Address:     h.Address,
		Phone:       h.Phone,
		TelHref:     TelHref(h.Phone),
		Specialties: strings.Join(h.Specialties, ", "),
		Rating:      "⭐ " + formatNumber(h.Rating) + "/5",
		HasICU:      h.HasICU,
	}
}

// TelHref builds a tel: link, keeping digits and a leading plus. It returns
// "" when the number has no digits.
func TelHref(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	num := b.String()
	if strings.Trim(num, "+") == "" {
		return ""
	}
	return "tel:" + num
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
