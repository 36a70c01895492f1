package hospital

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskcheck/riskcheck/internal/platform/scoring"
)

type fakeFinder struct {
	mu           sync.Mutex
	nearbyOpts   scoring.NearbyOptions
	nearby       []scoring.Hospital
	nearbyErr    error
	emergency    []scoring.Hospital
	emergencyErr error
	emergencyHit bool
}

func (f *fakeFinder) FindNearby(_ context.Context, loc scoring.Location, opts scoring.NearbyOptions) (*scoring.NearbyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nearbyOpts = opts
	if f.nearbyErr != nil {
		return nil, f.nearbyErr
	}
	return &scoring.NearbyResult{Hospitals: f.nearby, Count: len(f.nearby), Location: loc}, nil
}

func (f *fakeFinder) FindEmergency(_ context.Context, _ scoring.Location) ([]scoring.Hospital, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emergencyHit = true
	return f.emergency, f.emergencyErr
}

func sampleHospitals() []scoring.Hospital {
	return []scoring.Hospital{
		{ID: "1", Name: "City General", Address: "1 Main St", Phone: "+1 (555) 010-2000",
			Specialties: []string{"Cardiology", "Emergency"}, Rating: 4.8, HasICU: true, Distance: 2.3},
		{ID: "2", Name: "Lakeside Clinic", Specialties: []string{"Pediatrics"}, Rating: 4, Distance: 5},
		{ID: "3", Name: "Heart Center", Specialties: []string{"Interventional cardiology"}, Rating: 4.5, Distance: 7.25},
	}
}

func TestOptions(t *testing.T) {
	l := NewLocator(nil, 0)
	tests := []struct {
		q    Query
		want scoring.NearbyOptions
	}{
		{Query{RiskLevel: scoring.RiskCritical}, scoring.NearbyOptions{RadiusKM: 15, Urgency: "high"}},
		{Query{RiskLevel: scoring.RiskHigh, Specialty: " cardio "}, scoring.NearbyOptions{RadiusKM: 15, Specialty: "cardio", Urgency: "high"}},
		{Query{RiskLevel: scoring.RiskModerate}, scoring.NearbyOptions{RadiusKM: 15, Urgency: "medium"}},
		{Query{RiskLevel: scoring.RiskLow}, scoring.NearbyOptions{RadiusKM: 15, Urgency: "medium"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, l.Options(tt.q)); diff != "" {
			t.Errorf("Options(%+v) (-want +got):\n%s", tt.q, diff)
		}
	}
}

func TestFilter(t *testing.T) {
	hs := sampleHospitals()

	assert.Len(t, Filter(hs, ""), 3)

	got := Filter(hs, "CARDIO")
	require.Len(t, got, 2)
	assert.Equal(t, "City General", got[0].Name)
	assert.Equal(t, "Heart Center", got[1].Name)

	assert.Empty(t, Filter(hs, "oncology"))
}

func TestNewCard(t *testing.T) {
	c := NewCard(sampleHospitals()[0])
	assert.Equal(t, "2.3 km away", c.Distance)
	assert.Equal(t, "⭐ 4.8/5", c.Rating)
	assert.Equal(t, "Cardiology, Emergency", c.Specialties)
	assert.Equal(t, "tel:+15550102000", c.TelHref)
	assert.True(t, c.HasICU)

	c = NewCard(sampleHospitals()[1])
	assert.Equal(t, "5 km away", c.Distance)
	assert.Equal(t, "⭐ 4/5", c.Rating)
	assert.Empty(t, c.TelHref)
}

func TestTelHref(t *testing.T) {
	cases := map[string]string{
		"555-0100":         "tel:5550100",
		"+44 20 7946 0000": "tel:+442079460000",
		"ext 1+2":          "tel:12",
		"":                 "",
		"+":                "",
	}
	for in, want := range cases {
		if got := TelHref(in); got != want {
			t.Errorf("TelHref(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFind(t *testing.T) {
	f := &fakeFinder{nearby: sampleHospitals()}
	l := NewLocator(f, 10)

	v, err := l.Find(context.Background(), Query{
		Location:  scoring.Location{Latitude: 1, Longitude: 2},
		RiskLevel: scoring.RiskHigh,
		Specialty: "cardio",
	})
	require.NoError(t, err)

	assert.Equal(t, 10.0, f.nearbyOpts.RadiusKM)
	assert.Equal(t, "high", f.nearbyOpts.Urgency)
	assert.Equal(t, "cardio", f.nearbyOpts.Specialty)
	assert.Len(t, v.Hospitals, 2)
	assert.Equal(t, "cardio", v.Filter)
	assert.False(t, v.ShowEmergency)
	assert.False(t, f.emergencyHit, "emergency search only runs for CRITICAL")
	assert.False(t, v.Empty())
}

func TestFind_Empty(t *testing.T) {
	v, err := NewLocator(&fakeFinder{}, 0).Find(context.Background(), Query{RiskLevel: scoring.RiskLow})
	require.NoError(t, err)
	assert.True(t, v.Empty())
	assert.Empty(t, v.Error)
}

func TestFind_Failure(t *testing.T) {
	boom := errors.New("service down")
	v, err := NewLocator(&fakeFinder{nearbyErr: boom}, 0).Find(context.Background(), Query{RiskLevel: scoring.RiskLow})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, ErrorMessage, v.Error)
	assert.False(t, v.Empty(), "error replaces the empty message")
}

func TestFind_CriticalIncludesEmergency(t *testing.T) {
	f := &fakeFinder{
		nearby:    sampleHospitals(),
		emergency: []scoring.Hospital{{ID: "9", Name: "Trauma One", Distance: 1.1}},
	}
	v, err := NewLocator(f, 0).Find(context.Background(), Query{RiskLevel: scoring.RiskCritical})
	require.NoError(t, err)

	assert.True(t, v.ShowEmergency)
	require.Len(t, v.Emergency, 1)
	assert.Equal(t, "Trauma One", v.Emergency[0].Name)
	assert.Len(t, v.Hospitals, 3)
}

func TestFind_EmergencyFailureDegradesOnlyItsSection(t *testing.T) {
	boom := errors.New("emergency down")
	f := &fakeFinder{nearby: sampleHospitals(), emergencyErr: boom}
	v, err := NewLocator(f, 0).Find(context.Background(), Query{RiskLevel: scoring.RiskCritical})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, EmergencyErrorMessage, v.EmergencyError)
	assert.Empty(t, v.Error)
	assert.Len(t, v.Hospitals, 3)
}
