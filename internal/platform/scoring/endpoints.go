package scoring

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// HealthAPI groups the health assessment endpoints.
type HealthAPI struct{ c *Client }

// Assess submits inputs for risk scoring.
func (h *HealthAPI) Assess(ctx context.Context, in HealthInputs) (*Assessment, error) {
	var out Assessment
	if err := h.c.do(ctx, "health.assess", http.MethodPost, "/health/assess", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns earlier assessments recorded for userID.
func (h *HealthAPI) History(ctx context.Context, userID string) ([]Assessment, error) {
	if userID == "" {
		return nil, fmt.Errorf("history: user id is required")
	}
	var out struct {
		Assessments []Assessment `json:"assessments"`
	}
	path := "/health/history/" + url.PathEscape(userID)
	if err := h.c.do(ctx, "health.history", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Assessments, nil
}

// Validate asks the service to check inputs without scoring them.
func (h *HealthAPI) Validate(ctx context.Context, in HealthInputs) (*ValidationResult, error) {
	var out ValidationResult
	if err := h.c.do(ctx, "health.validate", http.MethodPost, "/health/validate", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HospitalsAPI groups the hospital finder endpoints.
type HospitalsAPI struct{ c *Client }

type nearbyRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKM  float64 `json:"radius_km,omitempty"`
	Specialty *string `json:"specialty"`
	Urgency   string  `json:"urgency,omitempty"`
}

// FindNearby searches for hospitals around loc. An empty specialty is sent
// as null so the service does not filter.
func (h *HospitalsAPI) FindNearby(ctx context.Context, loc Location, opts NearbyOptions) (*NearbyResult, error) {
	req := nearbyRequest{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		RadiusKM:  opts.RadiusKM,
		Urgency:   opts.Urgency,
	}
	if opts.Specialty != "" {
		s := opts.Specialty
		req.Specialty = &s
	}
	var out NearbyResult
	if err := h.c.do(ctx, "hospitals.nearby", http.MethodPost, "/hospitals/nearby", req, &out); err != nil {
		return nil, err
	}
	if out.Hospitals == nil {
		out.Hospitals = []Hospital{}
	}
	return &out, nil
}

// FindEmergency returns the nearest hospitals with an emergency department.
func (h *HospitalsAPI) FindEmergency(ctx context.Context, loc Location) ([]Hospital, error) {
	var out struct {
		Hospitals []Hospital `json:"emergency_hospitals"`
	}
	if err := h.c.do(ctx, "hospitals.emergency", http.MethodPost, "/hospitals/emergency", loc, &out); err != nil {
		return nil, err
	}
	return out.Hospitals, nil
}

// RecommendationsAPI groups the recommendation endpoints.
type RecommendationsAPI struct{ c *Client }

// Precautions returns personalised precautions for the flagged diseases.
func (r *RecommendationsAPI) Precautions(ctx context.Context, in PrecautionRequest) (*Precautions, error) {
	if in.RiskDiseases == nil {
		in.RiskDiseases = []string{}
	}
	if in.Conditions == nil {
		in.Conditions = []string{}
	}
	var out struct {
		Precautions Precautions `json:"precautions"`
		Urgency     string      `json:"urgency"`
	}
	if err := r.c.do(ctx, "recommendations.precautions", http.MethodPost, "/recommendations/precautions", in, &out); err != nil {
		return nil, err
	}
	p := out.Precautions
	p.Urgency = out.Urgency
	return &p, nil
}

// LifestyleTips returns the general lifestyle tips catalogue.
func (r *RecommendationsAPI) LifestyleTips(ctx context.Context) (LifestyleTips, error) {
	var out struct {
		Tips LifestyleTips `json:"tips"`
	}
	if err := r.c.do(ctx, "recommendations.lifestyle", http.MethodGet, "/recommendations/lifestyle", nil, &out); err != nil {
		return nil, err
	}
	return out.Tips, nil
}
