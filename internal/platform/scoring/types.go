package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RiskLevel is the overall risk classification returned by the scoring service.
type RiskLevel string

const (
	RiskCritical RiskLevel = "CRITICAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskModerate RiskLevel = "MODERATE"
	RiskLow      RiskLevel = "LOW"
)

// Known reports whether l is one of the four documented levels.
func (l RiskLevel) Known() bool {
	switch l {
	case RiskCritical, RiskHigh, RiskModerate, RiskLow:
		return true
	}
	return false
}

// Urgent reports whether the level warrants urgent hospital search.
func (l RiskLevel) Urgent() bool {
	return l == RiskCritical || l == RiskHigh
}

// HealthInputs is the payload posted to /health/assess and /health/validate.
type HealthInputs struct {
	UserID                 string   `json:"user_id,omitempty"`
	Age                    int      `json:"age"`
	HeartRate              int      `json:"heart_rate"`
	BloodPressureSystolic  int      `json:"blood_pressure_systolic"`
	BloodPressureDiastolic int      `json:"blood_pressure_diastolic"`
	BMI                    float64  `json:"bmi"`
	Symptoms               []string `json:"symptoms"`
	Smoking                bool     `json:"smoking"`
	ExerciseFrequency      int      `json:"exercise_frequency"`
	FamilyHistory          []string `json:"family_history"`
	Latitude               *float64 `json:"latitude,omitempty"`
	Longitude              *float64 `json:"longitude,omitempty"`
}

// MarshalJSON encodes nil symptom and family history lists as empty arrays.
func (h HealthInputs) MarshalJSON() ([]byte, error) {
	type alias HealthInputs
	a := alias(h)
	if a.Symptoms == nil {
		a.Symptoms = []string{}
	}
	if a.FamilyHistory == nil {
		a.FamilyHistory = []string{}
	}
	return json.Marshal(a)
}

// Location returns the coordinates carried by the inputs, if both are set.
func (h *HealthInputs) Location() (*Location, bool) {
	if h == nil || h.Latitude == nil || h.Longitude == nil {
		return nil, false
	}
	return &Location{Latitude: *h.Latitude, Longitude: *h.Longitude}, true
}

// Location is a WGS84 coordinate pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DiseaseScore is one entry of an assessment's risk_scores object.
type DiseaseScore struct {
	Disease string  `json:"disease"`
	Score   float64 `json:"score"`
}

// Scores preserves the key order of the risk_scores JSON object.
type Scores []DiseaseScore

// Get returns the score recorded for disease.
func (s Scores) Get(disease string) (float64, bool) {
	for _, ds := range s {
		if ds.Disease == disease {
			return ds.Score, true
		}
	}
	return 0, false
}

func (s *Scores) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*s = nil
		return nil
	}
	var out Scores
	err := decodeOrderedObject(data, func(key string, dec *json.Decoder) error {
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("risk_scores[%q]: %w", key, err)
		}
		out = append(out, DiseaseScore{Disease: key, Score: v})
		return nil
	})
	if err != nil {
		return err
	}
	*s = out
	return nil
}

func (s Scores) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, ds := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(ds.Disease)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(ds.Score, 'g', -1, 64))
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Recommendation is either free text or a list of actions; the service
// returns a string when nothing was flagged and an array otherwise.
type Recommendation struct {
	items []string
	list  bool
}

// RecommendationText builds a single-paragraph recommendation.
func RecommendationText(s string) Recommendation {
	if s == "" {
		return Recommendation{}
	}
	return Recommendation{items: []string{s}}
}

// RecommendationList builds a list recommendation.
func RecommendationList(items ...string) Recommendation {
	return Recommendation{items: items, list: true}
}

// IsList reports whether the service sent an array.
func (r Recommendation) IsList() bool { return r.list }

// Items returns the actions; a text recommendation yields one item.
func (r Recommendation) Items() []string { return r.items }

// Text returns the recommendation as a single string.
func (r Recommendation) Text() string { return strings.Join(r.items, " ") }

// Empty reports whether there is nothing to show.
func (r Recommendation) Empty() bool { return len(r.items) == 0 }

func (r *Recommendation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case isNull(data):
		*r = Recommendation{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RecommendationText(s)
	case len(data) > 0 && data[0] == '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("recommendation: %w", err)
		}
		*r = RecommendationList(items...)
	default:
		return fmt.Errorf("recommendation: unexpected JSON %s", data)
	}
	return nil
}

func (r Recommendation) MarshalJSON() ([]byte, error) {
	if r.list {
		if r.items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(r.items)
	}
	if len(r.items) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(r.Text())
}

// Assessment is the scoring service's response to /health/assess.
type Assessment struct {
	OverallRiskLevel RiskLevel      `json:"overall_risk_level"`
	RiskScores       Scores         `json:"risk_scores"`
	HighRiskDiseases []string       `json:"high_risk_diseases"`
	PrimaryConcern   string         `json:"primary_concern"`
	Recommendation   Recommendation `json:"recommendation"`
	Timestamp        string         `json:"timestamp,omitempty"`
	HealthInputs     *HealthInputs  `json:"health_inputs,omitempty"`
}

// ValidationResult is the response of /health/validate.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// HospitalID accepts both numeric and string identifiers.
type HospitalID string

func (id *HospitalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = HospitalID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("hospital id: %w", err)
	}
	*id = HospitalID(n.String())
	return nil
}

// Hospital is one nearby medical facility.
type Hospital struct {
	ID          HospitalID `json:"id"`
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Phone       string     `json:"phone"`
	Specialties []string   `json:"specialties"`
	Rating      float64    `json:"rating"`
	HasICU      bool       `json:"has_icu"`
	Distance    float64    `json:"distance"`
	Latitude    float64    `json:"latitude,omitempty"`
	Longitude   float64    `json:"longitude,omitempty"`
}

// NearbyOptions tunes a nearby-hospital search.
type NearbyOptions struct {
	RadiusKM  float64
	Specialty string
	Urgency   string
}

// Urgency values understood by the hospital search.
const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
)

// UrgencyFor maps an overall risk level to a search urgency.
func UrgencyFor(level RiskLevel) string {
	if level.Urgent() {
		return UrgencyHigh
	}
	return UrgencyMedium
}

// NearbyResult is the response of /hospitals/nearby.
type NearbyResult struct {
	Hospitals []Hospital `json:"hospitals"`
	Count     int        `json:"count"`
	Location  Location   `json:"location"`
}

// PrecautionRequest is posted to /recommendations/precautions.
type PrecautionRequest struct {
	RiskDiseases []string `json:"risk_diseases"`
	Age          *int     `json:"age,omitempty"`
	Lifestyle    string   `json:"lifestyle,omitempty"`
	Conditions   []string `json:"conditions"`
	Urgency      string   `json:"urgency,omitempty"`
}

// Precautions groups personalised actions by horizon.
type Precautions struct {
	ImmediateActions    []string `json:"immediate_actions"`
	ShortTermChanges    []string `json:"short_term_changes"`
	LongTermLifestyle   []string `json:"long_term_lifestyle"`
	Monitoring          []string `json:"monitoring"`
	SpecialistReferrals []string `json:"specialist_referrals"`
	Urgency             string   `json:"urgency,omitempty"`
}

// TipGroup is one category of general lifestyle tips.
type TipGroup struct {
	Category string   `json:"category"`
	Tips     []string `json:"tips"`
}

// LifestyleTips preserves the category order of the service response.
type LifestyleTips []TipGroup

func (t *LifestyleTips) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*t = nil
		return nil
	}
	var out LifestyleTips
	err := decodeOrderedObject(data, func(key string, dec *json.Decoder) error {
		var tips []string
		if err := dec.Decode(&tips); err != nil {
			return fmt.Errorf("tips[%q]: %w", key, err)
		}
		out = append(out, TipGroup{Category: key, Tips: tips})
		return nil
	})
	if err != nil {
		return err
	}
	*t = out
	return nil
}

func (t LifestyleTips) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, g := range t {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(g.Category)
		if err != nil {
			return nil, err
		}
		tips := g.Tips
		if tips == nil {
			tips = []string{}
		}
		val, err := json.Marshal(tips)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// decodeOrderedObject walks a JSON object in document order, handing each
// key to fn with the decoder positioned at its value.
func decodeOrderedObject(data []byte, fn func(key string, dec *json.Decoder) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		if err := fn(key, dec); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
