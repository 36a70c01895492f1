package assessment

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// SymptomOptions are the symptoms offered on the form.
var SymptomOptions = []string{
	"chest pain",
	"shortness of breath",
	"dizziness",
	"fatigue",
	"headache",
	"nausea",
	"irregular heartbeat",
}

// FamilyHistoryOptions are the family conditions offered on the form.
var FamilyHistoryOptions = []string{
	"hypertension",
	"diabetes",
	"cardiovascular disease",
	"stroke",
	"cancer",
	"obesity",
}

// Choice is one checkbox on the form.
type Choice struct {
	Value   string
	Label   string
	Checked bool
}

// Label capitalises the first letter of an option value.
func Label(v string) string {
	if v == "" {
		return v
	}
	return strings.ToUpper(v[:1]) + v[1:]
}

// Form holds the raw submitted values. Numeric fields stay as strings until
// Coerce so the page can redisplay exactly what the user typed.
type Form struct {
	Age                    string
	HeartRate              string
	BloodPressureSystolic  string
	BloodPressureDiastolic string
	BMI                    string
	ExerciseFrequency      string
	Latitude               string
	Longitude              string
	Symptoms               []string
	FamilyHistory          []string
	Smoking                bool
	Email                  string
}

// ToggleSymptom adds s if absent and removes it if present.
func (f *Form) ToggleSymptom(s string) {
	f.Symptoms = toggle(f.Symptoms, s)
}

// ToggleFamilyHistory adds d if absent and removes it if present.
func (f *Form) ToggleFamilyHistory(d string) {
	f.FamilyHistory = toggle(f.FamilyHistory, d)
}

func toggle(list []string, v string) []string {
	if i := slices.Index(list, v); i >= 0 {
		return slices.Delete(slices.Clone(list), i, i+1)
	}
	return append(list, v)
}

// SetLocation records coordinates obtained from the browser.
func (f *Form) SetLocation(lat, lon float64) {
	f.Latitude = strconv.FormatFloat(lat, 'f', -1, 64)
	f.Longitude = strconv.FormatFloat(lon, 'f', -1, 64)
}

// LocationLabel renders "lat, lon" with four decimals, or "" when either
// coordinate is missing or unparsable.
func (f *Form) LocationLabel() string {
	lat, latErr := parseLeadingFloat(f.Latitude)
	lon, lonErr := parseLeadingFloat(f.Longitude)
	if latErr != nil || lonErr != nil {
		return ""
	}
	return fmt.Sprintf("%.4f, %.4f", lat, lon)
}

// SymptomChoices returns the symptom checkboxes with their state.
func (f *Form) SymptomChoices() []Choice {
	return choices(SymptomOptions, f.Symptoms)
}

// FamilyHistoryChoices returns the family history checkboxes with their state.
func (f *Form) FamilyHistoryChoices() []Choice {
	return choices(FamilyHistoryOptions, f.FamilyHistory)
}

func choices(options, selected []string) []Choice {
	out := make([]Choice, len(options))
	for i, v := range options {
		out[i] = Choice{Value: v, Label: Label(v), Checked: slices.Contains(selected, v)}
	}
	return out
}

// Field names as posted by the form.
const (
	FieldAge               = "age"
	FieldHeartRate         = "heart_rate"
	FieldSystolic          = "blood_pressure_systolic"
	FieldDiastolic         = "blood_pressure_diastolic"
	FieldBMI               = "bmi"
	FieldExerciseFrequency = "exercise_frequency"
	FieldLatitude          = "latitude"
	FieldLongitude         = "longitude"
	FieldSymptoms          = "symptoms"
	FieldFamilyHistory     = "family_history"
	FieldSmoking           = "smoking"
	FieldEmail             = "email"
)

// FormFromValues binds posted form values. Checkbox values outside the
// offered options are dropped and duplicates collapse, keeping first-seen
// order.
func FormFromValues(v url.Values) Form {
	return Form{
		Age:                    strings.TrimSpace(v.Get(FieldAge)),
		HeartRate:              strings.TrimSpace(v.Get(FieldHeartRate)),
		BloodPressureSystolic:  strings.TrimSpace(v.Get(FieldSystolic)),
		BloodPressureDiastolic: strings.TrimSpace(v.Get(FieldDiastolic)),
		BMI:                    strings.TrimSpace(v.Get(FieldBMI)),
		ExerciseFrequency:      strings.TrimSpace(v.Get(FieldExerciseFrequency)),
		Latitude:               strings.TrimSpace(v.Get(FieldLatitude)),
		Longitude:              strings.TrimSpace(v.Get(FieldLongitude)),
		Symptoms:               pick(v[FieldSymptoms], SymptomOptions),
		FamilyHistory:          pick(v[FieldFamilyHistory], FamilyHistoryOptions),
		Smoking:                checked(v.Get(FieldSmoking)),
		Email:                  strings.TrimSpace(v.Get(FieldEmail)),
	}
}

func pick(values, allowed []string) []string {
	var out []string
	for _, v := range values {
		if slices.Contains(allowed, v) && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func checked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
