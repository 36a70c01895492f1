package assessment

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"

	"github.com/riskcheck/riskcheck/internal/platform/scoring"
)

// FieldError is a problem with one form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors collects per-field problems in form order.
type FieldErrors []FieldError

func (fe FieldErrors) add(field, format string, args ...any) FieldErrors {
	return append(fe, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Has reports whether field has an error.
func (fe FieldErrors) Has(field string) bool {
	for _, e := range fe {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Messages returns the error messages in order.
func (fe FieldErrors) Messages() []string {
	out := make([]string, len(fe))
	for i, e := range fe {
		out[i] = e.Message
	}
	return out
}

// ValidationError is returned by Submit when the form fails local checks.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return "invalid assessment form: " + strings.Join(e.Fields.Messages(), "; ")
}

// bounds mirror the min/max attributes of the form inputs.
type bounds struct {
	field, label string
	min, max     float64
}

var (
	ageBounds       = bounds{FieldAge, "Age", 1, 150}
	heartRateBounds = bounds{FieldHeartRate, "Heart rate", 30, 200}
	systolicBounds  = bounds{FieldSystolic, "Systolic blood pressure", 50, 300}
	diastolicBounds = bounds{FieldDiastolic, "Diastolic blood pressure", 30, 200}
	bmiBounds       = bounds{FieldBMI, "BMI", 10, 60}
	exerciseBounds  = bounds{FieldExerciseFrequency, "Exercise frequency", 0, 7}
	latitudeBounds  = bounds{FieldLatitude, "Latitude", -90, 90}
	longitudeBounds = bounds{FieldLongitude, "Longitude", -180, 180}
)

var (
	errBlank   = errors.New("blank")
	errNoDigit = errors.New("no leading number")

	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// parseLeadingInt reads the integer prefix of s: "72.9" is 72, "80bpm" is 80.
func parseLeadingInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errBlank
	}
	m := leadingInt.FindString(s)
	if m == "" {
		return 0, errNoDigit
	}
	return strconv.Atoi(m)
}

// parseLeadingFloat reads the decimal prefix of s: "24.5kg" is 24.5.
func parseLeadingFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errBlank
	}
	m := leadingFloat.FindString(s)
	if m == "" {
		return 0, errNoDigit
	}
	return strconv.ParseFloat(m, 64)
}

func (b bounds) check(errs FieldErrors, v float64) FieldErrors {
	if v < b.min || v > b.max {
		return errs.add(b.field, "%s must be between %g and %g", b.label, b.min, b.max)
	}
	return errs
}

func (b bounds) required(errs FieldErrors, err error) FieldErrors {
	if errors.Is(err, errBlank) {
		return errs.add(b.field, "%s is required", b.label)
	}
	return errs.add(b.field, "%s must be a number", b.label)
}

func coerceInt(errs FieldErrors, raw string, b bounds) (int, FieldErrors) {
	v, err := parseLeadingInt(raw)
	if err != nil {
		return 0, b.required(errs, err)
	}
	return v, b.check(errs, float64(v))
}

func coerceFloat(errs FieldErrors, raw string, b bounds) (float64, FieldErrors) {
	v, err := parseLeadingFloat(raw)
	if err != nil {
		return 0, b.required(errs, err)
	}
	return v, b.check(errs, v)
}

// Coerce converts the raw form into scoring inputs. Integer fields take the
// leading integer of the input; BMI and coordinates take the leading decimal.
// Blank or unparsable required fields and out-of-range values are reported as
// field errors. Coordinates are optional but must be given together.
func (f *Form) Coerce() (scoring.HealthInputs, FieldErrors) {
	var errs FieldErrors
	in := scoring.HealthInputs{
		Symptoms:      append([]string{}, f.Symptoms...),
		FamilyHistory: append([]string{}, f.FamilyHistory...),
		Smoking:       f.Smoking,
	}

	in.Age, errs = coerceInt(errs, f.Age, ageBounds)
	in.HeartRate, errs = coerceInt(errs, f.HeartRate, heartRateBounds)
	in.BloodPressureSystolic, errs = coerceInt(errs, f.BloodPressureSystolic, systolicBounds)
	in.BloodPressureDiastolic, errs = coerceInt(errs, f.BloodPressureDiastolic, diastolicBounds)
	in.BMI, errs = coerceFloat(errs, f.BMI, bmiBounds)
	in.ExerciseFrequency, errs = coerceInt(errs, f.ExerciseFrequency, exerciseBounds)

	hasLat := strings.TrimSpace(f.Latitude) != ""
	hasLon := strings.TrimSpace(f.Longitude) != ""
	switch {
	case hasLat && hasLon:
		var lat, lon float64
		lat, errs = coerceFloat(errs, f.Latitude, latitudeBounds)
		lon, errs = coerceFloat(errs, f.Longitude, longitudeBounds)
		if !errs.Has(FieldLatitude) && !errs.Has(FieldLongitude) {
			in.Latitude, in.Longitude = &lat, &lon
		}
	case hasLat:
		errs = errs.add(FieldLongitude, "Latitude and longitude must be provided together")
	case hasLon:
		errs = errs.add(FieldLatitude, "Latitude and longitude must be provided together")
	}

	if f.Email != "" {
		if _, err := mail.ParseAddress(f.Email); err != nil {
			errs = errs.add(FieldEmail, "Email must be a valid address")
		}
	}

	return in, errs
}

// AlertAddress returns the bare address from the email field, dropping any
// display name, or "" when the field is blank or invalid.
func (f *Form) AlertAddress() string {
	if strings.TrimSpace(f.Email) == "" {
		return ""
	}
	addr, err := mail.ParseAddress(f.Email)
	if err != nil {
		return ""
	}
	return addr.Address
}
