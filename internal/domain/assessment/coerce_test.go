package assessment

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func validForm() Form {
	return Form{
		Age:                    "45",
		HeartRate:              "72",
		BloodPressureSystolic:  "120",
		BloodPressureDiastolic: "80",
		BMI:                    "24.5",
		ExerciseFrequency:      "3",
		Symptoms:               []string{"fatigue"},
	}
}

func TestParseLeadingInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"72", 72, false},
		{"72.9", 72, false},
		{" 80bpm", 80, false},
		{"-3", -3, false},
		{"1e3", 1, false},
		{"", 0, true},
		{"abc", 0, true},
		{".5", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLeadingInt(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLeadingInt(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLeadingInt(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseLeadingFloat(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"24.5", 24.5, false},
		{"24.5kg", 24.5, false},
		{".5", 0.5, false},
		{"3.", 3, false},
		{"1e1", 10, false},
		{"-74.006", -74.006, false},
		{"", 0, true},
		{"kg", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLeadingFloat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLeadingFloat(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLeadingFloat(%q) = %g, want %g", tt.in, got, tt.want)
		}
	}
}

func TestCoerce_Valid(t *testing.T) {
	f := validForm()
	f.HeartRate = "72.9"
	f.SetLocation(40.7128, -74.006)

	in, errs := f.Coerce()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if in.Age != 45 || in.HeartRate != 72 || in.BloodPressureSystolic != 120 || in.BloodPressureDiastolic != 80 {
		t.Errorf("unexpected vitals %+v", in)
	}
	if in.BMI != 24.5 || in.ExerciseFrequency != 3 {
		t.Errorf("unexpected bmi/exercise %+v", in)
	}
	if in.Latitude == nil || *in.Latitude != 40.7128 || in.Longitude == nil || *in.Longitude != -74.006 {
		t.Errorf("unexpected coordinates %v %v", in.Latitude, in.Longitude)
	}
	if diff := cmp.Diff([]string{"fatigue"}, in.Symptoms); diff != "" {
		t.Errorf("symptoms (-want +got):\n%s", diff)
	}
	if in.FamilyHistory == nil {
		t.Error("family history should be an empty list, not nil")
	}
}

func TestCoerce_NoLocation(t *testing.T) {
	f := validForm()
	in, errs := f.Coerce()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if in.Latitude != nil || in.Longitude != nil {
		t.Error("expected no coordinates")
	}
}

func TestCoerce_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *Form)
		field   string
		message string
	}{
		{"blank age", func(f *Form) { f.Age = "" }, FieldAge, "Age is required"},
		{"text heart rate", func(f *Form) { f.HeartRate = "fast" }, FieldHeartRate, "Heart rate must be a number"},
		{"age too low", func(f *Form) { f.Age = "0" }, FieldAge, "Age must be between 1 and 150"},
		{"age too high", func(f *Form) { f.Age = "151" }, FieldAge, "Age must be between 1 and 150"},
		{"heart rate high", func(f *Form) { f.HeartRate = "201" }, FieldHeartRate, "between 30 and 200"},
		{"systolic low", func(f *Form) { f.BloodPressureSystolic = "49" }, FieldSystolic, "between 50 and 300"},
		{"diastolic high", func(f *Form) { f.BloodPressureDiastolic = "250" }, FieldDiastolic, "between 30 and 200"},
		{"bmi low", func(f *Form) { f.BMI = "9.9" }, FieldBMI, "between 10 and 60"},
		{"exercise high", func(f *Form) { f.ExerciseFrequency = "8" }, FieldExerciseFrequency, "between 0 and 7"},
		{"latitude only", func(f *Form) { f.Latitude = "10" }, FieldLongitude, "provided together"},
		{"longitude only", func(f *Form) { f.Longitude = "10" }, FieldLatitude, "provided together"},
		{"latitude range", func(f *Form) { f.Latitude, f.Longitude = "91", "0" }, FieldLatitude, "between -90 and 90"},
		{"longitude range", func(f *Form) { f.Latitude, f.Longitude = "0", "-181" }, FieldLongitude, "between -180 and 180"},
		{"bad email", func(f *Form) { f.Email = "not-an-email" }, FieldEmail, "valid address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			_, errs := f.Coerce()
			if len(errs) != 1 {
				t.Fatalf("expected exactly one error, got %v", errs)
			}
			if errs[0].Field != tt.field {
				t.Errorf("field = %q, want %q", errs[0].Field, tt.field)
			}
			if !strings.Contains(errs[0].Message, tt.message) {
				t.Errorf("message = %q, want it to contain %q", errs[0].Message, tt.message)
			}
		})
	}
}

func TestCoerce_BoundariesInclusive(t *testing.T) {
	f := Form{
		Age:                    "150",
		HeartRate:              "30",
		BloodPressureSystolic:  "300",
		BloodPressureDiastolic: "30",
		BMI:                    "60",
		ExerciseFrequency:      "0",
		Latitude:               "-90",
		Longitude:              "180",
	}
	if _, errs := f.Coerce(); len(errs) != 0 {
		t.Fatalf("boundary values should be accepted: %v", errs)
	}
}

func TestCoerce_AllBlank(t *testing.T) {
	var f Form
	_, errs := f.Coerce()
	want := []string{FieldAge, FieldHeartRate, FieldSystolic, FieldDiastolic, FieldBMI, FieldExerciseFrequency}
	if len(errs) != len(want) {
		t.Fatalf("expected %d errors, got %v", len(want), errs)
	}
	for i, field := range want {
		if errs[i].Field != field {
			t.Errorf("error %d field = %q, want %q", i, errs[i].Field, field)
		}
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: FieldErrors{
		{Field: FieldAge, Message: "Age is required"},
		{Field: FieldBMI, Message: "BMI is required"},
	}}
	if got := err.Error(); got != "invalid assessment form: Age is required; BMI is required" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAlertAddress(t *testing.T) {
	tests := map[string]string{
		"":                            "",
		"   ":                         "",
		"pat@example.com":             "pat@example.com",
		"Jane Doe <jane@example.com>": "jane@example.com",
		"not-an-email":                "",
	}
	for email, want := range tests {
		f := Form{Email: email}
		if got := f.AlertAddress(); got != want {
			t.Errorf("AlertAddress(%q) = %q, want %q", email, got, want)
		}
	}
}
