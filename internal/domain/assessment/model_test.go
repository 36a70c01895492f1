package assessment

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestToggleSymptom(t *testing.T) {
	var f Form
	f.ToggleSymptom("fatigue")
	f.ToggleSymptom("headache")
	f.ToggleSymptom("nausea")
	f.ToggleSymptom("headache")

	if diff := cmp.Diff([]string{"fatigue", "nausea"}, f.Symptoms); diff != "" {
		t.Errorf("symptoms (-want +got):\n%s", diff)
	}
}

func TestToggleFamilyHistory_DoesNotAliasInput(t *testing.T) {
	shared := []string{"diabetes", "stroke"}
	f := Form{FamilyHistory: shared}
	f.ToggleFamilyHistory("diabetes")

	if diff := cmp.Diff([]string{"stroke"}, f.FamilyHistory); diff != "" {
		t.Errorf("family history (-want +got):\n%s", diff)
	}
	if shared[0] != "diabetes" {
		t.Error("toggle must not modify the caller's slice")
	}
}

func TestLabel(t *testing.T) {
	if got := Label("chest pain"); got != "Chest pain" {
		t.Errorf("Label = %q", got)
	}
	if got := Label(""); got != "" {
		t.Errorf("Label(\"\") = %q", got)
	}
}

func TestLocationLabel(t *testing.T) {
	var f Form
	if f.LocationLabel() != "" {
		t.Error("expected empty label without coordinates")
	}
	f.SetLocation(40.712776, -74.005974)
	if got := f.LocationLabel(); got != "40.7128, -74.0060" {
		t.Errorf("LocationLabel = %q", got)
	}
	f.Longitude = ""
	if f.LocationLabel() != "" {
		t.Error("expected empty label with one coordinate")
	}
}

func TestFormFromValues(t *testing.T) {
	v := url.Values{
		FieldAge:           {" 45 "},
		FieldHeartRate:     {"80"},
		FieldSymptoms:      {"headache", "made up", "fatigue", "headache"},
		FieldFamilyHistory: {"cancer"},
		FieldSmoking:       {"on"},
		FieldEmail:         {"pat@example.com"},
	}
	f := FormFromValues(v)

	if f.Age != "45" {
		t.Errorf("Age = %q", f.Age)
	}
	if diff := cmp.Diff([]string{"headache", "fatigue"}, f.Symptoms); diff != "" {
		t.Errorf("symptoms (-want +got):\n%s", diff)
	}
	if !f.Smoking {
		t.Error("expected smoking to be checked")
	}
	if f.Email != "pat@example.com" {
		t.Errorf("Email = %q", f.Email)
	}
}

func TestChoices(t *testing.T) {
	f := Form{Symptoms: []string{"nausea"}}
	opts := f.SymptomChoices()
	if len(opts) != len(SymptomOptions) {
		t.Fatalf("expected %d options, got %d", len(SymptomOptions), len(opts))
	}
	for _, o := range opts {
		if o.Checked != (o.Value == "nausea") {
			t.Errorf("option %q checked = %v", o.Value, o.Checked)
		}
	}
	if opts[0].Label != "Chest pain" {
		t.Errorf("first label = %q", opts[0].Label)
	}
}

func TestFamilyHistoryChoices(t *testing.T) {
	f := Form{FamilyHistory: []string{"diabetes"}}
	got := f.FamilyHistoryChoices()
	want := Choice{Value: "diabetes", Label: "Diabetes", Checked: true}
	if got[1] != want {
		t.Errorf("choice = %+v, want %+v", got[1], want)
	}
	if got[0].Checked {
		t.Errorf("unselected choice %q reported checked", got[0].Value)
	}
}
