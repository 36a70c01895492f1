package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/riskcheck/riskcheck/internal/config"
	"github.com/riskcheck/riskcheck/internal/domain/assessment"
	"github.com/riskcheck/riskcheck/internal/domain/dashboard"
	"github.com/riskcheck/riskcheck/internal/domain/hospital"
	"github.com/riskcheck/riskcheck/internal/domain/precaution"
	"github.com/riskcheck/riskcheck/internal/platform/scoring"
	"github.com/riskcheck/riskcheck/internal/platform/termview"
)

// cliEnv is what every terminal command needs.
type cliEnv struct {
	cfg    *config.Config
	client *scoring.Client
	view   *termview.View
	out    io.Writer
}

func newCLIEnv(cmd *cobra.Command) (*cliEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	client, err := newScoringClient(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	out := cmd.OutOrStdout()
	return &cliEnv{cfg: cfg, client: client, view: termview.New(out), out: out}, nil
}

func assessCmd() *cobra.Command {
	var (
		form      assessment.Form
		symptoms  []string
		family    []string
		specialty string
	)
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Run an assessment from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCLIEnv(cmd)
			if err != nil {
				return err
			}
			for _, s := range symptoms {
				if !slices.Contains(assessment.SymptomOptions, s) {
					return fmt.Errorf("unknown symptom %q", s)
				}
				if !slices.Contains(form.Symptoms, s) {
					form.ToggleSymptom(s)
				}
			}
			for _, f := range family {
				if !slices.Contains(assessment.FamilyHistoryOptions, f) {
					return fmt.Errorf("unknown family history condition %q", f)
				}
				if !slices.Contains(form.FamilyHistory, f) {
					form.ToggleFamilyHistory(f)
				}
			}
			return runAssess(cmd.Context(), env, form, specialty)
		},
	}

	f := cmd.Flags()
	f.StringVar(&form.Age, "age", "", "age in years")
	f.StringVar(&form.HeartRate, "heart-rate", "", "resting heart rate (bpm)")
	f.StringVar(&form.BloodPressureSystolic, "systolic", "", "systolic blood pressure (mmHg)")
	f.StringVar(&form.BloodPressureDiastolic, "diastolic", "", "diastolic blood pressure (mmHg)")
	f.StringVar(&form.BMI, "bmi", "", "body mass index")
	f.StringVar(&form.ExerciseFrequency, "exercise", "", "exercise days per week")
	f.BoolVar(&form.Smoking, "smoking", false, "current smoker")
	f.StringSliceVar(&symptoms, "symptom", nil, "symptom (repeatable)")
	f.StringSliceVar(&family, "family-history", nil, "family history condition (repeatable)")
	f.StringVar(&form.Latitude, "lat", "", "latitude for the hospital search")
	f.StringVar(&form.Longitude, "lon", "", "longitude for the hospital search")
	f.StringVar(&form.Email, "email", "", "address for a high-risk alert (server only)")
	f.StringVar(&specialty, "specialty", "", "hospital specialty filter")
	return cmd
}

func runAssess(ctx context.Context, env *cliEnv, form assessment.Form, specialty string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	tz, err := env.cfg.Location()
	if err != nil {
		return err
	}

	res, err := assessment.NewService(env.client.Health).Submit(ctx, form)
	if err != nil {
		var verr *assessment.ValidationError
		if errors.As(err, &verr) {
			for _, m := range verr.Fields.Messages() {
				fmt.Fprintln(env.out, m)
			}
		}
		var serr *assessment.SubmitError
		if errors.As(err, &serr) {
			fmt.Fprintln(env.out, serr.Message)
		}
		return err
	}

	a := res.Assessment
	fmt.Fprintln(env.out, env.view.Dashboard(dashboard.Build(a, tz)))
	if res.Location == nil {
		return nil
	}

	catalogue, err := precaution.DefaultCatalogue()
	if err != nil {
		return err
	}
	locator := hospital.NewLocator(env.client.Hospitals, env.cfg.SearchRadiusKM)

	var (
		hv   *hospital.View
		tips scoring.LifestyleTips
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hv, _ = locator.Find(gctx, hospital.Query{Location: *res.Location, RiskLevel: a.OverallRiskLevel, Specialty: specialty})
		return nil
	})
	g.Go(func() error {
		tips, _ = env.client.Recommendations.LifestyleTips(gctx)
		return nil
	})
	_ = g.Wait()

	fmt.Fprintln(env.out, env.view.Hospitals(hv))
	fmt.Fprintln(env.out, env.view.Precautions(catalogue.Build(a.HighRiskDiseases, a.Recommendation, tips)))
	return nil
}

func hospitalsCmd() *cobra.Command {
	var (
		lat, lon  string
		specialty string
		emergency bool
	)
	cmd := &cobra.Command{
		Use:   "hospitals",
		Short: "Find hospitals near a location",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := parseLocation(lat, lon)
			if err != nil {
				return err
			}
			env, err := newCLIEnv(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			level := scoring.RiskModerate
			if emergency {
				level = scoring.RiskCritical
			}
			v, err := hospital.NewLocator(env.client.Hospitals, env.cfg.SearchRadiusKM).
				Find(ctx, hospital.Query{Location: loc, RiskLevel: level, Specialty: specialty})
			fmt.Fprintln(env.out, env.view.Hospitals(v))
			return err
		},
	}
	cmd.Flags().StringVar(&lat, "lat", "", "latitude")
	cmd.Flags().StringVar(&lon, "lon", "", "longitude")
	cmd.Flags().StringVar(&specialty, "specialty", "", "specialty filter")
	cmd.Flags().BoolVar(&emergency, "emergency", false, "also list emergency departments")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func parseLocation(lat, lon string) (scoring.Location, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil || la < -90 || la > 90 {
		return scoring.Location{}, fmt.Errorf("invalid latitude %q", lat)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil || lo < -180 || lo > 180 {
		return scoring.Location{}, fmt.Errorf("invalid longitude %q", lon)
	}
	return scoring.Location{Latitude: la, Longitude: lo}, nil
}

func tipsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tips",
		Short: "Show general health tips",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCLIEnv(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			catalogue, err := precaution.DefaultCatalogue()
			if err != nil {
				return err
			}
			tips, err := env.client.Recommendations.LifestyleTips(ctx)
			if err != nil {
				fmt.Fprintln(os.Stderr, "lifestyle tips unavailable:", scoring.UserMessage(err, err.Error()))
			}
			fmt.Fprintln(env.out, env.view.Precautions(catalogue.Build(nil, scoring.Recommendation{}, tips)))
			return nil
		},
	}
}
