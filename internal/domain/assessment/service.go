package assessment

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/riskcheck/riskcheck/internal/platform/notification"
	"github.com/riskcheck/riskcheck/internal/platform/scoring"
)

// DefaultErrorMessage is shown when the scoring service gives no message.
const DefaultErrorMessage = "Error submitting form. Please try again."

// Scorer submits inputs to the scoring service.
type Scorer interface {
	Assess(ctx context.Context, in scoring.HealthInputs) (*scoring.Assessment, error)
}

// Alerter sends a high-risk alert email.
type Alerter interface {
	SendRiskAlert(ctx context.Context, recipient string, a *scoring.Assessment) (*notification.Notification, error)
}

// Recorder counts completed assessments.
type Recorder interface {
	AssessmentCompleted(level string)
}

// Result is a scored submission.
type Result struct {
	Assessment *scoring.Assessment
	// Location is where to search for hospitals, nil when unknown.
	Location *scoring.Location
	Alerted  bool
}

// SubmitError is a scoring failure with the message to show the user.
type SubmitError struct {
	Message string
	Status  int
	Err     error
}

func (e *SubmitError) Error() string { return e.Message + ": " + e.Err.Error() }
func (e *SubmitError) Unwrap() error { return e.Err }

// Service coerces forms and submits them for scoring.
type Service struct {
	scorer  Scorer
	alerter Alerter
	metrics Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithAlerter enables risk alert emails.
func WithAlerter(a Alerter) Option { return func(s *Service) { s.alerter = a } }

// WithRecorder counts completed assessments.
func WithRecorder(r Recorder) Option { return func(s *Service) { s.metrics = r } }

// NewService creates a new assessment service.
func NewService(scorer Scorer, opts ...Option) *Service {
	s := &Service{scorer: scorer}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit validates f, scores it, and derives the hospital search location:
// the coordinates echoed back in health_inputs when present, else the ones
// the user submitted. A HIGH or CRITICAL result triggers an alert email when
// an address was given; alert failures are logged and otherwise ignored.
func (s *Service) Submit(ctx context.Context, f Form) (*Result, error) {
	in, errs := f.Coerce()
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	a, err := s.scorer.Assess(ctx, in)
	if err != nil {
		return nil, submitError(err)
	}

	res := &Result{Assessment: a}
	if loc, ok := a.HealthInputs.Location(); ok {
		res.Location = loc
	} else if loc, ok := in.Location(); ok {
		res.Location = loc
	}

	if s.metrics != nil {
		s.metrics.AssessmentCompleted(string(a.OverallRiskLevel))
	}

	if to := f.AlertAddress(); s.alerter != nil && to != "" && a.OverallRiskLevel.Urgent() {
		if _, err := s.alerter.SendRiskAlert(ctx, to, a); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("risk_level", string(a.OverallRiskLevel)).Msg("risk alert not sent")
		} else {
			res.Alerted = true
		}
	}

	return res, nil
}

func submitError(err error) *SubmitError {
	status := http.StatusBadGateway
	var apiErr *scoring.APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity) {
		status = http.StatusUnprocessableEntity
	}
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	return &SubmitError{
		Message: scoring.UserMessage(err, DefaultErrorMessage),
		Status:  status,
		Err:     err,
	}
}
