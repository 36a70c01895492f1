// Package api exposes the scoring service operations as JSON under /api/v1
// for scripted clients.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/riskcheck/riskcheck/internal/platform/openapi"
	"github.com/riskcheck/riskcheck/internal/platform/scoring"
	"github.com/riskcheck/riskcheck/pkg/pagination"
)

// Health is the assessment side of the scoring service.
type Health interface {
	Assess(ctx context.Context, in scoring.HealthInputs) (*scoring.Assessment, error)
	History(ctx context.Context, userID string) ([]scoring.Assessment, error)
	Validate(ctx context.Context, in scoring.HealthInputs) (*scoring.ValidationResult, error)
}

// Hospitals is the hospital finder side of the scoring service.
type Hospitals interface {
	FindNearby(ctx context.Context, loc scoring.Location, opts scoring.NearbyOptions) (*scoring.NearbyResult, error)
	FindEmergency(ctx context.Context, loc scoring.Location) ([]scoring.Hospital, error)
}

// Recommendations is the recommendation side of the scoring service.
type Recommendations interface {
	Precautions(ctx context.Context, in scoring.PrecautionRequest) (*scoring.Precautions, error)
	LifestyleTips(ctx context.Context) (scoring.LifestyleTips, error)
}

// Recorder counts completed assessments.
type Recorder interface {
	AssessmentCompleted(level string)
}

type Handler struct {
	health    Health
	hospitals Hospitals
	recs      Recommendations
	radiusKM  float64
	metrics   Recorder
}

func NewHandler(health Health, hospitals Hospitals, recs Recommendations, radiusKM float64, metrics Recorder) *Handler {
	return &Handler{health: health, hospitals: hospitals, recs: recs, radiusKM: radiusKM, metrics: metrics}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/assess", h.Assess)
	g.POST("/validate", h.Validate)
	g.GET("/history/:user_id", h.History)
	g.POST("/hospitals/nearby", h.Nearby)
	g.POST("/hospitals/emergency", h.Emergency)
	g.POST("/recommendations/precautions", h.Precautions)
	g.GET("/recommendations/lifestyle", h.Lifestyle)
}

// Operations documents the routes RegisterRoutes adds under prefix.
func Operations(prefix string) map[string]openapi.Operation {
	return map[string]openapi.Operation{
		"POST " + prefix + "/assess":                      {Summary: "Score health inputs", Tag: "health", Body: "HealthInputs"},
		"POST " + prefix + "/validate":                    {Summary: "Validate health inputs", Tag: "health", Body: "HealthInputs"},
		"GET " + prefix + "/history/:user_id":             {Summary: "List earlier assessments for a user", Tag: "health"},
		"POST " + prefix + "/hospitals/nearby":            {Summary: "Find hospitals near a location", Tag: "hospitals", Body: "NearbyRequest"},
		"POST " + prefix + "/hospitals/emergency":         {Summary: "Find nearest emergency departments", Tag: "hospitals", Body: "Location"},
		"POST " + prefix + "/recommendations/precautions": {Summary: "Personalised precautions", Tag: "recommendations", Body: "PrecautionRequest"},
		"GET " + prefix + "/recommendations/lifestyle":    {Summary: "Lifestyle tips catalogue", Tag: "recommendations"},
	}
}

func (h *Handler) Assess(c echo.Context) error {
	var in scoring.HealthInputs
	if err := c.Bind(&in); err != nil {
		return badRequest(c, err)
	}
	out, err := h.health.Assess(c.Request().Context(), in)
	if err != nil {
		return upstreamError(c, err)
	}
	if h.metrics != nil {
		h.metrics.AssessmentCompleted(string(out.OverallRiskLevel))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Validate(c echo.Context) error {
	var in scoring.HealthInputs
	if err := c.Bind(&in); err != nil {
		return badRequest(c, err)
	}
	out, err := h.health.Validate(c.Request().Context(), in)
	if err != nil {
		return upstreamError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) History(c echo.Context) error {
	userID := c.Param("user_id")
	out, err := h.health.History(c.Request().Context(), userID)
	if err != nil {
		return upstreamError(c, err)
	}
	p := pagination.FromContext(c)
	return c.JSON(http.StatusOK, pagination.Page(out, p, c.Request().URL.Path))
}

type nearbyRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	RadiusKM  float64  `json:"radius_km"`
	Specialty string   `json:"specialty"`
	Urgency   string   `json:"urgency"`
}

func (r nearbyRequest) location() (scoring.Location, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return scoring.Location{}, false
	}
	return scoring.Location{Latitude: *r.Latitude, Longitude: *r.Longitude}, true
}

func (h *Handler) Nearby(c echo.Context) error {
	var req nearbyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	loc, ok := req.location()
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("latitude and longitude are required"))
	}
	radius := req.RadiusKM
	if radius <= 0 {
		radius = h.radiusKM
	}
	urgency := req.Urgency
	if urgency == "" {
		urgency = scoring.UrgencyMedium
	}
	out, err := h.hospitals.FindNearby(c.Request().Context(), loc, scoring.NearbyOptions{
		RadiusKM:  radius,
		Specialty: req.Specialty,
		Urgency:   urgency,
	})
	if err != nil {
		return upstreamError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Emergency(c echo.Context) error {
	var req nearbyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	loc, ok := req.location()
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("latitude and longitude are required"))
	}
	out, err := h.hospitals.FindEmergency(c.Request().Context(), loc)
	if err != nil {
		return upstreamError(c, err)
	}
	if out == nil {
		out = []scoring.Hospital{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"emergency_hospitals": out,
		"count":               len(out),
	})
}

func (h *Handler) Precautions(c echo.Context) error {
	var in scoring.PrecautionRequest
	if err := c.Bind(&in); err != nil {
		return badRequest(c, err)
	}
	out, err := h.recs.Precautions(c.Request().Context(), in)
	if err != nil {
		return upstreamError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"precautions": out,
		"urgency":     out.Urgency,
	})
}

func (h *Handler) Lifestyle(c echo.Context) error {
	out, err := h.recs.LifestyleTips(c.Request().Context())
	if err != nil {
		return upstreamError(c, err)
	}
	if out == nil {
		out = scoring.LifestyleTips{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tips": out})
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, errorBody("invalid request body: "+err.Error()))
}

// upstreamError relays a scoring failure: 4xx statuses pass through with the
// service's message, everything else becomes 502 (or 504 on timeout).
func upstreamError(c echo.Context, err error) error {
	zerolog.Ctx(c.Request().Context()).Error().Err(err).Str("path", c.Path()).Msg("scoring request failed")

	status := http.StatusBadGateway
	if code := scoring.StatusCode(err); code >= 400 && code < 500 {
		status = code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	return c.JSON(status, errorBody(scoring.UserMessage(err, http.StatusText(status))))
}
