package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/riskcheck/riskcheck/internal/domain/assessment"
	"github.com/riskcheck/riskcheck/internal/domain/dashboard"
	"github.com/riskcheck/riskcheck/internal/domain/hospital"
	"github.com/riskcheck/riskcheck/internal/domain/precaution"
	"github.com/riskcheck/riskcheck/internal/platform/scoring"
)

// Template names rendered by the handler.
const (
	FormTemplate    = "form.html"
	ResultsTemplate = "results.html"
)

// TipsSource fetches the general lifestyle tips.
type TipsSource interface {
	LifestyleTips(ctx context.Context) (scoring.LifestyleTips, error)
}

// FormPage is the data for the assessment form.
type FormPage struct {
	Form   assessment.Form
	Errors []string
	Fields assessment.FieldErrors
}

// ResultsPage is the data for the results view.
type ResultsPage struct {
	Dashboard   *dashboard.View
	HasLocation bool
	Hospitals   *hospital.View
	Precautions *precaution.View
}

// Handler is the top-level container: it keeps the visitor's assessment and
// location and switches between the form and the results.
type Handler struct {
	store     Store
	tokens    *TokenIssuer
	svc       *assessment.Service
	locator   *hospital.Locator
	tips      TipsSource
	catalogue *precaution.Catalogue
	tz        *time.Location
	secure    bool
	now       func() time.Time
}

// Config collects the handler's collaborators.
type Config struct {
	Store     Store
	Tokens    *TokenIssuer
	Service   *assessment.Service
	Locator   *hospital.Locator
	Tips      TipsSource
	Catalogue *precaution.Catalogue
	// Timezone for assessment timestamps; nil means time.Local.
	Timezone *time.Location
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

func NewHandler(cfg Config) *Handler {
	tz := cfg.Timezone
	if tz == nil {
		tz = time.Local
	}
	return &Handler{
		store:     cfg.Store,
		tokens:    cfg.Tokens,
		svc:       cfg.Service,
		locator:   cfg.Locator,
		tips:      cfg.Tips,
		catalogue: cfg.Catalogue,
		tz:        tz,
		secure:    cfg.SecureCookie,
		now:       time.Now,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	e.POST("/assess", h.Assess)
	e.POST("/new", h.Reset)
}

// Index shows the form when there is no assessment, and the results otherwise.
func (h *Handler) Index(c echo.Context) error {
	ctx := c.Request().Context()
	sess, err := h.load(c)
	if err != nil {
		return err
	}
	if sess == nil || !sess.HasAssessment() {
		return c.Render(http.StatusOK, FormTemplate, &FormPage{})
	}
	page := h.results(ctx, sess, c.QueryParam("specialty"))
	return c.Render(http.StatusOK, ResultsTemplate, page)
}

// Assess scores the submitted form and stores the result.
func (h *Handler) Assess(c echo.Context) error {
	ctx := c.Request().Context()
	params, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form submission")
	}
	form := assessment.FormFromValues(params)

	res, err := h.svc.Submit(ctx, form)
	if err != nil {
		var verr *assessment.ValidationError
		if errors.As(err, &verr) {
			return c.Render(http.StatusUnprocessableEntity, FormTemplate, &FormPage{
				Form:   form,
				Errors: verr.Fields.Messages(),
				Fields: verr.Fields,
			})
		}
		var serr *assessment.SubmitError
		if errors.As(err, &serr) {
			zerolog.Ctx(ctx).Error().Err(serr.Err).Int("status", serr.Status).Msg("assessment failed")
			return c.Render(serr.Status, FormTemplate, &FormPage{
				Form:   form,
				Errors: []string{serr.Message},
			})
		}
		return err
	}

	sess, err := h.load(c)
	if err != nil {
		return err
	}
	now := h.now()
	if sess == nil {
		sess = New(now, h.tokens.TTL())
	}
	sess.SetResult(res.Assessment, res.Location)
	sess.Touch(now, h.tokens.TTL())
	if err := h.store.Save(ctx, sess); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save assessment").SetInternal(err)
	}
	if err := h.setCookie(c, sess); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("session_id", sess.ID.String()).
		Str("risk_level", string(res.Assessment.OverallRiskLevel)).
		Bool("has_location", res.Location != nil).
		Bool("alerted", res.Alerted).
		Msg("assessment completed")

	return c.Redirect(http.StatusSeeOther, "/")
}

// Reset clears the assessment and location so a new assessment can start.
func (h *Handler) Reset(c echo.Context) error {
	ctx := c.Request().Context()
	sess, err := h.load(c)
	if err != nil {
		return err
	}
	if sess != nil {
		sess.Reset()
		sess.Touch(h.now(), h.tokens.TTL())
		if err := h.store.Save(ctx, sess); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to reset assessment").SetInternal(err)
		}
		if err := h.setCookie(c, sess); err != nil {
			return err
		}
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// results assembles the results view. Hospitals and lifestyle tips are only
// fetched when a location is known, and then concurrently.
func (h *Handler) results(ctx context.Context, sess *Session, specialty string) *ResultsPage {
	a := sess.Assessment
	page := &ResultsPage{
		Dashboard:   dashboard.Build(a, h.tz),
		HasLocation: sess.Location != nil,
	}
	if sess.Location == nil {
		return page
	}

	log := zerolog.Ctx(ctx)
	var lifestyle scoring.LifestyleTips

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := h.locator.Find(gctx, hospital.Query{
			Location:  *sess.Location,
			RiskLevel: a.OverallRiskLevel,
			Specialty: specialty,
		})
		if err != nil {
			log.Warn().Err(err).Msg("hospital search failed")
		}
		page.Hospitals = v
		return nil
	})
	if h.tips != nil {
		g.Go(func() error {
			tips, err := h.tips.LifestyleTips(gctx)
			if err != nil {
				log.Warn().Err(err).Msg("lifestyle tips unavailable")
				return nil
			}
			lifestyle = tips
			return nil
		})
	}
	_ = g.Wait()

	page.Precautions = h.catalogue.Build(a.HighRiskDiseases, a.Recommendation, lifestyle)
	return page
}

// load returns the visitor's session, or nil when the cookie is missing,
// invalid, or points at an expired session.
func (h *Handler) load(c echo.Context) (*Session, error) {
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	sid, err := h.tokens.Parse(cookie.Value)
	if err != nil {
		return nil, nil
	}
	sess, err := h.store.Get(c.Request().Context(), sid)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load session").SetInternal(err)
	}
	return sess, nil
}

func (h *Handler) setCookie(c echo.Context, sess *Session) error {
	token, exp, err := h.tokens.Issue(sess.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue session").SetInternal(err)
	}
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
