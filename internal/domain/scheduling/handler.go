package scheduling

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinicops/internal/platform/auth"
)

// Handler exposes the optimization engine to the surrounding service layer.
// The engine itself owns no protocol; these endpoints are plain
// request/response glue.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	guard := auth.RequireRole("scheduler", "admin")

	g := api.Group("/scheduling", guard)
	g.POST("/optimize", h.OptimizeSchedule)
	g.POST("/suggest-slots", h.SuggestTimeSlots)
	g.POST("/capacity-plan", h.PlanCapacity)
}

// defaultConstraints is the standard clinic day used when a capacity-plan
// call does not specify the provider's own template.
func defaultConstraints() SchedulingConstraints {
	return SchedulingConstraints{
		WorkingHours:               WorkingHours{Start: "08:00", End: "17:00"},
		BreakTimes:                 []Window{{Start: "12:00", End: "13:00"}},
		MaxConsecutiveAppointments: 4,
	}
}

type suggestSlotsRequest struct {
	Request        AppointmentRequest    `json:"request"`
	ProviderID     string                `json:"provider_id"`
	DateRange      DateRange             `json:"date_range"`
	Constraints    SchedulingConstraints `json:"constraints"`
	MaxSuggestions int                   `json:"max_suggestions"`
}

type capacityPlanRequest struct {
	ProviderID        string                 `json:"provider_id"`
	DateRange         DateRange              `json:"date_range"`
	Constraints       *SchedulingConstraints `json:"constraints,omitempty"`
	TargetUtilization float64                `json:"target_utilization"`
	RiskTolerance     RiskTolerance          `json:"risk_tolerance"`
}

func (h *Handler) OptimizeSchedule(c echo.Context) error {
	var in OptimizeInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.OptimizeSchedule(c.Request().Context(), in)
	if err != nil {
		return schedulingError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) SuggestTimeSlots(c echo.Context) error {
	var req suggestSlotsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	slots, err := h.svc.SuggestOptimalTimeSlots(c.Request().Context(),
		req.Request, req.ProviderID, req.DateRange, req.Constraints, req.MaxSuggestions)
	if err != nil {
		return schedulingError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"suggestions": slots})
}

func (h *Handler) PlanCapacity(c echo.Context) error {
	var req capacityPlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	constraints := defaultConstraints()
	if req.Constraints != nil {
		constraints = *req.Constraints
	}
	profile, err := h.svc.PlanProviderCapacity(c.Request().Context(),
		req.ProviderID, req.DateRange, constraints, req.TargetUtilization, req.RiskTolerance)
	if err != nil {
		return schedulingError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// schedulingError maps engine errors onto HTTP statuses: rejected input is
// the caller's problem, an invariant violation is ours.
func schedulingError(c echo.Context, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":      "invalid scheduling input",
			"violations": verr.Violations,
		})
	}
	var cerr *ComputationError
	if errors.As(err, &cerr) {
		return echo.NewHTTPError(http.StatusInternalServerError, cerr.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
