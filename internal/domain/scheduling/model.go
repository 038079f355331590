package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppointmentType categorizes a visit for pricing and reporting.
type AppointmentType string

const (
	TypeRoutine      AppointmentType = "routine"
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "follow-up"
	TypeUrgentCare   AppointmentType = "urgent-care"
	TypePhysical     AppointmentType = "physical"
	TypeTelehealth   AppointmentType = "telehealth"
)

// Priority orders requests during assignment.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// priorityRank is the sort order used by the assigner; higher runs first.
var priorityRank = map[Priority]int{
	PriorityUrgent: 4,
	PriorityHigh:   3,
	PriorityMedium: 2,
	PriorityLow:    1,
}

// RiskTolerance controls how aggressively the capacity planner recommends
// overbooking.
type RiskTolerance string

const (
	RiskToleranceLow    RiskTolerance = "low"
	RiskToleranceMedium RiskTolerance = "medium"
	RiskToleranceHigh   RiskTolerance = "high"
)

// DateRange is an inclusive range of clinic days.
type DateRange struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Days returns the number of clinic days covered, counting both endpoints.
func (dr DateRange) Days() int {
	start := truncateToDay(dr.StartDate)
	end := truncateToDay(dr.EndDate)
	return int(end.Sub(start).Hours()/24) + 1
}

// ClockWindow is a time-of-day window ("HH:MM", half-open) with the patient's
// declared preference for it. The parsed minute offsets are cached during
// validation so scoring never re-parses.
type ClockWindow struct {
	Start      string  `json:"start"`
	End        string  `json:"end"`
	Preference float64 `json:"preference"`

	startMin int
	endMin   int
}

// Window is a time-of-day window without a preference value, used for breaks
// and blocked time.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`

	startMin int
	endMin   int
}

// WorkingHours bounds the bookable day.
type WorkingHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AppointmentRequest is one patient need to be scheduled. Requests exist only
// for the duration of a single optimization run.
type AppointmentRequest struct {
	PatientID       string          `json:"patient_id"`
	Type            AppointmentType `json:"appointment_type"`
	DurationMinutes int             `json:"duration_minutes"`
	Priority        Priority        `json:"priority"`
	PreferredTimes  []ClockWindow   `json:"preferred_times,omitempty"`
	NoShowRisk      *float64        `json:"no_show_risk,omitempty"`
}

// TimeSlot is a candidate or assigned unit of calendar time. Slots are
// half-open [Start, End). The remaining overbook-aware capacity is engine
// internal and never serialized.
type TimeSlot struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Preference float64   `json:"preference"`

	capacity int
}

// DurationMinutes returns the slot length in whole minutes.
func (ts TimeSlot) DurationMinutes() int {
	return int(ts.End.Sub(ts.Start) / time.Minute)
}

// SchedulingConstraints describes one provider-day template applied to every
// day in the optimization range.
type SchedulingConstraints struct {
	WorkingHours               WorkingHours `json:"working_hours"`
	BreakTimes                 []Window     `json:"break_times,omitempty"`
	BlockedTimes               []Window     `json:"blocked_times,omitempty"`
	MaxConsecutiveAppointments int          `json:"max_consecutive_appointments"`
	BufferMinutes              int          `json:"buffer_minutes"`
}

// SchedulingPreferences are the tuning flags for the assigner and planner.
type SchedulingPreferences struct {
	PrioritizeHighRisk         bool    `json:"prioritize_high_risk"`
	BalanceWorkload            bool    `json:"balance_workload"`
	MinimizeGaps               bool    `json:"minimize_gaps"`
	ConsiderPatientPreferences bool    `json:"consider_patient_preferences"`
	OverbookingAllowed         bool    `json:"overbooking_allowed"`
	OverbookingPercentage      float64 `json:"overbooking_percentage"`
}

// OptimizeInput is the full input snapshot for one optimization run.
type OptimizeInput struct {
	ProviderID  string                `json:"provider_id"`
	DateRange   DateRange             `json:"date_range"`
	Requests    []AppointmentRequest  `json:"appointment_requests"`
	Constraints SchedulingConstraints `json:"constraints"`
	Preferences SchedulingPreferences `json:"preferences"`
}

// OptimizedAppointment is one assigned request in the produced schedule.
type OptimizedAppointment struct {
	PatientID        string     `json:"patient_id"`
	ScheduledTime    time.Time  `json:"scheduled_time"`
	DurationMinutes  int        `json:"duration_minutes"`
	Confidence       float64    `json:"confidence"`
	AlternativeSlots []TimeSlot `json:"alternative_slots,omitempty"`
}

// SchedulingOptimization is the full result of one optimization run. The
// engine owns no durable state; the caller persists what it wants to keep.
type SchedulingOptimization struct {
	RunID               uuid.UUID              `json:"run_id"`
	ProviderID          string                 `json:"provider_id"`
	OptimizedSchedule   []OptimizedAppointment `json:"optimized_schedule"`
	UtilizationRate     float64                `json:"utilization_rate"`
	ExpectedNoShows     float64                `json:"expected_no_shows"`
	RevenueEstimate     float64                `json:"revenue_estimate"`
	ConflictsResolved   int                    `json:"conflicts_resolved"`
	UnscheduledPatients []string               `json:"unscheduled_patients,omitempty"`
	Recommendations     []string               `json:"recommendations,omitempty"`
	Explanation         string                 `json:"explanation"`
}

// OverbookingStrategy is the planner's overbooking recommendation.
type OverbookingStrategy struct {
	Enabled    bool     `json:"enabled"`
	Percentage float64  `json:"percentage"`
	TimeSlots  []string `json:"time_slots,omitempty"`
}

// RiskMitigation lists the hourly buckets with elevated no-show rates and the
// matching countermeasures.
type RiskMitigation struct {
	HighRiskSlots      []string `json:"high_risk_slots,omitempty"`
	RecommendedActions []string `json:"recommended_actions,omitempty"`
}

// UtilizationForecast is a pessimistic/expected/optimistic utilization band.
type UtilizationForecast struct {
	Pessimistic float64 `json:"pessimistic"`
	Expected    float64 `json:"expected"`
	Optimistic  float64 `json:"optimistic"`
}

// ProviderCapacityProfile is the capacity planner's recommendation for a
// provider over a date range.
type ProviderCapacityProfile struct {
	ProviderID          string              `json:"provider_id"`
	RecommendedCapacity int                 `json:"recommended_capacity"`
	OverbookingStrategy OverbookingStrategy `json:"overbooking_strategy"`
	RiskMitigation      RiskMitigation      `json:"risk_mitigation"`
	UtilizationForecast UtilizationForecast `json:"utilization_forecast"`
}

// HistoricalSnapshot is the immutable history signal fetched once per run
// from the HistoricalDataProvider. Found is false when the provider has no
// history, in which case the engine falls back to static defaults.
type HistoricalSnapshot struct {
	AvgDurationMinutes float64
	NoShowRate         float64
	HourlyNoShowRates  map[int]float64
	Found              bool
}

// PriceList maps appointment types to average revenue per visit.
type PriceList map[AppointmentType]float64

// parseClock converts "HH:MM" to minutes from midnight.
func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return h*60 + m, nil
}

// minuteOfDay returns t's offset from midnight in minutes.
func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// overlaps reports whether the half-open minute intervals [aStart,aEnd) and
// [bStart,bEnd) intersect.
func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}
