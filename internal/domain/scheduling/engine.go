package scheduling

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// runState tracks a single run through the engine pipeline. States are never
// retried internally; a failed run is reported once and re-invoked by the
// caller with corrected input if desired.
type runState int

const (
	stateIdle runState = iota
	stateValidating
	stateGenerating
	stateScoring
	stateAssigning
	stateForecasting
	stateCompleted
	stateFailed
)

func (s runState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateValidating:
		return "validating"
	case stateGenerating:
		return "generating"
	case stateScoring:
		return "scoring"
	case stateAssigning:
		return "assigning"
	case stateForecasting:
		return "forecasting"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

// Options tune the engine without changing its invariants.
type Options struct {
	// GranularityMinutes is the candidate slot width; 15 when zero.
	GranularityMinutes int
	// OptimisticFactor and PessimisticFactor shape the utilization forecast
	// band; 1.10 and 0.85 when zero.
	OptimisticFactor  float64
	PessimisticFactor float64
}

// Engine is the scheduling optimization core. It is a pure, stateless
// computation: one run consumes one input snapshot and produces one output.
// Runs share no mutable state, so any number may execute in parallel.
type Engine struct {
	logger zerolog.Logger
	opts   Options
}

func NewEngine(logger zerolog.Logger, opts Options) *Engine {
	return &Engine{logger: logger, opts: opts}
}

// run is the per-invocation state holder; purely local, never shared.
type run struct {
	id    uuid.UUID
	state runState
}

func (e *Engine) transition(r *run, next runState) {
	r.state = next
	e.logger.Debug().Str("run_id", r.id.String()).Stringer("state", next).Msg("run state")
}

// OptimizeSchedule assigns the pending requests to slots, maximizing
// preference satisfaction under the provider's constraints, and forecasts
// the resulting utilization and no-show exposure. Historical data and
// pricing are immutable snapshots fetched by the caller before the run.
func (e *Engine) OptimizeSchedule(ctx context.Context, in OptimizeInput, hist HistoricalSnapshot, prices PriceList) (*SchedulingOptimization, error) {
	r := &run{id: uuid.New(), state: stateIdle}

	e.transition(r, stateValidating)
	in, err := validateInput(in)
	if err != nil {
		e.transition(r, stateFailed)
		e.logger.Warn().Str("run_id", r.id.String()).Err(err).Msg("optimization input rejected")
		return nil, err
	}

	e.transition(r, stateGenerating)
	gen, err := newSlotGenerator(in.Constraints, in.Preferences, e.opts.GranularityMinutes)
	if err != nil {
		e.transition(r, stateFailed)
		return nil, &ComputationError{Stage: "generating", Message: err.Error()}
	}
	slots := gen.generate(in.DateRange)

	e.transition(r, stateScoring)
	asgn := newAssigner(gen, in.Preferences)

	e.transition(r, stateAssigning)
	assigned, err := asgn.run(ctx, in.Requests, slots)
	if err != nil {
		e.transition(r, stateFailed)
		// Log the full input snapshot so the failure can be reproduced.
		e.logger.Error().Str("run_id", r.id.String()).Err(err).
			Interface("input", in).Msg("assignment failed")
		return nil, err
	}

	e.transition(r, stateForecasting)
	byPatient := make(map[string]AppointmentRequest, len(in.Requests))
	for _, req := range in.Requests {
		byPatient[req.PatientID] = req
	}
	f := newForecaster(e.opts.OptimisticFactor, e.opts.PessimisticFactor)

	res := &SchedulingOptimization{
		RunID:             r.id,
		ProviderID:        in.ProviderID,
		OptimizedSchedule: assigned.Scheduled,
		UtilizationRate:   f.utilization(assigned.Scheduled, gen.bookableMinutes(in.DateRange)),
		ExpectedNoShows:   f.expectedNoShows(assigned.Scheduled, byPatient),
		RevenueEstimate:   f.revenue(assigned.Scheduled, byPatient, prices),
		ConflictsResolved: assigned.ConflictsResolved,
	}
	for _, req := range assigned.Unscheduled {
		res.UnscheduledPatients = append(res.UnscheduledPatients, req.PatientID)
	}
	res.Recommendations = buildRecommendations(in, res, !hist.Found)
	res.Explanation = buildExplanation(in, res)

	e.transition(r, stateCompleted)
	e.logger.Info().Str("run_id", r.id.String()).
		Str("provider_id", in.ProviderID).
		Int("scheduled", len(res.OptimizedSchedule)).
		Int("unscheduled", len(res.UnscheduledPatients)).
		Float64("utilization", res.UtilizationRate).
		Msg("schedule optimized")
	return res, nil
}

// SuggestOptimalTimeSlots ranks the open slots for a single request and
// returns the best maxSuggestions of them, highest score first.
func (e *Engine) SuggestOptimalTimeSlots(ctx context.Context, req AppointmentRequest, providerID string,
	dr DateRange, constraints SchedulingConstraints, maxSuggestions int) ([]TimeSlot, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if providerID == "" {
		verr.add("provider_id", "provider_id is required")
	}
	validateDateRange(verr, dr)
	constraints = validateConstraints(verr, constraints)
	req = validateRequest(verr, req, 0)
	if !verr.ok() {
		return nil, verr
	}
	if maxSuggestions <= 0 {
		maxSuggestions = 5
	}

	prefs := SchedulingPreferences{ConsiderPatientPreferences: true}
	gen, err := newSlotGenerator(constraints, prefs, e.opts.GranularityMinutes)
	if err != nil {
		return nil, &ComputationError{Stage: "generating", Message: err.Error()}
	}
	asgn := newAssigner(gen, prefs)

	type scoredSlot struct {
		slot  *TimeSlot
		score float64
	}
	var ranked []scoredSlot
	for _, slot := range gen.generate(dr) {
		if !asgn.fits(req, slot) {
			continue
		}
		ranked = append(ranked, scoredSlot{slot: slot, score: asgn.scorer.score(req, slot, nil)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].slot.Start.Before(ranked[j].slot.Start)
	})

	if len(ranked) > maxSuggestions {
		ranked = ranked[:maxSuggestions]
	}
	out := make([]TimeSlot, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, TimeSlot{
			Start:      s.slot.Start,
			End:        s.slot.Start.Add(minutes(req.DurationMinutes)),
			Preference: s.score,
		})
	}
	return out, nil
}

// OptimizeProviderSchedule recommends the capacity a provider should run at
// for the date range, independent of any specific request batch.
func (e *Engine) OptimizeProviderSchedule(ctx context.Context, providerID string, dr DateRange,
	constraints SchedulingConstraints, targetUtilization float64, tolerance RiskTolerance,
	hist HistoricalSnapshot) (*ProviderCapacityProfile, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := &run{id: uuid.New(), state: stateIdle}

	e.transition(r, stateValidating)
	verr := &ValidationError{}
	if providerID == "" {
		verr.add("provider_id", "provider_id is required")
	}
	validateDateRange(verr, dr)
	constraints = validateConstraints(verr, constraints)
	if targetUtilization <= 0 || targetUtilization >= 1 {
		verr.add("target_utilization", "must be strictly between 0 and 1, got %g", targetUtilization)
	}
	validateTolerance(verr, tolerance)
	if !verr.ok() {
		e.transition(r, stateFailed)
		return nil, verr
	}

	e.transition(r, stateGenerating)
	gen, err := newSlotGenerator(constraints, SchedulingPreferences{}, e.opts.GranularityMinutes)
	if err != nil {
		e.transition(r, stateFailed)
		return nil, &ComputationError{Stage: "generating", Message: err.Error()}
	}

	e.transition(r, stateForecasting)
	planner := &capacityPlanner{gen: gen, forecaster: newForecaster(e.opts.OptimisticFactor, e.opts.PessimisticFactor)}
	profile := planner.plan(providerID, dr, targetUtilization, tolerance, hist)

	e.transition(r, stateCompleted)
	e.logger.Info().Str("run_id", r.id.String()).
		Str("provider_id", providerID).
		Int("recommended_capacity", profile.RecommendedCapacity).
		Bool("overbooking", profile.OverbookingStrategy.Enabled).
		Msg("capacity plan produced")
	return profile, nil
}
