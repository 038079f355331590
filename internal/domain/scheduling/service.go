package scheduling

import (
	"context"

	"github.com/rs/zerolog"
)

// Service glues the pure engine to its collaborators: it fetches the
// historical and pricing snapshots once per call, then hands the engine an
// immutable view. Collaborator failures degrade the run instead of failing
// it; the engine flags degraded data in its recommendations.
type Service struct {
	engine  *Engine
	history HistoricalDataProvider
	pricing PricingTable
	logger  zerolog.Logger
}

func NewService(engine *Engine, history HistoricalDataProvider, pricing PricingTable, logger zerolog.Logger) *Service {
	return &Service{engine: engine, history: history, pricing: pricing, logger: logger}
}

func (s *Service) OptimizeSchedule(ctx context.Context, in OptimizeInput) (*SchedulingOptimization, error) {
	hist := s.fetchHistory(ctx, in.ProviderID, in.DateRange)
	prices := s.fetchPrices(ctx)
	return s.engine.OptimizeSchedule(ctx, in, hist, prices)
}

func (s *Service) SuggestOptimalTimeSlots(ctx context.Context, req AppointmentRequest, providerID string,
	dr DateRange, constraints SchedulingConstraints, maxSuggestions int) ([]TimeSlot, error) {
	return s.engine.SuggestOptimalTimeSlots(ctx, req, providerID, dr, constraints, maxSuggestions)
}

func (s *Service) PlanProviderCapacity(ctx context.Context, providerID string, dr DateRange,
	constraints SchedulingConstraints, targetUtilization float64, tolerance RiskTolerance) (*ProviderCapacityProfile, error) {
	hist := s.fetchHistory(ctx, providerID, dr)
	return s.engine.OptimizeProviderSchedule(ctx, providerID, dr, constraints, targetUtilization, tolerance, hist)
}

func (s *Service) fetchHistory(ctx context.Context, providerID string, dr DateRange) HistoricalSnapshot {
	hist, err := s.history.ProviderHistory(ctx, providerID, dr)
	if err != nil {
		s.logger.Warn().Err(err).Str("provider_id", providerID).
			Msg("historical data unavailable; falling back to default risk tables")
		return HistoricalSnapshot{}
	}
	return hist
}

func (s *Service) fetchPrices(ctx context.Context) PriceList {
	prices, err := s.pricing.AverageRevenue(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("pricing table unavailable; revenue estimate will be zero")
		return PriceList{}
	}
	return prices
}
