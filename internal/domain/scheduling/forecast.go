package scheduling

// defaultRiskByPriority is the static no-show fallback used when a request
// carries no explicit risk signal. Urgent patients rarely no-show; low
// priority visits do so the most.
var defaultRiskByPriority = map[Priority]float64{
	PriorityUrgent: 0.05,
	PriorityHigh:   0.10,
	PriorityMedium: 0.15,
	PriorityLow:    0.20,
}

// Forecast band factors. The ±15%/+10% band is a modelling simplification
// reflecting no-show variance, not hard science; both factors are
// configurable through Options.
const (
	defaultOptimisticFactor  = 1.10
	defaultPessimisticFactor = 0.85
)

// forecaster derives utilization, no-show exposure, and revenue for a
// produced schedule.
type forecaster struct {
	optimisticFactor  float64
	pessimisticFactor float64
}

func newForecaster(optimistic, pessimistic float64) forecaster {
	if optimistic <= 0 {
		optimistic = defaultOptimisticFactor
	}
	if pessimistic <= 0 {
		pessimistic = defaultPessimisticFactor
	}
	return forecaster{optimisticFactor: optimistic, pessimisticFactor: pessimistic}
}

// expectedNoShows sums per-appointment no-show probabilities, falling back
// to the static priority table when a request has no explicit signal.
func (f forecaster) expectedNoShows(scheduled []OptimizedAppointment, byPatient map[string]AppointmentRequest) float64 {
	total := 0.0
	for _, appt := range scheduled {
		req := byPatient[appt.PatientID]
		if req.NoShowRisk != nil {
			total += *req.NoShowRisk
		} else {
			total += defaultRiskByPriority[req.Priority]
		}
	}
	return total
}

// utilization is assigned time over bookable time, capped at 1 since
// overbooking can push the raw ratio past it.
func (f forecaster) utilization(scheduled []OptimizedAppointment, bookableMinutes int) float64 {
	if bookableMinutes <= 0 {
		return 0
	}
	assigned := 0
	for _, appt := range scheduled {
		assigned += appt.DurationMinutes
	}
	rate := float64(assigned) / float64(bookableMinutes)
	if rate > 1 {
		rate = 1
	}
	return rate
}

// forecast spreads an expected utilization into the configured band.
func (f forecaster) forecast(expected float64) UtilizationForecast {
	optimistic := expected * f.optimisticFactor
	if optimistic > 1 {
		optimistic = 1
	}
	return UtilizationForecast{
		Pessimistic: expected * f.pessimisticFactor,
		Expected:    expected,
		Optimistic:  optimistic,
	}
}

// revenue multiplies each assigned appointment by the injected average
// revenue for its type. Unknown types contribute nothing.
func (f forecaster) revenue(scheduled []OptimizedAppointment, byPatient map[string]AppointmentRequest, prices PriceList) float64 {
	total := 0.0
	for _, appt := range scheduled {
		total += prices[byPatient[appt.PatientID].Type]
	}
	return total
}
