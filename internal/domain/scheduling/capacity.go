package scheduling

import (
	"fmt"
	"math"
	"sort"
)

// Capacity-planner calibration. Thresholds are the historical no-show rates
// above which each tolerance level starts recommending overbooking.
const (
	defaultAvgDurationMinutes = 30

	overbookThresholdMedium = 0.10
	overbookThresholdHigh   = 0.05
	overbookPercentageCap   = 25

	// highRiskFactor flags hourly buckets whose no-show rate exceeds this
	// multiple of the provider's average.
	highRiskFactor = 1.5
)

// capacityPlanner produces a provider-level capacity recommendation from
// aggregate history, independent of any request batch.
type capacityPlanner struct {
	gen        *slotGenerator
	forecaster forecaster
}

// plan computes the recommended daily-range capacity, overbooking strategy,
// and risk mitigation for one provider. Raising targetUtilization never
// lowers the recommended capacity.
func (p *capacityPlanner) plan(providerID string, dr DateRange, targetUtilization float64,
	tolerance RiskTolerance, hist HistoricalSnapshot) *ProviderCapacityProfile {

	avgDuration := hist.AvgDurationMinutes
	if !hist.Found || avgDuration <= 0 {
		avgDuration = defaultAvgDurationMinutes
	}

	bookable := p.gen.bookableMinutes(dr)
	capacity := int(math.Ceil(float64(bookable) * targetUtilization / avgDuration))

	highRisk := p.highRiskBuckets(hist)

	profile := &ProviderCapacityProfile{
		ProviderID:          providerID,
		RecommendedCapacity: capacity,
		OverbookingStrategy: p.overbookingStrategy(tolerance, hist, highRisk),
		RiskMitigation: RiskMitigation{
			HighRiskSlots:      highRisk,
			RecommendedActions: recommendedActions(highRisk),
		},
		UtilizationForecast: p.forecaster.forecast(targetUtilization),
	}
	return profile
}

// overbookingStrategy recommends overbooking when the tolerance permits it
// and the historical no-show rate clears the tolerance threshold. The
// percentage scales with how far the rate exceeds the threshold, capped at
// 25%.
func (p *capacityPlanner) overbookingStrategy(tolerance RiskTolerance, hist HistoricalSnapshot, highRisk []string) OverbookingStrategy {
	threshold := 0.0
	switch tolerance {
	case RiskToleranceMedium:
		threshold = overbookThresholdMedium
	case RiskToleranceHigh:
		threshold = overbookThresholdHigh
	default:
		return OverbookingStrategy{}
	}
	if hist.NoShowRate <= threshold {
		return OverbookingStrategy{}
	}

	pct := math.Round((hist.NoShowRate-threshold)*2000) / 10
	if pct > overbookPercentageCap {
		pct = overbookPercentageCap
	}

	// Overbook only the buckets without elevated no-show rates; doubling up
	// where patients already fail to show compounds the problem.
	flagged := make(map[string]bool, len(highRisk))
	for _, b := range highRisk {
		flagged[b] = true
	}
	var buckets []string
	for h := p.gen.dayStart / 60; h < (p.gen.dayEnd+59)/60; h++ {
		label := bucketLabel(h)
		if !flagged[label] {
			buckets = append(buckets, label)
		}
	}

	return OverbookingStrategy{Enabled: true, Percentage: pct, TimeSlots: buckets}
}

// highRiskBuckets returns the hourly buckets whose historical no-show rate
// exceeds 1.5x the provider's average, in chronological order.
func (p *capacityPlanner) highRiskBuckets(hist HistoricalSnapshot) []string {
	if !hist.Found || hist.NoShowRate <= 0 {
		return nil
	}
	hours := make([]int, 0, len(hist.HourlyNoShowRates))
	for h := range hist.HourlyNoShowRates {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	var buckets []string
	for _, h := range hours {
		if hist.HourlyNoShowRates[h] > highRiskFactor*hist.NoShowRate {
			buckets = append(buckets, bucketLabel(h))
		}
	}
	return buckets
}

// recommendedActions maps flagged buckets to rule-based countermeasures,
// deduplicated and ordered morning to evening.
func recommendedActions(highRisk []string) []string {
	if len(highRisk) == 0 {
		return []string{"maintain the current reminder cadence; no time-of-day risk pattern detected"}
	}

	var morning, afternoon, evening bool
	for _, b := range highRisk {
		var h int
		fmt.Sscanf(b, "%d:", &h)
		switch {
		case h < 12:
			morning = true
		case h < 17:
			afternoon = true
		default:
			evening = true
		}
	}

	var actions []string
	if morning {
		actions = append(actions, "send reminder texts the evening before for morning appointments")
	}
	if afternoon {
		actions = append(actions, "add reminder calls for afternoon slots")
	}
	if evening {
		actions = append(actions, "confirm evening appointments by phone on the same day")
	}
	actions = append(actions, "offer waitlist backfill for the flagged time slots")
	return actions
}

func bucketLabel(hour int) string {
	return fmt.Sprintf("%02d:00-%02d:00", hour, hour+1)
}
