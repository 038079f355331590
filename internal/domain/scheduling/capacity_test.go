package scheduling

import (
	"context"
	"strings"
	"testing"
)

func planCapacity(t *testing.T, target float64, tolerance RiskTolerance, hist HistoricalSnapshot) *ProviderCapacityProfile {
	t.Helper()
	profile, err := testEngine().OptimizeProviderSchedule(context.Background(),
		"prov-1", testRange(), testConstraints(), target, tolerance, hist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return profile
}

func TestPlanCapacity_RecommendedCapacity(t *testing.T) {
	hist := HistoricalSnapshot{AvgDurationMinutes: 30, NoShowRate: 0.05, Found: true}

	// 480 bookable minutes per day at a 30-minute average visit.
	cases := []struct {
		target float64
		want   int
	}{
		{0.5, 8},
		{0.85, 14},
		{0.95, 16},
	}
	for _, tc := range cases {
		p := planCapacity(t, tc.target, RiskToleranceLow, hist)
		if p.RecommendedCapacity != tc.want {
			t.Errorf("target %.2f: capacity = %d, want %d", tc.target, p.RecommendedCapacity, tc.want)
		}
	}
}

func TestPlanCapacity_CapacityMonotonicInTarget(t *testing.T) {
	hist := HistoricalSnapshot{AvgDurationMinutes: 25, NoShowRate: 0.05, Found: true}
	prev := 0
	for _, target := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		p := planCapacity(t, target, RiskToleranceLow, hist)
		if p.RecommendedCapacity < prev {
			t.Fatalf("capacity dropped from %d to %d as target rose to %.1f", prev, p.RecommendedCapacity, target)
		}
		prev = p.RecommendedCapacity
	}
}

func TestPlanCapacity_NoHistoryFallsBackToDefaultDuration(t *testing.T) {
	p := planCapacity(t, 0.5, RiskToleranceLow, HistoricalSnapshot{})
	// 480 * 0.5 / 30 with the static average.
	if p.RecommendedCapacity != 8 {
		t.Errorf("capacity = %d, want 8 with the default average duration", p.RecommendedCapacity)
	}
}

func TestPlanCapacity_OverbookingByTolerance(t *testing.T) {
	hist := HistoricalSnapshot{AvgDurationMinutes: 30, NoShowRate: 0.12, Found: true}

	cases := []struct {
		tolerance RiskTolerance
		enabled   bool
		pct       float64
	}{
		{RiskToleranceLow, false, 0},
		{RiskToleranceMedium, true, 4},
		{RiskToleranceHigh, true, 14},
	}
	for _, tc := range cases {
		p := planCapacity(t, 0.85, tc.tolerance, hist)
		ob := p.OverbookingStrategy
		if ob.Enabled != tc.enabled {
			t.Errorf("tolerance %s: enabled = %v, want %v", tc.tolerance, ob.Enabled, tc.enabled)
			continue
		}
		if !almostEqual(ob.Percentage, tc.pct) {
			t.Errorf("tolerance %s: percentage = %v, want %v", tc.tolerance, ob.Percentage, tc.pct)
		}
	}
}

func TestPlanCapacity_OverbookingBelowThresholdDisabled(t *testing.T) {
	hist := HistoricalSnapshot{AvgDurationMinutes: 30, NoShowRate: 0.08, Found: true}
	p := planCapacity(t, 0.85, RiskToleranceMedium, hist)
	if p.OverbookingStrategy.Enabled {
		t.Error("no-show rate below the medium threshold should not enable overbooking")
	}
}

func TestPlanCapacity_OverbookingPercentageCapped(t *testing.T) {
	hist := HistoricalSnapshot{AvgDurationMinutes: 30, NoShowRate: 0.40, Found: true}
	p := planCapacity(t, 0.85, RiskToleranceHigh, hist)
	if p.OverbookingStrategy.Percentage != overbookPercentageCap {
		t.Errorf("percentage = %v, want cap %d", p.OverbookingStrategy.Percentage, overbookPercentageCap)
	}
}

func TestPlanCapacity_HighRiskBuckets(t *testing.T) {
	hist := HistoricalSnapshot{
		AvgDurationMinutes: 30,
		NoShowRate:         0.12,
		HourlyNoShowRates:  map[int]float64{9: 0.20, 14: 0.12},
		Found:              true,
	}
	p := planCapacity(t, 0.85, RiskToleranceMedium, hist)

	slots := p.RiskMitigation.HighRiskSlots
	if len(slots) != 1 || slots[0] != "09:00-10:00" {
		t.Fatalf("high risk slots = %v, want [09:00-10:00]", slots)
	}

	// Flagged buckets are excluded from the overbooking targets.
	for _, b := range p.OverbookingStrategy.TimeSlots {
		if b == "09:00-10:00" {
			t.Error("flagged bucket offered for overbooking")
		}
	}

	var morning bool
	for _, a := range p.RiskMitigation.RecommendedActions {
		if strings.Contains(a, "morning") {
			morning = true
		}
	}
	if !morning {
		t.Errorf("expected a morning countermeasure in %v", p.RiskMitigation.RecommendedActions)
	}
}

func TestPlanCapacity_NoRiskPatternKeepsReminderCadence(t *testing.T) {
	hist := HistoricalSnapshot{AvgDurationMinutes: 30, NoShowRate: 0.10, Found: true}
	p := planCapacity(t, 0.85, RiskToleranceLow, hist)

	actions := p.RiskMitigation.RecommendedActions
	if len(actions) != 1 || !strings.Contains(actions[0], "reminder cadence") {
		t.Errorf("actions = %v, want the single maintain-cadence line", actions)
	}
}

func TestPlanCapacity_ForecastBand(t *testing.T) {
	p := planCapacity(t, 0.8, RiskToleranceLow, HistoricalSnapshot{})
	band := p.UtilizationForecast
	if !almostEqual(band.Expected, 0.8) || !almostEqual(band.Optimistic, 0.88) || !almostEqual(band.Pessimistic, 0.68) {
		t.Errorf("band = %+v, want 0.68/0.8/0.88", band)
	}
}

func TestPlanCapacity_InvalidTarget(t *testing.T) {
	for _, target := range []float64{0, 1, -0.2, 1.5} {
		_, err := testEngine().OptimizeProviderSchedule(context.Background(),
			"prov-1", testRange(), testConstraints(), target, RiskToleranceLow, HistoricalSnapshot{})
		if err == nil {
			t.Errorf("target %v should be rejected", target)
		}
	}
}
