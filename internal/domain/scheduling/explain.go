package scheduling

import (
	"fmt"
	"strings"
)

// Explainer thresholds for advisory recommendations.
const (
	lowUtilizationMark   = 0.5
	noShowExposureFactor = 0.10
)

// buildExplanation renders one deterministic paragraph summarizing the run.
func buildExplanation(in OptimizeInput, res *SchedulingOptimization) string {
	return fmt.Sprintf(
		"Scheduled %d of %d appointment request(s) for provider %s across %d day(s). "+
			"Projected utilization is %.0f%% with %.2f expected no-show(s). "+
			"%d scheduling conflict(s) were resolved during assignment.",
		len(res.OptimizedSchedule), len(in.Requests), in.ProviderID, in.DateRange.Days(),
		res.UtilizationRate*100, res.ExpectedNoShows, res.ConflictsResolved)
}

// buildRecommendations derives the advisory list in a fixed order so
// identical runs produce identical output.
func buildRecommendations(in OptimizeInput, res *SchedulingOptimization, degradedData bool) []string {
	var recs []string

	if n := len(res.UnscheduledPatients); n > 0 {
		rec := fmt.Sprintf("%d request(s) could not be scheduled (patients: %s); ",
			n, strings.Join(res.UnscheduledPatients, ", "))
		if in.Preferences.OverbookingAllowed {
			rec += "consider extending working hours or moving the requests to another day"
		} else {
			rec += "consider enabling overbooking or extending working hours"
		}
		recs = append(recs, rec)
	}

	if len(res.OptimizedSchedule) > 0 && res.UtilizationRate < lowUtilizationMark {
		recs = append(recs, fmt.Sprintf(
			"utilization is %.0f%%; consider shortening the working day or accepting more requests",
			res.UtilizationRate*100))
	}

	if booked := len(res.OptimizedSchedule); booked > 0 &&
		res.ExpectedNoShows > noShowExposureFactor*float64(booked) {
		recs = append(recs, fmt.Sprintf(
			"expected no-shows (%.2f) exceed 10%% of bookings; consider overbooking or extra reminder outreach",
			res.ExpectedNoShows))
	}

	if degradedData {
		recs = append(recs, fmt.Sprintf(
			"no historical data found for provider %s; no-show forecast uses static default rates",
			in.ProviderID))
	}

	return recs
}
