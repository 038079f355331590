package scheduling

import "time"

// Scoring weights. These are calibration points, not extracted constants;
// the invariant that matters is the final score staying within [0, 10].
const (
	weightPreference = 0.5
	weightPriority   = 0.3
	weightGap        = 0.2

	// neutralPreference replaces the patient-preference term when the run is
	// configured to ignore declared preferences.
	neutralPreference = 5.0

	// highRiskThreshold is the no-show probability above which the scorer
	// steers a patient away from prime slots.
	highRiskThreshold = 0.5

	// Prime time is the high-demand middle of the day; early-day slots end
	// where prime time begins.
	primeStartHour = 10
	primeEndHour   = 16
)

// priorityWeights feed the priority term of the score.
var priorityWeights = map[Priority]float64{
	PriorityUrgent: 10,
	PriorityHigh:   7,
	PriorityMedium: 4,
	PriorityLow:    1,
}

// scorer computes the preference score for (request, slot) pairs. It is a
// pure function of its inputs; evaluations across independent pairs are safe
// to fan out.
type scorer struct {
	prefs SchedulingPreferences
}

// score returns a value in [0, 10] ranking how well slot fits req given the
// assignments already made for this provider-day.
func (s scorer) score(req AppointmentRequest, slot *TimeSlot, assigned []OptimizedAppointment) float64 {
	score := weightPreference*s.preferenceOverlap(req, slot) +
		weightPriority*priorityWeights[req.Priority]

	if s.prefs.MinimizeGaps {
		score += weightGap * gapBonus(slot, assigned)
	}

	// Anti-no-show placement: discount prime slots and boost early-day slots
	// for patients likely to miss, keeping risky bookings off peak time.
	if s.prefs.PrioritizeHighRisk && req.NoShowRisk != nil && *req.NoShowRisk > highRiskThreshold {
		hour := slot.Start.Hour()
		switch {
		case hour >= primeStartHour && hour < primeEndHour:
			score -= *req.NoShowRisk * 2
		case hour < primeStartHour:
			score += *req.NoShowRisk * 2
		}
	}

	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// preferenceOverlap returns the declared preference value for the candidate
// window overlapping the slot, taking the highest value when declared
// windows overlap each other. No overlapping declaration scores 0.
func (s scorer) preferenceOverlap(req AppointmentRequest, slot *TimeSlot) float64 {
	if !s.prefs.ConsiderPatientPreferences {
		return neutralPreference
	}
	slotStart := minuteOfDay(slot.Start)
	slotEnd := slotStart + slot.DurationMinutes()

	best := 0.0
	for _, w := range req.PreferredTimes {
		if overlaps(slotStart, slotEnd, w.startMin, w.endMin) && w.Preference > best {
			best = w.Preference
		}
	}
	return best
}

// gapBonus rewards slots immediately adjacent to an existing assignment on
// the same day, reducing idle gaps in the provider's calendar.
func gapBonus(slot *TimeSlot, assigned []OptimizedAppointment) float64 {
	for _, a := range assigned {
		if !sameDay(a.ScheduledTime, slot.Start) {
			continue
		}
		aEnd := a.ScheduledTime.Add(minutes(a.DurationMinutes))
		if aEnd.Equal(slot.Start) || a.ScheduledTime.Equal(slot.End) {
			return 10
		}
	}
	return 0
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
