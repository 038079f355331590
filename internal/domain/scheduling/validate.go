package scheduling

import "fmt"

// validateInput checks the full run input and returns a normalized deep copy:
// clock strings are parsed once into cached minute offsets, and missing
// priorities/types fall back to their defaults. It is a pure check with no
// side effects on the caller's input.
func validateInput(in OptimizeInput) (OptimizeInput, error) {
	verr := &ValidationError{}

	if in.ProviderID == "" {
		verr.add("provider_id", "provider_id is required")
	}
	validateDateRange(verr, in.DateRange)
	in.Constraints = validateConstraints(verr, in.Constraints)
	validatePreferences(verr, in.Preferences)

	reqs := make([]AppointmentRequest, len(in.Requests))
	copy(reqs, in.Requests)
	for i := range reqs {
		reqs[i] = validateRequest(verr, reqs[i], i)
	}
	in.Requests = reqs

	if !verr.ok() {
		return OptimizeInput{}, verr
	}
	return in, nil
}

func validateDateRange(verr *ValidationError, dr DateRange) {
	if dr.StartDate.IsZero() || dr.EndDate.IsZero() {
		verr.add("date_range", "start_date and end_date are required")
		return
	}
	if truncateToDay(dr.EndDate).Before(truncateToDay(dr.StartDate)) {
		verr.add("date_range", "end_date is before start_date")
	}
}

// validateConstraints checks the provider-day template and returns a copy
// with all clock windows parsed.
func validateConstraints(verr *ValidationError, c SchedulingConstraints) SchedulingConstraints {
	dayStart, errStart := parseClock(c.WorkingHours.Start)
	if errStart != nil {
		verr.add("working_hours.start", "%v", errStart)
	}
	dayEnd, errEnd := parseClock(c.WorkingHours.End)
	if errEnd != nil {
		verr.add("working_hours.end", "%v", errEnd)
	}
	if errStart == nil && errEnd == nil && dayStart >= dayEnd {
		verr.add("working_hours", "start %s must be before end %s", c.WorkingHours.Start, c.WorkingHours.End)
	}

	c.BreakTimes = validateWindows(verr, "break_times", c.BreakTimes, dayStart, dayEnd, errStart == nil && errEnd == nil)
	c.BlockedTimes = validateWindows(verr, "blocked_times", c.BlockedTimes, dayStart, dayEnd, errStart == nil && errEnd == nil)

	// Breaks and blocked windows must be mutually disjoint across both lists.
	all := make([]Window, 0, len(c.BreakTimes)+len(c.BlockedTimes))
	all = append(all, c.BreakTimes...)
	all = append(all, c.BlockedTimes...)
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if overlaps(all[i].startMin, all[i].endMin, all[j].startMin, all[j].endMin) {
				verr.add("break_times/blocked_times", "windows %s-%s and %s-%s overlap",
					all[i].Start, all[i].End, all[j].Start, all[j].End)
			}
		}
	}

	if c.MaxConsecutiveAppointments < 1 {
		verr.add("max_consecutive_appointments", "must be at least 1, got %d", c.MaxConsecutiveAppointments)
	}
	if c.BufferMinutes < 0 {
		verr.add("buffer_minutes", "must not be negative, got %d", c.BufferMinutes)
	}
	return c
}

func validateWindows(verr *ValidationError, field string, ws []Window, dayStart, dayEnd int, checkBounds bool) []Window {
	out := make([]Window, len(ws))
	copy(out, ws)
	for i := range out {
		start, err := parseClock(out[i].Start)
		if err != nil {
			verr.add(fmt.Sprintf("%s[%d].start", field, i), "%v", err)
			continue
		}
		end, err := parseClock(out[i].End)
		if err != nil {
			verr.add(fmt.Sprintf("%s[%d].end", field, i), "%v", err)
			continue
		}
		if start >= end {
			verr.add(fmt.Sprintf("%s[%d]", field, i), "start %s must be before end %s", out[i].Start, out[i].End)
			continue
		}
		if checkBounds && (start < dayStart || end > dayEnd) {
			verr.add(fmt.Sprintf("%s[%d]", field, i), "window %s-%s is outside working hours", out[i].Start, out[i].End)
		}
		out[i].startMin = start
		out[i].endMin = end
	}
	return out
}

func validatePreferences(verr *ValidationError, p SchedulingPreferences) {
	if p.OverbookingAllowed && (p.OverbookingPercentage < 0 || p.OverbookingPercentage > 100) {
		verr.add("overbooking_percentage", "must be between 0 and 100, got %g", p.OverbookingPercentage)
	}
}

func validateRequest(verr *ValidationError, req AppointmentRequest, idx int) AppointmentRequest {
	field := func(name string) string { return fmt.Sprintf("appointment_requests[%d].%s", idx, name) }

	if req.PatientID == "" {
		verr.add(field("patient_id"), "patient_id is required")
	}
	if req.DurationMinutes <= 0 {
		verr.add(field("duration_minutes"), "must be positive, got %d", req.DurationMinutes)
	}
	if req.Priority == "" {
		req.Priority = PriorityMedium
	} else if _, ok := priorityRank[req.Priority]; !ok {
		verr.add(field("priority"), "unknown priority %q", req.Priority)
	}
	if req.Type == "" {
		req.Type = TypeRoutine
	}
	if req.NoShowRisk != nil && (*req.NoShowRisk < 0 || *req.NoShowRisk > 1) {
		verr.add(field("no_show_risk"), "must be between 0 and 1, got %g", *req.NoShowRisk)
	}

	windows := make([]ClockWindow, len(req.PreferredTimes))
	copy(windows, req.PreferredTimes)
	for i := range windows {
		start, err := parseClock(windows[i].Start)
		if err != nil {
			verr.add(field(fmt.Sprintf("preferred_times[%d].start", i)), "%v", err)
			continue
		}
		end, err := parseClock(windows[i].End)
		if err != nil {
			verr.add(field(fmt.Sprintf("preferred_times[%d].end", i)), "%v", err)
			continue
		}
		if start >= end {
			verr.add(field(fmt.Sprintf("preferred_times[%d]", i)), "start %s must be before end %s", windows[i].Start, windows[i].End)
			continue
		}
		if windows[i].Preference < 0 || windows[i].Preference > 10 {
			verr.add(field(fmt.Sprintf("preferred_times[%d].preference", i)), "must be between 0 and 10, got %g", windows[i].Preference)
		}
		windows[i].startMin = start
		windows[i].endMin = end
	}
	req.PreferredTimes = windows
	return req
}

// validateTolerance checks a capacity-planner risk tolerance value.
func validateTolerance(verr *ValidationError, t RiskTolerance) {
	switch t {
	case RiskToleranceLow, RiskToleranceMedium, RiskToleranceHigh:
	default:
		verr.add("risk_tolerance", "unknown risk tolerance %q", t)
	}
}
