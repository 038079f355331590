package scheduling

import (
	"fmt"
	"time"
)

// defaultGranularityMinutes is the candidate slot width used when the caller
// does not configure one.
const defaultGranularityMinutes = 15

// slotGenerator enumerates candidate slots for a validated provider-day
// template. The same generator can be re-queried; every generate call returns
// a fresh, independent slice.
type slotGenerator struct {
	constraints SchedulingConstraints
	prefs       SchedulingPreferences
	granularity int

	dayStart int
	dayEnd   int
}

func newSlotGenerator(c SchedulingConstraints, p SchedulingPreferences, granularity int) (*slotGenerator, error) {
	if granularity <= 0 {
		granularity = defaultGranularityMinutes
	}
	dayStart, err := parseClock(c.WorkingHours.Start)
	if err != nil {
		return nil, fmt.Errorf("working hours start: %w", err)
	}
	dayEnd, err := parseClock(c.WorkingHours.End)
	if err != nil {
		return nil, fmt.Errorf("working hours end: %w", err)
	}
	return &slotGenerator{
		constraints: c,
		prefs:       p,
		granularity: granularity,
		dayStart:    dayStart,
		dayEnd:      dayEnd,
	}, nil
}

// generate enumerates candidate slots at the configured granularity across
// every day in the range, skipping candidates intersecting a break or blocked
// window. Base capacity is 1; when overbooking is allowed, slots not adjacent
// to a break carry floor(percentage/100) extra capacity.
func (g *slotGenerator) generate(dr DateRange) []*TimeSlot {
	extra := 0
	if g.prefs.OverbookingAllowed {
		extra = int(g.prefs.OverbookingPercentage) / 100
	}

	var slots []*TimeSlot
	day := truncateToDay(dr.StartDate)
	last := truncateToDay(dr.EndDate)
	for !day.After(last) {
		for m := g.dayStart; m+g.granularity <= g.dayEnd; m += g.granularity {
			end := m + g.granularity
			if g.excluded(m, end) {
				continue
			}
			capacity := 1
			if extra > 0 && !g.adjacentToBreak(m, end) {
				capacity += extra
			}
			slots = append(slots, &TimeSlot{
				Start:    day.Add(time.Duration(m) * time.Minute),
				End:      day.Add(time.Duration(end) * time.Minute),
				capacity: capacity,
			})
		}
		day = day.AddDate(0, 0, 1)
	}
	return slots
}

// excluded reports whether the minute interval intersects any break or
// blocked window.
func (g *slotGenerator) excluded(start, end int) bool {
	for _, w := range g.constraints.BreakTimes {
		if overlaps(start, end, w.startMin, w.endMin) {
			return true
		}
	}
	for _, w := range g.constraints.BlockedTimes {
		if overlaps(start, end, w.startMin, w.endMin) {
			return true
		}
	}
	return false
}

// adjacentToBreak reports whether the interval touches a break boundary.
// Overbooking is withheld from such slots so buffer violations cannot
// compound into the break.
func (g *slotGenerator) adjacentToBreak(start, end int) bool {
	for _, w := range g.constraints.BreakTimes {
		if end == w.startMin || start == w.endMin {
			return true
		}
	}
	return false
}

// bookableMinutesPerDay is the working-day length minus break and blocked
// time.
func (g *slotGenerator) bookableMinutesPerDay() int {
	total := g.dayEnd - g.dayStart
	for _, w := range g.constraints.BreakTimes {
		total -= clampOverlap(w.startMin, w.endMin, g.dayStart, g.dayEnd)
	}
	for _, w := range g.constraints.BlockedTimes {
		total -= clampOverlap(w.startMin, w.endMin, g.dayStart, g.dayEnd)
	}
	if total < 0 {
		total = 0
	}
	return total
}

// bookableMinutes is the total bookable time across the date range.
func (g *slotGenerator) bookableMinutes(dr DateRange) int {
	return g.bookableMinutesPerDay() * dr.Days()
}

func clampOverlap(aStart, aEnd, bStart, bEnd int) int {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end <= start {
		return 0
	}
	return end - start
}
