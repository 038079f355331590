package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// maxAlternativeSlots bounds the next-best slots recorded per assignment.
const maxAlternativeSlots = 3

// assignResult is the outcome of the greedy matching pass.
type assignResult struct {
	Scheduled         []OptimizedAppointment
	Unscheduled       []AppointmentRequest
	ConflictsResolved int
	Overbooked        int
}

// booking is an occupied interval on the provider's calendar.
type booking struct {
	start   time.Time
	end     time.Time
	slotIdx int
}

// assigner performs the greedy, priority-ordered matching of requests to
// slots. The loop is inherently sequential: every assignment changes the
// remaining capacity seen by later requests.
type assigner struct {
	scorer scorer
	prefs  SchedulingPreferences
	gen    *slotGenerator
}

func newAssigner(gen *slotGenerator, prefs SchedulingPreferences) *assigner {
	return &assigner{scorer: scorer{prefs: prefs}, prefs: prefs, gen: gen}
}

// run assigns each request to its highest-scoring eligible slot. Requests
// that cannot be placed are returned, never silently dropped. The context is
// checked between requests so large batches stay cancellable.
func (a *assigner) run(ctx context.Context, reqs []AppointmentRequest, slots []*TimeSlot) (*assignResult, error) {
	type candidate struct {
		req       AppointmentRequest
		bestScore float64
		bestIdx   int
	}

	cands := make([]candidate, len(reqs))
	for i, req := range reqs {
		if req.DurationMinutes <= 0 {
			return nil, &ComputationError{Stage: "assigning",
				Message: fmt.Sprintf("request %s has non-positive duration %d", req.PatientID, req.DurationMinutes)}
		}
		best, idx := a.theoreticalBest(req, slots)
		cands[i] = candidate{req: req, bestScore: best, bestIdx: idx}
	}

	// Priority desc, best achievable score desc, patient ID asc. The patient
	// ID tie-break keeps runs deterministic.
	sort.SliceStable(cands, func(i, j int) bool {
		pi, pj := priorityRank[cands[i].req.Priority], priorityRank[cands[j].req.Priority]
		if pi != pj {
			return pi > pj
		}
		if cands[i].bestScore != cands[j].bestScore {
			return cands[i].bestScore > cands[j].bestScore
		}
		return cands[i].req.PatientID < cands[j].req.PatientID
	})

	budget := int(float64(len(slots)) * a.prefs.OverbookingPercentage / 100)

	res := &assignResult{}
	used := make([]int, len(slots))
	var bookings []booking
	dayLoad := make(map[time.Time]int)

	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("assignment cancelled: %w", err)
		}

		idx, score, alts := a.pick(c.req, slots, used, bookings, res.Scheduled, dayLoad, false)
		overbooked := false
		if idx < 0 && a.prefs.OverbookingAllowed && res.Overbooked < budget {
			idx, score, alts = a.pick(c.req, slots, used, bookings, res.Scheduled, dayLoad, true)
			overbooked = idx >= 0
		}

		if idx < 0 {
			res.Unscheduled = append(res.Unscheduled, c.req)
			if c.bestIdx >= 0 {
				res.ConflictsResolved++
			}
			continue
		}

		slot := slots[idx]
		used[idx]++
		if used[idx] > slot.capacity {
			return nil, &ComputationError{Stage: "assigning",
				Message: fmt.Sprintf("slot %s capacity overrun: %d booked, %d allowed",
					slot.Start.Format(time.RFC3339), used[idx], slot.capacity)}
		}
		if overbooked {
			res.Overbooked++
		}

		end := slot.Start.Add(minutes(c.req.DurationMinutes))
		bookings = append(bookings, booking{start: slot.Start, end: end, slotIdx: idx})
		dayLoad[truncateToDay(slot.Start)]++

		res.Scheduled = append(res.Scheduled, OptimizedAppointment{
			PatientID:        c.req.PatientID,
			ScheduledTime:    slot.Start,
			DurationMinutes:  c.req.DurationMinutes,
			Confidence:       score / 10,
			AlternativeSlots: alts,
		})
		if c.bestIdx >= 0 && score < c.bestScore {
			res.ConflictsResolved++
		}
	}
	return res, nil
}

// theoreticalBest scores a request against every statically fitting slot,
// ignoring occupancy. It anchors both the sort order and the
// conflicts-resolved accounting.
func (a *assigner) theoreticalBest(req AppointmentRequest, slots []*TimeSlot) (float64, int) {
	best, bestIdx := 0.0, -1
	for i, slot := range slots {
		if !a.fits(req, slot) {
			continue
		}
		if s := a.scorer.score(req, slot, nil); bestIdx < 0 || s > best {
			best, bestIdx = s, i
		}
	}
	return best, bestIdx
}

// pick returns the index and score of the highest-scoring eligible slot plus
// up to three next-best alternatives, or -1 when nothing is eligible.
func (a *assigner) pick(req AppointmentRequest, slots []*TimeSlot, used []int, bookings []booking,
	scheduled []OptimizedAppointment, dayLoad map[time.Time]int, overbook bool) (int, float64, []TimeSlot) {

	type scored struct {
		idx   int
		score float64
	}
	var eligible []scored

	for i, slot := range slots {
		limit := 1
		if overbook {
			limit = slot.capacity
		}
		if used[i] >= limit {
			continue
		}
		if !a.fits(req, slot) {
			continue
		}
		end := slot.Start.Add(minutes(req.DurationMinutes))
		if !a.bufferOK(slot.Start, end, i, bookings, overbook) {
			continue
		}
		if !a.consecutiveOK(slot.Start, end, bookings) {
			continue
		}
		eligible = append(eligible, scored{idx: i, score: a.scorer.score(req, slot, scheduled)})
	}
	if len(eligible) == 0 {
		return -1, 0, nil
	}

	better := func(x, y scored) bool {
		if x.score != y.score {
			return x.score > y.score
		}
		if a.prefs.BalanceWorkload {
			lx := dayLoad[truncateToDay(slots[x.idx].Start)]
			ly := dayLoad[truncateToDay(slots[y.idx].Start)]
			if lx != ly {
				return lx < ly
			}
		}
		return slots[x.idx].Start.Before(slots[y.idx].Start)
	}
	sort.SliceStable(eligible, func(i, j int) bool { return better(eligible[i], eligible[j]) })

	chosen := eligible[0]
	var alts []TimeSlot
	for _, e := range eligible[1:] {
		if len(alts) == maxAlternativeSlots {
			break
		}
		alts = append(alts, TimeSlot{
			Start:      slots[e.idx].Start,
			End:        slots[e.idx].Start.Add(minutes(req.DurationMinutes)),
			Preference: e.score,
		})
	}
	return chosen.idx, chosen.score, alts
}

// fits reports whether the appointment, started at the slot, stays inside
// working hours and clear of break and blocked windows. A duration longer
// than any open window is therefore never schedulable, overbooked or not.
func (a *assigner) fits(req AppointmentRequest, slot *TimeSlot) bool {
	start := minuteOfDay(slot.Start)
	end := start + req.DurationMinutes
	if end > a.gen.dayEnd {
		return false
	}
	return !a.gen.excluded(start, end)
}

// bufferOK enforces the minimum gap after any booking before the next may
// start. Overlap is tolerated only for an overbook placement into the same
// slot; overlapping distinct slots is never allowed.
func (a *assigner) bufferOK(start, end time.Time, slotIdx int, bookings []booking, overbook bool) bool {
	buffer := minutes(a.gen.constraints.BufferMinutes)
	for _, b := range bookings {
		if !sameDay(b.start, start) {
			continue
		}
		if start.Before(b.end) && b.start.Before(end) {
			if overbook && b.slotIdx == slotIdx {
				continue
			}
			return false
		}
		if !start.Before(b.end) && start.Sub(b.end) < buffer {
			return false
		}
		if !b.start.Before(end) && b.start.Sub(end) < buffer {
			return false
		}
	}
	return true
}

// consecutiveOK rejects a placement that would extend a back-to-back chain
// past the provider's limit. Two bookings are part of one chain when the gap
// between them is smaller than one slot width.
func (a *assigner) consecutiveOK(start, end time.Time, bookings []booking) bool {
	maxRun := a.gen.constraints.MaxConsecutiveAppointments
	gap := minutes(a.gen.granularity)

	var day []booking
	for _, b := range bookings {
		if sameDay(b.start, start) {
			day = append(day, b)
		}
	}
	day = append(day, booking{start: start, end: end})
	sort.Slice(day, func(i, j int) bool { return day[i].start.Before(day[j].start) })

	run := 1
	longest := 1
	for i := 1; i < len(day); i++ {
		if day[i].start.Sub(day[i-1].end) < gap {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest <= maxRun
}
