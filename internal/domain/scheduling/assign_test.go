package scheduling

import (
	"context"
	"testing"
	"time"
)

// runOptimize is a thin wrapper for assignment-focused cases.
func runOptimize(t *testing.T, in OptimizeInput) *SchedulingOptimization {
	t.Helper()
	res, err := testEngine().OptimizeSchedule(context.Background(), in, foundHistory(), PriceList{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func scheduledTime(t *testing.T, res *SchedulingOptimization, patientID string) time.Time {
	t.Helper()
	for _, appt := range res.OptimizedSchedule {
		if appt.PatientID == patientID {
			return appt.ScheduledTime
		}
	}
	t.Fatalf("patient %s not scheduled; unscheduled: %v", patientID, res.UnscheduledPatients)
	return time.Time{}
}

func TestAssign_BufferEnforced(t *testing.T) {
	in := OptimizeInput{
		ProviderID: "prov-1",
		DateRange:  testRange(),
		Requests: []AppointmentRequest{
			{PatientID: "a", DurationMinutes: 15, Priority: PriorityHigh,
				PreferredTimes: []ClockWindow{{Start: "09:00", End: "09:15", Preference: 9}}},
			{PatientID: "b", DurationMinutes: 15, Priority: PriorityMedium},
		},
		Constraints: SchedulingConstraints{
			WorkingHours:               WorkingHours{Start: "09:00", End: "10:00"},
			MaxConsecutiveAppointments: 4,
			BufferMinutes:              15,
		},
		Preferences: SchedulingPreferences{ConsiderPatientPreferences: true},
	}

	res := runOptimize(t, in)
	if got := scheduledTime(t, res, "a"); !got.Equal(at(testDay(), "09:00")) {
		t.Errorf("a scheduled at %v, want 09:00", got)
	}
	// 09:15 violates the 15-minute buffer after a's booking; 09:30 is the
	// first start that honors it.
	if got := scheduledTime(t, res, "b"); !got.Equal(at(testDay(), "09:30")) {
		t.Errorf("b scheduled at %v, want 09:30", got)
	}
}

func TestAssign_MaxConsecutiveForcesGap(t *testing.T) {
	in := OptimizeInput{
		ProviderID: "prov-1",
		DateRange:  testRange(),
		Requests: []AppointmentRequest{
			{PatientID: "a", DurationMinutes: 15, Priority: PriorityMedium},
			{PatientID: "b", DurationMinutes: 15, Priority: PriorityMedium},
			{PatientID: "c", DurationMinutes: 15, Priority: PriorityMedium},
		},
		Constraints: SchedulingConstraints{
			WorkingHours:               WorkingHours{Start: "09:00", End: "10:00"},
			MaxConsecutiveAppointments: 2,
		},
		Preferences: SchedulingPreferences{},
	}

	res := runOptimize(t, in)
	if len(res.OptimizedSchedule) != 3 {
		t.Fatalf("expected all 3 scheduled, got %d", len(res.OptimizedSchedule))
	}
	if got := scheduledTime(t, res, "c"); !got.Equal(at(testDay(), "09:45")) {
		t.Errorf("c scheduled at %v; a third back-to-back booking should be pushed past an empty slot to 09:45", got)
	}
}

func TestAssign_OverbookingSharesSlot(t *testing.T) {
	in := OptimizeInput{
		ProviderID: "prov-1",
		DateRange:  testRange(),
		Requests: []AppointmentRequest{
			{PatientID: "a", DurationMinutes: 30, Priority: PriorityMedium},
			{PatientID: "b", DurationMinutes: 30, Priority: PriorityMedium},
		},
		Constraints: SchedulingConstraints{
			WorkingHours:               WorkingHours{Start: "09:00", End: "09:30"},
			MaxConsecutiveAppointments: 4,
		},
		Preferences: SchedulingPreferences{OverbookingAllowed: true, OverbookingPercentage: 100},
	}

	res := runOptimize(t, in)
	if len(res.OptimizedSchedule) != 2 {
		t.Fatalf("expected both requests scheduled via overbooking, got %d (unscheduled: %v)",
			len(res.OptimizedSchedule), res.UnscheduledPatients)
	}
	for _, appt := range res.OptimizedSchedule {
		if !appt.ScheduledTime.Equal(at(testDay(), "09:00")) {
			t.Errorf("patient %s at %v, want the shared 09:00 slot", appt.PatientID, appt.ScheduledTime)
		}
	}
}

func TestAssign_OverbookingDisabledRejectsOverlap(t *testing.T) {
	in := OptimizeInput{
		ProviderID: "prov-1",
		DateRange:  testRange(),
		Requests: []AppointmentRequest{
			{PatientID: "a", DurationMinutes: 30, Priority: PriorityMedium},
			{PatientID: "b", DurationMinutes: 30, Priority: PriorityMedium},
		},
		Constraints: SchedulingConstraints{
			WorkingHours:               WorkingHours{Start: "09:00", End: "09:30"},
			MaxConsecutiveAppointments: 4,
		},
		Preferences: SchedulingPreferences{},
	}

	res := runOptimize(t, in)
	if len(res.OptimizedSchedule) != 1 {
		t.Fatalf("expected exactly 1 scheduled without overbooking, got %d", len(res.OptimizedSchedule))
	}
	if len(res.UnscheduledPatients) != 1 {
		t.Errorf("expected 1 unscheduled patient, got %v", res.UnscheduledPatients)
	}
}

func TestAssign_DurationLongerThanAnyWindow(t *testing.T) {
	in := OptimizeInput{
		ProviderID: "prov-1",
		DateRange:  testRange(),
		Requests: []AppointmentRequest{
			{PatientID: "marathon", DurationMinutes: 600, Priority: PriorityUrgent},
		},
		Constraints: testConstraints(),
		// Overbooking cannot help a request that fits no window at all.
		Preferences: SchedulingPreferences{OverbookingAllowed: true, OverbookingPercentage: 100},
	}

	res := runOptimize(t, in)
	if len(res.OptimizedSchedule) != 0 {
		t.Fatalf("expected no schedule for an unfittable duration, got %d", len(res.OptimizedSchedule))
	}
	if len(res.UnscheduledPatients) != 1 || res.UnscheduledPatients[0] != "marathon" {
		t.Errorf("expected marathon reported unscheduled, got %v", res.UnscheduledPatients)
	}
	if res.ConflictsResolved != 0 {
		t.Errorf("an unfittable request is not a conflict; got %d", res.ConflictsResolved)
	}
}

func TestAssign_AlternativeSlotsRecorded(t *testing.T) {
	in := threeRequestInput()
	res := runOptimize(t, in)

	for _, appt := range res.OptimizedSchedule {
		if len(appt.AlternativeSlots) > maxAlternativeSlots {
			t.Errorf("patient %s has %d alternatives, cap is %d",
				appt.PatientID, len(appt.AlternativeSlots), maxAlternativeSlots)
		}
		for _, alt := range appt.AlternativeSlots {
			if alt.Start.Equal(appt.ScheduledTime) {
				t.Errorf("patient %s alternative duplicates the assigned slot", appt.PatientID)
			}
		}
	}
}

func TestAssign_BalanceWorkloadSpreadsDays(t *testing.T) {
	twoDays := DateRange{StartDate: testDay(), EndDate: testDay().AddDate(0, 0, 1)}
	in := OptimizeInput{
		ProviderID: "prov-1",
		DateRange:  twoDays,
		Requests: []AppointmentRequest{
			{PatientID: "a", DurationMinutes: 30, Priority: PriorityMedium},
			{PatientID: "b", DurationMinutes: 30, Priority: PriorityMedium},
		},
		Constraints: testConstraints(),
		Preferences: SchedulingPreferences{BalanceWorkload: true},
	}

	res := runOptimize(t, in)
	if len(res.OptimizedSchedule) != 2 {
		t.Fatalf("expected both scheduled, got %d", len(res.OptimizedSchedule))
	}
	d0 := scheduledTime(t, res, "a")
	d1 := scheduledTime(t, res, "b")
	if sameDay(d0, d1) {
		t.Errorf("workload balancing should spread equal-scoring bookings across days, got %v and %v", d0, d1)
	}
}
