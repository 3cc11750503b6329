package scheduler

import (
	"math"
	"sort"
)

// Soft constraint keys recognized from Constraint records (spec §6).
const (
	KeyRespectTeacherPreferredSlots         = "respect_teacher_preferred_slots"
	KeyRespectTeacherPreferredCourses       = "respect_teacher_preferred_courses"
	KeyPrioritizeTeachersWithFewerAssigns   = "prioritize_teachers_with_fewer_assignments"
	KeyPrioritizeRoomsWithFewerAssignments  = "prioritize_rooms_with_fewer_assignments"
	KeyMinimizeTeacherSlotGap               = "minimize_teacher_slot_gap"
	KeyMinimizeSectionSlotGap               = "minimize_section_slot_gap"
	KeyDayBalancingSlotsAllocation           = "day_balancing_slots_allocation"
	KeyPrioritizeEarlySlots                  = "prioritize_early_slots"
)

type softRuleFunc func(s *Scorer, candidate Assignment, committed []Assignment) float64

var softRuleTable = map[string]softRuleFunc{
	KeyRespectTeacherPreferredSlots:        (*Scorer).scoreRespectTeacherPreferredSlots,
	KeyRespectTeacherPreferredCourses:      (*Scorer).scoreRespectTeacherPreferredCourses,
	KeyPrioritizeTeachersWithFewerAssigns:  (*Scorer).scorePrioritizeTeachersWithFewerAssignments,
	KeyPrioritizeRoomsWithFewerAssignments: (*Scorer).scorePrioritizeRoomsWithFewerAssignments,
	KeyMinimizeTeacherSlotGap:              (*Scorer).scoreMinimizeTeacherSlotGap,
	KeyMinimizeSectionSlotGap:              (*Scorer).scoreMinimizeSectionSlotGap,
	KeyDayBalancingSlotsAllocation:         (*Scorer).scoreDayBalancingSlotsAllocation,
	KeyPrioritizeEarlySlots:                (*Scorer).scorePrioritizeEarlySlots,
}

// Scorer is the soft-score engine of spec §4.3: a registry of named scoring
// rules, each contributing a sub-score weighted by its configured
// Constraint.ScoreWeight. Grounded on
// original_source/scheduler/score.py (the canonical weighted form) and
// utils.py (the rules score.py omits: respect-teacher-preferred-slots,
// respect-teacher-preferred-courses, prioritize-teachers/rooms,
// prioritize-early-slots).
type Scorer struct {
	enabled        map[string]float64 // key -> weight
	timeSlots      []TimeSlot
	tracker        *Tracker
	unweightedMode bool
}

// ScorerOption configures a Scorer at construction.
type ScorerOption func(*Scorer)

// WithUnweightedTotal selects the alternate, historically-present total form
// (plain sum of sub-scores, ignoring Constraint.ScoreWeight) documented as
// an Open Question in spec §9. The canonical form is the weighted sum; this
// option exists so the documented ambiguity is preserved rather than
// discarded.
func WithUnweightedTotal() ScorerOption {
	return func(s *Scorer) { s.unweightedMode = true }
}

// NewScorer builds a Scorer from the Soft constraint records whose Key
// matches a rule this package implements. timeSlots is the full slot
// universe for the shift being scheduled; tracker is consulted read-only.
func NewScorer(constraints []Constraint, timeSlots []TimeSlot, tracker *Tracker, opts ...ScorerOption) *Scorer {
	enabled := make(map[string]float64)
	for _, c := range constraints {
		if c.Kind != ConstraintKindSoft {
			continue
		}
		if _, known := softRuleTable[c.Key]; known {
			enabled[c.Key] = c.ScoreWeight
		}
	}
	s := &Scorer{enabled: enabled, timeSlots: timeSlots, tracker: tracker}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the candidate's total soft score: the weighted sum (or, in
// unweighted mode, the plain sum) of every enabled rule's sub-score.
func (s *Scorer) Score(candidate Assignment, committed []Assignment) float64 {
	var total float64
	for key, weight := range s.enabled {
		fn := softRuleTable[key]
		sub := fn(s, candidate, committed)
		if s.unweightedMode {
			total += sub
		} else {
			total += sub * weight
		}
	}
	return total
}

// scoreRespectTeacherPreferredSlots: (1 + |slot_group ∩ preferred|) /
// |slot_group| when the teacher has preferred slots, else 0.
//
// `matched` is seeded at 1 rather than 0, exactly as
// original_source/scheduler/utils.py's _score_respect_teacher_preferred_slots
// computes it. This looks like an off-by-one but is preserved per spec §9
// ("do not guess intent").
func (s *Scorer) scoreRespectTeacherPreferredSlots(candidate Assignment, _ []Assignment) float64 {
	if len(candidate.Teacher.PreferredSlotIDs) == 0 {
		return 0.0
	}
	if len(candidate.SlotGroup) == 0 {
		return 0.0
	}
	matched := 1
	for _, slot := range candidate.SlotGroup {
		if _, ok := candidate.Teacher.PreferredSlotIDs[slot.ID]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(candidate.SlotGroup))
}

// scoreRespectTeacherPreferredCourses: 1.0 iff the course is among the
// teacher's preferred courses.
func (s *Scorer) scoreRespectTeacherPreferredCourses(candidate Assignment, _ []Assignment) float64 {
	if _, ok := candidate.Teacher.PreferredCourseIDs[candidate.Course.ID]; ok {
		return 1.0
	}
	return 0.0
}

// scorePrioritizeTeachersWithFewerAssignments: 1 - min(load/max, 1); 0 when
// max is 0.
func (s *Scorer) scorePrioritizeTeachersWithFewerAssignments(candidate Assignment, _ []Assignment) float64 {
	t := candidate.Teacher
	if t.MaxClassesPerWeek == 0 {
		return 0.0
	}
	ratio := float64(t.Load) / float64(t.MaxClassesPerWeek)
	return 1.0 - math.Min(ratio, 1.0)
}

// scorePrioritizeRoomsWithFewerAssignments: 1 - min(occupied/total, 1); 1.0
// when the room is empty.
func (s *Scorer) scorePrioritizeRoomsWithFewerAssignments(candidate Assignment, _ []Assignment) float64 {
	occupied := s.tracker.RoomOccupiedSlotCount(candidate.Room.ID)
	if occupied == 0 {
		return 1.0
	}
	if len(s.timeSlots) == 0 {
		return 1.0
	}
	ratio := float64(occupied) / float64(len(s.timeSlots))
	return 1.0 - math.Min(ratio, 1.0)
}

// scoreMinimizeTeacherSlotGap groups, by day, the slot numbers the teacher
// would occupy including candidate, sums the inter-slot gaps, and
// normalizes by the summed per-day span of the global slot universe.
func (s *Scorer) scoreMinimizeTeacherSlotGap(candidate Assignment, committed []Assignment) float64 {
	grouped := make(map[Weekday][]int)
	for _, a := range committed {
		if a.Teacher.ID != candidate.Teacher.ID {
			continue
		}
		for _, ts := range a.SlotGroup {
			grouped[ts.Day] = append(grouped[ts.Day], ts.SlotNumber)
		}
	}
	for _, ts := range candidate.SlotGroup {
		grouped[ts.Day] = append(grouped[ts.Day], ts.SlotNumber)
	}
	return gapScore(grouped, s.allSlotsByDay())
}

// scoreMinimizeSectionSlotGap is the section-scoped analogue of
// scoreMinimizeTeacherSlotGap.
func (s *Scorer) scoreMinimizeSectionSlotGap(candidate Assignment, committed []Assignment) float64 {
	grouped := make(map[Weekday][]int)
	for _, a := range committed {
		if a.Section.ID != candidate.Section.ID {
			continue
		}
		for _, ts := range a.SlotGroup {
			grouped[ts.Day] = append(grouped[ts.Day], ts.SlotNumber)
		}
	}
	for _, ts := range candidate.SlotGroup {
		grouped[ts.Day] = append(grouped[ts.Day], ts.SlotNumber)
	}
	return gapScore(grouped, s.allSlotsByDay())
}

func (s *Scorer) allSlotsByDay() map[Weekday][]int {
	byDay := make(map[Weekday][]int)
	for _, ts := range s.timeSlots {
		byDay[ts.Day] = append(byDay[ts.Day], ts.SlotNumber)
	}
	return byDay
}

// gapScore implements the shared gap-minimization math used by both the
// teacher and section variants, grounded on
// original_source/scheduler/score.py's
// _score_minimize_teacher_slot_gap / _score_minimize_section_slot_gap.
func gapScore(grouped map[Weekday][]int, allSlotsByDay map[Weekday][]int) float64 {
	var totalGap, totalMaxGap float64
	hasPair := false

	for day, nums := range grouped {
		sort.Ints(nums)
		if len(nums) < 2 {
			continue
		}
		hasPair = true
		for i := 0; i < len(nums)-1; i++ {
			gap := nums[i+1] - nums[i] - 1
			if gap > 0 {
				totalGap += float64(gap)
			}
		}
		all := allSlotsByDay[day]
		if len(all) == 0 {
			continue
		}
		minSlot, maxSlot := all[0], all[0]
		for _, n := range all {
			if n < minSlot {
				minSlot = n
			}
			if n > maxSlot {
				maxSlot = n
			}
		}
		span := float64(maxSlot - minSlot - 1)
		if span < 1 {
			span = 1
		}
		totalMaxGap += span
	}

	if !hasPair {
		return 1.0
	}
	if totalMaxGap == 0 {
		return 1.0
	}
	ratio := totalGap / totalMaxGap
	return math.Max(0.0, 1.0-ratio)
}

// scoreDayBalancingSlotsAllocation computes the ideal day distribution
// (proportional to still-available slots per day for this course-in-section)
// and the actual day distribution (committed + candidate) and scores their
// squared-error distance.
func (s *Scorer) scoreDayBalancingSlotsAllocation(candidate Assignment, committed []Assignment) float64 {
	used := s.tracker.DaysUsedByCourseSection(candidate.Course.ID, candidate.Section.ID)

	availableByDay := make(map[Weekday]int)
	totalAvailable := 0
	for _, ts := range s.timeSlots {
		if _, usedDay := used[ts.Day]; usedDay {
			continue
		}
		availableByDay[ts.Day]++
		totalAvailable++
	}

	actualByDay := make(map[Weekday]int)
	for _, a := range committed {
		if a.Section.ID != candidate.Section.ID {
			continue
		}
		for _, ts := range a.SlotGroup {
			actualByDay[ts.Day]++
		}
	}
	for _, ts := range candidate.SlotGroup {
		actualByDay[ts.Day]++
	}

	totalAssigned := 0
	for _, n := range actualByDay {
		totalAssigned += n
	}
	if totalAssigned == 0 || totalAvailable == 0 {
		return 1.0
	}

	var sumSquaredError float64
	for day, avail := range availableByDay {
		ideal := float64(avail) / float64(totalAvailable)
		actual := float64(actualByDay[day]) / float64(totalAssigned)
		diff := actual - ideal
		sumSquaredError += diff * diff
	}

	return math.Max(0.0, 1.0-math.Min(sumSquaredError, 1.0))
}

// scorePrioritizeEarlySlots adds max(0, 1 - 0.1*index_within_day) per slot
// in the candidate's slot group. Intentionally NOT clamped to [0, 1]: a
// multi-slot session can score above 1.0. Preserved exactly as
// original_source/scheduler/utils.py computes it, per spec §9.
func (s *Scorer) scorePrioritizeEarlySlots(candidate Assignment, _ []Assignment) float64 {
	indexWithinDay := make(map[Weekday]map[TimeSlotID]int)
	byDay := make(map[Weekday][]TimeSlot)
	for _, ts := range s.timeSlots {
		byDay[ts.Day] = append(byDay[ts.Day], ts)
	}
	for day, slots := range byDay {
		sort.Slice(slots, func(i, j int) bool { return slots[i].SlotNumber < slots[j].SlotNumber })
		idx := make(map[TimeSlotID]int, len(slots))
		for i, ts := range slots {
			idx[ts.ID] = i
		}
		indexWithinDay[day] = idx
	}

	var score float64
	for _, slot := range candidate.SlotGroup {
		idx, ok := indexWithinDay[slot.Day][slot.ID]
		if !ok {
			continue
		}
		score += math.Max(0, 1.0-0.1*float64(idx))
	}
	return score
}
