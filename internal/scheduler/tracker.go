package scheduler

import "fmt"

// Tracker is the incremental occupancy index described in spec §4.1: it
// answers "is resource R busy at slot S" and "has course C already used day
// D in section X" in O(1), and is the only place Teacher.Load is mutated.
//
// Tracker holds non-owning references (IDs) into the Driver's committed
// assignment list; removing an assignment from that list must always be
// paired with a matching Remove call here, in the same order the original
// Add/Remove pairing was grounded on by
// original_source/scheduler/tracker.py.
type Tracker struct {
	slotsBySection          map[SectionID]map[TimeSlotID]struct{}
	slotsByTeacher          map[TeacherID]map[TimeSlotID]struct{}
	slotsByRoom             map[RoomID]map[TimeSlotID]struct{}
	teacherOfCourseInSection map[CourseID]map[TeacherID]map[SectionID]struct{}
	daysByCourseSection     map[CourseID]map[SectionID]map[Weekday]struct{}
}

// NewTracker returns an empty occupancy index.
func NewTracker() *Tracker {
	return &Tracker{
		slotsBySection:           make(map[SectionID]map[TimeSlotID]struct{}),
		slotsByTeacher:           make(map[TeacherID]map[TimeSlotID]struct{}),
		slotsByRoom:              make(map[RoomID]map[TimeSlotID]struct{}),
		teacherOfCourseInSection: make(map[CourseID]map[TeacherID]map[SectionID]struct{}),
		daysByCourseSection:      make(map[CourseID]map[SectionID]map[Weekday]struct{}),
	}
}

// TrackerInconsistencyError marks a programmer error: Remove was asked to
// retract an occupancy entry that was never Add-ed. Per spec §7 this aborts
// the run rather than silently ignoring the request.
type TrackerInconsistencyError struct {
	Detail string
}

func (e *TrackerInconsistencyError) Error() string {
	return fmt.Sprintf("tracker inconsistency: %s", e.Detail)
}

// Add registers a committed assignment: every slot it occupies, the
// (course, section, day) triple, the (course, teacher, section) binding,
// and one unit of the teacher's weekly load.
func (t *Tracker) Add(a Assignment) {
	section := a.Section.ID
	teacher := a.Teacher.ID
	room := a.Room.ID
	course := a.Course.ID
	day := a.Day()

	if t.slotsBySection[section] == nil {
		t.slotsBySection[section] = make(map[TimeSlotID]struct{})
	}
	if t.slotsByTeacher[teacher] == nil {
		t.slotsByTeacher[teacher] = make(map[TimeSlotID]struct{})
	}
	if t.slotsByRoom[room] == nil {
		t.slotsByRoom[room] = make(map[TimeSlotID]struct{})
	}
	for _, slot := range a.SlotGroup {
		t.slotsBySection[section][slot.ID] = struct{}{}
		t.slotsByTeacher[teacher][slot.ID] = struct{}{}
		t.slotsByRoom[room][slot.ID] = struct{}{}
	}

	if t.teacherOfCourseInSection[course] == nil {
		t.teacherOfCourseInSection[course] = make(map[TeacherID]map[SectionID]struct{})
	}
	if t.teacherOfCourseInSection[course][teacher] == nil {
		t.teacherOfCourseInSection[course][teacher] = make(map[SectionID]struct{})
	}
	t.teacherOfCourseInSection[course][teacher][section] = struct{}{}

	if t.daysByCourseSection[course] == nil {
		t.daysByCourseSection[course] = make(map[SectionID]map[Weekday]struct{})
	}
	if t.daysByCourseSection[course][section] == nil {
		t.daysByCourseSection[course][section] = make(map[Weekday]struct{})
	}
	t.daysByCourseSection[course][section][day] = struct{}{}

	a.Teacher.Load++
}

// teacher is *Teacher so this increment/decrement is visible to every
// Assignment and candidate referencing the same teacher across the run.

// Remove is the exact inverse of Add. Every element it retracts must have
// been present; an absent entry panics via TrackerInconsistencyError rather
// than silently leaving the index (and a caller relying on it) corrupt.
func (t *Tracker) Remove(a Assignment) {
	section := a.Section.ID
	teacher := a.Teacher.ID
	room := a.Room.ID
	course := a.Course.ID
	day := a.Day()

	for _, slot := range a.SlotGroup {
		t.mustDelete(t.slotsBySection[section], slot.ID, "slot not tracked for section")
		t.mustDelete(t.slotsByTeacher[teacher], slot.ID, "slot not tracked for teacher")
		t.mustDelete(t.slotsByRoom[room], slot.ID, "slot not tracked for room")
	}

	secs := t.teacherOfCourseInSection[course][teacher]
	if secs == nil {
		panic(&TrackerInconsistencyError{Detail: "course/teacher binding not tracked"})
	}
	t.mustDeleteSection(secs, section, "course/teacher/section binding not tracked")

	days := t.daysByCourseSection[course][section]
	if days == nil {
		panic(&TrackerInconsistencyError{Detail: "course/section day set not tracked"})
	}
	t.mustDeleteDay(days, day, "day not tracked for course/section")

	a.Teacher.Load--
}

func (t *Tracker) mustDelete(set map[TimeSlotID]struct{}, id TimeSlotID, detail string) {
	if set == nil {
		panic(&TrackerInconsistencyError{Detail: detail})
	}
	if _, ok := set[id]; !ok {
		panic(&TrackerInconsistencyError{Detail: detail})
	}
	delete(set, id)
}

func (t *Tracker) mustDeleteSection(set map[SectionID]struct{}, id SectionID, detail string) {
	if _, ok := set[id]; !ok {
		panic(&TrackerInconsistencyError{Detail: detail})
	}
	delete(set, id)
}

func (t *Tracker) mustDeleteDay(set map[Weekday]struct{}, day Weekday, detail string) {
	if _, ok := set[day]; !ok {
		panic(&TrackerInconsistencyError{Detail: detail})
	}
	delete(set, day)
}

// IsSlotBusyForSection reports whether slot is already occupied by section.
func (t *Tracker) IsSlotBusyForSection(section SectionID, slot TimeSlotID) bool {
	_, ok := t.slotsBySection[section][slot]
	return ok
}

// IsSlotBusyForTeacher reports whether slot is already occupied by teacher.
func (t *Tracker) IsSlotBusyForTeacher(teacher TeacherID, slot TimeSlotID) bool {
	_, ok := t.slotsByTeacher[teacher][slot]
	return ok
}

// IsSlotBusyForRoom reports whether slot is already occupied in room.
func (t *Tracker) IsSlotBusyForRoom(room RoomID, slot TimeSlotID) bool {
	_, ok := t.slotsByRoom[room][slot]
	return ok
}

// RoomOccupiedSlotCount returns how many slots room currently occupies,
// used by the "prioritize-rooms-with-fewer-assignments" soft rule.
func (t *Tracker) RoomOccupiedSlotCount(room RoomID) int {
	return len(t.slotsByRoom[room])
}

// TeachersOfCourseInSection returns the set of teachers already bound to
// course within section, used to enforce teacher continuity at enumeration
// time.
func (t *Tracker) TeachersOfCourseInSection(course CourseID, section SectionID) []TeacherID {
	var result []TeacherID
	for teacher, sections := range t.teacherOfCourseInSection[course] {
		if _, ok := sections[section]; ok {
			result = append(result, teacher)
		}
	}
	return result
}

// DaysUsedByCourseSection returns the set of days already used by
// (course, section), used by the enumerator's day-dedup rule and by the
// day-balancing soft rule.
func (t *Tracker) DaysUsedByCourseSection(course CourseID, section SectionID) map[Weekday]struct{} {
	return t.daysByCourseSection[course][section]
}

// Equal reports whether t and other hold exactly the same occupancy state.
// Used by tests to verify that rebuilding a Tracker from the committed
// assignment list reproduces the live Tracker exactly (spec §8).
func (t *Tracker) Equal(other *Tracker) bool {
	return equalNestedSlotSets(t.slotsBySection, other.slotsBySection) &&
		equalNestedSlotSets(t.slotsByTeacher, other.slotsByTeacher) &&
		equalNestedSlotSets(t.slotsByRoom, other.slotsByRoom) &&
		equalTeacherOfCourse(t.teacherOfCourseInSection, other.teacherOfCourseInSection) &&
		equalDaysByCourseSection(t.daysByCourseSection, other.daysByCourseSection)
}

func equalNestedSlotSets[K comparable](a, b map[K]map[TimeSlotID]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k, setA := range a {
		setB, ok := b[k]
		if !ok || len(setA) != len(setB) {
			return false
		}
		for id := range setA {
			if _, ok := setB[id]; !ok {
				return false
			}
		}
	}
	return true
}

func equalTeacherOfCourse(a, b map[CourseID]map[TeacherID]map[SectionID]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for course, teachers := range a {
		otherTeachers, ok := b[course]
		if !ok || len(teachers) != len(otherTeachers) {
			return false
		}
		for teacher, sections := range teachers {
			otherSections, ok := otherTeachers[teacher]
			if !ok || len(sections) != len(otherSections) {
				return false
			}
			for section := range sections {
				if _, ok := otherSections[section]; !ok {
					return false
				}
			}
		}
	}
	return true
}

func equalDaysByCourseSection(a, b map[CourseID]map[SectionID]map[Weekday]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for course, sections := range a {
		otherSections, ok := b[course]
		if !ok || len(sections) != len(otherSections) {
			return false
		}
		for section, days := range sections {
			otherDays, ok := otherSections[section]
			if !ok || len(days) != len(otherDays) {
				return false
			}
			for day := range days {
				if _, ok := otherDays[day]; !ok {
					return false
				}
			}
		}
	}
	return true
}
