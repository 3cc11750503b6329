package scheduler

import (
	"math/rand"
	"sort"
)

// Enumerator produces candidate (teacher, slot-group, room) combinations for
// a (course, section) pair after cheap pruning, per spec §4.4. It applies no
// hard-constraint checks itself — the Checker is the sole authority on
// admissibility.
//
// Grounded on original_source/scheduler/scheduleGenerator.py's
// get_available_teachers / get_available_slots / get_available_rooms.
type Enumerator struct {
	teachers  []*Teacher
	rooms     []Room
	timeSlots []TimeSlot
	tracker   *Tracker
	rng       *rand.Rand
}

// NewEnumerator builds an Enumerator over the full catalog for one shift.
// rng drives every shuffle point so runs are reproducible for a given seed
// (spec §5); it must never be nil.
func NewEnumerator(teachers []*Teacher, rooms []Room, timeSlots []TimeSlot, tracker *Tracker, rng *rand.Rand) *Enumerator {
	return &Enumerator{teachers: teachers, rooms: rooms, timeSlots: timeSlots, tracker: tracker, rng: rng}
}

// Candidate is one proposed Assignment prior to constraint checking.
type Candidate = Assignment

// Candidates returns the cartesian product of feasible (teacher, slot-group,
// room) combinations for one session of course taught to section, in shift.
func (e *Enumerator) Candidates(course Course, section Section, shift Shift) []Candidate {
	teachers := e.candidateTeachers(course, section)
	if len(teachers) == 0 {
		return nil
	}

	var out []Candidate
	for _, teacher := range teachers {
		slotGroups := e.candidateSlotGroups(course, section, teacher)
		if len(slotGroups) == 0 {
			continue
		}
		for _, slotGroup := range slotGroups {
			rooms := e.candidateRooms(course, slotGroup)
			for _, room := range rooms {
				out = append(out, Candidate{
					Course:    course,
					Teacher:   teacher,
					SlotGroup: slotGroup,
					Room:      room,
					Section:   section,
					Shift:     shift,
				})
			}
		}
	}
	return out
}

// candidateTeachers implements spec §4.4(1): department match, preferred
// teachers ahead of the rest (each partition shuffled independently), then
// teacher-continuity restriction, then a stable ascending sort by load.
func (e *Enumerator) candidateTeachers(course Course, section Section) []*Teacher {
	var sameDept []*Teacher
	for _, t := range e.teachers {
		if t.DepartmentID == course.DepartmentID {
			sameDept = append(sameDept, t)
		}
	}

	var preferred, rest []*Teacher
	for _, t := range sameDept {
		if _, ok := course.PreferredTeacherIDs[t.ID]; ok {
			preferred = append(preferred, t)
		} else {
			rest = append(rest, t)
		}
	}
	e.shuffleTeachers(preferred)
	e.shuffleTeachers(rest)

	found := append(append([]*Teacher{}, preferred...), rest...)

	if already := e.tracker.TeachersOfCourseInSection(course.ID, section.ID); len(already) > 0 {
		allowed := make(map[TeacherID]struct{}, len(already))
		for _, id := range already {
			allowed[id] = struct{}{}
		}
		var restricted []*Teacher
		for _, t := range found {
			if _, ok := allowed[t.ID]; ok {
				restricted = append(restricted, t)
			}
		}
		if len(restricted) > 0 {
			found = restricted
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].Load < found[j].Load })
	return found
}

func (e *Enumerator) shuffleTeachers(teachers []*Teacher) {
	e.rng.Shuffle(len(teachers), func(i, j int) { teachers[i], teachers[j] = teachers[j], teachers[i] })
}

// candidateSlotGroups implements spec §4.4(2): slots in the course's shift
// not already used by this section or teacher, grouped by day (days already
// used by this course-in-section dropped), days visited in randomized
// order, every contiguous window of length duration_per_session within a
// day becomes a candidate slot group.
func (e *Enumerator) candidateSlotGroups(course Course, section Section, teacher *Teacher) [][]TimeSlot {
	byDay := make(map[Weekday][]TimeSlot)
	for _, ts := range e.timeSlots {
		if e.tracker.IsSlotBusyForSection(section.ID, ts.ID) {
			continue
		}
		if e.tracker.IsSlotBusyForTeacher(teacher.ID, ts.ID) {
			continue
		}
		byDay[ts.Day] = append(byDay[ts.Day], ts)
	}

	usedDays := e.tracker.DaysUsedByCourseSection(course.ID, section.ID)
	for day := range usedDays {
		delete(byDay, day)
	}

	for day := range byDay {
		sort.Slice(byDay[day], func(i, j int) bool { return byDay[day][i].SlotNumber < byDay[day][j].SlotNumber })
	}

	days := make([]Weekday, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	e.rng.Shuffle(len(days), func(i, j int) { days[i], days[j] = days[j], days[i] })

	var found [][]TimeSlot
	for _, day := range days {
		slots := byDay[day]
		n := course.DurationPerSession
		for i := 0; i+n <= len(slots); i++ {
			window := slots[i : i+n]
			group := make([]TimeSlot, n)
			copy(group, window)
			found = append(found, group)
		}
	}
	return found
}

// candidateRooms implements spec §4.4(3): room kind match (lab courses also
// require same department), excluding rooms whose occupancy intersects the
// candidate slot group.
func (e *Enumerator) candidateRooms(course Course, slotGroup []TimeSlot) []Room {
	rooms := make([]Room, len(e.rooms))
	copy(rooms, e.rooms)
	e.rng.Shuffle(len(rooms), func(i, j int) { rooms[i], rooms[j] = rooms[j], rooms[i] })

	var found []Room
	for _, room := range rooms {
		if room.IsLab != course.IsLab {
			continue
		}
		if course.IsLab && room.DepartmentID != course.DepartmentID {
			continue
		}
		collides := false
		for _, slot := range slotGroup {
			if e.tracker.IsSlotBusyForRoom(room.ID, slot.ID) {
				collides = true
				break
			}
		}
		if collides {
			continue
		}
		found = append(found, room)
	}
	return found
}
