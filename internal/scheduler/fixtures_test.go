package scheduler

import "time"

// Small, hand-built catalog used across this package's tests: one
// department, one Morning shift with four slots on each of two days, one lab and
// one lecture room, two teachers, and a two-session-per-week course.

func fixtureShift() Shift {
	return Shift{ID: 1, Name: Morning}
}

func fixtureTimeSlots() []TimeSlot {
	dayOffset := map[Weekday]int{Monday: 100, Tuesday: 200, Wednesday: 300}
	day := func(d Weekday, n int, startHour int) TimeSlot {
		start := time.Date(2026, 1, 1, startHour, 0, 0, 0, time.UTC)
		return TimeSlot{
			ID:         TimeSlotID(dayOffset[d] + n),
			Day:        d,
			SlotNumber: n,
			StartTime:  start,
			EndTime:    start.Add(time.Hour),
			ShiftID:    1,
		}
	}
	return []TimeSlot{
		day(Monday, 1, 8),
		day(Monday, 2, 9),
		day(Monday, 3, 10),
		day(Monday, 4, 11),
		day(Tuesday, 1, 8),
		day(Tuesday, 2, 9),
		day(Tuesday, 3, 10),
		day(Tuesday, 4, 11),
	}
}

func fixtureRooms() []Room {
	return []Room{
		{ID: 1, Name: "Lecture Hall A", DepartmentID: 1, IsLab: false},
		{ID: 2, Name: "Lab A", DepartmentID: 1, IsLab: true},
	}
}

func fixtureTeachers() []*Teacher {
	return []*Teacher{
		{ID: 1, Initial: "AA", DepartmentID: 1, MaxClassesPerWeek: 10,
			PreferredCourseIDs: map[CourseID]struct{}{}, PreferredSlotIDs: map[TimeSlotID]struct{}{}},
		{ID: 2, Initial: "BB", DepartmentID: 1, MaxClassesPerWeek: 10,
			PreferredCourseIDs: map[CourseID]struct{}{}, PreferredSlotIDs: map[TimeSlotID]struct{}{}},
	}
}

func fixtureCourse() Course {
	return Course{
		ID:                  1,
		Code:                "CS101",
		Name:                "Intro to CS",
		DepartmentID:        1,
		Semester:            1,
		SessionsPerWeek:     2,
		DurationPerSession:  2,
		IsLab:               false,
		ShiftIDs:            map[ShiftID]struct{}{1: {}},
		PreferredTeacherIDs: map[TeacherID]struct{}{},
	}
}

func fixtureSection() Section {
	return Section{ID: 1, Name: "A", DepartmentID: 1, ShiftID: 1, Semester: 1}
}

func fixtureAssignment(teacher *Teacher, room Room, slots []TimeSlot, section Section, course Course, shift Shift) Assignment {
	return Assignment{Course: course, Teacher: teacher, SlotGroup: slots, Room: room, Section: section, Shift: shift}
}
