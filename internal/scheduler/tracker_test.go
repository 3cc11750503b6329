package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerAddMarksOccupancyAndLoad(t *testing.T) {
	tr := NewTracker()
	teachers := fixtureTeachers()
	room := fixtureRooms()[0]
	slots := fixtureTimeSlots()[:2]
	section := fixtureSection()
	course := fixtureCourse()
	shift := fixtureShift()

	a := fixtureAssignment(teachers[0], room, slots, section, course, shift)
	tr.Add(a)

	assert.True(t, tr.IsSlotBusyForSection(section.ID, slots[0].ID))
	assert.True(t, tr.IsSlotBusyForTeacher(teachers[0].ID, slots[1].ID))
	assert.True(t, tr.IsSlotBusyForRoom(room.ID, slots[0].ID))
	assert.Equal(t, 1, teachers[0].Load)
	assert.Equal(t, 2, tr.RoomOccupiedSlotCount(room.ID))

	days := tr.DaysUsedByCourseSection(course.ID, section.ID)
	assert.Contains(t, days, Monday)

	assignedTeachers := tr.TeachersOfCourseInSection(course.ID, section.ID)
	require.Len(t, assignedTeachers, 1)
	assert.Equal(t, teachers[0].ID, assignedTeachers[0])
}

func TestTrackerRemoveIsExactInverseOfAdd(t *testing.T) {
	tr := NewTracker()
	teachers := fixtureTeachers()
	room := fixtureRooms()[0]
	slots := fixtureTimeSlots()[:2]
	section := fixtureSection()
	course := fixtureCourse()
	shift := fixtureShift()

	a := fixtureAssignment(teachers[0], room, slots, section, course, shift)

	empty := NewTracker()
	tr.Add(a)
	tr.Remove(a)

	assert.True(t, tr.Equal(empty))
	assert.Equal(t, 0, teachers[0].Load)
}

func TestTrackerRemoveOnUntrackedAssignmentPanics(t *testing.T) {
	tr := NewTracker()
	teachers := fixtureTeachers()
	room := fixtureRooms()[0]
	slots := fixtureTimeSlots()[:2]
	section := fixtureSection()
	course := fixtureCourse()
	shift := fixtureShift()

	a := fixtureAssignment(teachers[0], room, slots, section, course, shift)

	assert.Panics(t, func() { tr.Remove(a) })
}

func TestTrackerRebuildFromCommittedListMatchesLiveTracker(t *testing.T) {
	live := NewTracker()
	teachers := fixtureTeachers()
	rooms := fixtureRooms()
	slots := fixtureTimeSlots()
	section := fixtureSection()
	course := fixtureCourse()
	shift := fixtureShift()

	committed := []Assignment{
		fixtureAssignment(teachers[0], rooms[0], slots[0:2], section, course, shift),
		fixtureAssignment(teachers[1], rooms[0], slots[4:6], section, course, shift),
	}
	for _, a := range committed {
		live.Add(a)
	}

	rebuilt := NewTracker()
	for _, a := range committed {
		rebuilt.Add(a)
	}

	assert.True(t, live.Equal(rebuilt))
}
