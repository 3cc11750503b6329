package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/acme-edu/scheduler-core/pkg/errors"
)

// GenerateInput bundles the single-function boundary of spec §6: the
// catalog snapshot for one shift, plus the run-level knobs spec §5 and §9
// leave to the caller.
type GenerateInput struct {
	Constraints []Constraint
	Courses     []Course
	Teachers    []*Teacher
	Rooms       []Room
	TimeSlots   []TimeSlot
	Shift       Shift
	Sections    []Section

	// Rand drives every shuffle point in the Enumerator and the Driver's
	// course-priority tie-break. If nil, a *rand.Rand is seeded from
	// RandSeed (or, if RandSeed is zero, from the fixed seed 1 — Generate
	// itself never reads the wall clock, so a caller wanting a fresh seed
	// per run supplies one).
	Rand     *rand.Rand
	RandSeed int64

	// MaxBacktrackIterations caps the repair pass of §4.5(3). Zero or a
	// negative value means the built-in default of 12 (matching
	// original_source's repairGaps-style iteration cap).
	MaxBacktrackIterations int
}

// Unassigned maps a section to the courses that could not get their full
// complement of sessions_per_week for that section.
type Unassigned map[Section][]Course

// GenerateResult is the Driver's return value: the committed assignments and
// the sessions that could not be placed.
type GenerateResult struct {
	Assignments []Assignment
	Unassigned  Unassigned
}

// Driver is the Scheduler Driver of spec §4.5: it prioritizes courses,
// iterates sections, and for each required session selects the
// highest-scoring admissible candidate via the Checker and Scorer.
//
// Grounded on original_source/scheduler/scheduleGenerator.py's
// ScheduleGenerator and the teacher's ScheduleGeneratorService.Generate
// orchestration shape (validate -> build state -> run -> summarize).
type Driver struct {
	validate *validator.Validate
	logger   *zap.Logger
}

// NewDriver wires a Driver. Either argument may be nil: a default validator
// and a no-op logger are used instead, matching the teacher's constructor
// nil-guard convention.
func NewDriver(validate *validator.Validate, logger *zap.Logger) *Driver {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{validate: validate, logger: logger}
}

// Generate runs one shift's scheduling pass. It returns an error only for
// input inconsistency (spec §7, fail-fast) or a recovered Tracker
// inconsistency (a programmer bug); enumeration-exhausted and partial
// assignments are ordinary outcomes reflected in the returned Unassigned
// map.
func (d *Driver) Generate(ctx context.Context, in GenerateInput) (result GenerateResult, err error) {
	runID := uuid.NewString()
	logger := d.logger.With(zap.String("run_id", runID), zap.Int("shift_id", int(in.Shift.ID)))

	if err := d.validateInput(in); err != nil {
		return GenerateResult{}, err
	}

	defer func() {
		if r := recover(); r != nil {
			if te, ok := r.(*TrackerInconsistencyError); ok {
				err = appErrors.Wrap(te, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "scheduler tracker inconsistency")
				return
			}
			panic(r)
		}
	}()

	rng := in.Rand
	if rng == nil {
		seed := in.RandSeed
		if seed == 0 {
			seed = 1
		}
		rng = rand.New(rand.NewSource(seed))
	}

	maxBacktrack := in.MaxBacktrackIterations
	if maxBacktrack <= 0 {
		maxBacktrack = 12
	}

	tracker := NewTracker()
	checker := NewChecker(in.Constraints)
	scorer := NewScorer(in.Constraints, in.TimeSlots, tracker)
	enumerator := NewEnumerator(in.Teachers, in.Rooms, in.TimeSlots, tracker, rng)

	courses := prioritizedCourses(in.Courses, rng)

	run := &driverRun{
		driver:     d,
		tracker:    tracker,
		checker:    checker,
		scorer:     scorer,
		enumerator: enumerator,
		sections:   in.Sections,
		shift:      in.Shift,
		logger:     logger,
	}

	unassigned := make(Unassigned)
	for _, course := range courses {
		for _, section := range run.sectionsForCourse(course) {
			committedCount := run.assignCourseSection(course, section)
			if committedCount < course.SessionsPerWeek {
				unassigned[section] = append(unassigned[section], course)
				logger.Warn("session_unassigned",
					zap.Int("course_id", int(course.ID)),
					zap.Int("section_id", int(section.ID)),
					zap.Int("committed", committedCount),
					zap.Int("required", course.SessionsPerWeek))
			}
		}
	}

	run.backtrack(unassigned, maxBacktrack)

	logger.Info("schedule_generated",
		zap.Int("assignment_count", len(run.assignments)),
		zap.Int("unassigned_section_count", len(unassigned)))

	return GenerateResult{Assignments: run.assignments, Unassigned: unassigned}, nil
}

// prioritizedCourses implements spec §4.5(1): priority(course) =
// duration_per_session + (5 - min(5, |preferred_teachers|)), courses sorted
// descending, ties broken by a prior random shuffle.
func prioritizedCourses(courses []Course, rng *rand.Rand) []Course {
	shuffled := make([]Course, len(courses))
	copy(shuffled, courses)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	sort.SliceStable(shuffled, func(i, j int) bool {
		return coursePriority(shuffled[i]) > coursePriority(shuffled[j])
	})
	return shuffled
}

func coursePriority(c Course) int {
	preferredCount := len(c.PreferredTeacherIDs)
	bonus := 5 - preferredCount
	if bonus < 0 {
		bonus = 0
	}
	return c.DurationPerSession + bonus
}

// driverRun holds the mutable state of a single Generate call: the
// committed assignment list and the wired components it's built from.
type driverRun struct {
	driver     *Driver
	tracker    *Tracker
	checker    *Checker
	scorer     *Scorer
	enumerator *Enumerator
	sections   []Section
	shift      Shift
	logger     *zap.Logger

	assignments []Assignment
}

// sectionsForCourse returns the sections whose (semester, shift) matches
// course, per spec §4.5(2).
func (r *driverRun) sectionsForCourse(course Course) []Section {
	var out []Section
	for _, sec := range r.sections {
		if sec.Semester == course.Semester && sec.ShiftID == r.shift.ID {
			out = append(out, sec)
		}
	}
	return out
}

// assignCourseSection runs the greedy inner loop for one (course, section)
// pair: for each required session, enumerate, filter by the Checker, score
// survivors, commit the argmax. Returns the number of sessions committed.
func (r *driverRun) assignCourseSection(course Course, section Section) int {
	committed := 0
	for i := 0; i < course.SessionsPerWeek; i++ {
		candidates := r.enumerator.Candidates(course, section, r.shift)

		best, ok := r.bestCandidate(candidates)
		if !ok {
			break
		}
		r.commit(best)
		committed++
	}
	return committed
}

// bestCandidate filters candidates by the Checker, scores the survivors,
// and returns the highest-scoring one (ties broken by iteration order).
func (r *driverRun) bestCandidate(candidates []Assignment) (Assignment, bool) {
	var best Assignment
	found := false
	bestScore := 0.0

	for _, c := range candidates {
		if !r.checker.IsValid(c, r.assignments) {
			continue
		}
		c.Score = r.scorer.Score(c, r.assignments)
		if !found || c.Score > bestScore {
			best, bestScore, found = c, c.Score, true
		}
	}
	return best, found
}

// commit appends the assignment to the committed list and registers it with
// the Tracker, mutating the shared *Teacher's Load.
func (r *driverRun) commit(a Assignment) {
	r.assignments = append(r.assignments, a)
	r.tracker.Add(a)
}

// removeAssignment removes the most recently committed occurrence of
// assignment matching course+section+teacher from both the committed list
// and the Tracker. Used only by the backtracking pass.
func (r *driverRun) removeAssignment(target Assignment) bool {
	for i := len(r.assignments) - 1; i >= 0; i-- {
		a := r.assignments[i]
		if a.Course.ID == target.Course.ID && a.Section.ID == target.Section.ID && a.Teacher.ID == target.Teacher.ID && sameSlotGroup(a.SlotGroup, target.SlotGroup) {
			r.tracker.Remove(a)
			r.assignments = append(r.assignments[:i], r.assignments[i+1:]...)
			return true
		}
	}
	return false
}

func sameSlotGroup(a, b []TimeSlot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

// backtrack implements spec §4.5(3) per the strategy recorded in DESIGN.md:
// for each unassigned (section, course), find a committed assignment that
// blocks every re-enumerated candidate for that session; remove the
// lowest-scoring such blocker, retry the session once. If the retry
// succeeds, the freed course's own session is re-attempted right away; if
// that in turn fails, the retry is undone and the original blocker is
// restored so no net assignment is lost. A course stays in unassigned while
// it is still short of sessions_per_week for the section.
func (r *driverRun) backtrack(unassigned Unassigned, maxIterations int) {
	iterations := 0
	for section, courses := range unassigned {
		remaining := make([]Course, 0, len(courses))
		for _, course := range courses {
			if iterations >= maxIterations {
				remaining = append(remaining, course)
				continue
			}
			iterations++
			if r.tryFreeAndRetry(course, section) {
				placed := 0
				for _, a := range r.assignments {
					if a.Course.ID == course.ID && a.Section.ID == section.ID {
						placed++
					}
				}
				if placed >= course.SessionsPerWeek {
					continue
				}
			}
			remaining = append(remaining, course)
		}
		if len(remaining) == 0 {
			delete(unassigned, section)
		} else {
			unassigned[section] = remaining
		}
	}
}

// tryFreeAndRetry finds the lowest-scored committed assignment whose removal
// would let one more candidate survive the Checker for (course, section),
// removes it, retries the session, then re-places the blocker's own session.
// If the retry or the re-placement fails, the retry is undone and the
// blocker restored.
func (r *driverRun) tryFreeAndRetry(course Course, section Section) bool {
	blocker, ok := r.findLowestScoredBlocker(course, section)
	if !ok {
		return false
	}

	r.removeAssignment(blocker)

	candidates := r.enumerator.Candidates(course, section, r.shift)
	best, found := r.bestCandidate(candidates)
	if !found {
		r.commit(blocker)
		return false
	}
	r.commit(best)

	replacement, placed := r.bestCandidate(r.enumerator.Candidates(blocker.Course, blocker.Section, r.shift))
	if !placed {
		r.removeAssignment(best)
		r.commit(blocker)
		return false
	}
	r.commit(replacement)
	return true
}

// findLowestScoredBlocker scans committed assignments for the one, if
// removed, that would allow at least one candidate to pass the Checker for
// (course, section); among blockers, the lowest-scored is chosen so the
// repair pass prefers to displace the least valuable existing assignment.
func (r *driverRun) findLowestScoredBlocker(course Course, section Section) (Assignment, bool) {
	var best Assignment
	found := false

	for _, candidate := range r.assignments {
		if !r.wouldUnblock(candidate, course, section) {
			continue
		}
		if !found || candidate.Score < best.Score {
			best, found = candidate, true
		}
	}
	return best, found
}

// wouldUnblock reports whether removing candidate from the committed list
// would let at least one re-enumerated candidate for (course, section) pass
// the Checker.
func (r *driverRun) wouldUnblock(toRemove Assignment, course Course, section Section) bool {
	without := make([]Assignment, 0, len(r.assignments)-1)
	for _, a := range r.assignments {
		if a.Course.ID == toRemove.Course.ID && a.Section.ID == toRemove.Section.ID && a.Teacher.ID == toRemove.Teacher.ID && sameSlotGroup(a.SlotGroup, toRemove.SlotGroup) {
			continue
		}
		without = append(without, a)
	}

	tracker := NewTracker()
	for _, a := range without {
		tracker.Add(a)
		// The scratch index must not count an already committed session
		// a second time on the shared Teacher.
		a.Teacher.Load--
	}
	toRemove.Teacher.Load--
	defer func() { toRemove.Teacher.Load++ }()
	enumerator := NewEnumerator(r.enumerator.teachers, r.enumerator.rooms, r.enumerator.timeSlots, tracker, r.enumerator.rng)

	for _, candidate := range enumerator.Candidates(course, section, r.shift) {
		if r.checker.IsValid(candidate, without) {
			return true
		}
	}
	return false
}

// validateInput performs the "input inconsistency" checks of spec §7: fail
// fast, before scheduling begins, on malformed or contradictory catalog
// data that struct tags alone cannot express.
func (d *Driver) validateInput(in GenerateInput) error {
	if len(in.Courses) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "courses must not be empty")
	}
	if len(in.TimeSlots) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "time_slots must not be empty")
	}
	if err := d.validate.Var(in.Shift.Name, "required"); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "shift must have a name")
	}

	seenSlotNumbers := make(map[slotKey]struct{})
	for _, ts := range in.TimeSlots {
		if err := d.validate.Struct(ts); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("time slot %d failed validation", ts.ID))
		}
		if ts.ShiftID != in.Shift.ID {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("time slot %d belongs to a different shift than the one being scheduled", ts.ID))
		}
		key := slotKey{day: ts.Day, slotNumber: ts.SlotNumber}
		if _, dup := seenSlotNumbers[key]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate (day, slot_number) within shift: %s/%d", ts.Day, ts.SlotNumber))
		}
		seenSlotNumbers[key] = struct{}{}
	}

	for _, c := range in.Courses {
		if err := d.validate.Struct(c); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("course %d failed validation", c.ID))
		}
		if _, ok := c.ShiftIDs[in.Shift.ID]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %d is not offered in shift %d", c.ID, in.Shift.ID))
		}
	}

	for _, sec := range in.Sections {
		if sec.ShiftID != in.Shift.ID {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("section %d belongs to a different shift than the one being scheduled", sec.ID))
		}
	}

	return nil
}

type slotKey struct {
	day        Weekday
	slotNumber int
}
