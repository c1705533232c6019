package dummydb

import (
	"sync"

	"github.com/umoja/campus/core/grade"
)

type (
	DB struct {
		grade       *gradeTable
		history     *historyTable
		enrollment  *enrollmentTable
		assignments *assignmentTable
		courses     *courseTable
	}

	gradeTable struct {
		sync.RWMutex
		table map[string]*grade.GradeRecord
	}

	historyTable struct {
		sync.RWMutex
		table map[string][]grade.HistoryEntry
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[enrollmentKey][]string
	}

	enrollmentKey struct {
		courseID     string
		semester     int
		academicYear string
	}

	assignmentTable struct {
		sync.RWMutex
		table map[scoreKey][]grade.AssignmentGrade
	}

	scoreKey struct {
		studentID string
		courseID  string
	}

	courseTable struct {
		sync.RWMutex
		table map[string]int // courseID -> credit hours
	}
)

func Open() (*DB, error) {
	db := &DB{
		grade:       &gradeTable{table: make(map[string]*grade.GradeRecord)},
		history:     &historyTable{table: make(map[string][]grade.HistoryEntry)},
		enrollment:  &enrollmentTable{table: make(map[enrollmentKey][]string)},
		assignments: &assignmentTable{table: make(map[scoreKey][]grade.AssignmentGrade)},
		courses:     &courseTable{table: make(map[string]int)},
	}
	return db, nil
}

// Seed helpers for tests and local runs.

func (db *DB) AddEnrollment(courseID string, semester int, academicYear string, studentIDs ...string) {
	db.enrollment.Lock()
	defer db.enrollment.Unlock()
	key := enrollmentKey{courseID: courseID, semester: semester, academicYear: academicYear}
	db.enrollment.table[key] = append(db.enrollment.table[key], studentIDs...)
}

func (db *DB) SetCreditHours(courseID string, credits int) {
	db.courses.Lock()
	defer db.courses.Unlock()
	db.courses.table[courseID] = credits
}

// History returns the audit trail for a grade id, including entries for
// deleted records.
func (db *DB) History(gradeID string) []grade.HistoryEntry {
	db.history.RLock()
	defer db.history.RUnlock()
	return db.history.table[gradeID]
}

func (db *DB) AddAssignmentScore(studentID, courseID string, scores ...grade.AssignmentGrade) {
	db.assignments.Lock()
	defer db.assignments.Unlock()
	key := scoreKey{studentID: studentID, courseID: courseID}
	db.assignments.table[key] = append(db.assignments.table[key], scores...)
}
