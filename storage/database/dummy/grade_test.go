package dummydb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umoja/campus/core/grade"
)

func testRecord(id, studentID string) grade.GradeRecord {
	return grade.GradeRecord{
		ID:             id,
		StudentID:      studentID,
		CourseID:       "CS101",
		FacultyID:      "fac1",
		Semester:       1,
		AcademicYear:   "2025-2026",
		GradingMethod:  grade.MethodLetter,
		NumericalGrade: 80,
		Credits:        3,
		Status:         grade.StatusDraft,
	}
}

func Test_gradeRepository_optimisticConcurrency(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)
	repo := NewGradeRepository(db)
	ctx := context.Background()

	rec, err := repo.CreateGradeRecord(ctx, testRecord("rec1", "std1"))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Version)

	// first save against the stored version succeeds and bumps it
	rec.NumericalGrade = 90
	saved, err := repo.SaveGradeRecord(ctx, rec, rec.Version)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)

	// a stale writer loses
	rec.NumericalGrade = 70
	_, err = repo.SaveGradeRecord(ctx, rec, 0)
	assert.Equal(t, grade.ErrVersionConflict, err)

	stored, err := repo.GetGradeRecord(ctx, "rec1")
	require.NoError(t, err)
	assert.Equal(t, 90.0, stored.NumericalGrade)

	_, err = repo.SaveGradeRecord(ctx, testRecord("ghost", "std9"), 0)
	assert.Equal(t, grade.ErrNotFound, err)
}

func Test_gradeRepository_duplicateKey(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)
	repo := NewGradeRepository(db)
	ctx := context.Background()

	_, err = repo.CreateGradeRecord(ctx, testRecord("rec1", "std1"))
	require.NoError(t, err)

	// same (student, course, semester, year) under a new id
	_, err = repo.CreateGradeRecord(ctx, testRecord("rec2", "std1"))
	assert.Equal(t, grade.ErrDuplicate, err)

	other := testRecord("rec3", "std1")
	other.Semester = 2
	_, err = repo.CreateGradeRecord(ctx, other)
	assert.NoError(t, err)
}
