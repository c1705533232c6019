package grade_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umoja/campus/core/grade"
)

func Test_Service_CourseStats(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	// two submitted, one approved, one draft
	rec1 := createGradeRecord(t, svc, "std1", 95, faculty) // A
	rec2 := createGradeRecord(t, svc, "std2", 85, faculty) // B
	rec3 := createGradeRecord(t, svc, "std3", 75, faculty) // C
	createGradeRecord(t, svc, "std4", 50, faculty)         // draft, excluded from grades

	submitGradeRecord(t, svc, rec1.ID, faculty)
	submitGradeRecord(t, svc, rec2.ID, faculty)
	submitGradeRecord(t, svc, rec3.ID, faculty)
	_, err := svc.Approve(ctx, rec1.ID, "", registrar)
	require.NoError(t, err)

	cs, err := svc.CourseStats(ctx, "CS101", 1, "2025-2026")
	require.NoError(t, err)

	assert.Equal(t, 4, cs.TotalStudents)
	assert.Equal(t, 1, cs.DraftCount)
	assert.Equal(t, 2, cs.SubmittedCount)
	assert.Equal(t, 1, cs.ApprovedCount)
	assert.Equal(t, 0, cs.DisputedCount)
	assert.Equal(t, 0, cs.FinalCount)

	assert.InDelta(t, 85.0, cs.AverageGrade, 1e-9)
	assert.InDelta(t, 85.0, cs.MedianGrade, 1e-9)

	assert.Equal(t, 1, cs.Distribution["A"])
	assert.Equal(t, 1, cs.Distribution["B"])
	assert.Equal(t, 1, cs.Distribution["C"])
	assert.Equal(t, 0, cs.Distribution["F"])
	// every letter token is present
	assert.Len(t, cs.Distribution, len(grade.LetterTokens))

	t.Run("empty course", func(t *testing.T) {
		cs, err := svc.CourseStats(ctx, "MATH101", 1, "2025-2026")
		require.NoError(t, err)
		assert.Equal(t, 0, cs.TotalStudents)
		assert.Equal(t, 0.0, cs.AverageGrade)
		assert.Equal(t, 0.0, cs.MedianGrade)
	})
}
