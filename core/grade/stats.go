package grade

import (
	"context"

	"github.com/montanaflynn/stats"
)

// CourseStats is a read-only course summary for one period.
type CourseStats struct {
	CourseID     string `json:"course_id"`
	Semester     int    `json:"semester"`
	AcademicYear string `json:"academic_year"`

	TotalStudents  int `json:"total_students"`
	DraftCount     int `json:"draft_count"`
	SubmittedCount int `json:"submitted_count"`
	ApprovedCount  int `json:"approved_count"`
	DisputedCount  int `json:"disputed_count"`
	FinalCount     int `json:"final_count"`

	// AverageGrade and MedianGrade cover non-draft records only.
	AverageGrade float64 `json:"average_grade"`
	MedianGrade  float64 `json:"median_grade"`

	// Distribution buckets non-draft letter-method records by token.
	Distribution map[string]int `json:"distribution"`
}

// CourseStats derives a course summary from the record set. Pure read
// path; no mutation.
func (svc *Service) CourseStats(ctx context.Context, courseID string, semester int, academicYear string) (CourseStats, error) {
	cs := CourseStats{
		CourseID:     courseID,
		Semester:     semester,
		AcademicYear: academicYear,
		Distribution: make(map[string]int, len(LetterTokens)),
	}
	for _, token := range LetterTokens {
		cs.Distribution[token] = 0
	}

	recs, err := svc.repo.QueryGradeRecords(ctx, QueryFilter{
		CourseID:     courseID,
		Semester:     semester,
		AcademicYear: academicYear,
	}, nil)
	if err != nil {
		return CourseStats{}, err
	}

	grades := make([]float64, 0, len(recs))
	for _, rec := range recs {
		cs.TotalStudents++
		switch rec.Status {
		case StatusDraft:
			cs.DraftCount++
			continue
		case StatusSubmitted:
			cs.SubmittedCount++
		case StatusApproved:
			cs.ApprovedCount++
		case StatusDisputed:
			cs.DisputedCount++
		case StatusFinal:
			cs.FinalCount++
		}

		grades = append(grades, rec.NumericalGrade)
		if rec.GradingMethod == MethodLetter {
			cs.Distribution[rec.FinalGrade]++
		}
	}

	if len(grades) > 0 {
		if mean, err := stats.Mean(grades); err == nil {
			cs.AverageGrade = mean
		}
		if median, err := stats.Median(grades); err == nil {
			cs.MedianGrade = median
		}
	}
	return cs, nil
}
