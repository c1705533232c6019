package grade

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Auto-calculation skip reasons.
const (
	SkipNoWeightedAssignments = "no weighted assignments"
	SkipAlreadySubmitted      = "already submitted"
	SkipConcurrentUpdate      = "concurrent update"
)

type (
	// AutoCalcSkip explains why one student was left out of a batch.
	AutoCalcSkip struct {
		StudentID string `json:"student_id"`
		Reason    string `json:"reason"`
	}

	// AutoCalcResult reports the per-student outcome of an auto-grading
	// batch. It is returned alongside a nil error even when every
	// student was skipped; only systemic faults fail the batch.
	AutoCalcResult struct {
		Created int            `json:"created"`
		Updated int            `json:"updated"`
		Skipped []AutoCalcSkip `json:"skipped"`
	}
)

// WeightedGrade aggregates assignment scores into a 0-100 numerical
// grade, normalizing by the total weight (weights need not sum to 100).
// ok is false when no positive weight exists.
func WeightedGrade(assignments []AssignmentGrade) (numerical float64, ok bool) {
	var totalWeight, weighted float64
	for _, a := range assignments {
		if a.MaxPoints <= 0 {
			continue
		}
		weighted += a.Score / a.MaxPoints * a.Weight
		totalWeight += a.Weight
	}
	if totalWeight == 0 {
		return 0, false
	}
	numerical = 100 * weighted / totalWeight
	if numerical < 0 {
		numerical = 0
	} else if numerical > 100 {
		numerical = 100
	}
	return numerical, true
}

// AutoCalculate derives a draft grade for every enrolled student from
// their weighted assignment scores. Existing drafts are overwritten;
// records past draft are skipped. Each student is processed
// independently: one student's failure never aborts the batch.
func (svc *Service) AutoCalculate(ctx context.Context, courseID string, semester int, academicYear string, actor Actor) (AutoCalcResult, error) {
	res := AutoCalcResult{Skipped: []AutoCalcSkip{}}

	if !actor.IsFaculty() && !actor.IsAdmin() {
		return res, ErrPermissionDenied
	}

	students, err := svc.enrollment.ListEnrolledStudents(ctx, courseID, semester, academicYear)
	if err != nil {
		return res, errors.Wrap(err, "listing enrolled students")
	}
	credits, err := svc.courses.GetCreditHours(ctx, courseID)
	if err != nil {
		return res, errors.Wrap(err, "getting course credit hours")
	}

	for _, studentID := range students {
		if skip := svc.autoCalcStudent(ctx, courseID, semester, academicYear, studentID, credits, actor, &res); skip != nil {
			res.Skipped = append(res.Skipped, *skip)
		}
	}
	return res, nil
}

func (svc *Service) autoCalcStudent(
	ctx context.Context,
	courseID string,
	semester int,
	academicYear, studentID string,
	credits int,
	actor Actor,
	res *AutoCalcResult,
) *AutoCalcSkip {
	existing, err := svc.repo.FindGradeRecord(ctx, studentID, courseID, semester, academicYear)
	switch {
	case err == ErrNotFound:
		// no record yet; a fresh draft is created below
	case err != nil:
		return &AutoCalcSkip{StudentID: studentID, Reason: err.Error()}
	case existing.Status != StatusDraft:
		return &AutoCalcSkip{StudentID: studentID, Reason: SkipAlreadySubmitted}
	}

	assignments, aErr := svc.scores.ListAssignmentScores(ctx, studentID, courseID)
	if aErr != nil {
		return &AutoCalcSkip{StudentID: studentID, Reason: aErr.Error()}
	}
	numerical, ok := WeightedGrade(assignments)
	if !ok {
		return &AutoCalcSkip{StudentID: studentID, Reason: SkipNoWeightedAssignments}
	}

	now := time.Now().UTC()
	if err == ErrNotFound {
		rec := GradeRecord{
			ID:               newRecordID(),
			StudentID:        studentID,
			CourseID:         courseID,
			FacultyID:        actor.ID,
			Semester:         semester,
			AcademicYear:     academicYear,
			GradingMethod:    MethodLetter,
			NumericalGrade:   numerical,
			Credits:          credits,
			AssignmentGrades: assignments,
			Status:           StatusDraft,
			CreatedBy:        actor.ID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		rec.Normalize()
		rec, cErr := svc.repo.CreateGradeRecord(ctx, rec)
		if cErr != nil {
			return &AutoCalcSkip{StudentID: studentID, Reason: skipReason(cErr)}
		}
		if hErr := svc.appendHistory(ctx, &rec, newHistoryEntry(ActionAutoCalculated, actor, "", rec.FinalGrade, "")); hErr != nil {
			return &AutoCalcSkip{StudentID: studentID, Reason: hErr.Error()}
		}
		res.Created++
		return nil
	}

	prevGrade := existing.FinalGrade
	existing.NumericalGrade = numerical
	existing.Credits = credits
	existing.AssignmentGrades = assignments
	existing.UpdatedAt = now
	existing.Normalize()

	if _, sErr := svc.saveWithHistory(ctx, existing, newHistoryEntry(ActionAutoCalculated, actor, prevGrade, existing.FinalGrade, "")); sErr != nil {
		return &AutoCalcSkip{StudentID: studentID, Reason: skipReason(sErr)}
	}
	res.Updated++
	return nil
}
