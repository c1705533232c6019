package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/umoja/campus/core/grade"
)

type auditSink struct {
	db *sqlx.DB
}

var _ grade.AuditSink = (*auditSink)(nil) // interface compliance check

func NewAuditSink(db *sqlx.DB) grade.AuditSink {
	return &auditSink{db: db}
}

func (sink *auditSink) AppendHistory(ctx context.Context, gradeID string, entry grade.HistoryEntry) error {
	row := historyRow{
		GradeID:       gradeID,
		Action:        entry.Action,
		Actor:         entry.Actor,
		PreviousGrade: entry.PreviousGrade,
		NewGrade:      entry.NewGrade,
		Comment:       entry.Comment,
		Timestamp:     null.TimeFrom(entry.Timestamp),
	}
	query := `INSERT INTO grade_history (grade_id, action, actor, previous_grade, new_grade, comment, timestamp)
		VALUES (:grade_id, :action, :actor, :previous_grade, :new_grade, :comment, :timestamp)`
	if _, err := sink.db.NamedExecContext(ctx, query, row); err != nil {
		return errors.Wrap(err, "appending grade history")
	}
	return nil
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ grade.EnrollmentProvider = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) grade.EnrollmentProvider {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) ListEnrolledStudents(ctx context.Context, courseID string, semester int, academicYear string) ([]string, error) {
	var students []string
	query := `SELECT student_id FROM enrollment
		WHERE course_id = $1 AND semester = $2 AND academic_year = $3 ORDER BY student_id`
	if err := repo.db.SelectContext(ctx, &students, query, courseID, semester, academicYear); err != nil {
		return nil, errors.Wrap(err, "listing enrolled students")
	}
	return students, nil
}

type assignmentScoreRepository struct {
	db *sqlx.DB
}

var _ grade.AssignmentScoreProvider = (*assignmentScoreRepository)(nil) // interface compliance check

func NewAssignmentScoreRepository(db *sqlx.DB) grade.AssignmentScoreProvider {
	return &assignmentScoreRepository{db: db}
}

func (repo *assignmentScoreRepository) ListAssignmentScores(ctx context.Context, studentID, courseID string) ([]grade.AssignmentGrade, error) {
	var rows []struct {
		AssignmentID string  `db:"assignment_id"`
		Weight       float64 `db:"weight"`
		Score        float64 `db:"score"`
		MaxPoints    float64 `db:"max_points"`
	}
	query := `SELECT assignment_id, weight, score, max_points FROM assignment_score
		WHERE student_id = $1 AND course_id = $2 ORDER BY assignment_id`
	if err := repo.db.SelectContext(ctx, &rows, query, studentID, courseID); err != nil {
		return nil, errors.Wrap(err, "listing assignment scores")
	}

	assignments := make([]grade.AssignmentGrade, len(rows))
	for i, row := range rows {
		assignments[i] = grade.AssignmentGrade{
			AssignmentID: row.AssignmentID,
			Weight:       row.Weight,
			Score:        row.Score,
			MaxPoints:    row.MaxPoints,
		}
	}
	return assignments, nil
}

type courseRepository struct {
	db *sqlx.DB
}

var _ grade.CourseConfigProvider = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) grade.CourseConfigProvider {
	return &courseRepository{db: db}
}

func (repo *courseRepository) GetCreditHours(ctx context.Context, courseID string) (int, error) {
	var credits int
	if err := repo.db.GetContext(ctx, &credits, `SELECT credit_hours FROM course WHERE id = $1`, courseID); err != nil {
		if err == sql.ErrNoRows {
			return 0, errors.Errorf("course %s not found", courseID)
		}
		return 0, errors.Wrap(err, "getting course credit hours")
	}
	return credits, nil
}
