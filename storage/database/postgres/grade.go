package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/strmangle"

	"github.com/umoja/campus/core"
	"github.com/umoja/campus/core/grade"
)

const uniqueViolation = "23505"

type gradeRecordRow struct {
	ID               string       `db:"id"`
	StudentID        string       `db:"student_id"`
	CourseID         string       `db:"course_id"`
	FacultyID        string       `db:"faculty_id"`
	Semester         int          `db:"semester"`
	AcademicYear     string       `db:"academic_year"`
	GradingMethod    string       `db:"grading_method"`
	FinalGrade       string       `db:"final_grade"`
	NumericalGrade   float64      `db:"numerical_grade"`
	GradePoints      float64      `db:"grade_points"`
	Credits          int          `db:"credits"`
	QualityPoints    float64      `db:"quality_points"`
	AssignmentGrades []byte       `db:"assignment_grades"`
	Attendance       null.Float64 `db:"attendance"`
	Participation    null.Float64 `db:"participation"`
	FacultyComments  string       `db:"faculty_comments"`
	Status           string       `db:"status"`
	SubmittedBy      string       `db:"submitted_by"`
	SubmittedAt      null.Time    `db:"submitted_at"`
	ApprovedBy       string       `db:"approved_by"`
	ApprovedAt       null.Time    `db:"approved_at"`
	CreatedBy        string       `db:"created_by"`
	CreatedAt        null.Time    `db:"created_at"`
	UpdatedAt        null.Time    `db:"updated_at"`
	Version          int          `db:"version"`
}

func newGradeRecordRow(rec grade.GradeRecord) (gradeRecordRow, error) {
	assignments, err := json.Marshal(rec.AssignmentGrades)
	if err != nil {
		return gradeRecordRow{}, errors.Wrap(err, "encoding assignment grades")
	}
	return gradeRecordRow{
		ID:               rec.ID,
		StudentID:        rec.StudentID,
		CourseID:         rec.CourseID,
		FacultyID:        rec.FacultyID,
		Semester:         rec.Semester,
		AcademicYear:     rec.AcademicYear,
		GradingMethod:    string(rec.GradingMethod),
		FinalGrade:       rec.FinalGrade,
		NumericalGrade:   rec.NumericalGrade,
		GradePoints:      rec.GradePoints,
		Credits:          rec.Credits,
		QualityPoints:    rec.QualityPoints,
		AssignmentGrades: assignments,
		Attendance:       null.Float64FromPtr(rec.Attendance),
		Participation:    null.Float64FromPtr(rec.Participation),
		FacultyComments:  rec.FacultyComments,
		Status:           string(rec.Status),
		SubmittedBy:      rec.SubmittedBy,
		SubmittedAt:      null.NewTime(rec.SubmittedAt, !rec.SubmittedAt.IsZero()),
		ApprovedBy:       rec.ApprovedBy,
		ApprovedAt:       null.NewTime(rec.ApprovedAt, !rec.ApprovedAt.IsZero()),
		CreatedBy:        rec.CreatedBy,
		CreatedAt:        null.TimeFrom(rec.CreatedAt),
		UpdatedAt:        null.TimeFrom(rec.UpdatedAt),
		Version:          rec.Version,
	}, nil
}

func (row gradeRecordRow) record() (grade.GradeRecord, error) {
	rec := grade.GradeRecord{
		ID:              row.ID,
		StudentID:       row.StudentID,
		CourseID:        row.CourseID,
		FacultyID:       row.FacultyID,
		Semester:        row.Semester,
		AcademicYear:    row.AcademicYear,
		GradingMethod:   grade.GradingMethod(row.GradingMethod),
		FinalGrade:      row.FinalGrade,
		NumericalGrade:  row.NumericalGrade,
		GradePoints:     row.GradePoints,
		Credits:         row.Credits,
		QualityPoints:   row.QualityPoints,
		Attendance:      row.Attendance.Ptr(),
		Participation:   row.Participation.Ptr(),
		FacultyComments: row.FacultyComments,
		Status:          grade.Status(row.Status),
		SubmittedBy:     row.SubmittedBy,
		SubmittedAt:     row.SubmittedAt.Time,
		ApprovedBy:      row.ApprovedBy,
		ApprovedAt:      row.ApprovedAt.Time,
		CreatedBy:       row.CreatedBy,
		CreatedAt:       row.CreatedAt.Time,
		UpdatedAt:       row.UpdatedAt.Time,
		Version:         row.Version,
	}
	if len(row.AssignmentGrades) > 0 {
		if err := json.Unmarshal(row.AssignmentGrades, &rec.AssignmentGrades); err != nil {
			return grade.GradeRecord{}, errors.Wrap(err, "decoding assignment grades")
		}
	}
	return rec, nil
}

type historyRow struct {
	GradeID       string    `db:"grade_id"`
	Action        string    `db:"action"`
	Actor         string    `db:"actor"`
	PreviousGrade string    `db:"previous_grade"`
	NewGrade      string    `db:"new_grade"`
	Comment       string    `db:"comment"`
	Timestamp     null.Time `db:"timestamp"`
}

func (row historyRow) entry() grade.HistoryEntry {
	return grade.HistoryEntry{
		Action:        row.Action,
		Actor:         row.Actor,
		PreviousGrade: row.PreviousGrade,
		NewGrade:      row.NewGrade,
		Comment:       row.Comment,
		Timestamp:     row.Timestamp.Time,
	}
}

type gradeRepository struct {
	db *sqlx.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *sqlx.DB) grade.Repository {
	return &gradeRepository{db: db}
}

const gradeRecordColumns = `id, student_id, course_id, faculty_id, semester, academic_year,
	grading_method, final_grade, numerical_grade, grade_points, credits, quality_points,
	assignment_grades, attendance, participation, faculty_comments,
	status, submitted_by, submitted_at, approved_by, approved_at,
	created_by, created_at, updated_at, version`

func (repo *gradeRepository) CreateGradeRecord(ctx context.Context, rec grade.GradeRecord) (grade.GradeRecord, error) {
	row, err := newGradeRecordRow(rec)
	if err != nil {
		return grade.GradeRecord{}, err
	}

	query := `INSERT INTO grade_record (` + gradeRecordColumns + `) VALUES (
		:id, :student_id, :course_id, :faculty_id, :semester, :academic_year,
		:grading_method, :final_grade, :numerical_grade, :grade_points, :credits, :quality_points,
		:assignment_grades, :attendance, :participation, :faculty_comments,
		:status, :submitted_by, :submitted_at, :approved_by, :approved_at,
		:created_by, :created_at, :updated_at, :version)`
	if _, err = repo.db.NamedExecContext(ctx, query, row); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return grade.GradeRecord{}, grade.ErrDuplicate
		}
		return grade.GradeRecord{}, errors.Wrap(err, "inserting grade record")
	}
	return rec, nil
}

func (repo *gradeRepository) GetGradeRecord(ctx context.Context, id string) (grade.GradeRecord, error) {
	var row gradeRecordRow
	query := `SELECT ` + gradeRecordColumns + ` FROM grade_record WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return grade.GradeRecord{}, grade.ErrNotFound
		}
		return grade.GradeRecord{}, errors.Wrap(err, "getting grade record")
	}
	rec, err := row.record()
	if err != nil {
		return grade.GradeRecord{}, err
	}
	return repo.loadHistory(ctx, rec)
}

func (repo *gradeRepository) FindGradeRecord(ctx context.Context, studentID, courseID string, semester int, academicYear string) (grade.GradeRecord, error) {
	var row gradeRecordRow
	query := `SELECT ` + gradeRecordColumns + ` FROM grade_record
		WHERE student_id = $1 AND course_id = $2 AND semester = $3 AND academic_year = $4`
	if err := repo.db.GetContext(ctx, &row, query, studentID, courseID, semester, academicYear); err != nil {
		if err == sql.ErrNoRows {
			return grade.GradeRecord{}, grade.ErrNotFound
		}
		return grade.GradeRecord{}, errors.Wrap(err, "finding grade record")
	}
	rec, err := row.record()
	if err != nil {
		return grade.GradeRecord{}, err
	}
	return repo.loadHistory(ctx, rec)
}

// SaveGradeRecord applies the update only when the stored version still
// matches; a zero-row update on an existing record means a stale read.
func (repo *gradeRepository) SaveGradeRecord(ctx context.Context, rec grade.GradeRecord, expectedVersion int) (grade.GradeRecord, error) {
	rec.Version = expectedVersion + 1
	row, err := newGradeRecordRow(rec)
	if err != nil {
		return grade.GradeRecord{}, err
	}

	query := fmt.Sprintf(`UPDATE grade_record SET
		grading_method = :grading_method, final_grade = :final_grade,
		numerical_grade = :numerical_grade, grade_points = :grade_points,
		credits = :credits, quality_points = :quality_points,
		assignment_grades = :assignment_grades, attendance = :attendance,
		participation = :participation, faculty_comments = :faculty_comments,
		status = :status, submitted_by = :submitted_by, submitted_at = :submitted_at,
		approved_by = :approved_by, approved_at = :approved_at,
		updated_at = :updated_at, version = :version
		WHERE id = :id AND version = %d`, expectedVersion)
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return grade.GradeRecord{}, errors.Wrap(err, "updating grade record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return grade.GradeRecord{}, errors.Wrap(err, "updating grade record")
	}
	if n == 0 {
		var exists bool
		if err := repo.db.GetContext(ctx, &exists, `SELECT true FROM grade_record WHERE id = $1`, rec.ID); err != nil {
			if err == sql.ErrNoRows {
				return grade.GradeRecord{}, grade.ErrNotFound
			}
			return grade.GradeRecord{}, errors.Wrap(err, "updating grade record")
		}
		return grade.GradeRecord{}, grade.ErrVersionConflict
	}
	return rec, nil
}

func (repo *gradeRepository) DeleteGradeRecord(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM grade_record WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting grade record")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return grade.ErrNotFound
	}
	return nil
}

func (repo *gradeRepository) QueryGradeRecords(ctx context.Context, filter grade.QueryFilter, ordering []core.DBOrdering) ([]grade.GradeRecord, error) {
	var (
		conds []string
		args  []interface{}
	)
	addCond := func(field string, value interface{}) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", field, len(args)))
	}
	if filter.StudentID != "" {
		addCond("student_id", filter.StudentID)
	}
	if filter.CourseID != "" {
		addCond("course_id", filter.CourseID)
	}
	if filter.FacultyID != "" {
		addCond("faculty_id", filter.FacultyID)
	}
	if filter.Semester != 0 {
		addCond("semester", filter.Semester)
	}
	if filter.AcademicYear != "" {
		addCond("academic_year", filter.AcademicYear)
	}
	if filter.Status != "" {
		addCond("status", string(filter.Status))
	}

	query := `SELECT ` + gradeRecordColumns + ` FROM grade_record`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orders := make([]string, len(ordering))
		for i, ord := range ordering {
			orders[i] = ord.String()
		}
		query += " ORDER BY " + strings.Join(orders, ", ")
	} else {
		query += " ORDER BY created_at"
	}

	var rows []gradeRecordRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying grade records")
	}

	recs := make([]grade.GradeRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return repo.loadHistories(ctx, recs)
}

func (repo *gradeRepository) loadHistory(ctx context.Context, rec grade.GradeRecord) (grade.GradeRecord, error) {
	recs, err := repo.loadHistories(ctx, []grade.GradeRecord{rec})
	if err != nil {
		return grade.GradeRecord{}, err
	}
	return recs[0], nil
}

func (repo *gradeRepository) loadHistories(ctx context.Context, recs []grade.GradeRecord) ([]grade.GradeRecord, error) {
	if len(recs) == 0 {
		return recs, nil
	}

	args := make([]interface{}, len(recs))
	for i, rec := range recs {
		args[i] = rec.ID
	}
	query := fmt.Sprintf(`SELECT grade_id, action, actor, previous_grade, new_grade, comment, timestamp
		FROM grade_history WHERE grade_id IN (%s) ORDER BY id`,
		strmangle.Placeholders(true, len(args), 1, 1))

	var rows []historyRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying grade history")
	}

	byGrade := make(map[string][]grade.HistoryEntry, len(recs))
	for _, row := range rows {
		byGrade[row.GradeID] = append(byGrade[row.GradeID], row.entry())
	}
	for i := range recs {
		recs[i].History = byGrade[recs[i].ID]
	}
	return recs, nil
}
