package dummydb

import (
	"context"
	"sort"

	"github.com/umoja/campus/core"
	"github.com/umoja/campus/core/grade"
)

type gradeRepository struct {
	db *gradeTable
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db.grade}
}

func (repo *gradeRepository) query() []grade.GradeRecord {
	recs := make([]grade.GradeRecord, 0, len(repo.db.table))
	for _, rec := range repo.db.table {
		recs = append(recs, *rec)
	}
	return recs
}

func (repo *gradeRepository) CreateGradeRecord(_ context.Context, rec grade.GradeRecord) (grade.GradeRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if existing.StudentID == rec.StudentID && existing.CourseID == rec.CourseID &&
			existing.Semester == rec.Semester && existing.AcademicYear == rec.AcademicYear {
			return grade.GradeRecord{}, grade.ErrDuplicate
		}
	}
	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *gradeRepository) GetGradeRecord(_ context.Context, id string) (grade.GradeRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[id]; ok {
		return *rec, nil
	}
	return grade.GradeRecord{}, grade.ErrNotFound
}

func (repo *gradeRepository) FindGradeRecord(_ context.Context, studentID, courseID string, semester int, academicYear string) (grade.GradeRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, rec := range repo.query() {
		if rec.StudentID == studentID && rec.CourseID == courseID &&
			rec.Semester == semester && rec.AcademicYear == academicYear {
			return rec, nil
		}
	}
	return grade.GradeRecord{}, grade.ErrNotFound
}

func (repo *gradeRepository) SaveGradeRecord(_ context.Context, rec grade.GradeRecord, expectedVersion int) (grade.GradeRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.table[rec.ID]
	if !ok {
		return grade.GradeRecord{}, grade.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return grade.GradeRecord{}, grade.ErrVersionConflict
	}
	rec.Version = expectedVersion + 1
	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *gradeRepository) DeleteGradeRecord(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return grade.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *gradeRepository) QueryGradeRecords(_ context.Context, filter grade.QueryFilter, _ []core.DBOrdering) ([]grade.GradeRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var recs []grade.GradeRecord
	for _, rec := range repo.query() {
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && rec.CourseID != filter.CourseID {
			continue
		}
		if filter.FacultyID != "" && rec.FacultyID != filter.FacultyID {
			continue
		}
		if filter.Semester != 0 && rec.Semester != filter.Semester {
			continue
		}
		if filter.AcademicYear != "" && rec.AcademicYear != filter.AcademicYear {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	return recs, nil
}

type auditSink struct {
	db *historyTable
}

var _ grade.AuditSink = (*auditSink)(nil) // interface compliance check

func NewAuditSink(db *DB) grade.AuditSink {
	return &auditSink{db: db.history}
}

func (sink *auditSink) AppendHistory(_ context.Context, gradeID string, entry grade.HistoryEntry) error {
	sink.db.Lock()
	defer sink.db.Unlock()
	sink.db.table[gradeID] = append(sink.db.table[gradeID], entry)
	return nil
}

type enrollmentRepository struct {
	db *enrollmentTable
}

var _ grade.EnrollmentProvider = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) grade.EnrollmentProvider {
	return &enrollmentRepository{db: db.enrollment}
}

func (repo *enrollmentRepository) ListEnrolledStudents(_ context.Context, courseID string, semester int, academicYear string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	key := enrollmentKey{courseID: courseID, semester: semester, academicYear: academicYear}
	students := append([]string(nil), repo.db.table[key]...)
	sort.Strings(students)
	return students, nil
}

type assignmentScoreRepository struct {
	db *assignmentTable
}

var _ grade.AssignmentScoreProvider = (*assignmentScoreRepository)(nil) // interface compliance check

func NewAssignmentScoreRepository(db *DB) grade.AssignmentScoreProvider {
	return &assignmentScoreRepository{db: db.assignments}
}

func (repo *assignmentScoreRepository) ListAssignmentScores(_ context.Context, studentID, courseID string) ([]grade.AssignmentGrade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	key := scoreKey{studentID: studentID, courseID: courseID}
	return append([]grade.AssignmentGrade(nil), repo.db.table[key]...), nil
}

type courseRepository struct {
	db *courseTable
}

var _ grade.CourseConfigProvider = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) grade.CourseConfigProvider {
	return &courseRepository{db: db.courses}
}

func (repo *courseRepository) GetCreditHours(_ context.Context, courseID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if credits, ok := repo.db.table[courseID]; ok {
		return credits, nil
	}
	return 3, nil // default credit load when the course is not configured
}
