package grade_test

import (
	"context"
	"testing"

	"github.com/umoja/campus/core"
	"github.com/umoja/campus/core/grade"
	emailsvc "github.com/umoja/campus/services/email"
	dummydb "github.com/umoja/campus/storage/database/dummy"
)

var (
	faculty = grade.Actor{
		ID:    "fac1",
		Name:  "Faculty One",
		Email: "fac1@test.cd",
		Roles: []string{grade.RoleFaculty + "cs"},
	}
	otherFaculty = grade.Actor{
		ID:    "fac2",
		Name:  "Faculty Two",
		Email: "fac2@test.cd",
		Roles: []string{grade.RoleFaculty + "math"},
	}
	registrar = grade.Actor{
		ID:    "reg1",
		Name:  "Registrar",
		Email: "reg1@test.cd",
		Roles: []string{grade.RoleRegistrar + "main"},
	}
	admin = grade.Actor{
		ID:    "adm1",
		Name:  "Admin",
		Email: "adm1@test.cd",
		Roles: []string{grade.RoleAdmin + "owner"},
	}
	student = grade.Actor{
		ID:    "std1",
		Name:  "Student",
		Email: "std1@test.cd",
		Roles: []string{"student:cs"},
	}
)

func setup(t *testing.T) (*grade.Service, *dummydb.DB) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	conf := &core.Config{AppName: "Campus", TestMode: true}
	svc := grade.NewService(
		dummydb.NewGradeRepository(db),
		dummydb.NewEnrollmentRepository(db),
		dummydb.NewAssignmentScoreRepository(db),
		dummydb.NewCourseRepository(db),
		dummydb.NewAuditSink(db),
		emailsvc.NewConsoleServiceMock(conf),
		conf,
	)
	return svc, db
}

func newGradeRecord(studentID string, numerical float64) grade.NewGradeRecord {
	return grade.NewGradeRecord{
		StudentID:      studentID,
		CourseID:       "CS101",
		Semester:       1,
		AcademicYear:   "2025-2026",
		NumericalGrade: numerical,
		Credits:        3,
	}
}

func createGradeRecord(t *testing.T, svc *grade.Service, studentID string, numerical float64, actor grade.Actor) grade.GradeRecord {
	rec, err := svc.Create(context.Background(), newGradeRecord(studentID, numerical), actor)
	if err != nil {
		t.Fatalf("createGradeRecord() failed: %v", err)
	}
	return rec
}

func submitGradeRecord(t *testing.T, svc *grade.Service, id string, actor grade.Actor) grade.GradeRecord {
	rec, err := svc.Submit(context.Background(), id, actor)
	if err != nil {
		t.Fatalf("submitGradeRecord() failed: %v", err)
	}
	return rec
}
