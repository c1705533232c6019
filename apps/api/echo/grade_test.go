package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umoja/campus/core/grade"
)

var (
	testFaculty = grade.Actor{
		ID:    "fac1",
		Name:  "Faculty One",
		Email: "fac1@test.cd",
		Roles: []string{grade.RoleFaculty + "cs"},
	}
	testRegistrar = grade.Actor{
		ID:    "reg1",
		Name:  "Registrar",
		Email: "reg1@test.cd",
		Roles: []string{grade.RoleRegistrar + "main"},
	}
	testStudent = grade.Actor{
		ID:    "std1",
		Name:  "Student",
		Email: "std1@test.cd",
		Roles: []string{"student:cs"},
	}
)

func newGradeBody(t *testing.T, studentID string, numerical float64) []byte {
	return marshal(t, grade.NewGradeRecord{
		StudentID:      studentID,
		CourseID:       "CS101",
		Semester:       1,
		AcademicYear:   "2025-2026",
		NumericalGrade: numerical,
		Credits:        3,
	})
}

func Test_gradeApi_create(t *testing.T) {
	srv, _, _ := setup(t)

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/grades", newGradeBody(t, "std1", 95))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var body httpErr
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, errMissingToken, body)
	})

	t.Run("faculty creates a draft", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/grades", getToken(t, testFaculty), newGradeBody(t, "std1", 95))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		created := decodeRecord(t, rec.Body.Bytes())
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, grade.StatusDraft, created.Status)
		assert.Equal(t, "A", created.FinalGrade)
	})

	t.Run("duplicate yields conflict", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/grades", getToken(t, testFaculty), newGradeBody(t, "std1", 80))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("student role is forbidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/grades", getToken(t, testStudent), newGradeBody(t, "std2", 80))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("validation failure is a bad request", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/grades", getToken(t, testFaculty), newGradeBody(t, "std2", 101))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var fields map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
		assert.Contains(t, fields, "numerical_grade")
	})
}

func Test_gradeApi_lifecycle(t *testing.T) {
	srv, svc, _ := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, grade.NewGradeRecord{
		StudentID:      "std1",
		CourseID:       "CS101",
		Semester:       1,
		AcademicYear:   "2025-2026",
		NumericalGrade: 85,
		Credits:        3,
	}, testFaculty)
	require.NoError(t, err)

	t.Run("submit", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/grades/"+created.ID+"/submit", getToken(t, testFaculty))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, grade.StatusSubmitted, decodeRecord(t, rec.Body.Bytes()).Status)
	})

	t.Run("resubmit conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/grades/"+created.ID+"/submit", getToken(t, testFaculty))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("faculty cannot approve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/grades/"+created.ID+"/approve", getToken(t, testFaculty))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("registrar disputes with a comment", func(t *testing.T) {
		body := marshal(t, ReviewRequest{Comment: "attendance mismatch"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/grades/"+created.ID+"/dispute", getToken(t, testRegistrar), body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, grade.StatusDisputed, decodeRecord(t, rec.Body.Bytes()).Status)
	})

	t.Run("approve after resubmission, then finalize", func(t *testing.T) {
		_, err := svc.Submit(ctx, created.ID, testFaculty)
		require.NoError(t, err)

		req, rec := newAuthRequest(http.MethodPost, "/v1/grades/"+created.ID+"/approve", getToken(t, testRegistrar))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		req, rec = newAuthRequest(http.MethodPost, "/v1/grades/"+created.ID+"/finalize", getToken(t, testRegistrar))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, grade.StatusFinal, decodeRecord(t, rec.Body.Bytes()).Status)
	})

	t.Run("missing record is a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/grades/no-such-id", getToken(t, testFaculty))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_gradeApi_query(t *testing.T) {
	srv, svc, _ := setup(t)
	ctx := context.Background()

	for i, sid := range []string{"std1", "std2", "std3"} {
		_, err := svc.Create(ctx, grade.NewGradeRecord{
			StudentID:      sid,
			CourseID:       "CS101",
			Semester:       1,
			AcademicYear:   "2025-2026",
			NumericalGrade: 70 + float64(10*i),
			Credits:        3,
		}, testFaculty)
		require.NoError(t, err)
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/grades?course_id=CS101", getToken(t, testFaculty))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var recs []grade.GradeRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	assert.Len(t, recs, 3)

	req, rec = newAuthRequest(http.MethodGet, "/v1/grades?student_id=std2", getToken(t, testFaculty))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	recs = recs[:0]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "std2", recs[0].StudentID)
}

func Test_gradeApi_bulkSubmit(t *testing.T) {
	srv, svc, _ := setup(t)
	ctx := context.Background()

	var ids []string
	for _, sid := range []string{"std1", "std2"} {
		rec, err := svc.Create(ctx, grade.NewGradeRecord{
			StudentID:      sid,
			CourseID:       "CS101",
			Semester:       1,
			AcademicYear:   "2025-2026",
			NumericalGrade: 80,
			Credits:        3,
		}, testFaculty)
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	body := marshal(t, BulkSubmitRequest{IDs: append(ids, "no-such-id")})
	req, rec := newAuthRequest(http.MethodPost, "/v1/grades/bulk-submit", getToken(t, testFaculty), body)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res grade.BulkResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.ElementsMatch(t, ids, res.Succeeded)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "not found", res.Skipped[0].Reason)

	t.Run("empty id list is a bad request", func(t *testing.T) {
		body := marshal(t, BulkSubmitRequest{})
		req, rec := newAuthRequest(http.MethodPost, "/v1/grades/bulk-submit", getToken(t, testFaculty), body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_gradeApi_autoCalculate(t *testing.T) {
	srv, _, db := setup(t)

	db.SetCreditHours("CS101", 3)
	db.AddEnrollment("CS101", 1, "2025-2026", "std1")
	db.AddAssignmentScore("std1", "CS101",
		grade.AssignmentGrade{AssignmentID: "hw1", Weight: 100, Score: 90, MaxPoints: 100},
	)

	body := marshal(t, AutoCalculateRequest{CourseID: "CS101", Semester: 1, AcademicYear: "2025-2026"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/grades/auto-calculate", getToken(t, testFaculty), body)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res grade.AutoCalcResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Created)
	assert.Empty(t, res.Skipped)

	t.Run("malformed year is a bad request", func(t *testing.T) {
		body := marshal(t, AutoCalculateRequest{CourseID: "CS101", Semester: 1, AcademicYear: "2025"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/grades/auto-calculate", getToken(t, testFaculty), body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_gradeApi_courseStats(t *testing.T) {
	srv, svc, _ := setup(t)
	ctx := context.Background()

	rec1, err := svc.Create(ctx, grade.NewGradeRecord{
		StudentID:      "std1",
		CourseID:       "CS101",
		Semester:       1,
		AcademicYear:   "2025-2026",
		NumericalGrade: 95,
		Credits:        3,
	}, testFaculty)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, rec1.ID, testFaculty)
	require.NoError(t, err)

	req, rec := newAuthRequest(http.MethodGet, "/v1/courses/CS101/stats?semester=1&academic_year=2025-2026", getToken(t, testRegistrar))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var cs grade.CourseStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cs))
	assert.Equal(t, 1, cs.TotalStudents)
	assert.Equal(t, 1, cs.SubmittedCount)
	assert.Equal(t, 95.0, cs.AverageGrade)
	assert.Equal(t, 1, cs.Distribution["A"])
}
