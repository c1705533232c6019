package grade_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umoja/campus/core"
	"github.com/umoja/campus/core/grade"
	emailsvc "github.com/umoja/campus/services/email"
	dummydb "github.com/umoja/campus/storage/database/dummy"
)

func Test_Service_Create(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, newGradeRecord("std1", 95), faculty)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, grade.StatusDraft, rec.Status)
	assert.Equal(t, "A", rec.FinalGrade)
	assert.Equal(t, 4.0, rec.GradePoints)
	assert.Equal(t, 12.0, rec.QualityPoints)
	assert.Equal(t, faculty.ID, rec.FacultyID)
	assert.Equal(t, faculty.ID, rec.CreatedBy)

	// audit trail records the creation
	trail := db.History(rec.ID)
	require.Len(t, trail, 1)
	assert.Equal(t, grade.ActionCreated, trail[0].Action)
	assert.Equal(t, faculty.ID, trail[0].Actor)

	t.Run("duplicate period is rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, newGradeRecord("std1", 80), faculty)
		assert.Equal(t, grade.ErrDuplicate, err)
	})

	t.Run("same student, another semester is fine", func(t *testing.T) {
		ng := newGradeRecord("std1", 80)
		ng.Semester = 2
		_, err := svc.Create(ctx, ng, faculty)
		assert.NoError(t, err)
	})

	t.Run("student role cannot create", func(t *testing.T) {
		_, err := svc.Create(ctx, newGradeRecord("std9", 80), student)
		assert.Equal(t, grade.ErrPermissionDenied, err)
	})

	t.Run("invalid record", func(t *testing.T) {
		ng := newGradeRecord("std2", 101)
		_, err := svc.Create(ctx, ng, faculty)
		assert.Error(t, err)
	})
}

func Test_Service_Update(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	rec := createGradeRecord(t, svc, "std1", 72, faculty)

	num := 91.0
	updated, err := svc.Update(ctx, rec.ID, grade.UpdateGradeRecord{NumericalGrade: &num, Comment: "regrade"}, faculty)
	require.NoError(t, err)
	assert.Equal(t, 91.0, updated.NumericalGrade)
	assert.Equal(t, "A-", updated.FinalGrade)
	assert.Equal(t, rec.Version+1, updated.Version)

	t.Run("empty update is a no-op", func(t *testing.T) {
		same, err := svc.Update(ctx, rec.ID, grade.UpdateGradeRecord{}, faculty)
		require.NoError(t, err)
		assert.Equal(t, updated.Version, same.Version)
	})

	t.Run("stranger cannot edit", func(t *testing.T) {
		_, err := svc.Update(ctx, rec.ID, grade.UpdateGradeRecord{NumericalGrade: &num}, otherFaculty)
		assert.Equal(t, grade.ErrPermissionDenied, err)
	})

	t.Run("submitted record stays untouched", func(t *testing.T) {
		submitGradeRecord(t, svc, rec.ID, faculty)

		low := 50.0
		_, err := svc.Update(ctx, rec.ID, grade.UpdateGradeRecord{NumericalGrade: &low}, faculty)
		assert.True(t, grade.IsStateTransitionError(err))

		stored, err := svc.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, 91.0, stored.NumericalGrade)
	})

	t.Run("admin override edits past draft", func(t *testing.T) {
		corrected := 93.0
		stored, err := svc.Update(ctx, rec.ID, grade.UpdateGradeRecord{NumericalGrade: &corrected, Comment: "clerical fix"}, admin)
		require.NoError(t, err)
		assert.Equal(t, "A", stored.FinalGrade)
		assert.Equal(t, grade.StatusSubmitted, stored.Status) // status untouched
	})
}

func Test_Service_lifecycle(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	rec := createGradeRecord(t, svc, "std1", 85, faculty)

	t.Run("approve requires submission first", func(t *testing.T) {
		_, err := svc.Approve(ctx, rec.ID, "", registrar)
		assert.True(t, grade.IsStateTransitionError(err))
	})

	submitted := submitGradeRecord(t, svc, rec.ID, faculty)
	assert.Equal(t, grade.StatusSubmitted, submitted.Status)
	assert.Equal(t, faculty.ID, submitted.SubmittedBy)
	assert.False(t, submitted.SubmittedAt.IsZero())

	t.Run("faculty cannot approve", func(t *testing.T) {
		_, err := svc.Approve(ctx, rec.ID, "", faculty)
		assert.Equal(t, grade.ErrPermissionDenied, err)
	})

	t.Run("dispute and resubmit", func(t *testing.T) {
		disputed, err := svc.Dispute(ctx, rec.ID, "attendance mismatch", registrar)
		require.NoError(t, err)
		assert.Equal(t, grade.StatusDisputed, disputed.Status)

		resubmitted, err := svc.Submit(ctx, rec.ID, faculty)
		require.NoError(t, err)
		assert.Equal(t, grade.StatusSubmitted, resubmitted.Status)

		trail := db.History(rec.ID)
		last := trail[len(trail)-1]
		assert.Equal(t, grade.ActionSubmitted, last.Action)
		assert.Equal(t, "resubmitted after dispute", last.Comment)
	})

	approved, err := svc.Approve(ctx, rec.ID, "looks right", registrar)
	require.NoError(t, err)
	assert.Equal(t, grade.StatusApproved, approved.Status)
	assert.Equal(t, registrar.ID, approved.ApprovedBy)
	assert.False(t, approved.ApprovedAt.IsZero())

	final, err := svc.Finalize(ctx, rec.ID, registrar)
	require.NoError(t, err)
	assert.Equal(t, grade.StatusFinal, final.Status)

	t.Run("final is terminal", func(t *testing.T) {
		_, err := svc.Submit(ctx, rec.ID, faculty)
		assert.True(t, grade.IsStateTransitionError(err))
		_, err = svc.Finalize(ctx, rec.ID, registrar)
		assert.True(t, grade.IsStateTransitionError(err))
	})

	// full trail: created, submitted, disputed, submitted, approved, finalized
	trail := db.History(rec.ID)
	actions := make([]string, len(trail))
	for i, e := range trail {
		actions[i] = e.Action
	}
	assert.Equal(t, []string{
		grade.ActionCreated,
		grade.ActionSubmitted,
		grade.ActionDisputed,
		grade.ActionSubmitted,
		grade.ActionApproved,
		grade.ActionFinalized,
	}, actions)
}

// staleRepo fails every save as if another writer got there first.
type staleRepo struct {
	grade.Repository
}

func (staleRepo) SaveGradeRecord(ctx context.Context, rec grade.GradeRecord, expectedVersion int) (grade.GradeRecord, error) {
	return grade.GradeRecord{}, grade.ErrVersionConflict
}

func Test_Service_lostRaceLeavesNoAuditTrace(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	rec := createGradeRecord(t, svc, "std1", 85, faculty)
	require.Len(t, db.History(rec.ID), 1)

	conf := &core.Config{AppName: "Campus", TestMode: true}
	racing := grade.NewService(
		staleRepo{dummydb.NewGradeRepository(db)},
		dummydb.NewEnrollmentRepository(db),
		dummydb.NewAssignmentScoreRepository(db),
		dummydb.NewCourseRepository(db),
		dummydb.NewAuditSink(db),
		nil,
		conf,
	)

	_, err := racing.Submit(ctx, rec.ID, faculty)
	assert.Equal(t, grade.ErrVersionConflict, err)

	// rejected transition: record untouched, ledger untouched
	stored, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, grade.StatusDraft, stored.Status)
	assert.Len(t, db.History(rec.ID), 1)
}

func Test_Service_notifications(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	emailsvc.ClearSentMessages()

	rec := createGradeRecord(t, svc, "std1", 85, faculty)
	_, err := svc.Submit(ctx, rec.ID, faculty)
	require.NoError(t, err)

	require.Len(t, emailsvc.SentMessages, 1)
	msg := emailsvc.SentMessages[0]
	assert.Equal(t, "Grade submitted", msg.Subject)
	require.Len(t, msg.To, 1)
	assert.Equal(t, faculty.Email, msg.To[0].Address)
	assert.Contains(t, msg.Body, "CS101")

	_, err = svc.Approve(ctx, rec.ID, "", registrar)
	require.NoError(t, err)
	require.Len(t, emailsvc.SentMessages, 2)
	assert.Equal(t, "Grade approved", emailsvc.SentMessages[1].Subject)
	assert.Equal(t, registrar.Email, emailsvc.SentMessages[1].To[0].Address)
}

func Test_Service_Delete(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	rec := createGradeRecord(t, svc, "std1", 70, faculty)

	t.Run("stranger cannot delete", func(t *testing.T) {
		assert.Equal(t, grade.ErrPermissionDenied, svc.Delete(ctx, rec.ID, otherFaculty))
	})

	require.NoError(t, svc.Delete(ctx, rec.ID, faculty))
	_, err := svc.Get(ctx, rec.ID)
	assert.Equal(t, grade.ErrNotFound, err)

	// the audit trail survives the record
	trail := db.History(rec.ID)
	require.Len(t, trail, 2)
	assert.Equal(t, grade.ActionDeleted, trail[1].Action)
}

func Test_Service_Query(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	createGradeRecord(t, svc, "std1", 95, faculty)
	createGradeRecord(t, svc, "std2", 80, faculty)
	rec3 := createGradeRecord(t, svc, "std3", 55, faculty)
	submitGradeRecord(t, svc, rec3.ID, faculty)

	recs, err := svc.Query(ctx, grade.QueryFilter{CourseID: "CS101"})
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	recs, err = svc.Query(ctx, grade.QueryFilter{Status: grade.StatusSubmitted})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "std3", recs[0].StudentID)

	recs, err = svc.Query(ctx, grade.QueryFilter{StudentID: "std1", CourseID: "CS101"})
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	recs, err = svc.Query(ctx, grade.QueryFilter{CourseID: "MATH101"})
	require.NoError(t, err)
	assert.Empty(t, recs)
}
