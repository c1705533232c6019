package grade

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/umoja/campus/core"
)

var (
	// errors
	ErrNotFound         = errors.New("grade record not found")
	ErrDuplicate        = errors.New("a grade record already exists for this student, course and period")
	ErrPermissionDenied = errors.New("permission denied")
	ErrVersionConflict  = errors.New("grade record was modified concurrently")
)

type (
	// Repository is the record store. Implementations map their native
	// not-found / duplicate-key / stale-version failures to ErrNotFound,
	// ErrDuplicate and ErrVersionConflict.
	Repository interface {
		CreateGradeRecord(ctx context.Context, rec GradeRecord) (GradeRecord, error)
		GetGradeRecord(ctx context.Context, id string) (GradeRecord, error)
		FindGradeRecord(ctx context.Context, studentID, courseID string, semester int, academicYear string) (GradeRecord, error)
		// SaveGradeRecord persists rec only if the stored version still
		// equals expectedVersion, bumping the version on success.
		SaveGradeRecord(ctx context.Context, rec GradeRecord, expectedVersion int) (GradeRecord, error)
		DeleteGradeRecord(ctx context.Context, id string) error
		// QueryGradeRecords applies AND on available QueryFilter fields.
		QueryGradeRecords(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]GradeRecord, error)
	}

	// EnrollmentProvider lists the students enrolled in a course for a period.
	EnrollmentProvider interface {
		ListEnrolledStudents(ctx context.Context, courseID string, semester int, academicYear string) ([]string, error)
	}

	// AssignmentScoreProvider lists a student's weighted assignment scores.
	AssignmentScoreProvider interface {
		ListAssignmentScores(ctx context.Context, studentID, courseID string) ([]AssignmentGrade, error)
	}

	// CourseConfigProvider exposes course-level grading configuration.
	CourseConfigProvider interface {
		GetCreditHours(ctx context.Context, courseID string) (int, error)
	}

	// AuditSink receives every history entry. Appends are durable and
	// survive record deletion.
	AuditSink interface {
		AppendHistory(ctx context.Context, gradeID string, entry HistoryEntry) error
	}

	Service struct {
		repo       Repository
		enrollment EnrollmentProvider
		scores     AssignmentScoreProvider
		courses    CourseConfigProvider
		audit      AuditSink
		mailSvc    core.EmailService
		conf       *core.Config
	}
)

func NewService(
	repo Repository,
	enrollment EnrollmentProvider,
	scores AssignmentScoreProvider,
	courses CourseConfigProvider,
	audit AuditSink,
	mailSvc core.EmailService,
	conf *core.Config,
) *Service {
	return &Service{
		repo:       repo,
		enrollment: enrollment,
		scores:     scores,
		courses:    courses,
		audit:      audit,
		mailSvc:    mailSvc,
		conf:       conf,
	}
}

func newRecordID() string { return uuid.New().String() }

// canManage reports whether the actor created the record or is the
// assigned faculty (override capability always qualifies).
func (svc *Service) canManage(rec GradeRecord, actor Actor) bool {
	return actor.ID == rec.CreatedBy || actor.ID == rec.FacultyID || actor.HasOverride()
}

func newHistoryEntry(action string, actor Actor, prevGrade, newGrade, comment string) HistoryEntry {
	return HistoryEntry{
		Action:        action,
		Actor:         actor.ID,
		PreviousGrade: prevGrade,
		NewGrade:      newGrade,
		Comment:       comment,
		Timestamp:     time.Now().UTC(),
	}
}

// appendHistory appends the entry to the record and to the audit sink.
// The sink write is part of the operation: a sink failure fails the op.
func (svc *Service) appendHistory(ctx context.Context, rec *GradeRecord, entry HistoryEntry) error {
	rec.History = append(rec.History, entry)
	if svc.audit != nil {
		return svc.audit.AppendHistory(ctx, rec.ID, entry)
	}
	return nil
}

// saveWithHistory persists the record under the optimistic version check
// and mirrors the entry to the audit sink only once the save is accepted.
// A stale save must leave the ledger without a trace of the transition.
func (svc *Service) saveWithHistory(ctx context.Context, rec GradeRecord, entry HistoryEntry) (GradeRecord, error) {
	rec.History = append(rec.History, entry)
	saved, err := svc.repo.SaveGradeRecord(ctx, rec, rec.Version)
	if err != nil {
		return GradeRecord{}, err
	}
	if svc.audit != nil {
		if err := svc.audit.AppendHistory(ctx, saved.ID, entry); err != nil {
			return GradeRecord{}, err
		}
	}
	return saved, nil
}

func (svc *Service) notify(actor Actor, subject, body string) {
	if svc.mailSvc == nil || actor.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: actor.Name, Address: actor.Email}},
		Subject: subject,
		Body:    body,
	})
}

// Create creates a GradeRecord in draft for the actor. The actor must
// hold a faculty (or admin) role; duplicates on the
// (student, course, semester, year) key are rejected.
func (svc *Service) Create(ctx context.Context, ng NewGradeRecord, actor Actor) (GradeRecord, error) {
	if !actor.IsFaculty() && !actor.IsAdmin() {
		return GradeRecord{}, ErrPermissionDenied
	}
	if err := ng.Validate(); err != nil {
		return GradeRecord{}, err
	}

	if _, err := svc.repo.FindGradeRecord(ctx, ng.StudentID, ng.CourseID, ng.Semester, ng.AcademicYear); err == nil {
		return GradeRecord{}, ErrDuplicate
	} else if err != ErrNotFound {
		return GradeRecord{}, err
	}

	facultyID := ng.FacultyID
	if facultyID == "" {
		facultyID = actor.ID
	}

	now := time.Now().UTC()
	rec := GradeRecord{
		ID:               newRecordID(),
		StudentID:        ng.StudentID,
		CourseID:         ng.CourseID,
		FacultyID:        facultyID,
		Semester:         ng.Semester,
		AcademicYear:     ng.AcademicYear,
		GradingMethod:    ng.GradingMethod,
		NumericalGrade:   ng.NumericalGrade,
		Credits:          ng.Credits,
		AssignmentGrades: ng.AssignmentGrades,
		Attendance:       ng.Attendance,
		Participation:    ng.Participation,
		FacultyComments:  ng.FacultyComments,
		Status:           StatusDraft,
		CreatedBy:        actor.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	rec.Normalize()

	rec, err := svc.repo.CreateGradeRecord(ctx, rec)
	if err != nil {
		return GradeRecord{}, err
	}
	if err := svc.appendHistory(ctx, &rec, newHistoryEntry(ActionCreated, actor, "", rec.FinalGrade, "")); err != nil {
		return GradeRecord{}, err
	}
	return rec, nil
}

// Update edits a record's grade fields. Only draft records may be
// edited unless the actor holds the override capability; on any error
// the stored record is left untouched.
func (svc *Service) Update(ctx context.Context, id string, ug UpdateGradeRecord, actor Actor) (GradeRecord, error) {
	if err := ug.Validate(); err != nil {
		return GradeRecord{}, err
	}

	rec, err := svc.repo.GetGradeRecord(ctx, id)
	if err != nil {
		return GradeRecord{}, err
	}
	if !svc.canManage(rec, actor) {
		return GradeRecord{}, ErrPermissionDenied
	}
	if rec.Status != StatusDraft && !actor.HasOverride() {
		return GradeRecord{}, &StateTransitionError{
			From:   rec.Status,
			To:     rec.Status,
			Reason: fmt.Sprintf("record in status %q can only be edited in draft", rec.Status),
		}
	}
	if ug.IsEmpty() {
		return rec, nil
	}

	prevGrade := rec.FinalGrade
	if ug.NumericalGrade != nil {
		rec.NumericalGrade = *ug.NumericalGrade
	}
	if ug.GradingMethod != "" {
		rec.GradingMethod = ug.GradingMethod
	}
	if ug.Credits != nil {
		rec.Credits = *ug.Credits
	}
	if ug.AssignmentGrades != nil {
		rec.AssignmentGrades = ug.AssignmentGrades
	}
	if ug.Attendance != nil {
		rec.Attendance = ug.Attendance
	}
	if ug.Participation != nil {
		rec.Participation = ug.Participation
	}
	if ug.FacultyComments != nil {
		rec.FacultyComments = core.CleanString(*ug.FacultyComments)
	}
	rec.Normalize()
	rec.UpdatedAt = time.Now().UTC()

	return svc.saveWithHistory(ctx, rec, newHistoryEntry(ActionUpdated, actor, prevGrade, rec.FinalGrade, ug.Comment))
}

// submitOne runs the draft -> submitted (or disputed -> submitted)
// transition for one record without notifying.
func (svc *Service) submitOne(ctx context.Context, id string, actor Actor) (GradeRecord, error) {
	rec, err := svc.repo.GetGradeRecord(ctx, id)
	if err != nil {
		return GradeRecord{}, err
	}
	if !svc.canManage(rec, actor) {
		return GradeRecord{}, ErrPermissionDenied
	}
	if !rec.Status.CanTransitionTo(StatusSubmitted) {
		return GradeRecord{}, newTransitionErr(rec.Status, StatusSubmitted)
	}
	if _, err := rec.Validate(); err != nil {
		return GradeRecord{}, err
	}

	now := time.Now().UTC()
	prevStatus := rec.Status
	rec.Status = StatusSubmitted
	rec.SubmittedBy = actor.ID
	rec.SubmittedAt = now
	rec.UpdatedAt = now

	comment := ""
	if prevStatus == StatusDisputed {
		comment = "resubmitted after dispute"
	}
	return svc.saveWithHistory(ctx, rec, newHistoryEntry(ActionSubmitted, actor, rec.FinalGrade, rec.FinalGrade, comment))
}

// Submit transitions a record to submitted. The actor must be the
// creator or the assigned faculty and the record must validate.
func (svc *Service) Submit(ctx context.Context, id string, actor Actor) (GradeRecord, error) {
	rec, err := svc.submitOne(ctx, id, actor)
	if err != nil {
		return GradeRecord{}, err
	}
	svc.notify(actor, "Grade submitted",
		fmt.Sprintf("The grade for student %s in course %s (%s, semester %d) was submitted for approval.",
			rec.StudentID, rec.CourseID, rec.AcademicYear, rec.Semester))
	return rec, nil
}

// review runs the submitted -> approved|disputed transition.
func (svc *Service) review(ctx context.Context, id string, target Status, action, comment string, actor Actor) (GradeRecord, error) {
	rec, err := svc.repo.GetGradeRecord(ctx, id)
	if err != nil {
		return GradeRecord{}, err
	}
	if !actor.CanApprove() {
		return GradeRecord{}, ErrPermissionDenied
	}
	if !rec.Status.CanTransitionTo(target) {
		return GradeRecord{}, newTransitionErr(rec.Status, target)
	}

	now := time.Now().UTC()
	rec.Status = target
	rec.UpdatedAt = now
	if target == StatusApproved {
		rec.ApprovedBy = actor.ID
		rec.ApprovedAt = now
	}

	rec, err = svc.saveWithHistory(ctx, rec, newHistoryEntry(action, actor, rec.FinalGrade, rec.FinalGrade, comment))
	if err != nil {
		return GradeRecord{}, err
	}
	svc.notify(actor, fmt.Sprintf("Grade %s", action),
		fmt.Sprintf("The grade for student %s in course %s is now %s.", rec.StudentID, rec.CourseID, rec.Status))
	return rec, nil
}

// Approve moves a submitted record to approved. Requires the approval
// capability.
func (svc *Service) Approve(ctx context.Context, id, comment string, actor Actor) (GradeRecord, error) {
	return svc.review(ctx, id, StatusApproved, ActionApproved, comment, actor)
}

// Dispute moves a submitted record to disputed. Requires the approval
// capability.
func (svc *Service) Dispute(ctx context.Context, id, comment string, actor Actor) (GradeRecord, error) {
	return svc.review(ctx, id, StatusDisputed, ActionDisputed, comment, actor)
}

// Finalize moves an approved record to its terminal final status.
func (svc *Service) Finalize(ctx context.Context, id string, actor Actor) (GradeRecord, error) {
	rec, err := svc.repo.GetGradeRecord(ctx, id)
	if err != nil {
		return GradeRecord{}, err
	}
	if !actor.CanApprove() {
		return GradeRecord{}, ErrPermissionDenied
	}
	if !rec.Status.CanTransitionTo(StatusFinal) {
		return GradeRecord{}, newTransitionErr(rec.Status, StatusFinal)
	}

	rec.Status = StatusFinal
	rec.UpdatedAt = time.Now().UTC()
	return svc.saveWithHistory(ctx, rec, newHistoryEntry(ActionFinalized, actor, rec.FinalGrade, rec.FinalGrade, ""))
}

// Delete removes a record. Only its creator or the assigned faculty may
// delete it; a "deleted" history entry reaches the audit sink before
// the record becomes unretrievable.
func (svc *Service) Delete(ctx context.Context, id string, actor Actor) error {
	rec, err := svc.repo.GetGradeRecord(ctx, id)
	if err != nil {
		return err
	}
	if !svc.canManage(rec, actor) {
		return ErrPermissionDenied
	}
	if err := svc.appendHistory(ctx, &rec, newHistoryEntry(ActionDeleted, actor, rec.FinalGrade, "", "")); err != nil {
		return err
	}
	return svc.repo.DeleteGradeRecord(ctx, id)
}

func (svc *Service) Get(ctx context.Context, id string) (GradeRecord, error) {
	return svc.repo.GetGradeRecord(ctx, id)
}

func (svc *Service) Find(ctx context.Context, studentID, courseID string, semester int, academicYear string) (GradeRecord, error) {
	return svc.repo.FindGradeRecord(ctx, studentID, courseID, semester, academicYear)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]GradeRecord, error) {
	filter.Clean()
	return svc.repo.QueryGradeRecords(ctx, filter, ordering)
}
