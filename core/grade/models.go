package grade

import (
	"strings"
	"time"

	"github.com/umoja/campus/core"
)

// Actor roles. A role is a prefix so that sub-roles (eg. "admin:owner")
// inherit the base role's rights.
const (
	RoleFaculty   = "faculty:"
	RoleRegistrar = "registrar:"
	RoleAdmin     = "admin:"
)

// Actor is the authenticated user performing an engine operation,
// as carried by the caller's auth claims.
type Actor struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

func (a Actor) RoleStartsWith(prefix string) bool {
	for _, role := range a.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (a Actor) IsFaculty() bool   { return a.RoleStartsWith(RoleFaculty) }
func (a Actor) IsRegistrar() bool { return a.RoleStartsWith(RoleRegistrar) }
func (a Actor) IsAdmin() bool     { return a.RoleStartsWith(RoleAdmin) }

// CanApprove reports whether the actor holds the approval capability.
func (a Actor) CanApprove() bool { return a.IsRegistrar() || a.IsAdmin() }

// HasOverride reports whether the actor may perform administrative
// corrections on non-draft records.
func (a Actor) HasOverride() bool { return a.IsAdmin() }

type GradingMethod string

const (
	MethodLetter   GradingMethod = "letter"
	MethodPassFail GradingMethod = "pass_fail"
	MethodAudit    GradingMethod = "audit"
)

// Non-letter grade tokens.
const (
	GradePass  = "Pass"
	GradeFail  = "Fail"
	GradeAudit = "Audit"
)

func (m GradingMethod) Valid() bool {
	switch m {
	case MethodLetter, MethodPassFail, MethodAudit:
		return true
	}
	return false
}

// AcceptsToken reports whether token belongs to the method's final
// grade vocabulary.
func (m GradingMethod) AcceptsToken(token string) bool {
	switch m {
	case MethodPassFail:
		return token == GradePass || token == GradeFail
	case MethodAudit:
		return token == GradeAudit
	default:
		return IsLetterToken(token)
	}
}

// AssignmentGrade is one weighted assignment score contributing to the
// course grade.
type AssignmentGrade struct {
	AssignmentID string  `json:"assignment_id" validate:"required"`
	Weight       float64 `json:"weight" validate:"gte=0,lte=100"`
	Score        float64 `json:"score" validate:"gte=0"`
	MaxPoints    float64 `json:"max_points" validate:"gt=0"`
}

// HistoryEntry is one immutable audit trail entry. Entries are only
// ever appended, never updated or removed.
type HistoryEntry struct {
	Action        string    `json:"action"`
	Actor         string    `json:"actor"`
	PreviousGrade string    `json:"previous_grade,omitempty"`
	NewGrade      string    `json:"new_grade,omitempty"`
	Comment       string    `json:"comment,omitempty"`
	Timestamp     time.Time `json:"timestamp"` // UTC
}

// GradeRecord is one student's course grade for a period. Exactly one
// record exists per (student, course, semester, academic year).
type GradeRecord struct {
	ID           string `json:"id"`
	StudentID    string `json:"student_id" validate:"required"`
	CourseID     string `json:"course_id" validate:"required"`
	FacultyID    string `json:"faculty_id" validate:"required"`
	Semester     int    `json:"semester" validate:"required,gte=1,lte=4"`
	AcademicYear string `json:"academic_year" validate:"required,academic_year"`

	GradingMethod  GradingMethod `json:"grading_method" validate:"required,oneof=letter pass_fail audit"`
	FinalGrade     string        `json:"final_grade"`
	NumericalGrade float64       `json:"numerical_grade" validate:"gte=0,lte=100"`
	GradePoints    float64       `json:"grade_points" validate:"gte=0,lte=4"`
	Credits        int           `json:"credits" validate:"required,gte=1"`
	QualityPoints  float64       `json:"quality_points"`

	AssignmentGrades []AssignmentGrade `json:"assignment_grades" validate:"omitempty,dive"`
	Attendance       *float64          `json:"attendance,omitempty" validate:"omitempty,gte=0,lte=100"`
	Participation    *float64          `json:"participation,omitempty" validate:"omitempty,gte=0,lte=100"`
	FacultyComments  string            `json:"faculty_comments,omitempty"`

	Status      Status    `json:"status" validate:"required,oneof=draft submitted approved disputed final"`
	SubmittedBy string    `json:"submitted_by,omitempty"`
	SubmittedAt time.Time `json:"submitted_at,omitempty"` // UTC
	ApprovedBy  string    `json:"approved_by,omitempty"`
	ApprovedAt  time.Time `json:"approved_at,omitempty"` // UTC

	History []HistoryEntry `json:"history,omitempty"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC

	// Version backs the optimistic concurrency check on every save.
	Version int `json:"version"`
}

// Normalize recomputes the derived grade fields from NumericalGrade:
// FinalGrade and GradePoints through the grade scale, QualityPoints as
// GradePoints x Credits. They are never set independently.
func (r *GradeRecord) Normalize() {
	if r.GradingMethod == "" {
		r.GradingMethod = MethodLetter
	}
	switch r.GradingMethod {
	case MethodPassFail:
		if r.NumericalGrade >= PassingBound {
			r.FinalGrade = GradePass
		} else {
			r.FinalGrade = GradeFail
		}
		r.GradePoints = 0
	case MethodAudit:
		r.FinalGrade = GradeAudit
		r.GradePoints = 0
	default:
		r.FinalGrade = LetterOf(r.NumericalGrade)
		r.GradePoints = PointsOf(r.NumericalGrade)
	}
	r.QualityPoints = r.GradePoints * float64(r.Credits)
}

// Validate normalizes the record and checks every field-level
// invariant. It never mutates the receiver or its lifecycle status;
// the normalized copy is returned on success.
func (r GradeRecord) Validate() (GradeRecord, error) {
	if r.Status == "" {
		r.Status = StatusDraft
	}
	r.Normalize()
	if err := core.Validate.Struct(r); err != nil {
		return GradeRecord{}, err
	}
	return r, nil
}

// CountsTowardGPA reports whether the record's points should weigh into
// grade point averages. Pass/fail and audit records carry no points.
func (r GradeRecord) CountsTowardGPA() bool {
	return r.GradingMethod == MethodLetter
}

// NewGradeRecord contains information needed to create a GradeRecord.
type NewGradeRecord struct {
	StudentID        string            `json:"student_id" validate:"required"`
	CourseID         string            `json:"course_id" validate:"required"`
	FacultyID        string            `json:"faculty_id"`
	Semester         int               `json:"semester" validate:"required,gte=1,lte=4"`
	AcademicYear     string            `json:"academic_year" validate:"required,academic_year"`
	GradingMethod    GradingMethod     `json:"grading_method" validate:"omitempty,oneof=letter pass_fail audit"`
	NumericalGrade   float64           `json:"numerical_grade" validate:"gte=0,lte=100"`
	Credits          int               `json:"credits" validate:"required,gte=1"`
	AssignmentGrades []AssignmentGrade `json:"assignment_grades" validate:"omitempty,dive"`
	Attendance       *float64          `json:"attendance" validate:"omitempty,gte=0,lte=100"`
	Participation    *float64          `json:"participation" validate:"omitempty,gte=0,lte=100"`
	FacultyComments  string            `json:"faculty_comments"`
}

func (ng *NewGradeRecord) Validate() error {
	ng.StudentID = core.CleanString(ng.StudentID)
	ng.CourseID = core.CleanString(ng.CourseID)
	ng.FacultyID = core.CleanString(ng.FacultyID)
	ng.AcademicYear = core.CleanString(ng.AcademicYear)
	ng.FacultyComments = core.CleanString(ng.FacultyComments)
	if ng.GradingMethod == "" {
		ng.GradingMethod = MethodLetter
	}
	return core.Validate.Struct(ng)
}

// UpdateGradeRecord defines what may be modified on a draft record
// (or any record, for an actor with override). Nil fields are left
// unchanged.
type UpdateGradeRecord struct {
	NumericalGrade   *float64          `json:"numerical_grade" validate:"omitempty,gte=0,lte=100"`
	GradingMethod    GradingMethod     `json:"grading_method" validate:"omitempty,oneof=letter pass_fail audit"`
	Credits          *int              `json:"credits" validate:"omitempty,gte=1"`
	AssignmentGrades []AssignmentGrade `json:"assignment_grades" validate:"omitempty,dive"`
	Attendance       *float64          `json:"attendance" validate:"omitempty,gte=0,lte=100"`
	Participation    *float64          `json:"participation" validate:"omitempty,gte=0,lte=100"`
	FacultyComments  *string           `json:"faculty_comments"`
	Comment          string            `json:"comment"`
}

func (ug *UpdateGradeRecord) Validate() error {
	ug.Comment = core.CleanString(ug.Comment)
	return core.Validate.Struct(ug)
}

func (ug *UpdateGradeRecord) IsEmpty() bool {
	return ug.NumericalGrade == nil && ug.GradingMethod == "" && ug.Credits == nil &&
		ug.AssignmentGrades == nil && ug.Attendance == nil && ug.Participation == nil &&
		ug.FacultyComments == nil
}

// QueryFilter applies AND on its set fields when querying records.
type QueryFilter struct {
	StudentID    string `query:"student_id"`
	CourseID     string `query:"course_id"`
	FacultyID    string `query:"faculty_id"`
	Semester     int    `query:"semester"`
	AcademicYear string `query:"academic_year"`
	Status       Status `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.CourseID == "" && qf.FacultyID == "" &&
		qf.Semester == 0 && qf.AcademicYear == "" && qf.Status == ""
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.CourseID = core.CleanString(qf.CourseID)
	qf.FacultyID = core.CleanString(qf.FacultyID)
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
}
