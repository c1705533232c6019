package grade

import (
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/umoja/campus/core"
)

var (
	academicYearTag   = "academic_year"
	academicYearText  = "academic year must be two consecutive years in the form YYYY-YYYY"
	academicYearRegex = regexp.MustCompile(`^\d{4}-\d{4}$`)

	gradeVocabTag  = "grade_vocab"
	gradeVocabText = "final grade is not in the grading method's vocabulary"
)

func init() {
	_ = core.Validate.RegisterValidation(academicYearTag, academicYearValidation)
	core.RegisterCustomTranslation(academicYearTag, academicYearText)

	core.Validate.RegisterStructValidation(gradeRecordStructValidation, GradeRecord{})
	core.RegisterCustomTranslation(gradeVocabTag, gradeVocabText)
}

// Custom Validators

// academicYearValidation checks the "YYYY-YYYY" format with consecutive years.
func academicYearValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !academicYearRegex.MatchString(s) {
		return false
	}
	first, _ := strconv.Atoi(s[:4])
	second, _ := strconv.Atoi(s[5:])
	return second == first+1
}

// gradeRecordStructValidation checks cross-field invariants on GradeRecord:
// the final grade token must belong to the grading method's vocabulary.
func gradeRecordStructValidation(sl validator.StructLevel) {
	rec, ok := sl.Current().Interface().(GradeRecord)
	if !ok {
		return
	}
	if rec.FinalGrade != "" && rec.GradingMethod.Valid() && !rec.GradingMethod.AcceptsToken(rec.FinalGrade) {
		sl.ReportError(rec.FinalGrade, "final_grade", "FinalGrade", gradeVocabTag, "")
	}
}
