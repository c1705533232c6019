package grade

// gradeBand maps a numerical lower bound (inclusive) to a letter token
// and its grade points.
type gradeBand struct {
	Bound  float64
	Letter string
	Points float64
}

// gradeScale is the fixed boundary table, highest bound first.
// A numerical grade belongs to the first band whose bound it reaches;
// anything below 60 is an F.
var gradeScale = []gradeBand{
	{97, "A+", 4.0},
	{93, "A", 4.0},
	{90, "A-", 3.7},
	{87, "B+", 3.3},
	{83, "B", 3.0},
	{80, "B-", 2.7},
	{77, "C+", 2.3},
	{73, "C", 2.0},
	{70, "C-", 1.7},
	{67, "D+", 1.3},
	{63, "D", 1.0},
	{60, "D-", 0.7},
}

var failingBand = gradeBand{0, "F", 0.0}

// PassingBound is the lowest numerical grade that is not an F;
// it also decides Pass vs Fail for pass_fail records.
const PassingBound = 60.0

// LetterTokens is the closed letter vocabulary, best first.
var LetterTokens = letterTokens()

func letterTokens() []string {
	tokens := make([]string, 0, len(gradeScale)+1)
	for _, band := range gradeScale {
		tokens = append(tokens, band.Letter)
	}
	return append(tokens, failingBand.Letter)
}

func bandOf(numerical float64) gradeBand {
	for _, band := range gradeScale {
		if numerical >= band.Bound {
			return band
		}
	}
	return failingBand
}

// LetterOf returns the letter token for a numerical grade.
func LetterOf(numerical float64) string {
	return bandOf(numerical).Letter
}

// PointsOf returns the grade points for a numerical grade.
func PointsOf(numerical float64) float64 {
	return bandOf(numerical).Points
}

// IsLetterToken reports whether s is one of the 13 letter tokens.
func IsLetterToken(s string) bool {
	for _, token := range LetterTokens {
		if s == token {
			return true
		}
	}
	return false
}
