package submission

import (
	"errors"
	"math"
	"strconv"
)

// ErrScoreOutOfRange indicates a score below zero or above the assignment points.
var ErrScoreOutOfRange = errors.New("score must be between 0 and the assignment points")

// GradePercentage returns round(score / points * 100). ok is false when points
// is not positive.
func GradePercentage(score, points float64) (int, bool) {
	if points <= 0 || math.IsNaN(score) {
		return 0, false
	}
	return int(math.Round(score / points * 100)), true
}

// FormatPercentage renders the grade percentage, or "N/A" when it is undefined.
func FormatPercentage(score, points float64) string {
	pct, ok := GradePercentage(score, points)
	if !ok {
		return "N/A"
	}
	return strconv.Itoa(pct) + "%"
}

// FormatScore renders "score/points".
func FormatScore(score, points float64) string {
	return formatNumber(score) + "/" + formatNumber(points)
}

// ValidateScore checks 0 <= score <= points. A non-positive points value only
// enforces the lower bound.
func ValidateScore(score, points float64) error {
	if math.IsNaN(score) || score < 0 {
		return ErrScoreOutOfRange
	}
	if points > 0 && score > points+1e-9 {
		return ErrScoreOutOfRange
	}
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
