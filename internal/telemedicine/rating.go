package telemedicine

import (
	"math"
	"strconv"
)

// Rating is a doctor score in [0, 10] with two decimal places.
type Rating struct {
	value float64
}

// NewRating validates and rounds v.
func NewRating(v float64) (Rating, error) {
	if math.IsNaN(v) || v < 0 || v > 10 {
		return Rating{}, NewValidationError("rating", "the rating value must be between 0 and 10")
	}
	return Rating{value: roundTo(v, 2)}, nil
}

// Value returns the rounded score.
func (r Rating) Value() float64 {
	return r.value
}

func (r Rating) String() string {
	return strconv.FormatFloat(r.value, 'f', -1, 64)
}

// MarshalJSON renders the rating as a bare number.
func (r Rating) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(r.value, 'f', -1, 64)), nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
