package models

import (
	"fmt"
	"strconv"
	"strings"

	appErrors "github.com/noah-isme/ccrm/pkg/errors"
)

// Grade is a letter grade on a 10-point scale.
type Grade string

// Letter grades from best to worst. GradeIncomplete marks an ungraded enrollment.
const (
	GradeS          Grade = "S"
	GradeA          Grade = "A"
	GradeB          Grade = "B"
	GradeC          Grade = "C"
	GradeD          Grade = "D"
	GradeE          Grade = "E"
	GradeF          Grade = "F"
	GradeIncomplete Grade = "I"
)

var gradePoints = map[Grade]int{
	GradeS: 10,
	GradeA: 9,
	GradeB: 8,
	GradeC: 7,
	GradeD: 6,
	GradeE: 5,
	GradeF: 0,
}

// Points returns the grade point value. Incomplete has no points.
func (g Grade) Points() int {
	return gradePoints[g]
}

// Counted reports whether the grade takes part in GPA averaging.
func (g Grade) Counted() bool {
	_, ok := gradePoints[g]
	return ok
}

// GradeBand assigns Grade to marks at or above MinMarks.
type GradeBand struct {
	Grade    Grade
	MinMarks int
}

// GradeScale maps marks in [0,100] to letter grades. Bands are ordered by descending MinMarks.
type GradeScale struct {
	bands []GradeBand
}

// DefaultGradeScale is 90+=S, 80=A, 70=B, 60=C, 50=D, 40=E, below 40=F.
func DefaultGradeScale() GradeScale {
	return GradeScale{bands: []GradeBand{
		{GradeS, 90},
		{GradeA, 80},
		{GradeB, 70},
		{GradeC, 60},
		{GradeD, 50},
		{GradeE, 40},
		{GradeF, 0},
	}}
}

// NewGradeScale validates bands into a total, non-overlapping partition of [0,100].
func NewGradeScale(bands []GradeBand) (GradeScale, error) {
	if len(bands) == 0 {
		return GradeScale{}, appErrors.Clone(appErrors.ErrValidation, "grade scale needs at least one band")
	}
	for i, band := range bands {
		if !band.Grade.Counted() {
			return GradeScale{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade %q cannot be used in a scale", band.Grade))
		}
		if band.MinMarks < 0 || band.MinMarks > 100 {
			return GradeScale{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade %s cutpoint %d outside 0-100", band.Grade, band.MinMarks))
		}
		if i == 0 {
			continue
		}
		prev := bands[i-1]
		if band.MinMarks >= prev.MinMarks {
			return GradeScale{}, appErrors.Clone(appErrors.ErrValidation, "grade cutpoints must strictly descend")
		}
		if band.Grade.Points() > prev.Grade.Points() {
			return GradeScale{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade %s ranks above %s but has a lower cutpoint", band.Grade, prev.Grade))
		}
	}
	if bands[len(bands)-1].MinMarks != 0 {
		return GradeScale{}, appErrors.Clone(appErrors.ErrValidation, "lowest grade cutpoint must be 0")
	}
	copied := make([]GradeBand, len(bands))
	copy(copied, bands)
	return GradeScale{bands: copied}, nil
}

// ParseGradeScale reads "S:90,A:80,...,F:0".
func ParseGradeScale(raw string) (GradeScale, error) {
	parts := strings.Split(raw, ",")
	bands := make([]GradeBand, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		letter, cutpoint, ok := strings.Cut(part, ":")
		if !ok {
			return GradeScale{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("malformed grade cutpoint %q", part))
		}
		value, err := strconv.Atoi(strings.TrimSpace(cutpoint))
		if err != nil {
			return GradeScale{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, fmt.Sprintf("malformed grade cutpoint %q", part))
		}
		bands = append(bands, GradeBand{Grade: Grade(strings.ToUpper(strings.TrimSpace(letter))), MinMarks: value})
	}
	return NewGradeScale(bands)
}

// GradeFor maps marks to a grade. Marks must already be within [0,100].
func (s GradeScale) GradeFor(marks int) Grade {
	bands := s.bands
	if len(bands) == 0 {
		bands = DefaultGradeScale().bands
	}
	for _, band := range bands {
		if marks >= band.MinMarks {
			return band.Grade
		}
	}
	return bands[len(bands)-1].Grade
}

// Bands returns a copy of the configured bands.
func (s GradeScale) Bands() []GradeBand {
	out := make([]GradeBand, len(s.bands))
	copy(out, s.bands)
	return out
}
