package plan

import "math"

// riegelExponent is the fatigue factor in Riegel's race time prediction t2 = t1 * (d2/d1)^1.06.
const riegelExponent = 1.06

// distanceKm returns the race distance a pace reference stands for.
func (r PaceRef) distanceKm() float64 {
	switch r {
	case PaceRef5K:
		return 5 //nolint:mnd // 5K.
	case PaceRef10K:
		return 10 //nolint:mnd // 10K.
	case PaceRefNone:
	}
	return 0
}

// RaceTime returns the personal best for ref in seconds. A missing personal best is predicted from the other one,
// and 0 is returned when neither is known.
func (pb PersonalBests) RaceTime(ref PaceRef) int {
	var known, other int
	var otherRef PaceRef
	switch ref {
	case PaceRef5K:
		known, other, otherRef = pb.FiveK, pb.TenK, PaceRef10K
	case PaceRef10K:
		known, other, otherRef = pb.TenK, pb.FiveK, PaceRef5K
	case PaceRefNone:
		return 0
	}
	if known > 0 {
		return known
	}
	if other <= 0 {
		return 0
	}
	ratio := ref.distanceKm() / otherRef.distanceKm()
	return int(math.Round(float64(other) * math.Pow(ratio, riegelExponent)))
}

// TargetPace calibrates the template's pace reference against personal bests. The result is seconds per kilometre
// or 0 when the template has no pace reference or no personal best is known.
func TargetPace(t WorkoutTemplate, pb PersonalBests) int {
	raceTime := pb.RaceTime(t.PaceRef)
	if raceTime == 0 || t.PaceFactor <= 0 {
		return 0
	}
	return int(math.Round(float64(raceTime) / t.PaceRef.distanceKm() * t.PaceFactor))
}
