// Package spatialmath defines planar poses, transforms and twists for a ground robot,
// along with the angle arithmetic the controllers rely on.
package spatialmath

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// InputModulus wraps input into the range [minimum, maximum).
func InputModulus(input, minimum, maximum float64) float64 {
	modulus := maximum - minimum
	if modulus <= 0 {
		return input
	}
	wrapped := math.Mod(input-minimum, modulus)
	if wrapped < 0 {
		wrapped += modulus
	}
	return wrapped + minimum
}

// WrapAngle returns the equivalent of radians in (-π, π].
func WrapAngle(radians float64) float64 {
	wrapped := InputModulus(radians, -math.Pi, math.Pi)
	if wrapped == -math.Pi {
		return math.Pi
	}
	return wrapped
}

// AngleDiff returns the shortest signed angular distance that takes measured to goal,
// in (-π, π].
func AngleDiff(goal, measured float64) float64 {
	return WrapAngle(goal - measured)
}
