package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// smallAngle is the threshold below which the pose exponential and logarithm switch
// to their Taylor expansions.
const smallAngle = 1e-9

// Pose2D is a position on the field (meters) with a heading (radians, counter-clockwise
// positive, wrapped to (-π, π]).
type Pose2D struct {
	Translation r2.Point
	Heading     float64
}

// NewPose2D returns a pose with its heading wrapped.
func NewPose2D(x, y, heading float64) Pose2D {
	return Pose2D{Translation: r2.Point{X: x, Y: y}, Heading: WrapAngle(heading)}
}

// X returns the x coordinate in meters.
func (p Pose2D) X() float64 { return p.Translation.X }

// Y returns the y coordinate in meters.
func (p Pose2D) Y() float64 { return p.Translation.Y }

// TransformBy composes the pose with a transform expressed in the pose's own frame.
func (p Pose2D) TransformBy(t Transform2D) Pose2D {
	return Pose2D{
		Translation: p.Translation.Add(Rotate(t.Translation, p.Heading)),
		Heading:     WrapAngle(p.Heading + t.Rotation),
	}
}

// Minus returns the transform that takes other to p, expressed in other's frame.
func (p Pose2D) Minus(other Pose2D) Transform2D {
	return Transform2D{
		Translation: Rotate(p.Translation.Sub(other.Translation), -other.Heading),
		Rotation:    AngleDiff(p.Heading, other.Heading),
	}
}

// Exp applies a constant-curvature twist to the pose.
func (p Pose2D) Exp(twist Twist2D) Pose2D {
	sinTheta := math.Sin(twist.DTheta)
	cosTheta := math.Cos(twist.DTheta)

	var s, c float64
	if math.Abs(twist.DTheta) < smallAngle {
		s = 1 - twist.DTheta*twist.DTheta/6
		c = 0.5 * twist.DTheta
	} else {
		s = sinTheta / twist.DTheta
		c = (1 - cosTheta) / twist.DTheta
	}
	return p.TransformBy(Transform2D{
		Translation: r2.Point{X: twist.DX*s - twist.DY*c, Y: twist.DX*c + twist.DY*s},
		Rotation:    math.Atan2(sinTheta, cosTheta),
	})
}

// Log returns the constant-curvature twist that takes p to end.
func (p Pose2D) Log(end Pose2D) Twist2D {
	transform := end.Minus(p)
	dTheta := transform.Rotation
	halfDTheta := dTheta / 2
	cosMinusOne := math.Cos(dTheta) - 1

	var halfThetaByTanOfHalfDTheta float64
	if math.Abs(cosMinusOne) < smallAngle {
		halfThetaByTanOfHalfDTheta = 1 - dTheta*dTheta/12
	} else {
		halfThetaByTanOfHalfDTheta = -(halfDTheta * math.Sin(dTheta)) / cosMinusOne
	}

	angle := math.Atan2(-halfDTheta, halfThetaByTanOfHalfDTheta)
	scale := math.Hypot(halfThetaByTanOfHalfDTheta, halfDTheta)
	translation := Rotate(transform.Translation, angle).Mul(scale)
	return Twist2D{DX: translation.X, DY: translation.Y, DTheta: dTheta}
}

// String formats the pose the way the drivetrain logs it.
func (p Pose2D) String() string {
	return fmt.Sprintf("(%.3fm, %.3fm, %.2f deg)", p.X(), p.Y(), RadToDeg(p.Heading))
}

// Transform2D is a relative displacement: a translation (meters) in the starting frame
// followed by a rotation (radians).
type Transform2D struct {
	Translation r2.Point
	Rotation    float64
}

// NewTransform2D builds a transform from its components.
func NewTransform2D(dx, dy, dHeading float64) Transform2D {
	return Transform2D{Translation: r2.Point{X: dx, Y: dy}, Rotation: dHeading}
}

// IsZero reports whether the transform moves nothing.
func (t Transform2D) IsZero() bool {
	return t.Translation.X == 0 && t.Translation.Y == 0 && t.Rotation == 0
}

// String formats the transform.
func (t Transform2D) String() string {
	return fmt.Sprintf("Transform2D(%.3fm, %.3fm, %.2f deg)", t.Translation.X, t.Translation.Y, RadToDeg(t.Rotation))
}

// Twist2D is a displacement along a constant-curvature arc, in the frame of its start.
type Twist2D struct {
	DX     float64
	DY     float64
	DTheta float64
}

// Rotate rotates a vector counter-clockwise by radians.
func Rotate(v r2.Point, radians float64) r2.Point {
	sin, cos := math.Sincos(radians)
	return r2.Point{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos}
}
