// Package kinematics converts between whole-robot velocities and the per-module
// states of a four-module swerve drive.
package kinematics

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ChassisSpeeds is a planar velocity: VX forward and VY left in meters per second, and
// Omega counter-clockwise in radians per second. The frame they are expressed in is up
// to the caller.
type ChassisSpeeds struct {
	VX    float64
	VY    float64
	Omega float64
}

// IsZero reports whether every component is zero.
func (s ChassisSpeeds) IsZero() bool {
	return s.VX == 0 && s.VY == 0 && s.Omega == 0
}

// String formats the speeds.
func (s ChassisSpeeds) String() string {
	return fmt.Sprintf("ChassisSpeeds(vx: %.3f m/s, vy: %.3f m/s, omega: %.3f rad/s)", s.VX, s.VY, s.Omega)
}

// ModuleState is the commanded wheel speed (m/s) and steering angle (radians) of one
// module.
type ModuleState struct {
	Speed float64
	Angle float64
}

// SwerveKinematics holds the module locations relative to the robot center, in meters.
type SwerveKinematics struct {
	locations []r2.Point
	inverse   *mat.Dense
}

// NewSwerveKinematics builds kinematics for modules at the given locations.
func NewSwerveKinematics(locations ...r2.Point) (*SwerveKinematics, error) {
	if len(locations) < 2 {
		return nil, errors.Errorf("swerve kinematics needs at least two modules, got %d", len(locations))
	}
	seen := make(map[r2.Point]struct{}, len(locations))
	inverse := mat.NewDense(2*len(locations), 3, nil)
	for i, loc := range locations {
		if _, ok := seen[loc]; ok {
			return nil, errors.Errorf("two modules share location %v", loc)
		}
		seen[loc] = struct{}{}
		inverse.SetRow(2*i, []float64{1, 0, -loc.Y})
		inverse.SetRow(2*i+1, []float64{0, 1, loc.X})
	}
	return &SwerveKinematics{locations: append([]r2.Point(nil), locations...), inverse: inverse}, nil
}

// NumModules returns the module count.
func (k *SwerveKinematics) NumModules() int {
	return len(k.locations)
}

// ToModuleStates returns the state each module needs for the robot-relative speeds.
// Modules that are not moving point straight ahead.
func (k *SwerveKinematics) ToModuleStates(speeds ChassisSpeeds) []ModuleState {
	states := make([]ModuleState, len(k.locations))
	for i, loc := range k.locations {
		vx := speeds.VX - speeds.Omega*loc.Y
		vy := speeds.VY + speeds.Omega*loc.X
		speed := math.Hypot(vx, vy)
		if speed == 0 {
			continue
		}
		states[i] = ModuleState{Speed: speed, Angle: math.Atan2(vy, vx)}
	}
	return states
}

// DesaturateWheelSpeeds scales every module down by the same factor so none exceeds
// maxSpeed, preserving the direction of travel.
func DesaturateWheelSpeeds(states []ModuleState, maxSpeed float64) []ModuleState {
	var highest float64
	for _, s := range states {
		highest = math.Max(highest, math.Abs(s.Speed))
	}
	if highest <= maxSpeed || highest == 0 {
		return states
	}
	scale := maxSpeed / highest
	out := make([]ModuleState, len(states))
	for i, s := range states {
		out[i] = ModuleState{Speed: s.Speed * scale, Angle: s.Angle}
	}
	return out
}

// ToChassisSpeeds returns the robot-relative speeds that best explain the module
// states in the least squares sense.
func (k *SwerveKinematics) ToChassisSpeeds(states []ModuleState) (ChassisSpeeds, error) {
	if len(states) != len(k.locations) {
		return ChassisSpeeds{}, errors.Errorf("expected %d module states, got %d", len(k.locations), len(states))
	}
	moduleVelocities := mat.NewVecDense(2*len(states), nil)
	for i, s := range states {
		sin, cos := math.Sincos(s.Angle)
		moduleVelocities.SetVec(2*i, s.Speed*cos)
		moduleVelocities.SetVec(2*i+1, s.Speed*sin)
	}
	var chassis mat.VecDense
	if err := chassis.SolveVec(k.inverse, moduleVelocities); err != nil {
		return ChassisSpeeds{}, errors.Wrap(err, "cannot solve forward kinematics")
	}
	return ChassisSpeeds{VX: chassis.AtVec(0), VY: chassis.AtVec(1), Omega: chassis.AtVec(2)}, nil
}
