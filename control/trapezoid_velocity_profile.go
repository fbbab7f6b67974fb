package control

import (
	"math"

	"github.com/pkg/errors"
)

// State is a point on a motion profile.
type State struct {
	Position float64
	Velocity float64
}

// Constraints bound a trapezoid profile.
type Constraints struct {
	MaxVelocity     float64
	MaxAcceleration float64
}

// Validate ensures both limits are positive and finite.
func (c Constraints) Validate() error {
	if !positive(c.MaxVelocity) {
		return errors.Errorf("max velocity must be positive, got %v", c.MaxVelocity)
	}
	if !positive(c.MaxAcceleration) {
		return errors.Errorf("max acceleration must be positive, got %v", c.MaxAcceleration)
	}
	return nil
}

// TrapezoidProfile generates setpoints that accelerate, cruise and decelerate toward a
// goal without exceeding its constraints.
type TrapezoidProfile struct {
	constraints Constraints
}

// NewTrapezoidProfile returns a profile bounded by constraints.
func NewTrapezoidProfile(constraints Constraints) TrapezoidProfile {
	return TrapezoidProfile{constraints: constraints}
}

// Constraints returns the profile limits.
func (p TrapezoidProfile) Constraints() Constraints {
	return p.constraints
}

// Calculate returns where the profile from current to goal should be after t seconds.
func (p TrapezoidProfile) Calculate(t float64, current, goal State) State {
	direction := 1.0
	if current.Position > goal.Position {
		direction = -1
	}
	current = direct(current, direction)
	goal = direct(goal, direction)

	maxV := p.constraints.MaxVelocity
	maxA := p.constraints.MaxAcceleration
	if current.Velocity > maxV {
		current.Velocity = maxV
	}
	ph := p.phases(current, goal)

	result := State{Position: current.Position, Velocity: current.Velocity}
	switch {
	case t < ph.endAccel:
		result.Velocity += t * maxA
		result.Position += (current.Velocity + t*maxA/2) * t
	case t < ph.endFullSpeed:
		result.Velocity = maxV
		result.Position += (current.Velocity+ph.endAccel*maxA/2)*ph.endAccel + maxV*(t-ph.endAccel)
	case t <= ph.endDecel:
		timeLeft := ph.endDecel - t
		result.Velocity = goal.Velocity + timeLeft*maxA
		result.Position = goal.Position - (goal.Velocity+timeLeft*maxA/2)*timeLeft
	default:
		result = goal
	}
	return direct(result, direction)
}

// TotalTime returns how long, in seconds, the profile from current to goal takes.
func (p TrapezoidProfile) TotalTime(current, goal State) float64 {
	direction := 1.0
	if current.Position > goal.Position {
		direction = -1
	}
	current = direct(current, direction)
	if current.Velocity > p.constraints.MaxVelocity {
		current.Velocity = p.constraints.MaxVelocity
	}
	return p.phases(current, direct(goal, direction)).endDecel
}

type phases struct {
	endAccel     float64
	endFullSpeed float64
	endDecel     float64
}

// phases expects current and goal already oriented so that goal is ahead.
func (p TrapezoidProfile) phases(current, goal State) phases {
	maxV := p.constraints.MaxVelocity
	maxA := p.constraints.MaxAcceleration

	// Extend the trapezoid backward and forward to zero velocity so the start and end
	// states fall on a full trapezoid.
	cutoffBegin := current.Velocity / maxA
	cutoffDistBegin := cutoffBegin * cutoffBegin * maxA / 2
	cutoffEnd := goal.Velocity / maxA
	cutoffDistEnd := cutoffEnd * cutoffEnd * maxA / 2

	fullTrapezoidDist := cutoffDistBegin + (goal.Position - current.Position) + cutoffDistEnd
	accelerationTime := maxV / maxA
	fullSpeedDist := fullTrapezoidDist - accelerationTime*accelerationTime*maxA

	// triangle profile
	if fullSpeedDist < 0 {
		accelerationTime = math.Sqrt(fullTrapezoidDist / maxA)
		fullSpeedDist = 0
	}

	endAccel := accelerationTime - cutoffBegin
	endFullSpeed := endAccel + fullSpeedDist/maxV
	return phases{
		endAccel:     endAccel,
		endFullSpeed: endFullSpeed,
		endDecel:     endFullSpeed + accelerationTime - cutoffEnd,
	}
}

func direct(s State, direction float64) State {
	return State{Position: s.Position * direction, Velocity: s.Velocity * direction}
}
