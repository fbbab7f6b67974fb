package control

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/swerve/spatialmath"
)

// PID is a discrete PID controller updated once per fixed period. It optionally treats
// its input as continuous (periodic), in which case the error is always the shortest
// distance around the range.
type PID struct {
	Kp float64
	Ki float64
	Kd float64

	period time.Duration

	continuous bool
	minInput   float64
	maxInput   float64

	minIntegral float64
	maxIntegral float64
	iZone       float64

	positionError   float64
	prevError       float64
	totalError      float64
	haveMeasurement bool
}

// NewPID returns a PID controller with the given gains that is updated every period.
func NewPID(gains PIDGains, period time.Duration) (*PID, error) {
	if period <= 0 {
		return nil, errors.Errorf("pid period must be positive, got %v", period)
	}
	return &PID{
		Kp:          gains.Kp,
		Ki:          gains.Ki,
		Kd:          gains.Kd,
		period:      period,
		minIntegral: -1,
		maxIntegral: 1,
		iZone:       math.Inf(1),
	}, nil
}

// EnableContinuousInput makes the controller treat minimum and maximum as the same point.
func (p *PID) EnableContinuousInput(minimum, maximum float64) {
	p.continuous = true
	p.minInput = minimum
	p.maxInput = maximum
}

// IsContinuousInputEnabled reports whether the input wraps.
func (p *PID) IsContinuousInputEnabled() bool {
	return p.continuous
}

// SetIntegratorRange bounds the contribution of the integral term to the output.
func (p *PID) SetIntegratorRange(minimum, maximum float64) {
	p.minIntegral = minimum
	p.maxIntegral = maximum
}

// SetIZone resets the integral whenever the absolute error exceeds iZone.
func (p *PID) SetIZone(iZone float64) {
	p.iZone = iZone
}

// Period returns the update period.
func (p *PID) Period() time.Duration {
	return p.period
}

// PositionError returns the error computed by the last call to Calculate.
func (p *PID) PositionError() float64 {
	return p.positionError
}

// Error returns setpoint - measurement. When the input is continuous the error is
// wrapped into (-half range, half range].
func (p *PID) Error(measurement, setpoint float64) float64 {
	if p.continuous {
		bound := (p.maxInput - p.minInput) / 2
		wrapped := spatialmath.InputModulus(setpoint-measurement, -bound, bound)
		if wrapped == -bound {
			return bound
		}
		return wrapped
	}
	return setpoint - measurement
}

// Calculate returns the next output for the measurement and setpoint.
func (p *PID) Calculate(measurement, setpoint float64) float64 {
	dt := p.period.Seconds()

	p.prevError = p.positionError
	p.positionError = p.Error(measurement, setpoint)

	var derivative float64
	if p.haveMeasurement {
		derivative = (p.positionError - p.prevError) / dt
	}
	p.haveMeasurement = true

	if math.Abs(p.positionError) <= p.iZone && p.Ki != 0 {
		p.totalError = clamp(p.totalError+p.positionError*dt, p.minIntegral/p.Ki, p.maxIntegral/p.Ki)
	} else {
		p.totalError = 0
	}

	return p.Kp*p.positionError + p.Ki*p.totalError + p.Kd*derivative
}

// Reset clears the accumulated integral and derivative history.
func (p *PID) Reset() {
	p.positionError = 0
	p.prevError = 0
	p.totalError = 0
	p.haveMeasurement = false
}

func clamp(value, low, high float64) float64 {
	if low > high {
		low, high = high, low
	}
	return math.Min(math.Max(value, low), high)
}
