// Package fake implements a roller motor and LED that remember what they were told.
package fake

import (
	"context"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// Motor records the power it was set to.
type Motor struct {
	mu       sync.Mutex
	powerPct float64
	calls    int
	err      error
}

// SetPower sets the given power percentage.
func (m *Motor) SetPower(ctx context.Context, powerPct float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.powerPct = powerPct
	return nil
}

// PowerPct returns the set power percentage.
func (m *Motor) PowerPct() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.powerPct
}

// Calls returns how many times SetPower was called.
func (m *Motor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// SetError makes SetPower fail with err until it is cleared with nil.
func (m *Motor) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// LED records its color.
type LED struct {
	mu    sync.Mutex
	color colorful.Color
	on    bool
}

// SetColor lights the LED.
func (l *LED) SetColor(ctx context.Context, c colorful.Color) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = c
	l.on = true
	return nil
}

// Off turns the LED off.
func (l *LED) Off(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = false
	return nil
}

// Color returns the lit color, and false when the LED is off.
func (l *LED) Color() (colorful.Color, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color, l.on
}
