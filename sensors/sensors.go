// Package sensors defines the probe collaborators the gauge samples. The
// real hardware uses DS18B20 one-wire temperature probes and an analog
// pressure transducer; on a host the simulated implementations below stand
// in so the rest of the system can run unchanged.
package sensors

import (
	"fmt"
	"math/rand"
	"sync"
)

// TemperatureProbe is a one-wire style temperature sensor: start a
// conversion, then read the result.
type TemperatureProbe interface {
	// Convert starts a temperature conversion.
	Convert()
	// Temperature returns the last converted reading in degrees Celsius.
	Temperature() (float64, error)
}

// PressureSensor is an analog transducer read as a normalized 0..1 value.
type PressureSensor interface {
	Read() float64
}

// SimProbe is a simulated temperature probe: a bounded random walk around
// a base temperature. A probe that was never converted returns an error,
// like querying a DS18B20 before its first conversion.
type SimProbe struct {
	mu        sync.Mutex
	rng       *rand.Rand
	base      float64
	current   float64
	converted bool
}

func NewSimProbe(seed int64, base float64) *SimProbe {
	return &SimProbe{
		rng:     rand.New(rand.NewSource(seed)),
		base:    base,
		current: base,
	}
}

func (p *SimProbe) Convert() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += (p.rng.Float64() - 0.5) * 0.2
	// Drift back toward the base so long runs stay plausible.
	p.current += (p.base - p.current) * 0.01
	p.converted = true
}

func (p *SimProbe) Temperature() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.converted {
		return 0, fmt.Errorf("sensors: probe has no conversion result")
	}
	return p.current, nil
}

// SimPressure is a simulated transducer walking around mid-scale.
type SimPressure struct {
	mu      sync.Mutex
	rng     *rand.Rand
	current float64
}

func NewSimPressure(seed int64) *SimPressure {
	return &SimPressure{
		rng:     rand.New(rand.NewSource(seed)),
		current: 0.5,
	}
}

func (p *SimPressure) Read() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += (p.rng.Float64() - 0.5) * 0.02
	if p.current < 0 {
		p.current = 0
	}
	if p.current > 1 {
		p.current = 1
	}
	return p.current
}

// Discover enumerates the temperature probes on the bus, up to max. The
// simulated bus always has one probe.
func Discover(max int) []TemperatureProbe {
	if max < 1 {
		return nil
	}
	return []TemperatureProbe{NewSimProbe(1, 21.0)}
}
