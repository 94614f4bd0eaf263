// Package sim runs a forward-Euler cycling power simulation along a path.
//
// Each step balances the rider's power against aerodynamic drag, rolling
// resistance and gravity on the slope of the segment under the rider, and
// converts the surplus into kinetic energy.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"ride-simulator/internal/config"
	mmetrics "ride-simulator/internal/metrics"
	"ride-simulator/internal/path"
)

// Gravity is the standard gravitational acceleration in m/s².
const Gravity = 9.81

// rollingThreshold is the speed below which rolling resistance is ignored.
const rollingThreshold = 0.01

var ErrEmptyRoute = errors.New("route has no distance")

// Params holds the rider and environment constants of a run.
type Params struct {
	MassKg       float64 // rider plus bike
	PowerW       float64 // constant rider power
	DragCoeff    float64
	FrontalArea  float64 // m²
	AirDensity   float64 // kg/m³
	Efficiency   float64 // drivetrain, 0 < η <= 1
	RollingCoeff float64

	Step        time.Duration
	MaxDuration time.Duration

	// ReplayPower uses the recorded Watts of the point under the rider when
	// it is positive, falling back to PowerW.
	ReplayPower bool
}

// ParamsFromConfig copies the simulation settings out of cfg.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		MassKg:       cfg.RiderMassKg,
		PowerW:       cfg.RiderPowerW,
		DragCoeff:    cfg.DragCoeff,
		FrontalArea:  cfg.FrontalAreaM2,
		AirDensity:   cfg.AirDensity,
		Efficiency:   cfg.DrivetrainEfficiency,
		RollingCoeff: cfg.RollingCoeff,
		Step:         cfg.SimStep,
		MaxDuration:  cfg.SimMaxDuration,
	}
}

func (p Params) Validate() error {
	switch {
	case !(p.MassKg > 0):
		return fmt.Errorf("invalid mass: %v", p.MassKg)
	case p.PowerW < 0 || math.IsNaN(p.PowerW):
		return fmt.Errorf("invalid power: %v", p.PowerW)
	case p.DragCoeff < 0 || p.FrontalArea < 0 || p.AirDensity < 0 || p.RollingCoeff < 0:
		return errors.New("invalid drag or rolling coefficients: must not be negative")
	case !(p.Efficiency > 0) || p.Efficiency > 1:
		return fmt.Errorf("invalid efficiency: %v", p.Efficiency)
	case p.Step <= 0:
		return fmt.Errorf("invalid step: %s", p.Step)
	case p.MaxDuration < p.Step:
		return fmt.Errorf("invalid max duration: %s", p.MaxDuration)
	}
	return nil
}

// Drag returns the aerodynamic drag force in newtons at speed v.
func (p Params) Drag(v float64) float64 {
	return 0.5 * p.DragCoeff * p.FrontalArea * p.AirDensity * v * v
}

// Rolling returns the rolling resistance at slope theta, zero when stopped.
func (p Params) Rolling(theta, v float64) float64 {
	if v <= rollingThreshold {
		return 0
	}
	return Gravity * math.Cos(theta) * p.MassKg * p.RollingCoeff
}

// GravityForce returns the slope component of the weight, negative downhill.
func (p Params) GravityForce(theta float64) float64 {
	return Gravity * math.Sin(theta) * p.MassKg
}

// Sample is the rider state after one step.
type Sample struct {
	RunID     string
	Ride      string
	Step      int
	Elapsed   time.Duration
	Distance  float64 // meters along the route
	Speed     float64 // m/s
	Power     float64 // rider power applied during the step
	Needed    float64 // power absorbed by the resistances
	Slope     float64 // radians
	Lat       float64
	Lon       float64
	Elevation float64
}

// Sink receives samples as they are produced.
type Sink interface {
	Emit(s Sample) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Sample) error

func (f SinkFunc) Emit(s Sample) error { return f(s) }

// Recorder keeps every sample in memory.
type Recorder struct {
	Samples []Sample
}

func (r *Recorder) Emit(s Sample) error {
	r.Samples = append(r.Samples, s)
	return nil
}

type Outcome string

const (
	OutcomeFinished  Outcome = "finished"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeCancelled Outcome = "cancelled"
)

type Result struct {
	RunID    string
	Outcome  Outcome
	Steps    int
	Duration time.Duration
	Distance float64
	AvgSpeed float64
	MaxSpeed float64
}

type Simulator struct {
	params      Params
	metrics     *mmetrics.Collector
	sinks       []Sink
	logger      *log.Logger
	sampleEvery int
	progress    func(distance float64)
}

type Option func(*Simulator)

func WithMetrics(c *mmetrics.Collector) Option {
	return func(s *Simulator) { s.metrics = c }
}

// WithSink adds a destination for samples. Sinks are called in order.
func WithSink(k Sink) Option {
	return func(s *Simulator) {
		if k != nil {
			s.sinks = append(s.sinks, k)
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSampleEvery emits one sample every n steps. The last step is always
// emitted.
func WithSampleEvery(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.sampleEvery = n
		}
	}
}

// WithProgress is called after every step with the distance covered so far.
func WithProgress(fn func(distance float64)) Option {
	return func(s *Simulator) { s.progress = fn }
}

func New(params Params, opts ...Option) (*Simulator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{params: params, logger: log.Default(), sampleEvery: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run simulates one ride from a standstill at the start of p until the route
// end or the maximum duration is reached. On cancellation the partial result
// is returned together with the context error.
func (s *Simulator) Run(ctx context.Context, ride string, p *path.Path) (Result, error) {
	total := p.TotalDistance()
	if p.Len() < 2 || !(total > 0) {
		return Result{}, fmt.Errorf("simulate %q: %w", ride, ErrEmptyRoute)
	}

	res := Result{RunID: uuid.NewString()}
	prm := s.params
	dt := prm.Step.Seconds()
	maxSteps := int(prm.MaxDuration / prm.Step)

	var v, pv, d, speedSum float64
	s.logger.Printf("simulation %s started ride=%q distance=%.1fm power=%.0fW", res.RunID, ride, total, prm.PowerW)

	for {
		if err := ctx.Err(); err != nil {
			res.Outcome = OutcomeCancelled
			s.finish(&res, speedSum)
			s.logger.Printf("simulation %s cancelled at %.1fm", res.RunID, d)
			return res, err
		}
		if d >= total {
			res.Outcome = OutcomeFinished
			break
		}
		if res.Steps >= maxSteps {
			res.Outcome = OutcomeTimeout
			break
		}

		stepStart := time.Now()
		theta := p.SlopeRadians(d)
		power := prm.PowerW
		if prm.ReplayPower {
			if tp, ok := p.TrackPoint(d); ok && tp.Watts > 0 {
				power = tp.Watts
			}
		}

		force := prm.Drag(v) + prm.Rolling(theta, v) + prm.GravityForce(theta)
		needed := force * v / prm.Efficiency
		net := power - needed

		// distance uses the mean of the previous and current speed
		d += (v + pv) / 2 * dt
		pv = v
		v = math.Sqrt(math.Max(0, v*v+2*net*dt*prm.Efficiency/prm.MassKg))

		res.Steps++
		speedSum += v
		res.MaxSpeed = math.Max(res.MaxSpeed, v)
		res.Distance = math.Min(d, total)

		if s.metrics != nil {
			s.metrics.SimSteps.Inc()
			s.metrics.SimStepDuration.Observe(time.Since(stepStart).Seconds())
			s.metrics.SimSpeed.Set(v)
			s.metrics.SimDistance.Set(res.Distance)
		}
		if s.progress != nil {
			s.progress(res.Distance)
		}

		last := d >= total || res.Steps >= maxSteps
		if len(s.sinks) > 0 && (last || res.Steps%s.sampleEvery == 0) {
			s.emit(Sample{
				RunID:    res.RunID,
				Ride:     ride,
				Step:     res.Steps,
				Elapsed:  time.Duration(res.Steps) * prm.Step,
				Distance: res.Distance,
				Speed:    v,
				Power:    power,
				Needed:   needed,
				Slope:    theta,
			}, p)
		}
	}

	s.finish(&res, speedSum)
	s.logger.Printf("simulation %s %s after %s distance=%.1fm avg=%.2fm/s max=%.2fm/s",
		res.RunID, res.Outcome, res.Duration, res.Distance, res.AvgSpeed, res.MaxSpeed)
	return res, nil
}

func (s *Simulator) finish(res *Result, speedSum float64) {
	res.Duration = time.Duration(res.Steps) * s.params.Step
	if res.Steps > 0 {
		res.AvgSpeed = speedSum / float64(res.Steps)
	}
	if s.metrics != nil {
		s.metrics.SimRuns.WithLabelValues(string(res.Outcome)).Inc()
	}
}

func (s *Simulator) emit(smp Sample, p *path.Path) {
	if loc, ok := p.Locate(smp.Distance); ok {
		smp.Lat, smp.Lon = loc.Degrees()
		smp.Elevation = loc.Elevation
	}
	for _, k := range s.sinks {
		if err := k.Emit(smp); err != nil {
			s.logger.Printf("emit sample %d of %s: %v", smp.Step, smp.RunID, err)
		}
	}
}
