package publisher

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"ride-simulator/internal/sim"
)

type NATSPublisher struct {
	nc          *nats.Conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("ride-simulator"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, prefix: prefix, logSubjects: logSubjects, metrics: m}, nil
}

// Close flushes pending samples before closing the connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		if err := p.nc.Flush(); err != nil {
			log.Printf("nats flush: %v", err)
		}
		p.nc.Close()
	}
}

type SampleMessage struct {
	RunID     string    `json:"runId"`
	Ride      string    `json:"ride"`
	Step      int       `json:"step"`
	Timestamp time.Time `json:"timestamp"`
	ElapsedS  float64   `json:"elapsedS"`
	Distance  float64   `json:"distance"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Elevation float64   `json:"elevation"`
	SpeedMps  float64   `json:"speedMps"`
	PowerW    float64   `json:"powerW"`
	SlopePct  float64   `json:"slopePct"`
}

// NewSampleMessage stamps s with the wall-clock time it is published at.
func NewSampleMessage(s sim.Sample, now time.Time) SampleMessage {
	return SampleMessage{
		RunID:     s.RunID,
		Ride:      s.Ride,
		Step:      s.Step,
		Timestamp: now.UTC(),
		ElapsedS:  s.Elapsed.Seconds(),
		Distance:  s.Distance,
		Lat:       s.Lat,
		Lon:       s.Lon,
		Elevation: s.Elevation,
		SpeedMps:  s.Speed,
		PowerW:    s.Power,
		SlopePct:  100 * math.Tan(s.Slope),
	}
}

// Subject returns <prefix>.<ride>.<run> with each part made a valid token.
func Subject(prefix, ride, runID string) string {
	parts := []string{subjectToken(ride), subjectToken(runID)}
	if prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return strings.Join(parts, ".")
}

// Emit publishes one simulation sample, so the publisher can be used as a
// sim.Sink.
func (p *NATSPublisher) Emit(s sim.Sample) error {
	subject := Subject(p.prefix, s.Ride, s.RunID)
	start := time.Now()
	b, err := json.Marshal(NewSampleMessage(s, start))
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Printf("nats publish subject=%s", subject)
	}
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
