package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	ReadPoints *prometheus.CounterVec // format label: gpx|tcx|fit|csv

	PathPoints        prometheus.Gauge
	PathDistance      prometheus.Gauge // meters
	KmIndexEntries    prometheus.Gauge
	IndexDuration     prometheus.Histogram
	DistanceAnomalies prometheus.Counter
	QueryMisses       prometheus.Counter

	SimRuns         *prometheus.CounterVec // outcome label: finished|timeout|cancelled
	SimSteps        prometheus.Counter
	SimStepDuration prometheus.Histogram
	SimSpeed        prometheus.Gauge // m/s at the last step
	SimDistance     prometheus.Gauge // meters at the last step

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	Exports *prometheus.CounterVec // format label
	Uploads *prometheus.CounterVec // result label: ok|error

	RiderMass  prometheus.Gauge
	RiderPower prometheus.Gauge
	SimStep    prometheus.Gauge // seconds
}

func NewCollector(riderMassKg, riderPowerW float64, simStep time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ReadPoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ridesim_points_read_total",
			Help: "Track points read from ride files.",
		}, []string{"format"}),
		PathPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ridesim_path_points",
			Help: "Points in the last indexed path.",
		}),
		PathDistance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ridesim_path_distance_meters",
			Help: "Total distance of the last indexed path.",
		}),
		KmIndexEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ridesim_km_index_entries",
			Help: "Kilometer index entries of the last indexed path, sentinel included.",
		}),
		IndexDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ridesim_index_duration_seconds",
			Help:    "Duration of annotating and indexing a path.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		DistanceAnomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ridesim_distance_anomalies_total",
			Help: "Segments whose computed distance was negative.",
		}),
		QueryMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ridesim_query_misses_total",
			Help: "Distance lookups outside the path.",
		}),
		SimRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ridesim_sim_runs_total",
			Help: "Simulation runs by outcome.",
		}, []string{"outcome"}),
		SimSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ridesim_sim_steps_total",
			Help: "Simulation steps computed.",
		}),
		SimStepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ridesim_sim_step_duration_seconds",
			Help:    "Duration of one simulation step computation.",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15),
		}),
		SimSpeed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ridesim_sim_speed_mps",
			Help: "Simulated speed at the last step.",
		}),
		SimDistance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ridesim_sim_distance_meters",
			Help: "Simulated distance covered at the last step.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ridesim_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ridesim_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ridesim_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ridesim_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ridesim_exports_total",
			Help: "Files exported by format.",
		}, []string{"format"}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ridesim_uploads_total",
			Help: "Object storage uploads by result.",
		}, []string{"result"}),
		RiderMass: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ridesim_rider_mass_kg",
			Help: "Configured rider plus bike mass.",
		}),
		RiderPower: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ridesim_rider_power_watts",
			Help: "Configured constant rider power.",
		}),
		SimStep: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ridesim_sim_step_seconds",
			Help: "Simulation time step in seconds.",
		}),
	}

	// Register
	reg.MustRegister(
		c.ReadPoints,
		c.PathPoints, c.PathDistance, c.KmIndexEntries, c.IndexDuration,
		c.DistanceAnomalies, c.QueryMisses,
		c.SimRuns, c.SimSteps, c.SimStepDuration, c.SimSpeed, c.SimDistance,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.Exports, c.Uploads,
		c.RiderMass, c.RiderPower, c.SimStep,
	)

	// Set static gauges
	c.RiderMass.Set(riderMassKg)
	c.RiderPower.Set(riderPowerW)
	c.SimStep.Set(simStep.Seconds())

	return c
}

// PointsRead counts points produced by a file reader.
func (c *Collector) PointsRead(format string, n int) {
	c.ReadPoints.WithLabelValues(format).Add(float64(n))
}

func (c *Collector) DistanceAnomaly() { c.DistanceAnomalies.Inc() }
func (c *Collector) QueryMiss()       { c.QueryMisses.Inc() }

// ObserveIndex records the shape of a freshly built path.
func (c *Collector) ObserveIndex(points, kmEntries int, distance float64, took time.Duration) {
	c.PathPoints.Set(float64(points))
	c.KmIndexEntries.Set(float64(kmEntries))
	c.PathDistance.Set(distance)
	c.IndexDuration.Observe(took.Seconds())
}

func (c *Collector) Gatherer() prometheus.Gatherer { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}

// WriteTextfile dumps every metric in the text exposition format, for the
// node_exporter textfile collector. Runs are too short to be scraped.
func (c *Collector) WriteTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, c.reg)
}
