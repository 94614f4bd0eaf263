package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"ride-simulator/internal/config"
	"ride-simulator/internal/metrics"
	"ride-simulator/internal/publisher"
)

// appEnv holds what every command shares once config is loaded.
type appEnv struct {
	cfg     *config.Config
	mcol    *metrics.Collector
	stopSrv context.CancelFunc
	srvDone chan struct{}
}

func main() {
	log.SetFlags(0)
	app := newApp(&appEnv{})

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(rt *appEnv) *cli.App {
	return &cli.App{
		Name:  "ridesim",
		Usage: "Index GPS ride files by distance and simulate riding them",
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			rt.cfg = cfg
			rt.mcol = metrics.NewCollector(cfg.RiderMassKg, cfg.RiderPowerW, cfg.SimStep)
			if cfg.MetricsAddr != "" {
				rt.serveMetrics(cfg.MetricsAddr)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			return rt.shutdown()
		},
		Commands: []*cli.Command{
			infoCommand(rt),
			queryCommand(rt),
			convertCommand(rt),
			exportCommand(rt),
			simulateCommand(rt),
			importCommand(rt),
			ridesCommand(rt),
		},
	}
}

func (rt *appEnv) serveMetrics(addr string) {
	ctx, cancel := context.WithCancel(context.Background())
	rt.stopSrv = cancel
	rt.srvDone = make(chan struct{})
	srv := rt.mcol.Serve(addr)
	go func() {
		defer close(rt.srvDone)
		<-ctx.Done()
		// Shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func (rt *appEnv) shutdown() error {
	if rt.stopSrv != nil {
		rt.stopSrv()
		<-rt.srvDone
	}
	if rt.cfg != nil && rt.cfg.MetricsTextfile != "" {
		if err := rt.mcol.WriteTextfile(rt.cfg.MetricsTextfile); err != nil {
			return err
		}
		log.Printf("metrics written to %s", rt.cfg.MetricsTextfile)
	}
	return nil
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
