package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"ride-simulator/internal/export"
	"ride-simulator/internal/ingest"
	"ride-simulator/internal/path"
	"ride-simulator/internal/plot"
	"ride-simulator/internal/publisher"
	"ride-simulator/internal/report"
	"ride-simulator/internal/sim"
	"ride-simulator/internal/store"
	"ride-simulator/internal/track"
)

var errNoDatabase = errors.New("no database configured: set DATABASE_URL, PG_DSN or PGDATABASE")

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "database",
		Usage: "Use database `NAME` on the configured server",
	}
}

func infoCommand(rt *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Summarise a ride file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "points", Aliases: []string{"p"}, Usage: "List every annotated point"},
		},
		Action: func(c *cli.Context) error {
			name, err := args(c, 1)
			if err != nil {
				return err
			}
			p, err := rt.loadPath(name[0])
			if err != nil {
				return err
			}
			if c.Bool("points") {
				for _, tp := range p.Points() {
					fmt.Fprintln(c.App.Writer, tp)
				}
			}
			return report.Summarize(rideName(name[0]), p).Write(c.App.Writer)
		},
	}
}

func queryCommand(rt *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Look up the track point covering each distance",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.Float64SliceFlag{
				Name:     "distance",
				Aliases:  []string{"d"},
				Usage:    "Distance along the route in meters, repeatable",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			name, err := args(c, 1)
			if err != nil {
				return err
			}
			p, err := rt.loadPath(name[0])
			if err != nil {
				return err
			}
			w := c.App.Writer
			for _, d := range c.Float64Slice("distance") {
				tp, ok := p.TrackPoint(d)
				if !ok {
					fmt.Fprintf(w, "%.3f m: outside route (total %.3f m)\n", d, p.TotalDistance())
					continue
				}
				loc, _ := p.Locate(d)
				lat, lon := loc.Degrees()
				fmt.Fprintf(w, "%.3f m: point %d slope %+.2f%% at %.6f,%.6f ele %.1f m\n",
					d, tp.Index, 100*math.Tan(tp.Slope), lat, lon, loc.Elevation)
			}
			return nil
		},
	}
}

func convertCommand(rt *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a ride file, format taken from the output extension",
		ArgsUsage: "IN OUT",
		Action: func(c *cli.Context) error {
			names, err := args(c, 2)
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(strings.TrimPrefix(filepath.Ext(names[1]), "."))
			if err != nil {
				return err
			}
			p, err := rt.loadPath(names[0])
			if err != nil {
				return err
			}
			if _, err := rt.writeExport(names[1], f, rideName(names[0]), p); err != nil {
				return err
			}
			log.Printf("converted %d points to %s", p.Len(), names[1])
			return nil
		},
	}
}

func exportCommand(rt *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export the annotated track and optionally upload it",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: string(export.GeoJSON), Usage: "geojson, parquet, gpx, csv or polyline"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file, defaults to the ride name with the format extension"},
			&cli.BoolFlag{Name: "upload", Usage: "Upload the export to the configured S3 bucket"},
		},
		Action: func(c *cli.Context) error {
			name, err := args(c, 1)
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(c.String("format"))
			if err != nil {
				return err
			}
			ride := rideName(name[0])
			out := c.String("out")
			if out == "" {
				out = ride + "." + f.Ext()
			}
			p, err := rt.loadPath(name[0])
			if err != nil {
				return err
			}
			body, err := rt.writeExport(out, f, ride, p)
			if err != nil {
				return err
			}
			log.Printf("exported %s", out)
			if !c.Bool("upload") {
				return nil
			}

			up, err := export.NewS3Uploader(rt.cfg, rt.mcol)
			if err != nil {
				return err
			}
			return up.Upload(c.Context, export.Key(ride, f), f, body, map[string]string{
				"points":   strconv.Itoa(p.Len()),
				"distance": strconv.FormatFloat(p.TotalDistance(), 'f', 3, 64),
			})
		},
	}
}

func simulateCommand(rt *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "simulate",
		Usage:     "Simulate riding the route at constant or recorded power",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "power", Usage: "Rider power in watts, overrides RIDER_POWER_W"},
			&cli.Float64Flag{Name: "mass", Usage: "Rider plus bike mass in kg, overrides RIDER_MASS_KG"},
			&cli.BoolFlag{Name: "replay-power", Usage: "Use recorded watts where present"},
			&cli.DurationFlag{Name: "max-duration", Usage: "Stop after this much simulated time"},
			&cli.IntFlag{Name: "sample-every", Value: 10, Usage: "Emit one sample every N steps"},
			&cli.StringFlag{Name: "plot", Usage: "Write a speed and elevation profile PNG to `FILE`"},
			&cli.BoolFlag{Name: "no-publish", Usage: "Do not publish samples to NATS"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Hide the progress bar"},
		},
		Action: func(c *cli.Context) error {
			name, err := args(c, 1)
			if err != nil {
				return err
			}
			p, err := rt.loadPath(name[0])
			if err != nil {
				return err
			}
			ride := rideName(name[0])

			prm := sim.ParamsFromConfig(rt.cfg)
			if c.IsSet("power") {
				prm.PowerW = c.Float64("power")
			}
			if c.IsSet("mass") {
				prm.MassKg = c.Float64("mass")
			}
			if c.IsSet("max-duration") {
				prm.MaxDuration = c.Duration("max-duration")
			}
			prm.ReplayPower = c.Bool("replay-power")

			rec := &sim.Recorder{}
			opts := []sim.Option{
				sim.WithMetrics(rt.mcol),
				sim.WithSampleEvery(c.Int("sample-every")),
				sim.WithSink(rec),
			}
			if rt.cfg.NATSURL != "" && !c.Bool("no-publish") {
				pub, err := publisher.NewNATSPublisher(rt.cfg.NATSURL, rt.cfg.NATSSubjectPrefix, rt.cfg.LogNATSSubjects, wrapPublisherMetrics(rt.mcol))
				if err != nil {
					return err
				}
				defer pub.Close()
				opts = append(opts, sim.WithSink(pub))
			}
			var bar *progressbar.ProgressBar
			if !c.Bool("quiet") {
				bar = progressbar.Default(int64(math.Ceil(p.TotalDistance())), "simulating")
				opts = append(opts, sim.WithProgress(func(d float64) { _ = bar.Set64(int64(d)) }))
			}

			s, err := sim.New(prm, opts...)
			if err != nil {
				return err
			}
			res, err := s.Run(c.Context, ride, p)
			if bar != nil {
				_ = bar.Finish()
				fmt.Fprintln(c.App.ErrWriter)
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			fmt.Fprintf(c.App.Writer, "run %s: %s\ndistance: %.3f km of %.3f km\ntime:     %s\navg:      %.2f km/h\nmax:      %.2f km/h\n",
				res.RunID, res.Outcome, res.Distance/1000, p.TotalDistance()/1000,
				res.Duration.Round(time.Second), res.AvgSpeed*3.6, res.MaxSpeed*3.6)

			if out := c.String("plot"); out != "" {
				img, err := plot.Profile(p, rec.Samples, 1200, 400)
				if err != nil {
					return err
				}
				if err := plot.SavePNG(out, img); err != nil {
					return err
				}
				log.Printf("profile written to %s", out)
			}
			return nil
		},
	}
}

func importCommand(rt *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Store the raw points of a ride file in PostgreSQL",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Ride name, defaults to the file name"},
			databaseFlag(),
		},
		Action: func(c *cli.Context) error {
			name, err := args(c, 1)
			if err != nil {
				return err
			}
			p, err := rt.loadPath(name[0])
			if err != nil {
				return err
			}
			f, _ := ingest.FormatOf(name[0])
			ride := c.String("name")
			if ride == "" {
				ride = rideName(name[0])
			}

			st, closeDB, err := rt.openStore(c)
			if err != nil {
				return err
			}
			defer closeDB()
			id, err := st.SaveRide(c.Context, ride, string(f), p.Points(), p.TotalDistance())
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, id)
			return nil
		},
	}
}

func ridesCommand(rt *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "rides",
		Usage: "Manage stored rides",
		Flags: []cli.Flag{databaseFlag()},
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored rides, newest first",
				Action: func(c *cli.Context) error {
					st, closeDB, err := rt.openStore(c)
					if err != nil {
						return err
					}
					defer closeDB()
					rides, err := st.ListRides(c.Context)
					if err != nil {
						return err
					}
					table := tablewriter.NewWriter(c.App.Writer)
					table.SetHeader([]string{"id", "name", "format", "points", "distance km", "created"})
					for _, r := range rides {
						table.Append([]string{
							r.ID.String(), r.Name, r.SourceFormat, strconv.Itoa(r.PointCount),
							fmt.Sprintf("%.3f", r.TotalDistance/1000), r.CreatedAt.Format(time.RFC3339),
						})
					}
					table.Render()
					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "Summarise a stored ride",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := rideID(c)
					if err != nil {
						return err
					}
					st, closeDB, err := rt.openStore(c)
					if err != nil {
						return err
					}
					defer closeDB()
					ride, err := st.LoadRide(c.Context, id)
					if err != nil {
						return err
					}
					p := rt.index(ride.Points)
					return report.Summarize(ride.Name, p).Write(c.App.Writer)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a stored ride",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := rideID(c)
					if err != nil {
						return err
					}
					st, closeDB, err := rt.openStore(c)
					if err != nil {
						return err
					}
					defer closeDB()
					if err := st.DeleteRide(c.Context, id); err != nil {
						return err
					}
					log.Printf("deleted ride %s", id)
					return nil
				},
			},
		},
	}
}

// loadPath reads a ride file and indexes it, recording both in metrics.
func (rt *appEnv) loadPath(name string) (*path.Path, error) {
	pts, err := ingest.ReadFile(name, rt.mcol)
	if err != nil {
		return nil, err
	}
	return rt.index(pts), nil
}

func (rt *appEnv) index(pts []track.Point) *path.Path {
	start := time.Now()
	p := path.New(pts, path.WithObserver(rt.mcol))
	rt.mcol.ObserveIndex(p.Len(), len(p.KmIndex()), p.TotalDistance(), time.Since(start))
	return p
}

// writeExport encodes p as f into out and returns the encoded bytes.
func (rt *appEnv) writeExport(out string, f export.Format, ride string, p *path.Path) ([]byte, error) {
	var buf bytes.Buffer
	if err := export.Write(&buf, f, ride, p); err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return nil, err
	}
	rt.mcol.Exports.WithLabelValues(string(f)).Inc()
	return buf.Bytes(), nil
}

func (rt *appEnv) openStore(c *cli.Context) (*store.Store, func(), error) {
	dsn := rt.cfg.DatabaseURL
	if dsn == "" {
		return nil, nil, errNoDatabase
	}
	if db := c.String("database"); db != "" {
		var err error
		if dsn, err = store.WithDBName(dsn, db); err != nil {
			return nil, nil, err
		}
	}
	pool, err := store.Open(c.Context, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open: %w", err)
	}
	st := store.New(pool)
	if err := st.EnsureSchema(c.Context); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return st, pool.Close, nil
}

func args(c *cli.Context, n int) ([]string, error) {
	if c.NArg() != n {
		return nil, fmt.Errorf("%s: expected %d argument(s), got %d", c.Command.Name, n, c.NArg())
	}
	return c.Args().Slice(), nil
}

func rideID(c *cli.Context) (uuid.UUID, error) {
	a, err := args(c, 1)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(a[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid ride id %q: %w", a[0], err)
	}
	return id, nil
}

func rideName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
