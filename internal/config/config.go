package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL       string
	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool
	MetricsAddr       string
	MetricsTextfile   string

	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3Region          string

	RiderMassKg          float64
	RiderPowerW          float64
	SimStep              time.Duration
	SimMaxDuration       time.Duration
	DragCoeff            float64
	FrontalAreaM2        float64
	AirDensity           float64
	DrivetrainEfficiency float64
	RollingCoeff         float64
}

// S3Enabled reports whether every setting needed for uploads is present.
func (c *Config) S3Enabled() bool {
	return c.S3Endpoint != "" && c.S3AccessKeyID != "" && c.S3SecretAccessKey != "" && c.S3Bucket != ""
}

func defaults(v *viper.Viper) {
	v.SetDefault("NATS_SUBJECT_PREFIX", "ride")
	v.SetDefault("S3_BUCKET", "ride-exports")
	v.SetDefault("S3_REGION", "auto")
	v.SetDefault("PGHOST", "127.0.0.1")
	v.SetDefault("PGPORT", "5432")
	v.SetDefault("PGUSER", "postgres")
	v.SetDefault("PGSSLMODE", "disable")

	v.SetDefault("RIDER_MASS_KG", "62")
	v.SetDefault("RIDER_POWER_W", "200")
	v.SetDefault("SIM_STEP_MS", "100")
	v.SetDefault("SIM_MAX_DURATION_MIN", "600")
	v.SetDefault("DRAG_COEFF", "0.88")
	v.SetDefault("FRONTAL_AREA_M2", "0.32")
	v.SetDefault("AIR_DENSITY", "1.2")
	v.SetDefault("DRIVETRAIN_EFFICIENCY", "0.97")
	v.SetDefault("ROLLING_COEFF", "0.005")
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	defaults(v)

	cfg := &Config{}

	// Prefer DATABASE_URL / PG_DSN, else build from PG* vars. No database
	// disables the ride store.
	dsn := firstNonEmpty(v.GetString("DATABASE_URL"), v.GetString("PG_DSN"))
	if dsn == "" {
		if db := v.GetString("PGDATABASE"); db != "" {
			user := v.GetString("PGUSER")
			pass := v.GetString("PGPASSWORD")
			host := v.GetString("PGHOST")
			port := v.GetString("PGPORT")
			sslmode := v.GetString("PGSSLMODE")
			if pass != "" {
				dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
			} else {
				dsn = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
			}
		}
	}
	cfg.DatabaseURL = dsn

	// Empty NATS_URL disables sample publishing
	cfg.NATSURL = strings.TrimSpace(v.GetString("NATS_URL"))
	cfg.NATSSubjectPrefix = strings.Trim(v.GetString("NATS_SUBJECT_PREFIX"), ". ")
	if cfg.NATSSubjectPrefix == "" || strings.ContainsAny(cfg.NATSSubjectPrefix, " *>") {
		return nil, fmt.Errorf("invalid NATS_SUBJECT_PREFIX: %q", v.GetString("NATS_SUBJECT_PREFIX"))
	}
	cfg.LogNATSSubjects = truthy(v.GetString("LOG_NATS_SUBJECTS"))

	// Metrics listen address (e.g., ":9102") and/or node_exporter textfile path
	cfg.MetricsAddr = v.GetString("METRICS_ADDR")
	cfg.MetricsTextfile = v.GetString("METRICS_TEXTFILE")

	cfg.S3Endpoint = v.GetString("S3_ENDPOINT")
	cfg.S3AccessKeyID = v.GetString("S3_ACCESS_KEY_ID")
	cfg.S3SecretAccessKey = v.GetString("S3_SECRET_ACCESS_KEY")
	cfg.S3Bucket = v.GetString("S3_BUCKET")
	cfg.S3Region = v.GetString("S3_REGION")

	positive := []struct {
		key string
		dst *float64
	}{
		{"RIDER_MASS_KG", &cfg.RiderMassKg},
		{"RIDER_POWER_W", &cfg.RiderPowerW},
		{"DRAG_COEFF", &cfg.DragCoeff},
		{"FRONTAL_AREA_M2", &cfg.FrontalAreaM2},
		{"AIR_DENSITY", &cfg.AirDensity},
		{"DRIVETRAIN_EFFICIENCY", &cfg.DrivetrainEfficiency},
		{"ROLLING_COEFF", &cfg.RollingCoeff},
	}
	for _, p := range positive {
		s := v.GetString(p.key)
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || !(f > 0) {
			return nil, fmt.Errorf("invalid %s: %q", p.key, s)
		}
		*p.dst = f
	}
	if cfg.DrivetrainEfficiency > 1 {
		return nil, fmt.Errorf("invalid DRIVETRAIN_EFFICIENCY: %q", v.GetString("DRIVETRAIN_EFFICIENCY"))
	}

	if s := v.GetString("SIM_STEP_MS"); s != "" {
		ms, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid SIM_STEP_MS: %q", s)
		}
		cfg.SimStep = time.Duration(ms) * time.Millisecond
	}
	if s := v.GetString("SIM_MAX_DURATION_MIN"); s != "" {
		min, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || min <= 0 {
			return nil, fmt.Errorf("invalid SIM_MAX_DURATION_MIN: %q", s)
		}
		cfg.SimMaxDuration = time.Duration(min) * time.Minute
	}

	return cfg, nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
