// Package config assembles the server configuration from defaults, an
// optional HCL file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the full server configuration. A config file looks like:
//
//	port = 8080
//	env  = "production"
//
//	database {
//	  driver = "postgres"
//	  url    = "postgres://..."
//	}
//
//	blob {
//	  driver = "s3"
//	  bucket = "bookstudio-photos"
//	}
//
//	rate_limit {
//	  rps = 50
//	}
//
//	fault "latency" {
//	  kind         = "books"
//	  ops          = ["get", "list"]
//	  latency      = "250ms"
//	  blast_radius = 0.1
//	}
type Config struct {
	Port int
	Env  string

	Database Database
	Blob     Blob
	Limiter  Limiter
	Tracing  Telemetry
	// Faults are injected into the store at startup. Never set in production.
	Faults []Fault
}

type Database struct {
	// Driver is memory, postgres, pgx or sqlite.
	Driver string
	URL    string
}

// Blob configures author photo storage. An empty driver disables uploads.
type Blob struct {
	Driver    string
	Root      string
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

type Limiter struct {
	RPS     float64
	Burst   int
	Enabled bool
}

type Telemetry struct {
	OTLPEndpoint string
}

// Fault injects storage latency or failures into one kind's table
// operations. Ops empty means every operation; Kind empty means every kind.
// Its fields are checked against the store when it is wired in.
type Fault struct {
	Type        string
	Kind        string
	Ops         []string
	Latency     time.Duration
	BlastRadius float64
}

// hclFile mirrors Config with optional attributes, so a file may set only
// the parts it cares about and every other value keeps its default.
type hclFile struct {
	Port     *int          `hcl:"port,optional"`
	Env      *string       `hcl:"env,optional"`
	Database *hclDatabase  `hcl:"database,block"`
	Blob     *hclBlob      `hcl:"blob,block"`
	Limiter  *hclLimiter   `hcl:"rate_limit,block"`
	Tracing  *hclTelemetry `hcl:"tracing,block"`
	Faults   []hclFault    `hcl:"fault,block"`
}

type hclDatabase struct {
	Driver *string `hcl:"driver,optional"`
	URL    *string `hcl:"url,optional"`
}

type hclBlob struct {
	Driver    *string `hcl:"driver,optional"`
	Root      *string `hcl:"root,optional"`
	Bucket    *string `hcl:"bucket,optional"`
	Region    *string `hcl:"region,optional"`
	Endpoint  *string `hcl:"endpoint,optional"`
	PathStyle *bool   `hcl:"path_style,optional"`
}

type hclLimiter struct {
	RPS     *float64 `hcl:"rps,optional"`
	Burst   *int     `hcl:"burst,optional"`
	Enabled *bool    `hcl:"enabled,optional"`
}

type hclTelemetry struct {
	OTLPEndpoint *string `hcl:"otlp_endpoint,optional"`
}

type hclFault struct {
	Type        string   `hcl:"type,label"`
	Kind        string   `hcl:"kind,optional"`
	Ops         []string `hcl:"ops,optional"`
	Latency     string   `hcl:"latency,optional"`
	BlastRadius *float64 `hcl:"blast_radius,optional"`
}

// Default returns the development configuration.
func Default() Config {
	return Config{
		Port: 8080,
		Env:  EnvDevelopment,
		Database: Database{
			Driver: "memory",
		},
		Blob: Blob{
			Driver: "fs",
			Root:   "./data/blobs",
		},
		Limiter: Limiter{
			RPS:     20,
			Burst:   40,
			Enabled: true,
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}
	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}

	set(&c.Port, parsed.Port)
	set(&c.Env, parsed.Env)
	if d := parsed.Database; d != nil {
		set(&c.Database.Driver, d.Driver)
		set(&c.Database.URL, d.URL)
	}
	if b := parsed.Blob; b != nil {
		set(&c.Blob.Driver, b.Driver)
		set(&c.Blob.Root, b.Root)
		set(&c.Blob.Bucket, b.Bucket)
		set(&c.Blob.Region, b.Region)
		set(&c.Blob.Endpoint, b.Endpoint)
		set(&c.Blob.PathStyle, b.PathStyle)
	}
	if l := parsed.Limiter; l != nil {
		set(&c.Limiter.RPS, l.RPS)
		set(&c.Limiter.Burst, l.Burst)
		set(&c.Limiter.Enabled, l.Enabled)
	}
	if t := parsed.Tracing; t != nil {
		set(&c.Tracing.OTLPEndpoint, t.OTLPEndpoint)
	}

	var errs []error
	for i, f := range parsed.Faults {
		fault := Fault{Type: f.Type, Kind: f.Kind, Ops: f.Ops, BlastRadius: 1}
		if f.BlastRadius != nil {
			fault.BlastRadius = *f.BlastRadius
		}
		if f.Latency != "" {
			d, err := time.ParseDuration(f.Latency)
			if err != nil {
				errs = append(errs, fmt.Errorf("fault %d latency: %w", i, err))
				continue
			}
			fault.Latency = d
		}
		c.Faults = append(c.Faults, fault)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

// set copies v into dst when the file provided it.
func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// applyEnv overrides c with every variable that is set.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	integer("PORT", &c.Port)
	str("ENV", &c.Env)
	str("DB_DRIVER", &c.Database.Driver)
	str("DATABASE_URL", &c.Database.URL)
	str("BLOB_DRIVER", &c.Blob.Driver)
	str("BLOB_ROOT", &c.Blob.Root)
	str("BLOB_S3_BUCKET", &c.Blob.Bucket)
	str("BLOB_S3_REGION", &c.Blob.Region)
	str("BLOB_S3_ENDPOINT", &c.Blob.Endpoint)
	boolean("BLOB_S3_PATH_STYLE", &c.Blob.PathStyle)
	float("RATE_LIMIT_RPS", &c.Limiter.RPS)
	integer("RATE_LIMIT_BURST", &c.Limiter.Burst)
	boolean("RATE_LIMIT_ENABLED", &c.Limiter.Enabled)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.OTLPEndpoint)
	return errors.Join(errs...)
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if !slices.Contains([]string{EnvDevelopment, EnvProduction}, c.Env) {
		errs = append(errs, fmt.Errorf("env must be %s or %s, got %q", EnvDevelopment, EnvProduction, c.Env))
	}

	switch c.Database.Driver {
	case "memory":
	case "postgres", "pgx", "sqlite":
		if strings.TrimSpace(c.Database.URL) == "" {
			errs = append(errs, fmt.Errorf("database url is required for driver %q", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}

	switch c.Blob.Driver {
	case "", "none":
	case "fs":
		if c.Blob.Root == "" {
			errs = append(errs, errors.New("blob root is required for the fs driver"))
		}
	case "s3":
		if c.Blob.Bucket == "" {
			errs = append(errs, errors.New("blob bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}

	if c.Limiter.Enabled && (c.Limiter.RPS <= 0 || c.Limiter.Burst < 1) {
		errs = append(errs, errors.New("rate limit needs a positive rps and burst"))
	}
	if len(c.Faults) > 0 && c.Production() {
		errs = append(errs, errors.New("faults cannot be injected in production"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c Config) Production() bool {
	return c.Env == EnvProduction
}
