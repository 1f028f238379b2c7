package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bookstudio.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Addr())
	assert.False(t, cfg.Production())
}

func TestFileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
port = 9090
env  = "production"

database {
  driver = "sqlite"
  url    = "file:catalog.db"
}

blob {
  driver     = "s3"
  bucket     = "photos"
  region     = "us-east-1"
  path_style = true
}
`)
	cfg := Default()
	require.NoError(t, cfg.decodeFile(path))

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Production())
	assert.Equal(t, Database{Driver: "sqlite", URL: "file:catalog.db"}, cfg.Database)
	assert.Equal(t, "s3", cfg.Blob.Driver)
	assert.Equal(t, "photos", cfg.Blob.Bucket)
	assert.True(t, cfg.Blob.PathStyle)
	assert.Equal(t, "./data/blobs", cfg.Blob.Root)
	assert.Equal(t, Default().Limiter, cfg.Limiter)
	require.NoError(t, cfg.Validate())
}

func TestPartialBlocksKeepDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.decodeFile(writeFile(t, `
rate_limit {
  rps = 50
}

blob {
  bucket = "photos"
}

tracing {}
`)))

	assert.Equal(t, Limiter{RPS: 50, Burst: 40, Enabled: true}, cfg.Limiter)
	assert.Equal(t, "fs", cfg.Blob.Driver)
	assert.Equal(t, "./data/blobs", cfg.Blob.Root)
	assert.Equal(t, "photos", cfg.Blob.Bucket)
	assert.Equal(t, Database{Driver: "memory"}, cfg.Database)
	assert.Empty(t, cfg.Tracing.OTLPEndpoint)
	require.NoError(t, cfg.Validate())

	require.NoError(t, cfg.decodeFile(writeFile(t, `
rate_limit {
  enabled = false
}
`)))
	assert.Equal(t, Limiter{RPS: 50, Burst: 40, Enabled: false}, cfg.Limiter)
}

func TestFileFaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.decodeFile(writeFile(t, `
fault "latency" {
  kind         = "books"
  ops          = ["get", "list"]
  latency      = "250ms"
  blast_radius = 0.1
}

fault "failure" {
  kind = "authors"
}
`)))

	require.Len(t, cfg.Faults, 2)
	assert.Equal(t, Fault{Type: "latency", Kind: "books", Ops: []string{"get", "list"}, Latency: 250 * time.Millisecond, BlastRadius: 0.1}, cfg.Faults[0])
	assert.Equal(t, Fault{Type: "failure", Kind: "authors", BlastRadius: 1}, cfg.Faults[1])
	require.NoError(t, cfg.Validate())

	cfg.Env = EnvProduction
	assert.ErrorContains(t, cfg.Validate(), "faults cannot be injected in production")

	bad := Default()
	assert.ErrorContains(t, bad.decodeFile(writeFile(t, `
fault "latency" {
  latency = "soon"
}
`)), "fault 0 latency")
}

func TestFileErrors(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.decodeFile(writeFile(t, `port = `)))
	assert.Error(t, cfg.decodeFile(writeFile(t, `colour = "blue"`)))
	assert.Error(t, cfg.decodeFile(filepath.Join(t.TempDir(), "missing.hcl")))
}

func TestEnvOverridesFile(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.decodeFile(writeFile(t, `
database {
  driver = "sqlite"
  url    = "file:catalog.db"
}
`)))
	require.NoError(t, cfg.applyEnv(lookupFrom(map[string]string{
		"PORT":                        "7000",
		"DB_DRIVER":                   "pgx",
		"DATABASE_URL":                "postgres://localhost/bookstudio",
		"BLOB_DRIVER":                 "none",
		"RATE_LIMIT_RPS":              "2.5",
		"RATE_LIMIT_BURST":            "5",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4318",
	})))

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, Database{Driver: "pgx", URL: "postgres://localhost/bookstudio"}, cfg.Database)
	assert.Equal(t, "none", cfg.Blob.Driver)
	assert.Equal(t, 2.5, cfg.Limiter.RPS)
	assert.Equal(t, 5, cfg.Limiter.Burst)
	assert.Equal(t, "localhost:4318", cfg.Tracing.OTLPEndpoint)
	require.NoError(t, cfg.Validate())
}

func TestEnvReportsEveryBadValue(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(lookupFrom(map[string]string{
		"PORT":               "eighty",
		"RATE_LIMIT_BURST":   "lots",
		"BLOB_S3_PATH_STYLE": "maybe",
	}))
	require.Error(t, err)
	assert.ErrorContains(t, err, "PORT")
	assert.ErrorContains(t, err, "RATE_LIMIT_BURST")
	assert.ErrorContains(t, err, "BLOB_S3_PATH_STYLE")
	assert.Equal(t, 8080, cfg.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Port = 0 }, "port 0 out of range"},
		{"env", func(c *Config) { c.Env = "staging" }, "env must be"},
		{"database url", func(c *Config) { c.Database.Driver = "postgres" }, "database url is required"},
		{"database driver", func(c *Config) { c.Database.Driver = "oracle" }, "unknown database driver"},
		{"blob root", func(c *Config) { c.Blob.Root = "" }, "blob root is required"},
		{"blob bucket", func(c *Config) { c.Blob.Driver = "s3" }, "blob bucket is required"},
		{"blob driver", func(c *Config) { c.Blob.Driver = "ftp" }, "unknown blob driver"},
		{"limiter", func(c *Config) { c.Limiter.Burst = 0 }, "rate limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	cfg := Default()
	cfg.Limiter = Limiter{}
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "8181")
	t.Setenv("ENV", "production")
	cfg, err := Load(writeFile(t, `port = 9999`))
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Port)
	assert.True(t, cfg.Production())

	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err = Load("")
	assert.ErrorContains(t, err, "database url is required")
}
