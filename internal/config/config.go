// Package config loads txcomplete configuration from CUE.
//
// A config file is unified with an embedded schema that supplies defaults
// and constraints, then decoded into Config. Unknown fields are rejected
// because #Config is a closed definition.
package config

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded configuration.
type Config struct {
	Log      LogConfig      `json:"log"`
	Store    StoreConfig    `json:"store"`
	Metrics  MetricsConfig  `json:"metrics"`
	Delivery DeliveryConfig `json:"delivery"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type StoreConfig struct {
	Path string `json:"path"`
}

type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace"`
}

type DeliveryConfig struct {
	Async          bool `json:"async"`
	QueueWarnDepth int  `json:"queueWarnDepth"`
}

// Error is a configuration error, positioned in the source file when
// CUE can tell where.
type Error struct {
	Pos     token.Pos
	Message string
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Defaults returns the configuration an empty file produces.
func Defaults() Config {
	cfg, err := decode(cuecontext.New(), nil, "")
	if err != nil {
		// The embedded schema is fixed; failing here is a build defect.
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads and validates the CUE file at path. An empty path yields
// Defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE source. filename is used in error positions.
func Parse(data []byte, filename string) (Config, error) {
	return decode(cuecontext.New(), data, filename)
}

func decode(ctx *cue.Context, data []byte, filename string) (Config, error) {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, toError(err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if data != nil {
		user := ctx.CompileBytes(data, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return Config{}, toError(err)
		}
		v = v.Unify(user)
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, toError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, toError(err)
	}
	return cfg, nil
}

// toError keeps the first CUE error with its position.
func toError(err error) error {
	for _, e := range cueerrors.Errors(err) {
		return &Error{Pos: e.Position(), Message: e.Error()}
	}
	return &Error{Message: err.Error()}
}

// NewLogger builds a slog.Logger writing to w per the log section.
// verbose forces debug level.
func (c Config) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
