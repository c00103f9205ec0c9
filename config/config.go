// Package config builds a configured gantry factory from a YAML file.
//
// Host pipeline tools point it at a config describing path-prefix
// overrides, an optional object-store backend, an optional history
// database and optional logging, and get back a ready-to-use
// [gantry.Factory].
package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/bobg/errors"
	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"gopkg.in/yaml.v3"

	"github.com/gantrybuild/gantry"
	"github.com/gantrybuild/gantry/history"
	miniofs "github.com/gantrybuild/gantry/minio"
)

// Config is the YAML schema.
type Config struct {
	// Prefixes are path-prefix override layers,
	// pushed onto the factory stack in order
	// (so the last rule listed gets first refusal).
	Prefixes []PrefixRule `yaml:"prefixes"`

	// Minio, if present, registers an object-store target kind.
	Minio *MinioConfig `yaml:"minio"`

	// History, if present, records every produced target in sqlite.
	History *HistoryConfig `yaml:"history"`

	// Log enables a structured-log observer when true.
	Log bool `yaml:"log"`
}

// PrefixRule relocates outputs of the named kinds under a prefix.
type PrefixRule struct {
	Prefix string   `yaml:"prefix"`
	Kinds  []string `yaml:"kinds"`
}

// MinioConfig describes an S3-compatible backend.
type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	UseSSL     bool   `yaml:"use_ssl"`
	Bucket     string `yaml:"bucket"`
	RootPrefix string `yaml:"root_prefix"`

	// Kind is the registry name for targets on this backend.
	// Defaults to "minio".
	Kind string `yaml:"kind"`
}

// HistoryConfig describes the target-history database.
type HistoryConfig struct {
	Path string `yaml:"path"`

	// Keep is a retention window in time.ParseDuration syntax,
	// e.g. "720h". Empty keeps everything.
	Keep string `yaml:"keep"`
}

// Load reads a Config from r.
func Load(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var conf Config
	if err := dec.Decode(&conf); err != nil {
		return nil, errors.Wrap(err, "decoding YAML")
	}
	return &conf, nil
}

// LoadFile reads a Config from the file at path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return Load(f)
}

// Build turns conf into a factory with the configured override layers
// and observers installed. The returned close func releases whatever the
// factory's observers hold open and must be called when the factory is
// no longer needed.
func (conf *Config) Build(ctx context.Context) (*gantry.Factory, func() error, error) {
	f := gantry.NewFactory()
	closer := func() error { return nil }

	for _, rule := range conf.Prefixes {
		f.Push(&gantry.PrefixMaker{Prefix: rule.Prefix, Kinds: rule.Kinds})
	}

	if conf.History != nil {
		var opts []history.Option
		if conf.History.Keep != "" {
			keep, err := time.ParseDuration(conf.History.Keep)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "parsing history retention %q", conf.History.Keep)
			}
			opts = append(opts, history.Keep(keep))
		}
		db, err := history.Open(ctx, conf.History.Path, opts...)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening history db")
		}
		f.AddObserver(db)
		closer = db.Close
	}

	if conf.Log {
		f.AddObserver(&gantry.LogObserver{Logger: slog.Default()})
	}

	// Registering the object-store kind mutates the process-wide
	// registry, so it comes last: a failure in any earlier section must
	// not leave a half-built config registered.
	if conf.Minio != nil {
		client, err := minio.New(conf.Minio.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(conf.Minio.AccessKey, conf.Minio.SecretKey, ""),
			Secure: conf.Minio.UseSSL,
		})
		if err != nil {
			closer()
			return nil, nil, errors.Wrapf(err, "creating minio client for %s", conf.Minio.Endpoint)
		}
		kind := conf.Minio.Kind
		if kind == "" {
			kind = "minio"
		}
		miniofs.RegisterKind(kind, miniofs.NewFS(client, conf.Minio.Bucket, conf.Minio.RootPrefix))
	}

	return f, closer, nil
}
