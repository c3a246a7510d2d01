// Package config provides functionality for managing configuration options
// for the application using command-line flags, a config file and
// environment variables.
//
// Priority (highest to lowest): explicitly set flags, FASO_* environment
// variables, the config file, built-in defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. FASO_STORE_DSN.
const EnvPrefix = "FASO"

// S3Options describes the bucket used when uploads go to object storage.
type S3Options struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Prefix       string
	PublicURL    string
	UsePathStyle bool
}

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string
	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string
	TLSKey  string

	// StoreDriver is "mongo" or "postgres".
	StoreDriver string
	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string
	// DatabaseName is the Mongo database holding the collections.
	DatabaseName      string
	ConnectTimeout    time.Duration
	ReconnectInterval time.Duration

	// StaticDir holds index.html and the storefront assets.
	StaticDir string
	// UploadDir receives product images when UploadBackend is "local".
	UploadDir      string
	UploadBackend  string
	MaxUploadBytes int64
	S3             S3Options

	// SessionBackend is "memory" or "redis".
	SessionBackend string
	// SessionTTL of zero keeps sessions until logout.
	SessionTTL    time.Duration
	SweepInterval time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CookieName    string
	CookieSecure  bool

	// AdminUsername and AdminPassword seed the credentials on first boot.
	AdminUsername string
	AdminPassword string

	// SpoolPath keeps orders that could not be stored.
	SpoolPath      string
	ReplayInterval time.Duration

	MetricsEnabled bool

	LogLevel  string
	LogFormat string
	LogOutput string

	// Config is the path to the Config file.
	Config string
}

var defaults = map[string]any{
	"server.address":           "",
	"server.port":              3000,
	"server.tls_cert":          "",
	"server.tls_key":           "",
	"store.driver":             "mongo",
	"store.dsn":                "mongodb://localhost:27017",
	"store.database":           "fasogadget",
	"store.connect_timeout":    10 * time.Second,
	"store.reconnect_interval": 5 * time.Second,
	"static.dir":               "public",
	"upload.dir":               "public/uploads",
	"upload.backend":           "local",
	"upload.max_bytes":         int64(10 << 20),
	"upload.s3.bucket":         "",
	"upload.s3.region":         "",
	"upload.s3.endpoint":       "",
	"upload.s3.access_key":     "",
	"upload.s3.secret_key":     "",
	"upload.s3.prefix":         "",
	"upload.s3.public_url":     "",
	"upload.s3.path_style":     false,
	"session.backend":          "memory",
	"session.ttl":              time.Duration(0),
	"session.sweep_interval":   time.Minute,
	"redis.addr":               "localhost:6379",
	"redis.password":           "",
	"redis.db":                 0,
	"cookie.name":              "session",
	"cookie.secure":            false,
	"admin.username":           "admin",
	"admin.password":           "admin",
	"spool.path":               "orders_backup.jsonl",
	"spool.replay_interval":    time.Minute,
	"metrics.enabled":          true,
	"log.level":                "info",
	"log.format":               "json",
	"log.output":               "stdout",
}

// Parse parses the command-line flags, the config file and environment
// variables. It exits the process on invalid configuration.
func Parse() *Options {
	opts, err := Load(os.Args[1:])
	if err != nil {
		log.Fatalf("error while loading config: %v", err)
	}
	return opts
}

// Load builds Options from args and the environment.
func Load(args []string) (*Options, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("a", "", "run on ip:port server")
	dsn := fs.String("d", "", "store connection string")
	driver := fs.String("driver", "", "store driver: mongo or postgres")
	static := fs.String("static", "", "static files directory")
	var cfgPath string
	fs.StringVar(&cfgPath, "config", "", "path to config file")
	fs.StringVar(&cfgPath, "c", "", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Deployments of the storefront configured these two without prefix.
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	_ = v.BindEnv("store.dsn", EnvPrefix+"_STORE_DSN", "MONGODB_URI")

	if cfgPath == "" {
		cfgPath = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			v.Set("server.address", *addr)
		case "d":
			v.Set("store.dsn", *dsn)
		case "driver":
			v.Set("store.driver", *driver)
		case "static":
			v.Set("static.dir", *static)
		}
	})

	opts := &Options{
		Port:              v.GetString("server.address"),
		TLSCert:           v.GetString("server.tls_cert"),
		TLSKey:            v.GetString("server.tls_key"),
		StoreDriver:       strings.ToLower(v.GetString("store.driver")),
		DatabaseDSN:       v.GetString("store.dsn"),
		DatabaseName:      v.GetString("store.database"),
		ConnectTimeout:    v.GetDuration("store.connect_timeout"),
		ReconnectInterval: v.GetDuration("store.reconnect_interval"),
		StaticDir:         v.GetString("static.dir"),
		UploadDir:         v.GetString("upload.dir"),
		UploadBackend:     strings.ToLower(v.GetString("upload.backend")),
		MaxUploadBytes:    v.GetInt64("upload.max_bytes"),
		S3: S3Options{
			Bucket:       v.GetString("upload.s3.bucket"),
			Region:       v.GetString("upload.s3.region"),
			Endpoint:     v.GetString("upload.s3.endpoint"),
			AccessKey:    v.GetString("upload.s3.access_key"),
			SecretKey:    v.GetString("upload.s3.secret_key"),
			Prefix:       v.GetString("upload.s3.prefix"),
			PublicURL:    v.GetString("upload.s3.public_url"),
			UsePathStyle: v.GetBool("upload.s3.path_style"),
		},
		SessionBackend: strings.ToLower(v.GetString("session.backend")),
		SessionTTL:     v.GetDuration("session.ttl"),
		SweepInterval:  v.GetDuration("session.sweep_interval"),
		RedisAddr:      v.GetString("redis.addr"),
		RedisPassword:  v.GetString("redis.password"),
		RedisDB:        v.GetInt("redis.db"),
		CookieName:     v.GetString("cookie.name"),
		CookieSecure:   v.GetBool("cookie.secure"),
		AdminUsername:  v.GetString("admin.username"),
		AdminPassword:  v.GetString("admin.password"),
		SpoolPath:      v.GetString("spool.path"),
		ReplayInterval: v.GetDuration("spool.replay_interval"),
		MetricsEnabled: v.GetBool("metrics.enabled"),
		LogLevel:       v.GetString("log.level"),
		LogFormat:      v.GetString("log.format"),
		LogOutput:      v.GetString("log.output"),
		Config:         cfgPath,
	}
	if opts.Port == "" {
		opts.Port = fmt.Sprintf(":%d", v.GetInt("server.port"))
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *Options) validate() error {
	switch o.StoreDriver {
	case "mongo", "postgres":
	default:
		return fmt.Errorf("unknown store driver %q", o.StoreDriver)
	}
	switch o.SessionBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown session backend %q", o.SessionBackend)
	}
	switch o.UploadBackend {
	case "local":
	case "s3":
		if o.S3.Bucket == "" {
			return errors.New("upload.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown upload backend %q", o.UploadBackend)
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("server.tls_cert and server.tls_key must be set together")
	}
	if o.SessionTTL < 0 {
		return errors.New("session.ttl must not be negative")
	}
	for key, d := range map[string]time.Duration{
		"store.reconnect_interval": o.ReconnectInterval,
		"session.sweep_interval":   o.SweepInterval,
		"spool.replay_interval":    o.ReplayInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, d)
		}
	}
	if o.CookieName == "" {
		return errors.New("cookie.name must not be empty")
	}
	return nil
}
