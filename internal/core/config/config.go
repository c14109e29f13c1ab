package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/davmount/internal/core/logger"
	"github.com/davmount/internal/core/timeout"
	"github.com/davmount/internal/core/webdav"
)

var ErrUnknownFormat = errors.New("unknown config file format")

type Config struct {
	Mountpoint string
	URL        string
	// MountFlags are passed to the FUSE layer: ro, allow_other,
	// default_permissions.
	MountFlags []string

	Username string
	Password string

	UserAgent   string
	ThrowErrors bool
	Timeout     time.Duration

	// LockTimeout is sent with LOCK requests; zero lets the server pick.
	LockTimeout time.Duration
	LockOwner   string

	Verbose bool
	StdLog  string
	ErrLog  string
}

// intermediate struct mirrors config file keys (simple mapping)
type raw struct {
	Mpoint      string   `toml:"mpoint" yaml:"mpoint"`
	URL         string   `toml:"url" yaml:"url"`
	Username    string   `toml:"username" yaml:"username"`
	Password    string   `toml:"password" yaml:"password"`
	UserAgent   string   `toml:"user-agent" yaml:"user-agent"`
	ThrowErrors bool     `toml:"throw-errors" yaml:"throw-errors"`
	Timeout     string   `toml:"timeout" yaml:"timeout"`
	LockTimeout string   `toml:"lock-timeout" yaml:"lock-timeout"`
	LockOwner   string   `toml:"lock-owner" yaml:"lock-owner"`
	Verbose     bool     `toml:"verbose" yaml:"verbose"`
	Std         string   `toml:"std" yaml:"std"`
	Err         string   `toml:"err" yaml:"err"`
	Options     []string `toml:"options" yaml:"options"`
}

// ParseConfig reads a .toml, .yaml or .yml file. An empty path yields an
// empty Config.
func ParseConfig(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	var r raw
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &r); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&r); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config %s: %w", path, ErrUnknownFormat)
	}

	cfg := &Config{
		Mountpoint:  r.Mpoint,
		URL:         r.URL,
		Username:    r.Username,
		Password:    r.Password,
		UserAgent:   r.UserAgent,
		ThrowErrors: r.ThrowErrors,
		LockOwner:   r.LockOwner,
		Verbose:     r.Verbose,
		StdLog:      r.Std,
		ErrLog:      r.Err,
		MountFlags:  r.Options,
	}

	var err error
	if cfg.Timeout, err = duration("timeout", r.Timeout); err != nil {
		return nil, err
	}
	if cfg.LockTimeout, err = duration("lock-timeout", r.LockTimeout); err != nil {
		return nil, err
	}
	return cfg, nil
}

func duration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config key %s: %w", key, err)
	}
	return d, nil
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [options] <mountpoint> <server>\n", fs.Name())
		fs.PrintDefaults()
	}
}

// ParseCommandLineArgs parses os.Args.
func ParseCommandLineArgs() (*Config, []string, error) {
	return Parse(os.Args[0], os.Args[1:])
}

// Parse loads the file named by --config and lets flags that were set
// explicitly override it. Positional <mountpoint> <server> arguments fill
// Mountpoint and URL.
func Parse(name string, arguments []string) (*Config, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var (
		configFPtr     = fs.StringP("config", "c", "", "path to config file (.toml, .yaml)")
		userPtr        = fs.StringP("user", "u", "", "username:password (shorthand)")
		agentPtr       = fs.StringP("user-agent", "a", "", "User-Agent header value")
		throwPtr       = fs.Bool("throw-errors", false, "report failed HTTP outcomes as errors")
		timeoutPtr     = fs.DurationP("timeout", "t", 30*time.Second, "per request timeout")
		lockTimeoutPtr = fs.Duration("lock-timeout", 0, "timeout requested for LOCK")
		lockOwnerPtr   = fs.String("lock-owner", "", "owner recorded on LOCK")
		verbosePtr     = fs.BoolP("verbose", "v", false, "enable verbose logging")
		stdlogPtr      = fs.StringP("stdlog", "s", "", "path to standard log file")
		errlogPtr      = fs.StringP("errlog", "e", "", "path to error log file")
		optionsPtr     = fs.StringSliceP("options", "o", nil, "mount options (ro, allow_other, default_permissions)")
	)
	fs.Usage = usage(fs)

	if err := fs.Parse(arguments); err != nil {
		return nil, nil, err
	}

	cfg, err := ParseConfig(*configFPtr)
	if err != nil {
		return nil, nil, err
	}

	if fs.Lookup("user-agent").Changed {
		cfg.UserAgent = *agentPtr
	}
	if fs.Lookup("throw-errors").Changed {
		cfg.ThrowErrors = *throwPtr
	}
	if fs.Lookup("timeout").Changed || cfg.Timeout == 0 {
		cfg.Timeout = *timeoutPtr
	}
	if fs.Lookup("lock-timeout").Changed {
		cfg.LockTimeout = *lockTimeoutPtr
	}
	if fs.Lookup("lock-owner").Changed {
		cfg.LockOwner = *lockOwnerPtr
	}
	if fs.Lookup("verbose").Changed {
		cfg.Verbose = *verbosePtr
	}
	if fs.Lookup("stdlog").Changed {
		cfg.StdLog = *stdlogPtr
	}
	if fs.Lookup("errlog").Changed {
		cfg.ErrLog = *errlogPtr
	}
	if fs.Lookup("options").Changed {
		cfg.MountFlags = *optionsPtr
	}
	if fs.Lookup("user").Changed && *userPtr != "" {
		parts := strings.SplitN(*userPtr, ":", 2)
		cfg.Username = parts[0]
		if len(parts) > 1 {
			cfg.Password = parts[1]
		}
	}

	args := fs.Args()
	if len(args) > 0 {
		cfg.Mountpoint = args[0]
	}
	if len(args) > 1 {
		cfg.URL = args[1]
	}

	return cfg, args, nil
}

// Validate reports missing required settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Mountpoint == "" {
		errs = append(errs, errors.New("mountpoint is required"))
	}
	if c.URL == "" {
		errs = append(errs, errors.New("server URL is required"))
	}
	return errors.Join(errs...)
}

// LockTimeoutValue converts LockTimeout to a header value. Zero means no
// preference.
func (c *Config) LockTimeoutValue() (timeout.Value, bool) {
	if c.LockTimeout <= 0 {
		return nil, false
	}
	return timeout.FromSeconds(uint64(c.LockTimeout / time.Second)), true
}

// ClientOptions builds engine options from the configuration.
func (c *Config) ClientOptions(l logger.FullLogger) []webdav.Option {
	opts := []webdav.Option{
		webdav.WithThrowErrors(c.ThrowErrors),
	}
	if c.Timeout > 0 {
		opts = append(opts, webdav.WithTimeout(c.Timeout))
	}
	if c.Username != "" || c.Password != "" {
		opts = append(opts, webdav.WithAuth(c.Username, c.Password))
	}
	if c.UserAgent != "" {
		opts = append(opts, webdav.WithUserAgent(c.UserAgent))
	}
	if l != nil {
		opts = append(opts, webdav.WithLogger(l))
	}
	return opts
}
