// Package config holds the settings of a co-simulation session. Values come
// from defaults, optional .env files, COSIM_* environment variables, and
// finally command-line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default device properties of the bridge.
const (
	DefaultBase         uint64 = 0xE0000000
	DefaultSpan         uint64 = 0x01000000
	DefaultSyncInterval        = 1000 * time.Microsecond
	DefaultTimeout             = 5 * time.Second
	DefaultPTYLink             = "/tmp/ttyRTL"

	// MinSpan keeps room for the reserved control block at the top of the
	// window.
	MinSpan uint64 = 0x10
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the settings of one session.
type Config struct {
	// Remote is where the RTL simulator listens, as "unix:/path" or
	// "tcp:host:port".
	Remote string

	Base               uint64
	Span               uint64
	SyncInterval       time.Duration
	Timeout            time.Duration
	RelativeAddressing bool

	PTYLink string

	// Recording is the SQLite file prefix. Empty disables recording.
	Recording string

	// ClickHouse is the address of a ClickHouse server that receives the
	// trace instead of SQLite.
	ClickHouse string

	// MonitorPort enables the monitoring server when not negative. Zero picks
	// a random port.
	MonitorPort int
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Base:         DefaultBase,
		Span:         DefaultSpan,
		SyncInterval: DefaultSyncInterval,
		Timeout:      DefaultTimeout,
		PTYLink:      DefaultPTYLink,
		MonitorPort:  -1,
	}
}

// Load builds a configuration from the defaults, the given .env files, and
// the process environment. Files that do not exist are skipped. Environment
// variables win over file entries.
func Load(files ...string) (Config, error) {
	values := make(map[string]string)

	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}

		fileValues, err := godotenv.Read(f)
		if err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", f, err)
		}

		for k, v := range fileValues {
			values[k] = v
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}

		v, ok := values[key]

		return v, ok
	}

	return Apply(Default(), lookup)
}

// Apply overrides c with every COSIM_* variable that lookup finds.
func Apply(c Config, lookup func(string) (string, bool)) (Config, error) {
	var err error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	num := func(key string, dst *uint64) {
		v, ok := lookup(key)
		if !ok || err != nil {
			return
		}

		*dst, err = strconv.ParseUint(strings.TrimSpace(v), 0, 64)
		if err != nil {
			err = fmt.Errorf("%s: %w", key, err)
		}
	}

	duration := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || err != nil {
			return
		}

		*dst, err = parseDuration(v)
		if err != nil {
			err = fmt.Errorf("%s: %w", key, err)
		}
	}

	str("COSIM_REMOTE", &c.Remote)
	num("COSIM_BASE", &c.Base)
	num("COSIM_SPAN", &c.Span)
	duration("COSIM_SYNC_INTERVAL", &c.SyncInterval)
	duration("COSIM_TIMEOUT", &c.Timeout)
	str("COSIM_PTY_LINK", &c.PTYLink)
	str("COSIM_RECORD", &c.Recording)
	str("COSIM_CLICKHOUSE", &c.ClickHouse)

	if v, ok := lookup("COSIM_RELATIVE"); ok && err == nil {
		c.RelativeAddressing, err = strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			err = fmt.Errorf("COSIM_RELATIVE: %w", err)
		}
	}

	if v, ok := lookup("COSIM_MONITOR_PORT"); ok && err == nil {
		c.MonitorPort, err = strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			err = fmt.Errorf("COSIM_MONITOR_PORT: %w", err)
		}
	}

	if err != nil {
		return Config{}, err
	}

	return c, nil
}

// parseDuration accepts Go durations and bare numbers of microseconds, the
// unit the simulator's synchronization property is given in.
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)

	if us, err := strconv.ParseUint(v, 10, 63); err == nil {
		return time.Duration(us) * time.Microsecond, nil
	}

	return time.ParseDuration(v)
}

// Validate checks that the configuration can build a bridge.
func (c Config) Validate() error {
	if c.Span == 0 {
		return fmt.Errorf("%w: span must not be zero", ErrInvalidConfig)
	}

	if c.Span <= MinSpan {
		return fmt.Errorf("%w: span 0x%X leaves no room below the "+
			"control block", ErrInvalidConfig, c.Span)
	}

	if c.Base+c.Span < c.Base {
		return fmt.Errorf("%w: window 0x%X+0x%X overflows",
			ErrInvalidConfig, c.Base, c.Span)
	}

	if c.SyncInterval <= 0 {
		return fmt.Errorf("%w: sync interval must be positive",
			ErrInvalidConfig)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}

	if c.Remote != "" {
		if _, _, err := ParseRemote(c.Remote); err != nil {
			return err
		}
	}

	return nil
}

// ParseRemote splits "unix:/path" or "tcp:host:port" into a network and an
// address for net.Dial.
func ParseRemote(remote string) (network, address string, err error) {
	network, address, found := strings.Cut(remote, ":")
	if !found || address == "" {
		return "", "", fmt.Errorf("%w: remote %q is not network:address",
			ErrInvalidConfig, remote)
	}

	switch network {
	case "unix", "tcp", "tcp4", "tcp6":
		return network, address, nil
	}

	return "", "", fmt.Errorf("%w: unsupported network %q",
		ErrInvalidConfig, network)
}
