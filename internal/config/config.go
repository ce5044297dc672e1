// Package config loads the optional session defaults file: encoding
// quality, throttle enablement, and the zero-copy activation threshold.
// CLI flags always take precedence over
// whatever a config file sets; this package only supplies the defaults
// a flag falls back to when unset.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/pid0/flashvnc/internal/rfbwire"
)

// DefaultZeroCopyThreshold mirrors rfbsession.defaultZeroCopyThreshold;
// kept as a separate constant here since internal/rfbsession doesn't
// export its own and config must not import an internal package just
// for one number.
const DefaultZeroCopyThreshold = 60

// Config is the on-disk shape of the optional YAML defaults file.
type Config struct {
	Quality            string `yaml:"quality"`
	Throttle           bool   `yaml:"throttle"`
	ZeroCopyThreshold  int    `yaml:"zero_copy_threshold"`
}

// Defaults returns the built-in defaults used when no file is given or
// a field is left unset in it.
func Defaults() Config {
	return Config{
		Quality:           rfbwire.LossyMedium.String(),
		Throttle:          false,
		ZeroCopyThreshold: DefaultZeroCopyThreshold,
	}
}

// Load reads and parses a YAML config file, filling in Defaults() for
// any field the file leaves at its zero value.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: reading %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: parsing %s", path)
	}
	if cfg.ZeroCopyThreshold == 0 {
		cfg.ZeroCopyThreshold = DefaultZeroCopyThreshold
	}
	return cfg, nil
}

// ResolvedQuality resolves the config's quality string to an
// rfbwire.Quality, falling back to LossyMedium for an empty value and
// erroring on an unrecognized one.
func (c Config) ResolvedQuality() (rfbwire.Quality, error) {
	switch c.Quality {
	case "", rfbwire.LossyMedium.String():
		return rfbwire.LossyMedium, nil
	case rfbwire.LossyHigh.String():
		return rfbwire.LossyHigh, nil
	case rfbwire.LossyMediumInterframe.String():
		return rfbwire.LossyMediumInterframe, nil
	case rfbwire.LossyLow.String():
		return rfbwire.LossyLow, nil
	case rfbwire.Lossless.String():
		return rfbwire.Lossless, nil
	default:
		return 0, errors.Errorf("config: unrecognized quality preset %q", c.Quality)
	}
}
