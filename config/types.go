package config

import (
	"errors"
	"fmt"
	"time"
)

// Duration wraps time.Duration so YAML configs can use human-readable
// values like `24h` or `500ms`.
type Duration time.Duration

var errNegativeDuration = errors.New("duration must not be negative")

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("wrong duration format %q: %s", s, err)
	}
	if v < 0 {
		return errNegativeDuration
	}

	*d = Duration(v)
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
