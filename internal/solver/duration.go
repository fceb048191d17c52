package solver

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a time span serialized in the solver protocol format:
// a decimal number of seconds with an "s" suffix, e.g. "300s" or "1.5s".
type Duration struct {
	time.Duration
}

// Seconds returns a Duration of n whole seconds.
func Seconds(n int64) Duration {
	return Duration{Duration: time.Duration(n) * time.Second}
}

// FromDuration wraps a time.Duration in the protocol representation.
func FromDuration(d time.Duration) Duration {
	return Duration{Duration: d}
}

// String renders the protocol form. Whole seconds render without a
// fractional part so encoding stays byte-stable across round trips.
func (d Duration) String() string {
	secs := d.Duration.Seconds()
	if d.Duration%time.Second == 0 {
		return strconv.FormatInt(int64(secs), 10) + "s"
	}
	return strconv.FormatFloat(secs, 'f', -1, 64) + "s"
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("parse duration: not a JSON string: %s", data)
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDuration parses the "<seconds>s" protocol format. The seconds
// value may be fractional; any other suffix or shape is an error.
func ParseDuration(s string) (Duration, error) {
	if !strings.HasSuffix(s, "s") {
		return Duration{}, fmt.Errorf("parse duration: %q must end with \"s\"", s)
	}
	num := strings.TrimSuffix(s, "s")
	if num == "" {
		return Duration{}, fmt.Errorf("parse duration: %q has no numeric part", s)
	}

	secs, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Duration{}, fmt.Errorf("parse duration: invalid seconds in %q: %w", s, err)
	}

	return Duration{Duration: time.Duration(secs * float64(time.Second))}, nil
}
