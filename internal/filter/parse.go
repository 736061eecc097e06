package filter

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ConfigError reports a malformed size, duration or pattern supplied at
// configuration time.
type ConfigError struct {
	Field string // Option the value was given for, e.g. "min_size"
	Value string // Offending input
	Err   error  // Underlying cause
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid value %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

var errOutOfRange = errors.New("value out of range")

// Byte multipliers. Sizes use binary (1024) multiples throughout.
const (
	KB int64 = 1 << 10
	MB int64 = 1 << 20
	GB int64 = 1 << 30
	TB int64 = 1 << 40
)

var sizePattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*(b|kb|mb|gb|tb)\s*$`)

var sizeUnits = map[string]int64{
	"b":  1,
	"kb": KB,
	"mb": MB,
	"gb": GB,
	"tb": TB,
}

// ParseSize parses "<number><unit>" where unit is one of B, KB, MB, GB, TB
// (case-insensitive, 1024 multiples). Fractions are allowed: "1.5MB".
func ParseSize(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, &ConfigError{Value: s, Err: errors.New("empty size")}
	}

	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, &ConfigError{Value: s, Err: errors.New("expected <number><unit> with unit B, KB, MB, GB or TB")}
	}

	multiplier := sizeUnits[strings.ToLower(m[2])]
	if strings.Contains(m[1], ".") {
		num, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, &ConfigError{Value: s, Err: err}
		}
		v := num * float64(multiplier)
		if v >= math.MaxInt64 {
			return 0, &ConfigError{Value: s, Err: errOutOfRange}
		}
		return int64(v), nil
	}

	num, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, &ConfigError{Value: s, Err: err}
	}
	if num > math.MaxInt64/multiplier {
		return 0, &ConfigError{Value: s, Err: errOutOfRange}
	}
	return num * multiplier, nil
}

var durationPattern = regexp.MustCompile(`^\s*(\d+)([smhdwMy])\s*$`)

// Duration units. Months are 30 days and years are 365 days.
var durationUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
	"M": 30 * 24 * time.Hour,
	"y": 365 * 24 * time.Hour,
}

// ParseDuration parses "<integer><unit>" with unit s, m, h, d, w, M or y.
// The unit is case-sensitive: "m" is minutes, "M" is months.
func ParseDuration(s string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, &ConfigError{
			Value: s,
			Err:   errors.New("expected <number><unit> with unit s, m, h, d, w, M or y"),
		}
	}

	num, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, &ConfigError{Value: s, Err: err}
	}
	unit := durationUnits[m[2]]
	if num > math.MaxInt64/int64(unit) {
		return 0, &ConfigError{Value: s, Err: errOutOfRange}
	}
	return time.Duration(num) * unit, nil
}

// withField tags a parse error with the option it belongs to.
func withField(err error, field string) error {
	var ce *ConfigError
	if errors.As(err, &ce) && ce.Field == "" {
		ce.Field = field
	}
	return err
}
