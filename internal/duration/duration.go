package duration

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Duration wraps time.Duration so pflag can parse extended suffixes
// (d for days, w for weeks) on top of the standard ones.
type Duration time.Duration

func (d *Duration) String() string {
	return time.Duration(*d).String()
}

func (d *Duration) Set(s string) error {
	v, err := ParseDuration(s)
	*d = Duration(v)
	return err
}

func (d *Duration) Type() string {
	return "duration"
}

var suffixes = []struct {
	Suffix     string
	Multiplier time.Duration
}{
	{Suffix: "d", Multiplier: time.Hour * 24},
	{Suffix: "w", Multiplier: time.Hour * 24 * 7},
}

func parseDurationSuffixes(s string) (time.Duration, error) {
	for _, sfx := range suffixes {
		if strings.HasSuffix(s, sfx.Suffix) {
			n, err := strconv.ParseFloat(s[:len(s)-len(sfx.Suffix)], 64)
			if err != nil {
				return 0, err
			}
			return time.Duration(n * float64(sfx.Multiplier)), nil
		}
	}
	return time.ParseDuration(s)
}

func ParseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}
	return parseDurationSuffixes(s)
}

func DurationVar(flags *pflag.FlagSet, p *time.Duration, name string, value time.Duration, usage string) {
	*p = value
	flags.Var((*Duration)(p), name, usage)
}
