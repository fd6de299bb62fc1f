package ir

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Time stamp limits. Ticks stay inside the exactly representable integer
// range of a float64 so that display conversions never round.
const (
	MinTicks   int64 = 0
	MaxTicks   int64 = 1<<53 - 1
	MinTPS     int64 = 1
	MaxTPS     int64 = 1_000_000
	DefaultTPS int64 = 1000
)

// TimeStamp is a tick count at a given ticks-per-second rate.
type TimeStamp struct {
	Ticks int64 `json:"ticks"`
	TPS   int64 `json:"tps"`
}

// NewTimeStamp returns a time stamp, rejecting out-of-range ticks or rates.
func NewTimeStamp(ticks, tps int64) (TimeStamp, error) {
	ts := TimeStamp{Ticks: ticks, TPS: tps}
	if !ts.InRange() {
		return TimeStamp{}, Errorf(CodeOutOfRange, "timestamp", "ticks %d at %d tps out of range", ticks, tps)
	}
	return ts, nil
}

// InRange reports whether both the tick count and the rate are legal.
func (t TimeStamp) InRange() bool {
	return t.Ticks >= MinTicks && t.Ticks <= MaxTicks && t.TPS >= MinTPS && t.TPS <= MaxTPS
}

// Compare orders time stamps by the instant they denote, independent of
// their rates. Products are taken at 128 bits since ticks*tps can exceed
// int64 at the limits.
func (t TimeStamp) Compare(o TimeStamp) int {
	if t.TPS == o.TPS {
		switch {
		case t.Ticks < o.Ticks:
			return -1
		case t.Ticks > o.Ticks:
			return 1
		}
		return 0
	}
	ahi, alo := bits.Mul64(uint64(t.Ticks), uint64(o.TPS))
	bhi, blo := bits.Mul64(uint64(o.Ticks), uint64(t.TPS))
	switch {
	case ahi < bhi, ahi == bhi && alo < blo:
		return -1
	case ahi > bhi, ahi == bhi && alo > blo:
		return 1
	}
	return 0
}

// Millis returns the time stamp in whole milliseconds, truncated.
func (t TimeStamp) Millis() int64 {
	if t.TPS <= 0 || t.Ticks <= 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(t.Ticks), 1000)
	q, _ := bits.Div64(hi, lo, uint64(t.TPS))
	return int64(q)
}

// String renders HH:MM:SS:mmm.
func (t TimeStamp) String() string {
	ms := t.Millis()
	return fmt.Sprintf("%02d:%02d:%02d:%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}

// ParseTimeStamp parses HH:MM:SS:mmm at the given rate.
func ParseTimeStamp(s string, tps int64) (TimeStamp, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return TimeStamp{}, Errorf(CodeInvalidArgument, "timestamp", "malformed time stamp %q", s)
	}
	var f [4]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return TimeStamp{}, Errorf(CodeInvalidArgument, "timestamp", "malformed time stamp %q", s)
		}
		f[i] = n
	}
	if f[1] > 59 || f[2] > 59 || f[3] > 999 {
		return TimeStamp{}, Errorf(CodeInvalidArgument, "timestamp", "malformed time stamp %q", s)
	}
	ms := ((f[0]*60+f[1])*60+f[2])*1000 + f[3]
	hi, lo := bits.Mul64(uint64(ms), uint64(tps))
	if hi != 0 || tps <= 0 {
		return TimeStamp{}, Errorf(CodeOutOfRange, "timestamp", "time stamp %q out of range", s)
	}
	return NewTimeStamp(int64(lo/1000), tps)
}
