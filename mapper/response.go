// Package mapper converts between the raw text a database returns and Go
// values. Parsing is permissive: malformed text degrades to a zero value or a
// partial parse instead of failing, the way C's strtol/atof family behaves.
package mapper

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the civil timestamp layout exchanged with the server.
const TimestampLayout = "2006-01-02 15:04:05"

// EpochZero is the timestamp returned for NULL or malformed text.
var EpochZero = time.Unix(0, 0).UTC()

var floatPrefix = regexp.MustCompile(`^[+-]?(?:(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?|(?i:infinity|inf|nan))`)

// ResponseMapper handles type coercion for raw result text.
type ResponseMapper struct {
	loc *time.Location
}

// NewResponseMapper creates a mapper that interprets timestamps in loc.
// A nil loc means UTC.
func NewResponseMapper(loc *time.Location) *ResponseMapper {
	if loc == nil {
		loc = time.UTC
	}
	return &ResponseMapper{loc: loc}
}

// Location returns the location timestamps are interpreted in.
func (m *ResponseMapper) Location() *time.Location {
	return m.loc
}

// ToInt64 parses a leading decimal integer. Leading whitespace and a sign are
// accepted, parsing stops at the first non-digit, and out-of-range values
// saturate at the int64 limits. Text without digits yields 0.
// There is no base prefix: zero-filled columns such as "0042" or "08" read
// as decimal, and "0x1A" reads as 0.
func (m *ResponseMapper) ToInt64(s string) int64 {
	i := skipSpace(s, 0)
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}

	n, overflow := accumulate(s, i)
	if neg {
		if overflow || n > 1<<63 {
			return math.MinInt64
		}
		return -int64(n)
	}
	if overflow || n > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(n)
}

// ToUint64 parses a leading decimal integer as unsigned. A leading minus
// negates the magnitude modulo 2^64; overflow saturates at MaxUint64.
func (m *ResponseMapper) ToUint64(s string) uint64 {
	i := skipSpace(s, 0)
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}

	n, overflow := accumulate(s, i)
	if overflow {
		return math.MaxUint64
	}
	if neg {
		return -n
	}
	return n
}

// ToFloat parses the longest numeric prefix of s at the given bit size.
// Text without a numeric prefix yields 0; out-of-range values become ±Inf.
func (m *ResponseMapper) ToFloat(s string, bitSize int) float64 {
	s = s[skipSpace(s, 0):]
	prefix := floatPrefix.FindString(s)
	if prefix == "" {
		return 0
	}
	// ParseFloat returns ±Inf or 0 together with ErrRange, which is the value we want.
	f, _ := strconv.ParseFloat(prefix, bitSize)
	return f
}

// ToChar returns the first byte of s, or 0 for empty text.
func (m *ResponseMapper) ToChar(s string) byte {
	if s == "" {
		return 0
	}
	return s[0]
}

// ToTimestamp parses "YYYY-MM-DD HH:MM:SS" as civil time in the mapper's
// location. Fields may be unpadded and trailing text is ignored. ok is false
// when the six fields cannot be read.
func (m *ResponseMapper) ToTimestamp(s string) (t time.Time, ok bool) {
	var v [6]int
	seps := [6]byte{'-', '-', ' ', ':', ':', 0}

	i := 0
	for k := range v {
		n, next, found := scanInt(s, i)
		if !found {
			return EpochZero, false
		}
		v[k] = n
		i = next

		switch sep := seps[k]; sep {
		case 0:
		case ' ':
			i = skipSpace(s, i)
		default:
			if i >= len(s) || s[i] != sep {
				return EpochZero, false
			}
			i++
		}
	}

	return time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], v[5], 0, m.loc), true
}

// ToText renders a driver value as the raw text a result record carries.
// ok is false for SQL NULL.
func (m *ResponseMapper) ToText(value interface{}) (string, bool) {
	if value == nil {
		return "", false
	}

	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int:
		return strconv.Itoa(v), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), true
	case bool:
		if v {
			return "1", true
		}
		return "0", true
	case time.Time:
		return v.In(m.loc).Format(TimestampLayout), true
	default:
		return strings.TrimSpace(toString(v)), true
	}
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r'
}

// accumulate reads decimal digits starting at i.
func accumulate(s string, i int) (n uint64, overflow bool) {
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		if overflow {
			continue
		}
		d := uint64(s[i] - '0')
		if n > (math.MaxUint64-d)/10 {
			overflow = true
			continue
		}
		n = n*10 + d
	}
	return n, overflow
}

// scanInt behaves like a %d conversion: optional whitespace, optional sign,
// at least one digit.
func scanInt(s string, i int) (int, int, bool) {
	i = skipSpace(s, i)
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == digits {
		return 0, start, false
	}
	n, err := strconv.Atoi(s[start:i])
	if err != nil {
		return 0, start, false
	}
	return n, i, true
}
