package mapper

import (
	"fmt"
	"strings"
	"time"
)

var mysqlEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"\x00", "\\0",
	"\n", "\\n",
	"\r", "\\r",
	"'", "\\'",
	"\"", "\\\"",
	"\x1a", "\\Z",
)

// EscapeString escapes str for a MySQL single-quoted literal, matching
// mysql_real_escape_string for single-byte character sets.
func EscapeString(str string) string {
	return mysqlEscaper.Replace(str)
}

// EscapeQuoteString returns str escaped and wrapped in single quotes.
func EscapeQuoteString(str string) string {
	return "'" + EscapeString(str) + "'"
}

// EscapeANSIString escapes str for dialects that only double the quote
// character (SQLite, standard SQL).
func EscapeANSIString(str string) string {
	return strings.ReplaceAll(str, "'", "''")
}

// EncodeDate formats t as a civil "YYYY-MM-DD HH:MM:SS" timestamp.
func EncodeDate(t time.Time) string {
	return t.Format(TimestampLayout)
}

// EncodeQuoteDate formats t as a quoted timestamp literal.
func EncodeQuoteDate(t time.Time) string {
	return "'" + EncodeDate(t) + "'"
}

// EncodeBooleanInt maps a boolean to the 1/0 integer most servers store.
func EncodeBooleanInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toString(v interface{}) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}
