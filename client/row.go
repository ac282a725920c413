package client

import (
	"database/sql"
	"time"

	"github.com/kinslayermud/kinslayer-sqlDatabase/mapper"
)

// Row is a read-only view of one buffered record. Copying a Row copies
// references, not data. A Row shares ownership of its query's buffered result
// and remains valid after the Query is closed.
//
// Every accessor comes in four forms: by index, by field name, and a nullable
// variant of each. Non-nullable accessors return the zero value for SQL NULL
// (0, "", or epoch zero for timestamps); nullable accessors return an invalid
// sql.Null. Malformed text never produces an error: it degrades to a partial
// parse or the zero value. Errors are reserved for unknown field names and
// out-of-range indexes, both reported as *FieldError.
type Row struct {
	result *resultSet
	record Record
}

// Len returns the number of values in the row.
func (r Row) Len() int {
	return len(r.record)
}

// GetIndexByField resolves a field name through the owning query.
func (r Row) GetIndexByField(name string) (int, error) {
	return r.result.indexOf(name)
}

// GetFieldByIndex returns the field name at index, or "NULL" when the value
// at index is SQL NULL.
func (r Row) GetFieldByIndex(index int) (string, error) {
	v, err := r.Value(index)
	if err != nil {
		return "", err
	}
	if !v.Valid {
		return "NULL", nil
	}
	return r.result.fieldName(index)
}

// Value returns the raw nullable text at index.
func (r Row) Value(index int) (sql.NullString, error) {
	if index < 0 || index >= len(r.record) {
		return sql.NullString{}, ErrFieldIndexOutOfRange(index, len(r.record))
	}
	return r.record[index], nil
}

// Get returns the text of the named field, or "" when it is NULL.
func (r Row) Get(name string) (string, error) {
	return r.StringByName(name)
}

// IsNull reports whether the value at index is SQL NULL.
func (r Row) IsNull(index int) (bool, error) {
	v, err := r.Value(index)
	return !v.Valid, err
}

// IsNullByName reports whether the named value is SQL NULL.
func (r Row) IsNullByName(name string) (bool, error) {
	return byName(r, name, r.IsNull)
}

// Int returns the value at index as a 32-bit signed integer.
func (r Row) Int(index int) (int32, error) { return decode(r, index, r.parseInt) }

// IntByName returns the named value as a 32-bit signed integer.
func (r Row) IntByName(name string) (int32, error) { return byName(r, name, r.Int) }

// NullInt returns the value at index as a nullable 32-bit signed integer.
func (r Row) NullInt(index int) (sql.Null[int32], error) { return decodeNull(r, index, r.parseInt) }

// NullIntByName returns the named value as a nullable 32-bit signed integer.
func (r Row) NullIntByName(name string) (sql.Null[int32], error) { return byName(r, name, r.NullInt) }

// Uint returns the value at index as a 32-bit unsigned integer.
func (r Row) Uint(index int) (uint32, error) { return decode(r, index, r.parseUint) }

// UintByName returns the named value as a 32-bit unsigned integer.
func (r Row) UintByName(name string) (uint32, error) { return byName(r, name, r.Uint) }

// NullUint returns the value at index as a nullable 32-bit unsigned integer.
func (r Row) NullUint(index int) (sql.Null[uint32], error) { return decodeNull(r, index, r.parseUint) }

// NullUintByName returns the named value as a nullable 32-bit unsigned integer.
func (r Row) NullUintByName(name string) (sql.Null[uint32], error) {
	return byName(r, name, r.NullUint)
}

// Short returns the value at index as a 16-bit signed integer.
func (r Row) Short(index int) (int16, error) { return decode(r, index, r.parseShort) }

// ShortByName returns the named value as a 16-bit signed integer.
func (r Row) ShortByName(name string) (int16, error) { return byName(r, name, r.Short) }

// NullShort returns the value at index as a nullable 16-bit signed integer.
func (r Row) NullShort(index int) (sql.Null[int16], error) { return decodeNull(r, index, r.parseShort) }

// NullShortByName returns the named value as a nullable 16-bit signed integer.
func (r Row) NullShortByName(name string) (sql.Null[int16], error) {
	return byName(r, name, r.NullShort)
}

// UShort returns the value at index as a 16-bit unsigned integer.
func (r Row) UShort(index int) (uint16, error) { return decode(r, index, r.parseUShort) }

// UShortByName returns the named value as a 16-bit unsigned integer.
func (r Row) UShortByName(name string) (uint16, error) { return byName(r, name, r.UShort) }

// NullUShort returns the value at index as a nullable 16-bit unsigned integer.
func (r Row) NullUShort(index int) (sql.Null[uint16], error) {
	return decodeNull(r, index, r.parseUShort)
}

// NullUShortByName returns the named value as a nullable 16-bit unsigned integer.
func (r Row) NullUShortByName(name string) (sql.Null[uint16], error) {
	return byName(r, name, r.NullUShort)
}

// Char returns the first byte of the value at index, 0 for NULL or empty text.
func (r Row) Char(index int) (byte, error) { return decode(r, index, r.parseChar) }

// CharByName returns the first byte of the named value.
func (r Row) CharByName(name string) (byte, error) { return byName(r, name, r.Char) }

// NullChar returns the first byte of the value at index, absent for NULL.
func (r Row) NullChar(index int) (sql.Null[byte], error) { return decodeNull(r, index, r.parseChar) }

// NullCharByName returns the first byte of the named value, absent for NULL.
func (r Row) NullCharByName(name string) (sql.Null[byte], error) { return byName(r, name, r.NullChar) }

// Int64 returns the value at index as a 64-bit signed integer.
func (r Row) Int64(index int) (int64, error) { return decode(r, index, r.parseInt64) }

// Int64ByName returns the named value as a 64-bit signed integer.
func (r Row) Int64ByName(name string) (int64, error) { return byName(r, name, r.Int64) }

// NullInt64 returns the value at index as a nullable 64-bit signed integer.
func (r Row) NullInt64(index int) (sql.Null[int64], error) { return decodeNull(r, index, r.parseInt64) }

// NullInt64ByName returns the named value as a nullable 64-bit signed integer.
func (r Row) NullInt64ByName(name string) (sql.Null[int64], error) {
	return byName(r, name, r.NullInt64)
}

// Uint64 returns the value at index as a 64-bit unsigned integer.
func (r Row) Uint64(index int) (uint64, error) { return decode(r, index, r.parseUint64) }

// Uint64ByName returns the named value as a 64-bit unsigned integer.
func (r Row) Uint64ByName(name string) (uint64, error) { return byName(r, name, r.Uint64) }

// NullUint64 returns the value at index as a nullable 64-bit unsigned integer.
func (r Row) NullUint64(index int) (sql.Null[uint64], error) {
	return decodeNull(r, index, r.parseUint64)
}

// NullUint64ByName returns the named value as a nullable 64-bit unsigned integer.
func (r Row) NullUint64ByName(name string) (sql.Null[uint64], error) {
	return byName(r, name, r.NullUint64)
}

// String returns the text at index, "" for NULL.
func (r Row) String(index int) (string, error) { return decode(r, index, identity) }

// StringByName returns the named text, "" for NULL.
func (r Row) StringByName(name string) (string, error) { return byName(r, name, r.String) }

// NullString returns the text at index, absent for NULL.
func (r Row) NullString(index int) (sql.Null[string], error) { return decodeNull(r, index, identity) }

// NullStringByName returns the named text, absent for NULL.
func (r Row) NullStringByName(name string) (sql.Null[string], error) {
	return byName(r, name, r.NullString)
}

// Float returns the value at index as a float32.
func (r Row) Float(index int) (float32, error) { return decode(r, index, r.parseFloat) }

// FloatByName returns the named value as a float32.
func (r Row) FloatByName(name string) (float32, error) { return byName(r, name, r.Float) }

// NullFloat returns the value at index as a nullable float32.
func (r Row) NullFloat(index int) (sql.Null[float32], error) { return decodeNull(r, index, r.parseFloat) }

// NullFloatByName returns the named value as a nullable float32.
func (r Row) NullFloatByName(name string) (sql.Null[float32], error) {
	return byName(r, name, r.NullFloat)
}

// Double returns the value at index as a float64.
func (r Row) Double(index int) (float64, error) { return decode(r, index, r.parseDouble) }

// DoubleByName returns the named value as a float64.
func (r Row) DoubleByName(name string) (float64, error) { return byName(r, name, r.Double) }

// NullDouble returns the value at index as a nullable float64.
func (r Row) NullDouble(index int) (sql.Null[float64], error) {
	return decodeNull(r, index, r.parseDouble)
}

// NullDoubleByName returns the named value as a nullable float64.
func (r Row) NullDoubleByName(name string) (sql.Null[float64], error) {
	return byName(r, name, r.NullDouble)
}

// Timestamp parses the value at index as "YYYY-MM-DD HH:MM:SS" civil time in
// the query's location. NULL or malformed text yields epoch zero.
func (r Row) Timestamp(index int) (time.Time, error) {
	v, err := r.Value(index)
	if err != nil || !v.Valid {
		return mapper.EpochZero, err
	}
	t, _ := r.result.mapper.ToTimestamp(v.String)
	return t, nil
}

// TimestampByName parses the named value as a timestamp.
func (r Row) TimestampByName(name string) (time.Time, error) { return byName(r, name, r.Timestamp) }

// NullTimestamp parses the value at index as a timestamp. NULL or malformed
// text yields an absent value.
func (r Row) NullTimestamp(index int) (sql.Null[time.Time], error) {
	v, err := r.Value(index)
	if err != nil || !v.Valid {
		return sql.Null[time.Time]{}, err
	}
	t, ok := r.result.mapper.ToTimestamp(v.String)
	if !ok {
		return sql.Null[time.Time]{}, nil
	}
	return sql.Null[time.Time]{V: t, Valid: true}, nil
}

// NullTimestampByName parses the named value as a nullable timestamp.
func (r Row) NullTimestampByName(name string) (sql.Null[time.Time], error) {
	return byName(r, name, r.NullTimestamp)
}

// Parsers narrow the 64-bit results the way a C cast truncates.

func (r Row) parseInt(s string) int32     { return int32(r.result.mapper.ToInt64(s)) }
func (r Row) parseUint(s string) uint32   { return uint32(r.result.mapper.ToUint64(s)) }
func (r Row) parseShort(s string) int16   { return int16(r.result.mapper.ToInt64(s)) }
func (r Row) parseUShort(s string) uint16 { return uint16(r.result.mapper.ToUint64(s)) }
func (r Row) parseChar(s string) byte     { return r.result.mapper.ToChar(s) }
func (r Row) parseInt64(s string) int64   { return r.result.mapper.ToInt64(s) }
func (r Row) parseUint64(s string) uint64 { return r.result.mapper.ToUint64(s) }
func (r Row) parseFloat(s string) float32 { return float32(r.result.mapper.ToFloat(s, 32)) }
func (r Row) parseDouble(s string) float64 {
	return r.result.mapper.ToFloat(s, 64)
}

func identity(s string) string { return s }

func decode[T any](r Row, index int, parse func(string) T) (T, error) {
	var zero T
	v, err := r.Value(index)
	if err != nil || !v.Valid {
		return zero, err
	}
	return parse(v.String), nil
}

func decodeNull[T any](r Row, index int, parse func(string) T) (sql.Null[T], error) {
	v, err := r.Value(index)
	if err != nil || !v.Valid {
		return sql.Null[T]{}, err
	}
	return sql.Null[T]{V: parse(v.String), Valid: true}, nil
}

func byName[T any](r Row, name string, get func(int) (T, error)) (T, error) {
	index, err := r.GetIndexByField(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return get(index)
}
