package testutil

import (
	"fmt"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"github.com/kinslayermud/kinslayer-sqlDatabase/transport/mock"
)

// Factory generates test records with customizable options.
type Factory interface {
	// Build creates a single record
	Build(options ...Option) map[string]interface{}

	// BuildList creates multiple records
	BuildList(count int, options ...Option) []map[string]interface{}
}

// Option is a function that modifies factory behavior.
type Option func(map[string]interface{})

// BaseFactory provides common factory functionality. Default values that are
// functions are called once per built record.
type BaseFactory struct {
	defaults map[string]interface{}
}

// NewBaseFactory creates a new base factory with default values.
func NewBaseFactory(defaults map[string]interface{}) *BaseFactory {
	return &BaseFactory{defaults: defaults}
}

// Build creates a single record with optional overrides.
func (f *BaseFactory) Build(options ...Option) map[string]interface{} {
	data := make(map[string]interface{}, len(f.defaults))
	for k, v := range f.defaults {
		data[k] = v
	}

	for _, opt := range options {
		opt(data)
	}

	for k, v := range data {
		switch fn := v.(type) {
		case func() int64:
			data[k] = fn()
		case func() string:
			data[k] = fn()
		case func() time.Time:
			data[k] = fn()
		}
	}
	return data
}

// BuildList creates multiple records.
func (f *BaseFactory) BuildList(count int, options ...Option) []map[string]interface{} {
	results := make([]map[string]interface{}, count)
	for i := 0; i < count; i++ {
		results[i] = f.Build(options...)
	}
	return results
}

// WithField sets a specific field value.
func WithField(name string, value interface{}) Option {
	return func(data map[string]interface{}) {
		data[name] = value
	}
}

// WithNull sets a field to SQL NULL.
func WithNull(name string) Option {
	return WithField(name, nil)
}

// Sequence generators for unique values

var (
	nameSequence uint64
	idSequence   uint64
)

// SequenceName generates unique names.
func SequenceName() string {
	n := atomic.AddUint64(&nameSequence, 1)
	return fmt.Sprintf("player%d", n)
}

// SequenceID generates unique IDs.
func SequenceID() int64 {
	return int64(atomic.AddUint64(&idSequence, 1))
}

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// RandomString generates a random string of the specified length.
func RandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rng.Intn(len(charset))]
	}
	return string(b)
}

// RandomInt generates a random integer between min and max (inclusive).
func RandomInt(min, max int) int {
	return min + rng.Intn(max-min+1)
}

// PlayerFactory creates rows shaped like a player table.
type PlayerFactory struct {
	*BaseFactory
}

// PlayerFields is the column order of PlayerFactory results.
var PlayerFields = []string{"id", "name", "level", "gold", "last_login"}

// NewPlayerFactory creates a factory for player rows.
func NewPlayerFactory() *PlayerFactory {
	return &PlayerFactory{
		BaseFactory: NewBaseFactory(map[string]interface{}{
			"id":    SequenceID,
			"name":  SequenceName,
			"level": int64(1),
			"gold":  uint64(0),
			"last_login": func() time.Time {
				return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
			},
		}),
	}
}

// ToResult converts built records into a scripted result with the given
// column order. Missing keys become NULL.
func ToResult(fields []string, records []map[string]interface{}) *mock.Result {
	result := mock.NewResult(fields...)
	for _, rec := range records {
		values := make([]interface{}, len(fields))
		for i, f := range fields {
			values[i] = rec[f]
		}
		result.AddRow(values...)
	}
	return result
}

// Grid builds a result of rows × fields text values "r<i>c<j>" with columns
// named "c0".."c<fields-1>".
func Grid(rows, fields int) *mock.Result {
	names := make([]string, fields)
	for j := range names {
		names[j] = fmt.Sprintf("c%d", j)
	}

	result := mock.NewResult(names...)
	for i := 0; i < rows; i++ {
		values := make([]interface{}, fields)
		for j := range values {
			values[j] = fmt.Sprintf("r%dc%d", i, j)
		}
		result.AddRow(values...)
	}
	return result
}

// SortedKeys returns the keys of rec in lexical order.
func SortedKeys(rec map[string]interface{}) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
