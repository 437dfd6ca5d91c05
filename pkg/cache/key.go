package cache

import (
	"fmt"
	"strconv"
	"strings"
)

// Key represents a unique identifier for a cached query result.
//
// A key is composed of a resource prefix (e.g. "products"), the operation
// that produced the result (e.g. "getAll") and the query parameters that
// affect it. Fields are kept in the order they were added so that the same
// call site always produces the same string, across restarts and instances.
type Key struct {
	// Prefix is the resource namespace (e.g. "products", "orders").
	// It is also the unit of invalidation: deleting "products" removes
	// every key built with that prefix.
	Prefix string

	// Operation is the query name within the resource (e.g. "getAll").
	Operation string

	fields []field
}

type field struct {
	name  string
	value string
}

// NewKey creates a key for the given resource prefix and operation.
func NewKey(prefix, operation string) *Key {
	return &Key{Prefix: prefix, Operation: operation}
}

// With appends a parameter to the key. An explicit empty value is kept,
// so a caller that distinguishes "no filter" from "empty filter" can use
// WithOpt for the former and With for the latter.
func (k *Key) With(name, value string) *Key {
	k.fields = append(k.fields, field{name: name, value: value})
	return k
}

// WithOpt appends a parameter only when present. Absent parameters are
// omitted entirely so that logically identical requests share a key.
func (k *Key) WithOpt(name, value string, present bool) *Key {
	if !present {
		return k
	}
	return k.With(name, value)
}

// WithInt appends an integer parameter.
func (k *Key) WithInt(name string, value int) *Key {
	return k.With(name, strconv.Itoa(value))
}

// WithInt64 appends a 64-bit integer parameter.
func (k *Key) WithInt64(name string, value int64) *Key {
	return k.With(name, strconv.FormatInt(value, 10))
}

// String generates the deterministic cache key string.
// Format: prefix:operation:name1:value1:name2:value2
//
// Example:
//
//	products:getAll:page:1:limit:8
func (k *Key) String() string {
	parts := make([]string, 0, 2+len(k.fields))
	parts = append(parts, k.Prefix, k.Operation)

	for _, f := range k.fields {
		parts = append(parts, fmt.Sprintf("%s:%s", f.name, f.value))
	}

	return strings.Join(parts, ":")
}
