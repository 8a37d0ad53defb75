package pointer

import "time"

// To returns a pointer to a copy of value
func To[T any](value T) *T {
	return &value
}

// Copy returns a pointer to a copy of the pointed-to value, or nil
func Copy[T any](value *T) *T {
	if value == nil {
		return nil
	}
	return To(*value)
}

// IfValid returns a pointer to value when valid is true, otherwise nil. It
// pairs with the sql.Null* types.
func IfValid[T any](valid bool, value T) *T {
	if !valid {
		return nil
	}
	return &value
}

// ValueOrDefault dereferences value, or returns defaultValue when it is nil
func ValueOrDefault[T any](value *T, defaultValue T) T {
	if value == nil {
		return defaultValue
	}
	return *value
}

// String returns a pointer to the provided string value
func String(value string) *string {
	return To(value)
}

// Time returns a pointer to the provided time value
func Time(value time.Time) *time.Time {
	return To(value)
}
