// Package cast coerces loosely-typed values (as decoded from
// environment variables or an external settings source) into the
// concrete types Config fields expect.
package cast

import (
	"fmt"
	"strconv"
	"time"
)

// ToInt coerces v to an int64, accepting any integer kind or a decimal
// string. Floating-point values are rejected.
func ToInt(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cast: %q is not an int: %w", t, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cast: %T is not an int", v)
	}
}

// ToUint16 coerces v to a uint16, rejecting values outside range.
func ToUint16(v any) (uint16, error) {
	n, err := ToInt(v)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 0xffff {
		return 0, fmt.Errorf("cast: %d out of uint16 range", n)
	}
	return uint16(n), nil
}

// ToDurationSeconds coerces v (a count of seconds, numeric or string)
// into a time.Duration.
func ToDurationSeconds(v any) (time.Duration, error) {
	n, err := ToInt(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

// ToString coerces v to a string.
func ToString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	default:
		return "", fmt.Errorf("cast: %T is not a string", v)
	}
}
