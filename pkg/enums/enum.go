package enums

import "fmt"

func parseEnum[T ~string](valid []T, kind, value string) (T, error) {
	for _, candidate := range valid {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, value)
}

func containsEnum[T ~string](valid []T, value T) bool {
	for _, candidate := range valid {
		if candidate == value {
			return true
		}
	}
	return false
}
