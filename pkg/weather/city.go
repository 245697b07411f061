package weather

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minCityLength = 2
	maxCityLength = 50
)

// ErrInvalidCity is returned by SanitizeCity for names that are too short or
// too long once sanitized.
var ErrInvalidCity = errors.New("invalid city")

// SanitizeCity keeps only letters, spaces and hyphens of city and collapses
// runs of whitespace. An empty city is returned as is so the default city
// applies.
func SanitizeCity(city string) (string, error) {
	if city == "" {
		return "", nil
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), r == '-':
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, city)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	n := utf8.RuneCountInString(cleaned)
	if n < minCityLength {
		return "", fmt.Errorf("%w: %q is too short", ErrInvalidCity, city)
	}
	if n > maxCityLength {
		return "", fmt.Errorf("%w: name longer than %d characters", ErrInvalidCity, maxCityLength)
	}
	return cleaned, nil
}
