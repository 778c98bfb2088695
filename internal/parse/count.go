package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var digitsRe = regexp.MustCompile(`^\d+$`)

// ErrNotNumeric is returned for count input containing anything but digits.
var ErrNotNumeric = errors.New("vote count must contain digits only")

// ParseCount converts a raw count field into a non-negative integer.
// An empty field counts as zero. Whitespace is a non-digit like any other.
func ParseCount(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	if !digitsRe.MatchString(raw) {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, raw)
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		// Only overflow gets here.
		return 0, fmt.Errorf("vote count %q is too large", raw)
	}
	return n, nil
}

// ParseCounts parses every field of a count form. Fields that fail to parse
// are reported in the error map and left out of the result.
func ParseCounts(raw map[string]string) (map[string]int, map[string]error) {
	counts := make(map[string]int, len(raw))
	var errs map[string]error
	for key, value := range raw {
		n, err := ParseCount(value)
		if err != nil {
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[key] = err
			continue
		}
		counts[key] = n
	}
	return counts, errs
}
