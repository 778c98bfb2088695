package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCount(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  int
		expectErr bool
	}{
		{name: "Empty is zero", raw: "", expected: 0},
		{name: "Plain digits", raw: "100", expected: 100},
		{name: "Leading zeros", raw: "007", expected: 7},
		{name: "Leading space", raw: " 42", expectErr: true},
		{name: "Trailing space", raw: "42 ", expectErr: true},
		{name: "Trailing newline", raw: "42\n", expectErr: true},
		{name: "Only spaces", raw: "   ", expectErr: true},
		{name: "Negative sign", raw: "-5", expectErr: true},
		{name: "Plus sign", raw: "+5", expectErr: true},
		{name: "Decimal", raw: "1.5", expectErr: true},
		{name: "Letters", raw: "12a", expectErr: true},
		{name: "Inner space", raw: "1 2", expectErr: true},
		{name: "Thousands separator", raw: "1,000", expectErr: true},
		{name: "Overflow", raw: "999999999999999999999999", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := ParseCount(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, n)
		})
	}
}

func TestParseCount_NotNumericSentinel(t *testing.T) {
	for _, raw := range []string{"abc", " 12 ", "12\t"} {
		_, err := ParseCount(raw)
		assert.True(t, errors.Is(err, ErrNotNumeric), "%q", raw)
	}
}

func TestParseCounts(t *testing.T) {
	counts, errs := ParseCounts(map[string]string{"a": "100", "b": "", "c": "x1"})

	assert.Equal(t, map[string]int{"a": 100, "b": 0}, counts)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs, "c")

	counts, errs = ParseCounts(map[string]string{"a": "1"})
	assert.Equal(t, map[string]int{"a": 1}, counts)
	assert.Nil(t, errs)
}
