package billing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	n, err := FormatNumber("FRN", 2025, 1)
	require.NoError(t, err)
	assert.Equal(t, "FRN-2025-000001", n)

	n, err = FormatNumber("AB", 2026, MaxSequence)
	require.NoError(t, err)
	assert.Equal(t, "AB-2026-999999", n)
	assert.True(t, ValidNumber(n))
}

func TestFormatNumberRejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		prefix string
		year   int
		seq    int64
		want   error
	}{
		{"lowercase prefix", "frn", 2025, 1, ErrInvalidNumber},
		{"long prefix", "ABCDE", 2025, 1, ErrInvalidNumber},
		{"short prefix", "A", 2025, 1, ErrInvalidNumber},
		{"three digit year", "FRN", 999, 1, ErrInvalidNumber},
		{"zero sequence", "FRN", 2025, 0, ErrInvalidNumber},
		{"overflow", "FRN", 2025, MaxSequence + 1, ErrSequenceExhausted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FormatNumber(tc.prefix, tc.year, tc.seq)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestParseNumber(t *testing.T) {
	prefix, year, seq, err := ParseNumber("FRN-2025-000042")
	require.NoError(t, err)
	assert.Equal(t, "FRN", prefix)
	assert.Equal(t, 2025, year)
	assert.Equal(t, int64(42), seq)

	for _, bad := range []string{"", "FRN-2025-42", "frn-2025-000042", "FRN-25-000042", "FRN-2025-0000420"} {
		_, _, _, err := ParseNumber(bad)
		assert.ErrorIs(t, err, ErrInvalidNumber, bad)
	}
}

func TestSplitTax(t *testing.T) {
	cases := []struct {
		total, bps, net, tax int64
	}{
		{115000, 1500, 100000, 15000},
		{100000, 0, 100000, 0},
		{100, 1600, 86, 14},
		{1, 1500, 1, 0},
		{0, 1500, 0, 0},
	}
	for _, tc := range cases {
		net, tax := SplitTax(tc.total, tc.bps)
		assert.Equal(t, tc.net, net, "net of %d", tc.total)
		assert.Equal(t, tc.tax, tax, "tax of %d", tc.total)
		assert.Equal(t, tc.total, net+tax)
	}
}
