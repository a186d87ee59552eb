package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in       string
		currency string
		want     int64
	}{
		{"10000", "KRW", 10000},
		{"-10000", "KRW", -10000},
		{"100.50", "USD", 10050},
		{"-0.01", "usd", -1},
		{"42.5", "XXX-UNKNOWN", 4250},
	}
	for _, tc := range tests {
		got, err := ParseAmount(tc.in, tc.currency)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseAmountRejectsExcessPrecision(t *testing.T) {
	// KRW has no fraction digits.
	_, err := ParseAmount("100.5", "KRW")
	require.Error(t, err)

	_, err = ParseAmount("100.505", "USD")
	require.Error(t, err)

	_, err = ParseAmount("not-a-number", "USD")
	require.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "10000", FormatAmount(10000, "KRW"))
	require.Equal(t, "-10000", FormatAmount(-10000, "KRW"))
	require.Equal(t, "100.50", FormatAmount(10050, "USD"))
	require.Equal(t, "-0.01", FormatAmount(-1, "USD"))
}
