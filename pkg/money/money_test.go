package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pct(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestApplicationFee(t *testing.T) {
	assert.Equal(t, int64(1500), ApplicationFee(10000, pct("15")))
	assert.Equal(t, int64(100), ApplicationFee(10000, pct("0")))
	assert.Equal(t, int64(3000), ApplicationFee(10000, pct("55")))
	assert.Equal(t, int64(2), ApplicationFee(150, pct("1")))
	assert.Equal(t, int64(15), ApplicationFee(99, pct("15")))
	assert.Equal(t, int64(2), ApplicationFee(10, pct("15")))
	assert.Equal(t, int64(1250), ApplicationFee(10000, pct("12.5")))
}

func TestClampFeePercent(t *testing.T) {
	cases := map[string]string{
		"0":    "1",
		"-3":   "1",
		"0.5":  "1",
		"1":    "1",
		"12.5": "12.5",
		"30":   "30",
		"31":   "30",
	}
	for in, want := range cases {
		got := ClampFeePercent(pct(in))
		assert.True(t, got.Equal(pct(want)), "ClampFeePercent(%s) = %s, want %s", in, got, want)
	}
}

func TestParseMajor(t *testing.T) {
	cents, err := ParseMajor("120.5")
	require.NoError(t, err)
	assert.Equal(t, int64(12050), cents)

	cents, err = ParseMajor("12,99")
	require.NoError(t, err)
	assert.Equal(t, int64(1299), cents)

	_, err = ParseMajor("0")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ParseMajor("abc")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFromMajorFloatAndDisplay(t *testing.T) {
	cents, err := FromMajorFloat(60)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), cents)

	_, err = FromMajorFloat(-1)
	assert.Error(t, err)

	assert.Equal(t, 60.0, Display(6000))
	assert.Equal(t, 12.34, Display(1234))
}
