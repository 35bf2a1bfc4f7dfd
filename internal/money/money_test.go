package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "$3.00", Format(300))
	assert.Equal(t, "$0.05", Format(5))
	assert.Equal(t, "$12.34", Format(1234))
	assert.Equal(t, "0.00", String(0))
}

func TestCeilMul(t *testing.T) {
	assert.Equal(t, int64(39), CeilMul(550, DefaultGSTRate))
	assert.Equal(t, int64(7), CeilMul(100, DefaultGSTRate))
	assert.Equal(t, int64(1), CeilMul(1, DefaultGSTRate))
	assert.Equal(t, int64(0), CeilMul(0, DefaultGSTRate))
	assert.Equal(t, int64(0), CeilMul(550, decimal.Zero))
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, int64(100), CeilDiv(300, 3))
	assert.Equal(t, int64(75), CeilDiv(300, 4))
	assert.Equal(t, int64(43), CeilDiv(300, 7))
	assert.Equal(t, int64(0), CeilDiv(300, 0))
}

func TestParseRate(t *testing.T) {
	rate, err := ParseRate("")
	require.NoError(t, err)
	assert.True(t, rate.Equal(DefaultGSTRate))

	rate, err = ParseRate(" 0.09 ")
	require.NoError(t, err)
	assert.Equal(t, "0.09", rate.String())

	_, err = ParseRate("-0.1")
	assert.Error(t, err)
	_, err = ParseRate("seven")
	assert.Error(t, err)
}
