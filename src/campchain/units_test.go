package campchain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	assert.Equal(t, "50000000000000000000", ToBaseUnits(decimal.NewFromInt(50)).String())
	assert.Equal(t, "1500000000000000000", ToBaseUnits(decimal.RequireFromString("1.5")).String())
	assert.Equal(t, "0", ToBaseUnits(decimal.Zero).String())

	// Precision below 10^-18 truncates rather than rounds.
	assert.Equal(t, "1", ToBaseUnits(decimal.RequireFromString("0.0000000000000000019")).String())
}

func TestFromBaseUnits(t *testing.T) {
	wei, ok := new(big.Int).SetString("1500000000000000000", 10)
	require.True(t, ok)
	assert.True(t, FromBaseUnits(wei).Equal(decimal.RequireFromString("1.5")))

	assert.True(t, FromBaseUnits(nil).IsZero())
	assert.True(t, FromBaseUnits(big.NewInt(0)).IsZero())
}

func TestBaseUnitsRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1", "0.000000000000000001", "123456.789"} {
		d := decimal.RequireFromString(s)
		assert.True(t, FromBaseUnits(ToBaseUnits(d)).Equal(d), "round trip %s", s)
	}
}
