package campchain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the reward token's fixed-point precision.
const TokenDecimals = 18

// ToBaseUnits converts a decimal token amount to the contract's smallest
// unit. Fractions below 10^-18 are truncated.
func ToBaseUnits(d decimal.Decimal) *big.Int {
	return d.Shift(TokenDecimals).Truncate(0).BigInt()
}

// FromBaseUnits converts a base-unit quantity to its decimal display form.
func FromBaseUnits(x *big.Int) decimal.Decimal {
	if x == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(x, -TokenDecimals)
}
