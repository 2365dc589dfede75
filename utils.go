package nftx

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
)

const (
	MaxDecimals = 18
)

// ParseUnits converts a human-readable decimal amount to base units,
// e.g. ParseUnits("1.5", 18). Digits past decimals are truncated.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, &InvalidParamError{Message: fmt.Sprintf("decimals must be between 0 and %d, got: %d", MaxDecimals, decimals)}
	}

	amount = strings.TrimSpace(amount)
	parts := strings.Split(amount, ".")
	if len(parts) > 2 || amount == "" {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid amount format: %q", amount)}
	}

	integerPart := parts[0]
	if integerPart == "" {
		integerPart = "0"
	}
	decimalPart := ""
	if len(parts) == 2 {
		decimalPart = parts[1]
	}

	// Pad or truncate decimal part to match decimals
	if len(decimalPart) > decimals {
		decimalPart = decimalPart[:decimals]
	} else {
		decimalPart = decimalPart + strings.Repeat("0", decimals-len(decimalPart))
	}

	result, ok := new(big.Int).SetString(integerPart+decimalPart, 10)
	if !ok || result.Sign() < 0 {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid amount: %q", amount)}
	}
	if result.Cmp(math.MaxBig256) > 0 {
		return nil, &InvalidParamError{Message: fmt.Sprintf("amount too large for uint256: %s", result.String())}
	}
	return result, nil
}

// bps returns amount * rate / 10000, rounded down
func bps(amount *big.Int, rate uint64) *big.Int {
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(rate))
	return out.Quo(out, big.NewInt(BasisPoints))
}
