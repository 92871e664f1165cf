package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
)

// RewardCurrency is the value_other currency id that carries tap rewards.
const RewardCurrency = "1"

// nanoExp scales raw integer amounts (10^-9 units) to whole tokens.
const nanoExp = -9

var ErrInvalidAmount = errors.New("invalid amount")

// DecodeNano parses a hex integer ("0x3b9aca00" or bare "3b9aca00") and
// returns it divided by 10^9, exactly.
func DecodeNano(hex string) (decimal.Decimal, error) {
	s := strings.TrimSpace(hex)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}

	n, ok := math.ParseBig256(s)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, hex)
	}
	return decimal.NewFromBigInt(n, nanoExp), nil
}

// rewardValue picks the RewardCurrency entry out of a value_other list.
func rewardValue(values []currencyValue) (string, bool) {
	for _, v := range values {
		if v.Currency.String() == RewardCurrency {
			return v.Value, true
		}
	}
	return "", false
}
