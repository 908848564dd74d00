package domain

import (
	"github.com/holiman/uint256"

	dErrors "salegate/pkg/domain-errors"
)

// Amount is a 256-bit unsigned quantity of the asset or of native currency.
// Wei-scale values overflow int64, so all arithmetic goes through uint256
// with explicit overflow checks.
type Amount = *uint256.Int

// BonusRateDivisor scales basis-point bonus rates: a bonusRate of 2500 means
// 25%.
const BonusRateDivisor = 10000

// Zero returns a fresh zero amount.
func Zero() Amount {
	return uint256.NewInt(0)
}

// NewAmount builds an amount from a uint64, convenient for tests and config.
func NewAmount(v uint64) Amount {
	return uint256.NewInt(v)
}

// ParseAmount validates and parses a decimal amount string from external
// input. Rejects empty strings and values that do not fit in 256 bits.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "amount cannot be empty")
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "amount must be an unsigned 256-bit decimal")
	}
	return v, nil
}

// MulRate computes value * rate, the purchased token amount. Overflow is a
// hard rejection: a purchase that cannot be represented cannot be honoured.
func MulRate(value Amount, rate Amount) (Amount, error) {
	out, overflow := new(uint256.Int).MulOverflow(value, rate)
	if overflow {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "token amount overflows 256 bits")
	}
	return out, nil
}

// BonusOf computes tokenAmount * bonusRate / 10000 with truncation toward
// zero.
func BonusOf(tokenAmount Amount, bonusRate uint64) (Amount, error) {
	out, overflow := new(uint256.Int).MulOverflow(tokenAmount, uint256.NewInt(bonusRate))
	if overflow {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "bonus amount overflows 256 bits")
	}
	return out.Div(out, uint256.NewInt(BonusRateDivisor)), nil
}

// AddAmount returns a + b, rejecting overflow.
func AddAmount(a, b Amount) (Amount, error) {
	out, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "amount overflows 256 bits")
	}
	return out, nil
}

// SubAmount returns a - b, rejecting underflow.
func SubAmount(a, b Amount) (Amount, error) {
	if b.Gt(a) {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "amount underflow")
	}
	return new(uint256.Int).Sub(a, b), nil
}

// CloneAmount copies an amount so stored values never alias caller memory.
func CloneAmount(a Amount) Amount {
	if a == nil {
		return Zero()
	}
	return new(uint256.Int).Set(a)
}
