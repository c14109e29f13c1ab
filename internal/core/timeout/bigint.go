package timeout

import "math/big"

// bigValue keeps the seconds in an arbitrary-precision integer; negative
// means infinite.
type bigValue struct {
	v *big.Int
}

func (b bigValue) IsInfinite() bool {
	return b.v.Sign() < 0
}

func (b bigValue) String() string {
	if b.IsInfinite() {
		return infiniteToken
	}
	return b.v.String()
}

func (b bigValue) Validity(now int64) (int64, bool) {
	if b.IsInfinite() {
		return Infinite, false
	}
	sum := new(big.Int).Add(b.v, big.NewInt(now))
	if !sum.IsInt64() {
		return 0, false
	}
	return sum.Int64(), true
}
