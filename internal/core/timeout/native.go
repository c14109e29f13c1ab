package timeout

import (
	"math"
	"strconv"
)

// nativeValue keeps the seconds in a host int; negative means infinite.
type nativeValue struct {
	v int
}

func (n nativeValue) IsInfinite() bool {
	return n.v < 0
}

func (n nativeValue) String() string {
	if n.IsInfinite() {
		return infiniteToken
	}
	return strconv.Itoa(n.v)
}

func (n nativeValue) Validity(now int64) (int64, bool) {
	if n.IsInfinite() {
		return Infinite, false
	}
	if now > int64(math.MaxInt) || now < int64(math.MinInt) {
		return 0, false
	}
	t := int(now)
	if t > 0 && n.v > math.MaxInt-t {
		return 0, false
	}
	return int64(n.v + t), true
}
