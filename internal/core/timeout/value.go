// Package timeout models WebDAV lock timeouts.
//
// A Value is either infinite or a count of seconds. Two backends implement
// it: one on the host's native int, one on math/big. Constructors pick the
// native backend whenever value+MaxTimestamp fits in an int, so Validity can
// never overflow on either path.
package timeout

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Infinite is what Validity returns for an infinite timeout.
const Infinite int64 = -1

// MaxTimestamp bounds the Unix time a caller is expected to pass to Validity
// (year 2106, the end of the unsigned 32-bit epoch).
const MaxTimestamp = 1<<32 - 1

const infiniteToken = "Infinite"

type Value interface {
	IsInfinite() bool
	// String returns the decimal number of seconds, or "Infinite".
	String() string
	// Validity returns now+seconds. ok is false for an infinite value, or
	// when the sum cannot be represented in an int64.
	Validity(now int64) (int64, bool)
}

// New parses s (decimal seconds, "Infinite", or a negative number meaning
// infinite) and returns the backend suited to its magnitude.
func New(s string) (Value, error) {
	n, inf, err := parse(s)
	if err != nil {
		return nil, err
	}
	if inf {
		return nativeValue{v: -1}, nil
	}
	if fitsNative(n) {
		return nativeValue{v: int(n.Int64())}, nil
	}
	return bigValue{v: n}, nil
}

// MustNew is New for literals.
func MustNew(s string) Value {
	v, err := New(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FromSeconds returns a finite Value.
func FromSeconds(n uint64) Value {
	v, _ := New(strconv.FormatUint(n, 10))
	return v
}

// InfiniteValue returns the infinite timeout.
func InfiniteValue() Value {
	return nativeValue{v: -1}
}

// NewNative builds the fixed-width backend. It fails when s does not fit in
// the host int.
func NewNative(s string) (Value, error) {
	n, inf, err := parse(s)
	if err != nil {
		return nil, err
	}
	if inf {
		return nativeValue{v: -1}, nil
	}
	if !n.IsInt64() || n.Int64() > math.MaxInt {
		return nil, fmt.Errorf("timeout %s overflows a %d-bit int", s, strconv.IntSize)
	}
	return nativeValue{v: int(n.Int64())}, nil
}

// NewBig builds the arbitrary-precision backend.
func NewBig(s string) (Value, error) {
	n, inf, err := parse(s)
	if err != nil {
		return nil, err
	}
	if inf {
		return bigValue{v: big.NewInt(-1)}, nil
	}
	return bigValue{v: n}, nil
}

// Seconds returns the finite number of seconds as an int64.
func Seconds(v Value) (int64, bool) {
	return v.Validity(0)
}

func fitsNative(n *big.Int) bool {
	if !n.IsInt64() {
		return false
	}
	return n.Int64() <= int64(math.MaxInt)-MaxTimestamp
}

// parse returns the magnitude, or inf=true for "Infinite" and negatives.
func parse(s string) (*big.Int, bool, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, infiniteToken) {
		return nil, true, nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, false, fmt.Errorf("invalid timeout value %q", s)
	}
	if n.Sign() < 0 {
		return nil, true, nil
	}
	return n, false, nil
}
