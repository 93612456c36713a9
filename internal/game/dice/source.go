package dice

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"math"
	"math/bits"
)

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// readerSource implements Source by rejection sampling over bytes drawn from r.
//
// Invariant: every value in [0, n) is equiprobable for any n > 0.
type readerSource struct {
	r io.Reader
}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return &readerSource{r: rand.Reader}
}

// Intn returns a uniformly distributed int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
// Panics with "dice: entropy source failure: <err>" if the byte source fails;
// there is no fallback to a weaker generator.
func (s *readerSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	return int(uniform(s.r, uint64(n)))
}

// uniform draws the minimal number of bytes covering [0, n) and rejects draws
// at or above the largest multiple of n that fits, so the final modulo is unbiased.
func uniform(r io.Reader, n uint64) uint64 {
	if n == 1 {
		return 0
	}
	nbytes := (bits.Len64(n-1) + 7) / 8

	var maxVal, rem uint64
	if nbytes == 8 {
		maxVal = math.MaxUint64
		rem = (math.MaxUint64%n + 1) % n
	} else {
		space := uint64(1) << (8 * nbytes)
		maxVal = space - 1
		rem = space % n
	}
	cutoff := maxVal - rem

	var buf [8]byte
	for {
		clear(buf[:])
		if _, err := io.ReadFull(r, buf[8-nbytes:]); err != nil {
			panic("dice: entropy source failure: " + err.Error())
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v <= cutoff {
			return v % n
		}
	}
}

// IntRange returns an integer in [min, max] inclusive drawn from src.
//
// Precondition: max >= min; src must be non-nil.
// Postcondition: min <= result <= max.
func IntRange(src Source, min, max int) int {
	if max < min {
		panic("dice: IntRange called with max < min")
	}
	return min + src.Intn(max-min+1)
}
