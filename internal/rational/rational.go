// Package rational implements exact non-negative fraction arithmetic used
// by the inference engine to keep nested-tuplet tick math drift-free.
package rational

import "fmt"

// Rational is an exact fraction Num/Den, always stored in reduced form
// with Den > 0. Zero value is invalid; use New.
type Rational struct {
	Num uint64
	Den uint64
}

// New constructs a reduced Rational. It panics on den == 0: a zero
// denominator indicates a compiler bug (malformed duration text that
// should never have reached here), not a user-facing error.
func New(num, den uint64) Rational {
	if den == 0 {
		panic(fmt.Sprintf("rational: zero denominator (num=%d)", num))
	}
	g := gcd(num, den)
	return Rational{Num: num / g, Den: den / g}
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Mul returns the reduced product of r and o.
func (r Rational) Mul(o Rational) Rational {
	return New(r.Num*o.Num, r.Den*o.Den)
}

// ToTicks converts the fraction to an integer tick count at the given
// pulses-per-quarter resolution. The factor of 4 encodes that a whole
// note spans 4 quarter-note beats.
func (r Rational) ToTicks(ppq uint32) uint64 {
	return (r.Num * 4 * uint64(ppq)) / r.Den
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}
