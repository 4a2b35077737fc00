// Package partition splits the alphabet into contiguous letter ranges and
// assigns them to workers.
package partition

import (
	"errors"
	"fmt"
	"strings"
)

// Alphabet is the keyspace workers are partitioned over.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ErrFormat is returned by Parse for anything other than "X-Y" with single
// letters X <= Y.
var ErrFormat = errors.New("range must be two letters separated by '-'")

// Range is an inclusive, case-insensitive span of letters. Start and End are
// stored uppercase.
type Range struct {
	Start byte
	End   byte
}

// Parse reads a range of the form "A-I". Letters may be either case.
func Parse(text string) (Range, error) {
	parts := strings.Split(text, "-")
	if len(parts) != 2 {
		return Range{}, fmt.Errorf("%w: %q", ErrFormat, text)
	}
	start, ok := letter(parts[0])
	if !ok {
		return Range{}, fmt.Errorf("%w: %q", ErrFormat, text)
	}
	end, ok := letter(parts[1])
	if !ok {
		return Range{}, fmt.Errorf("%w: %q", ErrFormat, text)
	}
	if start > end {
		return Range{}, fmt.Errorf("%w: %q starts after it ends", ErrFormat, text)
	}
	return Range{Start: start, End: end}, nil
}

func letter(tok string) (byte, bool) {
	tok = strings.TrimSpace(tok)
	if len(tok) != 1 {
		return 0, false
	}
	c := upper(tok[0])
	if c < 'A' || c > 'Z' {
		return 0, false
	}
	return c, true
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

func (r Range) String() string {
	return string([]byte{r.Start, '-', r.End})
}

// Contains reports whether letter c (either case) falls inside r.
func (r Range) Contains(c byte) bool {
	c = upper(c)
	return c >= r.Start && c <= r.End
}

// ContainsWord reports whether word is non-empty and starts with a letter in r.
func (r Range) ContainsWord(word string) bool {
	return word != "" && r.Contains(word[0])
}

// Size is the number of letters covered by r.
func (r Range) Size() int {
	return int(r.End-r.Start) + 1
}

func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Range) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Assign splits the alphabet for n workers in registration order. Each block
// holds ceil(26/n) letters and the last block is truncated at Z. Workers
// whose block would start past Z get nil; this happens for n > 26 and also
// for some smaller n (n=10 uses only nine blocks). Assign(0) returns nil.
func Assign(n int) []*Range {
	if n <= 0 {
		return nil
	}
	per := (len(Alphabet) + n - 1) / n
	out := make([]*Range, n)
	for i := range out {
		start := i * per
		if start >= len(Alphabet) {
			continue
		}
		end := min(start+per-1, len(Alphabet)-1)
		out[i] = &Range{Start: Alphabet[start], End: Alphabet[end]}
	}
	return out
}
