// Package sizecatalog holds the fixed, ordered table of EC2 instance sizes
// and their normalization factors used to account for instance-size
// flexibility within a family.
//
// See http://docs.aws.amazon.com/AWSEC2/latest/UserGuide/ri-modification-instancemove.html
package sizecatalog

import "fmt"

// UnknownSizeError is returned when a size name is not present in the
// catalog.
type UnknownSizeError struct {
	Size string
}

func (e *UnknownSizeError) Error() string {
	return fmt.Sprintf("unknown instance size: %q", e.Size)
}

type entry struct {
	size   string
	factor float64
}

// order is the canonical, fixed size ordering. Factors come straight from
// AWS's normalization factor table.
var order = []entry{
	{"nano", 0.25},
	{"micro", 0.5},
	{"small", 1},
	{"medium", 2},
	{"large", 4},
	{"xlarge", 8},
	{"2xlarge", 16},
	{"4xlarge", 32},
	{"8xlarge", 64},
	{"10xlarge", 80},
	{"16xlarge", 128},
	{"32xlarge", 256},
}

var factors = func() map[string]float64 {
	m := make(map[string]float64, len(order))
	for _, e := range order {
		m[e.size] = e.factor
	}
	return m
}()

// SizesInOrder returns the canonical ordered sequence of size names.
func SizesInOrder() []string {
	out := make([]string, len(order))
	for i, e := range order {
		out[i] = e.size
	}
	return out
}

// FactorOf returns the normalization factor for size, or an *UnknownSizeError
// if size is not in the catalog.
func FactorOf(size string) (float64, error) {
	f, ok := factors[size]
	if !ok {
		return 0, &UnknownSizeError{Size: size}
	}
	return f, nil
}

// Rank returns the position of size within SizesInOrder, or -1 if size is
// unknown, for callers that need a comparator rather than a lookup.
func Rank(size string) int {
	for i, e := range order {
		if e.size == size {
			return i
		}
	}
	return -1
}
