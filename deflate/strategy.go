// Package deflate produces zlib streams using the classic
// deflate compression strategies.
//
// The standard library's compressor has no notion of a
// strategy, so this package implements the match finders
// and Huffman block writer itself.
package deflate

import "fmt"

// A Strategy selects how the compressor looks for matches.
type Strategy int

const (
	// Default uses lazy hash-chain matching.
	Default Strategy = iota

	// Filtered is like Default, but ignores matches of
	// five bytes or fewer, leaving small deltas (typical
	// of filtered image rows) to the Huffman coder.
	Filtered

	// RunLength only encodes runs of the previous byte.
	RunLength
)

// Strategies lists every Strategy in the order they should
// be tried.
var Strategies = []Strategy{Default, Filtered, RunLength}

func (s Strategy) String() string {
	switch s {
	case Default:
		return "default"
	case Filtered:
		return "filtered"
	case RunLength:
		return "rle"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}
