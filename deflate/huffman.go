package deflate

import (
	"container/heap"
	"math/bits"
)

const (
	maxCodeBits   = 15
	maxCLCodeBits = 7

	numLitCodes  = 286
	numDistCodes = 30

	// The fixed code also assigns codes to the two unused
	// length symbols 286 and 287.
	numFixedLitCodes = 288
	numCLCodes   = 19
	endOfBlock   = 256
)

// clOrder is the order in which code length code lengths
// are transmitted.
var clOrder = [numCLCodes]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

var (
	fixedLitLengths  [numFixedLitCodes]uint8
	fixedDistLengths [numDistCodes]uint8
	fixedLitCodes    []huffCode
	fixedDistCodes   []huffCode
)

func init() {
	for i := range fixedLitLengths {
		switch {
		case i < 144:
			fixedLitLengths[i] = 8
		case i < 256:
			fixedLitLengths[i] = 9
		case i < 280:
			fixedLitLengths[i] = 7
		default:
			fixedLitLengths[i] = 8
		}
	}
	for i := range fixedDistLengths {
		fixedDistLengths[i] = 5
	}
	fixedLitCodes = canonicalCodes(fixedLitLengths[:])
	fixedDistCodes = canonicalCodes(fixedDistLengths[:])
}

// A huffCode holds a code with its bits already reversed
// into stream order.
type huffCode struct {
	bits uint16
	nbit uint8
}

// lengthCode returns the literal/length symbol and extra
// bits for a match length in [3, 258].
func lengthCode(n int) (sym int, extra uint64, nbit uint) {
	r := n - minMatch
	if r == maxMatch-minMatch {
		return 285, 0, 0
	}
	for 8<<nbit <= r {
		nbit++
	}
	// r>>nbit is [0,7] if nbit=0, otherwise [4,7].
	return 257 + int(nbit)<<2 + r>>nbit, uint64(r & (1<<nbit - 1)), nbit
}

// distCode returns the distance symbol and extra bits for
// a distance in [1, 32768].
func distCode(d int) (sym int, extra uint64, nbit uint) {
	r := d - 1
	for 4<<nbit <= r {
		nbit++
	}
	// r>>nbit is [0,3] if nbit=0, otherwise [2,3].
	return int(nbit)<<1 + r>>nbit, uint64(r & (1<<nbit - 1)), nbit
}

// codeLengths returns Huffman code lengths for freq, none
// longer than maxBits. Unused symbols get length zero.
//
// At least two symbols always receive a code, so that the
// resulting code is complete for every decoder.
func codeLengths(freq []int, maxBits int) []uint8 {
	f := make([]int, len(freq))
	copy(f, freq)
	used := 0
	for _, v := range f {
		if v > 0 {
			used++
		}
	}
	for i := 0; used < 2; i++ {
		if f[i] == 0 {
			f[i] = 1
			used++
		}
	}

	lengths := make([]uint8, len(f))
	for !huffmanDepths(f, lengths, maxBits) {
		// Flatten the distribution until the tree is
		// shallow enough. All ones always fits.
		for i, v := range f {
			if v > 0 {
				f[i] = (v + 1) / 2
			}
		}
	}
	return lengths
}

type hnode struct {
	freq int
	id   int
}

type hnodeHeap []hnode

func (h hnodeHeap) Len() int { return len(h) }

func (h hnodeHeap) Less(i, j int) bool {
	if h[i].freq != h[j].freq {
		return h[i].freq < h[j].freq
	}
	return h[i].id < h[j].id
}

func (h hnodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *hnodeHeap) Push(x any) { *h = append(*h, x.(hnode)) }

func (h *hnodeHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// huffmanDepths fills lengths with the leaf depths of a
// Huffman tree for f. It returns false if some depth would
// exceed maxBits.
func huffmanDepths(f []int, lengths []uint8, maxBits int) bool {
	var leaves []int
	h := hnodeHeap{}
	for sym, v := range f {
		lengths[sym] = 0
		if v > 0 {
			h = append(h, hnode{freq: v, id: len(leaves)})
			leaves = append(leaves, sym)
		}
	}
	heap.Init(&h)

	parent := make([]int, 2*len(leaves)-1)
	next := len(leaves)
	for h.Len() > 1 {
		a := heap.Pop(&h).(hnode)
		b := heap.Pop(&h).(hnode)
		parent[a.id] = next
		parent[b.id] = next
		heap.Push(&h, hnode{freq: a.freq + b.freq, id: next})
		next++
	}
	root := next - 1

	for i, sym := range leaves {
		depth := 0
		for p := i; p != root; p = parent[p] {
			depth++
		}
		if depth > maxBits {
			return false
		}
		lengths[sym] = uint8(depth)
	}
	return true
}

// canonicalCodes assigns codes to lengths as described in
// RFC 1951 section 3.2.2.
func canonicalCodes(lengths []uint8) []huffCode {
	var count [maxCodeBits + 1]int
	for _, l := range lengths {
		count[l]++
	}
	count[0] = 0

	var next [maxCodeBits + 1]int
	code := 0
	for b := 1; b <= maxCodeBits; b++ {
		code = (code + count[b-1]) << 1
		next[b] = code
	}

	codes := make([]huffCode, len(lengths))
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		c := next[l]
		next[l]++
		codes[sym] = huffCode{
			bits: bits.Reverse16(uint16(c)) >> (16 - l),
			nbit: l,
		}
	}
	return codes
}

// weightedBits is the number of bits needed to code freq
// with the given lengths.
func weightedBits(freq []int, lengths []uint8) int {
	var n int
	for i, f := range freq {
		n += f * int(lengths[i])
	}
	return n
}

// A clToken is one symbol of the code length alphabet
// together with its repeat argument.
type clToken struct {
	sym   uint8
	extra uint8
}

var clExtraBits = [numCLCodes]uint{16: 2, 17: 3, 18: 7}

// encodeLengths run-length encodes a sequence of code
// lengths with the code length alphabet.
func encodeLengths(seq []uint8) []clToken {
	var out []clToken
	for i := 0; i < len(seq); {
		v := seq[i]
		run := 1
		for i+run < len(seq) && seq[i+run] == v {
			run++
		}
		i += run

		if v == 0 {
			for run >= 11 {
				n := min(run, 138)
				out = append(out, clToken{sym: 18, extra: uint8(n - 11)})
				run -= n
			}
			if run >= 3 {
				out = append(out, clToken{sym: 17, extra: uint8(run - 3)})
				run = 0
			}
		} else {
			out = append(out, clToken{sym: v})
			run--
			for run >= 3 {
				n := min(run, 6)
				out = append(out, clToken{sym: 16, extra: uint8(n - 3)})
				run -= n
			}
		}
		for ; run > 0; run-- {
			out = append(out, clToken{sym: v})
		}
	}
	return out
}

// dynamicHeader describes the code tables of a dynamic
// Huffman block.
type dynamicHeader struct {
	numLit  int
	numDist int
	numCL   int
	clLens  []uint8
	clCodes []huffCode
	tokens  []clToken
	bits    int // header size, excluding the 3 block bits
}

func newDynamicHeader(litLens, distLens []uint8) *dynamicHeader {
	numLit := len(litLens)
	for numLit > 257 && litLens[numLit-1] == 0 {
		numLit--
	}
	numDist := len(distLens)
	for numDist > 1 && distLens[numDist-1] == 0 {
		numDist--
	}

	seq := make([]uint8, 0, numLit+numDist)
	seq = append(seq, litLens[:numLit]...)
	seq = append(seq, distLens[:numDist]...)
	tokens := encodeLengths(seq)

	freq := make([]int, numCLCodes)
	for _, t := range tokens {
		freq[t.sym]++
	}
	clLens := codeLengths(freq, maxCLCodeBits)

	numCL := numCLCodes
	for numCL > 4 && clLens[clOrder[numCL-1]] == 0 {
		numCL--
	}

	n := 5 + 5 + 4 + 3*numCL
	for _, t := range tokens {
		n += int(clLens[t.sym]) + int(clExtraBits[t.sym])
	}

	return &dynamicHeader{
		numLit:  numLit,
		numDist: numDist,
		numCL:   numCL,
		clLens:  clLens,
		clCodes: canonicalCodes(clLens),
		tokens:  tokens,
		bits:    n,
	}
}

// A bitWriter packs bits LSB first, as deflate requires.
type bitWriter struct {
	buf  []byte
	bits uint64
	nbit uint
}

func (w *bitWriter) writeBits(b uint64, nbit uint) {
	w.bits |= b << w.nbit
	w.nbit += nbit
	for w.nbit >= 8 {
		w.buf = append(w.buf, byte(w.bits))
		w.bits >>= 8
		w.nbit -= 8
	}
}

func (w *bitWriter) code(c huffCode) {
	w.writeBits(uint64(c.bits), uint(c.nbit))
}

// alignByte pads the output with zero bits up to the next
// byte boundary.
func (w *bitWriter) alignByte() {
	if w.nbit > 0 {
		w.buf = append(w.buf, byte(w.bits))
		w.bits, w.nbit = 0, 0
	}
}
