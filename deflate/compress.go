package deflate

import (
	"encoding/binary"
	"hash/adler32"
)

const (
	windowSize   = 1 << 15
	windowMask   = windowSize - 1
	minMatch     = 3
	maxMatch     = 258
	minLookahead = maxMatch + minMatch + 1
	maxDist      = windowSize - minLookahead

	// Parameters of zlib's level 9.
	maxChain   = 4096
	niceLength = 258
	maxLazy    = 258
	goodLength = 32
	tooFar     = 4096

	hashBits = 15
	hashSize = 1 << hashBits

	blockTokens    = 1<<14 - 1
	maxStoredBlock = 65535
)

// zlibHeader announces deflate with a 32 KB window and
// maximum compression.
var zlibHeader = []byte{0x78, 0xda}

// Compress returns data as a zlib stream, compressed with
// strategy s at maximum effort.
func Compress(data []byte, s Strategy) []byte {
	c := &compressor{data: data}
	c.bw.buf = make([]byte, 0, len(data)/2+64)
	c.bw.buf = append(c.bw.buf, zlibHeader...)

	switch s {
	case Default:
		c.lazyMatch(false)
	case Filtered:
		c.lazyMatch(true)
	case RunLength:
		c.runLength()
	default:
		panic("deflate: unknown strategy " + s.String())
	}

	c.writeBlock(true)
	c.bw.alignByte()
	return binary.BigEndian.AppendUint32(c.bw.buf, adler32.Checksum(data))
}

// A token is a literal byte (length 0) or a match.
type token struct {
	length uint16
	value  uint16 // literal byte or match distance
}

type compressor struct {
	bw     bitWriter
	data   []byte
	tokens []token
	start  int // first input byte covered by tokens
	pos    int // input consumed so far
}

func (c *compressor) literal(b byte) {
	c.tokens = append(c.tokens, token{value: uint16(b)})
	c.pos++
	if len(c.tokens) == blockTokens {
		c.writeBlock(false)
	}
}

func (c *compressor) match(length, dist int) {
	c.tokens = append(c.tokens, token{length: uint16(length), value: uint16(dist)})
	c.pos += length
	if len(c.tokens) == blockTokens {
		c.writeBlock(false)
	}
}

// runLength tokenizes the input like zlib's Z_RLE.
func (c *compressor) runLength() {
	d := c.data
	for i := 0; i < len(d); {
		if i > 0 {
			b := d[i-1]
			lim := min(maxMatch, len(d)-i)
			n := 0
			for n < lim && d[i+n] == b {
				n++
			}
			if n >= minMatch {
				c.match(n, 1)
				i += n
				continue
			}
		}
		c.literal(d[i])
		i++
	}
}

// lazyMatch tokenizes the input with hash chains, deferring
// each match by one byte whenever that finds a longer one.
func (c *compressor) lazyMatch(filtered bool) {
	m := newMatcher(c.data, filtered)
	n := len(c.data)
	for i := 0; i < n; {
		length, dist := m.find(i, 0)
		if length == 0 {
			c.literal(c.data[i])
			i++
			continue
		}
		for length < maxLazy && i+1 < n {
			l, d := m.find(i+1, length)
			if l <= length {
				break
			}
			c.literal(c.data[i])
			i++
			length, dist = l, d
		}
		c.match(length, dist)
		i += length
	}
}

// writeBlock emits the pending tokens as a single block,
// choosing whichever encoding is shortest.
func (c *compressor) writeBlock(final bool) {
	var (
		litFreq  [numLitCodes]int
		distFreq [numDistCodes]int
		extra    int
	)
	for _, t := range c.tokens {
		if t.length == 0 {
			litFreq[t.value]++
			continue
		}
		lsym, _, lbits := lengthCode(int(t.length))
		dsym, _, dbits := distCode(int(t.value))
		litFreq[lsym]++
		distFreq[dsym]++
		extra += int(lbits + dbits)
	}
	litFreq[endOfBlock]++

	litLens := codeLengths(litFreq[:], maxCodeBits)
	distLens := codeLengths(distFreq[:], maxCodeBits)
	hdr := newDynamicHeader(litLens, distLens)

	dynamicBits := 3 + hdr.bits + extra +
		weightedBits(litFreq[:], litLens) + weightedBits(distFreq[:], distLens)
	fixedBits := 3 + extra +
		weightedBits(litFreq[:], fixedLitLengths[:]) + weightedBits(distFreq[:], fixedDistLengths[:])

	input := c.data[c.start:c.pos]
	storedBits := c.storedBits(len(input))

	switch {
	case storedBits < fixedBits && storedBits < dynamicBits:
		c.writeStored(input, final)
	case fixedBits <= dynamicBits:
		c.writeCompressed(final, nil, fixedLitCodes, fixedDistCodes)
	default:
		c.writeCompressed(final, hdr, canonicalCodes(litLens), canonicalCodes(distLens))
	}

	c.tokens = c.tokens[:0]
	c.start = c.pos
}

// storedBits is the exact size of n bytes written as stored
// blocks from the current bit position.
func (c *compressor) storedBits(n int) int {
	blocks := max(1, (n+maxStoredBlock-1)/maxStoredBlock)
	pad := (8 - (int(c.bw.nbit)+3)%8) % 8
	return 3 + pad + 32 + (blocks-1)*(3+5+32) + 8*n
}

func (c *compressor) writeStored(input []byte, final bool) {
	for {
		n := min(len(input), maxStoredBlock)
		last := n == len(input)
		c.bw.writeBits(boolBit(final && last), 1)
		c.bw.writeBits(0, 2)
		c.bw.alignByte()
		c.bw.buf = binary.LittleEndian.AppendUint16(c.bw.buf, uint16(n))
		c.bw.buf = binary.LittleEndian.AppendUint16(c.bw.buf, ^uint16(n))
		c.bw.buf = append(c.bw.buf, input[:n]...)
		input = input[n:]
		if last {
			return
		}
	}
}

// writeCompressed writes a Huffman block. A nil header
// selects the fixed codes.
func (c *compressor) writeCompressed(final bool, hdr *dynamicHeader, lit, dist []huffCode) {
	w := &c.bw
	w.writeBits(boolBit(final), 1)
	if hdr == nil {
		w.writeBits(1, 2)
	} else {
		w.writeBits(2, 2)
		w.writeBits(uint64(hdr.numLit-257), 5)
		w.writeBits(uint64(hdr.numDist-1), 5)
		w.writeBits(uint64(hdr.numCL-4), 4)
		for _, sym := range clOrder[:hdr.numCL] {
			w.writeBits(uint64(hdr.clLens[sym]), 3)
		}
		for _, t := range hdr.tokens {
			w.code(hdr.clCodes[t.sym])
			if n := clExtraBits[t.sym]; n > 0 {
				w.writeBits(uint64(t.extra), n)
			}
		}
	}

	for _, t := range c.tokens {
		if t.length == 0 {
			w.code(lit[t.value])
			continue
		}
		sym, ext, n := lengthCode(int(t.length))
		w.code(lit[sym])
		w.writeBits(ext, n)
		sym, ext, n = distCode(int(t.value))
		w.code(dist[sym])
		w.writeBits(ext, n)
	}
	w.code(lit[endOfBlock])
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// A matcher finds earlier occurrences of the bytes at a
// position using hash chains over a sliding window.
type matcher struct {
	data     []byte
	head     []int32 // position+1 of the latest string per hash
	prev     []int32 // position+1 of the previous string, per window slot
	next     int     // next position to insert
	filtered bool
}

func newMatcher(data []byte, filtered bool) *matcher {
	return &matcher{
		data:     data,
		head:     make([]int32, hashSize),
		prev:     make([]int32, windowSize),
		filtered: filtered,
	}
}

func (m *matcher) hash(i int) uint32 {
	d := m.data[i : i+minMatch]
	v := uint32(d[0])<<16 | uint32(d[1])<<8 | uint32(d[2])
	return (v * 0x9e3779b1) >> (32 - hashBits)
}

// insert adds position i to the hash chains and returns the
// previous position with the same hash, or -1.
func (m *matcher) insert(i int) int {
	if i+minMatch > len(m.data) {
		return -1
	}
	h := m.hash(i)
	cand := int(m.head[h]) - 1
	m.prev[i&windowMask] = m.head[h]
	m.head[h] = int32(i + 1)
	return cand
}

// find returns the longest match at position i that is
// longer than prevLength, or a zero length if there is
// none. Every position up to and including i is inserted.
func (m *matcher) find(i, prevLength int) (length, dist int) {
	for ; m.next < i; m.next++ {
		m.insert(m.next)
	}
	cand := m.insert(i)
	m.next = i + 1

	maxLen := min(maxMatch, len(m.data)-i)
	if cand < 0 || maxLen < minMatch {
		return 0, 0
	}

	chain := maxChain
	if prevLength >= goodLength {
		chain >>= 2
	}
	d := m.data
	bestLen := max(prevLength, minMatch-1)
	if bestLen >= maxLen {
		return 0, 0
	}
	bestDist := 0
	for cand >= 0 && i-cand <= maxDist && chain > 0 {
		if d[cand+bestLen] == d[i+bestLen] {
			n := 0
			for n < maxLen && d[cand+n] == d[i+n] {
				n++
			}
			if n > bestLen {
				bestLen, bestDist = n, i-cand
				if n >= niceLength || n == maxLen {
					break
				}
			}
		}
		next := int(m.prev[cand&windowMask]) - 1
		if next >= cand {
			break
		}
		cand = next
		chain--
	}

	if bestDist == 0 {
		return 0, 0
	}
	if bestLen <= 5 && (m.filtered || (bestLen == minMatch && bestDist > tooFar)) {
		return 0, 0
	}
	return bestLen, bestDist
}
