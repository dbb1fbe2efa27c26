package deflate

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"fmt"
	"io"
	"math/bits"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func inflate(t *testing.T, stream []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(stream))
	require.NoError(t, err)
	defer r.Close()
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return out
}

func testInputs() map[string][]byte {
	rng := rand.New(rand.NewSource(1337))

	random := make([]byte, 200000)
	rng.Read(random)

	// Rows of a filtered RGB image: a filter byte followed by
	// small, slowly varying deltas.
	var scanlines []byte
	for y := 0; y < 64; y++ {
		scanlines = append(scanlines, 1)
		for x := 0; x < 3*200; x++ {
			scanlines = append(scanlines, byte(rng.Intn(3)))
		}
	}

	var text []byte
	for i := 0; i < 500; i++ {
		text = append(text, "the quick brown fox jumps over the lazy dog "...)
		text = append(text, byte('a'+i%26))
	}

	return map[string][]byte{
		"empty":     {},
		"one":       {42},
		"two":       {1, 1},
		"run":       bytes.Repeat([]byte{7}, 1000),
		"zeros":     make([]byte, 1<<20),
		"random":    random,
		"scanlines": scanlines,
		"text":      text,
		"pattern":   bytes.Repeat([]byte("abc"), 10000),
	}
}

func TestCompressRoundTrip(t *testing.T) {
	for name, data := range testInputs() {
		for _, s := range Strategies {
			t.Run(name+"/"+s.String(), func(t *testing.T) {
				stream := Compress(data, s)
				require.Equal(t, zlibHeader, stream[:2])
				require.Equal(t, data, inflate(t, stream))
			})
		}
	}
}

func TestCompressBlockBoundaries(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for _, n := range []int{blockTokens + 1, blockTokens + 65, 2*blockTokens + 65} {
		data := make([]byte, n)
		rng.Read(data)
		for _, s := range Strategies {
			require.Equal(t, data, inflate(t, Compress(data, s)), "%d bytes, %s", n, s)
		}
	}
}

func TestCompressHighLiterals(t *testing.T) {
	// Short inputs end up in fixed Huffman blocks, where
	// literals 144-255 take 9-bit codes.
	for _, data := range [][]byte{
		{0x00, 0x82, 0xb7, 0x0e},
		{0x90, 0xff, 0x8f, 0xc8, 0xa0},
		[]byte("\xe2\x9c\x93 ok \xc3\xa9t\xc3\xa9"),
	} {
		stream := Compress(data, Default)
		require.Equal(t, byte(1), stream[2]>>1&3, "expected a fixed block")
		require.Equal(t, data, inflate(t, stream))
	}
}

func TestFixedLitCodes(t *testing.T) {
	expected := map[int]string{
		0:   "00110000",
		143: "10111111",
		144: "110010000",
		255: "111111111",
		256: "0000000",
		279: "0010111",
		280: "11000000",
		287: "11000111",
	}
	require.Len(t, fixedLitCodes, 288)
	for sym, code := range expected {
		c := fixedLitCodes[sym]
		actual := bits.Reverse16(c.bits) >> (16 - c.nbit)
		require.Equal(t, code, fmt.Sprintf("%0*b", int(c.nbit), actual), "symbol %d", sym)
	}
}

func TestCompressEmpty(t *testing.T) {
	expected := []byte{0x78, 0xda, 0x03, 0x00, 0x00, 0x00, 0x00, 0x01}
	for _, s := range Strategies {
		require.Equal(t, expected, Compress(nil, s), s.String())
	}
}

func TestCompressDeterministic(t *testing.T) {
	data := testInputs()["scanlines"]
	for _, s := range Strategies {
		require.Equal(t, Compress(data, s), Compress(data, s))
	}
}

func TestCompressRepetitive(t *testing.T) {
	zeros := make([]byte, 1<<20)
	for _, s := range Strategies {
		require.Less(t, len(Compress(zeros, s)), 2000, s.String())
	}
}

func TestCompressIncompressible(t *testing.T) {
	data := testInputs()["random"]
	for _, s := range Strategies {
		out := Compress(data, s)
		require.LessOrEqual(t, len(out), len(data)+len(data)/1000+64, s.String())
	}
}

func TestRunLengthIgnoresDistantMatches(t *testing.T) {
	data := testInputs()["pattern"]
	def := Compress(data, Default)
	rle := Compress(data, RunLength)
	require.Less(t, len(def), 100)
	require.Greater(t, len(rle), 10*len(def))
}

func TestFilteredSkipsShortMatches(t *testing.T) {
	data := []byte("abcdXabcdYabcdZ")
	m := newMatcher(data, true)
	for i := range data {
		l, _ := m.find(i, 0)
		require.Zero(t, l)
	}

	m = newMatcher(data, false)
	longest := 0
	for i := range data {
		if l, d := m.find(i, 0); l > 0 {
			require.Equal(t, 5, d)
			longest = max(longest, l)
		}
	}
	require.Equal(t, 4, longest)
}

func TestWriteStoredSplitsBlocks(t *testing.T) {
	data := make([]byte, 2*maxStoredBlock+100)
	rand.New(rand.NewSource(1)).Read(data)

	c := &compressor{data: data}
	c.bw.writeBits(1, 1) // misalign on purpose
	before := len(c.bw.buf)*8 + int(c.bw.nbit)
	expected := c.storedBits(len(data))
	c.writeStored(data, true)
	require.Zero(t, c.bw.nbit)
	require.Equal(t, expected, len(c.bw.buf)*8-before)

	c = &compressor{data: data}
	c.writeStored(data, true)
	out, err := io.ReadAll(flate.NewReader(bytes.NewReader(c.bw.buf)))
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestCodeLengthsLimit(t *testing.T) {
	// Fibonacci frequencies produce the deepest possible
	// Huffman trees.
	freq := make([]int, numLitCodes)
	a, b := 1, 1
	for i := 0; i < 40; i++ {
		freq[i] = a
		a, b = b, a+b
	}
	for _, limit := range []int{maxCodeBits, maxCLCodeBits} {
		lengths := codeLengths(freq, limit)
		kraft := 0
		for i, l := range lengths {
			require.LessOrEqual(t, int(l), limit)
			if freq[i] > 0 {
				require.NotZero(t, l)
			}
			if l > 0 {
				kraft += 1 << (maxCodeBits - int(l))
			}
		}
		require.Equal(t, 1<<maxCodeBits, kraft)
	}
}

func TestCodeLengthsSingleSymbol(t *testing.T) {
	freq := make([]int, numDistCodes)
	freq[7] = 100
	lengths := codeLengths(freq, maxCodeBits)
	require.Equal(t, uint8(1), lengths[7])
	require.Equal(t, uint8(1), lengths[0])

	lengths = codeLengths(make([]int, numDistCodes), maxCodeBits)
	require.Equal(t, uint8(1), lengths[0])
	require.Equal(t, uint8(1), lengths[1])
}

func TestLengthCode(t *testing.T) {
	cases := []struct {
		n     int
		sym   int
		extra uint64
		nbit  uint
	}{
		{3, 257, 0, 0},
		{10, 264, 0, 0},
		{11, 265, 0, 1},
		{12, 265, 1, 1},
		{18, 268, 1, 1},
		{227, 284, 0, 5},
		{257, 284, 30, 5},
		{258, 285, 0, 0},
	}
	for _, c := range cases {
		sym, extra, nbit := lengthCode(c.n)
		require.Equal(t, c.sym, sym, "length %d", c.n)
		require.Equal(t, c.extra, extra, "length %d", c.n)
		require.Equal(t, c.nbit, nbit, "length %d", c.n)
	}
}

func TestDistCode(t *testing.T) {
	cases := []struct {
		d     int
		sym   int
		extra uint64
		nbit  uint
	}{
		{1, 0, 0, 0},
		{4, 3, 0, 0},
		{5, 4, 0, 1},
		{6, 4, 1, 1},
		{9, 6, 0, 2},
		{24577, 29, 0, 13},
		{32768, 29, 8191, 13},
	}
	for _, c := range cases {
		sym, extra, nbit := distCode(c.d)
		require.Equal(t, c.sym, sym, "distance %d", c.d)
		require.Equal(t, c.extra, extra, "distance %d", c.d)
		require.Equal(t, c.nbit, nbit, "distance %d", c.d)
	}
}

func TestEncodeLengths(t *testing.T) {
	seq := append(bytes.Repeat([]byte{0}, 150), 5, 5, 5, 5, 5, 5, 5, 5, 0, 0, 3)
	tokens := encodeLengths(seq)

	var decoded []uint8
	for _, tok := range tokens {
		switch tok.sym {
		case 16:
			prev := decoded[len(decoded)-1]
			for i := 0; i < int(tok.extra)+3; i++ {
				decoded = append(decoded, prev)
			}
		case 17:
			decoded = append(decoded, make([]uint8, int(tok.extra)+3)...)
		case 18:
			decoded = append(decoded, make([]uint8, int(tok.extra)+11)...)
		default:
			decoded = append(decoded, tok.sym)
		}
	}
	require.Equal(t, seq, decoded)
	require.Equal(t, clToken{sym: 18, extra: 127}, tokens[0])
}
