package pngrepack

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/pngrepack/deflate"
)

// An Outcome says what Recompress did with a file.
type Outcome int

const (
	// OutcomeRewritten means a smaller encoding was found.
	OutcomeRewritten Outcome = iota

	// OutcomeNotPNG means the data lacks the PNG signature.
	OutcomeNotPNG

	// OutcomeNoImageData means there are no IDAT chunks.
	OutcomeNoImageData

	// OutcomeCorruptStream means the image data could not
	// be decompressed.
	OutcomeCorruptStream

	// OutcomeNoImprovement means no strategy beat the
	// existing encoding.
	OutcomeNoImprovement
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRewritten:
		return "rewritten"
	case OutcomeNotPNG:
		return "not a PNG"
	case OutcomeNoImageData:
		return "no image data"
	case OutcomeCorruptStream:
		return "corrupt image data"
	case OutcomeNoImprovement:
		return "no improvement"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result describes the recompression of one PNG file.
type Result struct {
	Outcome Outcome

	// Applied is set when Data holds a smaller file.
	Applied bool

	// Saved is the number of bytes saved over the whole
	// file. It is zero unless Applied is set.
	Saved int

	OriginalSize int
	NewSize      int

	// Strategy produced the new image data when Applied.
	Strategy deflate.Strategy

	// Data is the rewritten file, or nil.
	Data []byte
}

func unchanged(data []byte, o Outcome) *Result {
	return &Result{
		Outcome:      o,
		OriginalSize: len(data),
		NewSize:      len(data),
	}
}

// Recompress re-encodes the image data of a PNG file with
// every deflate strategy, collapsing the IDAT chunks into a
// single chunk, and keeps the result only if the whole file
// gets smaller. A candidate stream is only used if it
// inflates back to the original image data.
//
// Files that cannot or need not be changed are reported
// through Result.Outcome with a nil error. An error is only
// returned when the chunk framing is malformed.
func Recompress(data []byte) (*Result, error) {
	return recompress(data, deflate.Compress)
}

type compressFunc func(data []byte, s deflate.Strategy) []byte

func recompress(data []byte, compress compressFunc) (*Result, error) {
	if !HasSignature(data) {
		return unchanged(data, OutcomeNotPNG), nil
	}
	chunks, err := Decode(data)
	if err != nil {
		return nil, err
	}

	var idat []int
	for i, c := range chunks {
		if c.Type == TypeIDAT {
			idat = append(idat, i)
		}
	}
	if len(idat) == 0 {
		return unchanged(data, OutcomeNoImageData), nil
	}

	var compressed []byte
	for _, i := range idat {
		compressed = append(compressed, chunks[i].Data...)
	}
	raw, err := inflate(compressed)
	if err != nil {
		return unchanged(data, OutcomeCorruptStream), nil
	}

	best, strategy, ok := bestCandidate(raw, compress)
	if !ok || len(best) >= len(compressed) {
		return unchanged(data, OutcomeNoImprovement), nil
	}

	first, last := idat[0], idat[len(idat)-1]
	newChunks := make([]Chunk, 0, first+1+len(chunks)-last-1)
	newChunks = append(newChunks, chunks[:first]...)
	newChunks = append(newChunks, Chunk{Type: TypeIDAT, Data: best})
	newChunks = append(newChunks, chunks[last+1:]...)

	out, err := Encode(newChunks)
	if err != nil {
		return nil, err
	}
	if len(out) >= len(data) {
		return unchanged(data, OutcomeNoImprovement), nil
	}
	return &Result{
		Outcome:      OutcomeRewritten,
		Applied:      true,
		Saved:        len(data) - len(out),
		OriginalSize: len(data),
		NewSize:      len(out),
		Strategy:     strategy,
		Data:         out,
	}, nil
}

// Process is Recompress reduced to its essentials: whether
// the file was improved, by how many bytes, and the new
// file contents.
func Process(data []byte) (applied bool, saved int, newData []byte, err error) {
	res, err := Recompress(data)
	if err != nil {
		return false, 0, nil, err
	}
	return res.Applied, res.Saved, res.Data, nil
}

func inflate(compressed []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// bestCandidate compresses raw with every strategy and
// returns the shortest stream that inflates back to raw.
// Ties go to the strategy that comes first in
// deflate.Strategies. If no stream round-trips, ok is false.
func bestCandidate(raw []byte, compress compressFunc) (best []byte, s deflate.Strategy, ok bool) {
	strategies := deflate.Strategies
	candidates := make([][]byte, len(strategies))
	essentials.ConcurrentMap(0, len(strategies), func(i int) {
		stream := compress(raw, strategies[i])
		if out, err := inflate(stream); err == nil && bytes.Equal(out, raw) {
			candidates[i] = stream
		}
	})

	for i, c := range candidates {
		if c != nil && (!ok || len(c) < len(best)) {
			best, s, ok = c, strategies[i], true
		}
	}
	return best, s, ok
}
