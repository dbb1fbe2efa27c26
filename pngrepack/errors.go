package pngrepack

import "errors"

var (
	ErrNotPNG         = errors.New("pngrepack: not a PNG file")
	ErrMalformedChunk = errors.New("pngrepack: malformed chunk framing")
	ErrInvalidChunk   = errors.New("pngrepack: invalid chunk")
)
