package pngrepack

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
)

// Options control a batch run.
type Options struct {
	// Root is the directory to scan.
	Root string

	// Threshold is the minimum file size, in bytes.
	Threshold uint64

	// Limit caps the number of files handled. Zero means no
	// limit.
	Limit int

	// Apply enables rewriting files. Otherwise files are
	// only listed.
	Apply bool
}

// Summary counts what a batch run did.
type Summary struct {
	Found     int
	Processed int
	Optimized int
	Saved     int64
	Skipped   int
}

// Run finds heavy PNG assets under opts.Root and, in apply
// mode, recompresses them in place.
//
// Files with malformed chunk framing are logged and skipped.
// Any other I/O error stops the run.
func Run(opts Options, log *slog.Logger) (Summary, error) {
	var sum Summary

	info, err := os.Stat(opts.Root)
	if err != nil {
		return sum, err
	} else if !info.IsDir() {
		return sum, fmt.Errorf("%s is not a directory", opts.Root)
	}

	assets, err := FindHeavyAssets(opts.Root, opts.Threshold)
	if err != nil {
		return sum, err
	}
	sum.Found = len(assets)
	log.Info("found heavy PNG assets", "count", len(assets),
		"threshold", humanize.Bytes(opts.Threshold), "root", opts.Root)

	if opts.Limit > 0 && len(assets) > opts.Limit {
		assets = assets[:opts.Limit]
	}

	for _, a := range assets {
		if !opts.Apply {
			log.Info("heavy asset", "path", a.Path, "size", humanize.Bytes(uint64(a.Size)))
			continue
		}

		res, err := RecompressFile(a.Path)
		if errors.Is(err, ErrMalformedChunk) {
			log.Warn("skipping malformed PNG", tint.Err(err), "path", a.Path)
			sum.Skipped++
			continue
		} else if err != nil {
			return sum, err
		}
		sum.Processed++

		if !res.Applied {
			log.Info("left unchanged", "path", a.Path, "reason", res.Outcome.String())
			continue
		}
		sum.Optimized++
		sum.Saved += int64(res.Saved)
		log.Info("recompressed", "path", a.Path,
			"before", humanize.Bytes(uint64(res.OriginalSize)),
			"after", humanize.Bytes(uint64(res.NewSize)),
			"saved", humanize.Bytes(uint64(res.Saved)),
			"strategy", res.Strategy)
	}

	if opts.Apply {
		log.Info("done", "processed", sum.Processed, "optimized", sum.Optimized,
			"saved", humanize.Bytes(uint64(sum.Saved)))
	} else {
		log.Info("audit only, no files were modified; rerun with --apply to rewrite")
	}
	return sum, nil
}
