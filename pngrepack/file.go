package pngrepack

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/unixpickle/essentials"
)

// RecompressFile recompresses the PNG at path and, if the
// result is smaller, overwrites the file with it.
func RecompressFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("read "+path, err)
	}
	res, err := Recompress(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if res.Applied {
		if err := WriteFile(path, res.Data); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// WriteFile replaces the file at path with data.
//
// The data is written to a temporary file next to path,
// which is then renamed over it, so readers never see a
// partial file. The original permission bits are kept.
func WriteFile(path string, data []byte) (err error) {
	defer func() {
		if err != nil {
			err = essentials.AddCtx("write "+path, err)
		}
	}()

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	w, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpPath := w.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	if _, err = w.Write(data); err != nil {
		w.Close()
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
