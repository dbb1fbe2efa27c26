package pngrepack

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// An Asset is a PNG file found on disk.
type Asset struct {
	Path string
	Size int64
}

// FindHeavyAssets walks root for PNG files of at least
// threshold bytes, largest first.
func FindHeavyAssets(root string, threshold uint64) ([]Asset, error) {
	var assets []Asset
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !strings.EqualFold(filepath.Ext(path), ".png") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if uint64(info.Size()) >= threshold {
			assets = append(assets, Asset{Path: path, Size: info.Size()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(assets, func(i, j int) bool {
		if assets[i].Size != assets[j].Size {
			return assets[i].Size > assets[j].Size
		}
		return assets[i].Path < assets[j].Path
	})
	return assets, nil
}
