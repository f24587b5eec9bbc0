package engine

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Stamp is a file modification time in nanoseconds. Zero means the file does not exist.
type Stamp int64

// TimeOracle answers modification-time queries relative to a root directory.
type TimeOracle struct {
	Root string
	// OnError is called for failures other than "does not exist".
	OnError func(path string, err error)
}

// ModTime returns the modification time of path, or 0 if it does not exist or cannot be read.
func (o *TimeOracle) ModTime(path string) Stamp {
	info, err := os.Stat(o.resolve(path))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && o.OnError != nil {
			o.OnError(path, err)
		}
		return 0
	}
	return Stamp(info.ModTime().UnixNano())
}

func (o *TimeOracle) resolve(path string) string {
	if o.Root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(o.Root, path)
}
