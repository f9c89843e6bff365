package file

import (
	"io/fs"
	"path/filepath"

	"github.com/jsphweid/singviz/util"
	"github.com/pkg/errors"
)

var (
	MidiExts  = []string{".mid", ".midi"}
	AudioExts = []string{".wav", ".mp3"}
)

var ErrInvalidPath = errors.New("invalid media path")

// Resolve joins a client supplied path onto dir. The path is cleaned against
// a virtual root first so it cannot climb out of dir.
func Resolve(dir, path string) (string, error) {
	if path == "" {
		return "", errors.Wrap(ErrInvalidPath, "empty path")
	}
	cleaned := filepath.Clean("/" + path)
	return filepath.Join(dir, cleaned), nil
}

// List walks dir and returns the slash separated relative paths of every file
// with one of exts, sorted.
func List(dir string, exts ...string) ([]string, error) {
	var res []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !util.HasExt(path, exts...) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		res = append(res, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", dir)
	}
	return util.Uniq(res), nil
}
