package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ImageFile represents one numbered frame image on disk.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Frame is the frame number parsed from the file name.
	Frame int
}

// Read returns the raw encoded bytes of the image file.
func (f ImageFile) Read() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "read frame %d", f.Frame)
	}
	return data, nil
}

// ListImageFiles lists the frame images of a directory in frame order.
//
// Files are expected to be named "frame-<N>.<ext>" (or just "<N>.<ext>"); other
// extensions are skipped and a non-numeric frame name is an error. Nothing is read
// until ImageFile.Read is called.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: The frame images, sorted by frame number.
// - error: Error if the directory cannot be read or a name cannot be parsed.
func ListImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var images []ImageFile
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(file.Name()))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".bmp":
			name := strings.TrimSuffix(strings.ReplaceAll(file.Name(), "frame-", ""), filepath.Ext(file.Name()))
			frame, err := strconv.Atoi(name)
			if err != nil {
				return nil, errors.Wrapf(err, "parse frame number of %s", file.Name())
			}
			images = append(images, ImageFile{
				Path:  filepath.Join(dir, file.Name()),
				Frame: frame,
			})
		}
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].Frame < images[j].Frame
	})

	return images, nil
}
