package source

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"

	"github.com/nvr-ai/go-odometry/util"
)

// DirectorySource plays a directory of numbered frame images in frame order.
type DirectorySource struct {
	dir   string
	opts  Options
	files []util.ImageFile
	next  int
}

// NewDirectorySource lists the frames of dir. Files are decoded lazily by Next.
//
// Arguments:
//   - dir: Directory of "frame-<N>.<ext>" images.
//   - opts: Decoding options.
//
// Returns:
//   - *DirectorySource: The source.
//   - error: An error if the directory cannot be listed.
func NewDirectorySource(dir string, opts Options) (*DirectorySource, error) {
	files, err := util.ListImageFiles(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list frames in %s", dir)
	}
	return &DirectorySource{
		dir:   dir,
		opts:  opts,
		files: files,
	}, nil
}

// Len returns the number of frames in the directory.
func (s *DirectorySource) Len() int {
	return len(s.files)
}

// Next decodes the next frame image.
func (s *DirectorySource) Next() (gocv.Mat, error) {
	if s.next >= len(s.files) {
		return gocv.NewMat(), errors.Wrapf(ErrExhausted, "%s after %d frames", s.dir, s.next)
	}
	file := s.files[s.next]
	s.next++

	data, err := file.Read()
	if err != nil {
		return gocv.NewMat(), err
	}

	if s.opts.Width > 0 {
		return decodeScaled(data, s.opts.Width, file)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), errors.Wrapf(err, "decode frame %d from %s", file.Frame, file.Path)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), errors.Errorf("decode frame %d from %s: empty image", file.Frame, file.Path)
	}
	return mat, nil
}

// decodeScaled decodes with the standard image decoders so the frame can be downscaled
// before it is handed to OpenCV.
func decodeScaled(data []byte, width int, file util.ImageFile) (gocv.Mat, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return gocv.NewMat(), errors.Wrapf(err, "decode frame %d from %s", file.Frame, file.Path)
	}

	bounds := img.Bounds()
	if size, scale := scaledSize(bounds.Dx(), bounds.Dy(), width); scale {
		img = resize.Resize(uint(size.X), uint(size.Y), img, resize.Bilinear)
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), errors.Wrapf(err, "convert frame %d", file.Frame)
	}
	return mat, nil
}

// Close is a no-op; files are closed as soon as they are read.
func (s *DirectorySource) Close() error {
	return nil
}
