package pipeline

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// VisualOutputBase selects the image the overlays are drawn on.
type VisualOutputBase int

const (
	// BaseGray draws on the grayscale image.
	BaseGray VisualOutputBase = iota
	// BaseCanny draws on the edge map.
	BaseCanny
	// BaseOriginal draws on the raw frame.
	BaseOriginal
)

// String returns the name used in logs and config files.
func (b VisualOutputBase) String() string {
	switch b {
	case BaseGray:
		return "gray"
	case BaseCanny:
		return "canny"
	case BaseOriginal:
		return "original"
	default:
		return "unknown"
	}
}

// ParseVisualOutputBase is the inverse of VisualOutputBase.String.
func ParseVisualOutputBase(s string) (VisualOutputBase, error) {
	switch s {
	case "gray":
		return BaseGray, nil
	case "canny":
		return BaseCanny, nil
	case "original":
		return BaseOriginal, nil
	default:
		return BaseGray, errors.Errorf("unknown visual output base %q", s)
	}
}

// UnmarshalText lets the base be read from config files.
func (b *VisualOutputBase) UnmarshalText(text []byte) error {
	parsed, err := ParseVisualOutputBase(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// MarshalText writes the base by name.
func (b VisualOutputBase) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// image returns the frame image that matches the base.
func (b VisualOutputBase) image(f *FrameState) gocv.Mat {
	switch b {
	case BaseCanny:
		return f.Canny
	case BaseOriginal:
		return f.Original
	default:
		return f.Gray
	}
}
