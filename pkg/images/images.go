package images

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// MaxDimension bounds the width and height of stored jpeg/png images
const MaxDimension = 1280

// MaxPixels caps width*height of an upload before it is decoded
const MaxPixels = 40_000_000

var (
	ErrUnsupportedType = errors.New("only png, jpg, jpeg and gif images are allowed")
	ErrInvalidImage    = errors.New("the uploaded file is not a valid image")
	ErrTooManyPixels   = errors.New("the image dimensions are too large")
)

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

// Upload is an image received from a form
type Upload struct {
	Filename string
	Reader   io.Reader
}

// Service stores uploaded images on disk
type Service struct {
	dir    string
	logger *logger.Logger
}

// New creates an image service rooted at dir, creating the directory if needed
func New(dir string) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create upload directory")
	}
	return &Service{
		dir:    dir,
		logger: logger.New("images"),
	}, nil
}

// Dir returns the directory images are stored in
func (s *Service) Dir() string {
	return s.dir
}

// Allowed reports whether the file name has a supported image extension
func Allowed(filename string) bool {
	return allowedExtensions[extension(filename)]
}

func extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// Save writes the upload as <baseName>.<ext> and returns the stored file name.
// The extension follows the decoded format, not the uploaded file name.
// jpeg and png images larger than MaxDimension are scaled down; gifs are kept
// as they are so animations survive. An empty baseName gets a random name.
func (s *Service) Save(upload Upload, baseName string) (string, error) {
	if !Allowed(upload.Filename) {
		return "", ErrUnsupportedType
	}
	if baseName == "" {
		baseName = uuid.NewString()
	}

	data, err := io.ReadAll(upload.Reader)
	if err != nil {
		return "", errors.Wrap(err, "failed to read upload")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", ErrInvalidImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", ErrTooManyPixels
	}

	var out bytes.Buffer
	switch format {
	case "gif":
		out.Write(data)
	case "png", "jpeg":
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return "", ErrInvalidImage
		}
		img = fit(img)
		if format == "png" {
			err = png.Encode(&out, img)
		} else {
			err = jpeg.Encode(&out, img, &jpeg.Options{Quality: 85})
		}
		if err != nil {
			return "", errors.Wrap(err, "failed to encode image")
		}
	default:
		return "", ErrUnsupportedType
	}

	name := baseName + "." + storedExtension(format)
	if err := os.WriteFile(filepath.Join(s.dir, name), out.Bytes(), 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write image")
	}

	s.logger.Info("Stored image %s (%d bytes)", name, out.Len())
	return name, nil
}

func storedExtension(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

// fit scales img down to MaxDimension keeping the aspect ratio
func fit(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= MaxDimension && b.Dy() <= MaxDimension {
		return img
	}
	return resize.Thumbnail(MaxDimension, MaxDimension, img, resize.Lanczos3)
}

// Remove deletes a stored image. The default image and missing files are ignored.
func (s *Service) Remove(name string) error {
	if name == "" || name == models.DefaultImage {
		return nil
	}
	if filepath.Base(name) != name {
		return errors.Errorf("invalid image name %q", name)
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove image %s", name)
	}
	return nil
}
