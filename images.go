package retreat

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/eringen/retreat/client"
)

const (
	maxImageWidth = 1200
	jpegQuality   = 85
	maxUploadSize = 10 << 20 // 10MB
)

// errNoImage is returned by formImage when the field carries no file.
var errNoImage = errors.New("no image provided")

// PrepareImage decodes an image from src, resizes it to at most maxImageWidth
// wide, and encodes it as JPEG ready to attach to a service upload.
func PrepareImage(src io.Reader, originalName string) (client.Upload, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return client.Upload{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return client.Upload{}, fmt.Errorf("encode jpeg: %w", err)
	}

	name := slugifyFilename(originalName)
	if name == "" {
		name = "image"
	}
	return client.Upload{
		Filename:    name + ".jpg",
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
	}, nil
}

// slugifyFilename converts a filename (without extension) to a URL-safe slug.
func slugifyFilename(name string) string {
	base := filepath.Base(name)
	return Slugify(strings.TrimSuffix(base, filepath.Ext(base)))
}

// formImage reads and preprocesses the image uploaded in field. It returns
// errNoImage when the field is empty.
func formImage(c echo.Context, field string) (*client.Upload, error) {
	file, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, errNoImage
	}
	if err != nil {
		return nil, err
	}
	if file.Size == 0 {
		return nil, errNoImage
	}
	return openImage(file)
}

func openImage(file *multipart.FileHeader) (*client.Upload, error) {
	if file.Size > maxUploadSize {
		return nil, fmt.Errorf("file too large (max 10MB)")
	}
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	up, err := PrepareImage(io.LimitReader(src, maxUploadSize), file.Filename)
	if err != nil {
		return nil, err
	}
	return &up, nil
}
