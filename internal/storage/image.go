package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/nfnt/resize"
)

// MaxImageBytes 上传图片大小上限
const MaxImageBytes = 10 << 20

var (
	ErrNotImage      = errors.New("uploaded file is not a supported image")
	ErrImageTooLarge = errors.New("uploaded image is too large")
)

// Image 校验（并按需缩放）后的图片
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// PrepareImage 校验格式（gif/png/jpeg），宽度超过 maxWidth 时等比缩小；
// 未缩放的图片保留原始字节，动图不会被压成单帧
func PrepareImage(r io.Reader, maxWidth uint) (*Image, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > MaxImageBytes {
		return nil, ErrImageTooLarge
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrNotImage
	}
	img := &Image{Data: raw, Width: cfg.Width, Height: cfg.Height}
	switch format {
	case "gif":
		img.ContentType, img.Ext = "image/gif", ".gif"
	case "png":
		img.ContentType, img.Ext = "image/png", ".png"
	case "jpeg":
		img.ContentType, img.Ext = "image/jpeg", ".jpg"
	default:
		return nil, ErrNotImage
	}

	if maxWidth == 0 || uint(cfg.Width) <= maxWidth {
		return img, nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrNotImage
	}
	scaled := resize.Resize(maxWidth, 0, decoded, resize.Lanczos3)

	var buf bytes.Buffer
	switch format {
	case "gif":
		err = gif.Encode(&buf, scaled, nil)
	case "png":
		err = png.Encode(&buf, scaled)
	default:
		err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return nil, fmt.Errorf("encode resized image: %w", err)
	}
	size := scaled.Bounds().Size()
	img.Data, img.Width, img.Height = buf.Bytes(), size.X, size.Y
	return img, nil
}
