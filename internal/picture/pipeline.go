// Package picture derives the stored profile image variants from an
// uploaded source and commits their locations to the user document.
package picture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/arkplatform/user-service/internal/models"
	"github.com/arkplatform/user-service/internal/storage"
	"github.com/disintegration/imaging"
)

// VariantSpec describes one derived image: its attachment base name and
// target dimensions. Sizes are configuration, not policy baked into the
// pipeline.
type VariantSpec struct {
	Name   string
	Width  int
	Height int
}

// CropRect is the caller-supplied crop geometry in source-image pixels.
type CropRect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// DocumentUpdater commits the variant locations to the account document.
type DocumentUpdater interface {
	UpdatePicture(ctx context.Context, id string, picture models.Picture) (*models.User, error)
}

// Result reports where the variants ended up and the document state after
// the commit.
type Result struct {
	Picture models.Picture
	ID      string
	Rev     string
}

type format struct {
	ext string
	enc imaging.Format
}

// Only these content types are accepted; anything else is rejected before a
// single byte is decoded.
var allowedTypes = map[string]format{
	"image/jpeg": {".jpg", imaging.JPEG},
	"image/png":  {".png", imaging.PNG},
	"image/gif":  {".gif", imaging.GIF},
}

// Pipeline crops and resizes an upload into its configured variants, stores
// them sequentially, then updates the user document.
//
// Failure behavior is deliberate: the chain stops at the first error, and
// attachments already stored are NOT rolled back. A thumbnail-store or
// document-update failure therefore leaves the full-size attachment
// orphaned; the document keeps its previous picture field either way.
type Pipeline struct {
	attachments storage.AttachmentStore
	users       DocumentUpdater
	full        VariantSpec
	thumbnail   VariantSpec
}

func NewPipeline(attachments storage.AttachmentStore, users DocumentUpdater, full, thumbnail VariantSpec) *Pipeline {
	return &Pipeline{
		attachments: attachments,
		users:       users,
		full:        full,
		thumbnail:   thumbnail,
	}
}

// Process consumes the source stream exactly once, derives each variant as
// an independent crop+resize of the decoded source, and persists full-size
// first, thumbnail second. Only after both attachments are stored does it
// touch the account document.
func (p *Pipeline) Process(ctx context.Context, userID string, src io.Reader, contentType string, crop CropRect) (*Result, error) {
	f, ok := allowedTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedImageType, contentType)
	}

	// Materialize the source once; it cannot be re-read from the request.
	srcImage, err := imaging.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}

	var picture models.Picture
	for _, variant := range []VariantSpec{p.full, p.thumbnail} {
		data, err := deriveVariant(srcImage, crop, variant, f.enc)
		if err != nil {
			return nil, fmt.Errorf("failed to derive %s: %w", variant.Name, err)
		}

		location, err := p.attachments.Save(ctx, userID, variant.Name+f.ext, contentType, data)
		if err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", variant.Name, err)
		}

		switch variant.Name {
		case p.full.Name:
			picture.Original = location
		default:
			picture.Thumbnail = location
		}
	}

	user, err := p.users.UpdatePicture(ctx, userID, picture)
	if err != nil {
		return nil, fmt.Errorf("failed to update picture locations: %w", err)
	}

	return &Result{Picture: picture, ID: user.ID, Rev: user.Rev}, nil
}

// deriveVariant is one independent crop+resize from the decoded source.
// Variants never share intermediate results.
func deriveVariant(src image.Image, crop CropRect, spec VariantSpec, enc imaging.Format) ([]byte, error) {
	rect := image.Rect(crop.X, crop.Y, crop.X+crop.Width, crop.Y+crop.Height)
	cropped := imaging.Crop(src, rect)
	if cropped.Bounds().Empty() {
		return nil, fmt.Errorf("crop rectangle %v outside source bounds %v", rect, src.Bounds())
	}
	resized := imaging.Resize(cropped, spec.Width, spec.Height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, enc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
