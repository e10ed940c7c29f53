package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/tsawler/pagemerge/internal/textnorm"
	"github.com/tsawler/pagemerge/model"
)

// Record is the retrieval view of one header or child detection
type Record struct {
	ID                       string  `json:"id"`
	Bytes                    []byte  `json:"bytes,omitempty"`
	Content                  string  `json:"content"`
	PageNumber               int     `json:"page_number"`
	Class                    string  `json:"cls"`
	BaseConfidence           float64 `json:"base_confidence"`
	PostprocessingConfidence float64 `json:"postprocessing_confidence"`
}

// Object groups the records of one merged object
type Object struct {
	ID       string   `json:"id"`
	Class    string   `json:"cls"`
	Header   *Record  `json:"header,omitempty"`
	Children []Record `json:"children"`
}

// RetrievalOptions controls crop generation
type RetrievalOptions struct {
	// Image is the rendered page. Nil disables crops.
	Image image.Image

	// MaxCropWidth scales crops wider than this down, keeping the aspect
	// ratio. Zero keeps the native size.
	MaxCropWidth int
}

// Retrieval returns the retrieval records of every merged object on page
func Retrieval(page model.Page, opts RetrievalOptions) ([]Object, error) {
	out := make([]Object, 0, len(page.Objects))
	for _, o := range page.Objects {
		obj := Object{
			ID:       o.ID,
			Class:    o.Class.String(),
			Children: make([]Record, 0, len(o.Children)),
		}
		if o.Header != nil {
			rec, err := record(page, o.ID, *o.Header, opts)
			if err != nil {
				return nil, err
			}
			obj.Header = &rec
		}
		for _, c := range o.Children {
			rec, err := record(page, o.ID, c, opts)
			if err != nil {
				return nil, err
			}
			obj.Children = append(obj.Children, rec)
		}
		out = append(out, obj)
	}
	return out, nil
}

func record(page model.Page, objectID string, d model.Detection, opts RetrievalOptions) (Record, error) {
	rec := Record{
		ID:                       fmt.Sprintf("%s-%d", objectID, d.ID),
		Content:                  textnorm.Text(d.Text),
		PageNumber:               page.Number,
		Class:                    d.Class.String(),
		BaseConfidence:           d.Confidence,
		PostprocessingConfidence: d.PostprocessConfidence,
	}
	if opts.Image != nil {
		crop, err := Crop(opts.Image, d.Box, opts.MaxCropWidth)
		if err != nil {
			return Record{}, fmt.Errorf("crop detection %d of page %s: %w", d.ID, page.ID, err)
		}
		rec.Bytes = crop
	}
	return rec, nil
}

// Crop returns box cut out of img as PNG bytes. Boxes are clipped to the
// image; a box entirely outside it is an error.
func Crop(img image.Image, box model.Box, maxWidth int) ([]byte, error) {
	r := toRect(box).Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("box %v outside image bounds %v", box, img.Bounds())
	}

	dstRect := image.Rect(0, 0, r.Dx(), r.Dy())
	if maxWidth > 0 && r.Dx() > maxWidth {
		h := r.Dy() * maxWidth / r.Dx()
		if h < 1 {
			h = 1
		}
		dstRect = image.Rect(0, 0, maxWidth, h)
	}

	dst := image.NewRGBA(dstRect)
	if dstRect.Dx() == r.Dx() {
		xdraw.Draw(dst, dstRect, img, r.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dstRect, img, r, xdraw.Src, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// toRect converts a box to integer pixels, rounding outward
func toRect(b model.Box) image.Rectangle {
	return image.Rect(
		int(math.Floor(b.X0)), int(math.Floor(b.Y0)),
		int(math.Ceil(b.X1)), int(math.Ceil(b.Y1)),
	)
}
