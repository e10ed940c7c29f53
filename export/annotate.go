package export

import (
	"image"
	"image/color"
	"image/png"
	"io"

	// Page images arrive as PNG or JPEG
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/tsawler/pagemerge/model"
)

var (
	blue   = color.RGBA{0, 0, 255, 255}
	red    = color.RGBA{255, 0, 0, 255}
	orange = color.RGBA{255, 165, 0, 255}
	green  = color.RGBA{0, 160, 0, 255}
	grey   = color.RGBA{128, 128, 128, 255}
)

// classColor picks the outline color of an object class
func classColor(c model.Class) color.RGBA {
	switch c {
	case model.ClassTable:
		return blue
	case model.ClassFigure:
		return red
	case model.ClassSectionHeader, model.ClassPageHeader, model.ClassPageFooter:
		return orange
	case model.ClassBodyText:
		return green
	default:
		return grey
	}
}

// AnnotateOptions controls what Annotate draws
type AnnotateOptions struct {
	// Members also outlines the header, children and absorbed detections
	Members bool

	// Labels writes the class name above each object
	Labels bool

	// Weight is the object outline thickness in pixels
	Weight int
}

// DefaultAnnotateOptions outlines objects and members with labels
func DefaultAnnotateOptions() AnnotateOptions {
	return AnnotateOptions{Members: true, Labels: true, Weight: 3}
}

// Annotate returns a copy of img with the merged objects drawn over it
func Annotate(img image.Image, objects []model.MergedObject, opts AnnotateOptions) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	xdraw.Draw(dst, b, img, b.Min, xdraw.Src)

	weight := opts.Weight
	if weight < 1 {
		weight = 1
	}

	for _, o := range objects {
		col := classColor(o.Class)
		if opts.Members {
			for _, d := range o.Members() {
				drawRect(dst, toRect(d.Box), classColor(d.Class), 1)
			}
		}
		r := toRect(o.Box)
		drawRect(dst, r, col, weight)
		if opts.Labels {
			drawLabel(dst, r.Min, o.Class.String(), col)
		}
	}
	return dst
}

// AnnotatePNG decodes a page image from r, annotates it and writes PNG to w
func AnnotatePNG(r io.Reader, w io.Writer, objects []model.MergedObject, opts AnnotateOptions) error {
	img, _, err := image.Decode(r)
	if err != nil {
		return err
	}
	return png.Encode(w, Annotate(img, objects, opts))
}

// drawRect outlines r with lines weight pixels thick, drawn inward
func drawRect(dst *image.RGBA, r image.Rectangle, c color.Color, weight int) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+weight),
		image.Rect(r.Min.X, r.Max.Y-weight, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+weight, r.Max.Y),
		image.Rect(r.Max.X-weight, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		xdraw.Draw(dst, e.Intersect(r), src, image.Point{}, xdraw.Src)
	}
}

// drawLabel writes s just above p, or just inside when p is on the top edge
func drawLabel(dst *image.RGBA, p image.Point, s string, c color.Color) {
	face := basicfont.Face7x13
	y := p.Y - 3
	if y-face.Ascent < dst.Bounds().Min.Y {
		y = p.Y + face.Ascent + 3
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(p.X+2, y),
	}
	d.DrawString(s)
}
