package geometry

import "math"

// DefaultWheelStep is the zoom factor applied per wheel notch
const DefaultWheelStep = 1.1

// Viewport is the world-space rectangle currently mapped onto the surface
type Viewport struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// DefaultViewport returns the 1000×600 world window centred on the origin
func DefaultViewport() Viewport {
	return Viewport{X: -500, Y: -300, Width: 1000, Height: 600}
}

// Valid reports whether the viewport has a finite, strictly positive size
func (vp Viewport) Valid() bool {
	return vp.Width > 0 && vp.Height > 0 &&
		isFinite(vp.X) && isFinite(vp.Y) && isFinite(vp.Width) && isFinite(vp.Height)
}

// Origin returns the top-left world corner
func (vp Viewport) Origin() Vec2 {
	return Vec2{X: vp.X, Y: vp.Y}
}

// Rect returns the viewport as a world rectangle
func (vp Viewport) Rect() Rect {
	return Rect{MinX: vp.X, MinY: vp.Y, MaxX: vp.X + vp.Width, MaxY: vp.Y + vp.Height}
}

// Surface describes the drawing surface in screen pixels. Transform maps the
// surface's client coordinates to screen coordinates; the zero value means
// the surface sits at the screen origin.
type Surface struct {
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Transform Matrix  `json:"-"`
}

// NewSurface returns a surface of the given pixel size at the screen origin
func NewSurface(width, height float64) Surface {
	return Surface{Width: width, Height: height, Transform: Identity()}
}

// pixels returns the surface size with zero or invalid dimensions treated as 1
func (s Surface) pixels() (float64, float64) {
	w, h := s.Width, s.Height
	if !(w > 0) || !isFinite(w) {
		w = 1
	}
	if !(h > 0) || !isFinite(h) {
		h = 1
	}
	return w, h
}

func (s Surface) transform() Matrix {
	if s.Transform.IsZero() {
		return Identity()
	}
	if _, ok := s.Transform.Invert(); !ok {
		return Identity()
	}
	return s.Transform
}

// Aspect returns width / height of the surface
func (s Surface) Aspect() float64 {
	w, h := s.pixels()
	return w / h
}

// ScreenMatrix returns the world→screen transform (the CTM) for vp drawn on s.
// Width and height scale independently.
func (vp Viewport) ScreenMatrix(s Surface) Matrix {
	w, h := s.pixels()
	sx := w / vp.Width
	sy := h / vp.Height
	view := Matrix{A: sx, D: sy, E: -vp.X * sx, F: -vp.Y * sy}
	return s.transform().Multiply(view)
}

// WorldPerPixel returns world units per screen pixel along each axis
func (vp Viewport) WorldPerPixel(s Surface) Vec2 {
	w, h := s.pixels()
	return Vec2{X: vp.Width / w, Y: vp.Height / h}
}

// WorldToScreen maps a world point to screen pixels
func WorldToScreen(p Vec2, vp Viewport, s Surface) Vec2 {
	return vp.ScreenMatrix(s).Apply(p)
}

// ScreenToWorld maps a screen pixel to world space using the exact inverse of
// the CTM, so WorldToScreen(ScreenToWorld(p)) == p up to rounding.
func ScreenToWorld(p Vec2, vp Viewport, s Surface) Vec2 {
	inv, ok := vp.ScreenMatrix(s).Invert()
	if !ok {
		// only reachable with an invalid viewport
		return vp.Origin()
	}
	return inv.Apply(p)
}

// Hard bounds on either viewport side, whatever the configured zoom limits
const (
	MinExtent = 1e-6
	MaxExtent = 1e12
)

// ZoomLimits bounds the viewport width reachable through ZoomAt. A zero bound
// falls back to the hard extent.
type ZoomLimits struct {
	MinWidth float64 `json:"min_width" yaml:"min_width"`
	MaxWidth float64 `json:"max_width" yaml:"max_width"`
}

// DefaultZoomLimits allows zooming 10× in and 10× out of vp
func DefaultZoomLimits(vp Viewport) ZoomLimits {
	return ZoomLimits{MinWidth: vp.Width / 10, MaxWidth: vp.Width * 10}
}

// Resolve fills zero bounds from DefaultZoomLimits(vp)
func (l ZoomLimits) Resolve(vp Viewport) ZoomLimits {
	def := DefaultZoomLimits(vp)
	if l.MinWidth == 0 {
		l.MinWidth = def.MinWidth
	}
	if l.MaxWidth == 0 {
		l.MaxWidth = def.MaxWidth
	}
	return l
}

// Valid reports whether both bounds are finite and not negative
func (l ZoomLimits) Valid() bool {
	return l.MinWidth >= 0 && l.MaxWidth >= 0 && isFinite(l.MinWidth) && isFinite(l.MaxWidth)
}

func (l ZoomLimits) bounds() (lo, hi float64) {
	lo, hi = MinExtent, MaxExtent
	if l.MinWidth > lo && l.MinWidth < hi {
		lo = l.MinWidth
	}
	if l.MaxWidth > lo && l.MaxWidth < hi {
		hi = l.MaxWidth
	}
	return lo, hi
}

// Contains reports whether width lies within the limits
func (l ZoomLimits) Contains(width float64) bool {
	lo, hi := l.bounds()
	return width >= lo && width <= hi
}

// ClampWidth returns width moved into the limits
func (l ZoomLimits) ClampWidth(width float64) float64 {
	lo, hi := l.bounds()
	return math.Min(math.Max(width, lo), hi)
}

// ClampFactor restricts a scale factor so that width*factor stays within
// limits. It never reverses the zoom direction: a width already beyond a
// bound does not move further out, and is never pushed across the other one.
func (l ZoomLimits) ClampFactor(width, factor float64) float64 {
	lo, hi := l.bounds()
	switch {
	case factor < 1 && width*factor < lo:
		if width <= lo {
			return 1
		}
		return lo / width
	case factor > 1 && width*factor > hi:
		if width >= hi {
			return 1
		}
		return hi / width
	}
	return factor
}

// ZoomAt rescales vp by factor while keeping anchor (a world point) fixed on
// screen. Factors above 1 zoom out. Non-finite or non-positive factors leave
// vp unchanged. Both sides stay within the hard extents, so the result is
// always valid.
func ZoomAt(vp Viewport, anchor Vec2, factor float64, limits ZoomLimits) Viewport {
	if !vp.Valid() || !isFinite(factor) || factor <= 0 || !anchor.IsFinite() {
		return vp
	}
	factor = limits.ClampFactor(vp.Width, factor)
	factor = ZoomLimits{}.ClampFactor(vp.Height, factor)
	if factor == 1 {
		return vp
	}

	keep := 1 - factor
	return Viewport{
		X:      vp.X + (anchor.X-vp.X)*keep,
		Y:      vp.Y + (anchor.Y-vp.Y)*keep,
		Width:  vp.Width * factor,
		Height: vp.Height * factor,
	}
}

// PanBy moves vp so that content follows a pointer that moved by screenDelta
// pixels. worldPerPixel converts pixels to world units per axis.
func PanBy(vp Viewport, screenDelta, worldPerPixel Vec2) Viewport {
	if !screenDelta.IsFinite() || !worldPerPixel.IsFinite() {
		return vp
	}
	vp.X -= screenDelta.X * worldPerPixel.X
	vp.Y -= screenDelta.Y * worldPerPixel.Y
	return vp
}

// WheelFactor converts a wheel delta into a zoom factor: scrolling down
// (positive delta) zooms out by step, scrolling up zooms in.
func WheelFactor(deltaY, step float64) float64 {
	if !(step > 1) {
		step = DefaultWheelStep
	}
	switch {
	case deltaY > 0:
		return step
	case deltaY < 0:
		return 1 / step
	default:
		return 1
	}
}

// Fit returns a viewport with the given aspect ratio (width / height) that
// frames bounds plus padding, centred on the bounds.
func Fit(bounds Rect, aspect, padding float64) Viewport {
	r := bounds.Expand(padding)
	w, h := r.Width(), r.Height()
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if !(aspect > 0) || !isFinite(aspect) {
		aspect = w / h
	}

	if w/h < aspect {
		w = h * aspect
	} else {
		h = w / aspect
	}

	c := r.Center()
	return Viewport{X: c.X - w/2, Y: c.Y - h/2, Width: w, Height: h}
}
