// videosurface.go - ebiten-backed PixelTarget, with x/image/draw scaling
//
// Grounded on video_backend_ebiten.go's EbitenOutput: a mutex-guarded frame
// buffer written into an *ebiten.Image via WritePixels, presented through
// Draw. Generalizes the teacher's scaleImageToMode (a hand-rolled bilinear
// loop) into a real library call: when the host window size differs from
// the VDU's fixed W×H, the RGBA8888 buffer is scaled with
// draw.NearestNeighbor.Scale before the final WritePixels.
//
// License: GPLv3 or later

package spg290

import (
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/image/draw"
)

// EbitenPixelTarget implements PixelTarget, presenting the VDU's scan-out
// buffer as an ebiten.Image sized to a host window that may differ from the
// VDU's fixed source geometry.
type EbitenPixelTarget struct {
	mu sync.RWMutex

	srcW, srcH int
	outW, outH int

	source *ebiten.Image // holds the most recent unscaled RGBA8888 frame
	scaled *ebiten.Image // holds the output-sized image actually drawn
}

// NewEbitenPixelTarget creates a target that presents at outW×outH,
// scaling the VDU's source frame to fit if the two sizes differ.
func NewEbitenPixelTarget(outW, outH int) *EbitenPixelTarget {
	return &EbitenPixelTarget{outW: outW, outH: outH}
}

// SetPixels implements PixelTarget. It is called once per rendered frame
// from VDU.Render, never concurrently with itself.
func (t *EbitenPixelTarget) SetPixels(width, height int, rgba []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.source == nil || t.srcW != width || t.srcH != height {
		t.srcW, t.srcH = width, height
		t.source = ebiten.NewImage(width, height)
	}
	t.source.WritePixels(rgba)

	if width == t.outW && height == t.outH {
		t.scaled = t.source
		return
	}

	if t.scaled == nil || t.scaled == t.source {
		t.scaled = ebiten.NewImage(t.outW, t.outH)
	}

	dst := image.NewRGBA(image.Rect(0, 0, t.outW, t.outH))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), t.source, t.source.Bounds(), draw.Src, nil)
	t.scaled.WritePixels(dst.Pix)
}

// Image returns the most recently presented frame, ready for
// screen.DrawImage in an ebiten.Game's Draw callback.
func (t *EbitenPixelTarget) Image() *ebiten.Image {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scaled
}

// Resize changes the presented output size; the next SetPixels call
// allocates a new scaled image at the new dimensions if needed.
func (t *EbitenPixelTarget) Resize(outW, outH int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outW, t.outH = outW, outH
	t.scaled = nil
}
