// Package geometry turns container pixel sizes into a terminal grid.
package geometry

import "math"

// minCellPx keeps the cell estimate away from zero.
const minCellPx = 1.0

// Size is a pixel size.
type Size struct {
	Width  int
	Height int
}

// Grid is a terminal size in character cells.
type Grid struct {
	Cols int
	Rows int
}

// Bounds clamps computed grids.
type Bounds struct {
	MinCols int
	MaxCols int
	MinRows int
	MaxRows int
}

// Clamp limits g to b.
func (b Bounds) Clamp(g Grid) Grid {
	return Grid{
		Cols: clamp(g.Cols, b.MinCols, b.MaxCols),
		Rows: clamp(g.Rows, b.MinRows, b.MaxRows),
	}
}

// Estimator keeps an exponentially smoothed pixel-per-cell estimate.
type Estimator struct {
	alpha  float64
	cellW  float64
	cellH  float64
	bounds Bounds
}

// NewEstimator seeds the estimate with (cellW, cellH).
func NewEstimator(alpha, cellW, cellH float64, bounds Bounds) *Estimator {
	e := &Estimator{bounds: bounds}
	e.Tune(alpha, bounds)
	e.cellW = math.Max(cellW, minCellPx)
	e.cellH = math.Max(cellH, minCellPx)
	return e
}

// Tune changes the smoothing factor and bounds, keeping the current estimate.
func (e *Estimator) Tune(alpha float64, bounds Bounds) {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.35
	}
	e.alpha = alpha
	e.bounds = bounds
}

// Cell returns the current cell size estimate in pixels.
func (e *Estimator) Cell() (w, h float64) {
	return e.cellW, e.cellH
}

// Observe folds one sample (px shown as grid) into the estimate.
// Samples with a zero dimension are ignored.
func (e *Estimator) Observe(px Size, grid Grid) bool {
	if px.Width <= 0 || px.Height <= 0 || grid.Cols <= 0 || grid.Rows <= 0 {
		return false
	}
	sampleW := float64(px.Width) / float64(grid.Cols)
	sampleH := float64(px.Height) / float64(grid.Rows)
	e.cellW = math.Max((1-e.alpha)*e.cellW+e.alpha*sampleW, minCellPx)
	e.cellH = math.Max((1-e.alpha)*e.cellH+e.alpha*sampleH, minCellPx)
	return true
}

// Grid returns the clamped grid that fits px at the current estimate.
func (e *Estimator) Grid(px Size) Grid {
	return e.bounds.Clamp(Grid{
		Cols: int(math.Round(float64(px.Width) / e.cellW)),
		Rows: int(math.Round(float64(px.Height) / e.cellH)),
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
