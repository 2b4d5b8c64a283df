package geometry

import (
	"context"

	"github.com/grovetools/embedterm/config"
	"github.com/sirupsen/logrus"
)

// Channel is the subset of the tmux control channel the reconciler queries.
type Channel interface {
	PaneSize(ctx context.Context, session string) (cols, rows int, err error)
	ClientSize(ctx context.Context, tty string) (cols, rows int, err error)
	RefreshClient(ctx context.Context, tty string, cols, rows int) error
}

// Resizer pushes a pixel size onto the embedded window.
type Resizer interface {
	ResizeChild(width, height int) error
}

// Reconciler keeps the embedded window and the session's client grid in step with
// the container. It is driven from one goroutine.
type Reconciler struct {
	ch        Channel
	session   string
	clientTTY func() string
	resizer   Resizer
	logger    *logrus.Entry

	est         *Estimator
	defaultGrid Grid

	container  Size
	prevTickPx Size
	lastIssued Grid
	hasIssued  bool
}

// NewReconciler creates a reconciler. clientTTY returns the current client tty, or "".
func NewReconciler(ch Channel, session string, clientTTY func() string, resizer Resizer, cfg config.GeometryConfig, logger *logrus.Entry) *Reconciler {
	return &Reconciler{
		ch:          ch,
		session:     session,
		clientTTY:   clientTTY,
		resizer:     resizer,
		logger:      logger,
		est:         NewEstimator(cfg.Alpha, cfg.CellWidth, cfg.CellHeight, boundsOf(cfg)),
		defaultGrid: Grid{Cols: cfg.DefaultCols, Rows: cfg.DefaultRows},
	}
}

// Tune applies new tunables without losing the current estimate.
func (r *Reconciler) Tune(cfg config.GeometryConfig) {
	r.est.Tune(cfg.Alpha, boundsOf(cfg))
	r.defaultGrid = Grid{Cols: cfg.DefaultCols, Rows: cfg.DefaultRows}
}

// Estimator exposes the cell-size estimate.
func (r *Reconciler) Estimator() *Estimator {
	return r.est
}

// Container returns the last reported container size.
func (r *Reconciler) Container() Size {
	return r.container
}

// OnContainerResize records the container size and resizes the embedded window
// right away. It does no control-channel I/O and is safe to call on every layout pass.
func (r *Reconciler) OnContainerResize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	r.container = Size{Width: width, Height: height}
	return r.resizer.ResizeChild(width, height)
}

// Reconcile re-applies the window size, updates the cell estimate, and sends a
// client resize when the target grid differs from the session's. It reports
// whether a resize was issued.
func (r *Reconciler) Reconcile(ctx context.Context) (bool, error) {
	px := r.container
	if px.Width <= 0 || px.Height <= 0 {
		return false, nil
	}

	if err := r.resizer.ResizeChild(px.Width, px.Height); err != nil {
		r.logger.WithError(err).Debug("Window resize failed during reconcile")
	}

	tty := r.clientTTY()
	reference := r.referenceGrid(ctx, tty)

	// Only a size that has held for a whole interval can be paired with the
	// grid the session reports; right after a resize that grid is stale.
	if px == r.prevTickPx {
		r.est.Observe(px, reference)
	}
	r.prevTickPx = px

	target := r.est.Grid(px)

	if current, ok := r.clientGrid(ctx, tty); ok {
		if current == target {
			r.lastIssued, r.hasIssued = target, true
			return false, nil
		}
	} else if r.hasIssued && r.lastIssued == target {
		return false, nil
	}

	if err := r.ch.RefreshClient(ctx, tty, target.Cols, target.Rows); err != nil {
		return false, err
	}
	r.lastIssued, r.hasIssued = target, true

	cellW, cellH := r.est.Cell()
	r.logger.WithFields(logrus.Fields{
		"cols":   target.Cols,
		"rows":   target.Rows,
		"cell_w": cellW,
		"cell_h": cellH,
	}).Debug("Resized session client")
	return true, nil
}

// Reset forgets everything learned about the current session, keeping the estimate.
func (r *Reconciler) Reset() {
	r.prevTickPx = Size{}
	r.lastIssued, r.hasIssued = Grid{}, false
}

func (r *Reconciler) referenceGrid(ctx context.Context, tty string) Grid {
	if cols, rows, err := r.ch.PaneSize(ctx, r.session); err == nil {
		return Grid{Cols: cols, Rows: rows}
	}
	if g, ok := r.clientGrid(ctx, tty); ok {
		return g
	}
	return r.defaultGrid
}

func (r *Reconciler) clientGrid(ctx context.Context, tty string) (Grid, bool) {
	if tty == "" {
		return Grid{}, false
	}
	cols, rows, err := r.ch.ClientSize(ctx, tty)
	if err != nil {
		return Grid{}, false
	}
	return Grid{Cols: cols, Rows: rows}, true
}

func boundsOf(cfg config.GeometryConfig) Bounds {
	return Bounds{
		MinCols: cfg.MinCols,
		MaxCols: cfg.MaxCols,
		MinRows: cfg.MinRows,
		MaxRows: cfg.MaxRows,
	}
}
