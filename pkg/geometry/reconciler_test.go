package geometry

import (
	"context"
	"fmt"
	"testing"

	"github.com/grovetools/embedterm/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession answers size queries like a tmux server whose client follows refresh-client.
type fakeSession struct {
	pane      Grid
	client    Grid
	paneErr   error
	clientErr error
	refreshes []Grid
}

func (f *fakeSession) PaneSize(ctx context.Context, session string) (int, int, error) {
	if f.paneErr != nil {
		return 0, 0, f.paneErr
	}
	return f.pane.Cols, f.pane.Rows, nil
}

func (f *fakeSession) ClientSize(ctx context.Context, tty string) (int, int, error) {
	if f.clientErr != nil {
		return 0, 0, f.clientErr
	}
	return f.client.Cols, f.client.Rows, nil
}

func (f *fakeSession) RefreshClient(ctx context.Context, tty string, cols, rows int) error {
	g := Grid{Cols: cols, Rows: rows}
	f.refreshes = append(f.refreshes, g)
	f.pane, f.client = g, g
	return nil
}

type recordingResizer struct {
	sizes []Size
}

func (r *recordingResizer) ResizeChild(w, h int) error {
	r.sizes = append(r.sizes, Size{w, h})
	return nil
}

func newTestReconciler(ch Channel) (*Reconciler, *recordingResizer) {
	resizer := &recordingResizer{}
	r := NewReconciler(ch, "work", func() string { return "/dev/pts/1" }, resizer,
		config.Default().Geometry, logrus.NewEntry(logrus.New()))
	return r, resizer
}

func TestScenarioResizeTo800x480(t *testing.T) {
	session := &fakeSession{pane: Grid{80, 24}, client: Grid{80, 24}}
	r, resizer := newTestReconciler(session)
	ctx := context.Background()

	require.NoError(t, r.OnContainerResize(800, 480))
	assert.Equal(t, []Size{{800, 480}}, resizer.sizes)

	issued, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, issued)
	assert.Equal(t, []Grid{{100, 30}}, session.refreshes)

	// Nothing changed since: no further client resize.
	for i := 0; i < 3; i++ {
		issued, err = r.Reconcile(ctx)
		require.NoError(t, err)
		assert.False(t, issued)
	}
	assert.Len(t, session.refreshes, 1)

	w, h := r.Estimator().Cell()
	assert.InDelta(t, 8.0, w, 1e-9)
	assert.InDelta(t, 16.0, h, 1e-9)
}

func TestEstimateConvergesTowardsObservedCell(t *testing.T) {
	// The emulator font is really 10x20 px per cell.
	session := &fakeSession{pane: Grid{80, 24}, client: Grid{80, 24}}
	r, _ := newTestReconciler(session)
	ctx := context.Background()
	require.NoError(t, r.OnContainerResize(1000, 600))

	for i := 0; i < 30; i++ {
		session.pane = Grid{100, 30}
		session.client = session.pane
		_, err := r.Reconcile(ctx)
		require.NoError(t, err)
	}

	w, h := r.Estimator().Cell()
	assert.InDelta(t, 10.0, w, 0.05)
	assert.InDelta(t, 20.0, h, 0.05)
}

func TestReconcileFallsBackToDefaultGrid(t *testing.T) {
	session := &fakeSession{paneErr: fmt.Errorf("no server"), clientErr: fmt.Errorf("no server")}
	r, _ := newTestReconciler(session)
	ctx := context.Background()
	require.NoError(t, r.OnContainerResize(640, 384))

	_, err := r.Reconcile(ctx)
	require.NoError(t, err)
	_, err = r.Reconcile(ctx)
	require.NoError(t, err)

	// Second tick sampled 640x384 against the default 80x24: exactly (8,16).
	w, h := r.Estimator().Cell()
	assert.InDelta(t, 8.0, w, 1e-9)
	assert.InDelta(t, 16.0, h, 1e-9)
}

func TestRedundantResizeSuppressedWithoutClientQuery(t *testing.T) {
	session := &fakeSession{pane: Grid{80, 24}, clientErr: fmt.Errorf("no client")}
	r, _ := newTestReconciler(session)
	ctx := context.Background()
	require.NoError(t, r.OnContainerResize(800, 480))

	issued, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, issued)

	issued, err = r.Reconcile(ctx)
	require.NoError(t, err)
	assert.False(t, issued)
	assert.Len(t, session.refreshes, 1)
}

func TestReconcileWithoutContainerSize(t *testing.T) {
	session := &fakeSession{pane: Grid{80, 24}, client: Grid{80, 24}}
	r, resizer := newTestReconciler(session)

	issued, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	assert.False(t, issued)
	assert.Empty(t, resizer.sizes)
	assert.Empty(t, session.refreshes)
}

func TestGridClampsForAllContainerSizes(t *testing.T) {
	bounds := Bounds{MinCols: 20, MaxCols: 400, MinRows: 5, MaxRows: 200}
	estimators := []*Estimator{
		NewEstimator(0.35, 8, 16, bounds),
		NewEstimator(0.35, 1, 1, bounds),
		NewEstimator(0.35, 500, 900, bounds),
	}

	for _, e := range estimators {
		for w := 1; w <= 10000; w += 37 {
			for h := 1; h <= 10000; h += 41 {
				g := e.Grid(Size{w, h})
				if g.Cols < 20 || g.Cols > 400 || g.Rows < 5 || g.Rows > 200 {
					t.Fatalf("grid %+v out of bounds for %dx%d", g, w, h)
				}
			}
		}
	}
}

func TestEstimatorNeverReachesZero(t *testing.T) {
	e := NewEstimator(1, 8, 16, Bounds{MinCols: 1, MaxCols: 1000, MinRows: 1, MaxRows: 1000})

	assert.True(t, e.Observe(Size{1, 1}, Grid{400, 200}))
	w, h := e.Cell()
	assert.Equal(t, minCellPx, w)
	assert.Equal(t, minCellPx, h)

	assert.False(t, e.Observe(Size{0, 480}, Grid{80, 24}))
	assert.False(t, e.Observe(Size{800, 480}, Grid{0, 24}))
}

func TestNewEstimatorSanitizesSeed(t *testing.T) {
	e := NewEstimator(0, -3, 0, Bounds{})
	w, h := e.Cell()
	assert.Equal(t, minCellPx, w)
	assert.Equal(t, minCellPx, h)
	assert.Equal(t, 0.35, e.alpha)
}

func TestTuneKeepsEstimate(t *testing.T) {
	session := &fakeSession{pane: Grid{80, 24}, client: Grid{80, 24}}
	r, _ := newTestReconciler(session)
	cfg := config.Default().Geometry
	cfg.MaxCols = 50

	r.Tune(cfg)
	require.NoError(t, r.OnContainerResize(800, 480))
	_, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Grid{{50, 30}}, session.refreshes)
}
