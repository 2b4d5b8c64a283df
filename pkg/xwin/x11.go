package xwin

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/grovetools/embedterm/errors"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// X11 implements Bridge and Inspector over a core-protocol X connection.
type X11 struct {
	conn  *xgb.Conn
	class string
}

// Connect opens display (":0"; empty uses $DISPLAY). class is matched
// case-insensitively against each child's WM_CLASS.
func Connect(display, class string) (*X11, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, errors.DisplayUnavailable(err)
	}
	return &X11{conn: conn, class: strings.ToLower(class)}, nil
}

// DiscoverChild walks the container's direct children.
func (x *X11) DiscoverChild(container uint32) (uint32, error) {
	tree, err := xproto.QueryTree(x.conn, xproto.Window(container)).Reply()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeGeometryDiscovery, "query_tree failed").
			WithDetail("container", container)
	}
	if len(tree.Children) == 0 {
		return 0, errors.GeometryDiscovery(container)
	}

	if x.class != "" {
		for _, child := range tree.Children {
			if strings.Contains(strings.ToLower(x.wmClass(child)), x.class) {
				return uint32(child), nil
			}
		}
	}
	return uint32(tree.Children[0]), nil
}

// wmClass returns "instance class" for win, or "" when the property is unset.
func (x *X11) wmClass(win xproto.Window) string {
	reply, err := xproto.GetProperty(x.conn, false, win, xproto.AtomWmClass, xproto.AtomString, 0, 256).Reply()
	if err != nil || reply == nil || len(reply.Value) == 0 {
		return ""
	}
	parts := bytes.Split(bytes.TrimRight(reply.Value, "\x00"), []byte{0})
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		names = append(names, string(p))
	}
	return strings.Join(names, " ")
}

// ResizeChild sets width, height, a zero border, and stacks win above its siblings.
func (x *X11) ResizeChild(win uint32, width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("invalid window size %dx%d", width, height))
	}
	mask := uint16(xproto.ConfigWindowWidth | xproto.ConfigWindowHeight |
		xproto.ConfigWindowBorderWidth | xproto.ConfigWindowStackMode)
	values := []uint32{uint32(width), uint32(height), 0, xproto.StackModeAbove}
	if err := xproto.ConfigureWindowChecked(x.conn, xproto.Window(win), mask, values).Check(); err != nil {
		return errors.Wrap(err, errors.ErrCodeGeometryDiscovery, "configure_window failed").
			WithDetail("window", win)
	}
	return nil
}

// Mapped reports whether win is viewable.
func (x *X11) Mapped(win uint32) bool {
	attrs, err := xproto.GetWindowAttributes(x.conn, xproto.Window(win)).Reply()
	if err != nil {
		return false
	}
	return attrs.MapState == xproto.MapStateViewable
}

// Geometry returns win's current size in pixels.
func (x *X11) Geometry(win uint32) (int, int, error) {
	geom, err := xproto.GetGeometry(x.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrCodeGeometryDiscovery, "get_geometry failed").
			WithDetail("window", win)
	}
	return int(geom.Width), int(geom.Height), nil
}

// Focus gives win the keyboard input focus.
func (x *X11) Focus(win uint32) error {
	err := xproto.SetInputFocusChecked(x.conn, xproto.InputFocusPointerRoot,
		xproto.Window(win), xproto.TimeCurrentTime).Check()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeGeometryDiscovery, "set_input_focus failed").
			WithDetail("window", win)
	}
	return nil
}

// Close releases the display connection.
func (x *X11) Close() error {
	x.conn.Close()
	return nil
}
