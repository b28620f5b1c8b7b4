package gesture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashpile/backend/internal/world"
)

// fakeHost - фигура "лежит" в прямоугольнике x,y < 100
type fakeHost struct {
	piece *world.Piece
	calls []string

	dragging bool
	panning  bool
	overlap  bool
}

func newFakeHost() *fakeHost {
	return &fakeHost{piece: &world.Piece{RenderID: 1}}
}

func (h *fakeHost) PickPiece(x, y float64) (*world.Piece, bool) {
	if x < 100 && y < 100 {
		return h.piece, true
	}
	return nil, false
}

func (h *fakeHost) BeginDrag(p *world.Piece, x, y float64) bool {
	h.calls = append(h.calls, "begin_drag")
	h.dragging = true
	h.check()
	return true
}

func (h *fakeHost) DragTo(x, y float64) { h.calls = append(h.calls, "drag") }

func (h *fakeHost) EndDrag() {
	h.calls = append(h.calls, "end_drag")
	h.dragging = false
}

func (h *fakeHost) BeginPan(x, y float64) bool {
	h.calls = append(h.calls, "begin_pan")
	h.panning = true
	h.check()
	return true
}

func (h *fakeHost) PanTo(x, y float64) { h.calls = append(h.calls, "pan") }

func (h *fakeHost) EndPan() {
	h.calls = append(h.calls, "end_pan")
	h.panning = false
}

func (h *fakeHost) Exchange(p *world.Piece) error {
	h.calls = append(h.calls, "exchange")
	return nil
}

func (h *fakeHost) ToggleTray(p *world.Piece) { h.calls = append(h.calls, "toggle") }

func (h *fakeHost) check() {
	if h.dragging && h.panning {
		h.overlap = true
	}
}

func ev(kind EventKind, id int, pt PointerType, x, y float64) PointerEvent {
	return PointerEvent{Kind: kind, PointerID: id, PointerType: pt, X: x, Y: y}
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestMouseTapTogglesImmediately(t *testing.T) {
	h := newFakeHost()
	f := New(h, DefaultConfig())

	f.Handle(ev(Down, 1, Mouse, 10, 10), 0)
	assert.Equal(t, Armed, f.State())
	f.Handle(ev(Move, 1, Mouse, 14, 10), ms(5))
	f.Handle(ev(Up, 1, Mouse, 14, 10), ms(10))

	assert.Equal(t, []string{"toggle"}, h.calls)
	assert.Equal(t, Idle, f.State())
}

func TestDragStartsAfterThreshold(t *testing.T) {
	h := newFakeHost()
	f := New(h, DefaultConfig())

	f.Handle(ev(Down, 1, Mouse, 10, 10), 0)
	f.Handle(ev(Move, 1, Mouse, 17, 10), ms(5))
	assert.Equal(t, Armed, f.State(), "7px is below drag threshold")

	f.Handle(ev(Move, 1, Mouse, 18, 10), ms(6))
	assert.Equal(t, Dragging, f.State())
	f.Handle(ev(Move, 1, Mouse, 30, 10), ms(7))
	f.Handle(ev(Up, 1, Mouse, 30, 10), ms(8))

	assert.Equal(t, []string{"begin_drag", "drag", "end_drag"}, h.calls)
	assert.Equal(t, Idle, f.State())
}

func TestCancelEndsDragLikeUp(t *testing.T) {
	h := newFakeHost()
	f := New(h, DefaultConfig())

	f.Handle(ev(Down, 1, Touch, 10, 10), 0)
	f.Handle(ev(Move, 1, Touch, 40, 10), ms(5))
	f.Handle(ev(Cancel, 1, Touch, 40, 10), ms(6))

	assert.Equal(t, []string{"begin_drag", "end_drag"}, h.calls)
	assert.Equal(t, Idle, f.State())
}

func TestPanOnEmptyTable(t *testing.T) {
	h := newFakeHost()
	f := New(h, DefaultConfig())

	f.Handle(ev(Down, 1, Mouse, 200, 200), 0)
	assert.Equal(t, Panning, f.State())
	assert.False(t, f.Panning())

	f.Handle(ev(Move, 1, Mouse, 205, 200), ms(1))
	assert.Empty(t, h.calls, "5px is below pan threshold")

	f.Handle(ev(Move, 1, Mouse, 206, 200), ms(2))
	assert.True(t, f.Panning())
	f.Handle(ev(Up, 1, Mouse, 206, 200), ms(3))

	assert.Equal(t, []string{"begin_pan", "pan", "end_pan"}, h.calls)
}

func TestTapOnEmptyTableIsNoop(t *testing.T) {
	h := newFakeHost()
	f := New(h, DefaultConfig())

	f.Handle(ev(Down, 1, Mouse, 200, 200), 0)
	f.Handle(ev(Up, 1, Mouse, 202, 200), ms(50))

	assert.Empty(t, h.calls)
	assert.Equal(t, Idle, f.State())
}

func TestTouchSingleTapWaitsForWindow(t *testing.T) {
	h := newFakeHost()
	f := New(h, DefaultConfig())

	f.Handle(ev(Down, 1, Touch, 10, 10), 0)
	f.Handle(ev(Up, 1, Touch, 10, 10), ms(40))
	assert.Equal(t, PendingTap, f.State())

	f.Tick(ms(200))
	assert.Empty(t, h.calls)

	f.Tick(ms(321))
	assert.Equal(t, []string{"toggle"}, h.calls)
	assert.Equal(t, Idle, f.State())
}

func TestTouchDoubleTapExchanges(t *testing.T) {
	h := newFakeHost()
	f := New(h, DefaultConfig())

	f.Handle(ev(Down, 1, Touch, 10, 10), 0)
	f.Handle(ev(Up, 1, Touch, 10, 10), ms(40))
	f.Handle(ev(Down, 2, Touch, 20, 20), ms(150))
	f.Handle(ev(Move, 2, Touch, 60, 20), ms(160))
	f.Handle(ev(Up, 2, Touch, 60, 20), ms(170))
	f.Tick(ms(1000))

	assert.Equal(t, []string{"exchange"}, h.calls, "no tray toggle and no drag after double tap")
	assert.Equal(t, Idle, f.State())
}

func TestTouchSecondTapTooFarTogglesFirst(t *testing.T) {
	h := newFakeHost()
	f := New(h, DefaultConfig())

	f.Handle(ev(Down, 1, Touch, 10, 10), 0)
	f.Handle(ev(Up, 1, Touch, 10, 10), ms(40))
	f.Handle(ev(Down, 2, Touch, 60, 60), ms(100))

	require.NotEmpty(t, h.calls)
	assert.Equal(t, "toggle", h.calls[0])
	assert.Equal(t, Armed, f.State())
}

func TestContextMenuExchangesWhenIdle(t *testing.T) {
	h := newFakeHost()
	f := New(h, DefaultConfig())

	f.Handle(ev(ContextMenu, 1, Mouse, 10, 10), 0)
	f.Handle(ev(ContextMenu, 1, Mouse, 500, 500), ms(10))

	assert.Equal(t, []string{"exchange"}, h.calls)
}

func TestSecondaryDownIsIgnored(t *testing.T) {
	h := newFakeHost()
	f := New(h, DefaultConfig())

	f.Handle(PointerEvent{Kind: Down, PointerID: 1, PointerType: Mouse, Button: ButtonSecondary, X: 10, Y: 10}, 0)

	assert.Equal(t, Idle, f.State())
	assert.Empty(t, h.calls)
}

func TestLongPressContextMenuWhileArmed(t *testing.T) {
	h := newFakeHost()
	f := New(h, DefaultConfig())

	f.Handle(ev(Down, 1, Touch, 10, 10), 0)
	f.Handle(ev(ContextMenu, 1, Touch, 10, 10), ms(600))
	f.Handle(ev(Up, 1, Touch, 10, 10), ms(700))
	f.Tick(ms(2000))

	assert.Equal(t, []string{"exchange"}, h.calls)
}

func TestContextMenuIgnoredWhileDragging(t *testing.T) {
	h := newFakeHost()
	f := New(h, DefaultConfig())

	f.Handle(ev(Down, 1, Mouse, 10, 10), 0)
	f.Handle(ev(Move, 1, Mouse, 30, 10), ms(5))
	f.Handle(ev(ContextMenu, 1, Mouse, 30, 10), ms(6))

	assert.Equal(t, []string{"begin_drag"}, h.calls)
	assert.Equal(t, Dragging, f.State())
}

func TestOtherPointerIgnoredDuringGesture(t *testing.T) {
	h := newFakeHost()
	f := New(h, DefaultConfig())

	f.Handle(ev(Down, 1, Touch, 10, 10), 0)
	f.Handle(ev(Move, 1, Touch, 40, 10), ms(5))
	f.Handle(ev(Down, 2, Touch, 300, 300), ms(6))
	f.Handle(ev(Move, 2, Touch, 350, 300), ms(7))
	f.Handle(ev(Up, 2, Touch, 350, 300), ms(8))

	assert.Equal(t, Dragging, f.State())
	assert.False(t, h.overlap)
	assert.Equal(t, []string{"begin_drag"}, h.calls)
}

func TestResetEndsDrag(t *testing.T) {
	h := newFakeHost()
	f := New(h, DefaultConfig())

	f.Handle(ev(Down, 1, Mouse, 10, 10), 0)
	f.Handle(ev(Move, 1, Mouse, 30, 10), ms(5))
	f.Reset()

	assert.Equal(t, []string{"begin_drag", "end_drag"}, h.calls)
	assert.Equal(t, Idle, f.State())
}

func TestForgetDropsPendingPiece(t *testing.T) {
	h := newFakeHost()
	f := New(h, DefaultConfig())

	f.Handle(ev(Down, 1, Touch, 10, 10), 0)
	f.Handle(ev(Up, 1, Touch, 10, 10), ms(10))
	f.Forget(h.piece)
	f.Tick(ms(1000))

	assert.Empty(t, h.calls)
	assert.Nil(t, f.Piece())
}

func TestParseEventKind(t *testing.T) {
	k, ok := ParseEventKind("contextmenu")
	assert.True(t, ok)
	assert.Equal(t, ContextMenu, k)

	_, ok = ParseEventKind("wheel")
	assert.False(t, ok)
}
