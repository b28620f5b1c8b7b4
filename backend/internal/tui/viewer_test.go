package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashpile/backend/internal/world"
)

const frame = 16 * time.Millisecond

type countingSound struct {
	clinks int
	chimes int
}

func (s *countingSound) Clink() { s.clinks++ }
func (s *countingSound) Chime() { s.chimes++ }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestViewer(t *testing.T, sound Sound) (*Viewer, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 25)
	t.Cleanup(screen.Fini)

	v, err := NewViewer(screen, Options{Seed: 42, Sound: sound, Logger: quietLogger()})
	require.NoError(t, err)
	return v, screen
}

func (v *Viewer) step(t *testing.T, frames int) {
	t.Helper()
	for i := 0; i < frames; i++ {
		require.NoError(t, v.ticker.Tick(frame))
	}
}

func (v *Viewer) typeKeys(text string) {
	for _, r := range text {
		v.HandleEvent(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
}

func (v *Viewer) press(k tcell.Key) {
	v.HandleEvent(tcell.NewEventKey(k, 0, tcell.ModNone))
}

func screenRow(screen tcell.SimulationScreen, row int) string {
	cells, w, _ := screen.GetContents()
	var b strings.Builder
	for _, c := range cells[row*w : (row+1)*w] {
		if len(c.Runes) > 0 {
			b.WriteRune(c.Runes[0])
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func (v *Viewer) waitPieces(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < 300 && v.table.Registry().Size() < n; i++ {
		v.step(t, 1)
	}
	require.Equal(t, n, v.table.Registry().Size())
}

func TestViewerQuitKeys(t *testing.T) {
	v, _ := newTestViewer(t, nil)
	assert.False(t, v.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)))
	assert.False(t, v.HandleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	assert.True(t, v.HandleEvent(tcell.NewEventKey(tcell.KeyRune, '5', tcell.ModNone)))
}

func TestViewerDropFromPrompt(t *testing.T) {
	v, screen := newTestViewer(t, nil)

	v.typeKeys("10,000")
	v.step(t, 1)
	assert.Equal(t, "10,000", v.hud.prompt)

	v.press(tcell.KeyEnter)
	v.step(t, 3)
	assert.True(t, v.table.Running())
	assert.Equal(t, int64(10000), v.table.Amount())
	assert.Empty(t, v.hud.prompt)

	v.waitPieces(t, 1)
	v.step(t, 3)
	status := screenRow(screen, 23)
	assert.Contains(t, status, "amount ¥10,000")
	assert.Contains(t, status, "pieces 1")

	var drawn bool
	for row := 0; row < 23 && !drawn; row++ {
		drawn = strings.Contains(screenRow(screen, row), "10000")
	}
	assert.True(t, drawn, "bill label is on the board")
}

func TestViewerRepromptsInvalidAmount(t *testing.T) {
	v, screen := newTestViewer(t, nil)

	v.typeKeys("0")
	v.press(tcell.KeyEnter)
	v.step(t, 3)

	assert.False(t, v.table.Running())
	assert.True(t, v.hud.noticeErr)
	assert.Contains(t, screenRow(screen, 24), "positive amount")

	// подсказка возвращается после noticeTTL
	v.step(t, int(noticeTTL/frame)+2)
	assert.Empty(t, v.hud.notice)
}

func TestViewerClickMovesPieceToTrayAndPays(t *testing.T) {
	sound := &countingSound{}
	v, _ := newTestViewer(t, sound)

	v.typeKeys("1000")
	v.press(tcell.KeyEnter)
	v.step(t, 1)
	v.waitPieces(t, 1)

	var piece *world.Piece
	v.table.Registry().ForEach(func(p *world.Piece) { piece = p })
	px, py, ok := v.table.Camera().WorldToScreen(piece.Body.Position)
	require.True(t, ok)
	col, row := PixelToCell(px, py)

	// down и up попадают в один кадр, фигура не успевает сдвинуться
	v.HandleEvent(tcell.NewEventMouse(col, row, tcell.ButtonPrimary, tcell.ModNone))
	v.HandleEvent(tcell.NewEventMouse(col, row, tcell.ButtonNone, tcell.ModNone))
	v.step(t, 1)
	assert.True(t, v.table.InTray(piece))
	assert.Equal(t, int64(1000), v.table.TrayTotal())
	assert.Equal(t, 1, sound.clinks)

	v.typeKeys("p")
	v.step(t, 1)
	assert.Equal(t, int64(1000), v.table.PaidTotal())
	assert.Zero(t, v.table.Amount())
	assert.Equal(t, 1, sound.chimes)
	assert.Equal(t, 1, sound.clinks, "payment only chimes")
	assert.Contains(t, v.hud.notice, "paid ¥1,000")
}

func TestViewerRightClickExchanges(t *testing.T) {
	v, _ := newTestViewer(t, nil)

	v.typeKeys("10000")
	v.press(tcell.KeyEnter)
	v.step(t, 1)
	v.waitPieces(t, 1)

	var piece *world.Piece
	v.table.Registry().ForEach(func(p *world.Piece) { piece = p })
	px, py, _ := v.table.Camera().WorldToScreen(piece.Body.Position)
	col, row := PixelToCell(px, py)

	v.HandleEvent(tcell.NewEventMouse(col, row, tcell.ButtonSecondary, tcell.ModNone))
	v.step(t, 1)
	assert.False(t, v.table.Registry().Contains(piece))
	assert.Equal(t, 2, v.table.Registry().Size())
	assert.Equal(t, int64(10000), v.table.Registry().TotalValue())
	assert.Contains(t, v.hud.notice, "exchanged into 2 pieces")
}

func TestViewerResizeRefitsCamera(t *testing.T) {
	v, _ := newTestViewer(t, nil)
	before := v.table.Camera().Scale

	v.HandleEvent(tcell.NewEventResize(160, 50))
	v.step(t, 1)

	assert.Equal(t, Layout{Cols: 160, Rows: 50}, v.layout)
	assert.Equal(t, 160*CellWidth, v.table.Camera().Width)
	assert.Less(t, v.table.Camera().Scale, before)
}
