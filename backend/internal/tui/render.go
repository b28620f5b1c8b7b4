package tui

import (
	"fmt"
	"sort"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"cashpile/backend/internal/game"
	"cashpile/backend/internal/world"
)

var (
	styleBoard   = tcell.StyleDefault.Background(tcell.NewHexColor(0x1d2b22)).Foreground(tcell.NewHexColor(0x3c5a45))
	styleWall    = tcell.StyleDefault.Foreground(tcell.NewHexColor(0x8a9a8f))
	styleStatus  = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleRunning = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleHint    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleError   = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleNotice  = tcell.StyleDefault.Foreground(tcell.ColorGreen)

	yenPrinter = message.NewPrinter(language.Japanese)
)

// FormatYen форматирует сумму с разделителями разрядов
func FormatYen(v int64) string {
	return yenPrinter.Sprintf("¥%d", v)
}

// hud - состояние строк статуса, живет в цикле стола
type hud struct {
	prompt    string
	notice    string
	noticeErr bool
}

// drawTable рисует вид сверху и строки статуса. Вызывается из цикла стола.
func drawTable(s tcell.Screen, t *game.Table, layout Layout, h hud) {
	s.Clear()
	cam := t.Camera()
	arena := t.Arena().Config

	drawRect(s, cam, layout, -arena.HalfExtent, -arena.HalfExtent, arena.HalfExtent, arena.HalfExtent, styleBoard, '·')
	drawFrame(s, cam, layout, -arena.HalfExtent, -arena.HalfExtent, arena.HalfExtent, arena.HalfExtent, styleWall)

	tray := arena.Tray
	trayStyle := styleBoard.Background(tcell.NewHexColor(0x3f5a4b))
	drawRect(s, cam, layout,
		tray.CenterX-tray.Width/2, tray.CenterZ-tray.Depth/2,
		tray.CenterX+tray.Width/2, tray.CenterZ+tray.Depth/2, trayStyle, ' ')
	drawFrame(s, cam, layout,
		tray.CenterX-tray.Width/2, tray.CenterZ-tray.Depth/2,
		tray.CenterX+tray.Width/2, tray.CenterZ+tray.Depth/2,
		trayStyle.Foreground(tcell.NewHexColor(0x6d8a74)))

	// нижние фигуры рисуются первыми
	pieces := t.Registry().All()
	sort.SliceStable(pieces, func(i, j int) bool {
		return pieces[i].Body.Position[1] < pieces[j].Body.Position[1]
	})
	held := t.Gesture().Piece()
	for _, p := range pieces {
		drawPiece(s, cam, layout, p, p == held)
	}

	drawStatus(s, t, layout, h)
}

func cellOf(cam *game.Camera, x, z float64) (int, int) {
	px, py, _ := cam.WorldToScreen(mgl64.Vec3{x, 0, z})
	return PixelToCell(px, py)
}

func inBoard(layout Layout, col, row int) bool {
	return col >= 0 && row >= 0 && col < layout.Cols && row < layout.BoardRows()
}

func drawRect(s tcell.Screen, cam *game.Camera, layout Layout, x0, z0, x1, z1 float64, style tcell.Style, fill rune) {
	c0, r0 := cellOf(cam, x0, z0)
	c1, r1 := cellOf(cam, x1, z1)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			if inBoard(layout, col, row) {
				s.SetContent(col, row, fill, nil, style)
			}
		}
	}
}

func drawFrame(s tcell.Screen, cam *game.Camera, layout Layout, x0, z0, x1, z1 float64, style tcell.Style) {
	c0, r0 := cellOf(cam, x0, z0)
	c1, r1 := cellOf(cam, x1, z1)
	set := func(col, row int, r rune) {
		if inBoard(layout, col, row) {
			s.SetContent(col, row, r, nil, style)
		}
	}
	for col := c0 + 1; col < c1; col++ {
		set(col, r0, '─')
		set(col, r1, '─')
	}
	for row := r0 + 1; row < r1; row++ {
		set(c0, row, '│')
		set(c1, row, '│')
	}
	set(c0, r0, '┌')
	set(c1, r0, '┐')
	set(c0, r1, '└')
	set(c1, r1, '┘')
}

func pieceStyle(p *world.Piece, held bool) tcell.Style {
	color := tcell.NewHexColor(int32(p.Denomination.EdgeColor))
	style := tcell.StyleDefault.Foreground(color).Background(tcell.NewHexColor(0x1d2b22))
	if held {
		style = style.Reverse(true).Bold(true)
	}
	return style
}

// drawPiece рисует монету одним символом, банкноту - заливкой повернутого прямоугольника
func drawPiece(s tcell.Screen, cam *game.Camera, layout Layout, p *world.Piece, held bool) {
	style := pieceStyle(p, held)
	pos := p.Body.Position
	px, py, _ := cam.WorldToScreen(pos)
	cc, cr := PixelToCell(px, py)

	if p.Shape == nil || p.Shape.Bill == nil {
		if inBoard(layout, cc, cr) {
			s.SetContent(cc, cr, '●', nil, style)
		}
		return
	}

	hw, hd := float64(p.Shape.Bill.Width)/2, float64(p.Shape.Bill.Depth)/2
	var quad [4][2]float64
	for i, corner := range [4]mgl64.Vec3{{-hw, 0, -hd}, {hw, 0, -hd}, {hw, 0, hd}, {-hw, 0, hd}} {
		wp := pos.Add(p.Body.Quaternion.Rotate(corner))
		quad[i][0], quad[i][1], _ = cam.WorldToScreen(wp)
	}

	minC, minR, maxC, maxR := cc, cr, cc, cr
	for _, q := range quad {
		c, r := PixelToCell(q[0], q[1])
		minC, maxC = min(minC, c), max(maxC, c)
		minR, maxR = min(minR, r), max(maxR, r)
	}
	for row := minR; row <= maxR; row++ {
		for col := minC; col <= maxC; col++ {
			x, y := CellToPixel(col, row)
			if inBoard(layout, col, row) && insideQuad(quad, x, y) {
				s.SetContent(col, row, '▒', nil, style)
			}
		}
	}

	label := fmt.Sprintf("%d", p.Denomination.Value)
	start := cc - len(label)/2
	for i, r := range label {
		if inBoard(layout, start+i, cr) {
			s.SetContent(start+i, cr, r, nil, style.Bold(true))
		}
	}
}

// insideQuad - точка внутри выпуклого четырехугольника (обход в любую сторону)
func insideQuad(q [4][2]float64, x, y float64) bool {
	var pos, neg bool
	for i := range q {
		a, b := q[i], q[(i+1)%4]
		cross := (b[0]-a[0])*(y-a[1]) - (b[1]-a[1])*(x-a[0])
		if cross > 0 {
			pos = true
		} else if cross < 0 {
			neg = true
		}
	}
	return !(pos && neg)
}

func drawText(s tcell.Screen, col, row int, style tcell.Style, text string) int {
	for _, r := range text {
		s.SetContent(col, row, r, nil, style)
		col++
	}
	return col
}

func drawStatus(s tcell.Screen, t *game.Table, layout Layout, h hud) {
	row := layout.Rows - statusRows
	if row < 0 {
		return
	}

	col := drawText(s, 0, row, styleStatus, fmt.Sprintf(" amount %s  tray %s  paid %s  pieces %d ",
		FormatYen(t.Amount()), FormatYen(t.TrayTotal()), FormatYen(t.PaidTotal()), t.Registry().Size()))
	if t.Running() {
		drawText(s, col, row, styleRunning, "[dropping]")
	}

	row++
	col = drawText(s, 0, row, styleStatus, " ¥ "+h.prompt+"_  ")
	switch {
	case h.notice != "" && h.noticeErr:
		drawText(s, col, row, styleError, h.notice)
	case h.notice != "":
		drawText(s, col, row, styleNotice, h.notice)
	default:
		drawText(s, col, row, styleHint, "digits+Enter drop  click tray  drag move  right-click exchange  p pay  q quit")
	}
}
