package assets

import (
	"image"
	"image/color"
)

// AlphaThreshold - пиксель непрозрачен, если альфа больше порога (из 255)
const AlphaThreshold = 8

// Bounds - прямоугольник непрозрачных пикселей, включительно
type Bounds struct {
	MinX   int     `json:"min_x"`
	MinY   int     `json:"min_y"`
	MaxX   int     `json:"max_x"`
	MaxY   int     `json:"max_y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Aspect float64 `json:"aspect"`
}

// Crop - повтор и смещение UV для обрезки прозрачных полей
type Crop struct {
	RepeatU float64 `json:"repeat_u"`
	RepeatV float64 `json:"repeat_v"`
	OffsetU float64 `json:"offset_u"`
	OffsetV float64 `json:"offset_v"`
}

// OpaqueBounds находит границы пикселей с альфой > AlphaThreshold.
// Полностью прозрачная картинка дает границы всего изображения.
func OpaqueBounds(img image.Image) Bounds {
	r := img.Bounds()
	w, h := r.Dx(), r.Dy()
	if w == 0 || h == 0 {
		return Bounds{}
	}

	minX, minY := w, h
	maxX, maxY := -1, -1

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if alphaAt(img, r.Min.X+x, r.Min.Y+y) <= AlphaThreshold {
				continue
			}
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < 0 || maxY < 0 {
		return Bounds{MinX: 0, MinY: 0, MaxX: w - 1, MaxY: h - 1, Width: w, Height: h, Aspect: float64(w) / float64(h)}
	}

	bw := maxX - minX + 1
	bh := maxY - minY + 1
	return Bounds{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY, Width: bw, Height: bh, Aspect: float64(bw) / float64(bh)}
}

func alphaAt(img image.Image, x, y int) uint8 {
	switch m := img.(type) {
	case *image.NRGBA:
		return m.Pix[m.PixOffset(x, y)+3]
	case *image.RGBA:
		return m.Pix[m.PixOffset(x, y)+3]
	}
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA).A
}

// CropFor переводит границы в повтор/смещение текстуры (V растет снизу вверх)
func CropFor(b Bounds, width, height int) Crop {
	if width <= 0 || height <= 0 {
		return Crop{RepeatU: 1, RepeatV: 1}
	}
	uMin := float64(b.MinX) / float64(width)
	uMax := float64(b.MaxX+1) / float64(width)
	vTop := float64(b.MinY) / float64(height)
	vBottom := float64(b.MaxY+1) / float64(height)
	return Crop{
		RepeatU: uMax - uMin,
		RepeatV: vBottom - vTop,
		OffsetU: uMin,
		OffsetV: 1 - vBottom,
	}
}
