package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"

	"cashpile/backend/internal/money"
)

// ErrAssetLoad - картинка не найдена или не декодируется
var ErrAssetLoad = errors.New("asset load failed")

// State - состояние загрузки
type State int

const (
	StateLoading State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Texture - метаданные одной картинки
type Texture struct {
	File   string `json:"file"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bounds Bounds `json:"bounds"`
	Crop   Crop   `json:"crop"`
}

// Store загружает и хранит метаданные текстур. Безопасен для конкурентного чтения.
type Store struct {
	dir string
	log logrus.FieldLogger

	mu       sync.RWMutex
	state    State
	err      error
	textures map[string]Texture
}

// NewStore создает хранилище для каталога dir
func NewStore(dir string, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		dir:      dir,
		log:      log,
		textures: make(map[string]Texture),
	}
}

// Preload загружает все файлы параллельно. Любая ошибка переводит хранилище в StateFailed.
func (s *Store) Preload(ctx context.Context, files []string) error {
	s.mu.Lock()
	s.state = StateLoading
	s.err = nil
	s.mu.Unlock()

	type result struct {
		tex Texture
		err error
	}
	results := make([]result, len(files))

	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(i int, file string) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return
			}
			tex, err := s.load(file)
			results[i] = result{tex: tex, err: err}
		}(i, file)
	}
	wg.Wait()

	loaded := make(map[string]Texture, len(files))
	var firstErr error
	for i, r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			s.log.WithError(r.err).WithField("file", files[i]).Error("[Assets] texture failed")
			continue
		}
		loaded[r.tex.File] = r.tex
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.textures = loaded
	if firstErr != nil {
		s.state = StateFailed
		s.err = firstErr
		return firstErr
	}
	s.state = StateReady
	s.log.WithField("count", len(loaded)).Info("[Assets] textures ready")
	return nil
}

func (s *Store) load(file string) (Texture, error) {
	f, err := os.Open(filepath.Join(s.dir, file))
	if err != nil {
		return Texture{}, fmt.Errorf("%w: %s: %v", ErrAssetLoad, file, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Texture{}, fmt.Errorf("%w: %s: %v", ErrAssetLoad, file, err)
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	b := OpaqueBounds(img)
	return Texture{
		File:   file,
		Width:  w,
		Height: h,
		Bounds: b,
		Crop:   CropFor(b, w, h),
	}, nil
}

// State возвращает состояние загрузки
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready возвращает true, когда все текстуры загружены
func (s *Store) Ready() bool {
	return s.State() == StateReady
}

// Err возвращает ошибку загрузки
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Texture возвращает метаданные файла
func (s *Store) Texture(file string) (Texture, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.textures[file]
	return t, ok
}

// Textures возвращает копию всех метаданных
func (s *Store) Textures() []Texture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Texture, 0, len(s.textures))
	for _, t := range s.textures {
		out = append(out, t)
	}
	return out
}

// BillAspects - пропорции банкнот по лицевой стороне
func (s *Store) BillAspects(c *money.Catalog) map[int64]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]float64)
	for _, d := range c.All() {
		if !d.IsBill() {
			continue
		}
		if t, ok := s.textures[d.Front]; ok && t.Bounds.Aspect > 0 {
			out[d.Value] = t.Bounds.Aspect
		}
	}
	return out
}
