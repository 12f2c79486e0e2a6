package testutil

import (
	"context"
	"image"
	"image/color"
	"sync"
)

// Surface is an auxiliary decode surface that renders a solid frame per seek.
// Gated times block in Seek until the gate is opened.
type Surface struct {
	// IgnoreCancel makes gated seeks wait for their gate even after cancellation.
	IgnoreCancel bool

	mu      sync.Mutex
	gates   map[float64]chan struct{}
	fails   map[float64]error
	seeks   []float64
	sources []string
	current float64
}

func NewSurface() *Surface {
	return &Surface{
		gates: make(map[float64]chan struct{}),
		fails: make(map[float64]error),
	}
}

// Gate makes seeks to t block until the returned func is called.
func (s *Surface) Gate(t float64) (open func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{})
	s.gates[t] = ch

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (s *Surface) FailAt(t float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[t] = err
}

func (s *Surface) Seek(ctx context.Context, source string, t float64) error {
	s.mu.Lock()
	s.seeks = append(s.seeks, t)
	s.sources = append(s.sources, source)
	gate := s.gates[t]
	err := s.fails[t]
	s.mu.Unlock()

	if gate != nil {
		if s.IgnoreCancel {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = t
	s.mu.Unlock()
	return nil
}

func (s *Surface) Frame(context.Context) (image.Image, error) {
	s.mu.Lock()
	t := s.current
	s.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, 320, 180))
	c := color.RGBA{R: uint8(int(t) % 256), G: 64, B: 128, A: 255}
	for y := 0; y < 180; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, c)
		}
	}

	return img, nil
}

func (s *Surface) Seeks() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]float64, len(s.seeks))
	copy(out, s.seeks)
	return out
}

func (s *Surface) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.sources))
	copy(out, s.sources)
	return out
}
