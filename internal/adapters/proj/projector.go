package proj

import (
	"fmt"
	"math"
	"sync"

	"github.com/paulmach/orb"
	goproj "github.com/twpayne/go-proj/v10"

	"github.com/samirrijal/rateplan/internal/pkg/geospatial"
)

// Projector implements ports.Projector on the PROJ library and its EPSG
// database. Geographic systems take and return lon/lat.
type Projector struct {
	mu         sync.Mutex
	known      map[int]bool
	transforms map[[2]int]*transform
}

type transform struct {
	mu sync.Mutex
	pj *goproj.PJ
}

// New creates a new Projector.
func New() *Projector {
	return &Projector{
		known:      make(map[int]bool),
		transforms: make(map[[2]int]*transform),
	}
}

// Supports reports whether code names a CRS the projector can transform.
func (p *Projector) Supports(code string) bool {
	n, ok := geospatial.EPSGCode(code)
	return ok && p.supported(n)
}

func (p *Projector) supported(n int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ok, seen := p.known[n]; seen {
		return ok
	}
	pj, err := goproj.New(epsg(n))
	if err == nil {
		pj.Destroy()
	}
	p.known[n] = err == nil
	return err == nil
}

// Projection returns a point transformation from one EPSG code to another.
// Points PROJ cannot transform come back as NaN.
func (p *Projector) Projection(from, to string) (orb.Projection, error) {
	src, err := p.lookup(from)
	if err != nil {
		return nil, err
	}
	dst, err := p.lookup(to)
	if err != nil {
		return nil, err
	}
	t, err := p.transform(src, dst)
	if err != nil {
		return nil, err
	}

	return func(pt orb.Point) orb.Point {
		t.mu.Lock()
		c, err := t.pj.Forward(goproj.NewCoord(pt[0], pt[1], 0, 0))
		t.mu.Unlock()
		if err != nil {
			return orb.Point{math.NaN(), math.NaN()}
		}
		return orb.Point{c.X(), c.Y()}
	}, nil
}

func (p *Projector) transform(src, dst int) (*transform, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := [2]int{src, dst}
	if t, ok := p.transforms[key]; ok {
		return t, nil
	}

	raw, err := goproj.NewCRSToCRS(epsg(src), epsg(dst), nil)
	if err != nil {
		return nil, fmt.Errorf("EPSG:%d to EPSG:%d: %w", src, dst, err)
	}
	defer raw.Destroy()
	pj, err := raw.NormalizeForVisualization()
	if err != nil {
		return nil, fmt.Errorf("EPSG:%d to EPSG:%d: %w", src, dst, err)
	}
	t := &transform{pj: pj}
	p.transforms[key] = t
	return t, nil
}

func (p *Projector) lookup(code string) (int, error) {
	n, ok := geospatial.EPSGCode(code)
	if !ok {
		return 0, fmt.Errorf("%q is not an EPSG code", code)
	}
	if !p.supported(n) {
		return 0, fmt.Errorf("EPSG:%d is not supported", n)
	}
	return n, nil
}

func epsg(n int) string {
	return fmt.Sprintf("EPSG:%d", n)
}
