package osm

import "iter"

// Point returns the point with the given identifier. If several points share
// the identifier, the first one in source order is returned.
func (d *Document) Point(id string) (Point, bool) {
	if d.index != nil {
		i, ok := d.index[id]
		if !ok {
			return Point{}, false
		}
		return d.Points[i], true
	}

	for _, p := range d.Points {
		if p.ID == id {
			return p, true
		}
	}

	return Point{}, false
}

// PointsOf returns a sequence with one element per point reference of p, in
// order. A reference that can not be resolved yields a zero Point together
// with a *DanglingReferenceError and the sequence continues with the next
// reference. The sequence may be iterated any number of times.
func (d *Document) PointsOf(p Path) iter.Seq2[Point, error] {
	return func(yield func(Point, error) bool) {
		for _, ref := range p.PointRefs {
			pt, ok := d.Point(ref)
			if !ok {
				if !yield(Point{}, &DanglingReferenceError{PathID: p.ID, Ref: ref}) {
					return
				}
				continue
			}

			if !yield(pt, nil) {
				return
			}
		}
	}
}

type resolveOptions struct {
	skipDangling bool
}

type ResolveOption func(*resolveOptions)

// SkipDanglingReferences makes Resolve leave out references that can not be
// resolved instead of failing.
func SkipDanglingReferences() ResolveOption {
	return func(o *resolveOptions) {
		o.skipDangling = true
	}
}

// Resolve returns the points traversed by p. Unless SkipDanglingReferences
// is given, the first dangling reference aborts resolution and is returned
// as a *DanglingReferenceError.
func (d *Document) Resolve(p Path, opts ...ResolveOption) ([]Point, error) {
	o := resolveOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	points := make([]Point, 0, len(p.PointRefs))

	for pt, err := range d.PointsOf(p) {
		if err != nil {
			if o.skipDangling {
				continue
			}
			return nil, err
		}
		points = append(points, pt)
	}

	return points, nil
}
