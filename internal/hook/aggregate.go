package hook

import "iter"

// Aggregate is a read-only view over several Points that yields their hooks
// as one ascending-priority sequence without building a combined list.
type Aggregate[H any] struct {
	points []*Point[H]
}

// Merge returns an Aggregate over points. Nil points are skipped and a point
// passed more than once is visited once.
func Merge[H any](points ...*Point[H]) *Aggregate[H] {
	a := &Aggregate[H]{points: make([]*Point[H], 0, len(points))}
	for _, p := range points {
		if p == nil || a.contains(p) {
			continue
		}
		a.points = append(a.points, p)
	}
	return a
}

func (a *Aggregate[H]) contains(p *Point[H]) bool {
	for _, cur := range a.points {
		if cur == p {
			return true
		}
	}
	return false
}

// Len returns the total number of hooks across all sources.
func (a *Aggregate[H]) Len() int {
	n := 0
	for _, p := range a.points {
		n += p.Len()
	}
	return n
}

// All performs an N-way merge of the sources. On equal priority the source
// passed earlier to Merge goes first; within one source registration order is
// kept.
func (a *Aggregate[H]) All() iter.Seq2[int, H] {
	lists := make([][]entry[H], len(a.points))
	for i, p := range a.points {
		lists[i] = p.entries
	}
	return func(yield func(int, H) bool) {
		cursor := make([]int, len(lists))
		for {
			best := -1
			for i, l := range lists {
				if cursor[i] >= len(l) {
					continue
				}
				if best < 0 || l[cursor[i]].priority < lists[best][cursor[best]].priority {
					best = i
				}
			}
			if best < 0 {
				return
			}
			e := lists[best][cursor[best]]
			cursor[best]++
			if !yield(e.priority, e.hook) {
				return
			}
		}
	}
}
