package hook

import (
	"iter"
	"slices"
)

type entry[H any] struct {
	id       ID
	priority int
	hook     H
}

// Point is an ordered registry of hooks sharing one signature H.
//
// The zero value is an empty, ready-to-use Point. Insert and Remove replace the
// backing slice rather than editing it, so a dispatch already in progress keeps
// iterating the registrations it started with.
type Point[H any] struct {
	entries []entry[H]
}

// Insert registers h at priority and returns its Registration.
//
// The new hook is placed before the first existing hook whose priority is
// greater than priority, so equal priorities run in registration order.
func (p *Point[H]) Insert(h H, priority int) Registration {
	e := entry[H]{id: newID(), priority: priority, hook: h}
	at := len(p.entries)
	for i, cur := range p.entries {
		if cur.priority > priority {
			at = i
			break
		}
	}
	next := make([]entry[H], 0, len(p.entries)+1)
	next = append(next, p.entries[:at]...)
	next = append(next, e)
	next = append(next, p.entries[at:]...)
	p.entries = next
	return Registration{id: e.id, remove: p.Remove}
}

// InsertFinalizer registers h at FinalizerPriority. Finalizers observe the
// final outcome of a dispatch; they are meant for passive consumers such as UI
// or metrics and should always return Allow/Continue.
func (p *Point[H]) InsertFinalizer(h H) Registration {
	return p.Insert(h, FinalizerPriority)
}

// Remove deletes every registration whose id is in ids and reports how many
// were removed.
func (p *Point[H]) Remove(ids ...ID) int {
	if len(ids) == 0 || len(p.entries) == 0 {
		return 0
	}
	next := slices.DeleteFunc(slices.Clone(p.entries), func(e entry[H]) bool {
		return slices.Contains(ids, e.id)
	})
	removed := len(p.entries) - len(next)
	if removed > 0 {
		p.entries = next
	}
	return removed
}

// Len returns the number of registered hooks.
func (p *Point[H]) Len() int {
	return len(p.entries)
}

// All yields (priority, hook) pairs in dispatch order.
func (p *Point[H]) All() iter.Seq2[int, H] {
	entries := p.entries
	return func(yield func(int, H) bool) {
		for _, e := range entries {
			if !yield(e.priority, e.hook) {
				return
			}
		}
	}
}

// Registration is the handle returned by Insert.
type Registration struct {
	id     ID
	remove func(...ID) int
}

// ID returns the registration's identifier.
func (r Registration) ID() ID {
	return r.id
}

// Remove unregisters the hook. Removing twice is harmless.
func (r Registration) Remove() {
	if r.remove != nil {
		r.remove(r.id)
	}
}

// Registrations collects the handles owned by one installer so they can be
// removed together.
type Registrations []Registration

// Add appends regs to the collection.
func (rs *Registrations) Add(regs ...Registration) {
	*rs = append(*rs, regs...)
}

// Len returns the number of held registrations.
func (rs Registrations) Len() int {
	return len(rs)
}

// RemoveAll unregisters every held hook and empties the collection.
func (rs *Registrations) RemoveAll() {
	for _, r := range *rs {
		r.Remove()
	}
	*rs = nil
}
