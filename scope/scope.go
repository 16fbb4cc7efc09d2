// Package scope resolves free names of expressions against an ordered list
// of data sources.
package scope

import (
	"github.com/delaneyj/vox/reactivity"
)

// Source is one layer of a scope chain. HasOwn must not record a
// dependency; Get and Set may.
type Source interface {
	Get(key any) any
	Set(key, value any) bool
	HasOwn(key any) bool
}

var _ Source = (*reactivity.Proxy)(nil)

// Scope is a layered lookup structure. A name resolves to the first source
// owning it and the resolution is memoised until the source list changes.
// Writes to names no source owns go to the first reactive source, so
// assigning an unknown variable creates it there.
type Scope struct {
	sources []Source
	index   map[string]int
}

func New(sources ...Source) *Scope {
	return &Scope{
		sources: append([]Source(nil), sources...),
		index:   map[string]int{},
	}
}

func (s *Scope) Len() int {
	return len(s.sources)
}

func (s *Scope) Source(i int) Source {
	if i < 0 {
		i += len(s.sources)
	}
	if i < 0 || i >= len(s.sources) {
		return nil
	}
	return s.sources[i]
}

// Sources returns a copy of the source list from position from on.
func (s *Scope) Sources(from int) []Source {
	if from >= len(s.sources) {
		return nil
	}
	return append([]Source(nil), s.sources[from:]...)
}

// Splice removes deleteCount sources at i and inserts items there. Every
// memoised resolution is dropped.
func (s *Scope) Splice(i, deleteCount int, items ...Source) []Source {
	i = max(min(i, len(s.sources)), 0)
	deleteCount = max(min(deleteCount, len(s.sources)-i), 0)
	removed := append([]Source(nil), s.sources[i:i+deleteCount]...)
	next := make([]Source, 0, len(s.sources)-deleteCount+len(items))
	next = append(next, s.sources[:i]...)
	next = append(next, items...)
	next = append(next, s.sources[i+deleteCount:]...)
	s.sources = next
	clear(s.index)
	return removed
}

func (s *Scope) Push(items ...Source) {
	s.Splice(len(s.sources), 0, items...)
}

func (s *Scope) Pop() Source {
	if len(s.sources) == 0 {
		return nil
	}
	return s.Splice(len(s.sources)-1, 1)[0]
}

// resolve finds the source for name. With create set, a name nobody owns
// resolves to the first reactive source.
func (s *Scope) resolve(name string, create bool) (int, bool) {
	if i, ok := s.index[name]; ok && i < len(s.sources) {
		return i, true
	}
	for i, src := range s.sources {
		if src.HasOwn(name) {
			s.index[name] = i
			return i, true
		}
	}
	if !create {
		return -1, false
	}
	for i, src := range s.sources {
		if reactivity.IsReactive(src) {
			s.index[name] = i
			return i, true
		}
	}
	return -1, false
}

// Has reports whether any source owns name.
func (s *Scope) Has(name string) bool {
	if _, ok := s.index[name]; ok {
		return true
	}
	for _, src := range s.sources {
		if src.HasOwn(name) {
			return true
		}
	}
	return false
}

// Lookup reads name, reporting false when nothing resolves it.
func (s *Scope) Lookup(name string) (any, bool) {
	i, ok := s.resolve(name, false)
	if !ok {
		return nil, false
	}
	return s.sources[i].Get(name), true
}

func (s *Scope) Get(name string) any {
	v, _ := s.Lookup(name)
	return v
}

// Assign writes name, creating it on the first reactive source when no
// source owns it. It reports false when no source accepted the write.
func (s *Scope) Assign(name string, value any) bool {
	i, ok := s.resolve(name, true)
	if !ok {
		return false
	}
	return s.sources[i].Set(name, value)
}

// Owner returns the source a name currently resolves to.
func (s *Scope) Owner(name string) (Source, bool) {
	i, ok := s.resolve(name, false)
	if !ok {
		return nil, false
	}
	return s.sources[i], true
}
