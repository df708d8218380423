package reorder

import (
	"fmt"
	"slices"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// Classifier assigns a record to a group. ok=false marks the record fixed:
// it is rendered but never reorderable.
type Classifier[P any] func(Item[P]) (group string, ok bool)

// Entry is one rendered row of a partitioned list.
type Entry[P any] struct {
	Item[P]
	Group string
	Fixed bool
}

// Partition splits one screen's records into independent groups, each with
// its own Session (and therefore its own single-flight guard), plus a set of
// fixed records that never enter any session.
//
// Because each group is a separate Session, a drag can only ever see records
// of its own group; there is no cross-group index arithmetic.
type Partition[P any] struct {
	name     string
	groups   []string
	classify Classifier[P]
	sessions map[string]*Session[P]

	mu    sync.RWMutex
	fixed []Item[P]
	owner map[string]string
}

// NewPartition creates one Session per group. With no groups, a single
// unnamed group holds every record the classifier accepts. A nil classify
// accepts every record into the first group.
func NewPartition[P any](
	name string,
	groups []string,
	classify Classifier[P],
	persisterFor func(group string) Persister[P],
	opts ...Option,
) *Partition[P] {
	if len(groups) == 0 {
		groups = []string{""}
	}
	groups = slices.Clone(groups)
	if classify == nil {
		first := groups[0]
		classify = func(Item[P]) (string, bool) { return first, true }
	}

	sessions := make(map[string]*Session[P], len(groups))
	for _, g := range groups {
		sopts := append(slices.Clone(opts), WithName(qualify(name, g)))
		sessions[g] = NewSession(persisterFor(g), sopts...)
	}

	return &Partition[P]{
		name:     name,
		groups:   groups,
		classify: classify,
		sessions: sessions,
		owner:    map[string]string{},
	}
}

func qualify(name, group string) string {
	if group == "" {
		return name
	}
	return name + "/" + group
}

// Name returns the partition label.
func (p *Partition[P]) Name() string {
	return p.name
}

// Groups returns the group names in render order.
func (p *Partition[P]) Groups() []string {
	return slices.Clone(p.groups)
}

// Reset distributes an authoritative snapshot across the groups. Records of
// undeclared groups become fixed.
func (p *Partition[P]) Reset(items []Item[P]) error {
	buckets := make(map[string][]Item[P], len(p.groups))
	owner := make(map[string]string, len(items))
	var fixed []Item[P]

	for _, it := range items {
		g, ok := p.classify(it)
		if _, declared := p.sessions[g]; !ok || !declared {
			fixed = append(fixed, it)
			continue
		}
		buckets[g] = append(buckets[g], it)
		owner[it.ID] = g
	}

	for _, g := range p.groups {
		if err := p.sessions[g].Reset(buckets[g]); err != nil {
			return fmt.Errorf("reset group %q: %w", g, err)
		}
	}

	p.mu.Lock()
	p.fixed = Sort(fixed)
	p.owner = owner
	p.mu.Unlock()
	return nil
}

// Session returns the session of a group.
func (p *Partition[P]) Session(group string) (*Session[P], bool) {
	s, ok := p.sessions[group]
	return s, ok
}

// SessionFor returns the session that owns id. Fixed and unknown ids have
// none.
func (p *Partition[P]) SessionFor(id string) (*Session[P], bool) {
	p.mu.RLock()
	g, ok := p.owner[id]
	p.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return p.sessions[g], true
}

// Fixed returns the fixed records in comparator order.
func (p *Partition[P]) Fixed() []Item[P] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.fixed)
}

// IsFixed reports whether id is a fixed record.
func (p *Partition[P]) IsFixed(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, it := range p.fixed {
		if it.ID == id {
			return true
		}
	}
	return false
}

// Busy reports whether any group has a commit in flight.
func (p *Partition[P]) Busy() bool {
	for _, s := range p.sessions {
		if s.Busy() {
			return true
		}
	}
	return false
}

// Render returns every record in display order: fixed records first, then
// each group's current order in declaration order.
func (p *Partition[P]) Render() ([]Entry[P], error) {
	var out []Entry[P]
	for _, it := range p.Fixed() {
		out = append(out, Entry[P]{Item: it, Fixed: true})
	}
	labels := make([]string, 0, len(out))
	for _, g := range p.groups {
		for _, it := range p.sessions[g].Order() {
			out = append(out, Entry[P]{Item: it, Group: g})
			labels = append(labels, g)
		}
	}
	if err := CheckContiguous(labels); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckContiguous verifies that each group label forms one contiguous run:
// once a group's block ends, that group never appears again.
func CheckContiguous(labels []string) error {
	closed := mapset.NewThreadUnsafeSet[string]()
	for i, g := range labels {
		if i > 0 && labels[i-1] != g {
			closed.Add(labels[i-1])
		}
		if closed.Contains(g) {
			return &Error{
				Code:    CodeGroupViolation,
				Message: fmt.Sprintf("group %q resumes at position %d", g, i),
			}
		}
	}
	return nil
}
