// Package cascade computes and applies the writes that keep denormalized
// reference sets consistent after a primary mutation.
//
// Planning is pure: a planner takes a snapshot of the documents around the
// mutated one and returns an ordered list of steps. Every step is
// idempotent, so a plan can be re-gathered and re-applied to repair a
// cascade that stopped half way.
package cascade

import (
	"fmt"

	"socialgraph/internal/store"
)

// Op is the kind of write a Step performs.
type Op string

const (
	OpDelete Op = "delete"
	OpPull   Op = "pull"
	OpPush   Op = "push"
)

// Step is one compensating write against a single document.
type Step struct {
	Collection store.Kind `json:"collection"`
	Op         Op         `json:"op"`
	Target     string     `json:"target"`
	Field      string     `json:"field,omitempty"`
	Value      string     `json:"value,omitempty"`
}

func (s Step) String() string {
	if s.Op == OpDelete {
		return fmt.Sprintf("delete %s/%s", s.Collection, s.Target)
	}
	return fmt.Sprintf("%s %s from %s/%s.%s", s.Op, s.Value, s.Collection, s.Target, s.Field)
}

// DocRef names one document.
type DocRef struct {
	Kind store.Kind `json:"kind"`
	ID   string     `json:"id"`
}

// Plan is the ordered list of steps for one mutation.
type Plan struct {
	Operation string `json:"operation"`
	Steps     []Step `json:"steps"`
	// Deleted lists the documents the mutation removes, the primary target
	// included.
	Deleted []DocRef `json:"deleted,omitempty"`
}

// Len returns the number of steps.
func (p Plan) Len() int { return len(p.Steps) }

// Documents returns every document the plan writes to, deleted ones
// included, without duplicates.
func (p Plan) Documents() []DocRef {
	seen := make(map[DocRef]bool)
	var out []DocRef
	add := func(r DocRef) {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	for _, r := range p.Deleted {
		add(r)
	}
	for _, s := range p.Steps {
		add(DocRef{Kind: s.Collection, ID: s.Target})
	}
	return out
}

// builder accumulates steps, dropping duplicates. Writes aimed at a
// document the plan deletes are dropped when the plan is built.
type builder struct {
	plan    Plan
	seen    map[Step]bool
	deleted map[DocRef]bool
}

func newBuilder(operation string) *builder {
	return &builder{
		plan:    Plan{Operation: operation},
		seen:    make(map[Step]bool),
		deleted: make(map[DocRef]bool),
	}
}

func (b *builder) add(s Step) {
	if s.Target == "" || b.seen[s] {
		return
	}
	b.seen[s] = true
	b.plan.Steps = append(b.plan.Steps, s)
}

// root records the primary target of a delete. It is removed by the
// primary write, not by a step.
func (b *builder) root(kind store.Kind, id string) {
	ref := DocRef{Kind: kind, ID: id}
	if !b.deleted[ref] {
		b.deleted[ref] = true
		b.plan.Deleted = append(b.plan.Deleted, ref)
	}
}

func (b *builder) remove(kind store.Kind, id string) {
	b.root(kind, id)
	b.add(Step{Collection: kind, Op: OpDelete, Target: id})
}

func (b *builder) pull(kind store.Kind, target, field, value string) {
	b.add(Step{Collection: kind, Op: OpPull, Target: target, Field: field, Value: value})
}

func (b *builder) push(kind store.Kind, target, field, value string) {
	b.add(Step{Collection: kind, Op: OpPush, Target: target, Field: field, Value: value})
}

func (b *builder) build() Plan {
	steps := b.plan.Steps[:0:0]
	for _, s := range b.plan.Steps {
		if s.Op != OpDelete && b.deleted[DocRef{Kind: s.Collection, ID: s.Target}] {
			continue
		}
		steps = append(steps, s)
	}
	b.plan.Steps = steps
	return b.plan
}
