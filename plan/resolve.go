package plan

import (
	"github.com/google/uuid"
)

// Plan is an ordered sequence of stages, each a set of mutually-independent
// operations. It is built once per run and immutable thereafter.
type Plan struct {
	// ID uniquely identifies this plan and the run report built from it.
	ID string
	// Stages hold descriptors in execution order. Within a stage,
	// descriptors appear in declaration order.
	Stages [][]Descriptor

	index      map[string]int
	dependents map[string][]int
	arena      []Descriptor
}

// Resolve topologically sorts the descriptor set into a staged plan.
// It returns a *GraphError and no plan when the graph has a cycle, a
// dependency names an undeclared operation, a type is declared twice, or a
// required operation transitively depends on a non-required one.
func Resolve(descriptors []Descriptor) (*Plan, error) {
	n := len(descriptors)

	// Arena of descriptors indexed by declaration order; edges as index
	// lists. Integer ids keep the graph cheap to walk and free of pointer
	// cycles.
	index := make(map[string]int, n)
	for i, d := range descriptors {
		if _, dup := index[d.Type]; dup {
			return nil, &GraphError{Kind: KindDuplicate, Operations: []string{d.Type}}
		}
		index[d.Type] = i
	}

	deps := make([][]int, n)       // i depends on deps[i]
	dependents := make([][]int, n) // reverse edges
	inDegree := make([]int, n)

	for i, d := range descriptors {
		for _, depName := range d.DependsOn {
			j, ok := index[depName]
			if !ok {
				return nil, &GraphError{
					Kind:       KindMissingDependency,
					Operations: []string{d.Type},
					Missing:    depName,
				}
			}
			deps[i] = append(deps[i], j)
			dependents[j] = append(dependents[j], i)
			inDegree[i]++
		}
	}

	if err := checkRequiredClosure(descriptors, deps); err != nil {
		return nil, err
	}

	// Kahn's algorithm, grouped into stages. Scanning the arena in index
	// order at every round keeps the output deterministic for a fixed
	// declaration order.
	emitted := make([]bool, n)
	remaining := make([]int, n)
	copy(remaining, inDegree)

	var stages [][]Descriptor
	done := 0

	for done < n {
		var stage []Descriptor
		var stageIdx []int
		for i := 0; i < n; i++ {
			if !emitted[i] && remaining[i] == 0 {
				stage = append(stage, descriptors[i])
				stageIdx = append(stageIdx, i)
			}
		}

		if len(stage) == 0 {
			// Everything left is on or behind a cycle.
			var members []string
			for i := 0; i < n; i++ {
				if !emitted[i] {
					members = append(members, descriptors[i].Type)
				}
			}
			return nil, &GraphError{Kind: KindCycle, Operations: members}
		}

		for _, i := range stageIdx {
			emitted[i] = true
			for _, dep := range dependents[i] {
				remaining[dep]--
			}
		}

		stages = append(stages, stage)
		done += len(stage)
	}

	p := &Plan{
		ID:     uuid.NewString(),
		Stages: stages,
		index:  index,
		arena:  descriptors,
	}
	p.dependents = make(map[string][]int, n)
	for i, d := range descriptors {
		p.dependents[d.Type] = dependents[i]
	}
	return p, nil
}

// checkRequiredClosure rejects plans where a required operation transitively
// depends on a non-required one: skipping the optional dependency would leave
// the required operation silently unrunnable.
func checkRequiredClosure(descriptors []Descriptor, deps [][]int) error {
	for i, d := range descriptors {
		if !d.Required {
			continue
		}

		seen := make([]bool, len(descriptors))
		stack := append([]int(nil), deps[i]...)
		for len(stack) > 0 {
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[j] {
				continue
			}
			seen[j] = true

			if !descriptors[j].Required {
				return &GraphError{
					Kind:       KindRequiredOnOptional,
					Operations: []string{d.Type, descriptors[j].Type},
				}
			}
			stack = append(stack, deps[j]...)
		}
	}
	return nil
}

// Len returns the number of operations in the plan.
func (p *Plan) Len() int {
	return len(p.arena)
}

// Operations returns all descriptors in declaration order.
func (p *Plan) Operations() []Descriptor {
	out := make([]Descriptor, len(p.arena))
	copy(out, p.arena)
	return out
}

// Descriptor returns the descriptor for an operation type.
func (p *Plan) Descriptor(opType string) (Descriptor, bool) {
	i, ok := p.index[opType]
	if !ok {
		return Descriptor{}, false
	}
	return p.arena[i], true
}

// TransitiveDependents returns every operation that directly or indirectly
// depends on opType, in declaration order.
func (p *Plan) TransitiveDependents(opType string) []string {
	start, ok := p.index[opType]
	if !ok {
		return nil
	}

	seen := make([]bool, len(p.arena))
	stack := append([]int(nil), p.dependents[p.arena[start].Type]...)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[i] {
			continue
		}
		seen[i] = true
		stack = append(stack, p.dependents[p.arena[i].Type]...)
	}

	var out []string
	for i, d := range p.arena {
		if seen[i] {
			out = append(out, d.Type)
		}
	}
	return out
}
