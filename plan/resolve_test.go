package plan

import (
	"errors"
	"testing"
)

func stageTypes(stage []Descriptor) []string {
	out := make([]string, len(stage))
	for i, d := range stage {
		out[i] = d.Type
	}
	return out
}

func TestResolve_LinearChain(t *testing.T) {
	p, err := Resolve([]Descriptor{
		{Type: "authenticate", Required: true},
		{Type: "get_projects", DependsOn: []string{"authenticate"}, Required: true},
		{Type: "get_test_cases", DependsOn: []string{"get_projects"}, Required: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(p.Stages) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(p.Stages))
	}
	want := []string{"authenticate", "get_projects", "get_test_cases"}
	for i, w := range want {
		if got := p.Stages[i][0].Type; got != w {
			t.Errorf("stage %d: expected %s, got %s", i, w, got)
		}
	}
	if p.ID == "" {
		t.Error("expected a plan id")
	}
}

func TestResolve_IndependentOperationsShareStage(t *testing.T) {
	p, err := Resolve([]Descriptor{
		{Type: "authenticate", Required: true},
		{Type: "get_projects", DependsOn: []string{"authenticate"}, Required: true},
		{Type: "get_users", DependsOn: []string{"authenticate"}, Required: true},
		{Type: "get_test_cases", DependsOn: []string{"get_projects"}, Required: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(p.Stages) != 3 {
		t.Fatalf("expected 3 stages, got %d: %v", len(p.Stages), p.Stages)
	}

	stage1 := stageTypes(p.Stages[1])
	if len(stage1) != 2 || stage1[0] != "get_projects" || stage1[1] != "get_users" {
		t.Errorf("expected stage 1 = [get_projects get_users] in declaration order, got %v", stage1)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	descriptors := []Descriptor{
		{Type: "c"},
		{Type: "a"},
		{Type: "b"},
	}

	for run := 0; run < 5; run++ {
		p, err := Resolve(descriptors)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := stageTypes(p.Stages[0])
		if got[0] != "c" || got[1] != "a" || got[2] != "b" {
			t.Fatalf("run %d: expected declaration order [c a b], got %v", run, got)
		}
	}
}

func TestResolve_EveryOperationAfterItsDependencies(t *testing.T) {
	p, err := Resolve([]Descriptor{
		{Type: "e", DependsOn: []string{"c", "d"}},
		{Type: "d", DependsOn: []string{"b"}},
		{Type: "c", DependsOn: []string{"a"}},
		{Type: "b", DependsOn: []string{"a"}},
		{Type: "a"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	position := make(map[string]int)
	for stageIdx, stage := range p.Stages {
		for _, d := range stage {
			position[d.Type] = stageIdx
		}
	}

	for _, d := range p.Operations() {
		for _, dep := range d.DependsOn {
			if position[dep] >= position[d.Type] {
				t.Errorf("%s (stage %d) not after dependency %s (stage %d)",
					d.Type, position[d.Type], dep, position[dep])
			}
		}
	}
}

func TestResolve_CycleFails(t *testing.T) {
	p, err := Resolve([]Descriptor{
		{Type: "a", DependsOn: []string{"c"}},
		{Type: "b", DependsOn: []string{"a"}},
		{Type: "c", DependsOn: []string{"b"}},
	})
	if p != nil {
		t.Error("expected no partial plan")
	}

	var graphErr *GraphError
	if !errors.As(err, &graphErr) {
		t.Fatalf("expected GraphError, got %v", err)
	}
	if graphErr.Kind != KindCycle {
		t.Errorf("expected cycle kind, got %s", graphErr.Kind)
	}
	if len(graphErr.Operations) != 3 {
		t.Errorf("expected all cycle members named, got %v", graphErr.Operations)
	}
}

func TestResolve_SelfDependencyFails(t *testing.T) {
	_, err := Resolve([]Descriptor{
		{Type: "a", DependsOn: []string{"a"}},
	})

	var graphErr *GraphError
	if !errors.As(err, &graphErr) || graphErr.Kind != KindCycle {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestResolve_MissingDependencyFails(t *testing.T) {
	p, err := Resolve([]Descriptor{
		{Type: "get_projects", DependsOn: []string{"authenticate"}},
	})
	if p != nil {
		t.Error("expected no partial plan")
	}

	var graphErr *GraphError
	if !errors.As(err, &graphErr) {
		t.Fatalf("expected GraphError, got %v", err)
	}
	if graphErr.Kind != KindMissingDependency {
		t.Errorf("expected missing-dependency kind, got %s", graphErr.Kind)
	}
	if graphErr.Missing != "authenticate" {
		t.Errorf("expected missing node named, got %q", graphErr.Missing)
	}
}

func TestResolve_DuplicateTypeFails(t *testing.T) {
	_, err := Resolve([]Descriptor{
		{Type: "a"},
		{Type: "a"},
	})

	var graphErr *GraphError
	if !errors.As(err, &graphErr) || graphErr.Kind != KindDuplicate {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestResolve_RequiredOnOptionalFails(t *testing.T) {
	_, err := Resolve([]Descriptor{
		{Type: "optional_setup", Required: false},
		{Type: "middle", DependsOn: []string{"optional_setup"}, Required: true},
	})

	var graphErr *GraphError
	if !errors.As(err, &graphErr) || graphErr.Kind != KindRequiredOnOptional {
		t.Fatalf("expected required-on-optional error, got %v", err)
	}
}

func TestResolve_RequiredOnOptionalTransitiveFails(t *testing.T) {
	_, err := Resolve([]Descriptor{
		{Type: "optional_root", Required: false},
		{Type: "link", DependsOn: []string{"optional_root"}, Required: false},
		{Type: "critical", DependsOn: []string{"link"}, Required: true},
	})

	var graphErr *GraphError
	if !errors.As(err, &graphErr) || graphErr.Kind != KindRequiredOnOptional {
		t.Fatalf("expected required-on-optional error through the chain, got %v", err)
	}
}

func TestResolve_OptionalOnRequiredAllowed(t *testing.T) {
	_, err := Resolve([]Descriptor{
		{Type: "authenticate", Required: true},
		{Type: "optional_extra", DependsOn: []string{"authenticate"}, Required: false},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolve_EmptySet(t *testing.T) {
	p, err := Resolve(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Len() != 0 || len(p.Stages) != 0 {
		t.Errorf("expected empty plan, got %d ops in %d stages", p.Len(), len(p.Stages))
	}
}

func TestPlan_TransitiveDependents(t *testing.T) {
	p, err := Resolve([]Descriptor{
		{Type: "authenticate", Required: true},
		{Type: "get_projects", DependsOn: []string{"authenticate"}, Required: true},
		{Type: "get_test_cases", DependsOn: []string{"get_projects"}, Required: true},
		{Type: "get_users", DependsOn: []string{"authenticate"}, Required: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deps := p.TransitiveDependents("get_projects")
	if len(deps) != 1 || deps[0] != "get_test_cases" {
		t.Errorf("expected [get_test_cases], got %v", deps)
	}

	deps = p.TransitiveDependents("authenticate")
	if len(deps) != 3 {
		t.Errorf("expected all three dependents, got %v", deps)
	}

	if got := p.TransitiveDependents("get_test_cases"); len(got) != 0 {
		t.Errorf("expected no dependents, got %v", got)
	}
}

func TestPlan_Descriptor(t *testing.T) {
	p, err := Resolve([]Descriptor{
		{Type: "authenticate", Required: true, EstimatedCost: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, ok := p.Descriptor("authenticate")
	if !ok || !d.Required || d.EstimatedCost != 1 {
		t.Errorf("unexpected descriptor: %+v (ok=%v)", d, ok)
	}

	if _, ok := p.Descriptor("nope"); ok {
		t.Error("expected lookup miss")
	}
}
