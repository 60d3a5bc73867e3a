// Package plan resolves a declared set of named operations with dependency
// edges into a staged execution order.
//
// Resolution is a Kahn's-algorithm topological sort grouped into stages:
// every operation in a stage is independent of the others and safe to run
// concurrently, and stages execute strictly in order. Operations with no
// unresolved dependency are ordered by declaration order, so resolution is
// deterministic for a fixed input.
//
//	descriptors := []plan.Descriptor{
//	    {Type: "authenticate", Required: true},
//	    {Type: "get_projects", DependsOn: []string{"authenticate"}, Required: true},
//	    {Type: "get_test_cases", DependsOn: []string{"get_projects"}, Required: true},
//	}
//	p, err := plan.Resolve(descriptors)
package plan
