package plan

// Descriptor declares one named operation in a batch.
type Descriptor struct {
	// Type is the unique operation name within the batch.
	Type string
	// DependsOn names the operations that must reach a terminal state before
	// this one starts. Every name must resolve within the same batch.
	DependsOn []string
	// Required marks an operation whose failure aborts its dependents and
	// affects overall run status.
	Required bool
	// EstimatedCost is an advisory weight (e.g. expected request count) for
	// schedulers and progress reporting. Zero means unknown.
	EstimatedCost int
}
