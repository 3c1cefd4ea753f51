package mint

// Step names a workflow position.
type Step string

const (
	StepCollectIdentifier Step = "CollectIdentifier"
	StepDeriveIdentifiers Step = "DeriveIdentifiers"
	StepValidateOwnership Step = "ValidateOwnership"
	StepBuildAndAddress   Step = "BuildAndAddress"
	StepSubmitMint        Step = "SubmitMint"
	StepDone              Step = "Done"
)

var stepOrder = []Step{
	StepCollectIdentifier,
	StepDeriveIdentifiers,
	StepValidateOwnership,
	StepBuildAndAddress,
	StepSubmitMint,
	StepDone,
}

// Index returns the 0-based position of the step, or -1 when unknown.
func (s Step) Index() int {
	for i, candidate := range stepOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Terminal reports whether no further operation can advance the workflow.
func (s Step) Terminal() bool {
	return s == StepDone
}

func (s Step) String() string {
	return string(s)
}

