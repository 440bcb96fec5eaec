package flowstate

import "craftconnect/pkg/registry"

type Step string

const (
	StepRecord   Step = "record"
	StepInsights Step = "insights"
)

// SolutionStep is the step that shows one catalog solution.
func SolutionStep(id string) Step {
	return Step(id)
}

// Resolve returns step when state allows it, otherwise the furthest step state does allow.
func Resolve(state State, step Step) Step {
	return ResolveWith(registry.Default(), state, step)
}

func ResolveWith(catalog *registry.Catalog, state State, step Step) Step {
	if required, ok := requiredStage(catalog, step); ok && state.Stage() >= required {
		return step
	}
	return FurthestStep(state)
}

func FurthestStep(state State) Step {
	switch state.Stage() {
	case StageSolutionChosen:
		return SolutionStep(state.SelectedSolution)
	case StageAnalyzed:
		return StepInsights
	default:
		return StepRecord
	}
}

func requiredStage(catalog *registry.Catalog, step Step) (Stage, bool) {
	switch step {
	case StepRecord:
		return StageIdle, true
	case StepInsights:
		return StageAnalyzed, true
	}
	if catalog.IsValid(string(step)) {
		return StageAnalyzed, true
	}
	return 0, false
}
