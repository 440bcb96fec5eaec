// Package flowstate gates the client's steps: record, insights, then a chosen solution.
package flowstate

import (
	"errors"
	"fmt"
	"time"

	audiocapture "craftconnect/internal/client/audio-capture"
	"craftconnect/internal/models"
	"craftconnect/pkg/registry"
)

var (
	ErrInvalidTransition = errors.New("INVALID_TRANSITION")
	ErrInvalidRecording  = errors.New("INVALID_RECORDING")
	ErrUnknownSolution   = errors.New("UNKNOWN_SOLUTION")
	ErrInvalidAnalysis   = errors.New("INVALID_ANALYSIS")
)

// MinRecordingDuration is the shortest recording the flow accepts.
const MinRecordingDuration = 10 * time.Second

type Stage int

const (
	StageIdle Stage = iota
	StageRecorded
	StageAnalyzed
	StageSolutionChosen
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageRecorded:
		return "recorded"
	case StageAnalyzed:
		return "analyzed"
	case StageSolutionChosen:
		return "solution-chosen"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// State is everything the client remembers between commands.
type State struct {
	Recording        *models.AudioRecording   `json:"recording,omitempty"`
	Transcript       string                   `json:"transcript,omitempty"`
	Analysis         *models.BusinessAnalysis `json:"analysis,omitempty"`
	Processed        bool                     `json:"isProcessed"`
	SelectedSolution string                   `json:"selectedSolution,omitempty"`
}

func (s State) HasRecorded() bool {
	return s.Recording != nil && len(s.Recording.Data) > 0
}

func (s State) Stage() Stage {
	switch {
	case s.Processed && s.Analysis != nil && s.SelectedSolution != "":
		return StageSolutionChosen
	case s.Processed && s.Analysis != nil:
		return StageAnalyzed
	case s.HasRecorded():
		return StageRecorded
	default:
		return StageIdle
	}
}

type Event interface {
	eventName() string
}

type RecordingCaptured struct {
	Recording *models.AudioRecording
}

type AnalysisReceived struct {
	Transcript string
	Analysis   models.BusinessAnalysis
}

type SolutionSelected struct {
	SolutionID string
}

type Reset struct{}

func (RecordingCaptured) eventName() string { return "recording-captured" }
func (AnalysisReceived) eventName() string { return "analysis-received" }
func (SolutionSelected) eventName() string { return "solution-selected" }
func (Reset) eventName() string { return "reset" }

// Reduce applies event to state against the built-in solution catalog.
func Reduce(state State, event Event) (State, error) {
	return ReduceWith(registry.Default(), state, event)
}

// ReduceWith is Reduce with an explicit catalog. It never mutates its input.
func ReduceWith(catalog *registry.Catalog, state State, event Event) (State, error) {
	switch e := event.(type) {
	case RecordingCaptured:
		if e.Recording == nil || len(e.Recording.Data) == 0 {
			return state, ErrInvalidRecording
		}
		if err := audiocapture.CheckDuration(e.Recording, MinRecordingDuration); err != nil {
			return state, err
		}
		// A new recording invalidates everything downstream.
		return State{Recording: e.Recording}, nil

	case AnalysisReceived:
		if state.Stage() < StageRecorded {
			return state, fmt.Errorf("%w: analysis before recording", ErrInvalidTransition)
		}
		if err := checkAnalysis(catalog, e.Analysis); err != nil {
			return state, err
		}
		analysis := e.Analysis
		next := state
		next.Transcript = e.Transcript
		next.Analysis = &analysis
		next.Processed = true
		next.SelectedSolution = ""
		return next, nil

	case SolutionSelected:
		if state.Stage() < StageAnalyzed {
			return state, fmt.Errorf("%w: selection before analysis", ErrInvalidTransition)
		}
		if !catalog.IsValid(e.SolutionID) {
			return state, fmt.Errorf("%w: %q", ErrUnknownSolution, e.SolutionID)
		}
		next := state
		next.SelectedSolution = e.SolutionID
		return next, nil

	case Reset:
		return State{}, nil

	default:
		return state, fmt.Errorf("%w: unsupported event %T", ErrInvalidTransition, event)
	}
}

func checkAnalysis(catalog *registry.Catalog, a models.BusinessAnalysis) error {
	primary, secondary := a.RecommendedSolutions.Primary.ID, a.RecommendedSolutions.Secondary.ID
	if !catalog.IsValid(primary) || !catalog.IsValid(secondary) {
		return fmt.Errorf("%w: unknown recommended solution %q/%q", ErrInvalidAnalysis, primary, secondary)
	}
	if primary == secondary {
		return fmt.Errorf("%w: primary and secondary recommendation are both %q", ErrInvalidAnalysis, primary)
	}
	return nil
}
