package flowstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audiocapture "craftconnect/internal/client/audio-capture"
	"craftconnect/internal/models"
)

func testRecording(seconds float64) *models.AudioRecording {
	return &models.AudioRecording{Data: []byte("opus"), MimeType: "audio/webm;codecs=opus", DurationSeconds: seconds}
}

func testAnalysis(primary, secondary string) models.BusinessAnalysis {
	return models.BusinessAnalysis{
		BusinessType:  "Pottery & Ceramics",
		DetectedFocus: "bowls",
		TopProblems:   []string{"No online presence"},
		RecommendedSolutions: models.RecommendedSolutions{
			Primary:   models.Recommendation{ID: primary, Reason: "r1"},
			Secondary: models.Recommendation{ID: secondary, Reason: "r2"},
		},
		Confidence: 88,
	}
}

func mustReduce(t *testing.T, s State, events ...Event) State {
	t.Helper()
	for _, e := range events {
		var err error
		s, err = Reduce(s, e)
		require.NoError(t, err)
	}
	return s
}

func TestReduce_HappyPath(t *testing.T) {
	s := State{}
	assert.Equal(t, StageIdle, s.Stage())

	s = mustReduce(t, s, RecordingCaptured{Recording: testRecording(12)})
	assert.Equal(t, StageRecorded, s.Stage())
	assert.True(t, s.HasRecorded())

	s = mustReduce(t, s, AnalysisReceived{Transcript: "I make pottery in Jaipur", Analysis: testAnalysis("whatsapp", "website")})
	assert.Equal(t, StageAnalyzed, s.Stage())
	assert.True(t, s.Processed)
	assert.Equal(t, "I make pottery in Jaipur", s.Transcript)

	s = mustReduce(t, s, SolutionSelected{SolutionID: "whatsapp"})
	assert.Equal(t, StageSolutionChosen, s.Stage())

	s = mustReduce(t, s, Reset{})
	assert.Equal(t, State{}, s)
}

func TestReduce_NonRecommendedSolutionAllowed(t *testing.T) {
	s := mustReduce(t, State{},
		RecordingCaptured{Recording: testRecording(15)},
		AnalysisReceived{Analysis: testAnalysis("whatsapp", "website")},
		SolutionSelected{SolutionID: "instagram"},
	)
	assert.Equal(t, "instagram", s.SelectedSolution)
}

func TestReduce_Rejections(t *testing.T) {
	recorded := mustReduce(t, State{}, RecordingCaptured{Recording: testRecording(12)})
	analyzed := mustReduce(t, recorded, AnalysisReceived{Analysis: testAnalysis("whatsapp", "website")})

	tests := []struct {
		name     string
		state    State
		event    Event
		expected error
	}{
		{"short recording", State{}, RecordingCaptured{Recording: testRecording(9)}, audiocapture.ErrRecordingTooShort},
		{"nil recording", State{}, RecordingCaptured{}, ErrInvalidRecording},
		{"empty recording", State{}, RecordingCaptured{Recording: &models.AudioRecording{DurationSeconds: 20}}, ErrInvalidRecording},
		{"analysis before recording", State{}, AnalysisReceived{Analysis: testAnalysis("whatsapp", "website")}, ErrInvalidTransition},
		{"duplicate recommendation", recorded, AnalysisReceived{Analysis: testAnalysis("website", "website")}, ErrInvalidAnalysis},
		{"unknown recommendation", recorded, AnalysisReceived{Analysis: testAnalysis("tiktok", "website")}, ErrInvalidAnalysis},
		{"select before analysis", recorded, SolutionSelected{SolutionID: "whatsapp"}, ErrInvalidTransition},
		{"select unknown solution", analyzed, SolutionSelected{SolutionID: "newsletter"}, ErrUnknownSolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Reduce(tt.state, tt.event)
			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, tt.state, next)
		})
	}
}

func TestReduce_NewRecordingClearsDownstream(t *testing.T) {
	s := mustReduce(t, State{},
		RecordingCaptured{Recording: testRecording(12)},
		AnalysisReceived{Transcript: "old", Analysis: testAnalysis("whatsapp", "website")},
		SolutionSelected{SolutionID: "website"},
		RecordingCaptured{Recording: testRecording(20)},
	)

	assert.Equal(t, StageRecorded, s.Stage())
	assert.Nil(t, s.Analysis)
	assert.Empty(t, s.Transcript)
	assert.Empty(t, s.SelectedSolution)
	assert.False(t, s.Processed)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	analyzed := mustReduce(t, State{},
		RecordingCaptured{Recording: testRecording(12)},
		AnalysisReceived{Analysis: testAnalysis("whatsapp", "website")},
	)

	_ = mustReduce(t, analyzed, SolutionSelected{SolutionID: "website"})
	assert.Empty(t, analyzed.SelectedSolution)
}

func TestResolve(t *testing.T) {
	recorded := mustReduce(t, State{}, RecordingCaptured{Recording: testRecording(12)})
	analyzed := mustReduce(t, recorded, AnalysisReceived{Analysis: testAnalysis("whatsapp", "website")})
	chosen := mustReduce(t, analyzed, SolutionSelected{SolutionID: "website"})

	tests := []struct {
		name     string
		state    State
		step     Step
		expected Step
	}{
		{"record always open", State{}, StepRecord, StepRecord},
		{"insights gated when idle", State{}, StepInsights, StepRecord},
		{"insights gated when only recorded", recorded, StepInsights, StepRecord},
		{"insights open once analyzed", analyzed, StepInsights, StepInsights},
		{"solution gated when idle", State{}, SolutionStep("whatsapp"), StepRecord},
		{"solution open once analyzed", analyzed, SolutionStep("instagram"), SolutionStep("instagram")},
		{"unknown step redirects", analyzed, Step("pricing"), StepInsights},
		{"unknown step after choice", chosen, Step("pricing"), SolutionStep("website")},
		{"record open after choice", chosen, StepRecord, StepRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resolve(tt.state, tt.step))
		})
	}
}
