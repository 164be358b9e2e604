package emotion

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dist(pairs ...any) Distribution {
	d := make(Distribution, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		d = append(d, Score{Label: pairs[i].(Label), Probability: pairs[i+1].(float64)})
	}
	return d
}

func TestSelect_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		in   Distribution
		want Label
	}{
		{
			name: "neutral by arg-max",
			in:   dist(Neutral, 0.4, Happy, 0.3, Sad, 0.1, Angry, 0.1, Fearful, 0.1, Surprised, 0.0),
			want: Neutral,
		},
		{
			name: "angry override beats higher neutral",
			in:   dist(Neutral, 0.5, Happy, 0.1, Sad, 0.1, Angry, 0.29, Fearful, 0.0, Surprised, 0.0),
			want: Angry,
		},
		{
			name: "fearful checked before angry",
			in:   dist(Neutral, 0.1, Happy, 0.1, Sad, 0.1, Angry, 0.3, Fearful, 0.31, Surprised, 0.18),
			want: Fearful,
		},
		{
			name: "surprised by arg-max",
			in:   dist(Neutral, 0.25, Happy, 0.25, Sad, 0.0, Angry, 0.0, Fearful, 0.0, Surprised, 0.5),
			want: Surprised,
		},
		{
			name: "fearful override beats dominant happy",
			in:   dist(Neutral, 0.0, Happy, 0.7, Fearful, 0.26),
			want: Fearful,
		},
		{
			name: "single entry",
			in:   dist(Sad, 0.01),
			want: Sad,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect_ThresholdIsStrict(t *testing.T) {
	tests := []struct {
		name string
		in   Distribution
		want Label
	}{
		{
			name: "fearful at exactly 0.25",
			in:   dist(Neutral, 0.5, Fearful, 0.25, Angry, 0.0),
			want: Neutral,
		},
		{
			name: "angry at exactly 0.25",
			in:   dist(Neutral, 0.5, Fearful, 0.0, Angry, 0.25),
			want: Neutral,
		},
		{
			name: "both at exactly 0.25",
			in:   dist(Happy, 0.3, Angry, 0.25, Fearful, 0.25),
			want: Happy,
		},
		{
			name: "fearful at 0.25 angry just above",
			in:   dist(Happy, 0.4, Fearful, 0.25, Angry, 0.2501),
			want: Angry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect_TieBreakFirstSeenWins(t *testing.T) {
	t.Run("all equal", func(t *testing.T) {
		in := dist(Sad, 0.2, Happy, 0.2, Neutral, 0.2, Surprised, 0.2, Disgusted, 0.2)
		got, err := Select(in)
		require.NoError(t, err)
		assert.Equal(t, Sad, got)
	})

	t.Run("tie for max after smaller first entry", func(t *testing.T) {
		in := dist(Neutral, 0.1, Surprised, 0.45, Happy, 0.45)
		got, err := Select(in)
		require.NoError(t, err)
		assert.Equal(t, Surprised, got)
	})

	t.Run("reordering changes the tie winner", func(t *testing.T) {
		a, err := Select(dist(Happy, 0.5, Neutral, 0.5))
		require.NoError(t, err)
		b, err := Select(dist(Neutral, 0.5, Happy, 0.5))
		require.NoError(t, err)
		assert.Equal(t, Happy, a)
		assert.Equal(t, Neutral, b)
	})
}

func TestSelect_EmptyDistribution(t *testing.T) {
	for _, in := range []Distribution{nil, {}} {
		got, err := Select(in)
		require.Error(t, err)
		assert.Empty(t, got)
		assert.True(t, errors.Is(err, ErrInvalidInput))

		var invalid *InvalidInputError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, "empty distribution", invalid.Reason)
	}
}

func TestSelect_VocabularyAgnostic(t *testing.T) {
	in := dist(Label("contempt"), 0.6, Neutral, 0.3, Label("bored"), 0.1)
	got, err := Select(in)
	require.NoError(t, err)
	assert.Equal(t, Label("contempt"), got)
}

func TestSelect_OverrideLabelsAbsent(t *testing.T) {
	in := dist(Happy, 0.2, Sad, 0.8)
	got, err := Select(in)
	require.NoError(t, err)
	assert.Equal(t, Sad, got)
}

func TestSelect_ResultAlwaysFromInput(t *testing.T) {
	inputs := []Distribution{
		dist(Happy, 0.1),
		dist(Label("x"), 0.9, Label("y"), 0.1),
		dist(Angry, 0.9),
		dist(Fearful, 0.3, Label("z"), 0.7),
		dist(Neutral, math.NaN(), Sad, 0.1),
	}
	for _, in := range inputs {
		got, err := Select(in)
		require.NoError(t, err)
		_, ok := in.Get(got)
		assert.True(t, ok, "label %q not in %v", got, in.Labels())
	}
}

func TestSelect_NaNNeverReplacesSeed(t *testing.T) {
	got, err := Select(dist(Happy, 0.1, Sad, math.NaN(), Neutral, 0.05))
	require.NoError(t, err)
	assert.Equal(t, Happy, got)
}

func TestSelect_Idempotent(t *testing.T) {
	in := dist(Neutral, 0.3, Happy, 0.3, Angry, 0.2, Fearful, 0.2)
	first, err := Select(in)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		got, err := Select(in)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
	assert.Equal(t, dist(Neutral, 0.3, Happy, 0.3, Angry, 0.2, Fearful, 0.2), in, "input must not be mutated")
}

func TestPolicy_CustomOverrides(t *testing.T) {
	p := Policy{Overrides: []Override{{Label: Sad, Threshold: 0.1}}}

	got, err := p.Select(dist(Happy, 0.8, Sad, 0.15))
	require.NoError(t, err)
	assert.Equal(t, Sad, got)

	got, err = Policy{}.Select(dist(Happy, 0.8, Sad, 0.15, Fearful, 0.9))
	require.NoError(t, err)
	assert.Equal(t, Fearful, got)
}

func TestSelect_FromJSONKeepsModelOrder(t *testing.T) {
	var d Distribution
	require.NoError(t, json.Unmarshal([]byte(`{"surprised":0.4,"neutral":0.4,"happy":0.2}`), &d))

	got, err := Select(d)
	require.NoError(t, err)
	assert.Equal(t, Surprised, got)
}
