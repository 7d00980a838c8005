package destruction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseAt(t *testing.T) {
	cases := []struct {
		elapsed float64
		want    Phase
	}{
		{0, PhaseInitial},
		{0.099, PhaseInitial},
		{0.1, PhasePropagating},
		{0.49, PhasePropagating},
		{0.5, PhaseCollapsing},
		{1.99, PhaseCollapsing},
		{2, PhaseSettling},
		{4.99, PhaseSettling},
		{5, PhaseComplete},
		{60, PhaseComplete},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, phaseAt(tc.elapsed), "elapsed %v", tc.elapsed)
	}
}

func TestEnumsRoundTripAsText(t *testing.T) {
	type doc struct {
		Type  DestructionType `json:"type"`
		Phase Phase           `json:"phase"`
	}
	data, err := json.Marshal(doc{Type: Melting, Phase: PhaseSettling})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"melting","phase":"settling"}`, string(data))

	var got doc
	require.NoError(t, json.Unmarshal([]byte(`{"type":" Cutting ","phase":"COLLAPSING"}`), &got))
	assert.Equal(t, Cutting, got.Type)
	assert.Equal(t, PhaseCollapsing, got.Phase)

	assert.Error(t, json.Unmarshal([]byte(`{"type":"laser"}`), &got))
	assert.Error(t, json.Unmarshal([]byte(`{"phase":"rubble"}`), &got))
	assert.Equal(t, "destruction(9)", DestructionType(9).String())
	assert.Equal(t, "phase(-1)", Phase(-1).String())
}
