package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	w, err := Lookup(DefaultID)
	require.NoError(t, err)
	assert.Equal(t, DefaultID, w.ID)

	_, err = Lookup("order_unknown")
	assert.Error(t, err)
}

func TestDefaultWorkflow_Allowed(t *testing.T) {
	w, err := Lookup(DefaultID)
	require.NoError(t, err)

	draft := w.Allowed(StateDraft)
	require.Contains(t, draft, "place")
	require.Contains(t, draft, "cancel")
	assert.Equal(t, StateCompleted, draft["place"].To)
	assert.Equal(t, StateCanceled, draft["cancel"].To)

	assert.Empty(t, w.Allowed(StateCompleted))
	assert.Empty(t, w.Allowed(StateCanceled))
}

func TestFulfillmentWorkflow_Allowed(t *testing.T) {
	w, err := Lookup(FulfillmentID)
	require.NoError(t, err)

	assert.Equal(t, StateFulfillment, w.Allowed(StateDraft)["place"].To)

	fulfillment := w.Allowed(StateFulfillment)
	assert.NotContains(t, fulfillment, "place")
	assert.Contains(t, fulfillment, "fulfill")
	assert.Contains(t, fulfillment, "cancel")

	assert.True(t, w.HasState(StateFulfillment))
	assert.False(t, w.HasState("shipped"))
}
