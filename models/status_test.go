package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusAwaitingPayment, StatusProcessing, true},
		{StatusAwaitingPayment, StatusDelivered, false},
		{StatusAwaitingPayment, StatusCancelled, true},
		{StatusProcessing, StatusDelivered, true},
		{StatusProcessing, StatusCompleted, false},
		{StatusProcessing, StatusCancelled, true},
		{StatusDelivered, StatusDelivered, true},
		{StatusDelivered, StatusCompleted, true},
		{StatusDelivered, StatusCancelled, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusCancelled, StatusProcessing, false},
		{OrderStatus("In Progress"), StatusCancelled, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusAwaitingPayment.IsTerminal())
	assert.False(t, StatusDelivered.IsTerminal())
	assert.False(t, OrderStatus("unknown").IsTerminal())
	assert.False(t, OrderStatus("unknown").Valid())
}

func TestCheckTransition(t *testing.T) {
	assert.NoError(t, CheckTransition(StatusProcessing, StatusDelivered))

	err := CheckTransition(StatusCancelled, StatusCancelled)
	var te *TransitionError
	if assert.True(t, errors.As(err, &te)) {
		assert.Equal(t, StatusCancelled, te.From)
		assert.Equal(t, StatusCancelled, te.To)
	}
}
