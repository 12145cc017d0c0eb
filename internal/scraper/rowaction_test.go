package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "errors"

	pkgerrors "catercal/pkg/errors"
)

const minimalPopup = `<div id="ordercopy"><div>ATG Order ID: 12345</div></div>`

func TestOpenRowDetail(t *testing.T) {
	d := newFakeDriver(fakePage{
		rows:   []string{"order 1"},
		popups: map[int]string{1: minimalPopup},
	})
	rows := NewRowActions(d, RowActionsConfig{})

	err := rows.OpenRowDetail(context.Background(), 1, "View Order Text")
	require.NoError(t, err)
	assert.True(t, d.popupOpen)
	assert.Zero(t, d.escapes)
}

func TestOpenRowDetailRetriesWithEscapeRecovery(t *testing.T) {
	d := newFakeDriver(fakePage{
		rows:   []string{"order 1"},
		popups: map[int]string{1: minimalPopup},
	})
	d.actionFailures[1] = 2
	rows := NewRowActions(d, RowActionsConfig{})

	err := rows.OpenRowDetail(context.Background(), 1, "View Order Text")
	require.NoError(t, err)
	assert.True(t, d.popupOpen)
	// One escape per recovery between the two failed attempts
	assert.Equal(t, 2, d.escapes)
}

func TestOpenRowDetailGivesUpAfterBudget(t *testing.T) {
	d := newFakeDriver(fakePage{
		rows:   []string{"order 1"},
		popups: map[int]string{1: minimalPopup},
	})
	d.actionFailures[1] = 3
	rows := NewRowActions(d, RowActionsConfig{MaxAttempts: 3})

	err := rows.OpenRowDetail(context.Background(), 1, "View Order Text")
	require.Error(t, err)
	assert.False(t, d.popupOpen)

	var stepErr *pkgerrors.StepError
	require.True(t, stderrors.As(err, &stepErr))
	assert.Equal(t, pkgerrors.ErrorTypeUI, stepErr.Type)
	assert.True(t, stepErr.IsRetryable())
}

func TestCloseDetailWithCloseButton(t *testing.T) {
	d := newFakeDriver(fakePage{rows: []string{"order 1"}})
	d.popupOpen = true
	d.hasCloseButton = true
	rows := NewRowActions(d, RowActionsConfig{})

	rows.CloseDetail(context.Background())
	assert.False(t, d.popupOpen)
	assert.Zero(t, d.escapes)
}

func TestCloseDetailFallsBackToEscape(t *testing.T) {
	d := newFakeDriver(fakePage{rows: []string{"order 1"}})
	d.popupOpen = true
	d.hasCloseButton = false
	rows := NewRowActions(d, RowActionsConfig{})

	rows.CloseDetail(context.Background())
	assert.False(t, d.popupOpen)
	assert.Equal(t, 1, d.escapes)
}

func TestCloseDetailNoPopupIsSuccess(t *testing.T) {
	d := newFakeDriver(fakePage{rows: []string{"order 1"}})
	d.popupOpen = false
	rows := NewRowActions(d, RowActionsConfig{})

	rows.CloseDetail(context.Background())
	assert.False(t, d.popupOpen)
}
