package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "errors"

	pkgerrors "catercal/pkg/errors"
)

func TestPageInfo(t *testing.T) {
	d := newFakeDriver(
		fakePage{rows: []string{"order 1", "order 2"}},
		fakePage{rows: []string{"order 3"}},
	)
	nav := NewNavigator(d, NavigatorConfig{})

	current, total, err := nav.PageInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, current)
	assert.Equal(t, 2, total)
}

func TestRowCount(t *testing.T) {
	d := newFakeDriver(fakePage{rows: []string{"a", "b", "c"}})
	nav := NewNavigator(d, NavigatorConfig{})

	count, err := nav.RowCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRowCountRetriesThenSucceeds(t *testing.T) {
	d := newFakeDriver(fakePage{rows: []string{"a"}})
	d.gridFailures = 2
	nav := NewNavigator(d, NavigatorConfig{})

	count, err := nav.RowCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRowCountStructuralFailure(t *testing.T) {
	d := newFakeDriver(fakePage{rows: []string{"a"}})
	d.gridFailures = 10
	nav := NewNavigator(d, NavigatorConfig{RetryAttempts: 3})

	_, err := nav.RowCount(context.Background())
	require.Error(t, err)

	var stepErr *pkgerrors.StepError
	require.True(t, stderrors.As(err, &stepErr))
	assert.Equal(t, pkgerrors.ErrorTypeStructural, stepErr.Type)
	assert.Equal(t, 3, stepErr.Attempts)
	assert.False(t, stepErr.IsRetryable())
}

func TestAdvance(t *testing.T) {
	d := newFakeDriver(
		fakePage{rows: []string{"order 1"}},
		fakePage{rows: []string{"order 9"}},
	)
	nav := NewNavigator(d, NavigatorConfig{})

	ok, err := nav.Advance(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, d.clicks, pageButtonXPath(2))

	current, _, err := nav.PageInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, current)
}

func TestAdvanceOnLastPageDoesNotClick(t *testing.T) {
	d := newFakeDriver(
		fakePage{rows: []string{"order 1"}},
		fakePage{rows: []string{"order 9"}},
	)
	d.cur = 1 // page 2 of 2
	nav := NewNavigator(d, NavigatorConfig{})

	ok, err := nav.Advance(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, d.clicks)
}

func TestAdvanceFallsBackToSettle(t *testing.T) {
	// Both pages share the same first-row text, so the content diff
	// cannot confirm the transition and the settle fallback fires.
	d := newFakeDriver(
		fakePage{rows: []string{"same text"}},
		fakePage{rows: []string{"same text"}},
	)
	nav := NewNavigator(d, NavigatorConfig{})

	ok, err := nav.Advance(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, d.settles)
}
