package desim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAmbientContext exercises the package-level Sleep/Now/CreateChannel/
// EndSimulation funcs against whatever Scheduler is installed as
// current, from inside an event body that never receives its own
// EventContext reference for those calls.
func TestAmbientContext(t *testing.T) {
	sched, err := New(WithEndTime(100))
	require.NoError(t, err)
	require.NoError(t, sched.InstallAsCurrent())
	defer sched.ClearCurrent()

	var before, after Time
	var ranToCompletion bool

	e := newFuncEntity()
	ord := e.on("ambient", func(ec *EventContext, args []any) (any, error) {
		v, err := Now()
		require.NoError(t, err)
		before = v

		ch, err := CreateChannel[int]()
		require.NoError(t, err)
		assert.NotNil(t, ch)

		require.NoError(t, Sleep(5))

		v, err = Now()
		require.NoError(t, err)
		after = v

		ranToCompletion = true
		return nil, nil
	})

	require.NoError(t, sched.PostEvent(0, e, ord))
	require.NoError(t, sched.RunToEnd(context.Background()))

	assert.True(t, ranToCompletion)
	assert.Equal(t, Time(0), before)
	assert.Equal(t, Time(5), after)
}

// TestAmbientContextOutsideEventBody verifies the ambient funcs fail
// ErrNoCurrentController when called with no installed controller, or
// with one installed but no event body currently executing.
func TestAmbientContextOutsideEventBody(t *testing.T) {
	_, err := Now()
	require.True(t, errors.Is(err, ErrNoCurrentController))

	sched, err := New()
	require.NoError(t, err)
	require.NoError(t, sched.InstallAsCurrent())
	defer sched.ClearCurrent()

	_, err = Now()
	assert.True(t, errors.Is(err, ErrNoCurrentController))
}

// TestControllerAlreadyInstalled verifies a second InstallAsCurrent call
// fails while another Scheduler occupies the ambient slot.
func TestControllerAlreadyInstalled(t *testing.T) {
	s1, err := New()
	require.NoError(t, err)
	s2, err := New()
	require.NoError(t, err)

	require.NoError(t, s1.InstallAsCurrent())
	defer s1.ClearCurrent()

	err = s2.InstallAsCurrent()
	assert.True(t, errors.Is(err, ErrControllerAlreadyInstalled))

	// ClearCurrent on the scheduler that does NOT hold the slot must not
	// vacate it.
	s2.ClearCurrent()
	err = s2.InstallAsCurrent()
	assert.True(t, errors.Is(err, ErrControllerAlreadyInstalled))
}
