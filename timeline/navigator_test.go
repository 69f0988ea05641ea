package timeline_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
)

func assertCursorInBounds(t *testing.T, n *timeline.Navigator) {
	t.Helper()

	state := n.State()
	if len(state.Events) == 0 {
		assert.Equal(t, 0, state.Cursor)
		return
	}

	assert.GreaterOrEqual(t, state.Cursor, 0)
	assert.Less(t, state.Cursor, len(state.Events))
}

func Test_NewNavigator_StartsEmptyAndLoading(t *testing.T) {
	// act
	n := timeline.NewNavigator()

	// assert
	state := n.State()
	assert.Empty(t, state.Events)
	assert.Equal(t, 0, state.Cursor)
	assert.False(t, state.FilterMode)
	assert.True(t, state.Loading)

	_, ok := n.CurrentEvent()
	assert.False(t, ok)
}

func Test_Navigator_Load_ResetsCursorAndClearsLoading(t *testing.T) {
	// arrange
	n := timeline.NewNavigator()
	n.Load(givenEvents(5))
	n.Next()
	n.Next()

	// act
	n.Load(givenEvents(3))

	// assert
	assert.Equal(t, 0, n.Cursor())
	assert.False(t, n.Loading())
	assert.Len(t, n.Events(), 3)
}

func Test_Navigator_Load_When_Empty_Then_NotLoading(t *testing.T) {
	// arrange
	n := timeline.NewNavigator()

	// act
	n.Load(nil)

	// assert
	assert.False(t, n.Loading())
	assert.Empty(t, n.VisibleEvents())
	assertCursorInBounds(t, n)
}

func Test_Navigator_Next_When_AtLastEvent_Then_NoOp(t *testing.T) {
	// arrange
	n := timeline.NewNavigator()
	n.Load(givenEvents(3))

	// act
	for i := 0; i < 10; i++ {
		n.Next()
		assertCursorInBounds(t, n)
	}

	// assert
	assert.Equal(t, 2, n.Cursor())
}

func Test_Navigator_Previous_When_AtFirstEvent_Then_NoOp(t *testing.T) {
	// arrange
	n := timeline.NewNavigator()
	n.Load(givenEvents(3))

	// act
	n.Previous()

	// assert
	assert.Equal(t, 0, n.Cursor())
}

func Test_Navigator_NextAndPrevious_When_Empty_Then_NoOp(t *testing.T) {
	// arrange
	n := timeline.NewNavigator()
	n.Load(nil)

	// act
	n.Next()
	n.Previous()

	// assert
	assert.Equal(t, 0, n.Cursor())
}

func Test_Navigator_Goto(t *testing.T) {
	// arrange
	n := timeline.NewNavigator()
	n.Load(givenEvents(4))

	// act
	okErr := n.Goto(3)
	tooHighErr := n.Goto(4)
	negativeErr := n.Goto(-1)

	// assert
	assert.NoError(t, okErr)
	assert.ErrorIs(t, tooHighErr, timeline.ErrEventIndexOutOfRange)
	assert.ErrorIs(t, negativeErr, timeline.ErrEventIndexOutOfRange)
	assert.Equal(t, 3, n.Cursor())
}

func Test_Navigator_GotoObjectID(t *testing.T) {
	// arrange
	n := timeline.NewNavigator()
	n.Load(givenEvents(4))

	// act
	err := n.GotoObjectID(int64(3))
	missingErr := n.GotoObjectID("nope")

	// assert
	require.NoError(t, err)
	assert.ErrorIs(t, missingErr, timeline.ErrEventNotFound)
	current, ok := n.CurrentEvent()
	require.True(t, ok)
	assert.Equal(t, "event 3", current.Title)
}

func Test_Navigator_VisibleEvents_When_FilterMode_Then_PrefixUpToCursor(t *testing.T) {
	// arrange
	n := timeline.NewNavigator()
	n.Load(givenEvents(5))
	n.Next()
	n.Next()

	// act
	n.SetFilterMode(true)

	// assert
	visible := n.VisibleEvents()
	assert.Len(t, visible, n.Cursor()+1)
	assert.Equal(t, "event 3", visible[len(visible)-1].Title)
	assert.Equal(t, 2, n.Cursor(), "filter mode never moves the cursor")

	n.SetFilterMode(false)
	assert.Len(t, n.VisibleEvents(), 5)
}

func Test_Navigator_When_ReturnedSlicesAreModified_Then_LoadedEventsStayIntact(t *testing.T) {
	// arrange
	n := timeline.NewNavigator()
	n.Load(givenEvents(3))
	n.SetFilterMode(true)

	var notified timeline.State
	n.Subscribe(func(s timeline.State) { notified = s })
	n.Next()

	// act
	_ = append(n.VisibleEvents(), timeline.Event{Title: "injected"})
	n.Events()[0].Title = "edited"
	n.State().Events[1].Title = "edited"
	notified.Events[2].Title = "edited"

	// assert
	events := n.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "event 1", events[0].Title)
	assert.Equal(t, "event 2", events[1].Title)
	assert.Equal(t, "event 3", events[2].Title)
}

func Test_Navigator_ToggleFilterMode(t *testing.T) {
	// arrange
	n := timeline.NewNavigator()
	n.Load(givenEvents(2))
	n.Next()

	// act + assert
	assert.True(t, n.ToggleFilterMode())
	assert.True(t, n.FilterMode())
	assert.False(t, n.ToggleFilterMode())
	assert.Equal(t, 1, n.Cursor())
}

func Test_Navigator_Subscribe_NotifiesOnChangesOnly(t *testing.T) {
	// arrange
	n := timeline.NewNavigator()
	var observed []timeline.State
	unsubscribe := n.Subscribe(func(s timeline.State) {
		observed = append(observed, s)
	})

	// act
	n.Load(givenEvents(2))
	n.Previous() // no-op at the first event
	n.Next()
	n.Next() // no-op at the last event
	unsubscribe()
	n.Previous()

	// assert
	require.Len(t, observed, 2)
	assert.False(t, observed[0].Loading)
	assert.Equal(t, 0, observed[0].Cursor)
	assert.Equal(t, 1, observed[1].Cursor)
}

func Test_Navigator_IsSafeForConcurrentUse(t *testing.T) {
	// arrange
	n := timeline.NewNavigator()
	n.Load(givenEvents(10))

	// act
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if (i+j)%2 == 0 {
					n.Next()
				} else {
					n.Previous()
				}
				n.ToggleFilterMode()
				_ = n.VisibleEvents()
			}
		}()
	}
	wg.Wait()

	// assert
	assertCursorInBounds(t, n)
}
