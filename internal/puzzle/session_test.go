package puzzle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/architect/chess-trainer/internal/board"
	"github.com/stretchr/testify/assert"
)

type markCall struct {
	lessonID    string
	puzzleIndex int
	attempts    int
}

// fakeLessonService is an in-memory LessonService that records
// mark-complete calls on a channel.
type fakeLessonService struct {
	mu       sync.Mutex
	data     *LessonData
	fetchErr error
	markErr  error

	marks chan markCall
}

func newFakeService(data *LessonData) *fakeLessonService {
	return &fakeLessonService{
		data:  data,
		marks: make(chan markCall, 32),
	}
}

func (f *fakeLessonService) FetchLesson(_ context.Context, _ string) (*LessonData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	// Return a copy so the controller cannot alias the fixture.
	data := *f.data
	data.Puzzles = append([]PuzzleStatus(nil), f.data.Puzzles...)
	return &data, nil
}

func (f *fakeLessonService) MarkComplete(_ context.Context, lessonID string, puzzleIndex, attempts int) (bool, error) {
	f.mu.Lock()
	err := f.markErr
	f.mu.Unlock()
	f.marks <- markCall{lessonID: lessonID, puzzleIndex: puzzleIndex, attempts: attempts}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (f *fakeLessonService) waitForMark(t *testing.T) markCall {
	t.Helper()
	select {
	case call := <-f.marks:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("mark-complete was never called")
		return markCall{}
	}
}

func lessonWithOrdinals(ordinals ...int) *LessonData {
	data := &LessonData{
		LessonID: "opening-drills",
		Title:    "Opening Drills",
	}
	for _, ord := range ordinals {
		data.Puzzles = append(data.Puzzles, PuzzleStatus{
			Spec: Spec{
				ID:       fmt.Sprintf("p%d", ord),
				Index:    ord,
				Start:    board.StartingPosition,
				Kind:     KindExactMove,
				Solution: board.Move{From: "e2", To: "e4"},
			},
		})
	}
	return data
}

func lessonOf(n int) *LessonData {
	ordinals := make([]int, n)
	for i := range ordinals {
		ordinals[i] = i + 1
	}
	return lessonWithOrdinals(ordinals...)
}

func solveCurrent(t *testing.T, c *Controller) {
	t.Helper()
	outcome := c.Engine().SubmitMove(board.Move{From: "e2", To: "e4"})
	assert.Equal(t, OutcomeSolved, outcome)
}

func TestSession_FetchFailure(t *testing.T) {
	svc := newFakeService(nil)
	svc.fetchErr = errors.New("boom")
	c := NewController(svc, testOptions(), 0, SessionCallbacks{}, nil)
	defer c.Close()

	err := c.Load(context.Background(), "opening-drills")

	assert.ErrorIs(t, err, ErrLessonUnavailable)
	assert.Nil(t, c.Engine())

	// Load is the retry affordance: a later attempt succeeds.
	svc.mu.Lock()
	svc.fetchErr = nil
	svc.data = lessonOf(2)
	svc.mu.Unlock()

	assert.NoError(t, c.Load(context.Background(), "opening-drills"))
	assert.NotNil(t, c.Engine())
	assert.Equal(t, 1, c.CurrentIndex())
	assert.Equal(t, "Opening Drills", c.Title())
	assert.Equal(t, 2, c.TotalCount())
}

func TestSession_NavigationBeforeLoad(t *testing.T) {
	c := NewController(newFakeService(lessonOf(2)), testOptions(), 0, SessionCallbacks{}, nil)
	defer c.Close()

	assert.ErrorIs(t, c.JumpTo(1), ErrNotLoaded)
	assert.ErrorIs(t, c.Next(), ErrNotLoaded)
}

func TestSession_JumpToOutOfRange(t *testing.T) {
	svc := newFakeService(lessonOf(3))
	c := NewController(svc, testOptions(), 0, SessionCallbacks{}, nil)
	defer c.Close()
	assert.NoError(t, c.Load(context.Background(), "opening-drills"))

	assert.ErrorIs(t, c.JumpTo(0), ErrNoSuchPuzzle)
	assert.ErrorIs(t, c.JumpTo(4), ErrNoSuchPuzzle)
	assert.NoError(t, c.JumpTo(3))
	assert.Equal(t, 3, c.CurrentIndex())
}

func TestSession_SolveAdvancesAndPersists(t *testing.T) {
	svc := newFakeService(lessonOf(3))
	var advances []int
	var mu sync.Mutex
	c := NewController(svc, testOptions(), 0, SessionCallbacks{
		OnAdvance: func(index int) {
			mu.Lock()
			advances = append(advances, index)
			mu.Unlock()
		},
	}, nil)
	defer c.Close()
	assert.NoError(t, c.Load(context.Background(), "opening-drills"))

	solveCurrent(t, c)

	// Zero advance delay means the jump happens before SubmitMove
	// returns.
	assert.Equal(t, 2, c.CurrentIndex())
	assert.Equal(t, 1, c.CompletedCount())
	assert.False(t, c.AllComplete())

	call := svc.waitForMark(t)
	assert.Equal(t, "opening-drills", call.lessonID)
	assert.Equal(t, 1, call.puzzleIndex)
	assert.Equal(t, 1, call.attempts)

	mu.Lock()
	assert.Equal(t, []int{2}, advances)
	mu.Unlock()
}

func TestSession_MarkCompleteSendsOrdinalIndex(t *testing.T) {
	// Ordinals with a gap, as left behind by puzzle deletion: list
	// position 2 holds ordinal 3.
	svc := newFakeService(lessonWithOrdinals(1, 3))
	c := NewController(svc, testOptions(), 0, SessionCallbacks{}, nil)
	defer c.Close()
	assert.NoError(t, c.Load(context.Background(), "opening-drills"))

	assert.NoError(t, c.JumpTo(2))
	solveCurrent(t, c)

	call := svc.waitForMark(t)
	assert.Equal(t, 3, call.puzzleIndex)
	assert.Equal(t, 1, call.attempts)
}

func TestSession_ServerOrdinalCurrentIndexResolvesToPosition(t *testing.T) {
	data := lessonWithOrdinals(1, 3)
	data.CurrentIndex = 3
	svc := newFakeService(data)
	c := NewController(svc, testOptions(), 0, SessionCallbacks{}, nil)
	defer c.Close()

	assert.NoError(t, c.Load(context.Background(), "opening-drills"))

	assert.Equal(t, 2, c.CurrentIndex())
	assert.Equal(t, 3, c.Engine().Spec().Index)
}

func TestSession_CompleteFiresExactlyOnce(t *testing.T) {
	svc := newFakeService(lessonOf(3))
	var completeCalls int
	var mu sync.Mutex
	c := NewController(svc, testOptions(), 0, SessionCallbacks{
		OnSessionComplete: func() {
			mu.Lock()
			completeCalls++
			mu.Unlock()
		},
	}, nil)
	defer c.Close()
	assert.NoError(t, c.Load(context.Background(), "opening-drills"))

	for i := 0; i < 3; i++ {
		solveCurrent(t, c)
	}

	assert.True(t, c.AllComplete())
	assert.Equal(t, 3, c.CompletedCount())
	// The last puzzle has no successor, so the session parks there.
	assert.Equal(t, 3, c.CurrentIndex())

	mu.Lock()
	assert.Equal(t, 1, completeCalls)
	mu.Unlock()

	for i := 0; i < 3; i++ {
		svc.waitForMark(t)
	}

	// Re-solving a completed puzzle must not fire the signal again or
	// inflate the completed count.
	assert.NoError(t, c.JumpTo(2))
	solveCurrent(t, c)
	svc.waitForMark(t)

	assert.Equal(t, 3, c.CompletedCount())
	mu.Lock()
	assert.Equal(t, 1, completeCalls)
	mu.Unlock()
}

func TestSession_MarkCompleteFailureKeepsLocalState(t *testing.T) {
	svc := newFakeService(lessonOf(2))
	svc.markErr = errors.New("network down")
	c := NewController(svc, testOptions(), 0, SessionCallbacks{}, nil)
	defer c.Close()
	assert.NoError(t, c.Load(context.Background(), "opening-drills"))

	solveCurrent(t, c)
	svc.waitForMark(t)

	// Optimistic completion: the failed write never rolls back the
	// local ledger.
	assert.Equal(t, 1, c.CompletedCount())
	statuses := c.Statuses()
	assert.True(t, statuses[0].Completed)
}

func TestSession_AttemptsCountIncorrectTries(t *testing.T) {
	svc := newFakeService(lessonOf(1))
	c := NewController(svc, testOptions(), 0, SessionCallbacks{}, nil)
	defer c.Close()
	assert.NoError(t, c.Load(context.Background(), "opening-drills"))

	assert.Equal(t, OutcomeIncorrect, c.Engine().SubmitMove(board.Move{From: "d2", To: "d4"}))
	assert.Equal(t, OutcomeIncorrect, c.Engine().SubmitMove(board.Move{From: "g1", To: "f3"}))
	solveCurrent(t, c)

	call := svc.waitForMark(t)
	assert.Equal(t, 3, call.attempts)
	assert.Equal(t, 3, c.Statuses()[0].Attempts)
}

func TestSession_LoadResumesAtFirstUncompleted(t *testing.T) {
	data := lessonOf(3)
	data.Puzzles[0].Completed = true
	data.Puzzles[0].Attempts = 2
	svc := newFakeService(data)
	c := NewController(svc, testOptions(), 0, SessionCallbacks{}, nil)
	defer c.Close()

	assert.NoError(t, c.Load(context.Background(), "opening-drills"))

	assert.Equal(t, 2, c.CurrentIndex())
	assert.Equal(t, 1, c.CompletedCount())
	statuses := c.Statuses()
	assert.True(t, statuses[0].Completed)
	assert.Equal(t, 2, statuses[0].Attempts)
}

func TestSession_ServerCurrentIndexWins(t *testing.T) {
	data := lessonOf(3)
	data.CurrentIndex = 3
	svc := newFakeService(data)
	c := NewController(svc, testOptions(), 0, SessionCallbacks{}, nil)
	defer c.Close()

	assert.NoError(t, c.Load(context.Background(), "opening-drills"))

	assert.Equal(t, 3, c.CurrentIndex())
}

func TestSession_FullyCompletedLessonDoesNotRefire(t *testing.T) {
	data := lessonOf(2)
	data.Puzzles[0].Completed = true
	data.Puzzles[1].Completed = true
	svc := newFakeService(data)
	var completeCalls int
	var mu sync.Mutex
	c := NewController(svc, testOptions(), 0, SessionCallbacks{
		OnSessionComplete: func() {
			mu.Lock()
			completeCalls++
			mu.Unlock()
		},
	}, nil)
	defer c.Close()

	assert.NoError(t, c.Load(context.Background(), "opening-drills"))
	assert.True(t, c.AllComplete())

	// Re-solving in an already finished lesson stays silent.
	solveCurrent(t, c)
	svc.waitForMark(t)

	mu.Lock()
	assert.Equal(t, 0, completeCalls)
	mu.Unlock()
}

func TestSession_RevisitResetsBoardNotLedger(t *testing.T) {
	svc := newFakeService(lessonOf(2))
	c := NewController(svc, testOptions(), 0, SessionCallbacks{}, nil)
	defer c.Close()
	assert.NoError(t, c.Load(context.Background(), "opening-drills"))

	solveCurrent(t, c)
	svc.waitForMark(t)
	assert.Equal(t, 2, c.CurrentIndex())

	assert.NoError(t, c.Previous())
	assert.Equal(t, 1, c.CurrentIndex())

	// A fresh engine: unsolved board, but the ledger still shows the
	// puzzle completed.
	state := c.Engine().State()
	assert.False(t, state.Solved)
	assert.Equal(t, board.StartingPosition, state.Position)
	assert.True(t, c.Statuses()[0].Completed)
	assert.Equal(t, 1, c.CompletedCount())
}

func TestSession_DelayedAdvanceCancelledByNavigation(t *testing.T) {
	svc := newFakeService(lessonOf(3))
	c := NewController(svc, testOptions(), 50*time.Millisecond, SessionCallbacks{}, nil)
	defer c.Close()
	assert.NoError(t, c.Load(context.Background(), "opening-drills"))

	solveCurrent(t, c)
	svc.waitForMark(t)

	// Manual navigation before the advance timer fires wins; the stale
	// timer must not yank the learner off puzzle 3.
	assert.NoError(t, c.JumpTo(3))
	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, 3, c.CurrentIndex())
}

func TestSession_DelayedAdvanceFires(t *testing.T) {
	svc := newFakeService(lessonOf(2))
	advanced := make(chan int, 1)
	c := NewController(svc, testOptions(), 20*time.Millisecond, SessionCallbacks{
		OnAdvance: func(index int) { advanced <- index },
	}, nil)
	defer c.Close()
	assert.NoError(t, c.Load(context.Background(), "opening-drills"))

	solveCurrent(t, c)
	assert.Equal(t, 1, c.CurrentIndex())

	select {
	case index := <-advanced:
		assert.Equal(t, 2, index)
	case <-time.After(time.Second):
		t.Fatal("auto-advance never fired")
	}
	assert.Equal(t, 2, c.CurrentIndex())
}

func TestSession_CloseStopsEverything(t *testing.T) {
	svc := newFakeService(lessonOf(2))
	c := NewController(svc, testOptions(), 0, SessionCallbacks{}, nil)
	assert.NoError(t, c.Load(context.Background(), "opening-drills"))

	engine := c.Engine()
	c.Close()

	assert.Nil(t, c.Engine())
	assert.Equal(t, OutcomeIgnored, engine.SubmitMove(board.Move{From: "e2", To: "e4"}))
	assert.ErrorIs(t, c.JumpTo(1), ErrEngineClosed)
}
