package puzzle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrLessonUnavailable wraps fetch failures; the caller should show
	// a "could not load puzzles" state and offer a retry.
	ErrLessonUnavailable = errors.New("could not load puzzles")
	ErrNotLoaded         = errors.New("no lesson loaded")
	ErrNoSuchPuzzle      = errors.New("no such puzzle")
)

// PuzzleStatus pairs a puzzle spec with the learner's progress on it.
type PuzzleStatus struct {
	Spec      Spec `json:"spec"`
	Completed bool `json:"completed"`
	Attempts  int  `json:"attempts"`
}

// LessonData is what a lesson fetch returns: the ordered puzzle list
// with per-puzzle status and the learner's current index (1-based,
// 0 meaning "derive from progress").
type LessonData struct {
	LessonID     string         `json:"lesson_id"`
	Title        string         `json:"title"`
	Puzzles      []PuzzleStatus `json:"puzzles"`
	CurrentIndex int            `json:"current_index"`
}

// LessonService is the remote lesson store seen from the session
// controller. MarkComplete must be idempotent server-side.
type LessonService interface {
	FetchLesson(ctx context.Context, lessonID string) (*LessonData, error)
	MarkComplete(ctx context.Context, lessonID string, puzzleIndex, attempts int) (lessonComplete bool, err error)
}

// SessionCallbacks are the controller's host-facing events.
type SessionCallbacks struct {
	// OnAdvance fires after an auto-advance with the new 1-based index.
	OnAdvance func(index int)
	// OnSessionComplete fires exactly once when every puzzle in the
	// lesson has been completed.
	OnSessionComplete func()
	// OnStateChange is forwarded to each active engine.
	OnStateChange func(BoardState)
	// OnIncorrectMove is forwarded from each active engine.
	OnIncorrectMove func(notation string)
}

const markCompleteTimeout = 10 * time.Second

// Controller sequences a lesson's puzzles: one active engine at a time,
// recreated wholesale on every puzzle switch, plus the completion
// ledger. All writes to the ledger happen through the controller's
// mutex.
type Controller struct {
	mu           sync.Mutex
	svc          LessonService
	opts         Options
	advanceDelay time.Duration
	cb           SessionCallbacks
	log          *zap.Logger

	lessonID       string
	title          string
	puzzles        []Spec
	completed      []bool
	attempts       []int
	current        int // 1-based
	completedCount int
	completeFired  bool

	engine       *Engine
	advanceTimer *time.Timer
	gen          uint64
	loaded       bool
	closed       bool
}

// NewController creates a session controller. Load must be called
// before navigation.
func NewController(svc LessonService, opts Options, advanceDelay time.Duration, cb SessionCallbacks, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		svc:          svc,
		opts:         opts,
		advanceDelay: advanceDelay,
		cb:           cb,
		log:          log.Named("session"),
	}
}

// Load fetches the lesson's ordered puzzle list and completion status
// and activates the learner's current puzzle. Safe to call again after
// a failure (the retry affordance).
func (c *Controller) Load(ctx context.Context, lessonID string) error {
	data, err := c.svc.FetchLesson(ctx, lessonID)
	if err != nil {
		c.log.Error("lesson fetch failed", zap.String("lesson", lessonID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrLessonUnavailable, err)
	}
	if len(data.Puzzles) == 0 {
		return fmt.Errorf("%w: lesson %q has no puzzles", ErrLessonUnavailable, lessonID)
	}
	for _, ps := range data.Puzzles {
		if err := ps.Spec.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrLessonUnavailable, err)
		}
	}

	c.mu.Lock()
	c.gen++
	c.stopAdvanceLocked()
	c.lessonID = data.LessonID
	if c.lessonID == "" {
		c.lessonID = lessonID
	}
	c.title = data.Title
	c.puzzles = make([]Spec, len(data.Puzzles))
	c.completed = make([]bool, len(data.Puzzles))
	c.attempts = make([]int, len(data.Puzzles))
	c.completedCount = 0
	c.completeFired = false
	for i, ps := range data.Puzzles {
		c.puzzles[i] = ps.Spec
		c.completed[i] = ps.Completed
		c.attempts[i] = ps.Attempts
		if ps.Completed {
			c.completedCount++
		}
	}
	c.completeFired = c.completedCount == len(c.puzzles)

	// CurrentIndex on the wire is an ordinal; resolve it to a list
	// position, which can differ once ordinals have gaps.
	c.current = 0
	for i, spec := range c.puzzles {
		if spec.Index == data.CurrentIndex {
			c.current = i + 1
			break
		}
	}
	if c.current == 0 {
		c.current = c.firstUncompletedLocked()
	}
	c.loaded = true

	err = c.activateLocked(c.current)
	c.mu.Unlock()
	return err
}

func (c *Controller) firstUncompletedLocked() int {
	for i, done := range c.completed {
		if !done {
			return i + 1
		}
	}
	return 1
}

// activateLocked replaces the active engine with a fresh one for the
// given puzzle index. The old engine is closed so its pending timers
// can never touch the new board state.
func (c *Controller) activateLocked(index int) error {
	if c.engine != nil {
		c.engine.Close()
		c.engine = nil
	}

	spec := c.puzzles[index-1]
	idx := index
	engine, err := NewEngine(spec, c.opts, Callbacks{
		OnStateChange: c.cb.OnStateChange,
		OnCorrectMove: func() { c.handleSolved(idx) },
		OnIncorrectMove: func(notation string) {
			c.mu.Lock()
			if idx-1 < len(c.attempts) {
				c.attempts[idx-1]++
			}
			c.mu.Unlock()
			c.log.Info("incorrect move",
				zap.Int("puzzle", idx),
				zap.String("move", notation),
			)
			if c.cb.OnIncorrectMove != nil {
				c.cb.OnIncorrectMove(notation)
			}
		},
	}, c.log)
	if err != nil {
		return err
	}
	c.engine = engine
	return nil
}

// handleSolved records a solve: optimistic local completion, idempotent
// fire-and-forget persistence, session-complete signal, auto-advance.
// A transient network failure never un-solves a puzzle locally.
func (c *Controller) handleSolved(index int) {
	c.mu.Lock()
	if c.closed || !c.loaded || index != c.current {
		// Solve signal from a replaced engine; drop it.
		c.mu.Unlock()
		return
	}

	i := index - 1
	c.attempts[i]++ // the solving attempt
	if !c.completed[i] {
		c.completed[i] = true
		c.completedCount++
	}
	attempts := c.attempts[i]
	// The wire protocol identifies puzzles by ordinal, which only
	// matches the list position while ordinals are contiguous.
	ordinal := c.puzzles[i].Index
	lessonID := c.lessonID
	fireComplete := c.completedCount == len(c.puzzles) && !c.completeFired
	if fireComplete {
		c.completeFired = true
	}
	hasNext := index < len(c.puzzles)
	gen := c.gen
	c.mu.Unlock()

	c.log.Info("puzzle solved",
		zap.String("lesson", lessonID),
		zap.Int("puzzle", ordinal),
		zap.Int("attempts", attempts),
	)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), markCompleteTimeout)
		defer cancel()
		if _, err := c.svc.MarkComplete(ctx, lessonID, ordinal, attempts); err != nil {
			c.log.Warn("mark-complete failed",
				zap.String("lesson", lessonID),
				zap.Int("puzzle", ordinal),
				zap.Error(err),
			)
		}
	}()

	if fireComplete && c.cb.OnSessionComplete != nil {
		c.cb.OnSessionComplete()
	}
	if hasNext {
		c.scheduleAdvance(gen, index+1)
	}
}

func (c *Controller) scheduleAdvance(gen uint64, next int) {
	if c.advanceDelay <= 0 {
		c.advanceTo(next)
		return
	}
	c.mu.Lock()
	c.stopAdvanceLocked()
	c.advanceTimer = time.AfterFunc(c.advanceDelay, func() {
		c.mu.Lock()
		stale := c.closed || c.gen != gen
		c.mu.Unlock()
		if stale {
			return
		}
		c.advanceTo(next)
	})
	c.mu.Unlock()
}

func (c *Controller) advanceTo(next int) {
	if err := c.JumpTo(next); err != nil {
		return
	}
	if c.cb.OnAdvance != nil {
		c.cb.OnAdvance(next)
	}
}

func (c *Controller) stopAdvanceLocked() {
	if c.advanceTimer != nil {
		c.advanceTimer.Stop()
		c.advanceTimer = nil
	}
}

// JumpTo activates the puzzle at the given 1-based index. Always
// allowed regardless of completion state; revisiting a completed puzzle
// recreates its board state and never decrements the completed count.
func (c *Controller) JumpTo(index int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrEngineClosed
	}
	if !c.loaded {
		c.mu.Unlock()
		return ErrNotLoaded
	}
	if index < 1 || index > len(c.puzzles) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoSuchPuzzle, index)
	}
	c.gen++
	c.stopAdvanceLocked()
	c.current = index
	err := c.activateLocked(index)
	c.mu.Unlock()
	return err
}

// Next activates the following puzzle.
func (c *Controller) Next() error {
	return c.JumpTo(c.CurrentIndex() + 1)
}

// Previous activates the preceding puzzle.
func (c *Controller) Previous() error {
	return c.JumpTo(c.CurrentIndex() - 1)
}

// Engine returns the active puzzle engine, or nil before Load.
func (c *Controller) Engine() *Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine
}

// CurrentIndex returns the 1-based index of the active puzzle.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Title returns the loaded lesson's title.
func (c *Controller) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// TotalCount returns the number of puzzles in the lesson.
func (c *Controller) TotalCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.puzzles)
}

// CompletedCount returns how many puzzles the learner has completed.
func (c *Controller) CompletedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completedCount
}

// AllComplete reports whether every puzzle in the lesson is done.
func (c *Controller) AllComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.puzzles) > 0 && c.completedCount == len(c.puzzles)
}

// Statuses returns a copy of the per-puzzle progress ledger.
func (c *Controller) Statuses() []PuzzleStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PuzzleStatus, len(c.puzzles))
	for i, spec := range c.puzzles {
		out[i] = PuzzleStatus{Spec: spec, Completed: c.completed[i], Attempts: c.attempts[i]}
	}
	return out
}

// Close shuts down the controller and the active engine; pending
// advance timers are cancelled.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.gen++
	c.stopAdvanceLocked()
	engine := c.engine
	c.engine = nil
	c.mu.Unlock()

	if engine != nil {
		engine.Close()
	}
}
