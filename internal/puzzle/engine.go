package puzzle

import (
	"errors"
	"sync"
	"time"

	"github.com/architect/chess-trainer/internal/board"
	"go.uber.org/zap"
)

// Feedback is the UI-facing classification of the last event.
type Feedback string

const (
	FeedbackIdle      Feedback = "idle"
	FeedbackCorrect   Feedback = "correct"
	FeedbackIncorrect Feedback = "incorrect"
	FeedbackHint      Feedback = "hint"
)

// Outcome classifies one submitted move.
type Outcome int

const (
	// OutcomeIgnored means the input arrived while validating or after
	// the puzzle was solved; nothing changed.
	OutcomeIgnored Outcome = iota
	// OutcomeIllegal means the move is not legal in the current
	// position; the board silently reverts.
	OutcomeIllegal
	// OutcomeIncorrect means a legal move that does not satisfy the
	// solution; all intermediate progress is discarded.
	OutcomeIncorrect
	// OutcomeIntermediate means a legal move accepted as progress
	// toward the goal without ending the attempt.
	OutcomeIntermediate
	// OutcomeCapture means a multi-target square was captured but
	// uncaptured targets remain.
	OutcomeCapture
	// OutcomeSolved means the puzzle is done.
	OutcomeSolved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeIllegal:
		return "illegal"
	case OutcomeIncorrect:
		return "incorrect"
	case OutcomeIntermediate:
		return "intermediate"
	case OutcomeCapture:
		return "capture"
	case OutcomeSolved:
		return "solved"
	}
	return "unknown"
}

// BoardState is the single authoritative state of the active puzzle
// board. The engine only ever writes it out through OnStateChange; it
// never reads anything back from the renderer.
type BoardState struct {
	Position   board.Position          `json:"position"`
	Feedback   Feedback                `json:"feedback"`
	Validating bool                    `json:"validating"`
	Solved     bool                    `json:"solved"`
	Captured   map[board.Square]bool   `json:"captured,omitempty"`
	PathStep   int                     `json:"path_step"`
	HintShown  bool                    `json:"hint_shown"`
	HintSquare board.Square            `json:"hint_square,omitempty"`
	HintText   string                  `json:"hint_text,omitempty"`
}

// Options configure one engine instance, read at puzzle
// (re)initialization.
type Options struct {
	ShowHints        bool
	EnableAnimations bool
	// StrictValidation disables the distance-based acceptance of
	// intermediate moves in single-target puzzles.
	StrictValidation bool

	FeedbackWindow time.Duration // incorrect feedback auto-clear
	HintWindow     time.Duration // hint overlay auto-hide
	SolvedDelay    time.Duration // delay before OnCorrectMove fires
}

// DefaultOptions returns the presentation defaults used when the host
// does not configure timing.
func DefaultOptions() Options {
	return Options{
		ShowHints:        true,
		EnableAnimations: true,
		FeedbackWindow:   2 * time.Second,
		HintWindow:       3 * time.Second,
		SolvedDelay:      1500 * time.Millisecond,
	}
}

// Callbacks are the engine's host-facing events. They are always invoked
// without internal locks held, so a callback may call back into the
// engine.
type Callbacks struct {
	// OnCorrectMove fires once per puzzle, after the presentation
	// delay, when the puzzle transitions to solved.
	OnCorrectMove func()
	// OnIncorrectMove fires on every incorrect classification with the
	// rejected move in origin+destination notation.
	OnIncorrectMove func(notation string)
	// OnStateChange is the one-way render function.
	OnStateChange func(BoardState)
}

var ErrEngineClosed = errors.New("engine closed")

// Engine owns one puzzle's interactive lifecycle. One instance per
// active puzzle; recreated wholesale when the active puzzle changes.
type Engine struct {
	mu     sync.Mutex
	spec   Spec
	opts   Options
	cb     Callbacks
	log    *zap.Logger
	oracle *board.Oracle

	state    BoardState
	hintUsed bool
	closed   bool

	// gen invalidates pending timers on reset and close so a stale
	// timer can never mutate a replaced state.
	gen    uint64
	timers []*time.Timer
}

// NewEngine builds an engine for one puzzle. The spec is validated and
// the oracle is primed with the starting position.
func NewEngine(spec Spec, opts Options, cb Callbacks, log *zap.Logger) (*Engine, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	oracle, err := board.NewOracle(spec.Start)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.FeedbackWindow <= 0 {
		opts.FeedbackWindow = DefaultOptions().FeedbackWindow
	}
	if opts.HintWindow <= 0 {
		opts.HintWindow = DefaultOptions().HintWindow
	}

	return &Engine{
		spec:   spec,
		opts:   opts,
		cb:     cb,
		log:    log.With(zap.String("puzzle", spec.ID)),
		oracle: oracle,
		state:  freshState(spec.Start),
	}, nil
}

func freshState(start board.Position) BoardState {
	return BoardState{
		Position: start,
		Feedback: FeedbackIdle,
		Captured: make(map[board.Square]bool),
	}
}

// Spec returns the puzzle this engine was built for.
func (e *Engine) Spec() Spec {
	return e.spec
}

// State returns a snapshot of the board state.
func (e *Engine) State() BoardState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() BoardState {
	snap := e.state
	snap.Captured = make(map[board.Square]bool, len(e.state.Captured))
	for sq := range e.state.Captured {
		snap.Captured[sq] = true
	}
	return snap
}

// SubmitMove classifies one user move and advances the state machine.
// Input received while validating or after the puzzle is solved is
// silently ignored.
func (e *Engine) SubmitMove(m board.Move) Outcome {
	e.mu.Lock()
	if e.closed || e.state.Solved || e.state.Validating {
		e.mu.Unlock()
		return OutcomeIgnored
	}

	e.state.Validating = true
	e.state.HintShown = false
	e.state.HintSquare = ""
	e.state.HintText = ""
	// Hiding the overlay must also retire its feedback, or an illegal
	// move would leave hint feedback with nothing on screen.
	if e.state.Feedback == FeedbackHint {
		e.state.Feedback = FeedbackIdle
	}

	var after []func()
	outcome := e.classifyLocked(m, &after)
	e.state.Validating = false

	snap := e.snapshotLocked()
	e.mu.Unlock()

	if e.cb.OnStateChange != nil {
		e.cb.OnStateChange(snap)
	}
	for _, fn := range after {
		fn()
	}
	return outcome
}

func (e *Engine) classifyLocked(m board.Move, after *[]func()) Outcome {
	if !e.oracle.IsLegal(m) {
		e.log.Debug("illegal move rejected", zap.String("move", m.Notation()))
		return OutcomeIllegal
	}

	switch e.spec.Kind {
	case KindMultiTarget:
		if e.uncapturedTarget(m.To) {
			return e.captureLocked(m, after)
		}
		return e.intermediateLocked(m)

	case KindExactMove:
		if movesEqual(m, e.spec.Solution) {
			return e.applyAndSolveLocked(m, after)
		}
		return e.incorrectLocked(m, after)

	case KindSingleTarget:
		if m.To == e.spec.Target {
			return e.applyAndSolveLocked(m, after)
		}
		if !e.opts.StrictValidation && !e.spec.Strict &&
			board.ChebyshevDistance(m.To, e.spec.Target) < board.ChebyshevDistance(m.From, e.spec.Target) {
			return e.intermediateLocked(m)
		}
		return e.incorrectLocked(m, after)
	}

	return e.incorrectLocked(m, after)
}

// movesEqual compares origin and destination exactly. A promotion move
// submitted without a piece defaults to queen, matching the oracle.
func movesEqual(submitted, solution board.Move) bool {
	if submitted.From != solution.From || submitted.To != solution.To {
		return false
	}
	if solution.Promotion == "" {
		return true
	}
	return submitted.Promotion == solution.Promotion ||
		(solution.Promotion == "q" && submitted.Promotion == "")
}

func (e *Engine) uncapturedTarget(sq board.Square) bool {
	if e.state.Captured[sq] {
		return false
	}
	for _, t := range e.spec.Targets {
		if t == sq {
			return true
		}
	}
	return false
}

// captureLocked handles a multi-target capture: apply the move, record
// the target, and either solve or hand the move back to the same side.
func (e *Engine) captureLocked(m board.Move, after *[]func()) Outcome {
	mover := e.oracle.SideToMove()
	if _, err := e.oracle.Apply(m); err != nil {
		return OutcomeIllegal
	}
	e.state.Captured[m.To] = true

	if len(e.state.Captured) == len(e.spec.Targets) {
		return e.solveLocked(after)
	}

	forced, err := e.oracle.ForceSideToMove(mover)
	if err != nil {
		e.log.Error("side-to-move rewrite failed", zap.Error(err))
		forced = e.oracle.Position()
	}
	e.state.Position = forced
	e.state.PathStep++
	// Silent continuation: no feedback change.
	return OutcomeCapture
}

// intermediateLocked accepts a legal move as progress: apply it, hand
// the move back to the same side, and keep the learner playing.
func (e *Engine) intermediateLocked(m board.Move) Outcome {
	mover := e.oracle.SideToMove()
	if _, err := e.oracle.Apply(m); err != nil {
		return OutcomeIllegal
	}
	forced, err := e.oracle.ForceSideToMove(mover)
	if err != nil {
		e.log.Error("side-to-move rewrite failed", zap.Error(err))
		forced = e.oracle.Position()
	}
	e.state.Position = forced
	e.state.PathStep++
	e.state.Feedback = FeedbackIdle
	return OutcomeIntermediate
}

func (e *Engine) applyAndSolveLocked(m board.Move, after *[]func()) Outcome {
	if _, err := e.oracle.Apply(m); err != nil {
		return OutcomeIllegal
	}
	return e.solveLocked(after)
}

// solveLocked marks the puzzle solved. OnCorrectMove is delayed by the
// presentation window so a celebration can play; the delay never blocks
// logic once fired, and animations disabled means no delay at all.
func (e *Engine) solveLocked(after *[]func()) Outcome {
	e.state.Position = e.oracle.Position()
	e.state.Solved = true
	e.state.Feedback = FeedbackCorrect
	e.state.HintShown = false
	e.state.HintSquare = ""
	e.state.HintText = ""

	if cb := e.cb.OnCorrectMove; cb != nil {
		delay := e.opts.SolvedDelay
		if !e.opts.EnableAnimations {
			delay = 0
		}
		if delay <= 0 {
			*after = append(*after, cb)
		} else {
			e.scheduleLocked(delay, cb)
		}
	}
	return OutcomeSolved
}

// incorrectLocked rejects a legal-but-wrong move: the whole attempt is
// discarded and the board reverts to the puzzle's starting position,
// not merely the previous step.
func (e *Engine) incorrectLocked(m board.Move, after *[]func()) Outcome {
	if err := e.oracle.Reset(e.spec.Start); err != nil {
		e.log.Error("revert to start failed", zap.Error(err))
	}
	e.state.Position = e.spec.Start
	e.state.PathStep = 0
	e.state.Feedback = FeedbackIncorrect

	if cb := e.cb.OnIncorrectMove; cb != nil {
		notation := m.Notation()
		*after = append(*after, func() { cb(notation) })
	}

	e.scheduleLocked(e.opts.FeedbackWindow, func() {
		e.mu.Lock()
		changed := false
		if e.state.Feedback == FeedbackIncorrect && !e.state.Solved {
			e.state.Feedback = FeedbackIdle
			changed = true
		}
		snap := e.snapshotLocked()
		e.mu.Unlock()
		if changed && e.cb.OnStateChange != nil {
			e.cb.OnStateChange(snap)
		}
	})
	return OutcomeIncorrect
}

// ShowHint reveals the solution's destination square for the hint
// window. Allowed once per attempt window, only before the puzzle is
// solved, and never for multi-target puzzles. Board state and counters
// are untouched.
func (e *Engine) ShowHint() bool {
	e.mu.Lock()
	if e.closed || !e.opts.ShowHints || e.state.Solved || e.state.Validating ||
		e.hintUsed || e.spec.Kind == KindMultiTarget {
		e.mu.Unlock()
		return false
	}

	e.hintUsed = true
	e.state.HintShown = true
	e.state.HintSquare = e.spec.hintSquare()
	e.state.HintText = e.spec.Hint
	e.state.Feedback = FeedbackHint

	e.scheduleLocked(e.opts.HintWindow, func() {
		e.mu.Lock()
		changed := false
		if e.state.HintShown {
			e.state.HintShown = false
			e.state.HintSquare = ""
			e.state.HintText = ""
			if e.state.Feedback == FeedbackHint {
				e.state.Feedback = FeedbackIdle
			}
			changed = true
		}
		snap := e.snapshotLocked()
		e.mu.Unlock()
		if changed && e.cb.OnStateChange != nil {
			e.cb.OnStateChange(snap)
		}
	})

	snap := e.snapshotLocked()
	e.mu.Unlock()

	if e.cb.OnStateChange != nil {
		e.cb.OnStateChange(snap)
	}
	return true
}

// Reset re-initializes the board to the puzzle's starting position with
// all counters and sets cleared. Available at any time, including after
// the puzzle is solved. Pending timers are cancelled.
func (e *Engine) Reset() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	e.cancelTimersLocked()
	if err := e.oracle.Reset(e.spec.Start); err != nil {
		e.mu.Unlock()
		return err
	}
	e.state = freshState(e.spec.Start)
	e.hintUsed = false
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if e.cb.OnStateChange != nil {
		e.cb.OnStateChange(snap)
	}
	return nil
}

// Close cancels pending timers and makes the engine inert. Called when
// the active puzzle changes.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.cancelTimersLocked()
	e.mu.Unlock()
}

func (e *Engine) cancelTimersLocked() {
	e.gen++
	for _, t := range e.timers {
		t.Stop()
	}
	e.timers = nil
}

// scheduleLocked arms a generation-guarded timer. The callback is
// dropped if the engine was reset or closed before it fires, and the
// timer removes itself from the tracking slice on firing so the slice
// holds only live timers.
func (e *Engine) scheduleLocked(d time.Duration, fn func()) {
	gen := e.gen
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		e.mu.Lock()
		stale := e.closed || e.gen != gen
		e.removeTimerLocked(t)
		e.mu.Unlock()
		if stale {
			return
		}
		fn()
	})
	e.timers = append(e.timers, t)
}

func (e *Engine) removeTimerLocked(t *time.Timer) {
	for i, existing := range e.timers {
		if existing == t {
			e.timers = append(e.timers[:i], e.timers[i+1:]...)
			return
		}
	}
}
