// Command trainer-play runs a lesson interactively against a trainer
// server: moves are read from stdin in origin+destination form and the
// board state is printed after every event.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/architect/chess-trainer/internal/board"
	"github.com/architect/chess-trainer/internal/lessons/client"
	"github.com/architect/chess-trainer/internal/puzzle"
	"github.com/architect/chess-trainer/pkg/config"
	"github.com/architect/chess-trainer/pkg/logger"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "trainer server base URL")
	lessonID := flag.String("lesson", "first-steps", "lesson slug to play")
	learnerID := flag.Uint("learner", 1, "learner ID")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Init(cfg.Server.Env, cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	opts := puzzle.Options{
		ShowHints:        cfg.Trainer.ShowHints,
		EnableAnimations: cfg.Trainer.EnableAnimation,
		FeedbackWindow:   cfg.Trainer.FeedbackWindow,
		HintWindow:       cfg.Trainer.HintWindow,
		SolvedDelay:      cfg.Trainer.SolvedDelay,
	}

	svc := client.New(*serverURL, *learnerID)
	done := make(chan struct{})
	ctrl := puzzle.NewController(svc, opts, cfg.Trainer.AdvanceDelay, puzzle.SessionCallbacks{
		OnStateChange: printState,
		OnAdvance: func(index int) {
			fmt.Printf("-> puzzle %d\n", index)
		},
		OnIncorrectMove: func(notation string) {
			fmt.Printf("incorrect: %s\n", notation)
		},
		OnSessionComplete: func() {
			fmt.Println("lesson complete!")
			close(done)
		},
	}, logger.Named("play"))
	defer ctrl.Close()

	if err := ctrl.Load(context.Background(), *lessonID); err != nil {
		log.Fatalf("Failed to load lesson: %v", err)
	}

	fmt.Printf("%s: %d puzzles, %d done. Enter moves like e2e4; or: hint, reset, next, prev, quit\n",
		ctrl.Title(), ctrl.TotalCount(), ctrl.CompletedCount())
	printState(ctrl.Engine().State())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-done:
			return
		default:
		}

		fmt.Printf("[%d/%d] > ", ctrl.CurrentIndex(), ctrl.TotalCount())
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(strings.ToLower(scanner.Text()))

		switch input {
		case "":
			continue
		case "quit", "exit":
			return
		case "hint":
			if !ctrl.Engine().ShowHint() {
				fmt.Println("no hint available")
			}
		case "reset":
			if err := ctrl.Engine().Reset(); err != nil {
				fmt.Printf("reset failed: %v\n", err)
			}
		case "next":
			if err := ctrl.Next(); err != nil {
				fmt.Printf("cannot advance: %v\n", err)
			} else {
				printState(ctrl.Engine().State())
			}
		case "prev":
			if err := ctrl.Previous(); err != nil {
				fmt.Printf("cannot go back: %v\n", err)
			} else {
				printState(ctrl.Engine().State())
			}
		default:
			move, ok := parseMove(input)
			if !ok {
				fmt.Printf("unrecognized input %q\n", input)
				continue
			}
			outcome := ctrl.Engine().SubmitMove(move)
			fmt.Printf("%s: %s\n", move.Notation(), outcome)
		}
	}
}

func parseMove(s string) (board.Move, bool) {
	if len(s) != 4 && len(s) != 5 {
		return board.Move{}, false
	}
	m := board.Move{
		From: board.Square(s[0:2]),
		To:   board.Square(s[2:4]),
	}
	if len(s) == 5 {
		m.Promotion = s[4:5]
	}
	if !m.From.Valid() || !m.To.Valid() {
		return board.Move{}, false
	}
	return m, true
}

func printState(state puzzle.BoardState) {
	fmt.Printf("  position: %s\n", state.Position)
	if state.Feedback != puzzle.FeedbackIdle {
		fmt.Printf("  feedback: %s\n", state.Feedback)
	}
	if state.HintShown {
		fmt.Printf("  hint: %s (%s)\n", state.HintText, state.HintSquare)
	}
	if len(state.Captured) > 0 {
		squares := make([]string, 0, len(state.Captured))
		for sq := range state.Captured {
			squares = append(squares, string(sq))
		}
		fmt.Printf("  captured: %s\n", strings.Join(squares, ", "))
	}
	if state.Solved {
		fmt.Println("  solved!")
	}
}
