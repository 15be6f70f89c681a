// Package client is the HTTP implementation of the session controller's
// lesson service: JSON over the lesson API with bounded retries.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/architect/chess-trainer/internal/board"
	"github.com/architect/chess-trainer/internal/lessons/models"
	"github.com/architect/chess-trainer/internal/puzzle"
)

// Client talks to a remote lesson service.
type Client struct {
	baseURL    string
	learnerID  uint
	httpClient *http.Client
}

var _ puzzle.LessonService = (*Client)(nil)

// New creates a lesson API client. learnerID identifies the learner to
// the service; zero falls back to the demo learner.
func New(baseURL string, learnerID uint) *Client {
	return &Client{
		baseURL:   baseURL,
		learnerID: learnerID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchLesson loads the ordered puzzle list and completion status for a
// lesson.
func (c *Client) FetchLesson(ctx context.Context, lessonID string) (*puzzle.LessonData, error) {
	endpoint := fmt.Sprintf("%s/api/v1/lessons/%s/puzzles", c.baseURL, url.PathEscape(lessonID))

	resp, err := doWithRetry(ctx, c.httpClient, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		c.authorize(req)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch lesson %q: %w", lessonID, err)
	}
	defer resp.Body.Close()

	var wire models.LessonPuzzlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode lesson %q: %w", lessonID, err)
	}

	data := &puzzle.LessonData{
		LessonID:     wire.LessonID,
		Title:        wire.Title,
		CurrentIndex: wire.CurrentIndex,
		Puzzles:      make([]puzzle.PuzzleStatus, 0, len(wire.Puzzles)),
	}
	for _, p := range wire.Puzzles {
		data.Puzzles = append(data.Puzzles, puzzle.PuzzleStatus{
			Spec:      specFromWire(p),
			Completed: p.Completed,
			Attempts:  p.Attempts,
		})
	}
	return data, nil
}

// MarkComplete records a puzzle completion; idempotent server-side.
func (c *Client) MarkComplete(ctx context.Context, lessonID string, puzzleIndex, attempts int) (bool, error) {
	endpoint := fmt.Sprintf("%s/api/v1/lessons/%s/complete", c.baseURL, url.PathEscape(lessonID))

	payload, err := json.Marshal(models.MarkCompleteRequest{
		PuzzleIndex: puzzleIndex,
		Attempts:    attempts,
	})
	if err != nil {
		return false, err
	}

	resp, err := doWithRetry(ctx, c.httpClient, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		c.authorize(req)
		return req, nil
	})
	if err != nil {
		return false, fmt.Errorf("mark puzzle %d complete: %w", puzzleIndex, err)
	}
	defer resp.Body.Close()

	var wire models.MarkCompleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return false, fmt.Errorf("decode mark-complete response: %w", err)
	}
	return wire.LessonComplete, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.learnerID > 0 {
		req.Header.Set("Authorization", strconv.FormatUint(uint64(c.learnerID), 10))
	}
}

func specFromWire(p models.PuzzleResponse) puzzle.Spec {
	spec := puzzle.Spec{
		ID:          p.ID,
		Index:       p.Index,
		Start:       board.Position(p.Start),
		Kind:        puzzle.SolutionKind(p.Kind),
		Hint:        p.Hint,
		Orientation: board.Side(p.Orientation),
		Strict:      p.Strict,
	}
	switch spec.Kind {
	case puzzle.KindExactMove:
		spec.Solution = board.Move{
			From:      board.Square(p.SolutionFrom),
			To:        board.Square(p.SolutionTo),
			Promotion: p.SolutionProm,
		}
	case puzzle.KindSingleTarget:
		spec.Target = board.Square(p.Target)
	case puzzle.KindMultiTarget:
		for _, t := range p.Targets {
			spec.Targets = append(spec.Targets, board.Square(t))
		}
	}
	return spec
}
