// Package engineservice wraps a UCI chess engine process and scores the
// position reached at the end of the opening phase of each game.
package engineservice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Score is a raw engine score, relative to the side to move. Exactly
// one of CP and Mate is set.
type Score struct {
	CP   *int
	Mate *int
	Best string
}

// Limit bounds a single evaluation.
type Limit struct {
	Depth    int
	MoveTime time.Duration
	UseDepth bool
}

// UCIEngine speaks the UCI protocol to an engine subprocess over
// stdin/stdout. A single engine handles one search at a time.
type UCIEngine struct {
	cmd   *exec.Cmd
	in    *bufio.Writer
	out   *bufio.Scanner
	mu    sync.Mutex
	ready bool
}

// NewUCIEngine starts the engine binary and performs the uci/isready
// handshake.
func NewUCIEngine(path string) (*UCIEngine, error) {
	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	e := &UCIEngine{
		cmd: cmd,
		in:  bufio.NewWriter(stdin),
		out: bufio.NewScanner(stdout),
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine %s: %w", path, err)
	}

	if err := e.send("uci"); err != nil {
		return nil, err
	}
	for e.out.Scan() {
		if e.out.Text() == "uciok" {
			break
		}
	}
	if err := e.send("setoption name Threads value 1"); err != nil {
		return nil, err
	}
	if err := e.send("setoption name Hash value 16"); err != nil {
		return nil, err
	}
	if err := e.awaitReady(); err != nil {
		return nil, err
	}
	e.ready = true
	return e, nil
}

// Close asks the engine to quit and reaps the process.
func (e *UCIEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.send("quit")
	return e.cmd.Wait()
}

// NewGame resets the engine state between games.
func (e *UCIEngine) NewGame() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return errors.New("engine not ready")
	}
	if err := e.send("ucinewgame"); err != nil {
		return err
	}
	return e.awaitReady()
}

// EvalFEN evaluates one position and returns the last score reported
// before bestmove. Context cancellation stops the search.
func (e *UCIEngine) EvalFEN(ctx context.Context, fen string, limit Limit) (Score, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return Score{}, errors.New("engine not ready")
	}

	if err := e.send(fmt.Sprintf("position fen %s", fen)); err != nil {
		return Score{}, err
	}

	if limit.UseDepth {
		depth := limit.Depth
		if depth <= 0 {
			depth = 12
		}
		if err := e.send(fmt.Sprintf("go depth %d", depth)); err != nil {
			return Score{}, err
		}
	} else {
		if err := e.send(fmt.Sprintf("go movetime %d", limit.MoveTime.Milliseconds())); err != nil {
			return Score{}, err
		}
	}

	var score Score
	readDone := make(chan error, 1)
	go func() {
		for e.out.Scan() {
			line := e.out.Text()
			switch {
			case strings.HasPrefix(line, "info "):
				if i := strings.Index(line, " score "); i != -1 {
					scorePart := line[i+1:]
					if strings.Contains(scorePart, "score cp ") {
						var cp int
						_, _ = fmt.Sscanf(scorePart, "score cp %d", &cp)
						score.CP = &cp
						score.Mate = nil
					} else if strings.Contains(scorePart, "score mate ") {
						var m int
						_, _ = fmt.Sscanf(scorePart, "score mate %d", &m)
						score.Mate = &m
						score.CP = nil
					}
				}
			case strings.HasPrefix(line, "bestmove "):
				fields := strings.Fields(line)
				if len(fields) >= 2 {
					score.Best = fields[1]
				}
				readDone <- nil
				return
			}
		}
		readDone <- e.out.Err()
	}()

	var err error
	select {
	case <-ctx.Done():
		_ = e.send("stop")
		select {
		case err = <-readDone:
		case <-time.After(500 * time.Millisecond):
			// The reader goroutine still owns the scanner. Kill the
			// process so it sees EOF and never races a later search.
			e.ready = false
			_ = e.cmd.Process.Kill()
			err = ctx.Err()
		}
	case err = <-readDone:
	}
	if err != nil {
		return Score{}, err
	}
	return score, nil
}

func (e *UCIEngine) awaitReady() error {
	if err := e.send("isready"); err != nil {
		return err
	}
	for e.out.Scan() {
		if e.out.Text() == "readyok" {
			return nil
		}
	}
	return e.out.Err()
}

func (e *UCIEngine) send(cmd string) error {
	if _, err := fmt.Fprintln(e.in, cmd); err != nil {
		return err
	}
	return e.in.Flush()
}
