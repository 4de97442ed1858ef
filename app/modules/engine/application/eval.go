package engineservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/notnil/chess"
	"go.opentelemetry.io/otel/trace"

	gamedomain "github.com/pedrolmn/chess-report/app/modules/games/domain"
	"github.com/pedrolmn/chess-report/internal/observability"
	"github.com/pedrolmn/chess-report/internal/observability/attr"
)

// Eval source tags stored with each scored game.
const (
	SourceDivisionMiddle = "division_middle"
)

// Config drives the opening evaluation stage.
type Config struct {
	Path           string
	Depth          int
	MoveTime       time.Duration
	UseDepth       bool
	Workers        int
	FallbackCutoff int // plies used when the game carries no division
}

// Evaluator scores the opening position of each game with a bounded
// pool of engine processes.
type Evaluator struct {
	cfg     Config
	logger  *slog.Logger
	metrics observability.Metrics
	tracer  trace.Tracer
}

// NewEvaluator builds an evaluator. The engine binary is started per
// worker when EvaluateOpenings runs.
func NewEvaluator(cfg Config, logger *slog.Logger, metrics observability.Metrics, tracer trace.Tracer) *Evaluator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.FallbackCutoff <= 0 {
		cfg.FallbackCutoff = 15
	}
	return &Evaluator{cfg: cfg, logger: logger, metrics: metrics, tracer: tracer}
}

// EvaluateOpenings fills the opening eval fields of every game that has
// a usable opening prefix. Games that cannot be scored are left
// untouched. One failing engine worker fails the whole stage.
func (ev *Evaluator) EvaluateOpenings(ctx context.Context, games []gamedomain.FlatGame) error {
	ctx, span := ev.tracer.Start(ctx, "Evaluator.EvaluateOpenings")
	defer span.End()

	start := time.Now()
	ev.metrics.RecordOperationAttempt(ctx, "evaluate_openings", "engine")

	jobs := make(chan int)
	var wg sync.WaitGroup
	errCh := make(chan error, ev.cfg.Workers)

	for w := 0; w < ev.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine, err := NewUCIEngine(ev.cfg.Path)
			if err != nil {
				errCh <- fmt.Errorf("failed to start engine worker: %w", err)
				return
			}
			defer engine.Close()

			for i := range jobs {
				if err := ev.evaluateGame(ctx, engine, &games[i]); err != nil {
					ev.logger.Warn("Skipping opening evaluation",
						attr.String("game_id", games[i].ID),
						attr.Error(err))
				}
			}
		}()
	}

	// workersDone unblocks the feed loop when every worker has exited,
	// which happens before the queue drains if no engine could start.
	workersDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(workersDone)
	}()

feed:
	for i := range games {
		select {
		case jobs <- i:
		case <-workersDone:
			break feed
		case <-ctx.Done():
			close(jobs)
			<-workersDone
			ev.metrics.RecordOperationFailure(ctx, "evaluate_openings", "engine")
			return ctx.Err()
		}
	}
	close(jobs)
	<-workersDone
	close(errCh)

	for err := range errCh {
		if err != nil {
			ev.metrics.RecordOperationFailure(ctx, "evaluate_openings", "engine")
			return err
		}
	}

	ev.metrics.RecordOperationSuccess(ctx, "evaluate_openings", "engine")
	ev.metrics.RecordOperationDuration(ctx, "evaluate_openings", "engine", time.Since(start))
	return nil
}

func (ev *Evaluator) evaluateGame(ctx context.Context, engine *UCIEngine, g *gamedomain.FlatGame) error {
	prefix, source, ok := ev.openingPrefix(g)
	if !ok {
		return nil
	}

	fen, err := MovesToFEN(prefix)
	if err != nil {
		return err
	}

	if err := engine.NewGame(); err != nil {
		return err
	}
	score, err := engine.EvalFEN(ctx, fen, Limit{
		Depth:    ev.cfg.Depth,
		MoveTime: ev.cfg.MoveTime,
		UseDepth: ev.cfg.UseDepth,
	})
	if err != nil {
		return err
	}

	whiteToMove := sideToMove(fen) == "w"
	applyScore(g, score, whiteToMove, source)
	return nil
}

// openingPrefix returns the SAN prefix ending the opening phase. Games
// with a division marker use it; others fall back to a fixed ply count
// and are skipped when shorter than the cutoff.
func (ev *Evaluator) openingPrefix(g *gamedomain.FlatGame) (string, string, bool) {
	moves := strings.Fields(g.Moves)
	if len(moves) == 0 {
		return "", "", false
	}

	if g.DivisionMiddle != nil {
		n := *g.DivisionMiddle
		if n > len(moves) {
			n = len(moves)
		}
		return strings.Join(moves[:n], " "), SourceDivisionMiddle, true
	}

	if len(moves) < ev.cfg.FallbackCutoff {
		return "", "", false
	}
	return strings.Join(moves[:ev.cfg.FallbackCutoff], " "),
		fmt.Sprintf("move_%d", ev.cfg.FallbackCutoff), true
}

// applyScore normalizes the side-to-move relative score to White's
// point of view and stores it in pawn units. Forced mates get a text
// label instead of a number.
func applyScore(g *gamedomain.FlatGame, score Score, whiteToMove bool, source string) {
	g.OpeningEvalSource = source

	if score.Mate != nil {
		mate := *score.Mate
		if !whiteToMove {
			mate = -mate
		}
		if mate > 0 {
			g.OpeningEvalText = "White mates"
		} else {
			g.OpeningEvalText = "Black mates"
		}
		return
	}
	if score.CP == nil {
		return
	}

	cp := *score.CP
	if !whiteToMove {
		cp = -cp
	}
	pawns := float64(cp) / 100
	g.OpeningEval = &pawns
	g.OpeningEvalText = fmt.Sprintf("%.2f", pawns)
}

// MovesToFEN replays SAN moves from the start position and returns the
// resulting FEN.
func MovesToFEN(sanMoves string) (string, error) {
	game := chess.NewGame()
	for _, san := range strings.Fields(sanMoves) {
		if err := game.MoveStr(san); err != nil {
			return "", fmt.Errorf("invalid move %q: %w", san, err)
		}
	}
	return game.Position().String(), nil
}

func sideToMove(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return "w"
	}
	return fields[1]
}
