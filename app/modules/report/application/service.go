package reportservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"go.opentelemetry.io/otel/trace"

	analysisservice "github.com/pedrolmn/chess-report/app/modules/analysis/application"
	engineservice "github.com/pedrolmn/chess-report/app/modules/engine/application"
	gameservice "github.com/pedrolmn/chess-report/app/modules/games/application"
	gamedomain "github.com/pedrolmn/chess-report/app/modules/games/domain"
	gamedb "github.com/pedrolmn/chess-report/app/modules/games/infrastructure/repositories"
	"github.com/pedrolmn/chess-report/app/modules/ingest"
	reportcache "github.com/pedrolmn/chess-report/app/modules/report/infrastructure/cache"
	reportqueue "github.com/pedrolmn/chess-report/app/modules/report/infrastructure/queue"
	reportdb "github.com/pedrolmn/chess-report/app/modules/report/infrastructure/repositories"
	userservice "github.com/pedrolmn/chess-report/app/modules/users/application"
	userdomain "github.com/pedrolmn/chess-report/app/modules/users/domain"
	userdb "github.com/pedrolmn/chess-report/app/modules/users/infrastructure/repositories"
	"github.com/pedrolmn/chess-report/config"
	"github.com/pedrolmn/chess-report/internal/eventbus"
	"github.com/pedrolmn/chess-report/internal/observability"
	"github.com/pedrolmn/chess-report/internal/observability/attr"
)

var usernamePattern = regexp.MustCompile(`^[\w-]{3,20}$`)

// Validation errors returned to API callers.
var (
	ErrInvalidUsername    = errors.New("username must be 3-20 characters of letters, digits, underscore or hyphen")
	ErrInvalidPlatform    = errors.New("platform must be lichess.org or chess.com")
	ErrInvalidMaxGames    = errors.New("max_games is out of range")
	ErrInvalidSince       = errors.New("could not parse the since date")
	ErrInvalidTimeControl = errors.New("time_control must be one of ultraBullet, bullet, blitz, rapid, classical, or all")
	ErrReportNotReady     = errors.New("report is not ready yet")
)

// timeControls maps accepted time-control inputs to the canonical form
// the platform APIs expect.
var timeControls = map[string]string{
	"":            "",
	"all":         "all",
	"ultrabullet": "ultraBullet",
	"bullet":      "bullet",
	"blitz":       "blitz",
	"rapid":       "rapid",
	"classical":   "classical",
}

// CreateRequest is a request to build a new report.
type CreateRequest struct {
	Username    string `json:"username"`
	Platform    string `json:"platform"`
	MaxGames    int    `json:"max_games"`
	TimeControl string `json:"time_control"`
	Since       string `json:"since"`
}

// ReportContext is everything a report page needs for one color/time-control
// selection.
type ReportContext struct {
	Report      *reportdb.Report                `json:"report"`
	User        *userdomain.Snapshot            `json:"user,omitempty"`
	Analysis    *analysisservice.Summary        `json:"analysis"`
	Winrate     analysisservice.WinrateData     `json:"winrate"`
	OpeningData []analysisservice.OpeningStat   `json:"opening_stats"`
	Conversion  analysisservice.ConversionStats `json:"conversion_stats"`
	Insights    analysisservice.Insights        `json:"insights"`
	Games       []gamedomain.PlayerGame         `json:"games"`
	TotalGames  int                             `json:"total_games"`
}

// GamesPage is one paginated slice of a report's games.
type GamesPage struct {
	Games   []gamedomain.PlayerGame `json:"games"`
	Page    int                     `json:"page"`
	PerPage int                     `json:"per_page"`
	Total   int                     `json:"total"`
}

// Service orchestrates report creation and retrieval.
type Service struct {
	cfg       config.ReportConfig
	sources   map[string]ingest.Source
	evaluator *engineservice.Evaluator
	reportDB  reportdb.ReportDB
	gameDB    gamedb.GameDB
	userDB    userdb.UserDB
	cache     reportcache.Cache
	queue     reportqueue.QueueService
	bus       eventbus.EventBus
	reference *analysisservice.ReferenceSnapshot
	loc       *time.Location
	logger    *slog.Logger
	metrics   observability.Metrics
	tracer    trace.Tracer
	when      *when.Parser
}

// NewService wires the report pipeline. The queue may be nil, in which case
// reports are built synchronously on creation. The evaluator may be nil when
// engine analysis is disabled.
func NewService(
	cfg config.ReportConfig,
	sources map[string]ingest.Source,
	evaluator *engineservice.Evaluator,
	reportDB reportdb.ReportDB,
	gameDB gamedb.GameDB,
	userDB userdb.UserDB,
	cache reportcache.Cache,
	bus eventbus.EventBus,
	reference *analysisservice.ReferenceSnapshot,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
) *Service {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("Unknown report timezone, falling back to UTC",
			attr.String("timezone", cfg.Timezone), attr.Error(err))
		loc = time.UTC
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	return &Service{
		cfg:       cfg,
		sources:   sources,
		evaluator: evaluator,
		reportDB:  reportDB,
		gameDB:    gameDB,
		userDB:    userDB,
		cache:     cache,
		bus:       bus,
		reference: reference,
		loc:       loc,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		when:      w,
	}
}

// SetQueue attaches the River queue once it has been constructed. The queue
// needs the service as its job builder, so wiring happens in two steps.
func (s *Service) SetQueue(q reportqueue.QueueService) {
	s.queue = q
}

// CreateReport validates the request, registers a pending report and either
// enqueues the build or runs it inline when no queue is configured.
func (s *Service) CreateReport(ctx context.Context, req CreateRequest) (*reportdb.Report, error) {
	ctx, span := s.tracer.Start(ctx, "ReportService.CreateReport")
	defer span.End()

	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "create_report", "report")

	report, err := s.validate(req)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "create_report", "report")
		return nil, err
	}

	if err := s.reportDB.CreateReport(ctx, report); err != nil {
		s.metrics.RecordOperationFailure(ctx, "create_report", "report")
		return nil, err
	}

	ctxLogger := s.logger.With(
		attr.ReportID(report.PublicID),
		attr.Username(report.Username),
		attr.Platform(report.Platform),
	)
	ctxLogger.Info("Report created")

	s.publish(ctx, eventbus.TopicReportRequested, reportEvent{
		ReportID: report.PublicID,
		Username: report.Username,
		Platform: report.Platform,
	})

	if s.queue != nil {
		if err := s.queue.EnqueueReportBuild(ctx, reportqueue.ReportBuildArgs{
			PublicID: report.PublicID,
			Username: report.Username,
			Platform: report.Platform,
		}); err != nil {
			s.metrics.RecordOperationFailure(ctx, "create_report", "report")
			return nil, err
		}
	} else {
		if err := s.BuildReport(ctx, report.PublicID); err != nil {
			s.metrics.RecordOperationFailure(ctx, "create_report", "report")
			return nil, err
		}
		report, err = s.reportDB.GetByPublicID(ctx, report.PublicID)
		if err != nil {
			return nil, err
		}
	}

	s.metrics.RecordOperationSuccess(ctx, "create_report", "report")
	s.metrics.RecordOperationDuration(ctx, "create_report", "report", time.Since(start))
	return report, nil
}

func (s *Service) validate(req CreateRequest) (*reportdb.Report, error) {
	username := strings.TrimSpace(req.Username)
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}

	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if platform == "" {
		platform = ingest.PlatformLichess
	}
	if _, ok := s.sources[platform]; !ok {
		return nil, ErrInvalidPlatform
	}

	maxGames := req.MaxGames
	if maxGames <= 0 {
		maxGames = s.cfg.MaxGames
	}
	if maxGames > s.cfg.MaxGames {
		return nil, ErrInvalidMaxGames
	}

	timeControl, ok := timeControls[strings.ToLower(strings.TrimSpace(req.TimeControl))]
	if !ok {
		return nil, ErrInvalidTimeControl
	}

	var since *time.Time
	if raw := strings.TrimSpace(req.Since); raw != "" {
		parsed, err := s.parseSince(raw)
		if err != nil {
			return nil, err
		}
		since = parsed
	}

	return &reportdb.Report{
		PublicID:      newPublicID(),
		Username:      username,
		Platform:      platform,
		NumberOfGames: maxGames,
		TimeControl:   timeControl,
		Since:         since,
		Status:        reportdb.StatusPending,
	}, nil
}

// parseSince accepts both natural language ("3 months ago") and ISO dates.
func (s *Service) parseSince(raw string) (*time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", raw, s.loc); err == nil {
		return &t, nil
	}
	result, err := s.when.Parse(raw, time.Now())
	if err != nil || result == nil {
		return nil, ErrInvalidSince
	}
	return &result.Time, nil
}

func newPublicID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// BuildReport runs the full pipeline for an already-registered report:
// fetch, flatten, evaluate openings, post-process, persist.
func (s *Service) BuildReport(ctx context.Context, publicID string) error {
	ctx, span := s.tracer.Start(ctx, "ReportService.BuildReport")
	defer span.End()

	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "build_report", "report")

	report, err := s.reportDB.GetByPublicID(ctx, publicID)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "build_report", "report")
		return err
	}

	ctxLogger := s.logger.With(
		attr.ReportID(report.PublicID),
		attr.Username(report.Username),
		attr.Platform(report.Platform),
	)

	if err := s.reportDB.UpdateStatus(ctx, report.ID, reportdb.StatusRunning, ""); err != nil {
		s.metrics.RecordOperationFailure(ctx, "build_report", "report")
		return err
	}

	rows, err := s.run(ctx, ctxLogger, report)
	if err != nil {
		ctxLogger.Error("Report build failed", attr.Error(err))
		if dbErr := s.reportDB.UpdateStatus(ctx, report.ID, reportdb.StatusFailed, err.Error()); dbErr != nil {
			ctxLogger.Error("Failed to record report failure", attr.Error(dbErr))
		}
		s.publish(ctx, eventbus.TopicReportFailed, reportEvent{
			ReportID: report.PublicID,
			Username: report.Username,
			Platform: report.Platform,
			Error:    err.Error(),
		})
		s.metrics.RecordOperationFailure(ctx, "build_report", "report")
		return err
	}

	executionTime := time.Since(start).Seconds()
	if err := s.reportDB.SetResult(ctx, report.ID, len(rows), executionTime); err != nil {
		s.metrics.RecordOperationFailure(ctx, "build_report", "report")
		return err
	}

	if err := s.cache.InvalidateReport(ctx, report.PublicID); err != nil {
		ctxLogger.Warn("Failed to invalidate report cache", attr.Error(err))
	}

	s.publish(ctx, eventbus.TopicReportCompleted, reportEvent{
		ReportID:      report.PublicID,
		Username:      report.Username,
		Platform:      report.Platform,
		NumberOfGames: len(rows),
		ExecutionTime: executionTime,
	})

	s.metrics.RecordOperationSuccess(ctx, "build_report", "report")
	s.metrics.RecordOperationDuration(ctx, "build_report", "report", time.Since(start))
	ctxLogger.Info("Report build completed",
		attr.Int("games", len(rows)),
		attr.Float64("execution_time", executionTime))
	return nil
}

func (s *Service) run(ctx context.Context, ctxLogger *slog.Logger, report *reportdb.Report) ([]gamedomain.PlayerGame, error) {
	source := s.sources[report.Platform]
	if source == nil {
		return nil, ErrInvalidPlatform
	}

	opts := ingest.FetchOptions{
		MaxGames: report.NumberOfGames,
		PerfType: report.TimeControl,
		Since:    report.Since,
	}

	raw, err := source.FetchGames(ctx, report.Username, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch games: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no games found for %s on %s", report.Username, report.Platform)
	}
	ctxLogger.Info("Fetched games", attr.Int("count", len(raw)))

	flat := gameservice.FlattenAll(raw)

	if s.evaluator != nil {
		if err := s.evaluator.EvaluateOpenings(ctx, flat); err != nil {
			ctxLogger.Warn("Opening evaluation failed, continuing without evals", attr.Error(err))
		}
	}

	rows := gameservice.PostProcess(flat, report.Username, s.loc)
	if len(rows) == 0 {
		return nil, fmt.Errorf("no games matched username %s", report.Username)
	}

	models := make([]*gamedb.Game, 0, len(rows))
	for _, r := range rows {
		models = append(models, gamedb.FromDomain(report.ID, r))
	}
	if err := s.gameDB.InsertGames(ctx, report.ID, models); err != nil {
		return nil, err
	}

	profile, err := source.FetchProfile(ctx, report.Username)
	if err != nil {
		ctxLogger.Warn("Failed to fetch profile, report will have no user card", attr.Error(err))
	} else {
		snap := userservice.ProcessProfile(profile, time.Now())
		if err := s.userDB.SaveProfile(ctx, userdb.FromSnapshot(report.ID, snap)); err != nil {
			ctxLogger.Warn("Failed to save user profile", attr.Error(err))
		}
	}

	return rows, nil
}

// GetReport returns report metadata by public ID.
func (s *Service) GetReport(ctx context.Context, publicID string) (*reportdb.Report, error) {
	return s.reportDB.GetByPublicID(ctx, publicID)
}

// ListRecent returns the newest reports.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]reportdb.Report, error) {
	return s.reportDB.ListRecent(ctx, limit)
}

// GetContext assembles (or serves from cache) the full report payload for a
// color/time-control selection.
func (s *Service) GetContext(ctx context.Context, publicID, color, timeControl string) (*ReportContext, error) {
	ctx, span := s.tracer.Start(ctx, "ReportService.GetContext")
	defer span.End()

	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "get_report_context", "report")

	key := reportcache.Key(publicID, "context", color, timeControl)
	var cached ReportContext
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		s.metrics.RecordOperationSuccess(ctx, "get_report_context", "report")
		return &cached, nil
	}

	report, rows, err := s.loadRows(ctx, publicID, timeControl)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "get_report_context", "report")
		return nil, err
	}

	summary, err := analysisservice.BasicAnalysis(rows, color)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "get_report_context", "report")
		return nil, err
	}
	openingStats, err := analysisservice.OpeningStats(rows, color)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "get_report_context", "report")
		return nil, err
	}

	winrate := analysisservice.PrepareWinrateData(rows)
	conversion := analysisservice.CalculateConversionStats(rows)
	insights := analysisservice.BuildInsights(rows, winrate, conversion, s.reference)

	preview := rows
	if s.cfg.PreviewRows > 0 && len(preview) > s.cfg.PreviewRows {
		preview = preview[:s.cfg.PreviewRows]
	}

	result := &ReportContext{
		Report:      report,
		User:        s.loadSnapshot(ctx, report.ID),
		Analysis:    summary,
		Winrate:     winrate,
		OpeningData: openingStats,
		Conversion:  conversion,
		Insights:    insights,
		Games:       preview,
		TotalGames:  len(rows),
	}

	if err := s.cache.Set(ctx, key, result); err != nil {
		s.logger.Warn("Failed to cache report context", attr.Error(err))
	}

	s.metrics.RecordOperationSuccess(ctx, "get_report_context", "report")
	s.metrics.RecordOperationDuration(ctx, "get_report_context", "report", time.Since(start))
	return result, nil
}

// GetGames returns one page of a report's stored games.
func (s *Service) GetGames(ctx context.Context, publicID string, page, perPage int) (*GamesPage, error) {
	report, err := s.readyReport(ctx, publicID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = s.cfg.PreviewRows
	}

	total, err := s.gameDB.CountByReportID(ctx, report.ID)
	if err != nil {
		return nil, err
	}

	stored, err := s.gameDB.GetByReportID(ctx, report.ID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}

	rows := make([]gamedomain.PlayerGame, 0, len(stored))
	for i := range stored {
		rows = append(rows, stored[i].ToDomain())
	}

	return &GamesPage{Games: rows, Page: page, PerPage: perPage, Total: total}, nil
}

// AllGames returns every stored row for a report, filtered by time control.
// Used by exports and chart rendering.
func (s *Service) AllGames(ctx context.Context, publicID, timeControl string) ([]gamedomain.PlayerGame, error) {
	_, rows, err := s.loadRows(ctx, publicID, timeControl)
	return rows, err
}

func (s *Service) loadRows(ctx context.Context, publicID, timeControl string) (*reportdb.Report, []gamedomain.PlayerGame, error) {
	report, err := s.readyReport(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}

	stored, err := s.gameDB.GetByReportID(ctx, report.ID, 0, 0)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]gamedomain.PlayerGame, 0, len(stored))
	for i := range stored {
		row := stored[i].ToDomain()
		if timeControl != "" && timeControl != "all" && !strings.EqualFold(row.Speed, timeControl) {
			continue
		}
		rows = append(rows, row)
	}
	return report, rows, nil
}

func (s *Service) readyReport(ctx context.Context, publicID string) (*reportdb.Report, error) {
	report, err := s.reportDB.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if report.Status != reportdb.StatusDone {
		return nil, ErrReportNotReady
	}
	return report, nil
}

func (s *Service) loadSnapshot(ctx context.Context, reportID int64) *userdomain.Snapshot {
	profile, err := s.userDB.GetByReportID(ctx, reportID)
	if err != nil {
		return nil
	}
	snap := profile.ToSnapshot()
	return &snap
}

type reportEvent struct {
	ReportID      string  `json:"report_id"`
	Username      string  `json:"username"`
	Platform      string  `json:"platform"`
	NumberOfGames int     `json:"number_of_games,omitempty"`
	ExecutionTime float64 `json:"execution_time,omitempty"`
	Error         string  `json:"error,omitempty"`
}

func (s *Service) publish(ctx context.Context, topic string, event reportEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("Failed to publish report event",
			attr.String("topic", topic), attr.Error(err))
	}
}
