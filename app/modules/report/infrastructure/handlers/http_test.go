package reporthandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	gamedb "github.com/pedrolmn/chess-report/app/modules/games/infrastructure/repositories"
	"github.com/pedrolmn/chess-report/app/modules/ingest"
	reportservice "github.com/pedrolmn/chess-report/app/modules/report/application"
	reportcache "github.com/pedrolmn/chess-report/app/modules/report/infrastructure/cache"
	reportqueue "github.com/pedrolmn/chess-report/app/modules/report/infrastructure/queue"
	reportdb "github.com/pedrolmn/chess-report/app/modules/report/infrastructure/repositories"
	userdomain "github.com/pedrolmn/chess-report/app/modules/users/domain"
	userdb "github.com/pedrolmn/chess-report/app/modules/users/infrastructure/repositories"
	"github.com/pedrolmn/chess-report/config"
	"github.com/pedrolmn/chess-report/internal/observability"
)

type memReportDB struct {
	mu      sync.Mutex
	nextID  int64
	reports map[string]*reportdb.Report
}

func newMemReportDB() *memReportDB {
	return &memReportDB{reports: make(map[string]*reportdb.Report)}
}

func (m *memReportDB) CreateReport(ctx context.Context, report *reportdb.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	report.ID = m.nextID
	clone := *report
	m.reports[report.PublicID] = &clone
	return nil
}

func (m *memReportDB) GetByPublicID(ctx context.Context, publicID string) (*reportdb.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.reports[publicID]
	if !ok {
		return nil, reportdb.ErrReportNotFound
	}
	clone := *report
	return &clone, nil
}

func (m *memReportDB) UpdateStatus(ctx context.Context, id int64, status, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, report := range m.reports {
		if report.ID == id {
			report.Status = status
			report.Error = errMsg
			return nil
		}
	}
	return reportdb.ErrReportNotFound
}

func (m *memReportDB) SetResult(ctx context.Context, id int64, numberOfGames int, executionTime float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, report := range m.reports {
		if report.ID == id {
			report.Status = reportdb.StatusDone
			report.NumberOfGames = numberOfGames
			report.ExecutionTime = &executionTime
			return nil
		}
	}
	return reportdb.ErrReportNotFound
}

func (m *memReportDB) ListRecent(ctx context.Context, limit int) ([]reportdb.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]reportdb.Report, 0, len(m.reports))
	for _, report := range m.reports {
		out = append(out, *report)
	}
	return out, nil
}

type memGameDB struct {
	mu    sync.Mutex
	games map[int64][]*gamedb.Game
}

func newMemGameDB() *memGameDB {
	return &memGameDB{games: make(map[int64][]*gamedb.Game)}
}

func (m *memGameDB) InsertGames(ctx context.Context, reportID int64, games []*gamedb.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[reportID] = append(m.games[reportID], games...)
	return nil
}

func (m *memGameDB) GetByReportID(ctx context.Context, reportID int64, limit, offset int) ([]gamedb.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.games[reportID]
	if offset > len(stored) {
		offset = len(stored)
	}
	stored = stored[offset:]
	if limit > 0 && limit < len(stored) {
		stored = stored[:limit]
	}
	out := make([]gamedb.Game, 0, len(stored))
	for _, g := range stored {
		out = append(out, *g)
	}
	return out, nil
}

func (m *memGameDB) CountByReportID(ctx context.Context, reportID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.games[reportID]), nil
}

func (m *memGameDB) DeleteByReportID(ctx context.Context, reportID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, reportID)
	return nil
}

type memUserDB struct {
	mu       sync.Mutex
	profiles map[int64]*userdb.UserProfile
}

func newMemUserDB() *memUserDB {
	return &memUserDB{profiles: make(map[int64]*userdb.UserProfile)}
}

func (m *memUserDB) SaveProfile(ctx context.Context, profile *userdb.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.ReportID] = profile
	return nil
}

func (m *memUserDB) GetByReportID(ctx context.Context, reportID int64) (*userdb.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[reportID]
	if !ok {
		return nil, userdb.ErrProfileNotFound
	}
	return profile, nil
}

type stubSource struct{}

func (stubSource) FetchGames(ctx context.Context, username string, opts ingest.FetchOptions) ([]map[string]any, error) {
	return []map[string]any{{
		"id":         "g1",
		"rated":      true,
		"variant":    "standard",
		"speed":      "blitz",
		"perf":       "blitz",
		"createdAt":  float64(1710072000000),
		"lastMoveAt": float64(1710072300000),
		"status":     "mate",
		"winner":     "white",
		"source":     "lichess.org",
		"moves":      "e4 e5 Qh5 Nc6 Bc4 Nf6 Qxf7#",
		"clocks":     []any{},
		"clock":      map[string]any{"initial": float64(300), "increment": float64(0)},
		"opening":    map[string]any{"eco": "C20", "name": "King's Pawn Game: Wayward Queen Attack"},
		"players": map[string]any{
			"white": map[string]any{
				"user":   map[string]any{"name": username, "id": username},
				"rating": float64(1500),
			},
			"black": map[string]any{
				"user":   map[string]any{"name": "opponent", "id": "opponent"},
				"rating": float64(1450),
			},
		},
	}}, nil
}

func (stubSource) FetchProfile(ctx context.Context, username string) (*userdomain.Profile, error) {
	return nil, userdb.ErrProfileNotFound
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []reportqueue.ReportBuildArgs
}

func (q *recordingQueue) EnqueueReportBuild(ctx context.Context, args reportqueue.ReportBuildArgs) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, args)
	return nil
}

func (q *recordingQueue) Start(ctx context.Context) error { return nil }
func (q *recordingQueue) Stop(ctx context.Context) error  { return nil }

func newTestRouter(t *testing.T) (http.Handler, *reportservice.Service) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := reportservice.NewService(
		config.ReportConfig{Timezone: "UTC", MaxGames: 100, PreviewRows: 5},
		map[string]ingest.Source{ingest.PlatformLichess: stubSource{}},
		nil,
		newMemReportDB(),
		newMemGameDB(),
		newMemUserDB(),
		reportcache.NoOpCache{},
		nil,
		nil,
		logger,
		observability.NoOpMetrics{},
		noop.NewTracerProvider().Tracer("test"),
	)

	handler := NewHandler(service, reportservice.NewTokenIssuer("test-secret", 0), logger)
	return handler.Router(), service
}

func createReport(t *testing.T, router http.Handler, body string) map[string]any {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCreateReportEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	data := createReport(t, router, `{"username": "alice"}`)
	assert.Equal(t, "done", data["status"])
	assert.Equal(t, "alice", data["username"])
	assert.Len(t, data["report_id"], 8)
	assert.EqualValues(t, 1, data["number_of_games"])
}

func TestCreateReportInvalidBody(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestCreateReportInvalidUsername(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(`{"username": "a"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReportNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/deadbeef", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestGetContextEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	data := createReport(t, router, `{"username": "alice"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+data["report_id"].(string)+"/context", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			TotalGames int              `json:"total_games"`
			Games      []map[string]any `json:"games"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.TotalGames)
	assert.Len(t, resp.Data.Games, 1)
}

func TestGetGamesEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	data := createReport(t, router, `{"username": "alice"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+data["report_id"].(string)+"/games?page=1&per_page=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			Total   int `json:"total"`
			Page    int `json:"page"`
			PerPage int `json:"per_page"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Page)
	assert.Equal(t, 10, resp.Data.PerPage)
}

func TestShareFlow(t *testing.T) {
	router, _ := newTestRouter(t)
	data := createReport(t, router, `{"username": "alice"}`)
	reportID := data["report_id"].(string)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/"+reportID+"/share", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/shared/"+resp.Data.Token, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/shared/not-a-token", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestShareUnknownReport(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/deadbeef/share", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportCSVEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	data := createReport(t, router, `{"username": "alice"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+data["report_id"].(string)+"/export.csv", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "match_id,"))
}

func TestWinrateChartEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	data := createReport(t, router, `{"username": "alice"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+data["report_id"].(string)+"/charts/winrate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestContextNotReady(t *testing.T) {
	router, service := newTestRouter(t)

	queue := &recordingQueue{}
	service.SetQueue(queue)
	data := createReport(t, router, `{"username": "alice"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+data["report_id"].(string)+"/context", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "not ready")
	require.Len(t, queue.jobs, 1)
}
