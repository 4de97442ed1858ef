package reportservice

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	userdomain "github.com/pedrolmn/chess-report/app/modules/users/domain"

	gamedb "github.com/pedrolmn/chess-report/app/modules/games/infrastructure/repositories"
	"github.com/pedrolmn/chess-report/app/modules/ingest"
	reportcache "github.com/pedrolmn/chess-report/app/modules/report/infrastructure/cache"
	reportqueue "github.com/pedrolmn/chess-report/app/modules/report/infrastructure/queue"
	reportdb "github.com/pedrolmn/chess-report/app/modules/report/infrastructure/repositories"
	userdb "github.com/pedrolmn/chess-report/app/modules/users/infrastructure/repositories"
)

// FakeReportDB is an in-memory ReportDB. Individual methods can be
// overridden through the Func fields.
type FakeReportDB struct {
	mu      sync.Mutex
	nextID  int64
	reports map[string]*reportdb.Report

	CreateReportFunc  func(ctx context.Context, report *reportdb.Report) error
	GetByPublicIDFunc func(ctx context.Context, publicID string) (*reportdb.Report, error)
	UpdateStatusFunc  func(ctx context.Context, id int64, status, errMsg string) error
}

func NewFakeReportDB() *FakeReportDB {
	return &FakeReportDB{reports: make(map[string]*reportdb.Report)}
}

func (f *FakeReportDB) CreateReport(ctx context.Context, report *reportdb.Report) error {
	if f.CreateReportFunc != nil {
		return f.CreateReportFunc(ctx, report)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	report.ID = f.nextID
	clone := *report
	f.reports[report.PublicID] = &clone
	return nil
}

func (f *FakeReportDB) GetByPublicID(ctx context.Context, publicID string) (*reportdb.Report, error) {
	if f.GetByPublicIDFunc != nil {
		return f.GetByPublicIDFunc(ctx, publicID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.reports[publicID]
	if !ok {
		return nil, reportdb.ErrReportNotFound
	}
	clone := *report
	return &clone, nil
}

func (f *FakeReportDB) UpdateStatus(ctx context.Context, id int64, status, errMsg string) error {
	if f.UpdateStatusFunc != nil {
		return f.UpdateStatusFunc(ctx, id, status, errMsg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, report := range f.reports {
		if report.ID == id {
			report.Status = status
			report.Error = errMsg
			return nil
		}
	}
	return reportdb.ErrReportNotFound
}

func (f *FakeReportDB) SetResult(ctx context.Context, id int64, numberOfGames int, executionTime float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, report := range f.reports {
		if report.ID == id {
			report.Status = reportdb.StatusDone
			report.NumberOfGames = numberOfGames
			report.ExecutionTime = &executionTime
			return nil
		}
	}
	return reportdb.ErrReportNotFound
}

func (f *FakeReportDB) ListRecent(ctx context.Context, limit int) ([]reportdb.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]reportdb.Report, 0, len(f.reports))
	for _, report := range f.reports {
		out = append(out, *report)
	}
	return out, nil
}

// FakeGameDB is an in-memory GameDB.
type FakeGameDB struct {
	mu    sync.Mutex
	games map[int64][]*gamedb.Game

	GetByReportIDFunc func(ctx context.Context, reportID int64, limit, offset int) ([]gamedb.Game, error)
}

func NewFakeGameDB() *FakeGameDB {
	return &FakeGameDB{games: make(map[int64][]*gamedb.Game)}
}

func (f *FakeGameDB) InsertGames(ctx context.Context, reportID int64, games []*gamedb.Game) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games[reportID] = append(f.games[reportID], games...)
	return nil
}

func (f *FakeGameDB) GetByReportID(ctx context.Context, reportID int64, limit, offset int) ([]gamedb.Game, error) {
	if f.GetByReportIDFunc != nil {
		return f.GetByReportIDFunc(ctx, reportID, limit, offset)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.games[reportID]
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

func (f *FakeGameDB) CountByReportID(ctx context.Context, reportID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.games[reportID]), nil
}

func (f *FakeGameDB) DeleteByReportID(ctx context.Context, reportID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.games, reportID)
	return nil
}

// FakeUserDB is an in-memory UserDB.
type FakeUserDB struct {
	mu       sync.Mutex
	profiles map[int64]*userdb.UserProfile
}

func NewFakeUserDB() *FakeUserDB {
	return &FakeUserDB{profiles: make(map[int64]*userdb.UserProfile)}
}

func (f *FakeUserDB) SaveProfile(ctx context.Context, profile *userdb.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profile.ReportID] = profile
	return nil
}

func (f *FakeUserDB) GetByReportID(ctx context.Context, reportID int64) (*userdb.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[reportID]
	if !ok {
		return nil, userdb.ErrProfileNotFound
	}
	return profile, nil
}

// FakeSource is a programmable ingest.Source.
type FakeSource struct {
	FetchGamesFunc   func(ctx context.Context, username string, opts ingest.FetchOptions) ([]map[string]any, error)
	FetchProfileFunc func(ctx context.Context, username string) (*userdomain.Profile, error)
}

func (f *FakeSource) FetchGames(ctx context.Context, username string, opts ingest.FetchOptions) ([]map[string]any, error) {
	if f.FetchGamesFunc != nil {
		return f.FetchGamesFunc(ctx, username, opts)
	}
	return nil, nil
}

func (f *FakeSource) FetchProfile(ctx context.Context, username string) (*userdomain.Profile, error) {
	if f.FetchProfileFunc != nil {
		return f.FetchProfileFunc(ctx, username)
	}
	return nil, userdb.ErrProfileNotFound
}

// FakeCache is an in-memory JSON cache.
type FakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte

	Invalidated []string
}

func NewFakeCache() *FakeCache {
	return &FakeCache{entries: make(map[string][]byte)}
}

func (f *FakeCache) Get(ctx context.Context, key string, dest any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.entries[key]
	if !ok {
		return reportcache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (f *FakeCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = data
	return nil
}

func (f *FakeCache) InvalidateReport(ctx context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Invalidated = append(f.Invalidated, publicID)
	for key := range f.entries {
		if strings.HasPrefix(key, "report:"+publicID+":") {
			delete(f.entries, key)
		}
	}
	return nil
}

func (f *FakeCache) Close() error { return nil }

type publishedEvent struct {
	Topic   string
	Payload any
}

// FakeEventBus records published events.
type FakeEventBus struct {
	mu     sync.Mutex
	Events []publishedEvent
}

func (f *FakeEventBus) Publish(ctx context.Context, topic string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = append(f.Events, publishedEvent{Topic: topic, Payload: payload})
	return nil
}

func (f *FakeEventBus) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	topics := make([]string, 0, len(f.Events))
	for _, e := range f.Events {
		topics = append(topics, e.Topic)
	}
	return topics
}

func (f *FakeEventBus) Subscribe(ctx context.Context, topic string, handler func(ctx context.Context, msg *message.Message) error) error {
	return nil
}

func (f *FakeEventBus) Close() error { return nil }

// FakeQueue records enqueued build jobs.
type FakeQueue struct {
	mu      sync.Mutex
	Jobs    []reportqueue.ReportBuildArgs
	Enqueue func(ctx context.Context, args reportqueue.ReportBuildArgs) error
}

func (f *FakeQueue) EnqueueReportBuild(ctx context.Context, args reportqueue.ReportBuildArgs) error {
	if f.Enqueue != nil {
		return f.Enqueue(ctx, args)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Jobs = append(f.Jobs, args)
	return nil
}

func (f *FakeQueue) Start(ctx context.Context) error { return nil }
func (f *FakeQueue) Stop(ctx context.Context) error  { return nil }
