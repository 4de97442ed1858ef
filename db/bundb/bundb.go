package bundb

import (
	"context"
	"database/sql"
	"fmt"

	gamedb "github.com/pedrolmn/chess-report/app/modules/games/infrastructure/repositories"
	reportdb "github.com/pedrolmn/chess-report/app/modules/report/infrastructure/repositories"
	userdb "github.com/pedrolmn/chess-report/app/modules/users/infrastructure/repositories"
	"github.com/pedrolmn/chess-report/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// DBService bundles the repositories over a single bun connection pool.
type DBService struct {
	GameDB   *gamedb.GameDBImpl
	ReportDB *reportdb.ReportDBImpl
	UserDB   *userdb.UserDBImpl
	db       *bun.DB
}

// GetDB returns the underlying database connection pool.
func (dbService *DBService) GetDB() *bun.DB {
	return dbService.db
}

// NewBunDBService initializes a new DBService with the provided Postgres configuration.
func NewBunDBService(ctx context.Context, cfg config.PostgresConfig) (*DBService, error) {
	sqldb, err := pgConn(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	dbService := &DBService{
		GameDB:   &gamedb.GameDBImpl{DB: db},
		ReportDB: &reportdb.ReportDBImpl{DB: db},
		UserDB:   &userdb.UserDBImpl{DB: db},
		db:       db,
	}

	db.RegisterModel(&gamedb.Game{})
	db.RegisterModel(&reportdb.Report{})
	db.RegisterModel(&userdb.UserProfile{})

	return dbService, nil
}

func pgConn(ctx context.Context, dsn string) (*sql.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))

	if err := sqldb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return sqldb, nil
}
