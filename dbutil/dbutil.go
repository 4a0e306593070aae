package dbutil

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	Mysql    = "mysql"
	Postgres = "postgres"
	Pgx      = "pgx"
	Sqlite   = "sqlite3"
)

// GetConnectionString returns a DSN in the form expected by the database/sql driver.
// For sqlite3 the database is the file name.
func GetConnectionString(typ, user, pass, host, port, db, charset string) (string, error) {
	switch typ {
	case Mysql:
		cfg := mysql.NewConfig()
		cfg.User = user
		cfg.Passwd = pass
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(host, port)
		cfg.DBName = db
		if charset != "" {
			cfg.Params = map[string]string{"charset": charset}
		}
		return cfg.FormatDSN(), nil
	case Postgres, Pgx:
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, db), nil
	case Sqlite:
		if db == "" {
			return "", fmt.Errorf("sqlite3 needs a database file")
		}
		return db, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", typ)
	}
}

// Dialect returns the goqu dialect matching the driver.
func Dialect(typ string) string {
	if typ == Pgx {
		return Postgres
	}
	return typ
}

// GetMigrateUrl turns a driver DSN into a golang-migrate database URL.
func GetMigrateUrl(typ, dsn string) (string, error) {
	switch typ {
	case Mysql:
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return "mysql://" + dsn + sep + "multiStatements=true", nil
	case Postgres, Pgx:
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			return dsn, nil
		}
		return "", fmt.Errorf("postgres migrations need a URL connection string")
	case Sqlite:
		return "sqlite3://" + dsn, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", typ)
	}
}

func OpenDb(ctx context.Context, typ, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, typ, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", typ, err)
	}
	return db, nil
}

func RunMigrateScripts(migrateDir, connStr string) (uint, uint, bool, error) {
	var versionFrom, versionTo uint
	var dirty bool
	m, err := migrate.New(migrateDir, connStr)
	if err != nil {
		return versionFrom, versionTo, dirty, fmt.Errorf("failed to initiate migration: %w", err)
	}
	defer m.Close()
	versionFrom, dirty, err = m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return versionFrom, versionTo, dirty, fmt.Errorf("failed to get migration version: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return versionFrom, versionTo, dirty, fmt.Errorf("failed to run migration: %w", err)
	}

	versionTo, dirty, err = m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return versionFrom, versionTo, dirty, fmt.Errorf("failed to get migration version after running: %w", err)
	}
	return versionFrom, versionTo, dirty, nil
}

func StartPGContainer() (context.Context, *postgres.PostgresContainer, string, error) {
	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx, "postgres",
		postgres.WithDatabase("ole"),
		postgres.WithUsername("ole"),
		postgres.WithPassword("ole"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		return ctx, pgContainer, "", fmt.Errorf("failed to start db container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return ctx, pgContainer, "", fmt.Errorf("failed to get conn string: %w", err)
	}
	return ctx, pgContainer, connStr, nil
}

func TerminatePGContainer(ctx context.Context, pgContainer testcontainers.Container) error {
	if err := pgContainer.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to stop db container: %w", err)
	}
	return nil
}

// PortString formats a configured port, using the driver default when unset.
func PortString(typ string, port int) string {
	if port > 0 {
		return strconv.Itoa(port)
	}
	switch typ {
	case Mysql:
		return "3306"
	case Postgres, Pgx:
		return "5432"
	}
	return ""
}
