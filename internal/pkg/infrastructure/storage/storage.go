package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/diwise/osm-topology/internal/pkg/application/topology"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type Config struct {
	host     string
	user     string
	password string
	port     string
	dbname   string
	sslmode  string
}

func LoadConfiguration(ctx context.Context) Config {
	return Config{
		host:     env.GetVariableOrDefault(ctx, "POSTGRES_HOST", ""),
		user:     env.GetVariableOrDefault(ctx, "POSTGRES_USER", ""),
		password: env.GetVariableOrDefault(ctx, "POSTGRES_PASSWORD", ""),
		port:     env.GetVariableOrDefault(ctx, "POSTGRES_PORT", "5432"),
		dbname:   env.GetVariableOrDefault(ctx, "POSTGRES_DBNAME", "diwise"),
		sslmode:  env.GetVariableOrDefault(ctx, "POSTGRES_SSLMODE", "disable"),
	}
}

// Enabled reports whether a database host has been configured.
func (c Config) Enabled() bool {
	return c.host != ""
}

func (c Config) ConnStr() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.user, c.password, c.host, c.port, c.dbname, c.sslmode)
}

type Storage struct {
	pool *pgxpool.Pool
}

func Connect(ctx context.Context, cfg Config) (*Storage, error) {
	conn, err := pgxpool.New(ctx, cfg.ConnStr())
	if err != nil {
		return nil, err
	}

	err = conn.Ping(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Storage{pool: conn}, nil
}

func (s *Storage) Initialize(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS osm_extracts (
			area_id    TEXT PRIMARY KEY,
			revision   TEXT NOT NULL,
			fetched_at TIMESTAMP WITH TIME ZONE NOT NULL,
			body       TEXT NOT NULL
		);`

	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// Save stores the extract as the latest one for its area.
func (s *Storage) Save(ctx context.Context, extract topology.Extract) error {
	sql := `
		INSERT INTO osm_extracts (area_id, revision, fetched_at, body)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (area_id) DO UPDATE
		SET revision = EXCLUDED.revision, fetched_at = EXCLUDED.fetched_at, body = EXCLUDED.body;`

	_, err := s.pool.Exec(ctx, sql, extract.AreaID, extract.Revision, extract.FetchedAt, string(extract.Body))
	return err
}

func (s *Storage) Load(ctx context.Context, areaID string) (*topology.Extract, error) {
	sql := `SELECT revision, fetched_at, body FROM osm_extracts WHERE area_id = $1;`

	extract := &topology.Extract{AreaID: areaID}
	var body string

	err := s.pool.QueryRow(ctx, sql, areaID).Scan(&extract.Revision, &extract.FetchedAt, &body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no extract stored for area %s (%w)", areaID, ErrNotFound)
		}
		return nil, err
	}

	extract.Body = []byte(body)

	return extract, nil
}

func (s *Storage) Close() {
	s.pool.Close()
}
