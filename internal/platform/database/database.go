package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpis/persona-genesis/internal/infra/postgres"
)

// ConnectionParams はデータベース接続パラメータ
type ConnectionParams struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN は接続文字列を組み立てる
func (p ConnectionParams) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Database はコネクションプールを保持する
type Database struct {
	pool *pgxpool.Pool
}

// New は接続プールを作成し、疎通を確認する
func New(ctx context.Context, params ConnectionParams) (*Database, error) {
	pool, err := pgxpool.New(ctx, params.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{pool: pool}, nil
}

// Pool はコネクションプールを返す
func (d *Database) Pool() *pgxpool.Pool {
	return d.pool
}

// EnsureSchema はスキーマを冪等に適用する
func (d *Database) EnsureSchema(ctx context.Context) error {
	return postgres.EnsureSchema(ctx, d.pool)
}

// Close はプールを閉じる
func (d *Database) Close() {
	d.pool.Close()
}
