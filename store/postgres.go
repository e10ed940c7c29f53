package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/tsawler/pagemerge/internal/logger"
	"github.com/tsawler/pagemerge/model"
)

//go:embed schema.sql
var schema string

// Postgres is a page repository backed by the pages table
type Postgres struct{ DB *sql.DB }

// NewPostgres wraps an open database handle
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{DB: db} }

// Open connects to dsn with the pgx driver and checks the connection
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("database DSN is empty: set DATABASE_URL or POSTGRES_* env vars")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

// DSN builds a connection URL from its parts
func DSN(user, password, host, port, database, sslmode string) string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + database,
		RawQuery: "sslmode=" + sslmode,
	}
	return u.String()
}

// Migrate creates the pages table and its index if they do not exist
func (r *Postgres) Migrate(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SavePage inserts a page or replaces every column of an existing one
func (r *Postgres) SavePage(ctx context.Context, p model.Page) error {
	dets, err := marshalNullable(p.Detections == nil, p.Detections)
	if err != nil {
		return fmt.Errorf("encode detections of %s: %w", p.ID, err)
	}
	objs, err := marshalNullable(p.Objects == nil, p.Objects)
	if err != nil {
		return fmt.Errorf("encode objects of %s: %w", p.ID, err)
	}

	const q = `
insert into pages (id, document_id, page_number, detections, postprocessed, merged, merged_objects)
values ($1,$2,$3,$4,$5,$6,$7)
on conflict (id) do update
set document_id = excluded.document_id,
    page_number = excluded.page_number,
    detections = excluded.detections,
    postprocessed = excluded.postprocessed,
    merged = excluded.merged,
    merged_objects = excluded.merged_objects`
	_, err = r.DB.ExecContext(ctx, q, p.ID, p.DocumentID, p.Number, dets, p.Postprocessed, p.Merged, objs)
	return err
}

// Page loads one page by ID
func (r *Postgres) Page(ctx context.Context, id string) (model.Page, error) {
	const q = `
select id, document_id, page_number, detections, postprocessed, merged, merged_objects
from pages
where id = $1`
	p, err := scanPage(r.DB.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Page{}, ErrNotFound
	}
	return p, err
}

// FetchUnmergedPages returns up to limit postprocessed, unmerged pages with
// IDs greater than after, in ID order
func (r *Postgres) FetchUnmergedPages(ctx context.Context, after string, limit int) ([]model.Page, error) {
	const q = `
select id, document_id, page_number, detections, postprocessed, merged, merged_objects
from pages
where postprocessed and not merged and id > $1
order by id
limit $2`
	rows, err := r.DB.QueryContext(ctx, q, after, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unmerged pages: %w", err)
	}
	defer rows.Close()

	var out []model.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CommitMergedPage writes the merged objects and sets the merged flag in a
// single statement
func (r *Postgres) CommitMergedPage(ctx context.Context, pageID string, objects []model.MergedObject) error {
	if objects == nil {
		objects = []model.MergedObject{}
	}
	js, err := json.Marshal(objects)
	if err != nil {
		return fmt.Errorf("encode objects of %s: %w", pageID, err)
	}

	const q = `update pages set merged_objects = $2, merged = true, merged_at = now() where id = $1`
	res, err := r.DB.ExecContext(ctx, q, pageID, js)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetMerged clears the merged flag and objects of the given pages
func (r *Postgres) ResetMerged(ctx context.Context, pageIDs []string) (int64, error) {
	if len(pageIDs) == 0 {
		return 0, nil
	}
	const q = `update pages set merged = false, merged_objects = null, merged_at = null where id = any($1)`
	res, err := r.DB.ExecContext(ctx, q, pageIDs)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (model.Page, error) {
	var (
		p          model.Page
		detections []byte
		objects    []byte
	)
	if err := row.Scan(&p.ID, &p.DocumentID, &p.Number, &detections, &p.Postprocessed, &p.Merged, &objects); err != nil {
		return model.Page{}, err
	}
	// Undecodable JSON is reported on the page so one bad row never fails
	// a whole fetch
	if detections != nil && string(detections) != "null" {
		if err := json.Unmarshal(detections, &p.Detections); err != nil {
			logger.Warn("Store", "decode detections of %s: %v", p.ID, err)
			p.Detections = nil
			p.LoadError = fmt.Sprintf("decode detections: %v", err)
		} else if p.Detections == nil {
			p.Detections = []model.Detection{}
		}
	}
	if objects != nil && string(objects) != "null" {
		if err := json.Unmarshal(objects, &p.Objects); err != nil {
			logger.Warn("Store", "decode merged objects of %s: %v", p.ID, err)
			p.Objects = nil
		}
	}
	return p, nil
}

// marshalNullable encodes v as JSON, or returns nil for SQL NULL
func marshalNullable(isNil bool, v any) ([]byte, error) {
	if isNil {
		return nil, nil
	}
	return json.Marshal(v)
}
