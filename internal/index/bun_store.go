package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-wpsync/internal/identity"
	"github.com/goliatone/go-wpsync/internal/markdown"
	"github.com/goliatone/go-wpsync/internal/syncerr"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var ErrEntryNotFound = errors.New("index entry not found")

// EntryRecord is one index entry stored in the database mirror. Data holds
// the entry exactly as it appears in the JSON artifact.
type EntryRecord struct {
	bun.BaseModel `bun:"table:wpsync_index_entries,alias:ie"`

	ID           uuid.UUID `bun:",pk,type:uuid" json:"id"`
	Slug         string    `bun:"slug,notnull" json:"slug"`
	Position     int       `bun:"position,notnull,default:0" json:"position"`
	Title        string    `bun:"title" json:"title,omitempty"`
	Status       string    `bun:"status" json:"status,omitempty"`
	PostID       *int64    `bun:"post_id" json:"post_id,omitempty"`
	PublishedURL string    `bun:"published_url" json:"published_url,omitempty"`
	Data         string    `bun:"data,notnull" json:"data"`
	RebuiltAt    time.Time `bun:"rebuilt_at,notnull" json:"rebuilt_at"`
}

// NewEntryRepository creates a go-repository-bun repository for index rows.
func NewEntryRepository(db *bun.DB) repository.Repository[*EntryRecord] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*EntryRecord]{
		NewRecord: func() *EntryRecord { return &EntryRecord{} },
		GetID: func(rec *EntryRecord) uuid.UUID {
			return rec.ID
		},
		SetID: func(rec *EntryRecord, id uuid.UUID) {
			rec.ID = id
		},
		GetIdentifier: func() string {
			return "slug"
		},
		GetIdentifierValue: func(rec *EntryRecord) string {
			return rec.Slug
		},
	})
}

// OpenDB opens a bun database for driver ("sqlite3" or "postgres").
func OpenDB(driver, dsn string) (*bun.DB, error) {
	switch strings.TrimSpace(driver) {
	case DriverSQLite:
		sqlDB, err := sql.Open(DriverSQLite, dsn)
		if err != nil {
			return nil, err
		}
		db := bun.NewDB(sqlDB, sqlitedialect.New())
		db.SetMaxOpenConns(1)
		return db, nil
	case DriverPostgres:
		sqlDB, err := sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, err
		}
		return bun.NewDB(sqlDB, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("index: unsupported database driver %q", driver)
	}
}

// BunStore mirrors the index artifact into a table so it can be queried
// with SQL.
type BunStore struct {
	db   *bun.DB
	repo repository.Repository[*EntryRecord]
}

// NewBunStore returns a mirror backed by db.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db, repo: NewEntryRepository(db)}
}

// EnsureSchema creates the entries table when missing.
func (s *BunStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*EntryRecord)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Replace swaps the table content for the artifact's entries in one
// transaction.
func (s *BunStore) Replace(ctx context.Context, artifact *Artifact) error {
	rebuiltAt, err := time.Parse(markdown.TimestampLayout, artifact.RebuiltAt)
	if err != nil {
		rebuiltAt = time.Now().UTC()
	}

	records := make([]*EntryRecord, 0, len(artifact.Articles))
	for position, entry := range artifact.Articles {
		rec, err := newEntryRecord(position, entry, rebuiltAt)
		if err != nil {
			return syncerr.Fatal(err, goerrors.CategoryInternal, syncerr.TextCodeIndexWriteFailed, "encode index entry")
		}
		records = append(records, rec)
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*EntryRecord)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("clear index entries: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&records).Exec(ctx); err != nil {
			return fmt.Errorf("insert index entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return syncerr.Fatal(err, goerrors.CategoryInternal, syncerr.TextCodeIndexWriteFailed, "mirror index")
	}
	return nil
}

// Get returns the first entry whose slug matches.
func (s *BunStore) Get(ctx context.Context, slug string) (*EntryRecord, error) {
	rec, err := s.repo.GetByIdentifier(ctx, slug)
	if err != nil {
		if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, slug)
		}
		return nil, err
	}
	return rec, nil
}

// List returns every entry in artifact order.
func (s *BunStore) List(ctx context.Context) ([]*EntryRecord, error) {
	records, _, err := s.repo.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order("position ASC")
	}))
	return records, err
}

func newEntryRecord(position int, entry *markdown.Frontmatter, rebuiltAt time.Time) (*EntryRecord, error) {
	data, err := entry.MarshalJSON()
	if err != nil {
		return nil, err
	}
	slug := entry.String("slug")
	return &EntryRecord{
		ID:           identity.IndexEntryID(strconv.Itoa(position) + ":" + slug),
		Slug:         slug,
		Position:     position,
		Title:        entry.String("title"),
		Status:       entry.String("status"),
		PostID:       postIDOf(entry),
		PublishedURL: entry.String("publishedUrl"),
		Data:         string(data),
		RebuiltAt:    rebuiltAt,
	}, nil
}

func postIDOf(entry *markdown.Frontmatter) *int64 {
	if !entry.Truthy("postId") {
		return nil
	}
	id, err := strconv.ParseInt(entry.String("postId"), 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
