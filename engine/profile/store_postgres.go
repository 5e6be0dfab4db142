package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// PostgresConfig configures the bun-backed store.
type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

type profileRecord struct {
	bun.BaseModel `bun:"table:onboarding_profiles,alias:op"`

	SubjectID string    `bun:"subject_id,pk"`
	Payload   []byte    `bun:"payload,type:jsonb,notnull"`
	Version   int64     `bun:"version,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// PostgresStore persists Profile snapshots as jsonb rows via bun.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	return &PostgresStore{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

// NewPostgresStoreFromDB wraps an existing bun.DB, mainly for tests.
func NewPostgresStoreFromDB(db *bun.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &PostgresStore{db: db}, nil
}

// Migrate creates the profiles table if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*profileRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create onboarding_profiles table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, subjectID string) (*Profile, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, ErrInvalidSubject
	}

	rec := new(profileRecord)
	err := s.db.NewSelect().
		Model(rec).
		Where("op.subject_id = ?", subjectID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile payload: %w", err)
	}
	p.EnsureFacetsMap()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile loaded from store: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) Save(ctx context.Context, p *Profile) error {
	if p == nil {
		return ErrNilProfile
	}
	if strings.TrimSpace(p.SubjectID) == "" {
		return ErrInvalidSubject
	}
	p.Version++
	p.EnsureFacetsMap()
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	} else {
		p.UpdatedAt = p.UpdatedAt.UTC()
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	rec := &profileRecord{
		SubjectID: p.SubjectID,
		Payload:   payload,
		Version:   p.Version,
		UpdatedAt: p.UpdatedAt,
	}

	_, err = s.db.NewInsert().
		Model(rec).
		On("CONFLICT (subject_id) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("version = EXCLUDED.version").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, subjectID string) error {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return ErrInvalidSubject
	}
	_, err := s.db.NewDelete().
		Model((*profileRecord)(nil)).
		Where("subject_id = ?", subjectID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
