// Package memory persists conversation state: one plan snapshot per turn
// and the chat thread titles.
package memory

import (
	"context"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/FACorreiaa/plangenie/internal/app/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PlanStore reads and writes plan snapshots. Snapshots are append-only;
// the latest row per thread is the current plan.
type PlanStore struct {
	db     DB
	logger *zap.Logger
}

func NewPlanStore(db DB, logger *zap.Logger) *PlanStore {
	return &PlanStore{db: db, logger: logger}
}

// LoadLatest returns the newest plan for a thread, or nil when the thread
// has none yet.
func (s *PlanStore) LoadLatest(ctx context.Context, threadID string) (*models.Plan, error) {
	query, args, err := psql.
		Select("plan").
		From("trip_plans").
		Where(sq.Eq{"thread_id": threadID}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building plan query")
	}

	var raw []byte
	if err := s.db.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "loading latest plan")
	}

	var plan models.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, errors.Wrap(err, "decoding stored plan")
	}
	return &plan, nil
}

// Save appends a plan snapshot for the thread.
func (s *PlanStore) Save(ctx context.Context, threadID string, plan models.Plan, userMessage, assistantMessage string) error {
	raw, err := json.Marshal(plan)
	if err != nil {
		return errors.Wrap(err, "encoding plan")
	}

	query, args, err := psql.
		Insert("trip_plans").
		Columns("thread_id", "plan", "user_message", "assistant_message").
		Values(threadID, raw, userMessage, assistantMessage).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building plan insert")
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "saving plan")
	}
	s.logger.Debug("Plan snapshot saved", zap.String("thread_id", threadID))
	return nil
}

// UpsertTitle records the thread title, replacing any previous one.
func (s *PlanStore) UpsertTitle(ctx context.Context, threadID, title string) error {
	query, args, err := psql.
		Insert("chat_threads").
		Columns("id", "title").
		Values(threadID, title).
		Suffix("ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, updated_at = now()").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building title upsert")
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "saving thread title")
	}
	return nil
}

// Title returns the stored title for a thread, empty when unknown.
func (s *PlanStore) Title(ctx context.Context, threadID string) (string, error) {
	query, args, err := psql.
		Select("title").
		From("chat_threads").
		Where(sq.Eq{"id": threadID}).
		ToSql()
	if err != nil {
		return "", errors.Wrap(err, "building title query")
	}

	var title string
	if err := s.db.QueryRow(ctx, query, args...).Scan(&title); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", errors.Wrap(err, "loading thread title")
	}
	return title, nil
}
