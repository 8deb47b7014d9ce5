package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"kitmatch/internal/matching/models"
	pgplatform "kitmatch/internal/platform/postgres"
	id "kitmatch/pkg/domain"
	dErrors "kitmatch/pkg/domain-errors"
	"kitmatch/pkg/platform/sentinel"
	txcontext "kitmatch/pkg/platform/tx"
)

// PostgresStore persists matching records in PostgreSQL.
type PostgresStore struct {
	db      *sql.DB
	tx      *sql.Tx
	timeout time.Duration
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, timeout: defaultTxTimeout}
}

// WithTimeout returns a copy whose transactions default to d.
func (s *PostgresStore) WithTimeout(d time.Duration) *PostgresStore {
	out := *s
	if d > 0 {
		out.timeout = d
	}
	return &out
}

func (s *PostgresStore) q(ctx context.Context) txcontext.Querier {
	if s.tx != nil {
		return s.tx
	}
	return txcontext.Or(ctx, s.db)
}

// RunInTx runs fn inside a database transaction. The store and context passed
// to fn both carry the transaction, so other Postgres stores called with that
// context (audit) join it. A transaction already in ctx is joined, not nested.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if s.tx != nil {
		return fn(ctx, s)
	}
	if tx, ok := txcontext.From(ctx); ok {
		return fn(ctx, &PostgresStore{db: s.db, tx: tx, timeout: s.timeout})
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), &PostgresStore{db: s.db, tx: tx, timeout: s.timeout}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("commit transaction", err)
	}
	return nil
}

func (s *PostgresStore) InsertDonor(ctx context.Context, donor *models.Donor) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO donors (id, name, phone, kit_type, post_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(donor.ID), donor.Name, donor.Phone, string(donor.Kit), uuid.UUID(donor.PostID), donor.Active, donor.CreatedAt,
	)
	if err != nil {
		return wrapErr("insert donor", err)
	}
	return nil
}

func (s *PostgresStore) InsertReceiver(ctx context.Context, r *models.Receiver) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO receivers (id, name, phone, city, neighborhood, clinical, kit_type, post_id, notes, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(r.ID), r.Name, r.Phone, r.City, r.Neighborhood, r.Clinical, string(r.Kit), uuid.UUID(r.PostID), r.Notes, r.Active, r.CreatedAt,
	)
	if err != nil {
		return wrapErr("insert receiver", err)
	}
	return nil
}

const donorColumns = `d.id, d.name, d.phone, d.kit_type, d.post_id, d.active, d.created_at`

const receiverColumns = `r.id, r.name, r.phone, r.city, r.neighborhood, r.clinical, r.kit_type, r.post_id, r.notes, r.active, r.created_at`

func (s *PostgresStore) GetDonor(ctx context.Context, donorID id.DonorID) (*models.Donor, error) {
	return s.donor(ctx, "get donor", `SELECT `+donorColumns+` FROM donors d WHERE d.id = $1`, uuid.UUID(donorID))
}

func (s *PostgresStore) LockDonor(ctx context.Context, donorID id.DonorID) (*models.Donor, error) {
	return s.donor(ctx, "lock donor", `SELECT `+donorColumns+` FROM donors d WHERE d.id = $1 FOR UPDATE`, uuid.UUID(donorID))
}

// ClaimDonor locks the oldest eligible donor. Rows locked by concurrent
// transactions are skipped rather than waited for.
func (s *PostgresStore) ClaimDonor(ctx context.Context, postID id.PostID, kit id.KitType) (*models.Donor, error) {
	return s.donor(ctx, "claim donor", `
		SELECT `+donorColumns+`
		FROM donors d
		WHERE d.post_id = $1 AND d.kit_type = $2 AND d.active
		  AND NOT EXISTS (SELECT 1 FROM matches m WHERE m.donor_id = d.id AND NOT m.is_completed)
		ORDER BY d.created_at, d.id
		LIMIT 1
		FOR UPDATE OF d SKIP LOCKED`,
		uuid.UUID(postID), string(kit),
	)
}

func (s *PostgresStore) GetReceiver(ctx context.Context, receiverID id.ReceiverID) (*models.Receiver, error) {
	return s.receiver(ctx, "get receiver", `SELECT `+receiverColumns+` FROM receivers r WHERE r.id = $1`, uuid.UUID(receiverID))
}

func (s *PostgresStore) LockReceiver(ctx context.Context, receiverID id.ReceiverID) (*models.Receiver, error) {
	return s.receiver(ctx, "lock receiver", `SELECT `+receiverColumns+` FROM receivers r WHERE r.id = $1 FOR UPDATE`, uuid.UUID(receiverID))
}

// ClaimReceiver locks the oldest eligible receiver, skipping locked rows.
func (s *PostgresStore) ClaimReceiver(ctx context.Context, postID id.PostID, kit id.KitType) (*models.Receiver, error) {
	return s.receiver(ctx, "claim receiver", `
		SELECT `+receiverColumns+`
		FROM receivers r
		WHERE r.post_id = $1 AND r.kit_type = $2 AND r.active
		  AND NOT EXISTS (SELECT 1 FROM matches m WHERE m.receiver_id = r.id AND NOT m.is_completed)
		ORDER BY r.created_at, r.id
		LIMIT 1
		FOR UPDATE OF r SKIP LOCKED`,
		uuid.UUID(postID), string(kit),
	)
}

func (s *PostgresStore) HasOpenMatchForDonor(ctx context.Context, donorID id.DonorID) (bool, error) {
	return s.exists(ctx, "open match for donor",
		`SELECT EXISTS (SELECT 1 FROM matches WHERE donor_id = $1 AND NOT is_completed)`, uuid.UUID(donorID))
}

func (s *PostgresStore) HasOpenMatchForReceiver(ctx context.Context, receiverID id.ReceiverID) (bool, error) {
	return s.exists(ctx, "open match for receiver",
		`SELECT EXISTS (SELECT 1 FROM matches WHERE receiver_id = $1 AND NOT is_completed)`, uuid.UUID(receiverID))
}

func (s *PostgresStore) LatestReceiverMatchAt(ctx context.Context, receiverID id.ReceiverID) (time.Time, bool, error) {
	var latest sql.NullTime
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM matches WHERE receiver_id = $1`, uuid.UUID(receiverID),
	).Scan(&latest)
	if err != nil {
		return time.Time{}, false, wrapErr("latest receiver match", err)
	}
	return latest.Time, latest.Valid, nil
}

// InsertMatch inserts an open match. A pickup code collision does not abort
// the transaction: the insert is skipped and ErrAlreadyUsed returned so the
// caller can retry with another code.
func (s *PostgresStore) InsertMatch(ctx context.Context, m *models.Match) error {
	var inserted uuid.UUID
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO matches (id, donor_id, receiver_id, post_id, kit_type, pickup_code, is_completed, notified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (pickup_code) DO NOTHING
		RETURNING id`,
		uuid.UUID(m.ID), uuid.UUID(m.DonorID), uuid.UUID(m.ReceiverID), uuid.UUID(m.PostID),
		string(m.Kit), m.PickupCode, m.IsCompleted, m.Notified, m.CreatedAt,
	).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return wrapErr("insert match", err)
	}
	return nil
}

func (s *PostgresStore) DeactivateDonor(ctx context.Context, donorID id.DonorID) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE donors SET active = false WHERE id = $1 AND active`, uuid.UUID(donorID))
	if err != nil {
		return wrapErr("deactivate donor", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("deactivate donor", err)
	}
	if n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

const matchColumns = `id, donor_id, receiver_id, post_id, kit_type, pickup_code, is_completed, completed_at, completed_by, notified, notified_at, created_at`

func (s *PostgresStore) GetMatch(ctx context.Context, matchID id.MatchID) (*models.Match, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, uuid.UUID(matchID))
	m, err := scanMatch(row)
	if err != nil {
		return nil, wrapErr("get match", err)
	}
	return m, nil
}

func (s *PostgresStore) GetMatchByCode(ctx context.Context, code string) (*models.Match, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE pickup_code = $1`, code)
	m, err := scanMatch(row)
	if err != nil {
		return nil, wrapErr("get match by code", err)
	}
	return m, nil
}

func (s *PostgresStore) ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	var (
		where []string
		args  []any
	)
	if filter.PostID != nil {
		args = append(args, uuid.UUID(*filter.PostID))
		where = append(where, fmt.Sprintf("post_id = $%d", len(args)))
	}
	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		where = append(where, fmt.Sprintf("is_completed = $%d", len(args)))
	}
	if len(filter.Kits) > 0 {
		kits := make([]string, 0, len(filter.Kits))
		for _, k := range filter.Kits {
			kits = append(kits, string(k))
		}
		args = append(args, pq.Array(kits))
		where = append(where, fmt.Sprintf("kit_type = ANY($%d)", len(args)))
	}

	query := `SELECT ` + matchColumns + ` FROM matches`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.matches(ctx, "list matches", query, args...)
}

func (s *PostgresStore) MarkNotified(ctx context.Context, matchID id.MatchID, at time.Time) (bool, error) {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE matches SET notified = true, notified_at = $2 WHERE id = $1 AND NOT notified`,
		uuid.UUID(matchID), at)
	if err != nil {
		return false, wrapErr("mark notified", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr("mark notified", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) CompleteMatch(ctx context.Context, matchID id.MatchID, code string, by id.OperatorID, at time.Time) (bool, error) {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE matches SET is_completed = true, completed_at = $4, completed_by = $3
		WHERE id = $1 AND pickup_code = $2 AND NOT is_completed`,
		uuid.UUID(matchID), code, uuid.UUID(by), at)
	if err != nil {
		return false, wrapErr("complete match", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr("complete match", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) ListNotifiedSince(ctx context.Context, since time.Time) ([]*models.Match, error) {
	return s.matches(ctx, "list notified matches",
		`SELECT `+matchColumns+` FROM matches WHERE notified AND notified_at >= $1 ORDER BY notified_at, id`, since)
}

func (s *PostgresStore) ActiveDonorWithPhone(ctx context.Context, phone string) (bool, error) {
	return s.exists(ctx, "active donor with phone",
		`SELECT EXISTS (SELECT 1 FROM donors WHERE phone = $1 AND active)`, phone)
}

func (s *PostgresStore) ActiveReceiverWith(ctx context.Context, phone string, kit id.KitType, postID id.PostID) (bool, error) {
	return s.exists(ctx, "active receiver duplicate",
		`SELECT EXISTS (SELECT 1 FROM receivers WHERE phone = $1 AND kit_type = $2 AND post_id = $3 AND active)`,
		phone, string(kit), uuid.UUID(postID))
}

func (s *PostgresStore) donor(ctx context.Context, op, query string, args ...any) (*models.Donor, error) {
	var (
		d             models.Donor
		donorID, post uuid.UUID
		kit           string
	)
	err := s.q(ctx).QueryRowContext(ctx, query, args...).Scan(
		&donorID, &d.Name, &d.Phone, &kit, &post, &d.Active, &d.CreatedAt,
	)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	d.ID = id.DonorID(donorID)
	d.PostID = id.PostID(post)
	d.Kit = id.KitType(kit)
	return &d, nil
}

func (s *PostgresStore) receiver(ctx context.Context, op, query string, args ...any) (*models.Receiver, error) {
	var (
		r                models.Receiver
		receiverID, post uuid.UUID
		kit              string
	)
	err := s.q(ctx).QueryRowContext(ctx, query, args...).Scan(
		&receiverID, &r.Name, &r.Phone, &r.City, &r.Neighborhood, &r.Clinical, &kit, &post, &r.Notes, &r.Active, &r.CreatedAt,
	)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	r.ID = id.ReceiverID(receiverID)
	r.PostID = id.PostID(post)
	r.Kit = id.KitType(kit)
	return &r, nil
}

func (s *PostgresStore) exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	var found bool
	if err := s.q(ctx).QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, wrapErr(op, err)
	}
	return found, nil
}

func (s *PostgresStore) matches(ctx context.Context, op, query string, args ...any) ([]*models.Match, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	out := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m                              models.Match
		matchID, donor, receiver, post uuid.UUID
		kit                            string
		completedAt, notifiedAt        sql.NullTime
		completedBy                    uuid.NullUUID
	)
	if err := row.Scan(
		&matchID, &donor, &receiver, &post, &kit, &m.PickupCode,
		&m.IsCompleted, &completedAt, &completedBy, &m.Notified, &notifiedAt, &m.CreatedAt,
	); err != nil {
		return nil, err
	}
	m.ID = id.MatchID(matchID)
	m.DonorID = id.DonorID(donor)
	m.ReceiverID = id.ReceiverID(receiver)
	m.PostID = id.PostID(post)
	m.Kit = id.KitType(kit)
	if completedAt.Valid {
		t := completedAt.Time
		m.CompletedAt = &t
	}
	if completedBy.Valid {
		by := id.OperatorID(completedBy.UUID)
		m.CompletedBy = &by
	}
	if notifiedAt.Valid {
		t := notifiedAt.Time
		m.NotifiedAt = &t
	}
	return &m, nil
}

// wrapErr maps driver errors onto store sentinels.
func wrapErr(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return sentinel.ErrNotFound
	case pgplatform.IsUnavailable(err):
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
	if _, ok := pgplatform.UniqueViolation(err); ok {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
