package delivery

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store persists delivery records in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record appends a delivery to the log and returns its id. Bodies of rejected
// deliveries are not stored; only their size and digest are kept.
func (s *Store) Record(ctx context.Context, req RecordRequest) (string, error) {
	if req.Endpoint == "" {
		return "", fmt.Errorf("endpoint is empty")
	}

	id := uuid.NewString()
	status := StatusFor(req.Result)
	digest := blake3.Sum256(req.Body)

	var body any
	if status == StatusAccepted {
		body = req.Body
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO deliveries(
  id, endpoint, url, payload_kind, status, reason, matched_variant,
  body, body_size, body_digest, remote_addr, request_id, created_at
)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, id, req.Endpoint, req.URL, req.Result.Payload.String(), status, req.Result.Reason.String(), req.Result.Variant.String(),
		body, len(req.Body), hex.EncodeToString(digest[:]), req.RemoteAddr, req.RequestID,
		s.now().UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("record delivery: %w", err)
	}
	return id, nil
}

const selectColumns = `id, endpoint, url, payload_kind, status, reason, matched_variant,
  body, body_size, body_digest, remote_addr, request_id, created_at`

// Get returns a single delivery by id.
func (s *Store) Get(ctx context.Context, id string) (*Delivery, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM deliveries WHERE id = ?;`, id)
	d, err := scanDelivery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeliveryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	return d, nil
}

// List returns deliveries matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]*Delivery, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Endpoint != "" {
		where = append(where, "endpoint = ?")
		args = append(args, f.Endpoint)
	}

	query := `SELECT ` + selectColumns + ` FROM deliveries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?;`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var out []*Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return out, nil
}

// Prune deletes deliveries older than retention and returns how many were removed.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive")
	}
	cutoff := s.now().UTC().Add(-retention).Format(timeLayout)

	res, err := s.db.ExecContext(ctx, `DELETE FROM deliveries WHERE created_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}
	return n, nil
}

// Stats counts deliveries by status and reason.
func (s *Store) Stats(ctx context.Context) ([]StatRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT status, reason, COUNT(*)
FROM deliveries
GROUP BY status, reason
ORDER BY status, reason;
`)
	if err != nil {
		return nil, fmt.Errorf("delivery stats: %w", err)
	}
	defer rows.Close()

	var out []StatRow
	for rows.Next() {
		var (
			r       StatRow
			statusS string
		)
		if err := rows.Scan(&statusS, &r.Reason, &r.Count); err != nil {
			return nil, fmt.Errorf("scan delivery stats: %w", err)
		}
		r.Status = Status(statusS)
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row rowScanner) (*Delivery, error) {
	var (
		d          Delivery
		statusS    string
		body       []byte
		remoteAddr sql.NullString
		requestID  sql.NullString
		createdAtS string
	)
	err := row.Scan(
		&d.ID, &d.Endpoint, &d.URL, &d.PayloadKind, &statusS, &d.Reason, &d.MatchedVariant,
		&body, &d.BodySize, &d.BodyDigest, &remoteAddr, &requestID, &createdAtS,
	)
	if err != nil {
		return nil, err
	}

	d.Status = Status(statusS)
	if len(body) > 0 {
		d.Body = body
	}
	d.RemoteAddr = remoteAddr.String
	d.RequestID = requestID.String
	if t, err := time.Parse(timeLayout, createdAtS); err == nil {
		d.CreatedAt = t
	}
	return &d, nil
}
