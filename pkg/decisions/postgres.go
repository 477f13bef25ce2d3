package decisions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/otherjamesbrown/penf-outreach/pkg/channels"
	"github.com/otherjamesbrown/penf-outreach/pkg/engine"
)

// querier is the subset of *pgxpool.Pool the store needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresStore persists decisions in the channel_decisions table.
type PostgresStore struct {
	db querier
}

// NewPostgresStore returns a store backed by db, usually a *pgxpool.Pool.
func NewPostgresStore(db querier) *PostgresStore {
	return &PostgresStore{db: db}
}

const insertDecisionSQL = `
	INSERT INTO channel_decisions (
		id, request_id, customer_id, message_type, effective_intent,
		channel, base_channel, reason, success_probability, overridden,
		total_engagement, preferred_channel, segment, adjustments, decided_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (id) DO NOTHING
`

// Record implements Recorder.
func (s *PostgresStore) Record(ctx context.Context, d Decision) error {
	args, err := insertArgs(d)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, insertDecisionSQL, args...); err != nil {
		return fmt.Errorf("inserting decision %s: %w", d.ID, err)
	}
	return nil
}

// WriteBatch inserts all decisions in one round trip.
func (s *PostgresStore) WriteBatch(ctx context.Context, batch []Decision) error {
	if len(batch) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, d := range batch {
		args, err := insertArgs(d)
		if err != nil {
			return err
		}
		b.Queue(insertDecisionSQL, args...)
	}

	results := s.db.SendBatch(ctx, b)
	defer results.Close()

	for range batch {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("inserting decision batch: %w", err)
		}
	}
	return nil
}

// ListByCustomer returns up to limit decisions for a customer, newest first.
func (s *PostgresStore) ListByCustomer(ctx context.Context, customerID string, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, request_id, customer_id, message_type, effective_intent,
		       channel, base_channel, reason, success_probability, overridden,
		       total_engagement, preferred_channel, segment, adjustments, decided_at
		FROM channel_decisions
		WHERE customer_id = $1
		ORDER BY decided_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var (
			d           Decision
			intent      string
			channel     string
			base        string
			preferred   string
			segment     string
			adjustments []byte
		)
		if err := rows.Scan(
			&d.ID, &d.RequestID, &d.CustomerID, &d.MessageType, &intent,
			&channel, &base, &d.Reason, &d.SuccessProbability, &d.Overridden,
			&d.TotalEngagement, &preferred, &segment, &adjustments, &d.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		d.EffectiveIntent = channels.Intent(intent)
		d.Channel = channels.Channel(channel)
		d.BaseChannel = channels.Channel(base)
		d.PreferredChannel = channels.Channel(preferred)
		d.Segment = channels.Segment(segment)
		if len(adjustments) > 0 {
			var adj []engine.Adjustment
			if err := json.Unmarshal(adjustments, &adj); err != nil {
				return nil, fmt.Errorf("decoding adjustments of %s: %w", d.ID, err)
			}
			if len(adj) > 0 {
				d.Adjustments = adj
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func insertArgs(d Decision) ([]any, error) {
	adjustments := d.Adjustments
	if adjustments == nil {
		adjustments = []engine.Adjustment{}
	}
	adj, err := json.Marshal(adjustments)
	if err != nil {
		return nil, fmt.Errorf("encoding adjustments: %w", err)
	}
	return []any{
		d.ID, d.RequestID, d.CustomerID, d.MessageType, string(d.EffectiveIntent),
		string(d.Channel), string(d.BaseChannel), d.Reason, d.SuccessProbability, d.Overridden,
		d.TotalEngagement, string(d.PreferredChannel), string(d.Segment), adj, d.Timestamp,
	}, nil
}
