package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ruleflow/internal/constants"
	"ruleflow/pkg/metrics"
	"ruleflow/pkg/models"
)

// PostgresSink stores records in execution_records. Rewriting the same
// execution id is a no-op.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

const insertExecutionRecord = `
	INSERT INTO execution_records (
		id, rule_id, trigger_id, trigger_type, customer_id, matched, status,
		error_class, duration_ms, record, started_at, finished_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO NOTHING
`

func (s *PostgresSink) Write(ctx context.Context, record models.ExecutionRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal execution record: %w", err)
	}

	errorClass := ""
	if record.Error != nil {
		errorClass = record.Error.Class
	}

	start := time.Now()
	_, err = s.db.ExecContext(ctx, insertExecutionRecord,
		record.ID, record.RuleID, record.Trigger.ID, string(record.Trigger.Type),
		record.Trigger.CustomerID, record.Matched, string(record.Status),
		errorClass, record.Duration().Milliseconds(), raw,
		record.StartedAt, record.FinishedAt,
	)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery(constants.ServiceNameEngine, "postgres", "insert_execution_record", status)
	metrics.ObserveDatabaseQueryDuration(constants.ServiceNameEngine, "postgres", "insert_execution_record", time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to insert execution record: %w", err)
	}
	return nil
}

// Recent returns the latest records for a rule, newest first.
func (s *PostgresSink) Recent(ctx context.Context, ruleID string, limit int) ([]models.ExecutionRecord, error) {
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT record FROM execution_records
		WHERE rule_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution records: %w", err)
	}
	defer rows.Close()

	var out []models.ExecutionRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan execution record: %w", err)
		}
		var record models.ExecutionRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("failed to decode execution record: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
