package management

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ruleflow/internal/constants"
	"ruleflow/pkg/metrics"
)

const databasePostgres = "postgres"

type AuditEntry struct {
	EntityType string
	EntityID   string
	Operation  string
	TraceID    string
	Before     interface{}
	After      interface{}
}

// AuditLogger appends catalog changes to catalog_audit_logs.
type AuditLogger struct {
	db *sql.DB
}

func NewAuditLogger(db *sql.DB) *AuditLogger {
	return &AuditLogger{db: db}
}

func (a *AuditLogger) Log(ctx context.Context, entry AuditEntry) error {
	changes := map[string]interface{}{}
	if entry.Before != nil {
		changes["before"] = entry.Before
	}
	if entry.After != nil {
		changes["after"] = entry.After
	}
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("failed to marshal audit changes: %w", err)
	}

	query := `
		INSERT INTO catalog_audit_logs (entity_type, entity_id, operation, trace_id, changes)
		VALUES ($1, $2, $3, $4, $5)
	`

	start := time.Now()
	_, err = a.db.ExecContext(ctx, query, entry.EntityType, entry.EntityID, entry.Operation, entry.TraceID, changesJSON)
	recordQuery("insert_audit_log", start, err)
	if err != nil {
		return fmt.Errorf("failed to log audit entry: %w", err)
	}
	return nil
}

// List returns the newest entries first. An empty entityID lists every
// entry of entityType; an empty entityType lists everything.
func (a *AuditLogger) List(ctx context.Context, entityType, entityID string, limit int) ([]AuditLog, error) {
	query := `
		SELECT id, entity_type, entity_id, operation, trace_id, changes, created_at
		FROM catalog_audit_logs
		WHERE ($1 = '' OR entity_type = $1) AND ($2 = '' OR entity_id = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`

	start := time.Now()
	rows, err := a.db.QueryContext(ctx, query, entityType, entityID, limit)
	recordQuery("select_audit_logs", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := []AuditLog{}
	for rows.Next() {
		var log AuditLog
		var changesJSON []byte
		if err := rows.Scan(&log.ID, &log.EntityType, &log.EntityID, &log.Operation, &log.TraceID, &changesJSON, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if len(changesJSON) > 0 {
			if err := json.Unmarshal(changesJSON, &log.Changes); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit changes: %w", err)
			}
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit logs: %w", err)
	}
	return logs, nil
}

func recordQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery(constants.ServiceNameCatalog, databasePostgres, operation, status)
	metrics.ObserveDatabaseQueryDuration(constants.ServiceNameCatalog, databasePostgres, operation, time.Since(start))
}
