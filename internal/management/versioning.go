package management

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// errVersionTaken is returned when a concurrent writer stored the same
// version number first.
var errVersionTaken = errors.New("version already taken")

// VersionStore keeps every saved state of a rule or action.
type VersionStore interface {
	SaveVersion(ctx context.Context, entityType, entityID, changedBy string, data interface{}) (*Version, error)
	Versions(ctx context.Context, entityType, entityID string) ([]Version, error)
	Version(ctx context.Context, entityType, entityID string, version int) (*Version, error)
}

type PostgresVersionStore struct {
	db *sql.DB
}

func NewVersionStore(db *sql.DB) *PostgresVersionStore {
	return &PostgresVersionStore{db: db}
}

const versionRetries = 3

// SaveVersion stores data under the next free version number, retrying when
// another writer claims the same number.
func (s *PostgresVersionStore) SaveVersion(ctx context.Context, entityType, entityID, changedBy string, data interface{}) (*Version, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal version data: %w", err)
	}
	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal version data: %w", err)
	}

	for attempt := 0; attempt < versionRetries; attempt++ {
		next, err := s.nextVersion(ctx, entityType, entityID)
		if err != nil {
			return nil, err
		}

		v := &Version{
			ID:         uuid.NewString(),
			EntityType: entityType,
			EntityID:   entityID,
			Version:    next,
			Data:       asMap,
			ChangedBy:  changedBy,
			CreatedAt:  time.Now().UTC(),
		}
		err = s.insert(ctx, v, raw)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, errVersionTaken) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to save version of %s %s: %w", entityType, entityID, errVersionTaken)
}

func (s *PostgresVersionStore) insert(ctx context.Context, v *Version, raw []byte) error {
	query := `
		INSERT INTO catalog_versions (id, entity_type, entity_id, version, data, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	start := time.Now()
	_, err := s.db.ExecContext(ctx, query, v.ID, v.EntityType, v.EntityID, v.Version, raw, v.ChangedBy, v.CreatedAt)
	recordQuery("insert_version", start, err)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return errVersionTaken
		}
		return fmt.Errorf("failed to create version: %w", err)
	}
	return nil
}

func (s *PostgresVersionStore) nextVersion(ctx context.Context, entityType, entityID string) (int, error) {
	query := `SELECT COALESCE(MAX(version), 0) + 1 FROM catalog_versions WHERE entity_type = $1 AND entity_id = $2`

	var next int
	start := time.Now()
	err := s.db.QueryRowContext(ctx, query, entityType, entityID).Scan(&next)
	recordQuery("next_version", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to get next version: %w", err)
	}
	return next, nil
}

func (s *PostgresVersionStore) Versions(ctx context.Context, entityType, entityID string) ([]Version, error) {
	query := `
		SELECT id, entity_type, entity_id, version, data, changed_by, created_at
		FROM catalog_versions
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY version DESC
	`

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, entityType, entityID)
	recordQuery("select_versions", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()

	versions := []Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read versions: %w", err)
	}
	return versions, nil
}

// Version returns nil without error when the version does not exist.
func (s *PostgresVersionStore) Version(ctx context.Context, entityType, entityID string, version int) (*Version, error) {
	query := `
		SELECT id, entity_type, entity_id, version, data, changed_by, created_at
		FROM catalog_versions
		WHERE entity_type = $1 AND entity_id = $2 AND version = $3
	`

	start := time.Now()
	v, err := scanVersion(s.db.QueryRowContext(ctx, query, entityType, entityID, version))
	if errors.Is(err, sql.ErrNoRows) {
		recordQuery("select_version", start, nil)
		return nil, nil
	}
	recordQuery("select_version", start, err)
	if err != nil {
		return nil, err
	}
	return v, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanVersion(row scanner) (*Version, error) {
	var v Version
	var raw []byte
	if err := row.Scan(&v.ID, &v.EntityType, &v.EntityID, &v.Version, &raw, &v.ChangedBy, &v.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan version: %w", err)
	}
	if err := json.Unmarshal(raw, &v.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal version data: %w", err)
	}
	return &v, nil
}
