// Package sql implements the storage interface on top of SQLite or
// PostgreSQL via sqlx, with goose-managed migrations.
package sql

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/twinforge/shell-registry/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New creates a new SQL store and runs pending migrations.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// NewWithDB wraps an existing connection without running migrations.
// Intended for tests driving the store against a mock driver.
func NewWithDB(db *sql.DB, driver string) *Store {
	return &Store{db: sqlx.NewDb(db, driver), driver: driver}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type shellRow struct {
	ID         string    `db:"id"`
	ExternalID string    `db:"external_id"`
	IDShort    string    `db:"id_short"`
	CreatedAt  time.Time `db:"created_at"`
}

type attributeRow struct {
	ShellID            string `db:"shell_id"`
	Name               string `db:"name"`
	Value              string `db:"value"`
	ExternalSubjectIDs string `db:"external_subject_ids"`
}

type submodelRow struct {
	ID         string `db:"id"`
	ShellID    string `db:"shell_id"`
	IDShort    string `db:"id_short"`
	SemanticID string `db:"semantic_id"`
}

type ruleRow struct {
	ID           string     `db:"id"`
	OwnerTenant  string     `db:"owner_tenant"`
	TargetTenant string     `db:"target_tenant"`
	PolicyType   string     `db:"policy_type"`
	Policy       string     `db:"policy"`
	Description  string     `db:"description"`
	ValidFrom    *time.Time `db:"valid_from"`
	ValidTo      *time.Time `db:"valid_to"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func (s *Store) CreateShell(ctx context.Context, shell *domain.Shell) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := s.db.Rebind(`INSERT INTO shells (id, external_id, id_short, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, query, shell.ID, shell.ExternalID, shell.IDShort, shell.CreatedAt.UTC()); err != nil {
		return wrapUniqueError(err)
	}

	attrQuery := s.db.Rebind(`INSERT INTO shell_attributes (id, shell_id, name, value, external_subject_ids) VALUES (?, ?, ?, ?, ?)`)
	for _, attr := range shell.Attributes {
		markers, err := json.Marshal(attr.ExternalSubjectIDs)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, attrQuery, uuid.New().String(), shell.ID, attr.Name, attr.Value, string(markers)); err != nil {
			return err
		}
	}

	subQuery := s.db.Rebind(`INSERT INTO shell_submodels (id, shell_id, id_short, semantic_id) VALUES (?, ?, ?, ?)`)
	for _, submodel := range shell.Submodels {
		if _, err := tx.ExecContext(ctx, subQuery, submodel.ID, shell.ID, submodel.IDShort, submodel.SemanticID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) GetShellByExternalID(ctx context.Context, externalID string) (*domain.Shell, error) {
	var row shellRow
	query := s.db.Rebind(`SELECT id, external_id, id_short, created_at FROM shells WHERE external_id = ?`)
	if err := s.db.GetContext(ctx, &row, query, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	shells, err := s.hydrateShells(ctx, []shellRow{row})
	if err != nil {
		return nil, err
	}
	return shells[0], nil
}

func (s *Store) DeleteShell(ctx context.Context, externalID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id string
	query := s.db.Rebind(`SELECT id FROM shells WHERE external_id = ?`)
	if err := tx.GetContext(ctx, &id, query, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	for _, stmt := range []string{
		`DELETE FROM shell_attributes WHERE shell_id = ?`,
		`DELETE FROM shell_submodels WHERE shell_id = ?`,
		`DELETE FROM shells WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(stmt), id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) CountShells(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM shells`); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) GetShellCreatedAt(ctx context.Context, externalID string) (time.Time, error) {
	var createdAt time.Time
	query := s.db.Rebind(`SELECT created_at FROM shells WHERE external_id = ?`)
	if err := s.db.GetContext(ctx, &createdAt, query, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, domain.ErrNotFound
		}
		return time.Time{}, err
	}
	return createdAt, nil
}

func (s *Store) ListShellsAfter(ctx context.Context, after time.Time, afterID string, limit int) ([]*domain.Shell, error) {
	var rows []shellRow
	query := s.db.Rebind(`
		SELECT id, external_id, id_short, created_at FROM shells
		WHERE created_at > ? OR (created_at = ? AND external_id > ?)
		ORDER BY created_at, external_id
		LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, query, after.UTC(), after.UTC(), afterID, limit); err != nil {
		return nil, err
	}
	return s.hydrateShells(ctx, rows)
}

func (s *Store) FindShellsByAttributes(ctx context.Context, pairs []domain.AttributePair, after time.Time, afterID string, limit int) ([]domain.ShellContext, error) {
	var rows []shellRow
	if len(pairs) == 0 {
		query := s.db.Rebind(`
			SELECT id, external_id, id_short, created_at FROM shells
			WHERE created_at > ? OR (created_at = ? AND external_id > ?)
			ORDER BY created_at, external_id
			LIMIT ?`)
		if err := s.db.SelectContext(ctx, &rows, query, after.UTC(), after.UTC(), afterID, limit); err != nil {
			return nil, err
		}
	} else {
		combos := make([]string, 0, len(pairs))
		for _, pair := range pairs {
			combos = append(combos, pair.Name+pair.Value)
		}
		query, args, err := sqlx.In(`
			SELECT s.id, s.external_id, s.id_short, s.created_at
			FROM shells s
			JOIN shell_attributes a ON a.shell_id = s.id
			WHERE (a.name || a.value) IN (?)
			  AND (s.created_at > ? OR (s.created_at = ? AND s.external_id > ?))
			GROUP BY s.id, s.external_id, s.id_short, s.created_at
			HAVING COUNT(DISTINCT a.name || a.value) = ?
			ORDER BY s.created_at, s.external_id
			LIMIT ?`,
			combos, after.UTC(), after.UTC(), afterID, len(combos), limit)
		if err != nil {
			return nil, err
		}
		if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
			return nil, err
		}
	}

	shells, err := s.hydrateShells(ctx, rows)
	if err != nil {
		return nil, err
	}
	contexts := make([]domain.ShellContext, 0, len(shells))
	for _, shell := range shells {
		contexts = append(contexts, domain.ShellContext{
			ExternalID: shell.ExternalID,
			CreatedAt:  shell.CreatedAt,
			Attributes: shell.Attributes,
		})
	}
	return contexts, nil
}

// hydrateShells loads attributes and submodels for the given shell rows,
// preserving row order.
func (s *Store) hydrateShells(ctx context.Context, rows []shellRow) ([]*domain.Shell, error) {
	shells := make([]*domain.Shell, 0, len(rows))
	if len(rows) == 0 {
		return shells, nil
	}
	ids := make([]string, 0, len(rows))
	byID := make(map[string]*domain.Shell, len(rows))
	for _, row := range rows {
		shell := &domain.Shell{
			ID:         row.ID,
			ExternalID: row.ExternalID,
			IDShort:    row.IDShort,
			CreatedAt:  row.CreatedAt,
			Attributes: []domain.Attribute{},
			Submodels:  []domain.Submodel{},
		}
		shells = append(shells, shell)
		byID[row.ID] = shell
		ids = append(ids, row.ID)
	}

	attrQuery, attrArgs, err := sqlx.In(`SELECT shell_id, name, value, external_subject_ids FROM shell_attributes WHERE shell_id IN (?) ORDER BY name, value`, ids)
	if err != nil {
		return nil, err
	}
	var attrRows []attributeRow
	if err := s.db.SelectContext(ctx, &attrRows, s.db.Rebind(attrQuery), attrArgs...); err != nil {
		return nil, err
	}
	for _, row := range attrRows {
		var markers []string
		if row.ExternalSubjectIDs != "" {
			if err := json.Unmarshal([]byte(row.ExternalSubjectIDs), &markers); err != nil {
				return nil, fmt.Errorf("decoding attribute markers: %w", err)
			}
		}
		shell := byID[row.ShellID]
		shell.Attributes = append(shell.Attributes, domain.Attribute{
			Name:               row.Name,
			Value:              row.Value,
			ExternalSubjectIDs: markers,
		})
	}

	subQuery, subArgs, err := sqlx.In(`SELECT id, shell_id, id_short, semantic_id FROM shell_submodels WHERE shell_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	var subRows []submodelRow
	if err := s.db.SelectContext(ctx, &subRows, s.db.Rebind(subQuery), subArgs...); err != nil {
		return nil, err
	}
	for _, row := range subRows {
		shell := byID[row.ShellID]
		shell.Submodels = append(shell.Submodels, domain.Submodel{
			ID:         row.ID,
			IDShort:    row.IDShort,
			SemanticID: row.SemanticID,
		})
	}

	return shells, nil
}

func (s *Store) CreateAccessRule(ctx context.Context, rule *domain.AccessRule) error {
	policy, err := json.Marshal(rule.Policy)
	if err != nil {
		return err
	}
	query := s.db.Rebind(`
		INSERT INTO access_rules (id, owner_tenant, target_tenant, policy_type, policy, description, valid_from, valid_to, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		rule.ID, rule.OwnerTenant, rule.TargetTenant, string(rule.PolicyType), string(policy),
		rule.Description, rule.ValidFrom, rule.ValidTo, rule.CreatedAt.UTC(), rule.UpdatedAt.UTC())
	return wrapUniqueError(err)
}

func (s *Store) GetAccessRule(ctx context.Context, id string) (*domain.AccessRule, error) {
	var row ruleRow
	query := s.db.Rebind(`SELECT id, owner_tenant, target_tenant, policy_type, policy, description, valid_from, valid_to, created_at, updated_at FROM access_rules WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return ruleFromRow(row)
}

func (s *Store) ListAccessRules(ctx context.Context) ([]*domain.AccessRule, error) {
	var rows []ruleRow
	query := `SELECT id, owner_tenant, target_tenant, policy_type, policy, description, valid_from, valid_to, created_at, updated_at FROM access_rules ORDER BY created_at, id`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	rules := make([]*domain.AccessRule, 0, len(rows))
	for _, row := range rows {
		rule, err := ruleFromRow(row)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (s *Store) UpdateAccessRule(ctx context.Context, rule *domain.AccessRule) error {
	policy, err := json.Marshal(rule.Policy)
	if err != nil {
		return err
	}
	query := s.db.Rebind(`
		UPDATE access_rules
		SET target_tenant = ?, policy = ?, description = ?, valid_from = ?, valid_to = ?, updated_at = ?
		WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query,
		rule.TargetTenant, string(policy), rule.Description, rule.ValidFrom, rule.ValidTo, rule.UpdatedAt.UTC(), rule.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAccessRule(ctx context.Context, id string) error {
	query := s.db.Rebind(`DELETE FROM access_rules WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) FetchValidRules(ctx context.Context, tenant, wildcardMarker string, now time.Time) ([]domain.AccessRule, error) {
	var rows []ruleRow
	query := s.db.Rebind(`
		SELECT id, owner_tenant, target_tenant, policy_type, policy, description, valid_from, valid_to, created_at, updated_at
		FROM access_rules
		WHERE target_tenant IN (?, ?)
		  AND (valid_from IS NULL OR valid_from <= ?)
		  AND (valid_to IS NULL OR valid_to >= ?)
		ORDER BY id`)
	if err := s.db.SelectContext(ctx, &rows, query, tenant, wildcardMarker, now.UTC(), now.UTC()); err != nil {
		return nil, err
	}
	rules := make([]domain.AccessRule, 0, len(rows))
	for _, row := range rows {
		rule, err := ruleFromRow(row)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, nil
}

func ruleFromRow(row ruleRow) (*domain.AccessRule, error) {
	var policy domain.AccessRulePolicy
	if err := json.Unmarshal([]byte(row.Policy), &policy); err != nil {
		return nil, fmt.Errorf("decoding rule policy: %w", err)
	}
	return &domain.AccessRule{
		ID:           row.ID,
		OwnerTenant:  row.OwnerTenant,
		TargetTenant: row.TargetTenant,
		PolicyType:   domain.PolicyType(row.PolicyType),
		Policy:       policy,
		Description:  row.Description,
		ValidFrom:    row.ValidFrom,
		ValidTo:      row.ValidTo,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}
