package sql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinforge/shell-registry/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db, "sqlite3"), mock
}

func TestGetShellCreatedAt(t *testing.T) {
	store, mock := newMockStore(t)
	createdAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT created_at FROM shells WHERE external_id = ?`)).
		WithArgs("urn:shell:1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	got, err := store.GetShellCreatedAt(context.Background(), "urn:shell:1")
	require.NoError(t, err)
	assert.True(t, got.Equal(createdAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetShellCreatedAtNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT created_at FROM shells WHERE external_id = ?`)).
		WithArgs("urn:shell:missing").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))

	_, err := store.GetShellCreatedAt(context.Background(), "urn:shell:missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetShellByExternalIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, external_id, id_short, created_at FROM shells WHERE external_id = ?`)).
		WithArgs("urn:shell:missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id", "id_short", "created_at"}))

	_, err := store.GetShellByExternalID(context.Background(), "urn:shell:missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListShellsAfterHydratesChildren(t *testing.T) {
	store, mock := newMockStore(t)
	createdAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, external_id, id_short, created_at FROM shells\s+WHERE created_at > \? OR \(created_at = \? AND external_id > \?\)\s+ORDER BY created_at, external_id\s+LIMIT \?`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id", "id_short", "created_at"}).
			AddRow("shell-1", "urn:shell:1", "Gearbox", createdAt))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT shell_id, name, value, external_subject_ids FROM shell_attributes WHERE shell_id IN (?) ORDER BY name, value`)).
		WithArgs("shell-1").
		WillReturnRows(sqlmock.NewRows([]string{"shell_id", "name", "value", "external_subject_ids"}).
			AddRow("shell-1", "manufacturerPartId", "MPI-1", `["BPNL00000000PTNR"]`))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, shell_id, id_short, semantic_id FROM shell_submodels WHERE shell_id IN (?) ORDER BY id`)).
		WithArgs("shell-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "shell_id", "id_short", "semantic_id"}).
			AddRow("sm-1", "shell-1", "", "urn:semantic:bom"))

	shells, err := store.ListShellsAfter(context.Background(), time.Time{}, "", 10)
	require.NoError(t, err)
	require.Len(t, shells, 1)
	assert.Equal(t, "urn:shell:1", shells[0].ExternalID)
	require.Len(t, shells[0].Attributes, 1)
	assert.Equal(t, []string{"BPNL00000000PTNR"}, shells[0].Attributes[0].ExternalSubjectIDs)
	require.Len(t, shells[0].Submodels, 1)
	assert.Equal(t, "urn:semantic:bom", shells[0].Submodels[0].SemanticID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateShellUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO shells (id, external_id, id_short, created_at) VALUES (?, ?, ?, ?)`)).
		WillReturnError(errors.New("UNIQUE constraint failed: shells.external_id"))
	mock.ExpectRollback()

	err := store.CreateShell(context.Background(), &domain.Shell{
		ID:         "shell-1",
		ExternalID: "urn:shell:1",
		CreatedAt:  time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchValidRules(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	policyJSON := `{"bpn":"BPNL00000000PTNR","mandatorySpecificAssetIds":[{"name":"partType","value":"gearbox"}],"visibleSpecificAssetIdNames":["manufacturerPartId"],"visibleSemanticIds":null}`

	mock.ExpectQuery(`SELECT id, owner_tenant, target_tenant, policy_type, policy, description, valid_from, valid_to, created_at, updated_at\s+FROM access_rules\s+WHERE target_tenant IN \(\?, \?\)`).
		WithArgs("BPNL00000000PTNR", "PUBLIC_READABLE", now, now).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_tenant", "target_tenant", "policy_type", "policy",
			"description", "valid_from", "valid_to", "created_at", "updated_at",
		}).AddRow("rule-1", "BPNL000000000OWN", "BPNL00000000PTNR", "AAS", policyJSON, "", nil, nil, now, now))

	rules, err := store.FetchValidRules(context.Background(), "BPNL00000000PTNR", "PUBLIC_READABLE", now)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "BPNL00000000PTNR", rules[0].Policy.BPN)
	require.Len(t, rules[0].Policy.MandatoryAttributes, 1)
	assert.Equal(t, domain.AttributePair{Name: "partType", Value: "gearbox"}, rules[0].Policy.MandatoryAttributes[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchValidRulesMalformedPolicy(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM access_rules`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_tenant", "target_tenant", "policy_type", "policy",
			"description", "valid_from", "valid_to", "created_at", "updated_at",
		}).AddRow("rule-1", "BPNL000000000OWN", "BPNL00000000PTNR", "AAS", "{not json", "", nil, nil, now, now))

	_, err := store.FetchValidRules(context.Background(), "BPNL00000000PTNR", "PUBLIC_READABLE", now)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAccessRuleNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM access_rules WHERE id = ?`)).
		WithArgs("rule-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteAccessRule(context.Background(), "rule-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAccessRuleNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE access_rules`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateAccessRule(context.Background(), &domain.AccessRule{ID: "rule-missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteShellCascades(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM shells WHERE external_id = ?`)).
		WithArgs("urn:shell:1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("shell-1"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM shell_attributes WHERE shell_id = ?`)).
		WithArgs("shell-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM shell_submodels WHERE shell_id = ?`)).
		WithArgs("shell-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM shells WHERE id = ?`)).
		WithArgs("shell-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.DeleteShell(context.Background(), "urn:shell:1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
