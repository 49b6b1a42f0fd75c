package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rls_tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, "tables:\n  - customers\n  - invoices\n")

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "invoices"}, m.Tables)
}

func TestLoadManifestRejectsEmpty(t *testing.T) {
	path := writeManifest(t, "tables: []\n")

	_, err := LoadManifest(path)
	assert.Error(t, err)
}

func TestLoadManifestRejectsUnsafeNames(t *testing.T) {
	tests := []string{
		"customers; DROP TABLE users",
		"Customers",
		"public.customers",
		"",
	}
	for _, name := range tests {
		path := writeManifest(t, "tables:\n  - \""+name+"\"\n")
		_, err := LoadManifest(path)
		assert.Error(t, err, "table name %q must be rejected", name)
	}
}

func TestPolicyPredicateFailsClosed(t *testing.T) {
	// NULLIF maps both unset and empty to NULL, which matches no rows.
	assert.Equal(t,
		"tenant_id = NULLIF(current_setting('app.current_tenant_id', true), '')::uuid",
		policyPredicate())
}

func TestTableStatusOK(t *testing.T) {
	full := TableStatus{Exists: true, RLSEnabled: true, RLSForced: true, PolicyPresent: true, HasTenantColumn: true}
	assert.True(t, full.OK())

	noForce := full
	noForce.RLSForced = false
	assert.False(t, noForce.OK())

	report := &VerifyReport{Tables: []TableStatus{full, noForce}}
	assert.False(t, report.OK())

	empty := &VerifyReport{}
	assert.False(t, empty.OK())
}
