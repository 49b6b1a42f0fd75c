package database

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"canopy/internal/shared/constants"
	"canopy/internal/shared/logger"
)

// identifierPattern restricts table names taken from the manifest before
// they are interpolated into DDL. Policy predicates themselves are static.
var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Manifest lists the tenant-scoped tables RLS must cover.
type Manifest struct {
	Tables []string `yaml:"tables"`
}

// LoadManifest reads the table manifest from a YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read RLS manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse RLS manifest: %w", err)
	}
	if len(m.Tables) == 0 {
		return nil, fmt.Errorf("RLS manifest %s lists no tables", path)
	}
	for _, table := range m.Tables {
		if !identifierPattern.MatchString(table) {
			return nil, fmt.Errorf("invalid table name in RLS manifest: %q", table)
		}
	}
	return &m, nil
}

// TableStatus is the per-table verification result.
type TableStatus struct {
	Table           string `json:"table"`
	Exists          bool   `json:"exists"`
	RLSEnabled      bool   `json:"rls_enabled"`
	RLSForced       bool   `json:"rls_forced"`
	PolicyPresent   bool   `json:"policy_present"`
	HasTenantColumn bool   `json:"has_tenant_column"`
}

// OK reports whether the table is fully covered.
func (s TableStatus) OK() bool {
	return s.Exists && s.RLSEnabled && s.RLSForced && s.PolicyPresent && s.HasTenantColumn
}

// VerifyReport aggregates verification across the manifest.
type VerifyReport struct {
	Tables []TableStatus `json:"tables"`
}

// OK reports whether every manifest table is fully covered.
func (r *VerifyReport) OK() bool {
	for _, t := range r.Tables {
		if !t.OK() {
			return false
		}
	}
	return len(r.Tables) > 0
}

// PolicyManager declares and verifies per-table row-level security. It
// runs on the maintenance connection; this is migration-time tooling, not
// a request hot path.
type PolicyManager struct {
	db       *gorm.DB
	manifest *Manifest
	log      logger.Interface
}

// NewPolicyManager creates a policy manager over the maintenance connection.
func NewPolicyManager(db *gorm.DB, manifest *Manifest, log logger.Interface) *PolicyManager {
	return &PolicyManager{db: db, manifest: manifest, log: log}
}

// policyPredicate matches a row iff its tenant_id equals the session's
// current tenant. An unset or empty parameter yields NULL, which matches
// no rows: no tenant bound means no tenant-scoped rows visible. There is
// no unset-equals-unrestricted escape hatch; maintenance work runs under a
// BYPASSRLS role instead.
func policyPredicate() string {
	return fmt.Sprintf(
		"tenant_id = NULLIF(current_setting('%s', true), '')::uuid",
		constants.TenantSessionParam,
	)
}

func policyName(table string) string {
	return "tenant_isolation_" + table
}

// EnableForTable enables and forces RLS on the table and creates the
// isolation policy. Idempotent: re-running across repeated deploys leaves
// exactly one policy in place.
func (m *PolicyManager) EnableForTable(ctx context.Context, table string) error {
	if !identifierPattern.MatchString(table) {
		return fmt.Errorf("invalid table name: %q", table)
	}

	tx := m.db.WithContext(ctx)

	// ENABLE/FORCE are natively idempotent.
	if err := tx.Exec(fmt.Sprintf("ALTER TABLE %s ENABLE ROW LEVEL SECURITY", table)).Error; err != nil {
		return fmt.Errorf("failed to enable RLS on %s: %w", table, err)
	}
	// FORCE so the table owner is covered too; only BYPASSRLS roles are exempt.
	if err := tx.Exec(fmt.Sprintf("ALTER TABLE %s FORCE ROW LEVEL SECURITY", table)).Error; err != nil {
		return fmt.Errorf("failed to force RLS on %s: %w", table, err)
	}

	exists, err := m.policyExists(ctx, table)
	if err != nil {
		return err
	}
	if exists {
		m.log.Debugw("RLS policy already present", "table", table)
		return nil
	}

	stmt := fmt.Sprintf(
		"CREATE POLICY %s ON %s USING (%s) WITH CHECK (%s)",
		policyName(table), table, policyPredicate(), policyPredicate(),
	)
	if err := tx.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to create RLS policy on %s: %w", table, err)
	}

	m.log.Infow("RLS policy created", "table", table, "policy", policyName(table))
	return nil
}

// EnableAll applies EnableForTable across the manifest.
func (m *PolicyManager) EnableAll(ctx context.Context) error {
	for _, table := range m.manifest.Tables {
		if err := m.EnableForTable(ctx, table); err != nil {
			return err
		}
	}
	return nil
}

func (m *PolicyManager) policyExists(ctx context.Context, table string) (bool, error) {
	var count int64
	err := m.db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM pg_policies WHERE schemaname = current_schema() AND tablename = ? AND policyname = ?",
			table, policyName(table)).
		Scan(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check policy on %s: %w", table, err)
	}
	return count > 0, nil
}

// Verify checks that RLS is enabled, forced, and backed by a policy and a
// tenant_id column for every manifest table.
func (m *PolicyManager) Verify(ctx context.Context) (*VerifyReport, error) {
	report := &VerifyReport{}

	for _, table := range m.manifest.Tables {
		status := TableStatus{Table: table}

		row := struct {
			RelRowSecurity      bool
			RelForceRowSecurity bool
		}{}
		err := m.db.WithContext(ctx).
			Raw(`SELECT relrowsecurity AS rel_row_security, relforcerowsecurity AS rel_force_row_security
			     FROM pg_class WHERE relname = ? AND relnamespace = (SELECT oid FROM pg_namespace WHERE nspname = current_schema())`,
				table).
			Scan(&row).Error
		if err != nil {
			return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
		}

		var tableCount int64
		if err := m.db.WithContext(ctx).
			Raw("SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?", table).
			Scan(&tableCount).Error; err != nil {
			return nil, fmt.Errorf("failed to check table %s: %w", table, err)
		}
		status.Exists = tableCount > 0
		status.RLSEnabled = row.RelRowSecurity
		status.RLSForced = row.RelForceRowSecurity

		if status.Exists {
			policyPresent, err := m.policyExists(ctx, table)
			if err != nil {
				return nil, err
			}
			status.PolicyPresent = policyPresent

			var columnCount int64
			if err := m.db.WithContext(ctx).
				Raw("SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? AND column_name = 'tenant_id'", table).
				Scan(&columnCount).Error; err != nil {
				return nil, fmt.Errorf("failed to check tenant_id column on %s: %w", table, err)
			}
			status.HasTenantColumn = columnCount > 0
		}

		if !status.OK() {
			m.log.Warnw("RLS coverage incomplete",
				"table", table,
				"exists", status.Exists,
				"rls_enabled", status.RLSEnabled,
				"rls_forced", status.RLSForced,
				"policy_present", status.PolicyPresent,
				"has_tenant_column", status.HasTenantColumn)
		}

		report.Tables = append(report.Tables, status)
	}

	return report, nil
}
