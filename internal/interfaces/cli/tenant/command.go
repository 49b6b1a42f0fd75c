package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"canopy/internal/application/consistency"
	onboardingapp "canopy/internal/application/onboarding"
	tenantapp "canopy/internal/application/tenant"
	"canopy/internal/infrastructure/config"
	"canopy/internal/infrastructure/database"
	"canopy/internal/infrastructure/email"
	"canopy/internal/infrastructure/repository"
	"canopy/internal/shared/constants"
	"canopy/internal/shared/db"
	"canopy/internal/shared/logger"
)

var (
	env        string
	configPath string
	dryRun     bool
	apply      bool
	repair     bool
	ownerID    string
	interval   time.Duration
	serverURL  string
	serviceKey string
)

// NewCommand builds the tenant administration command tree. Every
// subcommand runs on the maintenance (BYPASSRLS) connection because the
// operations are inherently cross-tenant.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant administration tools",
		Long:  `Consolidate duplicate tenants, repair onboarding records, verify row-level security and inspect the session pool.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config directory (default: ./configs)")

	cmd.AddCommand(
		newConsolidateCommand(),
		newFixOnboardingCommand(),
		newVerifyRLSCommand(),
		newEnableRLSCommand(),
		newCheckCommand(),
		newMonitorConnectionsCommand(),
	)

	return cmd
}

// toolbox bundles the services the subcommands share.
type toolbox struct {
	consolidator      *tenantapp.Consolidator
	onboardingService *onboardingapp.Service
	checker           *consistency.Checker
	policies          *database.PolicyManager
}

func setup() (*toolbox, error) {
	cfg, err := config.Load(env, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger, env != "production"); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := database.InitMaintenance(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize maintenance connection: %w", err)
	}

	log := logger.NewLogger().With("component", "tenant-cli")
	gdb := database.GetMaintenance()

	tenantRepo := repository.NewTenantRepository(gdb, log)
	userRepo := repository.NewUserRepository(gdb, log)
	onboardingRepo := repository.NewOnboardingRepository(gdb, log)
	txManager := db.NewTransactionManager(gdb)

	manifest, err := database.LoadManifest(cfg.RLS.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load RLS manifest: %w", err)
	}
	policies := database.NewPolicyManager(gdb, manifest, log)

	tenantService := tenantapp.NewService(tenantRepo, userRepo, onboardingRepo, txManager, nil, log)
	onboardingService := onboardingapp.NewService(onboardingRepo, userRepo, tenantService, email.NewSMTPNotifier(&cfg.Email), log)

	return &toolbox{
		consolidator:      tenantapp.NewConsolidator(tenantRepo, userRepo, onboardingRepo, txManager, nil, gdb, log),
		onboardingService: onboardingService,
		checker:           consistency.NewChecker(userRepo, tenantRepo, onboardingService, policies, gdb, log),
		policies:          policies,
	}, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func newConsolidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge duplicate tenants per owner",
		Long:  `Find owners holding multiple live tenants and merge each set into the winner: the tenant with the most scoped rows, oldest on a tie. Scoped rows, member links and onboarding records move to the winner; losers are soft deleted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tb, err := setup()
			if err != nil {
				return err
			}
			defer database.Close()

			ctx := context.Background()
			var report *tenantapp.ConsolidationReport
			if ownerID != "" {
				owner, err := uuid.Parse(ownerID)
				if err != nil {
					return fmt.Errorf("malformed owner id: %w", err)
				}
				report, err = tb.consolidator.ConsolidateOwner(ctx, owner, dryRun)
				if err != nil {
					return err
				}
			} else {
				report, err = tb.consolidator.Consolidate(ctx, dryRun)
				if err != nil {
					return err
				}
			}
			return printJSON(report)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan the merges without writing anything")
	cmd.Flags().StringVar(&ownerID, "owner", "", "Consolidate a single owner's tenants")
	return cmd
}

func newFixOnboardingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix-onboarding",
		Short: "Rebind onboarding records whose tenant disagrees with the user's tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			tb, err := setup()
			if err != nil {
				return err
			}
			defer database.Close()

			report, err := tb.onboardingService.Repair(context.Background(), apply)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Write the fixes instead of only reporting them")
	return cmd
}

func newVerifyRLSCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-rls",
		Short: "Verify row-level security posture of every manifest table",
		RunE: func(cmd *cobra.Command, args []string) error {
			tb, err := setup()
			if err != nil {
				return err
			}
			defer database.Close()

			report, err := tb.policies.Verify(context.Background())
			if err != nil {
				return err
			}
			if err := printJSON(report); err != nil {
				return err
			}
			if !report.OK() {
				return fmt.Errorf("some tables are unprotected")
			}
			return nil
		},
	}
}

func newEnableRLSCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enable-rls",
		Short: "Enable and force row-level security on every manifest table",
		RunE: func(cmd *cobra.Command, args []string) error {
			tb, err := setup()
			if err != nil {
				return err
			}
			defer database.Close()

			ctx := context.Background()
			if err := tb.policies.EnableAll(ctx); err != nil {
				return err
			}
			report, err := tb.policies.Verify(ctx)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the full consistency audit",
		Long:  `Audit broken user-tenant links, onboarding mismatches, RLS posture and duplicate owners. Exits non-zero when inconsistencies remain.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tb, err := setup()
			if err != nil {
				return err
			}
			defer database.Close()

			report, err := tb.checker.Check(context.Background(), repair)
			if err != nil {
				return err
			}
			if err := printJSON(report); err != nil {
				return err
			}
			if !report.Healthy() {
				return fmt.Errorf("inconsistencies found")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "Apply repairs instead of only reporting")
	return cmd
}

// newMonitorConnectionsCommand reads the session pool stats from a
// running server. The pool lives in the server process, so the CLI asks
// over HTTP instead of pretending to have one of its own.
func newMonitorConnectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor-connections",
		Short: "Show the session pool stats of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serviceKey == "" {
				serviceKey = os.Getenv("CANOPY_SERVICE_KEY")
			}

			if interval <= 0 {
				return fetchPoolStats()
			}
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				if err := fetchPoolStats(); err != nil {
					return err
				}
				<-ticker.C
			}
		},
	}
	cmd.Flags().StringVar(&serverURL, "url", "http://localhost:8080", "Base URL of the running server")
	cmd.Flags().StringVar(&serviceKey, "service-key", "", "Service key (or CANOPY_SERVICE_KEY)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll repeatedly at this interval (0 = once)")
	return cmd
}

func fetchPoolStats() error {
	req, err := http.NewRequest(http.MethodGet, serverURL+"/admin/connections", nil)
	if err != nil {
		return err
	}
	req.Header.Set(constants.HeaderXServiceKey, serviceKey)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var pretty map[string]any
	if err := json.Unmarshal(body, &pretty); err != nil {
		return err
	}
	return printJSON(pretty)
}
