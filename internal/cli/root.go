package cli

import (
	"context"
	"fmt"

	"github.com/martijn/snapchain/internal/adapter/engine/borg"
	"github.com/martijn/snapchain/internal/adapter/engine/rsync"
	"github.com/martijn/snapchain/internal/adapter/process"
	"github.com/martijn/snapchain/internal/core/domain"
	"github.com/martijn/snapchain/internal/core/engine"
	"github.com/martijn/snapchain/internal/core/repository"
	"github.com/martijn/snapchain/internal/core/service"
	"github.com/martijn/snapchain/internal/infrastructure/sqlite"
	"github.com/martijn/snapchain/internal/logging"
	"github.com/martijn/snapchain/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	cfgFile  string
	logLevel string
	workDir  string
	cfg      *config.Config
	logger   *logrus.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "snapchain",
	Short: "snapchain - chained incremental backups with retention policies",
	Long: `snapchain manages point-in-time backup archives made by borg or rsync.

It provides:
- Repository discovery through .snapchain.yml marker files
- Incremental backups chained to the previous archive
- Cascading backups of enclosing parent repositories
- Retention policies: last, first, older, newer, all or interactive
- A local journal of every backup and delete`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}

		logger, err = logging.New(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return err
		}

		return nil
	},
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/snapchain/config.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "directory", "C", ".", "start repository discovery from this directory")
}

// initServices initializes all services. prompter may be nil for commands
// that never ask the operator anything.
func initServices(ctx context.Context, prompter service.Prompter) (*Services, error) {
	services := &Services{}

	// Initialize the run journal
	var runRepo repository.RunRepository
	if cfg.HistoryEnabled() {
		db, err := sqlite.New(cfg.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize history database: %w", err)
		}
		services.DB = db
		runRepo = sqlite.NewRunRepository(db)
	}

	// Initialize engines
	runner := process.NewRunner(logger, cfg.CommandTimeout)
	services.Engines = engine.NewRegistry(
		borg.New(cfg.BorgBin, runner, logger),
		rsync.New(cfg.RsyncBin, runner, logger),
	)

	// Initialize services
	services.RunService = service.NewRunService(runRepo, logger)
	services.Locator = service.NewLocator()
	services.CatalogService = service.NewCatalogService(services.Engines)
	services.ChainService = service.NewChainService(services.Engines, services.Locator, config.LoadRepository, services.RunService, logger)
	if prompter != nil {
		services.PurgeService = service.NewPurgeService(services.Engines, services.CatalogService, services.RunService, prompter, logger)
	}

	return services, nil
}

// Services holds all initialized services
type Services struct {
	DB             *sqlite.DB
	Engines        *engine.Registry
	Locator        *service.Locator
	RunService     *service.RunService
	CatalogService *service.CatalogService
	ChainService   *service.ChainService
	PurgeService   *service.PurgeService
}

// CurrentRepository locates and loads the repository enclosing the start
// directory.
func (s *Services) CurrentRepository() (*domain.Repository, error) {
	root, err := s.Locator.LocateRoot(workDir)
	if err != nil {
		return nil, fmt.Errorf("not inside a snapchain repository (no %s found): %w", domain.MarkerFileName, err)
	}
	return config.LoadRepository(root)
}

// Close closes all resources
func (s *Services) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}
