package main

import (
	"context"
	"os"

	"github.com/pterm/pterm"

	"github.com/pff-protocol/presence-core/internal/authreq"
	"github.com/pff-protocol/presence-core/internal/binding"
	"github.com/pff-protocol/presence-core/internal/config"
	"github.com/pff-protocol/presence-core/internal/logger"
	"github.com/pff-protocol/presence-core/internal/server"
	"github.com/pff-protocol/presence-core/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "presenced",
	Short: "Cross-device presence authorization broker",
	Long: `presenced hosts the authorization request broker that lets one verified
device approve a login on another, and enforces per-license device binding.`,
	Run: runServer,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags()
	rootCmd.PersistentFlags().AddFlagSet(pflag.CommandLine)
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
}

func runServer(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		pterm.Error.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitLogger(&cfg.Logging); err != nil {
		pterm.Error.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	app := fx.New(
		fx.Supply(cfg),
		storage.Module,
		binding.Module,
		authreq.Module,
		server.Module,
		fx.Invoke(func(lc fx.Lifecycle, stores storage.Stores) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error { return stores.Close() },
			})
		}),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.GetLogger()}
		}),
	)

	app.Run()
	if err := app.Err(); err != nil {
		logger.Error("application error", zap.Error(err))
		os.Exit(1)
	}
}
