package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lu-zhengda/appsweep/internal/catalog"
	"github.com/lu-zhengda/appsweep/internal/config"
	"github.com/lu-zhengda/appsweep/internal/engine"
	"github.com/lu-zhengda/appsweep/internal/history"
	"github.com/lu-zhengda/appsweep/internal/identity"
	"github.com/lu-zhengda/appsweep/internal/logging"
	"github.com/lu-zhengda/appsweep/internal/process"
	"github.com/lu-zhengda/appsweep/internal/remover"
	"github.com/lu-zhengda/appsweep/internal/residual"
	"github.com/lu-zhengda/appsweep/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	yoloMode    bool
	jsonFlag    bool
	verboseFlag bool
	configPath  string
	appConfig   *config.Config
	logger      *slog.Logger

	// Set via ldflags at build time.
	version = "dev"
)

// Collaborators replaced in tests.
var (
	newController = func() process.Controller { return process.NewSystem() }
	newReader     = func() identity.Reader { return identity.DefaultsReader{} }
	historyPath   = history.DefaultPath

	stdin           io.Reader = os.Stdin
	stdinIsTerminal           = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	stderrIsTerminal          = func() bool { return term.IsTerminal(int(os.Stderr.Fd())) }
)

var rootCmd = &cobra.Command{
	Use:     "appsweep",
	Short:   "Remove macOS applications and the files they leave behind",
	Long:    "appsweep finds installed applications, the support files, caches and preferences\nthey leave in ~/Library, and removes them together.\nLaunch without subcommands for interactive TUI mode.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Flags().Changed("version") {
			appConfig = config.Default()
			logger = logging.Discard()
			return nil
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		appConfig = cfg

		level, _ := logging.ParseLevel(cfg.LogLevel)
		if verboseFlag {
			level = slog.LevelDebug
		}
		logger = logging.New(os.Stderr, level)
		slog.SetDefault(logger)

		if cmd.Name() != configValidateCmd.Name() {
			for _, w := range appConfig.Validate() {
				fmt.Fprintf(os.Stderr, "warning: %s\n", w)
			}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if shell, _ := cmd.Flags().GetString("generate-completion"); shell != "" {
			switch shell {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", shell)
			}
		}

		// Anything written to stderr would corrupt the alt screen.
		logger = logging.Discard()
		m := tui.New(buildEngine(), buildRemover(), recordRemoval)
		p := tea.NewProgram(m, tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("appsweep %s\n", version))
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().BoolVar(&yoloMode, "yolo", false, "Skip ALL confirmation prompts (dangerous!)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log debug details to stderr")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.config/appsweep/config.yaml)")
	rootCmd.Flags().String("generate-completion", "", "Generate shell completion (bash, zsh, fish)")
	rootCmd.Flags().MarkHidden("generate-completion")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(orphansCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

// RootCmd returns the root cobra command for documentation generation.
func RootCmd() *cobra.Command {
	return rootCmd
}

// shouldSkipConfirm returns true if the user wants to skip confirmation,
// either via command-specific --yes or global --yolo.
func shouldSkipConfirm(cmdYes bool) bool {
	return cmdYes || yoloMode
}

// printYoloWarning prints a warning banner when --yolo mode is active.
func printYoloWarning() {
	if yoloMode {
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "  WARNING: --yolo mode is active. All confirmations will be skipped!")
		fmt.Fprintln(os.Stderr, "  Files will be deleted without asking. Press Ctrl+C NOW to abort.")
		fmt.Fprintln(os.Stderr, "")
	}
}

func currentConfig() *config.Config {
	if appConfig == nil {
		appConfig = config.Default()
	}
	return appConfig
}

func currentLogger() *slog.Logger {
	if logger == nil {
		logger = logging.Discard()
	}
	return logger
}

func buildEngine() *engine.Engine {
	cfg := currentConfig()
	log := currentLogger()

	e := engine.New(
		catalog.New(cfg.SystemRoot(), cfg.UserRoot(), log),
		identity.NewResolver(newReader(), log),
		residual.NewFinder(cfg.LibraryDir(), log),
		log,
	)
	e.SetConcurrency(cfg.Workers())
	e.SetExcludeFunc(cfg.IsExcluded)
	return e
}

func buildRemover() *remover.Remover {
	return remover.New(newController(),
		remover.WithGracePeriod(currentConfig().Grace()),
		remover.WithLogger(currentLogger()),
	)
}
