package commands

import (
	"fmt"
	"io"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/declmeta/internal/cli/config"
	"github.com/conduit-lang/declmeta/internal/cli/logging"
	"github.com/conduit-lang/declmeta/internal/docs"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// app carries the state shared by every subcommand. It is filled in by the
// root command's PersistentPreRunE.
type app struct {
	configFile string
	verbose    bool
	noColor    bool

	cfg      *config.Config
	logger   *zap.Logger
	prompter Prompter
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{prompter: surveyPrompter{}})
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "declmeta",
		Short: "Expand semantic trees into definition metadata",
		Long: color.CyanString(`declmeta - definition metadata extraction

declmeta reads a semantic tree fixture and emits a metadata tree with one
Definition or Import node per top-level declaration. Module members are
classified against the modules they inherit from:

  • local      declared only here
  • inherited  same definition as a parent's member
  • override   redefines a parent's member`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (default: declmeta.yml searched upwards)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newDescribeCommand(a))
	rootCmd.AddCommand(newHierarchyCommand(a))
	rootCmd.AddCommand(newIndexCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newWatchCommand(a))

	return rootCmd
}

// init loads configuration and builds the logger
func (a *app) init() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.noColor {
		color.NoColor = true
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Verbose:     a.verbose,
	})
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// docsProvider builds the documentation provider sized by configuration
func (a *app) docsProvider() (*docs.Provider, error) {
	return docs.NewProvider(a.cfg.Docs.CacheSize)
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the declmeta version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	goVer := GoVersion
	if goVer == "unknown" {
		goVer = runtime.Version()
	}

	titleColor := color.New(color.FgCyan, color.Bold)
	valueColor := color.New(color.FgWhite)

	for _, row := range [][2]string{
		{"declmeta version: ", Version},
		{"Git commit: ", GitCommit},
		{"Build date: ", BuildDate},
		{"Go version: ", goVer},
	} {
		titleColor.Fprint(w, row[0])
		valueColor.Fprintln(w, row[1])
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

func requireFixture(args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("expected exactly one fixture path")
	}
	return args[0], nil
}
