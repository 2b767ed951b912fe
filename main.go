package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"dndstake/pkg/actions"
	"dndstake/pkg/analytics"
	"dndstake/pkg/config"
	"dndstake/pkg/home"
	"dndstake/pkg/metrics"
	"dndstake/pkg/server"
	"dndstake/pkg/store"
	"dndstake/pkg/tui"
	"dndstake/pkg/wallet"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Version should be set during build
var Version = "dev"

// errInvalidConfig is returned after the self test has already reported why.
var errInvalidConfig = errors.New("invalid configuration")

type options struct {
	configPath string
	test       bool
	jsonOut    bool
	dryRun     bool
	version    bool
	server     bool
	port       int
	restore    bool
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errInvalidConfig) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "dndstake [config]",
		Short: "Terminal staking dashboard for DynoChain",
		Long: `Watch validators, balances and network stake on DynoChain and
stake or unstake DND from the terminal.

The signing key is read from the environment variable named by
private_key_env (DNDSTAKE_PRIVATE_KEY by default). Without it the
dashboard runs read-only.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "path to configuration file")
	flags.BoolVarP(&opts.test, "test", "t", false, "test configuration and exit")
	flags.BoolVar(&opts.jsonOut, "json", false, "output test results as JSON")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "perform a trial run with no changes made")
	flags.BoolVar(&opts.version, "version", false, "print version and exit")
	flags.BoolVar(&opts.server, "server", false, "run in headless server mode")
	flags.IntVar(&opts.port, "port", 8080, "port for API server")
	flags.BoolVar(&opts.restore, "restore-backup", false, "restore the most recent configuration backup and exit")
	return cmd
}

func run(ctx context.Context, out io.Writer, opts *options, args []string) error {
	if opts.version {
		fmt.Fprintf(out, "dndstake version %s\n", Version)
		return nil
	}

	cfgInput := opts.configPath
	if cfgInput == "" && len(args) > 0 {
		cfgInput = args[0]
	}
	path, err := config.GetConfigPath(cfgInput)
	if err != nil {
		return fmt.Errorf("determining config path: %w", err)
	}

	if opts.restore {
		if err := config.RestoreLastBackup(path); err != nil {
			return fmt.Errorf("restoring backup of %s: %w", path, err)
		}
		fmt.Fprintf(out, "Restored last backup of %s\n", path)
		return nil
	}

	cfg, err := config.LoadConfigFromFile(path)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", path, err)
	}

	if opts.test {
		report, ok := selfTest(cfg, path, opts.dryRun, opts.jsonOut, out)
		if opts.jsonOut {
			_ = writeReport(out, report)
		}
		if !ok {
			return errInvalidConfig
		}
		return nil
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("config %s: %w", path, errors.Join(errs...))
	}

	logger, closeLog, err := newLogger(cfg, opts.server)
	if err != nil {
		return err
	}
	defer closeLog()

	w, err := wallet.FromEnv(cfg.PrivateKeyEnv)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := store.New(cfg.RPCURLs, cfg.ValidatorNames())
	switch {
	case w.CanSign():
		if cfg.Account != "" && !strings.EqualFold(cfg.Account, w.Address()) {
			logger.Warn("configured account differs from signing key, using the key", "account", cfg.Account, "key_address", w.Address())
		}
		st.SetAccountAddress(w.Address())
	case cfg.Account != "":
		st.SetAccountAddress(cfg.Account)
	}
	if cfg.SelectedValidator != "" {
		st.SelectValidator(cfg.SelectedValidator)
	}

	var tracker analytics.Tracker = analytics.Noop{}
	if cfg.Analytics.Enabled() {
		tracker = analytics.NewGA4(cfg.Analytics.MeasurementID, cfg.Analytics.APISecret, cfg.Analytics.ClientID)
	}

	dispatcher := actions.NewDispatcher(st, cfg.Contracts, w, logger)
	ctrl := home.NewController(st, dispatcher, tracker, cfg.PollInterval(), logger)
	exporter := metrics.NewExporter(st, metrics.DefaultPrefix)

	go dispatcher.WatchNetwork(ctx, cfg.PollInterval())
	go ctrl.Run(ctx)
	go exporter.Start(ctx)

	srv := server.NewServer(st, exporter.Registry(), logger)
	go func() {
		if err := srv.Start(ctx, opts.port); err != nil {
			logger.Error("server error", "err", err)
		}
	}()

	if opts.server {
		logger.Info("running in server mode", "port", opts.port, "read_only", !w.CanSign())
		<-ctx.Done()
		ctrl.Wait()
		return nil
	}

	err = tui.Start(ctx, ctrl, st, cfg, path, !w.CanSign(), Version)
	stop()
	ctrl.Wait()
	return err
}

// newLogger writes to stderr in server mode. The TUI owns the terminal, so
// there logs go to the configured file or nowhere.
func newLogger(cfg config.Config, serverMode bool) (*log.Logger, func(), error) {
	if serverMode {
		return log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true}), func() {}, nil
	}
	if cfg.LogFile == "" {
		return log.New(io.Discard), func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger := log.NewWithOptions(f, log.Options{ReportTimestamp: true, Level: log.DebugLevel})
	return logger, func() { _ = f.Close() }, nil
}
