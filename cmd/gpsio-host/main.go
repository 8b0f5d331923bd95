package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/gpsio/gpsio-host/internal/config"
	"github.com/gpsio/gpsio-host/internal/device"
	"github.com/gpsio/gpsio-host/internal/host"
	"github.com/gpsio/gpsio-host/internal/ipc"
	"github.com/gpsio/gpsio-host/internal/logging"
	"github.com/gpsio/gpsio-host/internal/report"
	"github.com/gpsio/gpsio-host/internal/tracks"
	"github.com/gpsio/gpsio-host/internal/transfer"
)

var configPath string

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gpsio-host: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gpsio-host",
		Short: "Native messaging host for the GPSIO browser extension",
		Long: "gpsio-host moves tracks and waypoints between the GPSIO browser extension and a GPS unit.\n\n" +
			"Run without a subcommand it serves one native-messaging request on stdin/stdout;\n" +
			"the browser starts it that way. The subcommands are for checking a setup by hand.",
		// Browsers pass the caller origin, the manifest path, the extension id
		// and on Windows --parent-window; none of them matter here.
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE:               runHost,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $GPSIO_CONFIG or config.json next to the executable)")

	rootCmd.AddCommand(pingCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(waitCmd())
	rootCmd.AddCommand(historyCmd())
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// runHost serves one request. stdout belongs to the wire protocol, so
// nothing else may be printed there.
func runHost(cmd *cobra.Command, args []string) error {
	if isTerminal(os.Stdin) {
		cmd.SetOut(os.Stderr)
		return cmd.Help()
	}

	cfg, err := loadConfig()
	if err != nil {
		// A broken config file must not leave the extension without an answer.
		fmt.Fprintf(os.Stderr, "gpsio-host: %v; using defaults\n", err)
		cfg = config.Default()
	}

	return host.Run(cfg, os.Stdin, os.Stdout)
}

func pingCmd() *cobra.Command {
	var hostPath string

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Start a host the way the browser does and send ping-host",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hostPath == "" {
				exe, err := os.Executable()
				if err != nil {
					return fmt.Errorf("locate executable: %w", err)
				}
				hostPath = exe
			}

			version, err := ipc.NewClient(hostPath).Ping(cmd.Context())
			if err != nil {
				fmt.Println("host did not answer")
				return err
			}

			fmt.Printf("host is alive (protocol version %d)\n", version)
			return nil
		},
	}

	cmd.Flags().StringVar(&hostPath, "host", "", "host executable to test (default: this binary)")
	return cmd
}

func scanCmd() *cobra.Command {
	var (
		method     string
		recent     int
		first      int
		hours      float64
		maxSize    string
		jsonOutput bool
		wait       bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List GPX files on a mass-storage GPS and which an import would send",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			opts := tracks.Options{Method: tracks.ParseMethod(method)}
			if cmd.Flags().Changed("recent") {
				opts.RecentSel = &recent
			}
			if cmd.Flags().Changed("first") {
				opts.RecentSelFirst = &first
			}
			if cmd.Flags().Changed("hours") {
				opts.TimeSel = &hours
			}
			if maxSize != "" {
				if _, err := tracks.ParseSizeLimit(maxSize); err != nil {
					return err
				}
				opts.Size, opts.SizeSel = true, maxSize
			}

			mount, err := locateDevice(cmd.Context(), cfg, wait, timeout)
			if err != nil {
				return err
			}

			r, err := report.BuildScan(mount, transfer.Garmin, opts, time.Now())
			if err != nil {
				return fmt.Errorf("scan %s: %w", mount, err)
			}

			if jsonOutput {
				fmt.Println(report.FormatJSON(r))
			} else {
				fmt.Print(report.FormatScan(r, time.Now(), report.Style{Color: isTerminal(os.Stdout)}))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "", "selection method: recent or time")
	cmd.Flags().IntVar(&recent, "recent", 0, "with --method recent: last file rank to include")
	cmd.Flags().IntVar(&first, "first", 1, "with --method recent: first file rank to include")
	cmd.Flags().Float64Var(&hours, "hours", 0, "with --method time: include files modified within this many hours")
	cmd.Flags().StringVar(&maxSize, "max-size", "", "only files smaller than this, e.g. 500kb or 2mb")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for a device to be connected")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "with --wait: give up after this long (0 waits forever)")
	return cmd
}

func waitCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Block until a mass-storage GPS is mounted and print its path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			mount, err := locateDevice(cmd.Context(), cfg, true, timeout)
			if err != nil {
				return err
			}
			fmt.Println(mount)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 waits forever)")
	return cmd
}

func historyCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transfers handled by the host",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.HistoryPath); errors.Is(err, os.ErrNotExist) {
				fmt.Println("no transfers recorded yet")
				return nil
			}

			r, err := report.GenerateHistory(cfg.HistoryPath, limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}

			if jsonOutput {
				fmt.Println(report.FormatJSON(r))
			} else {
				fmt.Print(report.FormatHistory(r, time.Now(), report.Style{Color: isTerminal(os.Stdout)}))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of transfers to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// locateDevice finds a mounted device, waiting for one when asked to.
func locateDevice(parent context.Context, cfg *config.Config, wait bool, timeout time.Duration) (string, error) {
	volumes := device.ForRoots(cfg.MountRoots)
	if !wait {
		mount, ok := device.FindMassStorage(volumes, transfer.Garmin.Marker)
		if !ok {
			return "", fmt.Errorf("no mass-storage GPS found (looking for %s)", transfer.Garmin.Marker)
		}
		return mount, nil
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger, closer, err := logging.New(cfg)
	if err != nil {
		return "", err
	}
	defer closer.Close()

	fmt.Fprintln(os.Stderr, "waiting for a GPS to be connected...")
	mount, err := device.WaitForDevice(ctx, volumes, transfer.Garmin.Marker, device.WaitOptions{Log: logger})
	if errors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("no mass-storage GPS connected within %s", timeout)
	}
	return mount, err
}
