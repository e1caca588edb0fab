package cmd

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cosim/config"
	"github.com/sarchlab/cosim/datarecording"
	"github.com/sarchlab/cosim/monitoring"
	"github.com/sarchlab/cosim/session"
	"github.com/sarchlab/cosim/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play a bus script against an RTL simulator.",
	Long: "`run --remote unix:/tmp/rtl.sock --script ops.txt` resets the RTL " +
		"simulator, plays the script, and prints the result of every op.",
	Run: func(cmd *cobra.Command, _ []string) {
		cfg := loadConfig(cmd)
		flags := cmd.Flags()

		if flags.Changed("record") {
			cfg.Recording, _ = flags.GetString("record")
		}

		if flags.Changed("clickhouse") {
			cfg.ClickHouse, _ = flags.GetString("clickhouse")
		}

		if flags.Changed("monitor-port") {
			cfg.MonitorPort, _ = flags.GetInt("monitor-port")
		}

		if cfg.Remote == "" {
			fatalf("Error: no RTL simulator given, use --remote or COSIM_REMOTE")
		}

		scriptFile, _ := flags.GetString("script")
		ops := readScript(scriptFile)

		network, address, _ := config.ParseRemote(cfg.Remote)
		conn, err := net.Dial(network, address)
		if err != nil {
			fatalf("Error connecting to %s: %v", cfg.Remote, err)
		}

		builder := session.MakeBuilder().WithConfig(cfg)
		builder = withRecorder(builder, cfg)

		if verbose, _ := flags.GetBool("trace"); verbose {
			builder = builder.WithTracer(tracing.NewLogTracer(
				log.New(os.Stderr, "trace: ", log.Lmicroseconds)))
		}

		if eventLog, _ := flags.GetBool("event-log"); eventLog {
			builder = builder.WithEventLogger(
				log.New(os.Stderr, "event: ", 0))
		}

		monitor := startMonitor(cmd, cfg)
		if monitor != nil {
			builder = builder.WithMonitor(monitor)
		}

		latency := tracing.NewAverageTimeTracer(nil)
		builder = builder.WithTracer(latency)

		s := builder.Build("Session", conn)
		s.Play(ops)

		ctx, cancel := signalContext()
		defer cancel()

		runErr := s.Run(ctx)

		printResults(s.Results())
		status("%d transactions, average latency %v, max %v, %d failed",
			latency.TotalCount(), latency.AverageTime(), latency.MaxTime(),
			latency.FailedCount())

		s.Close()

		if runErr != nil {
			fatalf("Error: %v", runErr)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("script", "", "Bus script to play, - for stdin")
	runCmd.Flags().String("record", "",
		"Record transactions into this SQLite file prefix")
	runCmd.Flags().String("clickhouse", "",
		"Record transactions into ClickHouse at host:port")
	runCmd.Flags().Int("monitor-port", -1,
		"Serve the monitor on this port, 0 for a random one")
	runCmd.Flags().Bool("open-browser", false, "Open the monitor page")
	runCmd.Flags().Bool("trace", false, "Print every transaction")
	runCmd.Flags().Bool("event-log", false, "Print every engine event")
	_ = runCmd.MarkFlagRequired("script")
}

func readScript(name string) []session.Op {
	f := os.Stdin
	if name != "-" {
		var err error

		f, err = os.Open(name)
		if err != nil {
			fatalf("Error opening script: %v", err)
		}
		defer f.Close()
	}

	ops, err := session.ParseScript(f)
	if err != nil {
		fatalf("Error: %v", err)
	}

	return ops
}

func withRecorder(b session.Builder, cfg config.Config) session.Builder {
	switch {
	case cfg.ClickHouse != "":
		host, portStr, err := net.SplitHostPort(cfg.ClickHouse)
		if err != nil {
			fatalf("Error: clickhouse address %q: %v", cfg.ClickHouse, err)
		}

		port, err := strconv.Atoi(portStr)
		if err != nil {
			fatalf("Error: clickhouse port %q: %v", portStr, err)
		}

		return b.WithRecorder(datarecording.NewClickHouseRecorder(
			datarecording.ClickHouseOptions{
				Host:     host,
				Port:     port,
				Database: "default",
				Username: "default",
			}))
	case cfg.Recording != "":
		return b.WithRecorder(datarecording.New(cfg.Recording))
	}

	return b
}

func startMonitor(cmd *cobra.Command, cfg config.Config) *monitoring.Monitor {
	if cfg.MonitorPort < 0 {
		return nil
	}

	monitor := monitoring.NewMonitor().WithPortNumber(cfg.MonitorPort)
	if err := monitor.StartServer(); err != nil {
		fatalf("Error: %v", err)
	}

	if open, _ := cmd.Flags().GetBool("open-browser"); open {
		if err := monitor.OpenBrowser(); err != nil {
			log.Printf("Cannot open browser: %v", err)
		}
	}

	return monitor
}

func printResults(results []session.Result) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Printf("%4d %-32s error: %v\n", r.Op.Line, r.Op, r.Err)
		case r.Op.Kind == session.OpRead:
			fmt.Printf("%4d %-32s = 0x%X irq=%d\n",
				r.Op.Line, r.Op, r.Value, r.IRQLevel)
		default:
			fmt.Printf("%4d %-32s ok irq=%d\n", r.Op.Line, r.Op, r.IRQLevel)
		}
	}
}
