// Package cmd provides the command-line interface for cosim.
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cosim/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cosim",
	Short: "cosim co-simulates a CPU emulator with an RTL simulator.",
	Long: `cosim bridges register accesses of an emulated CPU to an RTL ` +
		`simulator over a socket, keeps the two clocks in step, and carries ` +
		`an emulated serial line over a pseudo-terminal.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringSlice("env", []string{".env"},
		"Files to read COSIM_* settings from")
	flags.String("remote", "",
		"RTL simulator address, unix:/path or tcp:host:port")
	flags.Uint64("base", config.DefaultBase, "First bus address of the window")
	flags.Uint64("span", config.DefaultSpan, "Size of the register window")
	flags.Duration("sync", config.DefaultSyncInterval,
		"Virtual time between two synchronization steps")
	flags.Duration("timeout", config.DefaultTimeout,
		"How long to wait for a reply")
	flags.Bool("relative", false,
		"Send offsets into the window instead of bus addresses")
	flags.String("link", config.DefaultPTYLink,
		"Symlink pointing at the PTY slave")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadConfig reads the .env files and the environment, and then applies the
// flags the user set.
func loadConfig(cmd *cobra.Command) config.Config {
	flags := cmd.Flags()

	envFiles, _ := flags.GetStringSlice("env")

	cfg, err := config.Load(envFiles...)
	if err != nil {
		fatalf("Error loading config: %v", err)
	}

	if flags.Changed("remote") {
		cfg.Remote, _ = flags.GetString("remote")
	}

	if flags.Changed("base") {
		cfg.Base, _ = flags.GetUint64("base")
	}

	if flags.Changed("span") {
		cfg.Span, _ = flags.GetUint64("span")
	}

	if flags.Changed("sync") {
		cfg.SyncInterval, _ = flags.GetDuration("sync")
	}

	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}

	if flags.Changed("relative") {
		cfg.RelativeAddressing, _ = flags.GetBool("relative")
	}

	if flags.Changed("link") {
		cfg.PTYLink, _ = flags.GetString("link")
	}

	if err := cfg.Validate(); err != nil {
		fatalf("Error: %v", err)
	}

	return cfg
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
}

// fatalf prints the error and exits through atexit so that recorders are
// flushed and PTY links removed.
func fatalf(format string, args ...any) {
	log.Printf(format, args...)
	atexit.Exit(1)
}

func status(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
