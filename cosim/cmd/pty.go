package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cosim/serial"
	"github.com/sarchlab/cosim/tracing"
)

var ptyCmd = &cobra.Command{
	Use:   "pty",
	Short: "Expose an emulated serial line as a pseudo-terminal.",
	Long: "`pty --link /tmp/ttyRTL` opens a PTY, points the link at its " +
		"slave, forwards stdin to the line, and prints what the line " +
		"receives. With --loopback, received data is echoed back instead.",
	Run: func(cmd *cobra.Command, _ []string) {
		cfg := loadConfig(cmd)
		loopback, _ := cmd.Flags().GetBool("loopback")
		escaped, _ := cmd.Flags().GetBool("escaped")

		p, err := serial.OpenPTY(cfg.PTYLink)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer p.Close()

		status("Serial line on %s (%s)", p.Link(), p.Name())

		builder := serial.MakeTransportBuilder().
			WithLogger(log.New(os.Stderr, "pty: ", log.LstdFlags))
		if escaped {
			builder = builder.WithEscapedInput()
		}

		line := builder.Build("Line", p)

		if trace, _ := cmd.Flags().GetBool("trace"); trace {
			tracing.CollectTrace(line, tracing.NewLogTracer(
				log.New(os.Stderr, "trace: ", log.Lmicroseconds)))
		}

		ctx, cancel := signalContext()
		defer cancel()

		if loopback {
			err = serial.Loopback(ctx, line, func(s serial.Symbol) {
				status("line: %s", s)
			})
		} else {
			err = pumpStdio(ctx, line)
		}

		if err != nil && !errors.Is(err, context.Canceled) {
			fatalf("Error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(ptyCmd)
	ptyCmd.Flags().Bool("loopback", false, "Echo received data back")
	ptyCmd.Flags().Bool("trace", false, "Print every symbol")
	ptyCmd.Flags().Bool("escaped", false,
		"Decode escape framing on bytes written by the peer")
}

func pumpStdio(ctx context.Context, line *serial.LineTransport) error {
	tx := make(chan serial.Symbol)
	rx := make(chan serial.Symbol, 64)

	go func() {
		defer close(tx)

		in := bufio.NewReader(os.Stdin)
		for {
			b, err := in.ReadByte()
			if err != nil {
				return
			}

			select {
			case tx <- serial.DataSymbol(b):
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		for s := range rx {
			if s.IsData() {
				os.Stdout.Write([]byte{s.Byte()})
				continue
			}

			fmt.Fprintf(os.Stderr, "\n[%s]\n", s)
		}
	}()

	err := serial.Pump(ctx, line, tx, rx)
	close(rx)

	return err
}
