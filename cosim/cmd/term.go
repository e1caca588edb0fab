//go:build unix

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/sarchlab/cosim/serial"
)

// escapeKey ends a term session (Ctrl-]).
const escapeKey = 0x1D

var termCmd = &cobra.Command{
	Use:   "term",
	Short: "Attach to the PTY slave of a serial line.",
	Long: "`term --device /tmp/ttyRTL` prints what the emulated UART sends, " +
		"with line events shown in brackets, and forwards keystrokes to it. " +
		"Press Ctrl-] to quit.",
	Run: func(cmd *cobra.Command, _ []string) {
		device, _ := cmd.Flags().GetString("device")
		if device == "" {
			device = loadConfig(cmd).PTYLink
		}

		dev, err := os.OpenFile(device, os.O_RDWR|unix.O_NOCTTY, 0)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer dev.Close()

		if _, err := serial.MakeRaw(int(dev.Fd())); err != nil {
			fatalf("Error: %v", err)
		}

		restore, err := serial.MakeRaw(int(os.Stdin.Fd()))
		if err == nil {
			defer restore()
		}

		status("Attached to %s, Ctrl-] to quit", device)

		go forwardKeys(dev)

		decodeLine(dev)
	},
}

func init() {
	rootCmd.AddCommand(termCmd)
	termCmd.Flags().String("device", "", "PTY slave to attach to")
}

func forwardKeys(dev *os.File) {
	buf := make([]byte, 64)

	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}

		for _, b := range buf[:n] {
			if b == escapeKey {
				dev.Close()
				return
			}
		}

		if _, err := dev.Write(buf[:n]); err != nil {
			return
		}
	}
}

func decodeLine(dev *os.File) {
	var dec serial.Decoder

	buf := make([]byte, 256)

	for {
		n, err := dev.Read(buf)
		if err != nil {
			return
		}

		for _, b := range buf[:n] {
			for _, s := range dec.Decode(b) {
				if s.IsData() {
					os.Stdout.Write([]byte{s.Byte()})
					continue
				}

				fmt.Fprintf(os.Stdout, "\r\n[%s]\r\n", s)
			}
		}
	}
}
