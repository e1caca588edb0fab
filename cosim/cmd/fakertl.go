package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cosim/config"
	"github.com/sarchlab/cosim/rtl/echosim"
)

var fakeRTLCmd = &cobra.Command{
	Use:   "fake-rtl",
	Short: "Serve the register protocol from an in-memory register file.",
	Long: "`fake-rtl --listen unix:/tmp/rtl.sock` stands in for an RTL " +
		"simulator. Writes are stored, reads return them, and writing the " +
		"interrupt register reports its value as the interrupt level.",
	Run: func(cmd *cobra.Command, _ []string) {
		listen, _ := cmd.Flags().GetString("listen")

		network, address, err := config.ParseRemote(listen)
		if err != nil {
			fatalf("Error: %v", err)
		}

		if network == "unix" {
			_ = os.Remove(address)
		}

		opts := []echosim.Option{
			echosim.WithLogger(log.New(os.Stderr, "fake-rtl: ", log.LstdFlags)),
		}

		if cmd.Flags().Changed("irq-register") {
			irqReg, _ := cmd.Flags().GetUint32("irq-register")
			opts = append(opts, echosim.WithIRQRegister(irqReg))
		}

		ctx, cancel := signalContext()
		defer cancel()

		err = echosim.NewServer(opts...).ListenAndServe(ctx, network, address)
		if err != nil {
			fatalf("Error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(fakeRTLCmd)
	fakeRTLCmd.Flags().String("listen", "unix:/tmp/cosim-rtl.sock",
		"Address to listen on, unix:/path or tcp:host:port")
	fakeRTLCmd.Flags().Uint32("irq-register", 0,
		"Register whose writes raise the interrupt level")
}
