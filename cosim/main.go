// Command cosim connects a CPU-side bus to an RTL simulator and exposes an
// emulated serial line as a pseudo-terminal.
package main

import "github.com/sarchlab/cosim/cosim/cmd"

func main() {
	cmd.Execute()
}
