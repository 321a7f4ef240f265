// This program is a command line wallet for a lattice node.
package main

import "github.com/ardanlabs/lattice/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
