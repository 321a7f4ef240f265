package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print account for the specific wallet",
	Run:   accountRun,
}

func init() {
	rootCmd.AddCommand(accountCmd)
}

func accountRun(cmd *cobra.Command, args []string) {
	key, err := loadKey()
	if err != nil {
		log.Fatal(err)
	}

	acct := signature.PublicKeyToAccount(key)
	fmt.Println(acct.Address())
	fmt.Println(hexutil.Encode(acct[:]))
}
