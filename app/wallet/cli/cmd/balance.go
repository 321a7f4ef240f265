package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/spf13/cobra"
)

var confirmedOnly bool

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance and receivable amounts.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().BoolVarP(&confirmedOnly, "confirmed", "c", false, "Only count cemented blocks.")
}

func balanceRun(cmd *cobra.Command, args []string) {
	key, err := loadKey()
	if err != nil {
		log.Fatal(err)
	}

	acct := signature.PublicKeyToAccount(key)
	fmt.Println("For Account:", acct.Address())

	info, opened, err := fetchAccount(acct)
	if err != nil {
		log.Fatal(err)
	}
	if opened {
		fmt.Println("Balance:       ", info.Info.Balance)
		fmt.Println("Representative:", info.Info.Representative.Address())
		fmt.Println("Blocks:        ", info.Info.BlockCount, "cemented", info.Confirmed)
	} else {
		fmt.Println("Balance:        0 (not opened)")
	}

	entries, err := fetchReceivable(acct, confirmedOnly)
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range entries {
		fmt.Printf("Receivable: %s  From: %s  Amount: %s\n", r.Hash, r.Source.Address(), r.Amount)
	}
}
