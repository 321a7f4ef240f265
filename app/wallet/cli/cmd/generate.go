package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new key pair",
	Run:   generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(cmd *cobra.Command, args []string) {
	key := signature.GenerateKey()

	if err := signature.SaveKey(getPrivateKeyPath(), key); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Account:", signature.PublicKeyToAccount(key).Address())
	fmt.Println("Seed:   ", hexutil.Encode(key.Seed()))
}
