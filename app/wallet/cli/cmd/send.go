package cmd

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var (
	to    string
	value string
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send funds to another account",
	Run: func(cmd *cobra.Command, args []string) {
		key, err := loadKey()
		if err != nil {
			log.Fatal(err)
		}

		if err := sendWithDetails(cmd.Context(), key); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address of the destination account.")
	sendCmd.Flags().StringVarP(&value, "value", "v", "0", "Raw amount to send.")
}

func sendWithDetails(ctx context.Context, key ed25519.PrivateKey) error {
	dest, err := types.ParseAccount(to)
	if err != nil {
		return err
	}

	amount, err := types.ParseAmount(value)
	if err != nil {
		return err
	}

	acct := signature.PublicKeyToAccount(key)
	info, opened, err := fetchAccount(acct)
	if err != nil {
		return err
	}
	if !opened {
		return errors.New("account is not opened")
	}

	balance, ok := info.Info.Balance.Sub(amount)
	if !ok {
		return fmt.Errorf("insufficient balance %s", info.Info.Balance)
	}

	thresholds, err := fetchThresholds()
	if err != nil {
		return err
	}

	blk := block.NewState(key).
		Previous(info.Info.Head).
		Representative(info.Info.Representative).
		Balance(balance).
		SendTo(dest).
		Build()

	if err := generateWork(ctx, blk, thresholds.For(info.Info.Epoch, false)); err != nil {
		return err
	}
	fmt.Println("Work:", hexutil.EncodeUint64(blk.Work))

	results, err := submit(blk)
	if err != nil {
		return err
	}

	return printResults(results)
}

func printResults(results []processResult) error {
	var failed bool
	for _, res := range results {
		if res.Error != "" {
			failed = true
			fmt.Printf("Block: %s  Status: %s  Error: %s\n", res.Hash, res.Status, res.Error)
			continue
		}
		fmt.Printf("Block: %s  Status: %s  Height: %d\n", res.Hash, res.Status, res.Height)
	}

	if failed {
		return errors.New("node rejected blocks")
	}
	return nil
}
