package cmd

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log"

	"github.com/ardanlabs/lattice/foundation/lattice/block"
	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ardanlabs/lattice/foundation/lattice/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var representative string

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Receive every receivable send, opening the account if needed",
	Run: func(cmd *cobra.Command, args []string) {
		key, err := loadKey()
		if err != nil {
			log.Fatal(err)
		}

		if err := receiveAll(cmd.Context(), key); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(receiveCmd)
	receiveCmd.Flags().StringVarP(&representative, "rep", "r", "", "Representative used when opening the account.")
}

func receiveAll(ctx context.Context, key ed25519.PrivateKey) error {
	acct := signature.PublicKeyToAccount(key)

	entries, err := fetchReceivable(acct, false)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("Nothing to receive")
		return nil
	}

	info, opened, err := fetchAccount(acct)
	if err != nil {
		return err
	}

	head := info.Info.Head
	balance := info.Info.Balance
	epoch := info.Info.Epoch
	rep := info.Info.Representative

	if !opened {
		rep = acct
		if representative != "" {
			if rep, err = types.ParseAccount(representative); err != nil {
				return err
			}
		}
	}

	thresholds, err := fetchThresholds()
	if err != nil {
		return err
	}

	// The blocks chain on each other and are submitted together.
	blocks := make([]block.Block, 0, len(entries))
	for _, e := range entries {
		var ok bool
		if balance, ok = balance.Add(e.Amount); !ok {
			return fmt.Errorf("receiving %s overflows the balance", e.Hash)
		}
		epoch = max(epoch, e.Epoch)

		blk := block.NewState(key).
			Previous(head).
			Representative(rep).
			Balance(balance).
			ReceiveFrom(e.Hash).
			Build()

		if err := generateWork(ctx, blk, thresholds.For(epoch, true)); err != nil {
			return err
		}
		fmt.Printf("Receive: %s  Amount: %s  Work: %s\n", e.Hash, e.Amount, hexutil.EncodeUint64(blk.Work))

		blocks = append(blocks, blk)
		head = blk.Hash()
	}

	results, err := submit(blocks...)
	if err != nil {
		return err
	}

	return printResults(results)
}

func generateWork(ctx context.Context, blk block.Block, threshold uint64) error {
	if workTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, workTimeout)
		defer cancel()
	}

	return block.GenerateWork(ctx, blk, threshold, nil)
}
