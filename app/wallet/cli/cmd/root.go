// Package cmd contains the wallet app commands.
package cmd

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ardanlabs/lattice/foundation/lattice/signature"
	"github.com/ardanlabs/lattice/foundation/nameservice"
	"github.com/spf13/cobra"
)

var (
	accountName string
	accountPath string
	url         string
	workTimeout time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "private"+nameservice.KeyExt, "Name of the key file.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zlattice/accounts/", "Path to the directory with the key files.")
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	rootCmd.PersistentFlags().DurationVarP(&workTimeout, "work-timeout", "w", time.Minute, "Time allowed to generate the work of each block.")
}

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "A simple lattice wallet",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getPrivateKeyPath() string {
	if !strings.HasSuffix(accountName, nameservice.KeyExt) {
		accountName += nameservice.KeyExt
	}

	return filepath.Join(accountPath, accountName)
}

func loadKey() (ed25519.PrivateKey, error) {
	return signature.LoadKey(getPrivateKeyPath())
}
