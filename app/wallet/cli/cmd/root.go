// Package cmd contains the wallet app.
package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/babymu5k/Zedovium/foundation/blockchain/address"
	"github.com/spf13/cobra"
)

var (
	walletName   string
	walletPath   string
	wordlistPath string
)

const seedExtension = ".seed"

func init() {
	rootCmd.PersistentFlags().StringVarP(&walletName, "wallet", "w", "wallet.seed", "Name of the seed file.")
	rootCmd.PersistentFlags().StringVarP(&walletPath, "wallet-path", "p", "zblock/accounts/", "Path to the directory with seed files.")
	rootCmd.PersistentFlags().StringVarP(&wordlistPath, "wordlist", "l", "zblock/wordlist.txt", "Path to the address wordlist.")
}

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Your simple wallet",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getSeedPath() string {
	if !strings.HasSuffix(walletName, seedExtension) {
		walletName += seedExtension
	}

	return filepath.Join(walletPath, walletName)
}

func loadBook() (*address.Book, error) {
	return address.LoadBook(wordlistPath)
}

func loadSeed() (string, error) {
	data, err := os.ReadFile(getSeedPath())
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}
