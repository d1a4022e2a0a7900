package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print the address for the stored seed",
	Run:   accountRun,
}

func init() {
	rootCmd.AddCommand(accountCmd)
}

func accountRun(cmd *cobra.Command, args []string) {
	book, err := loadBook()
	if err != nil {
		log.Fatal(err)
	}

	seed, err := loadSeed()
	if err != nil {
		log.Fatal(err)
	}

	wallet, err := book.FromSeed(seed)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(wallet.Address)
}
