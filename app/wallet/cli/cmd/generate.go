package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new wallet seed and address",
	Run:   generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(cmd *cobra.Command, args []string) {
	book, err := loadBook()
	if err != nil {
		log.Fatal(err)
	}

	wallet, err := book.Generate()
	if err != nil {
		log.Fatal(err)
	}

	path := getSeedPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Fatal(err)
	}

	// The seed is the only credential for this wallet. Owner read/write only.
	if err := os.WriteFile(path, []byte(wallet.Seed), 0600); err != nil {
		log.Fatal(err)
	}

	fmt.Println("address:", wallet.Address)
	fmt.Println("seed stored at:", path)
}
