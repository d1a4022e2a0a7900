package cmd

import (
	"fmt"
	"os"

	"github.com/babymu5k/Zedovium/foundation/blockchain/address"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [address]",
	Short: "Check the structure and checksum of an address",
	Args:  cobra.ExactArgs(1),
	Run:   validateRun,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateRun(cmd *cobra.Command, args []string) {
	if !address.Validate(args[0]) {
		fmt.Println("invalid")
		os.Exit(1)
	}

	fmt.Println("valid")
}
