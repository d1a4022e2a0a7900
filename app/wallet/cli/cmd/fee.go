package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var feeValue uint64

var feeCmd = &cobra.Command{
	Use:   "fee",
	Short: "Print the current fee for a transfer value",
	Run:   feeRun,
}

func init() {
	rootCmd.AddCommand(feeCmd)
	feeCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	feeCmd.Flags().Uint64VarP(&feeValue, "value", "v", 0, "Value of the intended transfer.")
}

func feeRun(cmd *cobra.Command, args []string) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/fees/estimate/%d", url, feeValue))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var estimate struct {
		Value    uint64 `json:"value"`
		Fee      uint64 `json:"fee"`
		RateBips uint64 `json:"rate_bips"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&estimate); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("fee: %d (rate %d bips)\n", estimate.Fee, estimate.RateBips)
}
