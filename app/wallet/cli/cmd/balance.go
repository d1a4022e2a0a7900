package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

type account struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

type accounts struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Accounts    []account `json:"accounts"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

func balanceRun(cmd *cobra.Command, args []string) {
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
	fmt.Println("For Account:", wallet.Address)

	resp, err := http.Get(fmt.Sprintf("%s/v1/accounts/list/%s", url, wallet.Address))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var acts accounts
	if err := json.NewDecoder(resp.Body).Decode(&acts); err != nil {
		log.Fatal(err)
	}

	if len(acts.Accounts) > 0 {
		fmt.Println(acts.Accounts[0].Balance)
		return
	}

	fmt.Println(0)
}
