package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	url   string
	nonce uint64
	to    string
	value uint64
)

// sendCmd represents the send command.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a transaction",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	sendCmd.Flags().Uint64VarP(&nonce, "nonce", "n", 0, "Unique id for the transaction.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address receiving the funds.")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
}

func sendRun(cmd *cobra.Command, args []string) {
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

	payload := struct {
		Seed  string `json:"seed"`
		From  string `json:"from"`
		To    string `json:"to"`
		Value uint64 `json:"value"`
		Nonce uint64 `json:"nonce"`
	}{
		Seed:  seed,
		From:  wallet.Address,
		To:    to,
		Value: value,
		Nonce: nonce,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(string(body))
}
