package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

// balanceCmd represents the balance command.
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Query the node for the account balance",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}
		account := crypto.PubkeyToAddress(privateKey.PublicKey).String()

		resp, err := http.Get(fmt.Sprintf("%s/v1/balances/list/%s", url, account))
		if err != nil {
			log.Fatal(err)
		}
		defer resp.Body.Close()

		var result struct {
			LatestBlock string `json:"latest_block"`
			Height      int    `json:"height"`
			Balances    []struct {
				Account string `json:"account"`
				Balance int64  `json:"balance"`
			} `json:"balances"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			log.Fatal(err)
		}

		for _, bal := range result.Balances {
			fmt.Printf("account: %s  balance: %d\n", bal.Account, bal.Balance)
		}
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
