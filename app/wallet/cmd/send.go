package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mealeark/education-cryptomoji/foundation/ledger/database"
	"github.com/spf13/cobra"
)

var (
	to    string
	value uint64
)

// sendCmd represents the send command.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign a transaction and submit it for mining",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		toID, err := database.ToAccountID(to)
		if err != nil {
			log.Fatal(err)
		}

		signedTx, err := database.New(privateKey, toID, value)
		if err != nil {
			log.Fatal(err)
		}

		sendTx(signedTx)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account receiving the value.")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("value")
}

func sendTx(signedTx database.SignedTx) {
	type tx struct {
		From  string   `json:"from"`
		To    string   `json:"to"`
		Value uint64   `json:"value"`
		V     *big.Int `json:"v"`
		R     *big.Int `json:"r"`
		S     *big.Int `json:"s"`
	}
	payload := struct {
		Txs []tx `json:"txs"`
	}{
		Txs: []tx{{
			From:  string(signedTx.FromID),
			To:    string(signedTx.ToID),
			Value: signedTx.Value,
			V:     signedTx.V,
			R:     signedTx.R,
			S:     signedTx.S,
		}},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/block/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	fmt.Println("status:", resp.Status)
}
