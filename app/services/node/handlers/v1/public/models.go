package public

import (
	"fmt"
	"math/big"

	"github.com/mealeark/education-cryptomoji/business/sys/validate"
	"github.com/mealeark/education-cryptomoji/foundation/ledger/database"
)

// submitTx is a signed transaction as provided by a wallet.
type submitTx struct {
	From  string   `json:"from" validate:"required"`
	To    string   `json:"to" validate:"required"`
	Value uint64   `json:"value"`
	V     *big.Int `json:"v" validate:"required"`
	R     *big.Int `json:"r" validate:"required"`
	S     *big.Int `json:"s" validate:"required"`
}

// submitBlock is the batch of signed transactions to mine into the
// next block.
type submitBlock struct {
	Txs []submitTx `json:"txs" validate:"required,min=1,dive"`
}

// Validate checks the model against its declared tags.
func (sb submitBlock) Validate() error {
	return validate.Check(sb)
}

// toSignedTxs converts the request model into the core transaction form.
func (sb submitBlock) toSignedTxs() ([]database.SignedTx, error) {
	txs := make([]database.SignedTx, len(sb.Txs))
	for i, tx := range sb.Txs {
		fromID, err := database.ToAccountID(tx.From)
		if err != nil {
			return nil, fmt.Errorf("tx %d: from: %w", i, err)
		}
		toID, err := database.ToAccountID(tx.To)
		if err != nil {
			return nil, fmt.Errorf("tx %d: to: %w", i, err)
		}

		txs[i] = database.SignedTx{
			Tx: database.Tx{
				FromID: fromID,
				ToID:   toID,
				Value:  tx.Value,
			},
			V: tx.V,
			R: tx.R,
			S: tx.S,
		}
	}

	return txs, nil
}

// =============================================================================

type balance struct {
	Account database.AccountID `json:"account"`
	Balance int64              `json:"balance"`
}

type balances struct {
	LatestBlock string    `json:"latest_block"`
	Height      int       `json:"height"`
	Balances    []balance `json:"balances"`
}

type validity struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
