// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// maxDifficulty is the largest number of leading zero hex digits the
// admission rule can check against a block hash.
const maxDifficulty = 17

// Genesis represents the genesis file. There are no starting balances:
// the ledger has no issuance mechanism, so every account begins at zero.
type Genesis struct {
	Date          time.Time `json:"date"`
	ChainID       uint16    `json:"chain_id"`        // An unique id for this running instance.
	TransPerBlock uint16    `json:"trans_per_block"` // The maximum number of transactions that can be in a block.
	Difficulty    uint16    `json:"difficulty"`      // How difficult it needs to be to solve the work problem.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if genesis.Difficulty > maxDifficulty {
		return Genesis{}, fmt.Errorf("difficulty %d is out of range, max %d", genesis.Difficulty, maxDifficulty)
	}

	return genesis, nil
}
