package chain

import "github.com/mealeark/education-cryptomoji/foundation/ledger/database"

// TamperBlock mutates a stored block in place. Only tests proving the chain
// detects direct mutation get this access; the public API hands out copies.
func (c *Chain) TamperBlock(i int, fn func(blockData *database.BlockData)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fn(&c.blocks[i])
}
