// Package chain is the core API for the ledger: an append-only, hash-linked
// sequence of blocks with balance derivation and proof-of-work admission.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mealeark/education-cryptomoji/foundation/ledger/database"
	"github.com/mealeark/education-cryptomoji/foundation/ledger/genesis"
)

// Set of errors the chain API returns to callers.
var (
	// ErrNoTransactions is returned when a block is requested to be created
	// without any transactions.
	ErrNoTransactions = errors.New("no transactions to mine")

	// ErrInvalidTransaction is returned when any transaction in a candidate
	// batch fails signature validation. The whole batch is rejected.
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// EventHandler defines a function that is called when events occur in the
// processing of new blocks.
type EventHandler func(v string, args ...any)

// Chain manages the hash-linked sequence of blocks. The zero index is always
// the genesis block. Blocks are held in their sealed (hashed) form; the only
// mutation the chain ever performs is appending.
type Chain struct {
	mu sync.RWMutex

	genesis     genesis.Genesis
	blocks      []database.BlockData
	latestBlock database.Block

	serializer database.Serializer
	evHandler  EventHandler
}

// New constructs a chain with its genesis block as the sole element and then
// replays any blocks already held by the serializer, validating each one
// against its parent.
func New(gen genesis.Genesis, serializer database.Serializer, evHandler EventHandler) (*Chain, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	genesisBlock := database.NewGenesisBlock(gen.Date)

	c := Chain{
		genesis:     gen,
		blocks:      []database.BlockData{database.NewBlockData(genesisBlock)},
		latestBlock: genesisBlock,
		serializer:  serializer,
		evHandler:   ev,
	}

	// Load any blocks the serializer already holds. This won't work for a
	// chain that no longer fits in memory, which is fine at this scale.
	iter := serializer.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		block, err := database.ToBlock(blockData)
		if err != nil {
			return nil, err
		}

		if err := block.ValidateBlock(c.latestBlock, ev); err != nil {
			return nil, err
		}

		for _, tx := range block.Trans.Values() {
			if err := tx.Validate(); err != nil {
				return nil, fmt.Errorf("%w: block %d: %s", ErrInvalidTransaction, block.Header.Number, err)
			}
		}

		c.blocks = append(c.blocks, blockData)
		c.latestBlock = block
	}

	return &c, nil
}

// Genesis returns a copy of the genesis information.
func (c *Chain) Genesis() genesis.Genesis {
	return c.genesis
}

// HeadBlock returns the most recently appended block. On a fresh chain this
// is the genesis block.
func (c *Chain) HeadBlock() database.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.latestBlock
}

// Height returns the number of blocks in the chain, genesis included.
func (c *Chain) Height() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.blocks)
}

// Blocks returns the chain in its sealed form, genesis first. The result is
// a copy; mutating it can't reach the stored blocks.
func (c *Chain) Blocks() []database.BlockData {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blocks := make([]database.BlockData, len(c.blocks))
	for i, blockData := range c.blocks {
		blockData.Trans = append([]database.BlockTx(nil), blockData.Trans...)
		blocks[i] = blockData
	}

	return blocks
}

// AddBlock validates the specified batch of transactions, mines a block for
// them and appends it to the chain. The whole construct-mine-append sequence
// holds the chain lock so no two appends can interleave. The operation is
// atomic: on any failure the chain is left exactly as it was.
func (c *Chain) AddBlock(ctx context.Context, txs []database.SignedTx) (database.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(txs) == 0 {
		return database.Block{}, ErrNoTransactions
	}

	if max := int(c.genesis.TransPerBlock); max > 0 && len(txs) > max {
		return database.Block{}, fmt.Errorf("too many transactions, got %d, max %d", len(txs), max)
	}

	c.evHandler("chain: AddBlock: validate transactions")

	// One bad transaction fails the whole batch, before any work is done.
	trans := make([]database.BlockTx, len(txs))
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return database.Block{}, fmt.Errorf("%w: %s", ErrInvalidTransaction, err)
		}
		trans[i] = database.NewBlockTx(tx)
	}

	c.evHandler("chain: AddBlock: perform admission search")

	block, err := database.POW(ctx, c.genesis.Difficulty, c.latestBlock, trans, c.evHandler)
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	c.evHandler("chain: AddBlock: persist and append block[%s]", block.Hash())

	blockData := database.NewBlockData(block)
	if err := c.serializer.Write(blockData); err != nil {
		return database.Block{}, err
	}

	c.blocks = append(c.blocks, blockData)
	c.latestBlock = block

	return block, nil
}

// BalanceOf replays every transaction across every block and returns the net
// balance for the specified account. With no issuance mechanism balances can
// be negative. This is a pure read.
func (c *Chain) BalanceOf(accountID database.AccountID) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var balance int64
	for _, blockData := range c.blocks {
		for _, tx := range blockData.Trans {
			if tx.FromID == accountID {
				balance -= int64(tx.Value)
			}
			if tx.ToID == accountID {
				balance += int64(tx.Value)
			}
		}
	}

	return balance
}

// Balances replays the chain and returns the net balance of every account
// that appears in any transaction.
func (c *Chain) Balances() map[database.AccountID]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	balances := make(map[database.AccountID]int64)
	for _, blockData := range c.blocks {
		for _, tx := range blockData.Trans {
			balances[tx.FromID] -= int64(tx.Value)
			balances[tx.ToID] += int64(tx.Value)
		}
	}

	return balances
}

// Validate walks the chain confirming for every consecutive pair of blocks
// that the hash linkage holds and that every stored hash matches a
// recomputation from the stored fields and nonce. It fails on the first
// mismatch, which is how tampering with any appended block is detected.
func (c *Chain) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := 1; i < len(c.blocks); i++ {
		blockData := c.blocks[i]

		block, err := database.ToBlock(blockData)
		if err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}

		// The stored hash is never trusted; it must match a recomputation
		// from the stored header and nonce.
		if hash := block.Hash(); hash != blockData.Hash {
			return fmt.Errorf("block %d: stored hash doesn't match recomputation, got %s, exp %s", i, blockData.Hash, hash)
		}

		if blockData.Header.Difficulty != c.genesis.Difficulty {
			return fmt.Errorf("block %d: difficulty doesn't match genesis, got %d, exp %d", i, blockData.Header.Difficulty, c.genesis.Difficulty)
		}

		prevBlock, err := database.ToBlock(c.blocks[i-1])
		if err != nil {
			return fmt.Errorf("block %d: %w", i-1, err)
		}

		if err := block.ValidateBlock(prevBlock, c.evHandler); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}

	return nil
}
