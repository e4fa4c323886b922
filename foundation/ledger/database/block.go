package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mealeark/education-cryptomoji/foundation/ledger/merkle"
	"github.com/mealeark/education-cryptomoji/foundation/ledger/signature"
)

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64 `json:"number"`          // Block number in the chain, 0 for genesis.
	PrevBlockHash string `json:"prev_block_hash"` // Hash of the previous block in the chain.
	TimeStamp     uint64 `json:"timestamp"`       // Time the block was mined.
	Difficulty    uint16 `json:"difficulty"`      // Number of leading 0's needed to solve the hash solution.
	Nonce         uint64 `json:"nonce"`           // Value identified to solve the hash solution.
	TransRoot     string `json:"trans_root"`      // Merkle tree root hash for the transactions in this block.
}

// Block represents a group of transactions bundled together. Once a block
// has been accepted into the chain it is never mutated again; the nonce is
// only varied during the admission search before that point.
type Block struct {
	Header BlockHeader
	Trans  *merkle.Tree[BlockTx]
}

// NewGenesisBlock constructs the unique first block of a chain. It has no
// transactions and no parent, which is represented by the zero hash.
func NewGenesisBlock(gen time.Time) Block {
	tree, _ := merkle.NewTree[BlockTx](nil)

	var ts uint64
	if !gen.IsZero() {
		ts = uint64(gen.UTC().Unix())
	}

	return Block{
		Header: BlockHeader{
			Number:        0,
			PrevBlockHash: signature.ZeroHash,
			TimeStamp:     ts,
			TransRoot:     tree.MerkleRootHex(),
		},
		Trans: tree,
	}
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic puzzle. The search is unbounded; the context is
// checked on every iteration so the caller can abandon it.
func POW(ctx context.Context, difficulty uint16, prevBlock Block, trans []BlockTx, ev func(v string, args ...any)) (Block, error) {

	// Construct a merkle tree from the transactions for this block. The
	// root of this tree is part of what gets mined.
	tree, err := merkle.NewTree(trans)
	if err != nil {
		return Block{}, err
	}

	nb := Block{
		Header: BlockHeader{
			Number:        prevBlock.Header.Number + 1,
			PrevBlockHash: prevBlock.Hash(),
			TimeStamp:     uint64(time.Now().UTC().Unix()),
			Difficulty:    difficulty,
			Nonce:         0, // Will be identified by the admission search.
			TransRoot:     tree.MerkleRootHex(),
		},
		Trans: tree,
	}

	if err := nb.performPOW(ctx, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for the block.
// Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, ev func(v string, args ...any)) error {
	ev("database: performPOW: started")
	defer ev("database: performPOW: completed")

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: performPOW: attempts[%d]", attempts)
		}

		// The search has no guaranteed upper bound. This check is the
		// only way out if the caller gives up.
		if ctx.Err() != nil {
			ev("database: performPOW: CANCELLED")
			return ctx.Err()
		}

		hash := b.Hash()
		if !isHashSolved(b.Header.Difficulty, hash) {
			b.Header.Nonce++
			continue
		}

		ev("database: performPOW: SOLVED: prevBlk[%s]: newBlk[%s]", b.Header.PrevBlockHash, hash)
		ev("database: performPOW: attempts[%d]", attempts)

		return nil
	}
}

// Hash returns the unique hash for the block. The hash commits to the full
// header, and through the merkle root to every transaction, via a structured
// encoding rather than raw concatenation. The genesis block hashes to the
// zero hash.
func (b Block) Hash() string {
	if b.Header.Number == 0 {
		return signature.ZeroHash
	}

	return signature.Hash(b.Header)
}

// ValidateBlock takes a block and validates it to be included in the chain
// after the specified previous block.
func (b Block) ValidateBlock(prevBlock Block, ev func(v string, args ...any)) error {
	ev("database: ValidateBlock: blk[%d]: check: block number is the next number", b.Header.Number)

	if b.Header.Number != prevBlock.Header.Number+1 {
		return fmt.Errorf("this block is not the next number, got %d, exp %d", b.Header.Number, prevBlock.Header.Number+1)
	}

	ev("database: ValidateBlock: blk[%d]: check: parent hash matches parent block", b.Header.Number)

	if b.Header.PrevBlockHash != prevBlock.Hash() {
		return fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s", b.Header.PrevBlockHash, prevBlock.Hash())
	}

	ev("database: ValidateBlock: blk[%d]: check: block hash has been solved", b.Header.Number)

	hash := b.Hash()
	if !isHashSolved(b.Header.Difficulty, hash) {
		return fmt.Errorf("%s invalid block hash", hash)
	}

	if prevBlock.Header.TimeStamp > 0 {
		ev("database: ValidateBlock: blk[%d]: check: block's timestamp is not before the parent's", b.Header.Number)

		if b.Header.TimeStamp < prevBlock.Header.TimeStamp {
			return fmt.Errorf("block timestamp is before parent block, parent %d, block %d", prevBlock.Header.TimeStamp, b.Header.TimeStamp)
		}
	}

	ev("database: ValidateBlock: blk[%d]: check: merkle root does match transactions", b.Header.Number)

	if b.Header.TransRoot != b.Trans.MerkleRootHex() {
		return fmt.Errorf("merkle root does not match transactions, got %s, exp %s", b.Trans.MerkleRootHex(), b.Header.TransRoot)
	}

	return nil
}

// isHashSolved checks the hash to make sure it complies with the admission
// rule: a difficulty number of leading 0's after the 0x prefix.
func isHashSolved(difficulty uint16, hash string) bool {
	const match = "0x00000000000000000"

	if len(hash) != 66 {
		return false
	}

	// A difficulty past what the rule can express is never solved.
	if 2+int(difficulty) > len(match) {
		return false
	}

	return hash[:2+difficulty] == match[:2+difficulty]
}

// =============================================================================

// BlockData represents what is serialized to storage and over the wire.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []BlockTx   `json:"trans"`
}

// NewBlockData constructs the value to serialize from a block.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Trans.Values(),
	}
}

// ToBlock converts a BlockData back into a Block.
func ToBlock(blockData BlockData) (Block, error) {
	tree, err := merkle.NewTree(blockData.Trans)
	if err != nil {
		return Block{}, err
	}

	nb := Block{
		Header: blockData.Header,
		Trans:  tree,
	}

	return nb, nil
}
