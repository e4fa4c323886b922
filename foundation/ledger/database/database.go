// Package database defines the structures that make up the ledger: accounts,
// signed transactions and blocks, along with the contracts any storage
// implementation must meet.
package database

// Serializer represents the behavior required to be implemented by any
// package providing support for storing and reading the blocks of the chain.
type Serializer interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator represents the behavior required to be implemented by any
// package providing support to iterate over the stored blocks starting
// with block number 1.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}
