// Package storage implements the database Serializer contract with
// in-memory, on-disk and bbolt backed block stores.
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mealeark/education-cryptomoji/foundation/ledger/database"
)

// Memory represents the serialization implementation for keeping blocks
// only in memory. Used by tests and nodes that don't need persistence.
type Memory struct {
	mu     sync.RWMutex
	blocks []database.BlockData
}

// NewMemory constructs a Memory value for use.
func NewMemory() (*Memory, error) {
	return &Memory{}, nil
}

// Close in this implementation has nothing to do.
func (m *Memory) Close() error {
	return nil
}

// Write appends the specified block to the in-memory chain.
func (m *Memory) Write(blockData database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if exp := uint64(len(m.blocks) + 1); blockData.Header.Number != exp {
		return fmt.Errorf("block number out of sequence, got %d, exp %d", blockData.Header.Number, exp)
	}

	m.blocks = append(m.blocks, blockData)
	return nil
}

// GetBlock returns the specified block by number.
func (m *Memory) GetBlock(num uint64) (database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if num == 0 || num > uint64(len(m.blocks)) {
		return database.BlockData{}, fmt.Errorf("block %d does not exist", num)
	}

	return m.blocks[num-1], nil
}

// ForEach returns an iterator to walk through all the blocks starting
// with block number 1.
func (m *Memory) ForEach() database.Iterator {
	return &memoryIterator{memory: m}
}

// Reset clears out the in-memory chain.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = nil
	return nil
}

// memoryIterator represents the iteration implementation for walking
// through the blocks held in memory.
type memoryIterator struct {
	memory  *Memory
	current uint64
	eoc     bool
}

// Next retrieves the next block from memory.
func (mi *memoryIterator) Next() (database.BlockData, error) {
	if mi.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	mi.current++
	blockData, err := mi.memory.GetBlock(mi.current)
	if err != nil {
		mi.eoc = true
	}

	return blockData, err
}

// Done returns the end of chain value.
func (mi *memoryIterator) Done() bool {
	return mi.eoc
}
