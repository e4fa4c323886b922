package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/mealeark/education-cryptomoji/foundation/ledger/database"
)

// blocksBucket is the bucket holding the chain, keyed by block number.
var blocksBucket = []byte("blocks")

// Bolt represents the serialization implementation for reading and storing
// blocks in a single bbolt database file. This implements the
// database.Serializer interface.
type Bolt struct {
	db *bolt.DB
}

// NewBolt constructs a Bolt value for use.
func NewBolt(dbPath string) (*Bolt, error) {
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blocksBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{db: db}, nil
}

// Close releases the underlying database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Write takes the specified block and stores it under its block number.
func (b *Bolt) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blocksBucket).Put(blockKey(blockData.Header.Number), data)
	})
}

// GetBlock searches the database to locate and return the contents of the
// specified block by number.
func (b *Bolt) GetBlock(num uint64) (database.BlockData, error) {
	var blockData database.BlockData

	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(blocksBucket).Get(blockKey(num))
		if data == nil {
			return fmt.Errorf("block %d does not exist", num)
		}

		return json.Unmarshal(data, &blockData)
	})
	if err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks starting
// with block number 1.
func (b *Bolt) ForEach() database.Iterator {
	return &boltIterator{bolt: b}
}

// Reset will clear out the stored chain.
func (b *Bolt) Reset() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(blocksBucket); err != nil {
			return err
		}

		_, err := tx.CreateBucket(blocksBucket)
		return err
	})
}

// blockKey converts a block number into a big-endian key so the bucket
// iterates in chain order.
func blockKey(num uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, num)
	return key
}

// =============================================================================

// boltIterator represents the iteration implementation for walking through
// the blocks stored in the bbolt file.
type boltIterator struct {
	bolt    *Bolt  // Access to the bolt storage API.
	current uint64 // Current block number being iterated over.
	eoc     bool   // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from the database.
func (bi *boltIterator) Next() (database.BlockData, error) {
	if bi.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	bi.current++
	blockData, err := bi.bolt.GetBlock(bi.current)
	if err != nil {
		bi.eoc = true
	}

	return blockData, err
}

// Done returns the end of chain value.
func (bi *boltIterator) Done() bool {
	return bi.eoc
}
