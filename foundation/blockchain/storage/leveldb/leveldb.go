// Package leveldb implements the ability to read and write blocks to a
// LevelDB database keyed by block number.
package leveldb

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"github.com/ardanlabs/votechain/foundation/blockchain/database"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// blockPrefix namespaces the block keys inside the database.
var blockPrefix = []byte("block:")

// LevelDB represents the serialization implementation for reading and storing
// blocks in a LevelDB database. This implements the database.Serializer
// interface.
type LevelDB struct {
	conn *leveldb.DB
}

// New opens (or creates) a LevelDB database at the specified path.
func New(path string) (*LevelDB, error) {
	conn, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}

	return &LevelDB{conn: conn}, nil
}

// NewMemory opens a LevelDB database backed by memory. The data is lost
// when the database is closed.
func NewMemory() (*LevelDB, error) {
	conn, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}

	return &LevelDB{conn: conn}, nil
}

// Close safely closes the LevelDB connection.
func (l *LevelDB) Close() error {
	return l.conn.Close()
}

// Write takes the specified database block and stores it under its
// block number.
func (l *LevelDB) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return l.conn.Put(key(blockData.Index), data, &opt.WriteOptions{Sync: true})
}

// GetBlock retrieves the specified block by number.
func (l *LevelDB) GetBlock(num uint64) (database.BlockData, error) {
	data, err := l.conn.Get(key(num), nil)
	if err != nil {
		return database.BlockData{}, err
	}

	var blockData database.BlockData
	if err := json.Unmarshal(data, &blockData); err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks in block
// number order starting with the genesis block.
func (l *LevelDB) ForEach() database.Iterator {
	return &levelIterator{
		iter: l.conn.NewIterator(util.BytesPrefix(blockPrefix), nil),
	}
}

// Reset removes every block from the database.
func (l *LevelDB) Reset() error {
	iter := l.conn.NewIterator(util.BytesPrefix(blockPrefix), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte{}, iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return err
	}

	return l.conn.Write(batch, &opt.WriteOptions{Sync: true})
}

// key forms the key for the specified block. The number is big endian
// so the keys sort in chain order.
func key(num uint64) []byte {
	k := make([]byte, len(blockPrefix)+8)
	copy(k, blockPrefix)
	binary.BigEndian.PutUint64(k[len(blockPrefix):], num)
	return k
}

// =============================================================================

// levelIterator represents the iteration implementation for walking
// through the blocks stored in LevelDB. This implements the database
// Iterator interface.
type levelIterator struct {
	iter iterator.Iterator
	eoc  bool
}

// Next retrieves the next block from the database.
func (li *levelIterator) Next() (database.BlockData, error) {
	if li.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	if !li.iter.Next() {
		li.eoc = true
		err := li.iter.Error()
		li.iter.Release()
		return database.BlockData{}, err
	}

	var blockData database.BlockData
	if err := json.Unmarshal(li.iter.Value(), &blockData); err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// Done returns the end of chain value.
func (li *levelIterator) Done() bool {
	return li.eoc
}
