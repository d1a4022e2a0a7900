package storage

import (
	"errors"
	"sync"

	"github.com/babymu5k/Zedovium/foundation/blockchain/database"
)

// Memory represents the serialization implementation for keeping blocks in
// memory. Used by tests and by nodes run without a database path.
type Memory struct {
	mu     sync.RWMutex
	blocks map[uint64]database.BlockData
}

// NewMemory constructs a Memory value for use.
func NewMemory() *Memory {
	return &Memory{
		blocks: make(map[uint64]database.BlockData),
	}
}

// Close in this implementation has nothing to do.
func (m *Memory) Close() error {
	return nil
}

// Write stores the block data in the map keyed by block number.
func (m *Memory) Write(blockData database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[blockData.Header.Number] = blockData
	return nil
}

// GetBlock returns the contents of the specified block by number.
func (m *Memory) GetBlock(num uint64) (database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blockData, exists := m.blocks[num]
	if !exists {
		return database.BlockData{}, errors.New("block not found")
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks starting with
// block number 1.
func (m *Memory) ForEach() database.Iterator {
	return &MemoryIterator{memory: m}
}

// Reset clears all the blocks from memory.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = make(map[uint64]database.BlockData)
	return nil
}

// =============================================================================

// MemoryIterator represents the iteration implementation for walking
// through the blocks held in memory.
type MemoryIterator struct {
	memory  *Memory
	current uint64
	eoc     bool
}

// Next retrieves the next block from memory.
func (mi *MemoryIterator) Next() (database.BlockData, error) {
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
func (mi *MemoryIterator) Done() bool {
	return mi.eoc
}
