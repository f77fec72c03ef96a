package blockstore

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
)

var (
	// ErrBlockNotFound is returned when a block doesn't exist.
	ErrBlockNotFound = errors.New("block not found")

	// ErrTransactionNotFound is returned when a transaction doesn't exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrSlotNotFound is returned when a slot doesn't exist.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrBlockhashNotFound is returned for blockhashes the journal never produced
	// or already pruned.
	ErrBlockhashNotFound = errors.New("blockhash not found")

	// ErrSlotExists is returned when a block is written over an existing slot.
	ErrSlotExists = errors.New("slot already stored")

	// ErrClosed is returned when operating on a closed journal.
	ErrClosed = errors.New("blockstore closed")
)

// Bucket names for BoltDB.
var (
	// bucketBlocks stores complete block data keyed by slot.
	bucketBlocks = []byte("blocks")

	// bucketSlotMeta stores slot metadata keyed by slot.
	bucketSlotMeta = []byte("slot_meta")

	// bucketSignatures indexes transactions by signature.
	bucketSignatures = []byte("signatures")

	// bucketAddressSignatures indexes signatures by address+slot+signature.
	bucketAddressSignatures = []byte("addr_sigs")

	// bucketBlockhashes maps a blockhash to its slot.
	bucketBlockhashes = []byte("blockhashes")

	// bucketMetadata stores journal metadata.
	bucketMetadata = []byte("meta")
)

// Metadata keys.
var (
	keyLatestSlot       = []byte("latest_slot")
	keyLatestBlockhash  = []byte("latest_blockhash")
	keyOldestSlot       = []byte("oldest_slot")
	keyBlockCount       = []byte("block_count")
	keyTransactionCount = []byte("transaction_count")
)

// Config holds journal configuration options.
type Config struct {
	// Path is the database file.
	Path string

	// NoSync disables fsync after each write (faster but less durable).
	NoSync bool

	// RetainSlots is the number of slots to retain during pruning.
	RetainSlots uint64

	// ReadOnly opens the database in read-only mode.
	ReadOnly bool
}

// DefaultConfig returns the default journal configuration.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		RetainSlots: DefaultRetainSlots,
	}
}

// Store is the journal interface.
type Store interface {
	// Block operations
	GetBlock(slot uint64) (*Block, error)
	PutBlock(block *Block) error
	HasBlock(slot uint64) bool
	DeleteBlock(slot uint64) error
	GetSlotMeta(slot uint64) (*SlotMeta, error)

	// Transaction operations
	GetTransaction(signature types.Signature) (*Transaction, error)
	GetTransactionStatus(signature types.Signature) (*TransactionStatus, error)
	HasSignature(signature types.Signature) bool
	GetSignaturesForAddress(address types.Pubkey, opts *SignatureQueryOptions) ([]SignatureInfo, error)

	// Slot progression
	GetBlockhashSlot(hash types.Hash) (uint64, error)
	GetLatestSlot() uint64
	GetLatestBlockhash() types.Hash
	GetOldestSlot() uint64

	// Maintenance
	Prune(keepSlots uint64) (uint64, error)
	GetStats() (*Stats, error)
	Sync() error
	Close() error
}

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db     *bolt.DB
	config Config

	// Cached values for fast reads.
	mu               sync.RWMutex
	latestSlot       uint64
	latestBlockhash  types.Hash
	oldestSlot       uint64
	blockCount       uint64
	transactionCount uint64

	closed bool
}

// Open creates or opens a journal at the given path.
func Open(config Config) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, errors.Wrap(err, "create directory")
	}

	opts := &bolt.Options{
		Timeout:  5 * time.Second,
		NoSync:   config.NoSync,
		ReadOnly: config.ReadOnly,
	}
	db, err := bolt.Open(config.Path, 0600, opts)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	store := &BoltStore{
		db:     db,
		config: config,
	}

	// Initialize buckets (skip in read-only mode).
	if !config.ReadOnly {
		if err := store.initBuckets(); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "init buckets")
		}
	}

	if err := store.loadCachedValues(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "load cached values")
	}
	return store, nil
}

// initBuckets creates all required buckets.
func (s *BoltStore) initBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketBlocks,
			bucketSlotMeta,
			bucketSignatures,
			bucketAddressSignatures,
			bucketBlockhashes,
			bucketMetadata,
		}
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "create bucket %s", name)
			}
		}
		return nil
	})
}

// loadCachedValues loads frequently-accessed values into memory.
func (s *BoltStore) loadCachedValues() error {
	return s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMetadata)
		if meta == nil {
			return nil // Empty database, no values to load.
		}

		if v := meta.Get(keyLatestSlot); v != nil {
			s.latestSlot = DecodeSlotKey(v)
		}
		if v := meta.Get(keyLatestBlockhash); v != nil {
			copy(s.latestBlockhash[:], v)
		}
		if v := meta.Get(keyOldestSlot); v != nil {
			s.oldestSlot = DecodeSlotKey(v)
		}
		if v := meta.Get(keyBlockCount); v != nil {
			s.blockCount = DecodeSlotKey(v)
		}
		if v := meta.Get(keyTransactionCount); v != nil {
			s.transactionCount = DecodeSlotKey(v)
		}
		return nil
	})
}

func (s *BoltStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// GetBlock retrieves a block by slot number.
func (s *BoltStore) GetBlock(slot uint64) (*Block, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var block Block
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketBlocks).Get(EncodeSlotKey(slot))
		if data == nil {
			return ErrBlockNotFound
		}
		return decode(data, &block)
	})
	if err != nil {
		return nil, err
	}
	return &block, nil
}

// PutBlock stores a block and indexes its transactions.
func (s *BoltStore) PutBlock(block *Block) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	for i := range block.Transactions {
		block.Transactions[i].Slot = block.Slot
	}

	blockData, err := encode(block)
	if err != nil {
		return errors.Wrap(err, "encode block")
	}
	metaData, err := encode(&SlotMeta{
		Slot:              block.Slot,
		ParentSlot:        block.ParentSlot,
		BlockTime:         block.BlockTime,
		Commitment:        CommitmentFinalized,
		TransactionCount:  uint64(len(block.Transactions)),
		Blockhash:         block.Blockhash,
		PreviousBlockhash: block.PreviousBlockhash,
	})
	if err != nil {
		return errors.Wrap(err, "encode slot meta")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	latest := s.latestSlot
	latestHash := s.latestBlockhash
	if block.Slot >= latest {
		latest = block.Slot
		latestHash = block.Blockhash
	}
	oldest := s.oldestSlot
	if s.blockCount == 0 || block.Slot < oldest {
		oldest = block.Slot
	}
	blockCount := s.blockCount + 1
	txCount := s.transactionCount + uint64(len(block.Transactions))

	err = s.db.Update(func(tx *bolt.Tx) error {
		slotKey := EncodeSlotKey(block.Slot)
		blocks := tx.Bucket(bucketBlocks)
		if blocks.Get(slotKey) != nil {
			return ErrSlotExists
		}
		if err := blocks.Put(slotKey, blockData); err != nil {
			return err
		}
		if err := tx.Bucket(bucketSlotMeta).Put(slotKey, metaData); err != nil {
			return err
		}
		if err := tx.Bucket(bucketBlockhashes).Put(block.Blockhash[:], slotKey); err != nil {
			return err
		}

		sigs := tx.Bucket(bucketSignatures)
		addrSigs := tx.Bucket(bucketAddressSignatures)
		for i := range block.Transactions {
			txn := &block.Transactions[i]

			txData, err := encode(txn)
			if err != nil {
				return errors.Wrap(err, "encode transaction")
			}
			if err := sigs.Put(txn.Signature[:], txData); err != nil {
				return err
			}

			info := SignatureInfo{
				Signature: txn.Signature,
				Slot:      block.Slot,
				BlockTime: block.BlockTime,
			}
			if txn.Meta != nil {
				info.Err = txn.Meta.Err
			}
			infoData, err := encode(&info)
			if err != nil {
				return errors.Wrap(err, "encode sig info")
			}
			for _, addr := range txn.AccountKeys {
				if err := addrSigs.Put(EncodeAddressSignatureKey(addr, block.Slot, txn.Signature), infoData); err != nil {
					return err
				}
			}
		}

		meta := tx.Bucket(bucketMetadata)
		for key, value := range map[string][]byte{
			string(keyLatestSlot):       EncodeSlotKey(latest),
			string(keyLatestBlockhash):  latestHash[:],
			string(keyOldestSlot):       EncodeSlotKey(oldest),
			string(keyBlockCount):       EncodeSlotKey(blockCount),
			string(keyTransactionCount): EncodeSlotKey(txCount),
		} {
			if err := meta.Put([]byte(key), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.latestSlot = latest
	s.latestBlockhash = latestHash
	s.oldestSlot = oldest
	s.blockCount = blockCount
	s.transactionCount = txCount
	return nil
}

// HasBlock checks if a block exists for the given slot.
func (s *BoltStore) HasBlock(slot uint64) bool {
	if s.checkOpen() != nil {
		return false
	}

	exists := false
	s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketBlocks).Get(EncodeSlotKey(slot)) != nil
		return nil
	})
	return exists
}

// DeleteBlock removes a block and its associated indexes.
func (s *BoltStore) DeleteBlock(slot uint64) error {
	block, err := s.GetBlock(slot)
	if err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return nil // Already deleted.
		}
		return err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		slotKey := EncodeSlotKey(slot)
		if err := tx.Bucket(bucketBlocks).Delete(slotKey); err != nil {
			return err
		}
		if err := tx.Bucket(bucketSlotMeta).Delete(slotKey); err != nil {
			return err
		}
		if err := tx.Bucket(bucketBlockhashes).Delete(block.Blockhash[:]); err != nil {
			return err
		}

		sigs := tx.Bucket(bucketSignatures)
		addrSigs := tx.Bucket(bucketAddressSignatures)
		for _, txn := range block.Transactions {
			if err := sigs.Delete(txn.Signature[:]); err != nil {
				return err
			}
			for _, addr := range txn.AccountKeys {
				if err := addrSigs.Delete(EncodeAddressSignatureKey(addr, slot, txn.Signature)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.blockCount--
	s.transactionCount -= uint64(len(block.Transactions))
	s.mu.Unlock()
	return nil
}

// GetSlotMeta retrieves metadata for a slot.
func (s *BoltStore) GetSlotMeta(slot uint64) (*SlotMeta, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var meta SlotMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSlotMeta).Get(EncodeSlotKey(slot))
		if data == nil {
			return ErrSlotNotFound
		}
		return decode(data, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// GetTransaction retrieves a transaction by signature.
func (s *BoltStore) GetTransaction(signature types.Signature) (*Transaction, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var txn Transaction
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSignatures).Get(signature[:])
		if data == nil {
			return ErrTransactionNotFound
		}
		return decode(data, &txn)
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetTransactionStatus returns the status of a transaction.
func (s *BoltStore) GetTransactionStatus(signature types.Signature) (*TransactionStatus, error) {
	txn, err := s.GetTransaction(signature)
	if err != nil {
		return nil, err
	}
	meta, err := s.GetSlotMeta(txn.Slot)
	if err != nil {
		return nil, err
	}

	status := &TransactionStatus{
		Slot:               txn.Slot,
		Signature:          txn.Signature,
		ConfirmationStatus: meta.Commitment,
	}
	if txn.Meta != nil {
		status.Err = txn.Meta.Err
	}

	// Calculate confirmations if not finalized.
	if meta.Commitment != CommitmentFinalized {
		s.mu.RLock()
		if s.latestSlot > txn.Slot {
			confs := s.latestSlot - txn.Slot
			status.Confirmations = &confs
		}
		s.mu.RUnlock()
	}
	return status, nil
}

// HasSignature reports whether a transaction with this signature was journaled.
func (s *BoltStore) HasSignature(signature types.Signature) bool {
	if s.checkOpen() != nil {
		return false
	}

	exists := false
	s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketSignatures).Get(signature[:]) != nil
		return nil
	})
	return exists
}

// GetSignaturesForAddress returns signatures for transactions involving an
// address, newest first.
func (s *BoltStore) GetSignaturesForAddress(address types.Pubkey, opts *SignatureQueryOptions) ([]SignatureInfo, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	if opts == nil {
		opts = &SignatureQueryOptions{Limit: 1000}
	}
	if opts.Limit <= 0 {
		opts.Limit = 1000
	}

	var results []SignatureInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAddressSignatures).Cursor()
		prefix := address[:]

		// Seek just past the address prefix and walk backwards.
		end := make([]byte, 0, len(prefix)+1)
		end = append(end, prefix...)
		end = append(end, 0xFF)
		k, v := c.Seek(end)
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}

		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Prev() {
			var info SignatureInfo
			if err := decode(v, &info); err != nil {
				return errors.Wrap(err, "decode sig info")
			}
			if opts.Until != nil && info.Slot <= *opts.Until {
				break
			}
			results = append(results, info)
			if len(results) >= opts.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetBlockhashSlot returns the slot that produced hash.
func (s *BoltStore) GetBlockhashSlot(hash types.Hash) (uint64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	var slot uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlockhashes).Get(hash[:])
		if v == nil {
			return ErrBlockhashNotFound
		}
		slot = DecodeSlotKey(v)
		return nil
	})
	return slot, err
}

// GetLatestSlot returns the most recent slot.
func (s *BoltStore) GetLatestSlot() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestSlot
}

// GetLatestBlockhash returns the blockhash of the most recent slot.
func (s *BoltStore) GetLatestBlockhash() types.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestBlockhash
}

// GetOldestSlot returns the oldest slot still stored.
func (s *BoltStore) GetOldestSlot() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oldestSlot
}

// Prune removes blocks older than the specified retention window.
// Returns the number of blocks pruned.
func (s *BoltStore) Prune(keepSlots uint64) (uint64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	latestSlot := s.GetLatestSlot()
	if latestSlot <= keepSlots {
		return 0, nil // Nothing to prune.
	}
	pruneBeforeSlot := latestSlot - keepSlots

	var slotsToPrune []uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketBlocks).Cursor()
		maxKey := EncodeSlotKey(pruneBeforeSlot)
		for k, _ := c.First(); k != nil && bytes.Compare(k, maxKey) < 0; k, _ = c.Next() {
			slotsToPrune = append(slotsToPrune, DecodeSlotKey(k))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	var pruned uint64
	for _, slot := range slotsToPrune {
		if err := s.DeleteBlock(slot); err != nil {
			return pruned, errors.Wrapf(err, "delete slot %d", slot)
		}
		pruned++
	}

	if pruned > 0 {
		s.mu.Lock()
		s.oldestSlot = pruneBeforeSlot
		s.mu.Unlock()

		err = s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketMetadata).Put(keyOldestSlot, EncodeSlotKey(pruneBeforeSlot))
		})
	}
	return pruned, err
}

// GetStats returns journal statistics.
func (s *BoltStore) GetStats() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	stats := &Stats{
		LatestSlot:       s.latestSlot,
		OldestSlot:       s.oldestSlot,
		BlockCount:       s.blockCount,
		TransactionCount: s.transactionCount,
	}
	if info, err := os.Stat(s.config.Path); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}

// Sync forces a sync of the database to disk.
func (s *BoltStore) Sync() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.Sync()
}

// Close shuts down the journal.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	blockCount, txCount := s.blockCount, s.transactionCount
	s.mu.Unlock()

	if !s.config.ReadOnly {
		err := s.db.Update(func(tx *bolt.Tx) error {
			meta := tx.Bucket(bucketMetadata)
			if err := meta.Put(keyBlockCount, EncodeSlotKey(blockCount)); err != nil {
				return err
			}
			return meta.Put(keyTransactionCount, EncodeSlotKey(txCount))
		})
		if err != nil {
			s.db.Close()
			return errors.Wrap(err, "persist metadata")
		}
	}
	return s.db.Close()
}

// Verify interface compliance.
var _ Store = (*BoltStore)(nil)
