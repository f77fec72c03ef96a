package accounts

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/fortiblox/X1-Bulldozer/internal/types"
)

// Snapshot file format version.
const snapshotVersion uint32 = 2

// Snapshot file magic bytes for format validation.
var snapshotMagic = []byte{'X', '1', 'B', 'D'}

// snapshotBatchSize bounds the number of accounts per load batch.
const snapshotBatchSize = 1000

// SnapshotHeader contains metadata about a snapshot.
type SnapshotHeader struct {
	Version       uint32
	Slot          uint64
	AccountsCount uint64
	AccountsHash  types.Hash
}

// SnapshotWriter writes accounts to a snapshot file.
// Snapshot format:
//   - Magic (4 bytes): "X1BD"
//   - Version (4 bytes, little-endian)
//   - Slot (8 bytes, little-endian)
//   - AccountsCount (8 bytes, little-endian)
//   - AccountsHash (32 bytes)
//   - Accounts (zstd stream), each:
//     Pubkey (32) || AccountSize (4, little-endian) || serialized account
type SnapshotWriter struct {
	file   *os.File
	enc    *zstd.Encoder
	writer *bufio.Writer
	header SnapshotHeader
	count  uint64
}

// NewSnapshotWriter creates a new snapshot writer.
func NewSnapshotWriter(path string, slot uint64, accountsHash types.Hash) (*SnapshotWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "create snapshot directory")
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create snapshot file")
	}

	sw := &SnapshotWriter{
		file: file,
		header: SnapshotHeader{
			Version:      snapshotVersion,
			Slot:         slot,
			AccountsHash: accountsHash,
		},
	}

	// Placeholder header, rewritten with the final count on Close.
	if err := sw.writeHeader(); err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}
	if _, err := file.Seek(int64(len(snapshotMagic)+52), io.SeekStart); err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}

	sw.enc, err = zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, errors.Wrap(err, "init zstd writer")
	}
	sw.writer = bufio.NewWriter(sw.enc)

	return sw, nil
}

func (sw *SnapshotWriter) writeHeader() error {
	buf := make([]byte, 4+52)
	copy(buf, snapshotMagic)
	offset := 4

	binary.LittleEndian.PutUint32(buf[offset:], sw.header.Version)
	offset += 4
	binary.LittleEndian.PutUint64(buf[offset:], sw.header.Slot)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:], sw.header.AccountsCount)
	offset += 8
	copy(buf[offset:], sw.header.AccountsHash[:])

	_, err := sw.file.WriteAt(buf, 0)
	return err
}

// WriteAccount writes a single account to the snapshot.
func (sw *SnapshotWriter) WriteAccount(pubkey types.Pubkey, account *Account) error {
	if _, err := sw.writer.Write(pubkey[:]); err != nil {
		return err
	}

	data := account.Serialize()
	sizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBuf, uint32(len(data)))
	if _, err := sw.writer.Write(sizeBuf); err != nil {
		return err
	}
	if _, err := sw.writer.Write(data); err != nil {
		return err
	}

	sw.count++
	return nil
}

// Close finalizes and closes the snapshot.
func (sw *SnapshotWriter) Close() error {
	if err := sw.writer.Flush(); err != nil {
		sw.file.Close()
		return err
	}
	if err := sw.enc.Close(); err != nil {
		sw.file.Close()
		return err
	}

	sw.header.AccountsCount = sw.count
	if err := sw.writeHeader(); err != nil {
		sw.file.Close()
		return err
	}
	return sw.file.Close()
}

// SnapshotReader reads accounts from a snapshot file.
type SnapshotReader struct {
	file   *os.File
	dec    *zstd.Decoder
	reader *bufio.Reader
	Header SnapshotHeader
	read   uint64
}

// OpenSnapshot opens a snapshot file for reading.
func OpenSnapshot(path string) (*SnapshotReader, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSnapshotNotFound
		}
		return nil, errors.Wrap(err, "open snapshot")
	}

	sr := &SnapshotReader{file: file}
	if err := sr.readHeader(); err != nil {
		file.Close()
		return nil, err
	}

	sr.dec, err = zstd.NewReader(file)
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "init zstd reader")
	}
	sr.reader = bufio.NewReader(sr.dec)

	return sr, nil
}

func (sr *SnapshotReader) readHeader() error {
	buf := make([]byte, 4+52)
	if _, err := io.ReadFull(sr.file, buf); err != nil {
		return errors.Wrap(err, "read header")
	}
	if string(buf[:4]) != string(snapshotMagic) {
		return errors.Errorf("invalid snapshot magic: %q", buf[:4])
	}

	offset := 4
	sr.Header.Version = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	if sr.Header.Version != snapshotVersion {
		return errors.Errorf("unsupported snapshot version: %d", sr.Header.Version)
	}
	sr.Header.Slot = binary.LittleEndian.Uint64(buf[offset:])
	offset += 8
	sr.Header.AccountsCount = binary.LittleEndian.Uint64(buf[offset:])
	offset += 8
	copy(sr.Header.AccountsHash[:], buf[offset:])

	return nil
}

// ReadAccount reads the next account from the snapshot.
// Returns io.EOF when all accounts have been read.
func (sr *SnapshotReader) ReadAccount() (types.Pubkey, *Account, error) {
	if sr.read >= sr.Header.AccountsCount {
		return types.Pubkey{}, nil, io.EOF
	}

	var pubkey types.Pubkey
	if _, err := io.ReadFull(sr.reader, pubkey[:]); err != nil {
		return types.Pubkey{}, nil, errors.Wrap(err, "read pubkey")
	}

	sizeBuf := make([]byte, 4)
	if _, err := io.ReadFull(sr.reader, sizeBuf); err != nil {
		return types.Pubkey{}, nil, errors.Wrap(err, "read size")
	}
	size := binary.LittleEndian.Uint32(sizeBuf)

	const maxAccountSerializedSize = MaxAccountDataSize + 100
	if size > maxAccountSerializedSize {
		return types.Pubkey{}, nil, errors.Errorf("account size %d exceeds maximum %d", size, maxAccountSerializedSize)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(sr.reader, data); err != nil {
		return types.Pubkey{}, nil, errors.Wrap(err, "read account data")
	}

	account, err := DeserializeAccount(data)
	if err != nil {
		return types.Pubkey{}, nil, errors.Wrap(err, "deserialize account")
	}

	sr.read++
	return pubkey, account, nil
}

// Close closes the snapshot reader.
func (sr *SnapshotReader) Close() error {
	if sr.dec != nil {
		sr.dec.Close()
	}
	return sr.file.Close()
}

// GetSnapshotHeader returns the header of a snapshot file.
func GetSnapshotHeader(path string) (*SnapshotHeader, error) {
	reader, err := OpenSnapshot(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return &reader.Header, nil
}

// SnapshotFilename returns the standard filename for a snapshot.
// Format: snapshot-{slot}-{hash}.x1bd
func SnapshotFilename(slot uint64, hash types.Hash) string {
	return fmt.Sprintf("snapshot-%d-%s.x1bd", slot, hash.String()[:16])
}

// writeSnapshot streams every account of db into a new snapshot file.
func writeSnapshot(db DB, path string) error {
	accountsHash, err := ComputeAccountsHash(db)
	if err != nil {
		return errors.Wrap(err, "compute accounts hash")
	}

	writer, err := NewSnapshotWriter(path, db.GetSlot(), accountsHash)
	if err != nil {
		return err
	}

	err = db.IterateAccounts(func(pubkey types.Pubkey, account *Account) error {
		return writer.WriteAccount(pubkey, account)
	})
	if err != nil {
		writer.Close()
		return errors.Wrap(err, "write accounts")
	}
	return writer.Close()
}

// readSnapshot loads a snapshot into db in batches and verifies its hash.
func readSnapshot(db DB, path string) error {
	reader, err := OpenSnapshot(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	batch := make([]AccountEntry, 0, snapshotBatchSize)
	for {
		pubkey, account, err := reader.ReadAccount()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "read account")
		}

		batch = append(batch, AccountEntry{Pubkey: pubkey, Account: account})
		if len(batch) >= snapshotBatchSize {
			if err := db.WriteBatch(batch); err != nil {
				return errors.Wrap(err, "flush batch")
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := db.WriteBatch(batch); err != nil {
			return errors.Wrap(err, "flush final batch")
		}
	}

	if err := db.SetSlot(reader.Header.Slot); err != nil {
		return errors.Wrap(err, "set slot")
	}

	computed, err := ComputeAccountsHash(db)
	if err != nil {
		return errors.Wrap(err, "compute hash")
	}
	if computed != reader.Header.AccountsHash {
		return errors.Wrapf(ErrSnapshotHashMismatch, "expected %s, got %s",
			reader.Header.AccountsHash, computed)
	}
	return nil
}

// CreateSnapshot creates a snapshot from a BadgerDB database.
func (b *BadgerDB) CreateSnapshot(path string) error {
	if b.closed.Load() {
		return ErrClosed
	}
	return writeSnapshot(b, path)
}

// LoadSnapshot replaces the database contents with a snapshot.
func (b *BadgerDB) LoadSnapshot(path string) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if _, err := GetSnapshotHeader(path); err != nil {
		return err
	}
	if err := b.reset(); err != nil {
		return errors.Wrap(err, "reset accounts")
	}
	if err := readSnapshot(b, path); err != nil {
		return err
	}
	return b.Commit()
}

// CreateSnapshot creates a snapshot from a MemoryDB.
func (m *MemoryDB) CreateSnapshot(path string) error {
	return writeSnapshot(m, path)
}

// LoadSnapshot replaces the in-memory contents with a snapshot.
func (m *MemoryDB) LoadSnapshot(path string) error {
	if _, err := GetSnapshotHeader(path); err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.accounts = make(map[types.Pubkey]*Account)
	m.mu.Unlock()

	return readSnapshot(m, path)
}

var (
	_ SnapshotableDB = (*BadgerDB)(nil)
	_ SnapshotableDB = (*MemoryDB)(nil)
)
