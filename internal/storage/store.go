package storage

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"github.com/ugorji/go/codec"

	"github.com/LeJamon/goMarketd/internal/bank"
	"github.com/LeJamon/goMarketd/internal/core/state"
	"github.com/LeJamon/goMarketd/internal/storage/compression"
)

const (
	// Record values carry a compressor ID and the uncompressed
	// payload length ahead of the payload itself.
	recordHeaderSize = 1 + 4

	// minCompressSize is the smallest payload worth compressing.
	minCompressSize = 128

	// Compressor IDs stored in record headers. The ID, not the
	// configured compressor, decides how a record is decoded, so
	// changing the compressor config never strands old records.
	recordNone byte = 0
	recordLZ4  byte = 1
)

// Keyspace prefixes separate record families in the backend.
const (
	keyspaceEntry byte = 0x01
	keyspaceMeta  byte = 0x02
)

// balancesName is the meta record holding the settlement balances.
const balancesName = "balances"

// storeHandle is the canonical CBOR handle for store-level blobs.
var storeHandle = func() *codec.CborHandle {
	h := new(codec.CborHandle)
	h.Canonical = true
	return h
}()

// Store persists ledger checkpoints through a Backend. Writes flow in
// from the engine's commit hook after each applied operation; reads
// happen at boot (full restore) and on demand per entry. The engine
// serializes commits, so Store performs no locking of its own beyond
// what the backend provides.
type Store struct {
	backend Backend
	comp    compression.Compressor
	compID  byte
	cache   *entryCache
	config  *Config

	stats struct {
		reads      uint64
		writes     uint64
		readBytes  uint64
		writeBytes uint64
	}
}

// Open validates the configuration, creates the configured backend and
// compressor, and opens the backend.
func Open(config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	comp, err := compression.Get(config.Compressor)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompressor, config.Compressor)
	}
	compID, err := compressorID(config.Compressor)
	if err != nil {
		return nil, err
	}

	backend, err := CreateBackend(config.Backend, config)
	if err != nil {
		return nil, err
	}
	if err := backend.Open(config.CreateIfMissing); err != nil {
		return nil, err
	}

	s := &Store{
		backend: backend,
		comp:    comp,
		compID:  compID,
		config:  config,
	}

	if config.CacheSize > 0 {
		cache, err := newEntryCache(config.CacheSize)
		if err != nil {
			backend.Close()
			return nil, err
		}
		s.cache = cache
	}

	return s, nil
}

// Close flushes and closes the underlying backend.
func (s *Store) Close() error {
	if s.cache != nil {
		s.cache.Purge()
	}
	return s.backend.Close()
}

// Sync forces pending backend writes to disk.
func (s *Store) Sync() error {
	if status := s.backend.Sync(); status != OK {
		return NewError("sync", s.backend.Name(), "", statusError(status))
	}
	return nil
}

// Backend exposes the underlying backend, mainly for inspection.
func (s *Store) Backend() Backend {
	return s.backend
}

// PutEntry persists a ledger entry under its canonical state key.
func (s *Store) PutEntry(e state.Entry) error {
	return s.putEntryAt(state.KeyletOf(e).Key, e)
}

// putEntryAt persists a ledger entry under an explicit state key.
func (s *Store) putEntryAt(key state.Key, e state.Entry) error {
	data, err := state.EncodeEntry(e)
	if err != nil {
		return NewError("put", s.backend.Name(), key.String(), err)
	}

	record, err := s.encodeRecord(data)
	if err != nil {
		return NewError("put", s.backend.Name(), key.String(), err)
	}

	if status := s.backend.Put(entryKey(key), record); status != OK {
		return NewError("put", s.backend.Name(), key.String(), statusError(status))
	}

	atomic.AddUint64(&s.stats.writes, 1)
	atomic.AddUint64(&s.stats.writeBytes, uint64(len(record)))

	if s.cache != nil {
		s.cache.Put(key, e)
	}

	return nil
}

// Entry retrieves the persisted ledger entry at the keylet, or
// (nil, nil) when no record exists.
func (s *Store) Entry(k state.Keylet) (state.Entry, error) {
	atomic.AddUint64(&s.stats.reads, 1)

	if s.cache != nil {
		if entry, found := s.cache.Get(k.Key); found {
			return entry, nil
		}
	}

	value, status := s.backend.Get(entryKey(k.Key))
	if status == NotFound {
		return nil, nil
	}
	if status != OK {
		return nil, NewError("get", s.backend.Name(), k.Key.String(), statusError(status))
	}

	atomic.AddUint64(&s.stats.readBytes, uint64(len(value)))

	data, err := s.decodeRecord(value)
	if err != nil {
		return nil, NewError("get", s.backend.Name(), k.Key.String(), err)
	}

	entry, err := state.DecodeEntry(data)
	if err != nil {
		return nil, NewError("get", s.backend.Name(), k.Key.String(), err)
	}

	if s.cache != nil {
		s.cache.Put(k.Key, entry)
	}

	return entry, nil
}

// DeleteEntry removes the persisted ledger entry at the keylet.
func (s *Store) DeleteEntry(k state.Keylet) error {
	return s.deleteEntryAt(k.Key)
}

// deleteEntryAt removes the record at an explicit state key.
func (s *Store) deleteEntryAt(key state.Key) error {
	if status := s.backend.Delete(entryKey(key)); status != OK {
		return NewError("delete", s.backend.Name(), key.String(), statusError(status))
	}
	if s.cache != nil {
		s.cache.Remove(key)
	}
	return nil
}

// ApplyChanges persists one committed change set. Reads are skipped,
// inserts and modifications are written, erases are deleted. A failure
// partway leaves earlier records written; the next successful
// checkpoint of the same keys converges the store again.
func (s *Store) ApplyChanges(changes []state.Change) error {
	for _, ch := range changes {
		switch ch.Action {
		case state.ActionInsert, state.ActionModify:
			if err := s.putEntryAt(ch.Key, ch.After); err != nil {
				return err
			}
		case state.ActionErase:
			if err := s.deleteEntryAt(ch.Key); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadEntries reads every persisted ledger entry, in key order. The
// result feeds Ledger.Restore at boot.
func (s *Store) LoadEntries() ([]state.Entry, error) {
	var entries []state.Entry
	err := s.backend.ForEach([]byte{keyspaceEntry}, func(key, value []byte) error {
		data, err := s.decodeRecord(value)
		if err != nil {
			return NewError("load", s.backend.Name(), hex.EncodeToString(key), err)
		}
		entry, err := state.DecodeEntry(data)
		if err != nil {
			return NewError("load", s.backend.Name(), hex.EncodeToString(key), err)
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// PutBalances persists the full settlement balance snapshot as a
// single record, replacing the previous snapshot.
func (s *Store) PutBalances(balances []bank.Balance) error {
	var data []byte
	if err := codec.NewEncoderBytes(&data, storeHandle).Encode(balances); err != nil {
		return NewError("put", s.backend.Name(), balancesName, err)
	}

	record, err := s.encodeRecord(data)
	if err != nil {
		return NewError("put", s.backend.Name(), balancesName, err)
	}

	if status := s.backend.Put(metaKey(balancesName), record); status != OK {
		return NewError("put", s.backend.Name(), balancesName, statusError(status))
	}

	atomic.AddUint64(&s.stats.writes, 1)
	atomic.AddUint64(&s.stats.writeBytes, uint64(len(record)))

	return nil
}

// LoadBalances reads the persisted settlement balance snapshot, or
// (nil, nil) when none has been written.
func (s *Store) LoadBalances() ([]bank.Balance, error) {
	value, status := s.backend.Get(metaKey(balancesName))
	if status == NotFound {
		return nil, nil
	}
	if status != OK {
		return nil, NewError("get", s.backend.Name(), balancesName, statusError(status))
	}

	data, err := s.decodeRecord(value)
	if err != nil {
		return nil, NewError("get", s.backend.Name(), balancesName, err)
	}

	var balances []bank.Balance
	if err := codec.NewDecoderBytes(data, storeHandle).Decode(&balances); err != nil {
		return nil, NewError("get", s.backend.Name(), balancesName, err)
	}

	return balances, nil
}

// Stats returns performance statistics.
func (s *Store) Stats() Statistics {
	stats := Statistics{
		Reads:       atomic.LoadUint64(&s.stats.reads),
		ReadBytes:   atomic.LoadUint64(&s.stats.readBytes),
		Writes:      atomic.LoadUint64(&s.stats.writes),
		WriteBytes:  atomic.LoadUint64(&s.stats.writeBytes),
		BackendName: s.backend.Name(),
	}

	if s.cache != nil {
		stats.CacheHits = s.cache.Hits()
		stats.CacheMisses = s.cache.Misses()
		stats.CacheSize = uint64(s.cache.Len())
		stats.CacheMaxSize = uint64(s.config.CacheSize)
	}

	return stats
}

// encodeRecord wraps a payload in the record header, compressing when
// the configured compressor shrinks it.
func (s *Store) encodeRecord(data []byte) ([]byte, error) {
	id := recordNone
	payload := data

	if s.compID != recordNone && len(data) >= minCompressSize {
		compressed, err := s.comp.Compress(data, s.config.CompressionLevel)
		if err != nil {
			return nil, err
		}
		if len(compressed) < len(data) {
			id = s.compID
			payload = compressed
		}
	}

	out := make([]byte, recordHeaderSize+len(payload))
	out[0] = id
	binary.BigEndian.PutUint32(out[1:recordHeaderSize], uint32(len(data)))
	copy(out[recordHeaderSize:], payload)
	return out, nil
}

// decodeRecord unwraps a record value back to its payload, selecting
// the decompressor by the header's compressor ID.
func (s *Store) decodeRecord(value []byte) ([]byte, error) {
	if len(value) < recordHeaderSize {
		return nil, fmt.Errorf("%w: record shorter than header", ErrDataCorrupt)
	}

	id := value[0]
	size := int(binary.BigEndian.Uint32(value[1:recordHeaderSize]))
	payload := value[recordHeaderSize:]

	if id == recordNone {
		if size != len(payload) {
			return nil, fmt.Errorf("%w: header size %d, payload %d", ErrDataCorrupt, size, len(payload))
		}
		return payload, nil
	}

	comp, err := compressorForID(id)
	if err != nil {
		return nil, err
	}
	data, err := comp.Decompress(payload, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataCorrupt, err)
	}
	return data, nil
}

// entryKey maps a state key into the entry keyspace.
func entryKey(key state.Key) []byte {
	out := make([]byte, 1+len(key))
	out[0] = keyspaceEntry
	copy(out[1:], key[:])
	return out
}

// metaKey maps a record name into the meta keyspace.
func metaKey(name string) []byte {
	out := make([]byte, 1+len(name))
	out[0] = keyspaceMeta
	copy(out[1:], name)
	return out
}

// compressorID maps a configured compressor name to its record ID.
func compressorID(name string) (byte, error) {
	switch name {
	case "none":
		return recordNone, nil
	case "lz4":
		return recordLZ4, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedCompressor, name)
	}
}

// compressorForID maps a record ID back to a compressor instance.
func compressorForID(id byte) (compression.Compressor, error) {
	switch id {
	case recordLZ4:
		return compression.Get("lz4")
	default:
		return nil, fmt.Errorf("%w: record compressor ID %d", ErrUnsupportedCompressor, id)
	}
}
