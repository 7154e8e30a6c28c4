package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
)

// RecordRepository implements storage.Repository for BadgerDB.
type RecordRepository struct {
	backend     *Backend
	idSeq       *badger.Sequence
	ownsBackend bool
	now         func() time.Time
}

var (
	_ storage.Repository = (*RecordRepository)(nil)
	_ storage.Compactor  = (*RecordRepository)(nil)
)

// NewRecordRepository creates a repository on an existing backend.
// The caller keeps ownership of the backend.
func NewRecordRepository(backend *Backend) (*RecordRepository, error) {
	idSeq, err := backend.GetSequence(recordIDSeq)
	if err != nil {
		return nil, err
	}

	return &RecordRepository{
		backend: backend,
		idSeq:   idSeq,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Open opens (or creates) a BadgerDB store at path and returns a repository
// that closes the database when it is closed.
func Open(path string) (*RecordRepository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	repo, err := NewRecordRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	repo.ownsBackend = true
	return repo, nil
}

// Close releases the ID sequence, and the database when the repository owns it.
func (r *RecordRepository) Close() error {
	if r.backend.IsClosed() {
		return nil
	}
	err := r.idSeq.Release()
	if r.ownsBackend {
		err = errors.Join(err, r.backend.Close())
	}
	return err
}

// Compact reclaims disk space left behind by deleted records.
func (r *RecordRepository) Compact(ctx context.Context) error {
	if err := r.checkOpen(ctx); err != nil {
		return err
	}
	return r.backend.Compact()
}

func (r *RecordRepository) checkOpen(ctx context.Context) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}

func (r *RecordRepository) nextID() (core.ID, error) {
	nextID, err := r.idSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if nextID == 0 {
		nextID, err = r.idSeq.Next()
		if err != nil {
			return 0, err
		}
	}
	return core.ID(nextID), nil
}

// InsertMany adds records in a single transaction.
func (r *RecordRepository) InsertMany(ctx context.Context, records ...*core.StoredRecord) ([]*core.StoredRecord, error) {
	if err := r.checkOpen(ctx); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := r.now()
		for _, record := range records {
			if err := core.ValidateStored(record); err != nil {
				return err
			}

			if record.SourceURL != "" {
				_, err := tx.Get(makeURLKey(record.SourceURL))
				if err == nil {
					return fmt.Errorf("%w: source_url %s", storage.ErrDuplicateKey, record.SourceURL)
				}
				if !errors.Is(err, badger.ErrKeyNotFound) {
					return err
				}
			}

			id, err := r.nextID()
			if err != nil {
				return err
			}
			record.ID = id
			if record.CreatedAt.IsZero() {
				record.CreatedAt = now
			}
			if record.UpdatedAt.IsZero() {
				record.UpdatedAt = record.CreatedAt
			}

			if err := r.writeRecord(tx, record); err != nil {
				return err
			}
			if err := r.writeIndexes(tx, record); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// InsertOne adds a single record.
func (r *RecordRepository) InsertOne(ctx context.Context, record *core.StoredRecord) (*core.StoredRecord, error) {
	inserted, err := r.InsertMany(ctx, record)
	if err != nil {
		return nil, err
	}
	return inserted[0], nil
}

// Exists reports whether a record matching m is stored.
func (r *RecordRepository) Exists(ctx context.Context, m core.Match) (bool, error) {
	if err := r.checkOpen(ctx); err != nil {
		return false, err
	}

	found := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if m.ByURL() {
			_, err := tx.Get(makeURLKey(m.SourceURL))
			if err == nil {
				found = true
				return nil
			}
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		prefix := makePartialTitleKey(m)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			id, err := storage.UnmarshalID(iter.Item().Key()[len(prefix):])
			if err != nil {
				return err
			}
			record, err := r.readRecord(tx, makeRecordKey(id))
			if err != nil {
				return err
			}
			// Guard against hash collisions on the natural key.
			if record != nil && record.Title == m.Title && record.SourceType == m.SourceType {
				found = true
				return nil
			}
		}
		return nil
	}, false)

	return found, err
}

// Update applies patch to a stored record.
func (r *RecordRepository) Update(ctx context.Context, id core.ID, patch core.RecordPatch) (bool, error) {
	if err := r.checkOpen(ctx); err != nil {
		return false, err
	}

	updated := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(id)
		record, err := r.readRecord(tx, key)
		if err != nil {
			return err
		}
		if record == nil {
			return nil
		}

		oldMatch := core.Match{Title: record.Title, SourceType: record.SourceType}
		patch.Apply(record, r.now())
		if err := core.ValidateStored(record); err != nil {
			return err
		}

		if err := r.writeRecord(tx, record); err != nil {
			return err
		}

		// Update title index if the title changed
		if oldMatch.Title != record.Title {
			if err := tx.Delete(makeTitleKey(oldMatch, id)); err != nil {
				return err
			}
			newMatch := core.Match{Title: record.Title, SourceType: record.SourceType}
			if err := tx.Set(makeTitleKey(newMatch, id), nil); err != nil {
				return err
			}
		}

		updated = true
		return tx.Commit()
	}, true)

	return updated, err
}

// DeleteBefore removes records created strictly before cutoff.
func (r *RecordRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if err := r.checkOpen(ctx); err != nil {
		return 0, err
	}

	var ids []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(recordCreatedPrefix)
		limit := cutoff.UnixMicro()
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			micros, id, ok := parseCreatedKey(iter.Item().Key())
			if !ok {
				continue
			}
			if micros > limit {
				break
			}
			record, err := r.readRecord(tx, makeRecordKey(id))
			if err != nil {
				return err
			}
			if record != nil && record.CreatedAt.Before(cutoff) {
				ids = append(ids, id)
			}
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}

	if err := r.Delete(ctx, ids...); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Delete removes records by ID. Missing IDs are skipped.
func (r *RecordRepository) Delete(ctx context.Context, ids ...core.ID) error {
	if err := r.checkOpen(ctx); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeRecordKey(id)

			// Read record to get metadata for index cleanup
			record, err := r.readRecord(tx, key)
			if err != nil {
				return err
			}
			if record == nil {
				continue
			}

			if err := r.deleteIndexes(tx, record); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Count returns the number of records matching f.
func (r *RecordRepository) Count(ctx context.Context, f storage.Filter) (int, error) {
	if err := r.checkOpen(ctx); err != nil {
		return 0, err
	}

	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(recordCreatedPrefix)
		start := prefix
		if !f.CreatedSince.IsZero() {
			start = makePartialCreatedKey(f.CreatedSince)
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(start); iter.ValidForPrefix(prefix); iter.Next() {
			_, id, ok := parseCreatedKey(iter.Item().Key())
			if !ok {
				continue
			}
			if f.SourceType == "" && f.CreatedSince.IsZero() {
				count++
				continue
			}
			record, err := r.readRecord(tx, makeRecordKey(id))
			if err != nil {
				return err
			}
			if record == nil {
				continue
			}
			if f.SourceType != "" && record.SourceType != f.SourceType {
				continue
			}
			if !f.CreatedSince.IsZero() && record.CreatedAt.Before(f.CreatedSince) {
				continue
			}
			count++
		}
		return nil
	}, false)

	return count, err
}

// Get retrieves a single record by ID.
func (r *RecordRepository) Get(ctx context.Context, id core.ID) (*core.StoredRecord, error) {
	if err := r.checkOpen(ctx); err != nil {
		return nil, err
	}

	var result *core.StoredRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readRecord(tx, makeRecordKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ForEach visits records in creation order.
// IDs are collected up front so fn may write to the repository.
func (r *RecordRepository) ForEach(ctx context.Context, fn func(*core.StoredRecord) error) error {
	if err := r.checkOpen(ctx); err != nil {
		return err
	}

	var ids []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(recordCreatedPrefix)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			if _, id, ok := parseCreatedKey(iter.Item().Key()); ok {
				ids = append(ids, id)
			}
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := r.Get(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}

// LastUpdated returns the newest UpdatedAt across all records.
func (r *RecordRepository) LastUpdated(ctx context.Context) (time.Time, error) {
	if err := r.checkOpen(ctx); err != nil {
		return time.Time{}, err
	}

	var latest time.Time
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(recordPrefix)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			var record *core.StoredRecord
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalRecord(val)
				return err
			}); err != nil {
				return err
			}
			if record.UpdatedAt.After(latest) {
				latest = record.UpdatedAt
			}
		}
		return nil
	}, false)

	return latest, err
}

// Helper methods

// readRecord reads a record from the transaction, returning nil when absent.
func (r *RecordRepository) readRecord(tx *badger.Txn, key []byte) (*core.StoredRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var record *core.StoredRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalRecord(val)
		return unmarshalErr
	})
	return record, err
}

func (r *RecordRepository) writeRecord(tx *badger.Txn, record *core.StoredRecord) error {
	value, err := storage.MarshalRecord(record)
	if err != nil {
		return err
	}
	return tx.Set(makeRecordKey(record.ID), value)
}

// writeIndexes adds the URL, title and creation index entries for a record.
func (r *RecordRepository) writeIndexes(tx *badger.Txn, record *core.StoredRecord) error {
	idBytes := storage.MarshalID(record.ID)
	if record.SourceURL != "" {
		if err := tx.Set(makeURLKey(record.SourceURL), idBytes); err != nil {
			return err
		}
	}
	titleMatch := core.Match{Title: record.Title, SourceType: record.SourceType}
	if err := tx.Set(makeTitleKey(titleMatch, record.ID), nil); err != nil {
		return err
	}
	return tx.Set(makeCreatedKey(record.CreatedAt, record.ID), idBytes)
}

// deleteIndexes removes every index entry pointing at a record.
func (r *RecordRepository) deleteIndexes(tx *badger.Txn, record *core.StoredRecord) error {
	if record.SourceURL != "" {
		urlKey := makeURLKey(record.SourceURL)
		item, err := tx.Get(urlKey)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err == nil {
			// Only drop the URL entry if it still points at this record.
			owner, verr := item.ValueCopy(nil)
			if verr != nil {
				return verr
			}
			if bytes.Equal(owner, storage.MarshalID(record.ID)) {
				if err := tx.Delete(urlKey); err != nil {
					return err
				}
			}
		}
	}
	titleMatch := core.Match{Title: record.Title, SourceType: record.SourceType}
	if err := tx.Delete(makeTitleKey(titleMatch, record.ID)); err != nil {
		return err
	}
	return tx.Delete(makeCreatedKey(record.CreatedAt, record.ID))
}
