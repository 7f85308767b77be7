package pebbledb

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"github.com/transx/mining-ledger/entities"
)

// Key prefixes. Record keys are tx|origin under the record prefix; the epoch
// index keys are participant-scoped so one prefix scan lists a participant's
// retained epochs.
const (
	recordKey       = 0x00
	epochRecordsKey = 0x01
	commissionKey   = 0x02
	epochRewardKey  = 0x03
	lastHeightKey   = 0x04
)

type Store struct {
	db *pebble.DB
}

func NewLedgerStore(storeDir string) (*Store, error) {
	db, err := pebble.Open(filepath.Join(storeDir, "mining-ledger-store"), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble db: %v", err)
	}

	return &Store{db: db}, nil
}

func recordDBKey(tx string, origin entities.OriginTag) []byte {
	key := []byte{recordKey}
	key = append(key, tx...)
	key = append(key, '|', byte(origin))
	return key
}

func epochRecordsDBKey(participant string, epoch uint64) []byte {
	key := []byte{epochRecordsKey}
	key = append(key, participant...)
	key = append(key, '|')
	return binary.BigEndian.AppendUint64(key, epoch)
}

func (ps *Store) PutRecord(record *entities.SubmissionRecord) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(record); err != nil {
		return errors.Wrap(err, "encoding record")
	}

	err := ps.db.Set(recordDBKey(record.TxID, record.Origin), buf.Bytes(), pebble.Sync)
	if err != nil {
		return fmt.Errorf("setting record: %v", err)
	}

	return nil
}

func (ps *Store) GetRecord(tx string, origin entities.OriginTag) (*entities.SubmissionRecord, error) {
	value, closer, err := ps.db.Get(recordDBKey(tx, origin))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, entities.ErrStoreEntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting record: %v", err)
	}
	defer closer.Close()

	var record entities.SubmissionRecord
	if err := gob.NewDecoder(bytes.NewReader(value)).Decode(&record); err != nil {
		return nil, errors.Wrap(err, "decoding record")
	}

	return &record, nil
}

func (ps *Store) DeleteRecord(tx string, origin entities.OriginTag) error {
	err := ps.db.Delete(recordDBKey(tx, origin), pebble.Sync)
	if err != nil {
		return fmt.Errorf("deleting record: %v", err)
	}

	return nil
}

// AddEpochRecord appends one record key to the participant's index for the
// given epoch.
func (ps *Store) AddEpochRecord(participant string, epoch uint64, key entities.RecordKey) error {
	keys, err := ps.EpochRecords(participant, epoch)
	if err != nil {
		return err
	}
	keys = append(keys, key)

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(keys); err != nil {
		return errors.Wrap(err, "encoding epoch record keys")
	}

	err = ps.db.Set(epochRecordsDBKey(participant, epoch), buf.Bytes(), pebble.Sync)
	if err != nil {
		return fmt.Errorf("setting epoch record keys: %v", err)
	}

	return nil
}

// EpochRecords lists the record keys a participant accumulated in one epoch.
// A missing index is an empty epoch, not an error.
func (ps *Store) EpochRecords(participant string, epoch uint64) ([]entities.RecordKey, error) {
	value, closer, err := ps.db.Get(epochRecordsDBKey(participant, epoch))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting epoch record keys: %v", err)
	}
	defer closer.Close()

	var keys []entities.RecordKey
	if err := gob.NewDecoder(bytes.NewReader(value)).Decode(&keys); err != nil {
		return nil, errors.Wrap(err, "decoding epoch record keys")
	}

	return keys, nil
}

func (ps *Store) RemoveEpochIndex(participant string, epoch uint64) error {
	err := ps.db.Delete(epochRecordsDBKey(participant, epoch), pebble.Sync)
	if err != nil {
		return fmt.Errorf("deleting epoch index: %v", err)
	}

	return nil
}

// ParticipantEpochs lists every epoch the participant still has an index for,
// in ascending order.
func (ps *Store) ParticipantEpochs(participant string) ([]uint64, error) {
	lowerBound := append([]byte{epochRecordsKey}, participant...)
	lowerBound = append(lowerBound, '|')
	upperBound := append([]byte{epochRecordsKey}, participant...)
	upperBound = append(upperBound, '|'+1)

	iter, err := ps.db.NewIter(&pebble.IterOptions{
		LowerBound: lowerBound,
		UpperBound: upperBound,
	})
	if err != nil {
		return nil, fmt.Errorf("creating iterator: %v", err)
	}
	defer iter.Close()

	var epochs []uint64
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		epochs = append(epochs, binary.BigEndian.Uint64(key[len(key)-8:]))
	}

	return epochs, nil
}

func commissionDBKey(account string) []byte {
	return append([]byte{commissionKey}, account...)
}

// AddCommission accumulates one payout into the account's lifetime ledger.
func (ps *Store) AddCommission(account string, amount uint64, paidAt int64) error {
	entry, err := ps.GetCommission(account)
	if err != nil {
		if !errors.Is(err, entities.ErrStoreEntityNotFound) {
			return err
		}
		entry = &entities.CommissionEntry{}
	}
	entry.Total += amount
	entry.Last = amount
	entry.LastPaidAt = paidAt

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return errors.Wrap(err, "encoding commission entry")
	}

	err = ps.db.Set(commissionDBKey(account), buf.Bytes(), pebble.Sync)
	if err != nil {
		return fmt.Errorf("setting commission entry: %v", err)
	}

	return nil
}

func (ps *Store) GetCommission(account string) (*entities.CommissionEntry, error) {
	value, closer, err := ps.db.Get(commissionDBKey(account))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, entities.ErrStoreEntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting commission entry: %v", err)
	}
	defer closer.Close()

	var entry entities.CommissionEntry
	if err := gob.NewDecoder(bytes.NewReader(value)).Decode(&entry); err != nil {
		return nil, errors.Wrap(err, "decoding commission entry")
	}

	return &entry, nil
}

func (ps *Store) SaveEpochReward(r entities.EpochReward) error {
	key := []byte{epochRewardKey}
	key = binary.BigEndian.AppendUint64(key, r.Epoch)

	var value []byte
	value = binary.BigEndian.AppendUint64(value, r.Total)

	err := ps.db.Set(key, value, pebble.Sync)
	if err != nil {
		return fmt.Errorf("setting epoch reward: %v", err)
	}

	return nil
}

func (ps *Store) GetEpochReward(epoch uint64) (entities.EpochReward, error) {
	key := []byte{epochRewardKey}
	key = binary.BigEndian.AppendUint64(key, epoch)

	value, closer, err := ps.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return entities.EpochReward{}, entities.ErrStoreEntityNotFound
	}
	if err != nil {
		return entities.EpochReward{}, fmt.Errorf("getting epoch reward: %v", err)
	}
	defer closer.Close()

	return entities.EpochReward{Epoch: epoch, Total: binary.BigEndian.Uint64(value)}, nil
}

// GetEpochRewards returns every archived epoch's emission total.
func (ps *Store) GetEpochRewards() (map[uint64]uint64, error) {
	upperBound := []byte{epochRewardKey + 1}
	iter, err := ps.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{epochRewardKey},
		UpperBound: upperBound,
	})
	if err != nil {
		return nil, fmt.Errorf("creating iterator: %v", err)
	}
	defer iter.Close()

	rewards := make(map[uint64]uint64)
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()

		value, err := iter.ValueAndErr()
		if err != nil {
			return nil, fmt.Errorf("getting value from iter: %v", err)
		}

		epoch := binary.BigEndian.Uint64(key[1:])
		rewards[epoch] = binary.BigEndian.Uint64(value)
	}

	return rewards, nil
}

// SetLastHeight persists the latest finalized block height so a restarted
// process resumes its clock instead of rewinding to genesis.
func (ps *Store) SetLastHeight(height uint64) error {
	var value []byte
	value = binary.BigEndian.AppendUint64(value, height)

	err := ps.db.Set([]byte{lastHeightKey}, value, pebble.Sync)
	if err != nil {
		return fmt.Errorf("setting last height: %v", err)
	}

	return nil
}

func (ps *Store) GetLastHeight() (uint64, error) {
	value, closer, err := ps.db.Get([]byte{lastHeightKey})
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, entities.ErrStoreEntityNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("getting last height: %v", err)
	}
	defer closer.Close()

	return binary.BigEndian.Uint64(value), nil
}

func (ps *Store) Close() error {
	return ps.db.Close()
}
