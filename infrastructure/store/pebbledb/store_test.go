package pebbledb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transx/mining-ledger/entities"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewLedgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func testRecord(tx string, origin entities.OriginTag) *entities.SubmissionRecord {
	return &entities.SubmissionRecord{
		TxID:              tx,
		Origin:            origin,
		Participant:       "acct-miner-17",
		FromAddress:       "bc1q-sender",
		ToAddress:         "bc1q-receiver",
		Asset:             entities.AssetBTC,
		Amount:            "150000000",
		Decimals:          8,
		UsdValue:          90_000,
		AmountScore:       630_000_000,
		CountScore:        7_000,
		ParticipantReward: 458,
		UplineReward:      228,
		UpUplineReward:    114,
		FoundersReward:    200,
		MineCount:         1,
		VerifyStatus:      1_000,
		Timestamp:         1_756_300_000,
		BlockHeight:       28_801,
	}
}

func TestStore_RecordRoundTrip(t *testing.T) {
	store := newTestStore(t)

	record := testRecord("tx-1", entities.OriginClient)
	require.NoError(t, store.PutRecord(record))

	got, err := store.GetRecord("tx-1", entities.OriginClient)
	require.NoError(t, err)
	assert.Equal(t, record, got)

	// The opposite origin is a distinct key.
	_, err = store.GetRecord("tx-1", entities.OriginWallet)
	assert.ErrorIs(t, err, entities.ErrStoreEntityNotFound)
}

func TestStore_DeleteRecord(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.PutRecord(testRecord("tx-1", entities.OriginClient)))
	require.NoError(t, store.DeleteRecord("tx-1", entities.OriginClient))

	_, err := store.GetRecord("tx-1", entities.OriginClient)
	assert.ErrorIs(t, err, entities.ErrStoreEntityNotFound)
}

func TestStore_EpochRecords(t *testing.T) {
	store := newTestStore(t)

	key1 := entities.RecordKey{TxID: "tx-1", Origin: entities.OriginClient}
	key2 := entities.RecordKey{TxID: "tx-2", Origin: entities.OriginWallet}

	require.NoError(t, store.AddEpochRecord("acct-miner-17", 3, key1))
	require.NoError(t, store.AddEpochRecord("acct-miner-17", 3, key2))
	require.NoError(t, store.AddEpochRecord("acct-miner-17", 5, key1))
	require.NoError(t, store.AddEpochRecord("acct-miner-99", 3, key2))

	keys, err := store.EpochRecords("acct-miner-17", 3)
	require.NoError(t, err)
	assert.Equal(t, []entities.RecordKey{key1, key2}, keys)

	// A missing index is an empty epoch.
	keys, err = store.EpochRecords("acct-miner-17", 4)
	require.NoError(t, err)
	assert.Empty(t, keys)

	epochs, err := store.ParticipantEpochs("acct-miner-17")
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 5}, epochs)

	require.NoError(t, store.RemoveEpochIndex("acct-miner-17", 3))
	epochs, err = store.ParticipantEpochs("acct-miner-17")
	require.NoError(t, err)
	assert.Equal(t, []uint64{5}, epochs)

	// The other participant's index is untouched.
	epochs, err = store.ParticipantEpochs("acct-miner-99")
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, epochs)
}

func TestStore_Commission(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetCommission("acct-upline-1")
	assert.ErrorIs(t, err, entities.ErrStoreEntityNotFound)

	require.NoError(t, store.AddCommission("acct-upline-1", 228, 1_756_300_000))
	require.NoError(t, store.AddCommission("acct-upline-1", 114, 1_756_300_060))

	entry, err := store.GetCommission("acct-upline-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(342), entry.Total)
	assert.Equal(t, uint64(114), entry.Last)
	assert.Equal(t, int64(1_756_300_060), entry.LastPaidAt)
}

func TestStore_LastHeight(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetLastHeight()
	assert.ErrorIs(t, err, entities.ErrStoreEntityNotFound)

	require.NoError(t, store.SetLastHeight(28_801))
	require.NoError(t, store.SetLastHeight(28_802))

	height, err := store.GetLastHeight()
	require.NoError(t, err)
	assert.Equal(t, uint64(28_802), height)
}

func TestStore_EpochRewards(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveEpochReward(entities.EpochReward{Epoch: 1, Total: 1_000}))
	require.NoError(t, store.SaveEpochReward(entities.EpochReward{Epoch: 2, Total: 2_500}))

	r, err := store.GetEpochReward(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500), r.Total)

	_, err = store.GetEpochReward(3)
	assert.ErrorIs(t, err, entities.ErrStoreEntityNotFound)

	all, err := store.GetEpochRewards()
	require.NoError(t, err)
	assert.Equal(t, map[uint64]uint64{1: 1_000, 2: 2_500}, all)
}
