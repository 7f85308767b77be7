package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transx/mining-ledger/entities"
)

func TestNewStore_ValidatesDefaults(t *testing.T) {
	_, err := NewStore(Default())
	assert.NoError(t, err)
}

func TestNewStore_RejectsBadParams(t *testing.T) {
	p := Default()
	p.DeclineExp = 10
	_, err := NewStore(p)
	assert.ErrorIs(t, err, entities.ErrParamOutOfBounds)

	p = Default()
	p.EpochLength = 0
	_, err = NewStore(p)
	assert.ErrorIs(t, err, entities.ErrParamOutOfBounds)
}

func TestStore_SetDeclineExp(t *testing.T) {
	s, err := NewStore(Default())
	require.NoError(t, err)

	require.NoError(t, s.SetDeclineExp(15))
	assert.Equal(t, uint64(15), s.Current().DeclineExp)

	assert.ErrorIs(t, s.SetDeclineExp(10), entities.ErrParamOutOfBounds)
	assert.ErrorIs(t, s.SetDeclineExp(21), entities.ErrParamOutOfBounds)
	assert.Equal(t, uint64(15), s.Current().DeclineExp)
}

func TestStore_SetFounders(t *testing.T) {
	s, err := NewStore(Default())
	require.NoError(t, err)

	assert.Empty(t, s.Founders())
	assert.ErrorIs(t, s.SetFounders(nil), entities.ErrEmptyParam)

	require.NoError(t, s.SetFounders([]string{"founder-1", "founder-2"}))
	assert.Equal(t, []string{"founder-1", "founder-2"}, s.Founders())
}

func TestStore_SetSharePortions(t *testing.T) {
	s, err := NewStore(Default())
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetSharePortions(0, 0, 0), entities.ErrParamOutOfBounds)

	require.NoError(t, s.SetSharePortions(80, 15, 5))
	assert.Equal(t, uint64(100), s.Current().TotalPortion())
}

func TestStore_SetAssetCaps_CopyOnWrite(t *testing.T) {
	s, err := NewStore(Default())
	require.NoError(t, err)

	before := s.Current()
	require.NoError(t, s.SetSingleTxAmountCap(entities.AssetBTC, 42))

	// The earlier snapshot is unaffected by the write.
	assert.NotEqual(t, uint64(42), before.SingleTxAmountCap[entities.AssetBTC])
	assert.Equal(t, uint64(42), s.Current().SingleTxAmountCap[entities.AssetBTC])
}

func TestStore_OnChange(t *testing.T) {
	s, err := NewStore(Default())
	require.NoError(t, err)

	var changed []string
	s.OnChange(func(parameter string) {
		changed = append(changed, parameter)
	})

	require.NoError(t, s.SetDeclineExp(13))
	require.NoError(t, s.SetMaxDailySubmissions(500))
	require.NoError(t, s.SetAssetMaxShare(entities.AssetETH, FromPercent(25)))

	assert.Equal(t, []string{"decline_exp", "max_daily_submissions", "asset_max_share"}, changed)
}

func TestPermill(t *testing.T) {
	assert.Equal(t, uint64(700), FromPercent(70).Mul(1_000))
	assert.Equal(t, uint64(300), FromPercent(70).Complement().Mul(1_000))
	assert.Equal(t, uint64(1_000), FromPercent(100).Mul(1_000))
	assert.Equal(t, uint64(0), FromPercent(0).Mul(1_000))

	// Values near the uint64 ceiling survive the widened multiply.
	huge := ^uint64(0) - 5
	assert.Equal(t, huge/2, FromPercent(50).Mul(huge))
}
