package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/transx/mining-ledger/entities"
	"github.com/twmb/franz-go/pkg/kgo"
)

type MockKafkaClient struct {
	shouldError bool
	produced    []*kgo.Record
}

func (mkc *MockKafkaClient) Produce(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {

	mkc.produced = append(mkc.produced, r)

	if mkc.shouldError {
		go promise(nil, errors.New("dummy error"))
		return
	}

	go promise(nil, nil)
}

func TestClient_Publish(t *testing.T) {

	testData := []struct {
		name        string
		events      []entities.Event
		shouldError bool
	}{
		{
			name: "TestPublishEvents_1",
			events: []entities.Event{
				{
					Type:        entities.EventTypeSubmissionAccepted,
					BlockHeight: 28_801,
					Epoch:       3,
					TxID:        "7f3a1c9e2b44d8a0",
					Origin:      "CLIENT",
					Participant: "acct-miner-17",
					Asset:       "BTC",
					Reward:      125_000_000,
				},
				{
					Type:        entities.EventTypeSubmissionAccepted,
					BlockHeight: 28_802,
					Epoch:       3,
					TxID:        "7f3a1c9e2b44d8a0",
					Origin:      "WALLET",
					Participant: "acct-miner-32",
					Asset:       "BTC",
					Reward:      53_000_000,
				},
				{
					Type:        entities.EventTypeNetworkPowerArchived,
					BlockHeight: 43_200,
					Epoch:       3,
					Reward:      1_440_000_000_000,
				},
			},
			shouldError: false,
		},
		{
			name: "TestPublishEvents_2",
			events: []entities.Event{
				{
					Type:        entities.EventTypeDisputeReport,
					BlockHeight: 28_900,
					TxID:        "b4410ce2aa90ff21",
					Origin:      "WALLET",
					Participant: "acct-miner-99",
					Asset:       "USDT",
					Reason:      "verification fail quorum",
				},
			},
			shouldError: true,
		},
	}

	for _, testRun := range testData {
		t.Run(testRun.name, func(t *testing.T) {

			kc := NewClient(&MockKafkaClient{
				shouldError: testRun.shouldError,
			})

			err := kc.Publish(context.Background(), testRun.events)

			if testRun.shouldError {
				assert.Error(t, err)
				t.Logf("Err: %v", err)
				return
			}
			assert.NoError(t, err)

		})
	}
}

func TestClient_Publish_RecordKeying(t *testing.T) {

	mock := &MockKafkaClient{}
	kc := NewClient(mock)

	err := kc.Publish(context.Background(), []entities.Event{
		{Type: entities.EventTypeParameterChanged, Parameter: "decline_exp"},
	})
	assert.NoError(t, err)

	assert.Len(t, mock.produced, 1)
	assert.Equal(t, []byte(entities.EventTypeParameterChanged), mock.produced[0].Key)
}
