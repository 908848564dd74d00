//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	id "salegate/pkg/domain"
	"salegate/pkg/platform/audit"
	"salegate/pkg/platform/audit/kafka"
	auditMemory "salegate/pkg/platform/audit/store/memory"
	"salegate/pkg/platform/audit/worker"
	"salegate/pkg/testutil/containers"
)

const testTopic = "salegate.audit.test"

type KafkaSinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	sink     *kafka.Sink
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.redpanda = containers.NewRedpandaContainer(s.T())

	sink, err := kafka.New(context.Background(), s.redpanda.Brokers, testTopic)
	s.Require().NoError(err)
	s.sink = sink
}

func (s *KafkaSinkSuite) TearDownSuite() {
	s.sink.Close()
	_ = s.redpanda.Container.Terminate(context.Background())
}

// consumeFor reads the test topic from offset zero until it finds a record
// keyed by account. Tests share the topic, so matching on the key keeps them
// independent of each other's records.
func (s *KafkaSinkSuite) consumeFor(account id.Account) *kgo.Record {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	deadline, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for {
		fetches := client.PollFetches(deadline)
		s.Require().NoError(fetches.Err())
		for _, rec := range fetches.Records() {
			if string(rec.Key) == account.String() {
				return rec
			}
		}
	}
}

func (s *KafkaSinkSuite) TestNewToleratesExistingTopic() {
	// SetupSuite already created the topic; a second startup must not fail.
	sink, err := kafka.New(context.Background(), s.redpanda.Brokers, testTopic)
	s.Require().NoError(err)
	sink.Close()
}

func (s *KafkaSinkSuite) TestPublishedEventRoundTrips() {
	buyer := id.Account("0x1111111111111111111111111111111111111111")
	err := s.sink.Publish(context.Background(), audit.Event{
		Action:      audit.ActionPurchased,
		Account:     buyer,
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Value:       "2",
		TokenAmount: "2000",
		BonusAmount: "500",
	})
	s.Require().NoError(err)

	rec := s.consumeFor(buyer)

	var event audit.Event
	s.Require().NoError(json.Unmarshal(rec.Value, &event))
	s.Equal(audit.ActionPurchased, event.Action)
	s.Equal(buyer, event.Account)
	s.Equal("2", event.Value)
	s.Equal("2000", event.TokenAmount)
	s.Equal("500", event.BonusAmount)
}

func (s *KafkaSinkSuite) TestWorkerDrainsOutboxToSink() {
	store := auditMemory.New()
	publisher := audit.NewPublisher(store, audit.WithOutbox(16))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.New(s.sink, publisher.Outbox(), nil).Run(ctx)
	}()

	holder := id.Account("0x2222222222222222222222222222222222222222")
	err := publisher.Emit(context.Background(), audit.Event{
		Action:    audit.ActionUnlocked,
		Account:   holder,
		Timestamp: time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC),
		Reason:    "team",
		Amount:    "100",
	})
	s.Require().NoError(err)

	// The event lands in the store synchronously and in the topic through
	// the worker.
	stored, err := store.ListByAccount(context.Background(), holder)
	s.Require().NoError(err)
	s.Require().Len(stored, 1)

	rec := s.consumeFor(holder)
	var delivered audit.Event
	s.Require().NoError(json.Unmarshal(rec.Value, &delivered))
	s.Equal(audit.ActionUnlocked, delivered.Action)
	s.Equal("100", delivered.Amount)
	s.Equal("team", delivered.Reason)

	cancel()
	<-done
}
