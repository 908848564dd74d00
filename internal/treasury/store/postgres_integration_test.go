//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	treasuryStore "salegate/internal/treasury/store"
	id "salegate/pkg/domain"
	"salegate/pkg/platform/sentinel"
	"salegate/pkg/platform/tx"
	"salegate/pkg/testutil/containers"
)

type PostgresWalletStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *treasuryStore.Postgres
}

func TestPostgresWalletStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresWalletStoreSuite))
}

func (s *PostgresWalletStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = treasuryStore.NewPostgres(s.pg.DB)
}

func (s *PostgresWalletStoreSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(context.Background())
}

func (s *PostgresWalletStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background()))
}

func (s *PostgresWalletStoreSuite) TestWalletRoundTrip() {
	ctx := context.Background()
	collector := id.Account("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	_, err := s.store.Wallet(ctx)
	s.True(errors.Is(err, sentinel.ErrNotFound))

	s.Require().NoError(s.store.SetWallet(ctx, collector))
	got, err := s.store.Wallet(ctx)
	s.Require().NoError(err)
	s.Equal(collector, got)

	// repoint overwrites the singleton row
	next := id.Account("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	s.Require().NoError(s.store.SetWallet(ctx, next))
	got, err = s.store.Wallet(ctx)
	s.Require().NoError(err)
	s.Equal(next, got)
}

func (s *PostgresWalletStoreSuite) TestWritesThroughRunnerTransaction() {
	ctx := context.Background()
	collector := id.Account("0xcccccccccccccccccccccccccccccccccccccccc")
	runner := tx.NewSQLRunner(s.pg.DB)

	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.SetWallet(ctx, collector); err != nil {
			return err
		}
		// the uncommitted write must be visible inside the transaction
		got, err := s.store.Wallet(ctx)
		if err != nil {
			return err
		}
		s.Equal(collector, got)
		return nil
	})
	s.Require().NoError(err)

	got, err := s.store.Wallet(ctx)
	s.Require().NoError(err)
	s.Equal(collector, got)
}

func (s *PostgresWalletStoreSuite) TestFailedTransactionRollsBack() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := tx.NewSQLRunner(s.pg.DB).RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.SetWallet(ctx, id.Account("0xdddddddddddddddddddddddddddddddddddddddd")); err != nil {
			return err
		}
		return boom
	})
	s.True(errors.Is(err, boom))

	_, err = s.store.Wallet(ctx)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
