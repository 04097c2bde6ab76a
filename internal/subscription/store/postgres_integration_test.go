//go:build integration

package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"inkwell/internal/subscription/models"
	"inkwell/internal/subscription/token"
	"inkwell/pkg/platform/sentinel"
	"inkwell/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *containers.PostgresContainer
	store     *Postgres
	ctx       context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.container = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.container.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.container.TruncateTables(s.ctx, "subscription_tokens", "subscriptions")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newSubscriber(email string) (*models.Subscriber, models.ConfirmationToken) {
	name, err := models.ParseName("le guin")
	s.Require().NoError(err)
	parsedEmail, err := models.ParseEmail(email)
	s.Require().NoError(err)
	tok, err := token.Generate()
	s.Require().NoError(err)
	return models.NewSubscriber(name, parsedEmail, time.Now()), tok
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	sub, tok := s.newSubscriber("ursula_le_guin@gmail.com")
	s.Require().NoError(s.store.CreatePending(s.ctx, sub, tok))

	found, err := s.store.Get(s.ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(sub.ID, found.ID)
	s.Equal(models.StatusPendingConfirmation, found.Status)
	s.Equal("ursula_le_guin@gmail.com", found.Email.String())
	s.Equal("le guin", found.Name.String())
}

func (s *PostgresStoreSuite) TestGetUnknownReturnsNotFound() {
	_, err := s.store.Get(s.ctx, uuid.New())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDuplicateEmailConflicts() {
	first, tok1 := s.newSubscriber("ursula_le_guin@gmail.com")
	s.Require().NoError(s.store.CreatePending(s.ctx, first, tok1))

	second, tok2 := s.newSubscriber("ursula_le_guin@gmail.com")
	err := s.store.CreatePending(s.ctx, second, tok2)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	existing, existingTok, err := s.store.PendingByEmail(s.ctx, first.Email)
	s.Require().NoError(err)
	s.Equal(first.ID, existing.ID)
	s.Equal(tok1, existingTok)
}

// TestConflictLeavesNoOrphanToken checks that a failed pair insert rolls
// back both rows: the loser's token must not be redeemable.
func (s *PostgresStoreSuite) TestConflictLeavesNoOrphanToken() {
	first, tok1 := s.newSubscriber("ursula_le_guin@gmail.com")
	s.Require().NoError(s.store.CreatePending(s.ctx, first, tok1))

	second, tok2 := s.newSubscriber("ursula_le_guin@gmail.com")
	err := s.store.CreatePending(s.ctx, second, tok2)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	_, err = s.store.Redeem(s.ctx, tok2)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRedeemConfirmsAndConsumes() {
	sub, tok := s.newSubscriber("ursula_le_guin@gmail.com")
	s.Require().NoError(s.store.CreatePending(s.ctx, sub, tok))

	id, err := s.store.Redeem(s.ctx, tok)
	s.Require().NoError(err)
	s.Equal(sub.ID, id)

	confirmed, err := s.store.Get(s.ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusConfirmed, confirmed.Status)

	_, err = s.store.Redeem(s.ctx, tok)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRedeemUnknownTokenReturnsNotFound() {
	tok, err := token.Generate()
	s.Require().NoError(err)

	_, err = s.store.Redeem(s.ctx, tok)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestPendingByEmailAfterConfirmation() {
	sub, tok := s.newSubscriber("ursula_le_guin@gmail.com")
	s.Require().NoError(s.store.CreatePending(s.ctx, sub, tok))
	_, err := s.store.Redeem(s.ctx, tok)
	s.Require().NoError(err)

	_, _, err = s.store.PendingByEmail(s.ctx, sub.Email)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestPendingByEmailUnknownReturnsNotFound() {
	email, err := models.ParseEmail("nobody@example.com")
	s.Require().NoError(err)

	_, _, err = s.store.PendingByEmail(s.ctx, email)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentRedeem verifies the DELETE ... RETURNING path admits
// exactly one winner when confirms race on the same token.
func (s *PostgresStoreSuite) TestConcurrentRedeem() {
	sub, tok := s.newSubscriber("ursula_le_guin@gmail.com")
	s.Require().NoError(s.store.CreatePending(s.ctx, sub, tok))

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.Redeem(s.ctx, tok); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one redeem should succeed")

	confirmed, err := s.store.Get(s.ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusConfirmed, confirmed.Status)
}
