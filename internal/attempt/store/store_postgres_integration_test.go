//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"modzero/internal/attempt"
	attemptstore "modzero/internal/attempt/store"
	"modzero/internal/trust"
	id "modzero/pkg/domain"
	"modzero/pkg/platform/sentinel"
	"modzero/pkg/testutil/containers"
)

type PostgresAttemptStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *attemptstore.PostgresStore
}

func TestPostgresAttemptStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAttemptStoreSuite))
}

func (s *PostgresAttemptStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = attemptstore.NewPostgres(s.postgres.DB)
}

func (s *PostgresAttemptStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "attempt_details", "access_attempts")
	s.Require().NoError(err)
}

func newAttempt(userID id.UserID, at time.Time) *attempt.AccessAttempt {
	deviceID := id.NewDeviceID()
	policyID := id.NewPolicyID()
	return &attempt.AccessAttempt{
		ID:         id.NewAttemptID(),
		UserID:     userID,
		DeviceID:   &deviceID,
		IP:         "10.0.0.4",
		Timestamp:  at,
		Decision:   trust.DecisionAllow,
		Reason:     "total score 91.50, threshold 70.00",
		TotalScore: 91.5,
		PolicyID:   &policyID,
		Details: []trust.ScoreDetail{
			{FactorName: trust.FactorDevicePosture, Contribution: 63.0},
			{FactorName: trust.FactorContext, Contribution: 28.5},
		},
	}
}

func (s *PostgresAttemptStoreSuite) TestRoundTripWithDetails() {
	ctx := context.Background()
	created := newAttempt(id.NewUserID(), time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(s.store.Create(ctx, created))

	found, err := s.store.FindByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.UserID, found.UserID)
	s.Require().NotNil(found.DeviceID)
	s.Equal(*created.DeviceID, *found.DeviceID)
	s.Require().NotNil(found.PolicyID)
	s.Equal(*created.PolicyID, *found.PolicyID)
	s.Equal(created.Reason, found.Reason)
	s.InDelta(created.TotalScore, found.TotalScore, 0.0001)
	s.Equal(created.Details, found.Details)
}

func (s *PostgresAttemptStoreSuite) TestNullableDeviceAndPolicy() {
	ctx := context.Background()
	created := newAttempt(id.NewUserID(), time.Now().UTC().Truncate(time.Microsecond))
	created.DeviceID = nil
	created.PolicyID = nil
	s.Require().NoError(s.store.Create(ctx, created))

	found, err := s.store.FindByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Nil(found.DeviceID)
	s.Nil(found.PolicyID)
}

func (s *PostgresAttemptStoreSuite) TestListNewestFirst() {
	ctx := context.Background()
	userID := id.NewUserID()
	base := time.Now().UTC().Truncate(time.Microsecond)

	for i := 0; i < 3; i++ {
		a := newAttempt(userID, base.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(s.store.Create(ctx, a))
	}
	other := newAttempt(id.NewUserID(), base.Add(time.Hour))
	s.Require().NoError(s.store.Create(ctx, other))

	mine, err := s.store.ListByUser(ctx, userID, 10)
	s.Require().NoError(err)
	s.Require().Len(mine, 3)
	s.True(mine[0].Timestamp.After(mine[1].Timestamp))
	s.True(mine[1].Timestamp.After(mine[2].Timestamp))

	limited, err := s.store.ListByUser(ctx, userID, 2)
	s.Require().NoError(err)
	s.Len(limited, 2)

	all, err := s.store.ListAll(ctx, 10)
	s.Require().NoError(err)
	s.Len(all, 4)
	s.Equal(other.ID, all[0].ID)
}

func (s *PostgresAttemptStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(context.Background(), id.NewAttemptID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
