//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "modzero/pkg/domain"
	"modzero/pkg/platform/audit"
	auditpostgres "modzero/pkg/platform/audit/store/postgres"
	"modzero/pkg/testutil/containers"
)

type PostgresAuditStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpostgres.Store
}

func TestPostgresAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditStoreSuite))
}

func (s *PostgresAuditStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = auditpostgres.New(s.postgres.DB)
}

func (s *PostgresAuditStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "audit_events")
	s.Require().NoError(err)
}

func (s *PostgresAuditStoreSuite) TestAppendAndListByUser() {
	ctx := context.Background()
	userID := id.NewUserID()
	base := time.Now().UTC().Truncate(time.Microsecond)

	first := audit.Event{
		Timestamp: base,
		UserID:    userID,
		Subject:   "attempt-1",
		Action:    string(audit.EventAttemptEvaluated),
		Decision:  "allow",
		Reason:    "total score 91.50, threshold 70.00",
		IP:        "10.0.0.4",
		RequestID: "req-1",
	}
	second := audit.Event{
		Timestamp: base.Add(time.Minute),
		UserID:    userID,
		Subject:   "token-1",
		Action:    string(audit.EventTokenIssued),
	}
	other := audit.Event{
		Timestamp: base,
		UserID:    id.NewUserID(),
		Action:    string(audit.EventUserCreated),
	}

	for _, event := range []audit.Event{second, other, first} {
		s.Require().NoError(s.store.Append(ctx, event))
	}

	events, err := s.store.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)

	// Oldest first, category derived from the action.
	s.Equal(first.Action, events[0].Action)
	s.Equal(audit.AuditEvent(first.Action).Category(), events[0].Category)
	s.Equal(first.Decision, events[0].Decision)
	s.Equal(first.IP, events[0].IP)
	s.Equal(second.Action, events[1].Action)
	s.Equal(userID, events[1].UserID)
}

func (s *PostgresAuditStoreSuite) TestAppendWithoutUser() {
	ctx := context.Background()
	err := s.store.Append(ctx, audit.Event{
		Timestamp: time.Now().UTC(),
		Action:    string(audit.EventAuthFailed),
		Reason:    "unknown email",
	})
	s.Require().NoError(err)

	var count int
	err = s.postgres.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_events WHERE user_id IS NULL`).Scan(&count)
	s.Require().NoError(err)
	s.Equal(1, count)
}
