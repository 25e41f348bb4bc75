//go:build integration

package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"visita/internal/notify"
	"visita/pkg/testutil/containers"
)

type PostgresNotifySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *notify.Postgres
}

func TestPostgresNotifySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresNotifySuite))
}

func (s *PostgresNotifySuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = notify.NewPostgres(s.postgres.DB)
}

func (s *PostgresNotifySuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "notifications"))
}

func (s *PostgresNotifySuite) TestAppendAndListByAudience() {
	ctx := context.Background()

	first := notify.ReviewRequested("church-1", "San Agustin Church", []string{"Church Name", "Historical Background"}, "secretary-1")
	first.SentAt = time.Now().Add(-time.Minute)
	s.Require().NoError(s.store.Append(ctx, first))

	second := notify.ChangesResolved("church-1", "San Agustin Church", []string{"Church Name"}, "reviewer-1", "no sources")
	second.SentAt = time.Now()
	s.Require().NoError(s.store.Append(ctx, second))

	reviewers, err := s.store.ListByAudience(ctx, notify.AudienceReviewers)
	s.Require().NoError(err)
	s.Require().Len(reviewers, 1)
	s.Equal([]string{"Church Name", "Historical Background"}, reviewers[0].FieldLabels)
	s.Empty(reviewers[0].Reason)

	submitter, err := s.store.ListByAudience(ctx, notify.AudienceSubmitter)
	s.Require().NoError(err)
	s.Require().Len(submitter, 1)
	s.Equal("no sources", submitter[0].Reason)

	s.Run("ordered by sent_at", func() {
		third := notify.ReviewRequested("church-2", "Barasoain Church", []string{"Founding Year"}, "secretary-2")
		third.SentAt = time.Now().Add(-time.Hour)
		s.Require().NoError(s.store.Append(ctx, third))

		got, err := s.store.ListByAudience(ctx, notify.AudienceReviewers)
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal("Barasoain Church", got[0].ChurchName)
	})
}

func (s *PostgresNotifySuite) TestEmptyAudience() {
	got, err := s.store.ListByAudience(context.Background(), notify.AudienceSubmitter)
	s.Require().NoError(err)
	s.Empty(got)
}
