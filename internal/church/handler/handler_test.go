package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"visita/internal/church/models"
	"visita/internal/church/service"
	pendingStore "visita/internal/church/store/pending"
	profileStore "visita/internal/church/store/profile"
	jwttoken "visita/internal/jwt_token"
	"visita/internal/platform/middleware"
)

// =============================================================================
// Church Handler Test Suite
// =============================================================================
// Exercises the HTTP surface end to end against in-memory stores: routing,
// auth middleware, role scoping, and JSON envelopes.

type HandlerSuite struct {
	suite.Suite
	router    chi.Router
	jwt       *jwttoken.JWTService
	profiles  *profileStore.InMemory
	pending   *pendingStore.InMemory
	service   *service.Service
	secretary string
	chancery  string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.jwt = jwttoken.NewJWTService("test-signing-key", "visita", "visita-admin")
	s.profiles = profileStore.NewInMemory()
	s.pending = pendingStore.NewInMemory()
	s.service = service.New(s.profiles, s.pending, service.WithLogger(logger))

	h := New(s.service, logger)
	validator := jwttoken.NewJWTServiceAdapter(s.jwt)

	r := chi.NewRouter()
	r.Group(h.RegisterPublic)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, logger))
		r.Use(middleware.RequireRole(logger, string(models.RoleParishSecretary)))
		h.RegisterParish(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, logger))
		r.Use(middleware.RequireRole(logger,
			string(models.RoleChanceryReviewer), string(models.RoleHeritageReviewer)))
		h.RegisterChancery(r)
	})
	s.router = r

	s.secretary = s.token(string(models.RoleParishSecretary), "parish-1")
	s.chancery = s.token(string(models.RoleChanceryReviewer), "")
}

func (s *HandlerSuite) token(role, parishID string) string {
	token, err := s.jwt.GenerateAccessToken(uuid.New(), role, parishID, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *HandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), out))
}

func (s *HandlerSuite) createDraft() uuid.UUID {
	rec := s.do(http.MethodPost, "/parish/churches", s.secretary, models.CreateProfileRequest{
		ParishID: "parish-1",
		Fields:   models.FieldMap{"name": "San Agustin Church", "contactPhone": "+63 2 8527 4060"},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var profile models.ChurchProfile
	s.decode(rec, &profile)
	return profile.ID
}

func (s *HandlerSuite) approve(id uuid.UUID) {
	rec := s.do(http.MethodPost, "/parish/churches/"+id.String()+"/submit", s.secretary, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/chancery/churches/"+id.String()+"/approve", s.chancery, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
}

// =============================================================================
// Auth
// =============================================================================

func (s *HandlerSuite) TestAuthRequired() {
	s.Run("missing token", func() {
		rec := s.do(http.MethodPost, "/parish/churches", "", models.CreateProfileRequest{ParishID: "parish-1"})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("wrong role", func() {
		rec := s.do(http.MethodGet, "/chancery/review-queue", s.secretary, nil)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("public directory needs no token", func() {
		rec := s.do(http.MethodGet, "/churches", "", nil)
		s.Equal(http.StatusOK, rec.Code)
	})
}

// =============================================================================
// Parish flow
// =============================================================================

func (s *HandlerSuite) TestCreateAndFetchProfile() {
	id := s.createDraft()

	rec := s.do(http.MethodGet, "/parish/churches/"+id.String(), s.secretary, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var details models.ProfileDetails
	s.decode(rec, &details)
	s.Equal("San Agustin Church", details.Profile.Fields["name"])
	s.Nil(details.Pending)
}

func (s *HandlerSuite) TestUpdateApprovedProfileStagesReviewFields() {
	id := s.createDraft()
	s.approve(id)

	rec := s.do(http.MethodPatch, "/parish/churches/"+id.String(), s.secretary, models.UpdateProfileRequest{
		Fields: models.FieldMap{
			"website": "https://sanagustin.ph",
			"name":    "San Agustin Parish Church",
		},
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var result models.StagingResult
	s.decode(rec, &result)
	s.ElementsMatch([]string{"website"}, result.DirectlyPublished)
	s.ElementsMatch([]string{"name"}, result.StagedForReview)
	s.True(result.HasPendingChanges)

	s.Run("public view keeps the approved name", func() {
		rec := s.do(http.MethodGet, "/churches/"+id.String(), "", nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		var view models.FieldMap
		s.decode(rec, &view)
		s.Equal("San Agustin Church", view["name"])
		s.Equal("https://sanagustin.ph", view["website"])
	})
}

func (s *HandlerSuite) TestInvalidRequests() {
	s.Run("malformed id", func() {
		rec := s.do(http.MethodGet, "/parish/churches/not-a-uuid", s.secretary, nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown field", func() {
		id := s.createDraft()
		rec := s.do(http.MethodPatch, "/parish/churches/"+id.String(), s.secretary, models.UpdateProfileRequest{
			Fields: models.FieldMap{"notAField": 1},
		})
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

// =============================================================================
// Chancery flow
// =============================================================================

func (s *HandlerSuite) TestReviewQueueAndResolution() {
	id := s.createDraft()
	s.approve(id)

	rec := s.do(http.MethodPatch, "/parish/churches/"+id.String(), s.secretary, models.UpdateProfileRequest{
		Fields: models.FieldMap{"patronSaint": "St. Augustine of Hippo"},
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	s.Run("queue lists the open change set", func() {
		rec := s.do(http.MethodGet, "/chancery/review-queue", s.chancery, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		var queue models.ReviewQueue
		s.decode(rec, &queue)
		s.Len(queue.PendingChanges, 1)
	})

	s.Run("rejection requires a reason", func() {
		rec := s.do(http.MethodPost, "/chancery/churches/"+id.String()+"/pending/reject", s.chancery,
			models.RejectPendingRequest{})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("approval folds fields into the public view", func() {
		rec := s.do(http.MethodPost, "/chancery/churches/"+id.String()+"/pending/approve", s.chancery, nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

		rec = s.do(http.MethodGet, "/churches/"+id.String(), "", nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		var view models.FieldMap
		s.decode(rec, &view)
		s.Equal("St. Augustine of Hippo", view["patronSaint"])
	})

	s.Run("resolving again is not found", func() {
		rec := s.do(http.MethodPost, "/chancery/churches/"+id.String()+"/pending/approve", s.chancery, nil)
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *HandlerSuite) TestSendBack() {
	id := s.createDraft()
	rec := s.do(http.MethodPost, "/parish/churches/"+id.String()+"/submit", s.secretary, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/chancery/churches/"+id.String()+"/send-back", s.chancery,
		models.SendBackRequest{Reason: "address incomplete"})
	s.Require().Equal(http.StatusOK, rec.Code)

	var profile models.ChurchProfile
	s.decode(rec, &profile)
	s.Equal(models.StatusDraft, profile.Status)
}

func (s *HandlerSuite) TestPublicProfileHidesDrafts() {
	id := s.createDraft()
	rec := s.do(http.MethodGet, "/churches/"+id.String(), "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}
