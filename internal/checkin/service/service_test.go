package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Extractor,Selfies,TripStore

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tripmate/internal/biometric"
	"tripmate/internal/biometric/extractor"
	"tripmate/internal/checkin/models"
	"tripmate/internal/checkin/service/mocks"
	checkinstore "tripmate/internal/checkin/store"
	"tripmate/internal/geofence"
	registrymodels "tripmate/internal/registry/models"
	registryservice "tripmate/internal/registry/service"
	registrystore "tripmate/internal/registry/store"
	dErrors "tripmate/pkg/domain-errors"
	"tripmate/pkg/platform/audit"
	"tripmate/pkg/platform/audit/publisher"
	auditmemory "tripmate/pkg/platform/audit/store/memory"
	"tripmate/pkg/testutil"
)

const phone = "9876543210"

var checkpoint = geofence.Point{Latitude: 13.0179, Longitude: 80.2533}

func testConfig() Config {
	return Config{
		Checkpoint:          checkpoint,
		MaxRadiusMeters:     50000,
		SimilarityThreshold: 0.75,
		TripNumberMax:       20,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func selfiePNG(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	img.SetGray(0, 0, color.Gray{Y: shade})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// TestCheckIn_EndToEnd wires real stores and the registry with a fake
// embedding model that maps every decodable image to the same vector.
func TestCheckIn_EndToEnd(t *testing.T) {
	registry := registryservice.New(registrystore.NewInMemory())
	trips := checkinstore.NewInMemory()
	outbox := auditmemory.NewInMemoryStore()
	hasher, err := audit.NewPhoneHasher([]byte("k"))
	require.NoError(t, err)

	calls := 0
	model := extractor.Func(func(_ context.Context, img []byte) (biometric.Embedding, error) {
		calls++
		if _, err := extractor.Sniff(img); err != nil {
			return nil, err
		}
		return biometric.Embedding{0.1, 0.7, 0.2}, nil
	})
	svc := New(model, registry, NewShardedTx(trips, outbox), testConfig(),
		WithLogger(discardLogger()),
		WithAuditor(publisher.NewPublisher(outbox), hasher),
	)

	_, err = registry.Register(context.Background(), phone, selfiePNG(t, 10))
	require.NoError(t, err)

	testutil.Given(t, "a registered user at the checkpoint", func(t *testing.T) {
		calls = 0
		res := svc.CheckIn(context.Background(), models.Request{
			Phone: phone, Latitude: 13.0179, Longitude: 80.2533, Selfie: selfiePNG(t, 20),
		})

		testutil.Then(t, "a trip between 1 and 20 is issued", func(t *testing.T) {
			require.Equal(t, models.KindSuccess, res.Kind)
			assert.GreaterOrEqual(t, res.TripNumber, 1)
			assert.LessOrEqual(t, res.TripNumber, 20)
			assert.Equal(t, "Check-in successful for "+phone, res.Message)
			assert.Equal(t, 2, calls)

			stored, err := trips.ListByPhone(context.Background(), phone)
			require.NoError(t, err)
			require.Len(t, stored, 1)
			assert.Equal(t, res.TripNumber, stored[0].TripNumber)

			events, err := outbox.ListByAction(context.Background(), audit.EventCheckinSucceeded)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, res.TripNumber, events[0].TripNumber)
			assert.Equal(t, audit.CategoryCompliance, events[0].Category)
		})
	})

	testutil.Given(t, "a user far from the checkpoint", func(t *testing.T) {
		calls = 0
		res := svc.CheckIn(context.Background(), models.Request{
			Phone: phone, Latitude: 20.0, Longitude: 80.0, Selfie: selfiePNG(t, 20),
		})

		testutil.Then(t, "the location is rejected without extraction", func(t *testing.T) {
			assert.Equal(t, models.LocationInvalid(), res)
			assert.Zero(t, calls)
		})
	})

	testutil.Given(t, "a second check-in by the same user", func(t *testing.T) {
		res := svc.CheckIn(context.Background(), models.Request{
			Phone: phone, Latitude: 13.0179, Longitude: 80.2533, Selfie: selfiePNG(t, 30),
		})

		testutil.Then(t, "another trip is issued", func(t *testing.T) {
			require.True(t, res.Succeeded())
			stored, err := trips.ListByPhone(context.Background(), phone)
			require.NoError(t, err)
			assert.Len(t, stored, 2)
		})
	})

	testutil.Given(t, "an upload that is not an image", func(t *testing.T) {
		res := svc.CheckIn(context.Background(), models.Request{
			Phone: phone, Latitude: 13.0179, Longitude: 80.2533, Selfie: []byte("not an image"),
		})

		testutil.Then(t, "the generic error result is returned", func(t *testing.T) {
			assert.Equal(t, models.Failure(), res)
			events, err := outbox.ListByAction(context.Background(), audit.EventCheckinFailed)
			require.NoError(t, err)
			assert.Len(t, events, 1)
		})
	})
}

type CheckInSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	extractor *mocks.MockExtractor
	selfies   *mocks.MockSelfies
	trips     *mocks.MockTripStore
	service   *Service
}

func TestCheckInSuite(t *testing.T) {
	suite.Run(t, new(CheckInSuite))
}

func (s *CheckInSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.extractor = mocks.NewMockExtractor(s.ctrl)
	s.selfies = mocks.NewMockSelfies(s.ctrl)
	s.trips = mocks.NewMockTripStore(s.ctrl)
	s.service = New(s.extractor, s.selfies, NewShardedTx(s.trips, nil), testConfig(),
		WithLogger(discardLogger()),
		WithTripNumbers(func(int) int { return 6 }),
	)
}

func (s *CheckInSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CheckInSuite) request() models.Request {
	return models.Request{Phone: phone, Latitude: 13.02, Longitude: 80.25, Selfie: []byte("live")}
}

func (s *CheckInSuite) storedSelfie() *registrymodels.Selfie {
	return &registrymodels.Selfie{ID: 1, Phone: phone, Image: []byte("stored")}
}

func (s *CheckInSuite) TestSuccessUsesInjectedTripNumber() {
	gomock.InOrder(
		s.extractor.EXPECT().Extract(gomock.Any(), []byte("live")).Return(biometric.Embedding{1, 0}, nil),
		s.selfies.EXPECT().LatestSelfie(gomock.Any(), phone).Return(s.storedSelfie(), nil),
		s.extractor.EXPECT().Extract(gomock.Any(), []byte("stored")).Return(biometric.Embedding{1, 0}, nil),
		s.trips.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, trip *models.Trip) error {
			s.Equal(phone, trip.Phone)
			s.Equal(7, trip.TripNumber)
			return nil
		}),
	)

	res := s.service.CheckIn(context.Background(), s.request())
	s.Equal(models.Success(phone, 7), res)
}

func (s *CheckInSuite) TestNoFaceInLiveSelfie() {
	s.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(nil, nil)

	res := s.service.CheckIn(context.Background(), s.request())
	s.Equal(models.KindFaceMismatch, res.Kind)
	s.Contains(res.Message, "uploaded")
}

func (s *CheckInSuite) TestNoStoredSelfie() {
	s.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(biometric.Embedding{1, 0}, nil)
	s.selfies.EXPECT().LatestSelfie(gomock.Any(), phone).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "no stored selfie"))

	res := s.service.CheckIn(context.Background(), s.request())
	s.Equal(models.FaceMismatch("no stored selfie"), res)
}

func (s *CheckInSuite) TestNoFaceInStoredSelfie() {
	s.extractor.EXPECT().Extract(gomock.Any(), []byte("live")).Return(biometric.Embedding{1, 0}, nil)
	s.selfies.EXPECT().LatestSelfie(gomock.Any(), phone).Return(s.storedSelfie(), nil)
	s.extractor.EXPECT().Extract(gomock.Any(), []byte("stored")).Return(biometric.Embedding{}, nil)

	res := s.service.CheckIn(context.Background(), s.request())
	s.Equal(models.FaceMismatch("no face in stored selfie"), res)
}

func (s *CheckInSuite) TestBelowThreshold() {
	s.extractor.EXPECT().Extract(gomock.Any(), []byte("live")).Return(biometric.Embedding{1, 0}, nil)
	s.selfies.EXPECT().LatestSelfie(gomock.Any(), phone).Return(s.storedSelfie(), nil)
	s.extractor.EXPECT().Extract(gomock.Any(), []byte("stored")).Return(biometric.Embedding{0, 1}, nil)

	res := s.service.CheckIn(context.Background(), s.request())
	s.Equal(models.FaceMismatch("similarity below threshold"), res)
}

func (s *CheckInSuite) TestFaultsBecomeGenericError() {
	s.Run("extractor unavailable", func() {
		s.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "sidecar down"))
		s.Equal(models.Failure(), s.service.CheckIn(context.Background(), s.request()))
	})

	s.Run("registry store failure", func() {
		s.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(biometric.Embedding{1, 0}, nil)
		s.selfies.EXPECT().LatestSelfie(gomock.Any(), phone).
			Return(nil, dErrors.Wrap(errors.New("conn reset"), dErrors.CodeInternal, "failed to load selfie"))
		s.Equal(models.Failure(), s.service.CheckIn(context.Background(), s.request()))
	})

	s.Run("embedding length mismatch", func() {
		s.extractor.EXPECT().Extract(gomock.Any(), []byte("live")).Return(biometric.Embedding{1, 0}, nil)
		s.selfies.EXPECT().LatestSelfie(gomock.Any(), phone).Return(s.storedSelfie(), nil)
		s.extractor.EXPECT().Extract(gomock.Any(), []byte("stored")).Return(biometric.Embedding{1, 0, 0}, nil)
		s.Equal(models.Failure(), s.service.CheckIn(context.Background(), s.request()))
	})

	s.Run("trip insert failure", func() {
		s.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(biometric.Embedding{1, 0}, nil).Times(2)
		s.selfies.EXPECT().LatestSelfie(gomock.Any(), phone).Return(s.storedSelfie(), nil)
		s.trips.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
		s.Equal(models.Failure(), s.service.CheckIn(context.Background(), s.request()))
	})

	s.Run("panic inside extractor", func() {
		s.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, []byte) (biometric.Embedding, error) { panic("model crashed") })
		s.Equal(models.Failure(), s.service.CheckIn(context.Background(), s.request()))
	})
}

type failingCommitTx struct {
	stores TxStores
}

func (f failingCommitTx) RunInTx(_ context.Context, fn func(TxStores) error) error {
	if err := fn(f.stores); err != nil {
		return err
	}
	return errors.New("commit: connection lost")
}

func TestCheckIn_CommitFailureIsNotSuccess(t *testing.T) {
	trips := checkinstore.NewInMemory()
	model := extractor.Func(func(context.Context, []byte) (biometric.Embedding, error) {
		return biometric.Embedding{1, 1}, nil
	})
	selfies := registryservice.New(registrystore.NewInMemory())
	_, err := selfies.Register(context.Background(), phone, selfiePNG(t, 1))
	require.NoError(t, err)

	svc := New(model, selfies, failingCommitTx{stores: TxStores{Trips: trips}}, testConfig(), WithLogger(discardLogger()))
	res := svc.CheckIn(context.Background(), models.Request{Phone: phone, Latitude: 13.0179, Longitude: 80.2533, Selfie: []byte("x")})

	assert.Equal(t, models.Failure(), res)
	assert.Zero(t, res.TripNumber)
}

func TestShardedTx_CancelledContext(t *testing.T) {
	tx := NewShardedTx(checkinstore.NewInMemory(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := tx.RunInTx(ctx, func(TxStores) error {
		called = true
		return nil
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	assert.False(t, called)
}

func TestShardedTx_FailedWorkLeavesNoTrip(t *testing.T) {
	trips := checkinstore.NewInMemory()
	var appended []audit.Event
	outbox := audit.StoreFunc(func(_ context.Context, e audit.Event) error {
		appended = append(appended, e)
		return nil
	})
	tx := NewShardedTx(trips, outbox, WithTxLogger(discardLogger()))

	err := tx.RunInTx(WithTxPhone(context.Background(), phone), func(stores TxStores) error {
		require.NoError(t, stores.Trips.Insert(context.Background(), &models.Trip{Phone: phone, TripNumber: 3}))
		require.NoError(t, stores.Outbox.Append(context.Background(), audit.Event{Action: string(audit.EventCheckinSucceeded)}))
		return errors.New("audit buffer full")
	})

	require.Error(t, err)
	assert.Zero(t, trips.Len())
	assert.Empty(t, appended)
}

func TestCheckIn_UnavailableAuditSinkStillIssuesTrip(t *testing.T) {
	trips := checkinstore.NewInMemory()
	outbox := audit.StoreFunc(func(context.Context, audit.Event) error {
		return publisher.ErrBufferFull
	})
	model := extractor.Func(func(context.Context, []byte) (biometric.Embedding, error) {
		return biometric.Embedding{1, 1}, nil
	})
	selfies := registryservice.New(registrystore.NewInMemory())
	_, err := selfies.Register(context.Background(), phone, selfiePNG(t, 1))
	require.NoError(t, err)

	svc := New(model, selfies, NewShardedTx(trips, outbox, WithTxLogger(discardLogger())), testConfig(),
		WithLogger(discardLogger()))
	res := svc.CheckIn(context.Background(), models.Request{Phone: phone, Latitude: 13.0179, Longitude: 80.2533, Selfie: []byte("x")})

	require.Equal(t, models.KindSuccess, res.Kind)
	stored, err := trips.ListByPhone(context.Background(), phone)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, res.TripNumber, stored[0].TripNumber)
}
