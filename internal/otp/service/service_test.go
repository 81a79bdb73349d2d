package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Sender

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tripmate/internal/otp/delivery"
	"tripmate/internal/otp/models"
	"tripmate/internal/otp/service/mocks"
	"tripmate/internal/otp/store"
	dErrors "tripmate/pkg/domain-errors"
	"tripmate/pkg/platform/audit"
	"tripmate/pkg/platform/audit/publisher"
	"tripmate/pkg/platform/audit/store/memory"
	"tripmate/pkg/requestcontext"
	"tripmate/pkg/testutil"
)

const phone = "9876543210"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// =============================================================================
// Lifecycle against the in-memory store
// =============================================================================

func TestService_Lifecycle(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	ttl := 300 * time.Second

	newService := func() *Service {
		return New(store.NewInMemory(), Config{TTL: ttl, CodeLength: 6}, WithLogger(discard))
	}

	testutil.Given(t, "a freshly issued code", func(t *testing.T) {
		testutil.When(t, "verified twice", func(t *testing.T) {
			svc := newService()
			code, err := svc.Issue(at(issuedAt), phone)
			require.NoError(t, err)

			testutil.Then(t, "the first is valid and the second not found", func(t *testing.T) {
				outcome, err := svc.Verify(at(issuedAt.Add(time.Second)), phone, code)
				require.NoError(t, err)
				assert.Equal(t, models.OutcomeValid, outcome)

				outcome, err = svc.Verify(at(issuedAt.Add(2*time.Second)), phone, code)
				require.NoError(t, err)
				assert.Equal(t, models.OutcomeNotFound, outcome)
			})
		})

		testutil.When(t, "verified after the ttl", func(t *testing.T) {
			svc := newService()
			code, err := svc.Issue(at(issuedAt), phone)
			require.NoError(t, err)

			testutil.Then(t, "it is expired and then gone", func(t *testing.T) {
				outcome, err := svc.Verify(at(issuedAt.Add(301*time.Second)), phone, code)
				require.NoError(t, err)
				assert.Equal(t, models.OutcomeExpired, outcome)

				outcome, err = svc.Verify(at(issuedAt.Add(302*time.Second)), phone, code)
				require.NoError(t, err)
				assert.Equal(t, models.OutcomeNotFound, outcome)
			})
		})

		testutil.When(t, "the sweeper ticks between expiry and verification", func(t *testing.T) {
			st := store.NewInMemory()
			svc := New(st, Config{TTL: ttl, CodeLength: 6}, WithLogger(discard))
			code, err := svc.Issue(at(issuedAt), phone)
			require.NoError(t, err)

			late := issuedAt.Add(ttl + 20*time.Second)
			require.Zero(t, st.Sweep(late, 24*time.Hour))

			testutil.Then(t, "verification still reports expired", func(t *testing.T) {
				outcome, err := svc.Verify(at(late), phone, code)
				require.NoError(t, err)
				assert.Equal(t, models.OutcomeExpired, outcome)
				assert.Zero(t, st.Len())
			})
		})

		testutil.When(t, "verified exactly at the ttl", func(t *testing.T) {
			svc := newService()
			code, err := svc.Issue(at(issuedAt), phone)
			require.NoError(t, err)

			testutil.Then(t, "it is still valid", func(t *testing.T) {
				outcome, err := svc.Verify(at(issuedAt.Add(ttl)), phone, code)
				require.NoError(t, err)
				assert.Equal(t, models.OutcomeValid, outcome)
			})
		})

		testutil.When(t, "a wrong code is submitted first", func(t *testing.T) {
			svc := newService()
			code, err := svc.Issue(at(issuedAt), phone)
			require.NoError(t, err)

			testutil.Then(t, "the wrong code is invalid and the right one still works", func(t *testing.T) {
				wrong := "000000"
				if code == wrong {
					wrong = "111111"
				}
				outcome, err := svc.Verify(at(issuedAt), phone, wrong)
				require.NoError(t, err)
				assert.Equal(t, models.OutcomeInvalid, outcome)

				outcome, err = svc.Verify(at(issuedAt), phone, code)
				require.NoError(t, err)
				assert.Equal(t, models.OutcomeValid, outcome)
			})
		})
	})

	testutil.Given(t, "a reissued code", func(t *testing.T) {
		svc := newService()
		first, err := svc.Issue(at(issuedAt), phone)
		require.NoError(t, err)
		second, err := svc.Issue(at(issuedAt.Add(time.Second)), phone)
		require.NoError(t, err)

		testutil.Then(t, "only the latest code is accepted", func(t *testing.T) {
			if first != second {
				outcome, err := svc.Verify(at(issuedAt.Add(2*time.Second)), phone, first)
				require.NoError(t, err)
				assert.Equal(t, models.OutcomeInvalid, outcome)
			}
			outcome, err := svc.Verify(at(issuedAt.Add(2*time.Second)), phone, second)
			require.NoError(t, err)
			assert.Equal(t, models.OutcomeValid, outcome)
		})
	})

	testutil.Given(t, "no code was ever issued", func(t *testing.T) {
		svc := newService()
		outcome, err := svc.Verify(at(issuedAt), phone, "123456")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeNotFound, outcome)
	})
}

func TestService_IssueCodeShape(t *testing.T) {
	svc := New(store.NewInMemory(), Config{CodeLength: 6})
	digits := regexp.MustCompile(`^[0-9]{6}$`)
	for range 50 {
		code, err := svc.Issue(context.Background(), phone)
		require.NoError(t, err)
		assert.Regexp(t, digits, code)
	}
}

func TestService_IssueZeroPads(t *testing.T) {
	// an all-zero entropy source makes rand.Int return 0
	svc := New(store.NewInMemory(), Config{CodeLength: 6}, WithRandom(bytes.NewReader(make([]byte, 64))))
	code, err := svc.Issue(context.Background(), phone)
	require.NoError(t, err)
	assert.Equal(t, "000000", code)
}

func TestService_RejectsInvalidPhone(t *testing.T) {
	svc := New(store.NewInMemory(), Config{})
	_, err := svc.Issue(context.Background(), "abc")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.Verify(context.Background(), "", "123456")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestService_EmitsAuditEvents(t *testing.T) {
	events := memory.NewInMemoryStore()
	hasher, err := audit.NewPhoneHasher([]byte("k"))
	require.NoError(t, err)
	svc := New(store.NewInMemory(), Config{}, WithAuditor(publisher.NewPublisher(events), hasher))
	ctx := context.Background()

	code, err := svc.Issue(ctx, phone)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, phone, code+"0")
	require.NoError(t, err)
	_, err = svc.Verify(ctx, phone, code)
	require.NoError(t, err)

	all, err := events.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, string(audit.EventOTPIssued), all[0].Action)
	assert.Equal(t, string(audit.EventOTPRejected), all[1].Action)
	assert.Equal(t, string(models.OutcomeInvalid), all[1].Decision)
	assert.Equal(t, string(audit.EventOTPVerified), all[2].Action)
	assert.Equal(t, hasher.Hash(phone), all[2].PhoneHash)
}

// =============================================================================
// Delivery and store failures with mocks
// =============================================================================

type SendSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	store  *mocks.MockStore
	sender *mocks.MockSender
	svc    *Service
}

func TestSendSuite(t *testing.T) {
	suite.Run(t, new(SendSuite))
}

func (s *SendSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.sender = mocks.NewMockSender(s.ctrl)
	s.svc = New(s.store, Config{Channel: "telegram"}, WithSender(s.sender), WithLogger(discard))
}

func (s *SendSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *SendSuite) TestDeliversRenderedCode() {
	var stored models.Record
	s.store.EXPECT().Put(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec models.Record) error {
		stored = rec
		return nil
	})
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg delivery.Message) error {
		s.Equal("42", msg.ChatID)
		s.Equal(phone, msg.Phone)
		s.Equal("Your TripMate OTP is: "+stored.Code, msg.Text)
		return nil
	})

	s.Require().NoError(s.svc.Send(context.Background(), phone, "42"))
}

func (s *SendSuite) TestDeliveryFailureKeepsCode() {
	s.store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("telegram 502"))
	// no Delete expected: the code is retained

	err := s.svc.Send(context.Background(), phone, "42")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *SendSuite) TestStoreFailureSkipsDelivery() {
	s.store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	err := s.svc.Send(context.Background(), phone, "42")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *SendSuite) TestVerifyStoreFailure() {
	s.store.EXPECT().Update(gomock.Any(), phone, gomock.Any()).Return(errors.New("redis down"))

	_, err := s.svc.Verify(context.Background(), phone, "123456")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *SendSuite) TestNoSenderConfigured() {
	svc := New(s.store, Config{})
	err := svc.Send(context.Background(), phone, "42")
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestRunSweeper(t *testing.T) {
	st := store.NewInMemory()
	require.NoError(t, st.Put(context.Background(), models.Record{Phone: phone, IssuedAt: time.Now().Add(-time.Hour)}))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := RunSweeper(ctx, st, time.Minute, 10*time.Millisecond, nil, discard)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, st.Len())
}
