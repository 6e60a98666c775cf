package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/growcoach/jobboard/internal/auth"
	"github.com/growcoach/jobboard/internal/database/testutil"
	"github.com/growcoach/jobboard/internal/models"
	"github.com/growcoach/jobboard/pkg/mail"
)

const testPassword = "Secret123"

type testServices struct {
	db            *gorm.DB
	workflow      *WorkflowService
	notifications *NotificationService
	accounts      *AccountService
	jobs          *JobService
	auth          *AuthService
	jwt           *auth.JWTService
	mailer        *recordingMailer
}

type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.err
}

func (m *recordingMailer) last() mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return mail.Message{}
	}
	return m.messages[len(m.messages)-1]
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	workflow, err := NewWorkflowService(db)
	require.NoError(t, err)
	notifications, err := NewNotificationService(db, workflow)
	require.NoError(t, err)
	accounts, err := NewAccountService(db, notifications)
	require.NoError(t, err)
	jobs, err := NewJobService(db)
	require.NoError(t, err)

	jwtService, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Issuer: "growcoach-test", AccessTokenTTL: time.Hour})
	require.NoError(t, err)
	denylist, err := auth.NewTokenDenylist(db, nil)
	require.NoError(t, err)

	mailer := &recordingMailer{}
	authService, err := NewAuthService(db, accounts, jwtService, denylist, WithMailer(mailer))
	require.NoError(t, err)

	return &testServices{
		db:            db,
		workflow:      workflow,
		notifications: notifications,
		accounts:      accounts,
		jobs:          jobs,
		auth:          authService,
		jwt:           jwtService,
		mailer:        mailer,
	}
}

func (s *testServices) registerCandidate(t *testing.T, first, last, email string) *AccountDTO {
	t.Helper()
	account, err := s.accounts.RegisterCandidate(context.Background(), CandidateRegistration{
		FirstName:       first,
		LastName:        last,
		Email:           email,
		Password:        testPassword,
		ConfirmPassword: testPassword,
		TermsAccepted:   true,
	})
	require.NoError(t, err)
	return account
}

func (s *testServices) registerCompany(t *testing.T, name, email string) *AccountDTO {
	t.Helper()
	account, err := s.accounts.RegisterCompany(context.Background(), CompanyRegistration{
		CompanyName:     name,
		Email:           email,
		Password:        testPassword,
		ConfirmPassword: testPassword,
		Industry:        "software",
	})
	require.NoError(t, err)
	return account
}

func (s *testServices) activeCandidate(t *testing.T, first, email string) *AccountDTO {
	t.Helper()
	account := s.registerCandidate(t, first, "Doe", email)
	approved, err := s.workflow.ApplyAction(context.Background(), account.ID, ActionApprove)
	require.NoError(t, err)
	return approved
}

func (s *testServices) activeCompany(t *testing.T, name, email string) *AccountDTO {
	t.Helper()
	account := s.registerCompany(t, name, email)
	approved, err := s.workflow.ApplyAction(context.Background(), account.ID, ActionApprove)
	require.NoError(t, err)
	return approved
}

func (s *testServices) accountStatus(t *testing.T, id string) models.Account {
	t.Helper()
	var account models.Account
	require.NoError(t, s.db.First(&account, "id = ?", id).Error)
	return account
}

func (s *testServices) pendingFor(t *testing.T, id string) []NotificationDTO {
	t.Helper()
	pending, err := s.notifications.ListPending(context.Background(), NotificationFilter{TargetAccountID: id})
	require.NoError(t, err)
	return pending
}

var errMailDown = errors.New("smtp: connection refused")
