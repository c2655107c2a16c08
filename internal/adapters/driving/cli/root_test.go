package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
	"github.com/custodia-labs/filingwatch/internal/logger"
)

// mockScheduler implements driving.Scheduler for testing.
type mockScheduler struct {
	result   *domain.TaskResult
	err      error
	startErr error
	started  bool
	stopped  bool

	status      *domain.TaskStatus
	statusErr   error
	statusLimit int
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.started = true
	if m.startErr != nil {
		return m.startErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	m.stopped = true
	return nil
}

func (m *mockScheduler) Trigger(_ context.Context) (*domain.TaskResult, error) {
	return m.result, m.err
}

func (m *mockScheduler) Status(_ context.Context, limit int) (*domain.TaskStatus, error) {
	m.statusLimit = limit
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	if m.status == nil {
		return &domain.TaskStatus{}, nil
	}
	return m.status, nil
}

// mockSubscriptionService implements driving.SubscriptionService for testing.
type mockSubscriptionService struct {
	users  []domain.User
	subs   []domain.Subscription
	groups []domain.UserSubscriptions
	err    error
}

func (m *mockSubscriptionService) AddUser(_ context.Context, user domain.User) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	user.ID = "user-1"
	m.users = append(m.users, user)
	return &user, nil
}

func (m *mockSubscriptionService) Subscribe(_ context.Context, sub domain.Subscription) (*domain.Subscription, error) {
	if m.err != nil {
		return nil, m.err
	}
	sub.ID = "sub-1"
	m.subs = append(m.subs, sub)
	return &sub, nil
}

func (m *mockSubscriptionService) List(_ context.Context) ([]domain.UserSubscriptions, error) {
	return m.groups, m.err
}

func (m *mockSubscriptionService) Unsubscribe(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	if id == "missing" {
		return domain.ErrNotFound
	}
	return nil
}

// setupTestServices installs mocks and returns a restore function.
func setupTestServices() (*mockScheduler, *mockSubscriptionService, func()) {
	oldScheduler := scheduler
	oldSubscriptions := subscriptionService
	oldBootstrap := bootstrap

	sched := &mockScheduler{}
	subs := &mockSubscriptionService{}
	SetServices(Services{Scheduler: sched, Subscriptions: subs})
	bootstrap = nil

	return sched, subs, func() {
		scheduler = oldScheduler
		subscriptionService = oldSubscriptions
		bootstrap = oldBootstrap
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "filingwatch", rootCmd.Use)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}

	assert.Contains(t, names, "run")
	assert.Contains(t, names, "schedule")
	assert.Contains(t, names, "status")
	assert.Contains(t, names, "subscription")
	assert.Contains(t, names, "user")
	assert.Contains(t, names, "version")
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}

func TestRootCmd_BootstrapsServices(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()
	scheduler = nil

	sched := &mockScheduler{result: &domain.TaskResult{Success: true, Attempts: 1}}
	var gotPath string
	bootstrap = func(path string) (Services, func() error, error) {
		gotPath = path
		return Services{Scheduler: sched}, nil, nil
	}
	oldPath := configPath
	defer func() { configPath = oldPath }()

	out, err := execute(t, "--config", "/etc/filingwatch.toml", "run")

	require.NoError(t, err)
	assert.Equal(t, "/etc/filingwatch.toml", gotPath)
	assert.Same(t, sched, scheduler)
	assert.Contains(t, out, "Ingestion complete")
}

func TestRootCmd_BootstrapError(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()
	scheduler = nil

	bootstrap = func(string) (Services, func() error, error) {
		return Services{}, nil, &domain.ConfigurationError{Setting: "FILINGWATCH_USER_AGENT"}
	}

	_, err := execute(t, "run")

	require.Error(t, err)
	assert.True(t, domain.IsConfigurationError(err))
}

func TestRootCmd_VersionSkipsBootstrap(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()
	scheduler = nil

	called := false
	bootstrap = func(string) (Services, func() error, error) {
		called = true
		return Services{}, nil, errors.New("should not be called")
	}

	_, err := execute(t, "version")

	require.NoError(t, err)
	assert.False(t, called)
}

func TestRootCmd_InvalidLogLevel(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()
	defer func() { logLevel = "" }()

	_, err := execute(t, "--log-level", "loud", "version")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log level")
}

func TestRootCmd_VerboseFlag(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()
	defer func() {
		verbose = false
		logger.SetVerbose(false)
	}()

	_, err := execute(t, "--verbose", "version")

	require.NoError(t, err)
	assert.True(t, logger.IsVerbose())
}
