package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
)

func resetSubscriptionFlags() {
	userEmail, userName = "", ""
	subUserID, subDescription = "", ""
	subIssuers, subOwners, subFormTypes = nil, nil, nil
}

func TestSubscriptionCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range subscriptionCmd.Commands() {
		names = append(names, cmd.Name())
	}

	assert.Contains(t, names, "add")
	assert.Contains(t, names, "list")
	assert.Contains(t, names, "remove")
}

func TestUserAddCmd(t *testing.T) {
	_, subs, cleanup := setupTestServices()
	defer cleanup()
	defer resetSubscriptionFlags()

	out, err := execute(t, "user", "add", "--email", "jane@example.com", "--name", "Jane Doe")

	require.NoError(t, err)
	assert.Contains(t, out, "Added user: user-1 (jane@example.com)")
	require.Len(t, subs.users, 1)
	assert.Equal(t, "Jane Doe", subs.users[0].Name)
}

func TestSubscriptionAddCmd(t *testing.T) {
	_, subs, cleanup := setupTestServices()
	defer cleanup()
	defer resetSubscriptionFlags()

	out, err := execute(t, "subscription", "add",
		"--user", "user-1",
		"--issuer", "0001000045",
		"--owner", "1234567", "--owner", "7654321",
		"--form", "4,4/A",
		"--description", "Nicholas insiders")

	require.NoError(t, err)
	assert.Contains(t, out, "Added subscription: sub-1")
	require.Len(t, subs.subs, 1)
	sub := subs.subs[0]
	assert.Equal(t, "user-1", sub.UserID)
	assert.Equal(t, []string{"0001000045"}, sub.IssuerCIKs)
	assert.Equal(t, []string{"1234567", "7654321"}, sub.OwnerCIKs)
	assert.Equal(t, []string{"4", "4/A"}, sub.FormTypes)
	assert.Equal(t, "Nicholas insiders", sub.Description)
}

func TestSubscriptionAddCmd_ServiceError(t *testing.T) {
	_, subs, cleanup := setupTestServices()
	defer cleanup()
	defer resetSubscriptionFlags()
	subs.err = domain.ErrNotFound

	_, err := execute(t, "subscription", "add", "--user", "ghost")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "failed to add subscription")
}

func TestSubscriptionListCmd(t *testing.T) {
	_, subs, cleanup := setupTestServices()
	defer cleanup()
	last := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	subs.groups = []domain.UserSubscriptions{{
		UserID: "user-1",
		Subscriptions: []domain.Subscription{
			{ID: "sub-1", Description: "Nicholas insiders", IssuerCIKs: []string{"1000045"}, LastTriggered: &last},
			{ID: "sub-2", FormTypes: []string{"4", "4/A"}},
		},
	}}

	out, err := execute(t, "subscription", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "User user-1")
	assert.Contains(t, out, "sub-1  Nicholas insiders")
	assert.Contains(t, out, "Issuers: 1000045")
	assert.Contains(t, out, "Last notified: 2024-01-05T00:00:00Z")
	assert.Contains(t, out, "sub-2  (no description)")
	assert.Contains(t, out, "Forms:   4, 4/A")
	assert.Contains(t, out, "Owners:  any")
	assert.Contains(t, out, "Last notified: never")
}

func TestSubscriptionListCmd_Empty(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "subscription", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No subscriptions.")
}

func TestSubscriptionListCmd_Error(t *testing.T) {
	_, subs, cleanup := setupTestServices()
	defer cleanup()
	subs.err = errors.New("database locked")

	_, err := execute(t, "subscription", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list subscriptions")
}

func TestSubscriptionRemoveCmd(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "subscription", "remove", "sub-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Removed subscription: sub-1")

	_, err = execute(t, "subscription", "remove", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubscriptionRemoveCmd_RequiresExactlyOneArg(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "subscription", "remove")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSubscriptionCmds_ServiceNotConfigured(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()
	subscriptionService = nil

	_, err := execute(t, "subscription", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscription service not configured")
}
