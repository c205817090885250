package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akagifreeez/stream-admin/internal/adminstub"
	"github.com/akagifreeez/stream-admin/internal/dashboard"
	"github.com/akagifreeez/stream-admin/pkg/adminapi"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return runCLIContext(testContext(t), stdin, args...)
}

func runCLIContext(ctx context.Context, stdin string, args ...string) (string, error) {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func newStub(t *testing.T) (*adminstub.Server, string) {
	t.Helper()
	for _, key := range []string{"ADMIN_USERNAME", "ADMIN_PASSWORD", "ADMIN_TOKEN_SECRET", "REDIS_URL", "DISCORD_WEBHOOK_URL", "ADMIN_LIST_KEYS"} {
		t.Setenv(key, "")
	}
	stub := adminstub.New(adminstub.Options{Revenue: 10})
	srv := httptest.NewServer(stub.Router())
	t.Cleanup(srv.Close)
	return stub, srv.URL
}

func TestCreateAndDeleteCommands(t *testing.T) {
	stub, url := newStub(t)

	out, err := runCLI(t, "", "--base-url", url, "create", "--owner", "Alice", "--daily-limit", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "API Key created successfully!")
	require.Equal(t, 1, stub.KeyCount())

	var apiKey string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "API Key: ") {
			apiKey = strings.TrimPrefix(line, "API Key: ")
		}
	}
	require.True(t, stub.HasKey(apiKey))

	out, err = runCLI(t, "no\n", "--base-url", url, "delete", apiKey)
	require.NoError(t, err)
	assert.Contains(t, out, dashboard.DeletePrompt)
	assert.Contains(t, out, "Deletion cancelled.")
	assert.True(t, stub.HasKey(apiKey))

	out, err = runCLI(t, "yes\n", "--base-url", url, "delete", apiKey)
	require.NoError(t, err)
	assert.Contains(t, out, "API key deleted successfully")
	assert.False(t, stub.HasKey(apiKey))

	_, err = runCLI(t, "", "--base-url", url, "delete", "--yes", apiKey)
	assert.ErrorContains(t, err, "API key not found")
}

func TestCreateCommandRequiresOwner(t *testing.T) {
	stub, url := newStub(t)

	_, err := runCLI(t, "", "--base-url", url, "create", "--owner", "  ")
	assert.ErrorContains(t, err, "Please enter owner name")
	assert.Equal(t, int64(0), stub.Hits())
}

func TestStatsAndHealthCommands(t *testing.T) {
	stub, url := newStub(t)

	out, err := runCLI(t, "", "--base-url", url, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "keys=0")
	assert.Contains(t, out, "revenue=₹10")

	out, err = runCLI(t, "", "--base-url", url, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Online")

	stub.SetHealthy(false)
	out, err = runCLI(t, "", "--base-url", url, "health")
	assert.Error(t, err)
	assert.Contains(t, out, "Offline")
}

func TestFormatState(t *testing.T) {
	line := formatState(dashboard.State{
		Health:    adminapi.HealthOnline,
		Stats:     &adminapi.StatsSnapshot{TotalKeys: 2, TotalRequests: 30, ActiveUsers: 1, Revenue: 12.5},
		LastError: "Network error occurred",
	})

	assert.Equal(t, "status=Online keys=2 requests=30 active_users=1 revenue=₹12.5 error=\"Network error occurred\"\n", line)
	assert.Equal(t, "status=Unknown\n", formatState(dashboard.State{}))
}

func TestPromptConfirmer(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, promptConfirmer(strings.NewReader("y\n"), &out).Confirm("Delete?"))
	assert.True(t, promptConfirmer(strings.NewReader("YES\n"), &out).Confirm("Delete?"))
	assert.False(t, promptConfirmer(strings.NewReader("\n"), &out).Confirm("Delete?"))
	assert.False(t, promptConfirmer(strings.NewReader(""), &out).Confirm("Delete?"))
	assert.Contains(t, out.String(), "Delete? (yes/no): ")
}

func TestWatchReturnsWhenCancelled(t *testing.T) {
	stub, url := newStub(t)

	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := runCLIContext(ctx, "", "--base-url", url, "watch")
		done <- result{out, err}
	}()

	// the health check only starts once the first stats refresh has rendered
	assert.Eventually(t, func() bool { return stub.Hits() >= 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Contains(t, res.out, "keys=0")
		assert.Contains(t, res.out, "revenue=₹10")
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return after cancellation")
	}
}

func TestSetupFailureIsReported(t *testing.T) {
	_, url := newStub(t)
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD", "wrong")

	stub := adminstub.New(adminstub.Options{Username: "admin", Password: "admin123"})
	srv := httptest.NewServer(stub.Router())
	defer srv.Close()

	_, err := runCLI(t, "", "--base-url", srv.URL, "stats")
	assert.ErrorIs(t, err, adminapi.ErrUnauthorized)

	_, err = runCLI(t, "", "--base-url", url, "stats")
	assert.Error(t, err, "login against a stub without credentials must fail too")
}

func TestCloseIsSafeToRepeat(t *testing.T) {
	a := &app{}
	assert.NotPanics(t, func() {
		a.close()
		a.close()
	})
}

func TestKeysCommand(t *testing.T) {
	stub, url := newStub(t)

	out, err := runCLI(t, "", "--base-url", url, "keys")
	require.NoError(t, err)
	assert.Equal(t, "No keys found.\n", out)

	out, err = runCLI(t, "", "--base-url", url, "create", "--owner", "Alice", "--daily-limit", "100")
	require.NoError(t, err)
	var apiKey string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "API Key: ") {
			apiKey = strings.TrimPrefix(line, "API Key: ")
		}
	}
	require.True(t, stub.HasKey(apiKey))

	out, err = runCLI(t, "", "--base-url", url, "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "OWNER")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, adminapi.MaskKey(apiKey))
	assert.Contains(t, out, "active")
	assert.NotContains(t, out, apiKey)
}

func TestWriteKeys(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	keys := []adminapi.KeySummary{
		{OwnerName: "Alice", MaskedKey: "****wxyz", DailyLimit: 100, RequestsToday: 3, TotalRequests: 40,
			ExpiresAt: now.AddDate(0, 0, 20), IsActive: true},
		{OwnerName: "Bob", MaskedKey: "****abcd", DailyLimit: 10, ExpiresAt: now.AddDate(0, 0, -1), IsActive: true},
		{OwnerName: "Carol", MaskedKey: "****1234", ExpiresAt: now.AddDate(0, 0, 5)},
	}

	var out bytes.Buffer
	require.NoError(t, writeKeys(&out, keys, now))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "OWNER"))
	assert.Equal(t, []string{"Alice", "****wxyz", "100", "3", "40", "2024-05-30", "active"}, strings.Fields(lines[1]))
	assert.Equal(t, "expired", strings.Fields(lines[2])[6])
	assert.Equal(t, "inactive", strings.Fields(lines[3])[6])
}

func TestFormatStateWithKeys(t *testing.T) {
	line := formatState(dashboard.State{
		Health: adminapi.HealthOnline,
		Keys:   []adminapi.KeySummary{{OwnerName: "Alice"}, {OwnerName: "Bob"}},
	})
	assert.Equal(t, "status=Online listed_keys=2\n", line)

	assert.Equal(t, "status=Unknown listed_keys=0\n", formatState(dashboard.State{Keys: []adminapi.KeySummary{}}))
}

func TestWatchListsKeysWhenAsked(t *testing.T) {
	stub, url := newStub(t)

	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()

	done := make(chan string, 1)
	go func() {
		out, _ := runCLIContext(ctx, "", "--base-url", url, "watch", "--keys")
		done <- out
	}()

	// stats, keys, then health
	assert.Eventually(t, func() bool { return stub.Hits() >= 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case out := <-done:
		assert.Contains(t, out, "listed_keys=0")
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return after cancellation")
	}
}
