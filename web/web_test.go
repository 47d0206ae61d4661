package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/daodelegate/capability"
	"github.com/screwyprof/daodelegate/delegation"
	"github.com/screwyprof/daodelegate/pkg/cache"
	"github.com/screwyprof/daodelegate/pkg/evm"
	"github.com/screwyprof/daodelegate/pkg/evm/evmtest"
	"github.com/screwyprof/daodelegate/pkg/logger"
	"github.com/screwyprof/daodelegate/web"
	"github.com/screwyprof/daodelegate/web/api"
	"github.com/screwyprof/daodelegate/web/testcfg"
)

var (
	tokenAddress  = common.HexToAddress("0x00000000000000000000000000000000000070c3")
	accessAddress = common.HexToAddress("0x00000000000000000000000000000000000000ac")
)

// TestDelegationAPI exercises the HTTP API over the real contract bindings
// against an in-memory ledger
func TestDelegationAPI(t *testing.T) {
	t.Parallel()

	t.Run("it returns a terminated chain", func(t *testing.T) {
		t.Parallel()

		// Arrange
		backend := evmtest.NewBackend(t).Path(addr("A"), addr("B"), addr("C"))
		server := createTestServer(t, backend)

		// Act
		resp := get(t, server.URL+"/delegations/"+addr("A").Hex()+"/chain")
		chain := parseJSONResponse[api.ChainResponse](t, resp)

		// Assert
		assertStatus(t, resp, http.StatusOK)
		assert.Equal(t, hexes("A", "B", "C"), chain.Path)
		assert.Equal(t, 2, chain.Depth)
		assert.False(t, chain.HasCycle)
		assert.Nil(t, chain.CycleIndex)
		assert.Equal(t, "none", chain.Warning)
	})

	t.Run("it reports a cycle with its cycle point", func(t *testing.T) {
		t.Parallel()

		// Arrange
		backend := evmtest.NewBackend(t).
			Delegate(addr("A"), addr("B")).
			Delegate(addr("B"), addr("C")).
			Delegate(addr("C"), addr("A"))
		server := createTestServer(t, backend)

		// Act
		resp := get(t, server.URL+"/delegations/"+addr("A").Hex()+"/chain")
		chain := parseJSONResponse[api.ChainResponse](t, resp)

		// Assert
		assertStatus(t, resp, http.StatusOK)
		assert.Equal(t, hexes("A", "B", "C", "A"), chain.Path)
		assert.True(t, chain.HasCycle)
		require.NotNil(t, chain.CycleIndex)
		assert.Equal(t, 3, *chain.CycleIndex)
		assert.Equal(t, "blocked", chain.Warning)
	})

	t.Run("it honours a smaller max_depth and flags the remainder", func(t *testing.T) {
		t.Parallel()

		// Arrange
		backend := evmtest.NewBackend(t).Path(addr("A"), addr("B"), addr("C"), addr("D"))
		server := createTestServer(t, backend)

		// Act
		resp := get(t, server.URL+"/delegations/"+addr("A").Hex()+"/chain?max_depth=1")
		chain := parseJSONResponse[api.ChainResponse](t, resp)

		// Assert
		assertStatus(t, resp, http.StatusOK)
		assert.Equal(t, hexes("A", "B"), chain.Path)
		assert.True(t, chain.Truncated)
	})

	t.Run("it returns a partial chain when the ledger fails mid-walk", func(t *testing.T) {
		t.Parallel()

		// Arrange
		backend := evmtest.NewBackend(t).
			Path(addr("A"), addr("B"), addr("C")).
			FailAddress(addr("B"), errors.New("connection refused"))
		server := createTestServer(t, backend)

		// Act
		resp := get(t, server.URL+"/delegations/"+addr("A").Hex()+"/chain")
		chain := parseJSONResponse[api.ChainResponse](t, resp)

		// Assert
		assertStatus(t, resp, http.StatusOK)
		assert.Equal(t, hexes("A", "B"), chain.Path)
		assert.True(t, chain.Partial)
		assert.Equal(t, delegation.ErrLookupFailed.Error(), chain.Error)
	})

	t.Run("it rejects malformed addresses", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := createTestServer(t, evmtest.NewBackend(t))

		for _, path := range []string{
			"/delegations/0x1234/chain",
			"/delegations/" + addr("A").Hex() + "/chain?max_depth=zero",
			"/delegations/" + addr("A").Hex() + "/chain?max_depth=-1",
			"/delegations/check?from=nope&to=" + addr("A").Hex(),
			"/delegations/nope/power",
		} {
			// Act
			resp := get(t, server.URL+path)
			apiErr := parseJSONResponse[map[string]any](t, resp)

			// Assert
			assertStatus(t, resp, http.StatusBadRequest)
			assert.InDelta(t, float64(http.StatusBadRequest), apiErr["code"], 0, path)
		}
	})

	t.Run("it blocks a delegation that would close a cycle", func(t *testing.T) {
		t.Parallel()

		// Arrange
		backend := evmtest.NewBackend(t).Path(addr("B"), addr("C"), addr("A"))
		server := createTestServer(t, backend)

		// Act
		resp := getCheck(t, server.URL, addr("A"), addr("B"))
		check := parseJSONResponse[api.CheckResponse](t, resp)

		// Assert
		assertStatus(t, resp, http.StatusOK)
		assert.Equal(t, hexes("A", "B", "C", "A"), check.Path)
		assert.True(t, check.HasCycle)
		assert.True(t, check.Blocked)
		assert.Equal(t, "blocked", check.Warning)
	})

	t.Run("it allows un-delegation without a target", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := createTestServer(t, evmtest.NewBackend(t))

		// Act
		resp := get(t, server.URL+"/delegations/check?from="+addr("A").Hex())
		check := parseJSONResponse[api.CheckResponse](t, resp)

		// Assert
		assertStatus(t, resp, http.StatusOK)
		assert.Zero(t, check.Depth)
		assert.False(t, check.Blocked)
		assert.Equal(t, "none", check.Warning)
	})

	t.Run("it serves effective power with decimal amounts", func(t *testing.T) {
		t.Parallel()

		// Arrange
		backend := evmtest.NewBackend(t).
			Balance(addr("A"), 10).
			Balance(addr("B"), 20).
			Balance(addr("C"), 5).
			Delegate(addr("A"), addr("C")).
			Delegate(addr("B"), addr("C"))
		server := createTestServer(t, backend)

		// Act
		resp := get(t, server.URL+"/delegations/"+addr("C").Hex()+"/power")
		power := parseJSONResponse[api.PowerResponse](t, resp)

		// Assert
		assertStatus(t, resp, http.StatusOK)
		assert.Equal(t, "5", power.Balance)
		assert.Equal(t, "35", power.Effective)
		assert.Len(t, power.Direct, 2)
		assert.Empty(t, power.PassThrough)
		assert.False(t, power.Incomplete)
		assert.Empty(t, power.Missing)
		assertTimestamp(t, power.FetchedAt)
		assertTimestamp(t, power.ExpiresAt)
		assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	})

	t.Run("it serves waiting callers when the first caller hangs up", func(t *testing.T) {
		t.Parallel()

		// Arrange
		release := make(chan struct{})
		backend := evmtest.NewBackend(t).Balance(addr("A"), 10).Hold(release)
		server := createTestServer(t, backend)
		endpoint := server.URL + "/delegations/" + addr("A").Hex() + "/power"

		firstCtx, hangUp := context.WithCancel(t.Context())
		firstErr := make(chan error, 1)
		go func() {
			resp, err := send(firstCtx, endpoint)
			if err == nil {
				resp.Body.Close()
			}
			firstErr <- err
		}()
		require.Eventually(t, func() bool { return backend.Held() > 0 }, time.Second, 5*time.Millisecond)

		second := make(chan *http.Response, 1)
		go func() {
			resp, err := send(t.Context(), endpoint)
			assert.NoError(t, err)
			second <- resp
		}()
		time.Sleep(20 * time.Millisecond)

		// Act
		hangUp()
		require.Error(t, <-firstErr)
		time.Sleep(50 * time.Millisecond)
		stillHeld := backend.Held()
		close(release)
		resp := <-second

		// Assert
		assert.Equal(t, 1, stillHeld, "the shared read should outlive the caller that started it")
		require.NotNil(t, resp)
		power := parseJSONResponse[api.PowerResponse](t, resp)
		assertStatus(t, resp, http.StatusOK)
		assert.Equal(t, "10", power.Effective)
		assert.False(t, power.Incomplete)
	})

	t.Run("it caches complete power snapshots", func(t *testing.T) {
		t.Parallel()

		// Arrange
		backend := evmtest.NewBackend(t).Balance(addr("A"), 1)
		server := createTestServer(t, backend)
		endpoint := server.URL + "/delegations/" + addr("A").Hex() + "/power"

		// Act
		first := parseJSONResponse[api.PowerResponse](t, get(t, endpoint))
		calls := backend.Calls("")
		second := parseJSONResponse[api.PowerResponse](t, get(t, endpoint))

		// Assert
		assert.Equal(t, first, second)
		assert.Equal(t, calls, backend.Calls(""))
	})

	t.Run("it recomputes incomplete power snapshots", func(t *testing.T) {
		t.Parallel()

		// Arrange
		backend := evmtest.NewBackend(t).
			Balance(addr("A"), 10).
			Balance(addr("C"), 5).
			Delegate(addr("A"), addr("C")).
			FailMethod("balanceOf", errors.New("connection refused"))
		server := createTestServer(t, backend)
		endpoint := server.URL + "/delegations/" + addr("C").Hex() + "/power"

		// Act
		first := parseJSONResponse[api.PowerResponse](t, get(t, endpoint))
		calls := backend.Calls("")
		_ = parseJSONResponse[api.PowerResponse](t, get(t, endpoint))

		// Assert
		assert.True(t, first.Incomplete)
		assert.Equal(t, "0", first.Effective)
		assert.ElementsMatch(t, hexes("C", "A"), first.Missing)
		assert.Greater(t, backend.Calls(""), calls)
	})

	t.Run("it reports zero power for an address that delegated away", func(t *testing.T) {
		t.Parallel()

		// Arrange
		backend := evmtest.NewBackend(t).
			Balance(addr("X"), 100).
			Delegate(addr("Y"), addr("X")).
			Delegate(addr("X"), addr("Z"))
		server := createTestServer(t, backend)

		// Act
		power := parseJSONResponse[api.PowerResponse](t, get(t, server.URL+"/delegations/"+addr("X").Hex()+"/power"))

		// Assert
		assert.Equal(t, "0", power.Effective)
		assert.Equal(t, "100", power.Balance)
		assert.True(t, power.Delegated)
		assert.Equal(t, addr("Z").Hex(), power.Delegate)
	})
}

func TestCapabilitiesAPI(t *testing.T) {
	t.Parallel()

	t.Run("it lists granted capabilities", func(t *testing.T) {
		t.Parallel()

		// Arrange
		backend := evmtest.NewBackend(t).
			Grant(capability.Admin.Role(), addr("A")).
			Grant(capability.Execute.Role(), addr("A"))
		server := createTestServer(t, backend)

		// Act
		resp := get(t, server.URL+"/capabilities/"+addr("A").Hex())
		caps := parseJSONResponse[api.CapabilitiesResponse](t, resp)

		// Assert
		assertStatus(t, resp, http.StatusOK)
		assert.Equal(t, []string{"admin", "execute"}, caps.Capabilities)
		assertTimestamp(t, caps.FetchedAt)
		assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	})

	t.Run("it fails closed when roles cannot be read", func(t *testing.T) {
		t.Parallel()

		// Arrange
		backend := evmtest.NewBackend(t).
			Grant(capability.Admin.Role(), addr("A")).
			FailMethod("hasRole", errors.New(`Post "https://rpc.example/secret": connection refused`))
		server := createTestServer(t, backend)

		// Act
		resp := get(t, server.URL+"/capabilities/"+addr("A").Hex())
		body := readBody(t, resp)

		// Assert
		assertStatus(t, resp, http.StatusBadGateway)
		assert.NotContains(t, body, "secret")
		assert.NotContains(t, body, "admin")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	// Arrange
	backend := evmtest.NewBackend(t).Path(addr("A"), addr("B"))
	server := createTestServer(t, backend)
	_ = readBody(t, get(t, server.URL+"/delegations/"+addr("A").Hex()+"/chain"))

	// Act
	resp := get(t, server.URL+"/metrics")
	body := readBody(t, resp)

	// Assert
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `daodelegate_ledger_calls_total{method="getDelegate",result="ok"} 2`)
	assert.Contains(t, body, `route="GET /delegations/{address}/chain"`)
}

// =============================================================================
// Setup Helpers
// =============================================================================

// createTestServer wires the production stack on top of backend
func createTestServer(t *testing.T, backend *evmtest.Backend) *httptest.Server {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics := evm.NewMetrics(reg)
	noRetry := evm.WithRetryPolicy(evm.RetryPolicy{})

	token, err := evm.NewToken(tokenAddress, backend, evm.WithMetrics(metrics), noRetry)
	require.NoError(t, err)
	roles, err := evm.NewAccessControl(accessAddress, backend, evm.WithMetrics(metrics), noRetry)
	require.NoError(t, err)

	power, err := cache.NewStore[common.Address, delegation.Power](16, time.Minute,
		cache.WithAdmission(delegation.Power.Settled),
	)
	require.NoError(t, err)
	sets, err := cache.NewStore[common.Address, capability.Set](16, time.Minute)
	require.NoError(t, err)

	testCfg := testcfg.New()
	log := logger.NewFromConfig(logger.Config{
		LogLevel:         testCfg.LogLevel,
		LogHumanFriendly: testCfg.LogHumanFriendly,
	})

	server := httptest.NewServer(web.NewHandler(web.Deps{
		Log:          log,
		Registry:     reg,
		Resolver:     delegation.NewAggregator(token),
		Power:        power,
		Capabilities: capability.NewResolver(roles),
		Sets:         sets,
	}))
	t.Cleanup(server.Close)

	return server
}

func addr(name string) common.Address {
	return common.BytesToAddress([]byte(name))
}

func hexes(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = addr(n).Hex()
	}
	return out
}

// =============================================================================
// Action Helpers
// =============================================================================

func get(t *testing.T, rawURL string) *http.Response {
	t.Helper()

	resp, err := send(t.Context(), rawURL)
	require.NoError(t, err, "HTTP request should succeed")

	return resp
}

// send issues a GET bound to ctx, safe to call off the test goroutine
func send(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}

func getCheck(t *testing.T, baseURL string, from, to common.Address) *http.Response {
	t.Helper()

	query := url.Values{}
	query.Set("from", from.Hex())
	query.Set("to", to.Hex())
	return get(t, baseURL+"/delegations/check?"+query.Encode())
}

// =============================================================================
// Assertions and Utilities
// =============================================================================

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "Unexpected status code")
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
}

func assertTimestamp(t *testing.T, value string) {
	t.Helper()
	_, err := time.Parse(time.RFC3339, value)
	assert.NoError(t, err, "Expected an RFC3339 timestamp, got %q", value)
}

func parseJSONResponse[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var result T
	err := json.NewDecoder(resp.Body).Decode(&result)
	require.NoError(t, err, "Response should be valid JSON")

	return result
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
