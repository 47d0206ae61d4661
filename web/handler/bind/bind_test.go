package bind_test

import (
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/daodelegate/capability"
	"github.com/screwyprof/daodelegate/delegation"
	"github.com/screwyprof/daodelegate/pkg/cache"
	"github.com/screwyprof/daodelegate/web/handler/bind"
)

const validAddress = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func chainRequest(address, query string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/delegations/"+address+"/chain"+query, nil)
	r.SetPathValue("address", address)
	return r
}

func TestChainRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		address   string
		query     string
		wantDepth int
		wantErr   []error
	}{
		{name: "defaults to the cap", address: validAddress, wantDepth: 10},
		{name: "honours a smaller depth", address: validAddress, query: "?max_depth=3", wantDepth: 3},
		{name: "clamps a larger depth", address: validAddress, query: "?max_depth=500", wantDepth: 10},
		{name: "accepts lowercase hex", address: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", wantDepth: 10},
		{name: "rejects short address", address: "0x1234", wantErr: []error{bind.ErrInvalidAddress}},
		{name: "rejects missing prefix", address: validAddress[2:], wantErr: []error{bind.ErrInvalidAddress}},
		{
			name: "rejects non-numeric depth", address: validAddress, query: "?max_depth=deep",
			wantErr: []error{bind.ErrInvalidMaxDepth, bind.ErrMaxDepthNotNumeric},
		},
		{
			name: "rejects zero depth", address: validAddress, query: "?max_depth=0",
			wantErr: []error{bind.ErrInvalidMaxDepth, bind.ErrMaxDepthNotPositive},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := bind.ChainRequest(chainRequest(tt.address, tt.query), 10)

			if len(tt.wantErr) > 0 {
				for _, want := range tt.wantErr {
					assert.ErrorIs(t, err, want)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, common.HexToAddress(validAddress), got.Address)
			assert.Equal(t, tt.wantDepth, got.MaxDepth)
		})
	}
}

func TestCheckRequest(t *testing.T) {
	t.Parallel()

	t.Run("it binds both ends", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/delegations/check?from="+validAddress+"&to=0x0000000000000000000000000000000000000001", nil)

		got, err := bind.CheckRequest(r)

		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(validAddress), got.From)
		assert.Equal(t, common.HexToAddress("0x01"), got.To)
	})

	t.Run("it treats a missing target as un-delegation", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/delegations/check?from="+validAddress, nil)

		got, err := bind.CheckRequest(r)

		require.NoError(t, err)
		assert.True(t, delegation.IsZero(got.To))
	})

	t.Run("it names the bad parameter", func(t *testing.T) {
		t.Parallel()

		_, fromErr := bind.CheckRequest(httptest.NewRequest(http.MethodGet, "/delegations/check", nil))
		_, toErr := bind.CheckRequest(httptest.NewRequest(http.MethodGet, "/delegations/check?from="+validAddress+"&to=0xzz", nil))

		assert.ErrorIs(t, fromErr, bind.ErrInvalidFrom)
		assert.ErrorIs(t, toErr, bind.ErrInvalidTo)
	})
}

func TestChainResponse(t *testing.T) {
	t.Parallel()

	a, b := common.HexToAddress("0x0a"), common.HexToAddress("0x0b")

	t.Run("it reports the cycle point only for cycles", func(t *testing.T) {
		t.Parallel()

		cyclic := bind.ChainResponse(delegation.Chain{Path: []common.Address{a, b, a}, Depth: 2, HasCycle: true, CycleIndex: 2}, delegation.WarningBlocked)
		plain := bind.ChainResponse(delegation.Chain{Path: []common.Address{a, b}, Depth: 1, CycleIndex: -1}, delegation.WarningNone)

		require.NotNil(t, cyclic.CycleIndex)
		assert.Equal(t, 2, *cyclic.CycleIndex)
		assert.Equal(t, "blocked", cyclic.Warning)
		assert.Nil(t, plain.CycleIndex)
		assert.Equal(t, a.Hex(), plain.Address)
	})

	t.Run("it hides the lookup failure detail", func(t *testing.T) {
		t.Parallel()

		chain := delegation.Chain{
			Path:       []common.Address{a},
			CycleIndex: -1,
			Err:        errors.New(`Post "https://rpc.example/key": timeout`),
		}

		got := bind.ChainResponse(chain, delegation.WarningNone)

		assert.True(t, got.Partial)
		assert.Equal(t, delegation.ErrLookupFailed.Error(), got.Error)
	})
}

func TestPowerResponse(t *testing.T) {
	t.Parallel()

	// Arrange
	target, delegator := common.HexToAddress("0x0c"), common.HexToAddress("0x0a")
	fetched := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	entry := cache.NewEntry(delegation.Power{
		Address:   target,
		Balance:   big.NewInt(5),
		Effective: big.NewInt(15),
		Direct: []delegation.Contribution{
			{Address: delegator, Balance: big.NewInt(10), Hops: 1, Via: target},
		},
	}, fetched, 30*time.Second)

	// Act
	got := bind.PowerResponse(entry)

	// Assert
	assert.Equal(t, "15", got.Effective)
	assert.Equal(t, "5", got.Balance)
	assert.Empty(t, got.Delegate)
	require.Len(t, got.Direct, 1)
	assert.Equal(t, "10", got.Direct[0].Balance)
	assert.NotNil(t, got.PassThrough)
	assert.NotNil(t, got.Missing)
	assert.Equal(t, "2025-01-02T03:04:05Z", got.FetchedAt)
	assert.Equal(t, "2025-01-02T03:04:35Z", got.ExpiresAt)
}

func TestCapabilitiesResponse(t *testing.T) {
	t.Parallel()

	addr := common.HexToAddress(validAddress)
	entry := cache.NewEntry(capability.Set{capability.Admin, capability.Cancel}, time.Unix(0, 0).UTC(), time.Minute)

	got := bind.CapabilitiesResponse(addr, entry)

	assert.Equal(t, []string{"admin", "cancel"}, got.Capabilities)
	assert.Equal(t, validAddress, got.Address)
}
