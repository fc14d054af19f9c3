package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRPC is an RPC handle bound to one endpoint
type fakeRPC struct {
	url      string
	lamports uint64
	supply   *rpc.UiTokenAmount
	err      error
}

func (f *fakeRPC) GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &rpc.GetBalanceResult{Value: f.lamports}, nil
}

func (f *fakeRPC) GetTokenSupply(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &rpc.GetTokenSupplyResult{Value: f.supply}, nil
}

type recordingDialer struct {
	mu    sync.Mutex
	dials []string
}

func (d *recordingDialer) dial(url string) RPC {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, url)
	return &fakeRPC{url: url}
}

func urlOf(h RPC) string {
	return h.(*fakeRPC).url
}

func TestPool_LazyFillCyclesEndpoints(t *testing.T) {
	d := &recordingDialer{}
	p := NewPool([]string{"a", "b"}, 5, "fb", d.dial)
	assert.Equal(t, 0, p.Len())

	var got []string
	for i := 0; i < 5; i++ {
		got = append(got, urlOf(p.Get()))
	}
	assert.Equal(t, []string{"a", "b", "a", "b", "a"}, got)
	assert.Equal(t, 5, p.Len())

	// full: round robin over existing handles, no new dials
	first := p.Get()
	for i := 0; i < 4; i++ {
		p.Get()
	}
	assert.Same(t, first, p.Get())
	assert.Len(t, d.dials, 5)
}

func TestPool_Defaults(t *testing.T) {
	d := &recordingDialer{}
	p := NewPool(nil, 0, "", d.dial)

	assert.Equal(t, DefaultFallbackRPCURL, urlOf(p.Get()))
	assert.Equal(t, DefaultFallbackRPCURL, urlOf(p.Fallback()))
	assert.Same(t, p.Fallback(), p.Fallback())
	assert.Equal(t, DefaultPoolSize, p.size)
}

func TestPool_ConcurrentGet(t *testing.T) {
	d := &recordingDialer{}
	p := NewPool([]string{"a", "b", "c"}, 3, "fb", d.dial)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Get()
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, p.Len())
	assert.ElementsMatch(t, []string{"a", "b", "c"}, d.dials)
}

func TestGetSOLBalance(t *testing.T) {
	ctx := context.Background()
	addr := randomAddress(t)

	sol, err := GetSOLBalance(ctx, &fakeRPC{lamports: 2_500_000_000}, addr)
	require.NoError(t, err)
	assert.Equal(t, 2.5, sol)

	_, err = GetSOLBalance(ctx, &fakeRPC{err: errors.New("boom")}, addr)
	assert.Error(t, err)

	_, err = GetSOLBalance(ctx, &fakeRPC{}, "not-an-address")
	assert.Error(t, err)
}

func TestGetTokenInfo(t *testing.T) {
	mint := randomAddress(t)
	info, err := GetTokenInfo(context.Background(), &fakeRPC{
		supply: &rpc.UiTokenAmount{Amount: "1000000000000", Decimals: 6},
	}, mint)
	require.NoError(t, err)
	assert.Equal(t, mint, info.Address)
	assert.Equal(t, uint8(6), info.Decimals)
	assert.Equal(t, 1_000_000.0, info.Supply)

	_, err = GetTokenInfo(context.Background(), &fakeRPC{}, mint)
	assert.Error(t, err)
}

func randomAddress(t *testing.T) string {
	t.Helper()
	pk, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return pk.PublicKey().String()
}
