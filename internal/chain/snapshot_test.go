package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"liquidityCore/internal/amm"
	"liquidityCore/internal/fixedpoint"
	"liquidityCore/internal/model"
)

var (
	tokenLow  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenHigh = common.HexToAddress("0x9000000000000000000000000000000000000009")
	lpToken   = common.HexToAddress("0x5000000000000000000000000000000000000005")
	vault     = common.HexToAddress("0x7000000000000000000000000000000000000007")
)

type fakeToken struct {
	decimals uint8
	supply   *big.Int
	balances map[common.Address]*big.Int
}

type callArgs struct {
	To    *common.Address `json:"to"`
	Data  hexutil.Bytes   `json:"data"`
	Input hexutil.Bytes   `json:"input"`
}

type fakeEth struct {
	mu       sync.Mutex
	block    uint64
	tokens   map[common.Address]*fakeToken
	failures int
	calls    map[string]int
	blocks   []int64
}

func (f *fakeEth) BlockNumber(ctx context.Context) (hexutil.Uint64, error) {
	return hexutil.Uint64(f.block), nil
}

func (f *fakeEth) ChainId(ctx context.Context) (*hexutil.Big, error) {
	return (*hexutil.Big)(big.NewInt(31337)), nil
}

func (f *fakeEth) Call(ctx context.Context, args callArgs, block gethrpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data := args.Input
	if len(data) == 0 {
		data = args.Data
	}
	if args.To == nil || len(data) < 4 {
		return nil, fmt.Errorf("malformed call")
	}
	tokenABI, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	method, err := tokenABI.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	f.calls[method.Name]++
	if f.failures > 0 {
		f.failures--
		return nil, fmt.Errorf("upstream unavailable")
	}
	if number, ok := block.Number(); ok {
		f.blocks = append(f.blocks, number.Int64())
	}

	token, ok := f.tokens[*args.To]
	if !ok {
		return nil, fmt.Errorf("no contract at %s", args.To.Hex())
	}
	switch method.Name {
	case "decimals":
		return method.Outputs.Pack(token.decimals)
	case "totalSupply":
		return method.Outputs.Pack(token.supply)
	case "balanceOf":
		inputs, err := method.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, err
		}
		balance, ok := token.balances[inputs[0].(common.Address)]
		if !ok {
			balance = new(big.Int)
		}
		return method.Outputs.Pack(balance)
	}
	return nil, fmt.Errorf("unsupported method %s", method.Name)
}

func newFakeEth() *fakeEth {
	return &fakeEth{
		block: 1234,
		tokens: map[common.Address]*fakeToken{
			tokenLow: {
				decimals: 6,
				balances: map[common.Address]*big.Int{vault: big.NewInt(2_500_000_000)},
			},
			tokenHigh: {
				decimals: 18,
				balances: map[common.Address]*big.Int{vault: new(big.Int).Mul(big.NewInt(4), big.NewInt(1_000_000_000_000_000_000))},
			},
			lpToken: {
				decimals: 9,
				supply:   big.NewInt(3_162_277_660),
			},
		},
		calls: make(map[string]int),
	}
}

func newInprocClient(t *testing.T, fe *fakeEth) *Client {
	t.Helper()
	srv := gethrpc.NewServer()
	if err := srv.RegisterName("eth", fe); err != nil {
		t.Fatalf("register rpc service: %v", err)
	}
	client, err := newClient(gethrpc.DialInProc(srv))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
		srv.Stop()
	})
	return client
}

func TestSnapshotReaderRead(t *testing.T) {
	fe := newFakeEth()
	reader := NewSnapshotReader(newInprocClient(t, fe), RetryPolicy{}, nil)

	// Tokens given in descending order are canonicalized.
	got, err := reader.Read(context.Background(), PoolSource{TokenX: tokenHigh, TokenY: tokenLow, Vault: vault, LPToken: lpToken})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	want := model.PoolSnapshot{
		TokenA:     tokenLow,
		TokenB:     tokenHigh,
		ReserveA:   2_500_000_000,
		ReserveB:   4_000_000_000_000_000_000,
		DecimalsA:  6,
		DecimalsB:  18,
		LPSupply:   3_162_277_660,
		LPDecimals: 9,
	}
	if got.Snapshot != want {
		t.Fatalf("snapshot mismatch: %+v != %+v", got.Snapshot, want)
	}
	if got.BlockNumber != 1234 || got.State != model.Bootstrapped || got.Key.TokenA != tokenLow {
		t.Fatalf("unexpected chain snapshot: %+v", got)
	}
	for _, b := range fe.blocks {
		if b != 1234 {
			t.Fatalf("balance read at block %d, want 1234", b)
		}
	}

	if _, err := reader.Read(context.Background(), PoolSource{TokenX: tokenHigh, TokenY: tokenLow, Vault: vault, LPToken: lpToken}); err != nil {
		t.Fatalf("second read failed: %v", err)
	}
	if n := fe.calls["decimals"]; n != 3 {
		t.Fatalf("decimals should be cached, got %d calls", n)
	}
}

func TestClientChainID(t *testing.T) {
	client := newInprocClient(t, newFakeEth())
	id, err := client.ChainID(context.Background())
	if err != nil {
		t.Fatalf("chain id failed: %v", err)
	}
	if id.Int64() != 31337 {
		t.Fatalf("unexpected chain id %s", id)
	}
}

func TestSnapshotReaderRetries(t *testing.T) {
	fe := newFakeEth()
	fe.failures = 2
	reader := NewSnapshotReader(newInprocClient(t, fe), RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond}, nil)

	if _, err := reader.Read(context.Background(), PoolSource{TokenX: tokenLow, TokenY: tokenHigh, Vault: vault, LPToken: lpToken}); err != nil {
		t.Fatalf("read should succeed after retries: %v", err)
	}

	fe.failures = 3
	reader = NewSnapshotReader(newInprocClient(t, fe), RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond}, nil)
	if _, err := reader.Read(context.Background(), PoolSource{TokenX: tokenLow, TokenY: tokenHigh, Vault: vault, LPToken: lpToken}); err == nil {
		t.Fatalf("expected error once retries are exhausted")
	}
}

func TestSnapshotReaderRejectsOversizedBalance(t *testing.T) {
	fe := newFakeEth()
	fe.tokens[tokenHigh].balances[vault] = new(big.Int).Lsh(big.NewInt(1), 64)
	reader := NewSnapshotReader(newInprocClient(t, fe), RetryPolicy{MaxRetries: 3, Backoff: time.Millisecond}, nil)

	_, err := reader.Read(context.Background(), PoolSource{TokenX: tokenLow, TokenY: tokenHigh, Vault: vault, LPToken: lpToken})
	if !errors.Is(err, fixedpoint.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if n := fe.calls["balanceOf"]; n != 2 {
		t.Fatalf("overflow must not be retried, got %d balanceOf calls", n)
	}
}

func TestSnapshotReaderRejectsPartialPool(t *testing.T) {
	fe := newFakeEth()
	fe.tokens[lpToken].supply = new(big.Int)
	reader := NewSnapshotReader(newInprocClient(t, fe), RetryPolicy{}, nil)

	_, err := reader.Read(context.Background(), PoolSource{TokenX: tokenLow, TokenY: tokenHigh, Vault: vault, LPToken: lpToken})
	if !errors.Is(err, amm.ErrInvalidPoolState) {
		t.Fatalf("expected ErrInvalidPoolState, got %v", err)
	}
}

func TestDecimalsCache(t *testing.T) {
	cache := NewDecimalsCache()
	loads := 0
	load := func(context.Context, common.Address) (uint8, error) {
		loads++
		return 18, nil
	}
	for i := 0; i < 3; i++ {
		decimals, err := cache.Fetch(context.Background(), tokenLow, load)
		if err != nil || decimals != 18 {
			t.Fatalf("fetch failed: %d %v", decimals, err)
		}
	}
	if loads != 1 {
		t.Fatalf("expected one load, got %d", loads)
	}
}
