package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/dex"
	"swapEngine/internal/model"
)

// fakePool backs the pair-contract reads for one deployed pair.
type fakePool struct {
	token0      common.Address
	token1      common.Address
	reserve0    *big.Int
	reserve1    *big.Int
	totalSupply *big.Int
	balance     *big.Int
}

type writeCall struct {
	to     common.Address
	method string
	value  *big.Int
	args   []interface{}
}

// fakeChain serves both the read surface the dex layer uses and the write
// surface the orchestrators use. Tests mutate its fields between steps to
// simulate chain state changing underneath the engine.
type fakeChain struct {
	pairAddress common.Address
	pools       map[common.Address]*fakePool
	tokens      map[common.Address]model.Token
	allowances  map[common.Address]*big.Int
	pairList    []common.Address

	writes        []writeCall
	writeErr      error
	receiptStatus uint64
	receiptErr    error
	hashCounter   int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		pools:         make(map[common.Address]*fakePool),
		tokens:        make(map[common.Address]model.Token),
		allowances:    make(map[common.Address]*big.Int),
		receiptStatus: 1,
	}
}

func (f *fakeChain) ReadContract(_ context.Context, to common.Address, _ abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	switch method {
	case "getPair":
		return []interface{}{f.pairAddress}, nil
	case "allPairsLength":
		return []interface{}{big.NewInt(int64(len(f.pairList)))}, nil
	case "allPairs":
		index := args[0].(*big.Int).Int64()
		return []interface{}{f.pairList[index]}, nil
	case "allowance":
		allowance, ok := f.allowances[to]
		if !ok {
			return nil, fmt.Errorf("allowance read failed for %s", to.Hex())
		}
		return []interface{}{new(big.Int).Set(allowance)}, nil
	case "decimals":
		return []interface{}{f.tokens[to].Decimals}, nil
	case "symbol":
		return []interface{}{f.tokens[to].Symbol}, nil
	case "name":
		return []interface{}{f.tokens[to].Name}, nil
	}

	pool, ok := f.pools[to]
	if !ok {
		return nil, fmt.Errorf("no pool at %s for %s", to.Hex(), method)
	}
	switch method {
	case "token0":
		return []interface{}{pool.token0}, nil
	case "token1":
		return []interface{}{pool.token1}, nil
	case "getReserves":
		return []interface{}{pool.reserve0, pool.reserve1, uint32(0)}, nil
	case "totalSupply":
		return []interface{}{pool.totalSupply}, nil
	case "balanceOf":
		return []interface{}{pool.balance}, nil
	default:
		return nil, fmt.Errorf("unexpected method %s", method)
	}
}

func (f *fakeChain) WriteContract(_ context.Context, to common.Address, _ abi.ABI, method string, value *big.Int, args ...interface{}) (common.Hash, error) {
	if f.writeErr != nil {
		return common.Hash{}, f.writeErr
	}
	f.writes = append(f.writes, writeCall{to: to, method: method, value: value, args: args})
	f.hashCounter++
	return common.BigToHash(big.NewInt(int64(f.hashCounter))), nil
}

func (f *fakeChain) WaitForReceipt(_ context.Context, _ common.Hash) (uint64, error) {
	return f.receiptStatus, f.receiptErr
}

func (f *fakeChain) lastWrite() writeCall {
	return f.writes[len(f.writes)-1]
}

// fakeActivity captures every recorded transaction state.
type fakeActivity struct {
	records []model.PendingTx
}

func (f *fakeActivity) PutTxBatch(txs []model.PendingTx) error {
	f.records = append(f.records, txs...)
	return nil
}

var (
	testFactory = common.HexToAddress("0x00000000000000000000000000000000000000F0")
	testRouter  = common.HexToAddress("0x00000000000000000000000000000000000000F1")
	testWrapped = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	testAccount = common.HexToAddress("0x9999999999999999999999999999999999999999")
	testPair    = common.HexToAddress("0x3333333333333333333333333333333333333333")

	// zero-decimal tokens keep the arithmetic in the tests legible
	tokenA      = model.Token{Address: common.HexToAddress("0x1111111111111111111111111111111111111111"), Symbol: "ALPHA", Decimals: 0}
	tokenB      = model.Token{Address: common.HexToAddress("0x2222222222222222222222222222222222222222"), Symbol: "BETA", Decimals: 0}
	tokenNative = model.Token{Address: model.NativeAddress, Symbol: "MON", Decimals: 0}
)

func testContracts() Contracts {
	return Contracts{Factory: testFactory, Router: testRouter, WrappedNative: testWrapped}
}

func testSettings() Settings {
	return Settings{SlippageBps: 50, DeadlineMinutes: 20, MaxRetries: 1, RetryBackoff: time.Millisecond}
}

func testTracker(chain *fakeChain) *dex.Tracker {
	return dex.NewTracker(chain, 2, time.Millisecond, nil)
}

func testOracle(chain *fakeChain) *dex.Oracle {
	return dex.NewOracle(chain, testFactory, testWrapped, nil)
}

// seedPool wires a live pair with the given reserves into the fake chain.
func seedPool(chain *fakeChain, reserve0, reserve1, totalSupply int64) {
	chain.pairAddress = testPair
	chain.pools[testPair] = &fakePool{
		token0:      tokenA.Address,
		token1:      tokenB.Address,
		reserve0:    big.NewInt(reserve0),
		reserve1:    big.NewInt(reserve1),
		totalSupply: big.NewInt(totalSupply),
		balance:     new(big.Int),
	}
}
