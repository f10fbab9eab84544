package contract

import (
	"context"
	"errors"
	"math/big"

	"github.com/dop251/goja"

	"github.com/chainforge/chainstate/foundation/blockchain/database"
)

// hostCallCost is the gas every metered host call deducts before it
// performs its effect. Gas is never tracked by wall-clock or goroutine
// scheduling — only by counting explicit calls the script makes into this
// binding — so two honest nodes executing the same code against the same
// overlay always consume identical gas.
const hostCallCost = 1

// JSRuntime implements Runtime by treating a contract's code body as
// JavaScript source executed against a small, gas-metered host binding.
type JSRuntime struct{}

// NewJSRuntime constructs a JSRuntime for use.
func NewJSRuntime() *JSRuntime {
	return &JSRuntime{}
}

// Run implements Runtime.
func (JSRuntime) Run(ctx context.Context, req Request) (Result, error) {
	vm := goja.New()

	gasRemaining := new(big.Int).Set(req.GasBudget)
	if gasRemaining.Sign() < 0 {
		gasRemaining.SetInt64(0)
	}

	h := &host{
		vm:           vm,
		req:          req,
		gasRemaining: gasRemaining,
		newStates:    map[database.Address]database.Account{},
		newStorage:   copyStorage(req.CurrentStorage),
		contractAddr: req.ContractAddress,
		log:          req.Logging,
	}

	if self, ok := req.StatesOverlay[req.ContractAddress]; ok {
		h.newStates[req.ContractAddress] = self.Copy()
	}

	h.bind()

	_, err := vm.RunString(req.Code)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			h.logf("RUNTIME_ERROR: gas exhausted, returning partial effects")
			return h.result(), nil
		}

		h.logf("RUNTIME_ERROR: %v", err)
		return Result{}, nil
	}

	return h.result(), nil
}

func (h *host) result() Result {
	return Result{
		NewStates:  h.newStates,
		NewStorage: h.newStorage,
	}
}

func copyStorage(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// =============================================================================

// host is the per-invocation binding surface exposed to the script.
type host struct {
	vm           *goja.Runtime
	req          Request
	gasRemaining *big.Int
	newStates    map[database.Address]database.Account
	newStorage   map[string]string
	contractAddr database.Address
	log          func(v string, args ...any)
}

func (h *host) logf(format string, args ...any) {
	if h.log != nil {
		h.log(format, args...)
	}
}

// spend deducts n gas units, interrupting the VM once the budget is
// exhausted. Every other host call except chain.log spends hostCallCost on
// top of whatever the script spends explicitly.
func (h *host) spend(n int64) {
	h.gasRemaining.Sub(h.gasRemaining, big.NewInt(n))
	if h.gasRemaining.Sign() < 0 {
		h.vm.Interrupt("gas exhausted")
	}
}

func (h *host) meteredCall() {
	h.spend(hostCallCost)
}

func (h *host) self() database.Account {
	if acct, ok := h.newStates[h.contractAddr]; ok {
		return acct
	}
	return database.NewAccount(h.contractAddr)
}

// bind installs the chain object and spend() into the VM's global scope.
func (h *host) bind() {
	vm := h.vm

	mustSet := func(obj *goja.Object, name string, fn func(goja.FunctionCall) goja.Value) {
		if err := obj.Set(name, fn); err != nil {
			panic(err)
		}
	}

	chainObj := vm.NewObject()

	mustSet(chainObj, "spend", func(call goja.FunctionCall) goja.Value {
		units := call.Argument(0).ToInteger()
		h.spend(units)
		return goja.Undefined()
	})

	mustSet(chainObj, "get", func(call goja.FunctionCall) goja.Value {
		h.meteredCall()
		key := call.Argument(0).String()
		if v, ok := h.newStorage[key]; ok {
			return vm.ToValue(v)
		}
		return goja.Undefined()
	})

	mustSet(chainObj, "set", func(call goja.FunctionCall) goja.Value {
		h.meteredCall()
		key := call.Argument(0).String()
		value := call.Argument(1).String()
		h.newStorage[key] = value
		return goja.Undefined()
	})

	mustSet(chainObj, "balance", func(call goja.FunctionCall) goja.Value {
		h.meteredCall()
		addr := database.Address(call.Argument(0).String())
		if acct, ok := h.newStates[addr]; ok {
			return vm.ToValue(acct.Balance.String())
		}
		if acct, ok := h.req.StatesOverlay[addr]; ok {
			return vm.ToValue(acct.Balance.String())
		}
		return vm.ToValue("0")
	})

	mustSet(chainObj, "pay", func(call goja.FunctionCall) goja.Value {
		h.meteredCall()
		addr := database.Address(call.Argument(0).String())
		amountStr := call.Argument(1).String()

		amount, ok := new(big.Int).SetString(amountStr, 10)
		if !ok || amount.Sign() < 0 {
			return vm.ToValue(false)
		}

		self := h.self()
		if self.Balance.Cmp(amount) < 0 {
			return vm.ToValue(false)
		}

		self.Balance = new(big.Int).Sub(self.Balance, amount)
		h.newStates[h.contractAddr] = self

		recipient, ok := h.newStates[addr]
		if !ok {
			if existing, ok := h.req.StatesOverlay[addr]; ok {
				recipient = existing.Copy()
			} else {
				recipient = database.NewAccount(addr)
			}
		}
		recipient.Balance = new(big.Int).Add(recipient.Balance, amount)
		h.newStates[addr] = recipient

		return vm.ToValue(true)
	})

	mustSet(chainObj, "log", func(call goja.FunctionCall) goja.Value {
		h.logf("contract[%s]: %s", h.contractAddr, call.Argument(0).String())
		return goja.Undefined()
	})

	self := h.self()

	selfObj := vm.NewObject()
	_ = selfObj.Set("address", string(h.contractAddr))
	_ = selfObj.Set("balance", self.Balance.String())
	_ = selfObj.Set("codeHash", self.CodeHash)

	txObj := vm.NewObject()
	_ = txObj.Set("sender", string(h.req.Sender))
	_ = txObj.Set("amount", bigStringOrZero(h.req.Tx.Amount))
	_ = txObj.Set("nonce", h.req.Tx.Nonce)

	blockObj := vm.NewObject()
	_ = blockObj.Set("number", h.req.Block.BlockNumber)
	_ = blockObj.Set("timestamp", h.req.Block.TimeStamp)
	_ = blockObj.Set("coinbase", string(h.req.Block.Coinbase))

	_ = vm.Set("chain", chainObj)
	_ = vm.Set("self", selfObj)
	_ = vm.Set("tx", txObj)
	_ = vm.Set("block", blockObj)
	_ = vm.Set("spend", func(call goja.FunctionCall) goja.Value {
		h.spend(call.Argument(0).ToInteger())
		return goja.Undefined()
	})
}

func bigStringOrZero(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}
