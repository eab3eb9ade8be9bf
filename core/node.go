package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"farmledger/core/events"
	"farmledger/core/genesis"
	"farmledger/core/state"
	"farmledger/core/types"
	"farmledger/native/common"
	"farmledger/native/farm"
	"farmledger/native/forwarder"
	"farmledger/native/token"
	"farmledger/observability/metrics"
	"farmledger/storage"
)

// PauseModule is the pause-switch key consulted by the farm engine.
const PauseModule = "farm"

var (
	heightKey  = []byte("node/height")
	genesisKey = []byte("node/genesis")

	// ErrNotBootstrapped is returned by operations issued before genesis was applied.
	ErrNotBootstrapped = errors.New("node: genesis not applied")
)

// Node is the central controller. It owns the persisted ledger state and the
// block clock, and executes every operation inside one state transaction at
// the current height. Operations are fully serialized.
type Node struct {
	mu         sync.Mutex
	db         storage.Database
	state      *state.Manager
	bus        *events.Bus
	pauses     *common.PauseSet
	moduleAddr [20]byte
	height     uint64
	ready      bool
	logger     *slog.Logger
	metrics    *metrics.FarmMetrics
	tracer     trace.Tracer
}

// NewNode opens the ledger persisted in db and restores the block height.
func NewNode(db storage.Database, logger *slog.Logger) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	n := &Node{
		db:         db,
		state:      state.NewManager(db),
		bus:        events.NewBus(),
		pauses:     common.NewPauseSet(nil),
		moduleAddr: farm.DefaultModuleAddress,
		logger:     logger.With("component", "node"),
		metrics:    metrics.Farm(),
		tracer:     otel.Tracer("farmledger/core"),
	}
	err := n.state.View(func(tx *state.Tx) error {
		var height uint64
		if _, err := tx.KVGet(heightKey, &height); err != nil {
			return err
		}
		var applied bool
		if _, err := tx.KVGet(genesisKey, &applied); err != nil {
			return err
		}
		n.height, n.ready = height, applied
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("node: restore state: %w", err)
	}
	n.metrics.SetBlockHeight(n.height)
	return n, nil
}

// Subscribe registers a downstream consumer of committed events.
func (n *Node) Subscribe(emitter events.Emitter) { n.bus.Subscribe(emitter) }

// Pauses exposes the operator pause switches.
func (n *Node) Pauses() *common.PauseSet { return n.pauses }

// ModuleAddress returns the farm custody account.
func (n *Node) ModuleAddress() [20]byte { return n.moduleAddr }

// Bootstrapped reports whether a genesis document has been applied.
func (n *Node) Bootstrapped() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ready
}

// ApplyGenesis writes the genesis document into an empty ledger. Calling it on a bootstrapped
// ledger is a no-op that returns false.
func (n *Node) ApplyGenesis(spec *genesis.GenesisSpec) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ready {
		return false, nil
	}
	buffer := &events.Buffer{}
	err := n.state.Update(func(tx *state.Tx) error {
		if err := genesis.Apply(tx, spec, n.moduleAddr, buffer); err != nil {
			return err
		}
		if err := tx.KVPut(heightKey, spec.StartHeight); err != nil {
			return err
		}
		return tx.KVPut(genesisKey, true)
	})
	if err != nil {
		return false, err
	}
	n.height, n.ready = spec.StartHeight, true
	stampHeight(buffer, n.height)
	buffer.Flush(n.bus)
	n.metrics.SetBlockHeight(n.height)
	n.logger.Info("genesis applied", "height", n.height, "pools", len(spec.Pools)+1)
	return true, nil
}

// Close releases the underlying database.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.db.Close()
}

// Height returns the current block height.
func (n *Node) Height() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.height
}

// AdvanceBlock moves the ledger clock forward by one block and persists it.
func (n *Node) AdvanceBlock() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	next := n.height + 1
	if err := n.state.Update(func(tx *state.Tx) error { return tx.KVPut(heightKey, next) }); err != nil {
		return n.height, err
	}
	n.height = next
	n.metrics.SetBlockHeight(next)
	return next, nil
}

// Run advances the block clock every interval until ctx is cancelled.
func (n *Node) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("node: block interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := n.AdvanceBlock(); err != nil {
				n.logger.Error("advance block", "error", err)
			}
		}
	}
}

// execution bundles the per-operation engines bound to one transaction.
type execution struct {
	tx     *state.Tx
	ledger *token.Ledger
	farm   *farm.Engine
	buffer *events.Buffer
}

func (n *Node) newExecution(tx *state.Tx, buffer events.Emitter) *execution {
	ledger := token.NewLedger(tx)
	ledger.SetEmitter(buffer)
	engine := farm.NewEngine(n.moduleAddr)
	engine.SetState(tx)
	engine.SetTokenLedger(ledger)
	engine.SetEmitter(buffer)
	engine.SetPauses(n.pauses)
	engine.SetBlockHeight(n.height)
	x := &execution{tx: tx, ledger: ledger, farm: engine}
	if b, ok := buffer.(*events.Buffer); ok {
		x.buffer = b
	}
	return x
}

func (x *execution) forwarder(account [20]byte) (*forwarder.Forwarder, error) {
	params, err := x.farm.Params()
	if err != nil {
		return nil, err
	}
	f := forwarder.New(x.tx, x.ledger, account, params.RewardAsset)
	if x.buffer != nil {
		f.SetEmitter(x.buffer)
	}
	return f, nil
}

// execute runs fn inside a fresh transaction. State writes and events are
// published only when fn succeeds; otherwise nothing is kept.
func (n *Node) execute(op string, fn func(x *execution) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.ready {
		return ErrNotBootstrapped
	}
	_, span := n.tracer.Start(context.Background(), "farm."+op, trace.WithAttributes(
		attribute.String("farm.operation", op),
		attribute.Int64("farm.height", int64(n.height)),
	))
	defer span.End()
	buffer := &events.Buffer{}
	var params *farm.Params
	var pools uint64
	err := n.state.Update(func(tx *state.Tx) error {
		x := n.newExecution(tx, buffer)
		if err := fn(x); err != nil {
			return err
		}
		params, _ = x.farm.Params()
		pools, _ = x.farm.PoolCount()
		return nil
	})
	n.metrics.ObserveOperation(op, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, farm.ErrInvariantViolation) {
			n.logger.Error("operation aborted", "op", op, "height", n.height, "error", err)
		} else {
			n.logger.Warn("operation rejected", "op", op, "height", n.height, "error", err)
		}
		return err
	}
	for _, evt := range stampHeight(buffer, n.height) {
		if evt.Type == farm.EventTypePayoutShortfall {
			n.metrics.RecordShortfall(evt.Attributes["pool"])
		}
	}
	buffer.Flush(n.bus)
	if params != nil {
		n.metrics.SetTotalMinted(params.TotalMinted)
	}
	n.metrics.SetPoolCount(pools)
	n.logger.Info("operation committed", "op", op, "height", n.height)
	return nil
}

// view runs a read-only fn against the committed state at the current height.
func (n *Node) view(fn func(x *execution) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.ready {
		return ErrNotBootstrapped
	}
	return n.state.View(func(tx *state.Tx) error {
		return fn(n.newExecution(tx, events.NoopEmitter{}))
	})
}

// stampHeight records the committing height on every buffered payload and
// returns the payloads.
func stampHeight(buffer *events.Buffer, height uint64) []*types.Event {
	pending := buffer.Events()
	out := make([]*types.Event, 0, len(pending))
	for _, evt := range pending {
		payload, ok := evt.(interface{ Event() *types.Event })
		if !ok || payload.Event() == nil {
			continue
		}
		raw := payload.Event()
		if raw.Attributes == nil {
			raw.Attributes = map[string]string{}
		}
		if _, exists := raw.Attributes["height"]; !exists {
			raw.Attributes["height"] = strconv.FormatUint(height, 10)
		}
		out = append(out, raw)
	}
	return out
}
