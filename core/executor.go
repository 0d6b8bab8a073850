package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bondcurve/core/events"
	"bondcurve/core/state"
	"bondcurve/native/bonding"
	"bondcurve/native/common"
	"bondcurve/native/token"
	"bondcurve/observability"
	"bondcurve/storage"
	"bondcurve/storage/audit"
)

// AuditSink receives a record for every committed call.
type AuditSink interface {
	Append(ctx context.Context, rec *audit.Record) error
}

// Executor serialises engine calls over one database. Each call runs on a
// fresh state overlay that is committed as a single batch on success and
// dropped on error, so a rejected call leaves no trace in state or events.
type Executor struct {
	mu          sync.RWMutex
	db          storage.Database
	contract    string
	protocolFee uint64
	validate    func(string) error
	emitter     events.Emitter
	audit       AuditSink
	logger      *slog.Logger
	metrics     *observability.SettlementMetrics
	tracer      trace.Tracer
	clock       func() time.Time
}

// Option adjusts executor construction.
type Option func(*options)

type options struct {
	allowMigrate bool
}

// WithAllowMigrate tolerates a stored schema version that differs from the
// binary's so operators can run manual migrations.
func WithAllowMigrate() Option {
	return func(o *options) { o.allowMigrate = true }
}

// NewExecutor stamps or verifies the state schema version and returns an
// executor acting as contract.
func NewExecutor(db storage.Database, contract string, opts ...Option) (*Executor, error) {
	if db == nil {
		return nil, fmt.Errorf("executor: database must not be nil")
	}
	if contract == "" {
		return nil, fmt.Errorf("executor: contract address required")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := state.EnsureStateVersion(db, o.allowMigrate); err != nil {
		return nil, err
	}
	return &Executor{
		db:          db,
		contract:    contract,
		protocolFee: bonding.DefaultProtocolFee,
		emitter:     events.NoopEmitter{},
		logger:      slog.Default(),
		metrics:     observability.Settlements(),
		tracer:      otel.Tracer("bondcurve/core"),
		clock:       time.Now,
	}, nil
}

// SetProtocolFee sets the per-mille buy fee applied by every engine.
func (x *Executor) SetProtocolFee(permille uint64) error {
	if permille > 1000 {
		return fmt.Errorf("%w: %d", bonding.ErrInvalidProtocolFee, permille)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.protocolFee = permille
	return nil
}

// SetEmitter configures where committed events are published.
func (x *Executor) SetEmitter(emitter events.Emitter) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	x.emitter = emitter
}

// SetAudit configures the audit sink. A nil sink disables auditing.
func (x *Executor) SetAudit(sink AuditSink) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.audit = sink
}

func (x *Executor) SetLogger(logger *slog.Logger) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if logger == nil {
		logger = slog.Default()
	}
	x.logger = logger
}

// SetAddressValidator overrides address checks in the engine and ledger.
func (x *Executor) SetAddressValidator(fn func(string) error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.validate = fn
}

// Contract returns the address the engine mints as.
func (x *Executor) Contract() string { return x.contract }

func (x *Executor) wire(manager *state.Manager, emitter events.Emitter) (*bonding.Engine, *token.Ledger) {
	ledger := token.NewLedger(manager)
	engine := bonding.NewEngine(x.contract)
	engine.SetState(manager)
	engine.SetLedger(ledger)
	engine.SetEmitter(emitter)
	// The fee was range checked when it was set.
	_ = engine.SetProtocolFee(x.protocolFee)
	if x.validate != nil {
		engine.SetAddressValidator(x.validate)
		ledger.SetAddressValidator(x.validate)
	}
	return engine, ledger
}

type callFunc func(engine *bonding.Engine, ledger *token.Ledger) (*bonding.Response, error)

func (x *Executor) execute(ctx context.Context, action, sender string, call callFunc) (*bonding.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := x.tracer.Start(ctx, "bonding."+action,
		trace.WithAttributes(attribute.String("bonding.sender", sender)))
	defer span.End()

	x.mu.Lock()
	defer x.mu.Unlock()
	start := x.clock()

	manager := state.NewManager(x.db)
	buffer := &events.Buffer{}
	engine, ledger := x.wire(manager, buffer)

	resp, err := call(engine, ledger)
	if err == nil {
		err = manager.Commit()
	}
	if err != nil {
		manager.Discard()
		buffer.Reset()
		category := bonding.Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		x.metrics.Observe(action, string(category), x.clock().Sub(start))
		x.logger.Warn("bonding call rejected",
			slog.String("action", action),
			slog.String("sender", sender),
			slog.String("category", string(category)),
			slog.Any("error", err))
		return nil, err
	}

	for _, evt := range buffer.Events() {
		observability.Events().RecordEvent(evt.EventType())
	}
	buffer.Flush(x.emitter)
	x.record(ctx, action, sender, resp, engine)
	x.metrics.Observe(action, "", x.clock().Sub(start))
	x.logger.Info("bonding call settled",
		slog.String("action", action),
		slog.String("sender", sender),
		slog.Int("transfers", len(resp.Transfers)))
	return resp, nil
}

// record publishes metrics and the audit entry for a committed call. Failures
// here are logged; the call itself has already been committed.
func (x *Executor) record(ctx context.Context, action, sender string, resp *bonding.Response, engine *bonding.Engine) {
	rec := &audit.Record{Action: action, Sender: sender}
	if resp.Buy != nil && resp.Buy.Minted != nil {
		x.metrics.RecordMint(resp.Buy.Minted.ToBig())
		rec.Minted = resp.Buy.Minted.Dec()
	}
	if resp.Sell != nil && resp.Sell.Burned != nil {
		x.metrics.RecordBurn(resp.Sell.Burned.ToBig())
		rec.Burned = resp.Sell.Burned.Dec()
	}
	if cs, err := engine.CurveState(); err == nil {
		x.metrics.SetCurve(cs.Reserve.ToBig(), cs.Supply.ToBig(), cs.TaxCollected.ToBig())
		rec.Reserve = cs.Reserve.Dec()
		rec.Supply = cs.Supply.Dec()
	}
	if x.audit == nil {
		return
	}
	pairs := make([][2]string, 0, len(resp.Attributes))
	for _, attr := range resp.Attributes {
		pairs = append(pairs, [2]string{attr.Key, attr.Value})
	}
	if err := rec.SetAttributes(pairs); err != nil {
		x.logger.Error("audit encode failed", slog.String("action", action), slog.Any("error", err))
		return
	}
	if err := x.audit.Append(ctx, rec); err != nil {
		x.logger.Error("audit append failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (x *Executor) query(ctx context.Context, name string, fn func(engine *bonding.Engine, ledger *token.Ledger) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, span := x.tracer.Start(ctx, "bonding.query."+name)
	defer span.End()

	x.mu.RLock()
	defer x.mu.RUnlock()
	manager := state.NewReadOnlyManager(x.db)
	engine, ledger := x.wire(manager, events.NoopEmitter{})
	if err := fn(engine, ledger); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Instantiate sets up the curve, token and default policy records.
func (x *Executor) Instantiate(ctx context.Context, info bonding.MessageInfo, msg bonding.InstantiateMsg) (*bonding.Response, error) {
	return x.execute(ctx, "instantiate", info.Sender, func(engine *bonding.Engine, _ *token.Ledger) (*bonding.Response, error) {
		return engine.Instantiate(info, msg)
	})
}

func (x *Executor) Buy(ctx context.Context, info bonding.MessageInfo, affiliate string) (*bonding.Response, error) {
	return x.execute(ctx, "buy", info.Sender, func(engine *bonding.Engine, _ *token.Ledger) (*bonding.Response, error) {
		return engine.Buy(info, affiliate)
	})
}

func (x *Executor) Sell(ctx context.Context, info bonding.MessageInfo, amount *uint256.Int) (*bonding.Response, error) {
	return x.execute(ctx, "burn", info.Sender, func(engine *bonding.Engine, _ *token.Ledger) (*bonding.Response, error) {
		return engine.Sell(info, amount)
	})
}

func (x *Executor) SellFrom(ctx context.Context, info bonding.MessageInfo, owner string, amount *uint256.Int) (*bonding.Response, error) {
	return x.execute(ctx, "burn_from", info.Sender, func(engine *bonding.Engine, _ *token.Ledger) (*bonding.Response, error) {
		return engine.SellFrom(info, owner, amount)
	})
}

func (x *Executor) UpdateParamConfig(ctx context.Context, info bonding.MessageInfo, cfg bonding.ParamConfig) (*bonding.Response, error) {
	return x.execute(ctx, "update_param_config", info.Sender, func(engine *bonding.Engine, _ *token.Ledger) (*bonding.Response, error) {
		return engine.UpdateParamConfig(info, cfg)
	})
}

func (x *Executor) UpdateAcctConfig(ctx context.Context, info bonding.MessageInfo, routing bonding.AcctRouting) (*bonding.Response, error) {
	return x.execute(ctx, "update_acct_config", info.Sender, func(engine *bonding.Engine, _ *token.Ledger) (*bonding.Response, error) {
		return engine.UpdateAcctConfig(info, routing)
	})
}

func (x *Executor) UpdateDexferConfig(ctx context.Context, info bonding.MessageInfo, cfg bonding.DexferConfig) (*bonding.Response, error) {
	return x.execute(ctx, "update_dexfer_config", info.Sender, func(engine *bonding.Engine, _ *token.Ledger) (*bonding.Response, error) {
		return engine.UpdateDexferConfig(info, cfg)
	})
}

func (x *Executor) UpdateSafetyConfig(ctx context.Context, info bonding.MessageInfo, cfg bonding.SafetyConfig) (*bonding.Response, error) {
	return x.execute(ctx, "update_safety_config", info.Sender, func(engine *bonding.Engine, _ *token.Ledger) (*bonding.Response, error) {
		return engine.UpdateSafetyConfig(info, cfg)
	})
}

// UpdateMinter reassigns or, with a nil minter, permanently clears the
// token minter.
func (x *Executor) UpdateMinter(ctx context.Context, info bonding.MessageInfo, minter *string) (*bonding.Response, error) {
	return x.execute(ctx, "update_minter", info.Sender, func(engine *bonding.Engine, _ *token.Ledger) (*bonding.Response, error) {
		return engine.UpdateMinter(info, minter)
	})
}

// Transfer moves supply tokens between holders.
func (x *Executor) Transfer(ctx context.Context, info bonding.MessageInfo, recipient string, amount *uint256.Int) (*bonding.Response, error) {
	return x.execute(ctx, "transfer", info.Sender, func(_ *bonding.Engine, ledger *token.Ledger) (*bonding.Response, error) {
		if err := bonding.Nonpayable(info); err != nil {
			return nil, err
		}
		if err := ledger.Transfer(info.Sender, recipient, amount); err != nil {
			return nil, err
		}
		return ledgerResponse("transfer", info.Sender, recipient, amount), nil
	})
}

// IncreaseAllowance lets spender burn up to amount more of the caller's
// tokens through SellFrom.
func (x *Executor) IncreaseAllowance(ctx context.Context, info bonding.MessageInfo, spender string, amount *uint256.Int) (*bonding.Response, error) {
	return x.execute(ctx, "increase_allowance", info.Sender, func(_ *bonding.Engine, ledger *token.Ledger) (*bonding.Response, error) {
		if err := bonding.Nonpayable(info); err != nil {
			return nil, err
		}
		if _, err := ledger.IncreaseAllowance(info.Sender, spender, amount); err != nil {
			return nil, err
		}
		return ledgerResponse("increase_allowance", info.Sender, spender, amount), nil
	})
}

func (x *Executor) DecreaseAllowance(ctx context.Context, info bonding.MessageInfo, spender string, amount *uint256.Int) (*bonding.Response, error) {
	return x.execute(ctx, "decrease_allowance", info.Sender, func(_ *bonding.Engine, ledger *token.Ledger) (*bonding.Response, error) {
		if err := bonding.Nonpayable(info); err != nil {
			return nil, err
		}
		if _, err := ledger.DecreaseAllowance(info.Sender, spender, amount); err != nil {
			return nil, err
		}
		return ledgerResponse("decrease_allowance", info.Sender, spender, amount), nil
	})
}

func ledgerResponse(action, from, to string, amount *uint256.Int) *bonding.Response {
	return &bonding.Response{
		Action: action,
		Attributes: []bonding.Attribute{
			{Key: "action", Value: action},
			{Key: "from", Value: from},
			{Key: "to", Value: to},
			{Key: "amount", Value: common.Copy(amount).Dec()},
		},
	}
}

// CurveInfo reports reserve, supply, spot price and lifetime tax.
func (x *Executor) CurveInfo(ctx context.Context) (*bonding.CurveInfo, error) {
	var out *bonding.CurveInfo
	err := x.query(ctx, "curve_info", func(engine *bonding.Engine, _ *token.Ledger) error {
		info, err := engine.CurveInfo()
		out = info
		return err
	})
	return out, err
}

func (x *Executor) ParamConfig(ctx context.Context) (bonding.ParamConfig, error) {
	var out bonding.ParamConfig
	err := x.query(ctx, "param_config", func(engine *bonding.Engine, _ *token.Ledger) error {
		cfg, err := engine.ParamInfo()
		out = cfg
		return err
	})
	return out, err
}

func (x *Executor) AcctConfig(ctx context.Context) (bonding.AcctConfig, error) {
	var out bonding.AcctConfig
	err := x.query(ctx, "acct_config", func(engine *bonding.Engine, _ *token.Ledger) error {
		cfg, err := engine.AcctInfo()
		out = cfg
		return err
	})
	return out, err
}

func (x *Executor) DexferConfig(ctx context.Context) (bonding.DexferConfig, error) {
	var out bonding.DexferConfig
	err := x.query(ctx, "dexfer_config", func(engine *bonding.Engine, _ *token.Ledger) error {
		cfg, err := engine.DexferInfo()
		out = cfg
		return err
	})
	return out, err
}

func (x *Executor) SafetyConfig(ctx context.Context) (bonding.SafetyConfig, error) {
	var out bonding.SafetyConfig
	err := x.query(ctx, "safety_config", func(engine *bonding.Engine, _ *token.Ledger) error {
		cfg, err := engine.SafetyInfo()
		out = cfg
		return err
	})
	return out, err
}

// Quote estimates the supply a curve-mode buy would mint.
func (x *Executor) Quote(ctx context.Context, payment *uint256.Int) (*uint256.Int, error) {
	var out *uint256.Int
	err := x.query(ctx, "quote", func(engine *bonding.Engine, _ *token.Ledger) error {
		minted, err := engine.Quote(payment)
		out = minted
		return err
	})
	return out, err
}

func (x *Executor) TokenInfo(ctx context.Context) (*token.Info, error) {
	var out *token.Info
	err := x.query(ctx, "token_info", func(_ *bonding.Engine, ledger *token.Ledger) error {
		info, err := ledger.TokenInfo()
		if errors.Is(err, token.ErrNotInitialized) {
			return bonding.ErrNotInstantiated
		}
		out = info
		return err
	})
	return out, err
}

func (x *Executor) Balance(ctx context.Context, addr string) (*uint256.Int, error) {
	var out *uint256.Int
	err := x.query(ctx, "balance", func(_ *bonding.Engine, ledger *token.Ledger) error {
		bal, err := ledger.Balance(addr)
		out = bal
		return err
	})
	return out, err
}

func (x *Executor) Allowance(ctx context.Context, owner, spender string) (*uint256.Int, error) {
	var out *uint256.Int
	err := x.query(ctx, "allowance", func(_ *bonding.Engine, ledger *token.Ledger) error {
		allowed, err := ledger.Allowance(owner, spender)
		out = allowed
		return err
	})
	return out, err
}
