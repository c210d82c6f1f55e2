package tx

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/LeJamon/goMarketd/internal/bank"
	"github.com/LeJamon/goMarketd/internal/core/events"
	"github.com/LeJamon/goMarketd/internal/core/state"
	"github.com/LeJamon/goMarketd/internal/core/types"
	"github.com/LeJamon/goMarketd/internal/crypto"
	"github.com/LeJamon/goMarketd/internal/registry"
)

// Default engine limits.
const (
	// DefaultMaxPrice is the highest accepted listing price.
	DefaultMaxPrice types.Amount = 1_000_000_000_000

	// DefaultMaxFee is the highest listing fee the operator may configure.
	DefaultMaxFee types.Amount = 1_000_000_000
)

// EngineConfig holds configuration for the transaction engine.
type EngineConfig struct {
	// Operator is the address allowed to change the listing fee. The
	// listing fee accrues to its pending withdrawal balance.
	Operator types.Address

	// MaxPrice bounds listing prices. Zero selects DefaultMaxPrice.
	MaxPrice types.Amount

	// MaxFee bounds the configurable listing fee. Zero selects DefaultMaxFee.
	MaxFee types.Amount

	// InitialFee is the listing fee seeded at genesis. May be zero.
	InitialFee types.Amount
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.MaxPrice == 0 {
		c.MaxPrice = DefaultMaxPrice
	}
	if c.MaxFee == 0 {
		c.MaxFee = DefaultMaxFee
	}
	return c
}

// Clock supplies timestamps for committed events.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Archiver receives committed events for durable history storage. Archival
// is post-commit and best effort: a failing archiver never unwinds state.
type Archiver interface {
	ArchiveEvent(ctx context.Context, ev events.Event) error
}

// CommitHook runs after every committed operation, under the engine lock,
// with the state changes and events the operation produced.
type CommitHook func(changes []state.Change, evs []events.Event)

// ApplyResult is the full outcome of applying one transaction.
type ApplyResult struct {
	// Result is the transaction result code.
	Result Result

	// Applied reports whether state changed.
	Applied bool

	// TxHash identifies the transaction. Zero for engine-initiated work.
	TxHash [32]byte

	// Events are the committed events, in commit order with sequence
	// numbers assigned. Only set for top-level applied operations.
	Events []events.Event

	// Message is a human-readable description of the result.
	Message string
}

// externalOp records one completed call against an external collaborator,
// in the form needed to undo it.
type externalOp struct {
	kind    externalKind
	account types.Address
	amount  types.Amount
	tokenID types.TokenID
	from    types.Address
	to      types.Address
}

type externalKind int

const (
	externalDebit externalKind = iota
	externalCredit
	externalTransfer
)

// session is the unit of isolation for one top-level operation. All state
// access goes through a stack of overlays: views[0] is the operation's own
// overlay over the committed ledger, and every nested re-entrant call
// pushes a child. Events and external calls queue here until the root
// commits; an aborting operation compensates the external calls made in
// its scope, including those of nested operations that had merged into it.
type session struct {
	views     []*state.Table
	events    []events.Event
	externals []externalOp

	// aborting refuses new nested operations while compensation runs.
	aborting bool
}

func (s *session) current() *state.Table {
	return s.views[len(s.views)-1]
}

type sessionKeyType struct{}

var sessionKey sessionKeyType

func sessionFrom(ctx context.Context) *session {
	s, _ := ctx.Value(sessionKey).(*session)
	return s
}

// Engine applies transactions against market state.
//
// A single mutex serializes top-level operations. External collaborators
// (registry, bank) are called while an operation is in flight and may
// synchronously re-enter the engine; such calls carry the operation's
// context and run nested inside the same session instead of deadlocking on
// the lock. A nested operation sees the in-flight overlay, so it cannot
// buy a token whose listing the outer operation already removed.
type Engine struct {
	mu       sync.Mutex
	ledger   *state.Ledger
	registry registry.Registry
	bank     bank.Bank
	config   EngineConfig

	publisher  events.Publisher
	archiver   Archiver
	commitHook CommitHook
	clock      Clock
	log        *zap.Logger

	applied atomic.Uint64
	failed  atomic.Uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher routes committed events to p.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithArchiver stores committed events through a.
func WithArchiver(a Archiver) Option {
	return func(e *Engine) { e.archiver = a }
}

// WithCommitHook calls hook after every committed operation.
func WithCommitHook(hook CommitHook) Option {
	return func(e *Engine) { e.commitHook = hook }
}

// WithClock overrides the event timestamp source.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the engine logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates an engine over the given ledger and collaborators,
// seeding the fee and event-sequence entries if the ledger lacks them.
func NewEngine(ledger *state.Ledger, reg registry.Registry, bk bank.Bank, config EngineConfig, opts ...Option) *Engine {
	e := &Engine{
		ledger:    ledger,
		registry:  reg,
		bank:      bk,
		config:    config.withDefaults(),
		publisher: events.NoOpPublisher{},
		clock:     systemClock{},
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.seedGenesis()
	return e
}

// seedGenesis installs the singleton entries a fresh ledger needs. A ledger
// restored from a snapshot already carries them.
func (e *Engine) seedGenesis() {
	if exists, _ := e.ledger.Exists(state.FeesKeylet()); !exists {
		_ = e.ledger.Insert(state.FeesKeylet(), &state.Fees{ListingFee: e.config.InitialFee})
	}
	if exists, _ := e.ledger.Exists(state.SequenceKeylet()); !exists {
		_ = e.ledger.Insert(state.SequenceKeylet(), &state.Sequence{NextEvent: 1})
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Apply validates and applies a transaction, returning the full outcome.
// The context is passed to external collaborators; re-entrant calls made
// with it join the in-flight session.
func (e *Engine) Apply(ctx context.Context, txn Transaction) ApplyResult {
	// Step 1: preflight, state-independent checks only.
	result := e.preflight(txn)
	if !result.IsSuccess() {
		e.failed.Add(1)
		return ApplyResult{Result: result, Message: result.Message()}
	}

	// Step 2: the hash that identifies this transaction everywhere.
	txHash, err := ComputeHash(txn)
	if err != nil {
		e.failed.Add(1)
		e.log.Error("failed to compute transaction hash", zap.Error(err))
		return ApplyResult{Result: TefINTERNAL, Message: "failed to compute transaction hash: " + err.Error()}
	}

	appliable, ok := txn.(Appliable)
	if !ok {
		e.failed.Add(1)
		return ApplyResult{Result: TefINTERNAL, TxHash: txHash, Message: "transaction type cannot be applied"}
	}

	// Step 3: apply against the overlay and commit on success.
	res := e.run(ctx, txn.GetCommon().Address(), txHash, appliable.Apply)

	if res.Applied {
		e.applied.Add(1)
	} else {
		e.failed.Add(1)
	}
	e.log.Debug("transaction processed",
		zap.String("type", string(txn.TxType())),
		zap.String("account", txn.GetCommon().Account),
		zap.String("result", res.Result.String()),
		zap.String("hash", HashHex(txHash)),
	)
	return res
}

// preflight runs the state-independent checks: field validation and, when a
// signing key is present, that it actually belongs to the account.
func (e *Engine) preflight(txn Transaction) Result {
	if err := txn.Validate(); err != nil {
		return parseValidationError(err)
	}

	common := txn.GetCommon()
	if common.SigningPubKey != "" {
		pub, err := crypto.ParsePubKeyHex(common.SigningPubKey)
		if err != nil {
			return TemBAD_SIGNATURE
		}
		if crypto.AddressFromPubKey(pub.SerializeCompressed()) != common.Address() {
			return TefBAD_AUTH
		}
	}
	return TesSUCCESS
}

// run executes fn inside a session. Called without a session in the
// context, it takes the engine lock, opens a fresh session over the
// committed ledger, and commits on success. Called with one (a re-entrant
// call from inside an external collaborator, on the goroutine that already
// holds the lock), it runs nested in the existing session instead.
func (e *Engine) run(ctx context.Context, account types.Address, txHash [32]byte, fn func(*ApplyContext) Result) ApplyResult {
	if sess := sessionFrom(ctx); sess != nil {
		if sess.aborting {
			return ApplyResult{Result: TelLOCAL_ERROR, TxHash: txHash, Message: "operation is aborting"}
		}
		result := e.applyInSession(ctx, sess, account, txHash, fn)
		return ApplyResult{
			Result:  result,
			Applied: result.IsApplied(),
			TxHash:  txHash,
			Message: result.Message(),
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sess := &session{views: []*state.Table{state.NewTable(e.ledger)}}
	ctx = context.WithValue(ctx, sessionKey, sess)

	result := e.applyInSession(ctx, sess, account, txHash, fn)
	if !result.IsSuccess() {
		return ApplyResult{Result: result, TxHash: txHash, Message: result.Message()}
	}

	evs, commitResult := e.commit(sess)
	if !commitResult.IsSuccess() {
		return ApplyResult{Result: commitResult, TxHash: txHash, Message: commitResult.Message()}
	}
	return ApplyResult{
		Result:  result,
		Applied: true,
		TxHash:  txHash,
		Events:  evs,
		Message: result.Message(),
	}
}

// applyInSession runs fn in a child overlay of the session. On success the
// child merges into its parent; on failure the child and any events fn
// emitted are dropped and the external calls made in fn's scope are
// compensated, leaving the parent untouched.
func (e *Engine) applyInSession(ctx context.Context, sess *session, account types.Address, txHash [32]byte, fn func(*ApplyContext) Result) Result {
	child := state.NewTable(sess.current())
	sess.views = append(sess.views, child)
	eventMark := len(sess.events)
	externalMark := len(sess.externals)

	actx := &ApplyContext{
		Ctx:      ctx,
		View:     child,
		Account:  account,
		Config:   e.config,
		TxHash:   txHash,
		Registry: e.registry,
		Bank:     e.bank,
		sess:     sess,
		log:      e.log,
	}
	result := fn(actx)

	sess.views = sess.views[:len(sess.views)-1]
	if !result.IsSuccess() {
		e.compensate(ctx, sess, externalMark)
		sess.events = sess.events[:eventMark]
		return result
	}
	if _, err := child.Apply(); err != nil {
		e.compensate(ctx, sess, externalMark)
		sess.events = sess.events[:eventMark]
		e.log.Error("overlay merge failed", zap.Error(err))
		return TefINTERNAL
	}
	return result
}

// compensate undoes the session's external calls from index from onward,
// most recent first: collected payments go back, payouts are reclaimed,
// transferred tokens return to their previous owners. The context still
// carries the session, so a transfer notification fired by a reversal runs
// nested against the overlay being abandoned rather than deadlocking.
func (e *Engine) compensate(ctx context.Context, sess *session, from int) {
	wasAborting := sess.aborting
	sess.aborting = true
	defer func() { sess.aborting = wasAborting }()

	for i := len(sess.externals) - 1; i >= from; i-- {
		x := sess.externals[i]
		var err error
		switch x.kind {
		case externalDebit:
			err = e.bank.Credit(ctx, x.account, x.amount)
		case externalCredit:
			err = e.bank.Debit(ctx, x.account, x.amount)
		case externalTransfer:
			err = e.registry.Transfer(ctx, x.tokenID, x.to, x.from)
		}
		if err != nil {
			e.log.Error("compensation failed, value may be stranded",
				zap.Int("external_kind", int(x.kind)),
				zap.String("account", string(x.account)),
				zap.String("amount", x.amount.String()),
				zap.Uint64("token_id", uint64(x.tokenID)),
				zap.Error(err),
			)
		}
	}
	sess.externals = sess.externals[:from]
}

// commit applies the session's root overlay to the committed ledger,
// assigning event sequence numbers atomically with the state change, then
// publishes and archives the events. Caller holds the engine lock.
func (e *Engine) commit(sess *session) ([]events.Event, Result) {
	root := sess.views[0]

	if len(sess.events) > 0 {
		entry, err := root.Read(state.SequenceKeylet())
		if err != nil || entry == nil {
			return nil, TefINTERNAL
		}
		seq, ok := entry.(*state.Sequence)
		if !ok {
			return nil, TefINTERNAL
		}
		now := e.clock.Now()
		for i := range sess.events {
			sess.events[i].Seq = seq.NextEvent
			sess.events[i].Time = now
			seq.NextEvent++
		}
		if err := root.Update(state.SequenceKeylet(), seq); err != nil {
			return nil, TefINTERNAL
		}
	}

	changes, err := root.Apply()
	if err != nil {
		e.log.Error("commit failed", zap.Error(err))
		return nil, TefINTERNAL
	}

	for _, ev := range sess.events {
		e.publisher.Publish(ev)
		if e.archiver != nil {
			// Archival uses a fresh context: a canceled submission
			// context must not lose committed history.
			if err := e.archiver.ArchiveEvent(context.Background(), ev); err != nil {
				e.log.Warn("event archive failed",
					zap.Uint64("seq", ev.Seq),
					zap.String("type", string(ev.Type)),
					zap.Error(err),
				)
			}
		}
	}
	if e.commitHook != nil && (len(changes) > 0 || len(sess.events) > 0) {
		e.commitHook(changes, sess.events)
	}
	return sess.events, TesSUCCESS
}

// OnOwnershipChanged is the registry's transfer notification. Any listing
// for the token is now stale, whoever made the transfer happen, so it is
// deleted unconditionally and a cancellation is emitted. During a buy the
// engine itself removed the listing before requesting the transfer, so the
// nested run finds nothing and is a no-op.
func (e *Engine) OnOwnershipChanged(ctx context.Context, tokenID types.TokenID, previousOwner types.Address) {
	res := e.run(ctx, types.ZeroAddress, [32]byte{}, func(actx *ApplyContext) Result {
		listing, result := actx.readListing(tokenID)
		if !result.IsSuccess() {
			return result
		}
		if listing == nil {
			return TesSUCCESS
		}
		if err := actx.View.Erase(state.ListingKeylet(tokenID)); err != nil {
			return TefINTERNAL
		}
		actx.Emit(events.Cancelled(tokenID))
		return TesSUCCESS
	})
	if !res.Result.IsSuccess() {
		e.log.Warn("stale listing invalidation failed",
			zap.Uint64("token_id", uint64(tokenID)),
			zap.String("previous_owner", string(previousOwner)),
			zap.String("result", res.Result.String()),
		)
	}
}

// Listing returns the committed listing for a token, if any.
func (e *Engine) Listing(tokenID types.TokenID) (*state.Listing, bool) {
	return e.ledger.Listing(tokenID)
}

// Listings returns all committed listings ordered by token ID.
func (e *Engine) Listings() []*state.Listing {
	return e.ledger.Listings()
}

// PendingWithdrawal returns the account's withdrawable balance.
func (e *Engine) PendingWithdrawal(account types.Address) types.Amount {
	return e.ledger.EscrowBalance(account)
}

// CurrentFee returns the committed listing fee.
func (e *Engine) CurrentFee() types.Amount {
	return e.ledger.ListingFee()
}

// Stats are cumulative transaction counters.
type Stats struct {
	Applied uint64 `json:"applied"`
	Failed  uint64 `json:"failed"`
}

// Stats returns cumulative transaction counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Applied: e.applied.Load(),
		Failed:  e.failed.Load(),
	}
}

// parseValidationError maps a Validate error to a result code using the
// code prefix convention, e.g. "temINVALID_PRICE: price must be positive".
func parseValidationError(err error) Result {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "temINVALID_PRICE:"):
		return TemINVALID_PRICE
	case strings.HasPrefix(msg, "temFEE_TOO_HIGH:"):
		return TemFEE_TOO_HIGH
	case strings.HasPrefix(msg, "temBAD_AMOUNT:"):
		return TemBAD_AMOUNT
	case strings.HasPrefix(msg, "temINVALID_ACCOUNT:"):
		return TemINVALID_ACCOUNT
	case strings.HasPrefix(msg, "temBAD_SIGNATURE:"):
		return TemBAD_SIGNATURE
	case strings.HasPrefix(msg, "temUNKNOWN_TYPE:"):
		return TemUNKNOWN_TYPE
	case strings.HasPrefix(msg, "temMALFORMED:"):
		return TemMALFORMED
	default:
		return TemMALFORMED
	}
}
