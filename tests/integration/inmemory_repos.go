package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"campus-credit-ledger/internal/core/domain"
	"campus-credit-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.OwnerID == ownerID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.CachedBalance = balance
	w.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryWalletRepo) UpdateDailyCounter(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, transferred int64, windowStart time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.DailyTransferred = transferred
	w.DailyWindowStart = windowStart
	return nil
}

func (r *inMemoryWalletRepo) UpdateStatus(ctx context.Context, walletID uuid.UUID, status domain.WalletStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Status = status
	return nil
}

func (r *inMemoryWalletRepo) ListActive(ctx context.Context) ([]domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Wallet
	for _, w := range r.wallets {
		if w.CanTransact() {
			out = append(out, *w)
		}
	}
	return out, nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu  sync.RWMutex
	txs map[uuid.UUID]*domain.Transaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{txs: make(map[uuid.UUID]*domain.Transaction)}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.RewardDedupKey != nil {
		for _, existing := range r.txs {
			if existing.RewardDedupKey != nil && *existing.RewardDedupKey == *t.RewardDedupKey {
				return fmt.Errorf("duplicate dedup key")
			}
		}
	}
	cp := *t
	r.txs[t.ID] = &cp
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.txs[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txs[id]
	if !ok {
		return fmt.Errorf("transaction not found")
	}
	t.Status = status
	return nil
}

func (r *inMemoryTransactionRepo) MarkConfirmed(ctx context.Context, tx pgx.Tx, id uuid.UUID, chainTxRef string, confirmedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txs[id]
	if !ok {
		return fmt.Errorf("transaction not found")
	}
	t.Status = domain.TransactionStatusConfirmed
	t.ChainTxRef = &chainTxRef
	t.ConfirmedAt = &confirmedAt
	return nil
}

func (r *inMemoryTransactionRepo) DedupKeyExists(ctx context.Context, dedupKey string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.txs {
		if t.RewardDedupKey != nil && *t.RewardDedupKey == dedupKey {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryTransactionRepo) ListRecentByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Transaction
	for _, t := range r.txs {
		if (t.FromWalletID != nil && *t.FromWalletID == walletID) ||
			(t.ToWalletID != nil && *t.ToWalletID == walletID) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *inMemoryTransactionRepo) ListProcessingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Transaction
	for _, t := range r.txs {
		if t.Status == domain.TransactionStatusProcessing && t.CreatedAt.Before(cutoff) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryTransactionRepo) ReplayConfirmedBalance(ctx context.Context, walletID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var balance int64
	for _, t := range r.txs {
		if t.Status != domain.TransactionStatusConfirmed {
			continue
		}
		if t.ToWalletID != nil && *t.ToWalletID == walletID {
			balance += t.Amount
		}
		if t.FromWalletID != nil && *t.FromWalletID == walletID {
			balance -= t.Amount
		}
	}
	return balance, nil
}

// --- In-Memory Rate Repo ---

type inMemoryRateRepo struct {
	mu    sync.RWMutex
	rates []domain.ExchangeRate
}

func newInMemoryRateRepo() *inMemoryRateRepo {
	return &inMemoryRateRepo{}
}

func (r *inMemoryRateRepo) Insert(ctx context.Context, tx pgx.Tx, rate *domain.ExchangeRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates = append(r.rates, *rate)
	return nil
}

func (r *inMemoryRateRepo) CloseOpenInterval(ctx context.Context, tx pgx.Tx, effectiveTo time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rates {
		if r.rates[i].EffectiveTo == nil {
			to := effectiveTo
			r.rates[i].EffectiveTo = &to
		}
	}
	return nil
}

func (r *inMemoryRateRepo) ListAll(ctx context.Context) ([]domain.ExchangeRate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ExchangeRate, len(r.rates))
	copy(out, r.rates)
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveFrom.Before(out[j].EffectiveFrom) })
	return out, nil
}

// --- In-Memory Alert Repo ---

type inMemoryAlertRepo struct {
	mu     sync.RWMutex
	alerts map[uuid.UUID]*domain.FraudAlert
}

func newInMemoryAlertRepo() *inMemoryAlertRepo {
	return &inMemoryAlertRepo{alerts: make(map[uuid.UUID]*domain.FraudAlert)}
}

func (r *inMemoryAlertRepo) Create(ctx context.Context, a *domain.FraudAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.alerts[a.ID] = &cp
	return nil
}

func (r *inMemoryAlertRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FraudAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.alerts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAlertRepo) List(ctx context.Context, params ports.AlertListParams) ([]domain.FraudAlert, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.FraudAlert
	for _, a := range r.alerts {
		if params.WalletID != nil && a.WalletID != *params.WalletID {
			continue
		}
		if params.Status != nil && a.Status != *params.Status {
			continue
		}
		if params.Severity != nil && a.Severity != *params.Severity {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	return out, int64(len(out)), nil
}

func (r *inMemoryAlertRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AlertStatus, resolution *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok {
		return fmt.Errorf("alert not found")
	}
	a.Status = status
	a.Resolution = resolution
	return nil
}

// --- In-Memory Transactor ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }

// --- In-Memory Chain ---

// inMemoryChain simulates the blockchain: operations apply instantly and
// idempotency keys dedupe resubmissions.
type inMemoryChain struct {
	mu       sync.Mutex
	balances map[string]int64
	byKey    map[string]string // idempotency key -> pending ref
	refs     map[string]ports.PollResult
	seq      int
}

func newInMemoryChain() *inMemoryChain {
	return &inMemoryChain{
		balances: make(map[string]int64),
		byKey:    make(map[string]string),
		refs:     make(map[string]ports.PollResult),
	}
}

func (c *inMemoryChain) Submit(ctx context.Context, op ports.ChainOp) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ref, ok := c.byKey[op.IdempotencyKey]; ok {
		return ref, nil
	}

	c.seq++
	ref := fmt.Sprintf("pending-%d", c.seq)

	switch op.Type {
	case ports.ChainOpMint:
		c.balances[op.ToAddress] += op.Amount
	case ports.ChainOpBurn:
		c.balances[op.FromAddress] -= op.Amount
	case ports.ChainOpTransfer:
		c.balances[op.FromAddress] -= op.Amount
		c.balances[op.ToAddress] += op.Amount
	}

	c.byKey[op.IdempotencyKey] = ref
	c.refs[ref] = ports.PollResult{
		Status: ports.ChainStatusConfirmed,
		TxRef:  fmt.Sprintf("tx-%d", c.seq),
	}
	return ref, nil
}

func (c *inMemoryChain) PollStatus(ctx context.Context, pendingRef string) (*ports.PollResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.refs[pendingRef]
	if !ok {
		return nil, fmt.Errorf("unknown pending ref %s", pendingRef)
	}
	return &res, nil
}

func (c *inMemoryChain) GetOnChainBalance(ctx context.Context, address string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[address], nil
}

func (c *inMemoryChain) Verify(ctx context.Context, txRef string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, res := range c.refs {
		if res.TxRef == txRef {
			return true, nil
		}
	}
	return false, nil
}

// totalSupply sums every on-chain balance. Mints add, burns subtract,
// transfers conserve.
func (c *inMemoryChain) totalSupply() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, b := range c.balances {
		total += b
	}
	return total
}
