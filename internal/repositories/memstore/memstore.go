// Package memstore is an in-memory Store used by service tests. A single
// mutex stands in for row locks: ExecuteInTransaction holds it for the
// whole callback, so concurrent transactions are strictly serialized the
// way SELECT ... FOR UPDATE serializes them in postgres. Reads hand out
// copies and writes copy back, so a mutation only lands via an explicit
// Update or Create. Rollback is not modeled; callers must not rely on it.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "topvend/internal/errors"
	"topvend/internal/models"
	"topvend/internal/repositories"

	"github.com/shopspring/decimal"
)

type poolKey struct {
	userID      uint
	network     string
	productType string
}

type data struct {
	nextID uint

	wallets  map[uint]models.Wallet
	entries  map[string]models.WalletTransaction
	settings map[uint]models.WalletSetting

	pools     map[poolKey]models.DistributorStock
	purchases map[string]models.StockPurchase

	sales       map[uint]models.VtuTransaction
	saleRefs    map[string]uint
	funding     map[uint]models.WalletFundingRequest
	accounts    map[uint]models.SettlementAccount
	adjustments map[uint]models.WalletBalanceAdjustment
}

func (d *data) id() uint {
	d.nextID++
	return d.nextID
}

// Store implements repositories.Store against process memory.
type Store struct {
	mu sync.Mutex
	d  *data
}

var _ repositories.Store = (*Store)(nil)

func New() *Store {
	return &Store{d: &data{
		wallets:     make(map[uint]models.Wallet),
		entries:     make(map[string]models.WalletTransaction),
		settings:    make(map[uint]models.WalletSetting),
		pools:       make(map[poolKey]models.DistributorStock),
		purchases:   make(map[string]models.StockPurchase),
		sales:       make(map[uint]models.VtuTransaction),
		saleRefs:    make(map[string]uint),
		funding:     make(map[uint]models.WalletFundingRequest),
		accounts:    make(map[uint]models.SettlementAccount),
		adjustments: make(map[uint]models.WalletBalanceAdjustment),
	}}
}

func (s *Store) Wallets() repositories.WalletRepository {
	return &walletRepo{d: s.d, mu: &s.mu}
}

func (s *Store) Stock() repositories.StockRepository {
	return &stockRepo{d: s.d, mu: &s.mu}
}

func (s *Store) Settlements() repositories.SettlementRepository {
	return &settlementRepo{d: s.d, mu: &s.mu}
}

func (s *Store) ExecuteInTransaction(fn func(repositories.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(txStore{d: s.d})
}

// txStore is the Store handed to transaction callbacks. Its repositories
// skip locking because the owning transaction already holds the mutex.
type txStore struct {
	d *data
}

func (t txStore) Wallets() repositories.WalletRepository {
	return &walletRepo{d: t.d}
}

func (t txStore) Stock() repositories.StockRepository {
	return &stockRepo{d: t.d}
}

func (t txStore) Settlements() repositories.SettlementRepository {
	return &settlementRepo{d: t.d}
}

func (t txStore) ExecuteInTransaction(fn func(repositories.Store) error) error {
	return fn(t)
}

// Seed helpers assign IDs and insert directly; for test setup only.

func (s *Store) SeedWallet(w models.Wallet) models.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == 0 {
		w.ID = s.d.id()
	}
	if w.CounterDate.IsZero() {
		w.CounterDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	s.d.wallets[w.ID] = w
	return w
}

func (s *Store) SeedPool(p models.DistributorStock) models.DistributorStock {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.d.id()
	}
	s.d.pools[poolKey{p.UserID, p.Network, p.ProductType}] = p
	return p
}

func (s *Store) SeedAccount(a models.SettlementAccount) models.SettlementAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.d.id()
	}
	s.d.accounts[a.ID] = a
	return a
}

func (s *Store) SeedFundingRequest(r models.WalletFundingRequest) models.WalletFundingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.d.id()
	}
	s.d.funding[r.ID] = r
	return r
}

func (s *Store) SeedSetting(set models.WalletSetting) models.WalletSetting {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set.ID == 0 {
		set.ID = s.d.id()
	}
	s.d.settings[set.ID] = set
	return set
}

// --- wallet repository ---

type walletRepo struct {
	d  *data
	mu *sync.Mutex
}

func (r *walletRepo) lock() {
	if r.mu != nil {
		r.mu.Lock()
	}
}

func (r *walletRepo) unlock() {
	if r.mu != nil {
		r.mu.Unlock()
	}
}

func (r *walletRepo) Create(wallet *models.Wallet) error {
	r.lock()
	defer r.unlock()
	wallet.ID = r.d.id()
	wallet.Balance = decimal.Zero
	if wallet.CounterDate.IsZero() {
		wallet.CounterDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	wallet.CreatedAt = time.Now().UTC()
	r.d.wallets[wallet.ID] = *wallet
	return nil
}

func (r *walletRepo) GetByID(id uint) (*models.Wallet, error) {
	r.lock()
	defer r.unlock()
	w, ok := r.d.wallets[id]
	if !ok {
		return nil, apperrors.ErrWalletNotFound
	}
	return &w, nil
}

func (r *walletRepo) GetByUserID(userID uint) (*models.Wallet, error) {
	r.lock()
	defer r.unlock()
	for _, w := range r.d.wallets {
		if w.UserID == userID {
			cp := w
			return &cp, nil
		}
	}
	return nil, apperrors.ErrWalletNotFound
}

func (r *walletRepo) GetByIDForUpdate(id uint) (*models.Wallet, error) {
	return r.GetByID(id)
}

func (r *walletRepo) Update(wallet *models.Wallet) error {
	r.lock()
	defer r.unlock()
	if _, ok := r.d.wallets[wallet.ID]; !ok {
		return apperrors.ErrWalletNotFound
	}
	wallet.UpdatedAt = time.Now().UTC()
	r.d.wallets[wallet.ID] = *wallet
	return nil
}

func (r *walletRepo) CreateEntry(entry *models.WalletTransaction) error {
	r.lock()
	defer r.unlock()
	if _, exists := r.d.entries[entry.Reference]; exists {
		return apperrors.ErrDuplicateReference
	}
	entry.ID = r.d.id()
	entry.CreatedAt = time.Now().UTC()
	r.d.entries[entry.Reference] = *entry
	return nil
}

func (r *walletRepo) GetEntryByReference(reference string) (*models.WalletTransaction, error) {
	r.lock()
	defer r.unlock()
	e, ok := r.d.entries[reference]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &e, nil
}

func (r *walletRepo) GetEntries(ctx context.Context, walletID uint, limit, offset int) ([]models.WalletTransaction, error) {
	r.lock()
	defer r.unlock()
	var entries []models.WalletTransaction
	for _, e := range r.d.entries {
		if e.WalletID == walletID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if offset >= len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *walletRepo) GetDebitTotalBetween(walletID uint, start, end time.Time) (decimal.Decimal, error) {
	r.lock()
	defer r.unlock()
	total := decimal.Zero
	for _, e := range r.d.entries {
		if e.WalletID != walletID || e.Direction != models.DirectionDebit || e.Status != models.EntryStatusCompleted {
			continue
		}
		if e.CreatedAt.Before(start) || e.CreatedAt.After(end) {
			continue
		}
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (r *walletRepo) SumEntries(walletID uint) (decimal.Decimal, error) {
	r.lock()
	defer r.unlock()
	total := decimal.Zero
	for _, e := range r.d.entries {
		if e.WalletID != walletID || e.Status != models.EntryStatusCompleted {
			continue
		}
		if e.Direction == models.DirectionCredit {
			total = total.Add(e.Amount)
		} else {
			total = total.Sub(e.Amount)
		}
	}
	return total, nil
}

func (r *walletRepo) GetSetting(walletID uint) (*models.WalletSetting, error) {
	r.lock()
	defer r.unlock()
	var global *models.WalletSetting
	for _, s := range r.d.settings {
		if s.WalletID != nil && *s.WalletID == walletID {
			cp := s
			return &cp, nil
		}
		if s.WalletID == nil {
			cp := s
			global = &cp
		}
	}
	return global, nil
}

func (r *walletRepo) SaveSetting(setting *models.WalletSetting) error {
	r.lock()
	defer r.unlock()
	if setting.ID == 0 {
		setting.ID = r.d.id()
	}
	r.d.settings[setting.ID] = *setting
	return nil
}

// --- stock repository ---

type stockRepo struct {
	d  *data
	mu *sync.Mutex
}

func (r *stockRepo) lock() {
	if r.mu != nil {
		r.mu.Lock()
	}
}

func (r *stockRepo) unlock() {
	if r.mu != nil {
		r.mu.Unlock()
	}
}

func (r *stockRepo) GetPool(userID uint, network, productType string) (*models.DistributorStock, error) {
	r.lock()
	defer r.unlock()
	p, ok := r.d.pools[poolKey{userID, network, productType}]
	if !ok {
		return nil, apperrors.ErrStockNotFound
	}
	return &p, nil
}

func (r *stockRepo) GetPoolForUpdate(userID uint, network, productType string) (*models.DistributorStock, error) {
	return r.GetPool(userID, network, productType)
}

func (r *stockRepo) GetOrCreatePoolForUpdate(userID uint, network, productType string) (*models.DistributorStock, error) {
	r.lock()
	defer r.unlock()
	key := poolKey{userID, network, productType}
	if p, ok := r.d.pools[key]; ok {
		return &p, nil
	}
	p := models.DistributorStock{
		ID:          r.d.id(),
		UserID:      userID,
		Network:     network,
		ProductType: productType,
		Active:      true,
	}
	r.d.pools[key] = p
	return &p, nil
}

func (r *stockRepo) UpdatePool(pool *models.DistributorStock) error {
	r.lock()
	defer r.unlock()
	key := poolKey{pool.UserID, pool.Network, pool.ProductType}
	if _, ok := r.d.pools[key]; !ok {
		return apperrors.ErrStockNotFound
	}
	pool.UpdatedAt = time.Now().UTC()
	r.d.pools[key] = *pool
	return nil
}

func (r *stockRepo) ListPools(userID uint) ([]models.DistributorStock, error) {
	r.lock()
	defer r.unlock()
	var pools []models.DistributorStock
	for _, p := range r.d.pools {
		if p.UserID == userID {
			pools = append(pools, p)
		}
	}
	sort.Slice(pools, func(i, j int) bool { return pools[i].ID < pools[j].ID })
	return pools, nil
}

func (r *stockRepo) CreatePurchase(purchase *models.StockPurchase) error {
	r.lock()
	defer r.unlock()
	if _, exists := r.d.purchases[purchase.Reference]; exists {
		return apperrors.ErrDuplicateReference
	}
	purchase.ID = r.d.id()
	purchase.CreatedAt = time.Now().UTC()
	r.d.purchases[purchase.Reference] = *purchase
	return nil
}

func (r *stockRepo) GetPurchaseByReference(reference string) (*models.StockPurchase, error) {
	r.lock()
	defer r.unlock()
	p, ok := r.d.purchases[reference]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

// --- settlement repository ---

type settlementRepo struct {
	d  *data
	mu *sync.Mutex
}

func (r *settlementRepo) lock() {
	if r.mu != nil {
		r.mu.Lock()
	}
}

func (r *settlementRepo) unlock() {
	if r.mu != nil {
		r.mu.Unlock()
	}
}

func (r *settlementRepo) CreateSale(sale *models.VtuTransaction) error {
	r.lock()
	defer r.unlock()
	if _, exists := r.d.saleRefs[sale.Reference]; exists {
		return apperrors.ErrDuplicateReference
	}
	sale.ID = r.d.id()
	sale.CreatedAt = time.Now().UTC()
	r.d.sales[sale.ID] = *sale
	r.d.saleRefs[sale.Reference] = sale.ID
	return nil
}

func (r *settlementRepo) GetSaleByID(id uint) (*models.VtuTransaction, error) {
	r.lock()
	defer r.unlock()
	s, ok := r.d.sales[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

func (r *settlementRepo) GetSaleByReference(reference string) (*models.VtuTransaction, error) {
	r.lock()
	defer r.unlock()
	id, ok := r.d.saleRefs[reference]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	s := r.d.sales[id]
	return &s, nil
}

func (r *settlementRepo) GetSaleForUpdate(id uint) (*models.VtuTransaction, error) {
	return r.GetSaleByID(id)
}

func (r *settlementRepo) UpdateSale(sale *models.VtuTransaction) error {
	r.lock()
	defer r.unlock()
	if _, ok := r.d.sales[sale.ID]; !ok {
		return repositories.ErrNotFound
	}
	sale.UpdatedAt = time.Now().UTC()
	r.d.sales[sale.ID] = *sale
	return nil
}

func (r *settlementRepo) ListSales(ctx context.Context, userID uint, limit, offset int) ([]models.VtuTransaction, error) {
	r.lock()
	defer r.unlock()
	var sales []models.VtuTransaction
	for _, s := range r.d.sales {
		if s.UserID == userID {
			sales = append(sales, s)
		}
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].ID > sales[j].ID })
	if offset >= len(sales) {
		return nil, nil
	}
	sales = sales[offset:]
	if limit > 0 && limit < len(sales) {
		sales = sales[:limit]
	}
	return sales, nil
}

func (r *settlementRepo) CreateFundingRequest(req *models.WalletFundingRequest) error {
	r.lock()
	defer r.unlock()
	req.ID = r.d.id()
	req.CreatedAt = time.Now().UTC()
	r.d.funding[req.ID] = *req
	return nil
}

func (r *settlementRepo) GetFundingRequestForUpdate(id uint) (*models.WalletFundingRequest, error) {
	r.lock()
	defer r.unlock()
	f, ok := r.d.funding[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &f, nil
}

func (r *settlementRepo) UpdateFundingRequest(req *models.WalletFundingRequest) error {
	r.lock()
	defer r.unlock()
	if _, ok := r.d.funding[req.ID]; !ok {
		return repositories.ErrNotFound
	}
	req.UpdatedAt = time.Now().UTC()
	r.d.funding[req.ID] = *req
	return nil
}

func (r *settlementRepo) ListAccountsForUpdate() ([]models.SettlementAccount, error) {
	r.lock()
	defer r.unlock()
	var accounts []models.SettlementAccount
	for _, a := range r.d.accounts {
		if a.Active {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Priority == accounts[j].Priority {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].Priority < accounts[j].Priority
	})
	return accounts, nil
}

func (r *settlementRepo) UpdateAccount(account *models.SettlementAccount) error {
	r.lock()
	defer r.unlock()
	if _, ok := r.d.accounts[account.ID]; !ok {
		return repositories.ErrNotFound
	}
	account.UpdatedAt = time.Now().UTC()
	r.d.accounts[account.ID] = *account
	return nil
}

func (r *settlementRepo) CreateAdjustment(adj *models.WalletBalanceAdjustment) error {
	r.lock()
	defer r.unlock()
	adj.ID = r.d.id()
	adj.CreatedAt = time.Now().UTC()
	r.d.adjustments[adj.ID] = *adj
	return nil
}

func (r *settlementRepo) GetAdjustmentForUpdate(id uint) (*models.WalletBalanceAdjustment, error) {
	r.lock()
	defer r.unlock()
	a, ok := r.d.adjustments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &a, nil
}

func (r *settlementRepo) UpdateAdjustment(adj *models.WalletBalanceAdjustment) error {
	r.lock()
	defer r.unlock()
	if _, ok := r.d.adjustments[adj.ID]; !ok {
		return repositories.ErrNotFound
	}
	adj.UpdatedAt = time.Now().UTC()
	r.d.adjustments[adj.ID] = *adj
	return nil
}
