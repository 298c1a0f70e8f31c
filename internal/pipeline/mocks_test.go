package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/extraction"
	"github.com/dvloznov/smart-ledger/internal/quota"
)

// memStore is an in-memory LedgerStore. Optional Func fields override
// individual operations.
type memStore struct {
	mu sync.Mutex

	wallets    []domain.Wallet
	bills      []domain.Bill
	categories []string
	headers    []domain.TransactionHeader
	items      []domain.LineItem
	paidBills  map[string]time.Time

	ListWalletsFunc          func(ctx context.Context, userID string, bucket domain.AllocationBucket) ([]domain.Wallet, error)
	InsertWalletFunc         func(ctx context.Context, w domain.Wallet) error
	InsertTransactionFunc    func(ctx context.Context, h domain.TransactionHeader, items []domain.LineItem) error
	ListBillsFunc            func(ctx context.Context, userID string) ([]domain.Bill, error)
	MarkBillPaidFunc         func(ctx context.Context, userID, billID string, paidAt time.Time) error
	ListBudgetCategoriesFunc func(ctx context.Context, userID string, bucket domain.AllocationBucket) ([]string, error)
}

func (m *memStore) ListWallets(ctx context.Context, userID string, bucket domain.AllocationBucket) ([]domain.Wallet, error) {
	if m.ListWalletsFunc != nil {
		return m.ListWalletsFunc(ctx, userID, bucket)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Wallet
	for _, w := range m.wallets {
		if w.Bucket == "" || w.Bucket == bucket {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memStore) InsertWallet(ctx context.Context, w domain.Wallet) error {
	if m.InsertWalletFunc != nil {
		return m.InsertWalletFunc(ctx, w)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets = append(m.wallets, w)
	return nil
}

func (m *memStore) InsertTransaction(ctx context.Context, h domain.TransactionHeader, items []domain.LineItem) error {
	if m.InsertTransactionFunc != nil {
		if err := m.InsertTransactionFunc(ctx, h, items); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers = append(m.headers, h)
	m.items = append(m.items, items...)
	return nil
}

func (m *memStore) ListBills(ctx context.Context, userID string) ([]domain.Bill, error) {
	if m.ListBillsFunc != nil {
		return m.ListBillsFunc(ctx, userID)
	}
	return m.bills, nil
}

func (m *memStore) MarkBillPaid(ctx context.Context, userID, billID string, paidAt time.Time) error {
	if m.MarkBillPaidFunc != nil {
		return m.MarkBillPaidFunc(ctx, userID, billID, paidAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paidBills == nil {
		m.paidBills = make(map[string]time.Time)
	}
	m.paidBills[billID] = paidAt
	return nil
}

func (m *memStore) ListBudgetCategories(ctx context.Context, userID string, bucket domain.AllocationBucket) ([]string, error) {
	if m.ListBudgetCategoriesFunc != nil {
		return m.ListBudgetCategoriesFunc(ctx, userID, bucket)
	}
	return m.categories, nil
}

func (m *memStore) walletsNamed(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, w := range m.wallets {
		if strings.EqualFold(w.Name, name) {
			n++
		}
	}
	return n
}

// MockExtractor is a hand-written Extractor.
type MockExtractor struct {
	ExtractFromTextFunc  func(ctx context.Context, text string, categories []string) extraction.TextResult
	ExtractFromImageFunc func(ctx context.Context, image []byte, mimeType string, categories []string) (extraction.ImageResult, error)
	lastCategories       []string
}

func (m *MockExtractor) ExtractFromText(ctx context.Context, text string, categories []string) extraction.TextResult {
	m.lastCategories = categories
	if m.ExtractFromTextFunc != nil {
		return m.ExtractFromTextFunc(ctx, text, categories)
	}
	return extraction.TextResult{}
}

func (m *MockExtractor) ExtractFromImage(ctx context.Context, image []byte, mimeType string, categories []string) (extraction.ImageResult, error) {
	m.lastCategories = categories
	if m.ExtractFromImageFunc != nil {
		return m.ExtractFromImageFunc(ctx, image, mimeType, categories)
	}
	return extraction.ImageResult{}, nil
}

func (m *MockExtractor) Model() string {
	return "mock-model"
}

// MockQuota is a hand-written QuotaChecker.
type MockQuota struct {
	CheckFunc func(ctx context.Context, userID string, feature domain.FeatureClass) quota.Decision
}

func (m *MockQuota) Check(ctx context.Context, userID string, feature domain.FeatureClass) quota.Decision {
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx, userID, feature)
	}
	return quota.Decision{Allowed: true}
}

// MockOutputs records model outputs.
type MockOutputs struct {
	outputs []domain.ModelOutput
	err     error
}

func (m *MockOutputs) InsertModelOutput(ctx context.Context, out domain.ModelOutput) error {
	m.outputs = append(m.outputs, out)
	return m.err
}

// MockLocker counts acquisitions.
type MockLocker struct {
	keys     []string
	released int
	err      error
}

func (m *MockLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if m.err != nil {
		return nil, m.err
	}
	m.keys = append(m.keys, key)
	return func() { m.released++ }, nil
}

// MockMirror records mirrored headers.
type MockMirror struct {
	headers []domain.TransactionHeader
	err     error
}

func (m *MockMirror) MirrorTransactions(ctx context.Context, headers []domain.TransactionHeader) error {
	m.headers = append(m.headers, headers...)
	return m.err
}
