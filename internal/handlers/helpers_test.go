package handlers

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/auth"
	"ledger/internal/config"
	"ledger/internal/models"
	"ledger/internal/services"
	"ledger/internal/websocket"
)

type stubService struct {
	transferFn        func(ctx context.Context, sender, receiver string, amount decimal.Decimal) (models.Transaction, error)
	fineFn            func(ctx context.Context, username string, amount decimal.Decimal, reason string) (models.Transaction, error)
	paySalaryFn       func(ctx context.Context, amount decimal.Decimal) (services.BulkResult, error)
	collectTaxFn      func(ctx context.Context, percentage decimal.Decimal) (services.BulkResult, error)
	registerFn        func(ctx context.Context, username, credentialHash string) (models.Account, error)
	addAccountFn      func(ctx context.Context, input models.NewAccount) (models.Account, error)
	editAccountFn     func(ctx context.Context, username, newUsername, newCredentialHash string) (models.Account, error)
	deleteAccountFn   func(ctx context.Context, username string) error
	accountFn         func(ctx context.Context, username string) (models.Account, error)
	accountByIDFn     func(ctx context.Context, id int64) (models.Account, error)
	accountsFn        func(ctx context.Context) ([]models.Account, error)
	totalBalanceFn    func(ctx context.Context) (decimal.Decimal, error)
	transactionsFn    func(ctx context.Context) ([]models.Transaction, error)
	transactionsForFn func(ctx context.Context, username string) ([]models.Transaction, error)
}

func (s stubService) Transfer(ctx context.Context, sender, receiver string, amount decimal.Decimal) (models.Transaction, error) {
	if s.transferFn == nil {
		return models.Transaction{}, nil
	}
	return s.transferFn(ctx, sender, receiver, amount)
}

func (s stubService) Fine(ctx context.Context, username string, amount decimal.Decimal, reason string) (models.Transaction, error) {
	if s.fineFn == nil {
		return models.Transaction{}, nil
	}
	return s.fineFn(ctx, username, amount, reason)
}

func (s stubService) PaySalary(ctx context.Context, amount decimal.Decimal) (services.BulkResult, error) {
	if s.paySalaryFn == nil {
		return services.BulkResult{}, nil
	}
	return s.paySalaryFn(ctx, amount)
}

func (s stubService) CollectTax(ctx context.Context, percentage decimal.Decimal) (services.BulkResult, error) {
	if s.collectTaxFn == nil {
		return services.BulkResult{}, nil
	}
	return s.collectTaxFn(ctx, percentage)
}

func (s stubService) Register(ctx context.Context, username, credentialHash string) (models.Account, error) {
	if s.registerFn == nil {
		return models.Account{}, nil
	}
	return s.registerFn(ctx, username, credentialHash)
}

func (s stubService) AddAccount(ctx context.Context, input models.NewAccount) (models.Account, error) {
	if s.addAccountFn == nil {
		return models.Account{}, nil
	}
	return s.addAccountFn(ctx, input)
}

func (s stubService) EditAccount(ctx context.Context, username, newUsername, newCredentialHash string) (models.Account, error) {
	if s.editAccountFn == nil {
		return models.Account{}, nil
	}
	return s.editAccountFn(ctx, username, newUsername, newCredentialHash)
}

func (s stubService) DeleteAccount(ctx context.Context, username string) error {
	if s.deleteAccountFn == nil {
		return nil
	}
	return s.deleteAccountFn(ctx, username)
}

func (s stubService) Account(ctx context.Context, username string) (models.Account, error) {
	if s.accountFn == nil {
		return models.Account{}, models.ErrAccountNotFound
	}
	return s.accountFn(ctx, username)
}

func (s stubService) AccountByID(ctx context.Context, id int64) (models.Account, error) {
	if s.accountByIDFn == nil {
		return models.Account{}, models.ErrAccountNotFound
	}
	return s.accountByIDFn(ctx, id)
}

func (s stubService) Accounts(ctx context.Context) ([]models.Account, error) {
	if s.accountsFn == nil {
		return nil, nil
	}
	return s.accountsFn(ctx)
}

func (s stubService) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	if s.totalBalanceFn == nil {
		return decimal.Zero, nil
	}
	return s.totalBalanceFn(ctx)
}

func (s stubService) Transactions(ctx context.Context) ([]models.Transaction, error) {
	if s.transactionsFn == nil {
		return nil, nil
	}
	return s.transactionsFn(ctx)
}

func (s stubService) TransactionsFor(ctx context.Context, username string) ([]models.Transaction, error) {
	if s.transactionsForFn == nil {
		return nil, nil
	}
	return s.transactionsForFn(ctx, username)
}

type auditCall struct {
	actor  string
	action string
	entity string
	data   string
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, actor, action, entity, data string) error
	listFn func(ctx context.Context, limit, offset int) ([]models.AuditEntry, error)
	calls  *[]auditCall
}

func (s stubAuditStore) Log(ctx context.Context, actor, action, entity, data string) error {
	if s.calls != nil {
		*s.calls = append(*s.calls, auditCall{actor: actor, action: action, entity: entity, data: data})
	}
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, actor, action, entity, data)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]models.AuditEntry, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubRevoker struct {
	revokeFn    func(ctx context.Context, tokenID string, ttl time.Duration) error
	isRevokedFn func(ctx context.Context, tokenID string) (bool, error)
}

func (s stubRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if s.revokeFn == nil {
		return nil
	}
	return s.revokeFn(ctx, tokenID, ttl)
}

func (s stubRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.isRevokedFn == nil {
		return false, nil
	}
	return s.isRevokedFn(ctx, tokenID)
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
	}
}

func newTestHandler(service LedgerService, audit AuditStore) *Handler {
	return New(testConfig(), service, audit, stubRevoker{}, websocket.NewHub())
}

// accountsByID answers AccountByID from a fixed set of accounts.
func accountsByID(accounts ...models.Account) func(context.Context, int64) (models.Account, error) {
	return func(_ context.Context, id int64) (models.Account, error) {
		for _, account := range accounts {
			if account.ID == id {
				return account, nil
			}
		}
		return models.Account{}, models.ErrAccountNotFound
	}
}

var (
	adminAccount = models.Account{ID: 1, Username: models.AdminUsername, IsAdmin: true, Balance: decimal.NewFromInt(10000)}
	aliceAccount = models.Account{ID: 2, Username: "alice", Balance: decimal.NewFromInt(1000)}
)

func tokenFor(t *testing.T, accountID int64) string {
	t.Helper()
	token, err := auth.GenerateToken("secret", accountID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

// serve runs a request through the full router, authenticated as accountID
// when it is non-zero.
func serve(t *testing.T, handler *Handler, method, path, body string, accountID int64) *httptest.ResponseRecorder {
	t.Helper()
	token := ""
	if accountID != 0 {
		token = tokenFor(t, accountID)
	}
	return serveBody(handler, method, path, body, token)
}

func serveWithToken(handler *Handler, method, path, token string) *httptest.ResponseRecorder {
	return serveBody(handler, method, path, "", token)
}

func serveBody(handler *Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	return rr
}
