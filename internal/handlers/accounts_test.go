package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"ledger/internal/auth"
	"ledger/internal/models"
	"ledger/internal/services"
)

func TestAdminRoutesRequireAdmin(t *testing.T) {
	handler := newTestHandler(stubService{accountByIDFn: accountsByID(adminAccount, aliceAccount)}, stubAuditStore{})

	paths := []struct{ method, path string }{
		{http.MethodGet, "/admin/users"},
		{http.MethodPost, "/admin/users"},
		{http.MethodPut, "/admin/users/bob"},
		{http.MethodDelete, "/admin/users/bob"},
		{http.MethodGet, "/admin/transactions"},
		{http.MethodGet, "/admin/summary"},
		{http.MethodPost, "/admin/fine"},
		{http.MethodPost, "/admin/salary"},
		{http.MethodPost, "/admin/tax"},
		{http.MethodGet, "/admin/audit"},
	}
	for _, p := range paths {
		if rr := serve(t, handler, p.method, p.path, "{}", aliceAccount.ID); rr.Code != http.StatusForbidden {
			t.Fatalf("%s %s as alice: expected 403, got %d", p.method, p.path, rr.Code)
		}
		if rr := serve(t, handler, p.method, p.path, "{}", 0); rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s anonymous: expected 401, got %d", p.method, p.path, rr.Code)
		}
	}
}

func TestAdminListUsers(t *testing.T) {
	handler := newTestHandler(stubService{
		accountByIDFn: accountsByID(adminAccount),
		accountsFn: func(context.Context) ([]models.Account, error) {
			return []models.Account{adminAccount, aliceAccount}, nil
		},
	}, stubAuditStore{})

	rr := serve(t, handler, http.MethodGet, "/admin/users", "", adminAccount.ID)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body) != 2 || body[0]["balance"] != "10000.00" || body[1]["username"] != "alice" {
		t.Fatalf("unexpected body %v", body)
	}
	if _, leaked := body[0]["credential_hash"]; leaked {
		t.Fatalf("credential hash must not be exposed")
	}
}

func TestAdminCreateUser(t *testing.T) {
	var calls []auditCall
	var got models.NewAccount
	handler := newTestHandler(stubService{
		accountByIDFn: accountsByID(adminAccount),
		addAccountFn: func(_ context.Context, input models.NewAccount) (models.Account, error) {
			got = input
			return models.Account{ID: 3, Username: input.Username, IsAdmin: input.IsAdmin, Balance: input.Balance}, nil
		},
	}, stubAuditStore{calls: &calls})

	rr := serve(t, handler, http.MethodPost, "/admin/users",
		`{"username":"carol","password":"password1","initial_balance":"250.5","is_admin":true}`, adminAccount.ID)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.Username != "carol" || !got.IsAdmin || !got.Balance.Equal(decimal.RequireFromString("250.5")) {
		t.Fatalf("unexpected input %+v", got)
	}
	if !auth.CheckPassword(got.CredentialHash, "password1") {
		t.Fatalf("password was not hashed")
	}
	if len(calls) != 1 || calls[0].actor != "admin" || calls[0].action != "add_user" {
		t.Fatalf("unexpected audit calls %+v", calls)
	}
}

func TestAdminCreateUserRejectsNegativeBalance(t *testing.T) {
	handler := newTestHandler(stubService{
		accountByIDFn: accountsByID(adminAccount),
		addAccountFn: func(context.Context, models.NewAccount) (models.Account, error) {
			t.Fatalf("add account should not be called")
			return models.Account{}, nil
		},
	}, stubAuditStore{})

	rr := serve(t, handler, http.MethodPost, "/admin/users",
		`{"username":"carol","password":"password1","initial_balance":"-1"}`, adminAccount.ID)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestAdminCreateUserDuplicate(t *testing.T) {
	handler := newTestHandler(stubService{
		accountByIDFn: accountsByID(adminAccount),
		addAccountFn: func(context.Context, models.NewAccount) (models.Account, error) {
			return models.Account{}, services.ErrDuplicateUsername
		},
	}, stubAuditStore{})

	rr := serve(t, handler, http.MethodPost, "/admin/users", `{"username":"alice","password":"password1"}`, adminAccount.ID)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestAdminEditUser(t *testing.T) {
	var gotUsername, gotNewUsername, gotHash string
	handler := newTestHandler(stubService{
		accountByIDFn: accountsByID(adminAccount),
		editAccountFn: func(_ context.Context, username, newUsername, newCredentialHash string) (models.Account, error) {
			gotUsername, gotNewUsername, gotHash = username, newUsername, newCredentialHash
			return models.Account{ID: 2, Username: newUsername}, nil
		},
	}, stubAuditStore{})

	rr := serve(t, handler, http.MethodPut, "/admin/users/alice", `{"new_username":"alicia"}`, adminAccount.ID)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotUsername != "alice" || gotNewUsername != "alicia" || gotHash != "" {
		t.Fatalf("unexpected edit %q %q %q", gotUsername, gotNewUsername, gotHash)
	}

	rr = serve(t, handler, http.MethodPut, "/admin/users/alice", `{"new_password":"password2"}`, adminAccount.ID)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotNewUsername != "" || !auth.CheckPassword(gotHash, "password2") {
		t.Fatalf("expected only the password to change")
	}
}

func TestAdminEditUserErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{services.ErrProtectedAccount, http.StatusForbidden},
		{services.ErrAccountNotFound, http.StatusNotFound},
		{services.ErrDuplicateUsername, http.StatusConflict},
		{services.ErrReservedUsername, http.StatusBadRequest},
	}
	for _, tc := range cases {
		handler := newTestHandler(stubService{
			accountByIDFn: accountsByID(adminAccount),
			editAccountFn: func(context.Context, string, string, string) (models.Account, error) {
				return models.Account{}, tc.err
			},
		}, stubAuditStore{})
		rr := serve(t, handler, http.MethodPut, "/admin/users/admin", `{"new_username":"root"}`, adminAccount.ID)
		if rr.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rr.Code)
		}
	}
}

func TestAdminDeleteUser(t *testing.T) {
	var calls []auditCall
	var deleted string
	handler := newTestHandler(stubService{
		accountByIDFn: accountsByID(adminAccount),
		deleteAccountFn: func(_ context.Context, username string) error {
			if username == models.AdminUsername {
				return services.ErrProtectedAccount
			}
			deleted = username
			return nil
		},
	}, stubAuditStore{calls: &calls})

	rr := serve(t, handler, http.MethodDelete, "/admin/users/bob", "", adminAccount.ID)
	if rr.Code != http.StatusOK || deleted != "bob" {
		t.Fatalf("expected bob deleted, got %d %q", rr.Code, deleted)
	}
	rr = serve(t, handler, http.MethodDelete, "/admin/users/admin", "", adminAccount.ID)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if len(calls) != 1 || calls[0].action != "delete_user" {
		t.Fatalf("unexpected audit calls %+v", calls)
	}
}
