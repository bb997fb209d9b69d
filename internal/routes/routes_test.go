package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerworks/walletledger/internal/config"
	"github.com/ledgerworks/walletledger/internal/logging"
)

func newTestApp(t *testing.T, withRedis bool) *fiber.App {
	t.Helper()
	deps := Deps{
		Cfg: config.Config{
			AppEnv:          "test",
			BalanceCacheTTL: time.Minute,
			EventsChannel:   "ledger:events",
		},
		Logger: logging.Discard(),
	}
	if withRedis {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		deps.Cache = client
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	require.NoError(t, Setup(app, deps))
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return do(t, app, req)
}

func postForm(t *testing.T, app *fiber.App, path string, values url.Values) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return do(t, app, req)
}

func get(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	return do(t, app, httptest.NewRequest(fiber.MethodGet, path, nil))
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func createUser(t *testing.T, app *fiber.App, name string) int64 {
	t.Helper()
	status, body := postJSON(t, app, "/api/v1/users", `{"username": "`+name+`", "password": "password123"}`)
	require.Equal(t, fiber.StatusCreated, status, body)
	return int64(body["id"].(float64))
}

func createWallet(t *testing.T, app *fiber.App, userID int64, currency, balance string) int64 {
	t.Helper()
	status, body := postForm(t, app, "/api/v1/create-wallet", url.Values{
		"user_id":  {strconv.FormatInt(userID, 10)},
		"currency": {currency},
		"balance":  {balance},
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	return int64(body["id"].(float64))
}

func transfer(t *testing.T, app *fiber.App, sender, recipient int64, amount string) (int, map[string]any) {
	t.Helper()
	return postForm(t, app, "/api/v1/create-transaction", url.Values{
		"sender_id":    {strconv.FormatInt(sender, 10)},
		"recipient_id": {strconv.FormatInt(recipient, 10)},
		"amount":       {amount},
	})
}

func balanceOf(t *testing.T, app *fiber.App, id int64) string {
	t.Helper()
	status, body := get(t, app, "/api/v1/wallets/"+strconv.FormatInt(id, 10))
	require.Equal(t, fiber.StatusOK, status, body)
	return body["balance"].(string)
}

func TestCreateWallet(t *testing.T) {
	app := newTestApp(t, false)
	uid := createUser(t, app, "testuser")

	status, body := postJSON(t, app, "/api/v1/create-wallet",
		`{"user_id": `+strconv.FormatInt(uid, 10)+`, "currency": "USD", "balance": "1000.00"}`)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Contains(t, body, "id")
	assert.Equal(t, "testuser", body["user"])
	assert.Equal(t, "USD", body["currency"])
	assert.Equal(t, "1000.00", body["balance"])
}

func TestCreateWalletInvalidData(t *testing.T) {
	app := newTestApp(t, false)
	uid := createUser(t, app, "testuser")

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing user", `{"currency": "USD", "balance": "1000.00"}`, "user_id"},
		{"unknown user", `{"user_id": 9999, "currency": "USD", "balance": "1000.00"}`, "user_id"},
		{"bad currency", `{"user_id": ` + strconv.FormatInt(uid, 10) + `, "currency": "EUR", "balance": "1"}`, "currency"},
		{"negative balance", `{"user_id": ` + strconv.FormatInt(uid, 10) + `, "currency": "USD", "balance": "-1"}`, "balance"},
		{"too precise", `{"user_id": ` + strconv.FormatInt(uid, 10) + `, "currency": "USD", "balance": "1.005"}`, "balance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := postJSON(t, app, "/api/v1/create-wallet", tt.body)
			require.Equal(t, fiber.StatusBadRequest, status)
			errs, ok := body["errors"].(map[string]any)
			require.True(t, ok, body)
			assert.Contains(t, errs, tt.field)
		})
	}

	// None of the rejected requests created a wallet.
	status, _ := get(t, app, "/api/v1/wallets/1")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestCreateTransaction(t *testing.T) {
	app := newTestApp(t, true)
	u1 := createUser(t, app, "user1")
	u2 := createUser(t, app, "user2")
	w1 := createWallet(t, app, u1, "USD", "1000.00")
	w2 := createWallet(t, app, u2, "USD", "2000.00")

	// Prime the display cache so the commit must invalidate it.
	assert.Equal(t, "1000.00", balanceOf(t, app, w1))

	status, body := transfer(t, app, w1, w2, "100.00")
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Contains(t, body, "success")

	assert.Equal(t, "900.00", balanceOf(t, app, w1))
	assert.Equal(t, "2100.00", balanceOf(t, app, w2))
}

func TestCreateTransactionFailures(t *testing.T) {
	app := newTestApp(t, false)
	u1 := createUser(t, app, "user1")
	u2 := createUser(t, app, "user2")
	w1 := createWallet(t, app, u1, "USD", "1000.00")
	w2 := createWallet(t, app, u2, "USD", "2000.00")
	rub := createWallet(t, app, u2, "RUB", "10.00")

	t.Run("missing sender", func(t *testing.T) {
		status, body := postForm(t, app, "/api/v1/create-transaction", url.Values{
			"recipient_id": {strconv.FormatInt(w2, 10)},
			"amount":       {"100.00"},
		})
		require.Equal(t, fiber.StatusBadRequest, status)
		errs, ok := body["error"].(map[string]any)
		require.True(t, ok, body)
		assert.Contains(t, errs, "sender_id")
	})

	tests := []struct {
		name      string
		sender    int64
		recipient int64
		amount    string
		want      string
	}{
		{"sender does not exist", 9999, w2, "100.00", "one of the wallets does not exist"},
		{"recipient does not exist", w1, 9999, "100.00", "one of the wallets does not exist"},
		{"insufficient balance", w1, w2, "1500.00", "insufficient funds"},
		{"self transfer", w1, w1, "1.00", "self-transfer not allowed"},
		{"currency mismatch", w1, rub, "1.00", "currency mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := transfer(t, app, tt.sender, tt.recipient, tt.amount)
			require.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, tt.want, body["error"])
		})
	}

	t.Run("non-positive amount", func(t *testing.T) {
		status, body := transfer(t, app, w1, w2, "0")
		require.Equal(t, fiber.StatusBadRequest, status)
		assert.Contains(t, body["error"], "amount")
	})

	assert.Equal(t, "1000.00", balanceOf(t, app, w1))
	assert.Equal(t, "2000.00", balanceOf(t, app, w2))
	assert.Equal(t, "10.00", balanceOf(t, app, rub))
}

func TestShowWallet(t *testing.T) {
	app := newTestApp(t, false)

	status, body := get(t, app, "/api/v1/wallets/abc")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "error")

	status, body = get(t, app, "/api/v1/wallets/42")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Contains(t, body, "error")
}

func TestHealthAndPing(t *testing.T) {
	app := newTestApp(t, true)

	status, body := get(t, app, "/healthz")
	require.Equal(t, fiber.StatusOK, status)
	backends := body["status"].(map[string]any)
	assert.Equal(t, statusMemory, backends["postgres"])
	assert.Equal(t, statusOK, backends["redis"])

	status, body = get(t, app, "/api/v1/ping")
	require.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, body["request_id"])
}

func TestSetupRequiresBackendsOutsideDev(t *testing.T) {
	app := fiber.New()
	err := Setup(app, Deps{Cfg: config.Config{AppEnv: "production"}, Logger: logging.Discard()})
	assert.ErrorContains(t, err, "database is required")
}
