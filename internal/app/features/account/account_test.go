package account_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/storefront/internal/app/features/account"
	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"github.com/dalemusser/storefront/internal/app/system/auth"
	"github.com/dalemusser/storefront/internal/app/system/indexes"
	"github.com/dalemusser/storefront/internal/app/system/mailer"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/storefront/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "account-test-secret-of-32-chars!"

type env struct {
	db     *mongo.Database
	h      *account.Handler
	router chi.Router
	tokens *auth.TokenManager
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	logger := zap.NewNop()
	tm, err := auth.NewTokenManager(testSecret, time.Hour, logger)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	h := account.NewHandler(db, tm, mailer.New(mailer.Config{}, logger), nil,
		httperr.NewErrorLogger(logger),
		account.Config{BaseURL: "http://shop.test", BcryptCost: bcrypt.MinCost},
		logger)
	return env{db: db, h: h, router: account.Routes(h), tokens: tm}
}

func (e env) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type authBody struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (e env) register(t *testing.T, name, email, password string) authBody {
	t.Helper()
	rec := e.do(testutil.JSONRequest(t, "POST", "/register", map[string]string{
		"name": name, "email": email, "password": password,
	}))
	rec.AssertStatus(t, http.StatusCreated)
	var body authBody
	rec.DecodeJSON(t, &body)
	return body
}

func TestRegister_ReturnsTokenAndUser(t *testing.T) {
	e := newEnv(t)

	body := e.register(t, "Ada Lovelace", "  Ada@Example.COM ", "secret1")

	if body.User.Email != "ada@example.com" {
		t.Errorf("email = %q, want normalized", body.User.Email)
	}
	if body.User.Role != models.RoleUser || body.User.IsVerified {
		t.Errorf("user = %+v", body.User)
	}
	claims, err := e.tokens.Parse(body.Token)
	if err != nil {
		t.Fatalf("token did not parse: %v", err)
	}
	if claims.Subject != body.User.ID.Hex() {
		t.Errorf("subject = %q, want %q", claims.Subject, body.User.ID.Hex())
	}

	// a verification token was stored for the new account
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := userstore.New(e.db).GetByID(ctx, body.User.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.VerificationToken == "" || u.VerificationExpires == nil {
		t.Error("expected a verification token to be issued")
	}
}

func TestRegister_ResponseHidesSecrets(t *testing.T) {
	e := newEnv(t)
	rec := e.do(testutil.JSONRequest(t, "POST", "/register", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "secret1",
	}))
	rec.AssertStatus(t, http.StatusCreated)
	for _, leak := range []string{"password", "verification", "secret1"} {
		if strings.Contains(strings.ToLower(rec.Body.String()), leak) {
			t.Errorf("response leaks %q: %s", leak, rec.Body.String())
		}
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newEnv(t)
	e.register(t, "Ada", "ada@example.com", "secret1")

	rec := e.do(testutil.JSONRequest(t, "POST", "/register", map[string]string{
		"name": "Other Ada", "email": "ADA@example.com", "password": "secret2",
	}))
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, `"error":"conflict"`)
}

func TestRegister_Validation(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name string
		body map[string]string
	}{
		{"short name", map[string]string{"name": "A", "email": "a@example.com", "password": "secret1"}},
		{"bad email", map[string]string{"name": "Ada", "email": "nope", "password": "secret1"}},
		{"short password", map[string]string{"name": "Ada", "email": "a@example.com", "password": "12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(testutil.JSONRequest(t, "POST", "/register", tt.body))
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	reg := e.register(t, "Ada", "ada@example.com", "secret1")

	rec := e.do(testutil.JSONRequest(t, "POST", "/login", map[string]string{
		"email": "ADA@example.com", "password": "secret1",
	}))
	rec.AssertStatus(t, http.StatusOK)
	var body authBody
	rec.DecodeJSON(t, &body)
	if body.User.ID != reg.User.ID || body.Token == "" {
		t.Errorf("login body = %+v", body)
	}

	wrong := e.do(testutil.JSONRequest(t, "POST", "/login", map[string]string{
		"email": "ada@example.com", "password": "nope123",
	}))
	wrong.AssertStatus(t, http.StatusUnauthorized)

	unknown := e.do(testutil.JSONRequest(t, "POST", "/login", map[string]string{
		"email": "ghost@example.com", "password": "secret1",
	}))
	unknown.AssertStatus(t, http.StatusUnauthorized)

	if wrong.Body.String() != unknown.Body.String() {
		t.Errorf("wrong password and unknown email must look alike:\n%s\n%s", wrong.Body, unknown.Body)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	e := newEnv(t)
	e.register(t, "Ada", "ada@example.com", "secret1")

	var last *testutil.ResponseRecorder
	for i := 0; i < 6; i++ {
		last = e.do(testutil.JSONRequest(t, "POST", "/login", map[string]string{
			"email": "ada@example.com", "password": "wrong12",
		}))
	}
	last.AssertStatus(t, http.StatusTooManyRequests)
}

func TestVerifyEmail(t *testing.T) {
	e := newEnv(t)
	reg := e.register(t, "Ada", "ada@example.com", "secret1")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	users := userstore.New(e.db)
	raw, err := users.IssueVerificationToken(ctx, reg.User.ID, time.Hour)
	if err != nil {
		t.Fatalf("IssueVerificationToken: %v", err)
	}

	rec := e.do(testutil.JSONRequest(t, "GET", "/verify-email/"+raw, nil))
	rec.AssertStatus(t, http.StatusOK)

	u, _ := users.GetByID(ctx, reg.User.ID)
	if !u.IsVerified || u.VerificationToken != "" {
		t.Errorf("user not verified or token kept: %+v", u)
	}

	// tokens are single use
	e.do(testutil.JSONRequest(t, "GET", "/verify-email/"+raw, nil)).AssertStatus(t, http.StatusBadRequest)
}

func TestForgotAndResetPassword(t *testing.T) {
	e := newEnv(t)
	e.register(t, "Ada", "ada@example.com", "secret1")

	e.do(testutil.JSONRequest(t, "POST", "/forgot-password", map[string]string{"email": "ghost@example.com"})).
		AssertStatus(t, http.StatusNotFound)
	e.do(testutil.JSONRequest(t, "POST", "/forgot-password", map[string]string{"email": "ada@example.com"})).
		AssertStatus(t, http.StatusOK)

	// the mailed token is not observable here, so issue a fresh one
	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, raw, err := userstore.New(e.db).IssueResetToken(ctx, "ada@example.com", time.Hour)
	if err != nil {
		t.Fatalf("IssueResetToken: %v", err)
	}

	e.do(testutil.JSONRequest(t, "POST", "/reset-password", map[string]string{"token": "bogus", "password": "newpass1"})).
		AssertStatus(t, http.StatusBadRequest)
	e.do(testutil.JSONRequest(t, "POST", "/reset-password", map[string]string{"token": raw, "password": "newpass1"})).
		AssertStatus(t, http.StatusOK)

	e.do(testutil.JSONRequest(t, "POST", "/login", map[string]string{"email": "ada@example.com", "password": "secret1"})).
		AssertStatus(t, http.StatusUnauthorized)
	e.do(testutil.JSONRequest(t, "POST", "/login", map[string]string{"email": "ada@example.com", "password": "newpass1"})).
		AssertStatus(t, http.StatusOK)
}

func TestForgotPassword_Throttled(t *testing.T) {
	e := newEnv(t)
	var last *testutil.ResponseRecorder
	for i := 0; i < 4; i++ {
		last = e.do(testutil.JSONRequest(t, "POST", "/forgot-password", map[string]string{"email": "ghost@example.com"}))
	}
	last.AssertStatus(t, http.StatusTooManyRequests)
}

func TestSignedInRoutes_RequireUser(t *testing.T) {
	e := newEnv(t)
	for _, path := range []string{"/me", "/addresses"} {
		e.do(testutil.JSONRequest(t, "GET", path, nil)).AssertStatus(t, http.StatusUnauthorized)
	}
}

func TestMeAndProfile(t *testing.T) {
	e := newEnv(t)
	reg := e.register(t, "Ada", "ada@example.com", "secret1")
	user := testutil.AsTestUser(reg.User)

	rec := e.do(testutil.WithUser(testutil.JSONRequest(t, "PUT", "/profile", map[string]string{
		"name": "Ada King", "phone": "555-0100",
	}), user))
	rec.AssertStatus(t, http.StatusOK)

	rec = e.do(testutil.WithUser(testutil.JSONRequest(t, "GET", "/me", nil), user))
	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		User models.User `json:"user"`
	}
	rec.DecodeJSON(t, &body)
	if body.User.Name != "Ada King" || body.User.Phone != "555-0100" {
		t.Errorf("profile not updated: %+v", body.User)
	}
}

type addressesBody struct {
	Addresses []models.Address `json:"addresses"`
}

func addressPayload(street string, isDefault bool) map[string]any {
	return map[string]any{
		"firstName": "Ada", "lastName": "Lovelace", "street": street,
		"city": "London", "state": "LDN", "zipCode": "N1", "country": "UK",
		"isDefault": isDefault,
	}
}

func TestAddresses_SingleDefault(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	customer := testutil.NewFixtures(t, e.db).CreateCustomer(ctx, "Ada", "ada@example.com")
	user := testutil.AsTestUser(customer)

	add := func(street string, isDefault bool) addressesBody {
		rec := e.do(testutil.WithUser(testutil.JSONRequest(t, "POST", "/addresses", addressPayload(street, isDefault)), user))
		rec.AssertStatus(t, http.StatusCreated)
		var b addressesBody
		rec.DecodeJSON(t, &b)
		return b
	}

	add("1 First St", false)
	add("2 Second St", false)
	got := add("3 Third St", true)
	if len(got.Addresses) != 3 {
		t.Fatalf("expected 3 addresses, got %d", len(got.Addresses))
	}
	if got.Addresses[0].IsDefault || !got.Addresses[2].IsDefault {
		t.Errorf("default should have moved to the third address: %+v", got.Addresses)
	}

	second := got.Addresses[1].ID.Hex()
	rec := e.do(testutil.WithUser(testutil.JSONRequest(t, "PUT", "/addresses/"+second+"/default", nil), user))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &got)
	defaults := 0
	for _, a := range got.Addresses {
		if a.IsDefault {
			defaults++
		}
	}
	if defaults != 1 || !got.Addresses[1].IsDefault {
		t.Errorf("expected only the second address default: %+v", got.Addresses)
	}

	rec = e.do(testutil.WithUser(testutil.JSONRequest(t, "DELETE", "/addresses/"+second, nil), user))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &got)
	if len(got.Addresses) != 2 || !got.Addresses[0].IsDefault {
		t.Errorf("expected first remaining address promoted: %+v", got.Addresses)
	}

	e.do(testutil.WithUser(testutil.JSONRequest(t, "DELETE", "/addresses/"+second, nil), user)).
		AssertStatus(t, http.StatusNotFound)
	e.do(testutil.WithUser(testutil.JSONRequest(t, "DELETE", "/addresses/not-an-id", nil), user)).
		AssertStatus(t, http.StatusBadRequest)
}

func TestAddAddress_Validation(t *testing.T) {
	e := newEnv(t)
	user := testutil.CustomerUser()

	bad := addressPayload("", false)
	e.do(testutil.WithUser(testutil.JSONRequest(t, "POST", "/addresses", bad), user)).
		AssertStatus(t, http.StatusBadRequest)

	bad = addressPayload("1 St", false)
	bad["type"] = "castle"
	e.do(testutil.WithUser(testutil.JSONRequest(t, "POST", "/addresses", bad), user)).
		AssertStatus(t, http.StatusBadRequest)
}

func TestSetFavoriteCategories(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, e.db)
	customer := fx.CreateCustomer(ctx, "Ada", "ada@example.com")
	user := testutil.AsTestUser(customer)
	mugs := fx.CreateCategory(ctx, "Mugs")
	teas := fx.CreateCategory(ctx, "Teas")

	rec := e.do(testutil.WithUser(testutil.JSONRequest(t, "PUT", "/favorite-categories", map[string]any{
		"categories": []string{mugs.ID.Hex(), teas.ID.Hex(), mugs.ID.Hex()},
	}), user))
	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		FavoriteCategories []string `json:"favoriteCategories"`
	}
	rec.DecodeJSON(t, &body)
	if len(body.FavoriteCategories) != 2 {
		t.Errorf("expected duplicates collapsed, got %v", body.FavoriteCategories)
	}

	e.do(testutil.WithUser(testutil.JSONRequest(t, "PUT", "/favorite-categories", map[string]any{
		"categories": []string{mugs.ID.Hex(), "65a1b2c3d4e5f60718293a4b"},
	}), user)).AssertStatus(t, http.StatusNotFound)

	e.do(testutil.WithUser(testutil.JSONRequest(t, "PUT", "/favorite-categories", map[string]any{
		"categories": []string{"nope"},
	}), user)).AssertStatus(t, http.StatusBadRequest)

	// an empty list clears favorites
	e.do(testutil.WithUser(testutil.JSONRequest(t, "PUT", "/favorite-categories", map[string]any{
		"categories": []string{},
	}), user)).AssertStatus(t, http.StatusOK)
}
