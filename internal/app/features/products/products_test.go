package products_test

import (
	"net/http"
	"testing"

	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	"github.com/dalemusser/storefront/internal/app/features/products"
	"github.com/dalemusser/storefront/internal/app/system/indexes"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/storefront/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	r   chi.Router
	db  *mongo.Database
	fx  *testutil.Fixtures
	cat models.Category
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
	h := products.NewHandler(db, nil, httperr.NewErrorLogger(logger), logger)
	fx := testutil.NewFixtures(t, db)
	return env{r: products.Routes(h), db: db, fx: fx, cat: fx.CreateCategory(ctx, "Mugs")}
}

func (e env) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.r.ServeHTTP(rec, req)
	return rec
}

func (e env) asAdmin(t *testing.T, method, target string, body any) *testutil.ResponseRecorder {
	t.Helper()
	return e.do(testutil.WithUser(testutil.JSONRequest(t, method, target, body), testutil.AdminUser()))
}

type productBody struct {
	Product models.Product `json:"product"`
}

type listBody struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	Pages    int              `json:"pages"`
}

func (e env) validProduct() map[string]any {
	return map[string]any{
		"name":     "Blue Mug",
		"price":    12.5,
		"stock":    5,
		"sku":      "mug-blue",
		"category": e.cat.ID.Hex(),
		"images":   []string{"https://img.test/mug.jpg"},
	}
}

func TestCreate(t *testing.T) {
	e := newEnv(t)

	in := e.validProduct()
	in["averageRating"] = 5
	in["reviewCount"] = 99
	rec := e.asAdmin(t, "POST", "/", in)
	rec.AssertStatus(t, http.StatusCreated)

	var got productBody
	rec.DecodeJSON(t, &got)
	if got.Product.SKU != "MUG-BLUE" {
		t.Errorf("SKU = %q, want upper-cased", got.Product.SKU)
	}
	if got.Product.AverageRating != 0 || got.Product.ReviewCount != 0 {
		t.Errorf("rating fields must start at zero: %+v", got.Product)
	}
	if !got.Product.IsActive {
		t.Error("products default to active")
	}
}

func TestCreate_Errors(t *testing.T) {
	e := newEnv(t)
	e.asAdmin(t, "POST", "/", e.validProduct()).AssertStatus(t, http.StatusCreated)

	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   int
	}{
		{"duplicate sku", func(m map[string]any) { m["sku"] = "MUG-BLUE" }, http.StatusConflict},
		{"negative price", func(m map[string]any) { m["sku"] = "X1"; m["price"] = -1 }, http.StatusBadRequest},
		{"negative stock", func(m map[string]any) { m["sku"] = "X2"; m["stock"] = -3 }, http.StatusBadRequest},
		{"missing price", func(m map[string]any) { m["sku"] = "X3"; delete(m, "price") }, http.StatusBadRequest},
		{"unknown category", func(m map[string]any) { m["sku"] = "X4"; m["category"] = "65a1b2c3d4e5f60718293a4b" }, http.StatusNotFound},
		{"bad category id", func(m map[string]any) { m["sku"] = "X5"; m["category"] = "mugs" }, http.StatusBadRequest},
		{"bad image url", func(m map[string]any) { m["sku"] = "X6"; m["images"] = []string{"javascript:alert(1)"} }, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := e.validProduct()
			tt.mutate(in)
			e.asAdmin(t, "POST", "/", in).AssertStatus(t, tt.want)
		})
	}
}

func TestWrites_AdminOnly(t *testing.T) {
	e := newEnv(t)
	e.do(testutil.JSONRequest(t, "POST", "/", e.validProduct())).AssertStatus(t, http.StatusUnauthorized)
	e.do(testutil.WithUser(testutil.JSONRequest(t, "POST", "/", e.validProduct()), testutil.CustomerUser())).
		AssertStatus(t, http.StatusForbidden)
}

func TestCreate_SanitizesDescription(t *testing.T) {
	e := newEnv(t)
	in := e.validProduct()
	in["description"] = `<p>Holds <b>tea</b></p><script>alert(1)</script>`
	rec := e.asAdmin(t, "POST", "/", in)
	rec.AssertStatus(t, http.StatusCreated)
	var got productBody
	rec.DecodeJSON(t, &got)
	if got.Product.Description != "<p>Holds <b>tea</b></p>" {
		t.Errorf("description = %q", got.Product.Description)
	}
}

func TestList_FiltersSortAndPaging(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	teas := e.fx.CreateCategory(ctx, "Teas")
	e.fx.CreateProduct(ctx, "Blue Mug", "M1", 12, 1, e.cat.ID)
	e.fx.CreateProduct(ctx, "Café Mug", "M2", 8, 1, e.cat.ID)
	e.fx.CreateProduct(ctx, "Green Tea", "T1", 4, 1, teas.ID)
	hidden := e.fx.CreateProduct(ctx, "Retired Mug", "M3", 1, 1, e.cat.ID)
	if _, err := e.db.Collection("products").UpdateByID(ctx, hidden.ID, bson.M{"$set": bson.M{"is_active": false}}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	var body listBody
	rec := e.do(testutil.JSONRequest(t, "GET", "/?category="+e.cat.ID.Hex()+"&sort=price_asc", nil))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &body)
	if body.Total != 2 || body.Products[0].SKU != "M2" || body.Products[1].SKU != "M1" {
		t.Errorf("category filter/sort wrong: %+v", body)
	}

	body = listBody{}
	e.do(testutil.JSONRequest(t, "GET", "/?search=cafe", nil)).DecodeJSON(t, &body)
	if body.Total != 1 || body.Products[0].SKU != "M2" {
		t.Errorf("diacritic-insensitive search failed: %+v", body)
	}

	body = listBody{}
	e.do(testutil.JSONRequest(t, "GET", "/?sort=price_desc&limit=2&page=2", nil)).DecodeJSON(t, &body)
	if body.Total != 3 || body.Pages != 2 || body.Page != 2 || len(body.Products) != 1 || body.Products[0].SKU != "T1" {
		t.Errorf("paging wrong: %+v", body)
	}

	body = listBody{}
	e.do(testutil.WithUser(testutil.JSONRequest(t, "GET", "/", nil), testutil.AdminUser())).DecodeJSON(t, &body)
	if body.Total != 4 {
		t.Errorf("admin listing should include inactive products, total = %d", body.Total)
	}

	e.do(testutil.JSONRequest(t, "GET", "/?category=nope", nil)).AssertStatus(t, http.StatusBadRequest)
}

func TestUpdate_IgnoresRatingFields(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := e.fx.CreateProduct(ctx, "Blue Mug", "M1", 12, 1, e.cat.ID)

	rec := e.asAdmin(t, "PUT", "/"+p.ID.Hex(), map[string]any{
		"price":         9.99,
		"averageRating": 4.9,
		"reviewCount":   12,
	})
	rec.AssertStatus(t, http.StatusOK)
	var got productBody
	rec.DecodeJSON(t, &got)
	if got.Product.Price != 9.99 || got.Product.Name != "Blue Mug" {
		t.Errorf("update = %+v", got.Product)
	}
	if got.Product.AverageRating != 0 || got.Product.ReviewCount != 0 {
		t.Errorf("rating fields changed by update: %+v", got.Product)
	}

	e.asAdmin(t, "PUT", "/"+p.ID.Hex(), map[string]any{"stock": -1}).AssertStatus(t, http.StatusBadRequest)
	e.asAdmin(t, "PUT", "/"+p.ID.Hex(), map[string]any{"category": "65a1b2c3d4e5f60718293a4b"}).
		AssertStatus(t, http.StatusNotFound)
}

func TestGetAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := e.fx.CreateProduct(ctx, "Blue Mug", "M1", 12, 1, e.cat.ID)
	path := "/" + p.ID.Hex()

	rec := e.do(testutil.JSONRequest(t, "GET", path, nil))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"reviewCount":0`)

	e.asAdmin(t, "DELETE", path, nil).AssertStatus(t, http.StatusOK)
	e.do(testutil.JSONRequest(t, "GET", path, nil)).AssertStatus(t, http.StatusNotFound)
	e.asAdmin(t, "DELETE", path, nil).AssertStatus(t, http.StatusNotFound)
	e.do(testutil.JSONRequest(t, "GET", "/xyz", nil)).AssertStatus(t, http.StatusBadRequest)
}

func TestFeatured(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := e.fx.CreateProduct(ctx, "Blue Mug", "M1", 12, 1, e.cat.ID)
	e.fx.CreateProduct(ctx, "Red Mug", "M2", 12, 1, e.cat.ID)
	e.asAdmin(t, "PUT", "/"+p.ID.Hex(), map[string]any{"isFeatured": true}).AssertStatus(t, http.StatusOK)

	var body listBody
	rec := e.do(testutil.JSONRequest(t, "GET", "/featured", nil))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &body)
	if len(body.Products) != 1 || body.Products[0].ID != p.ID {
		t.Errorf("featured = %+v", body.Products)
	}
}
