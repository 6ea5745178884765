package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"carriersync/internal/model"
	"carriersync/internal/mw"
	"carriersync/internal/service"
	"carriersync/internal/shipping"
	"carriersync/internal/tracking"
)

const testSecret = "test-secret"

type fakeAuth struct {
	operators map[string]string
}

func (f *fakeAuth) Register(ctx context.Context, login, password string) (*model.Operator, error) {
	if _, ok := f.operators[login]; ok {
		return nil, service.ErrLoginTaken
	}
	f.operators[login] = password
	return &model.Operator{ID: "op-" + login, Login: login}, nil
}

func (f *fakeAuth) Authenticate(ctx context.Context, login, password string) (*model.Operator, error) {
	if pw, ok := f.operators[login]; !ok || pw != password {
		return nil, service.ErrInvalidCredentials
	}
	return &model.Operator{ID: "op-" + login, Login: login}, nil
}

type fakeOrders struct {
	orders  map[int64]model.Order
	created []model.Order
	err     error
}

func (f *fakeOrders) Create(ctx context.Context, o model.Order) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.created = append(f.created, o)
	return int64(100 + len(f.created)), nil
}

func (f *fakeOrders) Get(ctx context.Context, id int64) (*model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, service.ErrOrderNotFound
	}
	return &o, nil
}

func (f *fakeOrders) List(ctx context.Context, ids []int64) ([]model.Order, error) {
	var res []model.Order
	for _, id := range ids {
		if o, ok := f.orders[id]; ok {
			res = append(res, o)
		}
	}
	return res, nil
}

type fakeSubmitter struct {
	actor  string
	orders []model.Order
}

func (f *fakeSubmitter) Submit(ctx context.Context, actor string, orders []model.Order) (*shipping.SubmissionReport, error) {
	f.actor, f.orders = actor, orders
	report := &shipping.SubmissionReport{}
	for _, o := range orders {
		report.Submitted = append(report.Submitted, shipping.SubmittedOrder{OrderID: o.ID, CarrierID: "1"})
	}
	return report, nil
}

type fakeEstimator struct{}

func (fakeEstimator) Estimate(ctx context.Context, cart model.Cart) shipping.Estimate {
	days := 3
	return shipping.Estimate{Sum: decimal.NewFromInt(250), MaxDays: &days}
}

func (fakeEstimator) CustomerPrice(cartSum, delivery decimal.Decimal) decimal.Decimal {
	return delivery.Add(decimal.NewFromInt(1))
}

type fakeRunner struct {
	stats tracking.RunStats
	err   error
}

func (f fakeRunner) Run(ctx context.Context) (tracking.RunStats, error) { return f.stats, f.err }

func newRouter(auth *fakeAuth, orders *fakeOrders, sub *fakeSubmitter, runner fakeRunner) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/user/register", RegisterHandler(auth, testSecret))
	r.Post("/api/user/login", LoginHandler(auth, testSecret))
	r.Post("/api/calculator", CalculatorHandler(fakeEstimator{}))
	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(testSecret))
		r.Post("/api/orders", ImportOrderHandler(orders))
		r.Get("/api/orders/{id}", GetOrderHandler(orders))
		r.Post("/api/shipments", SubmitShipmentsHandler(orders, sub))
		r.Post("/api/tracking/run", RunTrackingHandler(runner))
	})
	return r
}

func do(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(h, http.MethodPost, "/api/user/register", "", `{"login":"alice","password":"pw"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("register: status %d", rec.Code)
	}
	return rec.Header().Get("Authorization")
}

func TestAuthFlow(t *testing.T) {
	h := newRouter(&fakeAuth{operators: map[string]string{}}, &fakeOrders{}, &fakeSubmitter{}, fakeRunner{})

	token := login(t, h)
	if !strings.HasPrefix(token, "Bearer ") {
		t.Fatalf("token = %q", token)
	}

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"duplicate login", "/api/user/register", `{"login":"alice","password":"x"}`, http.StatusConflict},
		{"empty password", "/api/user/register", `{"login":"bob"}`, http.StatusBadRequest},
		{"bad json", "/api/user/login", `{`, http.StatusBadRequest},
		{"wrong password", "/api/user/login", `{"login":"alice","password":"nope"}`, http.StatusUnauthorized},
		{"good login", "/api/user/login", `{"login":"alice","password":"pw"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(h, http.MethodPost, tt.path, "", tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	h := newRouter(&fakeAuth{operators: map[string]string{}}, &fakeOrders{}, &fakeSubmitter{}, fakeRunner{})

	for _, token := range []string{"", "Bearer garbage", "Token abc"} {
		if rec := do(h, http.MethodPost, "/api/tracking/run", token, ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, rec.Code)
		}
	}
}

func TestOrders(t *testing.T) {
	orders := &fakeOrders{orders: map[int64]model.Order{
		5: {ID: 5, StatusID: 1, Sum: decimal.NewFromInt(10)},
	}}
	h := newRouter(&fakeAuth{operators: map[string]string{}}, orders, &fakeSubmitter{}, fakeRunner{})
	token := login(t, h)

	rec := do(h, http.MethodPost, "/api/orders", token,
		`{"status_id":1,"sum":"1500.00","fields":{"city":"Москва"},"items":[{"material_id":"m1","quantity":2}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("import: status %d, body %s", rec.Code, rec.Body)
	}
	if len(orders.created) != 1 || !orders.created[0].Sum.Equal(decimal.NewFromInt(1500)) || orders.created[0].Items[0].Quantity != 2 {
		t.Errorf("created = %+v", orders.created)
	}

	if rec := do(h, http.MethodPost, "/api/orders", token, `{"sum":"-1"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative sum: status %d", rec.Code)
	}

	rec = do(h, http.MethodGet, "/api/orders/5", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	var got model.Order
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil || got.ID != 5 {
		t.Errorf("get: %+v, %v", got, err)
	}

	if rec := do(h, http.MethodGet, "/api/orders/6", token, ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing order: status %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/orders/abc", token, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: status %d", rec.Code)
	}
}

func TestImportOrderStoreFailure(t *testing.T) {
	orders := &fakeOrders{err: errors.New("db down")}
	h := newRouter(&fakeAuth{operators: map[string]string{}}, orders, &fakeSubmitter{}, fakeRunner{})
	token := login(t, h)

	if rec := do(h, http.MethodPost, "/api/orders", token, `{"sum":1}`); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestSubmitShipments(t *testing.T) {
	orders := &fakeOrders{orders: map[int64]model.Order{1: {ID: 1}, 2: {ID: 2}}}
	sub := &fakeSubmitter{}
	h := newRouter(&fakeAuth{operators: map[string]string{}}, orders, sub, fakeRunner{})
	token := login(t, h)

	rec := do(h, http.MethodPost, "/api/shipments", token, `{"order_ids":[1,2,9]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body)
	}
	if sub.actor != "op-alice" || len(sub.orders) != 2 {
		t.Errorf("submitter got actor %q and %d orders", sub.actor, len(sub.orders))
	}

	var resp struct {
		Submitted []shipping.SubmittedOrder `json:"submitted"`
		NotFound  []int64                   `json:"not_found"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Submitted) != 2 || len(resp.NotFound) != 1 || resp.NotFound[0] != 9 {
		t.Errorf("response = %+v", resp)
	}

	if rec := do(h, http.MethodPost, "/api/shipments", token, `{"order_ids":[]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty ids: status %d", rec.Code)
	}
}

func TestCalculator(t *testing.T) {
	h := newRouter(&fakeAuth{operators: map[string]string{}}, &fakeOrders{}, &fakeSubmitter{}, fakeRunner{})

	rec := do(h, http.MethodPost, "/api/calculator", "", `{"sum":"100","fields":{"post_code":"101000"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		Sum      decimal.Decimal `json:"sum"`
		Delivery decimal.Decimal `json:"delivery"`
		MinDays  *int            `json:"min_days"`
		MaxDays  *int            `json:"max_days"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Sum.Equal(decimal.NewFromInt(251)) || !resp.Delivery.Equal(decimal.NewFromInt(250)) {
		t.Errorf("response = %+v", resp)
	}
	if resp.MinDays != nil || resp.MaxDays == nil || *resp.MaxDays != 3 {
		t.Errorf("days = %v, %v", resp.MinDays, resp.MaxDays)
	}
}

func TestRunTracking(t *testing.T) {
	runner := fakeRunner{stats: tracking.RunStats{Orders: 4, Updated: 2, Failed: 1}}
	h := newRouter(&fakeAuth{operators: map[string]string{}}, &fakeOrders{}, &fakeSubmitter{}, runner)
	token := login(t, h)

	rec := do(h, http.MethodPost, "/api/tracking/run", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var stats tracking.RunStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil || stats != runner.stats {
		t.Errorf("stats = %+v, %v", stats, err)
	}

	failing := newRouter(&fakeAuth{operators: map[string]string{}}, &fakeOrders{}, &fakeSubmitter{}, fakeRunner{err: tracking.ErrNoRules})
	token = login(t, failing)
	if rec := do(failing, http.MethodPost, "/api/tracking/run", token, ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("failing run: status %d", rec.Code)
	}
}
