package carrier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"carriersync/internal/model"
)

func TestCallSendsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "AccessToken app-token" {
			t.Errorf("Authorization = %q", got)
		}
		wantKey := "Basic " + base64.StdEncoding.EncodeToString([]byte("user:secret"))
		if got := r.Header.Get("X-User-Authorization"); got != wantKey {
			t.Errorf("X-User-Authorization = %q, want %q", got, wantKey)
		}
		if r.URL.Path != "/1.0/tariff" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["mass"] != float64(500) {
			t.Errorf("body = %v, err = %v", body, err)
		}
		io.WriteString(w, `{"total-rate": 25050, "delivery-time": {"min-days": 1, "max-days": 3}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/1.0", "user", "secret", "app-token", time.Second)
	res, err := c.Tariff(context.Background(), map[string]any{"mass": 500})
	if err != nil {
		t.Fatalf("Tariff() error = %v", err)
	}
	if res.TotalRate != 25050 || res.DeliveryTime == nil || res.DeliveryTime.MaxDays != 3 {
		t.Errorf("Tariff() = %+v", res)
	}
}

func TestCallGetUsesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Query().Get("query") != "RA1" {
			t.Errorf("request = %s %s", r.Method, r.URL.String())
		}
		if n, _ := io.Copy(io.Discard, r.Body); n != 0 {
			t.Errorf("GET must not carry a body, got %d bytes", n)
		}
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", "t", time.Second)
	raw, err := c.Call(context.Background(), "/backlog/search", url.Values{"query": {"RA1"}}, http.MethodGet)
	if err != nil || string(raw) != "[]" {
		t.Errorf("Call() = %s, %v", raw, err)
	}
}

func TestCallCarrierError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantAPI    bool
		wantStatus int
	}{
		{"error body with status", http.StatusOK, `{"error": "Invalid token", "status": 401}`, true, 401},
		{"error body without status", http.StatusBadRequest, `{"error": "Bad request"}`, true, 400},
		{"plain failure", http.StatusInternalServerError, `oops`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "u", "p", "t", time.Second)
			_, err := c.Call(context.Background(), "tariff", map[string]any{}, http.MethodPost)
			if err == nil {
				t.Fatal("expected an error")
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) != tt.wantAPI {
				t.Fatalf("errors.As(APIError) = %v, want %v (err = %v)", !tt.wantAPI, tt.wantAPI, err)
			}
			if tt.wantAPI && apiErr.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", apiErr.Status, tt.wantStatus)
			}
		})
	}
}

func TestCleanAddresses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req []cleanAddressRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req) != 2 || req[1].ID != "adr 1" || req[1].OriginalAddress != "Питер" {
			t.Errorf("request = %+v", req)
		}
		io.WriteString(w, `[{"id":"adr 0","index":"101000","quality-code":"GOOD","validation-code":"VALIDATED"}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", "t", time.Second)
	res, err := c.CleanAddresses(context.Background(), []string{"Москва", " Питер "})
	if err != nil {
		t.Fatalf("CleanAddresses() error = %v", err)
	}
	want := model.NormalizedAddress{ID: "adr 0", Index: "101000", QualityCode: "GOOD", ValidationCode: "VALIDATED"}
	if len(res) != 1 || res[0] != want {
		t.Errorf("CleanAddresses() = %+v", res)
	}
}

func TestBacklog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/user/backlog":
			io.WriteString(w, `{"result-ids":[11],"errors":[{"position":1,"error-codes":[{"code":"X","description":"bad"}]}]}`)
		case r.Method == http.MethodGet && r.URL.Path == "/backlog/11":
			io.WriteString(w, `{"id":11,"barcode":"80080000000011"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", "t", time.Second)
	res, err := c.CreateBacklog(context.Background(), []model.ShipmentPayload{{"order-num": "1"}, {"order-num": "2"}})
	if err != nil {
		t.Fatalf("CreateBacklog() error = %v", err)
	}
	if len(res.ResultIDs) != 1 || res.Errors[0].Position != 1 || res.Errors[0].Text() != "bad" {
		t.Errorf("CreateBacklog() = %+v", res)
	}

	item, err := c.Backlog(context.Background(), 11)
	if err != nil || item.Barcode != "80080000000011" {
		t.Errorf("Backlog() = %+v, %v", item, err)
	}
}
