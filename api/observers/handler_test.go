package observers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kilianp07/cityguard/core/model"
)

type fixed []model.ObserverSnapshot

func (f fixed) Snapshots(context.Context) []model.ObserverSnapshot {
	return append([]model.ObserverSnapshot(nil), f...)
}

func TestHandler_Basic(t *testing.T) {
	h := NewHandler(fixed{{ID: "obs0001", Position: model.Pos(1, 2)}}, "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/observers", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []model.ObserverSnapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].ID != "obs0001" || out[0].Position != model.Pos(1, 2) {
		t.Fatalf("unexpected output %#v", out)
	}
}

func TestHandler_FilterBusy(t *testing.T) {
	h := NewHandler(fixed{{ID: "a"}, {ID: "b", Busy: true}}, "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/observers?busy=false", nil))
	var out []model.ObserverSnapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].ID != "a" {
		t.Fatalf("unexpected filter result %#v", out)
	}
}

func TestHandler_Auth(t *testing.T) {
	h := NewHandler(fixed{}, "tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/observers", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := NewHandler(fixed{}, "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/observers", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}
