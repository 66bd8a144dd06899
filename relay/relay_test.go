package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/impulsevault/engine/extract"
	"github.com/impulsevault/engine/recorder"
	"github.com/impulsevault/engine/store"
)

func testRelay(t *testing.T) (*Relay, store.Store) {
	t.Helper()
	s := store.NewMemory()
	rec := recorder.New(s, nil)
	return New(rec, s, nil), s
}

func seedDecision(t *testing.T, s store.Store) {
	t.Helper()
	rec := recorder.New(s, nil)
	info := extract.ProductInfo{ProductName: "Espresso Machine", Price: 249.99, Website: "www.megashop.com"}
	if err := rec.Record(context.Background(), info, "mine broke last week", false); err != nil {
		t.Fatal(err)
	}
}

func TestDispatchGetStats(t *testing.T) {
	r, s := testRelay(t)
	seedDecision(t, s)

	out, err := r.Dispatch(context.Background(), []byte(`{"action":"getStats"}`))
	if err != nil {
		t.Fatal(err)
	}

	var resp StatsResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Stats.TotalImpulsesStopped != 1 || resp.Stats.TotalMoneySaved != 249.99 {
		t.Fatalf("stats: %+v", resp.Stats)
	}
}

func TestDispatchGetRecordsEmpty(t *testing.T) {
	r, _ := testRelay(t)

	out, err := r.Dispatch(context.Background(), []byte(`{"action":"getRecords"}`))
	if err != nil {
		t.Fatal(err)
	}
	// Fresh state must be an empty array on the wire, not null.
	if !strings.Contains(string(out), `"records":[]`) {
		t.Fatalf("wire shape: %s", out)
	}
}

func TestDispatchLogInfo(t *testing.T) {
	r, _ := testRelay(t)

	out, err := r.Dispatch(context.Background(), []byte(`{"action":"logInfo","message":"page loaded"}`))
	if err != nil {
		t.Fatal(err)
	}
	var resp AckResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Fatal("logInfo must ack")
	}
}

func TestDispatchSetEnabled(t *testing.T) {
	r, s := testRelay(t)
	ctx := context.Background()

	if _, err := r.Dispatch(ctx, []byte(`{"action":"setEnabled","enabled":false}`)); err != nil {
		t.Fatal(err)
	}
	rec, _ := s.Get(ctx, store.KeyExtensionEnabled)
	if rec.ExtensionEnabled == nil || *rec.ExtensionEnabled {
		t.Fatal("kill switch not persisted")
	}

	if _, err := r.Dispatch(ctx, []byte(`{"action":"setEnabled"}`)); err == nil {
		t.Fatal("setEnabled without a value must fail")
	}
}

func TestDispatchUnknownAction(t *testing.T) {
	r, _ := testRelay(t)
	if _, err := r.Dispatch(context.Background(), []byte(`{"action":"explode"}`)); err == nil {
		t.Fatal("unknown action must fail")
	}
	if _, err := r.Dispatch(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("missing action must fail")
	}
	if _, err := r.Dispatch(context.Background(), []byte(`not json`)); err == nil {
		t.Fatal("malformed payload must fail")
	}
}

func TestRegisterReplaces(t *testing.T) {
	r, _ := testRelay(t)
	r.Register("getStats", func(context.Context, Message) (any, error) {
		return map[string]string{"custom": "yes"}, nil
	})

	out, err := r.Dispatch(context.Background(), []byte(`{"action":"getStats"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "custom") {
		t.Fatalf("replacement handler not used: %s", out)
	}
}

func TestHTTPMessageEndpoint(t *testing.T) {
	r, s := testRelay(t)
	seedDecision(t, s)
	srv := httptest.NewServer(r.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/message", "application/json",
		strings.NewReader(`{"action":"getStats"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}

	var body StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Stats.TotalImpulsesStopped != 1 {
		t.Fatalf("stats over http: %+v", body.Stats)
	}
}

func TestHTTPReadRoutes(t *testing.T) {
	r, s := testRelay(t)
	seedDecision(t, s)
	srv := httptest.NewServer(r.Routes())
	defer srv.Close()

	for _, path := range []string{"/health", "/v1/stats", "/v1/records"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
	}
}

func TestHTTPBadMessage(t *testing.T) {
	r, _ := testRelay(t)
	srv := httptest.NewServer(r.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/message", "application/json",
		strings.NewReader(`{"action":"explode"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: %d", resp.StatusCode)
	}
}
