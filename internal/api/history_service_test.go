package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vidmint/internal/api"
	"vidmint/internal/journal"
	"vidmint/internal/testsupport"
)

func seedJournal(t *testing.T) *journal.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"older", "newer"} {
		err := store.RecordSession(ctx, journal.SessionRecord{
			ID:        id,
			Step:      "Done",
			VideoID:   testVideoID,
			Title:     "Demo " + id,
			CID:       "bafkrei" + id,
			TxHash:    "0xabc" + id,
			TxStatus:  "confirmed",
			CreatedAt: base,
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordSession: %v", err)
		}
	}
	if err := store.RecordTransaction(ctx, journal.TransactionRecord{
		SessionID:   "newer",
		TxHash:      "0xabcnewer",
		VideoID:     testVideoID,
		CID:         "bafkreinewer",
		Status:      "confirmed",
		BlockNumber: 7,
	}); err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	return store
}

func TestHistoryServiceList(t *testing.T) {
	svc := api.NewHistoryService(seedJournal(t))
	got, err := svc.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected session count: %d", len(got))
	}
	if got[0].ID != "newer" {
		t.Fatalf("expected newest first, got %q", got[0].ID)
	}
	if got[0].UpdatedAt != "2026-03-01T12:01:00.000Z" {
		t.Fatalf("unexpected timestamp format %q", got[0].UpdatedAt)
	}
}

func TestHistoryServiceNilStore(t *testing.T) {
	svc := api.NewHistoryService(nil)
	got, err := svc.List(context.Background(), 5)
	if err != nil || got != nil {
		t.Fatalf("expected empty result, got %v %v", got, err)
	}
	item, err := svc.Describe(context.Background(), "x")
	if err != nil || item != nil {
		t.Fatalf("expected nil item, got %v %v", item, err)
	}
}

func TestHistoryRoutes(t *testing.T) {
	handler := api.NewHandler(api.Options{History: seedJournal(t)})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history?limit=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", w.Code)
	}
	var list api.HistoryListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Sessions) != 1 || list.Sessions[0].ID != "newer" {
		t.Fatalf("unexpected history %+v", list.Sessions)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history/newer", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("history item: expected 200, got %d", w.Code)
	}
	var item api.HistoryItemResponse
	if err := json.Unmarshal(w.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	if len(item.Transactions) != 1 || item.Transactions[0].BlockNumber != 7 {
		t.Fatalf("unexpected transactions %+v", item.Transactions)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing item: expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/history?limit=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", w.Code)
	}
}
