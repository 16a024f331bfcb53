package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"budget/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the subset of the Sheets values API the client uses,
// backed by an in-memory grid of one sheet.
type fakeSheets struct {
	mu   sync.Mutex
	rows map[int][]any
}

var rangeRE = regexp.MustCompile(`^Bills!A(\d*):D(\d*)$`)

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/v4/spreadsheets/sheet-id/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rng := strings.TrimPrefix(r.URL.Path, prefix)
	clear := strings.HasSuffix(rng, ":clear")
	rng = strings.TrimSuffix(rng, ":clear")
	m := rangeRE.FindStringSubmatch(rng)
	if m == nil {
		http.Error(w, "bad range "+rng, http.StatusBadRequest)
		return
	}
	from, _ := strconv.Atoi(m[1])
	to, _ := strconv.Atoi(m[2])

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "majorDimension": "ROWS", "values": f.grid()})
	case r.Method == http.MethodPost && clear:
		for row := range f.rows {
			if from == 0 || (row >= from && row <= to) {
				delete(f.rows, row)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id"})
	case r.Method == http.MethodPut:
		if r.URL.Query().Get("valueInputOption") != "RAW" {
			http.Error(w, "expected RAW input", http.StatusBadRequest)
			return
		}
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for i, row := range vr.Values {
			f.rows[from+i] = row
		}
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id", "updatedRows": len(vr.Values)})
	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func (f *fakeSheets) grid() [][]any {
	last := 0
	for row := range f.rows {
		if row > last {
			last = row
		}
	}
	out := make([][]any, last)
	for i := range out {
		out[i] = f.rows[i+1]
		if out[i] == nil {
			out[i] = []any{}
		}
	}
	return out
}

func newFakeClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{rows: map[int][]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, "sheet-id", ""), fake
}

func bill(id int64, date, name, amount string) core.Bill {
	b, err := core.BillForm{DueDate: date, BillName: name, AmountDue: amount}.Parse()
	if err != nil {
		panic(err)
	}
	b.ID = id
	return b
}

func TestClientUpsertAndRemove(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)

	if err := c.UpsertBill(ctx, bill(1, "2024-03-01", "Rent", "1200")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := c.UpsertBill(ctx, bill(2, "2024-03-20", "Internet", "60")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if cellString(fake.rows[1][0]) != "ID" {
		t.Fatalf("header not written: %v", fake.rows[1])
	}

	// Updating an existing id rewrites its row in place.
	if err := c.UpsertBill(ctx, bill(1, "2024-04-01", "Rent", "1250.50")); err != nil {
		t.Fatalf("upsert existing: %v", err)
	}
	mirrored, err := c.ListMirrored(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mirrored) != 2 || mirrored[0].ID != 1 || mirrored[0].AmountDue.String() != "1250.50" || mirrored[0].DueDate.String() != "2024-04-01" {
		t.Fatalf("unexpected mirror: %+v", mirrored)
	}

	if err := c.RemoveBill(ctx, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := c.RemoveBill(ctx, 99); err != nil {
		t.Fatalf("removing a missing row should be a no-op: %v", err)
	}
	mirrored, _ = c.ListMirrored(ctx)
	if len(mirrored) != 1 || mirrored[0].ID != 2 {
		t.Fatalf("unexpected mirror after remove: %+v", mirrored)
	}

	// A new bill lands after the last used row, not in the cleared gap.
	if err := c.UpsertBill(ctx, bill(3, "2024-05-01", "Gym", "35")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if findRow(fake.grid(), 3) != 4 {
		t.Fatalf("bill 3 at row %d", findRow(fake.grid(), 3))
	}
}

func TestClientReplaceAll(t *testing.T) {
	ctx := context.Background()
	c, fake := newFakeClient(t)
	fake.rows[7] = []any{float64(77), "2020-01-01", "stale", "1"}

	bills := []core.Bill{
		bill(1, "2024-03-01", "Rent", "1200"),
		bill(2, "2024-03-20", "Internet", "60"),
	}
	if err := c.ReplaceAll(ctx, bills); err != nil {
		t.Fatalf("replace: %v", err)
	}
	mirrored, err := c.ListMirrored(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mirrored) != 2 || mirrored[1].Name != "Internet" {
		t.Fatalf("unexpected mirror: %+v", mirrored)
	}
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := New(context.Background(), Options{}); err == nil || !strings.Contains(err.Error(), "GOOGLE_SPREADSHEET_ID") {
		t.Fatalf("expected missing spreadsheet error, got %v", err)
	}
	if _, err := New(context.Background(), Options{SpreadsheetID: "x"}); err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
	if _, err := New(context.Background(), Options{SpreadsheetID: "x", ServiceAccountFile: "/nonexistent/sa.json"}); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestNilServiceFails(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetName: "Bills"}
	if err := c.UpsertBill(context.Background(), bill(1, "2024-03-01", "Rent", "1")); err == nil {
		t.Fatalf("expected error without service")
	}
	if err := c.ReplaceAll(context.Background(), nil); err == nil {
		t.Fatalf("expected error without service")
	}
}
