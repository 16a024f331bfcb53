package main

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	applog "budget/internal/log"
)

func TestRunReturnsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	_, port, _ := net.SplitHostPort(ln.Addr().String())

	dbPath := filepath.Join(t.TempDir(), "budget.db")
	t.Setenv("PORT", port)
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", dbPath)
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	logger := applog.New(applog.Config{Format: applog.FormatJSON, Output: io.Discard})
	err = run(logger)
	if err == nil {
		t.Fatal("expected an error when the port is taken")
	}
	if !strings.Contains(err.Error(), "listen on port "+port) {
		t.Errorf("error = %v", err)
	}
	if _, statErr := os.Stat(dbPath); statErr != nil {
		t.Errorf("database was not created before the listen failure: %v", statErr)
	}
}
