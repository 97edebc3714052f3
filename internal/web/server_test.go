package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/adekpp/cli-image-compressor/internal/config"
	"github.com/adekpp/cli-image-compressor/internal/report"
)

func newTestServer() *Server {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewServer(config.DefaultOptions(), log)
}

func TestTryBeginBatchSingleSlot(t *testing.T) {
	s := newTestServer()

	if !s.tryBeginBatch() {
		t.Fatal("first claim should win")
	}
	if s.tryBeginBatch() {
		t.Error("second claim while running should lose")
	}

	s.finishBatch(report.Summary{})
	if !s.tryBeginBatch() {
		t.Error("claim after finish should win again")
	}
}

func TestTryBeginBatchConcurrentClaims(t *testing.T) {
	s := newTestServer()

	const claimers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.tryBeginBatch() {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("%d concurrent claims won, want exactly 1", winners)
	}
}

func TestHandleCompressConflict(t *testing.T) {
	dir := t.TempDir()
	// Discovery needs one supported file; dry-run never decodes it.
	if err := os.WriteFile(filepath.Join(dir, "a.jpg"), []byte{0xFF, 0xD8, 0xFF, 0xD9}, 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	s := newTestServer()
	if !s.tryBeginBatch() {
		t.Fatal("failed to occupy the batch slot")
	}

	body := strings.NewReader(`{"path":"` + dir + `","dry_run":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/compress", body)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d while a batch is running", rec.Code, http.StatusConflict)
	}
}

func TestHandleCompressRequiresPath(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/compress", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d for a missing path", rec.Code, http.StatusBadRequest)
	}
}
