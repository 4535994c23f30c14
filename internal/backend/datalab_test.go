package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"canhoto-ocr/pkg/config"

	"go.uber.org/zap"
)

func testDatalabConfig(baseURL string) *config.DatalabConfig {
	return &config.DatalabConfig{
		APIKey:          "test-key",
		BaseURL:         baseURL,
		Endpoint:        "ocr",
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 10,
		HTTPTimeout:     5 * time.Second,
		SkipCache:       true,
		Langs:           "pt",
	}
}

func writeTempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "canhoto.png")
	if err := os.WriteFile(path, []byte("not-a-real-png"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDatalabProcess(t *testing.T) {
	polls := 0
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/ocr", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("submit method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("X-API-Key = %q, want test-key", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("skip_cache"); got != "true" {
			t.Errorf("skip_cache = %q, want true", got)
		}
		if got := r.FormValue("langs"); got != "pt" {
			t.Errorf("langs = %q, want pt", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("file part missing: %v", err)
		}
		fmt.Fprintf(w, `{"request_id":"req-42","request_check_url":"%s/check/req-42"}`, server.URL)
	})
	mux.HandleFunc("/check/req-42", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("poll X-API-Key = %q, want test-key", got)
		}
		polls++
		if polls < 3 {
			fmt.Fprint(w, `{"status":"processing"}`)
			return
		}
		fmt.Fprint(w, `{"status":"complete","success":true,"page_count":1,"pages":[{"page":1,"text_lines":[{"text":"Recebedor: Maria","confidence":0.93}]}]}`)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	d := NewDatalab(testDatalabConfig(server.URL), zap.NewNop())
	defer d.Close()

	n, err := d.Process(context.Background(), writeTempImage(t))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if n.RequestID != "req-42" {
		t.Fatalf("request id = %q, want req-42", n.RequestID)
	}
	if len(n.Lines) != 1 || n.Lines[0].Text != "Recebedor: Maria" {
		t.Fatalf("lines = %+v, want one line", n.Lines)
	}
	if polls != 3 {
		t.Fatalf("polls = %d, want 3", polls)
	}
}

func TestDatalabProcessFailedStatus(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/ocr", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"request_id":"req-1","request_check_url":"%s/check"}`, server.URL)
	})
	mux.HandleFunc("/check", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"failed","error":"unreadable file"}`)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	d := NewDatalab(testDatalabConfig(server.URL), zap.NewNop())
	defer d.Close()

	if _, err := d.Process(context.Background(), writeTempImage(t)); err == nil {
		t.Fatal("expected error for failed status")
	}
}

func TestDatalabProcessSubmitRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ocr", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"request_id":"req-1","request_check_url":"http://unused","success":false,"error":"quota exceeded"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	d := NewDatalab(testDatalabConfig(server.URL), zap.NewNop())
	defer d.Close()

	if _, err := d.Process(context.Background(), writeTempImage(t)); err == nil {
		t.Fatal("expected error for rejected submit")
	}
}

func TestDatalabProcessPollTimeout(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/ocr", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"request_id":"req-1","request_check_url":"%s/check"}`, server.URL)
	})
	mux.HandleFunc("/check", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"processing"}`)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	cfg := testDatalabConfig(server.URL)
	cfg.MaxPollAttempts = 3
	d := NewDatalab(cfg, zap.NewNop())
	defer d.Close()

	_, err := d.Process(context.Background(), writeTempImage(t))
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("err = %v, want ErrPollTimeout", err)
	}
}

func TestDatalabProcessContextCanceled(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/ocr", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"request_id":"req-1","request_check_url":"%s/check"}`, server.URL)
	})
	mux.HandleFunc("/check", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"processing"}`)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	cfg := testDatalabConfig(server.URL)
	cfg.PollInterval = time.Minute
	d := NewDatalab(cfg, zap.NewNop())
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := d.Process(ctx, writeTempImage(t))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context deadline", err)
	}
}
