package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig(okHandler())

	if config.Address != ":8090" {
		t.Errorf("Expected address :8090, got %s", config.Address)
	}
	if config.ReadTimeout != 15*time.Second {
		t.Errorf("Expected ReadTimeout 15s, got %v", config.ReadTimeout)
	}
	if config.IdleTimeout != 60*time.Second {
		t.Errorf("Expected IdleTimeout 60s, got %v", config.IdleTimeout)
	}
	if config.MaxHeaderBytes != 1<<20 {
		t.Errorf("Expected MaxHeaderBytes 1MB, got %d", config.MaxHeaderBytes)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("Expected error for nil config")
	}
	if _, err := New(&Config{Address: ":0"}); err == nil {
		t.Error("Expected error for nil handler")
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	config := DefaultConfig(okHandler())
	config.Address = "127.0.0.1:0"

	srv, err := New(config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	if srv.Addr() == "127.0.0.1:0" {
		t.Fatal("Expected Addr to report the bound port")
	}

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	resp, err := http.Get("http://" + srv.Addr())
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "OK" {
		t.Errorf("Expected body OK, got %q", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Expected clean stop, got %v", err)
	}
}

func TestServer_ListenError(t *testing.T) {
	srv, err := New(&Config{Address: "256.0.0.1:bad", Handler: okHandler()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := srv.Start(); err == nil {
		t.Error("Expected listen error")
	}
}
