package http_test

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	httpnet "github.com/anisharma07/tlock/networks/http"
)

func TestChainInfoAndBeacon(t *testing.T) {
	sig := []byte{0xde, 0xad, 0xbe, 0xef}

	mux := http.NewServeMux()
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"public_key":"aabbcc","period":30,"genesis_time":1600000000,"hash":"deadbeef","schemeID":"pedersen-bls-unchained"}`)
	})
	mux.HandleFunc("/public/42", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"round":42,"signature":"%s"}`, hex.EncodeToString(sig))
	})
	mux.HandleFunc("/public/9999", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := httpnet.New(srv.URL, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	info, err := client.ChainInfo(ctx)
	if err != nil {
		t.Fatalf("ChainInfo: %v", err)
	}
	if info.SchemeID != "pedersen-bls-unchained" || info.ChainHash != "deadbeef" {
		t.Fatalf("unexpected ChainInfo: %+v", info)
	}

	b, err := client.Beacon(ctx, 42)
	if err != nil {
		t.Fatalf("Beacon: %v", err)
	}
	if b.Round != 42 || hex.EncodeToString(b.Signature) != hex.EncodeToString(sig) {
		t.Fatalf("unexpected Beacon: %+v", b)
	}

	if _, err := client.Beacon(ctx, 9999); err == nil {
		t.Fatal("expected too-early error for unproduced round")
	}
}
