package rekor

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"seald/internal/domain"
	"seald/internal/infra/anchor"
)

const testSeed = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	signer, err := NewLocalSigner(testSeed)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	client, err := NewClient(srv.URL, signer, srv.Client())
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return client
}

func fingerprintOf(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

func TestSubmitParsesEntryUUID(t *testing.T) {
	fp := fingerprintOf("anchored content")
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/log/entries" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var entry hashedRekord
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			t.Fatalf("decode entry: %v", err)
		}
		if entry.Kind != "hashedrekord" || entry.Spec.Data.Hash.Value != fp {
			t.Fatalf("unexpected entry: %+v", entry)
		}
		if entry.Spec.Signature.Content == "" || entry.Spec.Signature.PublicKey.Content == "" {
			t.Fatal("entry must carry signature and public key")
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]rekorEntry{
			"uuid-123": {LogIndex: 7, IntegratedTime: 1764589000},
		})
	}))

	record, err := client.Submit(context.Background(), fp)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if record.Ref != "uuid-123" {
		t.Fatalf("expected entry uuid as ref, got %s", record.Ref)
	}
	if record.Fingerprint != fp {
		t.Fatalf("fingerprint mismatch: %s", record.Fingerprint)
	}
	if record.Timestamp.IsZero() {
		t.Fatal("expected integrated time")
	}
}

func TestFetchDecodesBodyFingerprint(t *testing.T) {
	fp := fingerprintOf("fetched content")
	body, _ := json.Marshal(hashedRekord{
		APIVersion: "0.0.1",
		Kind:       "hashedrekord",
		Spec: hashedRekordSpec{
			Data: hashedRekordData{Hash: hashedRekordHash{Algorithm: "sha256", Value: fp}},
		},
	})
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/v1/log/entries/") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]rekorEntry{
			"uuid-9": {IntegratedTime: 1764589000, Body: base64.StdEncoding.EncodeToString(body)},
		})
	}))

	record, err := client.Fetch(context.Background(), "uuid-9")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if record.Fingerprint != fp {
		t.Fatalf("expected fingerprint from entry body, got %q", record.Fingerprint)
	}
}

func TestFetchUnknownEntry(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	if _, err := client.Fetch(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitServerErrorIsRetryable(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "log down", http.StatusInternalServerError)
	}))
	_, err := client.Submit(context.Background(), fingerprintOf("x"))
	var perr *anchor.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if !perr.Retryable || perr.Code != domain.AnchorErrorProvider5xx {
		t.Fatalf("expected retryable 5xx, got %+v", perr)
	}
}

func TestHealth(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/log" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"treeSize": 42}`))
	}))
	health, err := client.Health(context.Background())
	if err != nil || health != domain.AnchorHealthy {
		t.Fatalf("expected healthy, got %s (%v)", health, err)
	}
}

func TestLocalSignerRejectsBadSeed(t *testing.T) {
	if _, err := NewLocalSigner("zz"); err == nil {
		t.Fatal("expected error for non-hex seed")
	}
	if _, err := NewLocalSigner("abcd"); err == nil {
		t.Fatal("expected error for short seed")
	}
}
