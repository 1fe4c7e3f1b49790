// Package rekor anchors fingerprints into a Rekor transparency log as an
// alternative ledger backend. Entries go in as hashedrekord records; the
// entry UUID becomes the anchor ref.
package rekor

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"seald/internal/domain"
	"seald/internal/infra/anchor"
)

// Signer produces the signature a hashedrekord entry carries over the
// fingerprint digest.
type Signer interface {
	Sign(ctx context.Context, digest []byte) (sig []byte, pubKey []byte, err error)
}

// LocalSigner signs with an in-process ed25519 key derived from a seed.
type LocalSigner struct {
	key ed25519.PrivateKey
}

func NewLocalSigner(seedHex string) (*LocalSigner, error) {
	seed, err := hex.DecodeString(strings.TrimSpace(seedHex))
	if err != nil {
		return nil, errors.New("signer seed is not valid hex")
	}
	if len(seed) != ed25519.SeedSize {
		return nil, errors.New("signer seed must be 32 bytes")
	}
	return &LocalSigner{key: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *LocalSigner) Sign(_ context.Context, digest []byte) ([]byte, []byte, error) {
	sig := ed25519.Sign(s.key, digest)
	pub := s.key.Public().(ed25519.PublicKey)
	return sig, []byte(pub), nil
}

type Client struct {
	baseURL string
	signer  Signer
	httpDo  func(*http.Request) (*http.Response, error)
}

const maxResponseBytes = 256 * 1024

func NewClient(baseURL string, signer Signer, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("rekor base url is required")
	}
	if signer == nil {
		return nil, errors.New("rekor signer is required")
	}
	doer := http.DefaultClient.Do
	if httpClient != nil {
		doer = httpClient.Do
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  signer,
		httpDo:  doer,
	}, nil
}

func (c *Client) ProviderName() string {
	return "rekor"
}

func (c *Client) Submit(ctx context.Context, fingerprint string) (domain.AnchorRecord, error) {
	digest, err := hex.DecodeString(fingerprint)
	if err != nil {
		return domain.AnchorRecord{}, &anchor.ProviderError{Code: domain.AnchorErrorProviderError, Err: err}
	}
	signature, pubKey, err := c.signer.Sign(ctx, digest)
	if err != nil {
		return domain.AnchorRecord{}, err
	}
	entry := hashedRekord{
		APIVersion: "0.0.1",
		Kind:       "hashedrekord",
		Spec: hashedRekordSpec{
			Data: hashedRekordData{
				Hash: hashedRekordHash{Algorithm: "sha256", Value: fingerprint},
			},
			Signature: hashedRekordSignature{
				Content: base64.StdEncoding.EncodeToString(signature),
				PublicKey: hashedRekordPublicKey{
					Content: base64.StdEncoding.EncodeToString(pubKey),
				},
			},
		},
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return domain.AnchorRecord{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/log/entries", bytes.NewReader(body))
	if err != nil {
		return domain.AnchorRecord{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(ctx, req)
	if err != nil {
		return domain.AnchorRecord{}, err
	}
	uuid, meta := parseEntry(respBody)
	if uuid == "" {
		return domain.AnchorRecord{}, &anchor.ProviderError{Code: domain.AnchorErrorProviderError, Err: errors.New("missing entry uuid")}
	}
	return domain.AnchorRecord{
		Ref:         uuid,
		Fingerprint: fingerprint,
		Timestamp:   integratedTime(meta),
		Status:      "anchored",
	}, nil
}

func (c *Client) Fetch(ctx context.Context, ref string) (domain.AnchorRecord, error) {
	if strings.TrimSpace(ref) == "" {
		return domain.AnchorRecord{}, domain.ErrNotFound
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/log/entries/"+ref, nil)
	if err != nil {
		return domain.AnchorRecord{}, err
	}
	respBody, err := c.do(ctx, req)
	if err != nil {
		var perr *anchor.ProviderError
		if errors.As(err, &perr) && perr.Code == codeNotFound {
			return domain.AnchorRecord{}, domain.ErrNotFound
		}
		return domain.AnchorRecord{}, err
	}
	uuid, meta := parseEntry(respBody)
	if uuid == "" {
		uuid = ref
	}
	return domain.AnchorRecord{
		Ref:         uuid,
		Fingerprint: meta.hashValue(),
		Timestamp:   integratedTime(meta),
		Status:      "anchored",
	}, nil
}

func (c *Client) Health(ctx context.Context) (domain.AnchorHealth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/log", nil)
	if err != nil {
		return domain.AnchorDown, err
	}
	if _, err := c.do(ctx, req); err != nil {
		return domain.AnchorDown, err
	}
	return domain.AnchorHealthy, nil
}

const codeNotFound = "NOT_FOUND"

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := c.httpDo(req)
	if err != nil {
		return nil, &anchor.ProviderError{Code: errorToCode(ctx, err), Retryable: true, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &anchor.ProviderError{Code: errorToCode(ctx, err), Retryable: true, Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &anchor.ProviderError{Code: codeNotFound, Err: errors.New(resp.Status)}
	}
	code := domain.AnchorErrorProviderError
	retryable := false
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		code, retryable = domain.AnchorErrorRateLimit, true
	case resp.StatusCode >= 500:
		code, retryable = domain.AnchorErrorProvider5xx, true
	}
	return nil, &anchor.ProviderError{Code: code, Retryable: retryable, Err: errors.New(resp.Status)}
}

func errorToCode(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.AnchorErrorTimeout
	}
	return domain.AnchorErrorNetwork
}

// parseEntry unwraps Rekor's {uuid: entry} response shape.
func parseEntry(payload []byte) (string, rekorEntry) {
	var raw map[string]rekorEntry
	if err := json.Unmarshal(payload, &raw); err != nil {
		return "", rekorEntry{}
	}
	for uuid, entry := range raw {
		return uuid, entry
	}
	return "", rekorEntry{}
}

func integratedTime(entry rekorEntry) time.Time {
	if entry.IntegratedTime <= 0 {
		return time.Time{}
	}
	return time.Unix(entry.IntegratedTime, 0).UTC()
}

type rekorEntry struct {
	LogIndex       int64  `json:"logIndex"`
	IntegratedTime int64  `json:"integratedTime"`
	Body           string `json:"body"`
}

// hashValue digs the anchored fingerprint out of the base64 entry body.
func (e rekorEntry) hashValue() string {
	if e.Body == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(e.Body)
	if err != nil {
		return ""
	}
	var entry hashedRekord
	if err := json.Unmarshal(decoded, &entry); err != nil {
		return ""
	}
	return entry.Spec.Data.Hash.Value
}

type hashedRekord struct {
	APIVersion string           `json:"apiVersion"`
	Kind       string           `json:"kind"`
	Spec       hashedRekordSpec `json:"spec"`
}

type hashedRekordSpec struct {
	Data      hashedRekordData      `json:"data"`
	Signature hashedRekordSignature `json:"signature"`
}

type hashedRekordData struct {
	Hash hashedRekordHash `json:"hash"`
}

type hashedRekordHash struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

type hashedRekordSignature struct {
	Content   string                `json:"content"`
	PublicKey hashedRekordPublicKey `json:"publicKey"`
}

type hashedRekordPublicKey struct {
	Content string `json:"content"`
}
