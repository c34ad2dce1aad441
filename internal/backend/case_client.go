package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"lex-intake/internal/auth"
	"lex-intake/internal/domain/intake"
)

// CaseClient talks to the remote case API: case creation, document upload,
// and upload limits. The bearer credential comes from the injected
// TokenProvider, never from shared mutable state.
type CaseClient struct {
	baseURL    string
	tokens     auth.TokenProvider
	httpClient *http.Client
}

func NewCaseClient(baseURL string, tokens auth.TokenProvider, timeout time.Duration) *CaseClient {
	return &CaseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateCase opens a backend case record and returns its opaque identity.
func (c *CaseClient) CreateCase(ctx context.Context, input CreateCaseInput) (CaseRecord, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return CaseRecord{}, fmt.Errorf("marshal case input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/cases", bytes.NewReader(payload))
	if err != nil {
		return CaseRecord{}, fmt.Errorf("create case request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return CaseRecord{}, err
	}

	body, err := c.do(req)
	if err != nil {
		return CaseRecord{}, err
	}

	var wire caseWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return CaseRecord{}, fmt.Errorf("decode case response: %w", err)
	}
	id := wire.ID
	if id == "" {
		id = wire.CaseID
	}
	if id == "" {
		return CaseRecord{}, errors.New("case response missing case id")
	}
	return CaseRecord{ID: id}, nil
}

// UploadDocuments sends the attachments to the given case as one multipart
// request, in the order given. The response enumerates per-file results and
// per-file errors; already-stored files are never rolled back.
func (c *CaseClient) UploadDocuments(ctx context.Context, caseID string, attachments []intake.Attachment) (UploadOutcome, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, att := range attachments {
		part, err := writer.CreateFormFile("files", att.FileName)
		if err != nil {
			return UploadOutcome{}, fmt.Errorf("create multipart file: %w", err)
		}
		if _, err := part.Write(att.Data); err != nil {
			return UploadOutcome{}, fmt.Errorf("write multipart file: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return UploadOutcome{}, fmt.Errorf("close multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/v1/cases/%s/documents", c.baseURL, caseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return UploadOutcome{}, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := c.authorize(ctx, req); err != nil {
		return UploadOutcome{}, err
	}

	respBody, err := c.do(req)
	if err != nil {
		return UploadOutcome{}, err
	}

	var wire uploadWire
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return UploadOutcome{}, fmt.Errorf("decode upload response: %w", err)
	}
	return UploadOutcome{Files: wire.Files, Errors: wire.Errors}, nil
}

// FetchLimits retrieves backend-supplied upload limits. Callers fall back to
// the built-in defaults when this fails.
func (c *CaseClient) FetchLimits(ctx context.Context) (intake.UploadLimits, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/uploads/limits", nil)
	if err != nil {
		return intake.UploadLimits{}, fmt.Errorf("create limits request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return intake.UploadLimits{}, err
	}

	body, err := c.do(req)
	if err != nil {
		return intake.UploadLimits{}, err
	}

	var wire limitsWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return intake.UploadLimits{}, fmt.Errorf("decode limits response: %w", err)
	}

	limits := intake.UploadLimits{
		MaxFileSizeBytes:  wire.MaxFileSizeBytes,
		MaxFileCount:      wire.MaxFileCount,
		AllowedExtensions: wire.AllowedExtensions,
	}
	if limits.MaxFileSizeBytes == 0 && wire.MaxFileSizeMB > 0 {
		limits.MaxFileSizeBytes = wire.MaxFileSizeMB * 1024 * 1024
	}
	limits = limits.Normalize()
	if !limits.Valid() {
		return intake.UploadLimits{}, errors.New("limits response incomplete")
	}
	return limits, nil
}

func (c *CaseClient) authorize(ctx context.Context, req *http.Request) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("resolve credential: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// do executes the request and returns the data portion of the envelope, or
// the raw body when the API answers without one.
func (c *CaseClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("case api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read case api response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, apiError(resp.StatusCode, body)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
		return env.Data, nil
	}
	return body, nil
}

// apiError surfaces the raw server message where available.
func apiError(status int, body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Error != "" {
			return fmt.Errorf("case api (HTTP %d): %s", status, env.Error)
		}
		if env.Message != "" {
			return fmt.Errorf("case api (HTTP %d): %s", status, env.Message)
		}
	}
	return fmt.Errorf("case api (HTTP %d): %s", status, strings.TrimSpace(string(body)))
}
