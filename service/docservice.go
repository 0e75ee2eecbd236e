package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vistaprop/backoffice/config"
	"github.com/vistaprop/backoffice/pkg/reconcile"
)

// DocService is the HTTP client for the external document service, the
// authoritative source of document requirement records. Its list is
// independent of the contract's embedded list; the reconcile package merges
// the two.
type DocService struct {
	config     *config.DocServiceConfig
	httpClient *http.Client
}

// docServiceEnvelope is the response wrapper every document-service endpoint
// uses.
type docServiceEnvelope struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message,omitempty"`
	Data    []reconcile.RawDocument `json:"data,omitempty"`
	Doc     *reconcile.RawDocument  `json:"document,omitempty"`
}

func NewDocService(cfg *config.DocServiceConfig) *DocService {
	return &DocService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListDocuments fetches the service's document records for a contract.
func (s *DocService) ListDocuments(ctx context.Context, contractID string) ([]reconcile.RawDocument, error) {
	env, err := s.do(ctx, http.MethodGet, fmt.Sprintf("/contracts/%s/documents", contractID), nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// CreateDocument registers a new document requirement with the service and
// returns the created record.
func (s *DocService) CreateDocument(ctx context.Context, contractID string, doc reconcile.RawDocument) (*reconcile.RawDocument, error) {
	env, err := s.do(ctx, http.MethodPost, fmt.Sprintf("/contracts/%s/documents", contractID), doc)
	if err != nil {
		return nil, err
	}
	if env.Doc != nil {
		return env.Doc, nil
	}
	if len(env.Data) > 0 {
		return &env.Data[0], nil
	}
	return nil, fmt.Errorf("document service returned no document")
}

// DeleteDocument removes a document requirement from the service.
func (s *DocService) DeleteDocument(ctx context.Context, contractID, documentID string) error {
	_, err := s.do(ctx, http.MethodDelete, fmt.Sprintf("/contracts/%s/documents/%s", contractID, documentID), nil)
	return err
}

// SetRequired toggles the required flag of a document requirement.
func (s *DocService) SetRequired(ctx context.Context, contractID, documentID string, required bool) error {
	payload := map[string]bool{"required": required}
	_, err := s.do(ctx, http.MethodPut, fmt.Sprintf("/contracts/%s/documents/%s/required", contractID, documentID), payload)
	return err
}

func (s *DocService) do(ctx context.Context, method, path string, payload any) (*docServiceEnvelope, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env docServiceEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", err, string(respBody))
	}

	if !env.Success {
		if env.Message != "" {
			return nil, fmt.Errorf("document service error: %s", env.Message)
		}
		return nil, fmt.Errorf("document service request failed with status %d", resp.StatusCode)
	}

	return &env, nil
}
