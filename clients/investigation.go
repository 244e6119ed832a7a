package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"loan-review-api/services"
)

// InvestigationClient queries the external compliance investigation service.
// The payload is stored verbatim and forwarded with the compliance decision,
// so the client does not interpret it.
type InvestigationClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewInvestigationClient(client *http.Client) *InvestigationClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &InvestigationClient{
		baseURL: os.Getenv("INVESTIGATION_SERVICE_URL"),
		apiKey:  os.Getenv("INVESTIGATION_SERVICE_API_KEY"),
		client:  client,
	}
}

func (c *InvestigationClient) Investigate(ctx context.Context, nationalID, taxID string) (json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, services.External("investigation service is not configured", nil)
	}

	body, err := json.Marshal(map[string]string{
		"national_id": nationalID,
		"tax_id":      taxID,
	})
	if err != nil {
		return nil, services.External("encode investigation request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/investigations", bytes.NewReader(body))
	if err != nil {
		return nil, services.External("build investigation request", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.External("investigation service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.External(fmt.Sprintf("investigation service error: status %d", resp.StatusCode), nil)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.External("read investigation response", err)
	}
	if !json.Valid(payload) {
		return nil, services.External("investigation service returned invalid JSON", nil)
	}
	return json.RawMessage(payload), nil
}
