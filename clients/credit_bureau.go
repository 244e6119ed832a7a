package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"loan-review-api/services"
)

// CreditBureauClient pulls credit reports from the external bureau. Callers
// must treat every error as a soft failure; the review pipeline substitutes a
// conservative default instead of blocking.
type CreditBureauClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewCreditBureauClient(client *http.Client) *CreditBureauClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &CreditBureauClient{
		baseURL: os.Getenv("CREDIT_BUREAU_URL"),
		apiKey:  os.Getenv("CREDIT_BUREAU_API_KEY"),
		client:  client,
	}
}

type creditReportResponse struct {
	Found  bool                   `json:"found"`
	Report *services.CreditReport `json:"report"`
}

func (c *CreditBureauClient) Score(ctx context.Context, nationalID, taxID string) (*services.CreditReport, error) {
	if c.baseURL == "" {
		return nil, services.External("credit bureau is not configured", nil)
	}

	reqURL, err := url.Parse(c.baseURL + "/v1/credit-reports")
	if err != nil {
		return nil, services.External("invalid credit bureau url", err)
	}
	q := reqURL.Query()
	q.Set("national_id", nationalID)
	q.Set("tax_id", taxID)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, services.External("build credit bureau request", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.External("credit bureau unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		report := services.ConservativeCreditReport()
		return report, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.External(fmt.Sprintf("credit bureau error: status %d", resp.StatusCode), nil)
	}

	var payload creditReportResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.External("decode credit bureau response", err)
	}
	if !payload.Found || payload.Report == nil {
		report := services.ConservativeCreditReport()
		return report, nil
	}
	payload.Report.Found = true
	return payload.Report, nil
}
