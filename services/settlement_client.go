// services/settlement_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"hunt-reward-system/utils"

	"github.com/shopspring/decimal"
)

// TransferResult is the settlement rail's answer for one transfer attempt.
type TransferResult struct {
	Success bool   `json:"success"`
	TxRef   string `json:"tx_ref"`
	Error   string `json:"error,omitempty"`
}

// SettlementRail moves token value to a participant wallet. The orchestrator
// makes at most one Transfer attempt per ledger-record lifecycle — failures are
// surfaced, never silently retried.
type SettlementRail interface {
	Transfer(ctx context.Context, walletAddress string, amount decimal.Decimal) (*TransferResult, error)
	Healthy(ctx context.Context) bool
}

// SettlementClient talks to the external token-transfer service.
type SettlementClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewSettlementClient(baseURL, token string) *SettlementClient {
	return &SettlementClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.HTTPClient,
	}
}

// Transfer calls POST /transfer on the settlement service. The amount travels
// as a decimal string end-to-end.
func (c *SettlementClient) Transfer(ctx context.Context, walletAddress string, amount decimal.Decimal) (*TransferResult, error) {
	url := fmt.Sprintf("%s/transfer", c.BaseURL)

	reqBody := map[string]interface{}{
		"destination": walletAddress,
		"amount":      amount.String(),
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("settlement service unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode != http.StatusOK {
		log.Printf("SettlementService /transfer returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("settlement transfer failed: %d", resp.StatusCode)
	}

	var out TransferResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode settlement response: %w", err)
	}

	return &out, nil
}

// Healthy is the advisory pre-flight check run before any ledger row is
// created. It is an optimization, not a substitute for the real attempt.
func (c *SettlementClient) Healthy(ctx context.Context) bool {
	if c.BaseURL == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/health", c.BaseURL), nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		log.Printf("⚠️  Settlement health check failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
