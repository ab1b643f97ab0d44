package gateway

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ErrUnavailable marks transient transport failures. The caller may retry
// with the same payload.
var ErrUnavailable = errors.New("payment gateway unavailable")

// ErrRejected marks a definitive provider refusal (bad payload or
// checksum). Do not retry with the same payload.
var ErrRejected = errors.New("payment gateway rejected request")

const (
	payPath    = "/pg/v1/pay"
	statusPath = "/pg/v1/status"
)

// Gateway initiates hosted-payment-page transactions and reports their
// final status. Implemented by Client; faked in tests.
type Gateway interface {
	Initiate(req InitiateRequest) (redirectURL string, err error)
	Status(merchantTxnID string) (StatusResult, error)
}

// InitiateRequest is the payment-intent payload.
type InitiateRequest struct {
	MerchantTxnID string
	UserID        string
	Amount        int64 // paise
}

// StatusResult is the provider's view of one transaction.
type StatusResult struct {
	Success     bool
	Code        string // e.g. PAYMENT_SUCCESS, PAYMENT_ERROR, PAYMENT_PENDING
	ProviderRef string
}

// Pending reports whether the provider has not reached a terminal status.
func (r StatusResult) Pending() bool {
	return !r.Success && r.Code == "PAYMENT_PENDING"
}

// Client talks to the hosted payment page API. Every request carries an
// X-VERIFY checksum: sha256(base64 payload + path + salt key) + "###" +
// salt index.
type Client struct {
	BaseURL     string
	MerchantID  string
	SaltKey     string
	SaltIndex   string
	RedirectURL string
	CallbackURL string
	HTTP        *http.Client
}

// NewClientFromEnv builds the production client from GATEWAY_* env vars.
func NewClientFromEnv() (*Client, error) {
	c := &Client{
		BaseURL:     os.Getenv("GATEWAY_BASE_URL"),
		MerchantID:  os.Getenv("GATEWAY_MERCHANT_ID"),
		SaltKey:     os.Getenv("GATEWAY_SALT_KEY"),
		SaltIndex:   os.Getenv("GATEWAY_SALT_INDEX"),
		RedirectURL: os.Getenv("GATEWAY_REDIRECT_URL"),
		CallbackURL: os.Getenv("GATEWAY_CALLBACK_URL"),
		HTTP:        &http.Client{Timeout: 15 * time.Second},
	}
	if c.SaltIndex == "" {
		c.SaltIndex = "1"
	}
	if c.BaseURL == "" || c.MerchantID == "" || c.SaltKey == "" {
		return nil, fmt.Errorf("gateway configuration missing")
	}
	return c, nil
}

// Checksum computes the X-VERIFY value over data + salt key.
func (c *Client) Checksum(data string) string {
	sum := sha256.Sum256([]byte(data + c.SaltKey))
	return hex.EncodeToString(sum[:]) + "###" + c.SaltIndex
}

type initiateResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		InstrumentResponse struct {
			RedirectInfo struct {
				URL string `json:"url"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

func (c *Client) Initiate(req InitiateRequest) (string, error) {
	payload := map[string]interface{}{
		"merchantId":            c.MerchantID,
		"merchantTransactionId": req.MerchantTxnID,
		"merchantUserId":        req.UserID,
		"amount":                req.Amount,
		"redirectUrl":           c.RedirectURL,
		"redirectMode":          "REDIRECT",
		"callbackUrl":           c.CallbackURL,
		"paymentInstrument": map[string]string{
			"type": "PAY_PAGE",
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal initiate payload: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(jsonData)

	body, _ := json.Marshal(map[string]string{"request": encoded})
	httpReq, err := http.NewRequest("POST", c.BaseURL+payPath, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("build initiate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-VERIFY", c.Checksum(encoded+payPath))

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: gateway returned %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d %s", ErrRejected, resp.StatusCode, string(raw))
	}

	var out initiateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("parse initiate response: %w", err)
	}
	if !out.Success {
		return "", fmt.Errorf("%w: %s %s", ErrRejected, out.Code, out.Message)
	}
	if out.Data.InstrumentResponse.RedirectInfo.URL == "" {
		return "", fmt.Errorf("%w: empty redirect url", ErrRejected)
	}
	return out.Data.InstrumentResponse.RedirectInfo.URL, nil
}

type statusResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TransactionID string `json:"transactionId"`
		State         string `json:"state"`
	} `json:"data"`
}

func (c *Client) Status(merchantTxnID string) (StatusResult, error) {
	path := fmt.Sprintf("%s/%s/%s", statusPath, c.MerchantID, merchantTxnID)
	httpReq, err := http.NewRequest("GET", c.BaseURL+path, nil)
	if err != nil {
		return StatusResult{}, fmt.Errorf("build status request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-MERCHANT-ID", c.MerchantID)
	httpReq.Header.Set("X-VERIFY", c.Checksum(path))

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return StatusResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 500 {
		return StatusResult{}, fmt.Errorf("%w: gateway returned %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return StatusResult{}, fmt.Errorf("%w: %d %s", ErrRejected, resp.StatusCode, string(raw))
	}

	var out statusResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return StatusResult{}, fmt.Errorf("parse status response: %w", err)
	}
	return StatusResult{
		Success:     out.Success && out.Code == "PAYMENT_SUCCESS",
		Code:        out.Code,
		ProviderRef: out.Data.TransactionID,
	}, nil
}
