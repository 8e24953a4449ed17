// client.go - HTTP client for the enrollment service.

package wallet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"anoncred/internal/enrollment"
)

// Client talks to a credentiald instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL (e.g. "http://host:8080").
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: http.DefaultClient}
}

type enrollRequest struct {
	PredicateID int    `json:"predicateId"`
	Commitment  string `json:"commitment"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Enroll submits the wallet's commitment for a predicate.
func (c *Client) Enroll(w *Wallet, predicateID int) error {
	cm, err := w.Commitment()
	if err != nil {
		return err
	}
	body, err := json.Marshal(enrollRequest{PredicateID: predicateID, Commitment: cm})
	if err != nil {
		return err
	}
	resp, err := c.http.Post(c.baseURL+"/enroll", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("enroll request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

// FetchBundle retrieves the public proof material for a predicate.
func (c *Client) FetchBundle(predicateID int) (*enrollment.ProofBundle, error) {
	resp, err := c.http.Get(fmt.Sprintf("%s/enroll/list?predicateId=%d", c.baseURL, predicateID))
	if err != nil {
		return nil, fmt.Errorf("list request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	var bundle enrollment.ProofBundle
	if err := json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	return &bundle, nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	var e errorResponse
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return fmt.Errorf("server rejected request (%d): %s", resp.StatusCode, e.Error)
	}
	return fmt.Errorf("server rejected request (%d): %s", resp.StatusCode, string(data))
}
