package storage

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/atinyakov/fasogadget/internal/models"
)

const (
	apiProducts = "/api/produits"
	apiOrders   = "/api/commandes"
)

// NewHTTPClient returns a client trusting only the CA in caFile. An empty
// caFile uses the system roots.
func NewHTTPClient(caFile string) (*http.Client, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	if caFile == "" {
		return client, nil
	}
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	client.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: caPool, MinVersion: tls.VersionTLS12},
	}
	return client, nil
}

// FetchProducts returns the catalog.
func FetchProducts(client *http.Client, baseURL string) ([]models.Product, error) {
	resp, err := client.Get(baseURL + apiProducts)
	if err != nil {
		return nil, fmt.Errorf("fetch products failed: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var products []models.Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

// SubmitOrder posts o and returns the order number assigned by the server.
func SubmitOrder(client *http.Client, baseURL string, o models.Order) (string, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return "", err
	}
	resp, err := client.Post(baseURL+apiOrders, "application/json", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("submit order failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &RejectedError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var result struct {
		Success bool   `json:"success"`
		Number  string `json:"numeroCommande"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.Success {
		return "", &RejectedError{StatusCode: resp.StatusCode, Message: result.Error}
	}
	return result.Number, nil
}

// RejectedError reports an order the server refused. Sending it again
// yields the same answer.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("order rejected (%d)", e.StatusCode)
	}
	return fmt.Sprintf("order rejected (%d): %s", e.StatusCode, e.Message)
}

// IsRejected reports whether err is a RejectedError.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("server error: %s", strings.TrimSpace(string(data)))
}
