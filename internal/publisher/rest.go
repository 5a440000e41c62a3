package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// RESTPublisher posts content as JSON to a provider's publish endpoint with
// an OAuth2 bearer token. It carries no provider-specific wire knowledge;
// each provider gets its own instance pointed at its endpoint.
type RESTPublisher struct {
	provider string
	endpoint string
	client   *http.Client
}

func NewRESTPublisher(provider, endpoint string) *RESTPublisher {
	return &RESTPublisher{
		provider: provider,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type publishResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

func (p *RESTPublisher) Publish(ctx context.Context, req *Request) (string, error) {
	body, err := json.Marshal(req.Content)
	if err != nil {
		return "", Permanent(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}
	req.Credential.SetAuthHeader(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		// Transport-level failures are worth another try.
		return "", Transient(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Transient(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Info("publish rejected", "provider", p.provider, "status", resp.StatusCode)
		err := fmt.Errorf("%s publish: status %d", p.provider, resp.StatusCode)
		if ClassifyStatus(resp.StatusCode) == KindTransient {
			return "", Transient(err)
		}
		return "", Permanent(err)
	}

	var parsed publishResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", Transient(fmt.Errorf("%s publish: decode response: %w", p.provider, err))
	}
	if parsed.ID == "" {
		return "", Permanent(fmt.Errorf("%s publish: response missing post id", p.provider))
	}

	return parsed.ID, nil
}
