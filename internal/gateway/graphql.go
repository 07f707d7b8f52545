package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/internal/resilience"
)

const defaultGraphQLEndpoint = "https://api.github.com/graphql"

// GraphQLClient posts structured queries to the GitHub GraphQL endpoint
// through a pooled transport with circuit breaker protection.
type GraphQLClient struct {
	endpoint string
	token    string
	pool     *resilience.ConnectionPool
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// NewGraphQLClient creates a GraphQL client. An empty endpoint means the
// public GitHub API.
func NewGraphQLClient(endpoint, token string) *GraphQLClient {
	if endpoint == "" {
		endpoint = defaultGraphQLEndpoint
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 3,
	})

	return &GraphQLClient{
		endpoint: endpoint,
		token:    token,
		pool:     resilience.NewConnectionPool(10, 20, 30*time.Second, cb),
	}
}

// Query executes a GraphQL query and decodes the data payload into out.
// Responses are narrowed to typed envelopes immediately; untyped payloads
// never cross this boundary.
func (g *GraphQLClient) Query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return apperrors.NewInternalError("failed to encode GraphQL request", err)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   "RepoLens/1.0",
	}
	if g.token != "" {
		headers["Authorization"] = "Bearer " + g.token
	}

	resp, err := g.pool.DoRequest(ctx, http.MethodPost, g.endpoint, headers, bytes.NewReader(payload))
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return apperrors.NewTimeoutError("GitHub GraphQL request timed out", err)
		}
		return apperrors.NewUpstreamError("GitHub GraphQL request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch resp.StatusCode {
		case http.StatusForbidden, http.StatusTooManyRequests:
			if resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.StatusCode == http.StatusTooManyRequests {
				return apperrors.NewRateLimitError(resp.Header.Get("X-RateLimit-Reset"))
			}
		}
		return apperrors.NewUpstreamError(
			fmt.Sprintf("GitHub GraphQL returned status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var envelope graphQLEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return apperrors.NewUpstreamError("failed to decode GraphQL response", err)
	}

	if len(envelope.Errors) > 0 {
		for _, gqlErr := range envelope.Errors {
			if gqlErr.Type == "NOT_FOUND" {
				return apperrors.NewNotFoundError("Requested resource")
			}
			if gqlErr.Type == "RATE_LIMITED" {
				return apperrors.NewRateLimitError("")
			}
		}
		return apperrors.NewUpstreamError("GitHub GraphQL error: "+envelope.Errors[0].Message, nil)
	}

	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return apperrors.NewUpstreamError("failed to decode GraphQL data", err)
		}
	}

	return nil
}

// GetPoolStats returns connection pool statistics.
func (g *GraphQLClient) GetPoolStats() map[string]interface{} {
	return g.pool.GetStats()
}

// Close closes the connection pool.
func (g *GraphQLClient) Close() error {
	return g.pool.Close()
}
