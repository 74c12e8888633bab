package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"ruleflow/internal/constants"
	"ruleflow/internal/logger"
	"ruleflow/pkg/retry"
)

const maxResponseBody = 4 << 10

type httpCall struct {
	client *http.Client
	policy retry.Policy
	logger logger.Logger
	target string
}

// do sends one request per attempt. Transport errors and retryable statuses
// are retried; other non-2xx statuses fail immediately.
func (c httpCall) do(ctx context.Context, build func() (*http.Request, error)) (int, []byte, error) {
	var (
		status int
		body   []byte
	)

	err := retry.RetryWithCallback(ctx, c.policy, func() error {
		req, err := build()
		if err != nil {
			return retry.NewFatalError(err)
		}

		resp, err := c.client.Do(req.WithContext(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return retry.NewFatalError(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		body, _ = io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if status < constants.HTTPStatusOKMin || status >= constants.HTTPStatusOKMax {
			return retry.StatusError(status, truncate(string(body)))
		}
		return nil
	}, func(attempt int, err error, nextDelay time.Duration) {
		c.logger.WarnwCtx(ctx, "Retrying delivery request",
			"target", c.target,
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
		)
	})
	return status, body, err
}

func newRequest(method, url string, body []byte, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func truncate(s string) string {
	if len(s) > constants.DefaultTruncateLen {
		return s[:constants.DefaultTruncateLen] + "..."
	}
	return s
}
