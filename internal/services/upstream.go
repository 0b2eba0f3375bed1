package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
)

// RetryConfig bounds every upstream call
type RetryConfig struct {
	Timeout        time.Duration
	Attempts       int
	TimeoutBackoff time.Duration
}

// DefaultRetryConfig is 3 attempts of 10s each, waiting 1s after a timeout
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Timeout: 10 * time.Second, Attempts: 3, TimeoutBackoff: time.Second}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c == (RetryConfig{}) {
		return d
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Attempts <= 0 {
		c.Attempts = d.Attempts
	}
	if c.TimeoutBackoff < 0 {
		c.TimeoutBackoff = d.TimeoutBackoff
	}
	return c
}

// upstream issues GET requests against one API with the shared retry policy
type upstream struct {
	service string
	client  *http.Client
	baseURL string
	retry   RetryConfig
	logger  *logrus.Logger

	// check inspects a 2xx body for application-level errors
	check func(body []byte) *APIError
}

func newUpstream(service, baseURL string, client *http.Client, cfg RetryConfig, logger *logrus.Logger) *upstream {
	if client == nil {
		client = &http.Client{}
	}
	return &upstream{
		service: service,
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		retry:   cfg.withDefaults(),
		logger:  logger,
	}
}

// get runs the request up to the attempt budget. Only timeouts, transport failures and
// 5xx responses are retried.
func (u *upstream) get(ctx context.Context, path string, query url.Values, header http.Header) ([]byte, error) {
	endpoint := u.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	log := u.logger.WithFields(logrus.Fields{
		"service": u.service,
		"path":    path,
	})

	start := time.Now()
	body, err := retry.DoWithData(
		func() ([]byte, error) {
			return u.attempt(ctx, endpoint, header)
		},
		retry.Context(ctx),
		retry.Attempts(uint(u.retry.Attempts)),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			apiErr, ok := AsAPIError(err)
			return ok && apiErr.Retryable() && ctx.Err() == nil
		}),
		retry.DelayType(func(_ uint, err error, _ *retry.Config) time.Duration {
			if IsKind(err, KindTimeout) {
				return u.retry.TimeoutBackoff
			}
			return 0
		}),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).WithField("attempt", n+1).Warn("Upstream request failed")
		}),
	)
	if err != nil {
		apiErr, ok := AsAPIError(err)
		if !ok {
			apiErr = transportError(u.service, err)
		}
		log.WithFields(logrus.Fields{
			"kind":     apiErr.Kind,
			"status":   apiErr.Status,
			"duration": time.Since(start).String(),
		}).Error("Upstream request gave up")
		return nil, apiErr
	}

	log.WithField("duration", time.Since(start).String()).Debug("Upstream request succeeded")
	return body, nil
}

func (u *upstream) attempt(ctx context.Context, endpoint string, header http.Header) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, u.retry.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &APIError{Kind: KindInvalid, Service: u.service,
			Message: fmt.Sprintf("failed to create request: %v", err), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, transportError(u.service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(u.service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(u.service, resp.StatusCode, body)
	}

	if u.check != nil {
		if apiErr := u.check(body); apiErr != nil {
			return nil, apiErr
		}
	}
	return body, nil
}
