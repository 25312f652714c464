package client

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/zfogg/sidechain/reader/pkg/config"
	"github.com/zfogg/sidechain/reader/pkg/logger"
)

const userAgent = "Sidechain-Reader/0.1.0"

var (
	mu         sync.Mutex
	httpClient *resty.Client
)

// Init initializes the HTTP client from config
func Init() {
	mu.Lock()
	defer mu.Unlock()
	httpClient = newClient()
}

func newClient() *resty.Client {
	c := resty.New()

	baseURL := config.GetString("api.base_url")
	timeout := time.Duration(config.GetInt("api.timeout")) * time.Second

	c.SetBaseURL(baseURL)
	c.SetTimeout(timeout)
	c.SetHeader("User-Agent", userAgent)

	// Feed and media GETs are idempotent, so transient failures are retried
	c.SetRetryCount(config.GetInt("api.retries"))
	c.SetRetryWaitTime(250 * time.Millisecond)
	c.SetRetryMaxWaitTime(2 * time.Second)
	c.AddRetryCondition(func(resp *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
	})

	c.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		logger.Debug("HTTP Request", "method", req.Method, "url", req.URL)
		return nil
	})

	c.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.Debug("HTTP Response", "status", resp.StatusCode(), "elapsed", resp.Time())
		return nil
	})

	return c
}

// GetClient returns the HTTP client
func GetClient() *resty.Client {
	mu.Lock()
	defer mu.Unlock()
	if httpClient == nil {
		httpClient = newClient()
	}
	return httpClient
}

// SetAuthToken sets the authorization token
func SetAuthToken(token string) {
	GetClient().SetHeader("Authorization", "Bearer "+token)
}

// ClearAuthToken clears the authorization token
func ClearAuthToken() {
	GetClient().Header.Del("Authorization")
}
