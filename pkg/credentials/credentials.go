package credentials

import (
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/zfogg/sidechain/reader/pkg/client"
	"github.com/zfogg/sidechain/reader/pkg/config"
	"github.com/zfogg/sidechain/reader/pkg/logger"
)

// Credentials is the session file written by the Sidechain CLI login flow.
// The reader only consumes it.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
}

// Load reads credentials from auth.credentials_file. A missing file yields
// nil credentials and no error.
func Load() (*Credentials, error) {
	data, err := os.ReadFile(config.GetString("auth.credentials_file"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var creds Credentials
	if err := jsoniter.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// Apply loads credentials and, when they are usable, authenticates the API
// client. Feeds other than timeline are public, so a missing or expired
// session is not an error.
func Apply() (*Credentials, error) {
	creds, err := Load()
	if err != nil {
		return nil, err
	}
	if !creds.IsValid() {
		logger.Debug("No valid session, continuing anonymously")
		return creds, nil
	}

	client.SetAuthToken(creds.AccessToken)
	logger.Debug("Using saved session", "username", creds.Username)
	return creds, nil
}

// IsExpired checks if the access token is expired
func (c *Credentials) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// IsValid checks if credentials are valid
func (c *Credentials) IsValid() bool {
	return c != nil && c.AccessToken != "" && !c.IsExpired()
}
