package gh

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
)

// AppAuth authenticates as a GitHub App and hands out installation scoped clients
type AppAuth struct {
	appID      int64
	privateKey []byte
	transport  http.RoundTripper
}

func NewAppAuth(appID int64, privateKey []byte) *AppAuth {
	return &AppAuth{appID: appID, privateKey: privateKey, transport: http.DefaultTransport}
}

// NewAppAuthFromFile reads the PEM encoded app key from pemFile
func NewAppAuthFromFile(appID int64, pemFile string) (*AppAuth, error) {
	key, err := os.ReadFile(pemFile)
	if err != nil {
		return nil, fmt.Errorf("reading GitHub App key: %w", err)
	}
	return NewAppAuth(appID, key), nil
}

// HTTPClient returns an http.Client whose requests carry an installation token,
// refreshed by ghinstallation when it expires
func (a *AppAuth) HTTPClient(installationID int64) (*http.Client, error) {
	itr, err := ghinstallation.New(a.transport, a.appID, installationID, a.privateKey)
	if err != nil {
		return nil, fmt.Errorf("creating installation transport for %d: %w", installationID, err)
	}
	return &http.Client{Transport: itr}, nil
}

// InstallationClient creates a Client for owner/repo authenticated as installationID
func (a *AppAuth) InstallationClient(ctx context.Context, owner, repo string, installationID int64) (Client, error) {
	httpClient, err := a.HTTPClient(installationID)
	if err != nil {
		return nil, err
	}
	return NewClient(ctx, owner, repo, httpClient), nil
}
