package dependency

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	imdsDefaultBaseURL = "http://169.254.169.254/latest"
	imdsTokenTTLHdr    = "X-aws-ec2-metadata-token-ttl-seconds"
	imdsTokenHdr       = "X-aws-ec2-metadata-token"
	imdsTokenTTL       = "21600"
)

// EC2TagFetcher returns a TagFetcher resolving instance tags through the
// IMDSv2 metadata service: a session token is requested before every fetch,
// since the token itself is cheap to request and the cache only calls
// through on its own TTL.
func EC2TagFetcher(client *http.Client) TagFetcher {
	return newIMDSTagFetcher(client, imdsDefaultBaseURL)
}

func newIMDSTagFetcher(client *http.Client, baseURL string) TagFetcher {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	return func(ctx context.Context, key string) (string, error) {
		token, err := imdsToken(ctx, client, baseURL)
		if err != nil {
			return "", err
		}
		return imdsGet(ctx, client, fmt.Sprintf("%s/meta-data/tags/instance/%s", baseURL, key), token)
	}
}

func imdsToken(ctx context.Context, client *http.Client, baseURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, baseURL+"/api/token", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set(imdsTokenTTLHdr, imdsTokenTTL)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dependency: imds token request failed: %s", resp.Status)
	}
	return string(body), nil
}

func imdsGet(ctx context.Context, client *http.Client, url, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set(imdsTokenHdr, token)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dependency: imds tag request failed: %s", resp.Status)
	}
	return string(body), nil
}
