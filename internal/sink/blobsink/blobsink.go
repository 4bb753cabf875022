// Package blobsink implements the object-store RegionalClient backed by
// Azure Blob Storage. One blob is written per flushed batch, named by
// timestamp and a random suffix.
package blobsink

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/cloudshuttle/logshuttle/internal/agenterrors"
)

// Options configures one region's container client.
type Options struct {
	AccountName   string
	AccountKey    string
	ContainerName string
	RatePerSec    float64
}

// Client writes one blob per flushed batch of records, newline-joined.
type Client struct {
	containerURL azblob.ContainerURL
	limiter      *rate.Limiter
}

func New(opts Options) (*Client, error) {
	cred, err := azblob.NewSharedKeyCredential(opts.AccountName, opts.AccountKey)
	if err != nil {
		return nil, agenterrors.Configuration("invalid azure blob credentials", err)
	}
	pipeline := azblob.NewPipeline(cred, azblob.PipelineOptions{})
	u, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net/%s", opts.AccountName, opts.ContainerName))
	if err != nil {
		return nil, agenterrors.Configuration("invalid azure blob container URL", err)
	}

	limit := opts.RatePerSec
	if limit <= 0 {
		limit = 20
	}
	return &Client{
		containerURL: azblob.NewContainerURL(*u, pipeline),
		limiter:      rate.NewLimiter(rate.Limit(limit), int(limit)),
	}, nil
}

// Send joins records with newlines and uploads them as a single blob named
// by the current time and a random id, to keep per-batch writes unique and
// sortable.
func (c *Client) Send(ctx context.Context, records [][]byte) error {
	if len(records) == 0 {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return agenterrors.CancelledErr("blobsink-send")
	}

	body := bytes.Join(records, []byte("\n"))
	name := fmt.Sprintf("%s/%s.log", time.Now().UTC().Format("2006/01/02/15"), uuid.New().String())

	blobURL := c.containerURL.NewBlockBlobURL(name)
	uploadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := azblob.UploadBufferToBlockBlob(uploadCtx, body, blobURL, azblob.UploadToBlockBlobOptions{})
	if err != nil {
		return agenterrors.TransientTransportErr("azure-blob-upload", err)
	}
	return nil
}

func (c *Client) Close() error { return nil }
