package gcs

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const uploadEndpoint = "https://storage.googleapis.com/upload/storage/v1/b/%s/o?uploadType=media&name=%s"

// Upload writes an object into the default bucket through the JSON API
// media endpoint and returns nothing on success. Objects are small
// generation artifacts, so a single-shot upload is enough; there is no
// resumable path.
func (c *Client) Upload(ctx context.Context, object, contentType string, data []byte) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	if object == "" {
		return errors.New("gcs object name is required")
	}

	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf(uploadEndpoint, url.PathEscape(c.defaultBucket), url.QueryEscape(object))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(b) > 0 {
			return fmt.Errorf("gcs upload failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
		}
		return fmt.Errorf("gcs upload failed: %s", resp.Status)
	}
	return nil
}

// SignedURL returns a V2-signed GET URL for an object in the default
// bucket. It requires service account credentials; deployments running
// on the metadata token source cannot sign.
func (c *Client) SignedURL(object string, expires time.Duration) (string, error) {
	if c == nil {
		return "", errors.New("gcs client not initialized")
	}
	if c.signerKey == nil || c.signerEmail == "" {
		return "", errors.New("gcs signing requires service account credentials")
	}
	if object == "" {
		return "", errors.New("gcs object name is required")
	}

	expiry := time.Now().Add(expires).Unix()
	resource := "/" + c.defaultBucket + "/" + object
	toSign := strings.Join([]string{
		http.MethodGet,
		"", // Content-MD5
		"", // Content-Type
		strconv.FormatInt(expiry, 10),
		resource,
	}, "\n")

	hash := sha256.Sum256([]byte(toSign))
	signature, err := rsa.SignPKCS1v15(rand.Reader, c.signerKey, crypto.SHA256, hash[:])
	if err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("GoogleAccessId", c.signerEmail)
	query.Set("Expires", strconv.FormatInt(expiry, 10))
	query.Set("Signature", base64.StdEncoding.EncodeToString(signature))

	return fmt.Sprintf("https://storage.googleapis.com%s?%s", resource, query.Encode()), nil
}

// ObjectURL returns the canonical unsigned URL for an object. Only
// useful when the bucket grants public read.
func (c *Client) ObjectURL(object string) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.defaultBucket, object)
}
