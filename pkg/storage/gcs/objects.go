package gcs

import (
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

const storageHost = "https://storage.googleapis.com"

// SignedURL produces a V2 signed PUT URL the browser can upload to directly.
// Content type is part of the signature, so the uploader must send exactly
// the same Content-Type header.
func (c *Client) SignedURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	if contentType == "" {
		return "", errors.New("content type is required")
	}
	return c.signURL(http.MethodPut, bucket, object, contentType, expires)
}

// SignedReadURL produces a V2 signed GET URL for time-limited downloads.
func (c *Client) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	return c.signURL(http.MethodGet, bucket, object, "", expires)
}

func (c *Client) signURL(method, bucket, object, contentType string, expires time.Duration) (string, error) {
	if c == nil || c.serviceAccount == nil || c.serviceAccount.privateKey == nil {
		return "", errors.New("url signing requires service account credentials")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return "", errors.New("bucket is required")
	}
	if object == "" {
		return "", errors.New("object is required")
	}
	if expires <= 0 {
		return "", errors.New("expiry must be positive")
	}

	expiration := time.Now().Add(expires).Unix()
	toSign := strings.Join([]string{
		method,
		"", // Content-MD5 is not pinned
		contentType,
		strconv.FormatInt(expiration, 10),
		"/" + bucket + "/" + object,
	}, "\n")

	hash := sha256.Sum256([]byte(toSign))
	signature, err := rsa.SignPKCS1v15(rand.Reader, c.serviceAccount.privateKey, crypto.SHA256, hash[:])
	if err != nil {
		return "", fmt.Errorf("signing url: %w", err)
	}

	query := url.Values{}
	query.Set("GoogleAccessId", c.serviceAccount.clientEmail)
	query.Set("Expires", strconv.FormatInt(expiration, 10))
	query.Set("Signature", base64.StdEncoding.EncodeToString(signature))

	return fmt.Sprintf("%s/%s/%s?%s", storageHost, bucket, object, query.Encode()), nil
}

// DeleteObject removes an object; a missing object is treated as already
// deleted so cleanup stays idempotent.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" || object == "" {
		return errors.New("bucket and object are required")
	}

	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s",
		storageHost,
		url.PathEscape(bucket),
		url.PathEscape(object),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(b) > 0 {
			return fmt.Errorf("gcs delete failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
		}
		return fmt.Errorf("gcs delete failed: %s", resp.Status)
	}
}

// ObjectExists reports whether the object's metadata record is reachable.
func (c *Client) ObjectExists(ctx context.Context, bucket, object string) (bool, error) {
	if c == nil || c.tokenSource == nil {
		return false, errors.New("gcs client not initialized")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" || object == "" {
		return false, errors.New("bucket and object are required")
	}

	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return false, err
	}

	u := fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s",
		storageHost,
		url.PathEscape(bucket),
		url.PathEscape(object),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("gcs object check failed: %s", resp.Status)
	}
}
