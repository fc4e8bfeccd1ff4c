// Package cloudinary stores canteen menu images through Cloudinary's signed upload API.
package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// ErrUnsupportedFormat rejects files that are not web images.
var ErrUnsupportedFormat = errors.New("unsupported image format")

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// Client uploads images. The zero BaseURL means the public API.
type Client struct {
	cloud  string
	key    string
	secret string
	folder string

	BaseURL string
	HTTP    *http.Client
	now     func() time.Time
}

// New creates a client for one cloud and target folder.
func New(cloudName, apiKey, apiSecret, folder string) *Client {
	return &Client{
		cloud:   cloudName,
		key:     apiKey,
		secret:  apiSecret,
		folder:  folder,
		BaseURL: defaultBaseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.cloud != "" && c.key != "" && c.secret != ""
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// UploadImage streams r as a signed multipart upload and returns the HTTPS URL.
func (c *Client) UploadImage(ctx context.Context, r io.Reader, filename string) (string, error) {
	if !imageExts[strings.ToLower(path.Ext(filename))] {
		return "", errors.Wrapf(ErrUnsupportedFormat, "cloudinary: %q", filename)
	}

	params := url.Values{}
	params.Set("timestamp", strconv.FormatInt(c.now().Unix(), 10))
	if c.folder != "" {
		params.Set("folder", c.folder)
	}
	params.Set("signature", c.signature(params))
	params.Set("api_key", c.key)

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(form, params, r, filename))
	}()

	endpoint := fmt.Sprintf("%s/%s/image/upload", strings.TrimRight(c.BaseURL, "/"), c.cloud)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.CloseWithError(err)
		return "", errors.Wrap(err, "cloudinary: build request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "cloudinary: upload")
	}
	defer resp.Body.Close()

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && resp.StatusCode < 300 {
		return "", errors.Wrap(err, "cloudinary: decode response")
	}
	if resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", errors.Errorf("cloudinary: upload failed (%d): %s", resp.StatusCode, msg)
	}
	if out.SecureURL != "" {
		return out.SecureURL, nil
	}
	return out.URL, nil
}

func writeForm(form *multipart.Writer, params url.Values, r io.Reader, filename string) error {
	for k := range params {
		if err := form.WriteField(k, params.Get(k)); err != nil {
			return err
		}
	}
	part, err := form.CreateFormFile("file", path.Base(filename))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return form.Close()
}

// signature hashes the sorted non-empty parameters followed by the API secret.
// api_key, file and resource_type are never signed.
func (c *Client) signature(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		switch k {
		case "api_key", "file", "resource_type", "signature":
			continue
		}
		if params.Get(k) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k + "=" + params.Get(k))
	}
	b.WriteString(c.secret)
	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
