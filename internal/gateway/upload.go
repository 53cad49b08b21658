package gateway

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/bitway/bitway-api/internal/domain"
)

// UploadClient stores images with a hosted media service using an unsigned upload preset.
type UploadClient struct {
	baseURL    string
	cloudName  string
	preset     string
	httpClient *http.Client
}

func NewUploadClient(baseURL, cloudName, preset string) *UploadClient {
	return &UploadClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		cloudName:  cloudName,
		preset:     preset,
		httpClient: newHTTPClient(),
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

// Upload stores file (a data URI or remote URL) under folder and returns its HTTPS URL.
func (c *UploadClient) Upload(ctx context.Context, file, folder string) (string, error) {
	if strings.TrimSpace(file) == "" {
		return "", domain.Validation("upload/empty", "image is required")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	fields := map[string]string{"file": file, "upload_preset": c.preset}
	if folder != "" {
		fields["folder"] = folder
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return "", fmt.Errorf("write form field %s: %w", k, err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var resp uploadResponse
	if err := send(c.httpClient, req, &resp); err != nil {
		if isStatus(err, http.StatusBadRequest) {
			return "", domain.Validation("upload/rejected", "image could not be processed")
		}
		return "", domain.Upstream("upstream/upload", "image upload failed", err)
	}
	if resp.SecureURL == "" {
		return "", domain.Upstream("upstream/upload", "image upload returned no url", nil)
	}
	return resp.SecureURL, nil
}
