package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultVeniceImageSize = 1024

// VeniceImageService implements Illustrator using the Venice AI image
// generation endpoint
type VeniceImageService struct {
	apiKey     string
	modelName  string
	baseURL    string
	safeMode   bool
	httpClient *http.Client
}

// VeniceImageRequest represents the request structure for Venice AI image generation
type VeniceImageRequest struct {
	Model         string `json:"model"`
	Prompt        string `json:"prompt"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format,omitempty"`
	SafeMode      bool   `json:"safe_mode"`
	HideWatermark bool   `json:"hide_watermark"`
	ReturnBinary  bool   `json:"return_binary"`
}

// VeniceImageResponse represents the response structure for Venice AI image generation
type VeniceImageResponse struct {
	ID     string   `json:"id"`
	Images []string `json:"images"`
	Error  *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewVeniceImageService creates a new Venice AI image service. Safe
// mode blurs adult content at the provider and is switched on for
// family-rated adventures.
func NewVeniceImageService(apiKey string, modelName string, safeMode bool) *VeniceImageService {
	return &VeniceImageService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   veniceBaseURL,
		safeMode:  safeMode,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// GenerateImage renders one scene illustration and returns the decoded
// image bytes
func (v *VeniceImageService) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	imageReq := VeniceImageRequest{
		Model:         v.modelName,
		Prompt:        prompt,
		Width:         DefaultVeniceImageSize,
		Height:        DefaultVeniceImageSize,
		Format:        "png",
		SafeMode:      v.safeMode,
		HideWatermark: true,
		ReturnBinary:  false,
	}

	reqBody, err := json.Marshal(imageReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", v.baseURL+"/image/generate", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+v.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var imageResp VeniceImageResponse
	if err := json.Unmarshal(body, &imageResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if imageResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", imageResp.Error.Message)
	}

	if len(imageResp.Images) == 0 {
		return nil, fmt.Errorf("no image in response")
	}

	data, err := base64.StdEncoding.DecodeString(imageResp.Images[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode image data: %w", err)
	}

	return data, nil
}
