package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVeniceImageService_GenerateImage(t *testing.T) {
	imageBytes := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

	var gotReq VeniceImageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/image/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		_ = json.NewEncoder(w).Encode(VeniceImageResponse{
			ID:     "img-1",
			Images: []string{base64.StdEncoding.EncodeToString(imageBytes)},
		})
	}))
	defer server.Close()

	service := NewVeniceImageService("test-key", "flux-dev", true)
	service.baseURL = server.URL

	data, err := service.GenerateImage(context.Background(), "a ruined keep at dusk, oil painting")
	if err != nil {
		t.Fatalf("GenerateImage() error: %v", err)
	}

	if string(data) != string(imageBytes) {
		t.Error("decoded image bytes do not match")
	}
	if gotReq.Prompt != "a ruined keep at dusk, oil painting" {
		t.Errorf("unexpected prompt: %q", gotReq.Prompt)
	}
	if !gotReq.SafeMode {
		t.Error("safe mode should be passed through")
	}
	if gotReq.Width != DefaultVeniceImageSize || gotReq.Height != DefaultVeniceImageSize {
		t.Errorf("unexpected dimensions %dx%d", gotReq.Width, gotReq.Height)
	}
}

func TestVeniceImageService_NoImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(VeniceImageResponse{ID: "img-1"})
	}))
	defer server.Close()

	service := NewVeniceImageService("test-key", "flux-dev", false)
	service.baseURL = server.URL

	if _, err := service.GenerateImage(context.Background(), "a quiet harbor"); err == nil {
		t.Fatal("expected error when response has no images")
	}
}

func TestVeniceImageService_BadBase64(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(VeniceImageResponse{
			ID:     "img-1",
			Images: []string{"not!!base64!!"},
		})
	}))
	defer server.Close()

	service := NewVeniceImageService("test-key", "flux-dev", false)
	service.baseURL = server.URL

	if _, err := service.GenerateImage(context.Background(), "a quiet harbor"); err == nil {
		t.Fatal("expected error for undecodable image data")
	}
}

func TestVeniceImageService_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"prompt rejected","type":"invalid_request"}}`))
	}))
	defer server.Close()

	service := NewVeniceImageService("test-key", "flux-dev", false)
	service.baseURL = server.URL

	if _, err := service.GenerateImage(context.Background(), "something"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
