package service

import (
	"testing"

	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/config"
)

func TestNewImageStore(t *testing.T) {
	cfg := &config.MinioConfig{
		Endpoint:   "localhost:9000",
		AccessKey:  "test",
		SecretKey:  "test",
		Bucket:     "proof-images",
		UseSSL:     false,
		ExpireDays: 7,
	}

	// NewImageStore only constructs the client; the connection is exercised
	// on first operation.
	svc, err := NewImageStore(cfg)
	if err != nil {
		t.Fatalf("NewImageStore failed: %v", err)
	}
	if svc == nil {
		t.Fatal("Expected non-nil store")
	}
	if svc.bucket != "proof-images" {
		t.Errorf("Expected bucket proof-images, got %s", svc.bucket)
	}
}

func TestNewImageStoreInvalidEndpoint(t *testing.T) {
	cfg := &config.MinioConfig{
		Endpoint:  "http://not-a-host:xx",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "proof-images",
	}

	if _, err := NewImageStore(cfg); err == nil {
		t.Error("Expected error for malformed endpoint")
	}
}
