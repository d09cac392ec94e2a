package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/sitegrid/sitegrid/pkg/config"
)

func TestNewClientDisabledWithoutAddresses(t *testing.T) {
	client, err := NewClient(context.Background(), &config.RedisConfig{})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if client != nil {
		t.Fatalf("expected no client")
	}
}
