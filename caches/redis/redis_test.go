//go:build !integration

package redis

import (
	"errors"
	"testing"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dgduncan/go-aside-cache/caches"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		expectedErr error
	}{
		{
			name:        "nil client returns error",
			cfg:         Config{},
			expectedErr: caches.ErrValidation,
		},
		{
			name: "client",
			cfg:  Config{Client: goredis.NewClient(&goredis.Options{Addr: "localhost:0"}), CloseClient: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(tt.cfg)
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Errorf("expected error %v, got %v", tt.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if store == nil {
				t.Fatal("expected store")
			}
			if err := store.Close(); err != nil {
				t.Errorf("Close() = %v", err)
			}
		})
	}
}
