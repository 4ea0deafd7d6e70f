package config

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPasswordConfig(t *testing.T) {
	tests := []struct {
		name     string
		cost     string
		pepper   string
		wantCost int
		wantErr  string
	}{
		{name: "default cost", wantCost: 12},
		{name: "lower bound", cost: "10", wantCost: 10},
		{name: "upper bound", cost: "14", wantCost: 14},
		{name: "with pepper", cost: "10", pepper: "pep", wantCost: 10},
		{name: "below range", cost: "9", wantErr: "out of range"},
		{name: "above range", cost: "15", wantErr: "out of range"},
		{name: "not a number", cost: "high", wantErr: "invalid BCRYPT_COST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BCRYPT_COST", tt.cost)
			t.Setenv("PASSWORD_PEPPER", tt.pepper)

			cfg, err := NewPasswordConfig()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCost, cfg.BcryptCost)
			assert.Equal(t, tt.pepper, cfg.Pepper)
		})
	}
}

func TestPasswordConfig_HashAndVerify(t *testing.T) {
	cfg := &PasswordConfig{BcryptCost: 10}

	hash, err := cfg.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, strings.HasPrefix(hash, "$2"), "bcrypt hash expected")

	assert.True(t, cfg.VerifyPassword("correct horse", hash))
	assert.False(t, cfg.VerifyPassword("wrong horse", hash))
	assert.False(t, cfg.VerifyPassword("correct horse", "not-a-hash"))

	again, err := cfg.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salt must differ between hashes")
}

func TestPasswordConfig_Pepper(t *testing.T) {
	peppered := &PasswordConfig{BcryptCost: 10, Pepper: "chamber-secret"}
	hash, err := peppered.HashPassword("password1")
	require.NoError(t, err)
	assert.True(t, peppered.VerifyPassword("password1", hash))

	rotated := &PasswordConfig{BcryptCost: 10, Pepper: "rotated"}
	assert.False(t, rotated.VerifyPassword("password1", hash), "a different pepper must not verify")

	plain := &PasswordConfig{BcryptCost: 10}
	assert.False(t, plain.VerifyPassword("password1", hash))
}

func TestPasswordConfig_TooLong(t *testing.T) {
	cfg := &PasswordConfig{BcryptCost: 10}
	hash, err := cfg.HashPassword(strings.Repeat("a", 100))
	assert.Error(t, err, "bcrypt rejects inputs over 72 bytes")
	assert.Empty(t, hash)
}

func TestPasswordConfig_ConcurrentUse(t *testing.T) {
	cfg := &PasswordConfig{BcryptCost: 10}
	hash, err := cfg.HashPassword("shared")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, cfg.VerifyPassword("shared", hash))
		}()
	}
	wg.Wait()
}
