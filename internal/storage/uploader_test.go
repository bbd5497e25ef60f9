package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Region:        "us-east-1",
		AccessKey:     "key",
		SecretKey:     "secret",
		Bucket:        "nfts",
		PublicBaseURL: "https://cdn.example.com/",
	}
}

func TestNewUploaderValidation(t *testing.T) {
	cases := map[string]func(*Config){
		"bucket":      func(c *Config) { c.Bucket = "" },
		"region":      func(c *Config) { c.Region = "" },
		"credentials": func(c *Config) { c.SecretKey = "" },
		"public url":  func(c *Config) { c.PublicBaseURL = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			_, err := NewUploader(cfg)
			assert.Error(t, err)
		})
	}
}

func TestObjectKeyAndURL(t *testing.T) {
	u, err := NewUploader(validConfig())
	require.NoError(t, err)
	u.now = func() time.Time { return time.Date(2024, 5, 7, 10, 0, 0, 0, time.UTC) }

	key := u.objectKey()
	assert.True(t, strings.HasPrefix(key, "nft-metadata/2024/05/07/"), key)
	assert.True(t, strings.HasSuffix(key, ".json"), key)
	assert.Equal(t, "https://cdn.example.com/"+key, u.publicURL(key))
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, validConfig().Enabled())
}
