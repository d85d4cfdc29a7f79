package gemini

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/larder"
	"google.golang.org/genai"
)

// KeyCacheTTL is how long a key check result is trusted.
const KeyCacheTTL = 24 * time.Hour

// KeyValidator reports whether Gemini API keys are accepted, remembering
// the answer in a TTL cache.
type KeyValidator struct {
	cache larder.Cache

	// Check asks the API whether key is accepted. Defaults to listing models.
	Check func(ctx context.Context, key string) (bool, error)
}

// NewKeyValidator creates a KeyValidator backed by cache.
func NewKeyValidator(cache larder.Cache) *KeyValidator {
	return &KeyValidator{cache: cache, Check: checkKey}
}

// Valid reports whether key is accepted. Errors mean the answer is unknown
// and nothing was cached.
func (v *KeyValidator) Valid(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}

	cacheKey := "gemini-key:" + strconv.FormatUint(xxhash.Sum64String(key), 16)
	if cached, ok, err := v.cache.Get(ctx, cacheKey); err == nil && ok {
		return string(cached) == "1", nil
	}

	valid, err := v.Check(ctx, key)
	if err != nil {
		return false, err
	}

	value := []byte("0")
	if valid {
		value = []byte("1")
	}
	if err := v.cache.Set(ctx, cacheKey, value, KeyCacheTTL); err != nil {
		return valid, err
	}
	return valid, nil
}

func checkKey(ctx context.Context, key string) (bool, error) {
	client, err := NewClient(ctx, key)
	if err != nil {
		return false, err
	}
	_, err = client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 1})
	if err == nil {
		return true, nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return false, nil
		}
	}
	return false, larder.Errorf(larder.EUNAVAILABLE, "gemini: %v", err)
}
