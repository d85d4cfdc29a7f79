package yaml_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fwojciec/larder"
	"github.com/fwojciec/larder/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSources(t *testing.T) {
	t.Parallel()

	t.Run("reads sources with defaults", func(t *testing.T) {
		t.Parallel()

		input := `
sources:
  - host: Www.Example.com
    search_url: https://www.example.com/search?q={query}
  - host: other.com
    name: Other
    search_url: https://other.com/?s={query}
    selector: .result
    enabled: false
`

		got, err := yaml.LoadSources(strings.NewReader(input))

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, &larder.SearchSource{
			Host:      "www.example.com",
			Name:      "www.example.com",
			SearchURL: "https://www.example.com/search?q={query}",
			Enabled:   true,
		}, got[0])
		assert.Equal(t, "Other", got[1].Name)
		assert.Equal(t, ".result", got[1].Selector)
		assert.False(t, got[1].Enabled)
	})

	t.Run("rejects search URL without placeholder", func(t *testing.T) {
		t.Parallel()

		input := "sources:\n  - host: a.com\n    search_url: https://a.com/search\n"

		_, err := yaml.LoadSources(strings.NewReader(input))

		assert.Equal(t, larder.EINVALID, larder.ErrorCode(err))
		assert.Contains(t, err.Error(), "source 1")
	})

	t.Run("rejects duplicate hosts", func(t *testing.T) {
		t.Parallel()

		input := `
sources:
  - host: a.com
    search_url: https://a.com/?q={query}
  - host: A.com
    search_url: https://a.com/?s={query}
`

		_, err := yaml.LoadSources(strings.NewReader(input))

		assert.Equal(t, larder.EINVALID, larder.ErrorCode(err))
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		t.Parallel()

		input := "sources:\n  - host: a.com\n    searchurl: https://a.com/?q={query}\n"

		_, err := yaml.LoadSources(strings.NewReader(input))

		assert.Equal(t, larder.EINVALID, larder.ErrorCode(err))
	})

	t.Run("treats empty input as no sources", func(t *testing.T) {
		t.Parallel()

		got, err := yaml.LoadSources(strings.NewReader(""))

		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestLoadSourcesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources:\n  - host: a.com\n    search_url: https://a.com/?q={query}\n"), 0644))

	got, err := yaml.LoadSourcesFile(path)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.com", got[0].Host)
}

func TestDefaultSources(t *testing.T) {
	t.Parallel()

	got, err := yaml.DefaultSources()

	require.NoError(t, err)
	assert.NotEmpty(t, got)
	for _, s := range got {
		assert.NoError(t, s.Validate(), s.Host)
	}
}
