package http

import (
	"math/rand/v2"
	"slices"

	"github.com/fwojciec/larder"
)

// Ensure WeightedIdentities implements larder.IdentityProvider at compile time.
var _ larder.IdentityProvider = (*WeightedIdentities)(nil)

// WeightedIdentity is an identity with a relative selection weight.
type WeightedIdentity struct {
	larder.Identity
	Weight int
}

// WeightedIdentities picks identities at random in proportion to their weight.
// Profiles with a weight of zero or less are never picked but are still
// offered by Profiles.
type WeightedIdentities struct {
	profiles []WeightedIdentity
	total    int
}

// NewWeightedIdentities creates a provider over profiles.
func NewWeightedIdentities(profiles ...WeightedIdentity) *WeightedIdentities {
	w := &WeightedIdentities{profiles: slices.Clone(profiles)}
	slices.SortStableFunc(w.profiles, func(a, b WeightedIdentity) int {
		return b.Weight - a.Weight
	})
	for _, p := range w.profiles {
		if p.Weight > 0 {
			w.total += p.Weight
		}
	}
	return w
}

// Pick returns a random identity weighted by profile weight.
func (w *WeightedIdentities) Pick() larder.Identity {
	if w.total == 0 {
		if len(w.profiles) == 0 {
			return larder.Identity{}
		}
		return w.profiles[0].Identity
	}
	n := rand.IntN(w.total)
	for _, p := range w.profiles {
		if p.Weight <= 0 {
			continue
		}
		if n < p.Weight {
			return p.Identity
		}
		n -= p.Weight
	}
	return w.profiles[0].Identity
}

// Profiles returns all identities, heaviest first.
func (w *WeightedIdentities) Profiles() []larder.Identity {
	out := make([]larder.Identity, len(w.profiles))
	for i, p := range w.profiles {
		out[i] = p.Identity
	}
	return out
}

const acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"

// DefaultIdentities returns current desktop browser profiles, weighted
// toward Chrome the way real traffic is.
func DefaultIdentities() *WeightedIdentities {
	return NewWeightedIdentities(
		WeightedIdentity{Weight: 5, Identity: larder.Identity{
			Name:      "chrome-windows",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
			Headers: map[string]string{
				"Accept":             acceptHTML,
				"Accept-Language":    "en-US,en;q=0.9",
				"Sec-Ch-Ua":          `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
				"Sec-Ch-Ua-Mobile":   "?0",
				"Sec-Ch-Ua-Platform": `"Windows"`,
				"Sec-Fetch-Dest":     "document",
				"Sec-Fetch-Mode":     "navigate",
				"Sec-Fetch-Site":     "none",
			},
		}},
		WeightedIdentity{Weight: 3, Identity: larder.Identity{
			Name:      "chrome-macos",
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
			Headers: map[string]string{
				"Accept":             acceptHTML,
				"Accept-Language":    "en-US,en;q=0.9",
				"Sec-Ch-Ua":          `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
				"Sec-Ch-Ua-Mobile":   "?0",
				"Sec-Ch-Ua-Platform": `"macOS"`,
				"Sec-Fetch-Dest":     "document",
				"Sec-Fetch-Mode":     "navigate",
				"Sec-Fetch-Site":     "none",
			},
		}},
		WeightedIdentity{Weight: 1, Identity: larder.Identity{
			Name:      "safari-macos",
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
			Headers: map[string]string{
				"Accept":          acceptHTML,
				"Accept-Language": "en-US,en;q=0.9",
			},
		}},
		WeightedIdentity{Weight: 1, Identity: larder.Identity{
			Name:      "firefox-windows",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
			Headers: map[string]string{
				"Accept":          acceptHTML,
				"Accept-Language": "en-US,en;q=0.5",
			},
		}},
	)
}
