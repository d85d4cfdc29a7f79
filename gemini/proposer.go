package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/fwojciec/larder"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

// Ensure SelectorProposer implements larder.SelectorProposer at compile time.
var _ larder.SelectorProposer = (*SelectorProposer)(nil)

// SelectorProposer also measures samples in its model's tokens.
var _ larder.TokenCounter = (*SelectorProposer)(nil)

// SelectorProposer asks Gemini for a result selector that matches a
// source's current markup.
type SelectorProposer struct {
	client *genai.Client
	model  string

	// The local tokenizer is loaded on first use.
	tokOnce sync.Once
	tok     *tokenizer.LocalTokenizer
	tokErr  error
}

// ProposerOption configures a SelectorProposer.
type ProposerOption func(*SelectorProposer)

// WithModel sets the model used for proposals and token counts.
// Defaults to Model.
func WithModel(name string) ProposerOption {
	return func(p *SelectorProposer) {
		p.model = name
	}
}

// NewSelectorProposer creates a new SelectorProposer.
func NewSelectorProposer(client *genai.Client, opts ...ProposerOption) *SelectorProposer {
	p := &SelectorProposer{client: client, model: Model}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Model returns the name of the model proposals are generated with.
func (p *SelectorProposer) Model() string {
	return p.model
}

// CountTokens counts the tokens text occupies in a proposal prompt for the
// proposer's model, so callers can size samples before asking.
func (p *SelectorProposer) CountTokens(ctx context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	p.tokOnce.Do(func() {
		p.tok, p.tokErr = tokenizer.NewLocalTokenizer(p.model)
	})
	if p.tokErr != nil {
		return 0, larder.Errorf(larder.EUNAVAILABLE, "no tokenizer for %s: %v", p.model, p.tokErr)
	}

	result, err := p.tok.CountTokens([]*genai.Content{genai.NewContentFromText(text, "user")}, nil)
	if err != nil {
		return 0, larder.Errorf(larder.EINTERNAL, "counting tokens: %v", err)
	}
	return int(result.TotalTokens), nil
}

// ProposeSelector suggests a selector for the result containers in sampleHTML.
func (p *SelectorProposer) ProposeSelector(ctx context.Context, source *larder.SearchSource, sampleHTML string) (*larder.SelectorProposal, error) {
	if source == nil || source.Host == "" {
		return nil, larder.Errorf(larder.EINVALID, "source required")
	}
	if sampleHTML == "" {
		return nil, larder.Errorf(larder.EINVALID, "sample HTML required")
	}

	text, err := generate(ctx, p.client, p.model, BuildProposalPrompt(source, sampleHTML), BuildProposalConfig())
	if err != nil {
		return nil, err
	}
	return ParseSelectorProposal(text)
}

// BuildProposalConfig returns the GenerateContentConfig for selector proposals.
func BuildProposalConfig() *genai.GenerateContentConfig {
	return jsonConfig(
		"You maintain web scrapers for recipe sites. Given the HTML of a search results page, choose one CSS selector that matches every recipe result container and nothing else. Each matched element must contain a link to the recipe. Report your confidence between 0 and 1.",
		&genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"selector":   {Type: genai.TypeString},
				"confidence": {Type: genai.TypeNumber},
				"reason":     {Type: genai.TypeString},
			},
			Required: []string{"selector", "confidence", "reason"},
		},
	)
}

// BuildProposalPrompt describes the source and embeds the sample page.
func BuildProposalPrompt(source *larder.SearchSource, sampleHTML string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Site: %s (%s)\n", source.Name, source.Host)
	fmt.Fprintf(&sb, "Search URL: %s\n", source.SearchURL)
	if source.Selector != "" {
		fmt.Fprintf(&sb, "Previous selector, no longer working: %s\n", source.Selector)
	}
	sb.WriteString("\n<html>\n")
	sb.WriteString(sampleHTML)
	sb.WriteString("\n</html>\n")
	return sb.String()
}

// ParseSelectorProposal decodes a proposal response. Confidence is clamped
// to [0, 1].
func ParseSelectorProposal(text string) (*larder.SelectorProposal, error) {
	var p larder.SelectorProposal
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &p); err != nil {
		return nil, larder.Errorf(larder.EUNAVAILABLE, "invalid proposal response: %v", err)
	}
	p.Selector = strings.TrimSpace(p.Selector)
	if p.Selector == "" {
		return nil, larder.Errorf(larder.EUNAVAILABLE, "proposal has no selector")
	}
	p.Confidence = min(max(p.Confidence, 0), 1)
	return &p, nil
}
