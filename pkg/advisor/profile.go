package advisor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultModel is the hosted model every request is sent to.
const DefaultModel = "llama-3.3-70b-versatile"

// DefaultFallback is returned as the reply when the model produced no content.
const DefaultFallback = "Sorry, I couldn't generate financial advice at this moment. Please try again or rephrase your question."

// DefaultSystemPrompt is the instructional turn prepended to every request.
// It is sent upstream verbatim, continuation-line indent included.
const DefaultSystemPrompt = `You are an AI financial advisor with expertise in personal finance, investments, retirement planning, 
    budgeting, debt management, tax optimization, and financial literacy.
    
    Provide accurate, practical financial advice that is:
    - Tailored to the user's specific financial situation and goals
    - Educational, explaining financial concepts clearly without jargon
    - Action-oriented with specific, implementable steps
    - Risk-aware, always discussing potential downsides and uncertainty
    - Compliant with financial regulations (include appropriate disclaimers)
    
    When giving investment advice:
    - Emphasize diversification and long-term perspectives
    - Discuss risk tolerance and time horizons
    - Avoid making specific stock picks or promising returns
    - Include appropriate disclaimers about investment risks
    
    For document analysis:
    - Focus on identifying portfolio imbalances, fee structures, and optimization opportunities
    - Compare current allocations to recommended benchmarks based on the user's profile
    - Identify potential tax inefficiencies or missed opportunities
    
    Always remind users that your advice is informational only and they should consult with a certified financial professional for personalized guidance.`

// Profile is the fixed prompt template and sampling parameters applied to
// every outbound completion.
type Profile struct {
	SystemPrompt string  `toml:"system_prompt"`
	Model        string  `toml:"model"`
	Temperature  float32 `toml:"temperature"`
	MaxTokens    int     `toml:"max_tokens"`
	Fallback     string  `toml:"fallback"`
}

// DefaultProfile returns the built-in advisor profile.
func DefaultProfile() Profile {
	return Profile{
		SystemPrompt: DefaultSystemPrompt,
		Model:        DefaultModel,
		Temperature:  0.7,
		MaxTokens:    1000,
		Fallback:     DefaultFallback,
	}
}

// Validate checks that the profile can be sent upstream.
func (p Profile) Validate() error {
	var errs []error
	if strings.TrimSpace(p.SystemPrompt) == "" {
		errs = append(errs, errors.New("system_prompt must not be empty"))
	}
	if p.Model == "" {
		errs = append(errs, errors.New("model must not be empty"))
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature %v out of range [0, 2]", p.Temperature))
	}
	if p.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be positive, got %d", p.MaxTokens))
	}
	if p.Fallback == "" {
		errs = append(errs, errors.New("fallback must not be empty"))
	}
	return errors.Join(errs...)
}

// LoadProfile reads a TOML profile. Keys absent from the file keep their
// default values; unknown keys are an error.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()

	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return Profile{}, fmt.Errorf("decoding profile %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Profile{}, fmt.Errorf("profile %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}

	return p, nil
}
