package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/stepmatch/onboarding/engine/contract"
	openrouterx "github.com/stepmatch/onboarding/pkg/openrouter"
)

// Collaborator names an LLM-backed boundary role.
type Collaborator string

const (
	CollaboratorExtractor Collaborator = "extractor"
	CollaboratorResponder Collaborator = "responder"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ExtractorModel       string  `envconfig:"EXTRACTOR_MODEL" split_words:"true"`
	ResponderModel       string  `envconfig:"RESPONDER_MODEL" split_words:"true"`
	ExtractorTemperature float32 `envconfig:"EXTRACTOR_TEMPERATURE" split_words:"true" default:"-1"`
	ResponderTemperature float32 `envconfig:"RESPONDER_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor builds the per-collaborator model config, falling back
// to the shared defaults where no override is set.
func (c Config) OpenRouterFor(role Collaborator) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch role {
	case CollaboratorExtractor:
		if m := strings.TrimSpace(c.ExtractorModel); m != "" {
			modelName = m
		}
		if c.ExtractorTemperature >= 0 {
			temp = c.ExtractorTemperature
		}
	case CollaboratorResponder:
		if m := strings.TrimSpace(c.ResponderModel); m != "" {
			modelName = m
		}
		if c.ResponderTemperature >= 0 {
			temp = c.ResponderTemperature
		}
	}

	maxTokens := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            c.BaseURL,
		APIKey:             c.APIKey,
		Model:              modelName,
		MaxCompletionToken: &maxTokens,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            c.SiteURL,
		SiteName:           c.SiteName,
	}
}
