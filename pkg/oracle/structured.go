package oracle

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/arbordoc/arbordoc/pkg/jsonx"
)

const (
	defaultMaxAttempts    = 5
	defaultTemperature    = 0.7
	defaultTempDecay      = 0.7
	defaultMinTemperature = 0.1

	fallbackParseClause   = "IMPORTANT: There was an error parsing your previous response. Please provide a valid JSON object with correct braces."
	fallbackMissingClause = "IMPORTANT: JSON must include the following keys: {keys}."
)

// StructuredOptions controls one structured-generation call.
type StructuredOptions struct {
	System         string
	ExpectedKeys   []string
	MaxAttempts    int
	Temperature    float64
	TempDecay      float64
	MinTemperature float64

	// Localized corrective clauses. ParseErrorClause is appended verbatim
	// after an unparsable response; MissingKeysClause has its {keys} token
	// replaced with the comma-joined missing key names.
	ParseErrorClause  string
	MissingKeysClause string
}

func (o *StructuredOptions) fillDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.Temperature <= 0 {
		o.Temperature = defaultTemperature
	}
	if o.TempDecay <= 0 || o.TempDecay >= 1 {
		o.TempDecay = defaultTempDecay
	}
	if o.MinTemperature <= 0 {
		o.MinTemperature = defaultMinTemperature
	}
	if o.ParseErrorClause == "" {
		o.ParseErrorClause = fallbackParseClause
	}
	if o.MissingKeysClause == "" {
		o.MissingKeysClause = fallbackMissingClause
	}
}

// Generator is the structured-generation surface consumed by the builder
// and materializer. Tests substitute scripted implementations.
type Generator interface {
	GenerateStructured(ctx context.Context, prompt string, opts StructuredOptions) (map[string]any, error)
}

// GenerateStructured drives up to MaxAttempts rounds of generate → extract →
// repair → normalize → key validation. An unparsable response and a parsed
// response with missing keys are distinct failure modes, each answered with
// its own corrective clause on the next attempt; the temperature decays
// toward MinTemperature either way. Exhaustion returns ErrExhausted, which
// callers may degrade to an empty substructure. Transport errors (including
// permanent ones) pass through unchanged.
func (c *Client) GenerateStructured(ctx context.Context, prompt string, opts StructuredOptions) (map[string]any, error) {
	opts.fillDefaults()

	temperature := opts.Temperature
	correction := ""

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		fullPrompt := prompt
		if correction != "" {
			fullPrompt += "\n\n" + correction
		}
		logrus.Debugf("structured generation attempt %d/%d (temperature %.2f)", attempt, opts.MaxAttempts, temperature)

		raw, err := c.Generate(ctx, Request{Prompt: fullPrompt, System: opts.System, Temperature: temperature})
		if err != nil {
			return nil, err
		}

		obj, ok := jsonx.Extract(raw)
		if !ok {
			if attempt == opts.MaxAttempts {
				logrus.Errorf("all %d attempts to parse oracle JSON failed", opts.MaxAttempts)
				return nil, ErrExhausted
			}
			logrus.Warnf("could not parse JSON from oracle response on attempt %d, retrying", attempt)
			correction = opts.ParseErrorClause
			temperature = anneal(temperature, opts.TempDecay, opts.MinTemperature)
			continue
		}

		obj = jsonx.Normalize(obj)

		missing := missingKeys(obj, opts.ExpectedKeys)
		if len(missing) == 0 {
			return obj, nil
		}
		if attempt == opts.MaxAttempts {
			logrus.Errorf("oracle JSON still missing keys %v after %d attempts", missing, opts.MaxAttempts)
			return nil, ErrExhausted
		}
		logrus.Warnf("oracle JSON missing keys %v on attempt %d, retrying with clarified prompt", missing, attempt)
		correction = strings.ReplaceAll(opts.MissingKeysClause, "{keys}", strings.Join(missing, ", "))
		temperature = anneal(temperature, opts.TempDecay, opts.MinTemperature)
	}

	return nil, ErrExhausted
}

func anneal(temperature, decay, floor float64) float64 {
	t := temperature * decay
	if t < floor {
		return floor
	}
	return t
}

func missingKeys(obj map[string]any, expected []string) []string {
	var missing []string
	for _, key := range expected {
		if _, ok := obj[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
