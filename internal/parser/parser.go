package parser

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/internal/version"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format names a strategy text encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatDSL  Format = "dsl"
	FormatYAML Format = "yaml"
)

// document is the structured input shape. Identity, status and timestamps are assigned by the parser.
type document struct {
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	EngineVersion  string                `json:"engineVersion"`
	Conditions     []types.Condition     `json:"conditions"`
	Actions        []types.Action        `json:"actions"`
	RiskManagement *types.RiskManagement `json:"riskManagement"`
}

// Parser turns strategy text into a validated, inactive Strategy.
type Parser struct {
	validate      *validator.Validate
	engineVersion string
	now           func() time.Time
}

// Option customises a Parser.
type Option func(*Parser)

// WithEngineVersion overrides the engine version used for engineVersion gating.
func WithEngineVersion(v string) Option {
	return func(p *Parser) {
		p.engineVersion = v
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		validate:      validator.New(),
		engineVersion: version.GetVersion(),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

var defaultParser = NewParser()

// Parse parses input with a parser using default options.
func Parse(input string, format Format) (types.Strategy, error) {
	return defaultParser.Parse(input, format)
}

// Parse converts input in the given format into a Strategy.
// The result always has a fresh id, status inactive and both timestamps set to now.
func (p *Parser) Parse(input string, format Format) (types.Strategy, error) {
	var (
		doc document
		err error
	)

	switch Format(strings.ToLower(string(format))) {
	case FormatJSON:
		doc, err = decodeJSON([]byte(input))
	case FormatYAML:
		doc, err = decodeYAML([]byte(input))
	case FormatDSL:
		doc, err = parseDSL(input)
	default:
		return types.Strategy{}, errors.Newf(errors.ErrCodeUnsupportedFormat, "unsupported strategy format %q", format)
	}

	if err != nil {
		return types.Strategy{}, err
	}

	strategy := p.build(doc)

	if err := p.Validate(strategy); err != nil {
		return types.Strategy{}, err
	}

	return strategy, nil
}

func (p *Parser) build(doc document) types.Strategy {
	now := p.now()

	risk := types.DefaultRiskManagement()
	if doc.RiskManagement != nil {
		risk = *doc.RiskManagement
	}

	conditions := make([]types.Condition, len(doc.Conditions))
	for i, c := range doc.Conditions {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}

		conditions[i] = c
	}

	actions := make([]types.Action, len(doc.Actions))
	for i, a := range doc.Actions {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}

		if a.Conditions == nil {
			a.Conditions = []string{}
		}

		actions[i] = a
	}

	return types.Strategy{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(doc.Name),
		Description:    doc.Description,
		Status:         types.StrategyStatusInactive,
		EngineVersion:  doc.EngineVersion,
		Conditions:     conditions,
		Actions:        actions,
		RiskManagement: risk,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate checks a strategy's shape. Errors carry ErrCodeValidation or ErrCodeVersionMismatch.
func (p *Parser) Validate(s types.Strategy) error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New(errors.ErrCodeValidation, "strategy must have a name")
	}

	if len(s.Conditions) == 0 {
		return errors.New(errors.ErrCodeValidation, "strategy must have at least one condition")
	}

	if len(s.Actions) == 0 {
		return errors.New(errors.ErrCodeValidation, "strategy must have at least one action")
	}

	for _, c := range s.Conditions {
		if _, err := c.Predicate(); err != nil {
			return errors.Wrap(errors.ErrCodeValidation, "invalid condition", err)
		}
	}

	for _, a := range s.Actions {
		if err := validateAction(a); err != nil {
			return err
		}
	}

	if err := p.validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeValidation, "invalid strategy", err)
	}

	if s.EngineVersion != "" {
		if err := version.CheckStrategyCompatibility(p.engineVersion, s.EngineVersion); err != nil {
			return err
		}
	}

	return nil
}

func validateAction(a types.Action) error {
	if !a.Type.Valid() {
		return errors.Newf(errors.ErrCodeValidation, "action %s: unsupported type %q", a.ID, a.Type)
	}

	if strings.TrimSpace(a.Symbol) == "" {
		return errors.Newf(errors.ErrCodeValidation, "action %s: symbol is required", a.ID)
	}

	if !a.TimeInForce.Valid() {
		return errors.Newf(errors.ErrCodeValidation, "action %s: unsupported timeInForce %q", a.ID, a.TimeInForce)
	}

	if !a.Type.IsTrade() {
		return nil
	}

	if a.Quantity <= 0 {
		return errors.Newf(errors.ErrCodeValidation, "action %s: quantity must be positive", a.ID)
	}

	if a.Type.IsLimit() {
		price, err := a.Price.Take()
		if err != nil || price <= 0 {
			return errors.Newf(errors.ErrCodeValidation, "action %s: %s requires a positive price", a.ID, a.Type)
		}
	}

	return nil
}

func decodeJSON(input []byte) (document, error) {
	var doc document
	if err := json.Unmarshal(input, &doc); err != nil {
		return document{}, errors.Wrap(errors.ErrCodeMalformedInput, "failed to decode strategy json", err)
	}

	return doc, nil
}

// decodeYAML reads YAML into a generic tree and re-encodes it as JSON so both formats share one decoder.
func decodeYAML(input []byte) (document, error) {
	var tree any
	if err := yaml.Unmarshal(input, &tree); err != nil {
		return document{}, errors.Wrap(errors.ErrCodeMalformedInput, "failed to decode strategy yaml", err)
	}

	raw, err := json.Marshal(tree)
	if err != nil {
		return document{}, errors.Wrap(errors.ErrCodeMalformedInput, "strategy yaml is not representable as json", err)
	}

	return decodeJSON(raw)
}
