package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"
)

// Parser loads and validates CUE settings files.
type Parser struct {
	ctx      *cue.Context
	schema   cue.Value
	validate *validator.Validate
}

// NewParser creates a settings parser with the built-in schema compiled.
func NewParser() (*Parser, error) {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileString(settingsSchema)
	if err := schemaVal.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile settings schema: %w", err)
	}
	schema := schemaVal.LookupPath(cue.ParsePath("#Settings"))
	if !schema.Exists() {
		return nil, fmt.Errorf("settings schema missing #Settings definition")
	}

	return &Parser{
		ctx:      ctx,
		schema:   schema,
		validate: validator.New(),
	}, nil
}

// Load reads a settings file and returns the decoded settings with
// defaults applied.
func (p *Parser) Load(path string) (*Settings, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return p.ParseInline(string(content), path)
}

// ParseInline parses settings from CUE source text.
func (p *Parser) ParseInline(content, filename string) (*Settings, error) {
	val := p.ctx.CompileString(content, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse config: %s", cueDetails(err))
	}

	// Unifying with the closed schema rejects unknown fields and wrong
	// types before anything is decoded.
	unified := p.schema.Unify(val)
	if err := unified.Validate(); err != nil {
		return nil, fmt.Errorf("config does not match schema: %s", cueDetails(err))
	}

	settings := DefaultSettings()
	if err := unified.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to decode config: %s", cueDetails(err))
	}

	if err := p.validate.Struct(settings); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return settings, nil
}

// cueDetails renders a CUE error with file positions.
func cueDetails(err error) string {
	return errors.Details(err, nil)
}
