package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Validator checks documents written through the relay.
type Validator struct {
	world  *jsonschema.Schema
	player *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	for _, name := range []string{"world.schema.json", "player.schema.json"} {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
	}
	world, err := c.Compile("world.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile world schema: %w", err)
	}
	player, err := c.Compile("player.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile player schema: %w", err)
	}
	return &Validator{world: world, player: player}, nil
}

// SchemaFor picks the schema by path shape: worlds/<code> or
// worlds/<code>/players/<uid>. Other paths are not validated.
func (v *Validator) SchemaFor(path string) *jsonschema.Schema {
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 2 && parts[0] == "worlds":
		return v.world
	case len(parts) == 4 && parts[0] == "worlds" && parts[2] == "players":
		return v.player
	}
	return nil
}

// Validate round-trips doc through JSON so numbers match what the validator
// expects.
func (v *Validator) Validate(path string, doc map[string]any) error {
	s := v.SchemaFor(path)
	if s == nil {
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var plain any
	if err := json.Unmarshal(b, &plain); err != nil {
		return err
	}
	return s.Validate(plain)
}
