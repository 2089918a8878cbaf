package config

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*
var schemaFiles embed.FS

// loadSchema resolves an "embedFS://schemas/node.schema.json" reference
// against schemaFiles. url.Parse treats the segment right after "://" as
// the host, not the path, so the embed.FS path has to be reassembled from
// both Host and Path rather than read off Path alone.
func loadSchema(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Host + strings.TrimPrefix(u.Path, "/"))
}

func init() {
	jsonschema.Loaders["embedFS"] = loadSchema
}

// validate checks raw against the node configuration schema before it is
// decoded into Keys, the way cc-backend's pkg/schema.Validate checks its
// config document against config.schema.json before decoding.
func validate(raw []byte) error {
	s, err := jsonschema.Compile("embedFS://schemas/node.schema.json")
	if err != nil {
		return fmt.Errorf("config: compile schema: %w", err)
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("config: decode for validation: %w", err)
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("config: %#v", err)
	}
	return nil
}
