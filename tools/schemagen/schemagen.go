// Package main generates JSON schemas for the files feanalyzer writes.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/metric"
	"github.com/Sumatoshi-tech/feanalyzer/pkg/repo"
)

const draft07 = "https://json-schema.org/draft-07/schema#"

// Schema represents a JSON Schema.
type Schema struct {
	Schema      string             `json:"$schema,omitempty"`
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	Type        string             `json:"type,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Ref         string             `json:"$ref,omitempty"`
	Definitions map[string]*Schema `json:"definitions,omitempty"`
}

// target is one generated schema file.
type target struct {
	name        string
	title       string
	description string
	value       any
}

var targets = []target{
	{
		name:        "results",
		title:       "Feanalyzer Results",
		description: "JSON sink output: one entry per measured commit",
		value:       []metric.CommitResult{},
	},
	{
		name:        "repository",
		title:       "Feanalyzer Repository",
		description: "Repository handle attached to every report",
		value:       repo.Handle{},
	},
}

func main() {
	var outputDir string

	flag.StringVar(&outputDir, "o", "docs/schemas", "Output directory for schemas")
	flag.Parse()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	for _, tgt := range targets {
		schema := generateSchema(tgt.title, tgt.description, tgt.value)
		if err := writeSchema(filepath.Join(outputDir, tgt.name+".json"), schema); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing schema for %s: %v\n", tgt.name, err)
			os.Exit(1)
		}

		fmt.Printf("Generated schema for %s\n", tgt.name)
	}
}

func generateSchema(title, description string, v any) *Schema {
	defs := make(map[string]*Schema)

	schema := typeToSchema(reflect.TypeOf(v), defs)

	// A named struct at the top level is inlined rather than referenced.
	if schema.Ref != "" {
		name := strings.TrimPrefix(schema.Ref, "#/definitions/")
		schema = defs[name]
		delete(defs, name)
	}

	schema.Schema = draft07
	schema.Title = title
	schema.Description = description

	if len(defs) > 0 {
		schema.Definitions = defs
	}

	return schema
}

func structToProperties(t reflect.Type, defs map[string]*Schema) (map[string]*Schema, []string) {
	props := make(map[string]*Schema)

	var required []string

	for i := range t.NumField() {
		field := t.Field(i)
		jsonTag := field.Tag.Get("json")

		if jsonTag == "-" || jsonTag == "" {
			continue
		}

		parts := strings.Split(jsonTag, ",")
		jsonName := parts[0]
		isOmitempty := len(parts) > 1 && parts[1] == "omitempty"

		props[jsonName] = typeToSchema(field.Type, defs)

		if !isOmitempty {
			required = append(required, jsonName)
		}
	}

	return props, required
}

func typeToSchema(t reflect.Type, defs map[string]*Schema) *Schema {
	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if t == reflect.TypeOf(time.Duration(0)) {
			return &Schema{Type: "integer", Description: "Duration in nanoseconds"}
		}

		return &Schema{Type: "integer"}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Slice, reflect.Array:
		return &Schema{Type: "array", Items: typeToSchema(t.Elem(), defs)}

	case reflect.Map:
		return &Schema{Type: "object"}

	case reflect.Interface:
		// Metric results are plugin defined: any JSON value, null when the
		// measurement failed.
		return &Schema{Description: "Any JSON value"}

	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return &Schema{Type: "string", Description: "ISO 8601 timestamp"}
		}

		defName := t.Name()
		if defName == "" {
			props, required := structToProperties(t, defs)

			return &Schema{Type: "object", Properties: props, Required: required}
		}

		if _, exists := defs[defName]; !exists {
			defs[defName] = &Schema{}
			props, required := structToProperties(t, defs)
			*defs[defName] = Schema{Type: "object", Properties: props, Required: required}
		}

		return &Schema{Ref: "#/definitions/" + defName}

	case reflect.Ptr:
		return typeToSchema(t.Elem(), defs)

	default:
		return &Schema{Type: "object"}
	}
}

func writeSchema(path string, schema *Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}
