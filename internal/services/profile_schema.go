package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gorm.io/datatypes"
)

// Profile section names accepted on candidate updates.
const (
	SectionEducation             = "education"
	SectionExperience            = "experience"
	SectionProfessionalFormation = "professional_formation"
	SectionProjects              = "projects"
	SectionGrowcoachFormation    = "growcoach_formation"
)

func sectionSchema(required string, properties ...string) map[string]any {
	props := make(map[string]any, len(properties))
	for _, name := range properties {
		props[name] = map[string]any{"type": "string", "maxLength": 2000}
	}
	return map[string]any{
		"type":     "array",
		"maxItems": 50,
		"items": map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             []any{required},
			"additionalProperties": false,
		},
	}
}

var sectionFields = map[string][]string{
	SectionEducation:             {"school", "degree", "start_date", "end_date", "description"},
	SectionExperience:            {"title", "company", "start_date", "end_date", "description"},
	SectionProfessionalFormation: {"title", "institution", "start_date", "end_date", "description"},
	SectionProjects:              {"name", "description", "link"},
	SectionGrowcoachFormation:    {"title", "start_date", "end_date", "description"},
}

// SectionFields lists the keys an entry of the section may carry. The first
// key is required.
func SectionFields(name string) []string {
	return append([]string(nil), sectionFields[name]...)
}

// ProfileSections lists every section name in display order.
func ProfileSections() []string {
	return []string{SectionEducation, SectionExperience, SectionProfessionalFormation, SectionProjects, SectionGrowcoachFormation}
}

var (
	compiledSchemasOnce sync.Once
	compiledSchemas     map[string]*gojsonschema.Schema
	compiledSchemasErr  error
)

func profileSchemas() (map[string]*gojsonschema.Schema, error) {
	compiledSchemasOnce.Do(func() {
		compiledSchemas = make(map[string]*gojsonschema.Schema, len(sectionFields))
		for name, fields := range sectionFields {
			def := sectionSchema(fields[0], fields...)
			schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def))
			if err != nil {
				compiledSchemasErr = fmt.Errorf("profile schema %s: %w", name, err)
				return
			}
			compiledSchemas[name] = schema
		}
	})
	return compiledSchemas, compiledSchemasErr
}

// validateSection checks a profile section document and returns it as a JSON
// column value. An empty document becomes an empty array.
func validateSection(name string, raw json.RawMessage) (datatypes.JSON, error) {
	schemas, err := profileSchemas()
	if err != nil {
		return nil, err
	}
	schema, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("profile schema %s: unknown section", name)
	}

	if len(strings.TrimSpace(string(raw))) == 0 || strings.TrimSpace(string(raw)) == "null" {
		return datatypes.JSON("[]"), nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, validationError(fmt.Sprintf("%s must be a JSON array", name))
	}
	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return nil, validationError(fmt.Sprintf("Invalid %s: %s", name, strings.Join(messages, "; ")))
	}
	return datatypes.JSON(raw), nil
}

// sectionLen reports how many entries a stored section holds.
func sectionLen(value datatypes.JSON) int {
	if len(value) == 0 {
		return 0
	}
	var items []json.RawMessage
	if err := json.Unmarshal(value, &items); err != nil {
		return 0
	}
	return len(items)
}
