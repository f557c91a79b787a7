package rater

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ratingSchemaJSON constrains the model's answer before it is decoded.
// Extra keys are tolerated; missing or mistyped ones are not.
const ratingSchemaJSON = `{
	"type": "object",
	"required": ["effortScore", "complexity", "novelty", "type", "confidence"],
	"properties": {
		"effortScore": {"type": "number", "minimum": 0, "maximum": 10},
		"complexity": {"type": "number", "minimum": 0, "maximum": 10},
		"novelty": {"type": "number", "minimum": 0, "maximum": 10},
		"type": {"type": "string"},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"reasoning": {"type": "string"}
	}
}`

var ratingSchema = mustCompileRatingSchema()

func mustCompileRatingSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(ratingSchemaJSON)))
	if err != nil {
		panic(fmt.Sprintf("rating schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rating.json", doc); err != nil {
		panic(fmt.Sprintf("rating schema: %v", err))
	}
	schema, err := compiler.Compile("rating.json")
	if err != nil {
		panic(fmt.Sprintf("rating schema: %v", err))
	}
	return schema
}

// validateRatingJSON checks a candidate response document against the
// rating schema.
func validateRatingJSON(raw []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return ratingSchema.Validate(doc)
}
