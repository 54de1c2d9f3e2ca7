package llm

import "github.com/invopop/jsonschema"

// GenerateSchema reflects a JSON schema for T, suitable for Request.Schema.
func GenerateSchema[T any]() any {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
