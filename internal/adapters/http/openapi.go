package http

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// openAPIJSON renders the embedded document once and serves the cached bytes.
var openAPIJSON = sync.OnceValues(func() ([]byte, error) {
	return renderOpenAPI(openAPIDocument)
})

func renderOpenAPI(doc []byte) ([]byte, error) {
	var tree interface{}
	if err := yaml.Unmarshal(doc, &tree); err != nil {
		return nil, fmt.Errorf("parsing OpenAPI document: %w", err)
	}
	return json.MarshalIndent(jsonTree(tree), "", "  ")
}

// jsonTree rewrites the decoded YAML into values encoding/json accepts.
// Mappings with non-string keys, such as unquoted status codes, get their
// keys formatted as strings.
func jsonTree(v interface{}) interface{} {
	switch node := v.(type) {
	case map[string]interface{}:
		for key, child := range node {
			node[key] = jsonTree(child)
		}
		return node
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(node))
		for key, child := range node {
			out[fmt.Sprint(key)] = jsonTree(child)
		}
		return out
	case []interface{}:
		for i, child := range node {
			node[i] = jsonTree(child)
		}
		return node
	default:
		return v
	}
}
