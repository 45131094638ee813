// Package pp provides helpers for pretty printing
package pp

import (
	"encoding/json"

	"github.com/tidwall/pretty"
)

// JSON converts a struct to a pretty-printed JSON string.
func JSON(message interface{}) string {
	b, err := json.Marshal(message)
	if err != nil {
		return ""
	}
	return PrettyJSON(b)
}

// PrettyJSON takes a JSON string and returns a pretty-printed version
func PrettyJSON(json []byte) string {
	return string(pretty.Pretty(json))
}

// ColorJSON pretty-prints and colorizes JSON for terminals
func ColorJSON(json []byte) string {
	return string(pretty.Color(pretty.Pretty(json), nil))
}
