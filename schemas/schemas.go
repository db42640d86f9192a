// Package schemas embeds the JSON Schemas shipped with the harvester.
package schemas

import _ "embed"

// HarvesterConfig is the JSON Schema for the --config file.
//
//go:embed harvester_config.schema.json
var HarvesterConfig string
