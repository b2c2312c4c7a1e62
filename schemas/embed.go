// Package schemas embeds the JSON Schema documents shipped with the script generator.
package schemas

import "embed"

//go:embed *.schema.json
var files embed.FS

// TemplateFile is the schema for script template documents.
const TemplateFile = "template.schema.json"

// Template returns the script template schema.
func Template() []byte {
	data, err := files.ReadFile(TemplateFile)
	if err != nil {
		panic("schemas: embedded template schema missing: " + err.Error())
	}
	return data
}
