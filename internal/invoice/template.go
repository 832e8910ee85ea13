package invoice

import (
	"bytes"
	_ "embed"
	"html/template"
)

//go:embed invoice.html.tmpl
var invoiceTemplate string

var slip = template.Must(template.New("invoice").Parse(invoiceTemplate))

// HTML renders the slip document.
func HTML(doc *Document) (string, error) {
	var buf bytes.Buffer
	if err := slip.Execute(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}
