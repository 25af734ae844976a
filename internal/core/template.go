package core

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// ExecuteTemplate, verilen içeriği (content) sağlanan veri (data) ile işler.
// Belge adları için kullanılır, örn. "clone-{{ .Name }}-{{ now | date \"20060102\" }}.json".
func ExecuteTemplate(content string, data interface{}) (string, error) {
	// missingkey=zero allows optional variables (returning nil/zero), which works with Sprig's 'default'.
	tmpl, err := template.New("clonectl").Funcs(sprig.TxtFuncMap()).Option("missingkey=zero").Parse(content)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
