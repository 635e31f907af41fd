package room

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

const DefaultWelcomeMessage = `Welcome {{ .Username }} to the gallery!`

var templateFuncs = sprig.TxtFuncMap()

// WelcomeData is the data available to welcome message templates.
type WelcomeData struct {
	Username     string
	RoomId       string
	RoomName     string
	TotalPlayers int
	MaxClients   int
}

// ParseWelcome compiles a welcome message template. An empty string uses
// DefaultWelcomeMessage.
func ParseWelcome(tmplStr string) (*template.Template, error) {
	if tmplStr == "" {
		tmplStr = DefaultWelcomeMessage
	}

	tmpl, err := template.New("welcome").Funcs(templateFuncs).Option("missingkey=error").Parse(tmplStr)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	return tmpl, nil
}

func expandWelcome(tmpl *template.Template, data WelcomeData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}
