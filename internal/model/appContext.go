package model

import "path/filepath"

// AppContext is the host-side application state handed to the gateway and
// the websocket server. It replaces package-level singletons.
type AppContext struct {
	Name       string
	Version    string
	Author     string
	Config     Config
	ScriptRoot string
}

// PrinterConfigPath is where the printer scripts read their connection settings.
func (a *AppContext) PrinterConfigPath() string {
	return filepath.Join(a.ScriptRoot, "create_message", PrinterConfigFile)
}
