package model

import "encoding/json"

type MessageType string

const (
	MessageTypePing              MessageType = "ping"
	MessageTypePong              MessageType = "pong"
	MessageTypeRunPython         MessageType = "run_python"
	MessageTypeExecutePython     MessageType = "execute_python"
	MessageTypeGetPrinterConfig  MessageType = "get_printer_config"
	MessageTypeSavePrinterConfig MessageType = "save_printer_config"
	MessageTypeCreateLabel       MessageType = "create_label"
	MessageTypePrintControl      MessageType = "print_control"
	MessageTypeCheckPrinter      MessageType = "check_printer"
	MessageTypeDiscoverPrinters  MessageType = "discover_printers"
	MessageTypeRenderPreview     MessageType = "render_label_preview"
	MessageTypeGetHistory        MessageType = "get_history"
	MessageTypeError             MessageType = "error"
)

// --- WebSocket Messages ---

// WSRequest is sent by the UI. Which fields are read depends on Type.
type WSRequest struct {
	ID          string          `json:"id"`
	Type        MessageType     `json:"type"`
	ScriptName  string          `json:"scriptName,omitempty"`
	Args        []string        `json:"args,omitempty"`
	Action      LabelAction     `json:"action,omitempty"`
	Data        string          `json:"data,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"` // validated before decoding
	Label       *LabelForm      `json:"label,omitempty"`
	MessageName string          `json:"messageName,omitempty"`
	Command     PrintCommand    `json:"command,omitempty"`
}

// WSResponse answers exactly one WSRequest, matched by ID. OK=false carries
// the diagnostic text in Error.
type WSResponse struct {
	ID     string      `json:"id"`
	Type   MessageType `json:"type"`
	OK     bool        `json:"ok"`
	Result any         `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}
