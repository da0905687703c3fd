package model

// LabelAction is the first argument of print_label.py.
type LabelAction string

const (
	LabelActionCreate LabelAction = "create"
	LabelActionPrint  LabelAction = "print"
)

func (a LabelAction) Valid() bool {
	return a == LabelActionCreate || a == LabelActionPrint
}

type PrintCommand string

const (
	PrintCommandStart PrintCommand = "start"
	PrintCommandStop  PrintCommand = "stop"
)

// --- Label Structures ---

// LabelForm is the product label as entered in the printing module. Dates
// are YYYY-MM-DD.
type LabelForm struct {
	MfgDate      string `json:"mfgDate"`
	ExpDate      string `json:"expDate"`
	GTIN         string `json:"gtin"`
	Batch        string `json:"batch"`
	TMDAReg      string `json:"tmdaReg,omitempty"`
	SerialNumber string `json:"serialNumber"`
}

type LabelCreated struct {
	MessageName string `json:"messageName,omitempty"`
	Output      string `json:"output"`
}

// PrintControlResult is the interpreted reply of run_command.py.
type PrintControlResult struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
	Output  string `json:"output"`
}

type PrinterStatus struct {
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	Reachable bool   `json:"reachable"`
}

type LabelPreview struct {
	PNG string `json:"png"` // base64
}
