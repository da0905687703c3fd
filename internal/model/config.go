package model

// --- Configuration Structures ---

const (
	PrinterConfigFile  = "printer_config.json"
	DefaultPrinterIP   = "172.16.0.55"
	DefaultPrinterPort = 9944
)

// Config is the host configuration, read from the environment.
type Config struct {
	ListenAddr     string `env:"BRIDGE_LISTEN_ADDR" envDefault:"127.0.0.1:8765"`
	Packaged       bool   `env:"BRIDGE_PACKAGED" envDefault:"false"`
	ResourcesPath  string `env:"BRIDGE_RESOURCES_PATH"`
	MaxOutputBytes int    `env:"BRIDGE_MAX_OUTPUT_BYTES" envDefault:"1048576"`
	HistorySize    int    `env:"BRIDGE_HISTORY_SIZE" envDefault:"100"`
	DiscoveryPort  int    `env:"BRIDGE_DISCOVERY_PORT" envDefault:"9944"`
	ChromePath     string `env:"BRIDGE_CHROME_PATH"`
}

// PrinterConfig is shared with the python printer scripts, so the json keys
// are fixed.
type PrinterConfig struct {
	PrinterIP   string `json:"printer_ip"`
	PrinterPort int    `json:"printer_port"`
}

func DefaultPrinterConfig() PrinterConfig {
	return PrinterConfig{
		PrinterIP:   DefaultPrinterIP,
		PrinterPort: DefaultPrinterPort,
	}
}

type SaveResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
