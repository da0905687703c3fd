package utils

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/kaptinlin/jsonschema"

	"github.com/Riboost-Studio/traceability-label-bridge/internal/model"
)

// --- Utility Functions ---

func DetectLocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String(), nil
		}
	}
	return "", fmt.Errorf("no local IPv4 address found")
}

func Probe(ip string, port int, timeout time.Duration) bool {
	addr := net.JoinHostPort(ip, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// --- Host Configuration ---

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (model.Config, error) {
	_ = godotenv.Load()

	var config model.Config
	if err := env.Parse(&config); err != nil {
		return config, fmt.Errorf("parse environment: %w", err)
	}
	if config.ResourcesPath == "" {
		exe, err := os.Executable()
		if err != nil {
			return config, fmt.Errorf("locate executable: %w", err)
		}
		config.ResourcesPath = filepath.Join(filepath.Dir(exe), "resources")
	}
	if config.MaxOutputBytes <= 0 {
		return config, fmt.Errorf("BRIDGE_MAX_OUTPUT_BYTES must be positive, got %d", config.MaxOutputBytes)
	}
	if config.HistorySize <= 0 {
		return config, fmt.Errorf("BRIDGE_HISTORY_SIZE must be positive, got %d", config.HistorySize)
	}
	return config, nil
}

// ModuleDir is the repository root, derived from this source file's location.
// Binaries built with -trimpath or on another machine have no usable source
// path; the executable's directory is used then.
func ModuleDir() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		filename = ""
	}
	return moduleDir(filename, os.Executable)
}

func moduleDir(sourceFile string, executable func() (string, error)) string {
	if filepath.IsAbs(sourceFile) {
		dir := filepath.Clean(filepath.Join(filepath.Dir(sourceFile), "..", ".."))
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
	}
	exe, err := executable()
	if err != nil {
		log.Printf("[config] Cannot locate module or executable: %v", err)
		return "."
	}
	log.Printf("[config] Source tree not found, using executable directory")
	return filepath.Dir(exe)
}

// ScriptRoot is the directory holding the python scripts: under the packaged
// resources, or next to the module in development.
func ScriptRoot(packaged bool, resourcesPath, moduleDir string) string {
	if packaged {
		return filepath.Join(resourcesPath, "python")
	}
	return filepath.Join(moduleDir, "python")
}

// --- Printer Configuration ---

const printerConfigSchema = `{
	"type": "object",
	"properties": {
		"printer_ip": {"type": "string", "minLength": 1},
		"printer_port": {"type": "integer", "minimum": 1, "maximum": 65535}
	},
	"required": ["printer_ip", "printer_port"]
}`

var printerSchema = mustCompileSchema(printerConfigSchema)

func mustCompileSchema(src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(src))
	if err != nil {
		panic(fmt.Sprintf("compile printer config schema: %v", err))
	}
	return schema
}

// DecodePrinterConfig validates raw json against the printer config schema
// before decoding it.
func DecodePrinterConfig(data []byte) (model.PrinterConfig, error) {
	var config model.PrinterConfig
	result := printerSchema.ValidateJSON(data)
	if !result.IsValid() {
		var problems []string
		for field, e := range result.Errors {
			problems = append(problems, fmt.Sprintf("%s: %v", field, e))
		}
		sort.Strings(problems)
		return config, fmt.Errorf("invalid printer config: %s", strings.Join(problems, "; "))
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("invalid printer config: %w", err)
	}
	return config, nil
}

// LoadPrinterConfig never fails: a missing or unreadable file yields the default.
func LoadPrinterConfig(path string) model.PrinterConfig {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return model.DefaultPrinterConfig()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[printer] Error reading printer config: %v", err)
		return model.DefaultPrinterConfig()
	}
	var config model.PrinterConfig
	if err := json.Unmarshal(data, &config); err != nil {
		log.Printf("[printer] Error parsing printer config: %v", err)
		return model.DefaultPrinterConfig()
	}
	return config
}

// SavePrinterConfig overwrites the whole file.
func SavePrinterConfig(path string, config model.PrinterConfig) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0644)
}

// WriteFileAtomic replaces path with content so a concurrent reader sees
// either the old or the new document.
func WriteFileAtomic(path string, content []byte, mode os.FileMode) error {
	parent := filepath.Dir(path)
	tempFile, err := os.CreateTemp(parent, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(content); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Chmod(mode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS != "windows" {
			return fmt.Errorf("rename temp file: %w", err)
		}
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
			return fmt.Errorf("remove destination before rename: %w", removeErr)
		}
		if renameErr := os.Rename(tempPath, path); renameErr != nil {
			return fmt.Errorf("rename temp file after remove: %w", renameErr)
		}
	}
	cleanup = false

	if dirHandle, err := os.Open(parent); err == nil {
		_ = dirHandle.Sync()
		_ = dirHandle.Close()
	}
	return nil
}
