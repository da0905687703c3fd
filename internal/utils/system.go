package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// WindowsLauncher is tried once after the primary interpreter fails on windows.
	WindowsLauncher = "py"

	defaultPython        = "python3"
	defaultWindowsPython = "python"
)

// SystemInfo holds information about the current system
type SystemInfo struct {
	OS            string
	Architecture  string
	PythonPath    string
	PythonVersion string
	ChromePresent bool
	ChromePath    string
}

// DetectSystem returns information about the current operating system and architecture
func DetectSystem() SystemInfo {
	return SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}
}

// --------------------------------------
// PYTHON RESOLUTION
// --------------------------------------

// VenvPython is the interpreter path of the virtual environment under scriptRoot.
func VenvPython(goos, scriptRoot string) string {
	if goos == "windows" {
		return filepath.Join(scriptRoot, "venv", "Scripts", "python.exe")
	}
	return filepath.Join(scriptRoot, "venv", "bin", "python")
}

// ResolvePythonExecutable picks the interpreter for scripts under scriptRoot.
// A venv that exists is used without checking that it works; a broken one only
// shows up as an invocation failure.
func ResolvePythonExecutable(scriptRoot string) string {
	return resolvePythonExecutable(runtime.GOOS, scriptRoot)
}

func resolvePythonExecutable(goos, scriptRoot string) string {
	venvPython := VenvPython(goos, scriptRoot)
	if _, err := os.Stat(venvPython); err == nil {
		return venvPython
	}
	if goos == "windows" {
		return defaultWindowsPython
	}
	return defaultPython
}

// --------------------------------------
// CHROME CHECK
// --------------------------------------

// CheckChrome checks if google-chrome or chromium is installed
func CheckChrome() (bool, string) {
	// Try common binary names
	binaries := []string{
		"google-chrome",
		"google-chrome-stable",
		"chromium",
		"chromium-browser",
	}

	for _, bin := range binaries {
		path, err := exec.LookPath(bin)
		if err == nil {
			return true, path
		}
	}

	for _, path := range getCommonChromePaths() {
		if _, err := os.Stat(path); err == nil {
			return true, path
		}
	}

	return false, ""
}

func getCommonChromePaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}

	case "linux":
		return []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}

	case "windows":
		return []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}

	default:
		return []string{}
	}
}

// --------------------------------------
// VALIDATION
// --------------------------------------

// ValidateSystemRequirements prints what the bridge will use to run scripts
// and render previews. Only a missing interpreter is an error.
func ValidateSystemRequirements(scriptRoot string) error {
	sysInfo := DetectSystem()
	sysInfo.PythonPath = ResolvePythonExecutable(scriptRoot)

	fmt.Printf("System Information:\n")
	fmt.Printf("  OS: %s\n", sysInfo.OS)
	fmt.Printf("  Architecture: %s\n", sysInfo.Architecture)
	fmt.Printf("  Script root: %s\n", scriptRoot)
	fmt.Println()

	isPresent, path := CheckChrome()
	sysInfo.ChromePresent = isPresent
	sysInfo.ChromePath = path
	if isPresent {
		fmt.Printf("✓ Chrome/Chromium found at: %s\n", path)
	} else {
		fmt.Println("! Chrome / Chromium not found, label previews are disabled.")
	}

	version, err := getVersion(sysInfo.PythonPath)
	if err != nil && runtime.GOOS == "windows" {
		sysInfo.PythonPath = WindowsLauncher
		version, err = getVersion(WindowsLauncher)
	}
	if err == nil {
		sysInfo.PythonVersion = version
		fmt.Printf("✓ Python found: %s\n", sysInfo.PythonPath)
		fmt.Printf("  Version: %s\n\n", sysInfo.PythonVersion)
		return nil
	}

	fmt.Printf("✗ Python interpreter %q is not usable: %v\n\n", sysInfo.PythonPath, err)
	showPythonInstallationInstructions(sysInfo.OS, scriptRoot)

	return fmt.Errorf("python is required but not usable")
}

// getVersion runs "<path> --version". Python 2 prints it on stderr.
func getVersion(path string) (string, error) {
	cmd := exec.Command(path, "--version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

func showPythonInstallationInstructions(osType, scriptRoot string) {
	fmt.Println("Installation Instructions:")
	fmt.Println()

	switch osType {
	case "linux":
		fmt.Println("Ubuntu / Debian:")
		fmt.Println("  sudo apt update")
		fmt.Println("  sudo apt install python3 python3-venv")

	case "darwin":
		fmt.Println("Using Homebrew:")
		fmt.Println("  brew install python")

	case "windows":
		fmt.Println("Download Python (enable the py launcher):")
		fmt.Println("  https://www.python.org/downloads/windows/")

	default:
		fmt.Println("Please install Python 3 for your OS.")
	}

	fmt.Println()
	fmt.Println("Optionally create a local environment next to the scripts:")
	fmt.Printf("  python3 -m venv %s\n", filepath.Join(scriptRoot, "venv"))
	fmt.Println()
}
