package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/Riboost-Studio/traceability-label-bridge/internal/model"
	"github.com/Riboost-Studio/traceability-label-bridge/internal/utils"
)

// PrintLabelScript handles every execute_python action.
const PrintLabelScript = "print_label.py"

// Gateway holds the operations the UI may call. It keeps no per-call state;
// concurrent calls each spawn their own process.
type Gateway struct {
	app     *model.AppContext
	invoker *Invoker
	history *History

	resolve func(scriptRoot string) string
	now     func() time.Time
	render  func(ctx context.Context, chromePath string, form model.LabelForm) ([]byte, error)
	scan    func(ctx context.Context, port int) ([]string, error)
}

func NewGateway(app *model.AppContext, invoker *Invoker, history *History) *Gateway {
	return &Gateway{
		app:     app,
		invoker: invoker,
		history: history,
		resolve: utils.ResolvePythonExecutable,
		now:     time.Now,
		render:  RenderLabelPreview,
		scan:    DiscoverPrinters,
	}
}

// RunPython runs <scriptRoot>/<scriptName> and returns its text output. The
// error carries the best diagnostic text once every attempt has failed.
func (g *Gateway) RunPython(ctx context.Context, scriptName string, args []string) (string, error) {
	if scriptName == "" {
		return "", errors.New("script name is required")
	}
	out := g.run(ctx, model.MessageTypeRunPython, scriptName, args)
	return InterpretPlain(out)
}

// ExecutePython runs print_label.py with [action, data]. It never fails: every
// error is reported as {success: false, error: ...}.
func (g *Gateway) ExecutePython(ctx context.Context, action model.LabelAction, data string) model.StructuredResult {
	if !action.Valid() {
		return model.FailureResult(fmt.Sprintf("Unknown action: %s", action))
	}
	if action == model.LabelActionCreate {
		var obj map[string]any
		if err := json.Unmarshal([]byte(data), &obj); err != nil || obj == nil {
			return model.FailureResult("label data must be a JSON object")
		}
	}
	out := g.run(ctx, model.MessageTypeExecutePython, PrintLabelScript, []string{string(action), data})
	result := InterpretExecution(out)
	if !out.Success() {
		log.Printf("[gateway] execute %s failed: %v", action, out.Err)
	}
	return result
}

func (g *Gateway) GetPrinterConfig() model.PrinterConfig {
	return utils.LoadPrinterConfig(g.app.PrinterConfigPath())
}

// SavePrinterConfig validates raw and overwrites the printer config file.
func (g *Gateway) SavePrinterConfig(raw json.RawMessage) model.SaveResult {
	if len(raw) == 0 {
		return model.SaveResult{Success: false, Error: "config is required"}
	}
	config, err := utils.DecodePrinterConfig(raw)
	if err != nil {
		return model.SaveResult{Success: false, Error: err.Error()}
	}
	if err := utils.SavePrinterConfig(g.app.PrinterConfigPath(), config); err != nil {
		log.Printf("[gateway] Error saving printer config: %v", err)
		return model.SaveResult{Success: false, Error: err.Error()}
	}
	return model.SaveResult{Success: true}
}

// CreateLabel validates the form and creates the printer message for it.
func (g *Gateway) CreateLabel(ctx context.Context, form model.LabelForm) (model.LabelCreated, error) {
	if err := utils.ValidateLabelForm(form, g.now()); err != nil {
		return model.LabelCreated{}, err
	}
	name := utils.LabelMessageName(g.now())
	output, err := g.RunPython(ctx, utils.CreateLabelScript, utils.CreateLabelArgs(name, form))
	if err != nil {
		return model.LabelCreated{}, err
	}
	created, ok := utils.ParseLabelCreated(output)
	if !ok {
		return created, fmt.Errorf("failed to create label: %s", output)
	}
	return created, nil
}

// PrintControl starts printing messageName or stops the print engine.
func (g *Gateway) PrintControl(ctx context.Context, cmd model.PrintCommand, messageName string) (model.PrintControlResult, error) {
	args, err := utils.PrintControlArgs(cmd, messageName)
	if err != nil {
		return model.PrintControlResult{}, err
	}
	output, err := g.RunPython(ctx, utils.RunCommandScript, args)
	if err != nil {
		return model.PrintControlResult{}, err
	}
	return utils.ParsePrintControl(cmd, output), nil
}

func (g *Gateway) CheckPrinter() model.PrinterStatus {
	return CheckPrinter(g.GetPrinterConfig())
}

func (g *Gateway) DiscoverPrinters(ctx context.Context) ([]string, error) {
	return g.scan(ctx, g.app.Config.DiscoveryPort)
}

func (g *Gateway) RenderPreview(ctx context.Context, form model.LabelForm) (model.LabelPreview, error) {
	chromePath := g.app.Config.ChromePath
	if chromePath == "" {
		if ok, path := utils.CheckChrome(); ok {
			chromePath = path
		}
	}
	png, err := g.render(ctx, chromePath, form)
	if err != nil {
		return model.LabelPreview{}, err
	}
	return model.LabelPreview{PNG: base64.StdEncoding.EncodeToString(png)}, nil
}

func (g *Gateway) History() []model.HistoryEntry {
	return g.history.Entries()
}

// run resolves the interpreter, invokes the script and records the call.
func (g *Gateway) run(ctx context.Context, op model.MessageType, scriptName string, args []string) model.Outcome {
	root := g.app.ScriptRoot
	executable := g.resolve(root)
	scriptPath := filepath.Join(root, scriptName)

	started := g.now()
	out := g.invoker.RunWithFallback(ctx, executable, scriptPath, args)
	g.history.Record(model.HistoryEntry{
		Operation:  op,
		Script:     scriptName,
		Args:       args,
		Executable: out.Executable,
		Success:    out.Success(),
		Error:      out.ErrorMessage(),
		StartedAt:  started,
		Duration:   g.now().Sub(started),
	})
	return out
}
