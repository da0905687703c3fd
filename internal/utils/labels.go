package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Riboost-Studio/traceability-label-bridge/internal/model"
)

const (
	CreateLabelScript = "create_message/create_product_label.py"
	RunCommandScript  = "create_message/run_command.py"

	formDateLayout = "2006-01-02"
)

var (
	messageCreatedRe = regexp.MustCompile(`Message '([^']+)' created`)
	digitsRe         = regexp.MustCompile(`^\d+$`)
)

// ValidateLabelForm applies the printing module's rules, with today taken from now.
func ValidateLabelForm(form model.LabelForm, now time.Time) error {
	if form.MfgDate == "" || form.ExpDate == "" || form.GTIN == "" || form.Batch == "" || form.SerialNumber == "" {
		return errors.New("please fill in all required fields")
	}
	if !digitsRe.MatchString(form.GTIN) {
		return errors.New("GTIN must be numeric")
	}
	if !digitsRe.MatchString(form.SerialNumber) {
		return errors.New("serial number must be numeric")
	}

	mfg, err := time.Parse(formDateLayout, form.MfgDate)
	if err != nil {
		return fmt.Errorf("invalid manufacturing date %q", form.MfgDate)
	}
	exp, err := time.Parse(formDateLayout, form.ExpDate)
	if err != nil {
		return fmt.Errorf("invalid expiry date %q", form.ExpDate)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if mfg.After(today) {
		return errors.New("manufacturing date cannot be in the future")
	}
	if exp.Before(today) {
		return errors.New("expiry date cannot be in the past")
	}
	if !exp.After(mfg) {
		return errors.New("expiry date must be after manufacturing date")
	}
	return nil
}

// FormatMMYYYY turns a YYYY-MM-DD form date into the MMYYYY printer format.
func FormatMMYYYY(date string) string {
	t, err := time.Parse(formDateLayout, date)
	if err != nil {
		return ""
	}
	return t.Format("012006")
}

// LabelMessageName is the unique printer message name for a label created at now.
func LabelMessageName(now time.Time) string {
	return fmt.Sprintf("PharmaLabel_%04d", now.UnixMilli()%10000)
}

// CreateLabelArgs builds the create_product_label.py argument vector.
func CreateLabelArgs(name string, form model.LabelForm) []string {
	args := []string{
		name,
		"--gtin", form.GTIN,
		"--mfg", FormatMMYYYY(form.MfgDate),
		"--exp", FormatMMYYYY(form.ExpDate),
		"--batch", form.Batch,
		"--sn", form.SerialNumber,
	}
	if form.TMDAReg != "" {
		args = append(args, "--tmda_reg", form.TMDAReg)
	}
	return args
}

// ParseLabelCreated extracts the message name from the script output. ok is
// false when the output shows no sign of success.
func ParseLabelCreated(output string) (model.LabelCreated, bool) {
	created := model.LabelCreated{Output: output}
	if m := messageCreatedRe.FindStringSubmatch(output); m != nil {
		created.MessageName = m[1]
		return created, true
	}
	return created, strings.Contains(output, "[OK]")
}

// PrintControlArgs builds the run_command.py argument vector.
func PrintControlArgs(cmd model.PrintCommand, messageName string) ([]string, error) {
	switch cmd {
	case model.PrintCommandStart:
		if messageName == "" {
			return nil, errors.New("please generate a label first")
		}
		return []string{"print", "start", messageName}, nil
	case model.PrintCommandStop:
		return []string{"print", "stop"}, nil
	default:
		return nil, fmt.Errorf("unknown print command %q", cmd)
	}
}

type printerReply struct {
	Status   string `json:"status"`
	Descript string `json:"descript"`
}

// ParsePrintControl interprets the printer's reply to a print command. The
// printer answers in json; anything else is judged by keywords.
func ParsePrintControl(cmd model.PrintCommand, output string) model.PrintControlResult {
	result := model.PrintControlResult{Output: output}

	var reply printerReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &reply); err != nil {
		lower := strings.ToLower(output)
		switch {
		case cmd == model.PrintCommandStop:
			result.Success = true
			result.Message = "Stop command sent"
		case strings.Contains(lower, "ok") || strings.Contains(lower, "success"):
			result.Success = true
			result.Message = "Print initiated"
		default:
			result.Message = "Print failed: " + truncate(output, 100)
		}
		return result
	}

	result.Status = reply.Status
	switch {
	case reply.Status == "ok" && cmd == model.PrintCommandStop:
		result.Success = true
		result.Message = "Print job stopped"
	case reply.Status == "ok":
		result.Success = true
		result.Message = "Print job started successfully"
	case cmd == model.PrintCommandStart && reply.Descript == "print engine is running":
		result.Message = "Print engine is already running"
	default:
		descript := reply.Descript
		if descript == "" {
			descript = "Unknown error"
		}
		if cmd == model.PrintCommandStop {
			result.Message = "Stop failed: " + descript
		} else {
			result.Message = "Print failed: " + descript
		}
	}
	return result
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
