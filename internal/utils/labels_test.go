package utils

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/traceability-label-bridge/internal/model"
)

var labelNow = time.Date(2026, 10, 18, 14, 30, 0, 0, time.UTC)

func validForm() model.LabelForm {
	return model.LabelForm{
		MfgDate:      "2026-09-01",
		ExpDate:      "2028-09-01",
		GTIN:         "00012345678905",
		Batch:        "B-77",
		SerialNumber: "1001",
	}
}

func TestValidateLabelForm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(f *model.LabelForm)
		wantErr string
	}{
		{name: "valid", mutate: func(f *model.LabelForm) {}},
		{name: "manufactured today", mutate: func(f *model.LabelForm) { f.MfgDate = "2026-10-18" }},
		{name: "missing batch", mutate: func(f *model.LabelForm) { f.Batch = "" }, wantErr: "required fields"},
		{name: "missing serial", mutate: func(f *model.LabelForm) { f.SerialNumber = "" }, wantErr: "required fields"},
		{name: "alphanumeric gtin", mutate: func(f *model.LabelForm) { f.GTIN = "12AB" }, wantErr: "GTIN must be numeric"},
		{name: "alphanumeric serial", mutate: func(f *model.LabelForm) { f.SerialNumber = "S1" }, wantErr: "serial number must be numeric"},
		{name: "bad date", mutate: func(f *model.LabelForm) { f.MfgDate = "01/09/2026" }, wantErr: "invalid manufacturing date"},
		{name: "future mfg", mutate: func(f *model.LabelForm) { f.MfgDate = "2026-10-19" }, wantErr: "cannot be in the future"},
		{name: "past expiry", mutate: func(f *model.LabelForm) { f.ExpDate = "2026-10-17" }, wantErr: "cannot be in the past"},
		{
			name: "expiry equals mfg",
			mutate: func(f *model.LabelForm) {
				f.MfgDate = "2026-10-18"
				f.ExpDate = "2026-10-18"
			},
			wantErr: "must be after manufacturing date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			form := validForm()
			tt.mutate(&form)

			err := ValidateLabelForm(form, labelNow)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFormatMMYYYY(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "092026", FormatMMYYYY("2026-09-01"))
	assert.Equal(t, "122030", FormatMMYYYY("2030-12-31"))
	assert.Equal(t, "", FormatMMYYYY(""))
}

func TestLabelMessageName(t *testing.T) {
	t.Parallel()

	name := LabelMessageName(time.UnixMilli(1760000000727))
	assert.Equal(t, "PharmaLabel_0727", name)
}

func TestCreateLabelArgs(t *testing.T) {
	t.Parallel()

	form := validForm()
	assert.Equal(t, []string{
		"PharmaLabel_1",
		"--gtin", "00012345678905",
		"--mfg", "092026",
		"--exp", "092028",
		"--batch", "B-77",
		"--sn", "1001",
	}, CreateLabelArgs("PharmaLabel_1", form))

	form.TMDAReg = "TAN 21 HM 0001"
	args := CreateLabelArgs("PharmaLabel_1", form)
	assert.Equal(t, []string{"--tmda_reg", "TAN 21 HM 0001"}, args[len(args)-2:])
}

func TestParseLabelCreated(t *testing.T) {
	t.Parallel()

	created, ok := ParseLabelCreated("connecting...\n[OK] Message 'PharmaLabel_727' created (id=133)\n")
	assert.True(t, ok)
	assert.Equal(t, "PharmaLabel_727", created.MessageName)

	created, ok = ParseLabelCreated("[OK] done")
	assert.True(t, ok)
	assert.Empty(t, created.MessageName)

	_, ok = ParseLabelCreated("[ERROR] printer refused message")
	assert.False(t, ok)
}

func TestPrintControlArgs(t *testing.T) {
	t.Parallel()

	args, err := PrintControlArgs(model.PrintCommandStart, "PharmaLabel_727")
	require.NoError(t, err)
	assert.Equal(t, []string{"print", "start", "PharmaLabel_727"}, args)

	args, err = PrintControlArgs(model.PrintCommandStop, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"print", "stop"}, args)

	_, err = PrintControlArgs(model.PrintCommandStart, "")
	require.Error(t, err)

	_, err = PrintControlArgs("pause", "x")
	require.Error(t, err)
}

func TestParsePrintControl(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cmd         model.PrintCommand
		output      string
		wantSuccess bool
		wantMessage string
	}{
		{name: "started", cmd: model.PrintCommandStart, output: `{"status": "ok"}`, wantSuccess: true, wantMessage: "Print job started successfully"},
		{name: "stopped", cmd: model.PrintCommandStop, output: "{\"status\": \"ok\"}\n", wantSuccess: true, wantMessage: "Print job stopped"},
		{name: "engine busy", cmd: model.PrintCommandStart, output: `{"status": "error", "descript": "print engine is running"}`, wantMessage: "Print engine is already running"},
		{name: "printer error", cmd: model.PrintCommandStart, output: `{"status": "error", "descript": "no message"}`, wantMessage: "Print failed: no message"},
		{name: "printer error without text", cmd: model.PrintCommandStart, output: `{"status": "error"}`, wantMessage: "Print failed: Unknown error"},
		{name: "stop refused", cmd: model.PrintCommandStop, output: `{"status": "error", "descript": "print engine is running"}`, wantMessage: "Stop failed: print engine is running"},
		{name: "stop refused without text", cmd: model.PrintCommandStop, output: `{"status": "error"}`, wantMessage: "Stop failed: Unknown error"},
		{name: "plain ok", cmd: model.PrintCommandStart, output: "Print OK", wantSuccess: true, wantMessage: "Print initiated"},
		{name: "plain failure", cmd: model.PrintCommandStart, output: "timeout talking to printer", wantMessage: "Print failed: timeout talking to printer"},
		{name: "plain stop", cmd: model.PrintCommandStop, output: "bye", wantSuccess: true, wantMessage: "Stop command sent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParsePrintControl(tt.cmd, tt.output)
			assert.Equal(t, tt.wantSuccess, got.Success)
			assert.Equal(t, tt.wantMessage, got.Message)
			assert.Equal(t, tt.output, got.Output)
		})
	}
}

func TestParsePrintControl_TruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	output := strings.Repeat("a", 99) + "é and more"
	got := ParsePrintControl(model.PrintCommandStart, output)

	assert.Equal(t, "Print failed: "+strings.Repeat("a", 99), got.Message)
	assert.True(t, utf8.ValidString(got.Message))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 100))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "ab", truncate("ab€", 4), "a 3-byte rune that does not fit is dropped whole")
	assert.Equal(t, "ab€", truncate("ab€x", 5))
}
