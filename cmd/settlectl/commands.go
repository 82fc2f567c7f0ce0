package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/duizhang/settlement/internal/config"
	"github.com/duizhang/settlement/internal/currency"
	"github.com/duizhang/settlement/internal/domain"
	"github.com/duizhang/settlement/internal/export"
	"github.com/duizhang/settlement/internal/ingestion"
	"github.com/duizhang/settlement/internal/reconciliation"
)

var errFindings = errors.New("validation reported errors")

type Globals struct {
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"warn" env:"LOG_LEVEL"`
}

func (g *Globals) logger(w io.Writer) *slog.Logger {
	level, _ := config.ParseLevel(g.LogLevel)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SettlementFile is a settlement file given on the command line.
type SettlementFile struct {
	File   string `help:"Settlement file (csv, xlsx or json)." arg:"" type:"existingfile"`
	Format string `help:"Override the format detected from the file name."`
	Period string `help:"Only use records of this billing period."`
}

func (in SettlementFile) load() ([]domain.SettlementRecord, error) {
	data, err := os.ReadFile(in.File)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", in.File, err)
	}
	format := in.Format
	if format == "" {
		format = ingestion.DetectFormat(in.File, data)
	}
	records, err := ingestion.ParseSettlements(data, format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(in.File), err)
	}
	return reconciliation.FilterRecords(records, reconciliation.RecordQuery{Period: in.Period}), nil
}

type ValidateCmd struct {
	SettlementFile
}

func (cmd *ValidateCmd) Run(ctx *kong.Context, globals *Globals) error {
	records, err := cmd.load()
	if err != nil {
		return err
	}
	findings := reconciliation.Validate(records)
	for _, f := range findings {
		_, _ = fmt.Fprintf(ctx.Stdout, "%-7s %-28s %-10s %s\n", f.Severity, f.Rule, f.RecordID, f.Message)
	}
	errs, warns := reconciliation.CountBySeverity(findings)
	_, _ = fmt.Fprintf(ctx.Stdout, "%d records, %d errors, %d warnings\n", len(records), errs, warns)

	globals.logger(ctx.Stderr).Debug("validated", "file", cmd.File, "findings", len(findings))
	if errs > 0 {
		return errFindings
	}
	return nil
}

type SummaryCmd struct {
	SettlementFile
}

func (cmd *SummaryCmd) Run(ctx *kong.Context) error {
	records, err := cmd.load()
	if err != nil {
		return err
	}
	for _, p := range reconciliation.PeriodHistory(records) {
		writeSummary(ctx.Stdout, p.Period, p.RecordCount, p.Summary)
	}
	st := reconciliation.Stats(records)
	_, _ = fmt.Fprintf(ctx.Stdout, "games: %d  average ratio: %.2f%%\n", st.GameCount, st.AverageRatio)
	_, _ = fmt.Fprintf(ctx.Stdout, "total settlement: %s (%s)\n",
		currency.FormatCNY(st.Summary.TotalSettlementAmount),
		currency.ToChineseUppercase(st.Summary.TotalSettlementAmount))
	return nil
}

func writeSummary(w io.Writer, period string, count int, s domain.SettlementSummary) {
	_, _ = fmt.Fprintf(w, "%s (%d)\n", period, count)
	rows := []struct {
		label string
		v     float64
	}{
		{"flow", s.TotalFlow},
		{"recharge", s.TotalRechargeAmount},
		{"test fee", s.TotalTestFeeAmount},
		{"voucher", s.TotalVoucherAmount},
		{"refund", s.TotalRefund},
		{"actual settlement", s.TotalActualSettlementAmount},
		{"settlement", s.TotalSettlementAmount},
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "  %-18s %16s\n", r.label, currency.FormatAmount(r.v))
	}
}

type CompareCmd struct {
	File    string `help:"Settlement file (csv, xlsx or json)." arg:"" type:"existingfile"`
	Period1 string `help:"Period to compare." arg:""`
	Period2 string `help:"Period to compare against." arg:""`
}

func (cmd *CompareCmd) Run(ctx *kong.Context) error {
	records, err := SettlementFile{File: cmd.File}.load()
	if err != nil {
		return err
	}
	c := reconciliation.ComparePeriods(records, cmd.Period1, cmd.Period2)
	if c.Status == reconciliation.ComparisonInsufficientData {
		_, _ = fmt.Fprintf(ctx.Stdout, "need at least two billing periods, found %d\n", len(c.Periods))
		return nil
	}
	_, _ = fmt.Fprintf(ctx.Stdout, "%-28s %16s %16s %16s %9s\n", "metric", c.Period1, c.Period2, "delta", "change")
	for _, r := range c.Rows {
		pct := "-"
		if r.PercentAvailable {
			pct = fmt.Sprintf("%.2f%%", *r.PercentChange)
		}
		_, _ = fmt.Fprintf(ctx.Stdout, "%-28s %16s %16s %16s %9s\n", r.Metric,
			currency.FormatAmount(r.Value1), currency.FormatAmount(r.Value2), currency.FormatAmount(r.Delta), pct)
	}
	return nil
}

type BillCmd struct {
	SettlementFile
	Output     string `help:"Output file. Defaults to the bill title and period." short:"o"`
	To         string `help:"Output format." enum:"xlsx,pdf" default:"xlsx"`
	BillConfig string `help:"YAML file with payer and receiver details." type:"existingfile" env:"BILL_CONFIG_PATH"`
	Font       string `help:"TrueType font with CJK glyphs for PDF output." type:"existingfile" env:"PDF_FONT_PATH"`
	Force      bool   `help:"Render even when validation reports errors."`
}

func (cmd *BillCmd) Run(ctx *kong.Context, globals *Globals) error {
	log := globals.logger(ctx.Stderr)

	records, err := cmd.load()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no records in %s", cmd.File)
	}
	if findings := reconciliation.Validate(records); reconciliation.HasErrors(findings) && !cmd.Force {
		errs, _ := reconciliation.CountBySeverity(findings)
		return fmt.Errorf("%w: %d errors, run validate or pass --force", errFindings, errs)
	}

	cfg, err := config.LoadBillConfig(cmd.BillConfig)
	if err != nil {
		return err
	}
	if cmd.Period != "" {
		cfg.Period = cmd.Period
	}

	renderer, err := export.NewRenderer(0, cmd.Font, log)
	if err != nil {
		return err
	}
	bill := export.NewBill(records, cfg)
	data, err := renderer.Render(bill, cmd.To)
	if err != nil {
		return err
	}

	out := cmd.Output
	if out == "" {
		out = bill.Filename(cmd.To)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write bill: %w", err)
	}
	_, _ = fmt.Fprintf(ctx.Stdout, "wrote %s (%d records, %s)\n", out, len(records),
		currency.FormatCNY(bill.Summary.TotalSettlementAmount))
	return nil
}

type Commands struct {
	Validate ValidateCmd `cmd:"" help:"Check a settlement file for anomalies."`
	Summary  SummaryCmd  `cmd:"" help:"Print per-period totals of a settlement file."`
	Compare  CompareCmd  `cmd:"" help:"Compare two billing periods."`
	Bill     BillCmd     `cmd:"" help:"Render a settlement bill as xlsx or pdf."`
}
