// Package main provides the CLI entry point for lazysheet-go.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ukaji3/lazysheet-go/internal/config"
	"github.com/ukaji3/lazysheet-go/internal/logging"
	"github.com/ukaji3/lazysheet-go/pkg/lazysheet"
	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/models"
	"github.com/ukaji3/lazysheet-go/pkg/lazysheet/output"
)

type flags struct {
	outputPath string
	pretty     bool
	format     string
	sheet      string
	first      bool
	jsonl      bool
	sheetsDir  string
	delimiter  string
	encoding   string
	skipEmpty  bool
	tempDir    string
	logLevel   string
	logFormat  string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	rootCmd := &cobra.Command{
		Use:   "lazysheet [input]",
		Short: "Stream sheets and rows out of spreadsheet files",
		Long: `lazysheet-go reads xlsx, ods, csv and tsv files sheet by sheet and
writes their rows as JSON. Use "-" to read from stdin.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args[0])
		},
	}

	fl := rootCmd.Flags()
	fl.StringVarP(&f.outputPath, "output", "o", "", "Output file path (default: stdout)")
	fl.BoolVar(&f.pretty, "pretty", false, "Pretty-print JSON output")
	fl.StringVar(&f.format, "format", "", "Force the input format: xlsx, ods, csv, tsv")
	fl.StringVar(&f.sheet, "sheet", "", "Only read this sheet (zero-based index or name)")
	fl.BoolVar(&f.first, "first", false, "Only read the first sheet")
	fl.BoolVar(&f.jsonl, "jsonl", false, "Stream rows of one sheet as JSON lines")
	fl.StringVar(&f.sheetsDir, "sheets-dir", "", "Directory for per-sheet output files")
	fl.StringVar(&f.delimiter, "delimiter", "", "CSV field delimiter")
	fl.StringVar(&f.encoding, "encoding", "", "Text encoding of delimited input")
	fl.BoolVar(&f.skipEmpty, "skip-empty", false, "Drop rows with no values")
	fl.StringVar(&f.tempDir, "temp-dir", "", "Directory for temporary copies of stdin input")
	fl.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fl.StringVar(&f.logFormat, "log-format", "", "Log format: text, json")
	fl.StringVar(&f.envFile, "env-file", "", "Load environment variables from this file")

	return rootCmd
}

func run(cmd *cobra.Command, f *flags, inputPath string) error {
	var envFiles []string
	if f.envFile != "" {
		envFiles = append(envFiles, f.envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, f, cfg); err != nil {
		return err
	}
	logger := logging.Setup(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	opts := []lazysheet.Option{
		lazysheet.WithLogger(logger),
		lazysheet.WithTempDir(cfg.TempDir),
		lazysheet.WithDelimiter(cfg.Delimiter),
		lazysheet.WithEncoding(cfg.Encoding),
		lazysheet.WithSkipEmptyRows(cfg.SkipEmpty),
	}
	if f.format != "" {
		format, err := lazysheet.ParseFormat(f.format)
		if err != nil {
			return err
		}
		opts = append(opts, lazysheet.WithFormat(format))
	}

	src := lazysheet.FromPath(inputPath)
	if inputPath == "-" {
		src = lazysheet.FromReader("stdin", cmd.InOrStdin())
	}

	imp, err := lazysheet.New(src, opts...)
	if err != nil {
		return err
	}
	defer imp.Close()

	out := cmd.OutOrStdout()
	if f.outputPath != "" {
		file, err := os.Create(f.outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer file.Close()
		out = file
	}

	if f.jsonl {
		return streamSheet(imp, f, out)
	}
	return writeJSON(imp, f, out)
}

func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("delimiter") {
		r, err := config.ParseDelimiter(f.delimiter)
		if err != nil {
			return err
		}
		cfg.Delimiter = r
	}
	if changed("encoding") {
		cfg.Encoding = f.encoding
	}
	if changed("skip-empty") {
		cfg.SkipEmpty = f.skipEmpty
	}
	if changed("temp-dir") {
		cfg.TempDir = f.tempDir
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	return nil
}

// selectSheet honours --sheet, then falls back to the first sheet.
func selectSheet(imp *lazysheet.Importer, f *flags) (lazysheet.Sheet, error) {
	if f.sheet != "" {
		return imp.Sheet(lazysheet.ParseSheetKey(f.sheet))
	}
	return imp.First()
}

func streamSheet(imp *lazysheet.Importer, f *flags, out io.Writer) error {
	sheet, err := selectSheet(imp, f)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	if _, err := output.WriteRowsJSONL(out, sheet.Rows()); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}

func writeJSON(imp *lazysheet.Importer, f *flags, out io.Writer) error {
	var (
		wb  *models.WorkbookData
		err error
	)
	if f.sheet != "" || f.first {
		wb, err = collectOne(imp, f)
	} else {
		wb, err = imp.Workbook()
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if f.sheetsDir != "" {
		if err := writeSheetFiles(wb, f.sheetsDir, f.pretty); err != nil {
			return fmt.Errorf("failed to write sheet files: %w", err)
		}
		if f.outputPath == "" {
			return nil
		}
	}

	jsonData, err := output.ToJSON(wb, f.pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	if _, err := fmt.Fprintln(out, string(jsonData)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func collectOne(imp *lazysheet.Importer, f *flags) (*models.WorkbookData, error) {
	sheet, err := selectSheet(imp, f)
	if err != nil {
		return nil, err
	}
	data, err := sheet.Collect()
	if err != nil {
		return nil, err
	}
	wb := &models.WorkbookData{BookName: imp.Source().Name(), Sheets: models.SheetList{}}
	if data.Index >= 0 {
		wb.Sheets = append(wb.Sheets, data)
	}
	return wb, nil
}

func writeSheetFiles(wb *models.WorkbookData, dir string, pretty bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for _, sheet := range wb.Sheets {
		jsonData, err := output.SheetToJSON(&sheet, pretty)
		if err != nil {
			return err
		}

		filename := filepath.Join(dir, sheetFileName(sheet)+".json")
		if err := os.WriteFile(filename, jsonData, 0644); err != nil {
			return err
		}
	}

	return nil
}

// sheetFileName keeps sheet names usable as file names.
func sheetFileName(sheet models.SheetData) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, sheet.Name)
	if name == "" {
		name = fmt.Sprintf("sheet%d", sheet.Index+1)
	}
	return name
}
