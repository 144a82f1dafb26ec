package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dreschagin/fastqc-analyzer/internal/application/dto"
	"github.com/dreschagin/fastqc-analyzer/internal/application/usecase"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/service"
	"github.com/dreschagin/fastqc-analyzer/internal/infrastructure/persistence/memory"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatText = "text"
)

func (h *Handler) analyzeCmd() *cobra.Command {
	var (
		format   string
		lang     string
		seed     int64
		maxFiles int
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Analyze FastQC/MultiQC reports",
		Long:  "Extracts quality metrics from each report and prints the aggregated result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatJSON, formatYAML, formatText:
			default:
				return fmt.Errorf("unknown format %q (json, yaml, text)", format)
			}

			uploads, err := readUploads(args)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("seed") {
				seed = h.cfg.Analysis.Seed
			}
			if !cmd.Flags().Changed("lang") {
				lang = h.cfg.Analysis.DefaultLanguage
			}
			if !cmd.Flags().Changed("max-files") {
				maxFiles = h.cfg.Analysis.MaxFiles
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			analyzeUC := usecase.NewAnalyzeReportsUseCase(usecase.AnalyzeReportsDependencies{
				Analyzer:   service.NewDefaultReportAnalyzer(samplerFor(seed), h.logger, service.ResolveLanguage(lang)),
				Repository: memory.NewAnalysisRepository(1),
			}, usecase.AnalyzeReportsConfig{
				MaxFiles:     maxFiles,
				MaxFileBytes: h.cfg.Analysis.MaxFileBytes,
			}, h.logger)

			analysis, err := analyzeUC.Execute(ctx, usecase.AnalyzeReportsCommand{Files: uploads, Language: lang})
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			return writeResult(cmd.OutOrStdout(), format, analysis)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format (json, yaml, text)")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Narrative language (fr, en)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for fallback values (0 = random)")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "Maximum number of reports per run")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", time.Minute, "Analysis timeout")

	return cmd
}

func samplerFor(seed int64) service.Sampler {
	if seed == 0 {
		return service.NewUniformSampler(nil)
	}
	return service.NewSeededSampler(uint64(seed))
}

func readUploads(paths []string) ([]usecase.ReportUpload, error) {
	uploads := make([]usecase.ReportUpload, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		uploads = append(uploads, usecase.ReportUpload{
			Name:     filepath.Base(path),
			MimeType: mime.TypeByExtension(filepath.Ext(path)),
			Data:     data,
		})
	}
	return uploads, nil
}

func writeResult(w io.Writer, format string, analysis *dto.AnalysisDTO) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(analysis)
	default:
		return writeText(w, analysis)
	}
}

func writeText(w io.Writer, analysis *dto.AnalysisDTO) error {
	summary := analysis.Data.Summary

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Files\t%s\n", analysis.FileName)
	fmt.Fprintf(tw, "Status\t%s\n", summary.Status)
	fmt.Fprintf(tw, "Total reads\t%d\n", summary.TotalReads)
	fmt.Fprintf(tw, "Quality score\t%.1f\n", summary.QualityScore)
	fmt.Fprintf(tw, "GC content\t%.1f%%\n", summary.GCContent)
	fmt.Fprintf(tw, "Duplication\t%.1f%%\n", summary.DuplicationLevel)
	fmt.Fprintf(tw, "Adapter content\t%.1f%%\n", summary.AdapterContent)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "METRIC\tVALUE\tTHRESHOLD\tSTATUS")
	for _, metric := range analysis.Data.Metrics {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%s\n", metric.Name, metric.Value, metric.Threshold, metric.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\n", analysis.Data.Interpretation)
	if len(analysis.Data.Recommendations) > 0 {
		fmt.Fprintln(w)
		for _, rec := range analysis.Data.Recommendations {
			fmt.Fprintf(w, "- %s\n", strings.TrimSpace(rec))
		}
	}
	return nil
}
