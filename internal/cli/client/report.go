package client

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// ReportJob mirrors the API's report job payload.
type ReportJob struct {
	ID           string   `json:"id"`
	CompanyName  string   `json:"company_name"`
	Status       string   `json:"status"`
	SkippedFiles []string `json:"skipped_files,omitempty"`
	Error        string   `json:"error,omitempty"`
	CreatedAt    string   `json:"created_at"`
	ProcessedAt  string   `json:"processed_at,omitempty"`
}

// ReportCmd creates the report command group.
func ReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate and download credit analysis reports",
	}

	cmd.AddCommand(reportCreateCmd())
	cmd.AddCommand(reportStatusCmd())
	cmd.AddCommand(reportDownloadCmd())

	return cmd
}

func reportCreateCmd() *cobra.Command {
	var companyName string
	var wait bool

	cmd := &cobra.Command{
		Use:   "create <file>...",
		Short: "Upload documents and enqueue a report job",
		Long:  "Uploads the given documents, extracts their text, and enqueues a report generation job for the named company.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runReportCreate(cmd, companyName, args, wait, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&companyName, "company", "c", "", "Company name the report is about (required)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the job completes or fails")
	cmd.MarkFlagRequired("company")

	return cmd
}

func runReportCreate(cmd *cobra.Command, companyName string, files []string, wait, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.PostMultipart("/reports", map[string]string{"company_name": companyName}, files)
	if err != nil {
		return fmt.Errorf("failed to create report job: %w", err)
	}

	var job ReportJob
	if err := json.Unmarshal(resp.Data, &job); err != nil {
		return fmt.Errorf("failed to parse report job: %w", err)
	}

	if wait {
		job, err = pollJob(api, job.ID)
		if err != nil {
			return err
		}
	}

	printJob(job, outputJSON)
	return nil
}

func reportStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job_id>",
		Short: "Show the status of a report job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/reports/" + args[0])
			if err != nil {
				return fmt.Errorf("failed to get report job: %w", err)
			}

			var job ReportJob
			if err := json.Unmarshal(resp.Data, &job); err != nil {
				return fmt.Errorf("failed to parse report job: %w", err)
			}

			printJob(job, outputJSON)
			return nil
		},
	}
}

func reportDownloadCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "download <job_id>",
		Short: "Download the rendered PDF of a completed report job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			data, err := api.Download("/reports/" + args[0] + "/download")
			if err != nil {
				return fmt.Errorf("failed to download report: %w", err)
			}

			if outPath == "" {
				outPath = fmt.Sprintf("report_%s.pdf", args[0])
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}

			fmt.Printf("Saved report to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file path (default: report_<job_id>.pdf)")

	return cmd
}

func pollJob(api *APIClient, jobID string) (ReportJob, error) {
	for {
		time.Sleep(5 * time.Second)

		resp, err := api.Get("/reports/" + jobID)
		if err != nil {
			return ReportJob{}, fmt.Errorf("failed to poll report job: %w", err)
		}

		var job ReportJob
		if err := json.Unmarshal(resp.Data, &job); err != nil {
			return ReportJob{}, fmt.Errorf("failed to parse report job: %w", err)
		}

		switch job.Status {
		case "completed", "failed":
			return job, nil
		}

		fmt.Fprintf(os.Stderr, "job %s is %s...\n", job.ID, job.Status)
	}
}

func printJob(job ReportJob, outputJSON bool) {
	if outputJSON {
		output, _ := json.MarshalIndent(job, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Printf("Job ID: %s\n", job.ID)
	fmt.Printf("Company: %s\n", job.CompanyName)
	fmt.Printf("Status: %s\n", job.Status)
	if len(job.SkippedFiles) > 0 {
		fmt.Printf("Skipped files: %v\n", job.SkippedFiles)
	}
	if job.Error != "" {
		fmt.Printf("Error: %s\n", job.Error)
	}
	fmt.Printf("Created: %s\n", job.CreatedAt)
	if job.ProcessedAt != "" {
		fmt.Printf("Processed: %s\n", job.ProcessedAt)
	}
}
