package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/recorder/internal/core/domain"
	"github.com/custodia-labs/recorder/internal/core/ports/driving"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload a recording",
	Long: `Upload a recording file using the stored session.

The upload never prompts for sign-in: if the session is missing or cannot be
refreshed, run 'recorder login' first.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "List recent uploads",
	RunE:  runUploads,
}

var (
	uploadTitle    string
	uploadSpeakers []string
	uploadsLimit   int
)

func init() {
	uploadCmd.Flags().StringVarP(&uploadTitle, "title", "t", "", "Title for the recording (default: timestamp)")
	uploadCmd.Flags().StringSliceVar(&uploadSpeakers, "speaker", nil, "Speaker name (repeatable)")
	uploadsCmd.Flags().IntVarP(&uploadsLimit, "limit", "n", 20, "Maximum number of uploads to list (0 for all)")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(uploadsCmd)
}

// statusPrinter prints each upload status once.
type statusPrinter struct {
	w    io.Writer
	last string
}

func (p *statusPrinter) Publish(status domain.UploadStatus) {
	line := status.DisplayString()
	if line == "" || line == p.last {
		return
	}
	p.last = line
	fmt.Fprintln(p.w, line)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if sessionService == nil || uploadService == nil {
		return errors.New("upload service not configured")
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read recording: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	cred, err := sessionService.CredentialForUpload(cmd.Context())
	if err != nil {
		return fmt.Errorf("not signed in: %w", err)
	}

	out := cmd.OutOrStdout()
	job, err := uploadService.Upload(cmd.Context(), driving.UploadRequest{
		FilePath:    path,
		AccessToken: cred.AccessToken,
		Title:       uploadTitle,
		Speakers:    uploadSpeakers,
	}, &statusPrinter{w: out})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	cmd.Println(style(out, successStyle, fmt.Sprintf("Uploaded %q (%s) as file %s",
		job.Title, humanize.Bytes(uint64(max(job.SizeBytes, 0))), job.FileID)))
	return nil
}

func runUploads(cmd *cobra.Command, _ []string) error {
	if uploadService == nil {
		return errors.New("upload service not configured")
	}

	jobs, err := uploadService.History(cmd.Context(), uploadsLimit)
	if err != nil {
		return fmt.Errorf("failed to list uploads: %w", err)
	}
	if len(jobs) == 0 {
		cmd.Println("No uploads yet.")
		return nil
	}

	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			job.Title,
			job.FileName(),
			uploadState(job.Status),
			humanize.Bytes(uint64(max(job.SizeBytes, 0))),
			humanize.Time(job.StartedAt),
			job.Duration().Round(100 * time.Millisecond).String(),
		})
	}

	cmd.Println(renderTable(
		[]string{"Title", "File", "Status", "Size", "Started", "Took"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
	))
	cmd.Printf("%d upload(s)\n", len(jobs))
	return nil
}

func uploadState(status domain.UploadStatus) string {
	switch status.Phase {
	case domain.UploadComplete:
		return "complete"
	case domain.UploadFailed:
		return "failed: " + status.Reason
	default:
		return status.Phase.String()
	}
}
