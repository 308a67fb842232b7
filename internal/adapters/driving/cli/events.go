package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recorder/internal/core/domain"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List meetings in the next 24 hours",
	Long: `Fetch meetings from the configured calendar provider.

Set calendar.provider to "google" to enable calendar sync.`,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, _ []string) error {
	if eventsFetcher == nil {
		return errors.New("calendar sync is disabled (set calendar.provider)")
	}
	if sessionService == nil || sharedState == nil {
		return errors.New("session service not configured")
	}

	cred, err := sessionService.CredentialForUpload(cmd.Context())
	if err != nil {
		return fmt.Errorf("not signed in: %w", err)
	}
	sharedState.SetCredential(cred)

	events, err := eventsFetcher.FetchOnce(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}
	if len(events) == 0 {
		cmd.Println("No upcoming meetings.")
		return nil
	}

	now := time.Now()
	next, hasNext := domain.NextMeeting(events, now)

	rows := make([][]string, 0, len(events))
	for _, e := range events {
		marker := ""
		switch {
		case e.OngoingAt(now):
			marker = "now"
		case hasNext && e.ID == next.ID:
			marker = "next"
		}
		rows = append(rows, []string{
			marker,
			e.FormattedStart(),
			e.Summary,
			strings.Join(e.Attendees, ", "),
			e.URL,
		})
	}

	cmd.Println(renderTable([]string{"", "Start", "Meeting", "Attendees", "Link"}, rows, nil))
	return nil
}
