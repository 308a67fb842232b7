package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recorder/internal/core/domain"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the recorder",
	Long: `Start the recorder: sign in, sync meetings, and accept capture commands
on standard input, one per line.

Commands:
  select_source      pick a display, window or application
  start_capture      start capturing the selected source
  stop_capture       stop capturing
  start_recording    start recording the capture
  stop_recording     stop recording and upload the file
  cancel_recording   stop recording and discard the file
  toggle_microphone  turn the microphone on or off
  state              print the current state
  logout             sign out and exit
  quit               exit`,
	RunE: runRun,
}

var timeNow = time.Now

func init() {
	runCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open the verification page automatically")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	if appRunner == nil {
		return errors.New("recorder not configured")
	}

	if sharedState != nil {
		out := cmd.OutOrStdout()
		watchDeviceCode(out)
		sharedState.OnAuthState(func(state domain.AuthState) {
			if state.Phase == domain.AuthFailed {
				fmt.Fprintln(out, style(out, errorStyle, "Sign-in failed: "+state.Err))
			}
		})
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go readCommands(ctx, cmd.InOrStdin(), cmd.OutOrStdout())

	reason, err := appRunner.Run(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Recorder stopped (%s).\n", reason)
	return nil
}

// readCommands forwards stdin lines to the runner until input ends or ctx
// is done. End of input is treated as quit.
func readCommands(ctx context.Context, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "state" {
			printState(out)
			continue
		}

		c, ok := domain.ParseCaptureCommand(line)
		if !ok {
			fmt.Fprintf(out, "Unknown command: %s\n", line)
			continue
		}
		if err := appRunner.Send(c); err != nil {
			return
		}
		if c == domain.CmdQuit || c == domain.CmdLogout {
			return
		}
	}
	if ctx.Err() == nil {
		_ = appRunner.Send(domain.CmdQuit)
	}
}

func printState(w io.Writer) {
	if sharedState == nil {
		return
	}
	snap := sharedState.Snapshot()

	fmt.Fprintf(w, "Source:     %s\n", snap.SourceName)
	fmt.Fprintf(w, "Capturing:  %t\n", snap.Capturing)
	if snap.Recording {
		fmt.Fprintf(w, "Recording:  %s\n", sharedState.RecordingElapsed(timeNow()))
	} else {
		fmt.Fprintln(w, "Recording:  no")
	}
	fmt.Fprintf(w, "Microphone: %t\n", snap.Microphone)
	fmt.Fprintf(w, "Auth:       %s\n", snap.Auth.Phase)
	if upload := snap.Upload.Display(); upload != "" {
		fmt.Fprintf(w, "Upload:     %s\n", upload)
	}
	if next, ok := domain.NextMeeting(snap.Events, timeNow()); ok {
		fmt.Fprintf(w, "Next:       %s at %s\n", next.Summary, next.FormattedStart())
	}
}
