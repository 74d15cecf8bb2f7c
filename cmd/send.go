package cmd

import (
	"fmt"
	"sync"
	"time"

	"github.com/BioHazard786/pastedrop/internal/config"
	"github.com/BioHazard786/pastedrop/internal/files"
	"github.com/BioHazard786/pastedrop/internal/transfer"
	"github.com/BioHazard786/pastedrop/internal/ui"
	"github.com/BioHazard786/pastedrop/internal/utils"
	"github.com/spf13/cobra"
)

var (
	flagSTUN        string
	flagStatusAddr  string
	flagCompact     bool
	flagResolveSTUN bool
)

var sendCmd = &cobra.Command{
	Use:     "send <file>...",
	Aliases: []string{"s"},
	Short:   "Send files to a peer",
	Long: `Send files directly to a peer over WebRTC.

pastedrop prints an offer. Paste it to the receiver, paste their answer back,
and the files stream once the channel opens.

Examples:
  pastedrop send file1.txt file2.pdf
  pastedrop send --compact photo.jpg
  pastedrop send --stun stun:stun.example.com:3478 file.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendFiles(cmd, args)
	},
}

// sendReport tracks what left the queue, and is read once the session ends.
type sendReport struct {
	mu     sync.Mutex
	failed []string
}

func (r *sendReport) fail(name string) {
	r.mu.Lock()
	r.failed = append(r.failed, name)
	r.mu.Unlock()
}

func (r *sendReport) failures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failed...)
}

func sendFiles(cmd *cobra.Command, filePaths []string) error {
	ctx := cmd.Context()

	fileInfos, err := files.ValidateFiles(filePaths)
	if err != nil {
		return err
	}
	fmt.Println()
	ui.RenderFileTable(ui.ItemsFromFiles(fileInfos))

	cfg, err := LoadConfig(config.Options{
		STUNServer:  flagSTUN,
		StatusAddr:  flagStatusAddr,
		Compact:     flagCompact,
		ResolveSTUN: flagResolveSTUN,
	})
	if err != nil {
		return err
	}

	report := &sendReport{}
	var session *Session
	session = NewSession(ctx, cfg, sessionOptions{
		autoStart:     true,
		finishOnDrain: true,
		onSendFailed: func(name string, err error) {
			report.fail(name)
			// Keep going with the rest of the queue; finish if nothing is left.
			if session.store.Snapshot().PendingFiles == 0 {
				session.finish()
				return
			}
			go func() {
				if err := session.StartSend(ctx); err != nil {
					session.finish()
				}
			}()
		},
	})
	defer session.Close()

	if err := session.engine.Enqueue(ctx, transfer.FromFiles(fileInfos)...); err != nil {
		return transfer.NewError("queue files", err)
	}

	fmt.Println()
	stopSpinner := ui.RunConnectionSpinner("Gathering network candidates...")
	offer, err := session.CreateConnection(ctx)
	stopSpinner()
	if err != nil {
		return transfer.NewError("create connection", err)
	}
	fmt.Println(ui.DescriptorView("offer", offer, true))

	answer, err := readRemote(ctx, "Paste the receiver's answer:")
	if err != nil {
		if interrupted(err) {
			return nil
		}
		return err
	}
	if _, err := session.SubmitRemoteDescription(ctx, answer); err != nil {
		return transfer.NewError("apply answer", err)
	}

	started := time.Now()
	aborted, err := session.RunUI(ui.IconSend + " Sending")
	if err != nil {
		return err
	}
	if aborted {
		ui.PrintWarning("Transfer cancelled")
		return nil
	}

	// Files still queued are the tail of the list.
	pending := min(session.store.Snapshot().PendingFiles, len(fileInfos))
	failed := report.failures()
	missing := len(failed) + pending
	printSendSummary(fileInfos[:len(fileInfos)-pending], failed, missing > 0, time.Since(started))
	if missing > 0 {
		return fmt.Errorf("%d file(s) not sent", missing)
	}
	return nil
}

func printSendSummary(fileInfos []files.FileInfo, failed []string, partial bool, elapsed time.Duration) {
	skip := make(map[string]bool, len(failed))
	for _, name := range failed {
		skip[name] = true
	}

	var sent []files.FileInfo
	for _, f := range fileInfos {
		if !skip[f.Name] {
			sent = append(sent, f)
		}
	}

	total := files.GetTotalSize(sent)
	state := "Completed"
	if partial {
		state = "Partially completed"
	}

	fmt.Println()
	ui.RenderTransferSummary(ui.TransferSummary{
		Status:    state,
		Files:     len(sent),
		TotalSize: total,
		Duration:  utils.FormatTimeDuration(elapsed),
		Speed:     utils.FormatSpeed(utils.AverageSpeed(total, elapsed)),
	})
}

func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	cmd.Flags().StringVar(&flagStatusAddr, "status-addr", "", "Serve the websocket status feed on this address (e.g. 127.0.0.1:7777)")
	cmd.Flags().BoolVarP(&flagCompact, "compact", "c", false, "Print the session description in the short pd1: form")
	cmd.Flags().BoolVar(&flagResolveSTUN, "resolve-stun", false, "Resolve the STUN host up front, falling back to public DNS")
}

func init() {
	rootCmd.AddCommand(sendCmd)
	addConnectionFlags(sendCmd)
}
