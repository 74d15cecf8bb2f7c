package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BioHazard786/pastedrop/internal/config"
	"github.com/BioHazard786/pastedrop/internal/transfer"
	"github.com/BioHazard786/pastedrop/internal/ui"
	"github.com/BioHazard786/pastedrop/internal/utils"
	"github.com/spf13/cobra"
)

var (
	flagReceiverZip bool
	flagReceiverDir string
)

var receiveCmd = &cobra.Command{
	Use:     "receive",
	Aliases: []string{"r"},
	Short:   "Receive files from a peer",
	Long: `Receive files directly from a peer over WebRTC.

Paste the sender's offer, send back the printed answer, and every file is
saved to the output directory as soon as it completes.

Examples:
  pastedrop receive
  pastedrop receive --dir ~/Downloads
  pastedrop receive --zip`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return receiveFiles(cmd)
	},
}

// saver writes artifacts to disk as they arrive.
type saver struct {
	session *Session
	dir     string

	wg    sync.WaitGroup
	mu    sync.Mutex
	paths []string
	size  int64
	errs  int
}

// onArtifact runs on the loop; the write happens on its own goroutine.
func (s *saver) onArtifact(a transfer.Artifact) {
	s.wg.Add(1)
	go s.save(a)
}

func (s *saver) save(a transfer.Artifact) {
	defer s.wg.Done()

	path, err := s.session.engine.Download(a.Name, a.URL, s.dir)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errs++
		return
	}
	s.paths = append(s.paths, path)
	s.size += a.Size
}

func receiveFiles(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := LoadConfig(config.Options{
		STUNServer:  flagSTUN,
		OutputDir:   flagReceiverDir,
		StatusAddr:  flagStatusAddr,
		Compact:     flagCompact,
		ResolveSTUN: flagResolveSTUN,
	})
	if err != nil {
		return err
	}

	dir := cfg.OutputDir
	if flagReceiverZip {
		tempDir, err := os.MkdirTemp("", "pastedrop-receive-*")
		if err != nil {
			return transfer.NewError("create temp dir", err)
		}
		defer os.RemoveAll(tempDir)
		dir = tempDir
	}

	sv := &saver{dir: dir}
	sv.session = NewSession(ctx, cfg, sessionOptions{
		onArtifact: sv.onArtifact,
	})
	defer sv.session.Close()

	offer, err := readRemote(ctx, "Paste the sender's offer:")
	if err != nil {
		if interrupted(err) {
			return nil
		}
		return err
	}

	fmt.Println()
	stopSpinner := ui.RunConnectionSpinner("Gathering network candidates...")
	answer, err := sv.session.SubmitRemoteDescription(ctx, offer)
	stopSpinner()
	if err != nil {
		return transfer.NewError("apply offer", err)
	}
	fmt.Println(ui.DescriptorView("answer", answer, false))

	started := time.Now()
	aborted, err := sv.session.RunUI(ui.IconReceive + " Receiving")
	if err != nil {
		return err
	}
	// No artifact can arrive once the loop is stopped.
	sv.session.Close()
	sv.wg.Wait()
	if aborted {
		ui.PrintWarning("Receive cancelled")
	}

	sv.mu.Lock()
	paths, size, errs := sv.paths, sv.size, sv.errs
	sv.mu.Unlock()

	if len(paths) > 0 && flagReceiverZip {
		if err := zipReceived(cfg.OutputDir, paths); err != nil {
			return err
		}
	}

	elapsed := time.Since(started)
	fmt.Println()
	ui.RenderTransferSummary(ui.TransferSummary{
		Status:    receiveState(len(paths), errs, aborted),
		Files:     len(paths),
		TotalSize: size,
		Duration:  utils.FormatTimeDuration(elapsed),
		Speed:     utils.FormatSpeed(utils.AverageSpeed(size, elapsed)),
	})
	if errs > 0 {
		return fmt.Errorf("%d file(s) could not be saved", errs)
	}
	return nil
}

func receiveState(saved, failed int, aborted bool) string {
	switch {
	case saved == 0 && failed == 0:
		return "Nothing received"
	case failed > 0:
		return "Partially completed"
	case aborted:
		return "Cancelled"
	default:
		return "Completed"
	}
}

func zipReceived(outputDir string, paths []string) error {
	zipName := utils.GetUniqueFilename(filepath.Join(outputDir, fmt.Sprintf("pastedrop-download-%d.zip", time.Now().UnixMilli())))

	fmt.Println()
	s := ui.NewSimpleSpinner("Zipping files...")
	s.Start()
	if err := utils.ZipFiles(zipName, paths); err != nil {
		s.Error("Zipping failed")
		return transfer.NewError("zip files", err)
	}
	s.Success(fmt.Sprintf("Files zipped to %s", zipName))
	return nil
}

func init() {
	rootCmd.AddCommand(receiveCmd)
	addConnectionFlags(receiveCmd)

	receiveCmd.Flags().BoolVarP(&flagReceiverZip, "zip", "z", false, "Bundle received files into one zip archive")
	receiveCmd.Flags().StringVarP(&flagReceiverDir, "dir", "d", "", "Directory to save received files")
}
