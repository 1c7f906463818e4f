// Package audio captures microphone input through a platform recorder command.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/ieltsmock/internal/apperrors"
	"github.com/verte-zerg/ieltsmock/internal/recording"
)

// FilePlaceholder is replaced with the output path in recorder arguments.
const FilePlaceholder = "{file}"

const (
	defaultStartupGrace = 300 * time.Millisecond
	defaultFinishWait   = 5 * time.Second
)

// DefaultCommand returns the recorder invocation for the current platform.
func DefaultCommand() []string {
	switch runtime.GOOS {
	case "linux":
		return []string{"arecord", "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav", FilePlaceholder}
	default:
		return []string{"sox", "-q", "-d", "-c", "1", "-r", "16000", FilePlaceholder}
	}
}

// CommandSource starts one recorder process per acquisition.
type CommandSource struct {
	Command      []string
	Dir          string
	StartupGrace time.Duration
	FinishWait   time.Duration
	Logger       *slog.Logger
}

// NewCommandSource builds a source writing recordings into dir.
func NewCommandSource(command []string, dir string, logger *slog.Logger) *CommandSource {
	if len(command) == 0 {
		command = DefaultCommand()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CommandSource{
		Command:      command,
		Dir:          dir,
		StartupGrace: defaultStartupGrace,
		FinishWait:   defaultFinishWait,
		Logger:       logger,
	}
}

// Acquire starts the recorder. A recorder that is missing or exits during the
// startup grace period is reported as an unavailable or denied device.
func (s *CommandSource) Acquire(ctx context.Context) (recording.InputHandle, error) {
	const op = "acquire audio input"
	if len(s.Command) == 0 {
		return nil, apperrors.Errorf(apperrors.KindDeviceUnavailable, op, "recorder command is empty")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create recordings dir: %w", err)
	}
	bin, err := exec.LookPath(s.Command[0])
	if err != nil {
		return nil, apperrors.New(apperrors.KindDeviceUnavailable, op, err)
	}

	path := filepath.Join(s.Dir, uuid.NewString()+".wav")
	args := make([]string, 0, len(s.Command)-1)
	for _, arg := range s.Command[1:] {
		args = append(args, strings.ReplaceAll(arg, FilePlaceholder, path))
	}

	cmd := exec.Command(bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, apperrors.New(apperrors.KindPermissionDenied, op, err)
		}
		return nil, apperrors.New(apperrors.KindDeviceUnavailable, op, err)
	}

	h := &commandHandle{
		cmd:        cmd,
		path:       path,
		done:       make(chan struct{}),
		finishWait: s.FinishWait,
		logger:     s.Logger,
	}
	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()

	grace := time.NewTimer(s.StartupGrace)
	defer grace.Stop()
	select {
	case <-h.done:
		_ = os.Remove(path)
		return nil, classifyExit(op, stderr.String(), h.waitErr)
	case <-ctx.Done():
		_ = h.Close()
		_ = os.Remove(path)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.New(apperrors.KindTimeout, op, ctx.Err())
		}
		return nil, ctx.Err()
	case <-grace.C:
	}
	s.Logger.Debug("recorder started", "command", s.Command[0], "path", path)
	return h, nil
}

func classifyExit(op, stderr string, waitErr error) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" && waitErr != nil {
		msg = waitErr.Error()
	}
	if msg == "" {
		msg = "recorder exited immediately"
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission denied") || strings.Contains(lower, "not permitted") {
		return apperrors.Errorf(apperrors.KindPermissionDenied, op, "%s", msg)
	}
	return apperrors.Errorf(apperrors.KindDeviceUnavailable, op, "%s", msg)
}

type commandHandle struct {
	cmd        *exec.Cmd
	path       string
	done       chan struct{}
	waitErr    error
	finishWait time.Duration
	logger     *slog.Logger
	closeOnce  sync.Once
}

// Finish asks the recorder to stop so it can write a complete file.
func (h *commandHandle) Finish() (recording.Artifact, error) {
	if err := h.interrupt(); err != nil {
		h.logger.Debug("failed to interrupt recorder", "error", err)
	}
	wait := time.NewTimer(h.finishWait)
	defer wait.Stop()
	select {
	case <-h.done:
	case <-wait.C:
		_ = h.cmd.Process.Kill()
		<-h.done
	}
	info, err := os.Stat(h.path)
	if err != nil {
		return nil, fmt.Errorf("recording was not written: %w", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(h.path)
		return nil, fmt.Errorf("recording is empty")
	}
	return FileArtifact{Path: h.path}, nil
}

// Close kills the recorder if it is still running.
func (h *commandHandle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		select {
		case <-h.done:
			return
		default:
		}
		if kerr := h.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
			err = kerr
		}
		<-h.done
	})
	return err
}

func (h *commandHandle) interrupt() error {
	if runtime.GOOS == "windows" {
		return h.cmd.Process.Kill()
	}
	return h.cmd.Process.Signal(os.Interrupt)
}

// FileArtifact is a recording stored on disk.
type FileArtifact struct {
	Path string
}

// Ref returns the file path.
func (a FileArtifact) Ref() string {
	return a.Path
}

// Discard removes the file.
func (a FileArtifact) Discard() error {
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
