package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"dockhand/internal/ui"
	dockerruntime "dockhand/pkg/runtime"
)

// LogDirEnv overrides the directory the error log is written to.
const LogDirEnv = "DOCKHAND_LOG_DIR"

// LogFileName is the name of the structured error log.
const LogFileName = "dockhand.log"

const (
	maxLogSize = 10 * 1024 * 1024
	// keptLogs counts the live log plus its numbered archives.
	keptLogs = 5
)

var typeNames = map[error]string{
	ErrManifestNotFound:    "manifest_not_found",
	ErrManifestParseFailed: "manifest_parse_failed",
	ErrImageFailed:         "image_failed",
	ErrContainerFailed:     "container_failed",
	ErrDaemonUnavailable:   "daemon_unavailable",
	ErrConfigInvalid:       "config_invalid",
	ErrFileSystemFailed:    "filesystem_failed",
}

// ErrorHandler records failed commands in the JSON error log and prints them
// on the console.
type ErrorHandler struct {
	logger  *slog.Logger
	console *ui.Console
}

func NewErrorHandler() (*ErrorHandler, error) {
	logFile, err := openLogFile()
	if err != nil {
		return nil, err
	}

	return &ErrorHandler{
		logger:  slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelInfo})),
		console: ui.NewConsole(),
	}, nil
}

// standardLogDir picks the per-user log directory for this OS.
func standardLogDir() (string, error) {
	if dir := os.Getenv(LogDirEnv); dir != "" {
		return dir, nil
	}

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Logs", "Dockhand"), nil
	case "windows":
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user config directory: %w", err)
		}
		return filepath.Join(base, "Dockhand", "logs"), nil
	default:
		if state := os.Getenv("XDG_STATE_HOME"); state != "" {
			return filepath.Join(state, "dockhand"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		return filepath.Join(home, ".local", "state", "dockhand"), nil
	}
}

// logDirCandidates lists the directories the log may be written to, most
// preferred first. The working directory is always last.
func logDirCandidates() []string {
	var dirs []string
	if dir, err := standardLogDir(); err == nil {
		dirs = append(dirs, dir)
	} else {
		slog.Debug("No standard log directory", "error", err)
	}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	return dirs
}

// openLogFile opens dockhand.log for appending in the first usable candidate
// directory, rotating it first when it has grown past maxLogSize.
func openLogFile() (*os.File, error) {
	candidates := logDirCandidates()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no directory available for %s", LogFileName)
	}

	var errs []error
	for i, dir := range candidates {
		f, err := openLogIn(dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if i > 0 {
			fmt.Fprintf(os.Stderr, "Warning: %v. Writing %s to %s instead.\n", errs[0], LogFileName, dir)
		}
		return f, nil
	}
	return nil, fmt.Errorf("failed to open %s: %w", LogFileName, errors.Join(errs...))
}

func openLogIn(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("cannot create log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, LogFileName)
	if err := rotateIfLarge(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to rotate %s: %v\n", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	return f, nil
}

func rotateIfLarge(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() < maxLogSize {
		return nil
	}
	return shiftLogs(path, keptLogs-1)
}

// shiftLogs moves each path.N to path.N+1 and path to path.1, after removing
// the oldest archive path.<archives>.
func shiftLogs(path string, archives int) error {
	archive := func(n int) string { return fmt.Sprintf("%s.%d", path, n) }

	if err := os.Remove(archive(archives)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to remove oldest log", "path", archive(archives), "error", err)
	}
	for n := archives - 1; n >= 1; n-- {
		if err := os.Rename(archive(n), archive(n+1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to shift log archive", "from", archive(n), "to", archive(n+1), "error", err)
		}
	}
	return os.Rename(path, archive(1))
}

// Handle classifies err, records it in the log and prints it. Errors that
// Classify does not recognise are logged with type "generic".
func (h *ErrorHandler) Handle(err error) {
	if err == nil {
		return
	}

	var dockhandErr *DockhandError
	if !errors.As(Classify(err), &dockhandErr) {
		h.record(err, nil)
		h.console.PrintError(err.Error())
		return
	}

	h.record(err, dockhandErr)
	h.console.PrintError(h.console.FormatErrorMessage(dockhandErr.Context, dockhandErr.Cause, dockhandErr.Suggestion))
}

func (h *ErrorHandler) record(err error, dockhandErr *DockhandError) {
	attrs := []slog.Attr{slog.String("error", err.Error())}

	if dockhandErr == nil {
		attrs = append(attrs, slog.String("type", "generic"))
	} else {
		attrs = append(attrs,
			slog.String("type", getErrorTypeName(dockhandErr.Type)),
			slog.String("context", dockhandErr.Context),
		)
		if dockhandErr.Cause != "" {
			attrs = append(attrs, slog.String("cause", dockhandErr.Cause))
		}
		if dockhandErr.Suggestion != "" {
			attrs = append(attrs, slog.String("suggestion", dockhandErr.Suggestion))
		}
	}

	attrs = append(attrs, cliAttrs(err)...)
	h.logger.LogAttrs(context.Background(), slog.LevelError, "dockhand command failed", attrs...)
}

// cliAttrs extracts the image or container and the CLI's stderr from the
// docker package's typed errors.
func cliAttrs(err error) []slog.Attr {
	var (
		pullErr   *dockerruntime.PullError
		removeErr *dockerruntime.RemoveError
		startErr  *dockerruntime.StartError
		execErr   *dockerruntime.ExecutionError
		stopErr   *dockerruntime.StopError
	)

	var key, subject, stderr string
	switch {
	case errors.As(err, &pullErr):
		key, subject, stderr = "image", pullErr.Image, pullErr.Stderr
	case errors.As(err, &removeErr):
		key, subject, stderr = "image", removeErr.Image, removeErr.Stderr
	case errors.As(err, &startErr):
		key, subject, stderr = "image", startErr.Image, startErr.Stderr
	case errors.As(err, &execErr):
		key, subject, stderr = "containerID", execErr.ContainerID, execErr.Stderr
	case errors.As(err, &stopErr):
		key, subject, stderr = "containerID", stopErr.ContainerID, stopErr.Stderr
	default:
		return nil
	}

	return []slog.Attr{
		slog.String(key, subject),
		slog.String("stderr", strings.TrimSpace(stderr)),
	}
}

func getErrorTypeName(errType error) string {
	if name, ok := typeNames[errType]; ok {
		return name
	}
	return "unknown"
}
