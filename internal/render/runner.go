package render

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"reel/internal/services"
)

// pipeAbandonDelay bounds how long a cancelled render may hold the stderr
// pipe. Encoder children can survive the kill and keep the write end open;
// after the delay the pipe is forced closed so the scan goroutine unblocks.
const pipeAbandonDelay = 3 * time.Second

// Runner abstracts encoder execution so tests can supervise stub binaries
// or skip process spawning entirely.
type Runner interface {
	Run(ctx context.Context, binary string, args []string, onStderr func(string)) error
}

type commandRunner struct{}

// NewCommandRunner returns the production runner backed by os/exec.
func NewCommandRunner() Runner {
	return commandRunner{}
}

func (commandRunner) Run(ctx context.Context, binary string, args []string, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.WaitDelay = pipeAbandonDelay
	cmd.Stdout = io.Discard
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return services.Wrap(services.ErrSpawn, "rendering", "ffmpeg", "stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrSpawn, "rendering", "ffmpeg",
			fmt.Sprintf("start %s", binary), err)
	}

	var wg sync.WaitGroup
	var scanErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Split(scanStatusLines)
		for scanner.Scan() {
			if onStderr != nil {
				onStderr(scanner.Text())
			}
		}
		scanErr = scanner.Err()
	}()

	wg.Wait()
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return services.Wrap(services.ErrCancelled, "rendering", "ffmpeg", "encoder interrupted", ctx.Err())
	}
	if scanErr != nil {
		return services.Wrap(services.ErrEncoding, "rendering", "ffmpeg", "scan encoder output", scanErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return services.Wrap(services.ErrEncoding, "rendering", "ffmpeg",
				fmt.Sprintf("encoder exited with code %d", exitErr.ExitCode()), waitErr)
		}
		return services.Wrap(services.ErrEncoding, "rendering", "ffmpeg", "wait for encoder", waitErr)
	}
	return nil
}

// scanStatusLines splits on \n and \r so in-place status updates, which
// ffmpeg terminates with a bare carriage return, surface as lines.
func scanStatusLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, dropCR(data[:i]), nil
	}
	if atEOF {
		return len(data), dropCR(data), nil
	}
	return 0, nil, nil
}

func dropCR(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\r' {
		return data[:len(data)-1]
	}
	return data
}
