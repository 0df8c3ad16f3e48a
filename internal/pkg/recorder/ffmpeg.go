package recorder

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
)

const chunkSize = 4096

// FFmpegDevice captures audio from a system device with ffmpeg,
// streaming encoded fragments from its stdout.
// Pause/Resume are implemented with SIGSTOP/SIGCONT on the ffmpeg process.
type FFmpegDevice struct {
	format string
	input  string

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// NewFFmpegDevice creates a capture device.
// format is the ffmpeg input demuxer (e.g. alsa), input the device name (e.g. default).
func NewFFmpegDevice(format, input string) (*FFmpegDevice, error) {
	if format == "" {
		return nil, fmt.Errorf("no capture format")
	}
	if input == "" {
		return nil, fmt.Errorf("no capture input")
	}
	return &FFmpegDevice{format: format, input: input}, nil
}

func captureArgs(format, input string) []string {
	return strings.Fields(fmt.Sprintf(
		"-y -hide_banner -loglevel error -f %s -i %s -ac 1 -ar 16000 -c:a libopus -f ogg -",
		format, input))
}

// Start launches ffmpeg and streams captured fragments to emit
func (d *FFmpegDevice) Start(ctx context.Context, emit func([]byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd != nil {
		return fmt.Errorf("capture already running")
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", captureArgs(d.format, d.input)...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "can't open ffmpeg stdout")
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "can't start ffmpeg")
	}
	goapp.Log.Info().Str("format", d.format).Str("input", d.input).Msg("capture started")
	d.cmd = cmd
	d.done = make(chan struct{})
	go d.pump(out, emit)
	return nil
}

func (d *FFmpegDevice) pump(out io.Reader, emit func([]byte)) {
	defer close(d.done)
	buf := make([]byte, chunkSize)
	for {
		n, err := out.Read(buf)
		if n > 0 {
			emit(buf[:n])
		}
		if err != nil {
			if err != io.EOF {
				goapp.Log.Warn().Err(err).Msg("capture read stopped")
			}
			return
		}
	}
}

// Pause suspends the ffmpeg process
func (d *FFmpegDevice) Pause() error {
	return d.signal(syscall.SIGSTOP)
}

// Resume continues the suspended ffmpeg process
func (d *FFmpegDevice) Resume() error {
	return d.signal(syscall.SIGCONT)
}

func (d *FFmpegDevice) signal(sig syscall.Signal) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd == nil || d.cmd.Process == nil {
		return fmt.Errorf("capture not running")
	}
	return d.cmd.Process.Signal(sig)
}

// Stop interrupts ffmpeg and waits for the container to be finalized
func (d *FFmpegDevice) Stop(ctx context.Context) error {
	d.mu.Lock()
	cmd, done := d.cmd, d.done
	d.cmd, d.done = nil, nil
	d.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return fmt.Errorf("capture not running")
	}
	// SIGCONT first - a paused process would never see the interrupt
	_ = cmd.Process.Signal(syscall.SIGCONT)
	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		return errors.Wrap(err, "can't interrupt ffmpeg")
	}
	select {
	case <-done:
	case <-ctx.Done():
		_ = cmd.Process.Kill()
	case <-time.After(time.Second * 5):
		_ = cmd.Process.Kill()
	}
	_ = cmd.Wait()
	return nil
}

// MimeType returns the negotiated capture encoding
func (d *FFmpegDevice) MimeType() string {
	return "audio/ogg"
}
