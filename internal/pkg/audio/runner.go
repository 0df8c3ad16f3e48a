package audio

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
)

// CmdRunner executes an external command and captures its output
type CmdRunner struct{}

// NewCmdRunner creates the runner
func NewCmdRunner() *CmdRunner {
	return &CmdRunner{}
}

// Run executes the command, bounded by ctx.
// Exit code != 0 returns an error wrapping the captured output.
func (r *CmdRunner) Run(ctx context.Context, command string, workingDir string) error {
	goapp.Log.Info().Str("cmd", command).Msg("Running command")
	cmdArr := strings.Fields(command)
	if len(cmdArr) < 2 {
		return errors.Errorf("wrong command, no parameter '%s'", command)
	}

	cmd := exec.CommandContext(ctx, cmdArr[0], cmdArr[1:]...)
	cmd.Dir = workingDir
	cmd.Env = os.Environ()

	var outputBuffer bytes.Buffer
	cmd.Stdout = &outputBuffer
	cmd.Stderr = &outputBuffer

	if err := cmd.Run(); err != nil {
		return errors.Wrap(err, "output: "+outputBuffer.String())
	}
	return nil
}
