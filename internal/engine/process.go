package engine

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Command proceso a lanzar
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

func (c Command) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

// ProcessRunner lanza un proceso y espera a que termine.
// Debe devolver un error que envuelva exec.ErrNotFound cuando el ejecutable no existe
// y context.DeadlineExceeded cuando se agotó el tiempo.
type ProcessRunner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner implementación real basada en os/exec
type ExecRunner struct {
	// WaitDelay tiempo que se espera a que se cierren stdout/stderr tras matar el proceso
	WaitDelay time.Duration
}

// Run ejecuta el comando; al vencer ctx mata el grupo de procesos completo
func (r ExecRunner) Run(ctx context.Context, c Command) error {
	path, err := exec.LookPath(c.Name)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Name, exec.ErrNotFound)
	}

	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	out := &tailBuffer{limit: 4096}
	cmd.Stdout = out
	cmd.Stderr = out
	configureKill(cmd)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 5 * time.Second
	}

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s killed: %w", c.Name, ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with code %d: %s", c.Name, exitErr.ExitCode(), strings.TrimSpace(out.String()))
		}
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return nil
}

// tailBuffer conserva solo los últimos limit bytes de la salida
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
