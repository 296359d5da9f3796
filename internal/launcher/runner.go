package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"github.com/hdonnay/Pass/internal/config"
	"github.com/hdonnay/Pass/internal/store"
)

// Runner starts command lines on behalf of the handler.
type Runner interface {
	Start(ctx context.Context, argv []string) error
}

// ExecRunner starts commands as detached processes: in their own session,
// with no standard streams, and without waiting for them to finish. The exit
// status is only logged.
type ExecRunner struct {
	Log *zap.Logger
	// Env is the child environment; nil means the current one.
	Env []string
}

// EnvFor returns the environment actions should run with so that the tool
// operates on the configured store.
func EnvFor(cfg config.Config) []string {
	if cfg.Backend != config.Pass || cfg.StoreDir == "" {
		return nil
	}
	return append(os.Environ(), "PASSWORD_STORE_DIR="+cfg.StoreDir)
}

// Start implements Runner.
func (r *ExecRunner) Start(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("launcher: empty command")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	bin, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("launcher: %w: %s", store.ErrBinaryNotFound, argv[0])
	}
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	// Not CommandContext: the process outlives the query that started it.
	cmd := exec.Command(bin, argv[1:]...)
	cmd.Env = r.Env
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launcher: starting %s: %w", argv[0], err)
	}
	log.Debug("started", zap.Strings("argv", argv), zap.Int("pid", cmd.Process.Pid))
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Warn("command failed", zap.Strings("argv", argv), zap.Error(err))
		}
	}()
	return nil
}
