package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"modsecsync/rulestore"
	"modsecsync/secrule"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Deployment errors. ErrEnforcementUnavailable aborts the trigger stage
// before anything is pushed; the others leave the store and the enforcement
// point diverged until the next successful deployment.
var (
	ErrEnforcementUnavailable = errors.New("enforcement point not running")
	ErrExclusionWriteFailed   = errors.New("failed to write rule exclusions")
	ErrDeployedStoreConflict  = errors.New("deployed rule store has conflicting rule ids")
	ErrReloadFailed           = errors.New("failed to reload enforcement point configuration")
)

// enforcementCheckRetries bounds the exponential backoff around the
// container running-state probe.
const enforcementCheckRetries = 3

// Trigger pushes the updated custom rule store to the live enforcement
// point: probe, exclusions, verification, graceful reload. The first failing
// step halts the sequence.
type Trigger interface {
	Deploy(ctx context.Context, ruleIDs []string) error
}

type dockerTriggerImpl struct {
	logger            zerolog.Logger
	runner            CommandRunner
	exclusions        *exclusionWriter
	containerName     string
	deployedStorePath string
}

// NewDockerTrigger creates a Trigger for a Dockerized Apache+ModSecurity
// enforcement point. ruleIDs handed to Deploy are translated to vendor form
// and excluded from the stock ruleset before the reload.
func NewDockerTrigger(logger zerolog.Logger, runner CommandRunner, fileSystem rulestore.FileSystem, namespacer secrule.Namespacer, containerName string, exclusionsPath string, deployedStorePath string) Trigger {
	return &dockerTriggerImpl{
		logger: logger,
		runner: runner,
		exclusions: &exclusionWriter{
			logger:     logger,
			fileSystem: fileSystem,
			namespacer: namespacer,
			path:       exclusionsPath,
		},
		containerName:     containerName,
		deployedStorePath: deployedStorePath,
	}
}

func (t *dockerTriggerImpl) Deploy(ctx context.Context, ruleIDs []string) error {
	if err := t.checkRunning(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrEnforcementUnavailable, err)
	}

	if err := t.exclusions.ensure(ruleIDs); err != nil {
		return fmt.Errorf("%w: %v", ErrExclusionWriteFailed, err)
	}

	if err := t.verifyDeployedStore(ctx); err != nil {
		return err
	}

	if err := t.reload(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrReloadFailed, err)
	}

	t.logger.Info().Str("container", t.containerName).Msg("Enforcement point reloaded with updated rules")
	return nil
}

func (t *dockerTriggerImpl) checkRunning(ctx context.Context) error {
	probe := func() error {
		out, err := t.runner.Run(ctx, "docker", "container", "inspect", "-f", "{{.State.Running}}", t.containerName)
		if err != nil {
			return err
		}

		if strings.TrimSpace(out) != "true" {
			return fmt.Errorf("container %s reports running=%s", t.containerName, strings.TrimSpace(out))
		}

		return nil
	}

	b := backoff.WithMaxRetries(backoff.WithContext(backoff.NewExponentialBackOff(), ctx), enforcementCheckRetries)
	return backoff.Retry(probe, b)
}

// verifyDeployedStore reads the rule store as the enforcement point sees it
// and checks it for id conflicts. An unreadable deployed store is tolerated,
// since the shared volume is the source of truth; a conflicting one is not.
func (t *dockerTriggerImpl) verifyDeployedStore(ctx context.Context) error {
	out, err := t.runner.Run(ctx, "docker", "exec", t.containerName, "cat", t.deployedStorePath)
	if err != nil {
		t.logger.Warn().Err(err).Str("container", t.containerName).Msg("Could not read deployed rule store for verification")
		return nil
	}

	if conflicts := rulestore.FindConflicts(rulestore.ScanDeclaredIDs(out)); len(conflicts) > 0 {
		return fmt.Errorf("%w: %s", ErrDeployedStoreConflict, strings.Join(conflicts, ", "))
	}

	return nil
}

func (t *dockerTriggerImpl) reload(ctx context.Context) error {
	_, err := t.runner.Run(ctx, "docker", "exec", t.containerName, "apachectl", "graceful")
	return err
}
