package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/capacitylab/fleet-advisor/internal/logger"
	"github.com/capacitylab/fleet-advisor/pkg/models"
)

// InstanceSpec describes the instance a Provision call should create.
type InstanceSpec struct {
	ID        string
	CPUCores  float64
	MemoryGB  float64
	StorageGB float64
}

// Provisioner is the capability boundary to the infrastructure backend.
// The in-process Simulator is the default implementation; a real cloud
// backend slots in here without touching decision logic.
type Provisioner interface {
	// Provision brings up one instance and returns its descriptor.
	Provision(ctx context.Context, spec InstanceSpec) (models.InstanceDescriptor, error)

	// Deprovision gracefully shuts down the named instance.
	Deprovision(ctx context.Context, id string) (models.InstanceDescriptor, error)

	// Maintain runs the no-op maintenance pass over the fleet.
	Maintain(ctx context.Context) error
}

var provisionSteps = []string{
	"Requesting compute resources",
	"Allocating CPU and memory",
	"Setting up networking",
	"Installing application",
	"Running health checks",
	"Adding to load balancer",
}

var shutdownSteps = []string{
	"Draining connections",
	"Removing from load balancer",
	"Stopping application",
	"Backing up data",
	"Deallocating resources",
}

var maintainSteps = []string{
	"Performing health checks",
	"Optimizing resource allocation",
	"Updating monitoring configuration",
}

// Simulator walks the fixed provisioning, shutdown and maintenance
// checklists with a bounded pause per step, standing in for a real
// provisioning API. FailStep lets tests inject a failure at a named step.
type Simulator struct {
	provisionStepTime time.Duration
	shutdownStepTime  time.Duration
	maintainStepTime  time.Duration

	// FailStep, when set, is consulted before every step; a non-nil
	// return aborts the operation at that step.
	FailStep func(step string) error
}

type SimulatorConfig struct {
	ProvisionStepTime time.Duration
	ShutdownStepTime  time.Duration
	MaintainStepTime  time.Duration
}

func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.ProvisionStepTime == 0 {
		cfg.ProvisionStepTime = 200 * time.Millisecond
	}
	if cfg.ShutdownStepTime == 0 {
		cfg.ShutdownStepTime = 100 * time.Millisecond
	}
	if cfg.MaintainStepTime == 0 {
		cfg.MaintainStepTime = 100 * time.Millisecond
	}

	return &Simulator{
		provisionStepTime: cfg.ProvisionStepTime,
		shutdownStepTime:  cfg.ShutdownStepTime,
		maintainStepTime:  cfg.MaintainStepTime,
	}
}

func (s *Simulator) Provision(ctx context.Context, spec InstanceSpec) (models.InstanceDescriptor, error) {
	for _, step := range provisionSteps {
		if err := s.runStep(ctx, spec.ID, step, s.provisionStepTime); err != nil {
			return models.InstanceDescriptor{}, err
		}
	}

	return models.InstanceDescriptor{
		ID:        spec.ID,
		CPUCores:  spec.CPUCores,
		MemoryGB:  spec.MemoryGB,
		StorageGB: spec.StorageGB,
		Status:    models.InstanceActive,
	}, nil
}

func (s *Simulator) Deprovision(ctx context.Context, id string) (models.InstanceDescriptor, error) {
	for _, step := range shutdownSteps {
		if err := s.runStep(ctx, id, step, s.shutdownStepTime); err != nil {
			return models.InstanceDescriptor{}, err
		}
	}

	return models.InstanceDescriptor{
		ID:     id,
		Status: models.InstanceTerminated,
	}, nil
}

func (s *Simulator) Maintain(ctx context.Context) error {
	for _, step := range maintainSteps {
		if err := s.runStep(ctx, "fleet", step, s.maintainStepTime); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) runStep(ctx context.Context, target, step string, pause time.Duration) error {
	if s.FailStep != nil {
		if err := s.FailStep(step); err != nil {
			return fmt.Errorf("%s failed for %s: %w", step, target, err)
		}
	}

	logger.WithComponent("lifecycle").Debugf("%s: %s", target, step)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(pause):
	}
	return nil
}
