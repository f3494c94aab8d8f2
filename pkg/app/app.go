// Package app wires the library packages into the single in-process
// Service the CLI drives. There being no external persistence layer
// (see DESIGN.md), the CLI's unit of work is one process invocation:
// each command builds a fresh in-memory catalog, so "maestro workflow
// run" both defines and executes a workflow in one shot.
package app

import (
	"github.com/fmeurisse/maestro-sub001/pkg/engine"
	"github.com/fmeurisse/maestro-sub001/pkg/executionstore"
	"github.com/fmeurisse/maestro-sub001/pkg/logger"
	"github.com/fmeurisse/maestro-sub001/pkg/revisionstore"
	"github.com/fmeurisse/maestro-sub001/pkg/step"
	"github.com/fmeurisse/maestro-sub001/pkg/workflow"
)

// New builds a Service backed by fresh in-memory stores and the
// bootstrapped step registry.
func New() *workflow.Service {
	revisions := revisionstore.New()
	executions := executionstore.New()
	log := logger.Get()
	eng := engine.New(step.Default, executions, log)
	return workflow.New(step.Default, revisions, executions, eng, log)
}
