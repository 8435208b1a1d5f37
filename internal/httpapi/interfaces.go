package httpapi

import (
	"context"

	"github.com/plazapos/contable/internal/service/bank"
	"github.com/plazapos/contable/internal/service/drawer"
	"github.com/plazapos/contable/internal/service/reports"
	"github.com/plazapos/contable/internal/service/tree"
)

// Store composes the repository and writer surfaces the API wires into its
// services. Both storage backends satisfy it.
type Store interface {
	tree.Repo
	tree.Writer
	reports.Repo
	drawer.Repo
	drawer.Writer
	bank.Repo
	bank.Writer
}

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}
