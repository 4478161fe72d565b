// Package dynamo provides the core primitives for integrating Itô
// stochastic differential equations.
//
// The package defines the data model shared by every other package:
//
//   - [State]: an ordered tuple of (batch, d) blocks
//   - [Diffusion]: one evaluation of g for a block
//   - [SDE]: drift and diffusion capability bundle (dY = f dt + g dW)
//   - [Brownian]: source of consistent Wiener increments
//   - [Config]: step-size configuration shared by the solvers
//
// Optional capabilities ([PriorDrifter], [DiffusionDirectional],
// [SpaceTimeSource]) are discovered once by type assertion when a solver
// is built, never per step.
//
// # Example
//
//	sde := models.NewGBM(0.5, 0.2)
//	bm := brownian.NewTree(0, 1, shapes, 42)
//	traj, err := solver.Sdeint(ctx, sde, solver.Single(y0), ts, opts)
//
// # Thread Safety
//
// State values are plain gonum matrices and are not safe for concurrent
// mutation. Brownian implementations must tolerate concurrent queries.
package dynamo
