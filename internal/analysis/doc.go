// Package analysis provides tools for studying sample paths and solver
// accuracy.
//
// The package includes:
//
//   - [StrongOrder]: empirical strong order from (dt, error) pairs
//   - [Converge]: runs one method at several step sizes against a reference
//   - [StrongError]: mean absolute error between two states
//   - [BatchMoments]: per-dimension mean and variance across the batch
//   - [Quantiles]: per-dimension empirical quantiles across the batch
//   - [SamplePath]: one coordinate of one batch element over time
//   - [Periodogram]: batch-averaged power spectrum of evenly sampled paths
//
// # Convergence
//
// A scheme of strong order p has E|y_h(T) - y(T)| ~ C h^p. With a shared
// Brownian path the slope of log error against log dt estimates p:
//
//	res, err := analysis.Converge(ctx, sde, y0, 1, dynamo.Euler, dts, 7, nil)
//	if err == nil && res.Order < 0.4 {
//	    // much worse than the expected 0.5
//	}
package analysis
