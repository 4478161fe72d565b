// Package brownian provides Wiener process sources for the integrators.
//
// Every source returns one block per state block, shaped (batch, m_i),
// and answers repeated identical queries with identical values:
//
//   - [Path]: cached samples, extended with Gaussian increments and filled
//     in with Lévy-bridge samples as new times are queried
//   - [Tree]: a seeded dyadic bisection of a fixed interval, independent of
//     query order
//   - [Zero]: the constant zero path
//
// Path and Tree also supply the auxiliary space-time variate consumed by
// stochastic Runge-Kutta stages.
package brownian
