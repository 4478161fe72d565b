// Package viz provides terminal output for stochastic simulations.
//
// The package includes:
//
//   - [Live]: a Bubble Tea view that follows an integration step by step,
//     plotting the batch mean and a quantile band of one coordinate
//   - [PlotPaths]: line plots of sample paths and envelopes via asciigraph
//   - [Canvas]: Braille-based pixel canvas used for phase portraits
//   - [Table]: lipgloss tables for run listings and method comparisons
//
// # Key Bindings
//
//	Space - Pause/Resume integration
//	R     - Restart on the same Brownian path
//	Tab   - Cycle parameters
//	↑/↓   - Scale the selected parameter and restart
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
