package consts

const (
	BREAKDOWN_EPS  = 1e-14 // |rho|, |omega| floor of the biconjugate recurrence
	DEFAULT_ITOL   = 1e-3  // Iterative solver relative residual tolerance
	BICG_MIN_ITERS = 20    // Iteration cap floor for tiny systems
	PIVOT_EPS      = 1e-15 // Pivot magnitude treated as zero by the direct solvers
	SWEEP_EPS      = 1e-9  // Round-off allowance when counting sweep points
	WAVEFORM_RTOL  = 1e-9  // Relative tolerance of the DC/waveform consistency check
)
