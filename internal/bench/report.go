package bench

import (
	"fmt"
	"math"
	"strings"
)

// FormatLeaderboard renders the ranked entries as a fixed-width text table
// grouped by modulation, with n/a for undefined margins.
func FormatLeaderboard(lb Leaderboard) string {
	var b strings.Builder
	rule := strings.Repeat("=", 78)

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "BER LEADERBOARD @ x_probe=%.4f (idx=%d)\n", lb.ProbeX, lb.ProbeIndex)
	fmt.Fprintln(&b, rule)
	hdr := fmt.Sprintf("%-5s %-14s %7s %7s %7s %5s %10s %10s", "Mod", "Functional", "BER", "Acc", "Err", "N", "Δμ(1-0)", "Thr")
	fmt.Fprintln(&b, hdr)
	sep := strings.Repeat("-", len([]rune(hdr)))
	fmt.Fprintln(&b, sep)

	last := ""
	for i, e := range lb.Entries {
		if i > 0 && e.Modulation != last {
			fmt.Fprintln(&b, sep)
		}
		last = e.Modulation

		margin := fmt.Sprintf("%10s", "n/a")
		if !math.IsNaN(e.Margin) {
			margin = fmt.Sprintf("%10.4f", e.Margin)
		}
		fmt.Fprintf(&b, "%-5s %-14s %7.3f %7.3f %7d %5d %s %10.4f\n",
			e.Modulation, e.Functional, e.BER, e.Accuracy, e.Errors, e.ValidBits, margin, e.Threshold)
	}
	if len(lb.Entries) == 0 {
		fmt.Fprintln(&b, "no results: every scenario was skipped")
	}
	for _, s := range lb.Skips {
		fmt.Fprintf(&b, "[SKIP] %s (%s): %s\n", s.Modulation, s.Scheme, s.Reason)
	}
	fmt.Fprintln(&b, rule)
	return b.String()
}

// FormatSuite renders the leaderboard followed by the coupling comparison,
// the noise sweep and the two-node summary.
func FormatSuite(s *Suite) string {
	var b strings.Builder
	b.WriteString(FormatLeaderboard(s.Leaderboard))

	if len(s.Coupling) > 0 {
		fmt.Fprintln(&b, "\nCOUPLING SPEED (hybrid @ x_B)")
		fmt.Fprintf(&b, "%-14s %12s %12s %6s %7s %7s\n", "Speed", "m/s", "delay (s)", "steps", "BER", "Acc")
		for _, c := range s.Coupling {
			speed := fmt.Sprintf("%12s", "inf")
			if !math.IsInf(c.Speed, 0) {
				speed = fmt.Sprintf("%12.4g", c.Speed)
			}
			fmt.Fprintf(&b, "%-14s %s %12.4g %6d %7.3f %7.3f\n",
				c.Label, speed, c.DelaySeconds, c.DelaySteps, c.BER, c.Accuracy)
		}
	}

	if len(s.Noise) > 0 {
		fmt.Fprintln(&b, "\nNOISE SWEEP (two-node @ x_B)")
		fmt.Fprintf(&b, "%-14s %8s %7s %5s\n", "Functional", "noise", "BER", "Err")
		for _, p := range s.Noise {
			fmt.Fprintf(&b, "%-14s %8.4f %7.3f %5d\n", p.Functional, p.NoiseLevel, p.BER, p.Errors)
		}
	}

	tn := s.TwoNode
	fmt.Fprintln(&b, "\nTWO-NODE")
	fmt.Fprintf(&b, "x_A=%.4f x_B=%.4f delay=%.4gs (%d steps)\n", tn.XA, tn.XB, tn.DelaySeconds, tn.DelaySteps)
	fmt.Fprintf(&b, "peak cross-correlation %.3f at lag %.4gs\n", tn.PeakCorr, tn.PeakLag)
	fmt.Fprintf(&b, "receiver BER=%.3f (%d/%d errors)\n", tn.Decode.BER, tn.Decode.Errors, tn.Decode.ValidBits)
	return b.String()
}
