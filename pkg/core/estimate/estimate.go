// Package estimate sizes the approximate-neighbor candidate pool for
// range-filtered queries. Drawing o candidates from a population of m where
// s satisfy the filter, the number of surviving candidates is modeled as
// Binomial(o, s/m); the pool is sized so fewer than k survivors is an event
// of probability at most alpha.
package estimate

// SafetyMargin is added to every computed pool size. Oracle candidates are
// not truly independent draws, so the binomial model slightly understates
// the tail risk.
const SafetyMargin = 100

// RequiredPoolSize returns the number of candidates to request from the
// oracle so that, with probability at least 1-alpha, at least k of them
// satisfy a filter matched by s out of m records. The result includes
// SafetyMargin and may exceed m; callers treat it as a request ceiling.
//
// Degenerate inputs short-circuit: k <= 0 needs no pool at all, while
// s <= 0, s >= m, or alpha <= 0 leave no room to amortize risk and demand
// exactly k (plus the margin).
func RequiredPoolSize(m, s, k int, alpha float64) int {
	if k <= 0 {
		return 0
	}
	return minimumPoolSize(m, s, k, alpha) + SafetyMargin
}

// minimumPoolSize is the margin-free core: the smallest o in [k, m] with
// P(Binomial(o, s/m) < k) <= alpha. The CDF is monotonically non-increasing
// in o for fixed k and p, so a binary search over o suffices, bounding the
// number of CDF evaluations to O(log m).
func minimumPoolSize(m, s, k int, alpha float64) int {
	if s <= 0 || s >= m || alpha <= 0 {
		return k
	}

	p := float64(s) / float64(m)
	lo, hi := k, m
	best := m
	for lo <= hi {
		mid := (lo + hi) / 2
		if binomialCDFBelow(mid, k, p) <= alpha {
			best = mid
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	return best
}

// binomialCDFBelow returns P(X < k) for X ~ Binomial(n, p).
func binomialCDFBelow(n, k int, p float64) float64 {
	sum := 0.0
	for i := 0; i < k; i++ {
		sum += binomialPMF(n, i, p)
	}
	return sum
}

// binomialPMF returns P(X = k) for X ~ Binomial(n, p). The binomial
// coefficient is computed by an iterative product rather than raw
// factorials, so it stays finite for n up to the full population size.
func binomialPMF(n, k int, p float64) float64 {
	if p < 0 || p > 1 || k < 0 || k > n {
		return 0
	}
	// C(n, k) as a running product of (n-kk+i)/i factors over the smaller
	// of k and n-k, never materializing a factorial.
	kk := k
	if n-k < kk {
		kk = n - k
	}
	result := 1.0
	for i := 1; i <= kk; i++ {
		result = result * float64(n-(kk-i)) / float64(i)
	}
	result *= pow(p, k)
	result *= pow(1-p, n-k)
	return result
}

// pow is an iterative x^n for non-negative integer n. math.Pow handles the
// general case; the integer loop avoids its edge semantics for x == 0.
func pow(x float64, n int) float64 {
	result := 1.0
	for ; n > 0; n >>= 1 {
		if n&1 == 1 {
			result *= x
		}
		x *= x
	}
	return result
}
