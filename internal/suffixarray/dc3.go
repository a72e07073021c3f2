// Package suffixarray implements the DC3 (difference cover modulo 3,
// a.k.a. skew) linear-time suffix array construction algorithm, and the
// Burrows-Wheeler transform built on top of it (spec.md §4.4). It is
// grounded on misc/dc3.h from the original tk2k_lib, which implements the
// same Karkkainen-Sanders algorithm; the counting-sort radix pass and the
// base-case cutoff are carried over directly, generalized from C arrays to
// Go slices.
package suffixarray

// radixPass stably sorts a into b using keys r[a[i]] in [0, k].
func radixPass(a, b, r []int32, k int32) {
	count := make([]int32, k+2)
	for _, v := range a {
		count[r[v]+1]++
	}
	for i := int32(1); i < int32(len(count)); i++ {
		count[i] += count[i-1]
	}
	for _, v := range a {
		key := r[v]
		b[count[key]] = v
		count[key]++
	}
}

func leq2(a1, a2, b1, b2 int32) bool {
	return a1 < b1 || (a1 == b1 && a2 <= b2)
}

func leq3(a1, a2, a3, b1, b2, b3 int32) bool {
	return a1 < b1 || (a1 == b1 && leq2(a2, a3, b2, b3))
}

// build computes the suffix array of s[0:n] into sa[0:n]. s must have at
// least n+3 valid entries (the trailing 3 are sentinel padding, value 0),
// and every value in s[0:n] must be in [0, k].
//
// Base case: n <= 1 (a single suffix, or none, is trivially sorted) --
// matching spec.md's "Base case: size <= 1."
func build(s []int32, sa []int32, n int32, k int32) {
	if n == 0 {
		return
	}
	if n == 1 {
		sa[0] = 0
		return
	}

	n0 := (n + 2) / 3
	n1 := (n + 1) / 3
	n2 := n / 3
	n02 := n0 + n2

	s12 := make([]int32, n02+3)
	sa12 := make([]int32, n02+3)
	s0 := make([]int32, n0)
	sa0 := make([]int32, n0)

	// s12 holds the indices i in [0, n+(n0-n1)) with i % 3 != 0, i.e. the
	// B_1 and B_2 suffix classes from spec.md §4.4.
	j := int32(0)
	for i := int32(0); i < n+(n0-n1); i++ {
		if i%3 != 0 {
			s12[j] = i
			j++
		}
	}

	// Radix-sort the B_1/B_2 triples, least significant character first.
	radixPass(s12[:n02], sa12, shifted(s, 2), k)
	radixPass(sa12[:n02], s12, shifted(s, 1), k)
	radixPass(s12[:n02], sa12, s, k)

	// Assign dense ranks ("names") to distinct triples, remapping the
	// alphabet to small dense integers for the recursive call, exactly as
	// spec.md §4.4 describes.
	name := int32(0)
	var c0, c1, c2 int32 = -1, -1, -1
	for i := int32(0); i < n02; i++ {
		p := sa12[i]
		v0, v1, v2 := at(s, p), at(s, p+1), at(s, p+2)
		if v0 != c0 || v1 != c1 || v2 != c2 {
			name++
			c0, c1, c2 = v0, v1, v2
		}
		if p%3 == 1 {
			s12[p/3] = name
		} else {
			s12[p/3+n0] = name
		}
	}

	if name < n02 {
		// Names are not unique: recursively suffix-sort the renamed
		// B_1/B_2 sequence (spec.md: "Recursively suffix-sort the
		// concatenation of the renamed B_{1,2} triples").
		build(s12, sa12, n02, name)
		for i := int32(0); i < n02; i++ {
			s12[sa12[i]] = i + 1
		}
	} else {
		for i := int32(0); i < n02; i++ {
			sa12[s12[i]-1] = i
		}
	}

	// Sort the B_0 suffixes by (T[3k], rank(3k+1)), using the ranks just
	// computed for B_1/B_2 (spec.md: "sort B_0 by (T[3k], rank(3k+1))").
	j = 0
	for i := int32(0); i < n02; i++ {
		if sa12[i] < n0 {
			s0[j] = 3 * sa12[i]
			j++
		}
	}
	radixPass(s0, sa0, s, k)

	// Merge B_0 with B_1/B_2 using a constant-time compare that inspects
	// one or two leading characters plus a stored rank, per spec.md §4.4.
	getI := func(t int32) int32 {
		if sa12[t] < n0 {
			return sa12[t]*3 + 1
		}
		return (sa12[t]-n0)*3 + 2
	}

	p, t, k2 := int32(0), n0-n1, int32(0)
	for k2 < n {
		i := getI(t)
		jIdx := sa0[p]

		var less bool
		if sa12[t] < n0 {
			less = leq2(at(s, i), s12[sa12[t]+n0], at(s, jIdx), s12[jIdx/3])
		} else {
			less = leq3(at(s, i), at(s, i+1), s12[sa12[t]-n0+1], at(s, jIdx), at(s, jIdx+1), s12[jIdx/3+n0])
		}

		if less {
			sa[k2] = i
			t++
			k2++
			if t == n02 {
				for ; p < n0; p++ {
					sa[k2] = sa0[p]
					k2++
				}
			}
		} else {
			sa[k2] = jIdx
			p++
			k2++
			if p == n0 {
				for ; t < n02; t++ {
					sa[k2] = getI(t)
					k2++
				}
			}
		}
	}
}

func at(s []int32, i int32) int32 {
	if int(i) >= len(s) {
		return 0
	}
	return s[i]
}

// shifted returns a view of s offset by d, reading 0 past the end (used to
// index s[i+1]/s[i+2] without bounds checks in the hot radix-sort loop).
func shifted(s []int32, d int32) []int32 {
	out := make([]int32, len(s))
	for i := range out {
		out[i] = at(s, int32(i)+d)
	}
	return out
}

// Build returns the suffix array of s (values must be non-negative and
// <= k). The result has length len(s).
func Build(s []int32, k int32) []int32 {
	n := int32(len(s))
	padded := make([]int32, n+3)
	copy(padded, s)
	sa := make([]int32, n)
	build(padded, sa, n, k)
	return sa
}
