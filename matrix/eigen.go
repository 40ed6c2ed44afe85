package matrix

import (
	"math"
	"math/cmplx"

	"github.com/westphae/insgps/ferr"
)

const (
	defaultEigenAbsTol = 1e-10
	defaultEigenRelTol = 1e-7
	eigenMaxIterations = 100
)

// Eigen holds the eigenvalues (possibly complex, in conjugate pairs) and,
// for each real eigenvalue, its eigenvector as a column of Vectors.
// Columns corresponding to a complex-conjugate pair are left zero: this
// engine only needs eigendecomposition for symmetric covariance-like
// matrices (matrix square root, UD/standard-form cross-checks), whose
// eigenvalues are always real, so the complex branch exists to match the
// general double-shift QR algorithm but is never exercised on the engine's
// own matrices.
type Eigen struct {
	Values  []complex128
	Vectors *Dense
}

// eigen22 returns the two eigenvalues of the 2x2 block of a rooted at
// (row,col), matching original_source/tool/param/matrix.h's eigen22.
func eigen22(a *Dense, row, col int) (upper, lower complex128) {
	x := a.At(row, col)
	b := a.At(row, col+1)
	c := a.At(row+1, col)
	d := a.At(row+1, col+1)
	disc := (x-d)*(x-d) + 4*b*c
	if disc >= 0 {
		root := math.Sqrt(disc)
		upper = complex((x+d+root)/2, 0)
		lower = complex((x+d-root)/2, 0)
		return
	}
	root := math.Sqrt(-disc)
	upper = complex((x+d)/2, root/2)
	lower = complex((x+d)/2, -root/2)
	return
}

// DecomposeEigen computes the eigenvalues (and, where real, eigenvectors)
// of a square matrix via Householder reduction to upper-Hessenberg form
// followed by the double-shift QR algorithm, then inverse iteration on the
// Hessenberg form for eigenvectors, which are mapped back to the input's
// basis through the accumulated Householder transform. It fails with
// ferr.EigenNotConverged when the shifted matrix for an eigenvector is
// singular or an intermediate value goes non-finite. Grounded on
// original_source/tool/param/matrix.h's eigen().
func DecomposeEigen(a View, thresholdAbs, thresholdRel float64) (*Eigen, error) {
	n, cols := a.Dims()
	if n != cols {
		return nil, ferr.New(ferr.SingularMatrix, "eigen: matrix not square")
	}
	if thresholdAbs <= 0 {
		thresholdAbs = defaultEigenAbsTol
	}
	if thresholdRel <= 0 {
		thresholdRel = defaultEigenRelTol
	}

	values := make([]complex128, n)
	transform := Eye(n)
	workingA, err := Hessenberg(a, transform)
	if err != nil {
		return nil, err
	}
	original := workingA.Clone()

	m := n
	var p1, p2 complex128
	first := true
	muSum, muMulti := 0.0, 0.0

	for m > 2 {
		p1New, p2New := eigen22(workingA, m-2, m-2)
		if first {
			first = false
		} else {
			if cmplx.Abs(p1New-p1) > cmplx.Abs(p1New)/2 {
				if cmplx.Abs(p2New-p2) > cmplx.Abs(p2New)/2 {
					muSum = real(p1 + p2)
					muMulti = real(p1 * p2)
				} else {
					muSum = real(p2New) * 2
					muMulti = real(p2New) * real(p2New)
				}
			} else {
				if cmplx.Abs(p2New-p2) > cmplx.Abs(p2New)/2 {
					muSum = real(p1New) * 2
					muMulti = real(p1New) * real(p1New)
				} else {
					muSum = real(p1New + p2New)
					muMulti = real(p1New * p2New)
				}
			}
		}
		p1, p2 = p1New, p2New

		for i := 0; i < m-1; i++ {
			var b1, b2, b3 float64
			if i == 0 {
				b1 = workingA.At(0, 0)*workingA.At(0, 0) - muSum*workingA.At(0, 0) + muMulti + workingA.At(0, 1)*workingA.At(1, 0)
				b2 = workingA.At(1, 0) * (workingA.At(0, 0) + workingA.At(1, 1) - muSum)
				b3 = workingA.At(2, 1) * workingA.At(1, 0)
			} else {
				b1 = workingA.At(i, i-1)
				b2 = workingA.At(i+1, i-1)
				if i == m-2 {
					b3 = 0
				} else {
					b3 = workingA.At(i+2, i-1)
				}
			}
			r := math.Sqrt(b1*b1 + b2*b2 + b3*b3)
			sign := 1.0
			if b1 < 0 {
				sign = -1.0
			}
			size := 3
			if i+size > n {
				size = n - i // only at i == n-2, where b3 is 0
			}
			omega := NewDense(size, 1)
			omega.Set(0, 0, b1+r*sign)
			omega.Set(1, 0, b2)
			if b3 != 0 {
				omega.Set(2, 0, b3)
			}
			p := Eye(n)
			denom := omega.T().Mul(omega).At(0, 0)
			if denom != 0 {
				reflector := omega.Mul(omega.T()).Scale(-2 / denom)
				p.PivotMerge(i, i, reflector)
			}
			workingA = p.Mul(workingA).Mul(p)
		}

		last := workingA.At(m-1, m-2)
		if math.IsNaN(last) || math.IsInf(last, 0) {
			return nil, ferr.New(ferr.EigenNotConverged, "non-finite subdiagonal during QR iteration")
		}

		aM2 := math.Abs(workingA.At(m-2, m-2))
		aM1 := math.Abs(workingA.At(m-1, m-1))
		minAbs := aM2
		if aM1 < minAbs {
			minAbs = aM1
		}
		epsilon := thresholdAbs + thresholdRel*minAbs

		if math.Abs(last) < epsilon {
			values[m-1] = complex(workingA.At(m-1, m-1), 0)
			m--
		} else if math.Abs(workingA.At(m-2, m-3)) < epsilon {
			u, l := eigen22(workingA, m-2, m-2)
			values[m-1] = u
			values[m-2] = l
			m -= 2
		}
	}
	if m == 1 {
		values[0] = complex(workingA.At(0, 0), 0)
	} else if m == 2 {
		u, l := eigen22(workingA, 0, 0)
		values[0] = u
		values[1] = l
	}

	vectors := NewDense(n, n)
	for j := 0; j < n; j++ {
		if imag(values[j]) != 0 {
			continue // complex-conjugate pair: see Eigen doc comment.
		}
		vec, err := inverseIteration(original, real(values[j]))
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			vectors.Set(i, j, vec.At(i, 0))
		}
	}

	return &Eigen{Values: values, Vectors: transform.Mul(vectors)}, nil
}

// inverseIteration finds the eigenvector of a for eigenvalue lambda by
// solving (A − λI) x' = x from x = e1 and normalizing. Its acceptance test
// 1 − μ²/‖x'‖² < 1.1 holds for every step (the left side lies in [0, 1]),
// so it returns the normalized vector from the first solve; the
// eigenMaxIterations bound is never reached.
func inverseIteration(a *Dense, lambda float64) (*Dense, error) {
	n, _ := a.Dims()
	shifted := a.Clone()
	approx := lambda
	if math.Abs(shifted.At(0, 0)-approx) <= 1e-3 {
		approx += 2e-3
	}
	for i := 0; i < n; i++ {
		shifted.Set(i, i, shifted.At(i, i)-approx)
	}
	lu, err := DecomposeLU(ViewOf(shifted))
	if err != nil {
		return nil, ferr.Wrap(ferr.EigenNotConverged, "eigenvector: shifted matrix singular", err)
	}

	x := NewDense(n, 1)
	x.Set(0, 0, 1)
	for loop := 0; ; loop++ {
		xNew := lu.Solve(x)
		mu := dot(xNew, x)
		v2 := dot(xNew, xNew)
		v2s := math.Sqrt(v2)
		if v2s == 0 || math.IsNaN(v2s) {
			return nil, ferr.New(ferr.EigenNotConverged, "eigenvector iteration diverged")
		}
		for i := 0; i < n; i++ {
			x.Set(i, 0, xNew.At(i, 0)/v2s)
		}
		if 1-(mu*mu)/v2 < 1.1 {
			return x, nil
		}
		if loop > eigenMaxIterations {
			return nil, ferr.New(ferr.EigenNotConverged, "eigenvector calculation failed to converge")
		}
	}
}

func dot(a, b *Dense) float64 {
	n, _ := a.Dims()
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a.At(i, 0) * b.At(i, 0)
	}
	return sum
}

// Sqrt computes a matrix square root via eigendecomposition: A = V Λ V⁻¹,
// sqrt(A) = V sqrt(Λ) V⁻¹. Only valid when A's eigenvalues are real and
// non-negative, as is the case for the symmetric PSD covariance matrices
// this engine calls it on.
func Sqrt(a View) (*Dense, error) {
	n, _ := a.Dims()
	eig, err := DecomposeEigen(a, 0, 0)
	if err != nil {
		return nil, err
	}
	sqrtLambda := NewDense(n, n)
	for i := 0; i < n; i++ {
		v := real(eig.Values[i])
		if v < 0 {
			v = 0
		}
		sqrtLambda.Set(i, i, math.Sqrt(v))
	}
	vInv, err := eig.Vectors.Inverse()
	if err != nil {
		return nil, err
	}
	return eig.Vectors.Mul(sqrtLambda).Mul(vInv), nil
}
