// Package geometry - This file contains the normalized 8-point fundamental matrix estimate
// and the epipolar error used to score correspondences.
package geometry

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MinCorrespondences is the number of point pairs the 8-point estimate needs.
const MinCorrespondences = 8

var (
	// ErrMismatchedPoints is returned when the two point sets differ in length.
	ErrMismatchedPoints = errors.New("point sets must have the same number of elements")
	// ErrTooFewPoints is returned when fewer than MinCorrespondences pairs are given.
	ErrTooFewPoints = errors.New("at least 8 point pairs are required")
	// ErrDegenerate is returned when the points do not constrain a fundamental matrix.
	ErrDegenerate = errors.New("degenerate point configuration")
)

// FundamentalMatrix estimates F such that p2ᵀ·F·p1 = 0 for every pair, using Hartley
// normalization and rank-2 enforcement.
//
// Arguments:
//   - p1: Points in the first view.
//   - p2: Corresponding points in the second view.
//
// Returns:
//   - *mat.Dense: The 3x3 fundamental matrix, scaled to unit Frobenius norm.
//   - error: ErrMismatchedPoints, ErrTooFewPoints or ErrDegenerate.
func FundamentalMatrix(p1, p2 []r2.Point) (*mat.Dense, error) {
	if len(p1) != len(p2) {
		return nil, ErrMismatchedPoints
	}
	if len(p1) < MinCorrespondences {
		return nil, ErrTooFewPoints
	}

	n1, t1, ok := normalizePoints(p1)
	if !ok {
		return nil, ErrDegenerate
	}
	n2, t2, ok := normalizePoints(p2)
	if !ok {
		return nil, ErrDegenerate
	}

	a := mat.NewDense(len(n1), 9, nil)
	for i := range n1 {
		x1, y1 := n1[i].X, n1[i].Y
		x2, y2 := n2[i].X, n2[i].Y
		a.SetRow(i, []float64{
			x2 * x1, x2 * y1, x2,
			y2 * x1, y2 * y1, y2,
			x1, y1, 1,
		})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return nil, ErrDegenerate
	}
	var v mat.Dense
	svd.VTo(&v)
	f := mat.NewDense(3, 3, mat.Col(nil, 8, &v))

	// Rank 2.
	var fsvd mat.SVD
	if !fsvd.Factorize(f, mat.SVDFull) {
		return nil, ErrDegenerate
	}
	var u, vf mat.Dense
	fsvd.UTo(&u)
	fsvd.VTo(&vf)
	s := fsvd.Values(nil)
	s[2] = 0
	var us mat.Dense
	us.Mul(&u, mat.NewDiagDense(3, s))
	f.Mul(&us, vf.T())

	// Denormalize: T2ᵀ·F·T1.
	f.Mul(t2.T(), f)
	f.Mul(f, t1)

	norm := mat.Norm(f, 2)
	if norm == 0 || math.IsNaN(norm) {
		return nil, ErrDegenerate
	}
	f.Scale(1/norm, f)
	return f, nil
}

// EpipolarError returns the larger of the squared distances from p2 to the epipolar line
// F·p1 and from p1 to the line Fᵀ·p2.
func EpipolarError(f mat.Matrix, p1, p2 r2.Point) float64 {
	a := f.At(0, 0)*p1.X + f.At(0, 1)*p1.Y + f.At(0, 2)
	b := f.At(1, 0)*p1.X + f.At(1, 1)*p1.Y + f.At(1, 2)
	c := f.At(2, 0)*p1.X + f.At(2, 1)*p1.Y + f.At(2, 2)

	s2 := p2.X*a + p2.Y*b + c
	d2 := s2 * s2 / (a*a + b*b + math.SmallestNonzeroFloat64)

	a = f.At(0, 0)*p2.X + f.At(1, 0)*p2.Y + f.At(2, 0)
	b = f.At(0, 1)*p2.X + f.At(1, 1)*p2.Y + f.At(2, 1)
	c = f.At(0, 2)*p2.X + f.At(1, 2)*p2.Y + f.At(2, 2)

	s1 := p1.X*a + p1.Y*b + c
	d1 := s1 * s1 / (a*a + b*b + math.SmallestNonzeroFloat64)

	return math.Max(d1, d2)
}

// normalizePoints translates the centroid to the origin and scales the mean distance to
// sqrt(2). ok is false when every point coincides.
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense, bool) {
	var mu r2.Point
	for _, pt := range pts {
		mu = mu.Add(pt)
	}
	mu = mu.Mul(1 / float64(len(pts)))

	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm()
	}
	d /= float64(len(pts))
	if d < 1e-12 {
		return nil, nil, false
	}

	scale := math.Sqrt2 / d
	out := make([]r2.Point, len(pts))
	for i, pt := range pts {
		out[i] = pt.Sub(mu).Mul(scale)
	}
	t := mat.NewDense(3, 3, []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	})
	return out, t, true
}
