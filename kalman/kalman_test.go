package kalman

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westphae/insgps/ins"
	"github.com/westphae/insgps/matrix"
	"github.com/westphae/insgps/packet"
)

func initialCovariance(dim int) *matrix.Dense {
	diag := make([]float64, dim)
	for i := range diag {
		diag[i] = 10
	}
	return matrix.Diag(diag)
}

func TestStandardScalarUpdateReducesUncertainty(t *testing.T) {
	f := NewStandard(9, initialCovariance(9))
	h := matrix.NewDense(1, 9)
	h.Set(0, 0, 1)
	before := f.Covariance().At(0, 0)

	_, innovCov, err := f.ScalarUpdate(h, 1.0, 1.0)
	require.NoError(t, err)
	assert.Greater(t, innovCov, 0.0)
	assert.Less(t, f.Covariance().At(0, 0), before)
}

func TestStandardTimeUpdateGrowsUncertainty(t *testing.T) {
	f := NewStandard(9, initialCovariance(9))
	ff := matrix.Eye(9)
	q := matrix.Diag(repeat(9, 1.0))
	before := f.Covariance().At(0, 0)
	f.TimeUpdate(ff, q, 1.0)
	assert.Greater(t, f.Covariance().At(0, 0), before)
}

func TestUDMatchesStandardAfterScalarUpdate(t *testing.T) {
	p0 := initialCovariance(9)
	std := NewStandard(9, p0.Clone())
	ud, err := NewUD(9, p0.Clone())
	require.NoError(t, err)

	h := matrix.NewDense(1, 9)
	h.Set(0, 3, 1)

	dxStd, _, err := std.ScalarUpdate(h, 2.0, 0.5)
	require.NoError(t, err)
	dxUD, _, err := ud.ScalarUpdate(h, 2.0, 0.5)
	require.NoError(t, err)

	for i := 0; i < 9; i++ {
		assert.InDelta(t, dxStd.At(i, 0), dxUD.At(i, 0), 1e-6)
	}
	pStd := std.Covariance()
	pUD := ud.Covariance()
	for i := 0; i < 9; i++ {
		for j := 0; j < 9; j++ {
			assert.InDelta(t, pStd.At(i, j), pUD.At(i, j), 1e-6)
		}
	}
}

func TestPositionVelocityResidualZeroAtTruth(t *testing.T) {
	lat, lon, h := 0.1, 0.2, 100.0
	s := ins.Initialize(lat, lon, h, 1, 2, 3, 0, 0, 0, 0)
	sol := packet.GPSSolution{Lat: lat, Lon: lon, H: h, Vn: 1, Ve: 2, Vd: 3, Sigma2D: 2, SigmaH: 3, SigmaVel: 0.2}
	z, hMat, r := PositionVelocityResidual(s, sol, packet.Vec3{}, false, [3]float64{})
	for _, v := range z {
		assert.InDelta(t, 0, v, 1e-6)
	}
	rows, cols := hMat.Dims()
	assert.Equal(t, 6, rows)
	assert.Equal(t, 9, cols)
	assert.Equal(t, 4.0, r[0])
}

func TestPositionVelocityResidualAppliesLeverArmVelocityCorrection(t *testing.T) {
	lat, lon, h := 0.1, 0.2, 100.0
	s := ins.Initialize(lat, lon, h, 0, 0, 0, 0, 0, 0, 0)
	leverArm := packet.Vec3{X: 1, Y: 0, Z: 0}
	omegaB := [3]float64{0, 0, 1}
	// r_b x w_b = (1,0,0) x (0,0,1) = (0,-1,0): rotated through the
	// identity attitude this state starts at, that's the NED velocity
	// the antenna sees beyond the IMU's own velocity.
	sol := packet.GPSSolution{Lat: lat, Lon: lon, H: h, Vn: 0, Ve: -1, Vd: 0, Sigma2D: 2, SigmaH: 3, SigmaVel: 0.2}
	z, hMat, _ := PositionVelocityResidual(s, sol, leverArm, true, omegaB)
	assert.InDelta(t, 0, z[3], 1e-6)
	assert.InDelta(t, 0, z[4], 1e-6)
	assert.InDelta(t, 0, z[5], 1e-6)
	rows, _ := hMat.Dims()
	assert.Equal(t, 6, rows)
}

func TestYawResidualWrapsAcrossDiscontinuity(t *testing.T) {
	s := ins.Initialize(0, 0, 0, 0, 0, 0, 0, 0, 3.1, 0)
	h, z, r := YawResidual(s, -3.1, 0.1)
	assert.Greater(t, r, 0.0)
	assert.Less(t, math.Abs(z), math.Pi)
	assert.Equal(t, 1.0, h.At(0, 8))
}

func repeat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
