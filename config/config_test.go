package config

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westphae/insgps/ferr"
	"github.com/westphae/insgps/timesync"
)

func TestBuildRejectsBackPropagateAndRealtimeTogether(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	b := Register(fs)
	require.NoError(t, fs.Parse([]string{"--back_propagate", "--realtime"}))
	fs.Visit(b.MarkExplicit)

	_, err := b.Build()
	require.Error(t, err)
	kind, ok := ferr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ferr.ConfigConflict, kind)
}

func TestBuildAppliesGPSGateOverrides(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	b := Register(fs)
	require.NoError(t, fs.Parse([]string{"--gps_init_acc_2d=5", "--use_udkf"}))
	fs.Visit(b.MarkExplicit)

	cfg, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.InitAcc2D)
	assert.True(t, cfg.UseUDKF)
	assert.Equal(t, timesync.Offline, cfg.Mode)
}

func TestBuildParsesInitAttitudeDeg(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	b := Register(fs)
	require.NoError(t, fs.Parse([]string{"--init_attitude_deg=90,0,0"}))
	fs.Visit(b.MarkExplicit)

	cfg, err := b.Build()
	require.NoError(t, err)
	require.NotNil(t, cfg.InitAttitudeDeg)
	assert.InDelta(t, 1.5707963267948966, cfg.InitAttitudeDeg[0], 1e-9)
}

func TestBuildTreatsUnsetInitYawAsNoOverride(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	b := Register(fs)
	require.NoError(t, fs.Parse(nil))
	fs.Visit(b.MarkExplicit)

	cfg, err := b.Build()
	require.NoError(t, err)
	assert.Nil(t, cfg.InitYawOverride)
}
