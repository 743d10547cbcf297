// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package processing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slaclab/onda-go/internal/config"
	"github.com/slaclab/onda-go/internal/extract"
)

func loadTestConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestCrystallography_ProcessFlagsHitsAboveThreshold(t *testing.T) {
	cfg := loadTestConfig(t, "processing_layer:\n  hit_threshold: 3\n")
	p := NewCrystallography()
	require.NoError(t, p.InitializeWorker(1, 2, cfg))

	hitPayload, err := p.Process(1, 2, extract.Record{"peak_list": []float64{1, 2, 3, 4}, "timestamp": 1.0})
	require.NoError(t, err)
	assert.Equal(t, true, hitPayload["hit"])

	missPayload, err := p.Process(1, 2, extract.Record{"peak_list": []float64{1}, "timestamp": 2.0})
	require.NoError(t, err)
	assert.Equal(t, false, missPayload["hit"])
}

func TestCrystallography_CollectPublishesOnInterval(t *testing.T) {
	cfg := loadTestConfig(t, "processing_layer:\n  hit_threshold: 1\n  publish_interval: 2\n")
	p := NewCrystallography()
	require.NoError(t, p.InitializeAggregator(0, 2, cfg))

	pubs, err := p.Collect(0, 2, 1, Payload{"hit": true})
	require.NoError(t, err)
	assert.Empty(t, pubs)

	pubs, err = p.Collect(0, 2, 1, Payload{"hit": false})
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, "view:omdata", pubs[0].Tag)
	assert.Equal(t, 2, pubs[0].Payload["num_events"])
	assert.InDelta(t, 0.5, pubs[0].Payload["hit_rate"].(float64), 1e-9)
}

func TestCrystallography_EndAggregatorMarksFinal(t *testing.T) {
	cfg := loadTestConfig(t, "processing_layer:\n  hit_threshold: 1\n")
	p := NewCrystallography()
	require.NoError(t, p.InitializeAggregator(0, 2, cfg))

	pubs, err := p.EndAggregator(0, 2)
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, true, pubs[0].Payload["final"])
}

func TestCrystallography_MissingThresholdIsConfigError(t *testing.T) {
	cfg := loadTestConfig(t, "processing_layer:\n  publish_interval: 1\n")
	p := NewCrystallography()
	assert.Error(t, p.InitializeWorker(1, 2, cfg))
}
