// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package transport

import (
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_Data(t *testing.T) {
	payload, err := EncodePayload(map[string]interface{}{"hit": true, "num_peaks": int64(4)})
	require.NoError(t, err)

	raw, err := EncodeData(3, payload)
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, Data, env.Kind)
	assert.Equal(t, 3, env.Rank)
	assert.False(t, env.End)

	decoded, err := DecodePayload(env.Payload)
	require.NoError(t, err)
	assert.Equal(t, true, decoded["hit"])
}

func TestEncodeDecode_End(t *testing.T) {
	raw, err := EncodeEnd(2)
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, Data, env.Kind)
	assert.True(t, env.End)
	assert.Equal(t, 2, env.Rank)
}

func TestEncodeDecode_DieAndDead(t *testing.T) {
	die, err := EncodeDie(1)
	require.NoError(t, err)
	env, err := Decode(die)
	require.NoError(t, err)
	assert.Equal(t, Die, env.Kind)

	dead, err := EncodeDead(1)
	require.NoError(t, err)
	env, err = Decode(dead)
	require.NoError(t, err)
	assert.Equal(t, Dead, env.Kind)
}

func TestDecode_UnknownKindErrors(t *testing.T) {
	raw, err := msgpack.Marshal(wireEnvelope{Kind: 200, Rank: 1})
	require.NoError(t, err)
	_, err = Decode(raw)
	assert.Error(t, err)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "DATA", Data.String())
	assert.Equal(t, "DIE", Die.String())
	assert.Equal(t, "DEAD", Dead.String())
	assert.Equal(t, "UNKNOWN", Kind(99).String())
}
