// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChannel(t *testing.T) (*Channel, string) {
	t.Helper()
	c := New(16)
	require.NoError(t, c.Listen("tcp://127.0.0.1:0"))
	t.Cleanup(func() { c.Close() })
	return c, "tcp://" + c.listener.Addr().String()
}

func TestBroadcast_SubscriberSeesOnlyMatchingPrefix(t *testing.T) {
	c, addr := newTestChannel(t)

	subA, err := Dial(addr, "view:a")
	require.NoError(t, err)
	defer subA.Close()
	subB, err := Dial(addr, "view:b")
	require.NoError(t, err)
	defer subB.Close()

	// give both subscriber goroutines time to register before publishing.
	time.Sleep(20 * time.Millisecond)

	c.Publish("view:a", []byte("payload-a"))
	c.Publish("view:b", []byte("payload-b"))

	tag, payload, err := subA.Next()
	require.NoError(t, err)
	assert.Equal(t, "view:a", tag)
	assert.Equal(t, "payload-a", string(payload))

	tag, payload, err = subB.Next()
	require.NoError(t, err)
	assert.Equal(t, "view:b", tag)
	assert.Equal(t, "payload-b", string(payload))
}

func TestBroadcast_PublishWithNoSubscribersDoesNotBlock(t *testing.T) {
	c, _ := newTestChannel(t)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			c.Publish("view:anything", []byte("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with zero subscribers")
	}
}

func TestBroadcast_CloseDisconnectsSubscribers(t *testing.T) {
	c, addr := newTestChannel(t)

	sub, err := Dial(addr, "")
	require.NoError(t, err)
	defer sub.Close()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, c.Close())

	_, _, err = sub.Next()
	assert.Error(t, err)
}
