// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

package broadcast

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// wireMessage is the on-the-wire (tag-string, payload-bytes) frame
// (spec.md §6): self-describing via msgpack, length-prefixed on the socket.
type wireMessage struct {
	Tag     string
	Payload []byte
}

const maxFrameSize = 64 << 20 // generous ceiling against a corrupt length prefix

func writeFrame(w io.Writer, tag string, payload []byte) error {
	b, err := msgpack.Marshal(wireMessage{Tag: tag, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(b)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func readFrame(r io.Reader) (tag string, payload []byte, err error) {
	var lenPrefix [4]byte
	if _, err = io.ReadFull(r, lenPrefix[:]); err != nil {
		return "", nil, err
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > maxFrameSize {
		return "", nil, fmt.Errorf("frame too large: %d bytes", n)
	}
	buf := make([]byte, n)
	if _, err = io.ReadFull(r, buf); err != nil {
		return "", nil, err
	}
	var w wireMessage
	if err = msgpack.Unmarshal(buf, &w); err != nil {
		return "", nil, fmt.Errorf("decode frame: %w", err)
	}
	return w.Tag, w.Payload, nil
}
