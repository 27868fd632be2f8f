// Package krpc builds the minimal KRPC ping query used to check the liveness
// of a DHT node, and correlates replies with it.
package krpc

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/bencode"
)

const (
	NodeIDLength        = 20
	TransactionIDLength = 2
)

// NodeID is the 160-bit identifier sent in the "id" argument of a query
type NodeID [NodeIDLength]byte

// TransactionID correlates a reply with the query that caused it
type TransactionID [TransactionIDLength]byte

func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

func (t TransactionID) String() string {
	return hex.EncodeToString(t[:])
}

// NewNodeID reads a node id from r
func NewNodeID(r io.Reader) (NodeID, error) {
	var id NodeID
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return id, fmt.Errorf("generating node id: %w", err)
	}
	return id, nil
}

// NewTransactionID reads a transaction id from r
func NewTransactionID(r io.Reader) (TransactionID, error) {
	var tid TransactionID
	if _, err := io.ReadFull(r, tid[:]); err != nil {
		return tid, fmt.Errorf("generating transaction id: %w", err)
	}
	return tid, nil
}

// Field order matches bencode's sorted-key requirement.
type pingQuery struct {
	A pingArgs `bencode:"a"`
	Q string   `bencode:"q"`
	T string   `bencode:"t"`
	Y string   `bencode:"y"`
}

type pingArgs struct {
	ID string `bencode:"id"`
}

// EncodePing returns the bencoded ping query
//
//	d1:ad2:id20:<id>e1:q4:ping1:t2:<tid>1:y1:qe
func EncodePing(id NodeID, tid TransactionID) ([]byte, error) {
	return bencode.EncodeBytes(pingQuery{
		A: pingArgs{ID: string(id[:])},
		Q: "ping",
		T: string(tid[:]),
		Y: "q",
	})
}

// ContainsTransaction reports whether the raw transaction id bytes occur
// anywhere in reply. The reply is not decoded.
func ContainsTransaction(reply []byte, tid TransactionID) bool {
	return bytes.Contains(reply, tid[:])
}

// Reply is the subset of a KRPC message used for reporting
type Reply struct {
	T string                 `bencode:"t"`
	Y string                 `bencode:"y"`
	R map[string]interface{} `bencode:"r,omitempty"`
	E []interface{}          `bencode:"e,omitempty"`
}

var ErrNoNodeID = errors.New("reply carries no node id")

// DecodeReply decodes a KRPC reply
func DecodeReply(b []byte) (Reply, error) {
	var msg Reply
	if err := bencode.DecodeBytes(b, &msg); err != nil {
		return msg, fmt.Errorf("decoding reply: %w", err)
	}
	return msg, nil
}

// NodeID returns the responder's node id as hex
func (r Reply) NodeID() (string, error) {
	raw, ok := r.R["id"].(string)
	if !ok || len(raw) != NodeIDLength {
		return "", ErrNoNodeID
	}
	return hex.EncodeToString([]byte(raw)), nil
}
