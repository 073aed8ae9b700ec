package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	BlobID  string `json:"blob_id,omitempty"`  // Used for: Put, Get, Delete, TTL
	Value   []byte `json:"value,omitempty"`    // Used for: Put (request), Get (response)
	TTLSecs uint64 `json:"ttl_secs,omitempty"` // Used for: Put, TTL requests. 0 means the blob never expires

	// Response only fields
	Ok  bool   `json:"ok,omitempty"`  // Used for: Get, Delete, TTL responses
	Err string `json:"err,omitempty"` // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Unused, can be used for additional adapters
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewPutRequest creates a new Put request
func NewPutRequest(blobID string, value []byte, ttlSecs uint64) *Message {
	return &Message{
		MsgType: MsgTPut,
		BlobID:  blobID,
		Value:   value,
		TTLSecs: ttlSecs,
	}
}

// NewPutResponse creates a new Put response
func NewPutResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTPut,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewGetRequest creates a new Get request
func NewGetRequest(blobID string) *Message {
	return &Message{
		MsgType: MsgTGet,
		BlobID:  blobID,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTGet,
		Ok:      ok,
		Value:   value,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(blobID string) *Message {
	return &Message{
		MsgType: MsgTDelete,
		BlobID:  blobID,
	}
}

// NewDeleteResponse creates a new Delete response
func NewDeleteResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTDelete,
		Ok:      ok,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewTTLRequest creates a new TTL request which updates the time to live of a
// stored blob
func NewTTLRequest(blobID string, ttlSecs uint64) *Message {
	return &Message{
		MsgType: MsgTTTL,
		BlobID:  blobID,
		TTLSecs: ttlSecs,
	}
}

// NewTTLResponse creates a new TTL response
func NewTTLResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTTTL,
		Ok:      ok,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewCustomRequest creates a new Custom request
func NewCustomRequest(meta []byte) *Message {
	return &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
}

// NewCustomResponse creates a new Custom response
func NewCustomResponse(meta []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in client/server communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTPut:
		return "put"
	case MsgTGet:
		return "get"
	case MsgTDelete:
		return "delete"
	case MsgTTTL:
		return "ttl"
	case MsgTCustom:
		return "custom"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "put":
		*t = MsgTPut
	case "get":
		*t = MsgTGet
	case "delete":
		*t = MsgTDelete
	case "ttl":
		*t = MsgTTTL
	case "custom":
		*t = MsgTCustom
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Blob store operations

	MsgTPut    // Store a blob
	MsgTGet    // Fetch a blob by id
	MsgTDelete // Delete a blob
	MsgTTTL    // Update the time to live of a blob

	// Custom operations

	MsgTCustom // Custom operation type
)
