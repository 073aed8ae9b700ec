package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Client configuration structs
// --------------------------------------------------------------------------

// SocketConf holds the buffer sizes the network layer requests for every
// connection it asks the selector to create.
type SocketConf struct {
	SendBufferBytes int
	RecvBufferBytes int
}

// NetworkConf holds the parameters of the request-dispatch engine.
type NetworkConf struct {
	// CheckoutTimeoutMs is the maximum time a request may wait in the pending
	// queue for a connection before it is failed with ConnectionUnavailable.
	CheckoutTimeoutMs int

	// PollTimeoutMs bounds a single selector poll so the caller's tick loop
	// stays responsive even when no network events are pending.
	PollTimeoutMs int

	// MaxConnectionsPerEndpoint caps available + in-use + pending-creation
	// connections for every endpoint.
	MaxConnectionsPerEndpoint int

	// FailFastOnPoolExhaustion fails a request in the same cycle it could
	// neither check out nor create a connection, instead of letting it queue
	// until the checkout timeout.
	FailFastOnPoolExhaustion bool
}

// ClientConfig holds all configuration parameters for the dBlob client.
type ClientConfig struct {
	// Endpoints are the blob store servers in host:port form
	Endpoints []string

	// Request timeout for the high level client (seconds)
	TimeoutSecond int

	Network NetworkConf
	Socket  SocketConf

	// Logging configuration
	LogLevel string
}

// Default values used wherever the corresponding config field is zero.
const (
	DefaultCheckoutTimeoutMs         = 1000
	DefaultPollTimeoutMs             = 10
	DefaultMaxConnectionsPerEndpoint = 5
	DefaultSendBufferBytes           = 512 * 1024
	DefaultRecvBufferBytes           = 512 * 1024
)

// WithDefaults returns a copy of the config with all zero-valued network and
// socket fields replaced by their defaults.
func (c ClientConfig) WithDefaults() ClientConfig {
	if c.Network.CheckoutTimeoutMs <= 0 {
		c.Network.CheckoutTimeoutMs = DefaultCheckoutTimeoutMs
	}
	if c.Network.PollTimeoutMs <= 0 {
		c.Network.PollTimeoutMs = DefaultPollTimeoutMs
	}
	if c.Network.MaxConnectionsPerEndpoint <= 0 {
		c.Network.MaxConnectionsPerEndpoint = DefaultMaxConnectionsPerEndpoint
	}
	if c.Socket.SendBufferBytes <= 0 {
		c.Socket.SendBufferBytes = DefaultSendBufferBytes
	}
	if c.Socket.RecvBufferBytes <= 0 {
		c.Socket.RecvBufferBytes = DefaultRecvBufferBytes
	}
	return c
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-26s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Log Level", c.LogLevel)

	// Network layer
	addSection("Network")
	addField("Checkout Timeout", fmt.Sprintf("%d ms", c.Network.CheckoutTimeoutMs))
	addField("Poll Timeout", fmt.Sprintf("%d ms", c.Network.PollTimeoutMs))
	addField("Max Conns Per Endpoint", strconv.Itoa(c.Network.MaxConnectionsPerEndpoint))
	addField("Fail Fast On Exhaustion", fmt.Sprintf("%t", c.Network.FailFastOnPoolExhaustion))

	// Socket settings
	addSection("Socket")
	addField("Send Buffer", fmt.Sprintf("%d bytes", c.Socket.SendBufferBytes))
	addField("Recv Buffer", fmt.Sprintf("%d bytes", c.Socket.RecvBufferBytes))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
