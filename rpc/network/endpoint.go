package network

import (
	"fmt"
	"net"
	"strconv"
)

// --------------------------------------------------------------------------
// Endpoint
// --------------------------------------------------------------------------

// PortType identifies the kind of transport a port speaks.
type PortType uint8

const (
	// PlainText is an unencrypted TCP port
	PlainText PortType = iota
	// SSL is a TLS secured port. The port type is carried through the
	// connection pool so connections to the two port kinds are never mixed,
	// the bundled selector however only dials plain text.
	SSL
)

// String returns the string representation of a PortType.
func (t PortType) String() string {
	switch t {
	case PlainText:
		return "plaintext"
	case SSL:
		return "ssl"
	default:
		return "unknown"
	}
}

// Endpoint identifies a remote blob store server. Connections are scoped to
// exactly one endpoint: host, port and port type together form the pool key.
type Endpoint struct {
	Host     string
	Port     int
	PortType PortType
}

// String renders the endpoint in host:port form.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ParseEndpoint parses a "host:port" string into a PlainText endpoint.
func ParseEndpoint(s string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: %v", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("invalid port in endpoint %q", s)
	}
	return Endpoint{Host: host, Port: port, PortType: PlainText}, nil
}
