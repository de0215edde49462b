package address

import "net"

// Address is a network address of a cluster node in host:port form.
type Address string

func (a Address) String() string { return string(a) }

// PortString returns the port portion of the address prefixed with a colon,
// suitable for passing to net.Listen.
func (a Address) PortString() string {
	_, port, err := net.SplitHostPort(string(a))
	if err != nil {
		return ""
	}
	return ":" + port
}

// New returns an address built from the given host and port.
func New(host string, port string) Address { return Address(net.JoinHostPort(host, port)) }
