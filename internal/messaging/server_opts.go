package messaging

import "time"

type NatsServerOpt func(*NatsServer)

// WithStartTimeout sets how long to wait for the server to accept connections.
func WithStartTimeout(d time.Duration) NatsServerOpt {
	return func(n *NatsServer) {
		n.startupTimeout = d
	}
}

func WithHost(host string) NatsServerOpt {
	return func(n *NatsServer) {
		n.host = host
	}
}

// WithPort sets the client port. Zero picks a random free port.
func WithPort(port int) NatsServerOpt {
	return func(n *NatsServer) {
		if port == 0 {
			return
		}
		n.port = port
	}
}
