package testutil

import (
	"fmt"
	mrand "math/rand"
	"net"
	"sync"
	"testing"
)

const (
	basePort  = 20000
	portRange = 30000
)

var (
	allocatedPorts = make(map[int]struct{})
	portMutex      sync.Mutex
)

// AllocateUniquePort returns a free localhost port that no other test of
// the process has been handed
func AllocateUniquePort(t *testing.T) int {
	t.Helper()

	portMutex.Lock()
	defer portMutex.Unlock()

	for i := 0; i < 10; i++ {
		port := basePort + mrand.Intn(portRange)
		if _, taken := allocatedPorts[port]; taken {
			continue
		}

		lis, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		if err := lis.Close(); err != nil {
			continue
		}

		allocatedPorts[port] = struct{}{}

		return port
	}

	t.Fatalf("failed to find an available port in range %d-%d", basePort, basePort+portRange)

	return 0
}

// AllocateListenAddress is AllocateUniquePort as a host:port listener address
func AllocateListenAddress(t *testing.T) string {
	return fmt.Sprintf("127.0.0.1:%d", AllocateUniquePort(t))
}
