package config

import (
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker reports whether /.dockerenv exists. The result is cached.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolvedHost returns the warehouse host to dial. Inside Docker a loopback host
// refers to the container itself, so it is rewritten to host.docker.internal.
func (c *WarehouseConfig) ResolvedHost() string {
	return resolveHostForDocker(c.Host, IsRunningInDocker())
}

func resolveHostForDocker(host string, inDocker bool) string {
	if !inDocker {
		return host
	}
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}
