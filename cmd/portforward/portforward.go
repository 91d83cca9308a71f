package portforward

import (
	"fmt"
	"sync"
	"time"

	"github.com/stackvista/index-backup-cli/internal/k8s"
	"github.com/stackvista/index-backup-cli/internal/logger"
)

// defaultReadyTimeout bounds how long to wait for the tunnel to come up
const defaultReadyTimeout = 30 * time.Second

// Conn is an established port-forward to an in-cluster service
type Conn struct {
	StopChan  chan struct{}
	ReadyChan <-chan struct{}
	LocalPort int

	closeOnce sync.Once
}

// BaseURL is the local address the forwarded service answers on
func (c *Conn) BaseURL() string {
	return fmt.Sprintf("http://localhost:%d", c.LocalPort)
}

// Close tears the port-forward down. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.StopChan)
	})
}

// SetupPortForward establishes a port-forward to a Kubernetes service and waits for it to be ready.
// The caller is responsible for calling Close when done.
func SetupPortForward(
	k8sClient k8s.Interface,
	namespace string,
	serviceName string,
	localPort int,
	remotePort int,
	log *logger.Logger,
) (*Conn, error) {
	return setupPortForward(k8sClient, namespace, serviceName, localPort, remotePort, defaultReadyTimeout, log)
}

func setupPortForward(
	k8sClient k8s.Interface,
	namespace, serviceName string,
	localPort, remotePort int,
	readyTimeout time.Duration,
	log *logger.Logger,
) (*Conn, error) {
	log.Infof("Setting up port-forward to %s:%d in namespace %s...", serviceName, remotePort, namespace)

	stopChan, readyChan, err := k8sClient.PortForwardService(namespace, serviceName, localPort, remotePort)
	if err != nil {
		return nil, fmt.Errorf("failed to setup port-forward: %w", err)
	}

	select {
	case <-readyChan:
	case <-time.After(readyTimeout):
		close(stopChan)
		return nil, fmt.Errorf("port-forward to %s not ready after %s", serviceName, readyTimeout)
	}

	log.Successf("Port-forward established successfully")

	return &Conn{
		StopChan:  stopChan,
		ReadyChan: readyChan,
		LocalPort: localPort,
	}, nil
}
