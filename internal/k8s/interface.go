package k8s

import "k8s.io/client-go/kubernetes"

// Interface defines the contract for Kubernetes client operations
// This interface allows for easy mocking in tests
type Interface interface {
	// Clientset returns the underlying Kubernetes clientset
	Clientset() kubernetes.Interface

	// PortForwardService forwards localPort to remotePort on a running pod behind the service
	PortForwardService(namespace, serviceName string, localPort, remotePort int) (stopChan chan struct{}, readyChan chan struct{}, err error)
}

// Ensure *Client implements Interface
var _ Interface = (*Client)(nil)
