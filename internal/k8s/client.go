// Package k8s provides the Kubernetes access the backup tool needs: a
// clientset for reading configuration and port-forwarding to an
// in-cluster Elasticsearch service.
package k8s

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/portforward"
	"k8s.io/client-go/transport/spdy"
)

// Client wraps the Kubernetes clientset
type Client struct {
	clientset  kubernetes.Interface
	restConfig *rest.Config
	debug      bool
}

// Clientset returns the underlying Kubernetes clientset
func (c *Client) Clientset() kubernetes.Interface {
	return c.clientset
}

// NewTestClient wraps an existing clientset, typically a fake one
func NewTestClient(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

// NewClient creates a new Kubernetes client
func NewClient(kubeconfigPath string, debug bool) (*Client, error) {
	if kubeconfigPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		kubeconfigPath = filepath.Join(home, ".kube", "config")
	}

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	return &Client{
		clientset:  clientset,
		restConfig: config,
		debug:      debug,
	}, nil
}

// PortForwardService forwards localPort to the pod port backing servicePort
// on a ready pod selected by the service
func (c *Client) PortForwardService(namespace, serviceName string, localPort, servicePort int) (chan struct{}, chan struct{}, error) {
	ctx := context.Background()

	svc, err := c.clientset.CoreV1().Services(namespace).Get(ctx, serviceName, metav1.GetOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get service: %w", err)
	}

	pod, err := c.findReadyPod(ctx, namespace, svc)
	if err != nil {
		return nil, nil, err
	}

	podPort, err := ResolveTargetPort(svc, pod, servicePort)
	if err != nil {
		return nil, nil, err
	}

	return c.PortForwardPod(namespace, pod.Name, localPort, podPort)
}

// findReadyPod returns a running pod behind the service, preferring one
// whose Ready condition is true
func (c *Client) findReadyPod(ctx context.Context, namespace string, svc *corev1.Service) (*corev1.Pod, error) {
	podList, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: metav1.FormatLabelSelector(&metav1.LabelSelector{
			MatchLabels: svc.Spec.Selector,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	if len(podList.Items) == 0 {
		return nil, fmt.Errorf("no pods found for service %s", svc.Name)
	}

	var running *corev1.Pod
	for i := range podList.Items {
		pod := &podList.Items[i]
		if pod.Status.Phase != corev1.PodRunning {
			continue
		}
		if isPodReady(pod) {
			return pod, nil
		}
		if running == nil {
			running = pod
		}
	}

	if running == nil {
		return nil, fmt.Errorf("no running pods found for service %s", svc.Name)
	}
	return running, nil
}

func isPodReady(pod *corev1.Pod) bool {
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

// ResolveTargetPort maps a service port to the container port on pod.
// Numeric target ports are used as-is, named ones are looked up in the
// pod's containers. A port not declared on the service is returned unchanged.
func ResolveTargetPort(svc *corev1.Service, pod *corev1.Pod, servicePort int) (int, error) {
	for _, p := range svc.Spec.Ports {
		if int(p.Port) != servicePort {
			continue
		}

		switch {
		case p.TargetPort.IntValue() > 0:
			return p.TargetPort.IntValue(), nil
		case p.TargetPort.StrVal != "":
			for _, container := range pod.Spec.Containers {
				for _, cp := range container.Ports {
					if cp.Name == p.TargetPort.StrVal {
						return int(cp.ContainerPort), nil
					}
				}
			}
			return 0, fmt.Errorf("named port %s not found on pod %s", p.TargetPort.StrVal, pod.Name)
		default:
			return servicePort, nil
		}
	}

	return servicePort, nil
}

// PortForwardPod creates a port-forward to a specific pod
func (c *Client) PortForwardPod(namespace, podName string, localPort, remotePort int) (chan struct{}, chan struct{}, error) {
	if c.restConfig == nil {
		return nil, nil, fmt.Errorf("port-forward requires a REST config")
	}

	target, err := url.Parse(c.restConfig.Host)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse host: %w", err)
	}
	target.Path = fmt.Sprintf("/api/v1/namespaces/%s/pods/%s/portforward", namespace, podName)

	transport, upgrader, err := spdy.RoundTripperFor(c.restConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create round tripper: %w", err)
	}

	dialer := spdy.NewDialer(upgrader, &http.Client{Transport: transport}, http.MethodPost, target)

	stopChan := make(chan struct{}, 1)
	readyChan := make(chan struct{})

	ports := []string{fmt.Sprintf("%d:%d", localPort, remotePort)}

	// Port-forward chatter is only interesting when debugging
	outWriter, errWriter := io.Discard, io.Discard
	if c.debug {
		outWriter = os.Stderr
		errWriter = os.Stderr
	}

	fw, err := portforward.New(dialer, ports, stopChan, readyChan, outWriter, errWriter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create port forwarder: %w", err)
	}

	go func() {
		if err := fw.ForwardPorts(); err != nil && c.debug {
			fmt.Fprintf(os.Stderr, "Port forward error: %v\n", err)
		}
	}()

	return stopChan, readyChan, nil
}
