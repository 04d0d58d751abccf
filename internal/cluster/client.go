// Package cluster builds Kubernetes clients from a cluster connection
// descriptor.
package cluster

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/u2takey/go-utils/filesystem/homedir"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/rootline/clusterwatch/internal/types"
)

// NewClientset builds a typed clientset for the connection. Explicit
// endpoint+token wins; otherwise in-cluster config, then the local
// kubeconfig as a development fallback.
func NewClientset(conn types.ClusterConnection) (kubernetes.Interface, error) {
	cfg, err := restConfig(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}
	return clientset, nil
}

func restConfig(conn types.ClusterConnection) (*rest.Config, error) {
	if conn.APIServer != "" && conn.BearerToken != "" {
		return &rest.Config{
			Host:        conn.APIServer,
			BearerToken: conn.BearerToken,
			TLSClientConfig: rest.TLSClientConfig{
				Insecure: conn.InsecureTLS,
			},
		}, nil
	}

	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}

	var kubeconfig string
	if home := homedir.HomeDir(); home != "" {
		kubeconfig = filepath.Join(home, ".kube", "config")
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfig)
}

// TestConnection verifies the API server is reachable with the given
// credentials before any watch session starts.
func TestConnection(ctx context.Context, client kubernetes.Interface) error {
	if _, err := client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{Limit: 1}); err != nil {
		return fmt.Errorf("failed to connect to Kubernetes API: %w", err)
	}
	return nil
}
