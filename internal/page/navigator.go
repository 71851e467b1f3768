package page

import (
	"sync"

	"go.uber.org/zap"
)

// LogNavigator records navigation requests instead of performing them. It
// is the default for headless hosts.
type LogNavigator struct {
	Logger *zap.Logger

	mu      sync.Mutex
	visited []string
	reloads int
}

func (n *LogNavigator) Navigate(uri string) {
	n.mu.Lock()
	n.visited = append(n.visited, uri)
	n.mu.Unlock()
	n.Logger.Info("navigate", zap.String("uri", uri))
}

func (n *LogNavigator) Reload() {
	n.mu.Lock()
	n.reloads++
	n.mu.Unlock()
	n.Logger.Info("reload")
}

// Visited returns every URI navigated to so far.
func (n *LogNavigator) Visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.visited...)
}

// Reloads returns the number of reload requests.
func (n *LogNavigator) Reloads() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reloads
}
