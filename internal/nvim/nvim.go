package nvim

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neovim/go-client/nvim"
)

// ErrNoServer is returned by Dial when no address is given or advertised.
var ErrNoServer = errors.New("no running neovim instance")

// client is the subset of *nvim.Nvim used here.
type client interface {
	Buffers() ([]nvim.Buffer, error)
	BufferName(buffer nvim.Buffer) (string, error)
	Command(cmd string) error
	Close() error
}

// Manager reloads patched files in a running Neovim so open buffers pick up
// the new content instead of overwriting it on the next :w.
type Manager struct {
	nvim client
}

// Address returns the server address advertised in the environment.
func Address() string {
	if addr := os.Getenv("NVIM"); addr != "" {
		return addr
	}
	return os.Getenv("NVIM_LISTEN_ADDRESS")
}

// Dial connects to the instance at addr, or at Address() when addr is empty.
func Dial(addr string) (*Manager, error) {
	if addr == "" {
		addr = Address()
	}
	if addr == "" {
		return nil, ErrNoServer
	}
	v, err := nvim.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nvim at %s: %w", addr, err)
	}
	return &Manager{nvim: v}, nil
}

// Close disconnects from Neovim.
func (m *Manager) Close() {
	if m.nvim != nil {
		_ = m.nvim.Close()
	}
}

// processSequentially is a generic helper function to run a set of jobs sequentially.
func processSequentially[T any](
	items []T,
	processFn func(item T) (path string, success bool),
	progressCb func(int),
) (succeeded, failed []string) {
	for i, item := range items {
		path, success := processFn(item)
		if success {
			succeeded = append(succeeded, path)
		} else {
			failed = append(failed, path)
		}
		if progressCb != nil {
			progressCb(i + 1)
		}
	}
	return succeeded, failed
}

// ReloadFiles runs :checktime on every loaded buffer showing one of paths.
// Paths with no open buffer count as reloaded.
func (m *Manager) ReloadFiles(paths []string, progressCb func(int)) (reloaded, failed []string) {
	buffers, err := m.bufferIndex()
	if err != nil {
		return nil, paths
	}
	processFn := func(path string) (string, bool) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return path, false
		}
		buf, ok := buffers[abs]
		if !ok {
			return path, true
		}
		return path, m.nvim.Command(fmt.Sprintf("checktime %d", int(buf))) == nil
	}
	return processSequentially(paths, processFn, progressCb)
}

func (m *Manager) bufferIndex() (map[string]nvim.Buffer, error) {
	bufs, err := m.nvim.Buffers()
	if err != nil {
		return nil, fmt.Errorf("list buffers: %w", err)
	}
	index := make(map[string]nvim.Buffer, len(bufs))
	for _, b := range bufs {
		name, err := m.nvim.BufferName(b)
		if err != nil || name == "" {
			continue
		}
		index[filepath.Clean(name)] = b
	}
	return index, nil
}
