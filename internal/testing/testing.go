// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/desertthunder/relo/internal/models"
	"github.com/desertthunder/relo/internal/shared"
)

// MockStore is an in-memory test double for [services.Store]. Namespaces map
// container names to entity slices. Zero value is usable; methods are safe
// for concurrent use.
type MockStore struct {
	mu         sync.Mutex
	namespaces map[string]map[string][]models.Entity

	PingErr      error // returned by Ping when set
	WriteErr     error // returned by every write when set
	FailWrites   int   // number of writes to fail before succeeding
	Reconnected  int   // count of Reconnect calls
	WritesIssued int   // count of write attempts
}

// NewMockStore builds a store seeded with the given entities, deriving
// namespaces and containers from their fields.
func NewMockStore(entities ...models.Entity) *MockStore {
	m := &MockStore{namespaces: map[string]map[string][]models.Entity{}}
	for _, e := range entities {
		m.seed(e)
	}
	return m
}

func (m *MockStore) seed(e models.Entity) {
	ns, ok := m.namespaces[e.Namespace]
	if !ok {
		ns = map[string][]models.Entity{}
		m.namespaces[e.Namespace] = ns
	}
	ns[e.Container] = append(ns[e.Container], e)
}

// AddContainer declares an empty container so stats and lookups see it.
func (m *MockStore) AddContainer(namespace, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = map[string][]models.Entity{}
		m.namespaces[namespace] = ns
	}
	if _, ok := ns[name]; !ok {
		ns[name] = nil
	}
}

func (m *MockStore) Ping(ctx context.Context) error { return m.PingErr }

func (m *MockStore) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reconnected++
	m.PingErr = nil
	return nil
}

func (m *MockStore) ListContainers(ctx context.Context, namespace string) ([]models.Container, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Container
	for name := range m.namespaces[namespace] {
		out = append(out, models.Container{Name: name, Namespace: namespace, Custom: true})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockStore) ContainerStats(ctx context.Context, namespace string) ([]models.ContainerStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ContainerStat
	for name, entities := range m.namespaces[namespace] {
		out = append(out, models.ContainerStat{Name: name, EntityCount: len(entities)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockStore) ListEntities(ctx context.Context, namespace, container string) ([]models.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Entity
	for name, entities := range m.namespaces[namespace] {
		if container != "" && name != container {
			continue
		}
		out = append(out, entities...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockStore) GetEntity(ctx context.Context, namespace, name string) (*models.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entities := range m.namespaces[namespace] {
		for _, e := range entities {
			if e.Name == name {
				found := e
				return &found, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrEntityNotFound, name)
}

func (m *MockStore) Refs(ctx context.Context, namespace, entity string) ([]models.RefField, error) {
	e, err := m.GetEntity(ctx, namespace, entity)
	if err != nil {
		return nil, err
	}
	return e.Refs, nil
}

func (m *MockStore) CreateContainer(ctx context.Context, container models.Container) error {
	if err := m.writeGate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.namespaces[container.Namespace]
	if !ok {
		ns = map[string][]models.Entity{}
		m.namespaces[container.Namespace] = ns
	}
	if _, exists := ns[container.Name]; exists {
		return fmt.Errorf("container %s already exists", container.Name)
	}
	ns[container.Name] = nil
	return nil
}

func (m *MockStore) CreateEntity(ctx context.Context, entity models.Entity) error {
	if err := m.writeGate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seed(entity)
	return nil
}

func (m *MockStore) SetEntityContainer(ctx context.Context, namespace, name, container string) error {
	if err := m.writeGate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespaces[namespace]
	for from, entities := range ns {
		for i, e := range entities {
			if e.Name == name {
				ns[from] = append(entities[:i], entities[i+1:]...)
				e.Container = container
				ns[container] = append(ns[container], e)
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s", shared.ErrEntityNotFound, name)
}

func (m *MockStore) DeleteEntity(ctx context.Context, namespace, name string) error {
	if err := m.writeGate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespaces[namespace]
	for container, entities := range ns {
		for i, e := range entities {
			if e.Name == name {
				ns[container] = append(entities[:i], entities[i+1:]...)
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s", shared.ErrEntityNotFound, name)
}

func (m *MockStore) Name() string { return "mock" }

// writeGate applies WriteErr and FailWrites to a write attempt.
func (m *MockStore) writeGate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WritesIssued++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	if m.FailWrites > 0 {
		m.FailWrites--
		return errors.New("transient write failure")
	}
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
