// Package mock holds the service, interceptor and constructor finder fixtures
// shared by the package tests.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/centraunit/autoreg/intercept"
)

var lastID atomic.Int64

// NextID returns a process-unique instance id.
func NextID() int64 {
	return lastID.Add(1)
}

// Core interfaces
type Repository interface {
	Find(id string) (string, error)
}

type Notifier interface {
	Notify(msg string) error
}

type Auditor interface {
	Audit(event string)
}

// Undeclared is implemented by several fixtures but never declared in a universe.
type Undeclared interface {
	Undeclared()
}

// MemoryRepository is a Repository with lifecycle hooks.
type MemoryRepository struct {
	ID       int64
	data     map[string]string
	booted   bool
	shutdown bool
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{ID: NextID(), data: map[string]string{"1": "alice"}}
}

func (m *MemoryRepository) Find(id string) (string, error) {
	v, ok := m.data[id]
	if !ok {
		return "", fmt.Errorf("record %s not found", id)
	}
	return v, nil
}

func (m *MemoryRepository) OnBoot(ctx context.Context) error {
	m.booted = true
	return nil
}

func (m *MemoryRepository) OnShutdown(ctx context.Context) error {
	m.shutdown = true
	return nil
}

func (m *MemoryRepository) IsBooted() bool   { return m.booted }
func (m *MemoryRepository) IsShutdown() bool { return m.shutdown }

// EmailNotifier has two constructors; the one taking a Repository is preferred when
// a Repository is registered.
type EmailNotifier struct {
	ID   int64
	Repo Repository
	Sent []string
}

func NewEmailNotifier(repo Repository) *EmailNotifier {
	return &EmailNotifier{ID: NextID(), Repo: repo}
}

func NewStandaloneEmailNotifier() *EmailNotifier {
	return &EmailNotifier{ID: NextID()}
}

func (n *EmailNotifier) Notify(msg string) error {
	if msg == "" {
		return errors.New("empty message")
	}
	n.Sent = append(n.Sent, msg)
	return nil
}

// AuditService implements both Notifier and Auditor.
type AuditService struct {
	ID     int64
	Chain  []intercept.Interceptor
	mu     sync.Mutex
	events []string
}

func NewAuditService() *AuditService {
	return &AuditService{ID: NextID()}
}

func (a *AuditService) Notify(msg string) error {
	a.Audit("notify:" + msg)
	return nil
}

func (a *AuditService) Audit(event string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *AuditService) Events() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.events...)
}

func (a *AuditService) Undeclared() {}

// Plain implements no interface.
type Plain struct {
	ID int64
}

func NewPlain() *Plain {
	return &Plain{ID: NextID()}
}

// FailingService fails its boot hook.
type FailingService struct{}

func NewFailingService() *FailingService {
	return &FailingService{}
}

func (f *FailingService) Notify(string) error { return nil }

func (f *FailingService) OnBoot(ctx context.Context) error {
	return fmt.Errorf("simulated boot failure")
}

// Box is a generic fixture standing in for an open generic definition.
type Box[T any] struct {
	Value T
}

func NewBox[T any]() *Box[T] {
	return &Box[T]{}
}

func (b *Box[T]) Find(id string) (string, error) {
	return fmt.Sprint(b.Value), nil
}

// Circular dependency test types
type CircularService1 interface {
	Service2() CircularService2
}

type CircularService2 interface {
	Service1() CircularService1
}

type CircularImpl1 struct {
	svc2 CircularService2
}

func NewCircularImpl1(svc2 CircularService2) *CircularImpl1 {
	return &CircularImpl1{svc2: svc2}
}

func (i *CircularImpl1) Service2() CircularService2 { return i.svc2 }

type CircularImpl2 struct {
	svc1 CircularService1
}

func NewCircularImpl2(svc1 CircularService1) *CircularImpl2 {
	return &CircularImpl2{svc1: svc1}
}

func (i *CircularImpl2) Service1() CircularService1 { return i.svc1 }

// Session is an owner type for per-owned registrations.
type Session struct {
	ID int64
}

func NewSession() *Session {
	return &Session{ID: NextID()}
}

// UnitOfWork is shared within an owned Session scope.
type UnitOfWork struct {
	ID int64
}

func NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{ID: NextID()}
}
