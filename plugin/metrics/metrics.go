// Package metrics provides a plugin that counts keep document writes with
// Prometheus.
package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/keep/plugin"
	"github.com/xraph/keep/role"
	"github.com/xraph/keep/user"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin      = (*Plugin)(nil)
	_ plugin.UserCreated = (*Plugin)(nil)
	_ plugin.UserUpdated = (*Plugin)(nil)
	_ plugin.UserDeleted = (*Plugin)(nil)
	_ plugin.RoleCreated = (*Plugin)(nil)
	_ plugin.RoleUpdated = (*Plugin)(nil)
	_ plugin.RoleDeleted = (*Plugin)(nil)
	_ plugin.WriteFailed = (*Plugin)(nil)
)

// Plugin counts successful writes by document kind and operation, and
// failed results by operation and code.
type Plugin struct {
	writes   *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// New creates the plugin and registers its collectors on reg (or the
// default registerer if nil). Collectors already registered by an earlier
// plugin are reused.
func New(reg prometheus.Registerer) (*Plugin, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keep",
		Name:      "document_writes_total",
		Help:      "Successful document writes by kind and operation",
	}, []string{"kind", "op"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keep",
		Name:      "write_failures_total",
		Help:      "Writes that returned a failed result, by operation and code",
	}, []string{"op", "code"})

	var err error
	if writes, err = register(reg, writes); err != nil {
		return nil, err
	}
	if failures, err = register(reg, failures); err != nil {
		return nil, err
	}
	return &Plugin{writes: writes, failures: failures}, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (p *Plugin) Name() string { return "keep-metrics" }

func (p *Plugin) OnUserCreated(_ context.Context, _ *user.User) error {
	p.writes.WithLabelValues(user.DocumentType, "create").Inc()
	return nil
}

func (p *Plugin) OnUserUpdated(_ context.Context, _ *user.User) error {
	p.writes.WithLabelValues(user.DocumentType, "update").Inc()
	return nil
}

func (p *Plugin) OnUserDeleted(_ context.Context, _ string) error {
	p.writes.WithLabelValues(user.DocumentType, "delete").Inc()
	return nil
}

func (p *Plugin) OnRoleCreated(_ context.Context, _ *role.Role) error {
	p.writes.WithLabelValues(role.DocumentType, "create").Inc()
	return nil
}

func (p *Plugin) OnRoleUpdated(_ context.Context, _ *role.Role) error {
	p.writes.WithLabelValues(role.DocumentType, "update").Inc()
	return nil
}

func (p *Plugin) OnRoleDeleted(_ context.Context, _ string) error {
	p.writes.WithLabelValues(role.DocumentType, "delete").Inc()
	return nil
}

func (p *Plugin) OnWriteFailed(_ context.Context, op, code string) error {
	p.failures.WithLabelValues(op, code).Inc()
	return nil
}
