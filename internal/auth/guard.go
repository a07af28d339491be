package auth

import (
	"context"
	"errors"
)

// ErrExecForbidden is returned when a caller without the exec scope asks for
// its queries to be executed.
var ErrExecForbidden = errors.New("executing queries requires the " + ScopeExec + " scope")

// ExecGuard decides whether a caller may have its SQL executed against the
// evaluation database. The zero value allows every caller, which is the
// behavior with authentication disabled.
type ExecGuard struct {
	enforce bool
}

// NewExecGuard returns a guard that, when enforce is set, admits only admins
// and principals holding ScopeExec.
func NewExecGuard(enforce bool) ExecGuard {
	return ExecGuard{enforce: enforce}
}

// Check returns ErrExecForbidden when the caller in ctx may not execute SQL.
func (g ExecGuard) Check(ctx context.Context) error {
	if !g.enforce {
		return nil
	}
	p, ok := PrincipalFrom(ctx)
	if !ok || !(p.IsAdmin() || p.HasScope(ScopeExec)) {
		return ErrExecForbidden
	}
	return nil
}
