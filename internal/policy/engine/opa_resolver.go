package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"social-tippster/backend/internal/policy/domain"
)

const resultQuery = "data.tippster.session_expiry.result"

// DefaultRegoPolicy mirrors the built-in role table so operators can start from it.
const DefaultRegoPolicy = `package tippster.session_expiry

policies := {
	"user": {"idle_timeout_minutes": 30, "absolute_timeout_hours": 24, "remember_me_days": 7, "security_level": "standard"},
	"moderator": {"idle_timeout_minutes": 20, "absolute_timeout_hours": 12, "remember_me_days": 0, "security_level": "elevated"},
	"admin": {"idle_timeout_minutes": 15, "absolute_timeout_hours": 8, "remember_me_days": 0, "security_level": "high"}
}

default base := {"idle_timeout_minutes": 30, "absolute_timeout_hours": 24, "remember_me_days": 7, "security_level": "standard"}

base := policies[input.role]

default extended := false

extended if {
	input.remember_me
	base.security_level == "standard"
	base.remember_me_days * 24 > base.absolute_timeout_hours
}

absolute_hours := base.remember_me_days * 24 if extended

absolute_hours := base.absolute_timeout_hours if not extended

result := {
	"idle_timeout_minutes": base.idle_timeout_minutes,
	"absolute_timeout_hours": absolute_hours,
	"remember_me_days": base.remember_me_days,
	"security_level": base.security_level
}
`

// OPAResolver evaluates the session expiry policy with OPA Rego. Any evaluation error or
// malformed result falls back to the built-in table.
type OPAResolver struct {
	query rego.PreparedEvalQuery
}

// NewOPAResolver compiles module (DefaultRegoPolicy when empty) and prepares the result query.
func NewOPAResolver(ctx context.Context, module string) (*OPAResolver, error) {
	if strings.TrimSpace(module) == "" {
		module = DefaultRegoPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"session_expiry.rego": module})
	if err != nil {
		return nil, fmt.Errorf("compile session policy: %w", err)
	}
	pq, err := rego.New(
		rego.Query(resultQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare session policy: %w", err)
	}
	return &OPAResolver{query: pq}, nil
}

// LoadModule resolves SESSION_POLICY_REGO: "file:<path>" reads the file, anything else is inline Rego.
func LoadModule(value string) (string, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "file:") {
		b, err := os.ReadFile(strings.TrimPrefix(value, "file:"))
		if err != nil {
			return "", fmt.Errorf("read session policy: %w", err)
		}
		return string(b), nil
	}
	return value, nil
}

// Resolve evaluates the policy for role and rememberMe.
func (r *OPAResolver) Resolve(ctx context.Context, role string, rememberMe bool) domain.SessionExpiryPolicy {
	p, err := r.evaluate(ctx, role, rememberMe)
	if err != nil {
		log.Printf("policy: session expiry evaluation failed for role %q: %v, using defaults", role, err)
		return ResolvePolicy(role, rememberMe)
	}
	return p
}

// HealthCheck verifies the prepared query evaluates to a valid policy for a minimal input.
func (r *OPAResolver) HealthCheck(ctx context.Context) error {
	_, err := r.evaluate(ctx, fallbackRole, false)
	return err
}

func (r *OPAResolver) evaluate(ctx context.Context, role string, rememberMe bool) (domain.SessionExpiryPolicy, error) {
	input := map[string]interface{}{
		"role":        role,
		"remember_me": rememberMe,
	}
	rs, err := r.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.SessionExpiryPolicy{}, fmt.Errorf("eval: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return domain.SessionExpiryPolicy{}, fmt.Errorf("policy query returned no result")
	}
	obj, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return domain.SessionExpiryPolicy{}, fmt.Errorf("policy result is %T, want object", rs[0].Expressions[0].Value)
	}
	p := domain.SessionExpiryPolicy{
		IdleTimeoutMinutes:   toInt(obj["idle_timeout_minutes"]),
		AbsoluteTimeoutHours: toInt(obj["absolute_timeout_hours"]),
		RememberMeDays:       toInt(obj["remember_me_days"]),
	}
	if s, ok := obj["security_level"].(string); ok {
		p.SecurityLevel = domain.SecurityLevel(s)
	}
	if !p.Valid() {
		return domain.SessionExpiryPolicy{}, fmt.Errorf("policy result %+v is invalid", p)
	}
	return p, nil
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
	case float64:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	}
	return 0
}
