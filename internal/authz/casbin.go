package authz

import (
	"log"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Roles known to the enforcer.
const (
	RoleAdmin     = "admin"
	RoleAnonymous = "anonymous"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// policies: admin owns the whole API surface; anonymous gets the public
// retrieval routes, login and health.
var policies = [][]string{
	{RoleAdmin, "/api/*", "*"},
	{RoleAdmin, "/uploads/*", "GET"},
	{RoleAnonymous, "/api/pdf/*", "GET"},
	{RoleAnonymous, "/api/qr/*", "GET"},
	{RoleAnonymous, "/api/file-info/*", "GET"},
	{RoleAnonymous, "/api/auth/login", "POST"},
	{RoleAnonymous, "/api/health", "GET"},
	{RoleAnonymous, "/uploads/*", "GET"},
}

var (
	enforcer *casbin.Enforcer
	once     sync.Once
)

// GetEnforcer returns a singleton Casbin enforcer with the static role
// policies loaded.
func GetEnforcer() *casbin.Enforcer {
	once.Do(func() {
		m, err := model.NewModelFromString(modelText)
		if err != nil {
			log.Printf("casbin: failed to load model: %v", err)
			return
		}
		e, err := casbin.NewEnforcer(m)
		if err != nil {
			log.Printf("casbin: failed to create enforcer: %v", err)
			return
		}
		for _, p := range policies {
			if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
				log.Printf("casbin: failed to add policy %v: %v", p, err)
			}
		}
		enforcer = e
	})
	return enforcer
}

// Allowed reports whether role may perform method on path. Fails closed when
// the enforcer could not be built.
func Allowed(role, path, method string) bool {
	e := GetEnforcer()
	if e == nil {
		return false
	}
	ok, err := e.Enforce(role, path, method)
	if err != nil {
		return false
	}
	return ok
}
