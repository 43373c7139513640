package models

import "fmt"

// Role is a closed enumeration with a total order. Higher values carry
// every permission of lower ones.
type Role int

const (
	RoleClientViewer Role = iota + 1
	RoleStaff
	RoleTenantAdmin
	RoleSuperAdmin
)

var roleNames = map[Role]string{
	RoleClientViewer: "client_viewer",
	RoleStaff:        "staff",
	RoleTenantAdmin:  "tenant_admin",
	RoleSuperAdmin:   "super_admin",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// AtLeast reports whether r carries the permissions of min.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(`"` + r.String() + `"`), nil
}

func (r *Role) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("role must be a JSON string")
	}
	role, err := ParseRole(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*r = role
	return nil
}
