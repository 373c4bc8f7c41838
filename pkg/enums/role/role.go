package role

import (
	"strings"
)

type Role struct {
	Name string
}

func (r Role) Code() string {
	return r.Name
}

func (r Role) Label() string {
	if len(r.Name) == 0 {
		return ""
	}
	return strings.ToUpper(r.Name[:1]) + r.Name[1:]
}

type Enum struct {
	Admin    Role
	Staff    Role
	Customer Role
}

var Roles = Enum{
	Admin:    Role{Name: "admin"},
	Staff:    Role{Name: "staff"},
	Customer: Role{Name: "customer"},
}

var All = []Role{
	Roles.Admin,
	Roles.Staff,
	Roles.Customer,
}

// ByName returns the role for a given name, or nil if not found
func ByName(name string) *Role {
	for _, r := range All {
		if r.Name == name {
			return &r
		}
	}
	return nil
}

// Normalize maps an unknown or empty role to customer, the least privileged one.
func Normalize(name string) string {
	if r := ByName(strings.ToLower(strings.TrimSpace(name))); r != nil {
		return r.Name
	}
	return Roles.Customer.Name
}
