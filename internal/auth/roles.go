package auth

import "fmt"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Capability int

const (
	ManageProducts Capability = iota + 1
	ManageOrders
	ManageUsers
	ManageCoupons
	ModerateReviews
)

var capabilities = map[Role]map[Capability]bool{
	RoleUser: {},
	RoleAdmin: {
		ManageProducts:  true,
		ManageOrders:    true,
		ManageUsers:     true,
		ManageCoupons:   true,
		ModerateReviews: true,
	},
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := capabilities[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Can reports whether the role grants c. Unknown roles grant nothing.
func (r Role) Can(c Capability) bool {
	return capabilities[r][c]
}

func (r Role) Valid() bool {
	_, ok := capabilities[r]
	return ok
}
