package enums

// UserRole is the actor role carried in access tokens.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleVendor   UserRole = "vendor"
	UserRoleAdmin    UserRole = "admin"
)

var userRoles = []UserRole{UserRoleCustomer, UserRoleVendor, UserRoleAdmin}

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return oneOf(r, userRoles) }

func ParseUserRole(value string) (UserRole, error) {
	return parse(value, "user role", userRoles)
}
