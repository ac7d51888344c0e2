package enums

// UserRole is carried in access tokens and checked by route guards.
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
	RoleDriver   UserRole = "driver"
)

var validRoles = []UserRole{RoleCustomer, RoleAdmin, RoleDriver}

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return containsEnum(validRoles, r) }

func ParseUserRole(value string) (UserRole, error) {
	return parseEnum(validRoles, "role", value)
}
