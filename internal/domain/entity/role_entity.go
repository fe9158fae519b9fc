package entity

// RoleUser is granted to every registered user.
// Roles are stored as plain strings on the user record; there is no
// role table and no policy evaluation beyond carrying them around.
const RoleUser = "user"

func DefaultRoles() []string {
	return []string{RoleUser}
}
