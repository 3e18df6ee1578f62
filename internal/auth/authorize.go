package auth

// HasRole reports whether the identity carries one of roles.
func (id Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

// RequireRole fails with ErrUnauthenticated for an anonymous caller and ErrForbidden when the
// caller holds none of roles.
func RequireRole(id Identity, roles ...Role) error {
	if id.IsZero() {
		return ErrUnauthenticated
	}
	if !id.HasRole(roles...) {
		return ErrForbidden
	}
	return nil
}
