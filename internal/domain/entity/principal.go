package entity

// Principal is the resolved caller identity supplied by the auth layer
type Principal struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

// IsSuperadmin returns true if the principal bypasses role requirements
func (p Principal) IsSuperadmin() bool {
	return p.Role == RoleSuperadmin
}
