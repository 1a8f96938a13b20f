package domain

// dashboardRoutes maps each role to its landing route in the web client.
var dashboardRoutes = map[Role]string{
	RoleSuperAdmin:          "/super-admin/dashboard",
	RoleAdmin:               "/admin/dashboard",
	RoleAccountingFirmOwner: "/firm-owner/dashboard",
	RoleAccountant:          "/accountant/dashboard",
}

// DashboardRoute returns the landing route for r, or "" for an unknown role.
func (r Role) DashboardRoute() string {
	return dashboardRoutes[r]
}
