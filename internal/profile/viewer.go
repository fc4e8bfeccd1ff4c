package profile

// Viewer is the resolved caller of a request. Handlers branch on it once per page.
type Viewer struct {
	Profile
}

func (v Viewer) IsStudent() bool { return v.Role == RoleStudent }

func (v Viewer) IsAdmin() bool { return v.Role == RoleAdmin }

// IsStaff reports faculty or admin.
func (v Viewer) IsStaff() bool { return v.Role == RoleFaculty || v.Role == RoleAdmin }

func (v Viewer) CanAuthor() bool { return v.IsStaff() }

func (v Viewer) CanGrade() bool { return v.IsStaff() }

// CanResolveLeave is global to staff; approval is not scoped by department.
func (v Viewer) CanResolveLeave() bool { return v.IsStaff() }

func (v Viewer) CanManageCanteen() bool { return v.IsAdmin() }

func (v Viewer) CanMarkAttendance() bool { return v.IsStudent() }

// NavItem is one entry of the role-specific navigation.
type NavItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Href  string `json:"href"`
}

var commonNav = []NavItem{
	{ID: "dashboard", Label: "Dashboard", Href: "/dashboard"},
	{ID: "leaderboard", Label: "Leaderboard", Href: "/leaderboard"},
	{ID: "assignments", Label: "Assignments", Href: "/assignments"},
	{ID: "canteen", Label: "Canteen", Href: "/canteen"},
	{ID: "announcements", Label: "Announcements", Href: "/announcements"},
}

var roleNav = map[Role][]NavItem{
	RoleStudent: {
		{ID: "leave", Label: "Leave Requests", Href: "/leave"},
		{ID: "attendance", Label: "My Attendance", Href: "/attendance"},
	},
	RoleFaculty: {
		{ID: "students", Label: "Students", Href: "/students"},
		{ID: "leave", Label: "Leave Management", Href: "/leave"},
		{ID: "attendance", Label: "Attendance", Href: "/attendance"},
	},
	RoleAdmin: {
		{ID: "users", Label: "User Management", Href: "/users"},
		{ID: "leave", Label: "Leave Management", Href: "/leave"},
		{ID: "attendance", Label: "Attendance", Href: "/attendance"},
	},
}

// Navigation returns the menu for the viewer's role.
func (v Viewer) Navigation() []NavItem {
	out := make([]NavItem, 0, len(commonNav)+3)
	out = append(out, commonNav...)
	return append(out, roleNav[v.Role]...)
}
