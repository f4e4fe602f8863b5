package permissions

func init() {
	perms := []*Permission{
		{
			ID:          "user.view",
			Module:      "core",
			Description: "View users",
		},
		{
			ID:          "user.create",
			Module:      "core",
			DependsOn:   []string{"user.view"},
			Description: "Create new users",
		},
		{
			ID:          "user.edit",
			Module:      "core",
			DependsOn:   []string{"user.view"},
			Description: "Edit existing users",
		},
		{
			ID:          "team.view",
			Module:      "core",
			Description: "View teams and their hierarchy",
		},
		{
			ID:          "team.manage",
			Module:      "core",
			DependsOn:   []string{"team.view"},
			Description: "Create, move, and delete teams and manage membership",
		},
		{
			ID:          "range.view",
			Module:      "ranges",
			DependsOn:   []string{"team.view"},
			Description: "View number ranges",
		},
		{
			ID:          "range.create",
			Module:      "ranges",
			DependsOn:   []string{"range.view"},
			Description: "Allocate new number ranges",
		},
		{
			ID:          "range.edit",
			Module:      "ranges",
			DependsOn:   []string{"range.view"},
			Description: "Edit existing number ranges",
		},
		{
			ID:          "range.delete",
			Module:      "ranges",
			DependsOn:   []string{"range.view", "range.edit"},
			Description: "Delete number ranges",
		},
		{
			ID:          "permission.view",
			Module:      "core",
			Description: "View roles and permissions",
		},
		{
			ID:          "permission.manage",
			Module:      "core",
			DependsOn:   []string{"permission.view"},
			Implies:     []string{"team.manage"},
			Description: "Manage roles and permission assignments",
		},
		{
			ID:          "audit.view",
			Module:      "core",
			Description: "View audit logs",
		},
	}

	for _, perm := range perms {
		if err := Register(perm); err != nil {
			panic(err)
		}
	}
}
