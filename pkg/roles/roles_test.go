package roles

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		value   string
		want    Role
		wantErr bool
	}{
		{value: "client", want: RoleClient},
		{value: "admin", want: RoleAdmin},
		{value: "super_admin", want: RoleSuperAdmin},
		{value: "", wantErr: true},
		{value: "Admin", wantErr: true},
		{value: "root", wantErr: true},
	}

	for _, tc := range cases {
		got, err := Parse(tc.value)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error, got %q", tc.value, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tc.value, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestOrdering(t *testing.T) {
	if !RoleSuperAdmin.AtLeast(RoleAdmin) || !RoleAdmin.AtLeast(RoleClient) {
		t.Fatal("expected super_admin >= admin >= client")
	}
	if RoleClient.AtLeast(RoleAdmin) {
		t.Fatal("client must not clear the admin minimum")
	}
	if Role("unknown").AtLeast(RoleClient) {
		t.Fatal("unknown roles must sit below every minimum")
	}
}

func TestAllows(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleClient, ActionCreateProduct, true},
		{RoleClient, ActionManageProduct, false},
		{RoleClient, ActionListAccounts, false},
		{RoleAdmin, ActionManageProduct, true},
		{RoleAdmin, ActionPurgeCatalog, true},
		{RoleAdmin, ActionChangeRole, false},
		{RoleSuperAdmin, ActionChangeRole, true},
		{RoleSuperAdmin, ActionManageProduct, true},
		{RoleClient, Action("unknown"), false},
	}

	for _, tc := range cases {
		if got := tc.role.Allows(tc.action); got != tc.want {
			t.Errorf("%s.Allows(%s) = %v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}

func TestAssignableTarget(t *testing.T) {
	if !AssignableTarget(RoleClient) || !AssignableTarget(RoleAdmin) {
		t.Fatal("client and admin must be assignable targets")
	}
	if AssignableTarget(RoleSuperAdmin) {
		t.Fatal("super_admin must never be an assignable target")
	}
	if AssignableTarget(Role("moderator")) {
		t.Fatal("unknown roles must not be assignable targets")
	}
}
