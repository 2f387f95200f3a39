package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"enroll:create",
		"key:redeem",
		"token:activate",
		"quiz:submit",
		"quiz:view-own",
		"exam:submit",
		"exam:view-own",
		"eligibility:view",
		"certificate:get",
	},
	"org": {
		"course:create",
		"course:view",
		"course:delete_own",
		"chapter:create",
		"examconfig:set",
		"keys:issue",
		"tokens:issue",
	},
	"admin": {
		"*", // everything
	},
}
