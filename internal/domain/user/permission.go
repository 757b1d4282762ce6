package user

// Resource is a capability target.
type Resource string

// Action is an operation on a Resource.
type Action string

const (
	ResourceTimeclock      Resource = "timeclock"
	ResourceTimeclockRules Resource = "timeclock_rules"
)

const (
	ActionClock      Action = "clock"       // clock in/out for self
	ActionViewOwn    Action = "view_own"    // read own entries and alerts
	ActionViewTeam   Action = "view_team"   // read entries of assigned departments
	ActionViewAll    Action = "view_all"    // read entries of every department
	ActionApprove    Action = "approve"     // approve/reject within assigned departments
	ActionApproveAll Action = "approve_all" // approve/reject in any department
	ActionManage     Action = "manage"      // change rules configuration
)

// Capability is one resource/action grant.
type Capability struct {
	Resource Resource
	Action   Action
}

func (c Capability) String() string {
	return string(c.Resource) + "." + string(c.Action)
}

// RoleCapabilities maps roles to their grants
var RoleCapabilities = map[Role][]Capability{
	RoleOwner: {
		{ResourceTimeclock, ActionClock},
		{ResourceTimeclock, ActionViewOwn},
		{ResourceTimeclock, ActionViewTeam},
		{ResourceTimeclock, ActionViewAll},
		{ResourceTimeclock, ActionApprove},
		{ResourceTimeclock, ActionApproveAll},
		{ResourceTimeclockRules, ActionViewOwn},
		{ResourceTimeclockRules, ActionManage},
	},
	RoleManager: {
		{ResourceTimeclock, ActionClock},
		{ResourceTimeclock, ActionViewOwn},
		{ResourceTimeclock, ActionViewTeam},
		{ResourceTimeclock, ActionApprove},
		{ResourceTimeclockRules, ActionViewOwn},
	},
	RoleEmployee: {
		{ResourceTimeclock, ActionClock},
		{ResourceTimeclock, ActionViewOwn},
	},
}

// RoleHasCapability checks the static grant table.
func RoleHasCapability(role Role, resource Resource, action Action) bool {
	for _, c := range RoleCapabilities[role] {
		if c.Resource == resource && c.Action == action {
			return true
		}
	}
	return false
}
