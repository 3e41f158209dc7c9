package ledger

import "fmt"

type Role string

const (
	RoleAdmin             Role = "admin"
	RoleNationalTreasurer Role = "national_treasurer"
	RoleFundDirector      Role = "fund_director"
	RolePastor            Role = "pastor"
	RoleTreasurer         Role = "treasurer"
	RoleSecretary         Role = "secretary"
)

var AllRoles = []Role{
	RoleAdmin,
	RoleNationalTreasurer,
	RoleFundDirector,
	RolePastor,
	RoleTreasurer,
	RoleSecretary,
}

// Elevated roles may edit or cancel events they did not create.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleNationalTreasurer
}

func ValidRole(r Role) bool {
	for _, v := range AllRoles {
		if v == r {
			return true
		}
	}
	return false
}

// Actor is the already-authenticated caller of a command.
type Actor struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	ChurchID *int64 `json:"church_id,omitempty"`
}

// Resource describes the ownership of the entity a command targets.
type Resource struct {
	ChurchID *int64
	OwnerID  string
}

type Action string

const (
	ActionManageFunds    Action = "manage_funds"
	ActionManageChurches Action = "manage_churches"
	ActionViewLedger     Action = "view_ledger"
	ActionPostManual     Action = "post_manual"
	ActionTransfer       Action = "transfer"
	ActionCreateEvent    Action = "create_event"
	ActionViewEvent      Action = "view_event"
	ActionEditEvent      Action = "edit_event"
	ActionSubmitEvent    Action = "submit_event"
	ActionCancelEvent    Action = "cancel_event"
	ActionApproveEvent   Action = "approve_event"
	ActionRejectEvent    Action = "reject_event"
	ActionRecordWorship  Action = "record_worship"
	ActionManageDonors   Action = "manage_donors"
	ActionViewChurch     Action = "view_church"
	ActionSubmitReport   Action = "submit_report"
)

// Scope says whether a role acts everywhere or only inside its church.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeChurch
)

// Ownership is the ownership rule applied after the role check.
type Ownership int

const (
	OwnerAny Ownership = iota
	OwnerOnly
	OwnerOrElevated
	NotOwner
)

// Permission is one row of the permission table.
type Permission struct {
	Roles     map[Role]Scope
	Ownership Ownership
}

var (
	elevatedOnly = map[Role]Scope{
		RoleAdmin:             ScopeGlobal,
		RoleNationalTreasurer: ScopeGlobal,
	}
	eventRoles = map[Role]Scope{
		RoleAdmin:             ScopeGlobal,
		RoleNationalTreasurer: ScopeGlobal,
		RoleFundDirector:      ScopeGlobal,
		RolePastor:            ScopeChurch,
		RoleTreasurer:         ScopeChurch,
	}
	churchStaff = map[Role]Scope{
		RoleAdmin:     ScopeGlobal,
		RolePastor:    ScopeChurch,
		RoleTreasurer: ScopeChurch,
		RoleSecretary: ScopeChurch,
	}
	everyone = map[Role]Scope{
		RoleAdmin:             ScopeGlobal,
		RoleNationalTreasurer: ScopeGlobal,
		RoleFundDirector:      ScopeGlobal,
		RolePastor:            ScopeGlobal,
		RoleTreasurer:         ScopeGlobal,
		RoleSecretary:         ScopeGlobal,
	}
)

// Permissions is the authorization table consulted by Authorize.
var Permissions = map[Action]Permission{
	ActionManageFunds:    {Roles: elevatedOnly},
	ActionManageChurches: {Roles: map[Role]Scope{RoleAdmin: ScopeGlobal}},
	ActionViewLedger:     {Roles: everyone},
	ActionPostManual:     {Roles: elevatedOnly},
	ActionTransfer:       {Roles: elevatedOnly},
	ActionCreateEvent:    {Roles: eventRoles},
	ActionViewEvent: {Roles: map[Role]Scope{
		RoleAdmin:             ScopeGlobal,
		RoleNationalTreasurer: ScopeGlobal,
		RoleFundDirector:      ScopeGlobal,
		RolePastor:            ScopeChurch,
		RoleTreasurer:         ScopeChurch,
		RoleSecretary:         ScopeChurch,
	}},
	ActionEditEvent:     {Roles: eventRoles, Ownership: OwnerOrElevated},
	ActionSubmitEvent:   {Roles: eventRoles, Ownership: OwnerOnly},
	ActionCancelEvent:   {Roles: eventRoles, Ownership: OwnerOrElevated},
	ActionApproveEvent:  {Roles: elevatedOnly, Ownership: NotOwner},
	ActionRejectEvent:   {Roles: elevatedOnly, Ownership: NotOwner},
	ActionRecordWorship: {Roles: churchStaff},
	ActionManageDonors:  {Roles: churchStaff},
	ActionViewChurch: {Roles: map[Role]Scope{
		RoleAdmin:             ScopeGlobal,
		RoleNationalTreasurer: ScopeGlobal,
		RoleFundDirector:      ScopeGlobal,
		RolePastor:            ScopeChurch,
		RoleTreasurer:         ScopeChurch,
		RoleSecretary:         ScopeChurch,
	}},
	ActionSubmitReport: {Roles: map[Role]Scope{
		RoleAdmin:     ScopeGlobal,
		RolePastor:    ScopeChurch,
		RoleTreasurer: ScopeChurch,
	}},
}

// Authorize is the single authorization check every command runs
// before touching the database.
func Authorize(a Actor, action Action, res Resource) error {
	if a.ID == "" {
		return Forbidden("actor identity is required")
	}
	perm, ok := Permissions[action]
	if !ok {
		return Forbidden("unknown action %q", action)
	}
	scope, ok := perm.Roles[a.Role]
	if !ok {
		return Forbidden("role %q may not %s", a.Role, action)
	}
	if scope == ScopeChurch {
		if a.ChurchID == nil {
			return Forbidden("role %q requires a church assignment", a.Role)
		}
		if res.ChurchID == nil || *res.ChurchID != *a.ChurchID {
			return Forbidden("role %q is limited to church %d", a.Role, *a.ChurchID)
		}
	}
	switch perm.Ownership {
	case OwnerOnly:
		if res.OwnerID != a.ID {
			return Forbidden("only the creator may %s", action)
		}
	case OwnerOrElevated:
		if res.OwnerID != a.ID && !a.Role.Elevated() {
			return Forbidden("only the creator or an administrator may %s", action)
		}
	case NotOwner:
		if res.OwnerID == a.ID {
			return Forbidden("the creator cannot %s their own request", action)
		}
	}
	return nil
}

func (a Actor) String() string {
	if a.ChurchID != nil {
		return fmt.Sprintf("%s(%s@%d)", a.ID, a.Role, *a.ChurchID)
	}
	return fmt.Sprintf("%s(%s)", a.ID, a.Role)
}

// ChurchScoped reports whether the actor's role only reaches its own
// church for action. Unknown roles are treated as scoped.
func (a Actor) ChurchScoped(action Action) bool {
	scope, ok := Permissions[action].Roles[a.Role]
	return !ok || scope == ScopeChurch
}
